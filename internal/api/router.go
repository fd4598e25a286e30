package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/cloudconnect/cloudconnect/internal/app"
	iauth "github.com/cloudconnect/cloudconnect/internal/auth"
	"github.com/cloudconnect/cloudconnect/internal/handlers"
	"github.com/cloudconnect/cloudconnect/internal/middleware"
	"github.com/cloudconnect/cloudconnect/internal/services"
	"github.com/cloudconnect/cloudconnect/internal/storage"
)

// Deps bundles the constructed services the router wires into handlers.
type Deps struct {
	DB       *gorm.DB
	JWT      *iauth.JWTService
	Local    *iauth.LocalProvider
	Sessions *iauth.SessionService
	Items    *services.ItemService
	Uploads  *services.UploadService
	Blobs    storage.BlobStore
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(cfg *app.Config, deps Deps) (*gin.Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.JWT == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if deps.Local == nil {
		return nil, fmt.Errorf("local auth provider must be provided")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("session service must be provided")
	}
	if deps.Items == nil {
		return nil, fmt.Errorf("item service must be provided")
	}
	if deps.Uploads == nil {
		return nil, fmt.Errorf("upload service must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS())

	// Health endpoint (public)
	r.GET("/health", handlers.Health())

	authHandler := handlers.NewAuthHandler(deps.DB, deps.Local, deps.Sessions)

	// Public auth routes
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
	}

	requireAuth := middleware.Auth(deps.JWT)

	api := r.Group("/api")
	api.Use(requireAuth)

	// Authenticated auth routes
	api.GET("/auth/me", authHandler.Me)
	api.POST("/auth/logout", authHandler.Logout)

	// Items
	itemHandler := handlers.NewItemHandler(deps.Items)
	items := api.Group("/items")
	{
		items.GET("", itemHandler.List)
		items.PATCH("/:id/name", itemHandler.Rename)
		items.PATCH("/:id/icon", itemHandler.SetIcon)
		items.PATCH("/:id/parent", itemHandler.Move)
		items.DELETE("/:id", itemHandler.Delete)
	}
	api.POST("/folders", itemHandler.CreateFolder)

	// Upload
	uploadHandler := handlers.NewUploadHandler(deps.Uploads, cfg.Storage.Upload.MaxFileBytes)
	api.POST("/upload", uploadHandler.Upload)

	// Local blob store serves its files directly
	if local, ok := deps.Blobs.(*storage.LocalStore); ok {
		r.Static(local.BaseURL(), local.Root())
	}

	// Metrics endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
