package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cloudconnect/cloudconnect/internal/middleware"
	"github.com/cloudconnect/cloudconnect/internal/services"
	"github.com/cloudconnect/cloudconnect/pkg/errors"
	"github.com/cloudconnect/cloudconnect/pkg/response"
)

// ItemHandler exposes HTTP endpoints for browsing and managing the item tree.
type ItemHandler struct {
	svc *services.ItemService
}

// NewItemHandler constructs an item handler.
func NewItemHandler(svc *services.ItemService) *ItemHandler {
	return &ItemHandler{svc: svc}
}

// parentIDParam reads a parent reference from a query or JSON value. The
// literal "null" and the empty string both mean root.
func parentIDParam(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil
	}
	return &raw
}

// List returns the children of one folder (or the root when parent_id is
// absent or "null").
func (h *ItemHandler) List(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	items, err := h.svc.List(requestContext(c), userID, parentIDParam(c.Query("parent_id")))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, items)
}

type createFolderPayload struct {
	Name     string  `json:"name" validate:"required,max=255"`
	ParentID *string `json:"parent_id"`
	Icon     string  `json:"icon"`
}

// CreateFolder registers a new folder.
func (h *ItemHandler) CreateFolder(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var payload createFolderPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	dto, err := h.svc.CreateFolder(requestContext(c), userID, services.CreateFolderInput{
		Name:     payload.Name,
		ParentID: payload.ParentID,
		Icon:     payload.Icon,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, dto)
}

type renamePayload struct {
	Name string `json:"name" validate:"required,max=255"`
}

// Rename updates an item's display name.
func (h *ItemHandler) Rename(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var payload renamePayload
	if !bindAndValidate(c, &payload) {
		return
	}

	dto, err := h.svc.Rename(requestContext(c), userID, c.Param("id"), payload.Name)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, dto)
}

type iconPayload struct {
	Icon string `json:"icon" validate:"max=64"`
}

// SetIcon updates an item's icon override.
func (h *ItemHandler) SetIcon(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var payload iconPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	dto, err := h.svc.SetIcon(requestContext(c), userID, c.Param("id"), payload.Icon)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, dto)
}

type movePayload struct {
	ParentID *string `json:"parent_id"`
}

// Move reparents an item.
func (h *ItemHandler) Move(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var payload movePayload
	if !bindAndValidate(c, &payload) {
		return
	}

	parentID := payload.ParentID
	if parentID != nil {
		parentID = parentIDParam(*parentID)
	}

	dto, err := h.svc.Move(requestContext(c), userID, c.Param("id"), parentID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, dto)
}

// Delete removes an item; folders cascade to their whole subtree.
func (h *ItemHandler) Delete(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	if err := h.svc.Delete(requestContext(c), userID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
