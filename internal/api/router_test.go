package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/cloudconnect/cloudconnect/internal/app"
	iauth "github.com/cloudconnect/cloudconnect/internal/auth"
	"github.com/cloudconnect/cloudconnect/internal/database/testutil"
	"github.com/cloudconnect/cloudconnect/internal/services"
	"github.com/cloudconnect/cloudconnect/internal/storage"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t)

	blobs, err := storage.NewLocalStore(storage.LocalConfig{Root: t.TempDir(), BaseURL: "/files"})
	require.NoError(t, err)

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "test-secret", Issuer: "test"})
	require.NoError(t, err)

	local, err := iauth.NewLocalProvider(db, iauth.LocalConfig{})
	require.NoError(t, err)

	sessions, err := iauth.NewSessionService(db, jwtSvc, iauth.SessionConfig{})
	require.NoError(t, err)

	items, err := services.NewItemService(db, blobs)
	require.NoError(t, err)

	uploads, err := services.NewUploadService(items, blobs, services.NewNameResolver(nil), 2)
	require.NoError(t, err)

	cfg := &app.Config{}
	cfg.Storage.Upload.MaxFileBytes = 1 << 20

	router, err := NewRouter(cfg, Deps{
		DB:       db,
		JWT:      jwtSvc,
		Local:    local,
		Sessions: sessions,
		Items:    items,
		Uploads:  uploads,
		Blobs:    blobs,
	})
	require.NoError(t, err)

	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var envelope struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success, "body: %s", w.Body.String())
	return envelope.Data
}

func registerAndLogin(t *testing.T, router *gin.Engine) string {
	t.Helper()

	w := doJSON(t, router, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "correct horse battery",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	data := decodeData(t, w)
	tokens := data["tokens"].(map[string]any)
	return tokens["access_token"].(string)
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAuthFlow(t *testing.T) {
	router := newTestRouter(t)

	token := registerAndLogin(t, router)

	// Me returns the registered identity.
	w := doJSON(t, router, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decodeData(t, w)
	require.Equal(t, "alice", me["username"])

	// Login with the same credentials.
	w = doJSON(t, router, http.MethodPost, "/api/auth/login", "", gin.H{
		"identifier": "alice",
		"password":   "correct horse battery",
	})
	require.Equal(t, http.StatusOK, w.Code)

	// Duplicate registration conflicts.
	w = doJSON(t, router, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "correct horse battery",
	})
	require.Equal(t, http.StatusConflict, w.Code)

	// Bad password is a 401.
	w = doJSON(t, router, http.MethodPost, "/api/auth/login", "", gin.H{
		"identifier": "alice",
		"password":   "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/items", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/folders", "", gin.H{"name": "x"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestItemEndpoints(t *testing.T) {
	router := newTestRouter(t)
	token := registerAndLogin(t, router)

	// Create a folder at the root.
	w := doJSON(t, router, http.MethodPost, "/api/folders", token, gin.H{"name": "Photos"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	folder := decodeData(t, w)
	folderID := folder["id"].(string)

	// A second folder nested inside.
	w = doJSON(t, router, http.MethodPost, "/api/folders", token, gin.H{
		"name":      "Holidays",
		"parent_id": folderID,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	nested := decodeData(t, w)
	nestedID := nested["id"].(string)

	// Listing the root shows one folder.
	w = doJSON(t, router, http.MethodGet, "/api/items", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listEnvelope struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listEnvelope))
	require.Len(t, listEnvelope.Data, 1)
	require.Equal(t, "Photos", listEnvelope.Data[0]["name"])

	// Listing inside the folder shows the nested one.
	w = doJSON(t, router, http.MethodGet, "/api/items?parent_id="+folderID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listEnvelope))
	require.Len(t, listEnvelope.Data, 1)

	// Rename.
	w = doJSON(t, router, http.MethodPatch, "/api/items/"+nestedID+"/name", token, gin.H{"name": "Trips"})
	require.Equal(t, http.StatusOK, w.Code)
	renamed := decodeData(t, w)
	require.Equal(t, "Trips", renamed["name"])

	// Icon override.
	w = doJSON(t, router, http.MethodPatch, "/api/items/"+nestedID+"/icon", token, gin.H{"icon": "plane"})
	require.Equal(t, http.StatusOK, w.Code)

	// Move to the root using the "null" sentinel.
	w = doJSON(t, router, http.MethodPatch, "/api/items/"+nestedID+"/parent", token, gin.H{"parent_id": "null"})
	require.Equal(t, http.StatusOK, w.Code)
	moved := decodeData(t, w)
	require.Nil(t, moved["parent_id"])

	// Moving a folder into itself is rejected.
	w = doJSON(t, router, http.MethodPatch, "/api/items/"+folderID+"/parent", token, gin.H{"parent_id": folderID})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Delete.
	w = doJSON(t, router, http.MethodDelete, "/api/items/"+folderID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/items", token, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listEnvelope))
	require.Len(t, listEnvelope.Data, 1)
	require.Equal(t, "Trips", listEnvelope.Data[0]["name"])
}

func TestUploadEndpoint(t *testing.T) {
	router := newTestRouter(t)
	token := registerAndLogin(t, router)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for i := 0; i < 2; i++ {
		part, err := writer.CreateFormFile("files", fmt.Sprintf("doc-%d.txt", i))
		require.NoError(t, err)
		_, err = part.Write([]byte("hello"))
		require.NoError(t, err)
	}
	require.NoError(t, writer.WriteField("parent_id", "null"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var envelope struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 2)
	require.Equal(t, "doc-0.txt", envelope.Data[0]["name"])
	require.Equal(t, "doc-1.txt", envelope.Data[1]["name"])

	// The uploaded files show up as items.
	listw := doJSON(t, router, http.MethodGet, "/api/items", token, nil)
	require.NoError(t, json.Unmarshal(listw.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 2)
}

func TestUploadRejectsEmptyBatch(t *testing.T) {
	router := newTestRouter(t)
	token := registerAndLogin(t, router)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("parent_id", "null"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnknownRoute(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/nope", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}
