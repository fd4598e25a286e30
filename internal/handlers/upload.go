package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cloudconnect/cloudconnect/internal/middleware"
	"github.com/cloudconnect/cloudconnect/internal/services"
	"github.com/cloudconnect/cloudconnect/pkg/errors"
	"github.com/cloudconnect/cloudconnect/pkg/response"
)

// UploadHandler accepts multipart file batches and feeds them through the
// upload pipeline.
type UploadHandler struct {
	svc          *services.UploadService
	maxFileBytes int64
}

// NewUploadHandler constructs an upload handler. maxFileBytes caps each file
// in a batch; zero or negative disables the cap.
func NewUploadHandler(svc *services.UploadService, maxFileBytes int64) *UploadHandler {
	return &UploadHandler{svc: svc, maxFileBytes: maxFileBytes}
}

type uploadResultPayload struct {
	Name  string              `json:"name"`
	Item  *services.ItemDTO   `json:"item,omitempty"`
	Error *response.ErrorInfo `json:"error,omitempty"`
}

// Upload handles POST /api/upload. Files arrive under the "files" form field;
// parent_id selects the destination folder ("null" or absent means root).
func (h *UploadHandler) Upload(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, errors.NewBadRequest("expected a multipart form"))
		return
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		response.Error(c, errors.NewBadRequest("no files provided"))
		return
	}

	files := make([]services.UploadFile, 0, len(headers))
	for _, header := range headers {
		if h.maxFileBytes > 0 && header.Size > h.maxFileBytes {
			response.Error(c, errors.NewBadRequest(
				fmt.Sprintf("file %q exceeds the %d byte limit", header.Filename, h.maxFileBytes)))
			return
		}

		data, err := readMultipartFile(header)
		if err != nil {
			response.Error(c, errors.NewBadRequest(fmt.Sprintf("could not read file %q", header.Filename)))
			return
		}

		files = append(files, services.UploadFile{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	results, err := h.svc.Upload(requestContext(c), userID, parentIDParam(c.PostForm("parent_id")), files)
	if err != nil {
		response.Error(c, err)
		return
	}

	payload := make([]uploadResultPayload, len(results))
	status := http.StatusCreated
	for i, result := range results {
		payload[i] = uploadResultPayload{Name: result.Name, Item: result.Item}
		if result.Err != nil {
			payload[i].Error = &response.ErrorInfo{Code: result.Err.Code, Message: result.Err.Message}
			status = http.StatusMultiStatus
		}
	}

	response.Success(c, status, payload)
}

func readMultipartFile(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}
