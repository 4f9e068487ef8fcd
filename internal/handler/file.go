package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/imagedrop/imagedrop/internal/ctxkeys"
	"github.com/imagedrop/imagedrop/internal/service"
)

// defaultPageSize is used when infinite listing is requested without a limit
const defaultPageSize = 10

type FileHandler struct {
	fileService *service.FileService
}

func NewFileHandler(fileService *service.FileService) *FileHandler {
	return &FileHandler{
		fileService: fileService,
	}
}

type presignRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        *int64 `json:"size"`
}

// CreatePresignedURL issues a time-limited PUT URL for a direct upload.
// The server is out of the critical path for the byte transfer; only this
// signing request and the later save confirmation touch it.
func (h *FileHandler) CreatePresignedURL(w http.ResponseWriter, r *http.Request) {
	var req presignRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		RespondError(w, http.StatusBadRequest, KindValidation, "invalid JSON body")
		return
	}
	if req.Size == nil {
		RespondError(w, http.StatusBadRequest, KindValidation, "size is required")
		return
	}

	presigned, err := h.fileService.CreatePresignedUpload(r.Context(), req.Filename, req.ContentType, *req.Size)
	if err != nil {
		RespondServiceError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, presigned)
}

type saveFileRequest struct {
	Name string `json:"name"`
	Path string `json:"path"` // full object URL as returned by the storage PUT
	Type string `json:"type"`
}

// SaveFile records one confirmed upload as a durable gallery entry
func (h *FileHandler) SaveFile(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req saveFileRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		RespondError(w, http.StatusBadRequest, KindValidation, "invalid JSON body")
		return
	}

	file, err := h.fileService.SaveFile(r.Context(), user.ID, req.Name, req.Path, req.Type)
	if err != nil {
		RespondServiceError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, file)
}

// ListFiles returns the user's whole gallery, newest first
func (h *FileHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	files, err := h.fileService.ListFiles(r.Context(), user.ID)
	if err != nil {
		RespondServiceError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, files)
}

// InfiniteListFiles returns one cursor-paginated page of the gallery
func (h *FileHandler) InfiniteListFiles(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	limit := defaultPageSize
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			RespondError(w, http.StatusBadRequest, KindValidation, "invalid limit")
			return
		}
		limit = n
	}
	cursor := r.URL.Query().Get("cursor")

	page, err := h.fileService.ListFilesPage(r.Context(), user.ID, limit, cursor)
	if err != nil {
		RespondServiceError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, page)
}

// DeleteFile soft-deletes one of the caller's gallery entries
func (h *FileHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	id := r.PathValue("id")

	err := h.fileService.DeleteFile(r.Context(), user.ID, id)
	if err != nil {
		RespondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
