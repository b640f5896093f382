package files

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	filesService "github.com/zhouzirui/z-messenger/internal/service/files"
	"github.com/zhouzirui/z-messenger/pkg/utils"
)

// Handler 文件上传的HTTP处理器
type Handler struct {
	filesSvc *filesService.Service
	maxBytes int64
}

// DefaultMaxUploadBytes 未指定上传上限时使用的默认值
const DefaultMaxUploadBytes int64 = 32 << 20

// New 创建文件处理器, maxBytes 限制单次上传大小, 非正数时使用 DefaultMaxUploadBytes
func New(filesSvc *filesService.Service, maxBytes int64) *Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &Handler{filesSvc: filesSvc, maxBytes: maxBytes}
}

// RegisterRoutes 注册文件相关的路由, 调用方负责挂载认证中间件
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/upload", h.handleUpload)
}

type uploadResponse struct {
	Message string `json:"message"`
	FileURL string `json:"file_url"`
}

// handleUpload 保存 multipart 表单中的 file 字段
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxBytes {
		utils.RespondError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.RespondError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		utils.RespondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	stored, err := h.filesSvc.Save(r.Context(), header.Filename, file)
	if errors.Is(err, filesService.ErrFilenameRequired) {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("[files] upload failed")
		utils.RespondError(w, http.StatusInternalServerError, "upload failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, uploadResponse{Message: "file uploaded", FileURL: stored.URL})
}
