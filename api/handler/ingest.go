package handler

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/fyerfyer/pdf-ingest/api/middleware"
	"github.com/fyerfyer/pdf-ingest/api/model"
	"github.com/fyerfyer/pdf-ingest/internal/document"
	"github.com/fyerfyer/pdf-ingest/internal/models"
	"github.com/fyerfyer/pdf-ingest/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// multipartOverhead 表单边界和其他字段允许占用的额外字节
const multipartOverhead = 1 << 20

// UploadLimits 上传限制
type UploadLimits struct {
	MaxFileBytes int64 // 单个文件最大字节数
	MemoryBytes  int64 // 解析表单时保存在内存中的最大字节数，超出部分写入临时文件
}

// IngestHandler 处理PDF上传和处理记录查询
type IngestHandler struct {
	service *services.IngestService // 编排服务
	limits  UploadLimits            // 上传限制
	logger  *logrus.Logger          // 日志记录器
}

// NewIngestHandler 创建新的处理器
func NewIngestHandler(service *services.IngestService, limits UploadLimits) *IngestHandler {
	if limits.MaxFileBytes <= 0 {
		limits.MaxFileBytes = 32 << 20
	}
	if limits.MemoryBytes <= 0 {
		limits.MemoryBytes = 8 << 20
	}
	return &IngestHandler{
		service: service,
		limits:  limits,
		logger:  middleware.GetLogger(),
	}
}

// UploadPDF 上传PDF并同步处理
// POST /api/v1/upload/pdf
func (h *IngestHandler) UploadPDF(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.limits.MaxFileBytes+multipartOverhead)

	if err := c.Request.ParseMultipartForm(h.limits.MemoryBytes); err != nil {
		if isBodyTooLarge(err) {
			middleware.HandleError(c, middleware.NewPayloadTooLargeError("File exceeds the maximum upload size."))
			return
		}
		middleware.HandleError(c, middleware.NewValidationError("No file uploaded.", err.Error()))
		return
	}
	defer c.Request.MultipartForm.RemoveAll()

	if _, err := c.FormFile("file"); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("No file uploaded."))
		return
	}

	// 绑定请求参数，校验扩展名
	var req model.UploadRequest
	if err := c.ShouldBind(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("Only PDF files are accepted.", err.Error()))
		return
	}
	if req.File.Size > h.limits.MaxFileBytes {
		middleware.HandleError(c, middleware.NewPayloadTooLargeError("File exceeds the maximum upload size."))
		return
	}

	log := h.logger.WithFields(logrus.Fields{
		middleware.FieldTraceID: c.GetString(middleware.TraceIDKey),
		"filename":              req.File.Filename,
		"size":                  req.File.Size,
	})

	file, err := req.File.Open()
	if err != nil {
		log.WithError(err).Error("Failed to open uploaded file")
		middleware.HandleError(c, middleware.NewInternalError("Failed to read uploaded file.", err.Error()))
		return
	}
	content, err := io.ReadAll(file)
	file.Close()
	if err != nil {
		log.WithError(err).Error("Failed to read uploaded file")
		middleware.HandleError(c, middleware.NewInternalError("Failed to read uploaded file.", err.Error()))
		return
	}

	// 保存原始文件到临时存储
	fileInfo, err := h.service.Storage().Save(bytes.NewReader(content), req.File.Filename)
	if err != nil {
		log.WithError(err).Error("Failed to save uploaded file")
		middleware.HandleError(c, middleware.NewPipelineError(services.KindStorageWrite, "Failed to process PDF.", err.Error()))
		return
	}
	log.WithField("path", fileInfo.Path).Info("File uploaded")

	src := models.SourceDocument{
		Name:     req.File.Filename,
		Path:     fileInfo.Path,
		Content:  content,
		Size:     fileInfo.Size,
		Metadata: collectMetadata(c.Request.MultipartForm.Value),
	}

	result, err := h.service.Ingest(c.Request.Context(), src)
	if err != nil {
		var ingestErr *services.IngestError
		if errors.As(err, &ingestErr) {
			appErr := middleware.NewPipelineError(ingestErr.Kind(), "Failed to process PDF.", ingestErr.Cause.Error())
			appErr.RequestID = ingestErr.RequestID
			middleware.HandleError(c, appErr)
			return
		}
		middleware.HandleError(c, middleware.NewPipelineError(services.KindInternal, "Failed to process PDF.", err.Error()))
		return
	}

	var resp model.UploadResponse = *result
	c.JSON(http.StatusOK, model.NewSuccessResponse(resp).WithMessage("PDF processed successfully."))
}

// GetIngestion 查询处理记录
// GET /api/v1/ingestions/:id
func (h *IngestHandler) GetIngestion(c *gin.Context) {
	var req model.IngestionRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("Invalid request id.", err.Error()))
		return
	}

	tracker := h.service.Tracker()
	if tracker == nil {
		middleware.HandleError(c, middleware.NewNotFoundError("Stage tracking is disabled."))
		return
	}

	record, err := tracker.Get(c.Request.Context(), req.ID)
	if err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			middleware.HandleError(c, middleware.NewNotFoundError("Ingestion not found."))
			return
		}
		middleware.HandleError(c, middleware.NewInternalError("Failed to load ingestion.", err.Error()))
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.IngestionStatusResponse(*record)))
}

// ListPages 列出请求写出的页面文件
// GET /api/v1/ingestions/:id/pages
func (h *IngestHandler) ListPages(c *gin.Context) {
	var req model.IngestionRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("Invalid request id.", err.Error()))
		return
	}

	files, err := h.service.Storage().List(req.ID)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			middleware.HandleError(c, middleware.NewNotFoundError("No pages found for this ingestion."))
			return
		}
		middleware.HandleError(c, middleware.NewInternalError("Failed to list pages.", err.Error()))
		return
	}

	pages := make([]model.PageInfo, len(files))
	for i, f := range files {
		pages[i] = model.PageInfo{
			Index: i + 1,
			Name:  f.Name,
			Size:  f.Size,
			Path:  f.Path,
		}
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.PageListResponse{
		RequestID: req.ID,
		Total:     len(pages),
		Pages:     pages,
	}))
}

// DownloadPage 下载单个页面文件
// GET /api/v1/ingestions/:id/pages/:page
func (h *IngestHandler) DownloadPage(c *gin.Context) {
	var req model.PageRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("Invalid page request.", err.Error()))
		return
	}

	store := h.service.Storage()
	dir, err := store.Namespace(req.ID)
	if err != nil {
		middleware.HandleError(c, middleware.NewValidationError("Invalid request id.", err.Error()))
		return
	}
	name := document.PageFileName(h.service.PagePrefix(), req.Page)
	path := filepath.Join(dir, name)

	exists, err := store.Exists(path)
	if err != nil {
		middleware.HandleError(c, middleware.NewInternalError("Failed to read page.", err.Error()))
		return
	}
	if !exists {
		middleware.HandleError(c, middleware.NewNotFoundError("Page not found."))
		return
	}

	info, err := store.Stat(path)
	if err != nil {
		middleware.HandleError(c, middleware.NewInternalError("Failed to read page.", err.Error()))
		return
	}

	rc, err := store.Open(path)
	if err != nil {
		middleware.HandleError(c, middleware.NewInternalError("Failed to read page.", err.Error()))
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, info.Size, info.MimeType, rc, map[string]string{
		"Content-Disposition": `attachment; filename="` + name + `"`,
	})
}

// isBodyTooLarge 判断表单解析失败是否因为请求体超过限制
func isBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return true
	}
	// 部分multipart错误没有保留原始错误链
	return strings.Contains(err.Error(), "request body too large")
}

// collectMetadata 收集除file以外的表单字段
// 单值字段保持字符串，多值字段为字符串数组
func collectMetadata(values map[string][]string) map[string]interface{} {
	metadata := make(map[string]interface{}, len(values))
	for key, vals := range values {
		if key == "file" || len(vals) == 0 {
			continue
		}
		if len(vals) == 1 {
			metadata[key] = vals[0]
			continue
		}
		metadata[key] = append([]string(nil), vals...)
	}
	return metadata
}
