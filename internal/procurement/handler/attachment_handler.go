package handler

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/bitfantasy/procura/internal/procurement/service"
	"github.com/bitfantasy/procura/internal/shared/storage"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AttachmentHandler 附件处理器
type AttachmentHandler struct {
	svc    *service.AttachmentService
	logger *zap.Logger
}

func NewAttachmentHandler(svc *service.AttachmentService, logger *zap.Logger) *AttachmentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttachmentHandler{svc: svc, logger: logger}
}

// Upload 上传附件
// POST /api/v1/attachments (multipart: file, owner_type, owner_id)
func (h *AttachmentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "没有上传文件")
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		BadRequest(c, "读取上传文件失败: "+err.Error())
		return
	}
	defer src.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	a, err := h.svc.Upload(c.Request.Context(), CurrentActor(c), &service.UploadInput{
		OwnerType:   c.PostForm("owner_type"),
		OwnerID:     c.PostForm("owner_id"),
		FileName:    fileHeader.Filename,
		Size:        fileHeader.Size,
		ContentType: contentType,
		Body:        src,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, a)
}

// List GET /api/v1/attachments?owner_type=&owner_id=
func (h *AttachmentHandler) List(c *gin.Context) {
	ownerType, ownerID := c.Query("owner_type"), c.Query("owner_id")
	if ownerType == "" || ownerID == "" {
		BadRequest(c, "owner_type and owner_id are required")
		return
	}
	items, err := h.svc.List(c.Request.Context(), ownerType, ownerID)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, gin.H{"items": items})
}

// Download 流式下载附件
func (h *AttachmentHandler) Download(c *gin.Context) {
	a, body, err := h.svc.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	defer body.Close()

	c.Header("Content-Type", a.MimeType)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`,
		storage.ASCIIName(a.FileName), url.PathEscape(a.FileName)))
	c.Header("Content-Length", strconv.FormatInt(a.FileSize, 10))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		h.logger.Warn("stream attachment", zap.String("id", a.ID), zap.Error(err))
	}
}

func (h *AttachmentHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	Success(c, nil)
}
