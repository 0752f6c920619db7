package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/bitfantasy/procura/internal/apperror"
	"github.com/bitfantasy/procura/internal/procurement/entity"
	"github.com/bitfantasy/procura/internal/shared/storage"
	"go.uber.org/zap"
)

type attachmentStore interface {
	Create(ctx context.Context, a *entity.Attachment) error
	FindByID(ctx context.Context, id string) (*entity.Attachment, error)
	FindByOwner(ctx context.Context, ownerType, ownerID string) ([]entity.Attachment, error)
	Delete(ctx context.Context, id string) error
	OwnerExists(ctx context.Context, ownerType, ownerID string) (bool, error)
}

// AttachmentService 附件服务，文件存 MinIO，元数据存数据库
type AttachmentService struct {
	repo     attachmentStore
	store    *storage.Store
	maxBytes int64
	logger   *zap.Logger
}

func NewAttachmentService(repo attachmentStore, store *storage.Store, maxSizeMB int64, logger *zap.Logger) *AttachmentService {
	if maxSizeMB <= 0 {
		maxSizeMB = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttachmentService{repo: repo, store: store, maxBytes: maxSizeMB << 20, logger: logger}
}

// UploadInput 上传参数
type UploadInput struct {
	OwnerType   string
	OwnerID     string
	FileName    string
	Size        int64
	ContentType string
	Body        io.Reader
}

func (s *AttachmentService) enabled() error {
	if s.store == nil {
		return apperror.NewUnavailable("file storage is not configured")
	}
	return nil
}

func (s *AttachmentService) Upload(ctx context.Context, actor Actor, in *UploadInput) (*entity.Attachment, error) {
	if err := s.enabled(); err != nil {
		return nil, err
	}
	if in.OwnerType != entity.AttachmentOwnerPurchase && in.OwnerType != entity.AttachmentOwnerServiceSale {
		return nil, apperror.NewFieldValidation("owner_type", "owner type must be purchase or service_sale")
	}
	if in.OwnerID == "" {
		return nil, apperror.NewFieldValidation("owner_id", "owner id is required")
	}
	if in.Size > s.maxBytes {
		return nil, apperror.NewFieldValidation("file", fmt.Sprintf("file exceeds %d MB", s.maxBytes>>20))
	}

	exists, err := s.repo.OwnerExists(ctx, in.OwnerType, in.OwnerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperror.NewNotFound(in.OwnerType, in.OwnerID)
	}

	key := storage.ObjectKey(in.OwnerType, in.FileName, time.Now())
	if err := s.store.Put(ctx, key, in.Body, in.Size, in.ContentType); err != nil {
		s.logger.Error("upload attachment", zap.String("key", key), zap.Error(err))
		return nil, apperror.NewUnavailable("file storage request failed").WithCause(err)
	}

	a := &entity.Attachment{
		OwnerType:  in.OwnerType,
		OwnerID:    in.OwnerID,
		FileName:   in.FileName,
		ObjectKey:  key,
		FileSize:   in.Size,
		MimeType:   in.ContentType,
		UploadedBy: actor.ID,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		_ = s.store.Remove(ctx, key)
		return nil, err
	}
	return a, nil
}

func (s *AttachmentService) List(ctx context.Context, ownerType, ownerID string) ([]entity.Attachment, error) {
	return s.repo.FindByOwner(ctx, ownerType, ownerID)
}

// Open 读取附件内容，调用方关闭
func (s *AttachmentService) Open(ctx context.Context, id string) (*entity.Attachment, io.ReadCloser, error) {
	if err := s.enabled(); err != nil {
		return nil, nil, err
	}
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, notFound(err, "Attachment", id)
	}
	body, err := s.store.Get(ctx, a.ObjectKey)
	if err != nil {
		return nil, nil, apperror.NewUnavailable("file storage request failed").WithCause(err)
	}
	return a, body, nil
}

func (s *AttachmentService) Delete(ctx context.Context, id string) error {
	if err := s.enabled(); err != nil {
		return err
	}
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFound(err, "Attachment", id)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFound(err, "Attachment", id)
	}
	if err := s.store.Remove(ctx, a.ObjectKey); err != nil {
		s.logger.Warn("remove attachment object", zap.String("key", a.ObjectKey), zap.Error(err))
	}
	return nil
}
