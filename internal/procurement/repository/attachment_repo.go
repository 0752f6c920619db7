package repository

import (
	"context"

	"github.com/bitfantasy/procura/internal/procurement/entity"
	"gorm.io/gorm"
)

// AttachmentRepository 附件元数据仓库
type AttachmentRepository struct {
	db *gorm.DB
}

func NewAttachmentRepository(db *gorm.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

func (r *AttachmentRepository) Create(ctx context.Context, a *entity.Attachment) error {
	if a.ID == "" {
		a.ID = newID()
	}
	return conn(ctx, r.db).Create(a).Error
}

func (r *AttachmentRepository) FindByID(ctx context.Context, id string) (*entity.Attachment, error) {
	var a entity.Attachment
	if err := conn(ctx, r.db).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

// FindByOwner 某单据的全部附件
func (r *AttachmentRepository) FindByOwner(ctx context.Context, ownerType, ownerID string) ([]entity.Attachment, error) {
	var items []entity.Attachment
	err := conn(ctx, r.db).
		Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

func (r *AttachmentRepository) Delete(ctx context.Context, id string) error {
	res := conn(ctx, r.db).Where("id = ?", id).Delete(&entity.Attachment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// OwnerExists 附件归属单据是否存在
func (r *AttachmentRepository) OwnerExists(ctx context.Context, ownerType, ownerID string) (bool, error) {
	var model interface{}
	switch ownerType {
	case entity.AttachmentOwnerPurchase:
		model = &entity.Purchase{}
	case entity.AttachmentOwnerServiceSale:
		model = &entity.ServiceSale{}
	default:
		return false, nil
	}
	var n int64
	if err := conn(ctx, r.db).Model(model).Where("id = ?", ownerID).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}
