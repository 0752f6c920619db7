package repository

import (
	"context"

	"github.com/bitfantasy/procura/internal/procurement/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func newID() string {
	return uuid.New().String()[:32]
}

// PurchaseRequestRepository 采购申请仓库
type PurchaseRequestRepository struct {
	db *gorm.DB
}

func NewPurchaseRequestRepository(db *gorm.DB) *PurchaseRequestRepository {
	return &PurchaseRequestRepository{db: db}
}

// FindAll 查询采购申请列表，按申请日期倒序
// filters: status / priority / created_by_id / client_id / project_id
func (r *PurchaseRequestRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.PurchaseRequest, int64, error) {
	var items []entity.PurchaseRequest
	var total int64

	query := conn(ctx, r.db).Model(&entity.PurchaseRequest{})

	for _, col := range []string{"status", "priority", "created_by_id", "client_id", "project_id"} {
		if v := filters[col]; v != "" {
			query = query.Where(col+" = ?", v)
		}
	}
	if search := filters["search"]; search != "" {
		query = query.Where("title ILIKE ? OR number ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("Client").
		Preload("Project").
		Preload("CreatedBy").
		Order("request_date DESC")
	if pageSize > 0 {
		q = q.Offset(offset(page, pageSize)).Limit(pageSize)
	}
	err := q.Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找采购申请（含行项）
func (r *PurchaseRequestRepository) FindByID(ctx context.Context, id string) (*entity.PurchaseRequest, error) {
	var pr entity.PurchaseRequest
	err := conn(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("Client").
		Preload("Project").
		Preload("CreatedBy").
		Where("id = ?", id).
		First(&pr).Error
	if err != nil {
		return nil, translate(err)
	}
	return &pr, nil
}

// FindByIDForUpdate 在事务内读取并锁定主表行 (SELECT ... FOR UPDATE)
func (r *PurchaseRequestRepository) FindByIDForUpdate(ctx context.Context, id string) (*entity.PurchaseRequest, error) {
	var pr entity.PurchaseRequest
	err := conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&pr).Error
	if err != nil {
		return nil, translate(err)
	}
	return &pr, nil
}

// Decide 仅当状态仍为 PENDING 时写入审批结果，返回是否生效
func (r *PurchaseRequestRepository) Decide(ctx context.Context, pr *entity.PurchaseRequest) (bool, error) {
	res := conn(ctx, r.db).
		Model(&entity.PurchaseRequest{}).
		Where("id = ? AND status = ?", pr.ID, entity.RequestStatusPending).
		Updates(map[string]interface{}{
			"status":           pr.Status,
			"approved_by_id":   pr.ApprovedByID,
			"approval_date":    pr.ApprovalDate,
			"rejection_reason": pr.RejectionReason,
			"comments":         pr.Comments,
			"updated_at":       gorm.Expr("NOW()"),
		})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Create 创建采购申请及行项
func (r *PurchaseRequestRepository) Create(ctx context.Context, pr *entity.PurchaseRequest) error {
	if pr.ID == "" {
		pr.ID = newID()
	}
	for i := range pr.Items {
		pr.Items[i].ID = newID()
		pr.Items[i].PurchaseRequestID = pr.ID
		pr.Items[i].SortOrder = i
	}
	return translate(conn(ctx, r.db).Create(pr).Error)
}

// Update 更新采购申请主表字段，不触碰行项
func (r *PurchaseRequestRepository) Update(ctx context.Context, pr *entity.PurchaseRequest) error {
	return translate(conn(ctx, r.db).Omit(clause.Associations).Save(pr).Error)
}

// ReplaceItems 删除全部行项后重建
func (r *PurchaseRequestRepository) ReplaceItems(ctx context.Context, prID string, items []entity.PurchaseRequestItem) error {
	db := conn(ctx, r.db)
	if err := db.Where("purchase_request_id = ?", prID).Delete(&entity.PurchaseRequestItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].ID = newID()
		items[i].PurchaseRequestID = prID
		items[i].SortOrder = i
	}
	return db.Create(&items).Error
}

// Delete 删除采购申请（行项级联删除）
func (r *PurchaseRequestRepository) Delete(ctx context.Context, id string) error {
	db := conn(ctx, r.db)
	if err := db.Where("purchase_request_id = ?", id).Delete(&entity.PurchaseRequestItem{}).Error; err != nil {
		return err
	}
	res := db.Where("id = ?", id).Delete(&entity.PurchaseRequest{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountPurchases 引用该申请的采购单数量
func (r *PurchaseRequestRepository) CountPurchases(ctx context.Context, id string) (int64, error) {
	var n int64
	err := conn(ctx, r.db).Model(&entity.Purchase{}).Where("purchase_request_id = ?", id).Count(&n).Error
	return n, err
}
