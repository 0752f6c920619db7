package repository

import (
	"context"

	"github.com/bitfantasy/procura/internal/procurement/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PurchaseRepository 采购单仓库
type PurchaseRepository struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

func (r *PurchaseRepository) preloadAll(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Preload("Services", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Preload("Installments", func(db *gorm.DB) *gorm.DB { return db.Order("number ASC") }).
		Preload("Client").
		Preload("Project")
}

// FindAll 采购单列表，filters: status / client_id / project_id / purchase_request_id
func (r *PurchaseRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Purchase, int64, error) {
	var items []entity.Purchase
	var total int64

	query := conn(ctx, r.db).Model(&entity.Purchase{})
	for _, col := range []string{"status", "client_id", "project_id", "purchase_request_id"} {
		if v := filters[col]; v != "" {
			query = query.Where(col+" = ?", v)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := r.preloadAll(query).Order("created_at DESC")
	if pageSize > 0 {
		q = q.Offset(offset(page, pageSize)).Limit(pageSize)
	}
	err := q.Find(&items).Error
	return items, total, err
}

// FindByID 查询采购单（含物料、服务、分期）
func (r *PurchaseRepository) FindByID(ctx context.Context, id string) (*entity.Purchase, error) {
	var p entity.Purchase
	if err := r.preloadAll(conn(ctx, r.db)).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// Create 创建采购单及全部子表
func (r *PurchaseRepository) Create(ctx context.Context, p *entity.Purchase) error {
	if p.ID == "" {
		p.ID = newID()
	}
	prepareItems(p.ID, p.Items)
	prepareServices(p.ID, p.Services)
	prepareInstallments(p.ID, p.Installments)
	return translate(conn(ctx, r.db).Omit("Client", "Project").Create(p).Error)
}

// Update 更新主表字段
func (r *PurchaseRepository) Update(ctx context.Context, p *entity.Purchase) error {
	return translate(conn(ctx, r.db).Omit(clause.Associations).Save(p).Error)
}

// ReplaceChildren 清空物料、服务、分期后按新数据重建
func (r *PurchaseRepository) ReplaceChildren(ctx context.Context, purchaseID string, items []entity.PurchaseItem, services []entity.PurchaseService, installments []entity.PurchaseInstallment) error {
	db := conn(ctx, r.db)
	if err := r.deleteChildren(db, purchaseID); err != nil {
		return err
	}

	prepareItems(purchaseID, items)
	prepareServices(purchaseID, services)
	prepareInstallments(purchaseID, installments)

	if len(items) > 0 {
		if err := db.Create(&items).Error; err != nil {
			return err
		}
	}
	if len(services) > 0 {
		if err := db.Create(&services).Error; err != nil {
			return err
		}
	}
	if len(installments) > 0 {
		if err := db.Create(&installments).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *PurchaseRepository) deleteChildren(db *gorm.DB, purchaseID string) error {
	if err := db.Where("purchase_id = ?", purchaseID).Delete(&entity.PurchaseItem{}).Error; err != nil {
		return err
	}
	if err := db.Where("purchase_id = ?", purchaseID).Delete(&entity.PurchaseService{}).Error; err != nil {
		return err
	}
	return db.Where("purchase_id = ?", purchaseID).Delete(&entity.PurchaseInstallment{}).Error
}

// Delete 删除采购单及子表
func (r *PurchaseRepository) Delete(ctx context.Context, id string) error {
	db := conn(ctx, r.db)
	if err := r.deleteChildren(db, id); err != nil {
		return err
	}
	res := db.Where("id = ?", id).Delete(&entity.Purchase{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListInstallments 采购单分期
func (r *PurchaseRepository) ListInstallments(ctx context.Context, purchaseID string) ([]entity.PurchaseInstallment, error) {
	var items []entity.PurchaseInstallment
	err := conn(ctx, r.db).Where("purchase_id = ?", purchaseID).Order("number ASC").Find(&items).Error
	return items, err
}

func prepareItems(purchaseID string, items []entity.PurchaseItem) {
	for i := range items {
		items[i].ID = newID()
		items[i].PurchaseID = purchaseID
		items[i].SortOrder = i
	}
}

func prepareServices(purchaseID string, services []entity.PurchaseService) {
	for i := range services {
		services[i].ID = newID()
		services[i].PurchaseID = purchaseID
		services[i].SortOrder = i
	}
}

func prepareInstallments(purchaseID string, installments []entity.PurchaseInstallment) {
	for i := range installments {
		installments[i].ID = newID()
		installments[i].PurchaseID = purchaseID
	}
}
