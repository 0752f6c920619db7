package repository

import (
	"context"

	"github.com/bitfantasy/procura/internal/procurement/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ServiceSaleRepository 服务销售仓库
type ServiceSaleRepository struct {
	db *gorm.DB
}

func NewServiceSaleRepository(db *gorm.DB) *ServiceSaleRepository {
	return &ServiceSaleRepository{db: db}
}

// FindAll 分页查询，附带客户、项目
func (r *ServiceSaleRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.ServiceSale, int64, error) {
	var items []entity.ServiceSale
	var total int64

	query := conn(ctx, r.db).Model(&entity.ServiceSale{})
	for _, col := range []string{"client_id", "project_id"} {
		if v := filters[col]; v != "" {
			query = query.Where(col+" = ?", v)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("Client").
		Preload("Project").
		Order("created_at DESC").
		Offset(offset(page, pageSize)).
		Limit(pageSize).
		Find(&items).Error
	return items, total, err
}

// FindByID 查询服务销售（含行项与分期）
func (r *ServiceSaleRepository) FindByID(ctx context.Context, id string) (*entity.ServiceSale, error) {
	var s entity.ServiceSale
	err := conn(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Preload("Installments", func(db *gorm.DB) *gorm.DB { return db.Order("number ASC") }).
		Preload("Client").
		Preload("Project").
		Where("id = ?", id).
		First(&s).Error
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

// Create 创建服务销售
func (r *ServiceSaleRepository) Create(ctx context.Context, s *entity.ServiceSale) error {
	if s.ID == "" {
		s.ID = newID()
	}
	prepareSaleChildren(s.ID, s.Items, s.Installments)
	return translate(conn(ctx, r.db).Omit("Client", "Project").Create(s).Error)
}

// Update 更新主表字段
func (r *ServiceSaleRepository) Update(ctx context.Context, s *entity.ServiceSale) error {
	return translate(conn(ctx, r.db).Omit(clause.Associations).Save(s).Error)
}

// ReplaceChildren 整体替换行项与分期
func (r *ServiceSaleRepository) ReplaceChildren(ctx context.Context, saleID string, items []entity.ServiceSaleItem, installments []entity.ServiceSaleInstallment) error {
	db := conn(ctx, r.db)
	if err := r.deleteChildren(db, saleID); err != nil {
		return err
	}
	prepareSaleChildren(saleID, items, installments)
	if len(items) > 0 {
		if err := db.Create(&items).Error; err != nil {
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

func (r *ServiceSaleRepository) deleteChildren(db *gorm.DB, saleID string) error {
	if err := db.Where("service_sale_id = ?", saleID).Delete(&entity.ServiceSaleItem{}).Error; err != nil {
		return err
	}
	return db.Where("service_sale_id = ?", saleID).Delete(&entity.ServiceSaleInstallment{}).Error
}

// Delete 删除服务销售
func (r *ServiceSaleRepository) Delete(ctx context.Context, id string) error {
	db := conn(ctx, r.db)
	if err := r.deleteChildren(db, id); err != nil {
		return err
	}
	res := db.Where("id = ?", id).Delete(&entity.ServiceSale{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ExistsByNumber 编号是否已被其他记录使用
func (r *ServiceSaleRepository) ExistsByNumber(ctx context.Context, number, excludeID string) (bool, error) {
	var n int64
	q := conn(ctx, r.db).Model(&entity.ServiceSale{}).Where("number = ?", number)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func prepareSaleChildren(saleID string, items []entity.ServiceSaleItem, installments []entity.ServiceSaleInstallment) {
	for i := range items {
		items[i].ID = newID()
		items[i].ServiceSaleID = saleID
		items[i].SortOrder = i
	}
	for i := range installments {
		installments[i].ID = newID()
		installments[i].ServiceSaleID = saleID
	}
}
