package repository

import (
	"context"

	"github.com/bitfantasy/procura/internal/procurement/entity"
	"gorm.io/gorm"
)

// ClientRepository 客户仓库
type ClientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// FindAll 客户列表，按名称排序
func (r *ClientRepository) FindAll(ctx context.Context, activeOnly bool, search string) ([]entity.Client, error) {
	var items []entity.Client
	q := conn(ctx, r.db).Model(&entity.Client{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if search != "" {
		q = q.Where("fantasy_name ILIKE ? OR company_name ILIKE ? OR document ILIKE ?",
			"%"+search+"%", "%"+search+"%", "%"+search+"%")
	}
	err := q.Order("fantasy_name ASC").Find(&items).Error
	return items, err
}

func (r *ClientRepository) FindByID(ctx context.Context, id string) (*entity.Client, error) {
	var c entity.Client
	if err := conn(ctx, r.db).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *ClientRepository) Create(ctx context.Context, c *entity.Client) error {
	if c.ID == "" {
		c.ID = newID()
	}
	return translate(conn(ctx, r.db).Create(c).Error)
}

func (r *ClientRepository) Update(ctx context.Context, c *entity.Client) error {
	return translate(conn(ctx, r.db).Save(c).Error)
}

func (r *ClientRepository) Delete(ctx context.Context, id string) error {
	res := conn(ctx, r.db).Where("id = ?", id).Delete(&entity.Client{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountReferences 引用该客户的项目、采购申请、采购单、服务销售总数
func (r *ClientRepository) CountReferences(ctx context.Context, id string) (int64, error) {
	return countReferences(conn(ctx, r.db), "client_id", id,
		&entity.Project{}, &entity.PurchaseRequest{}, &entity.Purchase{}, &entity.ServiceSale{})
}

func countReferences(db *gorm.DB, column, id string, models ...interface{}) (int64, error) {
	var total int64
	for _, m := range models {
		var n int64
		if err := db.Model(m).Where(column+" = ?", id).Count(&n).Error; err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}
