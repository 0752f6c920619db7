package repository

import (
	"context"

	"github.com/bitfantasy/procura/internal/procurement/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProjectRepository 项目仓库
type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// FindAll 项目列表，按名称排序
func (r *ProjectRepository) FindAll(ctx context.Context, clientID string, activeOnly bool) ([]entity.Project, error) {
	var items []entity.Project
	q := conn(ctx, r.db).Model(&entity.Project{})
	if clientID != "" {
		q = q.Where("client_id = ?", clientID)
	}
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	err := q.Preload("Client").Order("name ASC").Find(&items).Error
	return items, err
}

func (r *ProjectRepository) FindByID(ctx context.Context, id string) (*entity.Project, error) {
	var p entity.Project
	if err := conn(ctx, r.db).Preload("Client").Where("id = ?", id).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *ProjectRepository) Create(ctx context.Context, p *entity.Project) error {
	if p.ID == "" {
		p.ID = newID()
	}
	return translate(conn(ctx, r.db).Omit(clause.Associations).Create(p).Error)
}

func (r *ProjectRepository) Update(ctx context.Context, p *entity.Project) error {
	return translate(conn(ctx, r.db).Omit(clause.Associations).Save(p).Error)
}

func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	res := conn(ctx, r.db).Where("id = ?", id).Delete(&entity.Project{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountReferences 引用该项目的采购单与服务销售数量
func (r *ProjectRepository) CountReferences(ctx context.Context, id string) (int64, error) {
	return countReferences(conn(ctx, r.db), "project_id", id, &entity.Purchase{}, &entity.ServiceSale{})
}
