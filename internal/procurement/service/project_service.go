package service

import (
	"context"
	"strings"

	"github.com/bitfantasy/procura/internal/apperror"
	"github.com/bitfantasy/procura/internal/procurement/entity"
)

type projectStore interface {
	FindAll(ctx context.Context, clientID string, activeOnly bool) ([]entity.Project, error)
	FindByID(ctx context.Context, id string) (*entity.Project, error)
	Create(ctx context.Context, p *entity.Project) error
	Update(ctx context.Context, p *entity.Project) error
	Delete(ctx context.Context, id string) error
	CountReferences(ctx context.Context, id string) (int64, error)
}

// ProjectService 项目服务
type ProjectService struct {
	repo projectStore
}

func NewProjectService(repo projectStore) *ProjectService {
	return &ProjectService{repo: repo}
}

// SaveProjectInput 创建/更新项目
type SaveProjectInput struct {
	Name     string  `json:"name"`
	ClientID *string `json:"client_id"`
	Color    string  `json:"color"`
	IsActive *bool   `json:"is_active"`
}

func (s *ProjectService) List(ctx context.Context, clientID string, activeOnly bool) ([]entity.Project, error) {
	return s.repo.FindAll(ctx, clientID, activeOnly)
}

func (s *ProjectService) Get(ctx context.Context, id string) (*entity.Project, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Project", id)
	}
	return p, nil
}

func (s *ProjectService) Create(ctx context.Context, in *SaveProjectInput) (*entity.Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperror.NewFieldValidation("name", "name is required")
	}
	p := &entity.Project{
		Name:     name,
		ClientID: optionalID(in.ClientID),
		Color:    in.Color,
		IsActive: true,
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Update 颜色仅在提供时修改
func (s *ProjectService) Update(ctx context.Context, id string, in *SaveProjectInput) (*entity.Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperror.NewFieldValidation("name", "name is required")
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Name = name
	p.ClientID = optionalID(in.ClientID)
	p.Client = nil
	if in.Color != "" {
		p.Color = in.Color
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete 存在采购单或服务销售引用时禁止删除
func (s *ProjectService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	n, err := s.repo.CountReferences(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperror.NewConflict(apperror.CodeInUse, "project is referenced by purchases or service sales").WithDetail("references", n)
	}
	return notFound(s.repo.Delete(ctx, id), "Project", id)
}
