package service

import (
	"context"
	"strings"

	"github.com/bitfantasy/procura/internal/apperror"
	"github.com/bitfantasy/procura/internal/procurement/entity"
)

type clientStore interface {
	FindAll(ctx context.Context, activeOnly bool, search string) ([]entity.Client, error)
	FindByID(ctx context.Context, id string) (*entity.Client, error)
	Create(ctx context.Context, c *entity.Client) error
	Update(ctx context.Context, c *entity.Client) error
	Delete(ctx context.Context, id string) error
	CountReferences(ctx context.Context, id string) (int64, error)
}

// ClientService 客户服务
type ClientService struct {
	repo clientStore
}

func NewClientService(repo clientStore) *ClientService {
	return &ClientService{repo: repo}
}

// SaveClientInput 创建/更新客户
type SaveClientInput struct {
	FantasyName           string `json:"fantasy_name"`
	CompanyName           string `json:"company_name"`
	Type                  string `json:"type"`
	Document              string `json:"document"`
	MunicipalRegistration string `json:"municipal_registration"`
	StateRegistration     string `json:"state_registration"`
	Email                 string `json:"email"`
	Phone                 string `json:"phone"`
	Pix                   string `json:"pix"`
	Observations          string `json:"observations"`
	IsActive              *bool  `json:"is_active"`
}

func (in *SaveClientInput) validate() error {
	in.FantasyName = strings.TrimSpace(in.FantasyName)
	if in.FantasyName == "" {
		return apperror.NewFieldValidation("fantasy_name", "fantasy name is required")
	}
	if in.Type == "" {
		in.Type = entity.PersonTypePJ
	}
	if in.Type != entity.PersonTypePF && in.Type != entity.PersonTypePJ {
		return apperror.NewFieldValidation("type", "type must be PF or PJ")
	}
	return nil
}

func (in *SaveClientInput) apply(c *entity.Client) {
	c.FantasyName = in.FantasyName
	c.CompanyName = in.CompanyName
	c.Type = in.Type
	c.Document = in.Document
	c.MunicipalRegistration = in.MunicipalRegistration
	c.StateRegistration = in.StateRegistration
	c.Email = in.Email
	c.Phone = in.Phone
	c.Pix = in.Pix
	c.Observations = in.Observations
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
}

func (s *ClientService) List(ctx context.Context, activeOnly bool, search string) ([]entity.Client, error) {
	return s.repo.FindAll(ctx, activeOnly, search)
}

func (s *ClientService) Get(ctx context.Context, id string) (*entity.Client, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Client", id)
	}
	return c, nil
}

// Create 新客户默认启用
func (s *ClientService) Create(ctx context.Context, in *SaveClientInput) (*entity.Client, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	c := &entity.Client{IsActive: true}
	in.apply(c)
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ClientService) Update(ctx context.Context, id string, in *SaveClientInput) (*entity.Client, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(c)
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete 存在项目、申请、采购单或服务销售引用时禁止删除
func (s *ClientService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	n, err := s.repo.CountReferences(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperror.NewConflict(apperror.CodeInUse, "client is referenced by other records").WithDetail("references", n)
	}
	return notFound(s.repo.Delete(ctx, id), "Client", id)
}
