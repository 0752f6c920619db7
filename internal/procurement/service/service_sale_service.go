package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bitfantasy/procura/internal/apperror"
	"github.com/bitfantasy/procura/internal/procurement/entity"
	"github.com/bitfantasy/procura/internal/procurement/repository"
	"github.com/bitfantasy/procura/internal/taxcalc"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const entityServiceSale = "ServiceSale"

type serviceSaleStore interface {
	FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.ServiceSale, int64, error)
	FindByID(ctx context.Context, id string) (*entity.ServiceSale, error)
	Create(ctx context.Context, s *entity.ServiceSale) error
	Update(ctx context.Context, s *entity.ServiceSale) error
	ReplaceChildren(ctx context.Context, saleID string, items []entity.ServiceSaleItem, installments []entity.ServiceSaleInstallment) error
	Delete(ctx context.Context, id string) error
	ExistsByNumber(ctx context.Context, number, excludeID string) (bool, error)
}

// ServiceSaleService 服务销售
type ServiceSaleService struct {
	repo   serviceSaleStore
	logs   activityRecorder
	tx     TxRunner
	logger *zap.Logger
}

func NewServiceSaleService(repo serviceSaleStore, logs activityRecorder, tx TxRunner, logger *zap.Logger) *ServiceSaleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ServiceSaleService{repo: repo, logs: logs, tx: tx, logger: logger}
}

// SaleItemInput 服务销售行
type SaleItemInput struct {
	ServiceType string          `json:"service_type"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    decimal.Decimal `json:"quantity"`
	Discount    decimal.Decimal `json:"discount"`
}

// SaveServiceSaleInput 创建/更新服务销售
type SaveServiceSaleInput struct {
	Number       string             `json:"number"`
	Date         time.Time          `json:"date"`
	ClientID     *string            `json:"client_id"`
	ProjectID    *string            `json:"project_id"`
	Observations string             `json:"observations"`
	TaxRetention bool               `json:"tax_retention"`
	TaxValue     decimal.Decimal    `json:"tax_value"`
	Items        []SaleItemInput    `json:"items"`
	Installments []InstallmentInput `json:"installments"`
}

func (in *SaveServiceSaleInput) validate() error {
	in.Number = strings.TrimSpace(in.Number)
	if in.Number == "" {
		return apperror.NewFieldValidation("number", "number is required")
	}
	if in.Date.IsZero() {
		return apperror.NewFieldValidation("date", "date is required")
	}
	if len(in.Items) == 0 {
		return apperror.NewFieldValidation("items", "at least one item is required")
	}
	if len(in.Installments) == 0 {
		return apperror.NewFieldValidation("installments", "at least one installment is required")
	}
	for i, it := range in.Items {
		if strings.TrimSpace(it.Description) == "" {
			return apperror.NewFieldValidation(fmt.Sprintf("items[%d].description", i), "description is required")
		}
	}
	if in.TaxValue.IsNegative() {
		return apperror.NewFieldValidation("tax_value", "tax value cannot be negative")
	}
	return validateInstallments(in.Installments)
}

func (in *SaveServiceSaleInput) build() (*entity.ServiceSale, []entity.ServiceSaleItem, []entity.ServiceSaleInstallment) {
	items := make([]entity.ServiceSaleItem, 0, len(in.Items))
	total := decimal.Zero
	for _, it := range in.Items {
		line := taxcalc.SaleItemTotal(it.Price, it.Quantity, it.Discount)
		total = total.Add(line)
		items = append(items, entity.ServiceSaleItem{
			ServiceType: it.ServiceType,
			Description: strings.TrimSpace(it.Description),
			Price:       it.Price,
			Quantity:    it.Quantity,
			Discount:    it.Discount,
			Total:       line,
		})
	}

	installments := make([]entity.ServiceSaleInstallment, 0, len(in.Installments))
	for i, it := range in.Installments {
		installments = append(installments, entity.ServiceSaleInstallment{InstallmentFields: it.fields(i)})
	}

	taxValue := in.TaxValue
	if !in.TaxRetention {
		taxValue = decimal.Zero
	}
	sale := &entity.ServiceSale{
		Number:          in.Number,
		Date:            in.Date,
		ClientID:        optionalID(in.ClientID),
		ProjectID:       optionalID(in.ProjectID),
		Observations:    in.Observations,
		TaxRetention:    in.TaxRetention,
		TaxValue:        taxValue,
		TotalValue:      total,
		ReceivableValue: taxcalc.Receivable(total, taxValue, in.TaxRetention),
	}
	return sale, items, installments
}

func (s *ServiceSaleService) List(ctx context.Context, clientID, projectID string, page, pageSize int) ([]entity.ServiceSale, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, map[string]string{
		"client_id":  clientID,
		"project_id": projectID,
	})
}

func (s *ServiceSaleService) Get(ctx context.Context, id string) (*entity.ServiceSale, error) {
	sale, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, entityServiceSale, id)
	}
	return sale, nil
}

// Create 编号由调用方提供，重复时报错
func (s *ServiceSaleService) Create(ctx context.Context, actor Actor, in *SaveServiceSaleInput) (*entity.ServiceSale, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	sale, items, installments := in.build()
	sale.CreatedByID = actor.ID
	sale.Items = items
	sale.Installments = installments

	err := s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		exists, err := s.repo.ExistsByNumber(ctx, sale.Number, "")
		if err != nil {
			return err
		}
		if exists {
			return apperror.NewDuplicate(entityServiceSale, "number", sale.Number)
		}
		if err := s.repo.Create(ctx, sale); err != nil {
			if repository.IsDuplicate(err) {
				return apperror.NewDuplicate(entityServiceSale, "number", sale.Number)
			}
			return err
		}
		return record(ctx, s.logs, entity.EntityServiceSale, sale.ID, sale.Number,
			entity.ActionCreate, "", "", "", actor.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("service sale created", zap.String("id", sale.ID), zap.String("number", sale.Number))
	return sale, nil
}

// Update 整体替换行项与分期
func (s *ServiceSaleService) Update(ctx context.Context, actor Actor, id string, in *SaveServiceSaleInput) (*entity.ServiceSale, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	err := s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return notFound(err, entityServiceSale, id)
		}
		exists, err := s.repo.ExistsByNumber(ctx, in.Number, id)
		if err != nil {
			return err
		}
		if exists {
			return apperror.NewDuplicate(entityServiceSale, "number", in.Number)
		}

		sale, items, installments := in.build()
		sale.ID = existing.ID
		sale.CreatedByID = existing.CreatedByID
		sale.CreatedAt = existing.CreatedAt

		if err := s.repo.Update(ctx, sale); err != nil {
			if repository.IsDuplicate(err) {
				return apperror.NewDuplicate(entityServiceSale, "number", sale.Number)
			}
			return err
		}
		if err := s.repo.ReplaceChildren(ctx, sale.ID, items, installments); err != nil {
			return err
		}
		return record(ctx, s.logs, entity.EntityServiceSale, sale.ID, sale.Number,
			entity.ActionUpdate, "", "", "", actor.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *ServiceSaleService) Delete(ctx context.Context, actor Actor, id string) error {
	return s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		sale, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return notFound(err, entityServiceSale, id)
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return notFound(err, entityServiceSale, id)
		}
		return record(ctx, s.logs, entity.EntityServiceSale, sale.ID, sale.Number,
			entity.ActionDelete, "", "", "", actor.ID)
	})
}
