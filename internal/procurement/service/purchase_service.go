package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bitfantasy/procura/internal/apperror"
	"github.com/bitfantasy/procura/internal/numbering"
	"github.com/bitfantasy/procura/internal/procurement/entity"
	"github.com/bitfantasy/procura/internal/procurement/repository"
	"github.com/bitfantasy/procura/internal/taxcalc"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const entityPurchase = "Purchase"

type purchaseStore interface {
	FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Purchase, int64, error)
	FindByID(ctx context.Context, id string) (*entity.Purchase, error)
	Create(ctx context.Context, p *entity.Purchase) error
	Update(ctx context.Context, p *entity.Purchase) error
	ReplaceChildren(ctx context.Context, purchaseID string, items []entity.PurchaseItem, services []entity.PurchaseService, installments []entity.PurchaseInstallment) error
	Delete(ctx context.Context, id string) error
	ListInstallments(ctx context.Context, purchaseID string) ([]entity.PurchaseInstallment, error)
}

// PurchaseService 采购单服务
type PurchaseService struct {
	repo    purchaseStore
	logs    activityRecorder
	tx      TxRunner
	numbers NumberGenerator
	logger  *zap.Logger
}

func NewPurchaseService(repo purchaseStore, logs activityRecorder, tx TxRunner, numbers NumberGenerator, logger *zap.Logger) *PurchaseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PurchaseService{repo: repo, logs: logs, tx: tx, numbers: numbers, logger: logger}
}

// PurchaseItemInput 物料行
type PurchaseItemInput struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// PurchaseServiceInput 服务行
type PurchaseServiceInput struct {
	Description   string          `json:"description"`
	Value         decimal.Decimal `json:"value"`
	INSSRetention decimal.Decimal `json:"inss_retention"`
	ISSRetention  decimal.Decimal `json:"iss_retention"`
	IRRetention   decimal.Decimal `json:"ir_retention"`
}

// InstallmentInput 分期（采购与服务销售共用）
type InstallmentInput struct {
	Number        int                 `json:"number"`
	Account       string              `json:"account"`
	PaymentMethod string              `json:"payment_method"`
	Description   string              `json:"description"`
	DueDate       time.Time           `json:"due_date"`
	GrossValue    decimal.Decimal     `json:"gross_value"`
	NetValue      decimal.Decimal     `json:"net_value"`
	ReceivedValue decimal.NullDecimal `json:"received_value"`
	NFEmission    *time.Time          `json:"nf_emission"`
	Receipt       *time.Time          `json:"receipt"`
}

// SavePurchaseInput 创建/更新采购单，子表整体替换
type SavePurchaseInput struct {
	Number            string                 `json:"number"`
	Status            string                 `json:"status"`
	Date              *time.Time             `json:"date"`
	SupplierDocument  string                 `json:"supplier_document"`
	ClientID          *string                `json:"client_id"`
	ProjectID         *string                `json:"project_id"`
	PurchaseRequestID *string                `json:"purchase_request_id"`
	Observations      string                 `json:"observations"`
	Items             []PurchaseItemInput    `json:"items"`
	Services          []PurchaseServiceInput `json:"services"`
	Installments      []InstallmentInput     `json:"installments"`
}

// PurchaseFilter 列表过滤
type PurchaseFilter struct {
	Status            string
	ClientID          string
	ProjectID         string
	PurchaseRequestID string
}

func (in *SavePurchaseInput) validate() error {
	if in.Status != "" && !entity.ValidPurchaseStatus(in.Status) {
		return apperror.NewFieldValidation("status", fmt.Sprintf("invalid status %q", in.Status))
	}
	for i, it := range in.Items {
		if strings.TrimSpace(it.Description) == "" {
			return apperror.NewFieldValidation(fmt.Sprintf("items[%d].description", i), "description is required")
		}
		if it.Quantity.IsNegative() || it.UnitPrice.IsNegative() {
			return apperror.NewFieldValidation(fmt.Sprintf("items[%d]", i), "quantity and unit price cannot be negative")
		}
	}
	for i, sv := range in.Services {
		if strings.TrimSpace(sv.Description) == "" {
			return apperror.NewFieldValidation(fmt.Sprintf("services[%d].description", i), "description is required")
		}
	}
	return validateInstallments(in.Installments)
}

func validateInstallments(in []InstallmentInput) error {
	for i, it := range in {
		if it.DueDate.IsZero() {
			return apperror.NewFieldValidation(fmt.Sprintf("installments[%d].due_date", i), "due date is required")
		}
	}
	return nil
}

// build 按输入构造采购单，服务端重算行合计、代扣与净额
func (in *SavePurchaseInput) build() (*entity.Purchase, []entity.PurchaseItem, []entity.PurchaseService, []entity.PurchaseInstallment) {
	items := make([]entity.PurchaseItem, 0, len(in.Items))
	itemsTotal := decimal.Zero
	for _, it := range in.Items {
		total := taxcalc.ItemTotal(it.Quantity, it.UnitPrice)
		itemsTotal = itemsTotal.Add(total)
		items = append(items, entity.PurchaseItem{
			Description: strings.TrimSpace(it.Description),
			Quantity:    it.Quantity,
			Unit:        it.Unit,
			UnitPrice:   it.UnitPrice,
			Total:       total,
		})
	}

	services := make([]entity.PurchaseService, 0, len(in.Services))
	lines := make([]taxcalc.Line, 0, len(in.Services))
	for _, sv := range in.Services {
		line := taxcalc.Line{Gross: sv.Value, INSS: sv.INSSRetention, ISS: sv.ISSRetention, IR: sv.IRRetention}
		lines = append(lines, line)
		services = append(services, entity.PurchaseService{
			Description:   strings.TrimSpace(sv.Description),
			Value:         sv.Value,
			INSSRetention: sv.INSSRetention,
			ISSRetention:  sv.ISSRetention,
			IRRetention:   sv.IRRetention,
			NetValue:      line.Net(),
		})
	}
	summary := taxcalc.Totals(lines)

	installments := make([]entity.PurchaseInstallment, 0, len(in.Installments))
	for i, it := range in.Installments {
		installments = append(installments, entity.PurchaseInstallment{InstallmentFields: it.fields(i)})
	}

	status := in.Status
	if status == "" {
		status = entity.PurchaseStatusPending
	}
	total := itemsTotal.Add(summary.Gross)
	p := &entity.Purchase{
		Status:            status,
		Date:              in.Date,
		SupplierDocument:  in.SupplierDocument,
		ClientID:          optionalID(in.ClientID),
		ProjectID:         optionalID(in.ProjectID),
		PurchaseRequestID: optionalID(in.PurchaseRequestID),
		TotalValue:        total,
		RetentionValue:    summary.Retentions,
		NetValue:          total.Sub(summary.Retentions),
		Observations:      in.Observations,
	}
	return p, items, services, installments
}

func (it InstallmentInput) fields(idx int) entity.InstallmentFields {
	number := it.Number
	if number <= 0 {
		number = idx + 1
	}
	net := it.NetValue
	if net.IsZero() {
		net = it.GrossValue
	}
	return entity.InstallmentFields{
		Number:        number,
		Account:       it.Account,
		PaymentMethod: it.PaymentMethod,
		Description:   it.Description,
		DueDate:       it.DueDate,
		GrossValue:    it.GrossValue,
		NetValue:      net,
		ReceivedValue: it.ReceivedValue,
		NFEmission:    it.NFEmission,
		Receipt:       it.Receipt,
	}
}

// NextNumber 预览下一个采购编号
func (s *PurchaseService) NextNumber(ctx context.Context) (string, error) {
	return s.numbers.Peek(ctx, numbering.SeriesPurchase)
}

// NextPedidoNumber 旧版订单流水号
func (s *PurchaseService) NextPedidoNumber(ctx context.Context) (string, error) {
	return s.numbers.Peek(ctx, numbering.SeriesPedido)
}

func (s *PurchaseService) List(ctx context.Context, f PurchaseFilter, page, pageSize int) ([]entity.Purchase, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, map[string]string{
		"status":              f.Status,
		"client_id":           f.ClientID,
		"project_id":          f.ProjectID,
		"purchase_request_id": f.PurchaseRequestID,
	})
}

func (s *PurchaseService) Get(ctx context.Context, id string) (*entity.Purchase, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, entityPurchase, id)
	}
	return p, nil
}

// Create 创建采购单
func (s *PurchaseService) Create(ctx context.Context, actor Actor, in *SavePurchaseInput) (*entity.Purchase, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var p *entity.Purchase
	err := createNumbered(ctx, s.numbers, numbering.SeriesPurchase, in.Number, entityPurchase, func(ctx context.Context, number string) error {
		var items []entity.PurchaseItem
		var services []entity.PurchaseService
		var installments []entity.PurchaseInstallment
		p, items, services, installments = in.build()
		p.Number = number
		p.CreatedByID = actor.ID
		p.Items = items
		p.Services = services
		p.Installments = installments

		return s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
			if err := s.repo.Create(ctx, p); err != nil {
				return err
			}
			return record(ctx, s.logs, entity.EntityPurchase, p.ID, p.Number,
				entity.ActionCreate, "", p.Status, "", actor.ID)
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("purchase created", zap.String("id", p.ID), zap.String("number", p.Number))
	return p, nil
}

// Update 更新采购单，物料、服务、分期整体替换
func (s *PurchaseService) Update(ctx context.Context, actor Actor, id string, in *SavePurchaseInput) (*entity.Purchase, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	err := s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return notFound(err, entityPurchase, id)
		}

		p, items, services, installments := in.build()
		p.ID = existing.ID
		p.Number = existing.Number
		if n := strings.TrimSpace(in.Number); n != "" {
			p.Number = n
		}
		p.CreatedByID = existing.CreatedByID
		p.CreatedAt = existing.CreatedAt
		// 未传 purchase_request_id 时保留转单时的关联
		if in.PurchaseRequestID == nil {
			p.PurchaseRequestID = existing.PurchaseRequestID
		}

		if err := s.repo.Update(ctx, p); err != nil {
			if repository.IsDuplicate(err) {
				return apperror.NewDuplicate(entityPurchase, "number", p.Number)
			}
			return err
		}
		if err := s.repo.ReplaceChildren(ctx, p.ID, items, services, installments); err != nil {
			return err
		}
		return record(ctx, s.logs, entity.EntityPurchase, p.ID, p.Number,
			entity.ActionUpdate, existing.Status, p.Status, "", actor.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete 删除采购单
func (s *PurchaseService) Delete(ctx context.Context, actor Actor, id string) error {
	return s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return notFound(err, entityPurchase, id)
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return notFound(err, entityPurchase, id)
		}
		return record(ctx, s.logs, entity.EntityPurchase, p.ID, p.Number,
			entity.ActionDelete, p.Status, "", "", actor.ID)
	})
}

var installmentExportHeaders = []string{
	"Parcela", "Descrição", "Conta", "Forma de pagamento", "Vencimento", "Valor bruto", "Valor líquido", "Valor recebido", "Emissão NF", "Recebimento",
}

// ExportInstallments 导出采购单分期为 Excel
func (s *PurchaseService) ExportInstallments(ctx context.Context, id string) (*excelize.File, string, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	sheet := "Parcelas"
	f.SetSheetName("Sheet1", sheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})
	for i, h := range installmentExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	gross := decimal.Zero
	for idx, it := range p.Installments {
		row := idx + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), it.Number)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), it.Description)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), it.Account)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), it.PaymentMethod)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), it.DueDate.Format("02/01/2006"))
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), it.GrossValue.InexactFloat64())
		f.SetCellValue(sheet, fmt.Sprintf("G%d", row), it.NetValue.InexactFloat64())
		if it.ReceivedValue.Valid {
			f.SetCellValue(sheet, fmt.Sprintf("H%d", row), it.ReceivedValue.Decimal.InexactFloat64())
		}
		if it.NFEmission != nil {
			f.SetCellValue(sheet, fmt.Sprintf("I%d", row), it.NFEmission.Format("02/01/2006"))
		}
		if it.Receipt != nil {
			f.SetCellValue(sheet, fmt.Sprintf("J%d", row), it.Receipt.Format("02/01/2006"))
		}
		gross = gross.Add(it.GrossValue)
	}

	totalRow := len(p.Installments) + 2
	totalStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	f.SetCellValue(sheet, fmt.Sprintf("A%d", totalRow), "Total")
	f.SetCellValue(sheet, fmt.Sprintf("F%d", totalRow), gross.InexactFloat64())
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", totalRow), fmt.Sprintf("J%d", totalRow), totalStyle)

	return f, fmt.Sprintf("compra_%s_parcelas.xlsx", p.Number), nil
}

// Installments 采购单分期列表
func (s *PurchaseService) Installments(ctx context.Context, id string) ([]entity.PurchaseInstallment, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListInstallments(ctx, id)
}
