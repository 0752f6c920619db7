package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bitfantasy/procura/internal/apperror"
	"github.com/bitfantasy/procura/internal/numbering"
	"github.com/bitfantasy/procura/internal/procurement/entity"
	"github.com/bitfantasy/procura/internal/taxcalc"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const entityRequest = "PurchaseRequest"

type requestStore interface {
	FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.PurchaseRequest, int64, error)
	FindByID(ctx context.Context, id string) (*entity.PurchaseRequest, error)
	FindByIDForUpdate(ctx context.Context, id string) (*entity.PurchaseRequest, error)
	Decide(ctx context.Context, pr *entity.PurchaseRequest) (bool, error)
	Create(ctx context.Context, pr *entity.PurchaseRequest) error
	Update(ctx context.Context, pr *entity.PurchaseRequest) error
	ReplaceItems(ctx context.Context, prID string, items []entity.PurchaseRequestItem) error
	Delete(ctx context.Context, id string) error
	CountPurchases(ctx context.Context, id string) (int64, error)
}

// requestActivity 申请的操作日志读写
type requestActivity interface {
	activityRecorder
	FindByEntity(ctx context.Context, entityType, entityID string) ([]entity.ActivityLog, error)
}

type purchaseCreator interface {
	Create(ctx context.Context, p *entity.Purchase) error
}

// RequestService 采购申请服务（状态机）
//
//	PENDING ──approve──▶ APPROVED ──convert──▶ Purchase
//	   │
//	   └────reject────▶ REJECTED
type RequestService struct {
	repo      requestStore
	purchases purchaseCreator
	logs      requestActivity
	tx        TxRunner
	numbers   NumberGenerator
	logger    *zap.Logger
	now       func() time.Time
}

func NewRequestService(repo requestStore, purchases purchaseCreator, logs requestActivity, tx TxRunner, numbers NumberGenerator, logger *zap.Logger) *RequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestService{
		repo:      repo,
		purchases: purchases,
		logs:      logs,
		tx:        tx,
		numbers:   numbers,
		logger:    logger,
		now:       time.Now,
	}
}

// RequestItemInput 申请行项
type RequestItemInput struct {
	Description    string              `json:"description"`
	Quantity       decimal.Decimal     `json:"quantity"`
	Unit           string              `json:"unit"`
	EstimatedPrice decimal.NullDecimal `json:"estimated_price"`
	Justification  string              `json:"justification"`
	Urgency        string              `json:"urgency"`
}

// SaveRequestInput 创建/编辑采购申请
// 编辑时 Items 为 nil 表示不修改行项，空数组表示清空
type SaveRequestInput struct {
	Number        string              `json:"number"`
	Title         string              `json:"title"`
	Description   string              `json:"description"`
	ClientID      *string             `json:"client_id"`
	ProjectID     *string             `json:"project_id"`
	Priority      string              `json:"priority"`
	Justification string              `json:"justification"`
	NeededByDate  *time.Time          `json:"needed_by_date"`
	BudgetLimit   decimal.NullDecimal `json:"budget_limit"`
	Comments      string              `json:"comments"`
	Items         []RequestItemInput  `json:"items"`
}

// RequestFilter 列表过滤
type RequestFilter struct {
	Status    string
	Priority  string
	UserID    string
	ClientID  string
	ProjectID string
	Search    string
}

func (in *SaveRequestInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return apperror.NewFieldValidation("title", "title is required")
	}
	if in.Priority != "" && !entity.ValidPriority(in.Priority) {
		return apperror.NewFieldValidation("priority", fmt.Sprintf("invalid priority %q", in.Priority))
	}
	for i, it := range in.Items {
		if strings.TrimSpace(it.Description) == "" {
			return apperror.NewFieldValidation(fmt.Sprintf("items[%d].description", i), "description is required")
		}
		if !it.Quantity.IsPositive() {
			return apperror.NewFieldValidation(fmt.Sprintf("items[%d].quantity", i), "quantity must be greater than zero")
		}
		if it.Urgency != "" && !entity.ValidUrgency(it.Urgency) {
			return apperror.NewFieldValidation(fmt.Sprintf("items[%d].urgency", i), fmt.Sprintf("invalid urgency %q", it.Urgency))
		}
	}
	return nil
}

func buildRequestItems(in []RequestItemInput) []entity.PurchaseRequestItem {
	items := make([]entity.PurchaseRequestItem, 0, len(in))
	for _, it := range in {
		urgency := it.Urgency
		if urgency == "" {
			urgency = entity.UrgencyNormal
		}
		items = append(items, entity.PurchaseRequestItem{
			Description:    strings.TrimSpace(it.Description),
			Quantity:       it.Quantity,
			Unit:           it.Unit,
			EstimatedPrice: it.EstimatedPrice,
			Justification:  it.Justification,
			Urgency:        urgency,
		})
	}
	return items
}

func canAccess(actor Actor, pr *entity.PurchaseRequest) bool {
	return actor.IsAdmin() || pr.CreatedByID == actor.ID
}

// NextNumber 预览下一个申请编号
func (s *RequestService) NextNumber(ctx context.Context) (string, error) {
	return s.numbers.Peek(ctx, numbering.SeriesPurchaseRequest)
}

// Create 创建采购申请，状态 PENDING
func (s *RequestService) Create(ctx context.Context, actor Actor, in *SaveRequestInput) (*entity.PurchaseRequest, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	priority := in.Priority
	if priority == "" {
		priority = entity.PriorityMedium
	}

	var pr *entity.PurchaseRequest
	err := createNumbered(ctx, s.numbers, numbering.SeriesPurchaseRequest, in.Number, entityRequest, func(ctx context.Context, number string) error {
		pr = &entity.PurchaseRequest{
			Number:        number,
			Title:         in.Title,
			Description:   in.Description,
			Status:        entity.RequestStatusPending,
			Priority:      priority,
			Justification: in.Justification,
			RequestDate:   s.now(),
			NeededByDate:  in.NeededByDate,
			BudgetLimit:   in.BudgetLimit,
			Comments:      in.Comments,
			ClientID:      optionalID(in.ClientID),
			ProjectID:     optionalID(in.ProjectID),
			CreatedByID:   actor.ID,
			Items:         buildRequestItems(in.Items),
		}
		return s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
			if err := s.repo.Create(ctx, pr); err != nil {
				return err
			}
			return record(ctx, s.logs, entity.EntityPurchaseRequest, pr.ID, pr.Number,
				entity.ActionCreate, "", pr.Status, pr.Title, actor.ID)
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("purchase request created",
		zap.String("id", pr.ID), zap.String("number", pr.Number), zap.String("user_id", actor.ID))
	return pr, nil
}

// Get 查看详情，仅管理员或创建人
func (s *RequestService) Get(ctx context.Context, actor Actor, id string) (*entity.PurchaseRequest, error) {
	pr, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, entityRequest, id)
	}
	if !canAccess(actor, pr) {
		return nil, apperror.NewForbidden("access to this purchase request is denied")
	}
	return pr, nil
}

// Activities 申请的操作记录，权限同 Get
func (s *RequestService) Activities(ctx context.Context, actor Actor, id string) ([]entity.ActivityLog, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	logs, err := s.logs.FindByEntity(ctx, entity.EntityPurchaseRequest, id)
	if err != nil {
		return nil, fmt.Errorf("load activities of %s: %w", id, err)
	}
	return logs, nil
}

// List 列表；非管理员只能看到自己的申请
func (s *RequestService) List(ctx context.Context, actor Actor, f RequestFilter, page, pageSize int) ([]entity.PurchaseRequest, int64, error) {
	filters := map[string]string{
		"status":        f.Status,
		"priority":      f.Priority,
		"client_id":     f.ClientID,
		"project_id":    f.ProjectID,
		"search":        f.Search,
		"created_by_id": f.UserID,
	}
	if !actor.IsAdmin() {
		filters["created_by_id"] = actor.ID
	}
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

// Update 编辑：管理员或创建人；非管理员仅可编辑 PENDING
func (s *RequestService) Update(ctx context.Context, actor Actor, id string, in *SaveRequestInput) (*entity.PurchaseRequest, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	err := s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		pr, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return notFound(err, entityRequest, id)
		}
		if !canAccess(actor, pr) {
			return apperror.NewForbidden("you are not allowed to edit this purchase request")
		}
		if !actor.IsAdmin() && !pr.IsPending() {
			return apperror.NewForbidden("a processed purchase request cannot be edited")
		}

		pr.Title = in.Title
		pr.Description = in.Description
		pr.ClientID = optionalID(in.ClientID)
		pr.ProjectID = optionalID(in.ProjectID)
		if in.Priority != "" {
			pr.Priority = in.Priority
		}
		pr.Justification = in.Justification
		pr.NeededByDate = in.NeededByDate
		pr.BudgetLimit = in.BudgetLimit
		pr.Comments = in.Comments

		if err := s.repo.Update(ctx, pr); err != nil {
			return err
		}
		if in.Items != nil {
			if err := s.repo.ReplaceItems(ctx, pr.ID, buildRequestItems(in.Items)); err != nil {
				return err
			}
		}
		return record(ctx, s.logs, entity.EntityPurchaseRequest, pr.ID, pr.Number,
			entity.ActionUpdate, pr.Status, pr.Status, "", actor.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

// Approve 审批通过，仅管理员
func (s *RequestService) Approve(ctx context.Context, actor Actor, id, notes string) (*entity.PurchaseRequest, error) {
	if !actor.IsAdmin() {
		return nil, apperror.NewForbidden("only administrators can approve purchase requests")
	}
	notes = strings.TrimSpace(notes)

	var pr *entity.PurchaseRequest
	err := s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		pr, err = s.decide(ctx, actor, id, entity.RequestStatusApproved, func(pr *entity.PurchaseRequest) {
			if notes != "" {
				pr.Comments = appendComment(pr.Comments, "Notas de aprovação", notes)
			}
		})
		if err != nil {
			return err
		}
		return record(ctx, s.logs, entity.EntityPurchaseRequest, pr.ID, pr.Number,
			entity.ActionApprove, entity.RequestStatusPending, pr.Status, notes, actor.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("purchase request approved",
		zap.String("id", pr.ID), zap.String("number", pr.Number), zap.String("approver", actor.ID))
	return pr, nil
}

// Reject 驳回，仅管理员，必须填写原因
func (s *RequestService) Reject(ctx context.Context, actor Actor, id, reason string) (*entity.PurchaseRequest, error) {
	if !actor.IsAdmin() {
		return nil, apperror.NewForbidden("only administrators can reject purchase requests")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperror.NewFieldValidation("reason", "rejection reason is required")
	}

	var pr *entity.PurchaseRequest
	err := s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		pr, err = s.decide(ctx, actor, id, entity.RequestStatusRejected, func(pr *entity.PurchaseRequest) {
			pr.RejectionReason = reason
			pr.Comments = appendComment(pr.Comments, "Motivo da rejeição", reason)
		})
		if err != nil {
			return err
		}
		return record(ctx, s.logs, entity.EntityPurchaseRequest, pr.ID, pr.Number,
			entity.ActionReject, entity.RequestStatusPending, pr.Status, reason, actor.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("purchase request rejected",
		zap.String("id", pr.ID), zap.String("number", pr.Number), zap.String("approver", actor.ID))
	return pr, nil
}

// decide PENDING -> APPROVED / REJECTED
// 行锁读取，写入时再以 status = PENDING 为条件，并发的第二个决定返回冲突
func (s *RequestService) decide(ctx context.Context, actor Actor, id, to string, apply func(pr *entity.PurchaseRequest)) (*entity.PurchaseRequest, error) {
	pr, err := s.repo.FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, notFound(err, entityRequest, id)
	}
	if !pr.IsPending() {
		return nil, alreadyProcessed(pr.Status)
	}

	now := s.now()
	approver := actor.ID
	pr.Status = to
	pr.ApprovedByID = &approver
	pr.ApprovalDate = &now
	apply(pr)

	ok, err := s.repo.Decide(ctx, pr)
	if err != nil {
		return nil, err
	}
	if !ok {
		current, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, notFound(err, entityRequest, id)
		}
		return nil, alreadyProcessed(current.Status)
	}

	decided, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return decided, nil
}

func alreadyProcessed(status string) error {
	return apperror.NewConflict(apperror.CodeAlreadyProcessed, "this purchase request has already been processed").
		WithDetail("status", status)
}

func appendComment(prior, label, text string) string {
	return fmt.Sprintf("%s\n\n%s: %s", prior, label, text)
}

// Delete 删除：管理员或创建人；存在关联采购单时禁止；非管理员不可删除已批准的申请
func (s *RequestService) Delete(ctx context.Context, actor Actor, id string) error {
	return s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		pr, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return notFound(err, entityRequest, id)
		}
		if !canAccess(actor, pr) {
			return apperror.NewForbidden("you are not allowed to delete this purchase request")
		}

		n, err := s.repo.CountPurchases(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperror.NewConflict(apperror.CodeHasPurchases, "a purchase request with associated purchases cannot be deleted").
				WithDetail("purchases", n)
		}
		if !actor.IsAdmin() && pr.Status == entity.RequestStatusApproved {
			return apperror.NewForbidden("an approved purchase request cannot be deleted")
		}

		if err := s.repo.Delete(ctx, id); err != nil {
			return notFound(err, entityRequest, id)
		}
		return record(ctx, s.logs, entity.EntityPurchaseRequest, pr.ID, pr.Number,
			entity.ActionDelete, pr.Status, "", "", actor.ID)
	})
}

// ConvertInput 转采购单参数
type ConvertInput struct {
	Number       string     `json:"number"`
	Date         *time.Time `json:"date"`
	Observations string     `json:"observations"`
}

// ConvertToPurchase 将已批准的申请转为采购单，申请状态不变
func (s *RequestService) ConvertToPurchase(ctx context.Context, actor Actor, id string, in *ConvertInput) (*entity.Purchase, error) {
	if !actor.IsAdmin() && actor.Role != entity.RoleComprador {
		return nil, apperror.NewForbidden("only administrators and buyers can convert purchase requests")
	}
	if in == nil {
		in = &ConvertInput{}
	}

	pr, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, entityRequest, id)
	}
	if pr.Status != entity.RequestStatusApproved {
		return nil, apperror.NewBusinessRule(apperror.CodeBusinessRule, "only approved purchase requests can be converted").
			WithDetail("status", pr.Status)
	}

	var purchase *entity.Purchase
	err = createNumbered(ctx, s.numbers, numbering.SeriesPurchase, in.Number, "Purchase", func(ctx context.Context, number string) error {
		purchase = purchaseFromRequest(pr, number, actor.ID)
		purchase.Date = in.Date
		if in.Observations != "" {
			purchase.Observations = in.Observations
		}
		return s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
			if err := s.purchases.Create(ctx, purchase); err != nil {
				return err
			}
			return record(ctx, s.logs, entity.EntityPurchaseRequest, pr.ID, pr.Number,
				entity.ActionConvert, pr.Status, pr.Status, purchase.Number, actor.ID)
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("purchase request converted",
		zap.String("request", pr.Number), zap.String("purchase", purchase.Number), zap.String("user_id", actor.ID))
	return purchase, nil
}

func purchaseFromRequest(pr *entity.PurchaseRequest, number, userID string) *entity.Purchase {
	requestID := pr.ID
	p := &entity.Purchase{
		Number:            number,
		Status:            entity.PurchaseStatusPending,
		ClientID:          pr.ClientID,
		ProjectID:         pr.ProjectID,
		PurchaseRequestID: &requestID,
		Observations:      fmt.Sprintf("%s - %s", pr.Number, pr.Title),
		CreatedByID:       userID,
	}

	total := decimal.Zero
	for _, it := range pr.Items {
		price := decimal.Zero
		if it.EstimatedPrice.Valid {
			price = it.EstimatedPrice.Decimal
		}
		line := taxcalc.ItemTotal(it.Quantity, price)
		total = total.Add(line)
		p.Items = append(p.Items, entity.PurchaseItem{
			Description: it.Description,
			Quantity:    it.Quantity,
			Unit:        it.Unit,
			UnitPrice:   price,
			Total:       line,
		})
	}
	p.TotalValue = total
	p.NetValue = total
	return p
}

var requestExportHeaders = []string{
	"Número", "Título", "Status", "Prioridade", "Data", "Necessário até", "Cliente", "Projeto", "Solicitante", "Itens", "Valor estimado",
}

// Export 导出申请列表为 Excel
func (s *RequestService) Export(ctx context.Context, actor Actor, f RequestFilter) (*excelize.File, string, error) {
	items, _, err := s.List(ctx, actor, f, 1, 0)
	if err != nil {
		return nil, "", fmt.Errorf("list purchase requests: %w", err)
	}

	file := excelize.NewFile()
	sheet := "Requisições"
	file.SetSheetName("Sheet1", sheet)

	headerStyle, _ := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	for i, h := range requestExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		file.SetCellValue(sheet, cell, h)
		file.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for idx, pr := range items {
		row := idx + 2
		file.SetCellValue(sheet, fmt.Sprintf("A%d", row), pr.Number)
		file.SetCellValue(sheet, fmt.Sprintf("B%d", row), pr.Title)
		file.SetCellValue(sheet, fmt.Sprintf("C%d", row), pr.Status)
		file.SetCellValue(sheet, fmt.Sprintf("D%d", row), pr.Priority)
		file.SetCellValue(sheet, fmt.Sprintf("E%d", row), pr.RequestDate.Format("02/01/2006"))
		if pr.NeededByDate != nil {
			file.SetCellValue(sheet, fmt.Sprintf("F%d", row), pr.NeededByDate.Format("02/01/2006"))
		}
		if pr.Client != nil {
			file.SetCellValue(sheet, fmt.Sprintf("G%d", row), pr.Client.FantasyName)
		}
		if pr.Project != nil {
			file.SetCellValue(sheet, fmt.Sprintf("H%d", row), pr.Project.Name)
		}
		if pr.CreatedBy != nil {
			file.SetCellValue(sheet, fmt.Sprintf("I%d", row), pr.CreatedBy.Name)
		}
		file.SetCellValue(sheet, fmt.Sprintf("J%d", row), len(pr.Items))
		file.SetCellValue(sheet, fmt.Sprintf("K%d", row), estimatedTotal(pr.Items).InexactFloat64())
	}

	widths := []float64{12, 30, 12, 12, 12, 14, 20, 20, 20, 8, 14}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		file.SetColWidth(sheet, col, col, w)
	}

	filename := fmt.Sprintf("requisicoes_%s.xlsx", s.now().Format("20060102"))
	return file, filename, nil
}

func estimatedTotal(items []entity.PurchaseRequestItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		if it.EstimatedPrice.Valid {
			total = total.Add(taxcalc.ItemTotal(it.Quantity, it.EstimatedPrice.Decimal))
		}
	}
	return total
}
