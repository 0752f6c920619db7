package handler

import (
	"time"

	"github.com/bitfantasy/procura/internal/apperror"
	"github.com/bitfantasy/procura/internal/installment"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// InstallmentHandler 分期预览，不落库
type InstallmentHandler struct {
	now func() time.Time
}

func NewInstallmentHandler() *InstallmentHandler {
	return &InstallmentHandler{now: time.Now}
}

// PreviewRequest 分期预览参数
type PreviewRequest struct {
	Mode            string            `json:"mode"`
	Total           decimal.Decimal   `json:"total"`
	Pattern         string            `json:"pattern"`
	Percentages     []decimal.Decimal `json:"percentages"`
	Count           int               `json:"count"`
	FirstDueDate    string            `json:"first_due_date"`
	StartDate       string            `json:"start_date"`
	Account         string            `json:"account"`
	PaymentMethod   string            `json:"payment_method"`
	Description     string            `json:"description"`
	PrefillReceived bool              `json:"prefill_received"`
}

// Preview 按模式生成分期
// POST /api/v1/installments/preview (mode: pattern | percentage | schedule)
func (h *InstallmentHandler) Preview(c *gin.Context) {
	var req PreviewRequest
	if !bindJSON(c, &req) {
		return
	}

	opts := installment.Options{
		Start:           h.now(),
		Account:         req.Account,
		PaymentMethod:   req.PaymentMethod,
		Description:     req.Description,
		PrefillReceived: req.PrefillReceived,
	}
	if req.StartDate != "" {
		start, err := parseDate(req.StartDate)
		if err != nil {
			RespondError(c, apperror.NewFieldValidation("start_date", "invalid date"))
			return
		}
		opts.Start = start
	}

	var (
		items []installment.Installment
		err   error
	)
	switch req.Mode {
	case "", "pattern":
		items, err = installment.Generate(req.Total, req.Pattern, opts)
	case "percentage":
		items, err = installment.GeneratePercentages(req.Total, req.Percentages, opts)
	case "schedule":
		var first time.Time
		if req.FirstDueDate != "" {
			if first, err = parseDate(req.FirstDueDate); err != nil {
				RespondError(c, apperror.NewFieldValidation("first_due_date", "invalid date"))
				return
			}
		}
		items, err = installment.GenerateFromFirstDueDate(req.Total, req.Count, first, opts)
	default:
		err = apperror.NewFieldValidation("mode", "mode must be pattern, percentage or schedule")
	}
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"items": items, "total": installment.Sum(items)})
}
