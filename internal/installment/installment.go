// Package installment 付款分期计算
//
// 固定模式字符串：
//
//	"N" / "Nx"   N 期等额，按月到期（今天, +1月, ...）
//	"D1 D2 ..."  按指定天数到期，每期等额
//	"D Nx"       D 天后首付 + N 期月付，N=0 时为一次性付清
//	"0"          一次性付清，今天到期
//
// 百分比模式按 30 天间隔到期。金额不做尾差调整。
package installment

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bitfantasy/procura/internal/apperror"
	"github.com/shopspring/decimal"
)

const (
	// MaxParcels 单次生成的最大期数
	MaxParcels           = 120
	MaxPercentageParcels = 12
	percentageStepDays   = 30
)

var (
	ErrInvalidFormat     = errors.New("invalid format")
	ErrPercentageSum     = errors.New("percentages must sum to 100")
	ErrMissingAccount    = errors.New("account and payment method are required")
	ErrNonPositiveAmount = errors.New("total must be greater than zero")
	ErrTooManyParcels    = errors.New("too many installments")

	hundred          = decimal.NewFromInt(100)
	percentTolerance = decimal.RequireFromString("0.01")
)

// Options 生成参数，Start 视为"今天"
type Options struct {
	Start           time.Time
	Account         string
	PaymentMethod   string
	Description     string
	PrefillReceived bool
}

// Installment 单期
type Installment struct {
	Number        int              `json:"number"`
	Account       string           `json:"account"`
	PaymentMethod string           `json:"payment_method"`
	Description   string           `json:"description"`
	DueDate       time.Time        `json:"due_date"`
	GrossValue    decimal.Decimal  `json:"gross_value"`
	NetValue      decimal.Decimal  `json:"net_value"`
	ReceivedValue *decimal.Decimal `json:"received_value"`
}

// Sum 各期金额合计
func Sum(items []Installment) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.GrossValue)
	}
	return total
}

func (o Options) validate(total decimal.Decimal) error {
	if strings.TrimSpace(o.Account) == "" || strings.TrimSpace(o.PaymentMethod) == "" {
		return apperror.NewFieldValidation("account", "account and payment method are required").WithCause(ErrMissingAccount)
	}
	if !total.IsPositive() {
		return apperror.NewFieldValidation("total", "total must be greater than zero").WithCause(ErrNonPositiveAmount)
	}
	return nil
}

func (o Options) today() time.Time {
	start := o.Start
	if start.IsZero() {
		start = time.Now()
	}
	y, m, d := start.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, start.Location())
}

func (o Options) build(number int, suffix string, due time.Time, value decimal.Decimal) Installment {
	it := Installment{
		Number:        number,
		Account:       o.Account,
		PaymentMethod: o.PaymentMethod,
		Description:   fmt.Sprintf("%s - %s", o.Description, suffix),
		DueDate:       due,
		GrossValue:    value,
		NetValue:      value,
	}
	if o.PrefillReceived {
		received := value
		it.ReceivedValue = &received
	}
	return it
}

func invalidFormat(msg string) error {
	return apperror.NewFieldValidation("pattern", "invalid format: "+msg).WithCause(ErrInvalidFormat)
}

func tooMany(field string, n int) error {
	return apperror.NewFieldValidation(field,
		fmt.Sprintf("at most %d installments are allowed, got %d", MaxParcels, n)).
		WithCause(ErrTooManyParcels)
}

// Generate 按固定模式生成分期
func Generate(total decimal.Decimal, pattern string, opts Options) ([]Installment, error) {
	if err := opts.validate(total); err != nil {
		return nil, err
	}

	tokens := strings.Fields(strings.ToLower(pattern))
	if len(tokens) == 0 {
		return nil, invalidFormat("empty pattern")
	}

	today := opts.today()

	if len(tokens) == 1 {
		tok := tokens[0]
		if strings.HasSuffix(tok, "x") {
			n, ok := parseCount(strings.TrimSuffix(tok, "x"))
			if !ok || n <= 0 {
				return nil, invalidFormat("equal installments expect a positive count such as 6x")
			}
			if n > MaxParcels {
				return nil, tooMany("pattern", n)
			}
			return monthly(total, n, opts, today), nil
		}
		if n, ok := parseCount(tok); ok {
			if n == 0 {
				return []Installment{opts.build(1, "À vista", today, total)}, nil
			}
			if n > MaxParcels {
				return nil, tooMany("pattern", n)
			}
			return monthly(total, n, opts, today), nil
		}
		return nil, invalidFormat(fmt.Sprintf("unrecognized token %q", tok))
	}

	if len(tokens) == 2 && strings.HasSuffix(tokens[1], "x") {
		days, ok := parseCount(tokens[0])
		if !ok {
			return nil, invalidFormat("down payment expects a day offset such as 0 2x")
		}
		n, ok := parseCount(strings.TrimSuffix(tokens[1], "x"))
		if !ok {
			return nil, invalidFormat("remaining installments expect a count such as 0 2x")
		}
		if n+1 > MaxParcels {
			return nil, tooMany("pattern", n+1)
		}
		return downPayment(total, days, n, opts, today), nil
	}

	if len(tokens) > MaxParcels {
		return nil, tooMany("pattern", len(tokens))
	}
	days := make([]int, 0, len(tokens))
	for _, tok := range tokens {
		d, ok := parseCount(tok)
		if !ok {
			return nil, invalidFormat(fmt.Sprintf("day list expects integers, got %q", tok))
		}
		days = append(days, d)
	}
	return byDays(total, days, opts, today), nil
}

func monthly(total decimal.Decimal, n int, opts Options, today time.Time) []Installment {
	share := total.Div(decimal.NewFromInt(int64(n)))
	out := make([]Installment, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, opts.build(i+1, fmt.Sprintf("Parcela %d/%d", i+1, n), today.AddDate(0, i, 0), share))
	}
	return out
}

func downPayment(total decimal.Decimal, days, n int, opts Options, today time.Time) []Installment {
	first := today.AddDate(0, 0, days)
	if n == 0 {
		return []Installment{opts.build(1, "À vista", first, total)}
	}

	share := total.Div(decimal.NewFromInt(int64(n + 1)))
	out := make([]Installment, 0, n+1)
	out = append(out, opts.build(1, "Entrada", first, share))
	for i := 0; i < n; i++ {
		out = append(out, opts.build(i+2, fmt.Sprintf("Parcela %d/%d", i+1, n), today.AddDate(0, i+1, 0), share))
	}
	return out
}

func byDays(total decimal.Decimal, days []int, opts Options, today time.Time) []Installment {
	k := len(days)
	share := total.Div(decimal.NewFromInt(int64(k)))
	out := make([]Installment, 0, k)
	for i, d := range days {
		out = append(out, opts.build(i+1, fmt.Sprintf("Parcela %d/%d", i+1, k), today.AddDate(0, 0, d), share))
	}
	return out
}

// GeneratePercentages 百分比模式，第 i 期在 today + 30*(i+1) 天到期
func GeneratePercentages(total decimal.Decimal, percentages []decimal.Decimal, opts Options) ([]Installment, error) {
	if err := opts.validate(total); err != nil {
		return nil, err
	}
	n := len(percentages)
	if n == 0 || n > MaxPercentageParcels {
		return nil, apperror.NewFieldValidation("percentages",
			fmt.Sprintf("parcel count must be between 1 and %d", MaxPercentageParcels))
	}

	sum := decimal.Zero
	for _, p := range percentages {
		if !p.IsPositive() {
			return nil, apperror.NewFieldValidation("percentages", "each percentage must be greater than zero")
		}
		sum = sum.Add(p)
	}
	if sum.Sub(hundred).Abs().GreaterThan(percentTolerance) {
		return nil, apperror.NewFieldValidation("percentages",
			fmt.Sprintf("percentages must sum to 100, got %s", sum.StringFixed(2))).
			WithCause(ErrPercentageSum)
	}

	today := opts.today()
	out := make([]Installment, 0, n)
	for i, p := range percentages {
		value := total.Mul(p).Div(hundred)
		due := today.AddDate(0, 0, percentageStepDays*(i+1))
		out = append(out, opts.build(i+1, fmt.Sprintf("Parcela %d/%d", i+1, n), due, value))
	}
	return out, nil
}

// GenerateFromFirstDueDate 从首个到期日起按月等额分期
func GenerateFromFirstDueDate(total decimal.Decimal, count int, firstDue time.Time, opts Options) ([]Installment, error) {
	if err := opts.validate(total); err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, apperror.NewFieldValidation("count", "count must be greater than zero")
	}
	if count > MaxParcels {
		return nil, tooMany("count", count)
	}
	if firstDue.IsZero() {
		return nil, apperror.NewFieldValidation("first_due_date", "first due date is required")
	}

	share := total.Div(decimal.NewFromInt(int64(count)))
	out := make([]Installment, 0, count)
	for i := 0; i < count; i++ {
		it := opts.build(i+1, "", firstDue.AddDate(0, i, 0), share)
		it.Description = fmt.Sprintf("Parcela %d de %d", i+1, count)
		out = append(out, it)
	}
	return out, nil
}

func parseCount(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
