package installment

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bitfantasy/procura/internal/apperror"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, time.March, 15, 14, 30, 0, 0, time.UTC)

func opts() Options {
	return Options{
		Start:         start,
		Account:       "Caixa",
		PaymentMethod: "Boleto",
		Description:   "Compra 00012",
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestGenerate_EqualMonthly(t *testing.T) {
	for _, pattern := range []string{"3", "3x", " 3X "} {
		t.Run(pattern, func(t *testing.T) {
			got, err := Generate(dec("900"), pattern, opts())
			require.NoError(t, err)
			require.Len(t, got, 3)

			assert.True(t, Sum(got).Equal(dec("900")))
			assert.Equal(t, day(2024, time.March, 15), got[0].DueDate)
			assert.Equal(t, day(2024, time.April, 15), got[1].DueDate)
			assert.Equal(t, day(2024, time.May, 15), got[2].DueDate)
			assert.Equal(t, "Compra 00012 - Parcela 2/3", got[1].Description)
			for i, it := range got {
				assert.Equal(t, i+1, it.Number)
				assert.True(t, it.GrossValue.Equal(dec("300")))
				assert.True(t, it.NetValue.Equal(it.GrossValue))
				assert.Nil(t, it.ReceivedValue)
				assert.Equal(t, "Caixa", it.Account)
				assert.Equal(t, "Boleto", it.PaymentMethod)
			}
		})
	}
}

func TestGenerate_UnevenSplitNoRedistribution(t *testing.T) {
	got, err := Generate(dec("100"), "3x", opts())
	require.NoError(t, err)
	require.Len(t, got, 3)

	// 每期金额相同，最后一期不吸收尾差
	assert.True(t, got[0].GrossValue.Equal(got[2].GrossValue))
	diff := dec("100").Sub(Sum(got)).Abs()
	assert.True(t, diff.LessThan(dec("0.000001")), "sum drift %s", diff)
}

func TestGenerate_DayList(t *testing.T) {
	got, err := Generate(dec("1000"), "30 60", opts())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, day(2024, time.April, 14), got[0].DueDate)
	assert.Equal(t, day(2024, time.May, 14), got[1].DueDate)
	assert.True(t, got[0].GrossValue.Equal(dec("500")))
	assert.Equal(t, "Compra 00012 - Parcela 1/2", got[0].Description)
}

func TestGenerate_DownPaymentPlusEqual(t *testing.T) {
	got, err := Generate(dec("900.00"), "0 2x", opts())
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "Compra 00012 - Entrada", got[0].Description)
	assert.Equal(t, day(2024, time.March, 15), got[0].DueDate)
	assert.Equal(t, day(2024, time.April, 15), got[1].DueDate)
	assert.Equal(t, day(2024, time.May, 15), got[2].DueDate)
	assert.Equal(t, "Compra 00012 - Parcela 2/2", got[2].Description)
	for _, it := range got {
		assert.True(t, it.GrossValue.Equal(dec("300")))
	}
}

func TestGenerate_DownPaymentWithOffset(t *testing.T) {
	got, err := Generate(dec("300"), "10 2x", opts())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, day(2024, time.March, 25), got[0].DueDate)
	assert.Equal(t, day(2024, time.April, 15), got[1].DueDate)
}

func TestGenerate_CashOnly(t *testing.T) {
	got, err := Generate(dec("450"), "5 0x", opts())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Compra 00012 - À vista", got[0].Description)
	assert.Equal(t, day(2024, time.March, 20), got[0].DueDate)
	assert.True(t, got[0].GrossValue.Equal(dec("450")))

	got, err = Generate(dec("450"), "0", opts())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, day(2024, time.March, 15), got[0].DueDate)
	assert.Equal(t, "Compra 00012 - À vista", got[0].Description)
}

func TestGenerate_PrefillReceived(t *testing.T) {
	o := opts()
	o.PrefillReceived = true
	got, err := Generate(dec("200"), "2", o)
	require.NoError(t, err)
	for _, it := range got {
		require.NotNil(t, it.ReceivedValue)
		assert.True(t, it.ReceivedValue.Equal(it.NetValue))
	}
}

func TestGenerate_InvalidFormat(t *testing.T) {
	for _, pattern := range []string{"", "   ", "abc", "0x", "x", "ax", "30 abc", "10 x", "2x 3x", "1 2 3x", "-5", "30 -5"} {
		t.Run(pattern, func(t *testing.T) {
			_, err := Generate(dec("100"), pattern, opts())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidFormat), "pattern %q: %v", pattern, err)
			assert.True(t, apperror.IsValidation(err))
		})
	}
}

func TestGenerate_RequiresAccountAndMethod(t *testing.T) {
	o := opts()
	o.Account = ""
	_, err := Generate(dec("100"), "2", o)
	assert.ErrorIs(t, err, ErrMissingAccount)

	o = opts()
	o.PaymentMethod = " "
	_, err = Generate(dec("100"), "2", o)
	assert.ErrorIs(t, err, ErrMissingAccount)
}

func TestGenerate_NonPositiveTotal(t *testing.T) {
	_, err := Generate(decimal.Zero, "2", opts())
	assert.ErrorIs(t, err, ErrNonPositiveAmount)
}

func TestGeneratePercentages(t *testing.T) {
	got, err := GeneratePercentages(dec("1000"), []decimal.Decimal{dec("50"), dec("30"), dec("20")}, opts())
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.True(t, got[0].GrossValue.Equal(dec("500")))
	assert.True(t, got[1].GrossValue.Equal(dec("300")))
	assert.True(t, got[2].GrossValue.Equal(dec("200")))
	assert.Equal(t, day(2024, time.April, 14), got[0].DueDate)
	assert.Equal(t, day(2024, time.May, 14), got[1].DueDate)
	assert.Equal(t, day(2024, time.June, 13), got[2].DueDate)
	assert.Equal(t, "Compra 00012 - Parcela 3/3", got[2].Description)
}

func TestGeneratePercentages_Tolerance(t *testing.T) {
	_, err := GeneratePercentages(dec("90"), []decimal.Decimal{dec("33.33"), dec("33.33"), dec("33.34")}, opts())
	assert.NoError(t, err)

	_, err = GeneratePercentages(dec("90"), []decimal.Decimal{dec("33.33"), dec("33.33"), dec("33.33")}, opts())
	assert.NoError(t, err, "99.99 is within tolerance")

	_, err = GeneratePercentages(dec("90"), []decimal.Decimal{dec("33"), dec("33"), dec("33")}, opts())
	assert.ErrorIs(t, err, ErrPercentageSum)

	_, err = GeneratePercentages(dec("90"), []decimal.Decimal{dec("60"), dec("50")}, opts())
	assert.ErrorIs(t, err, ErrPercentageSum)
}

func TestGeneratePercentages_ParcelBounds(t *testing.T) {
	_, err := GeneratePercentages(dec("90"), nil, opts())
	assert.True(t, apperror.IsValidation(err))

	thirteen := make([]decimal.Decimal, 13)
	for i := range thirteen {
		thirteen[i] = dec("1")
	}
	_, err = GeneratePercentages(dec("90"), thirteen, opts())
	assert.True(t, apperror.IsValidation(err))
}

func TestGenerateFromFirstDueDate(t *testing.T) {
	first := day(2024, time.January, 10)
	got, err := GenerateFromFirstDueDate(dec("600"), 3, first, opts())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Parcela 1 de 3", got[0].Description)
	assert.Equal(t, day(2024, time.March, 10), got[2].DueDate)
	assert.True(t, got[1].GrossValue.Equal(dec("200")))

	_, err = GenerateFromFirstDueDate(dec("600"), 0, first, opts())
	assert.True(t, apperror.IsValidation(err))
}

func TestGenerate_ParcelLimit(t *testing.T) {
	got, err := Generate(dec("1200"), "120x", opts())
	require.NoError(t, err)
	assert.Len(t, got, MaxParcels)

	got, err = Generate(dec("1200"), "0 119x", opts())
	require.NoError(t, err)
	assert.Len(t, got, MaxParcels)

	many := strings.TrimSpace(strings.Repeat("30 ", MaxParcels+1))
	for _, pattern := range []string{"121", "121x", "2000000x", "999999999x", "0 120x", "0 1000000x", many} {
		t.Run(pattern[:min(len(pattern), 12)], func(t *testing.T) {
			items, err := Generate(dec("900"), pattern, opts())
			require.Error(t, err)
			assert.Nil(t, items)
			assert.ErrorIs(t, err, ErrTooManyParcels)
			assert.True(t, apperror.IsValidation(err))
		})
	}
}

func TestGenerateFromFirstDueDate_ParcelLimit(t *testing.T) {
	first := day(2024, time.January, 10)
	got, err := GenerateFromFirstDueDate(dec("1200"), MaxParcels, first, opts())
	require.NoError(t, err)
	assert.Len(t, got, MaxParcels)

	items, err := GenerateFromFirstDueDate(dec("1200"), 1000000, first, opts())
	assert.Nil(t, items)
	assert.ErrorIs(t, err, ErrTooManyParcels)
	assert.True(t, apperror.IsValidation(err))
}
