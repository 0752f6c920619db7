package taxcalc

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestNetValue(t *testing.T) {
	cases := []struct {
		name                string
		gross, inss, iss, ir string
		want                string
	}{
		{"typical", "1000", "110", "50", "15", "825"},
		{"no retention", "500", "0", "0", "0", "500"},
		{"cents", "1234.56", "135.80", "61.73", "18.52", "1018.51"},
		{"negative allowed", "100", "80", "30", "10", "-20"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NetValue(d(tc.gross), d(tc.inss), d(tc.iss), d(tc.ir))
			assert.True(t, got.Equal(d(tc.want)), "got %s want %s", got, tc.want)
		})
	}
}

func TestTotals(t *testing.T) {
	lines := []Line{
		{Gross: d("1000"), INSS: d("110"), ISS: d("50"), IR: d("15")},
		{Gross: d("200"), INSS: d("22"), ISS: d("10"), IR: d("3")},
	}
	s := Totals(lines)
	assert.True(t, s.Gross.Equal(d("1200")))
	assert.True(t, s.INSS.Equal(d("132")))
	assert.True(t, s.ISS.Equal(d("60")))
	assert.True(t, s.IR.Equal(d("18")))
	assert.True(t, s.Retentions.Equal(d("210")))
	assert.True(t, s.Net.Equal(d("990")))

	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Net())
	}
	assert.True(t, sum.Equal(s.Net))
}

func TestTotals_Empty(t *testing.T) {
	s := Totals(nil)
	assert.True(t, s.Net.IsZero())
	assert.True(t, s.Retentions.IsZero())
}

func TestItemTotals(t *testing.T) {
	assert.True(t, ItemTotal(d("5"), d("200")).Equal(d("1000")))
	assert.True(t, SaleItemTotal(d("150"), d("2"), d("20")).Equal(d("280")))
}

func TestReceivable(t *testing.T) {
	assert.True(t, Receivable(d("1000"), d("115"), true).Equal(d("885")))
	assert.True(t, Receivable(d("1000"), d("115"), false).Equal(d("1000")))
}
