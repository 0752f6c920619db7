// Package taxcalc 服务类采购的预扣税计算（INSS / ISS / IR）
package taxcalc

import "github.com/shopspring/decimal"

// Line 一行服务的税额
type Line struct {
	Gross decimal.Decimal
	INSS  decimal.Decimal
	ISS   decimal.Decimal
	IR    decimal.Decimal
}

// Summary 汇总
type Summary struct {
	Gross      decimal.Decimal `json:"gross"`
	INSS       decimal.Decimal `json:"inss"`
	ISS        decimal.Decimal `json:"iss"`
	IR         decimal.Decimal `json:"ir"`
	Retentions decimal.Decimal `json:"retentions"`
	Net        decimal.Decimal `json:"net"`
}

// NetValue gross - inss - iss - ir，结果可以为负
func NetValue(gross, inss, iss, ir decimal.Decimal) decimal.Decimal {
	return gross.Sub(inss).Sub(iss).Sub(ir)
}

// Net 单行净额
func (l Line) Net() decimal.Decimal {
	return NetValue(l.Gross, l.INSS, l.ISS, l.IR)
}

// Totals 多行汇总
func Totals(lines []Line) Summary {
	var s Summary
	for _, l := range lines {
		s.Gross = s.Gross.Add(l.Gross)
		s.INSS = s.INSS.Add(l.INSS)
		s.ISS = s.ISS.Add(l.ISS)
		s.IR = s.IR.Add(l.IR)
	}
	s.Retentions = s.INSS.Add(s.ISS).Add(s.IR)
	s.Net = s.Gross.Sub(s.Retentions)
	return s
}

// ItemTotal 数量 × 单价
func ItemTotal(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unitPrice)
}

// SaleItemTotal 单价 × 数量 - 折扣
func SaleItemTotal(price, quantity, discount decimal.Decimal) decimal.Decimal {
	return price.Mul(quantity).Sub(discount)
}

// Receivable 应收金额，未代扣时等于合计
func Receivable(total, taxValue decimal.Decimal, retained bool) decimal.Decimal {
	if !retained {
		return total
	}
	return total.Sub(taxValue)
}
