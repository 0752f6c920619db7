// Package numbering 单据编号：采购申请 REQ-00001、采购 00001、旧版订单流水号 1
package numbering

import (
	"fmt"
	"strconv"
	"strings"
)

// Series 编号序列
type Series string

const (
	SeriesPurchaseRequest Series = "purchase_request"
	SeriesPurchase        Series = "purchase"
	SeriesPedido          Series = "pedido"
)

const (
	requestPrefix = "REQ-"
	padWidth      = 5
)

// Valid 是否为已知序列
func (s Series) Valid() bool {
	switch s {
	case SeriesPurchaseRequest, SeriesPurchase, SeriesPedido:
		return true
	}
	return false
}

// NextPurchaseRequestNumber 根据上一个采购申请编号计算下一个
// 空序列或格式不符时从 REQ-00001 开始
func NextPurchaseRequestNumber(last string) string {
	n, ok := Parse(SeriesPurchaseRequest, last)
	if !ok {
		return Format(SeriesPurchaseRequest, 1)
	}
	return Format(SeriesPurchaseRequest, n+1)
}

// NextPurchaseNumber 根据上一个采购编号计算下一个，5 位补零
func NextPurchaseNumber(last string) string {
	n, ok := Parse(SeriesPurchase, last)
	if !ok {
		return Format(SeriesPurchase, 1)
	}
	return Format(SeriesPurchase, n+1)
}

// NextPedidoNumber 旧版订单流水号，不补零
func NextPedidoNumber(last string) int {
	n, ok := Parse(SeriesPedido, last)
	if !ok {
		return 1
	}
	return int(n) + 1
}

// Next 按序列分派
func Next(series Series, last string) string {
	switch series {
	case SeriesPurchaseRequest:
		return NextPurchaseRequestNumber(last)
	case SeriesPedido:
		return strconv.Itoa(NextPedidoNumber(last))
	default:
		return NextPurchaseNumber(last)
	}
}

// Parse 解析已存储编号的数值部分
func Parse(series Series, value string) (int64, bool) {
	value = strings.TrimSpace(value)
	if series == SeriesPurchaseRequest {
		if !strings.HasPrefix(value, requestPrefix) {
			return 0, false
		}
		value = value[len(requestPrefix):]
	}
	if value == "" {
		return 0, false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Format 将数值格式化为序列编号
func Format(series Series, n int64) string {
	switch series {
	case SeriesPurchaseRequest:
		return fmt.Sprintf("%s%0*d", requestPrefix, padWidth, n)
	case SeriesPedido:
		return strconv.FormatInt(n, 10)
	default:
		return fmt.Sprintf("%0*d", padWidth, n)
	}
}
