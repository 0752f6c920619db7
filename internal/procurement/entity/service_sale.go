package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ServiceSale 服务销售
type ServiceSale struct {
	ID              string          `json:"id" gorm:"primaryKey;size:32"`
	Number          string          `json:"number" gorm:"size:32;uniqueIndex;not null"`
	Date            time.Time       `json:"date" gorm:"type:date;not null"`
	ClientID        *string         `json:"client_id" gorm:"size:32;index"`
	ProjectID       *string         `json:"project_id" gorm:"size:32;index"`
	Observations    string          `json:"observations" gorm:"type:text"`
	TaxRetention    bool            `json:"tax_retention" gorm:"not null"`
	TaxValue        decimal.Decimal `json:"tax_value" gorm:"type:decimal(15,2);not null;default:0"`
	TotalValue      decimal.Decimal `json:"total_value" gorm:"type:decimal(15,2);not null;default:0"`
	ReceivableValue decimal.Decimal `json:"receivable_value" gorm:"type:decimal(15,2);not null;default:0"`
	CreatedByID     string          `json:"created_by_id" gorm:"size:32"`
	CreatedAt       time.Time       `json:"created_at" gorm:"index"`
	UpdatedAt       time.Time       `json:"updated_at"`

	Items        []ServiceSaleItem        `json:"items" gorm:"foreignKey:ServiceSaleID;constraint:OnDelete:CASCADE"`
	Installments []ServiceSaleInstallment `json:"installments" gorm:"foreignKey:ServiceSaleID;constraint:OnDelete:CASCADE"`
	Client       *Client                  `json:"client,omitempty" gorm:"foreignKey:ClientID"`
	Project      *Project                 `json:"project,omitempty" gorm:"foreignKey:ProjectID"`
}

func (ServiceSale) TableName() string {
	return "service_sales"
}

// ServiceSaleItem 服务销售行，Total = Price × Quantity - Discount
type ServiceSaleItem struct {
	ID            string          `json:"id" gorm:"primaryKey;size:32"`
	ServiceSaleID string          `json:"service_sale_id" gorm:"size:32;not null;index"`
	ServiceType   string          `json:"service_type" gorm:"size:100"`
	Description   string          `json:"description" gorm:"size:500;not null"`
	Price         decimal.Decimal `json:"price" gorm:"type:decimal(15,2);not null"`
	Quantity      decimal.Decimal `json:"quantity" gorm:"type:decimal(12,3);not null"`
	Discount      decimal.Decimal `json:"discount" gorm:"type:decimal(15,2);not null;default:0"`
	Total         decimal.Decimal `json:"total" gorm:"type:decimal(15,2);not null"`
	SortOrder     int             `json:"sort_order" gorm:"default:0"`
}

func (ServiceSaleItem) TableName() string {
	return "service_sale_items"
}

// ServiceSaleInstallment 服务销售收款分期
type ServiceSaleInstallment struct {
	ID            string `json:"id" gorm:"primaryKey;size:32"`
	ServiceSaleID string `json:"service_sale_id" gorm:"size:32;not null;index"`
	InstallmentFields
}

func (ServiceSaleInstallment) TableName() string {
	return "service_sale_installments"
}
