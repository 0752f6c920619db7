package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase 采购单
type Purchase struct {
	ID                string          `json:"id" gorm:"primaryKey;size:32"`
	Number            string          `json:"number" gorm:"size:32;uniqueIndex;not null"` // 00001
	Status            string          `json:"status" gorm:"size:20;not null;default:PENDING;index"`
	Date              *time.Time      `json:"date"`
	SupplierDocument  string          `json:"supplier_document" gorm:"size:20"` // 供应商 CNPJ
	ClientID          *string         `json:"client_id" gorm:"size:32;index"`
	ProjectID         *string         `json:"project_id" gorm:"size:32;index"`
	PurchaseRequestID *string         `json:"purchase_request_id" gorm:"size:32;index"`
	TotalValue        decimal.Decimal `json:"total_value" gorm:"type:decimal(15,2);not null;default:0"`
	RetentionValue    decimal.Decimal `json:"retention_value" gorm:"type:decimal(15,2);not null;default:0"`
	NetValue          decimal.Decimal `json:"net_value" gorm:"type:decimal(15,2);not null;default:0"`
	Observations      string          `json:"observations" gorm:"type:text"`
	CreatedByID       string          `json:"created_by_id" gorm:"size:32"`
	CreatedAt         time.Time       `json:"created_at" gorm:"index"`
	UpdatedAt         time.Time       `json:"updated_at"`

	Items        []PurchaseItem        `json:"items" gorm:"foreignKey:PurchaseID;constraint:OnDelete:CASCADE"`
	Services     []PurchaseService     `json:"services" gorm:"foreignKey:PurchaseID;constraint:OnDelete:CASCADE"`
	Installments []PurchaseInstallment `json:"installments" gorm:"foreignKey:PurchaseID;constraint:OnDelete:CASCADE"`
	Client       *Client               `json:"client,omitempty" gorm:"foreignKey:ClientID"`
	Project      *Project              `json:"project,omitempty" gorm:"foreignKey:ProjectID"`
}

func (Purchase) TableName() string {
	return "purchases"
}

// 采购单状态
const (
	PurchaseStatusPending   = "PENDING"
	PurchaseStatusApproved  = "APPROVED"
	PurchaseStatusCompleted = "COMPLETED"
	PurchaseStatusCancelled = "CANCELLED"
)

func ValidPurchaseStatus(s string) bool {
	switch s {
	case PurchaseStatusPending, PurchaseStatusApproved, PurchaseStatusCompleted, PurchaseStatusCancelled:
		return true
	}
	return false
}

// PurchaseItem 采购物料行，Total = Quantity × UnitPrice
type PurchaseItem struct {
	ID          string          `json:"id" gorm:"primaryKey;size:32"`
	PurchaseID  string          `json:"purchase_id" gorm:"size:32;not null;index"`
	Description string          `json:"description" gorm:"size:500;not null"`
	Quantity    decimal.Decimal `json:"quantity" gorm:"type:decimal(12,3);not null"`
	Unit        string          `json:"unit" gorm:"size:20"`
	UnitPrice   decimal.Decimal `json:"unit_price" gorm:"type:decimal(15,4);not null"`
	Total       decimal.Decimal `json:"total" gorm:"type:decimal(15,2);not null"`
	SortOrder   int             `json:"sort_order" gorm:"default:0"`
}

func (PurchaseItem) TableName() string {
	return "purchase_items"
}

// PurchaseService 采购服务行（含代扣税）
type PurchaseService struct {
	ID            string          `json:"id" gorm:"primaryKey;size:32"`
	PurchaseID    string          `json:"purchase_id" gorm:"size:32;not null;index"`
	Description   string          `json:"description" gorm:"size:500;not null"`
	Value         decimal.Decimal `json:"value" gorm:"type:decimal(15,2);not null"`
	INSSRetention decimal.Decimal `json:"inss_retention" gorm:"column:inss_retention;type:decimal(15,2);not null;default:0"`
	ISSRetention  decimal.Decimal `json:"iss_retention" gorm:"column:iss_retention;type:decimal(15,2);not null;default:0"`
	IRRetention   decimal.Decimal `json:"ir_retention" gorm:"column:ir_retention;type:decimal(15,2);not null;default:0"`
	NetValue      decimal.Decimal `json:"net_value" gorm:"type:decimal(15,2);not null"`
	SortOrder     int             `json:"sort_order" gorm:"default:0"`
}

func (PurchaseService) TableName() string {
	return "purchase_services"
}

// InstallmentFields 分期通用字段
type InstallmentFields struct {
	Number        int                 `json:"number" gorm:"not null"`
	Account       string              `json:"account" gorm:"size:100"`
	PaymentMethod string              `json:"payment_method" gorm:"size:50"`
	Description   string              `json:"description" gorm:"size:500"`
	DueDate       time.Time           `json:"due_date" gorm:"type:date;not null"`
	GrossValue    decimal.Decimal     `json:"gross_value" gorm:"type:decimal(15,2);not null"`
	NetValue      decimal.Decimal     `json:"net_value" gorm:"type:decimal(15,2);not null"`
	ReceivedValue decimal.NullDecimal `json:"received_value" gorm:"type:decimal(15,2)"`
	NFEmission    *time.Time          `json:"nf_emission" gorm:"column:nf_emission;type:date"` // 发票开具日期
	Receipt       *time.Time          `json:"receipt" gorm:"type:date"`                         // 收款日期
}

// PurchaseInstallment 采购分期
type PurchaseInstallment struct {
	ID         string `json:"id" gorm:"primaryKey;size:32"`
	PurchaseID string `json:"purchase_id" gorm:"size:32;not null;index"`
	InstallmentFields
}

func (PurchaseInstallment) TableName() string {
	return "purchase_installments"
}
