package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseRequest 采购申请单
type PurchaseRequest struct {
	ID            string              `json:"id" gorm:"primaryKey;size:32"`
	Number        string              `json:"number" gorm:"size:32;uniqueIndex;not null"` // REQ-00001
	Title         string              `json:"title" gorm:"size:200;not null"`
	Description   string              `json:"description" gorm:"type:text"`
	Status        string              `json:"status" gorm:"size:20;not null;default:PENDING;index"`
	Priority      string              `json:"priority" gorm:"size:20;not null;default:MEDIUM"`
	Justification string              `json:"justification" gorm:"type:text"`
	RequestDate   time.Time           `json:"request_date" gorm:"not null;index"`
	NeededByDate  *time.Time          `json:"needed_by_date"`
	BudgetLimit   decimal.NullDecimal `json:"budget_limit" gorm:"type:decimal(15,2)"`
	Comments      string              `json:"comments" gorm:"type:text"`

	// 审批
	RejectionReason string     `json:"rejection_reason" gorm:"type:text"`
	ApprovalDate    *time.Time `json:"approval_date"`
	ApprovedByID    *string    `json:"approved_by_id" gorm:"size:32"`

	// 关联
	ClientID    *string `json:"client_id" gorm:"size:32;index"`
	ProjectID   *string `json:"project_id" gorm:"size:32;index"`
	CreatedByID string  `json:"created_by_id" gorm:"size:32;not null;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items     []PurchaseRequestItem `json:"items,omitempty" gorm:"foreignKey:PurchaseRequestID;constraint:OnDelete:CASCADE"`
	Client    *Client               `json:"client,omitempty" gorm:"foreignKey:ClientID"`
	Project   *Project              `json:"project,omitempty" gorm:"foreignKey:ProjectID"`
	CreatedBy *User                 `json:"created_by,omitempty" gorm:"foreignKey:CreatedByID"`
	Purchases []Purchase            `json:"purchases,omitempty" gorm:"foreignKey:PurchaseRequestID"`
}

func (PurchaseRequest) TableName() string {
	return "purchase_requests"
}

// 采购申请状态，APPROVED / REJECTED 为终态
const (
	RequestStatusPending  = "PENDING"
	RequestStatusApproved = "APPROVED"
	RequestStatusRejected = "REJECTED"
)

// 优先级
const (
	PriorityLow      = "LOW"
	PriorityMedium   = "MEDIUM"
	PriorityHigh     = "HIGH"
	PriorityCritical = "CRITICAL"
)

// 行项紧急程度
const (
	UrgencyLow      = "LOW"
	UrgencyNormal   = "NORMAL"
	UrgencyHigh     = "HIGH"
	UrgencyCritical = "CRITICAL"
)

func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

func ValidUrgency(u string) bool {
	switch u {
	case UrgencyLow, UrgencyNormal, UrgencyHigh, UrgencyCritical:
		return true
	}
	return false
}

func ValidRequestStatus(s string) bool {
	switch s {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected:
		return true
	}
	return false
}

// IsPending 是否待审批
func (r *PurchaseRequest) IsPending() bool {
	return r.Status == RequestStatusPending
}

// PurchaseRequestItem 采购申请行项
type PurchaseRequestItem struct {
	ID                string              `json:"id" gorm:"primaryKey;size:32"`
	PurchaseRequestID string              `json:"purchase_request_id" gorm:"size:32;not null;index"`
	Description       string              `json:"description" gorm:"size:500;not null"`
	Quantity          decimal.Decimal     `json:"quantity" gorm:"type:decimal(12,3);not null"`
	Unit              string              `json:"unit" gorm:"size:20"`
	EstimatedPrice    decimal.NullDecimal `json:"estimated_price" gorm:"type:decimal(15,2)"`
	Justification     string              `json:"justification" gorm:"type:text"`
	Urgency           string              `json:"urgency" gorm:"size:20;not null;default:NORMAL"`
	SortOrder         int                 `json:"sort_order" gorm:"default:0"`
	CreatedAt         time.Time           `json:"created_at"`
}

func (PurchaseRequestItem) TableName() string {
	return "purchase_request_items"
}
