package entity

import "time"

// ActivityLog 操作日志
type ActivityLog struct {
	ID         string    `json:"id" gorm:"primaryKey;size:32"`
	EntityType string    `json:"entity_type" gorm:"size:30;not null;index:idx_activity_entity"`
	EntityID   string    `json:"entity_id" gorm:"size:32;not null;index:idx_activity_entity"`
	EntityCode string    `json:"entity_code" gorm:"size:32"`
	Action     string    `json:"action" gorm:"size:30;not null"`
	FromStatus string    `json:"from_status" gorm:"size:20"`
	ToStatus   string    `json:"to_status" gorm:"size:20"`
	Content    string    `json:"content" gorm:"type:text"`
	OperatorID string    `json:"operator_id" gorm:"size:32"`
	CreatedAt  time.Time `json:"created_at"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}

// 实体类型
const (
	EntityPurchaseRequest = "purchase_request"
	EntityPurchase        = "purchase"
	EntityServiceSale     = "service_sale"
)

// 操作
const (
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionDelete  = "delete"
	ActionConvert = "convert"
)
