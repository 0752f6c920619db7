package entity

import "time"

// DocumentSequence 单据编号计数器，每个序列一行
type DocumentSequence struct {
	Series     string    `json:"series" gorm:"primaryKey;size:32"`
	CurrentVal int64     `json:"current_val" gorm:"not null"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (DocumentSequence) TableName() string {
	return "document_sequences"
}
