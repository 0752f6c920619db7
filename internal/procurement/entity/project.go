package entity

import "time"

// Project 项目
type Project struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	Name      string    `json:"name" gorm:"size:200;not null;index"`
	ClientID  *string   `json:"client_id" gorm:"size:32;index"`
	Color     string    `json:"color" gorm:"size:20"` // 前端标签颜色
	IsActive  bool      `json:"is_active" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Client *Client `json:"client,omitempty" gorm:"foreignKey:ClientID"`
}

func (Project) TableName() string {
	return "projects"
}
