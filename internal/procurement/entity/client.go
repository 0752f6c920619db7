package entity

import "time"

// 客户类型
const (
	PersonTypePF = "PF" // 自然人
	PersonTypePJ = "PJ" // 法人
)

// Client 客户
type Client struct {
	ID                    string    `json:"id" gorm:"primaryKey;size:32"`
	FantasyName           string    `json:"fantasy_name" gorm:"size:200;not null;index"`
	CompanyName           string    `json:"company_name" gorm:"size:200"`
	Type                  string    `json:"type" gorm:"size:2;default:PJ"`
	Document              string    `json:"document" gorm:"size:20;index"` // CPF / CNPJ
	MunicipalRegistration string    `json:"municipal_registration" gorm:"size:50"`
	StateRegistration     string    `json:"state_registration" gorm:"size:50"`
	Email                 string    `json:"email" gorm:"size:200"`
	Phone                 string    `json:"phone" gorm:"size:30"`
	Pix                   string    `json:"pix" gorm:"size:100"`
	Observations          string    `json:"observations" gorm:"type:text"`
	IsActive              bool      `json:"is_active" gorm:"not null"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

func (Client) TableName() string {
	return "clients"
}
