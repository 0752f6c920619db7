package entity

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// 角色
const (
	RoleAdmin      = "ADMIN"
	RoleComprador  = "COMPRADOR"  // 采购员
	RoleEstoquista = "ESTOQUISTA" // 仓管员
)

func ValidRole(r string) bool {
	switch r {
	case RoleAdmin, RoleComprador, RoleEstoquista:
		return true
	}
	return false
}

// User 系统用户
type User struct {
	ID           string     `json:"id" gorm:"primaryKey;size:32"`
	Name         string     `json:"name" gorm:"size:100;not null"`
	Email        string     `json:"email" gorm:"size:200;not null;uniqueIndex"`
	PasswordHash string     `json:"-" gorm:"column:password_hash;size:100;not null"`
	Role         string     `json:"role" gorm:"size:20;not null"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// SetPassword 设置密码（bcrypt）
func (u *User) SetPassword(password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashed)
	return nil
}

// CheckPassword 校验密码
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
