package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bitfantasy/procura/internal/procurement/entity"
	"gorm.io/gorm"
)

// UserRepository 用户仓库
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	var u entity.User
	if err := conn(ctx, r.db).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// FindByEmail 邮箱不区分大小写
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var u entity.User
	err := conn(ctx, r.db).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// FindAll 按创建时间倒序
func (r *UserRepository) FindAll(ctx context.Context) ([]entity.User, error) {
	var items []entity.User
	err := conn(ctx, r.db).Order("created_at DESC").Find(&items).Error
	return items, err
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	if u.ID == "" {
		u.ID = newID()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return translate(conn(ctx, r.db).Create(u).Error)
}

// TouchLastLogin 更新最后登录时间
func (r *UserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return conn(ctx, r.db).Model(&entity.User{}).Where("id = ?", id).Update("last_login_at", at).Error
}
