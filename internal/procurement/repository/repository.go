package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate key")
)

const pgUniqueViolation = "23505"

// Repositories 仓库集合
type Repositories struct {
	Tx              *TxManager
	PurchaseRequest *PurchaseRequestRepository
	Purchase        *PurchaseRepository
	ServiceSale     *ServiceSaleRepository
	Client          *ClientRepository
	Project         *ProjectRepository
	User            *UserRepository
	Sequence        *SequenceRepository
	ActivityLog     *ActivityLogRepository
	Attachment      *AttachmentRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Tx:              NewTxManager(db),
		PurchaseRequest: NewPurchaseRequestRepository(db),
		Purchase:        NewPurchaseRepository(db),
		ServiceSale:     NewServiceSaleRepository(db),
		Client:          NewClientRepository(db),
		Project:         NewProjectRepository(db),
		User:            NewUserRepository(db),
		Sequence:        NewSequenceRepository(db),
		ActivityLog:     NewActivityLogRepository(db),
		Attachment:      NewAttachmentRepository(db),
	}
}

type txKey struct{}

// TxManager 事务管理，事务句柄通过 context 传递给各仓库
type TxManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

// RunInTransaction 在事务中执行 fn，已在事务中时直接复用
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// conn 优先使用 context 中的事务
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}

// translate 将 gorm / postgres 错误转换为仓库层错误
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

// IsDuplicate 唯一约束冲突
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

func offset(page, pageSize int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * pageSize
}
