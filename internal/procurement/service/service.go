package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bitfantasy/procura/internal/apperror"
	"github.com/bitfantasy/procura/internal/config"
	"github.com/bitfantasy/procura/internal/numbering"
	"github.com/bitfantasy/procura/internal/procurement/entity"
	"github.com/bitfantasy/procura/internal/procurement/repository"
	"github.com/bitfantasy/procura/internal/shared/cnpj"
	"github.com/bitfantasy/procura/internal/shared/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Services 服务集合
type Services struct {
	Request     *RequestService
	Purchase    *PurchaseService
	ServiceSale *ServiceSaleService
	Client      *ClientService
	Project     *ProjectService
	Auth        *AuthService
	User        *UserService
	Attachment  *AttachmentService
	CNPJ        *CNPJService
}

// NewServices 创建服务集合
func NewServices(repos *repository.Repositories, rdb *redis.Client, cfg *config.Config, store *storage.Store, logger *zap.Logger) *Services {
	gen := numbering.NewGenerator(repos.Sequence, repos.Sequence)

	return &Services{
		Request:     NewRequestService(repos.PurchaseRequest, repos.Purchase, repos.ActivityLog, repos.Tx, gen, logger),
		Purchase:    NewPurchaseService(repos.Purchase, repos.ActivityLog, repos.Tx, gen, logger),
		ServiceSale: NewServiceSaleService(repos.ServiceSale, repos.ActivityLog, repos.Tx, logger),
		Client:      NewClientService(repos.Client),
		Project:     NewProjectService(repos.Project),
		Auth:        NewAuthService(repos.User, rdb, cfg),
		User:        NewUserService(repos.User),
		Attachment:  NewAttachmentService(repos.Attachment, store, cfg.MinIO.MaxSizeMB, logger),
		CNPJ:        NewCNPJService(cnpj.NewClient(cfg.CNPJ.BaseURL, cfg.CNPJ.Timeout), logger),
	}
}

// Actor 当前操作人，来自 JWT
type Actor struct {
	ID   string
	Name string
	Role string
}

func (a Actor) IsAdmin() bool {
	return a.Role == entity.RoleAdmin
}

// TxRunner 事务边界
type TxRunner interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// NumberGenerator 单据编号
type NumberGenerator interface {
	Peek(ctx context.Context, series numbering.Series) (string, error)
	Reserve(ctx context.Context, series numbering.Series) (string, error)
}

type activityRecorder interface {
	Create(ctx context.Context, log *entity.ActivityLog) error
}

// maxNumberAttempts 预留编号遇到唯一冲突时的最大尝试次数
const maxNumberAttempts = 3

// createNumbered 调用方提供编号时直接使用，冲突即报重复；
// 未提供时预留编号，冲突则换号重试。每次尝试是独立事务。
func createNumbered(ctx context.Context, gen NumberGenerator, series numbering.Series, supplied, entityName string, create func(ctx context.Context, number string) error) error {
	supplied = strings.TrimSpace(supplied)
	if supplied != "" {
		err := create(ctx, supplied)
		if repository.IsDuplicate(err) {
			return apperror.NewDuplicate(entityName, "number", supplied)
		}
		return err
	}

	var lastErr error
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		number, err := gen.Reserve(ctx, series)
		if err != nil {
			return apperror.NewInternal(err)
		}
		lastErr = create(ctx, number)
		if !repository.IsDuplicate(lastErr) {
			return lastErr
		}
	}
	return apperror.NewConflict(apperror.CodeDuplicate, "could not allocate a unique number").WithCause(lastErr)
}

// notFound 将仓库层 ErrNotFound 转为业务错误
func notFound(err error, entityName string, id any) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.NewNotFound(entityName, id)
	}
	return err
}

// optionalID 空字符串视为未关联
func optionalID(id *string) *string {
	if id == nil {
		return nil
	}
	v := strings.TrimSpace(*id)
	if v == "" {
		return nil
	}
	return &v
}

func record(ctx context.Context, logs activityRecorder, entityType, entityID, code, action, from, to, content, operator string) error {
	return logs.Create(ctx, &entity.ActivityLog{
		EntityType: entityType,
		EntityID:   entityID,
		EntityCode: code,
		Action:     action,
		FromStatus: from,
		ToStatus:   to,
		Content:    content,
		OperatorID: operator,
	})
}
