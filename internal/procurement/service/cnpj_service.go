package service

import (
	"context"
	"errors"

	"github.com/bitfantasy/procura/internal/apperror"
	"github.com/bitfantasy/procura/internal/shared/cnpj"
	"go.uber.org/zap"
)

type cnpjLookup interface {
	Lookup(ctx context.Context, raw string) (*cnpj.Company, error)
}

// CNPJService 企业税号查询，用于新建客户时预填
type CNPJService struct {
	client cnpjLookup
	logger *zap.Logger
}

func NewCNPJService(client cnpjLookup, logger *zap.Logger) *CNPJService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CNPJService{client: client, logger: logger}
}

func (s *CNPJService) Lookup(ctx context.Context, raw string) (*cnpj.Company, error) {
	company, err := s.client.Lookup(ctx, raw)
	if err != nil {
		if errors.Is(err, cnpj.ErrInvalidCNPJ) {
			return nil, apperror.NewFieldValidation("cnpj", "invalid CNPJ")
		}
		s.logger.Warn("cnpj lookup failed", zap.String("cnpj", raw), zap.Error(err))
		return nil, apperror.NewExternal("CNPJ", err)
	}
	return company, nil
}
