package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/bitfantasy/procura/internal/numbering"
	"github.com/bitfantasy/procura/internal/procurement/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SequenceRepository 单据编号计数器
// 同时实现 numbering.LastNumberReader 与 numbering.Counter
type SequenceRepository struct {
	db *gorm.DB
}

func NewSequenceRepository(db *gorm.DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

// LastNumber 读取序列最后一个已存储编号
func (r *SequenceRepository) LastNumber(ctx context.Context, series numbering.Series) (string, error) {
	var numbers []string
	q := conn(ctx, r.db)

	switch series {
	// 按创建时间取最新一条，编号位数增长后字符串排序不可靠
	case numbering.SeriesPurchaseRequest:
		q = q.Model(&entity.PurchaseRequest{}).Order("created_at DESC")
	case numbering.SeriesPurchase, numbering.SeriesPedido:
		q = q.Model(&entity.Purchase{}).Order("created_at DESC")
	default:
		return "", fmt.Errorf("unknown series %q", series)
	}

	if err := q.Limit(1).Pluck("number", &numbers).Error; err != nil {
		return "", err
	}
	if len(numbers) == 0 {
		return "", nil
	}
	return numbers[0], nil
}

// Increment 原子递增计数器行；首次使用时以 floor+1 初始化
func (r *SequenceRepository) Increment(ctx context.Context, series numbering.Series, floor int64) (int64, error) {
	seq := entity.DocumentSequence{Series: string(series), CurrentVal: floor + 1}
	err := conn(ctx, r.db).
		Clauses(
			clause.OnConflict{
				Columns: []clause.Column{{Name: "series"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"current_val": gorm.Expr("GREATEST(document_sequences.current_val + 1, EXCLUDED.current_val)"),
					"updated_at":  gorm.Expr("NOW()"),
				}),
			},
			clause.Returning{Columns: []clause.Column{{Name: "current_val"}}},
		).
		Create(&seq).Error
	if err != nil {
		return 0, err
	}
	if seq.CurrentVal <= floor {
		return 0, errors.New("counter did not advance")
	}
	return seq.CurrentVal, nil
}
