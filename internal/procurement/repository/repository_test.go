package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bitfantasy/procura/internal/numbering"
	"github.com/bitfantasy/procura/internal/procurement/entity"
	"github.com/bitfantasy/procura/internal/testutil"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestTranslate(t *testing.T) {
	assert.Nil(t, translate(nil))
	assert.ErrorIs(t, translate(gorm.ErrRecordNotFound), ErrNotFound)
	assert.True(t, IsDuplicate(translate(gorm.ErrDuplicatedKey)))

	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "idx_purchases_number"}
	err := translate(pgErr)
	assert.True(t, IsDuplicate(err))
	assert.Contains(t, err.Error(), "idx_purchases_number")

	other := errors.New("connection reset")
	assert.Equal(t, other, translate(other))
}

func TestSequenceRepository_Increment(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewSequenceRepository(db)
	ctx := context.Background()

	n, err := repo.Increment(ctx, numbering.SeriesPurchase, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.Increment(ctx, numbering.SeriesPurchase, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// floor 高于计数器时跳到 floor+1
	n, err = repo.Increment(ctx, numbering.SeriesPurchase, 40)
	require.NoError(t, err)
	assert.Equal(t, int64(41), n)

	// 不同序列互不影响
	n, err = repo.Increment(ctx, numbering.SeriesPurchaseRequest, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSequenceRepository_ConcurrentReserve(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewSequenceRepository(db)
	gen := numbering.NewGenerator(repo, repo)

	const workers = 10
	var (
		mu   sync.Mutex
		seen = make(map[string]bool)
		wg   sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			number, err := gen.Reserve(context.Background(), numbering.SeriesPurchaseRequest)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			seen[number] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers)
	assert.True(t, seen["REQ-00001"])
	assert.True(t, seen["REQ-00010"])
}

func TestSequenceRepository_LastNumber(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewSequenceRepository(db)
	ctx := context.Background()

	last, err := repo.LastNumber(ctx, numbering.SeriesPurchaseRequest)
	require.NoError(t, err)
	assert.Equal(t, "", last)

	testutil.SeedUser(t, db, "u-1", "Ana", "ana@empresa.com.br", entity.RoleAdmin)
	for _, number := range []string{"REQ-00003", "REQ-00012"} {
		pr := &entity.PurchaseRequest{ID: newID(), Number: number, Title: "Material", RequestDate: time.Now(), CreatedByID: "u-1"}
		require.NoError(t, db.Create(pr).Error)
	}

	last, err = repo.LastNumber(ctx, numbering.SeriesPurchaseRequest)
	require.NoError(t, err)
	assert.Equal(t, "REQ-00012", last)

	// 超过五位后仍取最新创建的编号
	for _, number := range []string{"REQ-99999", "REQ-100000"} {
		pr := &entity.PurchaseRequest{ID: newID(), Number: number, Title: "Material", RequestDate: time.Now(), CreatedByID: "u-1"}
		require.NoError(t, db.Create(pr).Error)
	}
	last, err = repo.LastNumber(ctx, numbering.SeriesPurchaseRequest)
	require.NoError(t, err)
	assert.Equal(t, "REQ-100000", last)

	gen := numbering.NewGenerator(repo, repo)
	next, err := gen.Peek(ctx, numbering.SeriesPurchaseRequest)
	require.NoError(t, err)
	assert.Equal(t, "REQ-100001", next)

	_, err = repo.LastNumber(ctx, numbering.Series("nota"))
	assert.Error(t, err)
}

func TestPurchaseRequestRepository_DecideOnlyOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewPurchaseRequestRepository(db)
	ctx := context.Background()

	testutil.SeedUser(t, db, "u-1", "Ana", "ana@empresa.com.br", entity.RoleAdmin)
	pr := &entity.PurchaseRequest{Number: "REQ-00001", Title: "Material", RequestDate: time.Now(), CreatedByID: "u-1", Status: entity.RequestStatusPending}
	require.NoError(t, repo.Create(ctx, pr))

	locked, err := repo.FindByIDForUpdate(ctx, pr.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusPending, locked.Status)

	approver := "u-1"
	now := time.Now()
	approve := *locked
	approve.Status = entity.RequestStatusApproved
	approve.ApprovedByID = &approver
	approve.ApprovalDate = &now
	ok, err := repo.Decide(ctx, &approve)
	require.NoError(t, err)
	assert.True(t, ok)

	// 基于旧的 PENDING 快照再次决定不生效
	reject := *locked
	reject.Status = entity.RequestStatusRejected
	reject.RejectionReason = "late"
	ok, err = repo.Decide(ctx, &reject)
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := repo.FindByID(ctx, pr.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusApproved, stored.Status)
	assert.Empty(t, stored.RejectionReason)

	_, err = repo.FindByIDForUpdate(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
