package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bitfantasy/procura/internal/apperror"
	"github.com/bitfantasy/procura/internal/numbering"
	"github.com/bitfantasy/procura/internal/procurement/entity"
	"github.com/bitfantasy/procura/internal/procurement/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------- fakes ----------

type fakeTx struct{ calls int }

func (f *fakeTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

type fakeRequestStore struct {
	mu        sync.Mutex
	seq       int
	byID      map[string]entity.PurchaseRequest
	purchases map[string]int64
	lastQuery map[string]string
	// snapshot 非空时 FindByIDForUpdate 返回该快照，模拟并发请求先读到的旧状态
	snapshot *entity.PurchaseRequest
}

func newFakeRequestStore() *fakeRequestStore {
	return &fakeRequestStore{byID: map[string]entity.PurchaseRequest{}, purchases: map[string]int64{}}
}

func (f *fakeRequestStore) FindAll(_ context.Context, _, _ int, filters map[string]string) ([]entity.PurchaseRequest, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = filters
	var out []entity.PurchaseRequest
	for _, pr := range f.byID {
		if v := filters["created_by_id"]; v != "" && pr.CreatedByID != v {
			continue
		}
		if v := filters["status"]; v != "" && pr.Status != v {
			continue
		}
		out = append(out, pr)
	}
	return out, int64(len(out)), nil
}

func (f *fakeRequestStore) FindByID(_ context.Context, id string) (*entity.PurchaseRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pr, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &pr, nil
}

func (f *fakeRequestStore) FindByIDForUpdate(ctx context.Context, id string) (*entity.PurchaseRequest, error) {
	f.mu.Lock()
	if f.snapshot != nil && f.snapshot.ID == id {
		cp := *f.snapshot
		f.mu.Unlock()
		return &cp, nil
	}
	f.mu.Unlock()
	return f.FindByID(ctx, id)
}

func (f *fakeRequestStore) Decide(_ context.Context, pr *entity.PurchaseRequest) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.byID[pr.ID]
	if !ok || existing.Status != entity.RequestStatusPending {
		return false, nil
	}
	existing.Status = pr.Status
	existing.ApprovedByID = pr.ApprovedByID
	existing.ApprovalDate = pr.ApprovalDate
	existing.RejectionReason = pr.RejectionReason
	existing.Comments = pr.Comments
	f.byID[pr.ID] = existing
	return true, nil
}

func (f *fakeRequestStore) Create(_ context.Context, pr *entity.PurchaseRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Number == pr.Number {
			return fmt.Errorf("%w: purchase_requests_number_key", repository.ErrDuplicate)
		}
	}
	f.seq++
	pr.ID = fmt.Sprintf("pr-%d", f.seq)
	f.byID[pr.ID] = *pr
	return nil
}

func (f *fakeRequestStore) Update(_ context.Context, pr *entity.PurchaseRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing := f.byID[pr.ID]
	cp := *pr
	cp.Items = existing.Items
	f.byID[pr.ID] = cp
	return nil
}

func (f *fakeRequestStore) ReplaceItems(_ context.Context, prID string, items []entity.PurchaseRequestItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	pr := f.byID[prID]
	pr.Items = items
	f.byID[prID] = pr
	return nil
}

func (f *fakeRequestStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeRequestStore) CountPurchases(_ context.Context, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.purchases[id], nil
}

type fakePurchaseCreator struct {
	created []*entity.Purchase
}

func (f *fakePurchaseCreator) Create(_ context.Context, p *entity.Purchase) error {
	p.ID = fmt.Sprintf("p-%d", len(f.created)+1)
	f.created = append(f.created, p)
	return nil
}

type fakeLogs struct {
	entries []entity.ActivityLog
}

func (f *fakeLogs) Create(_ context.Context, l *entity.ActivityLog) error {
	f.entries = append(f.entries, *l)
	return nil
}

func (f *fakeLogs) FindByEntity(_ context.Context, entityType, entityID string) ([]entity.ActivityLog, error) {
	var out []entity.ActivityLog
	for i := len(f.entries) - 1; i >= 0; i-- {
		if l := f.entries[i]; l.EntityType == entityType && l.EntityID == entityID {
			out = append(out, l)
		}
	}
	return out, nil
}

type emptyReader struct{}

func (emptyReader) LastNumber(context.Context, numbering.Series) (string, error) { return "", nil }

// ---------- helpers ----------

var (
	admin     = Actor{ID: "u-admin", Name: "Ana", Role: entity.RoleAdmin}
	buyer     = Actor{ID: "u-buyer", Name: "Bruno", Role: entity.RoleComprador}
	otherUser = Actor{ID: "u-other", Name: "Carla", Role: entity.RoleComprador}
	stockist  = Actor{ID: "u-stock", Name: "Davi", Role: entity.RoleEstoquista}
)

type requestFixture struct {
	svc       *RequestService
	store     *fakeRequestStore
	purchases *fakePurchaseCreator
	logs      *fakeLogs
}

func newRequestFixture() *requestFixture {
	store := newFakeRequestStore()
	purchases := &fakePurchaseCreator{}
	logs := &fakeLogs{}
	gen := numbering.NewGenerator(emptyReader{}, numbering.NewMemoryCounter())
	svc := NewRequestService(store, purchases, logs, &fakeTx{}, gen, nil)
	svc.now = func() time.Time { return time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC) }
	return &requestFixture{svc: svc, store: store, purchases: purchases, logs: logs}
}

func officeChairs() *SaveRequestInput {
	return &SaveRequestInput{
		Number: "REQ-00001",
		Title:  "Office chairs",
		Items: []RequestItemInput{{
			Description:    "Chair",
			Quantity:       decimal.NewFromInt(5),
			Unit:           "un",
			EstimatedPrice: decimal.NewNullDecimal(decimal.NewFromInt(200)),
		}},
	}
}

func (fx *requestFixture) create(t *testing.T, actor Actor, in *SaveRequestInput) *entity.PurchaseRequest {
	t.Helper()
	pr, err := fx.svc.Create(context.Background(), actor, in)
	require.NoError(t, err)
	return pr
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
}

// ---------- tests ----------

func TestCreate_Defaults(t *testing.T) {
	fx := newRequestFixture()
	pr := fx.create(t, buyer, officeChairs())

	assert.Equal(t, "REQ-00001", pr.Number)
	assert.Equal(t, entity.RequestStatusPending, pr.Status)
	assert.Equal(t, entity.PriorityMedium, pr.Priority)
	assert.Equal(t, buyer.ID, pr.CreatedByID)
	assert.Equal(t, fx.svc.now(), pr.RequestDate)
	require.Len(t, pr.Items, 1)
	assert.Equal(t, entity.UrgencyNormal, pr.Items[0].Urgency)

	require.Len(t, fx.logs.entries, 1)
	assert.Equal(t, entity.ActionCreate, fx.logs.entries[0].Action)
}

func TestCreate_RequiresTitle(t *testing.T) {
	fx := newRequestFixture()
	in := officeChairs()
	in.Title = "   "

	_, err := fx.svc.Create(context.Background(), buyer, in)
	assert.True(t, apperror.IsValidation(err))
	assert.Empty(t, fx.store.byID)
}

func TestCreate_RejectsInvalidItem(t *testing.T) {
	fx := newRequestFixture()
	in := officeChairs()
	in.Items[0].Quantity = decimal.Zero

	_, err := fx.svc.Create(context.Background(), buyer, in)
	assert.True(t, apperror.IsValidation(err))
}

func TestCreate_SuppliedDuplicateNumber(t *testing.T) {
	fx := newRequestFixture()
	fx.create(t, buyer, officeChairs())

	_, err := fx.svc.Create(context.Background(), buyer, officeChairs())
	assert.True(t, apperror.IsDuplicate(err))
	assert.Len(t, fx.store.byID, 1)
}

func TestCreate_ReservesNumberAndRetriesOnCollision(t *testing.T) {
	fx := newRequestFixture()
	// REQ-00001 exists but the counter starts empty, so the first reservation collides.
	fx.create(t, buyer, officeChairs())

	in := officeChairs()
	in.Number = ""
	pr := fx.create(t, buyer, in)
	assert.Equal(t, "REQ-00002", pr.Number)
}

func TestApprove_OfficeChairsScenario(t *testing.T) {
	fx := newRequestFixture()
	pr := fx.create(t, buyer, officeChairs())

	approved, err := fx.svc.Approve(context.Background(), admin, pr.ID, "ok")
	require.NoError(t, err)

	assert.Equal(t, entity.RequestStatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedByID)
	assert.Equal(t, admin.ID, *approved.ApprovedByID)
	require.NotNil(t, approved.ApprovalDate)
	assert.Equal(t, "\n\nNotas de aprovação: ok", approved.Comments)

	stored := fx.store.byID[pr.ID]
	assert.Equal(t, entity.RequestStatusApproved, stored.Status)

	last := fx.logs.entries[len(fx.logs.entries)-1]
	assert.Equal(t, entity.ActionApprove, last.Action)
	assert.Equal(t, entity.RequestStatusPending, last.FromStatus)
	assert.Equal(t, entity.RequestStatusApproved, last.ToStatus)
}

func TestApprove_KeepsPriorCommentsAndSkipsEmptyNotes(t *testing.T) {
	fx := newRequestFixture()
	in := officeChairs()
	in.Comments = "urgente"
	pr := fx.create(t, buyer, in)

	approved, err := fx.svc.Approve(context.Background(), admin, pr.ID, "  ")
	require.NoError(t, err)
	assert.Equal(t, "urgente", approved.Comments)
}

func TestApprove_SecondAttemptConflicts(t *testing.T) {
	fx := newRequestFixture()
	pr := fx.create(t, buyer, officeChairs())

	_, err := fx.svc.Approve(context.Background(), admin, pr.ID, "")
	require.NoError(t, err)

	_, err = fx.svc.Approve(context.Background(), admin, pr.ID, "again")
	assert.True(t, apperror.IsConflict(err))
	assertCode(t, err, apperror.CodeAlreadyProcessed)

	_, err = fx.svc.Reject(context.Background(), admin, pr.ID, "late")
	assertCode(t, err, apperror.CodeAlreadyProcessed)
	assert.Equal(t, entity.RequestStatusApproved, fx.store.byID[pr.ID].Status)
}

func TestDecide_ConcurrentDecisionLosesWithConflict(t *testing.T) {
	fx := newRequestFixture()
	pr := fx.create(t, buyer, officeChairs())

	// 第二个管理员在第一次审批提交前已读到 PENDING
	stale := fx.store.byID[pr.ID]
	fx.store.snapshot = &stale

	_, err := fx.svc.Approve(context.Background(), admin, pr.ID, "ok")
	require.NoError(t, err)

	_, err = fx.svc.Reject(context.Background(), admin, pr.ID, "too expensive")
	require.Error(t, err)
	assertCode(t, err, apperror.CodeAlreadyProcessed)

	final := fx.store.byID[pr.ID]
	assert.Equal(t, entity.RequestStatusApproved, final.Status)
	assert.Empty(t, final.RejectionReason)
	decisions := 0
	for _, l := range fx.logs.entries {
		if l.Action == entity.ActionApprove || l.Action == entity.ActionReject {
			decisions++
		}
	}
	assert.Equal(t, 1, decisions)
}

func TestActivities(t *testing.T) {
	fx := newRequestFixture()
	pr := fx.create(t, buyer, officeChairs())
	other := fx.create(t, otherUser, &SaveRequestInput{Title: "Papel"})

	_, err := fx.svc.Approve(context.Background(), admin, pr.ID, "ok")
	require.NoError(t, err)

	logs, err := fx.svc.Activities(context.Background(), buyer, pr.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, entity.ActionApprove, logs[0].Action)
	assert.Equal(t, entity.RequestStatusPending, logs[0].FromStatus)
	assert.Equal(t, entity.RequestStatusApproved, logs[0].ToStatus)
	assert.Equal(t, admin.ID, logs[0].OperatorID)
	assert.Equal(t, entity.ActionCreate, logs[1].Action)

	_, err = fx.svc.Activities(context.Background(), buyer, other.ID)
	assert.True(t, apperror.IsForbidden(err))

	logs, err = fx.svc.Activities(context.Background(), admin, other.ID)
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	_, err = fx.svc.Activities(context.Background(), admin, "missing")
	assert.True(t, apperror.IsNotFound(err))
}

func TestApproveReject_NonAdminAlwaysForbidden(t *testing.T) {
	fx := newRequestFixture()
	pr := fx.create(t, buyer, officeChairs())

	for _, actor := range []Actor{buyer, stockist} {
		_, err := fx.svc.Approve(context.Background(), actor, pr.ID, "")
		assert.True(t, apperror.IsForbidden(err))
		_, err = fx.svc.Reject(context.Background(), actor, pr.ID, "no")
		assert.True(t, apperror.IsForbidden(err))
		_, err = fx.svc.Approve(context.Background(), actor, "missing", "")
		assert.True(t, apperror.IsForbidden(err))
	}
	assert.Equal(t, entity.RequestStatusPending, fx.store.byID[pr.ID].Status)
}

func TestApprove_NotFound(t *testing.T) {
	fx := newRequestFixture()
	_, err := fx.svc.Approve(context.Background(), admin, "missing", "")
	assert.True(t, apperror.IsNotFound(err))
}

func TestReject(t *testing.T) {
	fx := newRequestFixture()
	in := officeChairs()
	in.Comments = "first"
	pr := fx.create(t, buyer, in)

	_, err := fx.svc.Reject(context.Background(), admin, pr.ID, "  ")
	assert.True(t, apperror.IsValidation(err))

	rejected, err := fx.svc.Reject(context.Background(), admin, pr.ID, "too expensive")
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusRejected, rejected.Status)
	assert.Equal(t, "too expensive", rejected.RejectionReason)
	assert.Equal(t, "first\n\nMotivo da rejeição: too expensive", rejected.Comments)
	require.NotNil(t, rejected.ApprovedByID)
	assert.Equal(t, admin.ID, *rejected.ApprovedByID)
}

func TestGet_OwnerOrAdmin(t *testing.T) {
	fx := newRequestFixture()
	pr := fx.create(t, buyer, officeChairs())

	_, err := fx.svc.Get(context.Background(), buyer, pr.ID)
	assert.NoError(t, err)
	_, err = fx.svc.Get(context.Background(), admin, pr.ID)
	assert.NoError(t, err)
	_, err = fx.svc.Get(context.Background(), otherUser, pr.ID)
	assert.True(t, apperror.IsForbidden(err))
}

func TestList_NonAdminSeesOwnOnly(t *testing.T) {
	fx := newRequestFixture()
	fx.create(t, buyer, officeChairs())
	in := officeChairs()
	in.Number = "REQ-00002"
	fx.create(t, otherUser, in)

	items, total, err := fx.svc.List(context.Background(), buyer, RequestFilter{UserID: otherUser.ID}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, buyer.ID, items[0].CreatedByID)
	assert.Equal(t, buyer.ID, fx.store.lastQuery["created_by_id"])

	_, total, err = fx.svc.List(context.Background(), admin, RequestFilter{}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestUpdate_Permissions(t *testing.T) {
	fx := newRequestFixture()
	pr := fx.create(t, buyer, officeChairs())

	edit := officeChairs()
	edit.Title = "Cadeiras"

	_, err := fx.svc.Update(context.Background(), otherUser, pr.ID, edit)
	assert.True(t, apperror.IsForbidden(err))

	_, err = fx.svc.Approve(context.Background(), admin, pr.ID, "")
	require.NoError(t, err)

	_, err = fx.svc.Update(context.Background(), buyer, pr.ID, edit)
	assert.True(t, apperror.IsForbidden(err))

	updated, err := fx.svc.Update(context.Background(), admin, pr.ID, edit)
	require.NoError(t, err)
	assert.Equal(t, "Cadeiras", updated.Title)
	assert.Equal(t, entity.RequestStatusApproved, updated.Status)
}

func TestUpdate_ItemsReplacedOnlyWhenSupplied(t *testing.T) {
	fx := newRequestFixture()
	pr := fx.create(t, buyer, officeChairs())

	edit := officeChairs()
	edit.Items = nil
	updated, err := fx.svc.Update(context.Background(), buyer, pr.ID, edit)
	require.NoError(t, err)
	assert.Len(t, updated.Items, 1)

	edit.Items = []RequestItemInput{
		{Description: "Mesa", Quantity: decimal.NewFromInt(1), Urgency: entity.UrgencyHigh},
		{Description: "Lâmpada", Quantity: decimal.NewFromInt(10)},
	}
	updated, err = fx.svc.Update(context.Background(), buyer, pr.ID, edit)
	require.NoError(t, err)
	require.Len(t, updated.Items, 2)
	assert.Equal(t, "Mesa", updated.Items[0].Description)
	assert.Equal(t, entity.UrgencyNormal, updated.Items[1].Urgency)

	edit.Items = []RequestItemInput{}
	updated, err = fx.svc.Update(context.Background(), buyer, pr.ID, edit)
	require.NoError(t, err)
	assert.Empty(t, updated.Items)
}

func TestDelete_Rules(t *testing.T) {
	fx := newRequestFixture()
	pr := fx.create(t, buyer, officeChairs())

	assert.True(t, apperror.IsForbidden(fx.svc.Delete(context.Background(), otherUser, pr.ID)))

	fx.store.purchases[pr.ID] = 1
	err := fx.svc.Delete(context.Background(), admin, pr.ID)
	assertCode(t, err, apperror.CodeHasPurchases)
	fx.store.purchases[pr.ID] = 0

	_, err = fx.svc.Approve(context.Background(), admin, pr.ID, "")
	require.NoError(t, err)
	assert.True(t, apperror.IsForbidden(fx.svc.Delete(context.Background(), buyer, pr.ID)))

	require.NoError(t, fx.svc.Delete(context.Background(), admin, pr.ID))
	assert.Empty(t, fx.store.byID)
}

func TestDelete_OwnerCanDeletePending(t *testing.T) {
	fx := newRequestFixture()
	pr := fx.create(t, buyer, officeChairs())
	require.NoError(t, fx.svc.Delete(context.Background(), buyer, pr.ID))
	assert.True(t, apperror.IsNotFound(fx.svc.Delete(context.Background(), buyer, pr.ID)))
}

func TestConvertToPurchase(t *testing.T) {
	fx := newRequestFixture()
	in := officeChairs()
	in.Items = append(in.Items, RequestItemInput{Description: "Mesa", Quantity: decimal.NewFromInt(2), Unit: "un"})
	pr := fx.create(t, buyer, in)

	_, err := fx.svc.ConvertToPurchase(context.Background(), buyer, pr.ID, nil)
	assertCode(t, err, apperror.CodeBusinessRule)

	_, err = fx.svc.Approve(context.Background(), admin, pr.ID, "")
	require.NoError(t, err)

	_, err = fx.svc.ConvertToPurchase(context.Background(), stockist, pr.ID, nil)
	assert.True(t, apperror.IsForbidden(err))

	p, err := fx.svc.ConvertToPurchase(context.Background(), buyer, pr.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, "00001", p.Number)
	require.NotNil(t, p.PurchaseRequestID)
	assert.Equal(t, pr.ID, *p.PurchaseRequestID)
	require.Len(t, p.Items, 2)
	assert.True(t, p.Items[0].UnitPrice.Equal(decimal.NewFromInt(200)))
	assert.True(t, p.Items[0].Total.Equal(decimal.NewFromInt(1000)))
	assert.True(t, p.Items[1].UnitPrice.IsZero())
	assert.True(t, p.TotalValue.Equal(decimal.NewFromInt(1000)))
	assert.True(t, strings.HasPrefix(p.Observations, "REQ-00001"))

	assert.Equal(t, entity.RequestStatusApproved, fx.store.byID[pr.ID].Status)
	last := fx.logs.entries[len(fx.logs.entries)-1]
	assert.Equal(t, entity.ActionConvert, last.Action)
	assert.Equal(t, "00001", last.Content)
}

func TestNextNumber(t *testing.T) {
	fx := newRequestFixture()
	n, err := fx.svc.NextNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "REQ-00001", n)
}

func TestExport(t *testing.T) {
	fx := newRequestFixture()
	fx.create(t, buyer, officeChairs())

	f, name, err := fx.svc.Export(context.Background(), admin, RequestFilter{})
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, "requisicoes_20240315.xlsx", name)
	v, err := f.GetCellValue("Requisições", "A2")
	require.NoError(t, err)
	assert.Equal(t, "REQ-00001", v)
	v, err = f.GetCellValue("Requisições", "K2")
	require.NoError(t, err)
	assert.Equal(t, "1000", v)
}
