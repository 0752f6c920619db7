package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bitfantasy/procura/internal/apperror"
	"github.com/bitfantasy/procura/internal/procurement/entity"
	"github.com/bitfantasy/procura/internal/procurement/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSaleStore struct {
	byID map[string]entity.ServiceSale
	seq  int
}

func (f *fakeSaleStore) FindAll(_ context.Context, _, _ int, _ map[string]string) ([]entity.ServiceSale, int64, error) {
	var out []entity.ServiceSale
	for _, s := range f.byID {
		out = append(out, s)
	}
	return out, int64(len(out)), nil
}

func (f *fakeSaleStore) FindByID(_ context.Context, id string) (*entity.ServiceSale, error) {
	s, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (f *fakeSaleStore) Create(_ context.Context, s *entity.ServiceSale) error {
	f.seq++
	s.ID = fmt.Sprintf("s-%d", f.seq)
	f.byID[s.ID] = *s
	return nil
}

func (f *fakeSaleStore) Update(_ context.Context, s *entity.ServiceSale) error {
	existing := f.byID[s.ID]
	cp := *s
	cp.Items, cp.Installments = existing.Items, existing.Installments
	f.byID[s.ID] = cp
	return nil
}

func (f *fakeSaleStore) ReplaceChildren(_ context.Context, id string, items []entity.ServiceSaleItem, installments []entity.ServiceSaleInstallment) error {
	s := f.byID[id]
	s.Items, s.Installments = items, installments
	f.byID[id] = s
	return nil
}

func (f *fakeSaleStore) Delete(_ context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeSaleStore) ExistsByNumber(_ context.Context, number, excludeID string) (bool, error) {
	for id, s := range f.byID {
		if s.Number == number && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func sampleSale(number string, retained bool) *SaveServiceSaleInput {
	return &SaveServiceSaleInput{
		Number:       number,
		Date:         time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		TaxRetention: retained,
		TaxValue:     d("60"),
		Items: []SaleItemInput{
			{ServiceType: "Consultoria", Description: "Horas", Price: d("150"), Quantity: d("8"), Discount: d("100")},
		},
		Installments: []InstallmentInput{
			{Account: "Itaú", PaymentMethod: "Boleto", DueDate: time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC), GrossValue: d("1100")},
		},
	}
}

func newSaleFixture() (*ServiceSaleService, *fakeSaleStore) {
	store := &fakeSaleStore{byID: map[string]entity.ServiceSale{}}
	return NewServiceSaleService(store, &fakeLogs{}, &fakeTx{}, nil), store
}

func TestServiceSaleCreate_Totals(t *testing.T) {
	svc, _ := newSaleFixture()

	sale, err := svc.Create(context.Background(), buyer, sampleSale("NF-1", true))
	require.NoError(t, err)
	assert.True(t, sale.Items[0].Total.Equal(d("1100")))
	assert.True(t, sale.TotalValue.Equal(d("1100")))
	assert.True(t, sale.ReceivableValue.Equal(d("1040")))

	sale, err = svc.Create(context.Background(), buyer, sampleSale("NF-2", false))
	require.NoError(t, err)
	assert.True(t, sale.TaxValue.IsZero())
	assert.True(t, sale.ReceivableValue.Equal(d("1100")))
}

func TestServiceSaleCreate_Validation(t *testing.T) {
	svc, _ := newSaleFixture()

	in := sampleSale("", false)
	_, err := svc.Create(context.Background(), buyer, in)
	assert.True(t, apperror.IsValidation(err))

	in = sampleSale("NF-1", false)
	in.Items = nil
	_, err = svc.Create(context.Background(), buyer, in)
	assert.True(t, apperror.IsValidation(err))

	in = sampleSale("NF-1", false)
	in.Installments = nil
	_, err = svc.Create(context.Background(), buyer, in)
	assert.True(t, apperror.IsValidation(err))
}

func TestServiceSaleCreate_DuplicateNumber(t *testing.T) {
	svc, store := newSaleFixture()
	_, err := svc.Create(context.Background(), buyer, sampleSale("NF-1", false))
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), buyer, sampleSale("NF-1", false))
	assert.True(t, apperror.IsDuplicate(err))
	assert.Len(t, store.byID, 1)
}

func TestServiceSaleUpdate(t *testing.T) {
	svc, _ := newSaleFixture()
	first, err := svc.Create(context.Background(), buyer, sampleSale("NF-1", false))
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), buyer, sampleSale("NF-2", false))
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), buyer, first.ID, sampleSale("NF-2", false))
	assert.True(t, apperror.IsDuplicate(err))

	in := sampleSale("NF-1", true)
	in.Items = append(in.Items, SaleItemInput{Description: "Deslocamento", Price: d("50"), Quantity: d("2")})
	updated, err := svc.Update(context.Background(), buyer, first.ID, in)
	require.NoError(t, err)
	assert.Len(t, updated.Items, 2)
	assert.True(t, updated.TotalValue.Equal(d("1200")))
	assert.True(t, updated.ReceivableValue.Equal(d("1140")))
}

func TestServiceSaleDelete(t *testing.T) {
	svc, store := newSaleFixture()
	sale, err := svc.Create(context.Background(), buyer, sampleSale("NF-1", false))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), admin, sale.ID))
	assert.Empty(t, store.byID)
	assert.True(t, apperror.IsNotFound(svc.Delete(context.Background(), admin, sale.ID)))
}
