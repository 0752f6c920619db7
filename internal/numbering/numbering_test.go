package numbering

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextPurchaseRequestNumber(t *testing.T) {
	cases := []struct {
		last string
		want string
	}{
		{"", "REQ-00001"},
		{"REQ-00001", "REQ-00002"},
		{"REQ-00099", "REQ-00100"},
		{"REQ-99999", "REQ-100000"},
		{"REQ-abc", "REQ-00001"},
		{"REQ-", "REQ-00001"},
		{"00042", "REQ-00001"},
		{"req-00005", "REQ-00001"},
	}
	for _, tc := range cases {
		t.Run(tc.last, func(t *testing.T) {
			assert.Equal(t, tc.want, NextPurchaseRequestNumber(tc.last))
		})
	}
}

func TestNextPurchaseNumber(t *testing.T) {
	assert.Equal(t, "00001", NextPurchaseNumber(""))
	assert.Equal(t, "00002", NextPurchaseNumber("00001"))
	assert.Equal(t, "00010", NextPurchaseNumber("9"))
	assert.Equal(t, "00001", NextPurchaseNumber("abc"))
}

func TestNextPedidoNumber(t *testing.T) {
	assert.Equal(t, 1, NextPedidoNumber(""))
	assert.Equal(t, 8, NextPedidoNumber("7"))
	assert.Equal(t, 43, NextPedidoNumber("00042"))
}

func TestNext_Dispatch(t *testing.T) {
	assert.Equal(t, "REQ-00003", Next(SeriesPurchaseRequest, "REQ-00002"))
	assert.Equal(t, "00003", Next(SeriesPurchase, "00002"))
	assert.Equal(t, "3", Next(SeriesPedido, "2"))
}

type stubReader struct {
	last map[Series]string
	err  error
}

func (r *stubReader) LastNumber(_ context.Context, series Series) (string, error) {
	return r.last[series], r.err
}

func TestGenerator_PeekEmptySeries(t *testing.T) {
	g := NewGenerator(&stubReader{last: map[Series]string{}}, NewMemoryCounter())
	ctx := context.Background()

	n, err := g.Peek(ctx, SeriesPurchaseRequest)
	require.NoError(t, err)
	assert.Equal(t, "REQ-00001", n)

	n, err = g.Peek(ctx, SeriesPurchase)
	require.NoError(t, err)
	assert.Equal(t, "00001", n)

	n, err = g.Peek(ctx, SeriesPedido)
	require.NoError(t, err)
	assert.Equal(t, "1", n)
}

func TestGenerator_PeekUnknownSeries(t *testing.T) {
	g := NewGenerator(&stubReader{}, NewMemoryCounter())
	_, err := g.Peek(context.Background(), Series("invoice"))
	assert.Error(t, err)
}

func TestGenerator_PeekReaderError(t *testing.T) {
	g := NewGenerator(&stubReader{err: errors.New("db down")}, NewMemoryCounter())
	_, err := g.Peek(context.Background(), SeriesPurchase)
	assert.ErrorContains(t, err, "db down")
}

func TestGenerator_ReserveSeedsFromStoredNumber(t *testing.T) {
	reader := &stubReader{last: map[Series]string{SeriesPurchaseRequest: "REQ-00041"}}
	g := NewGenerator(reader, NewMemoryCounter())
	ctx := context.Background()

	first, err := g.Reserve(ctx, SeriesPurchaseRequest)
	require.NoError(t, err)
	assert.Equal(t, "REQ-00042", first)

	// 存储表尚未写入时，计数器继续前进而不是重复
	second, err := g.Reserve(ctx, SeriesPurchaseRequest)
	require.NoError(t, err)
	assert.Equal(t, "REQ-00043", second)
}

func TestGenerator_ReserveConcurrentUnique(t *testing.T) {
	g := NewGenerator(&stubReader{last: map[Series]string{}}, NewMemoryCounter())
	ctx := context.Background()

	const workers = 50
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[string]bool)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := g.Reserve(ctx, SeriesPurchase)
			assert.NoError(t, err)
			mu.Lock()
			seen[n] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, workers)
	assert.True(t, seen["00001"])
	assert.True(t, seen["00050"])
}

func TestGenerator_ReservePedidoUnsupported(t *testing.T) {
	g := NewGenerator(&stubReader{}, NewMemoryCounter())
	_, err := g.Reserve(context.Background(), SeriesPedido)
	assert.Error(t, err)
}
