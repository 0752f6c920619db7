package numbering

import (
	"context"
	"fmt"
	"sync"
)

// LastNumberReader 读取某序列最近一次存储的编号，空序列返回 ""
type LastNumberReader interface {
	LastNumber(ctx context.Context, series Series) (string, error)
}

// Counter 原子计数器
// floor 为当前已存储的最大数值，返回值保证大于 floor 且大于上一次分配的值
type Counter interface {
	Increment(ctx context.Context, series Series, floor int64) (int64, error)
}

// Generator 单据编号生成器
//
// Peek 只读地计算"下一个编号"，并发调用可能得到相同结果，仅用于表单预填；
// Reserve 通过计数器行原子分配，保证同一序列内不重复。
type Generator struct {
	reader  LastNumberReader
	counter Counter
}

func NewGenerator(reader LastNumberReader, counter Counter) *Generator {
	return &Generator{reader: reader, counter: counter}
}

// Peek 读取最后一个编号并加一
func (g *Generator) Peek(ctx context.Context, series Series) (string, error) {
	if !series.Valid() {
		return "", fmt.Errorf("unknown series %q", series)
	}
	last, err := g.reader.LastNumber(ctx, series)
	if err != nil {
		return "", fmt.Errorf("read last %s number: %w", series, err)
	}
	return Next(series, last), nil
}

// Reserve 原子分配下一个编号
func (g *Generator) Reserve(ctx context.Context, series Series) (string, error) {
	if series != SeriesPurchaseRequest && series != SeriesPurchase {
		return "", fmt.Errorf("series %q does not support reservation", series)
	}
	last, err := g.reader.LastNumber(ctx, series)
	if err != nil {
		return "", fmt.Errorf("read last %s number: %w", series, err)
	}
	floor, _ := Parse(series, last)

	n, err := g.counter.Increment(ctx, series, floor)
	if err != nil {
		return "", fmt.Errorf("increment %s counter: %w", series, err)
	}
	return Format(series, n), nil
}

// MemoryCounter 进程内计数器，用于测试和无数据库场景
type MemoryCounter struct {
	mu     sync.Mutex
	values map[Series]int64
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{values: make(map[Series]int64)}
}

func (c *MemoryCounter) Increment(_ context.Context, series Series, floor int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.values[series] + 1
	if next <= floor {
		next = floor + 1
	}
	c.values[series] = next
	return next, nil
}
