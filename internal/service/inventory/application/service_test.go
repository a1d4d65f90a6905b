// internal/service/inventory/application/service_test.go
package application

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"gomall/internal/service/inventory/domain"
	"gomall/internal/service/inventory/infrastructure"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

func newService(t *testing.T, available int64) (*InventoryService, *infrastructure.MemoryRepository) {
	t.Helper()
	repo := infrastructure.NewMemoryRepository()
	svc := NewInventoryService(repo, nil, noop.NewTracerProvider().Tracer("test"))
	_, err := svc.Create(context.Background(), "sku-1", "WH-1", available, 0)
	require.NoError(t, err)
	return svc, repo
}

func TestServiceReserveIdempotent(t *testing.T) {
	svc, _ := newService(t, 10)
	ctx := context.Background()

	inv, err := svc.Reserve(ctx, "sku-1", "WH-1", 4, "order-1", "op")
	require.NoError(t, err)
	assert.Equal(t, int64(6), inv.Available)

	// 同一 referenceID 重放，账面不再变化
	inv, err = svc.Reserve(ctx, "sku-1", "WH-1", 4, "order-1", "op")
	require.NoError(t, err)
	assert.Equal(t, int64(6), inv.Available)
	assert.Equal(t, int64(4), inv.Reserved)
}

func TestServiceReserveReleaseRoundTrip(t *testing.T) {
	svc, _ := newService(t, 10)
	ctx := context.Background()

	_, err := svc.Reserve(ctx, "sku-1", "WH-1", 4, "order-1", "op")
	require.NoError(t, err)
	inv, err := svc.Release(ctx, "sku-1", "WH-1", 4, "order-1", "op")
	require.NoError(t, err)

	assert.Equal(t, int64(10), inv.Available)
	assert.Equal(t, int64(0), inv.Reserved)
	assert.Equal(t, int64(10), inv.Total)
}

// TestNoOversellUnderConcurrency 并发预占总量超过可用库存时，
// 成功的预占之和不得超过初始可用量。
func TestNoOversellUnderConcurrency(t *testing.T) {
	const (
		initial    = 100
		workers    = 20
		perReserve = 15
	)
	svc, _ := newService(t, initial)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var succeeded int64

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ref := fmt.Sprintf("order-%d", i)
			if _, err := svc.Reserve(context.Background(), "sku-1", "WH-1", perReserve, ref, "op"); err == nil {
				mu.Lock()
				succeeded += perReserve
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, succeeded, int64(initial))

	inv, err := svc.Get(context.Background(), "sku-1", "WH-1")
	require.NoError(t, err)
	require.NoError(t, inv.ValidateConsistency())
	assert.Equal(t, succeeded, inv.Reserved)
	assert.Equal(t, int64(initial)-succeeded, inv.Available)
}

// conflictingRepo 先制造 n 次版本冲突再放行，验证重试路径。
type conflictingRepo struct {
	domain.Repository
	mu        sync.Mutex
	conflicts int
}

func (r *conflictingRepo) Save(ctx context.Context, inv *domain.Inventory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conflicts > 0 {
		r.conflicts--
		return domain.ErrVersionConflict
	}
	return r.Repository.Save(ctx, inv)
}

func TestConflictRetriedThenSucceeds(t *testing.T) {
	base := infrastructure.NewMemoryRepository()
	repo := &conflictingRepo{Repository: base, conflicts: 2}
	svc := NewInventoryService(repo, nil, noop.NewTracerProvider().Tracer("test"))
	_, err := svc.Create(context.Background(), "sku-1", "WH-1", 10, 0)
	require.NoError(t, err)

	inv, err := svc.Reserve(context.Background(), "sku-1", "WH-1", 3, "order-1", "op")
	require.NoError(t, err)
	assert.Equal(t, int64(7), inv.Available)
}

func TestConflictRetriesExhausted(t *testing.T) {
	base := infrastructure.NewMemoryRepository()
	repo := &conflictingRepo{Repository: base, conflicts: maxConflictRetries + 10}
	svc := NewInventoryService(repo, nil, noop.NewTracerProvider().Tracer("test"))
	_, err := svc.Create(context.Background(), "sku-1", "WH-1", 10, 0)
	require.NoError(t, err)

	_, err = svc.Reserve(context.Background(), "sku-1", "WH-1", 3, "order-1", "op")
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "sku-1", conflict.SkuID)
}

// recordingCache 记录缓存交互，验证写后失效。
type recordingCache struct {
	mu          sync.Mutex
	snapshots   map[string]*domain.Inventory
	invalidated []string
}

func newRecordingCache() *recordingCache {
	return &recordingCache{snapshots: make(map[string]*domain.Inventory)}
}

func (c *recordingCache) Get(ctx context.Context, skuID, warehouseID string) (*domain.Inventory, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	inv, ok := c.snapshots[skuID+"/"+warehouseID]
	return inv, ok
}

func (c *recordingCache) Put(ctx context.Context, inv *domain.Inventory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots[inv.SkuID+"/"+inv.WarehouseID] = inv
}

func (c *recordingCache) Invalidate(ctx context.Context, skuID, warehouseID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := skuID + "/" + warehouseID
	delete(c.snapshots, key)
	c.invalidated = append(c.invalidated, key)
}

func TestWriteInvalidatesSnapshotCache(t *testing.T) {
	repo := infrastructure.NewMemoryRepository()
	cache := newRecordingCache()
	svc := NewInventoryService(repo, cache, noop.NewTracerProvider().Tracer("test"))
	ctx := context.Background()

	_, err := svc.Create(ctx, "sku-1", "WH-1", 10, 0)
	require.NoError(t, err)

	// 读一次填充缓存
	_, err = svc.Get(ctx, "sku-1", "WH-1")
	require.NoError(t, err)
	_, ok := cache.Get(ctx, "sku-1", "WH-1")
	require.True(t, ok)

	_, err = svc.Reserve(ctx, "sku-1", "WH-1", 1, "order-1", "op")
	require.NoError(t, err)

	assert.Contains(t, cache.invalidated, "sku-1/WH-1")
	_, ok = cache.Get(ctx, "sku-1", "WH-1")
	assert.False(t, ok)
}
