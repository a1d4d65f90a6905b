// internal/service/orchestrator/infrastructure/sagastore_memory.go
package infrastructure

import (
	"context"
	"sync"
	"time"

	"gomall/internal/service/orchestrator/domain"
)

// MemorySagaStore 是 saga 日志的内存实现，测试与本地运行用。
type MemorySagaStore struct {
	mu    sync.RWMutex
	sagas map[string]*domain.SagaInstance
}

func NewMemorySagaStore() *MemorySagaStore {
	return &MemorySagaStore{sagas: make(map[string]*domain.SagaInstance)}
}

func (s *MemorySagaStore) Save(ctx context.Context, saga *domain.SagaInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sagas[saga.ID] = cloneSaga(saga)
	return nil
}

func (s *MemorySagaStore) FindByID(ctx context.Context, id string) (*domain.SagaInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	saga, ok := s.sagas[id]
	if !ok {
		return nil, domain.ErrSagaNotFound
	}
	return cloneSaga(saga), nil
}

func (s *MemorySagaStore) FindStalled(ctx context.Context, olderThan time.Time) ([]*domain.SagaInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*domain.SagaInstance
	for _, saga := range s.sagas {
		if saga.IsTerminal() {
			continue
		}
		if saga.UpdatedAt.Before(olderThan) {
			result = append(result, cloneSaga(saga))
		}
	}
	return result, nil
}

func cloneSaga(saga *domain.SagaInstance) *domain.SagaInstance {
	copied := *saga
	copied.Steps = make([]domain.Step, len(saga.Steps))
	copy(copied.Steps, saga.Steps)
	copied.Items = make([]domain.ReservationIntent, len(saga.Items))
	copy(copied.Items, saga.Items)
	return &copied
}
