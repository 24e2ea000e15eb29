package ad

import (
	"context"
	"sync"
	"time"

	myErr "vape-market/internal/types/errors"

	"go.uber.org/zap"
)

// MemoryRepository хранит окно последних объявлений в памяти процесса.
// Содержимое теряется при перезапуске, а у каждого инстанса сервиса свое окно.
type MemoryRepository struct {
	Logger   *zap.SugaredLogger
	capacity int
	now      func() time.Time

	mu  sync.Mutex
	ads []Ad // сначала новые
}

func NewMemoryRepository(capacity int, l *zap.SugaredLogger) *MemoryRepository {
	return &MemoryRepository{
		Logger:   l,
		capacity: capacity,
		now:      time.Now,
	}
}

func (mr *MemoryRepository) ListAll(_ context.Context) ([]Ad, error) {
	mr.mu.Lock()
	defer mr.mu.Unlock()

	result := make([]Ad, 0, len(mr.ads))
	for _, a := range mr.ads {
		result = append(result, a.Clone())
	}

	return result, nil
}

func (mr *MemoryRepository) ListByUser(_ context.Context, sellerID string) ([]Ad, error) {
	mr.mu.Lock()
	defer mr.mu.Unlock()

	result := []Ad{}
	for _, a := range mr.ads {
		if a.SellerID == sellerID {
			result = append(result, a.Clone())
		}
	}

	return result, nil
}

func (mr *MemoryRepository) Insert(_ context.Context, a Ad) (*Ad, int, error) {
	ApplyDefaults(&a, mr.now())
	stored := a.Clone()

	mr.mu.Lock()
	defer mr.mu.Unlock()

	// повторный id заменяет старую запись: побеждает последняя запись
	kept := make([]Ad, 0, len(mr.ads)+1)
	kept = append(kept, stored)
	for _, existing := range mr.ads {
		if existing.ID != stored.ID {
			kept = append(kept, existing)
		}
	}
	mr.ads = kept

	if mr.capacity > 0 && len(mr.ads) > mr.capacity {
		evicted := len(mr.ads) - mr.capacity
		mr.ads = mr.ads[:mr.capacity:mr.capacity]
		mr.Logger.Debugf("ads window is full, evicted %d oldest ads", evicted)
	}

	return &a, len(mr.ads), nil
}

func (mr *MemoryRepository) Remove(_ context.Context, adID, requesterID string) (*Ad, int, error) {
	mr.mu.Lock()
	defer mr.mu.Unlock()

	for i, a := range mr.ads {
		if a.ID != adID || a.SellerID != requesterID {
			continue
		}

		mr.ads = append(mr.ads[:i:i], mr.ads[i+1:]...)

		return &a, len(mr.ads), nil
	}

	return nil, len(mr.ads), myErr.ErrAdNotFoundOrForbidden
}
