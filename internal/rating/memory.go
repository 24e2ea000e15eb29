package rating

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

type MemoryRepository struct {
	Logger *zap.SugaredLogger

	mu      sync.Mutex
	ratings Ratings
}

func NewMemoryRepository(l *zap.SugaredLogger) *MemoryRepository {
	return &MemoryRepository{
		Logger:  l,
		ratings: make(Ratings),
	}
}

func (mr *MemoryRepository) GetAll(_ context.Context) (Ratings, error) {
	mr.mu.Lock()
	defer mr.mu.Unlock()

	return mr.ratings.Clone(), nil
}

func (mr *MemoryRepository) Set(_ context.Context, sellerID, raterID string, value int) error {
	mr.mu.Lock()
	defer mr.mu.Unlock()

	mr.ratings.Set(sellerID, raterID, value)

	return nil
}
