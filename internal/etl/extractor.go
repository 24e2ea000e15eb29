package etl

import (
	"context"

	"vape-market/internal/ad"

	"go.uber.org/zap"
)

// RepoExtractor читает текущее окно объявлений из хранилища
type RepoExtractor struct {
	Repo   ad.AdRepo
	Logger *zap.SugaredLogger
}

func NewRepoExtractor(repo ad.AdRepo, logger *zap.SugaredLogger) *RepoExtractor {
	return &RepoExtractor{
		Repo:   repo,
		Logger: logger,
	}
}

// ExtractAll - все объявления окна, сначала новые
func (e *RepoExtractor) ExtractAll(ctx context.Context) ([]ad.Ad, error) {
	ads, err := e.Repo.ListAll(ctx)
	if err != nil {
		e.Logger.Errorw("Failed to extract ads", zap.Error(err))
		return nil, err
	}

	return ads, nil
}
