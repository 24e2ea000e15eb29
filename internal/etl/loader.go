package etl

import (
	"context"

	"vape-market/internal/search"

	"go.uber.org/zap"
)

// DocIndex - индекс, который умеет пакетную запись и чистку документов вне окна
type DocIndex interface {
	BulkIndex(ctx context.Context, docs []search.AdDoc) error
	PruneExcept(ctx context.Context, keep []string) (int, error)
}

type ElasticLoader struct {
	Indexer DocIndex
	Logger  *zap.SugaredLogger
}

func NewElasticLoader(indexer DocIndex, logger *zap.SugaredLogger) *ElasticLoader {
	return &ElasticLoader{
		Indexer: indexer,
		Logger:  logger,
	}
}

// Load - загружает подготовленные документы в индекс и удаляет документы,
// которых больше нет в окне (вытесненные или удаленные объявления)
func (l *ElasticLoader) Load(ctx context.Context, docs []search.AdDoc) error {
	if len(docs) == 0 {
		l.Logger.Infow("No documents to load")
	} else {
		if err := l.Indexer.BulkIndex(ctx, docs); err != nil {
			l.Logger.Errorw("Failed to bulk index documents", zap.Error(err))
			return err
		}

		l.Logger.Infow("Successfully indexed documents", "count", len(docs))
	}

	keep := make([]string, 0, len(docs))
	for _, doc := range docs {
		keep = append(keep, doc.ID)
	}

	pruned, err := l.Indexer.PruneExcept(ctx, keep)
	if err != nil {
		l.Logger.Errorw("Failed to prune stale documents", zap.Error(err))
		return err
	}
	if pruned > 0 {
		l.Logger.Infow("Pruned stale documents", "count", pruned)
	}

	return nil
}
