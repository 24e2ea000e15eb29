package etl

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Pipeline периодически переиндексирует окно объявлений целиком.
// Так индекс догоняет хранилище, даже если часть событий из Kafka потерялась.
type Pipeline struct {
	extractor   *RepoExtractor
	transformer *Transformer
	loader      *ElasticLoader
	logger      *zap.SugaredLogger
	interval    time.Duration
}

func NewPipeline(
	extractor *RepoExtractor,
	transformer *Transformer,
	loader *ElasticLoader,
	logger *zap.SugaredLogger,
	interval time.Duration,
) *Pipeline {
	return &Pipeline{
		extractor:   extractor,
		transformer: transformer,
		loader:      loader,
		logger:      logger,
		interval:    interval,
	}
}

// RunOnce - одна итерация; возвращает число загруженных документов
func (p *Pipeline) RunOnce(ctx context.Context) (int, error) {
	// EXTRACT
	ads, err := p.extractor.ExtractAll(ctx)
	if err != nil {
		return 0, err
	}

	// TRANSFORM
	docs := p.transformer.Transform(ads)

	// LOAD
	if err = p.loader.Load(ctx, docs); err != nil {
		return 0, err
	}

	return len(docs), nil
}

func (p *Pipeline) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Infow("ETL pipeline started", "interval", p.interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.RunOnce(ctx)
			if err != nil {
				p.logger.Errorw("ETL iteration failed", zap.Error(err))
				continue
			}

			p.logger.Infof("ETL pipeline completed, successfully loaded %d docs", n)
		}
	}
}
