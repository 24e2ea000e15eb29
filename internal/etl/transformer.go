package etl

import (
	"vape-market/internal/ad"
	"vape-market/internal/search"

	"go.uber.org/zap"
)

type Transformer struct {
	Logger *zap.SugaredLogger
}

func NewTransformer(logger *zap.SugaredLogger) *Transformer {
	return &Transformer{
		Logger: logger,
	}
}

// Transform - переводит объявления в документы поискового индекса, пропуская записи без id
func (t *Transformer) Transform(input []ad.Ad) []search.AdDoc {
	docs := make([]search.AdDoc, 0, len(input))
	for _, a := range input {
		if a.ID == "" {
			continue
		}
		docs = append(docs, search.NewAdDoc(a))
	}

	t.Logger.Debugf("Transformed %d docs", len(docs))

	return docs
}
