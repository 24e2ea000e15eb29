package search

import (
	"context"
	"strings"

	"vape-market/internal/ad"
)

// AdDoc - документ объявления в поисковом индексе
type AdDoc struct {
	ID          string  `json:"id"`
	SellerID    string  `json:"seller_id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category,omitempty"`
	Price       float64 `json:"price"`
}

func NewAdDoc(a ad.Ad) AdDoc {
	return AdDoc{
		ID:          a.ID,
		SellerID:    a.SellerID,
		Title:       a.Title,
		Description: a.Description,
		Category:    a.Category,
		Price:       a.Price,
	}
}

// Searcher возвращает id подходящих объявлений в порядке релевантности.
// Непустой within ограничивает результат перечисленными id.
type Searcher interface {
	SearchAds(ctx context.Context, query string, within []string) ([]string, error)
}

// ScanSearcher - поиск перебором окна, когда Elasticsearch не настроен
type ScanSearcher struct {
	Repo ad.AdRepo
}

func NewScanSearcher(repo ad.AdRepo) *ScanSearcher {
	return &ScanSearcher{Repo: repo}
}

func (s *ScanSearcher) SearchAds(ctx context.Context, query string, within []string) ([]string, error) {
	ads, err := s.Repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	var allowed map[string]struct{}
	if within != nil {
		allowed = make(map[string]struct{}, len(within))
		for _, id := range within {
			allowed[id] = struct{}{}
		}
	}

	q := strings.ToLower(strings.TrimSpace(query))
	ids := []string{}
	for _, a := range ads {
		if allowed != nil {
			if _, ok := allowed[a.ID]; !ok {
				continue
			}
		}
		if strings.Contains(strings.ToLower(a.Title), q) || strings.Contains(strings.ToLower(a.Description), q) {
			ids = append(ids, a.ID)
		}
	}

	return ids, nil
}
