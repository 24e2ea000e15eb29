package search

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"vape-market/internal/ad"
	myErr "vape-market/internal/types/errors"

	"github.com/elastic/go-elasticsearch/v8"
	"go.uber.org/zap"
)

const searchLimit = 20

type ElasticService struct {
	Client *elasticsearch.Client
	Logger *zap.SugaredLogger
	Index  string
}

func NewElasticService(client *elasticsearch.Client, logger *zap.SugaredLogger, index string) *ElasticService {
	return &ElasticService{
		Client: client,
		Logger: logger,
		Index:  index,
	}
}

// IndexAd - записывает объявление в индекс
func (s *ElasticService) IndexAd(ctx context.Context, a ad.Ad) error {
	body, err := json.Marshal(NewAdDoc(a))
	if err != nil {
		s.Logger.Errorw("Failed to marshal document", zap.Error(err))

		return err
	}

	res, err := s.Client.Index(
		s.Index,
		bytes.NewReader(body),
		s.Client.Index.WithContext(ctx),
		s.Client.Index.WithDocumentID(a.ID),
		s.Client.Index.WithRefresh("false"),
	)
	if err != nil {
		s.Logger.Errorw("Failed to index document", zap.Error(err), zap.String("adID", a.ID))

		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		s.Logger.Errorf("Indexing error: %s", res.String())

		return myErr.ErrIndexing
	}

	return nil
}

// BulkIndex - пакетная запись документов одним запросом _bulk
func (s *ElasticService) BulkIndex(ctx context.Context, docs []AdDoc) error {
	if len(docs) == 0 {
		return nil
	}

	var buf bytes.Buffer

	for _, doc := range docs {
		meta := map[string]map[string]string{
			"index": {
				"_index": s.Index,
				"_id":    doc.ID,
			},
		}
		metaLine, err := json.Marshal(meta)
		if err != nil {
			s.Logger.Errorw("Failed to marshal bulk meta", zap.Error(err))
			return err
		}

		docLine, err := json.Marshal(doc)
		if err != nil {
			s.Logger.Errorw("Failed to marshal doc", zap.Error(err), zap.String("adID", doc.ID))
			return err
		}

		buf.Write(metaLine)
		buf.WriteByte('\n')
		buf.Write(docLine)
		buf.WriteByte('\n')
	}

	res, err := s.Client.Bulk(bytes.NewReader(buf.Bytes()), s.Client.Bulk.WithContext(ctx))
	if err != nil {
		s.Logger.Errorw("Bulk request failed", zap.Error(err))
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		s.Logger.Errorw("Bulk indexing returned error", zap.String("response", res.String()))
		return myErr.ErrIndexing
	}

	// _bulk отвечает 200 даже при ошибках отдельных документов
	var bulkResp struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err == nil && bulkResp.Errors {
		s.Logger.Errorw("Bulk indexing partially failed", zap.Int("docs", len(docs)))
		return myErr.ErrIndexing
	}

	return nil
}

// RemoveAd - удаляет объявление из индекса, отсутствие документа ошибкой не считается
func (s *ElasticService) RemoveAd(ctx context.Context, adID string) error {
	res, err := s.Client.Delete(
		s.Index,
		adID,
		s.Client.Delete.WithContext(ctx),
	)
	if err != nil {
		s.Logger.Errorw("Failed to delete document", zap.Error(err), zap.String("adID", adID))

		return err
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		s.Logger.Errorf("Delete error: %s", res.String())

		return myErr.ErrIndexing
	}

	return nil
}

// SearchAds - полнотекстовый поиск по заголовку и описанию.
// Непустой within ограничивает выдачу этими id, чтобы устаревшие документы не занимали лимит.
func (s *ElasticService) SearchAds(ctx context.Context, query string, within []string) ([]string, error) {
	match := map[string]interface{}{
		"multi_match": map[string]interface{}{
			"query":     query,
			"fields":    []string{"title^2", "description"},
			"fuzziness": "AUTO",
		},
	}

	boolQuery := map[string]interface{}{
		"must": match,
	}
	if within != nil {
		boolQuery["filter"] = map[string]interface{}{
			"ids": map[string]interface{}{
				"values": within,
			},
		}
	}

	searchQuery := map[string]interface{}{
		"size": searchLimit,
		"query": map[string]interface{}{
			"bool": boolQuery,
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(searchQuery); err != nil {
		s.Logger.Errorw("Failed to encode search query", zap.Error(err))
		return nil, err
	}

	res, err := s.Client.Search(
		s.Client.Search.WithContext(ctx),
		s.Client.Search.WithIndex(s.Index),
		s.Client.Search.WithBody(&buf),
	)
	if err != nil {
		s.Logger.Errorw("Failed to perform search query", zap.Error(err))
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		s.Logger.Errorw("Elasticsearch search error", zap.String("response", res.String()))
		return nil, myErr.ErrSearch
	}

	var esResp struct {
		Hits struct {
			Hits []struct {
				Source AdDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err = json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		s.Logger.Errorw("Failed to decode search response", zap.Error(err))
		return nil, err
	}

	ids := make([]string, 0, len(esResp.Hits.Hits))
	for _, hit := range esResp.Hits.Hits {
		ids = append(ids, hit.Source.ID)
	}

	return ids, nil
}

// PruneExcept - удаляет из индекса все документы, чьих id нет в keep.
// Возвращает число удаленных документов.
func (s *ElasticService) PruneExcept(ctx context.Context, keep []string) (int, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must_not": map[string]interface{}{
					"ids": map[string]interface{}{
						"values": keep,
					},
				},
			},
		},
	}
	if len(keep) == 0 {
		query["query"] = map[string]interface{}{
			"match_all": map[string]interface{}{},
		}
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		s.Logger.Errorw("Failed to encode prune query", zap.Error(err))
		return 0, err
	}

	res, err := s.Client.DeleteByQuery(
		[]string{s.Index},
		&buf,
		s.Client.DeleteByQuery.WithContext(ctx),
		s.Client.DeleteByQuery.WithConflicts("proceed"),
	)
	if err != nil {
		s.Logger.Errorw("Failed to prune index", zap.Error(err))
		return 0, err
	}
	defer res.Body.Close()

	if res.IsError() {
		s.Logger.Errorw("Elasticsearch prune error", zap.String("response", res.String()))
		return 0, myErr.ErrIndexing
	}

	var pruneResp struct {
		Deleted int `json:"deleted"`
	}
	if err = json.NewDecoder(res.Body).Decode(&pruneResp); err != nil {
		s.Logger.Errorw("Failed to decode prune response", zap.Error(err))
		return 0, err
	}

	return pruneResp.Deleted, nil
}

// EnsureIndex - создает индекс с autocomplete-анализатором для заголовков, если его еще нет
func (s *ElasticService) EnsureIndex(ctx context.Context) error {
	res, err := s.Client.Indices.Exists([]string{s.Index}, s.Client.Indices.Exists.WithContext(ctx))
	if err != nil {
		s.Logger.Errorw("Failed to check if index exists", zap.Error(err))
		return err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		s.Logger.Infof("Index '%s' already exists", s.Index)
		return nil
	}

	settings := map[string]interface{}{
		"settings": map[string]interface{}{
			"analysis": map[string]interface{}{
				"filter": map[string]interface{}{
					"autocomplete_filter": map[string]interface{}{
						"type":     "edge_ngram",
						"min_gram": 2,
						"max_gram": 20,
					},
				},
				"analyzer": map[string]interface{}{
					"autocomplete": map[string]interface{}{
						"type":      "custom",
						"tokenizer": "standard",
						"filter":    []string{"lowercase", "autocomplete_filter"},
					},
				},
			},
		},
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"title": map[string]interface{}{
					"type":            "text",
					"analyzer":        "autocomplete",
					"search_analyzer": "standard",
				},
				"description": map[string]interface{}{"type": "text"},
				"category":    map[string]interface{}{"type": "keyword"},
				"seller_id":   map[string]interface{}{"type": "keyword"},
				"price":       map[string]interface{}{"type": "double"},
			},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(settings); err != nil {
		s.Logger.Errorw("Failed to encode index settings", zap.Error(err))
		return err
	}

	createRes, err := s.Client.Indices.Create(s.Index,
		s.Client.Indices.Create.WithContext(ctx),
		s.Client.Indices.Create.WithBody(&buf),
	)
	if err != nil {
		s.Logger.Errorw("Failed to create index", zap.Error(err))
		return err
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		s.Logger.Errorw("Elasticsearch index creation error", zap.String("response", createRes.String()))
		return myErr.ErrIndexing
	}

	s.Logger.Infof("Index '%s' created successfully", s.Index)
	return nil
}
