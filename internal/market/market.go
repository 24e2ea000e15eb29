package market

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"vape-market/internal/ad"
	"vape-market/internal/rating"
	"vape-market/internal/remote"
	"vape-market/internal/syncer"
	myErr "vape-market/internal/types/errors"

	"go.uber.org/zap"
)

const DefaultWatchInterval = 30 * time.Second

type Source string

const (
	SourceServer Source = "server"
	SourceCache  Source = "cache"
)

// RemoteAPI - операции сервера, нужные клиенту
type RemoteAPI interface {
	FetchAllAds(ctx context.Context) ([]ad.Ad, error)
	PublishAd(ctx context.Context, a ad.Ad) (*ad.Ad, error)
	DeleteAd(ctx context.Context, adID, userID string) error
	UpdateRating(ctx context.Context, sellerID, userID string, value int) error
	CheckStatus(ctx context.Context) remote.Status
}

// Cache - локальный слот клиента
type Cache interface {
	SaveAds(ctx context.Context, ads []ad.Ad) error
	LoadAds(ctx context.Context) ([]ad.Ad, error)
	SaveRatings(ctx context.Context, ratings rating.Ratings) error
	LoadRatings(ctx context.Context) (rating.Ratings, error)
	PrependAd(ctx context.Context, a ad.Ad) error
	RemoveAd(ctx context.Context, adID string) error
}

type Syncer interface {
	Sync(ctx context.Context, localAds []ad.Ad, localRatings rating.Ratings) syncer.Result
}

type LoadResult struct {
	Ads    []ad.Ad `json:"ads"`
	Source Source  `json:"source"`
}

type PublishResult struct {
	Ad      ad.Ad `json:"ad"`
	Offline bool  `json:"offline"`
}

// Service - клиентская сторона маркетплейса: сервер, локальный слот и синхронизация
type Service struct {
	Remote RemoteAPI
	Cache  Cache
	Syncer Syncer
	Logger *zap.SugaredLogger
	now    func() time.Time
}

func NewService(r RemoteAPI, c Cache, s Syncer, logger *zap.SugaredLogger) *Service {
	return &Service{
		Remote: r,
		Cache:  c,
		Syncer: s,
		Logger: logger,
		now:    time.Now,
	}
}

// Load берет объявления с сервера и обновляет слот, а при недоступном сервере читает слот.
// Объявления, которых сервер не знает (опубликованные офлайн), в слоте остаются.
func (s *Service) Load(ctx context.Context) (LoadResult, error) {
	ads, err := s.Remote.FetchAllAds(ctx)
	if err == nil {
		s.refreshSlot(ctx, ads)

		return LoadResult{Ads: ads, Source: SourceServer}, nil
	}

	s.Logger.Warnw("server unavailable, using cache slot", "error", err)

	cached, cacheErr := s.Cache.LoadAds(ctx)
	if cacheErr != nil {
		return LoadResult{}, fmt.Errorf("server: %v, cache: %w", err, cacheErr)
	}

	return LoadResult{Ads: cached, Source: SourceCache}, nil
}

// refreshSlot сводит серверный список со слотом: для общих id побеждает сервер,
// локальные объявления сохраняются
func (s *Service) refreshSlot(ctx context.Context, serverAds []ad.Ad) {
	cached, err := s.Cache.LoadAds(ctx)
	if err != nil {
		s.Logger.Warnw("failed to read cache slot before refresh", "error", err)
		cached = nil
	}

	if err = s.Cache.SaveAds(ctx, newestFirst(syncer.MergeAds(cached, serverAds))); err != nil {
		s.Logger.Warnw("failed to refresh cache slot", "error", err)
	}
}

// newestFirst упорядочивает объявления от новых к старым, слот хранит первые capacity.
// Объявления без времени создания уходят в конец, порядок равных сохраняется.
func newestFirst(ads []ad.Ad) []ad.Ad {
	sorted := make([]ad.Ad, len(ads))
	copy(sorted, ads)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	return sorted
}

// Publish публикует объявление. Если сервер недоступен, объявление получает
// id локально и сохраняется только в слот (Offline=true).
// Отказ сервера в валидации (4xx) офлайн-режимом не считается.
func (s *Service) Publish(ctx context.Context, a ad.Ad) (PublishResult, error) {
	if missing := ad.MissingFields(a); len(missing) > 0 {
		return PublishResult{}, myErr.NewValidationError(missing)
	}

	stored, err := s.Remote.PublishAd(ctx, a)
	if err == nil {
		if cacheErr := s.Cache.PrependAd(ctx, *stored); cacheErr != nil {
			s.Logger.Warnw("failed to put published ad into cache slot", "adID", stored.ID, "error", cacheErr)
		}

		return PublishResult{Ad: *stored}, nil
	}

	var se *remote.StatusError
	if errors.As(err, &se) && se.StatusCode >= http.StatusBadRequest && se.StatusCode < http.StatusInternalServerError {
		return PublishResult{}, err
	}

	s.Logger.Warnw("publishing offline", "sellerID", a.SellerID, "error", err)

	ad.ApplyDefaults(&a, s.now())
	if cacheErr := s.Cache.PrependAd(ctx, a); cacheErr != nil {
		return PublishResult{}, fmt.Errorf("server: %v, cache: %w", err, cacheErr)
	}

	return PublishResult{Ad: a, Offline: true}, nil
}

// Delete удаляет объявление на сервере и затем из слота
func (s *Service) Delete(ctx context.Context, adID, userID string) error {
	if err := s.Remote.DeleteAd(ctx, adID, userID); err != nil {
		return err
	}

	if err := s.Cache.RemoveAd(ctx, adID); err != nil {
		s.Logger.Warnw("failed to remove ad from cache slot", "adID", adID, "error", err)
	}

	return nil
}

// Rate сохраняет оценку на сервере и в локальной карте оценок
func (s *Service) Rate(ctx context.Context, sellerID, userID string, value int) error {
	if err := s.Remote.UpdateRating(ctx, sellerID, userID, value); err != nil {
		return err
	}

	ratings, err := s.Cache.LoadRatings(ctx)
	if err != nil {
		s.Logger.Warnw("failed to load cached ratings", "error", err)
		return nil
	}

	ratings.Set(sellerID, userID, value)
	if err = s.Cache.SaveRatings(ctx, ratings); err != nil {
		s.Logger.Warnw("failed to save cached ratings", "error", err)
	}

	return nil
}

// Sync сводит слот с сервером и сохраняет результат, только если синхронизация удалась
func (s *Service) Sync(ctx context.Context) syncer.Result {
	localAds, err := s.Cache.LoadAds(ctx)
	if err != nil {
		s.Logger.Warnw("cache slot unavailable, syncing without local ads", "error", err)
		localAds = []ad.Ad{}
	}

	localRatings, err := s.Cache.LoadRatings(ctx)
	if err != nil {
		s.Logger.Warnw("cached ratings unavailable, syncing without local ratings", "error", err)
		localRatings = rating.Ratings{}
	}

	res := s.Syncer.Sync(ctx, localAds, localRatings)
	if !res.Synced {
		return res
	}

	if err = s.Cache.SaveAds(ctx, newestFirst(res.Ads)); err != nil {
		s.Logger.Warnw("failed to store synced ads", "error", err)
	}
	if err = s.Cache.SaveRatings(ctx, res.Ratings); err != nil {
		s.Logger.Warnw("failed to store synced ratings", "error", err)
	}

	return res
}

func (s *Service) Status(ctx context.Context) remote.Status {
	return s.Remote.CheckStatus(ctx)
}

// Watch перезагружает объявления сразу и затем каждые interval, пока не отменен ctx
func (s *Service) Watch(ctx context.Context, interval time.Duration, fn func(LoadResult, error)) error {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		fn(s.Load(ctx))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
