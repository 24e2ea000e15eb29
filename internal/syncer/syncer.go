package syncer

import (
	"context"
	"fmt"

	"vape-market/internal/ad"
	"vape-market/internal/rating"

	"go.uber.org/zap"
)

type MergeMode string

const (
	// MergeDeep объединяет оценки по каждому оценщику, локальная оценка перекрывает серверную
	MergeDeep MergeMode = "deep"
	// MergeShallow заменяет карту продавца целиком, если она есть локально
	MergeShallow MergeMode = "shallow"
)

// Remote - то, что движку нужно от сервера
type Remote interface {
	FetchAllAds(ctx context.Context) ([]ad.Ad, error)
	FetchRatings(ctx context.Context) (rating.Ratings, error)
}

// Result - итог синхронизации. При Synced=false в Ads и Ratings лежат исходные локальные данные.
type Result struct {
	Ads     []ad.Ad        `json:"ads"`
	Ratings rating.Ratings `json:"ratings"`
	Synced  bool           `json:"synced"`
	Error   string         `json:"error,omitempty"`
}

type Engine struct {
	Remote Remote
	Mode   MergeMode
	Logger *zap.SugaredLogger
}

func NewEngine(r Remote, mode MergeMode, logger *zap.SugaredLogger) *Engine {
	if mode != MergeShallow {
		mode = MergeDeep
	}

	return &Engine{
		Remote: r,
		Mode:   mode,
		Logger: logger,
	}
}

// Sync сводит локальные данные с серверными. Ошибку не возвращает и не паникует:
// недоступный сервер дает пустые серверные данные, а отмена контекста или сбой
// слияния возвращают локальные данные с Synced=false.
func (e *Engine) Sync(ctx context.Context, localAds []ad.Ad, localRatings rating.Ratings) (res Result) {
	defer func() {
		if rec := recover(); rec != nil {
			e.Logger.Errorw("sync failed", "panic", rec)
			res = fallback(localAds, localRatings, fmt.Errorf("sync failed: %v", rec))
		}
	}()

	e.Logger.Info("sync started")

	remoteAds, err := e.Remote.FetchAllAds(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return fallback(localAds, localRatings, ctx.Err())
		}
		e.Logger.Warnw("server ads unavailable, merging with empty set", "error", err)
		remoteAds = nil
	}

	remoteRatings, err := e.Remote.FetchRatings(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return fallback(localAds, localRatings, ctx.Err())
		}
		e.Logger.Warnw("server ratings unavailable, merging with empty set", "error", err)
		remoteRatings = nil
	}

	res = Result{
		Ads:     MergeAds(remoteAds, localAds),
		Ratings: MergeRatings(remoteRatings, localRatings, e.Mode),
		Synced:  true,
	}

	e.Logger.Infow("sync finished", "ads", len(res.Ads), "sellers", len(res.Ratings))
	return res
}

func fallback(localAds []ad.Ad, localRatings rating.Ratings, err error) Result {
	return Result{
		Ads:     localAds,
		Ratings: localRatings,
		Synced:  false,
		Error:   err.Error(),
	}
}

// MergeAds объединяет объявления по id, локальные побеждают.
// Порядок: серверный, затем новые локальные id в локальном порядке.
// Записи без id отбрасываются.
func MergeAds(remoteAds, localAds []ad.Ad) []ad.Ad {
	merged := make([]ad.Ad, 0, len(remoteAds)+len(localAds))
	position := make(map[string]int, len(remoteAds)+len(localAds))

	put := func(a ad.Ad) {
		if a.ID == "" {
			return
		}
		if i, ok := position[a.ID]; ok {
			merged[i] = a
			return
		}
		position[a.ID] = len(merged)
		merged = append(merged, a)
	}

	for _, a := range remoteAds {
		put(a)
	}
	for _, a := range localAds {
		put(a)
	}

	return merged
}

// MergeRatings объединяет карты оценок, локальные значения побеждают
func MergeRatings(remote, local rating.Ratings, mode MergeMode) rating.Ratings {
	merged := remote.Clone()

	for sellerID, raters := range local {
		if mode == MergeShallow || merged[sellerID] == nil {
			inner := make(map[string]int, len(raters))
			for raterID, value := range raters {
				inner[raterID] = value
			}
			merged[sellerID] = inner
			continue
		}

		for raterID, value := range raters {
			merged[sellerID][raterID] = value
		}
	}

	return merged
}
