package localcache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"vape-market/internal/ad"
	"vape-market/internal/rating"
	myErr "vape-market/internal/types/errors"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	DefaultKey      = "vapeMarketAds"
	DefaultCapacity = 50

	ratingsSuffix = ":ratings"
)

// getSetter - общее у клиента, транзакции и пайплайна
type getSetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisSlot - именованный слот клиента: JSON-массив последних объявлений
// (сначала новые) и рядом отдельный ключ с картой оценок
type RedisSlot struct {
	RedisClient *redis.Client
	Logger      *zap.SugaredLogger
	key         string
	capacity    int
}

func NewRedisSlot(client *redis.Client, key string, capacity int, logger *zap.SugaredLogger) *RedisSlot {
	if key == "" {
		key = DefaultKey
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &RedisSlot{
		RedisClient: client,
		Logger:      logger,
		key:         key,
		capacity:    capacity,
	}
}

func (s *RedisSlot) Key() string {
	return s.key
}

func (s *RedisSlot) ratingsKey() string {
	return s.key + ratingsSuffix
}

// SaveAds перезаписывает слот первыми capacity объявлениями
func (s *RedisSlot) SaveAds(ctx context.Context, ads []ad.Ad) error {
	return s.writeAds(ctx, s.RedisClient, ads)
}

// LoadAds возвращает пустой список, если слот еще не создан
func (s *RedisSlot) LoadAds(ctx context.Context) ([]ad.Ad, error) {
	return s.readAds(ctx, s.RedisClient)
}

func (s *RedisSlot) SaveRatings(ctx context.Context, ratings rating.Ratings) error {
	if ratings == nil {
		ratings = rating.Ratings{}
	}

	data, err := json.Marshal(ratings)
	if err != nil {
		s.Logger.Errorw("Failed encode ratings to JSON", zap.Error(err))
		return err
	}

	if err = s.RedisClient.Set(ctx, s.ratingsKey(), data, 0).Err(); err != nil {
		s.Logger.Errorw("Failed save ratings to Redis", zap.Error(err), zap.String("key", s.ratingsKey()))
		return myErr.ErrCacheInternal
	}

	return nil
}

func (s *RedisSlot) LoadRatings(ctx context.Context) (rating.Ratings, error) {
	data, err := s.RedisClient.Get(ctx, s.ratingsKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return rating.Ratings{}, nil
		}
		s.Logger.Errorw("Failed get ratings from Redis", zap.Error(err), zap.String("key", s.ratingsKey()))
		return nil, myErr.ErrCacheInternal
	}

	ratings := rating.Ratings{}
	if err = json.Unmarshal(data, &ratings); err != nil {
		s.Logger.Errorw("Failed decode ratings from JSON", zap.Error(err))
		return nil, err
	}

	return ratings, nil
}

// PrependAd кладет объявление в начало слота, заменяя запись с тем же id
func (s *RedisSlot) PrependAd(ctx context.Context, a ad.Ad) error {
	return s.update(ctx, func(ads []ad.Ad) []ad.Ad {
		out := make([]ad.Ad, 0, len(ads)+1)
		out = append(out, a)
		for _, existing := range ads {
			if existing.ID != a.ID {
				out = append(out, existing)
			}
		}
		return out
	})
}

func (s *RedisSlot) RemoveAd(ctx context.Context, adID string) error {
	return s.update(ctx, func(ads []ad.Ad) []ad.Ad {
		out := make([]ad.Ad, 0, len(ads))
		for _, existing := range ads {
			if existing.ID != adID {
				out = append(out, existing)
			}
		}
		return out
	})
}

// update - чтение-изменение-запись слота под WATCH
func (s *RedisSlot) update(ctx context.Context, fn func([]ad.Ad) []ad.Ad) error {
	err := s.RedisClient.Watch(ctx, func(tx *redis.Tx) error {
		ads, err := s.readAds(ctx, tx)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			return s.writeAds(ctx, pipe, fn(ads))
		})
		return err
	}, s.key)
	if err != nil {
		s.Logger.Errorw("Failed update cache slot", zap.Error(err), zap.String("key", s.key))
		if errors.Is(err, redis.TxFailedErr) {
			return myErr.ErrCacheInternal
		}
		return err
	}

	return nil
}

func (s *RedisSlot) readAds(ctx context.Context, c getSetter) ([]ad.Ad, error) {
	data, err := c.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []ad.Ad{}, nil
		}
		s.Logger.Errorw("Failed get ads from Redis", zap.Error(err), zap.String("key", s.key))
		return nil, myErr.ErrCacheInternal
	}

	ads := []ad.Ad{}
	if err = json.Unmarshal(data, &ads); err != nil {
		s.Logger.Errorw("Failed decode ads from JSON", zap.Error(err), zap.String("key", s.key))
		return nil, err
	}

	return ads, nil
}

func (s *RedisSlot) writeAds(ctx context.Context, c getSetter, ads []ad.Ad) error {
	if len(ads) > s.capacity {
		ads = ads[:s.capacity]
	}
	if ads == nil {
		ads = []ad.Ad{}
	}

	data, err := json.Marshal(ads)
	if err != nil {
		s.Logger.Errorw("Failed encode ads to JSON", zap.Error(err))
		return err
	}

	if err = c.Set(ctx, s.key, data, 0).Err(); err != nil {
		s.Logger.Errorw("Failed save ads to Redis", zap.Error(err), zap.String("key", s.key))
		return myErr.ErrCacheInternal
	}

	return nil
}
