package market

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"vape-market/internal/ad"
	"vape-market/internal/localcache"
	"vape-market/internal/rating"
	"vape-market/internal/remote"
	"vape-market/internal/syncer"
	myErr "vape-market/internal/types/errors"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeRemote реализует RemoteAPI
type fakeRemote struct {
	mu sync.Mutex

	ads        []ad.Ad
	ratings    rating.Ratings
	fetchErr   error
	publishErr error
	deleteErr  error
	rateErr    error
	fetchCalls int
	published  []ad.Ad
}

func (f *fakeRemote) FetchAllAds(context.Context) ([]ad.Ad, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	return f.ads, f.fetchErr
}

func (f *fakeRemote) FetchRatings(context.Context) (rating.Ratings, error) {
	return f.ratings, f.fetchErr
}

func (f *fakeRemote) PublishAd(_ context.Context, a ad.Ad) (*ad.Ad, error) {
	if f.publishErr != nil {
		return nil, f.publishErr
	}
	a.ID = "ad_1700000000000_server001"
	f.published = append(f.published, a)
	return &a, nil
}

func (f *fakeRemote) DeleteAd(context.Context, string, string) error { return f.deleteErr }

func (f *fakeRemote) UpdateRating(context.Context, string, string, int) error { return f.rateErr }

func (f *fakeRemote) CheckStatus(context.Context) remote.Status {
	return remote.Status{Online: f.fetchErr == nil, StatusCode: http.StatusOK}
}

func (f *fakeRemote) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls
}

func setupService(t *testing.T, r *fakeRemote) (*Service, *localcache.RedisSlot) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	logger := zaptest.NewLogger(t).Sugar()
	slot := localcache.NewRedisSlot(rdb, "", 50, logger)

	return NewService(r, slot, syncer.NewEngine(r, syncer.MergeDeep, logger), logger), slot
}

func validAd() ad.Ad {
	return ad.Ad{SellerID: "u1", Title: "Pod kit", Price: 1500, Category: "pods"}
}

func TestLoad(t *testing.T) {
	r := &fakeRemote{ads: []ad.Ad{{ID: "ad_1"}, {ID: "ad_2"}}}
	s, slot := setupService(t, r)
	ctx := context.Background()

	res, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, SourceServer, res.Source)
	assert.Len(t, res.Ads, 2)

	cached, err := slot.LoadAds(ctx)
	require.NoError(t, err)
	assert.Len(t, cached, 2)

	// сервер пропал: ответ из слота
	r.fetchErr = remote.ErrTimeout
	res, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, res.Source)
	assert.Equal(t, "ad_1", res.Ads[0].ID)
}

func TestLoad_KeepsOfflineAds(t *testing.T) {
	r := &fakeRemote{publishErr: remote.ErrTimeout, fetchErr: remote.ErrTimeout}
	s, slot := setupService(t, r)
	ctx := context.Background()

	offline, err := s.Publish(ctx, validAd())
	require.NoError(t, err)
	require.True(t, offline.Offline)

	// сервер вернулся и про офлайн-объявление ничего не знает
	older := offline.Ad.CreatedAt.Add(-time.Hour)
	r.fetchErr = nil
	r.ads = []ad.Ad{
		{ID: "ad_server_1", CreatedAt: older},
		{ID: "ad_server_2", CreatedAt: older.Add(-time.Minute)},
	}

	res, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, SourceServer, res.Source)
	assert.Len(t, res.Ads, 2)

	cached, err := slot.LoadAds(ctx)
	require.NoError(t, err)
	require.Len(t, cached, 3)
	assert.Equal(t, offline.Ad.ID, cached[0].ID)
	assert.Equal(t, "ad_server_1", cached[1].ID)
	assert.Equal(t, "ad_server_2", cached[2].ID)

	// последующий Sync офлайн-объявление тоже не теряет
	synced := s.Sync(ctx)
	require.True(t, synced.Synced)
	cached, err = slot.LoadAds(ctx)
	require.NoError(t, err)
	require.Len(t, cached, 3)
	assert.Equal(t, offline.Ad.ID, cached[0].ID)
}

func TestLoad_ServerVersionWinsInSlot(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r := &fakeRemote{ads: []ad.Ad{{ID: "ad_1", Title: "new title", CreatedAt: created}}}
	s, slot := setupService(t, r)
	ctx := context.Background()
	require.NoError(t, slot.SaveAds(ctx, []ad.Ad{{ID: "ad_1", Title: "old title", CreatedAt: created}}))

	_, err := s.Load(ctx)
	require.NoError(t, err)

	cached, err := slot.LoadAds(ctx)
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, "new title", cached[0].Title)
}

func TestPublish_Online(t *testing.T) {
	r := &fakeRemote{}
	s, slot := setupService(t, r)

	res, err := s.Publish(context.Background(), validAd())
	require.NoError(t, err)
	assert.False(t, res.Offline)
	assert.Equal(t, "ad_1700000000000_server001", res.Ad.ID)

	cached, err := slot.LoadAds(context.Background())
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, res.Ad.ID, cached[0].ID)
}

func TestPublish_OfflineFallback(t *testing.T) {
	r := &fakeRemote{publishErr: remote.ErrTimeout}
	s, slot := setupService(t, r)

	res, err := s.Publish(context.Background(), validAd())
	require.NoError(t, err)
	assert.True(t, res.Offline)
	assert.Regexp(t, `^ad_\d+_[a-z0-9]{9}$`, res.Ad.ID)
	assert.NotNil(t, res.Ad.PhotoURLs)
	assert.False(t, res.Ad.CreatedAt.IsZero())

	cached, err := slot.LoadAds(context.Background())
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, res.Ad.ID, cached[0].ID)
}

func TestPublish_Rejected(t *testing.T) {
	r := &fakeRemote{publishErr: &remote.StatusError{StatusCode: http.StatusBadRequest, Message: "required fields are missing"}}
	s, slot := setupService(t, r)

	_, err := s.Publish(context.Background(), validAd())
	var se *remote.StatusError
	require.ErrorAs(t, err, &se)

	cached, err := slot.LoadAds(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cached)
}

func TestPublish_Validation(t *testing.T) {
	s, _ := setupService(t, &fakeRemote{})

	_, err := s.Publish(context.Background(), ad.Ad{SellerID: "u1"})
	assert.ErrorIs(t, err, myErr.ErrValidation)

	var ve *myErr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"title", "price", "category"}, ve.Missing)
}

func TestDelete(t *testing.T) {
	r := &fakeRemote{}
	s, slot := setupService(t, r)
	ctx := context.Background()
	require.NoError(t, slot.SaveAds(ctx, []ad.Ad{{ID: "ad_1"}, {ID: "ad_2"}}))

	r.deleteErr = &remote.StatusError{StatusCode: http.StatusNotFound}
	assert.Error(t, s.Delete(ctx, "ad_1", "u2"))

	cached, _ := slot.LoadAds(ctx)
	assert.Len(t, cached, 2)

	r.deleteErr = nil
	require.NoError(t, s.Delete(ctx, "ad_1", "u1"))
	cached, _ = slot.LoadAds(ctx)
	require.Len(t, cached, 1)
	assert.Equal(t, "ad_2", cached[0].ID)
}

func TestRate(t *testing.T) {
	r := &fakeRemote{}
	s, slot := setupService(t, r)
	ctx := context.Background()

	require.NoError(t, s.Rate(ctx, "u1", "u2", 5))
	ratings, err := slot.LoadRatings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, ratings["u1"]["u2"])

	r.rateErr = errors.New("boom")
	assert.Error(t, s.Rate(ctx, "u1", "u2", 1))
	ratings, _ = slot.LoadRatings(ctx)
	assert.Equal(t, 5, ratings["u1"]["u2"])
}

func TestSync(t *testing.T) {
	r := &fakeRemote{
		ads:     []ad.Ad{{ID: "ad_server"}},
		ratings: rating.Ratings{"u1": {"u2": 4}},
	}
	s, slot := setupService(t, r)
	ctx := context.Background()
	require.NoError(t, slot.SaveAds(ctx, []ad.Ad{{ID: "ad_offline"}}))
	require.NoError(t, slot.SaveRatings(ctx, rating.Ratings{"u1": {"u3": 2}}))

	res := s.Sync(ctx)
	require.True(t, res.Synced)
	assert.Len(t, res.Ads, 2)

	cached, _ := slot.LoadAds(ctx)
	assert.Equal(t, "ad_server", cached[0].ID)
	assert.Equal(t, "ad_offline", cached[1].ID)

	ratings, _ := slot.LoadRatings(ctx)
	assert.Equal(t, rating.Ratings{"u1": {"u2": 4, "u3": 2}}, ratings)
}

func TestSync_FullSlotKeepsOfflineAd(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r := &fakeRemote{ratings: rating.Ratings{}}
	for i := 0; i < 50; i++ {
		r.ads = append(r.ads, ad.Ad{ID: fmt.Sprintf("ad_server_%02d", i), CreatedAt: base.Add(-time.Duration(i) * time.Minute)})
	}
	s, slot := setupService(t, r)
	ctx := context.Background()

	offline := ad.Ad{ID: "ad_offline", CreatedAt: base.Add(time.Hour)}
	require.NoError(t, slot.SaveAds(ctx, []ad.Ad{offline}))

	res := s.Sync(ctx)
	require.True(t, res.Synced)
	assert.Len(t, res.Ads, 51)

	cached, err := slot.LoadAds(ctx)
	require.NoError(t, err)
	require.Len(t, cached, 50)
	assert.Equal(t, "ad_offline", cached[0].ID)
	assert.Equal(t, "ad_server_00", cached[1].ID)
	// из окна слота уходит самое старое серверное объявление
	assert.Equal(t, "ad_server_48", cached[49].ID)
}

func TestSync_FailureKeepsCache(t *testing.T) {
	r := &fakeRemote{fetchErr: context.Canceled}
	s, slot := setupService(t, r)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, slot.SaveAds(context.Background(), []ad.Ad{{ID: "ad_offline"}}))
	cancel()

	res := s.Sync(ctx)
	assert.False(t, res.Synced)
	assert.NotEmpty(t, res.Error)

	cached, _ := slot.LoadAds(context.Background())
	require.Len(t, cached, 1)
	assert.Equal(t, "ad_offline", cached[0].ID)
}

func TestStatus(t *testing.T) {
	s, _ := setupService(t, &fakeRemote{})
	assert.True(t, s.Status(context.Background()).Online)
}

func TestWatch(t *testing.T) {
	r := &fakeRemote{ads: []ad.Ad{{ID: "ad_1"}}}
	s, _ := setupService(t, r)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	results := make(chan LoadResult, 10)
	go func() {
		done <- s.Watch(ctx, 10*time.Millisecond, func(res LoadResult, err error) {
			if err == nil {
				select {
				case results <- res:
				default:
				}
			}
		})
	}()

	for i := 0; i < 2; i++ {
		select {
		case res := <-results:
			assert.Equal(t, SourceServer, res.Source)
		case <-time.After(time.Second):
			t.Fatal("watch did not reload in time")
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("watch did not stop after cancel")
	}
	assert.GreaterOrEqual(t, r.calls(), 2)
}
