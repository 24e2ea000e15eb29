package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vape-market/internal/ad"
	"vape-market/internal/rating"
	typesAd "vape-market/internal/types/ad"

	"go.uber.org/zap"
	"golang.org/x/net/context/ctxhttp"
)

const (
	DefaultAPIPath = "/api/ads"
	DefaultTimeout = 10 * time.Second
)

// Client - типизированный клиент /api/ads. Один запрос на вызов, без повторов,
// каждый вызов ограничен Timeout.
type Client struct {
	BaseURL    string
	APIPath    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.SugaredLogger
}

func NewClient(baseURL, apiPath string, timeout time.Duration, logger *zap.SugaredLogger) *Client {
	if apiPath == "" {
		apiPath = DefaultAPIPath
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIPath:    apiPath,
		Timeout:    timeout,
		HTTPClient: &http.Client{},
		Logger:     logger,
	}
}

// Status - результат проверки доступности сервера
type Status struct {
	Online       bool      `json:"online"`
	StatusCode   int       `json:"status,omitempty"`
	ResponseTime int64     `json:"responseTime"` // мс
	Timestamp    time.Time `json:"timestamp"`
	Error        string    `json:"error,omitempty"`
}

type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (c *Client) endpoint(query url.Values) string {
	u := c.BaseURL + c.APIPath
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	return u
}

// do выполняет запрос и раскладывает ответ в out.
// Ошибки: ErrTimeout, *StatusError, *EnvelopeError или обернутая сетевая ошибка.
func (c *Client) do(ctx context.Context, method string, query url.Values, body, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	target := c.endpoint(query)
	req, err := http.NewRequest(method, target, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ctxhttp.Do(ctx, c.HTTPClient, req)
	if err != nil {
		return c.transportError(ctx, method, target, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.transportError(ctx, method, target, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{StatusCode: resp.StatusCode, Message: env.Error}
		if se.Message == "" {
			se.Message = http.StatusText(resp.StatusCode)
		}

		return se
	}

	if decodeErr != nil {
		return fmt.Errorf("decode response of %s %s: %w", method, target, decodeErr)
	}
	if !env.Success {
		return newEnvelopeError(env.Error)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response of %s %s: %w", method, target, err)
		}
	}

	return nil
}

func (c *Client) transportError(ctx context.Context, method, target string, err error) error {
	var netErr net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%s %s: %w", method, target, ErrTimeout)
	}

	return fmt.Errorf("%s %s: %w", method, target, err)
}

// FetchAllAds - все объявления окна сервера
func (c *Client) FetchAllAds(ctx context.Context) ([]ad.Ad, error) {
	var resp typesAd.AdsResponse
	if err := c.do(ctx, http.MethodGet, nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Ads == nil {
		return []ad.Ad{}, nil
	}

	return resp.Ads, nil
}

// FetchUserAds - объявления одного продавца
func (c *Client) FetchUserAds(ctx context.Context, userID string) ([]ad.Ad, error) {
	query := url.Values{}
	query.Set("action", "user")
	query.Set("userId", userID)

	var resp typesAd.AdsResponse
	if err := c.do(ctx, http.MethodGet, query, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Ads == nil {
		return []ad.Ad{}, nil
	}

	return resp.Ads, nil
}

// FetchRatings - карта оценок сервера
func (c *Client) FetchRatings(ctx context.Context) (rating.Ratings, error) {
	query := url.Values{}
	query.Set("action", "ratings")

	var resp typesAd.RatingsResponse
	if err := c.do(ctx, http.MethodGet, query, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Ratings == nil {
		return rating.Ratings{}, nil
	}

	return resp.Ratings, nil
}

// SearchAds - полнотекстовый поиск на сервере
func (c *Client) SearchAds(ctx context.Context, q string) ([]ad.Ad, error) {
	query := url.Values{}
	query.Set("action", "search")
	query.Set("q", q)

	var resp typesAd.AdsResponse
	if err := c.do(ctx, http.MethodGet, query, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Ads == nil {
		return []ad.Ad{}, nil
	}

	return resp.Ads, nil
}

// GetAllAds не возвращает ошибку: при сбое пишет предупреждение и отдает пустой список
func (c *Client) GetAllAds(ctx context.Context) []ad.Ad {
	ads, err := c.FetchAllAds(ctx)
	if err != nil {
		c.Logger.Warnw("failed to load ads from server", "error", err)
		return []ad.Ad{}
	}

	return ads
}

func (c *Client) GetUserAds(ctx context.Context, userID string) []ad.Ad {
	ads, err := c.FetchUserAds(ctx, userID)
	if err != nil {
		c.Logger.Warnw("failed to load user ads from server", "userID", userID, "error", err)
		return []ad.Ad{}
	}

	return ads
}

func (c *Client) GetAllRatings(ctx context.Context) rating.Ratings {
	ratings, err := c.FetchRatings(ctx)
	if err != nil {
		c.Logger.Warnw("failed to load ratings from server", "error", err)
		return rating.Ratings{}
	}

	return ratings
}

// PublishAd возвращает объявление в том виде, в каком его сохранил сервер
func (c *Client) PublishAd(ctx context.Context, a ad.Ad) (*ad.Ad, error) {
	var resp typesAd.MutationResponse
	if err := c.do(ctx, http.MethodPost, nil, a, &resp); err != nil {
		c.Logger.Errorw("failed to publish ad", "sellerID", a.SellerID, "error", err)
		return nil, err
	}
	if resp.Ad == nil {
		return nil, newEnvelopeError("")
	}

	c.Logger.Infow("ad published on server", "adID", resp.Ad.ID)
	return resp.Ad, nil
}

func (c *Client) DeleteAd(ctx context.Context, adID, userID string) error {
	body := typesAd.DeleteAd{AdID: adID, UserID: userID}
	if err := c.do(ctx, http.MethodDelete, nil, body, nil); err != nil {
		c.Logger.Errorw("failed to delete ad", "adID", adID, "error", err)
		return err
	}

	return nil
}

func (c *Client) UpdateRating(ctx context.Context, sellerID, userID string, value int) error {
	body := typesAd.RateSeller{SellerID: sellerID, UserID: userID, Rating: value}
	if err := c.do(ctx, http.MethodPut, nil, body, nil); err != nil {
		c.Logger.Errorw("failed to update rating", "sellerID", sellerID, "error", err)
		return err
	}

	return nil
}

// CheckStatus никогда не возвращает ошибку: недоступность отражается в Status
func (c *Client) CheckStatus(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequest(http.MethodGet, c.endpoint(nil), nil)
	if err != nil {
		return Status{Error: err.Error(), Timestamp: time.Now().UTC()}
	}

	resp, err := ctxhttp.Do(ctx, c.HTTPClient, req)
	if err != nil {
		return Status{
			Error:     c.transportError(ctx, req.Method, req.URL.String(), err).Error(),
			Timestamp: time.Now().UTC(),
		}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return Status{
		Online:       resp.StatusCode >= 200 && resp.StatusCode <= 299,
		StatusCode:   resp.StatusCode,
		ResponseTime: time.Since(start).Milliseconds(),
		Timestamp:    time.Now().UTC(),
	}
}
