package worker

import (
	"context"
	"errors"
	"fmt"

	"vape-market/internal/ad"
	"vape-market/internal/kafka"
	"vape-market/internal/notify"

	"go.uber.org/zap"
)

var ErrMalformedEvent = errors.New("malformed event")

// Indexer - поисковый индекс объявлений
type Indexer interface {
	IndexAd(ctx context.Context, a ad.Ad) error
	RemoveAd(ctx context.Context, adID string) error
}

// Handler обрабатывает события хранилища: поддерживает поисковый индекс
// и уведомляет администратора о новых объявлениях
type Handler struct {
	Indexer  Indexer
	Notifier notify.Notifier
	Logger   *zap.SugaredLogger
}

func NewHandler(i Indexer, n notify.Notifier, logger *zap.SugaredLogger) *Handler {
	if n == nil {
		n = notify.NopNotifier{}
	}

	return &Handler{
		Indexer:  i,
		Notifier: n,
		Logger:   logger,
	}
}

func (h *Handler) Process(ctx context.Context, event kafka.Event) error {
	switch event.Type {
	case kafka.EventTypeAdCreated:
		return h.adCreated(ctx, event)
	case kafka.EventTypeAdDeleted:
		return h.adDeleted(ctx, event)
	case kafka.EventTypeRatingUpdated:
		h.Logger.Infow("rating updated",
			"sellerID", event.SellerID,
			"raterID", event.RaterID,
			"rating", event.Rating,
		)
		return nil
	default:
		h.Logger.Warnf("skipping event of unknown type %q", event.Type)
		return nil
	}
}

func (h *Handler) adCreated(ctx context.Context, event kafka.Event) error {
	if event.Ad == nil || event.Ad.ID == "" {
		return fmt.Errorf("%w: %s without ad", ErrMalformedEvent, event.Type)
	}

	var errs []error
	if h.Indexer != nil {
		if err := h.Indexer.IndexAd(ctx, *event.Ad); err != nil {
			errs = append(errs, fmt.Errorf("index ad %s: %w", event.Ad.ID, err))
		}
	}

	// уведомление уходит, даже если индекс недоступен
	if err := h.Notifier.NotifyNewAd(ctx, *event.Ad); err != nil {
		errs = append(errs, fmt.Errorf("notify about ad %s: %w", event.Ad.ID, err))
	}

	return errors.Join(errs...)
}

func (h *Handler) adDeleted(ctx context.Context, event kafka.Event) error {
	if event.Ad == nil || event.Ad.ID == "" {
		return fmt.Errorf("%w: %s without ad", ErrMalformedEvent, event.Type)
	}
	if h.Indexer == nil {
		return nil
	}

	if err := h.Indexer.RemoveAd(ctx, event.Ad.ID); err != nil {
		return fmt.Errorf("remove ad %s from index: %w", event.Ad.ID, err)
	}

	return nil
}
