package ads

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"vape-market/internal/ad"
	"vape-market/internal/kafka"
	"vape-market/internal/rating"
	"vape-market/internal/search"
	typesAd "vape-market/internal/types/ad"
	myErr "vape-market/internal/types/errors"

	"go.uber.org/zap"
)

const (
	actionUser    = "user"
	actionRatings = "ratings"
	actionSearch  = "search"
)

// AdsHandler обслуживает единственную точку /api/ads,
// выбирая операцию по HTTP-методу и параметру action
type AdsHandler struct {
	Logger     *zap.SugaredLogger
	AdRepo     ad.AdRepo
	RatingRepo rating.RatingRepo
	Searcher   search.Searcher
	Producer   kafka.EventProducer
	now        func() time.Time
}

func NewAdsHandler(
	l *zap.SugaredLogger,
	ar ad.AdRepo,
	rr rating.RatingRepo,
	s search.Searcher,
	p kafka.EventProducer,
) *AdsHandler {
	if s == nil {
		s = search.NewScanSearcher(ar)
	}
	if p == nil {
		p = kafka.NopProducer{}
	}

	return &AdsHandler{
		Logger:     l,
		AdRepo:     ar,
		RatingRepo: rr,
		Searcher:   s,
		Producer:   p,
		now:        time.Now,
	}
}

func (h *AdsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		h.Get(w, r)
	case http.MethodPost:
		h.Create(w, r)
	case http.MethodPut:
		h.RateSeller(w, r)
	case http.MethodDelete:
		h.Delete(w, r)
	default:
		myErr.SendErrorTo(w, myErr.ErrMethodNotAllowed, http.StatusMethodNotAllowed, h.Logger)
	}
}

// Get handles GET /api/ads[?action=user|ratings|search]
func (h *AdsHandler) Get(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	switch action := query.Get("action"); action {
	case "":
		h.listAll(w, r)
	case actionUser:
		h.listByUser(w, r, query.Get("userId"))
	case actionRatings:
		h.ratings(w, r)
	case actionSearch:
		h.search(w, r, query.Get("q"))
	default:
		h.Logger.Warnf("unknown action: %q", action)
		myErr.SendErrorTo(w, myErr.ErrInvalidAction, http.StatusBadRequest, h.Logger)
	}
}

func (h *AdsHandler) listAll(w http.ResponseWriter, r *http.Request) {
	ads, err := h.AdRepo.ListAll(r.Context())
	if err != nil {
		myErr.SendInternalTo(w, err, h.Logger)
		return
	}

	h.sendJSON(w, http.StatusOK, typesAd.AdsResponse{Success: true, Ads: ads, Total: len(ads)})
	h.Logger.Infof("returned %d ads", len(ads))
}

func (h *AdsHandler) listByUser(w http.ResponseWriter, r *http.Request, userID string) {
	if userID == "" {
		myErr.SendErrorTo(w, myErr.ErrMissingUserID, http.StatusBadRequest, h.Logger)
		return
	}

	ads, err := h.AdRepo.ListByUser(r.Context(), userID)
	if err != nil {
		myErr.SendInternalTo(w, err, h.Logger)
		return
	}

	h.sendJSON(w, http.StatusOK, typesAd.AdsResponse{Success: true, Ads: ads, Total: len(ads)})
	h.Logger.Infow("returned user ads", "userID", userID, "count", len(ads))
}

func (h *AdsHandler) ratings(w http.ResponseWriter, r *http.Request) {
	ratings, err := h.RatingRepo.GetAll(r.Context())
	if err != nil {
		myErr.SendInternalTo(w, err, h.Logger)
		return
	}

	h.sendJSON(w, http.StatusOK, typesAd.RatingsResponse{Success: true, Ratings: ratings})
}

// search отдает только объявления, которые еще есть в окне, в порядке релевантности
func (h *AdsHandler) search(w http.ResponseWriter, r *http.Request, q string) {
	if q == "" {
		myErr.SendErrorTo(w, myErr.ErrMissingQuery, http.StatusBadRequest, h.Logger)
		return
	}

	all, err := h.AdRepo.ListAll(r.Context())
	if err != nil {
		myErr.SendInternalTo(w, err, h.Logger)
		return
	}

	byID := make(map[string]ad.Ad, len(all))
	window := make([]string, 0, len(all))
	for _, a := range all {
		byID[a.ID] = a
		window = append(window, a.ID)
	}

	ids, err := h.Searcher.SearchAds(r.Context(), q, window)
	if err != nil {
		myErr.SendInternalTo(w, err, h.Logger)
		return
	}

	found := []ad.Ad{}
	for _, id := range ids {
		if a, ok := byID[id]; ok {
			found = append(found, a)
			delete(byID, id)
		}
	}

	h.sendJSON(w, http.StatusOK, typesAd.AdsResponse{Success: true, Ads: found, Total: len(found)})
	h.Logger.Infof("searched ads with query: %s", q)
}

// Create handles POST /api/ads
func (h *AdsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input ad.Ad
	if err := decodeBody(r, &input); err != nil {
		myErr.SendErrorTo(w, err, http.StatusBadRequest, h.Logger)
		return
	}

	if missing := ad.MissingFields(input); len(missing) > 0 {
		myErr.SendErrorTo(w, myErr.NewValidationError(missing), http.StatusBadRequest, h.Logger)
		return
	}

	stored, total, err := h.AdRepo.Insert(r.Context(), input)
	if err != nil {
		myErr.SendInternalTo(w, err, h.Logger)
		return
	}

	h.publish(r.Context(), kafka.Event{
		Type:      kafka.EventTypeAdCreated,
		Ad:        stored,
		SellerID:  stored.SellerID,
		Timestamp: h.now(),
	})

	h.sendJSON(w, http.StatusCreated, typesAd.MutationResponse{
		Success: true,
		Message: "ad published",
		Ad:      stored,
		Total:   &total,
	})
	h.Logger.Infow("ad published", "adID", stored.ID, "sellerID", stored.SellerID)
}

// RateSeller handles PUT /api/ads
func (h *AdsHandler) RateSeller(w http.ResponseWriter, r *http.Request) {
	var input typesAd.RateSeller
	if err := decodeBody(r, &input); err != nil {
		myErr.SendErrorTo(w, err, http.StatusBadRequest, h.Logger)
		return
	}

	if missing := input.Missing(); len(missing) > 0 {
		myErr.SendErrorTo(w, myErr.NewValidationError(missing), http.StatusBadRequest, h.Logger)
		return
	}

	if err := h.RatingRepo.Set(r.Context(), input.SellerID, input.UserID, input.Rating); err != nil {
		myErr.SendInternalTo(w, err, h.Logger)
		return
	}

	h.publish(r.Context(), kafka.Event{
		Type:      kafka.EventTypeRatingUpdated,
		SellerID:  input.SellerID,
		RaterID:   input.UserID,
		Rating:    input.Rating,
		Timestamp: h.now(),
	})

	h.sendJSON(w, http.StatusOK, typesAd.MutationResponse{Success: true, Message: "rating updated"})
	h.Logger.Infow("rating updated", "sellerID", input.SellerID, "raterID", input.UserID, "rating", input.Rating)
}

// Delete handles DELETE /api/ads
func (h *AdsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var input typesAd.DeleteAd
	if err := decodeBody(r, &input); err != nil {
		myErr.SendErrorTo(w, err, http.StatusBadRequest, h.Logger)
		return
	}

	if missing := input.Missing(); len(missing) > 0 {
		myErr.SendErrorTo(w, myErr.NewValidationError(missing), http.StatusBadRequest, h.Logger)
		return
	}

	deleted, total, err := h.AdRepo.Remove(r.Context(), input.AdID, input.UserID)
	if err != nil {
		if errors.Is(err, myErr.ErrAdNotFoundOrForbidden) {
			myErr.SendErrorTo(w, err, http.StatusNotFound, h.Logger)
			return
		}
		myErr.SendInternalTo(w, err, h.Logger)
		return
	}

	h.publish(r.Context(), kafka.Event{
		Type:      kafka.EventTypeAdDeleted,
		Ad:        deleted,
		SellerID:  deleted.SellerID,
		Timestamp: h.now(),
	})

	h.sendJSON(w, http.StatusOK, typesAd.MutationResponse{
		Success: true,
		Message: "ad deleted",
		Ad:      deleted,
		Total:   &total,
	})
	h.Logger.Infow("ad deleted", "adID", deleted.ID, "sellerID", deleted.SellerID)
}

// publish не влияет на ответ: ошибка брокера только логируется
func (h *AdsHandler) publish(ctx context.Context, event kafka.Event) {
	if err := h.Producer.SendEvent(ctx, event); err != nil {
		h.Logger.Warnw("failed to publish event", "type", event.Type, "error", err)
	}
}

func (h *AdsHandler) sendJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.Logger.Errorf("failed to encode response: %v", err)
	}
}

func decodeBody(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return myErr.ErrEmptyBody
	}

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return myErr.ErrEmptyBody
		}
		if errors.Is(err, myErr.ErrInvalidRating) {
			return err
		}

		return myErr.ErrInvalidJSONPayload
	}

	return nil
}
