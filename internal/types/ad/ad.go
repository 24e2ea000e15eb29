package ad

import (
	"encoding/json"
	"math"

	"vape-market/internal/ad"
	"vape-market/internal/rating"
	myErr "vape-market/internal/types/errors"
)

// DeleteAd - форма удаления объявления
type DeleteAd struct {
	AdID   string `json:"adId"`
	UserID string `json:"userId"`
}

// Missing возвращает незаполненные поля формы
func (d DeleteAd) Missing() []string {
	var missing []string
	if d.AdID == "" {
		missing = append(missing, "adId")
	}
	if d.UserID == "" {
		missing = append(missing, "userId")
	}

	return missing
}

// RateSeller - форма оценки продавца
type RateSeller struct {
	SellerID string `json:"sellerId"`
	UserID   string `json:"userId"`
	Rating   int    `json:"rating"`
}

// UnmarshalJSON принимает оценку числом или строкой с числом.
// Оценки целые: дробное значение дает ErrInvalidRating, а не общую ошибку JSON.
func (r *RateSeller) UnmarshalJSON(data []byte) error {
	type plain RateSeller
	var raw struct {
		plain
		Rating json.Number `json:"rating"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = RateSeller(raw.plain)
	r.Rating = 0
	if raw.Rating == "" {
		return nil
	}

	value, err := raw.Rating.Float64()
	if err != nil || value != math.Trunc(value) || math.Abs(value) > math.MaxInt32 {
		return myErr.ErrInvalidRating
	}
	r.Rating = int(value)

	return nil
}

// Missing возвращает незаполненные поля формы, нулевая оценка считается отсутствующей
func (r RateSeller) Missing() []string {
	var missing []string
	if r.SellerID == "" {
		missing = append(missing, "sellerId")
	}
	if r.UserID == "" {
		missing = append(missing, "userId")
	}
	if r.Rating == 0 {
		missing = append(missing, "rating")
	}

	return missing
}

// AdsResponse - ответ со списком объявлений
type AdsResponse struct {
	Success bool    `json:"success"`
	Ads     []ad.Ad `json:"ads"`
	Total   int     `json:"total"`
}

// RatingsResponse - ответ с картой оценок
type RatingsResponse struct {
	Success bool           `json:"success"`
	Ratings rating.Ratings `json:"ratings"`
}

// MutationResponse - ответ на публикацию, удаление и оценку
type MutationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Ad      *ad.Ad `json:"ad,omitempty"`
	Total   *int   `json:"total,omitempty"`
}
