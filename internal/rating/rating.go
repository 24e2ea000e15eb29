package rating

import "context"

// Ratings - оценки продавцов: sellerID -> raterID -> оценка
type Ratings map[string]map[string]int

// Clone возвращает глубокую копию карты оценок
func (r Ratings) Clone() Ratings {
	out := make(Ratings, len(r))
	for sellerID, raters := range r {
		inner := make(map[string]int, len(raters))
		for raterID, value := range raters {
			inner[raterID] = value
		}
		out[sellerID] = inner
	}

	return out
}

// Set перезаписывает оценку пары (продавец, оценщик), создавая карту продавца при необходимости
func (r Ratings) Set(sellerID, raterID string, value int) {
	if r[sellerID] == nil {
		r[sellerID] = make(map[string]int)
	}
	r[sellerID][raterID] = value
}

type RatingRepo interface {
	// GetAll - вся карта оценок без агрегации
	GetAll(ctx context.Context) (Ratings, error)

	// Set - идемпотентно перезаписывает оценку продавца от конкретного пользователя
	Set(ctx context.Context, sellerID, raterID string, value int) error
}
