package ad

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	idPrefix       = "ad_"
	idSuffixLength = 9
)

// Ad - объявление маркетплейса
type Ad struct {
	ID          string    `json:"id"`
	SellerID    string    `json:"sellerId"`
	SellerName  string    `json:"sellerName,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"createdAt"`
	Likes       int       `json:"likes"`
	Dislikes    int       `json:"dislikes"`
	PhotoURLs   []string  `json:"photoUrls"`
	Photos      int       `json:"photos"`
}

type AdRepo interface {
	// ListAll - все объявления окна, сначала новые
	ListAll(ctx context.Context) ([]Ad, error)

	// ListByUser - объявления конкретного продавца
	ListByUser(ctx context.Context, sellerID string) ([]Ad, error)

	// Insert - сохраняет объявление, проставляя недостающие поля
	// Возвращает сохраненное объявление и новый размер окна
	Insert(ctx context.Context, a Ad) (*Ad, int, error)

	// Remove - удаляет объявление, если requesterID является владельцем
	// Возвращает удаленное объявление и новый размер окна
	Remove(ctx context.Context, adID, requesterID string) (*Ad, int, error)
}

// NewID генерирует идентификатор вида ad_<unix millis>_<9 символов>
func NewID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:idSuffixLength]

	return fmt.Sprintf("%s%d_%s", idPrefix, now.UnixMilli(), suffix)
}

// ApplyDefaults заполняет генерируемые поля, если клиент их не передал
func ApplyDefaults(a *Ad, now time.Time) {
	if a.ID == "" {
		a.ID = NewID(now)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now.UTC()
	}
	if a.PhotoURLs == nil {
		a.PhotoURLs = []string{}
	}
}

// MissingFields возвращает обязательные поля, которые не заполнены
func MissingFields(a Ad) []string {
	var missing []string

	if a.SellerID == "" {
		missing = append(missing, "sellerId")
	}
	if a.Title == "" {
		missing = append(missing, "title")
	}
	if a.Price == 0 {
		missing = append(missing, "price")
	}
	if a.Category == "" {
		missing = append(missing, "category")
	}

	return missing
}

// Clone копирует объявление вместе со срезом фотографий
func (a Ad) Clone() Ad {
	if a.PhotoURLs != nil {
		a.PhotoURLs = append([]string{}, a.PhotoURLs...)
	}

	return a
}
