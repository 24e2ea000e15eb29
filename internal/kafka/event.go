package kafka

import (
	"time"

	"vape-market/internal/ad"
)

type EventType string

const (
	EventTypeAdCreated     EventType = "ad_created"
	EventTypeAdDeleted     EventType = "ad_deleted"
	EventTypeRatingUpdated EventType = "rating_updated"
)

// Event описывает изменение хранилища объявлений
type Event struct {
	Type      EventType `json:"type"`
	Ad        *ad.Ad    `json:"ad,omitempty"`
	SellerID  string    `json:"seller_id,omitempty"`
	RaterID   string    `json:"rater_id,omitempty"`
	Rating    int       `json:"rating,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
