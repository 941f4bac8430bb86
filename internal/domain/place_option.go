package domain

import (
	"context"
	"time"
)

// OptionOrigin records how a candidate venue entered the event.
type OptionOrigin string

const (
	OriginRecommended OptionOrigin = "recommended"
	OriginManual      OptionOrigin = "manual"
	OriginConverted   OptionOrigin = "converted"
)

// EventPlaceOption is a candidate venue under consideration for an event.
// Score, reasoning, pros, and cons are computed from the same feature vector
// and are recomputable; they are stored for display, not as ground truth.
// swagger:model EventPlaceOption
type EventPlaceOption struct {
	ID         string       `json:"id"`
	EventID    string       `json:"event_id"`
	PlaceRef   string       `json:"place_ref"`
	Name       string       `json:"name"`
	Address    string       `json:"address"`
	Origin     OptionOrigin `json:"origin"`
	Score      float64      `json:"score"`
	Reasoning  string       `json:"reasoning"`
	Pros       []string     `json:"pros"`
	Cons       []string     `json:"cons"`
	PriceLevel int          `json:"price_level"`
	Rating     float64      `json:"rating"`
	Lat        float64      `json:"lat"`
	Lng        float64      `json:"lng"`
	CreatedAt  time.Time    `json:"created_at"`
}

// PlaceOptionRepository defines storage operations for candidate venues.
// (event_id, place_ref) is unique: proposing the same venue twice is a
// conflict, not a second row.
type PlaceOptionRepository interface {
	Create(ctx context.Context, o *EventPlaceOption) error
	GetByEventAndID(ctx context.Context, eventID, id string) (*EventPlaceOption, error)
	ListByEventID(ctx context.Context, eventID string) ([]*EventPlaceOption, error)
}

// RecommendService scores candidate venues against aggregated preferences
// and manages the event's option list.
type RecommendService interface {
	// RecommendVenues searches around the preference centroid, scores each
	// candidate locally, and stores the top-ranked options. A provider search
	// failure or timeout surfaces as ErrProviderUnavailable; candidates that
	// miss a hard constraint are skipped.
	RecommendVenues(ctx context.Context, eventID, organizerID string) ([]*EventPlaceOption, error)

	// AddOption scores a manually supplied or externally converted venue
	// through the same scoring path as recommendations.
	AddOption(ctx context.Context, eventID, organizerID string, v *Venue, origin OptionOrigin) (*EventPlaceOption, error)

	ListOptions(ctx context.Context, eventID, callerID string) ([]*EventPlaceOption, error)
}
