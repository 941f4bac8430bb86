package domain

import "context"

// Venue is a candidate place as returned by the search provider or entered
// manually by the organizer. PriceLevel 0 means unknown.
type Venue struct {
	PlaceID     string   `json:"place_id"`
	Name        string   `json:"name"`
	Address     string   `json:"address"`
	Categories  []string `json:"categories"`
	PriceLevel  int      `json:"price_level"`
	Rating      float64  `json:"rating"`
	RatingCount int      `json:"rating_count"`
	Lat         float64  `json:"lat"`
	Lng         float64  `json:"lng"`

	// Attributes lists dietary/accessibility accommodations the venue
	// declares (e.g. "vegetarian", "wheelchair"). An empty list means the
	// venue published no such information.
	Attributes []string `json:"attributes"`
}

// VenueQuery describes a nearby search around a point.
type VenueQuery struct {
	Lat        float64
	Lng        float64
	RadiusM    int
	Categories []string
	Limit      int
}

// VenueSearcher is the external place-search provider. Implementations must
// honor ctx cancellation and deadlines; callers treat failures as
// ErrProviderUnavailable and degrade per candidate rather than failing whole
// batches.
type VenueSearcher interface {
	Search(ctx context.Context, q VenueQuery) ([]*Venue, error)
}
