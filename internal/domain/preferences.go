package domain

import "context"

// UserPreferences is a user's stored dining/outing preference record.
// Budget levels use the 1 (cheap) to 4 (splurge) price scale.
type UserPreferences struct {
	UserID      string   `json:"user_id"`
	Categories  []string `json:"categories"`
	BudgetMin   int      `json:"budget_min"`
	BudgetMax   int      `json:"budget_max"`
	Constraints []string `json:"constraints"`
	HomeLat     *float64 `json:"home_lat,omitempty"`
	HomeLng     *float64 `json:"home_lng,omitempty"`
}

// GeoPoint is a WGS84 coordinate.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// WeightedCategory is a category together with how many participants want it.
type WeightedCategory struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// AggregatedPreferences is the derived, event-scoped reduction of all
// participants' preferences. It is ephemeral: recomputed whenever the
// participant set changes, never persisted.
type AggregatedPreferences struct {
	Participants int                `json:"participants"`
	Categories   []WeightedCategory `json:"categories"`
	BudgetMin    int                `json:"budget_min"`
	BudgetMax    int                `json:"budget_max"`
	Centroid     *GeoPoint          `json:"centroid,omitempty"`
	Locations    []GeoPoint         `json:"locations"`
	Constraints  []string           `json:"constraints"`
}

// PreferenceRepository is read-only access to stored preference records.
// Users without a record are simply absent from the result.
type PreferenceRepository interface {
	ListByUserIDs(ctx context.Context, userIDs []string) ([]*UserPreferences, error)
}

// PreferenceService reduces participant preferences into one aggregate.
type PreferenceService interface {
	// Aggregate includes invited and accepted participants; decliners and
	// removed users are excluded. Deterministic for an unchanged input set.
	Aggregate(ctx context.Context, eventID string) (*AggregatedPreferences, error)
}
