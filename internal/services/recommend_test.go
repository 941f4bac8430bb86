package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"meetspot/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecommendService(fx *fixture) domain.RecommendService {
	return NewRecommendService(fx.events, fx.participants, fx.options, newPreferenceService(fx), fx.searcher, 5, time.Second, testTimeout)
}

// seedGroup sets up an inviting event with two accepted participants whose
// preferences aggregate to italian food, budget 2-2, centroid (40, -3).
func seedGroup(fx *fixture, constraints []string) *domain.Event {
	e := fx.seedEvent("org-1", domain.StatusInviting, nil)
	fx.seedParticipant(e.ID, "user-2", domain.ParticipantAccepted)
	fx.seedParticipant(e.ID, "user-3", domain.ParticipantAccepted)
	fx.prefs.byUser["user-2"] = &domain.UserPreferences{
		UserID: "user-2", Categories: []string{"italian"},
		BudgetMin: 2, BudgetMax: 2, Constraints: constraints,
		HomeLat: floatPtr(40.0), HomeLng: floatPtr(-3.0),
	}
	fx.prefs.byUser["user-3"] = &domain.UserPreferences{
		UserID: "user-3", Categories: []string{"italian"},
		BudgetMin: 2, BudgetMax: 2,
		HomeLat: floatPtr(40.0), HomeLng: floatPtr(-3.0),
	}
	return e
}

func venue(id, name string, categories []string, price int, lat, lng float64) *domain.Venue {
	return &domain.Venue{
		PlaceID:     id,
		Name:        name,
		Categories:  categories,
		PriceLevel:  price,
		Rating:      4.5,
		RatingCount: 120,
		Lat:         lat,
		Lng:         lng,
		Attributes:  []string{"vegetarian", "wheelchair"},
	}
}

func TestRecommendService_RecommendVenues(t *testing.T) {
	ctx := context.Background()

	t.Run("ranks better fits first", func(t *testing.T) {
		fx := newFixture()
		e := seedGroup(fx, nil)
		fx.searcher.venues = []*domain.Venue{
			venue("p1", "Far Steakhouse", []string{"steakhouse"}, 4, 40.3, -3.4),
			venue("p2", "Trattoria Roma", []string{"italian"}, 2, 40.001, -3.001),
		}

		options, err := newRecommendService(fx).RecommendVenues(ctx, e.ID, "org-1")
		require.NoError(t, err)
		require.Len(t, options, 2)
		assert.Equal(t, "Trattoria Roma", options[0].Name)
		assert.Greater(t, options[0].Score, options[1].Score)
		for _, o := range options {
			assert.Equal(t, domain.OriginRecommended, o.Origin)
			assert.NotEmpty(t, o.ID)
			assert.NotEmpty(t, o.Reasoning)
		}
		// Search was centered on the preference centroid.
		require.NotNil(t, fx.searcher.gotQ)
		assert.InDelta(t, 40.0, fx.searcher.gotQ.Lat, 1e-9)
		assert.InDelta(t, -3.0, fx.searcher.gotQ.Lng, 1e-9)
	})

	t.Run("hard constraint violators are excluded", func(t *testing.T) {
		fx := newFixture()
		e := seedGroup(fx, []string{"halal"})
		declaresOther := venue("p1", "Trattoria Roma", []string{"italian"}, 2, 40.0, -3.0)
		declaresOther.Attributes = []string{"vegetarian"}
		declaresNone := venue("p2", "Osteria", []string{"italian"}, 2, 40.0, -3.0)
		declaresNone.Attributes = nil
		covers := venue("p3", "Al Noor", []string{"italian"}, 2, 40.0, -3.0)
		covers.Attributes = []string{"halal"}
		fx.searcher.venues = []*domain.Venue{declaresOther, declaresNone, covers}

		options, err := newRecommendService(fx).RecommendVenues(ctx, e.ID, "org-1")
		require.NoError(t, err)
		require.Len(t, options, 2, "the venue missing a declared constraint is dropped")
		assert.Equal(t, "Al Noor", options[0].Name)
		assert.Equal(t, "Osteria", options[1].Name)
		assert.Greater(t, options[0].Score, options[1].Score, "undeclared info is penalized")
		assert.Contains(t, options[1].Cons, "no dietary or accessibility information published")
	})

	t.Run("duplicate place ids are collapsed", func(t *testing.T) {
		fx := newFixture()
		e := seedGroup(fx, nil)
		fx.searcher.venues = []*domain.Venue{
			venue("p1", "Trattoria Roma", []string{"italian"}, 2, 40.0, -3.0),
			venue("p1", "Trattoria Roma", []string{"italian"}, 2, 40.0, -3.0),
		}

		options, err := newRecommendService(fx).RecommendVenues(ctx, e.ID, "org-1")
		require.NoError(t, err)
		require.Len(t, options, 1)
	})

	t.Run("result is capped at the limit", func(t *testing.T) {
		fx := newFixture()
		e := seedGroup(fx, nil)
		for i := 0; i < 9; i++ {
			fx.searcher.venues = append(fx.searcher.venues,
				venue(string(rune('a'+i)), "Venue "+string(rune('A'+i)), []string{"italian"}, 2, 40.0, -3.0))
		}

		options, err := newRecommendService(fx).RecommendVenues(ctx, e.ID, "org-1")
		require.NoError(t, err)
		assert.Len(t, options, 5)
	})

	t.Run("no participant locations", func(t *testing.T) {
		fx := newFixture()
		e := fx.seedEvent("org-1", domain.StatusInviting, nil)
		fx.seedParticipant(e.ID, "user-2", domain.ParticipantAccepted)

		_, err := newRecommendService(fx).RecommendVenues(ctx, e.ID, "org-1")
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("provider failure", func(t *testing.T) {
		fx := newFixture()
		e := seedGroup(fx, nil)
		fx.searcher.err = errors.New("timeout")

		_, err := newRecommendService(fx).RecommendVenues(ctx, e.ID, "org-1")
		require.ErrorIs(t, err, domain.ErrProviderUnavailable)
	})

	t.Run("locked after voting starts", func(t *testing.T) {
		fx := newFixture()
		e := fx.seedEvent("org-1", domain.StatusVoting, nil)

		_, err := newRecommendService(fx).RecommendVenues(ctx, e.ID, "org-1")
		var ite *domain.InvalidTransitionError
		require.True(t, errors.As(err, &ite))
	})

	t.Run("non-organizer forbidden", func(t *testing.T) {
		fx := newFixture()
		e := seedGroup(fx, nil)

		_, err := newRecommendService(fx).RecommendVenues(ctx, e.ID, "user-2")
		require.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestRecommendService_AddOption(t *testing.T) {
	ctx := context.Background()

	t.Run("manual venue goes through scoring", func(t *testing.T) {
		fx := newFixture()
		e := seedGroup(fx, nil)
		v := venue("", "Chez Marie", []string{"italian"}, 2, 40.0, -3.0)

		opt, err := newRecommendService(fx).AddOption(ctx, e.ID, "org-1", v, domain.OriginManual)
		require.NoError(t, err)
		assert.Equal(t, domain.OriginManual, opt.Origin)
		assert.NotEmpty(t, opt.PlaceRef, "manual venues get a generated place ref")
		assert.Greater(t, opt.Score, 0.0)
		assert.NotEmpty(t, opt.Reasoning)
	})

	t.Run("constraint violation penalized not refused", func(t *testing.T) {
		fx := newFixture()
		e := seedGroup(fx, []string{"halal"})
		svc := newRecommendService(fx)

		ok := venue("p1", "Al Noor", []string{"italian"}, 2, 40.0, -3.0)
		ok.Attributes = []string{"halal"}
		good, err := svc.AddOption(ctx, e.ID, "org-1", ok, domain.OriginManual)
		require.NoError(t, err)

		bad := venue("p2", "Trattoria Roma", []string{"italian"}, 2, 40.0, -3.0)
		bad.Attributes = []string{"vegetarian"}
		penalized, err := svc.AddOption(ctx, e.ID, "org-1", bad, domain.OriginManual)
		require.NoError(t, err)
		assert.Less(t, penalized.Score, good.Score)
		assert.Contains(t, penalized.Cons, "does not accommodate: halal")
	})

	t.Run("same venue twice is a duplicate", func(t *testing.T) {
		fx := newFixture()
		e := seedGroup(fx, nil)
		svc := newRecommendService(fx)

		_, err := svc.AddOption(ctx, e.ID, "org-1", venue("p1", "Trattoria Roma", []string{"italian"}, 2, 40.0, -3.0), domain.OriginManual)
		require.NoError(t, err)
		_, err = svc.AddOption(ctx, e.ID, "org-1", venue("p1", "Trattoria Roma", []string{"italian"}, 2, 40.0, -3.0), domain.OriginManual)
		require.ErrorIs(t, err, domain.ErrDuplicateOption)
	})

	t.Run("recommended origin is not accepted here", func(t *testing.T) {
		fx := newFixture()
		e := seedGroup(fx, nil)

		_, err := newRecommendService(fx).AddOption(ctx, e.ID, "org-1", venue("p1", "X", nil, 2, 40, -3), domain.OriginRecommended)
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestRecommendService_ListOptions(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	e := fx.seedEvent("org-1", domain.StatusVoting, nil)
	fx.seedParticipant(e.ID, "user-2", domain.ParticipantAccepted)
	fx.seedOption(e.ID, "Cafe Luna", 70, time.Now())
	svc := newRecommendService(fx)

	options, err := svc.ListOptions(ctx, e.ID, "org-1")
	require.NoError(t, err)
	require.Len(t, options, 1)

	options, err = svc.ListOptions(ctx, e.ID, "user-2")
	require.NoError(t, err)
	require.Len(t, options, 1)

	_, err = svc.ListOptions(ctx, e.ID, "stranger")
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestExtractFeatures(t *testing.T) {
	agg := &domain.AggregatedPreferences{
		Categories:  []domain.WeightedCategory{{Name: "italian", Count: 3}, {Name: "sushi", Count: 1}},
		BudgetMin:   2,
		BudgetMax:   3,
		Locations:   []domain.GeoPoint{{Lat: 40.0, Lng: -3.0}},
		Constraints: []string{},
	}

	t.Run("category fit is participant weighted", func(t *testing.T) {
		f := extractFeatures(venue("p1", "X", []string{"Italian"}, 2, 40.0, -3.0), agg)
		assert.InDelta(t, 0.75, f.CategoryFit, 1e-9, "3 of 4 preference counts matched, case-insensitive")
		assert.Equal(t, []string{"italian"}, f.MatchedCategories)
	})

	t.Run("price fit falls off outside the band", func(t *testing.T) {
		inside := extractFeatures(venue("p1", "X", nil, 3, 40, -3), agg)
		oneOff := extractFeatures(venue("p1", "X", nil, 4, 40, -3), agg)
		unknown := extractFeatures(venue("p1", "X", nil, 0, 40, -3), agg)
		assert.Equal(t, 1.0, inside.PriceFit)
		assert.InDelta(t, 0.6, oneOff.PriceFit, 1e-9)
		assert.Equal(t, 0.5, unknown.PriceFit)
	})

	t.Run("same point has full distance fit", func(t *testing.T) {
		f := extractFeatures(venue("p1", "X", nil, 2, 40.0, -3.0), agg)
		assert.InDelta(t, 1.0, f.DistanceFit, 1e-6)
		assert.True(t, f.HasDistance)
	})

	t.Run("score stays within bounds", func(t *testing.T) {
		best := venueFeatures{CategoryFit: 1, PriceFit: 1, DistanceFit: 1, QualityFit: 1}
		worst := venueFeatures{}
		assert.Equal(t, 100.0, scoreFromFeatures(best))
		assert.Equal(t, 0.0, scoreFromFeatures(worst))
	})
}

func TestHaversineKm(t *testing.T) {
	// Madrid to Barcelona is roughly 505 km.
	d := haversineKm(40.4168, -3.7038, 41.3874, 2.1686)
	assert.InDelta(t, 505, d, 10)
	assert.Equal(t, 0.0, haversineKm(40, -3, 40, -3))
}
