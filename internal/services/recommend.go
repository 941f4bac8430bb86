package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"meetspot/internal/domain"
)

// Scoring weights. Quality is deliberately the smallest: an excellent rating
// can break ties but never outvote preference and distance fit.
const (
	weightCategory = 0.40
	weightPrice    = 0.25
	weightDistance = 0.25
	weightQuality  = 0.10

	// Distance fit reaches zero at this mean distance from participants.
	maxComfortableKm = 25.0

	// Penalty multiplier for venues that published no dietary/accessibility
	// information while the group has hard constraints.
	undeclaredConstraintFactor = 0.7

	// Penalty multiplier applied instead of exclusion when the organizer
	// manually adds a venue that misses a hard constraint.
	violatedConstraintFactor = 0.3
)

// venueFeatures is the shared intermediate both the numeric score and the
// reasoning text are derived from, so the two can never drift apart.
type venueFeatures struct {
	CategoryFit float64
	PriceFit    float64
	DistanceFit float64
	QualityFit  float64

	MatchedCategories  []string
	MeanDistanceKm     float64
	HasDistance        bool
	MissingConstraints []string
	DeclaredNone       bool
}

// extractFeatures computes the feature vector for one venue against the
// aggregated preferences. Pure; no shared state, safe to run per candidate
// in parallel.
func extractFeatures(v *domain.Venue, agg *domain.AggregatedPreferences) venueFeatures {
	f := venueFeatures{}

	// Category/interest match: participant-weighted overlap.
	if len(agg.Categories) > 0 {
		venueCats := make(map[string]struct{}, len(v.Categories))
		for _, c := range v.Categories {
			venueCats[strings.ToLower(c)] = struct{}{}
		}
		var matched, total int
		for _, wc := range agg.Categories {
			total += wc.Count
			if _, ok := venueCats[strings.ToLower(wc.Name)]; ok {
				matched += wc.Count
				f.MatchedCategories = append(f.MatchedCategories, wc.Name)
			}
		}
		if total > 0 {
			f.CategoryFit = float64(matched) / float64(total)
		}
	} else {
		// No stated interests: every venue fits equally.
		f.CategoryFit = 0.5
	}

	// Price fit: 1.0 inside the budget band, linear falloff per level outside.
	switch {
	case v.PriceLevel == 0:
		f.PriceFit = 0.5
	case v.PriceLevel >= agg.BudgetMin && v.PriceLevel <= agg.BudgetMax:
		f.PriceFit = 1.0
	default:
		var off int
		if v.PriceLevel < agg.BudgetMin {
			off = agg.BudgetMin - v.PriceLevel
		} else {
			off = v.PriceLevel - agg.BudgetMax
		}
		f.PriceFit = math.Max(0, 1.0-float64(off)*0.4)
	}

	// Travel cost: mean distance from participant locations, inverse-weighted.
	if len(agg.Locations) > 0 {
		var sum float64
		for _, loc := range agg.Locations {
			sum += haversineKm(loc.Lat, loc.Lng, v.Lat, v.Lng)
		}
		f.MeanDistanceKm = sum / float64(len(agg.Locations))
		f.HasDistance = true
		f.DistanceFit = math.Max(0, 1.0-f.MeanDistanceKm/maxComfortableKm)
	} else {
		f.DistanceFit = 0.5
	}

	// Quality signal: rating scaled by review volume confidence.
	if v.Rating > 0 {
		confidence := math.Min(1.0, float64(v.RatingCount)/50.0)
		f.QualityFit = (v.Rating / 5.0) * confidence
	}

	// Hard constraints: a venue that declares accommodations must cover all
	// of them; one that declares none is merely penalized.
	if len(agg.Constraints) > 0 {
		if len(v.Attributes) == 0 {
			f.DeclaredNone = true
		} else {
			declared := make(map[string]struct{}, len(v.Attributes))
			for _, a := range v.Attributes {
				declared[strings.ToLower(a)] = struct{}{}
			}
			for _, c := range agg.Constraints {
				if _, ok := declared[strings.ToLower(c)]; !ok {
					f.MissingConstraints = append(f.MissingConstraints, c)
				}
			}
		}
	}
	return f
}

// scoreFromFeatures folds the feature vector into a bounded 0-100 score.
func scoreFromFeatures(f venueFeatures) float64 {
	score := 100 * (weightCategory*f.CategoryFit +
		weightPrice*f.PriceFit +
		weightDistance*f.DistanceFit +
		weightQuality*f.QualityFit)
	if len(f.MissingConstraints) > 0 {
		score *= violatedConstraintFactor
	} else if f.DeclaredNone {
		score *= undeclaredConstraintFactor
	}
	return math.Round(score*10) / 10
}

// explainFeatures renders reasoning, pros, and cons from the same features
// that produced the score.
func explainFeatures(v *domain.Venue, f venueFeatures) (reasoning string, pros, cons []string) {
	var parts []string

	switch {
	case f.CategoryFit >= 0.6:
		parts = append(parts, fmt.Sprintf("matches the group's top interests (%s)", strings.Join(f.MatchedCategories, ", ")))
		pros = append(pros, "strong match for the group's interests")
	case f.CategoryFit >= 0.3:
		parts = append(parts, "partially matches the group's interests")
	default:
		parts = append(parts, "little overlap with the group's stated interests")
		cons = append(cons, "few of the group's preferred categories")
	}

	switch {
	case f.PriceFit >= 1.0:
		parts = append(parts, "sits inside the shared budget range")
		pros = append(pros, "fits the group budget")
	case f.PriceFit >= 0.6:
		parts = append(parts, "is close to the shared budget range")
	default:
		parts = append(parts, "is priced outside the shared budget range")
		cons = append(cons, "outside the preferred price range")
	}

	if f.HasDistance {
		parts = append(parts, fmt.Sprintf("averages %.1f km from participants", f.MeanDistanceKm))
		if f.DistanceFit >= 0.7 {
			pros = append(pros, "short trip for most participants")
		} else if f.DistanceFit < 0.3 {
			cons = append(cons, "long trip for most participants")
		}
	}

	if f.QualityFit >= 0.8 {
		pros = append(pros, fmt.Sprintf("highly rated (%.1f from %d reviews)", v.Rating, v.RatingCount))
	}

	if len(f.MissingConstraints) > 0 {
		cons = append(cons, fmt.Sprintf("does not accommodate: %s", strings.Join(f.MissingConstraints, ", ")))
	} else if f.DeclaredNone {
		cons = append(cons, "no dietary or accessibility information published")
	}

	return v.Name + " " + strings.Join(parts, "; ") + ".", pros, cons
}

func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusKm = 6371.0
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

type recommendService struct {
	eventRepo       domain.EventRepository
	participantRepo domain.ParticipantRepository
	optionRepo      domain.PlaceOptionRepository
	preferences     domain.PreferenceService
	searcher        domain.VenueSearcher
	limit           int
	searchTimeout   time.Duration
	contextTimeout  time.Duration
}

func NewRecommendService(
	eventRepo domain.EventRepository,
	participantRepo domain.ParticipantRepository,
	optionRepo domain.PlaceOptionRepository,
	preferences domain.PreferenceService,
	searcher domain.VenueSearcher,
	limit int,
	searchTimeout time.Duration,
	timeout time.Duration,
) domain.RecommendService {
	return &recommendService{
		eventRepo:       eventRepo,
		participantRepo: participantRepo,
		optionRepo:      optionRepo,
		preferences:     preferences,
		searcher:        searcher,
		limit:           limit,
		searchTimeout:   searchTimeout,
		contextTimeout:  timeout,
	}
}

// optionsOpen reports whether candidate venues may still be added.
func optionsOpen(status domain.EventStatus) bool {
	switch status {
	case domain.StatusPlanning, domain.StatusInviting:
		return true
	}
	return false
}

func (s *recommendService) RecommendVenues(ctx context.Context, eventID, organizerID string) ([]*domain.EventPlaceOption, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.OrganizerID != organizerID {
		return nil, domain.ErrForbidden
	}
	if !optionsOpen(event.Status) {
		return nil, &domain.InvalidTransitionError{From: event.Status, To: event.Status, Guard: "candidate venues are locked in this status"}
	}

	agg, err := s.preferences.Aggregate(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if agg.Centroid == nil {
		return nil, fmt.Errorf("no participant locations to search around: %w", domain.ErrInvalidInput)
	}

	query := domain.VenueQuery{
		Lat:     agg.Centroid.Lat,
		Lng:     agg.Centroid.Lng,
		RadiusM: int(maxComfortableKm * 1000),
		Limit:   s.limit * 3,
	}
	for _, c := range agg.Categories {
		query.Categories = append(query.Categories, c.Name)
	}

	searchCtx, searchCancel := context.WithTimeout(ctx, s.searchTimeout)
	defer searchCancel()
	venues, err := s.searcher.Search(searchCtx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}

	// Candidate evaluations share nothing mutable; score them in parallel.
	type scored struct {
		venue    *domain.Venue
		features venueFeatures
		score    float64
		exclude  bool
	}
	results := make([]scored, len(venues))
	var wg sync.WaitGroup
	for i, v := range venues {
		wg.Add(1)
		go func(i int, v *domain.Venue) {
			defer wg.Done()
			if v == nil {
				results[i] = scored{exclude: true}
				return
			}
			f := extractFeatures(v, agg)
			results[i] = scored{
				venue:    v,
				features: f,
				score:    scoreFromFeatures(f),
				// Venues that declare accommodations but miss a hard
				// constraint are excluded from recommendations outright.
				exclude: len(f.MissingConstraints) > 0,
			}
		}(i, v)
	}
	wg.Wait()

	// Dedupe by venue identity, keeping the first occurrence.
	seen := make(map[string]struct{})
	kept := results[:0]
	for _, r := range results {
		if r.exclude {
			continue
		}
		key := r.venue.PlaceID
		if key == "" {
			key = strings.ToLower(r.venue.Name)
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, r)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].score != kept[j].score {
			return kept[i].score > kept[j].score
		}
		return kept[i].venue.Name < kept[j].venue.Name
	})
	if len(kept) > s.limit {
		kept = kept[:s.limit]
	}

	now := time.Now()
	options := make([]*domain.EventPlaceOption, 0, len(kept))
	for _, r := range kept {
		opt := buildOption(eventID, r.venue, r.features, r.score, domain.OriginRecommended, now)
		if err := s.optionRepo.Create(ctx, opt); err != nil {
			// The venue was already proposed; keep the existing row.
			if errors.Is(err, domain.ErrDuplicateOption) {
				continue
			}
			return nil, fmt.Errorf("store option: %w", err)
		}
		options = append(options, opt)
	}
	return options, nil
}

func (s *recommendService) AddOption(ctx context.Context, eventID, organizerID string, v *domain.Venue, origin domain.OptionOrigin) (*domain.EventPlaceOption, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.OrganizerID != organizerID {
		return nil, domain.ErrForbidden
	}
	if !optionsOpen(event.Status) {
		return nil, &domain.InvalidTransitionError{From: event.Status, To: event.Status, Guard: "candidate venues are locked in this status"}
	}
	if v == nil || v.Name == "" {
		return nil, fmt.Errorf("venue name is required: %w", domain.ErrInvalidInput)
	}
	if origin != domain.OriginManual && origin != domain.OriginConverted {
		return nil, fmt.Errorf("unsupported option origin %q: %w", origin, domain.ErrInvalidInput)
	}

	// Manual and converted candidates go through the same scoring path as
	// recommendations so all options stay comparable. Organizer-added venues
	// that violate a hard constraint are penalized, not refused.
	agg, err := s.preferences.Aggregate(ctx, eventID)
	if err != nil {
		return nil, err
	}
	f := extractFeatures(v, agg)
	score := scoreFromFeatures(f)

	if v.PlaceID == "" {
		v.PlaceID = uuid.NewString()
	}
	opt := buildOption(eventID, v, f, score, origin, time.Now())
	if err := s.optionRepo.Create(ctx, opt); err != nil {
		if errors.Is(err, domain.ErrDuplicateOption) {
			return nil, domain.ErrDuplicateOption
		}
		return nil, fmt.Errorf("store option: %w", err)
	}
	return opt, nil
}

func (s *recommendService) ListOptions(ctx context.Context, eventID, callerID string) ([]*domain.EventPlaceOption, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.OrganizerID != callerID {
		if _, err := s.participantRepo.GetByEventAndUser(ctx, eventID, callerID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrForbidden
			}
			return nil, fmt.Errorf("get participant: %w", err)
		}
	}
	options, err := s.optionRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list options: %w", err)
	}
	if options == nil {
		options = []*domain.EventPlaceOption{}
	}
	return options, nil
}

func buildOption(eventID string, v *domain.Venue, f venueFeatures, score float64, origin domain.OptionOrigin, now time.Time) *domain.EventPlaceOption {
	reasoning, pros, cons := explainFeatures(v, f)
	if pros == nil {
		pros = []string{}
	}
	if cons == nil {
		cons = []string{}
	}
	return &domain.EventPlaceOption{
		EventID:    eventID,
		PlaceRef:   v.PlaceID,
		Name:       v.Name,
		Address:    v.Address,
		Origin:     origin,
		Score:      score,
		Reasoning:  reasoning,
		Pros:       pros,
		Cons:       cons,
		PriceLevel: v.PriceLevel,
		Rating:     v.Rating,
		Lat:        v.Lat,
		Lng:        v.Lng,
		CreatedAt:  now,
	}
}
