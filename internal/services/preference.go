package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"meetspot/internal/domain"
)

// Price levels run 1 (cheap) to 4 (splurge).
const (
	minPriceLevel = 1
	maxPriceLevel = 4
)

type preferenceService struct {
	eventRepo       domain.EventRepository
	participantRepo domain.ParticipantRepository
	preferenceRepo  domain.PreferenceRepository
	contextTimeout  time.Duration
}

func NewPreferenceService(
	eventRepo domain.EventRepository,
	participantRepo domain.ParticipantRepository,
	preferenceRepo domain.PreferenceRepository,
	timeout time.Duration,
) domain.PreferenceService {
	return &preferenceService{
		eventRepo:       eventRepo,
		participantRepo: participantRepo,
		preferenceRepo:  preferenceRepo,
		contextTimeout:  timeout,
	}
}

func (s *preferenceService) Aggregate(ctx context.Context, eventID string) (*domain.AggregatedPreferences, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}

	// Decliners and removed users will not attend; their preferences carry
	// no weight.
	participants, err := s.participantRepo.ListByEventAndStatuses(ctx, eventID, []domain.ParticipantStatus{
		domain.ParticipantInvited, domain.ParticipantAccepted,
	})
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	userIDs := make([]string, 0, len(participants))
	for _, p := range participants {
		userIDs = append(userIDs, p.UserID)
	}

	var prefs []*domain.UserPreferences
	if len(userIDs) > 0 {
		prefs, err = s.preferenceRepo.ListByUserIDs(ctx, userIDs)
		if err != nil {
			return nil, fmt.Errorf("load preferences: %w", err)
		}
	}
	return reducePreferences(len(participants), prefs), nil
}

// reducePreferences deterministically folds individual preference records
// into one aggregate. Same input set, same output.
func reducePreferences(participantCount int, prefs []*domain.UserPreferences) *domain.AggregatedPreferences {
	agg := &domain.AggregatedPreferences{
		Participants: participantCount,
		Categories:   []domain.WeightedCategory{},
		Locations:    []domain.GeoPoint{},
		Constraints:  []string{},
	}

	categoryCounts := make(map[string]int)
	constraints := make(map[string]struct{})
	var budgets []domain.UserPreferences
	var latSum, lngSum float64

	for _, p := range prefs {
		seen := make(map[string]struct{})
		for _, c := range p.Categories {
			if c == "" {
				continue
			}
			// One participant counts a category once.
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			categoryCounts[c]++
		}
		for _, c := range p.Constraints {
			if c != "" {
				constraints[c] = struct{}{}
			}
		}
		if p.BudgetMin >= minPriceLevel && p.BudgetMax <= maxPriceLevel && p.BudgetMin <= p.BudgetMax {
			budgets = append(budgets, *p)
		}
		if p.HomeLat != nil && p.HomeLng != nil {
			pt := domain.GeoPoint{Lat: *p.HomeLat, Lng: *p.HomeLng}
			agg.Locations = append(agg.Locations, pt)
			latSum += pt.Lat
			lngSum += pt.Lng
		}
	}

	for name, count := range categoryCounts {
		agg.Categories = append(agg.Categories, domain.WeightedCategory{Name: name, Count: count})
	}
	sort.Slice(agg.Categories, func(i, j int) bool {
		if agg.Categories[i].Count != agg.Categories[j].Count {
			return agg.Categories[i].Count > agg.Categories[j].Count
		}
		return agg.Categories[i].Name < agg.Categories[j].Name
	})

	for c := range constraints {
		agg.Constraints = append(agg.Constraints, c)
	}
	sort.Strings(agg.Constraints)

	agg.BudgetMin, agg.BudgetMax = majorityBudget(budgets)

	if n := len(agg.Locations); n > 0 {
		agg.Centroid = &domain.GeoPoint{Lat: latSum / float64(n), Lng: lngSum / float64(n)}
	}
	return agg
}

// majorityBudget returns the widest price band in which every level suits a
// majority of the stated budgets. A strict intersection can be empty when
// budgets are disjoint; majority inclusion keeps the band satisfiable while
// still reflecting most participants.
func majorityBudget(budgets []domain.UserPreferences) (int, int) {
	if len(budgets) == 0 {
		return minPriceLevel, maxPriceLevel
	}
	majority := len(budgets)/2 + 1

	// Widest contiguous run of price levels each covered by a majority.
	// Ties go to the cheaper run.
	bestLo, bestHi := 0, 0
	runLo := 0
	for level := minPriceLevel; level <= maxPriceLevel+1; level++ {
		covered := 0
		if level <= maxPriceLevel {
			for _, b := range budgets {
				if b.BudgetMin <= level && level <= b.BudgetMax {
					covered++
				}
			}
		}
		if covered >= majority {
			if runLo == 0 {
				runLo = level
			}
			continue
		}
		if runLo != 0 && (bestLo == 0 || level-1-runLo > bestHi-bestLo) {
			bestLo, bestHi = runLo, level-1
		}
		runLo = 0
	}
	if bestLo != 0 {
		return bestLo, bestHi
	}

	// No level suits a majority: fall back to the median of range midpoints.
	mids := make([]int, len(budgets))
	for i, b := range budgets {
		mids[i] = (b.BudgetMin + b.BudgetMax) / 2
	}
	sort.Ints(mids)
	m := mids[len(mids)/2]
	return m, m
}
