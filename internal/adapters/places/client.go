package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"meetspot/internal/domain"
)

type placesHTTPSearcher struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewHTTPSearcher returns a searcher that calls the places provider's
// nearby-search endpoint. baseURL has no trailing slash.
func NewHTTPSearcher(client *http.Client, baseURL, apiKey string) domain.VenueSearcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &placesHTTPSearcher{client: client, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey}
}

type placeResult struct {
	PlaceID     string   `json:"place_id"`
	Name        string   `json:"name"`
	Address     string   `json:"address"`
	Categories  []string `json:"categories"`
	PriceLevel  int      `json:"price_level"`
	Rating      float64  `json:"rating"`
	RatingCount int      `json:"rating_count"`
	Lat         float64  `json:"lat"`
	Lng         float64  `json:"lng"`
	Attributes  []string `json:"attributes"`
}

type searchResponse struct {
	Results []placeResult `json:"results"`
}

func (f *placesHTTPSearcher) Search(ctx context.Context, q domain.VenueQuery) ([]*domain.Venue, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(q.Lat, 'f', -1, 64))
	params.Set("lng", strconv.FormatFloat(q.Lng, 'f', -1, 64))
	params.Set("radius", strconv.Itoa(q.RadiusM))
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if len(q.Categories) > 0 {
		params.Set("categories", strings.Join(q.Categories, ","))
	}

	endpoint := fmt.Sprintf("%s/v1/places/search?%s", f.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if f.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.apiKey)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch places: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("places api returned status: %d", resp.StatusCode)
	}

	var data searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode places response: %w", err)
	}

	venues := make([]*domain.Venue, 0, len(data.Results))
	for _, r := range data.Results {
		venues = append(venues, &domain.Venue{
			PlaceID:     r.PlaceID,
			Name:        r.Name,
			Address:     r.Address,
			Categories:  r.Categories,
			PriceLevel:  r.PriceLevel,
			Rating:      r.Rating,
			RatingCount: r.RatingCount,
			Lat:         r.Lat,
			Lng:         r.Lng,
			Attributes:  r.Attributes,
		})
	}
	return venues, nil
}
