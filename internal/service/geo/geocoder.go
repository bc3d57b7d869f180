package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Point is a resolved coordinate pair.
type Point struct {
	Lat float64
	Lng float64
}

// Geocoder resolves free-form address text to a coordinate pair.  The
// boolean result distinguishes "no match" from a successful resolution;
// transport problems come back as errors.  Callers treat both the same
// way: degrade to an empty, flagged result instead of failing the request.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (Point, bool, error)
}

// NominatimClient is a Geocoder backed by the OpenStreetMap Nominatim
// search API.  Requests carry a short client-side timeout so a slow
// upstream cannot hang the caller.
type NominatimClient struct {
	BaseURL string
	http    *http.Client
}

func NewNominatimClient(baseURL string) *NominatimClient {
	return &NominatimClient{
		BaseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// Geocode resolves the query to the best-matching coordinate.  Returns
// found=false when the service has no match for the text.
func (c *NominatimClient) Geocode(ctx context.Context, query string) (Point, bool, error) {
	u := fmt.Sprintf("%s?%s", c.BaseURL, url.Values{
		"q":      {query},
		"format": {"json"},
		"limit":  {"1"},
	}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Point{}, false, err
	}
	req.Header.Set("User-Agent", "food-sns/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return Point{}, false, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Point{}, false, fmt.Errorf("geocode status %d", resp.StatusCode)
	}

	// Nominatim returns lat/lon as strings inside a JSON array.
	var items []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return Point{}, false, fmt.Errorf("geocode decode: %w", err)
	}
	if len(items) == 0 {
		return Point{}, false, nil
	}
	lat, err := strconv.ParseFloat(items[0].Lat, 64)
	if err != nil {
		return Point{}, false, fmt.Errorf("geocode lat %q: %w", items[0].Lat, err)
	}
	lng, err := strconv.ParseFloat(items[0].Lon, 64)
	if err != nil {
		return Point{}, false, fmt.Errorf("geocode lon %q: %w", items[0].Lon, err)
	}
	return Point{Lat: lat, Lng: lng}, true, nil
}
