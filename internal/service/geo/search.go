// Package geo provides great-circle distance math and the proximity
// search over shop posts, including address resolution through a
// geocoding collaborator that is allowed to fail softly.
package geo

import (
	"context"
	"log"
	"math"

	"github.com/hiraku/food-sns/internal/repository"
)

// Result is a shop post annotated with its distance from the query point,
// rounded to two decimals.
type Result struct {
	repository.GeoPostRow
	DistanceKm float64 `json:"distance_km"`
}

// PostSource supplies the candidate set for proximity filtering.
type PostSource interface {
	ShopPostsWithCoords(ctx context.Context) ([]repository.GeoPostRow, error)
}

type Service struct {
	posts    PostSource
	geocoder Geocoder
}

func NewService(posts PostSource, geocoder Geocoder) *Service {
	return &Service{posts: posts, geocoder: geocoder}
}

// SearchByPoint returns the shop posts within radiusKm of the query
// point.  Results keep the repository's descending creation order, NOT
// nearest-first; the computed distance is attached for display only.
func (s *Service) SearchByPoint(ctx context.Context, lat, lng, radiusKm float64) ([]Result, error) {
	rows, err := s.posts.ShopPostsWithCoords(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(rows))
	for _, row := range rows {
		d := Haversine(lat, lng, row.Lat, row.Lng)
		if d <= radiusKm {
			out = append(out, Result{
				GeoPostRow: row,
				DistanceKm: math.Round(d*100) / 100,
			})
		}
	}
	return out, nil
}

// SearchByAddress geocodes the text and delegates to SearchByPoint.  A
// failed or empty resolution degrades to an empty result with
// resolved=false so the caller can distinguish "nothing nearby" from
// "could not locate the address"; geocoder errors never fail the request.
func (s *Service) SearchByAddress(ctx context.Context, address string, radiusKm float64) ([]Result, *Point, error) {
	p, found, err := s.geocoder.Geocode(ctx, address)
	if err != nil {
		log.Printf("geo: geocode %q failed: %v", address, err)
		return []Result{}, nil, nil
	}
	if !found {
		return []Result{}, nil, nil
	}
	results, err := s.SearchByPoint(ctx, p.Lat, p.Lng, radiusKm)
	if err != nil {
		return nil, nil, err
	}
	return results, &p, nil
}
