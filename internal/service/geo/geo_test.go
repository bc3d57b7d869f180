package geo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiraku/food-sns/internal/repository"
)

func TestHaversineZeroForIdenticalPoints(t *testing.T) {
	assert.Zero(t, Haversine(35.6812, 139.7671, 35.6812, 139.7671))
}

func TestHaversineSymmetry(t *testing.T) {
	a := Haversine(35.6812, 139.7671, 34.7025, 135.4959) // Tokyo -> Osaka
	b := Haversine(34.7025, 135.4959, 35.6812, 139.7671)
	assert.InDelta(t, a, b, 1e-9)
	// Tokyo Station to Osaka Station is roughly 400 km.
	assert.InDelta(t, 400, a, 10)
}

func TestHaversineHalfCircumference(t *testing.T) {
	// Antipodal points sit half the Earth's circumference apart.
	d := Haversine(0, 0, 0, 180)
	assert.InDelta(t, 20015.1, d, 0.1)
}

type stubPosts struct {
	rows []repository.GeoPostRow
	err  error
}

func (s stubPosts) ShopPostsWithCoords(ctx context.Context) ([]repository.GeoPostRow, error) {
	return s.rows, s.err
}

type stubGeocoder struct {
	point Point
	found bool
	err   error
}

func (s stubGeocoder) Geocode(ctx context.Context, query string) (Point, bool, error) {
	return s.point, s.found, s.err
}

func shopRows() []repository.GeoPostRow {
	now := time.Now()
	return []repository.GeoPostRow{
		{ID: 1, ShopName: "駅前食堂", Lat: 35.6812, Lng: 139.7671, CreatedAt: now},
		{ID: 2, ShopName: "揚げ物の店", Lat: 35.6900, Lng: 139.7700, CreatedAt: now.Add(-time.Hour)},
		{ID: 3, ShopName: "遠くの店", Lat: 34.7025, Lng: 135.4959, CreatedAt: now.Add(-2 * time.Hour)},
	}
}

func TestSearchByPointFiltersByRadius(t *testing.T) {
	svc := NewService(stubPosts{rows: shopRows()}, stubGeocoder{})

	got, err := svc.SearchByPoint(context.Background(), 35.6812, 139.7671, 3)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Source order is preserved; distance is attached, not sorted on.
	assert.Equal(t, uint64(1), got[0].ID)
	assert.Equal(t, uint64(2), got[1].ID)
	assert.Zero(t, got[0].DistanceKm)
	assert.Greater(t, got[1].DistanceKm, 0.0)
}

func TestSearchByPointZeroRadiusMatchesExactPointOnly(t *testing.T) {
	svc := NewService(stubPosts{rows: shopRows()}, stubGeocoder{})

	got, err := svc.SearchByPoint(context.Background(), 35.6812, 139.7671, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(1), got[0].ID)
}

func TestSearchByPointEmptyCandidates(t *testing.T) {
	svc := NewService(stubPosts{}, stubGeocoder{})

	got, err := svc.SearchByPoint(context.Background(), 0, 0, 100)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearchByAddressResolved(t *testing.T) {
	svc := NewService(
		stubPosts{rows: shopRows()},
		stubGeocoder{point: Point{Lat: 35.6812, Lng: 139.7671}, found: true},
	)

	got, center, err := svc.SearchByAddress(context.Background(), "東京駅", 3)
	require.NoError(t, err)
	require.NotNil(t, center)
	assert.Equal(t, 35.6812, center.Lat)
	assert.Len(t, got, 2)
}

func TestSearchByAddressUnresolved(t *testing.T) {
	svc := NewService(stubPosts{rows: shopRows()}, stubGeocoder{found: false})

	got, center, err := svc.SearchByAddress(context.Background(), "存在しない住所", 3)
	require.NoError(t, err)
	assert.Nil(t, center)
	assert.Empty(t, got)
}

func TestSearchByAddressGeocoderErrorDegradesSoftly(t *testing.T) {
	svc := NewService(stubPosts{rows: shopRows()}, stubGeocoder{err: errors.New("upstream timeout")})

	got, center, err := svc.SearchByAddress(context.Background(), "東京駅", 3)
	require.NoError(t, err)
	assert.Nil(t, center)
	assert.Empty(t, got)
}

func TestNominatimClientParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "東京駅", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat":"35.6812","lon":"139.7671"}]`))
	}))
	defer srv.Close()

	p, found, err := NewNominatimClient(srv.URL).Geocode(context.Background(), "東京駅")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 35.6812, p.Lat)
	assert.Equal(t, 139.7671, p.Lng)
}

func TestNominatimClientNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, found, err := NewNominatimClient(srv.URL).Geocode(context.Background(), "どこでもない")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNominatimClientUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, _, err := NewNominatimClient(srv.URL).Geocode(context.Background(), "東京駅")
	assert.Error(t, err)
}
