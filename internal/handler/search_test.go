package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiraku/food-sns/internal/repository"
	"github.com/hiraku/food-sns/internal/service/geo"
)

type fixedPosts struct{ rows []repository.GeoPostRow }

func (f fixedPosts) ShopPostsWithCoords(ctx context.Context) ([]repository.GeoPostRow, error) {
	return f.rows, nil
}

type noopGeocoder struct{}

func (noopGeocoder) Geocode(ctx context.Context, query string) (geo.Point, bool, error) {
	return geo.Point{}, false, nil
}

func searchRequest(target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// Without an explicit r the search uses a 2 km radius: the shop 1.7 km
// out is included, the one 2.4 km out is not.
func TestNearDefaultRadiusTwoKm(t *testing.T) {
	h := NewSearchHandler(geo.NewService(fixedPosts{rows: []repository.GeoPostRow{
		{ID: 1, ShopName: "近所のカフェ", Lat: 35.015, Lng: 139.0},
		{ID: 2, ShopName: "少し遠い店", Lat: 35.022, Lng: 139.0},
	}}, noopGeocoder{}))

	c, rec := searchRequest("/v1/search/near?lat=35.0&lng=139.0")
	require.NoError(t, h.Near(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		RadiusKm float64 `json:"radius_km"`
		Results  []struct {
			PostID uint64 `json:"post_id"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2.0, body.RadiusKm)
	require.Len(t, body.Results, 1)
	assert.Equal(t, uint64(1), body.Results[0].PostID)
}

func TestNearExplicitRadiusOverridesDefault(t *testing.T) {
	h := NewSearchHandler(geo.NewService(fixedPosts{rows: []repository.GeoPostRow{
		{ID: 2, ShopName: "少し遠い店", Lat: 35.022, Lng: 139.0},
	}}, noopGeocoder{}))

	c, rec := searchRequest("/v1/search/near?lat=35.0&lng=139.0&r=3")
	require.NoError(t, h.Near(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		RadiusKm float64 `json:"radius_km"`
		Results  []struct {
			PostID uint64 `json:"post_id"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3.0, body.RadiusKm)
	assert.Len(t, body.Results, 1)
}

func TestNearInvalidRadius(t *testing.T) {
	h := NewSearchHandler(geo.NewService(fixedPosts{}, noopGeocoder{}))

	c, rec := searchRequest("/v1/search/near?lat=35.0&lng=139.0&r=-1")
	require.NoError(t, h.Near(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
