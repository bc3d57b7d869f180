package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hiraku/food-sns/internal/service/geo"
)

// SearchHandler serves the proximity search over shop introduction posts.
type SearchHandler struct {
	Geo *geo.Service
}

func NewSearchHandler(g *geo.Service) *SearchHandler {
	return &SearchHandler{Geo: g}
}

const defaultRadiusKm = 2.0

type geoResult struct {
	PostID       uint64  `json:"post_id"`
	ShopName     string  `json:"shop_name"`
	ShopCategory string  `json:"shop_category,omitempty"`
	ShopAddress  string  `json:"shop_address,omitempty"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	DistanceKm   float64 `json:"distance_km"`
}

func toGeoResults(rows []geo.Result) []geoResult {
	out := make([]geoResult, 0, len(rows))
	for _, r := range rows {
		out = append(out, geoResult{
			PostID:       r.ID,
			ShopName:     r.ShopName,
			ShopCategory: r.ShopCategory,
			ShopAddress:  r.ShopAddress,
			Lat:          r.Lat,
			Lng:          r.Lng,
			DistanceKm:   r.DistanceKm,
		})
	}
	return out
}

func radiusParam(c echo.Context) (float64, bool) {
	s := strings.TrimSpace(c.QueryParam("r"))
	if s == "" {
		return defaultRadiusKm, true
	}
	r, err := strconv.ParseFloat(s, 64)
	if err != nil || r < 0 {
		return 0, false
	}
	return r, true
}

// Near returns shop posts within r kilometers of the given coordinates.
func (h *SearchHandler) Near(c echo.Context) error {
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(c.QueryParam("lat")), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(c.QueryParam("lng")), 64)
	if err1 != nil || err2 != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "lat/lng required"})
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "lat/lng out of range"})
	}
	radius, ok := radiusParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid radius"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rows, err := h.Geo.SearchByPoint(ctx, lat, lng, radius)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "search failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"center":    echo.Map{"lat": lat, "lng": lng},
		"radius_km": radius,
		"results":   toGeoResults(rows),
	})
}

// Shops geocodes a free-form address and searches around it.  When the
// address cannot be resolved the response still succeeds, with an empty
// result list and resolved=false, mirroring how the geocoder soft-fails.
func (h *SearchHandler) Shops(c echo.Context) error {
	address := strings.TrimSpace(c.QueryParam("address"))
	if address == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "address required"})
	}
	radius, ok := radiusParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid radius"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	rows, center, err := h.Geo.SearchByAddress(ctx, address, radius)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "search failed"})
	}
	resp := echo.Map{
		"address":   address,
		"radius_km": radius,
		"resolved":  center != nil,
		"results":   toGeoResults(rows),
	}
	if center != nil {
		resp["center"] = echo.Map{"lat": center.Lat, "lng": center.Lng}
	}
	return c.JSON(http.StatusOK, resp)
}
