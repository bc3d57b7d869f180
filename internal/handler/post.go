package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hiraku/food-sns/internal/middleware"
	"github.com/hiraku/food-sns/internal/model"
	"github.com/hiraku/food-sns/internal/repository"
)

// PostHandler serves post creation, editing, the public feed and the text
// search endpoints.
type PostHandler struct {
	Posts *repository.PostRepo
	Users *repository.UserRepo
}

func NewPostHandler(p *repository.PostRepo, u *repository.UserRepo) *PostHandler {
	return &PostHandler{Posts: p, Users: u}
}

const feedPageSize = 6

type postReq struct {
	Content        string   `json:"content"`
	Image          *string  `json:"image"`
	Category       string   `json:"category"`
	ShopCategory   *string  `json:"shop_category"`
	ShopName       *string  `json:"shop_name"`
	ShopAddress    *string  `json:"shop_address"`
	ShopURL        *string  `json:"shop_url"`
	ShopHours      *string  `json:"shop_hours"`
	ShopPhone      *string  `json:"shop_phone"`
	ShopPriceRange *string  `json:"shop_price_range"`
	ShopLat        *float64 `json:"shop_lat"`
	ShopLng        *float64 `json:"shop_lng"`
}

type postResp struct {
	ID             uint64   `json:"id"`
	UserID         uint64   `json:"user_id"`
	Username       string   `json:"username,omitempty"`
	Content        string   `json:"content"`
	Image          *string  `json:"image,omitempty"`
	Category       string   `json:"category"`
	ShopCategory   *string  `json:"shop_category,omitempty"`
	ShopName       *string  `json:"shop_name,omitempty"`
	ShopAddress    *string  `json:"shop_address,omitempty"`
	ShopURL        *string  `json:"shop_url,omitempty"`
	ShopHours      *string  `json:"shop_hours,omitempty"`
	ShopPhone      *string  `json:"shop_phone,omitempty"`
	ShopPriceRange *string  `json:"shop_price_range,omitempty"`
	ShopLat        *float64 `json:"shop_lat,omitempty"`
	ShopLng        *float64 `json:"shop_lng,omitempty"`
	Likes          uint64   `json:"likes"`
	CreatedAt      string   `json:"created_at"`
}

func toPostResp(p model.Post, username string) postResp {
	return postResp{
		ID:             p.ID,
		UserID:         p.UserID,
		Username:       username,
		Content:        p.Content,
		Image:          p.Image,
		Category:       p.Category,
		ShopCategory:   p.ShopCategory,
		ShopName:       p.ShopName,
		ShopAddress:    p.ShopAddress,
		ShopURL:        p.ShopURL,
		ShopHours:      p.ShopHours,
		ShopPhone:      p.ShopPhone,
		ShopPriceRange: p.ShopPriceRange,
		ShopLat:        p.ShopLat,
		ShopLng:        p.ShopLng,
		Likes:          p.Likes,
		CreatedAt:      p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func validCategory(cat string) bool {
	switch cat {
	case model.CategoryFoodPhoto, model.CategoryShopIntro, model.CategoryRecipeIntro:
		return true
	}
	return false
}

func validShopCategory(sc string) bool {
	for _, v := range model.ShopCategories {
		if v == sc {
			return true
		}
	}
	return false
}

// validatePost enforces the field rules shared by create and edit: a known
// category, a shop name on shop posts, coordinates inside their valid
// ranges, and length caps on the free-form shop fields.
func validatePost(req *postReq) string {
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		return "content required"
	}
	if !validCategory(req.Category) {
		return "invalid category"
	}
	if req.Category != model.CategoryShopIntro {
		// Shop fields only live on shop introduction posts.
		req.ShopCategory, req.ShopName, req.ShopAddress = nil, nil, nil
		req.ShopURL, req.ShopHours, req.ShopPhone, req.ShopPriceRange = nil, nil, nil, nil
		req.ShopLat, req.ShopLng = nil, nil
		return ""
	}
	if req.ShopName == nil || strings.TrimSpace(*req.ShopName) == "" {
		return "shop_name required for shop posts"
	}
	if req.ShopCategory != nil && !validShopCategory(*req.ShopCategory) {
		return "invalid shop_category"
	}
	if req.ShopLat != nil && (*req.ShopLat < -90 || *req.ShopLat > 90) {
		return "shop_lat out of range"
	}
	if req.ShopLng != nil && (*req.ShopLng < -180 || *req.ShopLng > 180) {
		return "shop_lng out of range"
	}
	if (req.ShopLat == nil) != (req.ShopLng == nil) {
		return "shop_lat and shop_lng must be set together"
	}
	if req.ShopURL != nil && len(*req.ShopURL) > 300 {
		return "shop_url too long"
	}
	for _, f := range []*string{req.ShopName, req.ShopAddress, req.ShopHours, req.ShopPhone, req.ShopPriceRange} {
		if f != nil && len(*f) > 200 {
			return "shop field too long"
		}
	}
	return ""
}

// Create stores a new post for the authenticated user.
func (h *PostHandler) Create(c echo.Context) error {
	var req postReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := validatePost(&req); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p := model.Post{
		UserID:         middleware.UserID(c),
		Content:        req.Content,
		Image:          req.Image,
		Category:       req.Category,
		ShopCategory:   req.ShopCategory,
		ShopName:       req.ShopName,
		ShopAddress:    req.ShopAddress,
		ShopURL:        req.ShopURL,
		ShopHours:      req.ShopHours,
		ShopPhone:      req.ShopPhone,
		ShopPriceRange: req.ShopPriceRange,
		ShopLat:        req.ShopLat,
		ShopLng:        req.ShopLng,
	}
	id, err := h.Posts.Create(ctx, p)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create post failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// Get returns a single post by id.
func (h *PostHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Posts.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrPostNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "post not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toPostResp(p, ""))
}

// Update edits a post.  Only the author may edit.
func (h *PostHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req postReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := validatePost(&req); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	existing, err := h.Posts.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrPostNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "post not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if existing.UserID != middleware.UserID(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your post"})
	}

	existing.Content = req.Content
	existing.Image = req.Image
	existing.Category = req.Category
	existing.ShopCategory = req.ShopCategory
	existing.ShopName = req.ShopName
	existing.ShopAddress = req.ShopAddress
	existing.ShopURL = req.ShopURL
	existing.ShopHours = req.ShopHours
	existing.ShopPhone = req.ShopPhone
	existing.ShopPriceRange = req.ShopPriceRange
	existing.ShopLat = req.ShopLat
	existing.ShopLng = req.ShopLng

	if err := h.Posts.Update(ctx, existing); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, toPostResp(existing, ""))
}

// Delete removes a post and its bookmarks.  Only the author may delete.
func (h *PostHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	existing, err := h.Posts.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrPostNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "post not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if existing.UserID != middleware.UserID(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your post"})
	}
	if err := h.Posts.Delete(ctx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "deleted"})
}

// Like increments the like counter of a post.
func (h *PostHandler) Like(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Posts.Like(ctx, id); err != nil {
		if err == repository.ErrPostNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "post not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "like failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "liked"})
}

// Feed lists posts newest-first with optional q (content match) and cat
// (category) filters, paged six to a page.
func (h *PostHandler) Feed(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	q := strings.TrimSpace(c.QueryParam("q"))
	cat := strings.TrimSpace(c.QueryParam("cat"))
	if cat != "" && !validCategory(cat) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid category"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rows, total, err := h.Posts.Feed(ctx, q, cat, page, feedPageSize)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	items := make([]postResp, 0, len(rows))
	for _, r := range rows {
		items = append(items, toPostResp(r.Post, r.Username))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"posts":     items,
		"total":     total,
		"page":      page,
		"page_size": feedPageSize,
	})
}

// ByUsername lists a user's posts for their public profile page, paged.
// The path segment works with or without the leading '@'.
func (h *PostHandler) ByUsername(c echo.Context) error {
	username := "@" + strings.TrimLeft(strings.TrimSpace(c.Param("username")), "@")
	if username == "@" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username required"})
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	rows, total, err := h.Posts.ByUser(ctx, u.ID, page, feedPageSize)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	items := make([]postResp, 0, len(rows))
	for _, p := range rows {
		items = append(items, toPostResp(p, u.Username))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"username":  u.Username,
		"posts":     items,
		"total":     total,
		"page":      page,
		"page_size": feedPageSize,
	})
}

// Search runs the text search over posts.  t selects the slice: "shop"
// matches shop fields on shop posts, "recipe" matches recipe posts, "all"
// (default) searches everything.
func (h *PostHandler) Search(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "q required"})
	}
	kind := strings.TrimSpace(c.QueryParam("t"))
	switch kind {
	case "", "all":
		kind = "all"
	case "shop", "recipe":
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid t"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rows, err := h.Posts.TextSearch(ctx, q, kind)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	items := make([]postResp, 0, len(rows))
	for _, r := range rows {
		items = append(items, toPostResp(r.Post, r.Username))
	}
	return c.JSON(http.StatusOK, echo.Map{"posts": items})
}

// Mine lists the authenticated user's own posts, paged.
func (h *PostHandler) Mine(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rows, total, err := h.Posts.ByUser(ctx, middleware.UserID(c), page, feedPageSize)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	items := make([]postResp, 0, len(rows))
	for _, p := range rows {
		items = append(items, toPostResp(p, ""))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"posts":     items,
		"total":     total,
		"page":      page,
		"page_size": feedPageSize,
	})
}
