package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hiraku/food-sns/internal/middleware"
	"github.com/hiraku/food-sns/internal/repository"
	"github.com/hiraku/food-sns/internal/service/bookmark"
)

// BookmarkHandler serves the ordered bookmark collection.  The caller's
// subscription tier is read fresh from the users table on every request
// that gates on it, so a tier change takes effect immediately.
type BookmarkHandler struct {
	Users     *repository.UserRepo
	Posts     *repository.PostRepo
	Bookmarks *bookmark.Service
}

func NewBookmarkHandler(u *repository.UserRepo, p *repository.PostRepo, b *bookmark.Service) *BookmarkHandler {
	return &BookmarkHandler{Users: u, Posts: p, Bookmarks: b}
}

type bookmarkRow struct {
	Post     postResp `json:"post"`
	Folder   *string  `json:"folder,omitempty"`
	Position int64    `json:"position"`
	SavedAt  string   `json:"saved_at"`
}

// Toggle saves the post, or removes the bookmark if it is already saved.
func (h *BookmarkHandler) Toggle(c echo.Context) error {
	postID, err := strconv.ParseUint(c.Param("post_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid post id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	// Probe the post first so a dangling id comes back 404 instead of a
	// foreign-key failure.
	if _, err := h.Posts.GetByID(ctx, postID); err != nil {
		if err == repository.ErrPostNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "post not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	res, err := h.Bookmarks.Toggle(ctx, middleware.UserID(c), postID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "toggle failed"})
	}
	if res.State == bookmark.Removed {
		return c.JSON(http.StatusOK, echo.Map{"state": "removed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"state": "added", "position": res.Position})
}

// List returns the caller's bookmarks with the posts they point at.  The
// sort parameter is coerced for non-premium users; the effective sort is
// echoed back so the client can reflect it.
func (h *BookmarkHandler) List(c echo.Context) error {
	uid := middleware.UserID(c)
	sort := strings.TrimSpace(c.QueryParam("sort"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	premium, err := h.Users.IsPremium(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	rows, effective, err := h.Bookmarks.List(ctx, uid, sort, premium)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	items := make([]bookmarkRow, 0, len(rows))
	for _, r := range rows {
		items = append(items, bookmarkRow{
			Post:     toPostResp(r.Post, r.Username),
			Folder:   r.Folder,
			Position: r.Position,
			SavedAt:  r.SavedAt.UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookmarks": items, "sort": effective})
}

// Move swaps the bookmark one step up or down in the manual order.
// Premium only.
func (h *BookmarkHandler) Move(c echo.Context) error {
	postID, err := strconv.ParseUint(c.Param("post_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid post id"})
	}
	dir := strings.TrimSpace(c.QueryParam("dir"))
	if dir != bookmark.DirUp && dir != bookmark.DirDown {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "dir must be up or down"})
	}

	uid := middleware.UserID(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	premium, err := h.Users.IsPremium(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	res, err := h.Bookmarks.Move(ctx, uid, postID, dir, premium)
	if err != nil {
		if errors.Is(err, repository.ErrForbidden) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "premium required"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "move failed"})
	}
	if res == bookmark.NoOp {
		return c.JSON(http.StatusOK, echo.Map{"moved": false})
	}
	return c.JSON(http.StatusOK, echo.Map{"moved": true})
}

type folderReq struct {
	Folder string `json:"folder"`
}

// SetFolder labels a bookmark with a folder name; an empty name clears the
// label.  Premium only.
func (h *BookmarkHandler) SetFolder(c echo.Context) error {
	postID, err := strconv.ParseUint(c.Param("post_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid post id"})
	}
	var req folderReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if len(req.Folder) > 100 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "folder too long"})
	}

	uid := middleware.UserID(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	premium, err := h.Users.IsPremium(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if err := h.Bookmarks.SetFolder(ctx, uid, postID, req.Folder, premium); err != nil {
		if errors.Is(err, repository.ErrForbidden) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "premium required"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "folder updated"})
}
