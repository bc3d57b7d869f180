// Package router wires the HTTP surface: public auth and browse routes,
// rate-limited verification endpoints, and the JWT-protected API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/hiraku/food-sns/internal/handler"
	"github.com/hiraku/food-sns/internal/middleware"
)

// Handlers groups everything the router needs to register the full API.
type Handlers struct {
	Auth     *handler.AuthHandler
	Verify   *handler.VerifyHandler
	Posts    *handler.PostHandler
	Bookmark *handler.BookmarkHandler
	Search   *handler.SearchHandler
}

// Register mounts all routes.  rateLimit is applied to the public auth and
// verification endpoints, cache to the read-only feed and search routes;
// either may be a pass-through when Redis is not available.
func Register(e *echo.Echo, h Handlers, jwtSecret string, rateLimit, cache echo.MiddlewareFunc) {
	e.GET("/healthz", handler.Health)

	// Public auth surface.  These are the abuse-prone endpoints, so the
	// token-bucket limiter sits in front of all of them.
	pub := e.Group("/v1/auth", rateLimit)
	pub.POST("/register", h.Auth.Register)
	pub.POST("/login", h.Auth.Login)
	pub.POST("/refresh", h.Auth.Refresh)
	pub.POST("/refresh-access", h.Auth.RefreshAccess)
	pub.POST("/verify", h.Verify.Confirm)
	pub.POST("/verify/resend", h.Verify.Resend)
	pub.GET("/verify/pending", h.Verify.Pending)

	// Public reads.  Cached; no session required to browse the feed or
	// search for shops.
	read := e.Group("/v1", cache)
	read.GET("/posts", h.Posts.Feed)
	read.GET("/posts/:id", h.Posts.Get)
	read.GET("/users/:username/posts", h.Posts.ByUsername)
	read.GET("/search/posts", h.Posts.Search)
	read.GET("/search/near", h.Search.Near)
	read.GET("/search/shops", h.Search.Shops)

	// Everything below requires a valid access token.
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.POST("/auth/logout", h.Auth.Logout)

	auth.POST("/posts", h.Posts.Create)
	auth.GET("/posts/mine", h.Posts.Mine)
	auth.PUT("/posts/:id", h.Posts.Update)
	auth.DELETE("/posts/:id", h.Posts.Delete)
	auth.POST("/posts/:id/like", h.Posts.Like)

	auth.POST("/bookmarks/:post_id", h.Bookmark.Toggle)
	auth.GET("/bookmarks", h.Bookmark.List)
	auth.POST("/bookmarks/:post_id/move", h.Bookmark.Move)
	auth.PUT("/bookmarks/:post_id/folder", h.Bookmark.SetFolder)
}
