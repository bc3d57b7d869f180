package main

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/hiraku/food-sns/internal/config"
	"github.com/hiraku/food-sns/internal/database"
	"github.com/hiraku/food-sns/internal/handler"
	"github.com/hiraku/food-sns/internal/mailer"
	"github.com/hiraku/food-sns/internal/middleware"
	"github.com/hiraku/food-sns/internal/queue"
	"github.com/hiraku/food-sns/internal/repository"
	"github.com/hiraku/food-sns/internal/router"
	"github.com/hiraku/food-sns/internal/service/bookmark"
	"github.com/hiraku/food-sns/internal/service/geo"
	"github.com/hiraku/food-sns/internal/service/verification"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(database.Config{
		User:            cfg.DBUser,
		Pass:            cfg.DBPass,
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		Name:            cfg.DBName,
		MaxOpenConns:    cfg.DBMaxOpen,
		MaxIdleConns:    cfg.DBMaxIdle,
		ConnMaxLifetime: time.Duration(cfg.DBConnLifeMin) * time.Minute,
	})
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	posts := repository.NewPostRepo(db)
	bookmarks := repository.NewBookmarkRepo(db)
	tokens := repository.NewTokenRepo(db)

	codeMailer := mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
	if !codeMailer.IsConfigured() {
		log.Println("mailer: no SMTP host configured, running in dev mode")
	}

	verifySvc := verification.NewService(users, codeMailer)
	bookmarkSvc := bookmark.NewService(db, bookmarks)
	geoSvc := geo.NewService(posts, geo.NewNominatimClient(cfg.GeocoderURL))

	// Redis is optional; a nil client turns the limiter and cache into
	// pass-throughs.
	rdb := config.NewRedisClient()
	rateLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	// Background consumer for verified-account events; reconnects on its own.
	go func() {
		if err := queue.StartVerifiedConsumer(); err != nil {
			log.Printf("verified-consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Handlers{
		Auth:     handler.NewAuthHandler(cfg, users, tokens, verifySvc),
		Verify:   handler.NewVerifyHandler(cfg, verifySvc, users, tokens),
		Posts:    handler.NewPostHandler(posts, users),
		Bookmark: handler.NewBookmarkHandler(users, posts, bookmarkSvc),
		Search:   handler.NewSearchHandler(geoSvc),
	}, cfg.JWTSecret, rateLimit, cache)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
