package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hiraku/food-sns/internal/config"
	"github.com/hiraku/food-sns/internal/queue"
	"github.com/hiraku/food-sns/internal/repository"
	queue_publisher "github.com/hiraku/food-sns/internal/service"
	"github.com/hiraku/food-sns/internal/service/verification"
	"github.com/hiraku/food-sns/internal/utils"
)

// VerifyHandler exposes the account verification state machine: confirm a
// code, resend one, and (in dev mode only) peek at the pending code.
type VerifyHandler struct {
	Cfg    config.Config
	Verify *verification.Service
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
}

func NewVerifyHandler(cfg config.Config, v *verification.Service, u *repository.UserRepo, t *repository.TokenRepo) *VerifyHandler {
	return &VerifyHandler{Cfg: cfg, Verify: v, Users: u, Tokens: t}
}

type confirmReq struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}
type resendReq struct {
	Email string `json:"email"`
}

// Confirm consumes a verification code.  On success the account is flipped
// to verified and a token pair is returned so the client is logged in
// straight away.
func (h *VerifyHandler) Confirm(c echo.Context) error {
	var req confirmReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	code := strings.TrimSpace(req.Code)
	if email == "" || code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/code required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Verify.Confirm(ctx, email, code)
	switch {
	case err == nil:
		// fall through to token issuance below
	case errors.Is(err, verification.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no pending verification"})
	case errors.Is(err, verification.ErrExpired):
		return c.JSON(http.StatusGone, echo.Map{"error": "code expired"})
	case errors.Is(err, verification.ErrTooManyAttempts):
		return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "too many attempts"})
	case errors.Is(err, verification.ErrCodeMismatch):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code mismatch"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "verification failed"})
	}

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}

	// Fire-and-forget: a broker outage must not fail the confirmation.
	go func(ev queue.UserVerifiedEvent) {
		pctx, pcancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer pcancel()
		_ = queue_publisher.PublishUserVerified(pctx, ev)
	}(queue.UserVerifiedEvent{
		UserID:     u.ID,
		Username:   u.Username,
		Email:      u.Email,
		VerifiedAt: time.Now().UTC().Format(time.RFC3339),
	})

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue refresh failed"})
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save refresh failed"})
	}

	return c.JSON(http.StatusOK, authResp{
		User:    userPart{ID: u.ID, Username: u.Username, Email: u.Email, Premium: u.IsPremium},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	})
}

// Resend issues a fresh code for an unverified email, honoring the
// 60-second cooldown between issuances.
func (h *VerifyHandler) Resend(c echo.Context) error {
	var req resendReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err := h.Verify.Resend(ctx, email)
	var cooldown *verification.CooldownError
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{"message": "verification code sent"})
	case errors.Is(err, verification.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no pending verification"})
	case errors.As(err, &cooldown):
		secs := int(cooldown.RetryAfter.Round(time.Second) / time.Second)
		c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
		return c.JSON(http.StatusTooManyRequests, echo.Map{
			"error":       "resend cooldown",
			"retry_after": secs,
		})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "resend failed"})
	}
}

// Pending reveals the outstanding code for an email, but only when no real
// mail relay is configured.  With SMTP in place the endpoint answers 404
// regardless, so codes never leak in production.
func (h *VerifyHandler) Pending(c echo.Context) error {
	if !h.Verify.DevMode() {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not available"})
	}
	email := strings.ToLower(strings.TrimSpace(c.QueryParam("email")))
	if email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	code, err := h.Verify.PendingCode(ctx, email)
	if err != nil {
		if errors.Is(err, verification.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no pending verification"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if code == "" {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no pending verification"})
	}
	return c.JSON(http.StatusOK, echo.Map{"email": email, "code": code})
}
