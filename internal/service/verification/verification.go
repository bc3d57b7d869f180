// Package verification owns the account-activation lifecycle: issuing a
// one-time 4-digit code, resending it under a cooldown, and consuming it
// to flip the account to verified.  All expected outcomes (not found,
// cooldown, expired, too many attempts, mismatch) are sentinel values the
// handler layer switches on; only storage failures surface as plain errors.
package verification

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/hiraku/food-sns/internal/model"
)

var (
	ErrNotFound        = errors.New("no unverified user for email")
	ErrExpired         = errors.New("verification code expired")
	ErrTooManyAttempts = errors.New("too many attempts")
	ErrCodeMismatch    = errors.New("verification code mismatch")
)

// CooldownError reports how long the caller has to wait before the next
// resend is accepted.
type CooldownError struct {
	RetryAfter time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("resend on cooldown for %s", e.RetryAfter.Round(time.Second))
}

const (
	codeTTL            = 600 * time.Second // a code is valid for 10 minutes
	resendCooldown     = 60 * time.Second  // minimum interval between issuances
	maxConfirmAttempts = 5
)

// Store is the persistence surface the state machine runs against.  Each
// write method is a single atomic statement: StoreCode carries its own
// cooldown guard so a check-then-act resend cannot race, and MarkVerified
// clears the code, expiry and attempt counter in the same update that
// flips the verified flag.
type Store interface {
	UnverifiedByEmail(ctx context.Context, email string) (model.User, error)
	StoreCode(ctx context.Context, userID uint64, code string, expiresAt, sentAt, notBefore time.Time) (bool, error)
	IncrementAttempts(ctx context.Context, userID uint64) error
	MarkVerified(ctx context.Context, userID uint64) error
}

// Sender delivers a code to an address.  IsConfigured distinguishes a real
// delivery channel from the development fallback: when false, the service
// keeps the pending code queryable so the caller can display it instead.
type Sender interface {
	Send(email, code string) error
	IsConfigured() bool
}

// Clock supplies the current time; injected so expiry and cooldown
// boundaries can be tested deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// CodeSource yields a fresh 4-digit code.
type CodeSource interface {
	Code() (string, error)
}

type cryptoCodeSource struct{}

// Code draws uniformly from 0000–9999; leading zeros are kept.
func (cryptoCodeSource) Code() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}

type Service struct {
	store  Store
	sender Sender
	clock  Clock
	codes  CodeSource
}

func NewService(store Store, sender Sender) *Service {
	return &Service{store: store, sender: sender, clock: systemClock{}, codes: cryptoCodeSource{}}
}

// NewServiceWithDeps wires explicit clock and code source implementations;
// used by tests to pin time and codes.
func NewServiceWithDeps(store Store, sender Sender, clock Clock, codes CodeSource) *Service {
	return &Service{store: store, sender: sender, clock: clock, codes: codes}
}

// Issue generates and stores a fresh code for a just-registered user and
// dispatches it.  Delivery failures are logged and swallowed: registration
// must not fail because the mail relay is down, and in dev mode the code
// remains readable through PendingCode.
func (s *Service) Issue(ctx context.Context, userID uint64, email string) error {
	now := s.clock.Now()
	code, err := s.codes.Code()
	if err != nil {
		return err
	}
	ok, err := s.store.StoreCode(ctx, userID, code, now.Add(codeTTL), now, now)
	if err != nil {
		return err
	}
	if !ok {
		// Raced with another issuance inside the cooldown window; the other
		// code stands and has already been dispatched.
		return nil
	}
	s.dispatch(email, code)
	return nil
}

// Resend issues a new code for an unverified email.  Returns ErrNotFound
// when no unverified user matches, or a CooldownError when less than 60
// seconds have passed since the last issuance.
func (s *Service) Resend(ctx context.Context, email string) error {
	u, err := s.store.UnverifiedByEmail(ctx, email)
	if err != nil {
		return notFoundOr(err)
	}
	now := s.clock.Now()
	if u.LastCodeSentAt != nil {
		if remaining := resendCooldown - now.Sub(*u.LastCodeSentAt); remaining > 0 {
			return &CooldownError{RetryAfter: remaining}
		}
	}
	code, err := s.codes.Code()
	if err != nil {
		return err
	}
	ok, err := s.store.StoreCode(ctx, u.ID, code, now.Add(codeTTL), now, now.Add(-resendCooldown))
	if err != nil {
		return err
	}
	if !ok {
		// The guard rejected the write: a concurrent resend won the race
		// after our read.  Report a full cooldown rather than re-reading.
		return &CooldownError{RetryAfter: resendCooldown}
	}
	s.dispatch(email, code)
	return nil
}

// Confirm consumes a code.  The attempt and expiry checks run before the
// code comparison so a locked-out or stale code never reveals whether the
// guess was right.  On success the returned userID lets the caller start a
// session for the freshly verified account.
func (s *Service) Confirm(ctx context.Context, email, code string) (uint64, error) {
	u, err := s.store.UnverifiedByEmail(ctx, email)
	if err != nil {
		return 0, notFoundOr(err)
	}
	now := s.clock.Now()
	// A nil expiry means no code was ever issued, which the public
	// operations never produce for an unverified user; the comparison below
	// then fails on the nil code.
	if u.CodeExpiresAt != nil && now.After(*u.CodeExpiresAt) {
		return 0, ErrExpired
	}
	if u.CodeAttempts >= maxConfirmAttempts {
		return 0, ErrTooManyAttempts
	}
	if u.VerificationCode == nil || *u.VerificationCode != code {
		if err := s.store.IncrementAttempts(ctx, u.ID); err != nil {
			return 0, err
		}
		return 0, ErrCodeMismatch
	}
	if err := s.store.MarkVerified(ctx, u.ID); err != nil {
		return 0, err
	}
	return u.ID, nil
}

// PendingCode returns the outstanding code for an unverified email, but
// only when the delivery channel is unconfigured.  With a real channel the
// code is never exposed through the API.
func (s *Service) PendingCode(ctx context.Context, email string) (string, error) {
	if s.sender.IsConfigured() {
		return "", nil
	}
	u, err := s.store.UnverifiedByEmail(ctx, email)
	if err != nil {
		return "", notFoundOr(err)
	}
	if u.VerificationCode == nil {
		return "", nil
	}
	return *u.VerificationCode, nil
}

// DevMode reports whether the delivery channel is unconfigured.
func (s *Service) DevMode() bool { return !s.sender.IsConfigured() }

func (s *Service) dispatch(email, code string) {
	if err := s.sender.Send(email, code); err != nil {
		log.Printf("verification: code delivery to %s failed: %v", email, err)
	}
}

func notFoundOr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
