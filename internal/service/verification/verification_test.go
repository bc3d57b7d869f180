package verification

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiraku/food-sns/internal/model"
)

type fakeStore struct {
	user    model.User
	userErr error

	storeOK  bool
	storeErr error

	gotCode      string
	gotExpires   time.Time
	gotSent      time.Time
	gotNotBefore time.Time

	attempts int
	verified bool
}

func (f *fakeStore) UnverifiedByEmail(ctx context.Context, email string) (model.User, error) {
	return f.user, f.userErr
}

func (f *fakeStore) StoreCode(ctx context.Context, userID uint64, code string, expiresAt, sentAt, notBefore time.Time) (bool, error) {
	f.gotCode = code
	f.gotExpires = expiresAt
	f.gotSent = sentAt
	f.gotNotBefore = notBefore
	return f.storeOK, f.storeErr
}

func (f *fakeStore) IncrementAttempts(ctx context.Context, userID uint64) error {
	f.attempts++
	return nil
}

func (f *fakeStore) MarkVerified(ctx context.Context, userID uint64) error {
	f.verified = true
	return nil
}

type fakeSender struct {
	configured bool
	sendErr    error
	sent       []string // codes dispatched
}

func (f *fakeSender) Send(email, code string) error {
	f.sent = append(f.sent, code)
	return f.sendErr
}

func (f *fakeSender) IsConfigured() bool { return f.configured }

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type fixedCodes struct{ code string }

func (c fixedCodes) Code() (string, error) { return c.code, nil }

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(store *fakeStore, sender *fakeSender, now time.Time, code string) *Service {
	return NewServiceWithDeps(store, sender, fixedClock{now: now}, fixedCodes{code: code})
}

func unverifiedUser(mutate ...func(*model.User)) model.User {
	code := "1234"
	exp := testNow.Add(10 * time.Minute)
	sent := testNow.Add(-5 * time.Minute)
	u := model.User{
		ID:               7,
		Email:            "taro@example.com",
		VerificationCode: &code,
		CodeExpiresAt:    &exp,
		LastCodeSentAt:   &sent,
	}
	for _, m := range mutate {
		m(&u)
	}
	return u
}

func TestIssueStoresAndDispatches(t *testing.T) {
	store := &fakeStore{storeOK: true}
	sender := &fakeSender{configured: true}
	svc := newTestService(store, sender, testNow, "0042")

	err := svc.Issue(context.Background(), 7, "taro@example.com")
	require.NoError(t, err)

	assert.Equal(t, "0042", store.gotCode)
	assert.Equal(t, testNow.Add(10*time.Minute), store.gotExpires)
	assert.Equal(t, []string{"0042"}, sender.sent)
}

func TestIssueSwallowsDeliveryFailure(t *testing.T) {
	store := &fakeStore{storeOK: true}
	sender := &fakeSender{configured: true, sendErr: errors.New("relay down")}
	svc := newTestService(store, sender, testNow, "0042")

	err := svc.Issue(context.Background(), 7, "taro@example.com")
	assert.NoError(t, err)
}

func TestIssueRaceLosesQuietly(t *testing.T) {
	// Guard rejected the write: another issuance already holds the window.
	store := &fakeStore{storeOK: false}
	sender := &fakeSender{configured: true}
	svc := newTestService(store, sender, testNow, "0042")

	err := svc.Issue(context.Background(), 7, "taro@example.com")
	require.NoError(t, err)
	assert.Empty(t, sender.sent)
}

func TestResendBlockedInsideCooldown(t *testing.T) {
	// 59 seconds since the last send: one second short of the cooldown.
	store := &fakeStore{user: unverifiedUser(func(u *model.User) {
		sent := testNow.Add(-59 * time.Second)
		u.LastCodeSentAt = &sent
	})}
	svc := newTestService(store, &fakeSender{configured: true}, testNow, "0042")

	err := svc.Resend(context.Background(), "taro@example.com")
	var cd *CooldownError
	require.ErrorAs(t, err, &cd)
	assert.Equal(t, time.Second, cd.RetryAfter)
}

func TestResendAllowedAtCooldownBoundary(t *testing.T) {
	// Exactly 60 seconds since the last send is allowed.
	store := &fakeStore{storeOK: true, user: unverifiedUser(func(u *model.User) {
		sent := testNow.Add(-60 * time.Second)
		u.LastCodeSentAt = &sent
	})}
	sender := &fakeSender{configured: true}
	svc := newTestService(store, sender, testNow, "7777")

	err := svc.Resend(context.Background(), "taro@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"7777"}, sender.sent)
	assert.Equal(t, testNow.Add(-60*time.Second), store.gotNotBefore)
}

func TestResendGuardRaceReportsFullCooldown(t *testing.T) {
	store := &fakeStore{storeOK: false, user: unverifiedUser(func(u *model.User) {
		u.LastCodeSentAt = nil
	})}
	svc := newTestService(store, &fakeSender{configured: true}, testNow, "0042")

	err := svc.Resend(context.Background(), "taro@example.com")
	var cd *CooldownError
	require.ErrorAs(t, err, &cd)
	assert.Equal(t, 60*time.Second, cd.RetryAfter)
}

func TestResendUnknownEmail(t *testing.T) {
	store := &fakeStore{userErr: sql.ErrNoRows}
	svc := newTestService(store, &fakeSender{configured: true}, testNow, "0042")

	err := svc.Resend(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConfirmSuccess(t *testing.T) {
	store := &fakeStore{user: unverifiedUser()}
	svc := newTestService(store, &fakeSender{configured: true}, testNow, "")

	uid, err := svc.Confirm(context.Background(), "taro@example.com", "1234")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), uid)
	assert.True(t, store.verified)
	assert.Zero(t, store.attempts)
}

func TestConfirmMismatchIncrementsAttempts(t *testing.T) {
	store := &fakeStore{user: unverifiedUser()}
	svc := newTestService(store, &fakeSender{configured: true}, testNow, "")

	_, err := svc.Confirm(context.Background(), "taro@example.com", "9999")
	assert.ErrorIs(t, err, ErrCodeMismatch)
	assert.Equal(t, 1, store.attempts)
	assert.False(t, store.verified)
}

func TestConfirmLockedOutEvenWithRightCode(t *testing.T) {
	// Five failed attempts exhaust the budget; the sixth try is rejected
	// before the code is even compared.
	store := &fakeStore{user: unverifiedUser(func(u *model.User) {
		u.CodeAttempts = 5
	})}
	svc := newTestService(store, &fakeSender{configured: true}, testNow, "")

	_, err := svc.Confirm(context.Background(), "taro@example.com", "1234")
	assert.ErrorIs(t, err, ErrTooManyAttempts)
	assert.False(t, store.verified)
	assert.Zero(t, store.attempts) // no further increment once locked
}

func TestConfirmExpiryBoundary(t *testing.T) {
	cases := []struct {
		name    string
		expires time.Time
		wantErr error
	}{
		{"one second before expiry", testNow.Add(time.Second), nil},
		{"exactly at expiry", testNow, nil},
		{"one second after expiry", testNow.Add(-time.Second), ErrExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeStore{user: unverifiedUser(func(u *model.User) {
				exp := tc.expires
				u.CodeExpiresAt = &exp
			})}
			svc := newTestService(store, &fakeSender{configured: true}, testNow, "")

			_, err := svc.Confirm(context.Background(), "taro@example.com", "1234")
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfirmAfterVerifiedIsNotFound(t *testing.T) {
	// A verified account no longer matches the unverified lookup.
	store := &fakeStore{userErr: sql.ErrNoRows}
	svc := newTestService(store, &fakeSender{configured: true}, testNow, "")

	_, err := svc.Confirm(context.Background(), "taro@example.com", "1234")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPendingCodeOnlyInDevMode(t *testing.T) {
	store := &fakeStore{user: unverifiedUser()}

	dev := newTestService(store, &fakeSender{configured: false}, testNow, "")
	code, err := dev.PendingCode(context.Background(), "taro@example.com")
	require.NoError(t, err)
	assert.Equal(t, "1234", code)

	prod := newTestService(store, &fakeSender{configured: true}, testNow, "")
	code, err = prod.PendingCode(context.Background(), "taro@example.com")
	require.NoError(t, err)
	assert.Empty(t, code)
}

func TestCryptoCodeSourceFormat(t *testing.T) {
	var src cryptoCodeSource
	for i := 0; i < 50; i++ {
		code, err := src.Code()
		require.NoError(t, err)
		require.Len(t, code, 4)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9')
		}
	}
}
