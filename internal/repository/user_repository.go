package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/hiraku/food-sns/internal/model"
	"github.com/hiraku/food-sns/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrUsernameExists = errors.New("username already exists")

const userColumns = `id, username, email, password_hash, is_verified, verification_code,
	verification_code_expires_at, verification_attempts, last_code_sent_at, is_premium,
	created_at, updated_at`

// Create inserts an unverified user and returns its ID.  The username is
// normalized to a single leading '@'; the same email may be registered
// more than once, only the username is unique.
func (r *UserRepo) Create(ctx context.Context, username, email, password string, cost int) (uint64, error) {
	username = "@" + strings.TrimLeft(strings.TrimSpace(username), "@")
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, is_verified, verification_attempts) VALUES (?,?,?,0,0)",
		username, email, hash)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrUsernameExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (r *UserRepo) scanUser(row *sql.Row) (model.User, error) {
	var (
		u         model.User
		code      sql.NullString
		expiresAt sql.NullTime
		sentAt    sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsVerified, &code,
		&expiresAt, &u.CodeAttempts, &sentAt, &u.IsPremium, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	if code.Valid {
		u.VerificationCode = &code.String
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		u.CodeExpiresAt = &t
	}
	if sentAt.Valid {
		t := sentAt.Time
		u.LastCodeSentAt = &t
	}
	return u, nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// GetByUsername fetches a user by handle.  Login accepts the handle with
// or without the leading '@', so callers may retry with the normalized form.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	return r.scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1", username))
}

// UnverifiedByEmail fetches the unverified user registered under the given
// email.  Verified accounts are deliberately not matched: after a successful
// confirmation the same lookup yields sql.ErrNoRows, which the verification
// service reports as not-found.
func (r *UserRepo) UnverifiedByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? AND is_verified=0 LIMIT 1", email))
}

// StoreCode writes a freshly issued verification code, its expiry and the
// send timestamp, resetting the attempt counter.  The write is guarded on
// last_code_sent_at so that the cooldown check-then-act is a single atomic
// statement: when two resends race, only the one whose guard still holds
// takes effect.  It returns false when the guard rejected the write.
func (r *UserRepo) StoreCode(ctx context.Context, userID uint64, code string, expiresAt, sentAt, notBefore time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET verification_code=?, verification_code_expires_at=?,
			verification_attempts=0, last_code_sent_at=?
		 WHERE id=? AND is_verified=0
		   AND (last_code_sent_at IS NULL OR last_code_sent_at <= ?)`,
		code, expiresAt.UTC(), sentAt.UTC(), userID, notBefore.UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// IncrementAttempts bumps the failed-confirmation counter by one.  The
// increment happens inside the UPDATE so concurrent mismatches cannot lose
// a count.
func (r *UserRepo) IncrementAttempts(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET verification_attempts = verification_attempts + 1 WHERE id=? AND is_verified=0",
		userID)
	return err
}

// MarkVerified flips the account to verified and clears the code, expiry
// and attempt counter in one statement.  Once verified these fields are
// never repopulated; the is_verified guard makes the transition one-way.
func (r *UserRepo) MarkVerified(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE users SET is_verified=1, verification_code=NULL,
			verification_code_expires_at=NULL, verification_attempts=0
		 WHERE id=? AND is_verified=0`,
		userID)
	return err
}

// IsPremium reports the subscription tier of a user.  The flag is set by an
// external billing collaborator; this service only ever reads it.
func (r *UserRepo) IsPremium(ctx context.Context, userID uint64) (bool, error) {
	var premium bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT is_premium FROM users WHERE id=? LIMIT 1", userID).Scan(&premium)
	return premium, err
}
