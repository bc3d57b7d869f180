package model

import "time"

// User represents an application user record as stored in the
// `users` table. Each field corresponds to a column in the
// database. The json tags are omitted here because these structs
// are primarily used internally by the repository layer; handlers
// define separate response types with appropriate JSON tags.
//
// The verification fields describe the account-activation state
// machine: exactly one of {unverified with pending code, unverified
// without code, verified} holds at any time.  Once IsVerified flips
// to true the code, expiry and attempt counter are cleared and are
// never repopulated.
//
// Fields:
//  ID               – primary key identifier of the user.
//  Username         – unique handle, normalized to a single leading '@'.
//  Email            – address the verification code is delivered to.
//  PasswordHash     – bcrypt hashed password.
//  IsVerified       – whether the account has been activated.
//  VerificationCode – pending 4-digit code (nil when none is outstanding).
//  CodeExpiresAt    – expiry of the pending code (nil when none).
//  CodeAttempts     – failed confirmation attempts since last issuance.
//  LastCodeSentAt   – when a code was last issued (nil before first send).
//  IsPremium        – subscription tier flag, set by an external
//                     collaborator and read-only inside this service.
//  CreatedAt        – timestamp of creation.
//  UpdatedAt        – timestamp of last update.
type User struct {
	ID               uint64     // users.id
	Username         string     // users.username
	Email            string     // users.email
	PasswordHash     string     // users.password_hash
	IsVerified       bool       // users.is_verified
	VerificationCode *string    // users.verification_code (nullable)
	CodeExpiresAt    *time.Time // users.verification_code_expires_at (nullable)
	CodeAttempts     int        // users.verification_attempts
	LastCodeSentAt   *time.Time // users.last_code_sent_at (nullable)
	IsPremium        bool       // users.is_premium
	CreatedAt        time.Time  // users.created_at
	UpdatedAt        time.Time  // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and contains metadata for expiry
// and revocation.  The plain token is not stored; only its
// SHA-256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
