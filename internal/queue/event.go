// Package queue defines message payloads exchanged over the message broker.
package queue

// UserVerifiedEvent is published when an account completes email
// verification. It carries enough information for downstream consumers to
// log or notify without querying the primary database.
type UserVerifiedEvent struct {
	UserID     uint64 `json:"user_id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	VerifiedAt string `json:"verified_at"`
}
