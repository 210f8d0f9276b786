// Package queue defines auth lifecycle messages exchanged over the broker
// and the consumer that turns them into an audit log.
package queue

// Event types published to the audit queue.
const (
	EventUserRegistered = "user.registered"
	EventSessionRevoked = "session.revoked"
)

// AuthEvent is published when an account is created or a refresh-token
// record is revoked. It carries enough information for downstream
// consumers to audit session activity without querying the primary
// database. Reason distinguishes rotation-on-use from explicit logout.
type AuthEvent struct {
	Type    string `json:"type"`
	UserID  uint64 `json:"user_id"`
	Email   string `json:"email,omitempty"`
	Role    string `json:"role,omitempty"`
	TokenID string `json:"token_id,omitempty"`
	Reason  string `json:"reason,omitempty"`
	At      string `json:"at"`
}
