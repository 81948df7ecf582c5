package domain

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"time"
)

// SessionTTL is the fixed payment-session lifetime.
const SessionTTL = 30 * time.Minute

// Session is a time-boxed, randomly-keyed handle for a payment payload
// that would otherwise travel in the URL.
type Session struct {
	ID        string          `json:"id"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// IsExpired reports whether the session is past its expiry at the given instant.
// An expired session must be treated as absent.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// NewSessionID generates a 256-bit random, hex-encoded session identifier.
func NewSessionID() string {
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
