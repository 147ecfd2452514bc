package domain

import "time"

// Session is the server-side record behind a bearer token. ID is the
// token's jti claim.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TTL is the remaining lifetime of the session at now.
func (s *Session) TTL(now time.Time) time.Duration {
	return s.ExpiresAt.Sub(now)
}

// Actor identifies the session owner in audit records.
func (s *Session) Actor(requestID, clientIP string) Actor {
	if s == nil {
		return Actor{RequestID: requestID, ClientIP: clientIP}
	}
	return Actor{ID: s.UserID, Name: s.Username, RequestID: requestID, ClientIP: clientIP}
}
