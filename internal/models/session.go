package models

import "time"

// BrokerSession is one row per OAuth-connected broker account. Tokens expire
// daily on the provider side; validity requires ExpiresAt strictly in the
// future. The most recent CreatedAt row is the logically current session.
type BrokerSession struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"` // empty until the callback is associated (orphan session)
	AccessToken string    `json:"-"`
	PublicToken string    `json:"public_token,omitempty"`
	BrokerUser  string    `json:"broker_user,omitempty"` // provider-side account id
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// ValidAt reports whether the session is usable at the given instant.
// Expiry exactly equal to now counts as expired.
func (s *BrokerSession) ValidAt(now time.Time) bool {
	return s != nil && now.Before(s.ExpiresAt)
}

// SessionStatus is the API view of the current broker connection.
type SessionStatus struct {
	Connected  bool      `json:"connected"`
	BrokerUser string    `json:"broker_user,omitempty"`
	ExpiresAt  time.Time `json:"expires_at,omitzero"`
}
