// Package session holds the per-user pairing state and the store contract
// the relay core reads it through. The persistence substrate stays behind
// the Store interface; FileStore is the built-in JSON-file implementation.
package session

import "time"

// Status is the closed set of states a user session can be in.
type Status string

const (
	// StatusOpen means idle and unpaired.
	StatusOpen Status = "OPEN"
	// StatusConnected means paired through an accepted connection.
	StatusConnected Status = "CONNECTED"
	// StatusPrivate means paired through a private invite link.
	StatusPrivate Status = "PRIVATE"
	// StatusRandom means paired through random matchmaking.
	StatusRandom Status = "RANDOM"
	// StatusBroadcaster means relaying to a broadcast counterpart.
	StatusBroadcaster Status = "BCASTER"
	// StatusAI means chatting with the automated responder; no peer.
	StatusAI Status = "AI"
)

// CanMessage reports whether a session in this status may send messages
// through the relay at all.
func (s Status) CanMessage() bool {
	switch s {
	case StatusConnected, StatusAI, StatusPrivate, StatusRandom, StatusBroadcaster:
		return true
	}
	return false
}

// RequiresPeer reports whether this status demands a non-empty peer ID.
func (s Status) RequiresPeer() bool {
	switch s {
	case StatusConnected, StatusPrivate, StatusRandom, StatusBroadcaster:
		return true
	}
	return false
}

func (s Status) valid() bool {
	switch s {
	case StatusOpen, StatusConnected, StatusPrivate, StatusRandom, StatusBroadcaster, StatusAI:
		return true
	}
	return false
}

// Membership describes the account card shown on /start.
type Membership struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Credit int    `json:"credit"`
}

// Session is one record per end user. UserID and AnonymousName are assigned
// at creation and never change afterwards.
type Session struct {
	UserID        string     `json:"user_id"`
	PeerID        string     `json:"peer_id,omitempty"`
	Status        Status     `json:"status"`
	AnonymousName string     `json:"anonymous_name"`
	Timer         int        `json:"timer"` // session lifetime in minutes, 0 = unlimited
	OTP           string     `json:"otp,omitempty"`
	OTPExpiresAt  time.Time  `json:"otp_expires_at,omitzero"`
	Membership    Membership `json:"membership"`
	CreatedAt     time.Time  `json:"created_at"`
	PairedAt      time.Time  `json:"paired_at,omitzero"`
}
