package session

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
)

// NewAnonymousName returns a short display label for a new session.
// The label is the only identity ever shown to a peer.
func NewAnonymousName() string {
	return uuid.NewString()[:8]
}

// NewMembershipID returns a 9-digit account number starting with "92".
func NewMembershipID() string {
	return fmt.Sprintf("92%07d", rand.IntN(10_000_000))
}

// NewInviteToken returns a private-connection pairing token. Tokens share
// the "92" prefix so invite links arrive as /92xxxxxxx commands.
func NewInviteToken() string {
	return fmt.Sprintf("92%07d", rand.IntN(10_000_000))
}
