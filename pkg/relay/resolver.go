package relay

import (
	"strings"

	"github.com/tinyland-inc/anonchat/pkg/logger"
	"github.com/tinyland-inc/anonchat/pkg/session"
)

// UnpairedReason explains why a sender has no valid counterpart.
type UnpairedReason string

const (
	ReasonNoSession           UnpairedReason = "no_session"
	ReasonNotInMessagingState UnpairedReason = "not_in_messaging_state"
	ReasonEmptyPeer           UnpairedReason = "empty_peer"
)

// Resolution is the outcome of a peer lookup: either a peer ID to deliver
// to, or a definitive unpaired reason. Resolution failures are recoverable
// results, never errors.
type Resolution struct {
	PeerID string
	Reason UnpairedReason
}

// Paired reports whether the resolution carries a deliverable peer.
func (r Resolution) Paired() bool {
	return r.Reason == ""
}

// ResolvePeer returns the currently valid counterpart for a user.
//
// Pairing is optimistic: the counterpart record need not exist for the
// resolution to succeed. A dangling peer reference still resolves Paired,
// because the send is attempted anyway and delivery failure is handled at
// the transport boundary, not here.
func ResolvePeer(store session.Store, userID string) Resolution {
	id, ok := Normalize(store, userID)
	if !ok {
		return Resolution{Reason: ReasonNoSession}
	}

	sess, _ := store.Get(id)
	if !sess.Status.CanMessage() {
		return Resolution{Reason: ReasonNotInMessagingState}
	}

	peer := strings.TrimSpace(sess.PeerID)
	if peer == "" {
		return Resolution{Reason: ReasonEmptyPeer}
	}

	// Re-normalize purely for diagnostic confirmation.
	if canonical, ok := Normalize(store, peer); ok {
		return Resolution{PeerID: canonical}
	}

	logger.WarnCF("relay", "Peer record not found, delivering anyway", map[string]any{
		"user_id": id,
		"peer_id": peer,
	})
	return Resolution{PeerID: peer}
}
