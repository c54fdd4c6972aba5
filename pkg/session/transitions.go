package session

import (
	"sync"
	"time"
)

// Transition is a short-lived record of a status change awaiting user
// confirmation, e.g. the switch into AI mode while still paired.
type Transition struct {
	UserID    string
	Target    Status
	PeerID    string
	ExpiresAt time.Time
}

// TransitionTracker holds at most one pending transition per user. Entries
// are removed on confirm (Take), on decline (Drop), and by Prune when their
// TTL elapses, so an abandoned confirmation dialog never wedges a user.
type TransitionTracker struct {
	mu      sync.Mutex
	ttl     time.Duration
	pending map[string]Transition
}

func NewTransitionTracker(ttl time.Duration) *TransitionTracker {
	return &TransitionTracker{
		ttl:     ttl,
		pending: make(map[string]Transition),
	}
}

// Put records a pending transition, replacing any previous one for the user.
func (t *TransitionTracker) Put(userID string, target Status, peerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[userID] = Transition{
		UserID:    userID,
		Target:    target,
		PeerID:    peerID,
		ExpiresAt: time.Now().Add(t.ttl),
	}
}

// Take removes and returns the pending transition for a user, if any.
// Expired entries are treated as absent.
func (t *TransitionTracker) Take(userID string) (Transition, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tr, ok := t.pending[userID]
	if !ok {
		return Transition{}, false
	}
	delete(t.pending, userID)
	if time.Now().After(tr.ExpiresAt) {
		return Transition{}, false
	}
	return tr, true
}

// Drop discards the pending transition for a user.
func (t *TransitionTracker) Drop(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, userID)
}

// Prune removes expired entries and returns how many were dropped.
func (t *TransitionTracker) Prune(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	dropped := 0
	for id, tr := range t.pending {
		if now.After(tr.ExpiresAt) {
			delete(t.pending, id)
			dropped++
		}
	}
	return dropped
}
