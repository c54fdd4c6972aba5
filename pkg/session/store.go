package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tinyland-inc/anonchat/pkg/logger"
)

// ErrInvariant is returned when a status/peer combination would violate the
// session invariants (AI and OPEN carry no peer; paired statuses must).
var ErrInvariant = errors.New("session status/peer invariant violation")

// ErrNotFound is returned by mutating operations on unknown users.
var ErrNotFound = errors.New("session not found")

// DefaultTimerMinutes is the session lifetime assigned at creation.
const DefaultTimerMinutes = 120

// Store is the access contract for session records. All operations are
// atomic with respect to a single record; no multi-record transactions.
type Store interface {
	// Get returns the session for an exact user ID.
	Get(userID string) (Session, bool)
	// CreateIfAbsent registers a user on first contact. Re-creation is a
	// no-op returning the existing record.
	CreateIfAbsent(userID string) (Session, error)
	// SetStatusAndPeer atomically updates pairing state. It rejects
	// combinations violating the session invariants.
	SetStatusAndPeer(userID string, status Status, peerID string) error
	// SetOTP stores a pairing token with its expiry; empty otp clears it.
	SetOTP(userID, otp string, expires time.Time) error
	// FirstMatch returns the first session whose ID contains candidate as
	// a prefix or substring. Last-resort lookup for the identity normalizer.
	FirstMatch(candidate string) (Session, bool)
	// Range calls fn for each session until fn returns false.
	Range(fn func(Session) bool)
}

// FileStore persists sessions as a single JSON document, loaded at open and
// rewritten atomically on every mutation.
type FileStore struct {
	mu       sync.RWMutex
	path     string
	sessions map[string]Session
	timer    int
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithSessionTimer overrides the timer assigned to new sessions, in minutes.
func WithSessionTimer(minutes int) FileStoreOption {
	return func(s *FileStore) { s.timer = minutes }
}

func NewFileStore(path string, opts ...FileStoreOption) (*FileStore, error) {
	s := &FileStore{
		path:     path,
		sessions: make(map[string]Session),
		timer:    DefaultTimerMinutes,
	}
	for _, opt := range opts {
		opt(s)
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &s.sessions); err != nil {
			return nil, fmt.Errorf("parsing session store %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Fresh store; first mutation creates the file.
	default:
		return nil, err
	}

	return s, nil
}

func (s *FileStore) Get(userID string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[userID]
	return sess, ok
}

func (s *FileStore) CreateIfAbsent(userID string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[userID]; ok {
		if sess.AnonymousName != "" {
			return sess, nil
		}
		// Backfill records created before names were assigned.
		sess.AnonymousName = NewAnonymousName()
		s.sessions[userID] = sess
		if err := s.persistLocked(); err != nil {
			return Session{}, err
		}
		return sess, nil
	}

	sess := Session{
		UserID:        userID,
		Status:        StatusOpen,
		AnonymousName: NewAnonymousName(),
		Timer:         s.timer,
		Membership: Membership{
			ID:     NewMembershipID(),
			Type:   "SILVER",
			Credit: 300,
		},
		CreatedAt: time.Now(),
	}
	s.sessions[userID] = sess
	if err := s.persistLocked(); err != nil {
		return Session{}, err
	}

	logger.InfoCF("session", "Session created", map[string]any{
		"user_id":    userID,
		"anony_name": sess.AnonymousName,
	})
	return sess, nil
}

func (s *FileStore) SetStatusAndPeer(userID string, status Status, peerID string) error {
	if err := validateStatusPeer(status, peerID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, userID)
	}

	sess.Status = status
	sess.PeerID = peerID
	if status.RequiresPeer() {
		sess.PairedAt = time.Now()
	} else {
		sess.PairedAt = time.Time{}
	}
	s.sessions[userID] = sess
	return s.persistLocked()
}

func (s *FileStore) SetOTP(userID, otp string, expires time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, userID)
	}

	sess.OTP = otp
	sess.OTPExpiresAt = expires
	if otp == "" {
		sess.OTPExpiresAt = time.Time{}
	}
	s.sessions[userID] = sess
	return s.persistLocked()
}

func (s *FileStore) FirstMatch(candidate string) (Session, bool) {
	if strings.TrimSpace(candidate) == "" {
		return Session{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	// Deterministic order so repeated lookups return the same record.
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if strings.HasPrefix(id, candidate) {
			return s.sessions[id], true
		}
	}
	for _, id := range ids {
		if strings.Contains(id, candidate) {
			return s.sessions[id], true
		}
	}
	return Session{}, false
}

func (s *FileStore) Range(fn func(Session) bool) {
	s.mu.RLock()
	snapshot := make([]Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		snapshot = append(snapshot, sess)
	}
	s.mu.RUnlock()

	for _, sess := range snapshot {
		if !fn(sess) {
			return
		}
	}
}

func (s *FileStore) persistLocked() error {
	data, err := json.MarshalIndent(s.sessions, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func validateStatusPeer(status Status, peerID string) error {
	if !status.valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvariant, status)
	}
	peer := strings.TrimSpace(peerID)
	if status.RequiresPeer() && peer == "" {
		return fmt.Errorf("%w: status %s requires a peer", ErrInvariant, status)
	}
	if !status.RequiresPeer() && peer != "" {
		return fmt.Errorf("%w: status %s must not carry a peer", ErrInvariant, status)
	}
	return nil
}
