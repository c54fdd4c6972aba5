package session

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sessions.json")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	return store, path
}

func TestCreateIfAbsent_NewSession(t *testing.T) {
	store, _ := newStore(t)

	sess, err := store.CreateIfAbsent("1001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.UserID != "1001" {
		t.Errorf("expected user 1001, got %q", sess.UserID)
	}
	if sess.Status != StatusOpen {
		t.Errorf("new session must start OPEN, got %s", sess.Status)
	}
	if len(sess.AnonymousName) != 8 {
		t.Errorf("expected 8-char anonymous name, got %q", sess.AnonymousName)
	}
	if sess.Timer != DefaultTimerMinutes {
		t.Errorf("expected default timer %d, got %d", DefaultTimerMinutes, sess.Timer)
	}
	if !strings.HasPrefix(sess.Membership.ID, "92") || len(sess.Membership.ID) != 9 {
		t.Errorf("expected 9-digit 92-prefixed membership ID, got %q", sess.Membership.ID)
	}
	if sess.Membership.Type != "SILVER" || sess.Membership.Credit != 300 {
		t.Errorf("unexpected membership %+v", sess.Membership)
	}
}

func TestCreateIfAbsent_Idempotent(t *testing.T) {
	store, _ := newStore(t)

	first, err := store.CreateIfAbsent("1001")
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	again, err := store.CreateIfAbsent("1001")
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if again.AnonymousName != first.AnonymousName {
		t.Error("re-creation must not reassign the anonymous name")
	}
	if again.Membership != first.Membership {
		t.Error("re-creation must not reassign the membership")
	}
}

func TestCreateIfAbsent_PreservesPairingState(t *testing.T) {
	store, _ := newStore(t)
	mustCreate(t, store, "1", "2")
	if err := store.SetStatusAndPeer("1", StatusConnected, "2"); err != nil {
		t.Fatalf("pairing: %v", err)
	}

	sess, err := store.CreateIfAbsent("1")
	if err != nil {
		t.Fatalf("re-create: %v", err)
	}
	if sess.Status != StatusConnected || sess.PeerID != "2" {
		t.Errorf("re-creation reset pairing state: %+v", sess)
	}
}

func TestSetStatusAndPeer_Invariants(t *testing.T) {
	store, _ := newStore(t)
	mustCreate(t, store, "1")

	cases := []struct {
		name   string
		status Status
		peer   string
		ok     bool
	}{
		{"connected with peer", StatusConnected, "2", true},
		{"connected without peer", StatusConnected, "", false},
		{"open with peer", StatusOpen, "2", false},
		{"open without peer", StatusOpen, "", true},
		{"ai with peer", StatusAI, "2", false},
		{"ai without peer", StatusAI, "", true},
		{"random with peer", StatusRandom, "2", true},
		{"private with peer", StatusPrivate, "2", true},
		{"bcaster with peer", StatusBroadcaster, "2", true},
		{"unknown status", Status("WEIRD"), "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := store.SetStatusAndPeer("1", tc.status, tc.peer)
			if tc.ok && err != nil {
				t.Errorf("expected success, got %v", err)
			}
			if !tc.ok && err == nil {
				t.Error("expected invariant violation")
			}
		})
	}
}

func TestSetStatusAndPeer_UnknownUser(t *testing.T) {
	store, _ := newStore(t)

	if err := store.SetStatusAndPeer("ghost", StatusOpen, ""); err == nil {
		t.Error("expected error for unknown user")
	}
}

func TestSetStatusAndPeer_StampsPairedAt(t *testing.T) {
	store, _ := newStore(t)
	mustCreate(t, store, "1", "2")

	if err := store.SetStatusAndPeer("1", StatusRandom, "2"); err != nil {
		t.Fatalf("pairing: %v", err)
	}
	sess, _ := store.Get("1")
	if sess.PairedAt.IsZero() {
		t.Error("pairing must stamp PairedAt")
	}

	if err := store.SetStatusAndPeer("1", StatusOpen, ""); err != nil {
		t.Fatalf("unpairing: %v", err)
	}
	sess, _ = store.Get("1")
	if !sess.PairedAt.IsZero() {
		t.Error("unpairing must clear PairedAt")
	}
}

func TestSetOTP_RoundTripAndClear(t *testing.T) {
	store, _ := newStore(t)
	mustCreate(t, store, "1")

	expires := time.Now().Add(15 * time.Minute)
	if err := store.SetOTP("1", "921234567", expires); err != nil {
		t.Fatalf("setting OTP: %v", err)
	}
	sess, _ := store.Get("1")
	if sess.OTP != "921234567" || sess.OTPExpiresAt.IsZero() {
		t.Errorf("unexpected OTP state %+v", sess)
	}

	if err := store.SetOTP("1", "", time.Time{}); err != nil {
		t.Fatalf("clearing OTP: %v", err)
	}
	sess, _ = store.Get("1")
	if sess.OTP != "" || !sess.OTPExpiresAt.IsZero() {
		t.Errorf("OTP not cleared: %+v", sess)
	}
}

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	store, path := newStore(t)
	mustCreate(t, store, "1", "2")
	if err := store.SetStatusAndPeer("1", StatusPrivate, "2"); err != nil {
		t.Fatalf("pairing: %v", err)
	}
	before, _ := store.Get("1")

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}
	after, ok := reopened.Get("1")
	if !ok {
		t.Fatal("session lost across reopen")
	}
	if after.Status != StatusPrivate || after.PeerID != "2" {
		t.Errorf("pairing state lost: %+v", after)
	}
	if after.AnonymousName != before.AnonymousName {
		t.Error("anonymous name lost across reopen")
	}
}

func TestFileStore_MissingFileIsFreshStore(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "nope", "sessions.json"))
	if err != nil {
		t.Fatalf("expected fresh store for missing file, got %v", err)
	}
	if _, ok := store.Get("1"); ok {
		t.Error("fresh store should be empty")
	}
}

func TestWithSessionTimer(t *testing.T) {
	store, err := NewFileStore(
		filepath.Join(t.TempDir(), "sessions.json"),
		WithSessionTimer(45),
	)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	sess, err := store.CreateIfAbsent("1")
	if err != nil {
		t.Fatalf("creating session: %v", err)
	}
	if sess.Timer != 45 {
		t.Errorf("expected timer 45, got %d", sess.Timer)
	}
}

func TestFirstMatch(t *testing.T) {
	store, _ := newStore(t)
	mustCreate(t, store, "111222", "333444", "x111y")

	sess, ok := store.FirstMatch("111")
	if !ok || sess.UserID != "111222" {
		t.Errorf("expected prefix match 111222, got %+v ok=%v", sess, ok)
	}

	sess, ok = store.FirstMatch("11y")
	if !ok || sess.UserID != "x111y" {
		t.Errorf("expected substring match x111y, got %+v ok=%v", sess, ok)
	}

	if _, ok := store.FirstMatch("zzz"); ok {
		t.Error("expected no match")
	}
	if _, ok := store.FirstMatch("  "); ok {
		t.Error("blank candidate must not match")
	}
}

func TestRange_StopsEarly(t *testing.T) {
	store, _ := newStore(t)
	mustCreate(t, store, "1", "2", "3")

	seen := 0
	store.Range(func(Session) bool {
		seen++
		return seen < 2
	})
	if seen != 2 {
		t.Errorf("expected range to stop after 2, saw %d", seen)
	}
}

func mustCreate(t *testing.T, store *FileStore, userIDs ...string) {
	t.Helper()
	for _, id := range userIDs {
		if _, err := store.CreateIfAbsent(id); err != nil {
			t.Fatalf("creating session %s: %v", id, err)
		}
	}
}
