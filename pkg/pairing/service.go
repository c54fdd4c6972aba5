// Package pairing owns how sessions become paired and unpaired: random
// matchmaking, private invite links, and teardown. The relay core only
// reads the state this package writes.
package pairing

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/tinyland-inc/anonchat/pkg/logger"
	"github.com/tinyland-inc/anonchat/pkg/relay"
	"github.com/tinyland-inc/anonchat/pkg/session"
)

// Notifier delivers plain-text service notices to a user.
type Notifier interface {
	SendText(ctx context.Context, userID, text string) error
}

// Forgetter is implemented by responders that keep per-user conversation
// state. It is invoked when a user leaves AI mode so nothing lingers.
type Forgetter interface {
	Forget(userID string)
}

const (
	msgAlreadyConnected = "You are already connected. Disconnect first to start a new connection."
	msgInAIChat         = "You are chatting with the AI. Leave the AI chat first."
	msgSearching        = "🔍 Searching for a random partner... You will be connected as soon as someone else joins."
	msgStillSearching   = "Still searching for a partner. Hang tight!"
	msgNotConnected     = "You are not currently connected to anyone."
	msgStoppedSearch    = "Stopped searching."
	msgDisconnected     = "Disconnected. Use the menu to start a new connection."
	msgPartnerLeft      = "Your partner has left the chat."
	msgLeftAIChat       = "You left the AI chat."
	msgInvalidLink      = "Invalid or expired private link."
	msgOwnLink          = "You can't use your own invite link."
	msgHostBusy         = "This link's owner is already connected to someone else."
	msgTimerExpired     = "⏱ Session timer expired. You have been disconnected."
)

// Service pairs and unpairs sessions. A single waiting slot implements the
// random queue: the next requester is matched with whoever is waiting.
type Service struct {
	store     session.Store
	notify    Notifier
	inviteTTL time.Duration

	forget Forgetter

	mu      sync.Mutex
	waiting string
}

func NewService(store session.Store, notify Notifier, inviteTTL time.Duration) *Service {
	return &Service{
		store:     store,
		notify:    notify,
		inviteTTL: inviteTTL,
	}
}

// SetForgetter registers a hook called whenever a user leaves AI mode.
func (s *Service) SetForgetter(f Forgetter) {
	s.forget = f
}

// RequestRandom enters the user into random matchmaking. The returned text
// is the notice to show the requester.
func (s *Service) RequestRandom(ctx context.Context, userID string) (string, error) {
	sess, err := s.store.CreateIfAbsent(userID)
	if err != nil {
		return "", err
	}
	if sess.Status == session.StatusAI {
		return msgInAIChat, nil
	}
	if sess.Status.RequiresPeer() {
		return msgAlreadyConnected, nil
	}

	s.mu.Lock()
	if s.waiting == userID {
		s.mu.Unlock()
		return msgStillSearching, nil
	}

	partner := s.waiting
	if partner != "" {
		// Only pair with a partner that is still idle; a stale waiting
		// slot (user reconnected elsewhere meanwhile) is discarded.
		if p, ok := s.store.Get(partner); !ok || p.Status != session.StatusOpen {
			partner = ""
		}
	}
	if partner == "" {
		s.waiting = userID
		s.mu.Unlock()
		logger.InfoCF("pairing", "User waiting for random match", map[string]any{"user_id": userID})
		return msgSearching, nil
	}
	s.waiting = ""
	s.mu.Unlock()

	if err := s.pair(ctx, partner, userID, session.StatusRandom); err != nil {
		return "", err
	}

	partnerSess, _ := s.store.Get(partner)
	s.sendNotice(ctx, partner, connectedText(sess.AnonymousName))
	return connectedText(partnerSess.AnonymousName), nil
}

// Disconnect tears down the user's current pairing (or leaves AI mode, or
// abandons a pending search). The returned text is for the requester.
func (s *Service) Disconnect(ctx context.Context, userID string) (string, error) {
	s.mu.Lock()
	if s.waiting == userID {
		s.waiting = ""
		s.mu.Unlock()
		return msgStoppedSearch, nil
	}
	s.mu.Unlock()

	id, ok := relay.Normalize(s.store, userID)
	if !ok {
		return msgNotConnected, nil
	}
	sess, _ := s.store.Get(id)

	switch {
	case sess.Status == session.StatusAI:
		if err := s.store.SetStatusAndPeer(id, session.StatusOpen, ""); err != nil {
			return "", err
		}
		if s.forget != nil {
			s.forget.Forget(id)
		}
		return msgLeftAIChat, nil

	case sess.Status.RequiresPeer():
		if err := s.teardown(ctx, id, sess.PeerID, msgPartnerLeft); err != nil {
			return "", err
		}
		return msgDisconnected, nil

	default:
		return msgNotConnected, nil
	}
}

// CreateInvite issues a private-connection link for the user.
func (s *Service) CreateInvite(ctx context.Context, userID string) (string, error) {
	sess, err := s.store.CreateIfAbsent(userID)
	if err != nil {
		return "", err
	}
	if sess.Status == session.StatusAI {
		return msgInAIChat, nil
	}
	if sess.Status.RequiresPeer() {
		return msgAlreadyConnected, nil
	}

	token := session.NewInviteToken()
	if err := s.store.SetOTP(userID, token, time.Now().Add(s.inviteTTL)); err != nil {
		return "", err
	}

	logger.InfoCF("pairing", "Private invite created", map[string]any{"user_id": userID})
	return "🔐 Share this link with your partner. It expires in " +
		s.inviteTTL.Round(time.Minute).String() + ":\n\n/" + token, nil
}

// VerifyInvite redeems a private link (/92xxxxxxx) for the calling user and
// pairs them with the link's owner.
func (s *Service) VerifyInvite(ctx context.Context, userID, link string) (string, error) {
	token := strings.TrimPrefix(strings.TrimSpace(link), "/")
	if token == "" {
		return msgInvalidLink, nil
	}

	var host session.Session
	found := false
	s.store.Range(func(sess session.Session) bool {
		if sess.OTP == token {
			host = sess
			found = true
			return false
		}
		return true
	})
	if !found {
		return msgInvalidLink, nil
	}
	if time.Now().After(host.OTPExpiresAt) {
		if err := s.store.SetOTP(host.UserID, "", time.Time{}); err != nil {
			return "", err
		}
		return msgInvalidLink, nil
	}

	guest, err := s.store.CreateIfAbsent(userID)
	if err != nil {
		return "", err
	}
	if guest.UserID == host.UserID {
		return msgOwnLink, nil
	}
	if guest.Status.RequiresPeer() || guest.Status == session.StatusAI {
		return msgAlreadyConnected, nil
	}
	if host.Status != session.StatusOpen {
		// The host moved on since issuing the link (paired up, or entered
		// AI chat). Never drag them out of that state.
		return msgHostBusy, nil
	}

	if err := s.store.SetOTP(host.UserID, "", time.Time{}); err != nil {
		return "", err
	}
	if err := s.pair(ctx, host.UserID, guest.UserID, session.StatusPrivate); err != nil {
		return "", err
	}

	s.sendNotice(ctx, host.UserID, privateText(guest.AnonymousName))
	return privateText(host.AnonymousName), nil
}

// ExpirePair ends a timed-out paired session on both sides, notifying both
// users. Used by the maintenance sweeper.
func (s *Service) ExpirePair(ctx context.Context, userID string) error {
	sess, ok := s.store.Get(userID)
	if !ok || !sess.Status.RequiresPeer() {
		return nil
	}
	if err := s.teardown(ctx, userID, sess.PeerID, msgTimerExpired); err != nil {
		return err
	}
	s.sendNotice(ctx, userID, msgTimerExpired)
	return nil
}

// pair links two sessions under the given status. On a partial failure the
// first side is rolled back to OPEN so no one ends up half-paired.
func (s *Service) pair(ctx context.Context, a, b string, status session.Status) error {
	if err := s.store.SetStatusAndPeer(a, status, b); err != nil {
		return err
	}
	if err := s.store.SetStatusAndPeer(b, status, a); err != nil {
		if rbErr := s.store.SetStatusAndPeer(a, session.StatusOpen, ""); rbErr != nil {
			logger.ErrorCF("pairing", "Rollback failed", map[string]any{
				"user_id": a,
				"error":   rbErr.Error(),
			})
		}
		return err
	}

	logger.InfoCF("pairing", "Users paired", map[string]any{
		"a":      a,
		"b":      b,
		"status": string(status),
	})
	return nil
}

// teardown unpairs the user and, when the counterpart still points back at
// them, unpairs and notifies the counterpart too.
func (s *Service) teardown(ctx context.Context, userID, peerID, peerNotice string) error {
	if err := s.store.SetStatusAndPeer(userID, session.StatusOpen, ""); err != nil {
		return err
	}

	peer, ok := relay.Normalize(s.store, peerID)
	if !ok {
		return nil
	}
	peerSess, _ := s.store.Get(peer)
	if other, ok := relay.Normalize(s.store, peerSess.PeerID); !ok || other != userID {
		// Counterpart already moved on; nothing to undo on their side.
		return nil
	}
	if err := s.store.SetStatusAndPeer(peer, session.StatusOpen, ""); err != nil {
		return err
	}
	s.sendNotice(ctx, peer, peerNotice)
	return nil
}

func (s *Service) sendNotice(ctx context.Context, userID, text string) {
	if s.notify == nil {
		return
	}
	if err := s.notify.SendText(ctx, userID, text); err != nil {
		logger.WarnCF("pairing", "Notice delivery failed", map[string]any{
			"user_id": userID,
			"error":   err.Error(),
		})
	}
}

func connectedText(partnerName string) string {
	return "🔀 Connected! You are now chatting with " + partnerName + ". Everything you send stays anonymous."
}

func privateText(partnerName string) string {
	return "🔐 Private connection established with " + partnerName + "."
}
