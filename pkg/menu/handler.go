package menu

import (
	"context"
	"fmt"
	"strings"

	"github.com/tinyland-inc/anonchat/pkg/bus"
	"github.com/tinyland-inc/anonchat/pkg/logger"
	"github.com/tinyland-inc/anonchat/pkg/pairing"
	"github.com/tinyland-inc/anonchat/pkg/session"
)

const (
	welcomeHeader = "𝓐𝓷𝓸𝓷𝔂𝓶𝓸𝓾𝓼 𝓒𝓱𝓪𝓽𝓼"
	aboutText     = "Anonymous Chats pairs you with another user and relays messages both ways. " +
		"Nobody ever sees who you are."
	privacyText = "Messages are relayed, not stored. Your peer only ever sees your anonymous name. " +
		"Media arrives blurred until the recipient taps to reveal it."
	aiWelcomeText = "✨ You are now chatting with the AI. Send text messages and I'll reply. " +
		"Use the stop button anytime to leave."
	aiConfirmText = "You are connected with a partner. Do you want to close the connection " +
		"to continue with the AI chat?"
	broadcastingText = "This feature is unavailable for you"
	anonNumberText   = "Anonymous number connections are not available right now."
	verifyingText    = "Verifying Private Link..."
)

// Handler routes commands and callback presses.
type Handler struct {
	store       session.Store
	transitions *session.TransitionTracker
	pairing     *pairing.Service
	msgr        Messenger
}

func NewHandler(
	store session.Store,
	transitions *session.TransitionTracker,
	pairingSvc *pairing.Service,
	msgr Messenger,
) *Handler {
	return &Handler{
		store:       store,
		transitions: transitions,
		pairing:     pairingSvc,
		msgr:        msgr,
	}
}

// HandleCommand processes a slash command event.
func (h *Handler) HandleCommand(ctx context.Context, cmd bus.Command) {
	switch {
	case cmd.Name == "start":
		h.handleStart(ctx, cmd.UserID)

	case strings.HasPrefix(cmd.Name, "92"):
		h.reply(ctx, cmd.UserID, verifyingText)
		text, err := h.pairing.VerifyInvite(ctx, cmd.UserID, cmd.Name)
		if err != nil {
			logger.ErrorCF("menu", "Private link verification failed", map[string]any{
				"user_id": cmd.UserID,
				"error":   err.Error(),
			})
			text = "Something went wrong verifying the link. Please try again later."
		}
		h.reply(ctx, cmd.UserID, text)

	case isAnonNumberCommand(cmd.Name):
		h.reply(ctx, cmd.UserID, anonNumberText)

	default:
		logger.DebugCF("menu", "Ignoring unknown command", map[string]any{"name": cmd.Name})
	}
}

// isAnonNumberCommand matches anony-number links: "an" followed by digits
// only. Commands arrive lowercased, so /AN1234567 comes in as "an1234567".
func isAnonNumberCommand(name string) bool {
	digits, ok := strings.CutPrefix(name, "an")
	if !ok || digits == "" {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// HandleCallback processes an inline-keyboard button press.
func (h *Handler) HandleCallback(ctx context.Context, cb bus.Callback) {
	switch cb.Data {
	case cbMore:
		h.ack(ctx, cb)
		h.editKeyboard(ctx, cb, MoreMenu())

	case cbBack:
		h.ack(ctx, cb)
		h.editKeyboard(ctx, cb, MainMenu())

	case cbPrivateConnection:
		h.ack(ctx, cb)
		text, err := h.pairing.CreateInvite(ctx, cb.UserID)
		h.replyOutcome(ctx, cb.UserID, text, err)

	case cbRandomConnection:
		h.ack(ctx, cb)
		text, err := h.pairing.RequestRandom(ctx, cb.UserID)
		h.replyOutcome(ctx, cb.UserID, text, err)

	case cbEject, cbStop:
		h.ack(ctx, cb)
		text, err := h.pairing.Disconnect(ctx, cb.UserID)
		h.replyOutcome(ctx, cb.UserID, text, err)

	case cbForward:
		// Skip to the next random partner: drop the current one, re-queue.
		h.ack(ctx, cb)
		if _, err := h.pairing.Disconnect(ctx, cb.UserID); err != nil {
			logger.ErrorCF("menu", "Forward disconnect failed", map[string]any{
				"user_id": cb.UserID,
				"error":   err.Error(),
			})
		}
		text, err := h.pairing.RequestRandom(ctx, cb.UserID)
		h.replyOutcome(ctx, cb.UserID, text, err)

	case cbBroadcasting:
		h.alert(ctx, cb, broadcastingText)

	case cbAnonNumber:
		h.alert(ctx, cb, anonNumberText)

	case cbAbout:
		h.ack(ctx, cb)
		h.reply(ctx, cb.UserID, aboutText)

	case cbPrivacy:
		h.ack(ctx, cb)
		h.reply(ctx, cb.UserID, privacyText)

	case cbMembership:
		h.handleMembership(ctx, cb)

	case cbHelp:
		h.ack(ctx, cb)
		h.reply(ctx, cb.UserID, "Questions or trouble? Reach the operators at support@anonchat.example.")

	case cbAIChat:
		h.handleAIChat(ctx, cb)

	case cbAIConfirmYes:
		h.handleAIConfirmYes(ctx, cb)

	case cbAIConfirmNo:
		h.ack(ctx, cb)
		h.transitions.Drop(cb.UserID)
		h.deleteMessage(ctx, cb)

	default:
		h.ack(ctx, cb)
	}
}

func (h *Handler) handleStart(ctx context.Context, userID string) {
	sess, err := h.store.CreateIfAbsent(userID)
	if err != nil {
		logger.ErrorCF("menu", "Registration failed", map[string]any{
			"user_id": userID,
			"error":   err.Error(),
		})
		h.reply(ctx, userID, "Registration failed. Please try /start again.")
		return
	}

	welcome := fmt.Sprintf(
		"%s\n\nYour anonymous name: %s\nYour membership ID: %s\nMembership type: %s\nAvailable credits: %d",
		welcomeHeader,
		sess.AnonymousName,
		sess.Membership.ID,
		sess.Membership.Type,
		sess.Membership.Credit,
	)

	if err := h.msgr.SendKeyboard(ctx, userID, welcome, MainMenu()); err != nil {
		logger.ErrorCF("menu", "Welcome delivery failed", map[string]any{
			"user_id": userID,
			"error":   err.Error(),
		})
	}
}

func (h *Handler) handleMembership(ctx context.Context, cb bus.Callback) {
	sess, ok := h.store.Get(cb.UserID)
	if !ok {
		h.alert(ctx, cb, "Could not retrieve membership information. Please try again later.")
		return
	}
	h.alert(ctx, cb, fmt.Sprintf(
		"Membership ID: %s\nMembership Type: %s\nCredit: %d",
		sess.Membership.ID, sess.Membership.Type, sess.Membership.Credit,
	))
}

func (h *Handler) handleAIChat(ctx context.Context, cb bus.Callback) {
	h.ack(ctx, cb)

	sess, err := h.store.CreateIfAbsent(cb.UserID)
	if err != nil {
		logger.ErrorCF("menu", "AI chat lookup failed", map[string]any{
			"user_id": cb.UserID,
			"error":   err.Error(),
		})
		return
	}

	if sess.Status.RequiresPeer() {
		// Paired users must confirm before the connection is dropped.
		h.transitions.Put(cb.UserID, session.StatusAI, sess.PeerID)
		if err := h.msgr.SendKeyboard(ctx, cb.UserID, aiConfirmText, ConfirmAIMenu()); err != nil {
			logger.ErrorCF("menu", "AI confirm prompt failed", map[string]any{
				"user_id": cb.UserID,
				"error":   err.Error(),
			})
		}
		return
	}

	h.enterAIMode(ctx, cb.UserID)
}

func (h *Handler) handleAIConfirmYes(ctx context.Context, cb bus.Callback) {
	h.ack(ctx, cb)
	h.deleteMessage(ctx, cb)

	if _, ok := h.transitions.Take(cb.UserID); !ok {
		// Expired or never recorded; treat the press as a fresh request.
		sess, _ := h.store.Get(cb.UserID)
		if sess.Status.RequiresPeer() {
			h.reply(ctx, cb.UserID, "That confirmation expired. Please use the AI Chat button again.")
			return
		}
		h.enterAIMode(ctx, cb.UserID)
		return
	}

	if _, err := h.pairing.Disconnect(ctx, cb.UserID); err != nil {
		logger.ErrorCF("menu", "Disconnect before AI chat failed", map[string]any{
			"user_id": cb.UserID,
			"error":   err.Error(),
		})
		return
	}
	h.enterAIMode(ctx, cb.UserID)
}

func (h *Handler) enterAIMode(ctx context.Context, userID string) {
	if err := h.store.SetStatusAndPeer(userID, session.StatusAI, ""); err != nil {
		logger.ErrorCF("menu", "AI mode switch failed", map[string]any{
			"user_id": userID,
			"error":   err.Error(),
		})
		h.reply(ctx, userID, "Could not start the AI chat. Please try again later.")
		return
	}
	logger.InfoCF("menu", "User entered AI mode", map[string]any{"user_id": userID})
	h.reply(ctx, userID, aiWelcomeText)
}

func (h *Handler) replyOutcome(ctx context.Context, userID, text string, err error) {
	if err != nil {
		logger.ErrorCF("menu", "Pairing operation failed", map[string]any{
			"user_id": userID,
			"error":   err.Error(),
		})
		text = "Sorry, there was an error processing your request. Please try again later."
	}
	h.reply(ctx, userID, text)
}

func (h *Handler) reply(ctx context.Context, userID, text string) {
	if err := h.msgr.SendText(ctx, userID, text); err != nil {
		logger.ErrorCF("menu", "Reply delivery failed", map[string]any{
			"user_id": userID,
			"error":   err.Error(),
		})
	}
}

func (h *Handler) ack(ctx context.Context, cb bus.Callback) {
	if err := h.msgr.AnswerCallback(ctx, cb.ID, "", false); err != nil {
		logger.DebugCF("menu", "Callback ack failed", map[string]any{"error": err.Error()})
	}
}

func (h *Handler) alert(ctx context.Context, cb bus.Callback, text string) {
	if err := h.msgr.AnswerCallback(ctx, cb.ID, text, true); err != nil {
		logger.DebugCF("menu", "Callback alert failed", map[string]any{"error": err.Error()})
	}
}

func (h *Handler) editKeyboard(ctx context.Context, cb bus.Callback, kb Keyboard) {
	if cb.ChatID == "" || cb.MessageID == 0 {
		return
	}
	if err := h.msgr.EditKeyboard(ctx, cb.ChatID, cb.MessageID, kb); err != nil {
		logger.DebugCF("menu", "Keyboard edit failed", map[string]any{"error": err.Error()})
	}
}

func (h *Handler) deleteMessage(ctx context.Context, cb bus.Callback) {
	if cb.ChatID == "" || cb.MessageID == 0 {
		return
	}
	if err := h.msgr.DeleteMessage(ctx, cb.ChatID, cb.MessageID); err != nil {
		logger.DebugCF("menu", "Message delete failed", map[string]any{"error": err.Error()})
	}
}
