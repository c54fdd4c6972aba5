package relay

import (
	"context"
	"errors"
	"fmt"

	"github.com/tinyland-inc/anonchat/pkg/logger"
	"github.com/tinyland-inc/anonchat/pkg/session"
)

// ErrNoResponder is returned when a user in AI mode sends a message but no
// responder provider is configured.
var ErrNoResponder = errors.New("no AI responder configured")

// Transport is the external send primitive. Implementations own delivery,
// retries and platform idempotence; the dispatcher only reports failures.
type Transport interface {
	Send(ctx context.Context, userID string, p Payload) error
}

// Responder is the external AI collaborator for sessions in AI mode.
type Responder interface {
	Respond(ctx context.Context, userID, text string) (string, error)
}

const (
	notAllowedText = "Not Allowed"
	aiTroubledText = "Sorry, I'm having trouble connecting to the AI. Please try again later."
)

// Engine is the relay dispatcher: the sole entry point through which
// inbound messages become outbound actions.
type Engine struct {
	store     session.Store
	transport Transport
	responder Responder
}

// NewEngine wires the dispatcher. responder may be nil when no AI provider
// is configured; AI-mode messages then fail with ErrNoResponder.
func NewEngine(store session.Store, transport Transport, responder Responder) *Engine {
	return &Engine{store: store, transport: transport, responder: responder}
}

// Dispatch routes one inbound message and performs at most one
// externally-visible send (the sticker reply-quote follow-up counts as part
// of the same logical delivery). It mutates no session state, so retrying
// the same message is safe; deduplication belongs to the transport.
//
// The returned error carries boundary-failure detail when the result is
// ResultTransientError; it is nil otherwise.
func (e *Engine) Dispatch(ctx context.Context, msg Message) (DispatchResult, error) {
	// AI mode is a hard short-circuit: no peer resolution is attempted.
	if id, ok := Normalize(e.store, msg.SenderID); ok {
		if sess, found := e.store.Get(id); found && sess.Status == session.StatusAI {
			return e.dispatchAI(ctx, id, msg)
		}
	}

	res := ResolvePeer(e.store, msg.SenderID)
	if !res.Paired() {
		logger.DebugCF("relay", "Sender unpaired", map[string]any{
			"sender": msg.SenderID,
			"reason": string(res.Reason),
		})
		return ResultNotConnected, nil
	}

	payload := Transform(msg)
	if err := e.deliver(ctx, res.PeerID, msg, payload); err != nil {
		logger.ErrorCF("relay", "Delivery failed", map[string]any{
			"peer_id": res.PeerID,
			"kind":    string(msg.Kind),
			"error":   err.Error(),
		})
		return ResultTransientError, err
	}
	return ResultDelivered, nil
}

func (e *Engine) dispatchAI(ctx context.Context, userID string, msg Message) (DispatchResult, error) {
	if msg.Kind != KindText {
		// The responder only takes text; anything else bounces back.
		if err := e.transport.Send(ctx, userID, Payload{Kind: KindText, Text: notAllowedText}); err != nil {
			return ResultTransientError, fmt.Errorf("ai mode rejection notice: %w", err)
		}
		return ResultDelivered, nil
	}

	if e.responder == nil {
		e.sendBestEffort(ctx, userID, aiTroubledText)
		return ResultTransientError, ErrNoResponder
	}

	reply, err := e.responder.Respond(ctx, userID, msg.Text)
	if err != nil {
		e.sendBestEffort(ctx, userID, aiTroubledText)
		return ResultTransientError, fmt.Errorf("ai responder: %w", err)
	}

	if err := e.transport.Send(ctx, userID, Payload{Kind: KindText, Text: reply}); err != nil {
		return ResultTransientError, fmt.Errorf("ai reply delivery: %w", err)
	}
	return ResultDelivered, nil
}

// deliver attempts the primary send and, for media kinds, falls back to a
// synthetic notification so the recipient is never left with nothing.
func (e *Engine) deliver(ctx context.Context, peerID string, msg Message, payload Payload) error {
	err := e.transport.Send(ctx, peerID, payload)
	if err == nil {
		if payload.FollowUp != "" {
			// Reply-quote for caption-less media. Part of the same logical
			// delivery; its failure does not undo a successful forward.
			follow := Payload{Kind: KindText, Text: payload.FollowUp}
			if ferr := e.transport.Send(ctx, peerID, follow); ferr != nil {
				logger.WarnCF("relay", "Reply-quote follow-up failed", map[string]any{
					"peer_id": peerID,
					"error":   ferr.Error(),
				})
			}
		}
		return nil
	}

	if payload.Kind == KindText {
		return fmt.Errorf("forwarding text: %w", err)
	}

	notice := FallbackNotice(msg)
	if nerr := e.transport.Send(ctx, peerID, notice); nerr != nil {
		return fmt.Errorf("forwarding %s: %v; fallback notice: %w", msg.Kind, err, nerr)
	}

	logger.WarnCF("relay", "Media forward failed, notice delivered instead", map[string]any{
		"peer_id": peerID,
		"kind":    string(msg.Kind),
		"error":   err.Error(),
	})
	return nil
}

func (e *Engine) sendBestEffort(ctx context.Context, userID, text string) {
	if err := e.transport.Send(ctx, userID, Payload{Kind: KindText, Text: text}); err != nil {
		logger.ErrorCF("relay", "Failed to notify sender", map[string]any{
			"user_id": userID,
			"error":   err.Error(),
		})
	}
}
