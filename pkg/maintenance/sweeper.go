// Package maintenance runs the periodic cleanup pass: expired invite
// links, timed-out random pairings, and stale AI-switch confirmations.
package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"github.com/tinyland-inc/anonchat/pkg/logger"
	"github.com/tinyland-inc/anonchat/pkg/pairing"
	"github.com/tinyland-inc/anonchat/pkg/session"
)

const tickInterval = 30 * time.Second

// Sweeper evaluates a cron schedule and runs the cleanup pass when due.
type Sweeper struct {
	store       session.Store
	pairing     *pairing.Service
	transitions *session.TransitionTracker
	schedule    string
	gron        *gronx.Gronx
}

func NewSweeper(
	store session.Store,
	pairingSvc *pairing.Service,
	transitions *session.TransitionTracker,
	schedule string,
) (*Sweeper, error) {
	gron := gronx.New()
	if !gron.IsValid(schedule) {
		return nil, fmt.Errorf("maintenance: invalid sweep schedule %q", schedule)
	}
	return &Sweeper{
		store:       store,
		pairing:     pairingSvc,
		transitions: transitions,
		schedule:    schedule,
		gron:        gron,
	}, nil
}

// Run blocks until ctx is cancelled, sweeping whenever the schedule fires.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	logger.InfoCF("maintenance", "Sweeper started", map[string]any{"schedule": s.schedule})

	for {
		select {
		case <-ctx.Done():
			logger.InfoC("maintenance", "Sweeper stopped")
			return
		case now := <-ticker.C:
			due, err := s.gron.IsDue(s.schedule, now)
			if err != nil {
				logger.ErrorCF("maintenance", "Schedule evaluation failed", map[string]any{
					"error": err.Error(),
				})
				continue
			}
			if due {
				s.Sweep(ctx, now)
			}
		}
	}
}

// Sweep runs one cleanup pass at the given instant.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) {
	var expiredOTP, timedOut []string

	s.store.Range(func(sess session.Session) bool {
		if sess.OTP != "" && now.After(sess.OTPExpiresAt) {
			expiredOTP = append(expiredOTP, sess.UserID)
		}
		if sess.Status == session.StatusRandom && timerExpired(sess, now) {
			timedOut = append(timedOut, sess.UserID)
		}
		return true
	})

	for _, userID := range expiredOTP {
		if err := s.store.SetOTP(userID, "", time.Time{}); err != nil {
			logger.WarnCF("maintenance", "Invite expiry failed", map[string]any{
				"user_id": userID,
				"error":   err.Error(),
			})
		}
	}

	for _, userID := range timedOut {
		// ExpirePair tears down both sides; the peer's entry in timedOut
		// becomes a no-op once its status changed.
		if err := s.pairing.ExpirePair(ctx, userID); err != nil {
			logger.WarnCF("maintenance", "Pair expiry failed", map[string]any{
				"user_id": userID,
				"error":   err.Error(),
			})
		}
	}

	pruned := s.transitions.Prune(now)

	if len(expiredOTP) > 0 || len(timedOut) > 0 || pruned > 0 {
		logger.InfoCF("maintenance", "Sweep completed", map[string]any{
			"expired_invites":    len(expiredOTP),
			"expired_pairs":      len(timedOut),
			"pruned_transitions": pruned,
		})
	}
}

func timerExpired(sess session.Session, now time.Time) bool {
	if sess.Timer <= 0 || sess.PairedAt.IsZero() {
		return false
	}
	deadline := sess.PairedAt.Add(time.Duration(sess.Timer) * time.Minute)
	return now.After(deadline)
}
