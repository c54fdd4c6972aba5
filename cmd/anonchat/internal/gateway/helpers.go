package gateway

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/tinyland-inc/anonchat/cmd/anonchat/internal"
	"github.com/tinyland-inc/anonchat/pkg/ai"
	"github.com/tinyland-inc/anonchat/pkg/bus"
	"github.com/tinyland-inc/anonchat/pkg/health"
	"github.com/tinyland-inc/anonchat/pkg/logger"
	"github.com/tinyland-inc/anonchat/pkg/maintenance"
	"github.com/tinyland-inc/anonchat/pkg/menu"
	"github.com/tinyland-inc/anonchat/pkg/pairing"
	"github.com/tinyland-inc/anonchat/pkg/relay"
	"github.com/tinyland-inc/anonchat/pkg/session"
	"github.com/tinyland-inc/anonchat/pkg/transport"
)

const notConnectedText = "You are not currently connected to anyone. " +
	"Please use the menu to start a connection."

func gatewayCmd(debug bool) error {
	if debug {
		logger.SetLevel(logger.DEBUG)
		fmt.Println("🔍 Debug mode enabled")
	}

	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if !cfg.Telegram.Enabled || cfg.Telegram.Token == "" {
		return errors.New("telegram channel is not configured; run 'anonchat onboard' and set the token")
	}

	store, err := session.NewFileStore(
		cfg.StatePath(),
		session.WithSessionTimer(cfg.Pairing.SessionTimerMinutes),
	)
	if err != nil {
		return fmt.Errorf("error opening session store: %w", err)
	}

	eventBus := bus.NewEventBus()
	tg := transport.NewTelegram(cfg.Telegram, eventBus)

	var responder relay.Responder
	if cfg.HasProvider() {
		responder, err = ai.NewResponder(cfg.Providers)
		if err != nil {
			return fmt.Errorf("error creating AI responder: %w", err)
		}
		fmt.Println("✓ AI chat mode enabled")
	} else {
		fmt.Println("⚠ No AI provider configured; AI chat mode disabled")
	}

	engine := relay.NewEngine(store, tg, responder)
	pairingSvc := pairing.NewService(
		store, tg, time.Duration(cfg.Pairing.InviteTTLMinutes)*time.Minute,
	)
	if f, ok := responder.(pairing.Forgetter); ok {
		pairingSvc.SetForgetter(f)
	}
	transitions := session.NewTransitionTracker(
		time.Duration(cfg.Pairing.TransitionTTLMinutes) * time.Minute,
	)
	menuHandler := menu.NewHandler(store, transitions, pairingSvc, tg)

	sweeper, err := maintenance.NewSweeper(store, pairingSvc, transitions, cfg.Pairing.SweepSchedule)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := tg.Start(ctx); err != nil {
		return fmt.Errorf("error starting telegram channel: %w", err)
	}
	fmt.Println("✓ Telegram channel started")

	go sweeper.Run(ctx)

	healthAddr := fmt.Sprintf("%s:%d", cfg.Gateway.Host, cfg.Gateway.Port)
	healthServer := health.NewServer(healthAddr, tg.IsRunning)
	if err := healthServer.Start(); err != nil {
		return fmt.Errorf("error starting health server: %w", err)
	}
	fmt.Printf("✓ Health endpoints available at http://%s/health and /ready\n", healthAddr)

	workers := cfg.Relay.Workers
	if workers <= 0 {
		workers = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runWorker(ctx, eventBus, store, engine, menuHandler, tg)
		}()
	}
	logger.InfoCF("gateway", "Workers started", map[string]any{"count": workers})

	fmt.Println("✓ Gateway started")
	fmt.Println("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\nShutting down...")
	cancel()
	eventBus.Close()
	wg.Wait()
	_ = tg.Stop(context.Background())
	_ = healthServer.Stop(context.Background())
	fmt.Println("✓ Gateway stopped")

	return nil
}

func runWorker(
	ctx context.Context,
	eventBus *bus.EventBus,
	store session.Store,
	engine *relay.Engine,
	menuHandler *menu.Handler,
	tg *transport.Telegram,
) {
	for {
		ev, ok := eventBus.Consume(ctx)
		if !ok {
			return
		}

		switch ev.Kind {
		case bus.EventMessage:
			handleMessage(ctx, store, engine, tg, ev.Message)
		case bus.EventCommand:
			menuHandler.HandleCommand(ctx, ev.Command)
		case bus.EventCallback:
			menuHandler.HandleCallback(ctx, ev.Callback)
		}
	}
}

func handleMessage(
	ctx context.Context,
	store session.Store,
	engine *relay.Engine,
	tg *transport.Telegram,
	msg relay.Message,
) {
	if _, err := store.CreateIfAbsent(msg.SenderID); err != nil {
		logger.ErrorCF("gateway", "Session creation failed", map[string]any{
			"sender_id": msg.SenderID,
			"error":     err.Error(),
		})
		return
	}

	if sess, ok := store.Get(msg.SenderID); ok &&
		sess.Status == session.StatusAI && msg.Kind == relay.KindText {
		tg.SendTyping(ctx, msg.SenderID)
	}

	result, err := engine.Dispatch(ctx, msg)
	if err != nil {
		logger.WarnCF("gateway", "Dispatch failed", map[string]any{
			"sender_id": msg.SenderID,
			"result":    string(result),
			"error":     err.Error(),
		})
	}

	if result == relay.ResultNotConnected {
		if err := tg.SendText(ctx, msg.SenderID, notConnectedText); err != nil {
			logger.WarnCF("gateway", "Not-connected notice failed", map[string]any{
				"sender_id": msg.SenderID,
				"error":     err.Error(),
			})
		}
	}
}
