package e2e

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tinyland-inc/anonchat/pkg/pairing"
	"github.com/tinyland-inc/anonchat/pkg/relay"
	"github.com/tinyland-inc/anonchat/pkg/session"
)

type delivery struct {
	UserID  string
	Payload relay.Payload
}

type memTransport struct {
	deliveries []delivery
}

func (m *memTransport) Send(_ context.Context, userID string, p relay.Payload) error {
	m.deliveries = append(m.deliveries, delivery{UserID: userID, Payload: p})
	return nil
}

func (m *memTransport) SendText(ctx context.Context, userID, text string) error {
	return m.Send(ctx, userID, relay.Payload{Kind: relay.KindText, Text: text})
}

func (m *memTransport) to(userID string) []relay.Payload {
	var out []relay.Payload
	for _, d := range m.deliveries {
		if d.UserID == userID {
			out = append(out, d.Payload)
		}
	}
	return out
}

type echoResponder struct{}

func (echoResponder) Respond(_ context.Context, _, text string) (string, error) {
	return "echo: " + text, nil
}

func newStack(t *testing.T) (session.Store, *pairing.Service, *relay.Engine, *memTransport) {
	t.Helper()
	store, err := session.NewFileStore(filepath.Join(t.TempDir(), "sessions.json"))
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	transport := &memTransport{}
	svc := pairing.NewService(store, transport, 15*time.Minute)
	engine := relay.NewEngine(store, transport, echoResponder{})
	return store, svc, engine, transport
}

func TestRandomPairRelayFlow(t *testing.T) {
	store, svc, engine, transport := newStack(t)
	ctx := context.Background()

	for _, id := range []string{"100", "200"} {
		if _, err := store.CreateIfAbsent(id); err != nil {
			t.Fatal(err)
		}
	}

	// 100 waits, 200 joins and they pair.
	if _, err := svc.RequestRandom(ctx, "100"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RequestRandom(ctx, "200"); err != nil {
		t.Fatal(err)
	}

	// Text relays to the counterpart, anonymously.
	result, err := engine.Dispatch(ctx, relay.Message{
		SenderID: "100", Kind: relay.KindText, Text: "hey there",
	})
	if err != nil || result != relay.ResultDelivered {
		t.Fatalf("dispatch failed: %s %v", result, err)
	}

	got := transport.to("200")
	if len(got) == 0 {
		t.Fatal("no delivery to the peer")
	}
	last := got[len(got)-1]
	if last.Text != "hey there" {
		t.Errorf("unexpected relayed text %q", last.Text)
	}
	if strings.Contains(last.Text, "100") {
		t.Error("relayed text leaks the sender ID")
	}

	// Media arrives spoilered.
	if _, err := engine.Dispatch(ctx, relay.Message{
		SenderID: "200", Kind: relay.KindPhoto, FileID: "ph1",
	}); err != nil {
		t.Fatal(err)
	}
	photos := transport.to("100")
	lastPhoto := photos[len(photos)-1]
	if lastPhoto.Kind != relay.KindPhoto || !lastPhoto.Spoiler {
		t.Errorf("expected spoilered photo, got %+v", lastPhoto)
	}

	// After disconnect, messages stop relaying.
	if _, err := svc.Disconnect(ctx, "100"); err != nil {
		t.Fatal(err)
	}
	result, err = engine.Dispatch(ctx, relay.Message{
		SenderID: "100", Kind: relay.KindText, Text: "still there?",
	})
	if err != nil {
		t.Fatal(err)
	}
	if result != relay.ResultNotConnected {
		t.Errorf("expected not_connected after disconnect, got %s", result)
	}
}

func TestPrivateInviteFlow(t *testing.T) {
	store, svc, engine, transport := newStack(t)
	ctx := context.Background()

	link, err := svc.CreateInvite(ctx, "100")
	if err != nil {
		t.Fatal(err)
	}
	idx := strings.Index(link, "/92")
	if idx < 0 {
		t.Fatalf("no /92 token in %q", link)
	}
	token := link[idx+1 : idx+10]

	if _, err := svc.VerifyInvite(ctx, "200", token); err != nil {
		t.Fatal(err)
	}

	a, _ := store.Get("100")
	if a.Status != session.StatusPrivate || a.PeerID != "200" {
		t.Fatalf("host not privately paired: %+v", a)
	}

	if _, err := engine.Dispatch(ctx, relay.Message{
		SenderID: "200", Kind: relay.KindText, Text: "hi host",
	}); err != nil {
		t.Fatal(err)
	}
	got := transport.to("100")
	if len(got) == 0 || got[len(got)-1].Text != "hi host" {
		t.Errorf("private relay failed: %+v", got)
	}
}

func TestAIChatFlow(t *testing.T) {
	store, _, engine, transport := newStack(t)
	ctx := context.Background()

	if _, err := store.CreateIfAbsent("100"); err != nil {
		t.Fatal(err)
	}
	if err := store.SetStatusAndPeer("100", session.StatusAI, ""); err != nil {
		t.Fatal(err)
	}

	result, err := engine.Dispatch(ctx, relay.Message{
		SenderID: "100", Kind: relay.KindText, Text: "hello ai",
	})
	if err != nil || result != relay.ResultDelivered {
		t.Fatalf("AI dispatch failed: %s %v", result, err)
	}

	got := transport.to("100")
	if len(got) != 1 || got[0].Text != "echo: hello ai" {
		t.Errorf("expected AI echo back to the sender, got %+v", got)
	}

	// Media in AI mode bounces with a rejection.
	if _, err := engine.Dispatch(ctx, relay.Message{
		SenderID: "100", Kind: relay.KindSticker, FileID: "s1",
	}); err != nil {
		t.Fatal(err)
	}
	got = transport.to("100")
	if got[len(got)-1].Text != "Not Allowed" {
		t.Errorf("expected rejection, got %+v", got[len(got)-1])
	}
}

func TestSessionTimerExpiryFlow(t *testing.T) {
	store, err := session.NewFileStore(
		filepath.Join(t.TempDir(), "sessions.json"),
		session.WithSessionTimer(1),
	)
	if err != nil {
		t.Fatal(err)
	}
	transport := &memTransport{}
	svc := pairing.NewService(store, transport, 15*time.Minute)
	ctx := context.Background()

	for _, id := range []string{"100", "200"} {
		if _, err := store.CreateIfAbsent(id); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := svc.RequestRandom(ctx, "100"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RequestRandom(ctx, "200"); err != nil {
		t.Fatal(err)
	}

	if err := svc.ExpirePair(ctx, "100"); err != nil {
		t.Fatal(err)
	}

	for _, id := range []string{"100", "200"} {
		sess, _ := store.Get(id)
		if sess.Status != session.StatusOpen {
			t.Errorf("user %s not unpaired after expiry: %+v", id, sess)
		}
	}

	var sawExpiry bool
	for _, d := range transport.deliveries {
		if strings.Contains(d.Payload.Text, "expired") {
			sawExpiry = true
		}
	}
	if !sawExpiry {
		t.Error("expected a timer-expired notice")
	}
}
