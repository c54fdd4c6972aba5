package transport

import (
	"testing"

	"github.com/mymmrac/telego"

	"github.com/tinyland-inc/anonchat/pkg/bus"
	"github.com/tinyland-inc/anonchat/pkg/config"
	"github.com/tinyland-inc/anonchat/pkg/menu"
	"github.com/tinyland-inc/anonchat/pkg/relay"
)

func TestSplitCommand(t *testing.T) {
	cases := []struct {
		in       string
		wantName string
		wantArgs string
	}{
		{"/start", "start", ""},
		{"/Start", "start", ""},
		{"/start@MyBot", "start", ""},
		{"/921234567", "921234567", ""},
		{"/AN123", "an123", ""},
		{"/start some args here", "start", "some args here"},
		{"/start   padded", "start", "padded"},
	}
	for _, tc := range cases {
		name, args := splitCommand(tc.in)
		if name != tc.wantName || args != tc.wantArgs {
			t.Errorf("splitCommand(%q) = (%q, %q), expected (%q, %q)",
				tc.in, name, args, tc.wantName, tc.wantArgs)
		}
	}
}

func TestClassify_Text(t *testing.T) {
	var out relay.Message
	classify(&telego.Message{Text: "hello"}, &out)

	if out.Kind != relay.KindText || out.Text != "hello" {
		t.Errorf("unexpected classification %+v", out)
	}
}

func TestClassify_PhotoTakesLargestSize(t *testing.T) {
	var out relay.Message
	classify(&telego.Message{
		Photo: []telego.PhotoSize{
			{FileID: "small"},
			{FileID: "large"},
		},
		Caption: "look",
	}, &out)

	if out.Kind != relay.KindPhoto || out.FileID != "large" {
		t.Errorf("expected largest photo size, got %+v", out)
	}
	if out.Caption != "look" {
		t.Errorf("caption lost: %+v", out)
	}
}

func TestClassify_AnimationBeforeDocument(t *testing.T) {
	// The Bot API sets both Animation and Document for GIFs.
	var out relay.Message
	classify(&telego.Message{
		Animation: &telego.Animation{FileID: "anim"},
		Document:  &telego.Document{FileID: "doc"},
	}, &out)

	if out.Kind != relay.KindAnimation || out.FileID != "anim" {
		t.Errorf("expected animation to win, got %+v", out)
	}
}

func TestClassify_MediaKinds(t *testing.T) {
	cases := []struct {
		name string
		msg  telego.Message
		kind relay.Kind
	}{
		{"video", telego.Message{Video: &telego.Video{FileID: "f"}}, relay.KindVideo},
		{"sticker", telego.Message{Sticker: &telego.Sticker{FileID: "f"}}, relay.KindSticker},
		{"voice", telego.Message{Voice: &telego.Voice{FileID: "f"}}, relay.KindVoice},
		{"audio", telego.Message{Audio: &telego.Audio{FileID: "f"}}, relay.KindAudio},
		{"document", telego.Message{Document: &telego.Document{FileID: "f"}}, relay.KindDocument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out relay.Message
			classify(&tc.msg, &out)
			if out.Kind != tc.kind || out.FileID != "f" {
				t.Errorf("expected %s, got %+v", tc.kind, out)
			}
		})
	}
}

func TestClassify_UnknownKinds(t *testing.T) {
	cases := []struct {
		name string
		msg  telego.Message
		raw  string
	}{
		{"video note", telego.Message{VideoNote: &telego.VideoNote{FileID: "f"}}, "video note"},
		{"contact", telego.Message{Contact: &telego.Contact{PhoneNumber: "123"}}, "contact"},
		{"location", telego.Message{Location: &telego.Location{}}, "location"},
		{"poll", telego.Message{Poll: &telego.Poll{}}, "poll"},
		{"dice", telego.Message{Dice: &telego.Dice{}}, "dice"},
		{"bare", telego.Message{}, "message"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out relay.Message
			classify(&tc.msg, &out)
			if out.Kind != relay.KindUnknown || out.RawKind != tc.raw {
				t.Errorf("expected unknown/%s, got %+v", tc.raw, out)
			}
		})
	}
}

func TestIsAllowed(t *testing.T) {
	open := NewTelegram(config.TelegramConfig{}, bus.NewEventBus())
	if !open.IsAllowed("anyone") {
		t.Error("empty allowlist must admit everyone")
	}

	restricted := NewTelegram(config.TelegramConfig{
		AllowFrom: config.FlexibleStringSlice{"123", "@456"},
	}, bus.NewEventBus())

	if !restricted.IsAllowed("123") {
		t.Error("expected listed ID to be allowed")
	}
	if !restricted.IsAllowed("456") {
		t.Error("expected @-prefixed entry to match by ID")
	}
	if restricted.IsAllowed("789") {
		t.Error("expected unlisted ID to be rejected")
	}
}

func TestInlineMarkup(t *testing.T) {
	kb := menu.Keyboard{
		{{Label: "A", Data: "a"}, {Label: "B", Data: "b"}},
		{{Label: "C", Data: "c"}},
	}

	m := inlineMarkup(kb)
	if len(m.InlineKeyboard) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(m.InlineKeyboard))
	}
	if len(m.InlineKeyboard[0]) != 2 || len(m.InlineKeyboard[1]) != 1 {
		t.Fatalf("unexpected row shapes %+v", m.InlineKeyboard)
	}
	if m.InlineKeyboard[0][1].Text != "B" || m.InlineKeyboard[0][1].CallbackData != "b" {
		t.Errorf("unexpected button %+v", m.InlineKeyboard[0][1])
	}
}

func TestParseChatID(t *testing.T) {
	id, err := parseChatID("123456789")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.ID != 123456789 {
		t.Errorf("expected 123456789, got %d", id.ID)
	}

	if _, err := parseChatID("not-a-number"); err == nil {
		t.Error("expected error for non-numeric chat ID")
	}
}
