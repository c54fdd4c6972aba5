// Package transport hosts the Telegram channel: it turns Bot API updates
// into bus events and implements the outbound seams the rest of the
// gateway sends through.
package transport

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/tinyland-inc/anonchat/pkg/bus"
	"github.com/tinyland-inc/anonchat/pkg/config"
	"github.com/tinyland-inc/anonchat/pkg/logger"
	"github.com/tinyland-inc/anonchat/pkg/menu"
	"github.com/tinyland-inc/anonchat/pkg/relay"
)

// Telegram is the Bot API channel. One instance serves all users.
type Telegram struct {
	cfg     config.TelegramConfig
	bus     *bus.EventBus
	bot     *telego.Bot
	cancel  context.CancelFunc
	running atomic.Bool
}

func NewTelegram(cfg config.TelegramConfig, b *bus.EventBus) *Telegram {
	return &Telegram{cfg: cfg, bus: b}
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) IsRunning() bool {
	return t.running.Load()
}

// IsAllowed checks the sender against the configured allowlist. An empty
// allowlist admits everyone.
func (t *Telegram) IsAllowed(senderID string) bool {
	if len(t.cfg.AllowFrom) == 0 {
		return true
	}
	for _, allowed := range t.cfg.AllowFrom {
		if senderID == strings.TrimPrefix(allowed, "@") {
			return true
		}
	}
	return false
}

// Start connects to the Bot API and begins the update loop. It returns
// once polling is established; updates are handled on a background
// goroutine until Stop or ctx cancellation.
func (t *Telegram) Start(ctx context.Context) error {
	if t.cfg.Token == "" {
		return fmt.Errorf("telegram: token not configured")
	}

	bot, err := telego.NewBot(t.cfg.Token, telego.WithDefaultLogger(false, true))
	if err != nil {
		return fmt.Errorf("telegram: create bot: %w", err)
	}
	t.bot = bot

	pollCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	updates, err := bot.UpdatesViaLongPolling(pollCtx, nil)
	if err != nil {
		cancel()
		return fmt.Errorf("telegram: long polling: %w", err)
	}

	t.running.Store(true)
	logger.InfoC("transport", "Telegram channel started")

	go func() {
		for update := range updates {
			t.handleUpdate(pollCtx, update)
		}
		t.running.Store(false)
		logger.InfoC("transport", "Telegram update loop stopped")
	}()

	return nil
}

func (t *Telegram) Stop(ctx context.Context) error {
	if t.cancel != nil {
		t.cancel()
	}
	t.running.Store(false)
	return nil
}

func (t *Telegram) handleUpdate(ctx context.Context, update telego.Update) {
	switch {
	case update.CallbackQuery != nil:
		t.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		t.handleMessage(ctx, update.Message)
	}
}

func (t *Telegram) handleCallback(ctx context.Context, cq *telego.CallbackQuery) {
	userID := strconv.FormatInt(cq.From.ID, 10)
	if !t.IsAllowed(userID) {
		return
	}

	cb := bus.Callback{
		ID:     cq.ID,
		UserID: userID,
		Data:   cq.Data,
	}
	if cq.Message != nil {
		cb.ChatID = strconv.FormatInt(cq.Message.GetChat().ID, 10)
		cb.MessageID = cq.Message.GetMessageID()
	}

	t.publish(ctx, bus.Event{Kind: bus.EventCallback, Callback: cb})
}

func (t *Telegram) handleMessage(ctx context.Context, msg *telego.Message) {
	if msg.From == nil {
		return
	}
	userID := strconv.FormatInt(msg.From.ID, 10)
	if !t.IsAllowed(userID) {
		logger.DebugCF("transport", "Dropping message from disallowed sender", map[string]any{
			"sender_id": userID,
		})
		return
	}
	chatID := strconv.FormatInt(msg.Chat.ID, 10)

	if strings.HasPrefix(msg.Text, "/") {
		name, args := splitCommand(msg.Text)
		t.publish(ctx, bus.Event{
			Kind: bus.EventCommand,
			Command: bus.Command{
				UserID: userID,
				ChatID: chatID,
				Name:   name,
				Args:   args,
			},
		})
		return
	}

	rm := relay.Message{SenderID: userID}
	classify(msg, &rm)
	if reply := msg.ReplyToMessage; reply != nil {
		var ref relay.Message
		classify(reply, &ref)
		rm.ReplyTo = &relay.ReplyRef{Kind: ref.Kind, Text: ref.Text}
	}

	t.publish(ctx, bus.Event{Kind: bus.EventMessage, Message: rm})
}

func (t *Telegram) publish(ctx context.Context, ev bus.Event) {
	if err := t.bus.Publish(ctx, ev); err != nil {
		logger.WarnCF("transport", "Dropping inbound event", map[string]any{
			"kind":  string(ev.Kind),
			"error": err.Error(),
		})
	}
}

// splitCommand parses "/Name arg text" into a lowercased name and the raw
// remainder. The "@botname" suffix Telegram appends in groups is stripped.
func splitCommand(text string) (name, args string) {
	text = strings.TrimPrefix(text, "/")
	name = text
	if idx := strings.IndexByte(text, ' '); idx >= 0 {
		name = text[:idx]
		args = strings.TrimSpace(text[idx+1:])
	}
	if idx := strings.IndexByte(name, '@'); idx >= 0 {
		name = name[:idx]
	}
	return strings.ToLower(name), args
}

// classify fills Kind, Text, FileID and Caption from a Bot API message.
// Animation is checked before Document: the Bot API sets both for GIFs.
func classify(msg *telego.Message, out *relay.Message) {
	out.Caption = msg.Caption
	switch {
	case msg.Text != "":
		out.Kind = relay.KindText
		out.Text = msg.Text
	case len(msg.Photo) > 0:
		out.Kind = relay.KindPhoto
		out.FileID = msg.Photo[len(msg.Photo)-1].FileID
	case msg.Video != nil:
		out.Kind = relay.KindVideo
		out.FileID = msg.Video.FileID
	case msg.Animation != nil:
		out.Kind = relay.KindAnimation
		out.FileID = msg.Animation.FileID
	case msg.Sticker != nil:
		out.Kind = relay.KindSticker
		out.FileID = msg.Sticker.FileID
	case msg.Voice != nil:
		out.Kind = relay.KindVoice
		out.FileID = msg.Voice.FileID
	case msg.Audio != nil:
		out.Kind = relay.KindAudio
		out.FileID = msg.Audio.FileID
	case msg.Document != nil:
		out.Kind = relay.KindDocument
		out.FileID = msg.Document.FileID
	default:
		out.Kind = relay.KindUnknown
		out.RawKind = rawKind(msg)
	}
}

func rawKind(msg *telego.Message) string {
	switch {
	case msg.VideoNote != nil:
		return "video note"
	case msg.Contact != nil:
		return "contact"
	case msg.Location != nil:
		return "location"
	case msg.Poll != nil:
		return "poll"
	case msg.Dice != nil:
		return "dice"
	case msg.Venue != nil:
		return "venue"
	default:
		return "message"
	}
}

// Send delivers a relay payload to a user. Implements relay.Transport.
func (t *Telegram) Send(ctx context.Context, userID string, p relay.Payload) error {
	chatID, err := parseChatID(userID)
	if err != nil {
		return err
	}

	switch p.Kind {
	case relay.KindText:
		_, err = t.bot.SendMessage(ctx, tu.Message(chatID, p.Text))
	case relay.KindPhoto:
		_, err = t.bot.SendPhoto(ctx, &telego.SendPhotoParams{
			ChatID:     chatID,
			Photo:      tu.FileFromID(p.FileID),
			Caption:    p.Caption,
			HasSpoiler: p.Spoiler,
		})
	case relay.KindVideo:
		_, err = t.bot.SendVideo(ctx, &telego.SendVideoParams{
			ChatID:     chatID,
			Video:      tu.FileFromID(p.FileID),
			Caption:    p.Caption,
			HasSpoiler: p.Spoiler,
		})
	case relay.KindAnimation:
		_, err = t.bot.SendAnimation(ctx, &telego.SendAnimationParams{
			ChatID:     chatID,
			Animation:  tu.FileFromID(p.FileID),
			Caption:    p.Caption,
			HasSpoiler: p.Spoiler,
		})
	case relay.KindAudio:
		_, err = t.bot.SendAudio(ctx, &telego.SendAudioParams{
			ChatID:  chatID,
			Audio:   tu.FileFromID(p.FileID),
			Caption: p.Caption,
		})
	case relay.KindVoice:
		_, err = t.bot.SendVoice(ctx, &telego.SendVoiceParams{
			ChatID:  chatID,
			Voice:   tu.FileFromID(p.FileID),
			Caption: p.Caption,
		})
	case relay.KindSticker:
		_, err = t.bot.SendSticker(ctx, &telego.SendStickerParams{
			ChatID:  chatID,
			Sticker: tu.FileFromID(p.FileID),
		})
	case relay.KindDocument:
		_, err = t.bot.SendDocument(ctx, &telego.SendDocumentParams{
			ChatID:   chatID,
			Document: tu.FileFromID(p.FileID),
			Caption:  p.Caption,
		})
	default:
		return fmt.Errorf("telegram: unsendable payload kind %q", p.Kind)
	}
	if err != nil {
		return fmt.Errorf("telegram: send %s: %w", p.Kind, err)
	}
	return nil
}

// SendText implements menu.Messenger and pairing.Notifier.
func (t *Telegram) SendText(ctx context.Context, userID, text string) error {
	chatID, err := parseChatID(userID)
	if err != nil {
		return err
	}
	_, err = t.bot.SendMessage(ctx, tu.Message(chatID, text))
	return err
}

func (t *Telegram) SendKeyboard(ctx context.Context, userID, text string, kb menu.Keyboard) error {
	chatID, err := parseChatID(userID)
	if err != nil {
		return err
	}
	_, err = t.bot.SendMessage(ctx, tu.Message(chatID, text).WithReplyMarkup(inlineMarkup(kb)))
	return err
}

func (t *Telegram) EditKeyboard(ctx context.Context, chat string, messageID int, kb menu.Keyboard) error {
	chatID, err := parseChatID(chat)
	if err != nil {
		return err
	}
	_, err = t.bot.EditMessageReplyMarkup(ctx, &telego.EditMessageReplyMarkupParams{
		ChatID:      chatID,
		MessageID:   messageID,
		ReplyMarkup: inlineMarkup(kb),
	})
	return err
}

func (t *Telegram) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	return t.bot.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       alert,
	})
}

func (t *Telegram) DeleteMessage(ctx context.Context, chat string, messageID int) error {
	chatID, err := parseChatID(chat)
	if err != nil {
		return err
	}
	return t.bot.DeleteMessage(ctx, &telego.DeleteMessageParams{
		ChatID:    chatID,
		MessageID: messageID,
	})
}

// SendTyping shows the typing indicator. Best effort, used while an AI
// reply is being generated.
func (t *Telegram) SendTyping(ctx context.Context, userID string) {
	chatID, err := parseChatID(userID)
	if err != nil {
		return
	}
	if err := t.bot.SendChatAction(ctx, &telego.SendChatActionParams{
		ChatID: chatID,
		Action: telego.ChatActionTyping,
	}); err != nil {
		logger.DebugCF("transport", "Typing action failed", map[string]any{"error": err.Error()})
	}
}

func parseChatID(userID string) (telego.ChatID, error) {
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return telego.ChatID{}, fmt.Errorf("telegram: bad chat id %q: %w", userID, err)
	}
	return tu.ID(id), nil
}

func inlineMarkup(kb menu.Keyboard) *telego.InlineKeyboardMarkup {
	rows := make([][]telego.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]telego.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, telego.InlineKeyboardButton{
				Text:         b.Label,
				CallbackData: b.Data,
			})
		}
		rows = append(rows, buttons)
	}
	return &telego.InlineKeyboardMarkup{InlineKeyboard: rows}
}
