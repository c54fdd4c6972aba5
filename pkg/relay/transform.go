package relay

import (
	"fmt"
	"strings"
)

const (
	replyQuoteLimit = 50
	replyExcerptLen = 47
	anonymousSender = "👤 Anonymous"
)

// Transform converts an inbound message into the outbound payload the peer
// should receive. It is pure: the same message always yields a structurally
// identical payload, and nothing in the payload identifies the sender.
func Transform(msg Message) Payload {
	quote := replyQuote(msg.ReplyTo)

	switch msg.Kind {
	case KindText:
		text := msg.Text
		if quote != "" {
			text = quote + "\n\n" + text
		}
		return Payload{Kind: KindText, Text: text}

	case KindPhoto, KindVideo, KindAnimation:
		// Sensitive or unsolicited media must never render unobscured
		// by default.
		return Payload{
			Kind:    msg.Kind,
			FileID:  msg.FileID,
			Caption: mergeCaption(quote, msg.Caption),
			Spoiler: true,
		}

	case KindVoice, KindAudio, KindDocument:
		return Payload{
			Kind:    msg.Kind,
			FileID:  msg.FileID,
			Caption: mergeCaption(quote, msg.Caption),
		}

	case KindSticker:
		// Stickers carry no caption, so the reply quote goes out as a
		// separate follow-up text payload.
		return Payload{
			Kind:     KindSticker,
			FileID:   msg.FileID,
			FollowUp: quote,
		}

	default:
		return FallbackNotice(msg)
	}
}

// FallbackNotice builds the synthetic, content-free payload substituted
// when forwarding the original content is not possible or not desired.
func FallbackNotice(msg Message) Payload {
	kind := string(msg.Kind)
	if msg.Kind == KindUnknown && msg.RawKind != "" {
		kind = msg.RawKind
	}
	return Payload{Kind: KindText, Text: noticeText(kind)}
}

func noticeText(kind string) string {
	switch kind {
	case "sticker":
		return anonymousSender + " sent a sticker 🎭"
	case "voice":
		return anonymousSender + " sent a voice message 🎤"
	case "photo":
		return anonymousSender + " sent a photo 📷"
	case "video":
		return anonymousSender + " sent a video 🎬"
	case "animation", "gif":
		return anonymousSender + " sent a GIF 🎭"
	case "audio":
		return anonymousSender + " sent an audio file 🎵"
	case "document":
		return anonymousSender + " sent a document 📄"
	default:
		return fmt.Sprintf("%s sent a %s", anonymousSender, kind)
	}
}

// replyQuote renders the quoted excerpt of a replied-to text message.
// Non-text reply targets yield no quote.
func replyQuote(reply *ReplyRef) string {
	if reply == nil || reply.Kind != KindText || reply.Text == "" {
		return ""
	}
	excerpt := reply.Text
	if runes := []rune(excerpt); len(runes) > replyQuoteLimit {
		excerpt = string(runes[:replyExcerptLen]) + "..."
	}
	return `↩️ Reply to: "` + excerpt + `"`
}

// mergeCaption prepends the reply quote to a media caption. With no caption
// the quote alone becomes the caption.
func mergeCaption(quote, caption string) string {
	switch {
	case quote == "":
		return caption
	case caption == "":
		return quote
	default:
		return strings.Join([]string{quote, caption}, "\n\n")
	}
}
