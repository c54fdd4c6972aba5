// Package relay implements the peer-relay engine: resolving a sender's
// current counterpart, transforming inbound content into an anonymized
// outbound payload, and routing it with state-consistent failure handling.
package relay

// Kind tags the content of an inbound message or outbound payload.
type Kind string

const (
	KindText      Kind = "text"
	KindPhoto     Kind = "photo"
	KindVideo     Kind = "video"
	KindAnimation Kind = "animation"
	KindAudio     Kind = "audio"
	KindVoice     Kind = "voice"
	KindSticker   Kind = "sticker"
	KindDocument  Kind = "document"
	// KindUnknown covers content the relay does not forward verbatim;
	// the transformer substitutes a synthetic notification for it.
	KindUnknown Kind = "unknown"
)

// ReplyRef describes the message an inbound message replies to. Only the
// kind and, for text, the quoted text survive into the relay.
type ReplyRef struct {
	Kind Kind
	Text string
}

// Message is an inbound message as the transport hands it to the relay.
type Message struct {
	SenderID string
	Kind     Kind
	Text     string // content for KindText
	FileID   string // media reference for media kinds
	Caption  string
	ReplyTo  *ReplyRef
	RawKind  string // platform content type for KindUnknown
}

// Payload is the outbound action the transformer produced. Exactly one
// send consumes it; FollowUp is the sanctioned second text send used when
// the media kind cannot carry the reply quote itself.
type Payload struct {
	Kind     Kind
	Text     string
	FileID   string
	Caption  string
	Spoiler  bool
	FollowUp string
}

// DispatchResult is the dispatcher's verdict for one inbound message.
type DispatchResult string

const (
	// ResultDelivered means one outbound action happened.
	ResultDelivered DispatchResult = "delivered"
	// ResultNotConnected means the sender has no valid counterpart; the
	// caller is responsible for telling them so.
	ResultNotConnected DispatchResult = "not_connected"
	// ResultTransientError means delivery failed at the transport or
	// responder boundary, including the fallback path.
	ResultTransientError DispatchResult = "transient_error"
)
