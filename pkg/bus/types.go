package bus

import "github.com/tinyland-inc/anonchat/pkg/relay"

// EventKind tags what the transport observed.
type EventKind string

const (
	// EventMessage is a relayable user message (text or media).
	EventMessage EventKind = "message"
	// EventCommand is a slash command (/start, /92..., /AN...).
	EventCommand EventKind = "command"
	// EventCallback is an inline-keyboard button press.
	EventCallback EventKind = "callback"
)

// Command is a parsed slash command.
type Command struct {
	UserID string
	ChatID string
	Name   string // lowercased command name without the slash
	Args   string // raw text after the command name
}

// Callback is an inline-keyboard callback query.
type Callback struct {
	ID        string
	UserID    string
	ChatID    string
	MessageID int
	Data      string
}

// Event is one inbound gateway event published by the transport.
type Event struct {
	Kind     EventKind
	Message  relay.Message
	Command  Command
	Callback Callback
}
