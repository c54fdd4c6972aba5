// Package menu renders the inline menus and handles commands and button
// presses. It is glue around the relay core: everything here ends in either
// a session-store mutation or a plain outbound message.
package menu

import "context"

// Button is one inline keyboard button.
type Button struct {
	Label string
	Data  string
}

// Keyboard is an inline keyboard layout, row by row.
type Keyboard [][]Button

// Messenger is what the menu needs from the transport.
type Messenger interface {
	SendText(ctx context.Context, userID, text string) error
	SendKeyboard(ctx context.Context, userID, text string, kb Keyboard) error
	EditKeyboard(ctx context.Context, chatID string, messageID int, kb Keyboard) error
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
	DeleteMessage(ctx context.Context, chatID string, messageID int) error
}

// Callback data values the main and secondary menus emit.
const (
	cbPrivateConnection = "private_connection"
	cbRandomConnection  = "random_connection"
	cbEject             = "eject"
	cbStop              = "stop"
	cbForward           = "forward"
	cbBroadcasting      = "broadcasting"
	cbAnonNumber        = "anony_number"
	cbAIChat            = "ai_chat_bot"
	cbAIConfirmYes      = "ai_chat_confirm_yes"
	cbAIConfirmNo       = "ai_chat_confirm_no"
	cbAbout             = "about"
	cbPrivacy           = "privacy"
	cbMembership        = "membership"
	cbHelp              = "help_contact"
	cbMore              = "more"
	cbBack              = "back"
)

// MainMenu is the primary menu shown on /start.
func MainMenu() Keyboard {
	return Keyboard{
		{{Label: "🔐 Private Connection", Data: cbPrivateConnection}},
		{{Label: "🔀 Random Connection", Data: cbRandomConnection}},
		{
			{Label: "⏏️", Data: cbEject},
			{Label: "⏹️", Data: cbStop},
			{Label: "⏩️", Data: cbForward},
		},
		{{Label: "🔊 Broadcasting", Data: cbBroadcasting}},
		{{Label: "📲 Anony Number", Data: cbAnonNumber}},
		{{Label: "✨ AI Chat bot", Data: cbAIChat}},
		{
			{Label: "🚹 About", Data: cbAbout},
			{Label: "📝 Privacy", Data: cbPrivacy},
		},
		{{Label: "More >>", Data: cbMore}},
	}
}

// MoreMenu is the secondary menu behind "More >>".
func MoreMenu() Keyboard {
	return Keyboard{
		{{Label: "Membership", Data: cbMembership}},
		{
			{Label: "Help", Data: cbHelp},
			{Label: "Contact Us", Data: cbHelp},
		},
		{{Label: "<< Back", Data: cbBack}},
	}
}

// ConfirmAIMenu asks a paired user whether to drop the connection for AI chat.
func ConfirmAIMenu() Keyboard {
	return Keyboard{
		{
			{Label: "YES", Data: cbAIConfirmYes},
			{Label: "NO", Data: cbAIConfirmNo},
		},
	}
}
