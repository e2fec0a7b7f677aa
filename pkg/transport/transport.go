// Package transport defines the messaging surface the bot core talks to.
// The core only sees chat ids, message ids and generic errors; everything
// Telegram-specific stays in the adapter.
package transport

import "context"

// Button is a single inline button. Data is the opaque callback payload the
// bot routes on.
type Button struct {
	Label string
	Data  string
}

// Keyboard lays buttons out one per row.
type Keyboard struct {
	Buttons []Button
}

// Messenger is the outbound message API. Implementations must return plain
// errors; the core only classifies calls as succeeded or failed.
type Messenger interface {
	// SendText sends a text message, returning the new message id.
	SendText(ctx context.Context, chatID int64, text string, kb *Keyboard) (int, error)
	// EditText replaces the text (and keyboard) of an existing message.
	EditText(ctx context.Context, chatID int64, messageID int, text string, kb *Keyboard) error
	// SendPhoto sends a single photo with caption, returning the message id.
	// The photo source is either a remote URL or a local file path.
	SendPhoto(ctx context.Context, chatID int64, photo, caption string, kb *Keyboard) (int, error)
	// EditPhoto swaps the photo and caption of an existing photo message.
	EditPhoto(ctx context.Context, chatID int64, messageID int, photo, caption string, kb *Keyboard) error
	// SendAlbum sends 2..10 photos as one media group, returning all message ids.
	SendAlbum(ctx context.Context, chatID int64, photos []string) ([]int, error)
	// DeleteMessage retracts a message.
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

// CallbackAnswerer acknowledges inline button presses. Alert pops a modal
// instead of the toast notification.
type CallbackAnswerer interface {
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
}

// Channel is a long-running inbound transport connection.
type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	IsRunning() bool
}
