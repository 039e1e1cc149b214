package channel

import "context"

// Event types a chat channel can deliver
const (
	TypeText  = "text"
	TypeAudio = "audio"
)

// Event is one inbound chat message, normalized across channels
type Event struct {
	ID      string
	Channel string
	// From is the sender address as the channel reports it, before
	// identity normalization
	From string
	// Type is TypeText, TypeAudio, or whatever else the platform sent
	Type string
	// Text is the message body for text events
	Text string
	// MediaID identifies the attachment for audio events; resolving it
	// to a local file goes back through the owning channel's Conn
	MediaID string
}

// Conn is the outbound side of a chat channel: delivering reply text
// and fetching media attachments. The adapter that produced an event
// supplies the Conn used to answer it.
type Conn interface {
	// Name returns the channel name
	Name() string

	// SendText delivers a reply to the sender. Best effort: failures
	// are reported, never retried.
	SendText(ctx context.Context, to, body string) error

	// FetchMedia resolves and downloads an attachment, returning the
	// local file path
	FetchMedia(ctx context.Context, mediaID string) (string, error)
}

// Adapter is a chat channel that produces events on its own
// (long-polling channels like Telegram). The WhatsApp webhook is
// push-based and served by the HTTP server instead.
type Adapter interface {
	Conn

	// Start begins delivering events
	Start(ctx context.Context) error

	// Stop shuts the adapter down
	Stop() error

	// Incoming returns the stream of inbound events
	Incoming() <-chan *Event
}
