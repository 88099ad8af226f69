package push

import "context"

// Message is the visible part of a push notification.
type Message struct {
	Title string
	Body  string
}

// Mode controls how the device presents the push.
type Mode string

const (
	ModeAlert  Mode = "alert"
	ModeSilent Mode = "silent"
)

// Client defines an interface for delivering a push to one device token.
type Client interface {
	Send(ctx context.Context, token string, msg Message, mode Mode, metadata map[string]string) error
}
