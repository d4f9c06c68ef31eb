// ABOUTME: Messaging transport contract used by the scan/publish loop
// ABOUTME: Defines Message, Channel, publish options, and the flood-wait backpressure error

// Package transport defines what the scanner needs from a messaging platform:
// connect, list recent messages of a source channel, publish to the
// destination, and build a link back to a source message.
package transport

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Channel is a configured source to scan.
type Channel struct {
	// ID addresses the channel on the platform (room ID or alias for Matrix).
	ID string
	// Name is the display name shown in republished posts.
	Name string
}

// DisplayName returns Name, falling back to ID.
func (c Channel) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}

// Message is a source post returned by FetchMessages.
type Message struct {
	ID          string
	ChannelID   string
	Text        string
	PublishedAt time.Time
}

// PublishOptions controls how a post is rendered by the platform.
type PublishOptions struct {
	// Markdown asks the transport to render the text as markdown.
	Markdown bool
	// LinkPreview allows the platform to expand link previews.
	LinkPreview bool
}

// Transport is a connection to a messaging platform.
type Transport interface {
	// Connect authenticates and prepares the destination. Failure is fatal.
	Connect(ctx context.Context) error

	// FetchMessages returns the channel's messages published at or after
	// since, oldest first. The result is finite and bounded by the window.
	FetchMessages(ctx context.Context, ch Channel, since time.Time) ([]Message, error)

	// Publish posts text to the destination channel. A platform rate limit is
	// reported as *FloodWaitError.
	Publish(ctx context.Context, text string, opts PublishOptions) error

	// Permalink returns a URL pointing at msg on the platform.
	Permalink(msg Message) string

	// Close releases the connection.
	Close() error
}

// FloodWaitError reports that the platform asked the caller to wait before
// sending again.
type FloodWaitError struct {
	Wait time.Duration
	Err  error
}

func (e *FloodWaitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("flood wait %s: %v", e.Wait, e.Err)
	}
	return fmt.Sprintf("flood wait %s", e.Wait)
}

func (e *FloodWaitError) Unwrap() error {
	return e.Err
}

// IsFloodWait returns the required wait if err is, or wraps, a FloodWaitError.
func IsFloodWait(err error) (time.Duration, bool) {
	var fw *FloodWaitError
	if errors.As(err, &fw) {
		return fw.Wait, true
	}
	return 0, false
}
