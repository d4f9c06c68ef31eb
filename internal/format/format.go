// ABOUTME: Renders relevant source messages into the republished vacancy post
// ABOUTME: Fixed markdown template with local-zone date stamp and truncated body

// Package format renders a relevant message into the text posted to the
// destination room.
package format

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // zone names resolve in minimal containers
)

// bodyLimit is the number of characters (runes) of the original text kept.
const bodyLimit = 1000

// dateLayout renders as YYYY-MM-DD HH:MM.
const dateLayout = "2006-01-02 15:04"

// Formatter renders posts with dates converted into a fixed time zone.
type Formatter struct {
	loc *time.Location
}

// New returns a Formatter that shows dates in loc. A nil loc means UTC.
func New(loc *time.Location) *Formatter {
	if loc == nil {
		loc = time.UTC
	}
	return &Formatter{loc: loc}
}

// NewForZone loads the IANA zone name (e.g. "Europe/Moscow") and returns a
// Formatter for it.
func NewForZone(name string) (*Formatter, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading time zone %q: %w", name, err)
	}
	return New(loc), nil
}

// Location returns the zone dates are rendered in.
func (f *Formatter) Location() *time.Location {
	return f.loc
}

// Format builds the post. The body is cut to the first 1000 characters and
// always followed by "...", even when shorter. Markup characters in the
// original text are passed through untouched.
func (f *Formatter) Format(originalText, channelName, url string, keywords []string, publishedAt time.Time) string {
	var b strings.Builder

	b.WriteString("🔍 **New vacancy!**\n\n")
	fmt.Fprintf(&b, "📅 Date: %s\n", publishedAt.In(f.loc).Format(dateLayout))
	fmt.Fprintf(&b, "📢 Channel: %s\n", channelName)
	fmt.Fprintf(&b, "💼 Position: %s\n\n", strings.Join(keywords, ", "))
	b.WriteString("📝 **Description:**\n")
	b.WriteString(truncate(originalText, bodyLimit))
	b.WriteString("...\n\n")
	fmt.Fprintf(&b, "🔗 [Original message](%s)", url)

	return b.String()
}

// truncate returns the first n runes of s.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
