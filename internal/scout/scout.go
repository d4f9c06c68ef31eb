// ABOUTME: Scan/publish loop that republishes relevant vacancies from source channels
// ABOUTME: Sequential state machine: fetch window, dedupe, filter, format, publish, record, sleep

package scout

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/2389/career-scout/internal/filter"
	"github.com/2389/career-scout/internal/format"
	"github.com/2389/career-scout/internal/transport"
)

// State is the loop's current activity.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateScanningChannel
	StateProcessingMessage
	StatePublishing
	StateSleeping
	StatePausedBetweenCycles
	StateShuttingDown
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateScanningChannel:
		return "scanning_channel"
	case StateProcessingMessage:
		return "processing_message"
	case StatePublishing:
		return "publishing"
	case StateSleeping:
		return "sleeping"
	case StatePausedBetweenCycles:
		return "paused_between_cycles"
	case StateShuttingDown:
		return "shutting_down"
	default:
		return "unknown"
	}
}

// Deduper remembers which messages were already republished.
// *dedupe.Cache satisfies it.
type Deduper interface {
	Exists(channelID, messageID string) bool
	Insert(channelID, messageID string) error
}

// Options holds the loop settings.
type Options struct {
	Channels     []transport.Channel
	DaysToParse  int
	RequestDelay time.Duration
	Pause        time.Duration
}

// Window returns the start of the scan window ending at now.
func (o Options) Window(now time.Time) time.Time {
	return now.Add(-time.Duration(o.DaysToParse) * 24 * time.Hour)
}

// CycleStats counts what happened during one pass over all channels.
type CycleStats struct {
	Channels    int // channels fetched successfully
	Failed      int // channels skipped after a fetch error
	Scanned     int // messages looked at
	Duplicates  int
	Irrelevant  int
	Published   int
	RateLimited int
	Dropped     int // publish failures other than rate limits
}

// Posts are markdown without link previews.
var publishOptions = transport.PublishOptions{Markdown: true, LinkPreview: false}

// Scanner runs the scan/publish loop. It is driven by a single goroutine.
type Scanner struct {
	opts      Options
	transport transport.Transport
	cache     Deduper
	filter    *filter.Filter
	formatter *format.Formatter
	logger    *slog.Logger

	state atomic.Int32

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Scanner over the given dependencies.
func New(opts Options, tr transport.Transport, cache Deduper, f *filter.Filter, fm *format.Formatter, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		opts:      opts,
		transport: tr,
		cache:     cache,
		filter:    f,
		formatter: fm,
		logger:    logger.With("component", "scout"),
		now:       time.Now,
		sleep:     sleepContext,
	}
}

// State returns the current state. Safe to call from any goroutine.
func (s *Scanner) State() State {
	return State(s.state.Load())
}

func (s *Scanner) setState(next State) {
	prev := State(s.state.Swap(int32(next)))
	if prev != next {
		s.logger.Debug("state changed", "from", prev, "to", next)
	}
}

// Run connects the transport and scans until ctx is cancelled. A connect
// failure is returned; cancellation returns nil. The transport is always
// closed before Run returns.
func (s *Scanner) Run(ctx context.Context) error {
	defer s.shutdown()

	s.setState(StateConnecting)
	if err := s.transport.Connect(ctx); err != nil {
		return fmt.Errorf("connecting transport: %w", err)
	}
	s.logger.Info("connected", "channels", len(s.opts.Channels))

	for ctx.Err() == nil {
		s.RunCycle(ctx)
		if ctx.Err() != nil {
			break
		}

		s.setState(StatePausedBetweenCycles)
		s.logger.Info("pausing before next cycle", "pause", s.opts.Pause)
		if err := s.sleep(ctx, s.opts.Pause); err != nil {
			break
		}
	}

	s.logger.Info("stopping", "reason", context.Cause(ctx))
	return nil
}

func (s *Scanner) shutdown() {
	s.setState(StateShuttingDown)
	if err := s.transport.Close(); err != nil {
		s.logger.Warn("closing transport", "error", err)
	}
}

// RunCycle scans every configured channel once, in order.
func (s *Scanner) RunCycle(ctx context.Context) CycleStats {
	var stats CycleStats
	logger := s.logger.With("cycle_id", uuid.NewString())
	since := s.opts.Window(s.now())

	logger.Info("cycle started", "since", since)

	for _, ch := range s.opts.Channels {
		if ctx.Err() != nil {
			break
		}
		s.scanChannel(ctx, logger, ch, since, &stats)
	}

	logger.Info("cycle finished",
		"channels", stats.Channels,
		"failed", stats.Failed,
		"scanned", stats.Scanned,
		"duplicates", stats.Duplicates,
		"irrelevant", stats.Irrelevant,
		"published", stats.Published,
		"rate_limited", stats.RateLimited,
		"dropped", stats.Dropped,
	)
	return stats
}

func (s *Scanner) scanChannel(ctx context.Context, logger *slog.Logger, ch transport.Channel, since time.Time, stats *CycleStats) {
	s.setState(StateScanningChannel)
	logger = logger.With("channel", ch.DisplayName())

	msgs, err := s.transport.FetchMessages(ctx, ch, since)
	if err != nil {
		stats.Failed++
		logger.Error("fetching messages failed, skipping channel", "error", err)
		return
	}
	stats.Channels++
	logger.Debug("fetched messages", "count", len(msgs))

	for _, msg := range msgs {
		if ctx.Err() != nil {
			return
		}
		s.processMessage(ctx, logger, ch, msg, stats)
	}
}

func (s *Scanner) processMessage(ctx context.Context, logger *slog.Logger, ch transport.Channel, msg transport.Message, stats *CycleStats) {
	s.setState(StateProcessingMessage)
	stats.Scanned++

	if msg.Text == "" {
		return
	}

	channelID := msg.ChannelID
	if channelID == "" {
		channelID = ch.ID
	}
	logger = logger.With("message_id", msg.ID)

	if s.cache.Exists(channelID, msg.ID) {
		stats.Duplicates++
		logger.Debug("already published")
		return
	}

	if !s.filter.IsRelevant(msg.Text) {
		stats.Irrelevant++
		return
	}

	keywords := s.filter.ExtractKeywords(msg.Text)
	post := s.formatter.Format(msg.Text, ch.DisplayName(), s.transport.Permalink(msg), keywords, msg.PublishedAt)

	s.setState(StatePublishing)
	if err := s.transport.Publish(ctx, post, publishOptions); err != nil {
		if wait, ok := transport.IsFloodWait(err); ok {
			stats.RateLimited++
			logger.Warn("rate limited, waiting", "wait", wait)
			s.setState(StateSleeping)
			_ = s.sleep(ctx, wait)
			return
		}
		stats.Dropped++
		logger.Error("publishing failed", "error", err)
		return
	}

	stats.Published++
	logger.Info("published vacancy", "keywords", keywords)

	if err := s.cache.Insert(channelID, msg.ID); err != nil {
		logger.Error("recording published message", "error", err)
	}

	s.setState(StateSleeping)
	_ = s.sleep(ctx, s.opts.RequestDelay)
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
