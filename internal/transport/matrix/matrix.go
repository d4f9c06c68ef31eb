// ABOUTME: Matrix implementation of the scanner transport using mautrix
// ABOUTME: Pages room history for the scan window and publishes posts to the destination room

package matrix

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/2389/career-scout/internal/config"
	"github.com/2389/career-scout/internal/transport"
)

// defaultFloodWait is used when the homeserver rate-limits without saying
// how long to wait.
const defaultFloodWait = 5 * time.Second

// defaultPageSize is the number of events requested per /messages call.
const defaultPageSize = 100

// Options carries settings that live outside the matrix config section.
type Options struct {
	// DataDir holds the E2EE crypto database.
	DataDir string
	// PageSize is the number of events fetched per history request.
	PageSize int
	Logger   *slog.Logger
}

// Transport talks to a Matrix homeserver.
type Transport struct {
	cfg      config.MatrixConfig
	client   *mautrix.Client
	dataDir  string
	pageSize int
	logger   *slog.Logger
	markdown goldmark.Markdown

	destination id.RoomID
	crypto      *cryptoManager

	aliasMu sync.Mutex
	aliases map[string]id.RoomID

	syncCancel context.CancelFunc
	syncDone   chan struct{}
}

var _ transport.Transport = (*Transport)(nil)

// New creates a Matrix transport. No network calls are made until Connect.
func New(cfg config.MatrixConfig, opts Options) (*Transport, error) {
	client, err := mautrix.NewClient(cfg.Homeserver, id.UserID(cfg.UserID), cfg.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("creating matrix client: %w", err)
	}
	// Rate limits must reach the scanner instead of being retried here.
	client.DefaultHTTPRetries = 0
	if cfg.DeviceID != "" {
		client.DeviceID = id.DeviceID(cfg.DeviceID)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	return &Transport{
		cfg:      cfg,
		client:   client,
		dataDir:  opts.DataDir,
		pageSize: pageSize,
		logger:   logger.With("component", "matrix"),
		markdown: goldmark.New(goldmark.WithRendererOptions(html.WithHardWraps())),
		aliases:  make(map[string]id.RoomID),
	}, nil
}

// Connect authenticates, sets up encryption when configured, and resolves the
// destination room.
func (t *Transport) Connect(ctx context.Context) error {
	t.logger.Info("connecting to matrix homeserver", "homeserver", t.cfg.Homeserver)

	if err := t.authenticate(ctx); err != nil {
		return err
	}

	if t.cfg.EncryptionEnabled() {
		cm, err := setupCrypto(ctx, t.client, t.client.UserID.String(), t.cfg.RecoveryKey, t.dataDir, t.logger)
		if err != nil {
			return fmt.Errorf("setting up encryption: %w", err)
		}
		t.crypto = cm
		t.startSync()
	} else {
		t.logger.Info("encryption disabled")
	}

	dest, err := t.resolveRoom(ctx, t.cfg.Destination)
	if err != nil {
		return fmt.Errorf("resolving destination %s: %w", t.cfg.Destination, err)
	}
	t.destination = dest

	t.logger.Info("connected",
		"user_id", t.client.UserID.String(),
		"device_id", t.client.DeviceID.String(),
		"destination", dest.String(),
	)
	return nil
}

// authenticate validates the access token, or logs in with a password when
// no token is configured.
func (t *Transport) authenticate(ctx context.Context) error {
	if t.cfg.AccessToken != "" {
		resp, err := t.client.Whoami(ctx)
		if err != nil {
			return fmt.Errorf("validating access token: %w", err)
		}
		t.client.UserID = resp.UserID
		if resp.DeviceID != "" {
			t.client.DeviceID = resp.DeviceID
		}
		return nil
	}

	resp, err := t.client.Login(ctx, &mautrix.ReqLogin{
		Type: mautrix.AuthTypePassword,
		Identifier: mautrix.UserIdentifier{
			Type: mautrix.IdentifierTypeUser,
			User: t.cfg.Username,
		},
		Password:                 t.cfg.Password,
		DeviceID:                 id.DeviceID(t.cfg.DeviceID),
		InitialDeviceDisplayName: "career-scout",
		StoreCredentials:         true,
	})
	if err != nil {
		return fmt.Errorf("matrix login: %w", err)
	}
	t.logger.Info("logged in", "user_id", resp.UserID.String(), "device_id", resp.DeviceID.String())
	return nil
}

// startSync keeps a /sync loop running so the crypto machine receives room
// keys and device list updates.
func (t *Transport) startSync() {
	ctx, cancel := context.WithCancel(context.Background())
	t.syncCancel = cancel
	t.syncDone = make(chan struct{})

	go func() {
		defer close(t.syncDone)
		if err := t.client.SyncWithContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
			t.logger.Error("matrix sync stopped", "error", err)
		}
	}()
}

// resolveRoom maps a room alias to its room ID. Room IDs pass through.
func (t *Transport) resolveRoom(ctx context.Context, ref string) (id.RoomID, error) {
	if !strings.HasPrefix(ref, "#") {
		return id.RoomID(ref), nil
	}

	t.aliasMu.Lock()
	roomID, ok := t.aliases[ref]
	t.aliasMu.Unlock()
	if ok {
		return roomID, nil
	}

	resp, err := t.client.ResolveAlias(ctx, id.RoomAlias(ref))
	if err != nil {
		return "", fmt.Errorf("resolving alias %s: %w", ref, err)
	}

	t.aliasMu.Lock()
	t.aliases[ref] = resp.RoomID
	t.aliasMu.Unlock()
	return resp.RoomID, nil
}

// FetchMessages pages the room history backwards until it passes since, then
// returns the text messages found, oldest first.
func (t *Transport) FetchMessages(ctx context.Context, ch transport.Channel, since time.Time) ([]transport.Message, error) {
	roomID, err := t.resolveRoom(ctx, ch.ID)
	if err != nil {
		return nil, err
	}

	sinceMs := since.UnixMilli()
	var msgs []transport.Message
	from := ""

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := t.client.Messages(ctx, roomID, from, "", mautrix.DirectionBackward, nil, t.pageSize)
		if err != nil {
			return nil, fmt.Errorf("fetching messages from %s: %w", roomID, err)
		}

		reachedWindowStart := false
		for _, evt := range resp.Chunk {
			if evt.Timestamp < sinceMs {
				reachedWindowStart = true
				break
			}
			if msg, ok := t.toMessage(ctx, roomID, evt); ok {
				msgs = append(msgs, msg)
			}
		}

		if reachedWindowStart || len(resp.Chunk) == 0 || resp.End == "" || resp.End == from {
			break
		}
		from = resp.End
	}

	slices.Reverse(msgs)
	t.logger.Debug("fetched messages", "room", roomID.String(), "count", len(msgs))
	return msgs, nil
}

// toMessage converts a timeline event into a transport message. Only text
// and notice messages are kept; edits (m.replace) are skipped.
func (t *Transport) toMessage(ctx context.Context, roomID id.RoomID, evt *event.Event) (transport.Message, bool) {
	if evt.StateKey != nil {
		return transport.Message{}, false
	}
	evt.Type.Class = event.MessageEventType

	if evt.Content.Parsed == nil {
		if err := evt.Content.ParseRaw(evt.Type); err != nil {
			t.logger.Debug("skipping unparseable event", "event_id", evt.ID.String(), "type", evt.Type.Type, "error", err)
			return transport.Message{}, false
		}
	}

	if evt.Type == event.EventEncrypted {
		if t.crypto == nil {
			return transport.Message{}, false
		}
		decrypted, err := t.crypto.helper.Decrypt(ctx, evt)
		if err != nil {
			t.logger.Warn("failed to decrypt event", "event_id", evt.ID.String(), "error", err)
			return transport.Message{}, false
		}
		evt = decrypted
	}

	if evt.Type != event.EventMessage {
		return transport.Message{}, false
	}

	content := evt.Content.AsMessage()
	if content.MsgType != event.MsgText && content.MsgType != event.MsgNotice {
		return transport.Message{}, false
	}
	// An edit is a new event pointing at the original; the original was
	// already considered.
	if content.RelatesTo.GetReplaceID() != "" {
		return transport.Message{}, false
	}

	return transport.Message{
		ID:          evt.ID.String(),
		ChannelID:   roomID.String(),
		Text:        content.Body,
		PublishedAt: time.UnixMilli(evt.Timestamp),
	}, true
}

// Publish sends text to the destination room. With Markdown set, an HTML
// rendering is attached as formatted_body. Matrix has no sender-side link
// preview switch, so LinkPreview is left to clients.
func (t *Transport) Publish(ctx context.Context, text string, opts transport.PublishOptions) error {
	if t.destination == "" {
		return fmt.Errorf("matrix transport is not connected")
	}

	content := &event.MessageEventContent{
		MsgType: event.MsgText,
		Body:    text,
	}
	if opts.Markdown {
		var buf bytes.Buffer
		if err := t.markdown.Convert([]byte(text), &buf); err != nil {
			t.logger.Warn("markdown rendering failed, sending plain text", "error", err)
		} else {
			content.Format = event.FormatHTML
			content.FormattedBody = strings.TrimSpace(buf.String())
		}
	}

	_, err := t.client.SendMessageEvent(ctx, t.destination, event.EventMessage, content,
		mautrix.ReqSendEvent{TransactionID: uuid.NewString()})
	if err != nil {
		if wait, ok := floodWait(err); ok {
			return &transport.FloodWaitError{Wait: wait, Err: err}
		}
		return fmt.Errorf("sending message to %s: %w", t.destination, err)
	}
	return nil
}

// floodWait reports whether err is an M_LIMIT_EXCEEDED response and how long
// the homeserver asked us to wait.
func floodWait(err error) (time.Duration, bool) {
	if !errors.Is(err, mautrix.MLimitExceeded) {
		return 0, false
	}

	var respErr mautrix.RespError
	if errors.As(err, &respErr) {
		if ms, ok := respErr.ExtraData["retry_after_ms"].(float64); ok && ms > 0 {
			return time.Duration(ms) * time.Millisecond, true
		}
	}
	return defaultFloodWait, true
}

// Permalink returns a matrix.to link to the source event.
func (t *Transport) Permalink(msg transport.Message) string {
	return fmt.Sprintf("https://matrix.to/#/%s/%s", msg.ChannelID, msg.ID)
}

// Destination returns the resolved destination room ID, empty before Connect.
func (t *Transport) Destination() id.RoomID {
	return t.destination
}

// Close stops background sync and releases the crypto store.
func (t *Transport) Close() error {
	if t.syncCancel != nil {
		t.syncCancel()
		t.client.StopSync()
		<-t.syncDone
		t.syncCancel = nil
	}
	if t.crypto != nil {
		err := t.crypto.Close()
		t.crypto = nil
		return err
	}
	return nil
}
