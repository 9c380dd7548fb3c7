// Package pipeline implements the filter & archive pipeline (component
// G): match incoming messages against a tenant's watch criteria, persist
// the archive, and emit forward requests.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"telewatch/entity"
	"telewatch/impl/telegram"
	"telewatch/internal/apperr"
	"telewatch/lib/sl"
)

// Database is the pipeline's store dependency.
type Database interface {
	WatchUsersByUsername(ctx context.Context, tenantID, username string) ([]*entity.WatchUser, error)
	AlreadyArchived(ctx context.Context, tenantID, groupID, messageID string) (bool, error)
	AppendMessage(ctx context.Context, msg *entity.MessageLog) (*entity.MessageLog, error)
}

// ForwardRequest is emitted once per (matched WatchUser, destination).
// RoutingID is a fresh id per emission, carried through delivery and
// into the ledger row so a recipient's footer and the archived row for
// the same forward can be correlated without exposing internal ids.
type ForwardRequest struct {
	TenantID      string
	DestinationID string
	SourceRef     string
	Username      string
	GroupName     string
	Timestamp     time.Time
	MessageText   string
	MediaInfo     map[string]interface{}
	RoutingID     string
}

// Emitter is implemented by the forwarding engine.
type Emitter interface {
	Enqueue(ctx context.Context, req ForwardRequest) error
}

type Pipeline struct {
	db      Database
	emitter Emitter
	log     *slog.Logger
}

func New(db Database, emitter Emitter, log *slog.Logger) *Pipeline {
	return &Pipeline{db: db, emitter: emitter, log: log.With(sl.Module("pipeline"))}
}

// Ingest runs one incoming message through match -> archive -> forward.
// ingestedVia records whether the event came from a session receiver or
// the bot webhook.
func (p *Pipeline) Ingest(ctx context.Context, tenantID, accountID string, ev telegram.Event, ingestedVia entity.IngestSource) error {
	normalizedUsername := strings.ToLower(strings.TrimSpace(ev.Username))

	watchers, err := p.db.WatchUsersByUsername(ctx, tenantID, normalizedUsername)
	if err != nil {
		return err
	}
	if len(watchers) == 0 {
		return nil
	}

	matchText := ev.Text
	if matchText == "" {
		matchText = ev.Caption
	}

	var matched []*entity.WatchUser
	var allKeywords []string
	for _, w := range watchers {
		if !w.MatchesGroup(ev.GroupID) {
			continue
		}
		kws := w.MatchKeywords(matchText)
		if len(w.Keywords) > 0 && len(kws) == 0 {
			continue
		}
		matched = append(matched, w)
		allKeywords = append(allKeywords, kws...)
	}
	if len(matched) == 0 {
		return nil
	}

	alreadyArchived, err := p.db.AlreadyArchived(ctx, tenantID, ev.GroupID, ev.MessageID)
	if err != nil {
		return err
	}

	msg := &entity.MessageLog{
		TenantID:        tenantID,
		GroupID:         ev.GroupID,
		GroupName:       ev.GroupName,
		UserID:          ev.UserID,
		Username:        ev.Username,
		MessageID:       ev.MessageID,
		MessageText:     matchText,
		MessageType:     classify(ev.Kind),
		MediaInfo:       ev.MediaInfo,
		MatchedKeywords: dedupe(allKeywords),
		Timestamp:       time.UnixMilli(ev.TimestampMs).UTC(),
		IngestedVia:     ingestedVia,
	}

	if alreadyArchived {
		// Idempotent: duplicate receive of the same external message is
		// a no-op, not re-forwarded.
		return nil
	}

	if _, err := p.db.AppendMessage(ctx, msg); err != nil {
		if apperr.Is(err, apperr.Conflict) {
			return nil
		}
		return err
	}

	for _, w := range matched {
		for _, destID := range w.ForwardingDestinations {
			req := ForwardRequest{
				TenantID:      tenantID,
				DestinationID: destID,
				SourceRef:     ev.GroupID + ":" + ev.MessageID,
				Username:      ev.Username,
				GroupName:     ev.GroupName,
				Timestamp:     msg.Timestamp,
				MessageText:   msg.MessageText,
				MediaInfo:     msg.MediaInfo,
				RoutingID:     uuid.NewString(),
			}
			if err := p.emitter.Enqueue(ctx, req); err != nil {
				p.log.With(sl.Err(err), sl.Tenant(tenantID)).Error("enqueue forward request")
			}
		}
	}
	return nil
}

func classify(kind string) entity.MessageType {
	switch entity.MessageType(kind) {
	case entity.MessageText, entity.MessagePhoto, entity.MessageVideo, entity.MessageDocument,
		entity.MessageAudio, entity.MessageVoice, entity.MessageSticker:
		return entity.MessageType(kind)
	default:
		return entity.MessageOther
	}
}

func dedupe(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
