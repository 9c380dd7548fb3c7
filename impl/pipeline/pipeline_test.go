package pipeline

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telewatch/entity"
	"telewatch/impl/telegram"
	"telewatch/internal/apperr"
)

type fakeDB struct {
	watchers   []*entity.WatchUser
	archived   map[string]bool
	appended   []*entity.MessageLog
	appendErr  error
	watchErr   error
	archiveErr error
}

func newFakeDB() *fakeDB {
	return &fakeDB{archived: map[string]bool{}}
}

func (f *fakeDB) WatchUsersByUsername(_ context.Context, _, _ string) ([]*entity.WatchUser, error) {
	if f.watchErr != nil {
		return nil, f.watchErr
	}
	return f.watchers, nil
}

func (f *fakeDB) AlreadyArchived(_ context.Context, _, groupID, messageID string) (bool, error) {
	if f.archiveErr != nil {
		return false, f.archiveErr
	}
	return f.archived[groupID+":"+messageID], nil
}

func (f *fakeDB) AppendMessage(_ context.Context, msg *entity.MessageLog) (*entity.MessageLog, error) {
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	f.appended = append(f.appended, msg)
	return msg, nil
}

type fakeEmitter struct {
	requests []ForwardRequest
	err      error
}

func (f *fakeEmitter) Enqueue(_ context.Context, req ForwardRequest) error {
	if f.err != nil {
		return f.err
	}
	f.requests = append(f.requests, req)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func baseEvent() telegram.Event {
	return telegram.Event{
		GroupID:     "group-1",
		GroupName:   "Traders",
		UserID:      7,
		Username:    "Ada",
		MessageID:   "msg-1",
		Text:        "let's talk price targets",
		Kind:        "text",
		TimestampMs: time.Now().UnixMilli(),
	}
}

func TestIngestSkipsWhenNoWatchersMatchUsername(t *testing.T) {
	db := newFakeDB()
	emitter := &fakeEmitter{}
	p := New(db, emitter, testLogger())

	err := p.Ingest(context.Background(), "tenant-1", "acct-1", baseEvent(), entity.IngestSession)
	require.NoError(t, err)
	assert.Empty(t, db.appended)
	assert.Empty(t, emitter.requests)
}

func TestIngestSkipsWhenGroupOutOfScope(t *testing.T) {
	db := newFakeDB()
	db.watchers = []*entity.WatchUser{
		{ID: "w1", Username: "ada", GroupIDs: []string{"group-other"}, ForwardingDestinations: []string{"dest-1"}},
	}
	emitter := &fakeEmitter{}
	p := New(db, emitter, testLogger())

	err := p.Ingest(context.Background(), "tenant-1", "acct-1", baseEvent(), entity.IngestSession)
	require.NoError(t, err)
	assert.Empty(t, db.appended)
	assert.Empty(t, emitter.requests)
}

func TestIngestSkipsWhenKeywordsDontMatch(t *testing.T) {
	db := newFakeDB()
	db.watchers = []*entity.WatchUser{
		{ID: "w1", Username: "ada", Keywords: []string{"airdrop"}, ForwardingDestinations: []string{"dest-1"}},
	}
	emitter := &fakeEmitter{}
	p := New(db, emitter, testLogger())

	err := p.Ingest(context.Background(), "tenant-1", "acct-1", baseEvent(), entity.IngestSession)
	require.NoError(t, err)
	assert.Empty(t, db.appended)
	assert.Empty(t, emitter.requests)
}

func TestIngestArchivesAndForwardsOnMatch(t *testing.T) {
	db := newFakeDB()
	db.watchers = []*entity.WatchUser{
		{ID: "w1", Username: "ada", ForwardingDestinations: []string{"dest-1", "dest-2"}},
	}
	emitter := &fakeEmitter{}
	p := New(db, emitter, testLogger())

	err := p.Ingest(context.Background(), "tenant-1", "acct-1", baseEvent(), entity.IngestSession)
	require.NoError(t, err)
	require.Len(t, db.appended, 1)
	assert.Equal(t, "tenant-1", db.appended[0].TenantID)
	assert.Equal(t, entity.IngestSession, db.appended[0].IngestedVia)
	require.Len(t, emitter.requests, 2)
	assert.Equal(t, "dest-1", emitter.requests[0].DestinationID)
	assert.Equal(t, "dest-2", emitter.requests[1].DestinationID)
	assert.Equal(t, "group-1:msg-1", emitter.requests[0].SourceRef)
	assert.Equal(t, "let's talk price targets", emitter.requests[0].MessageText)
	assert.NotEmpty(t, emitter.requests[0].RoutingID)
	assert.NotEmpty(t, emitter.requests[1].RoutingID)
	assert.NotEqual(t, emitter.requests[0].RoutingID, emitter.requests[1].RoutingID)
}

func TestIngestIsIdempotentForAlreadyArchivedMessage(t *testing.T) {
	db := newFakeDB()
	db.watchers = []*entity.WatchUser{
		{ID: "w1", Username: "ada", ForwardingDestinations: []string{"dest-1"}},
	}
	db.archived["group-1:msg-1"] = true
	emitter := &fakeEmitter{}
	p := New(db, emitter, testLogger())

	err := p.Ingest(context.Background(), "tenant-1", "acct-1", baseEvent(), entity.IngestSession)
	require.NoError(t, err)
	assert.Empty(t, db.appended)
	assert.Empty(t, emitter.requests)
}

func TestIngestTreatsConflictOnAppendAsIdempotentNoop(t *testing.T) {
	db := newFakeDB()
	db.watchers = []*entity.WatchUser{
		{ID: "w1", Username: "ada", ForwardingDestinations: []string{"dest-1"}},
	}
	db.appendErr = apperr.New(apperr.Conflict, "duplicate message")
	emitter := &fakeEmitter{}
	p := New(db, emitter, testLogger())

	err := p.Ingest(context.Background(), "tenant-1", "acct-1", baseEvent(), entity.IngestSession)
	require.NoError(t, err)
	assert.Empty(t, emitter.requests)
}

func TestIngestSwallowsEnqueueFailureWithoutAborting(t *testing.T) {
	db := newFakeDB()
	db.watchers = []*entity.WatchUser{
		{ID: "w1", Username: "ada", ForwardingDestinations: []string{"dest-1"}},
	}
	emitter := &fakeEmitter{err: apperr.New(apperr.Internal, "queue full")}
	p := New(db, emitter, testLogger())

	err := p.Ingest(context.Background(), "tenant-1", "acct-1", baseEvent(), entity.IngestSession)
	require.NoError(t, err)
	require.Len(t, db.appended, 1)
}

func TestIngestFallsBackToCaptionWhenTextEmpty(t *testing.T) {
	db := newFakeDB()
	db.watchers = []*entity.WatchUser{
		{ID: "w1", Username: "ada", Keywords: []string{"airdrop"}, ForwardingDestinations: []string{"dest-1"}},
	}
	emitter := &fakeEmitter{}
	p := New(db, emitter, testLogger())

	ev := baseEvent()
	ev.Text = ""
	ev.Caption = "huge airdrop incoming"

	err := p.Ingest(context.Background(), "tenant-1", "acct-1", ev, entity.IngestSession)
	require.NoError(t, err)
	require.Len(t, db.appended, 1)
	assert.Equal(t, "huge airdrop incoming", db.appended[0].MessageText)
	require.Len(t, emitter.requests, 1)
	assert.Equal(t, "huge airdrop incoming", emitter.requests[0].MessageText)
}
