package accounts

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telewatch/entity"
	"telewatch/internal/apperr"
)

type fakeDB struct {
	accounts  map[string]*entity.Account
	createErr error
	nextID    int
}

func newFakeDB() *fakeDB {
	return &fakeDB{accounts: map[string]*entity.Account{}}
}

func (f *fakeDB) CreateAccount(_ context.Context, a *entity.Account) (*entity.Account, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	a.ID = "acct-" + strings.Repeat("x", f.nextID)
	a.Status = entity.AccountPending
	f.accounts[a.ID] = a
	return a, nil
}

func (f *fakeDB) GetAccount(_ context.Context, _, id string) (*entity.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "account not found")
	}
	return a, nil
}

func (f *fakeDB) ListAccounts(_ context.Context, tenantID string) ([]*entity.Account, error) {
	var out []*entity.Account
	for _, a := range f.accounts {
		if a.TenantID == tenantID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeDB) SetAccountStatus(_ context.Context, _, id string, status entity.AccountStatus, lastError string) error {
	a, ok := f.accounts[id]
	if !ok {
		return apperr.New(apperr.NotFound, "account not found")
	}
	a.Status = status
	a.LastError = lastError
	return nil
}

func (f *fakeDB) DeleteAccount(_ context.Context, _, id string) error {
	delete(f.accounts, id)
	return nil
}

type fakeStarter struct {
	startErr  error
	started   []string
	stopped   []string
}

func (f *fakeStarter) Start(_ context.Context, account *entity.Account) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started = append(f.started, account.ID)
	return nil
}

func (f *fakeStarter) Stop(_ context.Context, accountID string) error {
	f.stopped = append(f.stopped, accountID)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestUploadRejectsWrongSessionExtension(t *testing.T) {
	r := New(newFakeDB(), t.TempDir(), testLogger())
	_, err := r.Upload(context.Background(), "tenant-1", "acct", "session.txt", strings.NewReader("data"), "meta.json", strings.NewReader(`{}`))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ArtifactInvalid))
}

func TestUploadRejectsWrongMetadataExtension(t *testing.T) {
	r := New(newFakeDB(), t.TempDir(), testLogger())
	_, err := r.Upload(context.Background(), "tenant-1", "acct", "session.session", strings.NewReader("data"), "meta.txt", strings.NewReader(`{}`))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ArtifactInvalid))
}

func TestUploadRejectsMalformedMetadataJSON(t *testing.T) {
	r := New(newFakeDB(), t.TempDir(), testLogger())
	_, err := r.Upload(context.Background(), "tenant-1", "acct", "session.session", strings.NewReader("data"), "meta.json", strings.NewReader(`not-json`))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ArtifactInvalid))
}

func TestUploadStoresArtifactsAndCreatesPendingAccount(t *testing.T) {
	db := newFakeDB()
	r := New(db, t.TempDir(), testLogger())

	account, err := r.Upload(context.Background(), "tenant-1", "Primary", "session.session", strings.NewReader("session-bytes"),
		"meta.json", strings.NewReader(`{"phone_number":"+10000000000","username":"ada"}`))
	require.NoError(t, err)
	assert.Equal(t, entity.AccountPending, account.Status)
	assert.Equal(t, "ada", account.Username)
	assert.FileExists(t, account.SessionArtifactPath)
	assert.FileExists(t, account.MetadataArtifactPath)
}

func TestActivateStartsReceiverAndSetsActive(t *testing.T) {
	db := newFakeDB()
	db.accounts["acct-x"] = &entity.Account{ID: "acct-x", TenantID: "tenant-1", Status: entity.AccountPending}
	starter := &fakeStarter{}
	r := New(db, t.TempDir(), testLogger())
	r.SetStarter(starter)

	account, err := r.Activate(context.Background(), "tenant-1", "acct-x")
	require.NoError(t, err)
	assert.Equal(t, entity.AccountActive, account.Status)
	assert.Contains(t, starter.started, "acct-x")
}

func TestActivateDivertsToErrorWhenStartFails(t *testing.T) {
	db := newFakeDB()
	db.accounts["acct-x"] = &entity.Account{ID: "acct-x", TenantID: "tenant-1", Status: entity.AccountPending}
	starter := &fakeStarter{startErr: apperr.New(apperr.ArtifactInvalid, "corrupt session")}
	r := New(db, t.TempDir(), testLogger())
	r.SetStarter(starter)

	_, err := r.Activate(context.Background(), "tenant-1", "acct-x")
	require.Error(t, err)
	assert.Equal(t, entity.AccountError, db.accounts["acct-x"].Status)
	assert.NotEmpty(t, db.accounts["acct-x"].LastError)
}

func TestDeactivateStopsReceiverAndSetsInactive(t *testing.T) {
	db := newFakeDB()
	db.accounts["acct-x"] = &entity.Account{ID: "acct-x", TenantID: "tenant-1", Status: entity.AccountActive}
	starter := &fakeStarter{}
	r := New(db, t.TempDir(), testLogger())
	r.SetStarter(starter)

	account, err := r.Deactivate(context.Background(), "tenant-1", "acct-x")
	require.NoError(t, err)
	assert.Equal(t, entity.AccountInactive, account.Status)
	assert.Contains(t, starter.stopped, "acct-x")
}

func TestEscalateSetsErrorWithCause(t *testing.T) {
	db := newFakeDB()
	db.accounts["acct-x"] = &entity.Account{ID: "acct-x", TenantID: "tenant-1", Status: entity.AccountActive}
	r := New(db, t.TempDir(), testLogger())

	err := r.Escalate(context.Background(), "tenant-1", "acct-x", apperr.New(apperr.UpstreamPermanent, "revoked"))
	require.NoError(t, err)
	assert.Equal(t, entity.AccountError, db.accounts["acct-x"].Status)
	assert.Contains(t, db.accounts["acct-x"].LastError, "revoked")
}

func TestDeleteRemovesAccountAndStopsReceiver(t *testing.T) {
	db := newFakeDB()
	r := New(db, t.TempDir(), testLogger())
	starter := &fakeStarter{}
	r.SetStarter(starter)

	account, err := r.Upload(context.Background(), "tenant-1", "acct", "session.session", strings.NewReader("x"), "meta.json", strings.NewReader(`{}`))
	require.NoError(t, err)

	require.NoError(t, r.Delete(context.Background(), "tenant-1", account.ID))
	assert.Contains(t, starter.stopped, account.ID)

	_, err = db.GetAccount(context.Background(), "tenant-1", account.ID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}
