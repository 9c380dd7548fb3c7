// Package accounts implements the account registry (component C): upload
// and validation of session/metadata artifacts, and the account status
// machine pending/active/inactive/error.
package accounts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"telewatch/entity"
	"telewatch/internal/apperr"
	"telewatch/lib/sl"
)

// Database is the registry's store dependency.
type Database interface {
	CreateAccount(ctx context.Context, a *entity.Account) (*entity.Account, error)
	GetAccount(ctx context.Context, tenantID, id string) (*entity.Account, error)
	ListAccounts(ctx context.Context, tenantID string) ([]*entity.Account, error)
	SetAccountStatus(ctx context.Context, tenantID, id string, status entity.AccountStatus, lastError string) error
	DeleteAccount(ctx context.Context, tenantID, id string) error
}

// Starter is implemented by the session client supervisor; the registry
// asks it to start/stop a receiver on activate/deactivate without
// depending on the supervisor package directly (avoids an import cycle,
// since the supervisor in turn enqueues into the filter pipeline that the
// registry doesn't need to know about).
type Starter interface {
	Start(ctx context.Context, account *entity.Account) error
	Stop(ctx context.Context, accountID string) error
}

type Registry struct {
	db      Database
	starter Starter
	root    string
	log     *slog.Logger
}

func New(db Database, root string, log *slog.Logger) *Registry {
	return &Registry{db: db, root: root, log: log.With(sl.Module("accounts"))}
}

func (r *Registry) SetStarter(s Starter) {
	r.starter = s
}

// Upload accepts exactly one .session artifact and one .json metadata
// artifact, validates both, and stores them under a tenant-partitioned
// path with unique names composed from {tenant_id, timestamp}.
func (r *Registry) Upload(ctx context.Context, tenantID, name string, sessionName string, session io.Reader, metaName string, meta io.Reader) (*entity.Account, error) {
	if !strings.HasSuffix(sessionName, ".session") {
		return nil, apperr.New(apperr.ArtifactInvalid, "session artifact must have .session extension")
	}
	if !strings.HasSuffix(metaName, ".json") {
		return nil, apperr.New(apperr.ArtifactInvalid, "metadata artifact must have .json extension")
	}

	metaBytes, err := io.ReadAll(meta)
	if err != nil {
		return nil, apperr.Wrap(apperr.ArtifactInvalid, "read metadata artifact", err)
	}
	var parsed entity.AccountMetadata
	if err := json.Unmarshal(metaBytes, &parsed); err != nil {
		return nil, apperr.Wrap(apperr.ArtifactInvalid, "metadata artifact is not valid JSON", err)
	}

	stamp := fmt.Sprintf("%s-%d-%s", tenantID, time.Now().UTC().UnixNano(), uuid.NewString())
	sessionDir := filepath.Join(r.root, "sessions", tenantID)
	jsonDir := filepath.Join(r.root, "json", tenantID)
	if err := os.MkdirAll(sessionDir, 0o750); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "create session directory", err)
	}
	if err := os.MkdirAll(jsonDir, 0o750); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "create json directory", err)
	}

	sessionPath := filepath.Join(sessionDir, stamp+".session")
	jsonPath := filepath.Join(jsonDir, stamp+".json")

	sessionBytes, err := io.ReadAll(session)
	if err != nil {
		return nil, apperr.Wrap(apperr.ArtifactInvalid, "read session artifact", err)
	}
	if err := os.WriteFile(sessionPath, sessionBytes, 0o600); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "write session artifact", err)
	}
	if err := os.WriteFile(jsonPath, metaBytes, 0o600); err != nil {
		_ = os.Remove(sessionPath)
		return nil, apperr.Wrap(apperr.Internal, "write metadata artifact", err)
	}

	account := &entity.Account{
		TenantID:             tenantID,
		Name:                 name,
		SessionArtifactPath:  sessionPath,
		MetadataArtifactPath: jsonPath,
		PhoneNumber:          parsed.PhoneNumber,
		Username:             parsed.Username,
		FirstName:            parsed.FirstName,
		LastName:             parsed.LastName,
	}
	created, err := r.db.CreateAccount(ctx, account)
	if err != nil {
		_ = os.Remove(sessionPath)
		_ = os.Remove(jsonPath)
		return nil, err
	}
	r.log.Info("account uploaded", sl.Tenant(tenantID), slog.String("account_id", created.ID))
	return created, nil
}

// Activate transitions pending/inactive/error -> active, asking the
// supervisor to start a receiver; a start failure diverts to error with
// last_error set and the transition does not happen.
func (r *Registry) Activate(ctx context.Context, tenantID, id string) (*entity.Account, error) {
	account, err := r.db.GetAccount(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if r.starter != nil {
		if err := r.starter.Start(ctx, account); err != nil {
			_ = r.db.SetAccountStatus(ctx, tenantID, id, entity.AccountError, err.Error())
			return nil, apperr.Wrap(apperr.ArtifactInvalid, "supervisor failed to start account", err)
		}
	}
	if err := r.db.SetAccountStatus(ctx, tenantID, id, entity.AccountActive, ""); err != nil {
		return nil, err
	}
	return r.db.GetAccount(ctx, tenantID, id)
}

func (r *Registry) Deactivate(ctx context.Context, tenantID, id string) (*entity.Account, error) {
	if r.starter != nil {
		if err := r.starter.Stop(ctx, id); err != nil {
			r.log.With(sl.Err(err)).Warn("stop receiver on deactivate")
		}
	}
	if err := r.db.SetAccountStatus(ctx, tenantID, id, entity.AccountInactive, ""); err != nil {
		return nil, err
	}
	return r.db.GetAccount(ctx, tenantID, id)
}

// Escalate moves an account to error with last_error, called by the
// supervisor and health monitor on unrecoverable failure.
func (r *Registry) Escalate(ctx context.Context, tenantID, id string, cause error) error {
	return r.db.SetAccountStatus(ctx, tenantID, id, entity.AccountError, cause.Error())
}

func (r *Registry) List(ctx context.Context, tenantID string) ([]*entity.Account, error) {
	return r.db.ListAccounts(ctx, tenantID)
}

func (r *Registry) Delete(ctx context.Context, tenantID, id string) error {
	account, err := r.db.GetAccount(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if r.starter != nil {
		_ = r.starter.Stop(ctx, id)
	}
	if err := r.db.DeleteAccount(ctx, tenantID, id); err != nil {
		return err
	}
	_ = os.Remove(account.SessionArtifactPath)
	_ = os.Remove(account.MetadataArtifactPath)
	return nil
}
