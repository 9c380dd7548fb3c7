// Package accounts implements GET /accounts, POST /accounts/upload,
// POST /accounts/{id}/activate|deactivate and DELETE /accounts/{id}.
package accounts

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"telewatch/entity"
	"telewatch/internal/apperr"
	"telewatch/internal/http-server/handlers/httperr"
	"telewatch/lib/api/cont"
	"telewatch/lib/api/response"
	"telewatch/lib/sl"
)

const maxUploadBytes = 10 << 20 // 10 MiB: a .session file plus its .json metadata

type Core interface {
	UploadAccount(ctx context.Context, tenantID, name, sessionName string, session io.Reader, metaName string, meta io.Reader) (*entity.Account, error)
	ListAccounts(ctx context.Context, tenantID string) ([]*entity.Account, error)
	ActivateAccount(ctx context.Context, tenantID, id string) (*entity.Account, error)
	DeactivateAccount(ctx context.Context, tenantID, id string) (*entity.Account, error)
	DeleteAccount(ctx context.Context, tenantID, id string) error
}

func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(sl.Module("http.handlers.accounts"), slog.String("request_id", middleware.GetReqID(r.Context())))
		authCtx, _ := cont.GetAuth(r.Context())

		list, err := handler.ListAccounts(r.Context(), authCtx.TenantID)
		if err != nil {
			logger.With(sl.Err(err)).Warn("list accounts")
			httperr.Render(w, r, err)
			return
		}
		render.JSON(w, r, response.Ok(list))
	}
}

// Upload accepts a multipart form with fields "name" (display name),
// "session" (the .session artifact) and "meta" (the .json artifact).
func Upload(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(sl.Module("http.handlers.accounts"), slog.String("request_id", middleware.GetReqID(r.Context())))
		authCtx, _ := cont.GetAuth(r.Context())

		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			logger.With(sl.Err(err)).Warn("parse multipart form")
			httperr.Render(w, r, apperr.Wrap(apperr.ArtifactInvalid, "invalid multipart form", err))
			return
		}

		name := r.FormValue("name")
		if name == "" {
			httperr.Render(w, r, apperr.New(apperr.Validation, "name is required"))
			return
		}

		sessionFile, sessionHeader, err := r.FormFile("session")
		if err != nil {
			httperr.Render(w, r, apperr.Wrap(apperr.ArtifactInvalid, "session file is required", err))
			return
		}
		defer sessionFile.Close()

		metaFile, metaHeader, err := r.FormFile("meta")
		if err != nil {
			httperr.Render(w, r, apperr.Wrap(apperr.ArtifactInvalid, "meta file is required", err))
			return
		}
		defer metaFile.Close()

		account, err := handler.UploadAccount(r.Context(), authCtx.TenantID, name, sessionHeader.Filename, sessionFile, metaHeader.Filename, metaFile)
		if err != nil {
			logger.With(sl.Err(err)).Warn("upload account")
			httperr.Render(w, r, err)
			return
		}
		render.JSON(w, r, response.Ok(account))
	}
}

func Activate(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(sl.Module("http.handlers.accounts"), slog.String("request_id", middleware.GetReqID(r.Context())))
		authCtx, _ := cont.GetAuth(r.Context())
		id := chi.URLParam(r, "id")

		account, err := handler.ActivateAccount(r.Context(), authCtx.TenantID, id)
		if err != nil {
			logger.With(sl.Err(err)).Warn("activate account")
			httperr.Render(w, r, err)
			return
		}
		render.JSON(w, r, response.Ok(account))
	}
}

func Deactivate(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(sl.Module("http.handlers.accounts"), slog.String("request_id", middleware.GetReqID(r.Context())))
		authCtx, _ := cont.GetAuth(r.Context())
		id := chi.URLParam(r, "id")

		account, err := handler.DeactivateAccount(r.Context(), authCtx.TenantID, id)
		if err != nil {
			logger.With(sl.Err(err)).Warn("deactivate account")
			httperr.Render(w, r, err)
			return
		}
		render.JSON(w, r, response.Ok(account))
	}
}

func Delete(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(sl.Module("http.handlers.accounts"), slog.String("request_id", middleware.GetReqID(r.Context())))
		authCtx, _ := cont.GetAuth(r.Context())
		id := chi.URLParam(r, "id")

		if err := handler.DeleteAccount(r.Context(), authCtx.TenantID, id); err != nil {
			logger.With(sl.Err(err)).Warn("delete account")
			httperr.Render(w, r, err)
			return
		}
		render.JSON(w, r, response.Ok(nil))
	}
}
