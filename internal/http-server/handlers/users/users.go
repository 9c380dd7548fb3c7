// Package users implements GET /users, POST /users/invite,
// PUT /users/{id}/role and DELETE /users/{id}.
package users

import (
	"context"
	"log/slog"
	"net/http"
	"time"

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

type Core interface {
	ListUsers(ctx context.Context, tenantID string) ([]*entity.User, error)
	GetUser(ctx context.Context, tenantID, id string) (*entity.User, error)
	UpdateUserRole(ctx context.Context, tenantID, id string, role entity.Role) error
	DeactivateUser(ctx context.Context, tenantID, id string) error
}

// Inviter is implemented by impl/core.Core; invite never goes through the
// Telegram-login flow (the invite already carries the telegram_id that the
// invited user's first /auth/telegram call resolves against), so it's a
// direct store write rather than auth.Register.
type Inviter interface {
	CreateInvitedUser(ctx context.Context, tenantID string, in *entity.InviteInput) (*entity.User, error)
}

func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(sl.Module("http.handlers.users"), slog.String("request_id", middleware.GetReqID(r.Context())))
		authCtx, _ := cont.GetAuth(r.Context())

		list, err := handler.ListUsers(r.Context(), authCtx.TenantID)
		if err != nil {
			logger.With(sl.Err(err)).Warn("list users")
			httperr.Render(w, r, err)
			return
		}
		render.JSON(w, r, response.Ok(list))
	}
}

func Invite(log *slog.Logger, handler Inviter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(sl.Module("http.handlers.users"), slog.String("request_id", middleware.GetReqID(r.Context())))
		authCtx, _ := cont.GetAuth(r.Context())

		var in entity.InviteInput
		if err := render.Bind(r, &in); err != nil {
			logger.With(sl.Err(err)).Warn("bind invite")
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(err.Error()))
			return
		}

		user, err := handler.CreateInvitedUser(r.Context(), authCtx.TenantID, &in)
		if err != nil {
			logger.With(sl.Err(err)).Warn("invite user")
			httperr.Render(w, r, err)
			return
		}
		render.JSON(w, r, response.Ok(user))
	}
}

func UpdateRole(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(sl.Module("http.handlers.users"), slog.String("request_id", middleware.GetReqID(r.Context())))
		authCtx, _ := cont.GetAuth(r.Context())
		id := chi.URLParam(r, "id")

		var upd entity.RoleUpdate
		if err := render.Bind(r, &upd); err != nil {
			logger.With(sl.Err(err)).Warn("bind role update")
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(err.Error()))
			return
		}
		if !upd.Role.Valid() {
			httperr.Render(w, r, apperr.New(apperr.Validation, "invalid role"))
			return
		}

		if err := handler.UpdateUserRole(r.Context(), authCtx.TenantID, id, upd.Role); err != nil {
			logger.With(sl.Err(err)).Warn("update user role")
			httperr.Render(w, r, err)
			return
		}

		user, err := handler.GetUser(r.Context(), authCtx.TenantID, id)
		if err != nil {
			httperr.Render(w, r, err)
			return
		}
		render.JSON(w, r, response.Ok(user))
	}
}

func Deactivate(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(sl.Module("http.handlers.users"), slog.String("request_id", middleware.GetReqID(r.Context())))
		authCtx, _ := cont.GetAuth(r.Context())
		id := chi.URLParam(r, "id")

		if err := handler.DeactivateUser(r.Context(), authCtx.TenantID, id); err != nil {
			logger.With(sl.Err(err)).Warn("deactivate user")
			httperr.Render(w, r, err)
			return
		}
		render.JSON(w, r, response.Ok(map[string]string{"deactivated_at": time.Now().UTC().Format(time.RFC3339)}))
	}
}
