// Package watchlist implements GET/POST /watchlist and GET/PUT/DELETE
// /watchlist/{id}.
package watchlist

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"telewatch/entity"
	"telewatch/internal/http-server/handlers/httperr"
	"telewatch/lib/api/cont"
	"telewatch/lib/api/response"
	"telewatch/lib/sl"
)

type Core interface {
	CreateWatchUser(ctx context.Context, tenantID string, in *entity.WatchUserInput) (*entity.WatchUser, error)
	GetWatchUser(ctx context.Context, tenantID, id string) (*entity.WatchUser, error)
	ListWatchUsers(ctx context.Context, tenantID string, includeInactive bool) ([]*entity.WatchUser, error)
	UpdateWatchUser(ctx context.Context, tenantID, id string, in *entity.WatchUserInput) error
	DeleteWatchUser(ctx context.Context, tenantID, id string) error
}

func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(sl.Module("http.handlers.watchlist"), slog.String("request_id", middleware.GetReqID(r.Context())))
		authCtx, _ := cont.GetAuth(r.Context())
		includeInactive, _ := strconv.ParseBool(r.URL.Query().Get("include_inactive"))

		list, err := handler.ListWatchUsers(r.Context(), authCtx.TenantID, includeInactive)
		if err != nil {
			logger.With(sl.Err(err)).Warn("list watch users")
			httperr.Render(w, r, err)
			return
		}
		render.JSON(w, r, response.Ok(list))
	}
}

func Create(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(sl.Module("http.handlers.watchlist"), slog.String("request_id", middleware.GetReqID(r.Context())))
		authCtx, _ := cont.GetAuth(r.Context())

		var in entity.WatchUserInput
		if err := render.Bind(r, &in); err != nil {
			logger.With(sl.Err(err)).Warn("bind watch user")
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(err.Error()))
			return
		}

		wu, err := handler.CreateWatchUser(r.Context(), authCtx.TenantID, &in)
		if err != nil {
			logger.With(sl.Err(err)).Warn("create watch user")
			httperr.Render(w, r, err)
			return
		}
		render.JSON(w, r, response.Ok(wu))
	}
}

func Get(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(sl.Module("http.handlers.watchlist"), slog.String("request_id", middleware.GetReqID(r.Context())))
		authCtx, _ := cont.GetAuth(r.Context())
		id := chi.URLParam(r, "id")

		wu, err := handler.GetWatchUser(r.Context(), authCtx.TenantID, id)
		if err != nil {
			logger.With(sl.Err(err)).Warn("get watch user")
			httperr.Render(w, r, err)
			return
		}
		render.JSON(w, r, response.Ok(wu))
	}
}

func Update(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(sl.Module("http.handlers.watchlist"), slog.String("request_id", middleware.GetReqID(r.Context())))
		authCtx, _ := cont.GetAuth(r.Context())
		id := chi.URLParam(r, "id")

		var in entity.WatchUserInput
		if err := render.Bind(r, &in); err != nil {
			logger.With(sl.Err(err)).Warn("bind watch user")
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(err.Error()))
			return
		}

		if err := handler.UpdateWatchUser(r.Context(), authCtx.TenantID, id, &in); err != nil {
			logger.With(sl.Err(err)).Warn("update watch user")
			httperr.Render(w, r, err)
			return
		}

		wu, err := handler.GetWatchUser(r.Context(), authCtx.TenantID, id)
		if err != nil {
			httperr.Render(w, r, err)
			return
		}
		render.JSON(w, r, response.Ok(wu))
	}
}

func Delete(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(sl.Module("http.handlers.watchlist"), slog.String("request_id", middleware.GetReqID(r.Context())))
		authCtx, _ := cont.GetAuth(r.Context())
		id := chi.URLParam(r, "id")

		if err := handler.DeleteWatchUser(r.Context(), authCtx.TenantID, id); err != nil {
			logger.With(sl.Err(err)).Warn("delete watch user")
			httperr.Render(w, r, err)
			return
		}
		render.JSON(w, r, response.Ok(nil))
	}
}
