// Package groups implements GET/POST /groups and GET/PUT/DELETE
// /groups/{id}.
package groups

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
	CreateGroup(ctx context.Context, tenantID string, in *entity.GroupInput) (*entity.Group, error)
	GetGroup(ctx context.Context, tenantID, id string) (*entity.Group, error)
	ListGroups(ctx context.Context, tenantID string, includeInactive bool) ([]*entity.Group, error)
	UpdateGroup(ctx context.Context, tenantID, id string, in *entity.GroupInput) error
	DeleteGroup(ctx context.Context, tenantID, id string) error
}

func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(sl.Module("http.handlers.groups"), slog.String("request_id", middleware.GetReqID(r.Context())))
		authCtx, _ := cont.GetAuth(r.Context())
		includeInactive, _ := strconv.ParseBool(r.URL.Query().Get("include_inactive"))

		list, err := handler.ListGroups(r.Context(), authCtx.TenantID, includeInactive)
		if err != nil {
			logger.With(sl.Err(err)).Warn("list groups")
			httperr.Render(w, r, err)
			return
		}
		render.JSON(w, r, response.Ok(list))
	}
}

func Create(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(sl.Module("http.handlers.groups"), slog.String("request_id", middleware.GetReqID(r.Context())))
		authCtx, _ := cont.GetAuth(r.Context())

		var in entity.GroupInput
		if err := render.Bind(r, &in); err != nil {
			logger.With(sl.Err(err)).Warn("bind group")
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(err.Error()))
			return
		}

		group, err := handler.CreateGroup(r.Context(), authCtx.TenantID, &in)
		if err != nil {
			logger.With(sl.Err(err)).Warn("create group")
			httperr.Render(w, r, err)
			return
		}
		render.JSON(w, r, response.Ok(group))
	}
}

func Get(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(sl.Module("http.handlers.groups"), slog.String("request_id", middleware.GetReqID(r.Context())))
		authCtx, _ := cont.GetAuth(r.Context())
		id := chi.URLParam(r, "id")

		group, err := handler.GetGroup(r.Context(), authCtx.TenantID, id)
		if err != nil {
			logger.With(sl.Err(err)).Warn("get group")
			httperr.Render(w, r, err)
			return
		}
		render.JSON(w, r, response.Ok(group))
	}
}

func Update(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(sl.Module("http.handlers.groups"), slog.String("request_id", middleware.GetReqID(r.Context())))
		authCtx, _ := cont.GetAuth(r.Context())
		id := chi.URLParam(r, "id")

		var in entity.GroupInput
		if err := render.Bind(r, &in); err != nil {
			logger.With(sl.Err(err)).Warn("bind group")
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(err.Error()))
			return
		}

		if err := handler.UpdateGroup(r.Context(), authCtx.TenantID, id, &in); err != nil {
			logger.With(sl.Err(err)).Warn("update group")
			httperr.Render(w, r, err)
			return
		}

		group, err := handler.GetGroup(r.Context(), authCtx.TenantID, id)
		if err != nil {
			httperr.Render(w, r, err)
			return
		}
		render.JSON(w, r, response.Ok(group))
	}
}

func Delete(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(sl.Module("http.handlers.groups"), slog.String("request_id", middleware.GetReqID(r.Context())))
		authCtx, _ := cont.GetAuth(r.Context())
		id := chi.URLParam(r, "id")

		if err := handler.DeleteGroup(r.Context(), authCtx.TenantID, id); err != nil {
			logger.With(sl.Err(err)).Warn("delete group")
			httperr.Render(w, r, err)
			return
		}
		render.JSON(w, r, response.Ok(nil))
	}
}
