// Package destinations implements GET/POST /forwarding-destinations,
// GET/PUT/DELETE /forwarding-destinations/{id} and the
// /forwarding-destinations/{id}/test probe.
package destinations

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
	CreateDestination(ctx context.Context, tenantID string, in *entity.DestinationInput) (*entity.Destination, error)
	GetDestination(ctx context.Context, tenantID, id string) (*entity.Destination, error)
	ListDestinations(ctx context.Context, tenantID string, includeInactive bool) ([]*entity.Destination, error)
	UpdateDestination(ctx context.Context, tenantID, id string, in *entity.DestinationInput) error
	DeleteDestination(ctx context.Context, tenantID, id string) error
	TestDestination(ctx context.Context, tenantID, id string) error
}

func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(sl.Module("http.handlers.destinations"), slog.String("request_id", middleware.GetReqID(r.Context())))
		authCtx, _ := cont.GetAuth(r.Context())
		includeInactive, _ := strconv.ParseBool(r.URL.Query().Get("include_inactive"))

		list, err := handler.ListDestinations(r.Context(), authCtx.TenantID, includeInactive)
		if err != nil {
			logger.With(sl.Err(err)).Warn("list destinations")
			httperr.Render(w, r, err)
			return
		}
		render.JSON(w, r, response.Ok(list))
	}
}

func Create(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(sl.Module("http.handlers.destinations"), slog.String("request_id", middleware.GetReqID(r.Context())))
		authCtx, _ := cont.GetAuth(r.Context())

		var in entity.DestinationInput
		if err := render.Bind(r, &in); err != nil {
			logger.With(sl.Err(err)).Warn("bind destination")
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(err.Error()))
			return
		}

		dest, err := handler.CreateDestination(r.Context(), authCtx.TenantID, &in)
		if err != nil {
			logger.With(sl.Err(err)).Warn("create destination")
			httperr.Render(w, r, err)
			return
		}
		render.JSON(w, r, response.Ok(dest))
	}
}

func Get(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(sl.Module("http.handlers.destinations"), slog.String("request_id", middleware.GetReqID(r.Context())))
		authCtx, _ := cont.GetAuth(r.Context())
		id := chi.URLParam(r, "id")

		dest, err := handler.GetDestination(r.Context(), authCtx.TenantID, id)
		if err != nil {
			logger.With(sl.Err(err)).Warn("get destination")
			httperr.Render(w, r, err)
			return
		}
		render.JSON(w, r, response.Ok(dest))
	}
}

func Update(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(sl.Module("http.handlers.destinations"), slog.String("request_id", middleware.GetReqID(r.Context())))
		authCtx, _ := cont.GetAuth(r.Context())
		id := chi.URLParam(r, "id")

		var in entity.DestinationInput
		if err := render.Bind(r, &in); err != nil {
			logger.With(sl.Err(err)).Warn("bind destination")
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(err.Error()))
			return
		}

		if err := handler.UpdateDestination(r.Context(), authCtx.TenantID, id, &in); err != nil {
			logger.With(sl.Err(err)).Warn("update destination")
			httperr.Render(w, r, err)
			return
		}

		dest, err := handler.GetDestination(r.Context(), authCtx.TenantID, id)
		if err != nil {
			httperr.Render(w, r, err)
			return
		}
		render.JSON(w, r, response.Ok(dest))
	}
}

func Delete(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(sl.Module("http.handlers.destinations"), slog.String("request_id", middleware.GetReqID(r.Context())))
		authCtx, _ := cont.GetAuth(r.Context())
		id := chi.URLParam(r, "id")

		if err := handler.DeleteDestination(r.Context(), authCtx.TenantID, id); err != nil {
			logger.With(sl.Err(err)).Warn("delete destination")
			httperr.Render(w, r, err)
			return
		}
		render.JSON(w, r, response.Ok(nil))
	}
}

func Test(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(sl.Module("http.handlers.destinations"), slog.String("request_id", middleware.GetReqID(r.Context())))
		authCtx, _ := cont.GetAuth(r.Context())
		id := chi.URLParam(r, "id")

		if err := handler.TestDestination(r.Context(), authCtx.TenantID, id); err != nil {
			logger.With(sl.Err(err)).Warn("test destination")
			httperr.Render(w, r, err)
			return
		}
		render.JSON(w, r, response.Ok(map[string]string{"status": "probe delivered"}))
	}
}
