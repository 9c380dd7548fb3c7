// Package organizations implements GET/PUT /organizations/current.
package organizations

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"telewatch/entity"
	"telewatch/internal/http-server/handlers/httperr"
	"telewatch/lib/api/cont"
	"telewatch/lib/api/response"
	"telewatch/lib/sl"
)

type Core interface {
	GetOrganization(ctx context.Context, id string) (*entity.Organization, error)
	UpdateOrganization(ctx context.Context, id string, upd *entity.OrganizationUpdate) error
}

func Get(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(sl.Module("http.handlers.organizations"), slog.String("request_id", middleware.GetReqID(r.Context())))
		authCtx, _ := cont.GetAuth(r.Context())

		org, err := handler.GetOrganization(r.Context(), authCtx.TenantID)
		if err != nil {
			logger.With(sl.Err(err)).Warn("get organization")
			httperr.Render(w, r, err)
			return
		}
		render.JSON(w, r, response.Ok(org))
	}
}

func Update(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(sl.Module("http.handlers.organizations"), slog.String("request_id", middleware.GetReqID(r.Context())))
		authCtx, _ := cont.GetAuth(r.Context())

		var upd entity.OrganizationUpdate
		if err := render.Bind(r, &upd); err != nil {
			logger.With(sl.Err(err)).Warn("bind organization update")
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(err.Error()))
			return
		}

		if err := handler.UpdateOrganization(r.Context(), authCtx.TenantID, &upd); err != nil {
			logger.With(sl.Err(err)).Warn("update organization")
			httperr.Render(w, r, err)
			return
		}

		org, err := handler.GetOrganization(r.Context(), authCtx.TenantID)
		if err != nil {
			httperr.Render(w, r, err)
			return
		}
		render.JSON(w, r, response.Ok(org))
	}
}
