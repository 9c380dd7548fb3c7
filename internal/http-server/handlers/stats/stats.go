// Package stats implements GET /stats.
package stats

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"telewatch/impl/analytics"
	"telewatch/internal/http-server/handlers/httperr"
	"telewatch/lib/api/cont"
	"telewatch/lib/api/response"
	"telewatch/lib/sl"
)

type Core interface {
	Stats(ctx context.Context, tenantID string) (*analytics.Stats, error)
}

func Get(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(sl.Module("http.handlers.stats"), slog.String("request_id", middleware.GetReqID(r.Context())))
		authCtx, _ := cont.GetAuth(r.Context())

		s, err := handler.Stats(r.Context(), authCtx.TenantID)
		if err != nil {
			logger.With(sl.Err(err)).Warn("compute stats")
			httperr.Render(w, r, err)
			return
		}
		render.JSON(w, r, response.Ok(s))
	}
}
