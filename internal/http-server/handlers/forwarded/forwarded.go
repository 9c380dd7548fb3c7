// Package forwarded implements GET /forwarded-messages.
package forwarded

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"telewatch/entity"
	"telewatch/internal/database"
	"telewatch/internal/http-server/handlers/httperr"
	"telewatch/lib/api/cont"
	"telewatch/lib/api/response"
	"telewatch/lib/sl"
)

type Core interface {
	ListForwarded(ctx context.Context, tenantID string, f database.ForwardedFilter) ([]*entity.ForwardedMessage, error)
}

func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(sl.Module("http.handlers.forwarded"), slog.String("request_id", middleware.GetReqID(r.Context())))
		authCtx, _ := cont.GetAuth(r.Context())
		q := r.URL.Query()

		f := database.ForwardedFilter{
			Username:      q.Get("username"),
			DestinationID: q.Get("destination_id"),
			Limit:         parseInt64(q.Get("limit"), 50),
			Skip:          parseInt64(q.Get("skip"), 0),
		}

		list, err := handler.ListForwarded(r.Context(), authCtx.TenantID, f)
		if err != nil {
			logger.With(sl.Err(err)).Warn("list forwarded messages")
			httperr.Render(w, r, err)
			return
		}
		render.JSON(w, r, response.Ok(list))
	}
}

func parseInt64(s string, fallback int64) int64 {
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}
