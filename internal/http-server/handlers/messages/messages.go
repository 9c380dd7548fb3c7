// Package messages implements GET /messages and GET /messages/search.
package messages

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
	ListMessages(ctx context.Context, tenantID string, f database.MessageFilter) ([]*entity.MessageLog, error)
	SearchMessages(ctx context.Context, tenantID, q string) ([]*entity.MessageLog, error)
}

func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(sl.Module("http.handlers.messages"), slog.String("request_id", middleware.GetReqID(r.Context())))
		authCtx, _ := cont.GetAuth(r.Context())
		q := r.URL.Query()

		f := database.MessageFilter{
			GroupID:     q.Get("group_id"),
			MessageType: entity.MessageType(q.Get("message_type")),
			Limit:       parseInt64(q.Get("limit"), 50),
			Skip:        parseInt64(q.Get("skip"), 0),
		}

		list, err := handler.ListMessages(r.Context(), authCtx.TenantID, f)
		if err != nil {
			logger.With(sl.Err(err)).Warn("list messages")
			httperr.Render(w, r, err)
			return
		}
		render.JSON(w, r, response.Ok(list))
	}
}

func Search(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(sl.Module("http.handlers.messages"), slog.String("request_id", middleware.GetReqID(r.Context())))
		authCtx, _ := cont.GetAuth(r.Context())
		q := r.URL.Query().Get("q")

		list, err := handler.SearchMessages(r.Context(), authCtx.TenantID, q)
		if err != nil {
			logger.With(sl.Err(err)).Warn("search messages")
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
