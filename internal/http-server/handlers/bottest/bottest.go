// Package bottest implements POST /test/bot, a liveness probe against
// the configured bot token.
package bottest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"telewatch/internal/http-server/handlers/httperr"
	"telewatch/lib/api/response"
	"telewatch/lib/sl"
)

type Core interface {
	TestBot(ctx context.Context) (string, error)
}

func Probe(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(sl.Module("http.handlers.bottest"), slog.String("request_id", middleware.GetReqID(r.Context())))

		botUsername, err := handler.TestBot(r.Context())
		if err != nil {
			logger.With(sl.Err(err)).Warn("bot probe")
			httperr.Render(w, r, err)
			return
		}
		render.JSON(w, r, response.Ok(map[string]string{"bot_username": botUsername}))
	}
}
