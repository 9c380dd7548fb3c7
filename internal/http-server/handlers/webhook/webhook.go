// Package webhook implements POST /telegram/webhook/{secret}, the bot's
// incoming update path.
package webhook

import (
	"encoding/json"
	"log/slog"
	"net/http"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"telewatch/lib/api/response"
	"telewatch/lib/sl"
)

type Core interface {
	HandleTelegramWebhook(secret string, update *tgbotapi.Update) error
}

func Handle(log *slog.Logger, handler Core) http.HandlerFunc {
	mod := sl.Module("http.handlers.webhook")
	return func(w http.ResponseWriter, r *http.Request) {
		secret := chi.URLParam(r, "secret")

		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			log.With(mod, sl.Err(err)).Warn("decode telegram update")
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid update payload"))
			return
		}

		if err := handler.HandleTelegramWebhook(secret, &update); err != nil {
			log.With(mod, sl.Err(err)).Warn("handle telegram update")
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, response.Error("webhook secret mismatch"))
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}
