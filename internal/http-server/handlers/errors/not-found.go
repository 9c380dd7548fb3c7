package errors

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"telewatch/lib/api/response"
)

func NotFound(_ *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("requested resource not found"))
	}
}
