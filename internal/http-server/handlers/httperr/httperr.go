// Package httperr renders an error through the apperr taxonomy, the way
// every handler in the teacher package inlines render.Status+render.JSON
// but dispatching on Kind instead of a hardcoded status.
package httperr

import (
	"net/http"

	"github.com/go-chi/render"

	"telewatch/internal/apperr"
	"telewatch/lib/api/response"
)

func Render(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	render.Status(r, kind.HTTPStatus())
	render.JSON(w, r, response.Error(err.Error()))
}
