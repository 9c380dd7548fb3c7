package rolegate

import (
	"net/http"

	"github.com/go-chi/render"

	"telewatch/lib/api/cont"
	"telewatch/lib/api/response"
)

// RequireMutate rejects viewers on endpoints tagged A (admin+owner) in the
// endpoint table.
func RequireMutate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth, ok := cont.GetAuth(r.Context())
		if !ok || !auth.Role.CanMutate() {
			forbidden(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireOwner rejects non-owners on endpoints tagged O (role transitions).
func RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth, ok := cont.GetAuth(r.Context())
		if !ok || !auth.Role.CanManageRoles() {
			forbidden(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func forbidden(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusForbidden)
	render.JSON(w, r, response.Error("forbidden: insufficient role"))
}
