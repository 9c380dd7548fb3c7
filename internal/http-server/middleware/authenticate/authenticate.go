package authenticate

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"telewatch/entity"
	"telewatch/impl/auth"
	"telewatch/lib/api/cont"
	"telewatch/lib/api/response"
	"telewatch/lib/sl"
)

// TokenVerifier is the subset of impl/auth.Auth the middleware depends on.
type TokenVerifier interface {
	VerifyToken(token string) (*auth.Claims, error)
}

func New(log *slog.Logger, verifier TokenVerifier) func(next http.Handler) http.Handler {
	mod := sl.Module("middleware.authenticate")
	log.With(mod).Info("authenticate middleware initialized")

	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			id := middleware.GetReqID(r.Context())
			remote := r.RemoteAddr
			if xRemote := r.Header.Get("X-Forwarded-For"); xRemote != "" {
				remote = xRemote
			}
			logger := log.With(
				mod,
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", remote),
				slog.String("request_id", id),
			)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			t1 := time.Now()
			defer func() {
				logger.With(
					slog.Int("status", ww.Status()),
					slog.Int("size", ww.BytesWritten()),
					slog.Float64("duration", time.Since(t1).Seconds()),
				).Info("incoming request")
			}()

			header := r.Header.Get("Authorization")
			if header == "" {
				authFailed(ww, r, "Authorization header not found")
				return
			}
			var token string
			if strings.HasPrefix(header, "Bearer ") {
				token = strings.TrimPrefix(header, "Bearer ")
			}
			if token == "" {
				authFailed(ww, r, "token not found")
				return
			}
			logger = logger.With(sl.Secret("token", token))

			if verifier == nil {
				authFailed(ww, r, "authentication not enabled")
				return
			}

			claims, err := verifier.VerifyToken(token)
			if err != nil {
				logger.With(sl.Err(err)).Warn("token verification failed")
				authFailed(ww, r, "invalid or expired token")
				return
			}

			authCtx := cont.AuthContext{
				User:     entity.User{ID: claims.UserID, TenantID: claims.TenantID, Role: claims.Role},
				TenantID: claims.TenantID,
				Role:     claims.Role,
			}
			logger = logger.With(sl.Tenant(claims.TenantID), slog.String("role", string(claims.Role)))

			ctx := cont.PutAuth(r.Context(), authCtx)
			ww.Header().Set("X-Request-ID", id)
			ww.Header().Set("X-Tenant-ID", claims.TenantID)
			next.ServeHTTP(ww, r.WithContext(ctx))
		}
		return http.HandlerFunc(fn)
	}
}

func authFailed(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, response.Error(fmt.Sprintf("unauthorized: %s", message)))
}
