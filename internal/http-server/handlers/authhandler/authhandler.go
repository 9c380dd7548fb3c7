// Package authhandler implements POST /auth/register, /auth/telegram,
// GET /auth/me and the deprecated POST /auth/login.
package authhandler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"telewatch/entity"
	"telewatch/impl/auth"
	"telewatch/internal/http-server/handlers/httperr"
	"telewatch/lib/api/cont"
	"telewatch/lib/api/response"
	"telewatch/lib/sl"
	"telewatch/lib/validate"
)

type Core interface {
	Register(ctx context.Context, login auth.TelegramLogin, orgName string) (*entity.User, *entity.Organization, error)
	Login(ctx context.Context, login auth.TelegramLogin) (string, *entity.User, error)
}

// registerRequest is the Telegram-login payload plus the organization
// name, the closed shape POST /auth/register accepts.
type registerRequest struct {
	auth.TelegramLogin
	OrganizationName string `json:"organization_name" validate:"required"`
}

func (r *registerRequest) Bind(_ *http.Request) error {
	return validate.Struct(r)
}

type loginRequest struct {
	auth.TelegramLogin
}

func (r *loginRequest) Bind(_ *http.Request) error {
	return validate.Struct(r)
}

type registerResponse struct {
	Token        string               `json:"token"`
	User         *entity.User         `json:"user"`
	Organization *entity.Organization `json:"organization"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *entity.User `json:"user"`
}

func Register(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(sl.Module("http.handlers.authhandler"), slog.String("request_id", middleware.GetReqID(r.Context())))

		var req registerRequest
		if err := render.Bind(r, &req); err != nil {
			logger.With(sl.Err(err)).Warn("bind register request")
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(err.Error()))
			return
		}

		user, org, err := handler.Register(r.Context(), req.TelegramLogin, req.OrganizationName)
		if err != nil {
			logger.With(sl.Err(err)).Warn("register")
			httperr.Render(w, r, err)
			return
		}

		token, _, err := handler.Login(r.Context(), req.TelegramLogin)
		if err != nil {
			logger.With(sl.Err(err)).Warn("issue token after register")
			httperr.Render(w, r, err)
			return
		}

		render.JSON(w, r, response.Ok(registerResponse{Token: token, User: user, Organization: org}))
	}
}

// Telegram authenticates an existing user by their Telegram-login
// payload and returns a bearer token; distinct from Register, which also
// creates the tenant organization.
func Telegram(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(sl.Module("http.handlers.authhandler"), slog.String("request_id", middleware.GetReqID(r.Context())))

		var req loginRequest
		if err := render.Bind(r, &req); err != nil {
			logger.With(sl.Err(err)).Warn("bind telegram login request")
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(err.Error()))
			return
		}

		token, user, err := handler.Login(r.Context(), req.TelegramLogin)
		if err != nil {
			logger.With(sl.Err(err)).Warn("telegram login")
			httperr.Render(w, r, err)
			return
		}

		render.JSON(w, r, response.Ok(loginResponse{Token: token, User: user}))
	}
}

// Me returns the caller's identity as the authenticate middleware built it
// from the bearer token's claims (user id, tenant id, role); the stored
// user record is not read.
func Me(_ *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authCtx, ok := cont.GetAuth(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("unauthenticated"))
			return
		}
		render.JSON(w, r, response.Ok(authCtx.User))
	}
}

// LoginDeprecated serves the pre-Telegram-widget password login path;
// always 410, kept so old clients get a clear signal instead of a 404.
func LoginDeprecated(_ *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.Status(r, http.StatusGone)
		render.JSON(w, r, response.Error("password login is deprecated; use /auth/telegram"))
	}
}
