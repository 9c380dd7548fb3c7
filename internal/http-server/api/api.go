// Package api assembles the chi router: middleware chain, route groups,
// and role gates, mirroring the teacher's own api.Server but fronting
// the tenant control surface instead of Stripe/wFirma/Opencart.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"telewatch/internal/config"
	"telewatch/internal/http-server/handlers/accounts"
	"telewatch/internal/http-server/handlers/authhandler"
	"telewatch/internal/http-server/handlers/bottest"
	"telewatch/internal/http-server/handlers/destinations"
	"telewatch/internal/http-server/handlers/errors"
	"telewatch/internal/http-server/handlers/forwarded"
	"telewatch/internal/http-server/handlers/groups"
	"telewatch/internal/http-server/handlers/messages"
	"telewatch/internal/http-server/handlers/organizations"
	"telewatch/internal/http-server/handlers/stats"
	"telewatch/internal/http-server/handlers/users"
	"telewatch/internal/http-server/handlers/watchlist"
	"telewatch/internal/http-server/handlers/webhook"
	"telewatch/internal/http-server/middleware/authenticate"
	"telewatch/internal/http-server/middleware/rolegate"
	"telewatch/internal/http-server/middleware/timeout"
	"telewatch/lib/sl"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

// Handler is the full surface every route group depends on; impl/core.Core
// satisfies it.
type Handler interface {
	authenticate.TokenVerifier
	authhandler.Core
	organizations.Core
	users.Core
	users.Inviter
	groups.Core
	watchlist.Core
	destinations.Core
	messages.Core
	accounts.Core
	forwarded.Core
	stats.Core
	bottest.Core
	webhook.Core
}

func New(conf *config.Config, log *slog.Logger, handler Handler) (*Server, error) {
	server := &Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	router := chi.NewRouter()
	router.Use(timeout.Timeout(30 * time.Second))
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(render.SetContentType(render.ContentTypeJSON))

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	router.Route("/api", func(api chi.Router) {
		api.Post("/auth/register", authhandler.Register(log, handler))
		api.Post("/auth/telegram", authhandler.Telegram(log, handler))
		api.Post("/auth/login", authhandler.LoginDeprecated(log))

		api.Group(func(protected chi.Router) {
			protected.Use(authenticate.New(log, handler))

			protected.Get("/auth/me", authhandler.Me(log))

			protected.Get("/organizations/current", organizations.Get(log, handler))
			protected.With(rolegate.RequireMutate).Put("/organizations/current", organizations.Update(log, handler))

			protected.With(rolegate.RequireMutate).Get("/users", users.List(log, handler))
			protected.With(rolegate.RequireMutate).Post("/users/invite", users.Invite(log, handler))
			protected.With(rolegate.RequireOwner).Put("/users/{id}/role", users.UpdateRole(log, handler))
			protected.With(rolegate.RequireMutate).Delete("/users/{id}", users.Deactivate(log, handler))

			protected.Get("/groups", groups.List(log, handler))
			protected.With(rolegate.RequireMutate).Post("/groups", groups.Create(log, handler))
			protected.Get("/groups/{id}", groups.Get(log, handler))
			protected.With(rolegate.RequireMutate).Put("/groups/{id}", groups.Update(log, handler))
			protected.With(rolegate.RequireMutate).Delete("/groups/{id}", groups.Delete(log, handler))

			protected.Get("/watchlist", watchlist.List(log, handler))
			protected.With(rolegate.RequireMutate).Post("/watchlist", watchlist.Create(log, handler))
			protected.Get("/watchlist/{id}", watchlist.Get(log, handler))
			protected.With(rolegate.RequireMutate).Put("/watchlist/{id}", watchlist.Update(log, handler))
			protected.With(rolegate.RequireMutate).Delete("/watchlist/{id}", watchlist.Delete(log, handler))

			protected.Get("/forwarding-destinations", destinations.List(log, handler))
			protected.With(rolegate.RequireMutate).Post("/forwarding-destinations", destinations.Create(log, handler))
			protected.Get("/forwarding-destinations/{id}", destinations.Get(log, handler))
			protected.With(rolegate.RequireMutate).Put("/forwarding-destinations/{id}", destinations.Update(log, handler))
			protected.With(rolegate.RequireMutate).Delete("/forwarding-destinations/{id}", destinations.Delete(log, handler))
			protected.With(rolegate.RequireMutate).Post("/forwarding-destinations/{id}/test", destinations.Test(log, handler))

			protected.Get("/messages", messages.List(log, handler))
			protected.Get("/messages/search", messages.Search(log, handler))

			protected.Get("/accounts", accounts.List(log, handler))
			protected.With(rolegate.RequireMutate).Post("/accounts/upload", accounts.Upload(log, handler))
			protected.With(rolegate.RequireMutate).Post("/accounts/{id}/activate", accounts.Activate(log, handler))
			protected.With(rolegate.RequireMutate).Post("/accounts/{id}/deactivate", accounts.Deactivate(log, handler))
			protected.With(rolegate.RequireMutate).Delete("/accounts/{id}", accounts.Delete(log, handler))

			protected.Get("/forwarded-messages", forwarded.List(log, handler))

			protected.Get("/stats", stats.Get(log, handler))

			protected.Post("/test/bot", bottest.Probe(log, handler))
		})
	})

	router.Post("/telegram/webhook/{secret}", webhook.Handle(log, handler))

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:      router,
		ErrorLog:     httpLog,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	address := fmt.Sprintf("%s:%s", conf.Listen.BindIp, conf.Listen.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}

	server.log.Info("starting api server", slog.String("address", address))

	go func() {
		if err := server.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			server.log.Error("http server error", sl.Err(err))
		}
	}()

	return server, nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down api server")
	return s.httpServer.Shutdown(ctx)
}
