package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"telewatch/bot"
	"telewatch/impl/accounts"
	"telewatch/impl/analytics"
	"telewatch/impl/auth"
	"telewatch/impl/balancer"
	"telewatch/impl/core"
	"telewatch/impl/forwarder"
	"telewatch/impl/health"
	"telewatch/impl/pipeline"
	"telewatch/impl/supervisor"
	"telewatch/internal/config"
	"telewatch/internal/database"
	httpapi "telewatch/internal/http-server/api"
	"telewatch/internal/lock"
	"telewatch/lib/logger"
	"telewatch/lib/sl"
)

const shutdownGrace = 15 * time.Second

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	baseLogger := logger.SetupLogger(conf.Env, *logPath)
	baseLogger.Info("starting telewatch", slog.String("config", *configPath), slog.String("env", conf.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewMongoClient(ctx, conf)
	if err != nil {
		baseLogger.With(sl.Err(err)).Error("connect mongodb")
		return
	}
	if err := db.EnsureIndexes(ctx); err != nil {
		baseLogger.With(sl.Err(err)).Error("ensure mongodb indexes")
		return
	}

	analyticsAgg := analytics.New(db)

	tgBot, err := bot.NewTgBot(conf.Telegram.BotToken, db, analyticsAgg, conf.Telegram.WebhookSecret, conf.Telegram.OpsAlertChatID, baseLogger)
	if err != nil {
		baseLogger.With(sl.Err(err)).Error("create telegram bot")
		return
	}

	// Fan ERROR+ log records to the operator's chat once the bot that
	// sends them exists; every component created below logs through log,
	// not baseLogger, so they all get the alert path.
	log := slog.New(logger.NewTelegramHandler(baseLogger.Handler(), tgBot, slog.LevelError))

	var locker lock.TenantLocker
	if conf.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     conf.Redis.Addr,
			Password: conf.Redis.Password,
			DB:       conf.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.With(sl.Err(err)).Warn("redis unreachable, falling back to in-process tenant lock")
			locker = lock.NewMutexLocker()
		} else {
			locker = lock.NewRedisLocker(rdb)
		}
	} else {
		locker = lock.NewMutexLocker()
	}

	authSvc := auth.New(db, conf.Telegram.BotToken, conf.Auth.SigningKey, conf.Auth.TokenLifetime, log)
	accountRegistry := accounts.New(db, conf.Storage.Root, log)

	botSender := forwarder.NewBotSender(tgBot.API())
	fwd := forwarder.New(db, botSender, conf.RateLimit.DestinationPerMinute, log)
	pipe := pipeline.New(db, fwd, log)

	sup := supervisor.New(newSessionClient, pipe, accountRegistry, log)
	accountRegistry.SetStarter(sup)

	bal := balancer.New(db, sup, log)

	healthMon, err := health.New(db, sup, sup, conf.Health.ProbeSchedule, log)
	if err != nil {
		log.With(sl.Err(err)).Error("create health monitor")
		return
	}
	healthMon.Start()
	defer healthMon.Stop()
	bal.SetHealthFilter(healthMon)

	c := core.New(db, log)
	c.SetAuth(authSvc)
	c.SetAccounts(accountRegistry)
	c.SetBalancer(bal)
	c.SetHealth(healthMon)
	c.SetAnalytics(analyticsAgg)
	c.SetBot(tgBot)
	c.SetSender(botSender)
	c.SetLocker(locker)

	reconnectActiveAccounts(ctx, db, sup, bal, healthMon, log)

	server, err := httpapi.New(conf, log, c)
	if err != nil {
		log.With(sl.Err(err)).Error("start http server")
		return
	}

	<-ctx.Done()
	log.Info("shutdown signal received, draining")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.With(sl.Err(err)).Warn("http server shutdown")
	}
	fwd.Shutdown(shutdownGrace)
	if err := db.Close(shutdownCtx); err != nil {
		log.With(sl.Err(err)).Warn("close mongodb client")
	}
	log.Info("telewatch stopped")
}

// reconnectActiveAccounts restarts a receiver for every account that was
// active when the previous process stopped; a receiver's connection
// never survives a restart on its own. Each affected tenant is then
// rebalanced so the stored AssignedGroupIDs cache is recomputed.
func reconnectActiveAccounts(ctx context.Context, db *database.MongoDB, sup *supervisor.Supervisor, bal *balancer.Balancer, healthMon *health.Monitor, log *slog.Logger) {
	active, err := db.ListAllActiveAccounts(ctx)
	if err != nil {
		log.With(sl.Err(err)).Error("list active accounts for reconnect")
		return
	}
	tenants := make(map[string]bool)
	defer func() {
		for tenantID := range tenants {
			if _, err := bal.Rebalance(ctx, tenantID); err != nil {
				log.With(sl.Err(err), sl.Tenant(tenantID)).Error("rebalance on boot")
			}
		}
	}()
	for _, a := range active {
		tenants[a.TenantID] = true
		healthMon.TrackTenant(a.TenantID)
		if err := sup.Start(ctx, a); err != nil {
			log.With(sl.Err(err), sl.Tenant(a.TenantID), slog.String("account_id", a.ID)).Warn("reconnect account on boot")
			_ = db.SetAccountStatus(ctx, a.TenantID, a.ID, a.Status, "reconnect failed on boot: "+err.Error())
		}
	}
}
