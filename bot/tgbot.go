// Package bot implements the bot webhook & command surface (component
// I): authenticated webhook intake, a command/callback router, and
// tenant-scoped responses. Tenant association is derived from the
// Telegram user id (lookup of User.telegram_id); unknown senders get
// onboarding instructions and no data.
//
// Architecture overview, mirroring the teacher's split:
//   - tgbot.go     — TgBot struct, dispatcher wiring, webhook intake
//   - commands.go  — /start, /help, /menu, /status, /groups, /watchlist, /messages
//   - callbacks.go — inline keyboard builders and callback query handlers
//   - menus.go     — per-role command menus via BotCommandScope
//   - helpers.go   — Sanitize, resolveUser, reportError
package bot

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers/filters/callbackquery"

	"telewatch/entity"
	"telewatch/impl/analytics"
	"telewatch/internal/database"
	"telewatch/lib/sl"
)

// Database is the subset of the store the bot surface depends on.
type Database interface {
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*entity.User, error)
	ListGroups(ctx context.Context, tenantID string, includeInactive bool) ([]*entity.Group, error)
	ListWatchUsers(ctx context.Context, tenantID string, includeInactive bool) ([]*entity.WatchUser, error)
	ListMessages(ctx context.Context, tenantID string, f database.MessageFilter) ([]*entity.MessageLog, error)
	RecordBotCommand(ctx context.Context, cmd *entity.BotCommand) error
}

type TgBot struct {
	log           *slog.Logger
	api           *tgbotapi.Bot
	db            Database
	analytics     *analytics.Aggregator
	dispatcher    *ext.Dispatcher
	webhookSecret string
	opsAlertChat  int64
	minAlertLevel slog.Level
}

func NewTgBot(botToken string, db Database, analytics *analytics.Aggregator, webhookSecret string, opsAlertChat int64, log *slog.Logger) (*TgBot, error) {
	api, err := tgbotapi.NewBot(botToken, nil)
	if err != nil {
		return nil, fmt.Errorf("creating bot api instance: %w", err)
	}

	t := &TgBot{
		log:           log.With(sl.Module("bot")),
		api:           api,
		db:            db,
		analytics:     analytics,
		webhookSecret: webhookSecret,
		opsAlertChat:  opsAlertChat,
		minAlertLevel: slog.LevelError,
	}

	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		Error: func(b *tgbotapi.Bot, ctx *ext.Context, err error) ext.DispatcherAction {
			t.log.Error("handling update", sl.Err(err))
			return ext.DispatcherActionNoop
		},
		MaxRoutines: ext.DefaultMaxRoutines,
	})

	dispatcher.AddHandler(handlers.NewCommand("start", t.start))
	dispatcher.AddHandler(handlers.NewCommand("help", t.help))
	dispatcher.AddHandler(handlers.NewCommand("menu", t.menu))
	dispatcher.AddHandler(handlers.NewCommand("status", t.status))
	dispatcher.AddHandler(handlers.NewCommand("groups", t.groupsCmd))
	dispatcher.AddHandler(handlers.NewCommand("watchlist", t.watchlistCmd))
	dispatcher.AddHandler(handlers.NewCommand("messages", t.messagesCmd))

	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbStatus), t.onMenuCallback))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbGroups), t.onMenuCallback))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbWatchlist), t.onMenuCallback))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbMessages), t.onMenuCallback))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbSettings), t.onMenuCallback))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbHelp), t.onMenuCallback))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbMainMenu), t.onMenuCallback))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbAdminMenu), t.onMenuCallback))

	t.dispatcher = dispatcher

	if err := t.setDefaultCommands(); err != nil {
		t.log.With(sl.Err(err)).Warn("set default bot commands")
	}
	return t, nil
}

// HandleWebhook verifies the shared secret path segment and dispatches
// the update. Called by the control surface's /telegram/webhook/{secret}
// handler, which has already bound total handler time to a small
// constant.
func (t *TgBot) HandleWebhook(secret string, update *tgbotapi.Update) error {
	if secret != t.webhookSecret {
		return fmt.Errorf("webhook secret mismatch")
	}
	return t.dispatcher.ProcessUpdate(t.api, ext.NewContext(update, nil), nil)
}

// SendOpsAlert implements logger.AlertSender, fanning ERROR+ log records
// out to the operator's Telegram chat.
func (t *TgBot) SendOpsAlert(text string, level slog.Level) {
	if t.opsAlertChat == 0 || level < t.minAlertLevel {
		return
	}
	_, err := t.api.SendMessage(t.opsAlertChat, Sanitize(text), &tgbotapi.SendMessageOpts{ParseMode: "MarkdownV2"})
	if err != nil {
		t.log.With(sl.Err(err)).Warn("sending ops alert")
	}
}

// TestProbe is the Bot API probe behind POST /test/bot: a getMe round
// trip confirming the token is live.
func (t *TgBot) TestProbe(ctx context.Context) (string, error) {
	me, err := t.api.GetMe(nil)
	if err != nil {
		return "", err
	}
	return me.Username, nil
}

// API exposes the underlying Bot API client so other components that
// speak to Telegram directly (the forwarding engine's sender) share the
// same connection instead of opening a second one.
func (t *TgBot) API() *tgbotapi.Bot {
	return t.api
}
