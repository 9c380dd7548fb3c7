package bot

import (
	"log/slog"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"

	"telewatch/entity"
)

// Per-role command lists pushed to Telegram's menu button via
// SetMyCommands with BotCommandScopeChat, so each signed-in user gets a
// role-appropriate "/" menu.

var commandsAnonymous = []tgbotapi.BotCommand{
	{Command: "start", Description: "Link this chat to your telewatch account"},
	{Command: "help", Description: "Show available commands"},
}

var commandsViewer = []tgbotapi.BotCommand{
	{Command: "menu", Description: "Open the main menu"},
	{Command: "status", Description: "Account and forwarding health"},
	{Command: "groups", Description: "List watched groups"},
	{Command: "watchlist", Description: "List watched users"},
	{Command: "messages", Description: "Recent archived messages"},
	{Command: "help", Description: "Show available commands"},
}

var commandsAdmin = commandsViewer

// setDefaultCommands sets the menu shown to chats that have not linked a
// telewatch account yet.
func (t *TgBot) setDefaultCommands() error {
	_, err := t.api.SetMyCommands(commandsAnonymous, &tgbotapi.SetMyCommandsOpts{
		Scope: tgbotapi.BotCommandScopeDefault{},
	})
	return err
}

// setUserCommands sets the per-chat menu once a sender resolves to a
// known user.
func (t *TgBot) setUserCommands(chatID int64, role entity.Role) {
	commands := commandsViewer
	if role == entity.RoleAdmin || role == entity.RoleOwner {
		commands = commandsAdmin
	}
	_, err := t.api.SetMyCommands(commands, &tgbotapi.SetMyCommandsOpts{
		Scope: tgbotapi.BotCommandScopeChat{ChatId: chatID},
	})
	if err != nil {
		t.log.With(slog.Int64("chat_id", chatID)).Warn("setting user commands")
	}
}
