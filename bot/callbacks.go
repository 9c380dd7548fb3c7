package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"

	"telewatch/entity"
)

// Callback data values for the main and admin inline menus. Kept short:
// Telegram caps callback data at 64 bytes.
const (
	cbStatus    = "status"
	cbGroups    = "groups"
	cbWatchlist = "watchlist"
	cbMessages  = "messages"
	cbSettings  = "settings"
	cbHelp      = "help"
	cbMainMenu  = "main_menu"
	cbAdminMenu = "admin_menu"
)

func buildMainMenuKeyboard(role entity.Role) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		{
			{Text: "Status", CallbackData: cbStatus},
			{Text: "Groups", CallbackData: cbGroups},
		},
		{
			{Text: "Watchlist", CallbackData: cbWatchlist},
			{Text: "Messages", CallbackData: cbMessages},
		},
		{
			{Text: "Help", CallbackData: cbHelp},
		},
	}
	if role == entity.RoleAdmin || role == entity.RoleOwner {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			{Text: "Admin", CallbackData: cbAdminMenu},
		})
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func buildAdminMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{
			{
				{Text: "Settings", CallbackData: cbSettings},
			},
			{
				{Text: "Back", CallbackData: cbMainMenu},
			},
		},
	}
}

// onMenuCallback routes every inline button press registered against the
// menu callback prefixes. All routed callbacks share one handler since
// each button maps to work the slash commands already perform.
func (t *TgBot) onMenuCallback(b *tgbotapi.Bot, eCtx *ext.Context) error {
	ctx := context.Background()
	cq := eCtx.CallbackQuery
	chatID := cq.From.Id

	user, _ := t.resolveUser(ctx, chatID)
	t.recordCommand(ctx, tenantOf(user), chatID, "callback:"+cq.Data, "")

	if user == nil {
		_, _ = cq.Answer(b, &tgbotapi.AnswerCallbackQueryOpts{Text: "Link your account with /start first", ShowAlert: true})
		return nil
	}

	switch strings.TrimSpace(cq.Data) {
	case cbStatus:
		return t.status(b, eCtx)
	case cbGroups:
		return t.groupsCmd(b, eCtx)
	case cbWatchlist:
		return t.watchlistCmd(b, eCtx)
	case cbMessages:
		return t.messagesCmd(b, eCtx)
	case cbHelp:
		return t.help(b, eCtx)
	case cbMainMenu:
		t.sendWithKeyboard(chatID, "*Main menu*", buildMainMenuKeyboard(user.Role))
	case cbAdminMenu:
		if user.Role != entity.RoleAdmin && user.Role != entity.RoleOwner {
			_, _ = cq.Answer(b, &tgbotapi.AnswerCallbackQueryOpts{Text: "Admins only", ShowAlert: true})
			return nil
		}
		t.sendWithKeyboard(chatID, "*Admin menu*", buildAdminMenuKeyboard())
	case cbSettings:
		t.plainResponse(chatID, "Manage organization settings from the dashboard\\.")
	}

	_, err := cq.Answer(b, nil)
	return err
}
