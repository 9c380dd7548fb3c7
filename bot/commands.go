package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"

	"telewatch/entity"
	"telewatch/internal/database"
)

// tenantOf returns the empty string for an unresolved sender, so audit
// rows for unknown chats still record the attempt without a tenant.
func tenantOf(user *entity.User) string {
	if user == nil {
		return ""
	}
	return user.TenantID
}

// start handles /start. An unresolved sender gets onboarding
// instructions; a known one gets the main menu.
func (t *TgBot) start(b *tgbotapi.Bot, eCtx *ext.Context) error {
	ctx := context.Background()
	chatID := eCtx.EffectiveUser.Id
	user, _ := t.resolveUser(ctx, chatID)
	t.recordCommand(ctx, tenantOf(user), chatID, "start", "")

	if user == nil {
		t.plainResponse(chatID, onboardingMessage)
		return nil
	}
	t.setUserCommands(chatID, user.Role)
	t.plainResponse(chatID, fmt.Sprintf("Welcome back, %s\\.", Sanitize(user.FirstName)))
	t.sendWithKeyboard(chatID, "*Main menu*", buildMainMenuKeyboard(user.Role))
	return nil
}

// help lists the available commands.
func (t *TgBot) help(b *tgbotapi.Bot, eCtx *ext.Context) error {
	ctx := context.Background()
	chatID := eCtx.EffectiveUser.Id
	user, _ := t.resolveUser(ctx, chatID)
	t.recordCommand(ctx, tenantOf(user), chatID, "help", "")

	if user == nil {
		t.plainResponse(chatID, onboardingMessage)
		return nil
	}
	text := "*Commands*\n" +
		"/menu \\- open the main menu\n" +
		"/status \\- account and forwarding health\n" +
		"/groups \\- list watched groups\n" +
		"/watchlist \\- list watched users\n" +
		"/messages \\- recent archived messages"
	t.plainResponse(chatID, text)
	return nil
}

// menu re-sends the main inline keyboard.
func (t *TgBot) menu(b *tgbotapi.Bot, eCtx *ext.Context) error {
	ctx := context.Background()
	chatID := eCtx.EffectiveUser.Id
	user, _ := t.resolveUser(ctx, chatID)
	t.recordCommand(ctx, tenantOf(user), chatID, "menu", "")

	if user == nil {
		t.plainResponse(chatID, onboardingMessage)
		return nil
	}
	t.sendWithKeyboard(chatID, "*Main menu*", buildMainMenuKeyboard(user.Role))
	return nil
}

// status reports the analytics rollup for the sender's tenant.
func (t *TgBot) status(b *tgbotapi.Bot, eCtx *ext.Context) error {
	ctx := context.Background()
	chatID := eCtx.EffectiveUser.Id
	user, _ := t.resolveUser(ctx, chatID)
	t.recordCommand(ctx, tenantOf(user), chatID, "status", "")

	if user == nil {
		t.plainResponse(chatID, onboardingMessage)
		return nil
	}
	stats, err := t.analytics.Compute(ctx, user.TenantID)
	if err != nil {
		t.reportError(chatID, "/status", err)
		return nil
	}
	text := fmt.Sprintf(
		"*Status*\nGroups: %d\nWatchlist: %d\nDestinations: %d\nMessages archived: %d \\(%d today\\)\nForwarded: %d \\(%d today\\)\nDelivery success rate: %.0f%%",
		stats.TotalGroups, stats.TotalWatchlistUsers, stats.TotalDestinations,
		stats.TotalMessages, stats.MessagesToday,
		stats.TotalForwarded, stats.ForwardedToday, stats.ForwardingSuccessRate*100,
	)
	t.plainResponse(chatID, text)
	return nil
}

// groupsCmd lists active watched groups.
func (t *TgBot) groupsCmd(b *tgbotapi.Bot, eCtx *ext.Context) error {
	ctx := context.Background()
	chatID := eCtx.EffectiveUser.Id
	user, _ := t.resolveUser(ctx, chatID)
	t.recordCommand(ctx, tenantOf(user), chatID, "groups", "")

	if user == nil {
		t.plainResponse(chatID, onboardingMessage)
		return nil
	}
	groups, err := t.db.ListGroups(ctx, user.TenantID, false)
	if err != nil {
		t.reportError(chatID, "/groups", err)
		return nil
	}
	if len(groups) == 0 {
		t.plainResponse(chatID, "No groups are being watched yet\\.")
		return nil
	}
	var sb strings.Builder
	sb.WriteString("*Watched groups*\n")
	for _, g := range groups {
		fmt.Fprintf(&sb, "\\- %s \\(`%s`\\)\n", Sanitize(g.GroupName), Sanitize(g.GroupID))
	}
	t.plainResponse(chatID, sb.String())
	return nil
}

// watchlistCmd lists active watch users.
func (t *TgBot) watchlistCmd(b *tgbotapi.Bot, eCtx *ext.Context) error {
	ctx := context.Background()
	chatID := eCtx.EffectiveUser.Id
	user, _ := t.resolveUser(ctx, chatID)
	t.recordCommand(ctx, tenantOf(user), chatID, "watchlist", "")

	if user == nil {
		t.plainResponse(chatID, onboardingMessage)
		return nil
	}
	watched, err := t.db.ListWatchUsers(ctx, user.TenantID, false)
	if err != nil {
		t.reportError(chatID, "/watchlist", err)
		return nil
	}
	if len(watched) == 0 {
		t.plainResponse(chatID, "The watchlist is empty\\.")
		return nil
	}
	var sb strings.Builder
	sb.WriteString("*Watchlist*\n")
	for _, w := range watched {
		fmt.Fprintf(&sb, "\\- @%s\n", Sanitize(w.Username))
	}
	t.plainResponse(chatID, sb.String())
	return nil
}

// messagesCmd shows the 10 most recent archived messages.
func (t *TgBot) messagesCmd(b *tgbotapi.Bot, eCtx *ext.Context) error {
	ctx := context.Background()
	chatID := eCtx.EffectiveUser.Id
	user, _ := t.resolveUser(ctx, chatID)
	t.recordCommand(ctx, tenantOf(user), chatID, "messages", "")

	if user == nil {
		t.plainResponse(chatID, onboardingMessage)
		return nil
	}
	rows, err := t.db.ListMessages(ctx, user.TenantID, database.MessageFilter{Limit: 10})
	if err != nil {
		t.reportError(chatID, "/messages", err)
		return nil
	}
	if len(rows) == 0 {
		t.plainResponse(chatID, "No archived messages yet\\.")
		return nil
	}
	var sb strings.Builder
	sb.WriteString("*Recent messages*\n")
	for _, m := range rows {
		preview := m.MessageText
		if len(preview) > 80 {
			preview = preview[:80] + "…"
		}
		fmt.Fprintf(&sb, "\\- @%s in %s: %s\n", Sanitize(m.Username), Sanitize(m.GroupName), Sanitize(preview))
	}
	t.plainResponse(chatID, sb.String())
	return nil
}
