package bot

import (
	"context"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"

	"telewatch/entity"
	"telewatch/lib/sl"
)

const maxTelegramMessage = 4096

// plainResponse sends a MarkdownV2 message, falling back to an
// unformatted send if the text fails to parse (an unescaped reserved
// character slipping through Sanitize, most often).
func (t *TgBot) plainResponse(chatID int64, text string) {
	if text == "" {
		return
	}
	for _, part := range splitMessage(text, maxTelegramMessage) {
		_, err := t.api.SendMessage(chatID, part, &tgbotapi.SendMessageOpts{ParseMode: "MarkdownV2"})
		if err != nil {
			t.log.With(slog.Int64("chat_id", chatID), sl.Err(err)).Warn("sending markdown message")
			if _, err := t.api.SendMessage(chatID, part, &tgbotapi.SendMessageOpts{}); err != nil {
				t.log.With(slog.Int64("chat_id", chatID), sl.Err(err)).Error("sending plain message")
			}
		}
	}
}

func (t *TgBot) sendWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	_, err := t.api.SendMessage(chatID, text, &tgbotapi.SendMessageOpts{
		ParseMode:   "MarkdownV2",
		ReplyMarkup: keyboard,
	})
	if err != nil {
		t.log.With(slog.Int64("chat_id", chatID), sl.Err(err)).Warn("sending message with keyboard")
	}
}

// Sanitize escapes Telegram MarkdownV2's reserved characters.
func Sanitize(input string) string {
	const reserved = "\\_{}#+-.!|()[]=*>~`"
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if strings.ContainsRune(reserved, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// splitMessage breaks text into chunks no larger than maxLen, preferring
// to cut at a newline so Telegram's 4096-character limit never truncates
// mid-line.
func splitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			parts = append(parts, text)
			break
		}
		cutAt := maxLen
		if nl := strings.LastIndex(text[:maxLen], "\n"); nl > 0 {
			cutAt = nl + 1
		}
		parts = append(parts, text[:cutAt])
		text = text[cutAt:]
	}
	return parts
}

// resolveUser looks the sender up by Telegram id. Unknown senders return
// (nil, nil): the caller sends onboarding instructions rather than an
// error.
func (t *TgBot) resolveUser(ctx context.Context, telegramID int64) (*entity.User, error) {
	user, err := t.db.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, nil
	}
	return user, nil
}

// recordCommand writes the audit row; failures are logged, never
// surfaced to the sender.
func (t *TgBot) recordCommand(ctx context.Context, tenantID string, telegramID int64, command, args string) {
	cmd := &entity.BotCommand{
		TenantID:       tenantID,
		TelegramUserID: telegramID,
		Command:        command,
		Args:           args,
		Timestamp:      time.Now().UTC(),
	}
	if err := t.db.RecordBotCommand(ctx, cmd); err != nil {
		t.log.With(sl.Err(err)).Warn("recording bot command")
	}
}

func (t *TgBot) reportError(chatID int64, where string, err error) {
	t.log.With(slog.Int64("chat_id", chatID), slog.String("where", where), sl.Err(err)).Error("bot handler error")
	t.plainResponse(chatID, "Something went wrong handling that\\. Please try again\\.")
}

const onboardingMessage = "You're not linked to a telewatch account yet\\. Log in at your organization's dashboard with this Telegram account first, then come back and try again\\."
