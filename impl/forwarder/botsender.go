package forwarder

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"

	"telewatch/entity"
	"telewatch/impl/pipeline"
	"telewatch/internal/apperr"
)

// BotSender delivers a matched message to a destination chat using the
// same bot token the control-surface bot answers commands with.
// Destination.DestinationID is the Telegram chat id, stored as a string
// because channel/supergroup ids are negative and arrive as such from
// the API.
type BotSender struct {
	api *tgbotapi.Bot
}

func NewBotSender(api *tgbotapi.Bot) *BotSender {
	return &BotSender{api: api}
}

func (s *BotSender) Deliver(_ context.Context, destination *entity.Destination, req pipeline.ForwardRequest) error {
	chatID, err := strconv.ParseInt(destination.DestinationID, 10, 64)
	if err != nil {
		return apperr.New(apperr.UpstreamPermanent, "destination id is not a telegram chat id")
	}

	text := formatDelivery(req)
	_, err = s.api.SendMessage(chatID, text, &tgbotapi.SendMessageOpts{})
	if err != nil {
		return classifyDeliveryError(err)
	}
	return nil
}

// formatDelivery builds the attribution header, the message body (text
// or a reference to the media when there is no text), and the tenant-
// scoped routing-id footer a recipient can quote back to support.
func formatDelivery(req pipeline.ForwardRequest) string {
	header := fmt.Sprintf("@%s in %s at %s", req.Username, req.GroupName, req.Timestamp.UTC().Format(time.RFC3339))
	body := req.MessageText
	if body == "" {
		body = mediaReference(req.MediaInfo)
	}
	footer := fmt.Sprintf("routing id: %s", req.RoutingID)
	return fmt.Sprintf("%s\n\n%s\n\n%s", header, body, footer)
}

// mediaReference summarizes an attachment when there is no text body to
// forward; MediaInfo's shape comes straight from the source event, so
// this degrades gracefully when expected keys are absent.
func mediaReference(mediaInfo map[string]interface{}) string {
	if len(mediaInfo) == 0 {
		return "[no text content]"
	}
	kind, _ := mediaInfo["type"].(string)
	if kind == "" {
		kind = "media"
	}
	if fileID, ok := mediaInfo["file_id"].(string); ok && fileID != "" {
		return fmt.Sprintf("[%s attachment: %s]", kind, fileID)
	}
	return fmt.Sprintf("[%s attachment]", kind)
}

// classifyDeliveryError maps Bot API failures to the permanent/transient
// split the forwarder's retry policy depends on: a destination the bot
// was removed from or blocked by will never succeed on retry, anything
// else (rate limit, network blip) might.
func classifyDeliveryError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "bot was blocked"),
		strings.Contains(msg, "chat not found"),
		strings.Contains(msg, "not enough rights"),
		strings.Contains(msg, "kicked"),
		strings.Contains(msg, "forbidden"):
		return apperr.Wrap(apperr.UpstreamPermanent, "deliver message", err)
	default:
		return apperr.Wrap(apperr.UpstreamTransient, "deliver message", err)
	}
}
