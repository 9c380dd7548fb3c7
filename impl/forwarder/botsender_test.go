package forwarder

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"telewatch/impl/pipeline"
	"telewatch/internal/apperr"
)

func TestClassifyDeliveryErrorPermanentCases(t *testing.T) {
	cases := []string{
		"Forbidden: bot was blocked by the user",
		"Bad Request: chat not found",
		"Forbidden: bot was kicked from the group chat",
		"Bad Request: not enough rights to send text messages",
		"Forbidden: bot is not a member of the channel chat",
	}
	for _, msg := range cases {
		err := classifyDeliveryError(errors.New(msg))
		assert.Equal(t, apperr.UpstreamPermanent, apperr.KindOf(err), "message: %s", msg)
	}
}

func TestClassifyDeliveryErrorTransientCases(t *testing.T) {
	cases := []string{
		"Too Many Requests: retry after 30",
		"connection reset by peer",
		"context deadline exceeded",
	}
	for _, msg := range cases {
		err := classifyDeliveryError(errors.New(msg))
		assert.Equal(t, apperr.UpstreamTransient, apperr.KindOf(err), "message: %s", msg)
	}
}

func TestClassifyDeliveryErrorWrapsOriginalCause(t *testing.T) {
	cause := errors.New("chat not found")
	err := classifyDeliveryError(cause)
	assert.True(t, errors.Is(err, cause))
}

func TestFormatDeliveryIncludesHeaderBodyAndRoutingFooter(t *testing.T) {
	ts := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	req := pipeline.ForwardRequest{
		Username:    "ada",
		GroupName:   "Traders",
		Timestamp:   ts,
		MessageText: "price targets incoming",
		RoutingID:   "route-123",
	}

	text := formatDelivery(req)
	assert.Contains(t, text, "@ada in Traders at 2026-07-30T12:00:00Z")
	assert.Contains(t, text, "price targets incoming")
	assert.Contains(t, text, "routing id: route-123")
}

func TestFormatDeliveryFallsBackToMediaReferenceWhenTextEmpty(t *testing.T) {
	req := pipeline.ForwardRequest{
		Username:  "ada",
		GroupName: "Traders",
		Timestamp: time.Now(),
		MediaInfo: map[string]interface{}{"type": "photo", "file_id": "AgAC123"},
		RoutingID: "route-456",
	}

	text := formatDelivery(req)
	assert.Contains(t, text, "[photo attachment: AgAC123]")
	assert.Contains(t, text, "routing id: route-456")
}

func TestMediaReferenceDegradesGracefullyWithoutKnownKeys(t *testing.T) {
	assert.Equal(t, "[no text content]", mediaReference(nil))
	assert.Equal(t, "[media attachment]", mediaReference(map[string]interface{}{"unrelated": true}))
	assert.Equal(t, "[sticker attachment]", mediaReference(map[string]interface{}{"type": "sticker"}))
}
