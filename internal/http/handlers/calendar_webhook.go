package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/wadtech/wad-calendar-service/internal/observability/metrics"
	"github.com/wadtech/wad-calendar-service/pkg/logging"
)

// WebhookProcessor applies a provider notification to the local store.
type WebhookProcessor interface {
	ProcessCalendarNotification(ctx context.Context, eventID, eventStatus string) error
}

// DedupeStore suppresses redelivered notifications. Nil disables dedupe.
type DedupeStore interface {
	FirstDelivery(ctx context.Context, channelID, messageNumber string) bool
}

// CalendarWebhookHandler receives Google Calendar push notifications.
// The provider contract requires a 200 acknowledgment no matter what
// happened internally, otherwise the channel is retried and eventually
// suspended. Every outcome short of a transport failure answers 200.
type CalendarWebhookHandler struct {
	processor WebhookProcessor
	dedupe    DedupeStore
	metrics   *metrics.AppointmentMetrics
	logger    *logging.Logger
}

func NewCalendarWebhookHandler(processor WebhookProcessor, dedupe DedupeStore, m *metrics.AppointmentMetrics, logger *logging.Logger) *CalendarWebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &CalendarWebhookHandler{processor: processor, dedupe: dedupe, metrics: m, logger: logger}
}

type webhookEvent struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type webhookBody struct {
	Event webhookEvent `json:"event"`
}

// Handle processes POST /api/webhooks/google-calendar.
func (h *CalendarWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	defer w.WriteHeader(http.StatusOK)

	state := r.Header.Get("X-Goog-Resource-State")
	switch state {
	case "exists", "update":
	case "sync":
		// Channel handshake, nothing to apply.
		h.logger.Info("webhook channel sync", "channel_id", r.Header.Get("X-Goog-Channel-ID"))
		h.metrics.ObserveWebhook(state, "ignored")
		return
	default:
		h.logger.Info("ignoring webhook resource state", "state", state)
		h.metrics.ObserveWebhook(state, "ignored")
		return
	}

	channelID := r.Header.Get("X-Goog-Channel-ID")
	messageNumber := r.Header.Get("X-Goog-Message-Number")
	if h.dedupe != nil && !h.dedupe.FirstDelivery(r.Context(), channelID, messageNumber) {
		h.logger.Info("duplicate webhook delivery suppressed",
			"channel_id", channelID, "message_number", messageNumber)
		h.metrics.ObserveWebhook(state, "duplicate")
		return
	}

	var body webhookBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Event.ID == "" {
		h.logger.Warn("webhook body unusable", "channel_id", channelID, "error", err)
		h.metrics.ObserveWebhook(state, "invalid")
		return
	}

	if err := h.processor.ProcessCalendarNotification(r.Context(), body.Event.ID, body.Event.Status); err != nil {
		h.logger.Error("webhook processing failed",
			"event_id", body.Event.ID, "status", body.Event.Status, "error", err)
		h.metrics.ObserveWebhook(state, "error")
		return
	}
	h.metrics.ObserveWebhook(state, "ok")
}
