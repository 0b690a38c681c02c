package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wadtech/wad-calendar-service/internal/appointments"
	"github.com/wadtech/wad-calendar-service/pkg/logging"
)

const (
	defaultTimeout = 10 * time.Second
	dateLayout     = "02/01/2006"
)

var notifyTracer = otel.Tracer("wadcal.internal.notify")

// Service delivers SMS-style messages through an external messaging
// endpoint. With no endpoint configured it runs in simulation mode and
// only logs. Delivery is best-effort: failures are logged, never
// returned, so a lost message cannot fail the owning operation.
type Service struct {
	endpoint   string
	httpClient *http.Client
	logger     *logging.Logger
}

// New creates the notifier. An empty endpoint enables simulation mode.
func New(endpoint string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
	}
}

type messageRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Message     string `json:"message"`
}

// SendConfirmationRequest asks the patient to confirm tomorrow's appointment.
func (s *Service) SendConfirmationRequest(ctx context.Context, phone string, date time.Time, tod appointments.TimeOfDay) error {
	msg := fmt.Sprintf(
		"Confirmação de agendamento para amanhã (%s) às %s. Responda SIM para confirmar ou NÃO para cancelar.",
		date.Format(dateLayout), tod.String(),
	)
	s.send(ctx, "confirmation_request", phone, msg)
	return nil
}

// SendConfirmation tells the patient the appointment is confirmed.
func (s *Service) SendConfirmation(ctx context.Context, phone string, date time.Time, tod appointments.TimeOfDay) error {
	msg := fmt.Sprintf(
		"Seu agendamento para %s às %s foi confirmado. Agradecemos a preferência!",
		date.Format(dateLayout), tod.String(),
	)
	s.send(ctx, "confirmation", phone, msg)
	return nil
}

// SendCancellation tells the patient the appointment was canceled.
func (s *Service) SendCancellation(ctx context.Context, phone string, date time.Time, tod appointments.TimeOfDay) error {
	msg := fmt.Sprintf(
		"Seu agendamento para %s às %s foi cancelado. Entre em contato caso deseje reagendar.",
		date.Format(dateLayout), tod.String(),
	)
	s.send(ctx, "cancellation", phone, msg)
	return nil
}

func (s *Service) send(ctx context.Context, kind, phone, message string) {
	ctx, span := notifyTracer.Start(ctx, "notify.send")
	defer span.End()
	span.SetAttributes(
		attribute.String("wadcal.kind", kind),
		attribute.String("wadcal.phone", phone),
	)

	if s.endpoint == "" {
		s.logger.Info("notificação simulada", "kind", kind, "phone", phone, "message", message)
		return
	}

	body, err := json.Marshal(messageRequest{PhoneNumber: phone, Message: message})
	if err != nil {
		s.logger.Error("notify: marshal request failed", "kind", kind, "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/send", bytes.NewReader(body))
	if err != nil {
		s.logger.Error("notify: build request failed", "kind", kind, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Idempotency-Key", uuid.NewString())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		s.logger.Error("notify: send failed", "kind", kind, "phone", phone, "error", err)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.logger.Error("notify: endpoint rejected message", "kind", kind, "phone", phone, "status", resp.StatusCode)
		return
	}

	s.logger.Info("notificação enviada", "kind", kind, "phone", phone)
}

// Ensure the notifier satisfies the orchestrator's contract.
var _ appointments.Notifier = (*Service)(nil)
