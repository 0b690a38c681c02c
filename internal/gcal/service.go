package gcal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/wadtech/wad-calendar-service/internal/appointments"
	"github.com/wadtech/wad-calendar-service/internal/observability/metrics"
	"github.com/wadtech/wad-calendar-service/pkg/logging"
)

// ErrProvider marks any failure talking to the Google Calendar API, so
// callers can distinguish provider trouble from business errors.
var ErrProvider = errors.New("google calendar provider error")

var calendarTracer = otel.Tracer("wadcal.internal.gcal")

const defaultTimeout = 20 * time.Second

// Config carries the calendar integration settings.
type Config struct {
	CredentialsFile string
	CalendarID      string
	TimeZone        string
	DurationMinutes int
}

// Service adapts appointment semantics onto the Google Calendar API: a
// slot is a [time, time+duration) window in the configured zone on the
// single configured calendar.
type Service struct {
	api        *calendar.Service
	calendarID string
	zone       *time.Location
	duration   time.Duration
	metrics    *metrics.AppointmentMetrics
	logger     *logging.Logger
}

// New builds the gateway with service-account credentials. Extra options
// are appended after the defaults; tests use them to point the client at
// a fake endpoint.
func New(ctx context.Context, cfg Config, m *metrics.AppointmentMetrics, logger *logging.Logger, extra ...option.ClientOption) (*Service, error) {
	if logger == nil {
		logger = logging.Default()
	}
	zone, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("gcal: load time zone %q: %w", cfg.TimeZone, err)
	}
	if cfg.DurationMinutes <= 0 {
		cfg.DurationMinutes = 60
	}

	opts := []option.ClientOption{}
	if cfg.CredentialsFile != "" && len(extra) == 0 {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile), option.WithScopes(calendar.CalendarScope))
	}
	opts = append(opts, extra...)

	api, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcal: init client: %w", err)
	}

	return &Service{
		api:        api,
		calendarID: cfg.CalendarID,
		zone:       zone,
		duration:   time.Duration(cfg.DurationMinutes) * time.Minute,
		metrics:    m,
		logger:     logger,
	}, nil
}

// callCtx caps every provider call. The generated client carries no
// deadline of its own, and a hung call would otherwise block the request
// indefinitely.
func callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, defaultTimeout)
}

// window converts a calendar date plus time of day into the event window
// in the configured zone.
func (s *Service) window(date time.Time, tod appointments.TimeOfDay) (time.Time, time.Time) {
	start := time.Date(date.Year(), date.Month(), date.Day(), tod.Hour, tod.Minute, 0, 0, s.zone)
	return start, start.Add(s.duration)
}

// IsSlotFree queries the FreeBusy endpoint for the slot window and
// returns true only when the busy list for the calendar is empty.
func (s *Service) IsSlotFree(ctx context.Context, date time.Time, tod appointments.TimeOfDay) (bool, error) {
	start, end := s.window(date, tod)
	ctx, span := calendarTracer.Start(ctx, "gcal.freebusy")
	defer span.End()
	span.SetAttributes(
		attribute.String("wadcal.calendar_id", s.calendarID),
		attribute.String("wadcal.slot_start", start.Format(time.RFC3339)),
	)
	ctx, cancel := callCtx(ctx)
	defer cancel()
	began := time.Now()

	resp, err := s.api.Freebusy.Query(&calendar.FreeBusyRequest{
		TimeMin:  start.Format(time.RFC3339),
		TimeMax:  end.Format(time.RFC3339),
		TimeZone: s.zone.String(),
		Items:    []*calendar.FreeBusyRequestItem{{Id: s.calendarID}},
	}).Context(ctx).Do()
	s.metrics.ObserveProviderCall("freebusy", began, err)
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("%w: free/busy query: %v", ErrProvider, err)
	}

	cal, ok := resp.Calendars[s.calendarID]
	if !ok {
		return false, fmt.Errorf("%w: calendar %q missing from free/busy response", ErrProvider, s.calendarID)
	}

	free := len(cal.Busy) == 0
	s.logger.Debug("free/busy checked",
		"calendar_id", s.calendarID,
		"start", start.Format(time.RFC3339),
		"free", free,
	)
	return free, nil
}

// CreateEvent inserts the appointment event and returns its id.
func (s *Service) CreateEvent(ctx context.Context, phone string, date time.Time, tod appointments.TimeOfDay, summary string) (string, error) {
	start, end := s.window(date, tod)
	ctx, span := calendarTracer.Start(ctx, "gcal.events.insert")
	defer span.End()
	span.SetAttributes(
		attribute.String("wadcal.calendar_id", s.calendarID),
		attribute.String("wadcal.slot_start", start.Format(time.RFC3339)),
	)
	ctx, cancel := callCtx(ctx)
	defer cancel()
	began := time.Now()

	created, err := s.api.Events.Insert(s.calendarID, &calendar.Event{
		Summary:     "Agendamento: " + phone,
		Description: summary,
		Start:       s.eventTime(start),
		End:         s.eventTime(end),
	}).Context(ctx).Do()
	s.metrics.ObserveProviderCall("events.insert", began, err)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("%w: insert event: %v", ErrProvider, err)
	}

	s.logger.Info("calendar event created", "event_id", created.Id, "start", start.Format(time.RFC3339))
	return created.Id, nil
}

// UpdateEvent moves an existing event to a new window, keeping its id.
func (s *Service) UpdateEvent(ctx context.Context, eventID, phone string, date time.Time, tod appointments.TimeOfDay, summary string) error {
	ctx, span := calendarTracer.Start(ctx, "gcal.events.update")
	defer span.End()
	span.SetAttributes(
		attribute.String("wadcal.calendar_id", s.calendarID),
		attribute.String("wadcal.event_id", eventID),
	)
	ctx, cancel := callCtx(ctx)
	defer cancel()
	began := time.Now()
	event, err := s.api.Events.Get(s.calendarID, eventID).Context(ctx).Do()
	s.metrics.ObserveProviderCall("events.get", began, err)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: load event %s: %v", ErrProvider, eventID, err)
	}

	start, end := s.window(date, tod)
	event.Summary = "Agendamento: " + phone
	event.Description = summary
	event.Start = s.eventTime(start)
	event.End = s.eventTime(end)

	began = time.Now()
	_, err = s.api.Events.Update(s.calendarID, eventID, event).Context(ctx).Do()
	s.metrics.ObserveProviderCall("events.update", began, err)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: update event %s: %v", ErrProvider, eventID, err)
	}

	s.logger.Info("calendar event updated", "event_id", eventID, "start", start.Format(time.RFC3339))
	return nil
}

// DeleteEvent removes the event from the calendar.
func (s *Service) DeleteEvent(ctx context.Context, eventID string) error {
	ctx, span := calendarTracer.Start(ctx, "gcal.events.delete")
	defer span.End()
	span.SetAttributes(attribute.String("wadcal.event_id", eventID))
	ctx, cancel := callCtx(ctx)
	defer cancel()
	began := time.Now()
	err := s.api.Events.Delete(s.calendarID, eventID).Context(ctx).Do()
	s.metrics.ObserveProviderCall("events.delete", began, err)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: delete event %s: %v", ErrProvider, eventID, err)
	}
	s.logger.Info("calendar event deleted", "event_id", eventID)
	return nil
}

// EventExists reports whether the event can still be fetched. Existence
// checking is advisory, so any fetch failure counts as "does not exist"
// instead of propagating.
func (s *Service) EventExists(ctx context.Context, eventID string) bool {
	ctx, cancel := callCtx(ctx)
	defer cancel()
	began := time.Now()
	event, err := s.api.Events.Get(s.calendarID, eventID).Context(ctx).Do()
	s.metrics.ObserveProviderCall("events.get", began, err)
	if err != nil {
		s.logger.Info("calendar event not found or fetch failed", "event_id", eventID, "error", err)
		return false
	}
	s.logger.Debug("calendar event present", "event_id", eventID, "status", event.Status)
	return true
}

// ListCalendars returns every calendar visible to the account, keyed by
// id with a descriptive string value.
func (s *Service) ListCalendars(ctx context.Context) (map[string]string, error) {
	ctx, span := calendarTracer.Start(ctx, "gcal.calendarlist.list")
	defer span.End()
	ctx, cancel := callCtx(ctx)
	defer cancel()
	began := time.Now()
	list, err := s.api.CalendarList.List().Context(ctx).Do()
	s.metrics.ObserveProviderCall("calendarlist.list", began, err)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: list calendars: %v", ErrProvider, err)
	}

	out := make(map[string]string, len(list.Items))
	for _, entry := range list.Items {
		primary := "Não"
		if entry.Primary {
			primary = "Sim"
		}
		out[entry.Id] = fmt.Sprintf("Nome: %s, Fuso Horário: %s, Papel: %s, Primário: %s",
			entry.Summary, entry.TimeZone, entry.AccessRole, primary)
	}
	return out, nil
}

// Ensure the gateway satisfies the orchestrator's contract.
var _ appointments.Calendar = (*Service)(nil)

func (s *Service) eventTime(t time.Time) *calendar.EventDateTime {
	return &calendar.EventDateTime{
		DateTime: t.Format(time.RFC3339),
		TimeZone: s.zone.String(),
	}
}
