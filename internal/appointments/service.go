package appointments

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/wadtech/wad-calendar-service/internal/observability/metrics"
	"github.com/wadtech/wad-calendar-service/pkg/logging"
)

// Calendar is the contract with the external calendar provider. Every
// mutation happens there first; the local row is only written once the
// provider call has succeeded.
type Calendar interface {
	SlotChecker
	CreateEvent(ctx context.Context, phone string, date time.Time, tod TimeOfDay, summary string) (string, error)
	UpdateEvent(ctx context.Context, eventID, phone string, date time.Time, tod TimeOfDay, summary string) error
	DeleteEvent(ctx context.Context, eventID string) error
	EventExists(ctx context.Context, eventID string) bool
}

// Notifier delivers outbound messages. Implementations are best-effort;
// the service logs failures and never lets them abort an operation.
type Notifier interface {
	SendConfirmationRequest(ctx context.Context, phone string, date time.Time, tod TimeOfDay) error
	SendConfirmation(ctx context.Context, phone string, date time.Time, tod TimeOfDay) error
	SendCancellation(ctx context.Context, phone string, date time.Time, tod TimeOfDay) error
}

// Store is the persistence contract the orchestrator needs.
type Store interface {
	FindActiveByPhone(ctx context.Context, phone string) (*Appointment, error)
	FindByEventID(ctx context.Context, eventID string) (*Appointment, error)
	Create(ctx context.Context, appt *Appointment) error
	Update(ctx context.Context, appt *Appointment) error
	MarkConfirmationSent(ctx context.Context, id int64) error
	ListForConfirmation(ctx context.Context, date time.Time) ([]Appointment, error)
}

// providerStatusMap translates Google Calendar event statuses delivered
// by webhook into local statuses. Unlisted values are a deliberate no-op.
var providerStatusMap = map[string]Status{
	"cancelled": StatusCanceled,
	"confirmed": StatusConfirmed,
}

// Service orchestrates the appointment lifecycle across the store, the
// calendar provider and the notifier.
type Service struct {
	store    Store
	calendar Calendar
	notifier Notifier
	resolver *Resolver
	locks    *keyMutex
	metrics  *metrics.AppointmentMetrics
	logger   *logging.Logger
	now      func() time.Time
}

// NewService wires the orchestrator. metrics may be nil.
func NewService(store Store, calendar Calendar, notifier Notifier, resolver *Resolver, m *metrics.AppointmentMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:    store,
		calendar: calendar,
		notifier: notifier,
		resolver: resolver,
		locks:    newKeyMutex(),
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// CheckAvailability reports whether the slot is free and, when busy, the
// next open business-day slots at the same time.
func (s *Service) CheckAvailability(ctx context.Context, date time.Time, tod TimeOfDay) (*Availability, error) {
	result, err := s.resolver.Check(ctx, date, tod)
	s.observe("check_availability", err)
	return result, err
}

// CreateAppointment books a new slot. The Google Calendar event is
// created first; a local record with no event must never exist, so a
// failed insert compensates by deleting the event.
func (s *Service) CreateAppointment(ctx context.Context, phone string, date time.Time, tod TimeOfDay, summary string) (err error) {
	defer func() { s.observe("create", err) }()

	unlock := s.locks.Lock(phone)
	defer unlock()

	date = DateOnly(date)
	s.logger.Info("creating appointment", "phone", phone, "date", FormatDate(date), "time", tod.String())

	existing, err := s.store.FindActiveByPhone(ctx, phone)
	if err != nil {
		return err
	}
	if existing != nil {
		s.logger.Warn("appointment already exists for phone",
			"phone", phone,
			"existing_date", FormatDate(existing.Date),
			"existing_status", string(existing.Status),
		)
		return conflict("Já existe um agendamento para este número de telefone")
	}

	free, err := s.calendar.IsSlotFree(ctx, date, tod)
	if err != nil {
		return err
	}
	if !free {
		return slotUnavailable("Horário não disponível para agendamento no Google Calendar")
	}

	eventID, err := s.calendar.CreateEvent(ctx, phone, date, tod, summary)
	if err != nil {
		return err
	}
	s.logger.Info("calendar event created", "phone", phone, "event_id", eventID)

	appt := &Appointment{
		PhoneNumber:   phone,
		Date:          date,
		Time:          tod,
		Summary:       summary,
		Status:        StatusScheduled,
		GoogleEventID: eventID,
	}
	if err := s.store.Create(ctx, appt); err != nil {
		// The event must not outlive a failed local write.
		if delErr := s.calendar.DeleteEvent(ctx, eventID); delErr != nil {
			s.logger.Error("reconciliation required: calendar event orphaned after failed insert",
				"event_id", eventID, "phone", phone, "error", delErr)
		} else {
			s.logger.Warn("compensated calendar event after failed insert", "event_id", eventID, "phone", phone)
		}
		return err
	}

	s.logger.Info("appointment created", "id", appt.ID, "phone", phone, "event_id", eventID)
	return nil
}

// CancelAppointment deletes the provider event and then marks the local
// record canceled. A failed provider delete leaves the record untouched.
func (s *Service) CancelAppointment(ctx context.Context, phone string) (err error) {
	defer func() { s.observe("cancel", err) }()

	unlock := s.locks.Lock(phone)
	defer unlock()

	appt, err := s.store.FindActiveByPhone(ctx, phone)
	if err != nil {
		return err
	}
	if appt == nil {
		return notFound("Agendamento não encontrado para o número de telefone: " + phone)
	}

	if err := s.calendar.DeleteEvent(ctx, appt.GoogleEventID); err != nil {
		return err
	}

	appt.Status = StatusCanceled
	if err := s.store.Update(ctx, appt); err != nil {
		s.logger.Error("reconciliation required: event deleted but local cancel failed",
			"id", appt.ID, "event_id", appt.GoogleEventID, "error", err)
		return err
	}

	s.logger.Info("appointment canceled", "id", appt.ID, "phone", phone)
	s.notifyCancellation(ctx, appt)
	return nil
}

// RescheduleAppointment moves an existing booking to a new slot. The
// provider event keeps its id and is updated in place before the local
// row changes. A blank summary preserves the current one.
func (s *Service) RescheduleAppointment(ctx context.Context, phone string, date time.Time, tod TimeOfDay, summary string) (err error) {
	defer func() { s.observe("reschedule", err) }()

	unlock := s.locks.Lock(phone)
	defer unlock()

	date = DateOnly(date)

	appt, err := s.store.FindActiveByPhone(ctx, phone)
	if err != nil {
		return err
	}
	if appt == nil {
		return notFound("Agendamento não encontrado para o número de telefone: " + phone)
	}

	free, err := s.calendar.IsSlotFree(ctx, date, tod)
	if err != nil {
		return err
	}
	if !free {
		return slotUnavailable("Novo horário não disponível para reagendamento no Google Calendar")
	}

	newSummary := appt.Summary
	if strings.TrimSpace(summary) != "" {
		newSummary = summary
	}

	if err := s.calendar.UpdateEvent(ctx, appt.GoogleEventID, phone, date, tod, newSummary); err != nil {
		return err
	}

	s.logger.Info("rescheduling appointment",
		"id", appt.ID,
		"from", FormatDate(appt.Date)+" "+appt.Time.String(),
		"to", FormatDate(date)+" "+tod.String(),
	)

	appt.Date = date
	appt.Time = tod
	appt.Summary = newSummary
	appt.Status = StatusRescheduled
	appt.ConfirmationSent = false
	if err := s.store.Update(ctx, appt); err != nil {
		s.logger.Error("reconciliation required: event moved but local reschedule failed",
			"id", appt.ID, "event_id", appt.GoogleEventID, "error", err)
		return err
	}

	s.logger.Info("appointment rescheduled", "id", appt.ID, "phone", phone)
	return nil
}

// ConfirmAppointment transitions the booking to CONFIRMED. Purely a local
// write; the confirmation message afterwards is best-effort.
func (s *Service) ConfirmAppointment(ctx context.Context, phone string) (err error) {
	defer func() { s.observe("confirm", err) }()

	unlock := s.locks.Lock(phone)
	defer unlock()

	appt, err := s.store.FindActiveByPhone(ctx, phone)
	if err != nil {
		return err
	}
	if appt == nil {
		return notFound("Agendamento não encontrado para o número de telefone: " + phone)
	}

	appt.Status = StatusConfirmed
	if err := s.store.Update(ctx, appt); err != nil {
		return err
	}

	s.logger.Info("appointment confirmed", "id", appt.ID, "phone", phone)
	if s.notifier != nil {
		if nerr := s.notifier.SendConfirmation(ctx, appt.PhoneNumber, appt.Date, appt.Time); nerr != nil {
			s.logger.Error("confirmation message failed", "id", appt.ID, "error", nerr)
		}
	}
	return nil
}

// GetAppointment returns the active appointment for a phone number. It
// also checks, without failing the read, that the provider event still
// exists, so a drifted record is at least visible in the logs.
func (s *Service) GetAppointment(ctx context.Context, phone string) (*Appointment, error) {
	appt, err := s.store.FindActiveByPhone(ctx, phone)
	if err != nil {
		s.observe("get", err)
		return nil, err
	}
	if appt == nil {
		err := notFound("Agendamento não encontrado para o número de telefone: " + phone)
		s.observe("get", err)
		return nil, err
	}

	if !s.calendar.EventExists(ctx, appt.GoogleEventID) {
		s.logger.Warn("appointment out of sync: calendar event missing",
			"id", appt.ID, "phone", phone, "event_id", appt.GoogleEventID)
	}

	s.observe("get", nil)
	return appt, nil
}

// ProcessConfirmations sends a confirmation request for every appointment
// scheduled for tomorrow that has not been asked yet. Appointments are
// processed independently: one failure is logged and the sweep moves on.
// Returns the number of appointments successfully processed.
func (s *Service) ProcessConfirmations(ctx context.Context) (int, error) {
	tomorrow := DateOnly(s.now()).AddDate(0, 0, 1)
	s.logger.Info("processing confirmation requests", "date", FormatDate(tomorrow))

	appts, err := s.store.ListForConfirmation(ctx, tomorrow)
	if err != nil {
		return 0, err
	}

	processed := 0
	for i := range appts {
		appt := &appts[i]
		if err := s.notifier.SendConfirmationRequest(ctx, appt.PhoneNumber, appt.Date, appt.Time); err != nil {
			s.logger.Error("confirmation request failed", "id", appt.ID, "phone", appt.PhoneNumber, "error", err)
			s.metrics.ObserveConfirmation(false)
			continue
		}
		if err := s.store.MarkConfirmationSent(ctx, appt.ID); err != nil {
			// Unmarked but sent: the next sweep may resend, which beats
			// silently never asking.
			s.logger.Error("failed to mark confirmation sent", "id", appt.ID, "error", err)
			s.metrics.ObserveConfirmation(false)
			continue
		}
		s.logger.Info("confirmation request sent", "id", appt.ID, "phone", appt.PhoneNumber)
		s.metrics.ObserveConfirmation(true)
		processed++
	}

	s.logger.Info("confirmation sweep finished", "eligible", len(appts), "processed", processed)
	return processed, nil
}

// ProcessCalendarNotification applies a provider webhook to the local
// record. Unknown event statuses are ignored; writes only happen when
// the mapped status differs, so redeliveries are idempotent.
func (s *Service) ProcessCalendarNotification(ctx context.Context, eventID, eventStatus string) (err error) {
	defer func() { s.observe("webhook_sync", err) }()

	mapped, ok := providerStatusMap[eventStatus]
	if !ok {
		s.logger.Info("event status requires no update", "event_id", eventID, "status", eventStatus)
		return nil
	}

	appt, err := s.store.FindByEventID(ctx, eventID)
	if err != nil {
		return err
	}
	if appt == nil {
		return notFound("Agendamento não encontrado para o evento: " + eventID)
	}

	unlock := s.locks.Lock(appt.PhoneNumber)
	defer unlock()

	// The first lookup only identified which phone to lock. Re-read under
	// the lock so a write that committed in between is not overwritten.
	appt, err = s.store.FindByEventID(ctx, eventID)
	if err != nil {
		return err
	}
	if appt == nil {
		return notFound("Agendamento não encontrado para o evento: " + eventID)
	}
	if appt.Status == mapped {
		s.logger.Info("status already current", "id", appt.ID, "status", string(mapped))
		return nil
	}

	old := appt.Status
	appt.Status = mapped
	if err := s.store.Update(ctx, appt); err != nil {
		return err
	}

	s.logger.Info("status updated from calendar notification",
		"id", appt.ID, "event_id", eventID, "from", string(old), "to", string(mapped))

	if mapped == StatusCanceled {
		s.notifyCancellation(ctx, appt)
	}
	return nil
}

func (s *Service) notifyCancellation(ctx context.Context, appt *Appointment) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendCancellation(ctx, appt.PhoneNumber, appt.Date, appt.Time); err != nil {
		s.logger.Error("cancellation message failed", "id", appt.ID, "error", err)
	}
}

func (s *Service) observe(operation string, err error) {
	if err == nil {
		s.metrics.ObserveOperation(operation, "ok")
		return
	}
	var berr *BusinessError
	if errors.As(err, &berr) {
		s.metrics.ObserveOperation(operation, "business_error")
		return
	}
	s.metrics.ObserveOperation(operation, "error")
}
