package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/wadtech/wad-calendar-service/internal/appointments"
	"github.com/wadtech/wad-calendar-service/pkg/logging"
)

// AppointmentService is the slice of the orchestrator the REST layer uses.
type AppointmentService interface {
	CheckAvailability(ctx context.Context, date time.Time, tod appointments.TimeOfDay) (*appointments.Availability, error)
	CreateAppointment(ctx context.Context, phone string, date time.Time, tod appointments.TimeOfDay, summary string) error
	CancelAppointment(ctx context.Context, phone string) error
	RescheduleAppointment(ctx context.Context, phone string, date time.Time, tod appointments.TimeOfDay, summary string) error
	ConfirmAppointment(ctx context.Context, phone string) error
	GetAppointment(ctx context.Context, phone string) (*appointments.Appointment, error)
}

// AppointmentsHandler exposes the booking operations under /api.
type AppointmentsHandler struct {
	service AppointmentService
	logger  *logging.Logger
}

func NewAppointmentsHandler(service AppointmentService, logger *logging.Logger) *AppointmentsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentsHandler{service: service, logger: logger}
}

// AppointmentRequest is the body for create and reschedule.
type AppointmentRequest struct {
	Date        string `json:"date"`
	Time        string `json:"time"`
	PhoneNumber string `json:"phoneNumber"`
	Summary     string `json:"summary,omitempty"`
}

// PhoneRequest is the body for phone-keyed operations.
type PhoneRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

// ConfirmationRequest carries the patient's reply to the daily
// confirmation message.
type ConfirmationRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Response    string `json:"response"`
}

// SlotResponse is one alternative slot offer.
type SlotResponse struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// AvailabilityResponse answers GET /api/appointments/availability.
type AvailabilityResponse struct {
	Available        bool           `json:"available"`
	RequestedDate    string         `json:"requestedDate"`
	RequestedTime    string         `json:"requestedTime"`
	AlternativeDates []SlotResponse `json:"alternativeDates,omitempty"`
}

// AppointmentResponse answers GET /api/appointments.
type AppointmentResponse struct {
	PhoneNumber   string `json:"phoneNumber"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	Summary       string `json:"summary"`
	Status        string `json:"status"`
	GoogleEventID string `json:"googleEventId"`
}

// Availability handles GET /api/appointments/availability?date=&time=.
func (h *AppointmentsHandler) Availability(w http.ResponseWriter, r *http.Request) {
	date, tod, ok := parseSlotParams(w, r.URL.Query().Get("date"), r.URL.Query().Get("time"))
	if !ok {
		return
	}

	result, err := h.service.CheckAvailability(r.Context(), date, tod)
	if err != nil {
		h.logger.Warn("availability check failed", "date", r.URL.Query().Get("date"), "error", err)
		writeServiceError(w, err)
		return
	}

	resp := AvailabilityResponse{
		Available:     result.Available,
		RequestedDate: appointments.FormatDate(date),
		RequestedTime: tod.String(),
	}
	for _, slot := range result.Alternatives {
		resp.AlternativeDates = append(resp.AlternativeDates, SlotResponse{
			Date: appointments.FormatDate(slot.Date),
			Time: slot.Time.String(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create handles POST /api/appointments.
func (h *AppointmentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req AppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Corpo da requisição inválido", http.StatusBadRequest)
		return
	}
	phone, ok := requirePhone(w, req.PhoneNumber)
	if !ok {
		return
	}
	date, tod, ok := parseSlotParams(w, req.Date, req.Time)
	if !ok {
		return
	}

	if err := h.service.CreateAppointment(r.Context(), phone, date, tod, strings.TrimSpace(req.Summary)); err != nil {
		h.logger.Warn("create appointment failed", "phone", phone, "error", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Agendamento criado com sucesso"})
}

// Cancel handles POST /api/appointments/cancel.
func (h *AppointmentsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req PhoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Corpo da requisição inválido", http.StatusBadRequest)
		return
	}
	phone, ok := requirePhone(w, req.PhoneNumber)
	if !ok {
		return
	}

	if err := h.service.CancelAppointment(r.Context(), phone); err != nil {
		h.logger.Warn("cancel appointment failed", "phone", phone, "error", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Agendamento cancelado com sucesso"})
}

// Reschedule handles POST /api/appointments/reschedule.
func (h *AppointmentsHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	var req AppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Corpo da requisição inválido", http.StatusBadRequest)
		return
	}
	phone, ok := requirePhone(w, req.PhoneNumber)
	if !ok {
		return
	}
	date, tod, ok := parseSlotParams(w, req.Date, req.Time)
	if !ok {
		return
	}

	if err := h.service.RescheduleAppointment(r.Context(), phone, date, tod, strings.TrimSpace(req.Summary)); err != nil {
		h.logger.Warn("reschedule appointment failed", "phone", phone, "error", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Agendamento reagendado com sucesso"})
}

// Get handles GET /api/appointments?phoneNumber=.
func (h *AppointmentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	phone, ok := requirePhone(w, r.URL.Query().Get("phoneNumber"))
	if !ok {
		return
	}

	appt, err := h.service.GetAppointment(r.Context(), phone)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AppointmentResponse{
		PhoneNumber:   appt.PhoneNumber,
		Date:          appointments.FormatDate(appt.Date),
		Time:          appt.Time.String(),
		Summary:       appt.Summary,
		Status:        string(appt.Status),
		GoogleEventID: appt.GoogleEventID,
	})
}

// Confirm handles POST /api/confirmations. SIM confirms; NAO, NÃO and NO
// cancel; anything else is rejected.
func (h *AppointmentsHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req ConfirmationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Corpo da requisição inválido", http.StatusBadRequest)
		return
	}
	phone, ok := requirePhone(w, req.PhoneNumber)
	if !ok {
		return
	}

	switch strings.ToUpper(strings.TrimSpace(req.Response)) {
	case "SIM":
		if err := h.service.ConfirmAppointment(r.Context(), phone); err != nil {
			h.logger.Warn("confirm appointment failed", "phone", phone, "error", err)
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Agendamento confirmado com sucesso"})
	case "NAO", "NÃO", "NO":
		if err := h.service.CancelAppointment(r.Context(), phone); err != nil {
			h.logger.Warn("cancel via confirmation failed", "phone", phone, "error", err)
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Agendamento cancelado com sucesso"})
	default:
		jsonError(w, "Resposta inválida. Use SIM para confirmar ou NÃO para cancelar", http.StatusBadRequest)
	}
}

func requirePhone(w http.ResponseWriter, raw string) (string, bool) {
	phone := strings.TrimSpace(raw)
	if phone == "" {
		jsonError(w, "O número de telefone é obrigatório", http.StatusBadRequest)
		return "", false
	}
	return phone, true
}

// parseSlotParams validates the yyyy-MM-dd date and HH:mm time inputs,
// writing a 400 on failure.
func parseSlotParams(w http.ResponseWriter, rawDate, rawTime string) (time.Time, appointments.TimeOfDay, bool) {
	date, err := appointments.ParseDate(strings.TrimSpace(rawDate))
	if err != nil {
		jsonError(w, "Data inválida. Use o formato yyyy-MM-dd", http.StatusBadRequest)
		return time.Time{}, appointments.TimeOfDay{}, false
	}
	tod, err := appointments.ParseTimeOfDay(strings.TrimSpace(rawTime))
	if err != nil {
		jsonError(w, "Horário inválido. Use o formato HH:mm", http.StatusBadRequest)
		return time.Time{}, appointments.TimeOfDay{}, false
	}
	return date, tod, true
}
