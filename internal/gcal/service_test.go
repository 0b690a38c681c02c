package gcal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/wadtech/wad-calendar-service/internal/appointments"
	"github.com/wadtech/wad-calendar-service/pkg/logging"
)

func testService(t *testing.T, handler http.Handler) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := New(context.Background(), Config{
		CalendarID:      "primary",
		TimeZone:        "America/Sao_Paulo",
		DurationMinutes: 60,
	}, nil, logging.Default(),
		option.WithEndpoint(srv.URL),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	return svc
}

func TestNewRejectsBadTimeZone(t *testing.T) {
	_, err := New(context.Background(), Config{TimeZone: "Mars/Olympus"}, nil, logging.Default(), option.WithoutAuthentication())
	require.Error(t, err)
}

func TestIsSlotFreeWhenNoBusyIntervals(t *testing.T) {
	var gotBody map[string]any
	svc := testService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"calendars": map[string]any{
				"primary": map[string]any{"busy": []any{}},
			},
		})
	}))

	free, err := svc.IsSlotFree(context.Background(), time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC), appointments.TimeOfDay{Hour: 14})
	require.NoError(t, err)
	assert.True(t, free)

	items, ok := gotBody["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	timeMin, _ := gotBody["timeMin"].(string)
	assert.Contains(t, timeMin, "2026-09-08T14:00:00")
}

func TestIsSlotFreeWhenBusy(t *testing.T) {
	svc := testService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"calendars": map[string]any{
				"primary": map[string]any{"busy": []any{
					map[string]string{"start": "2026-09-08T14:00:00-03:00", "end": "2026-09-08T15:00:00-03:00"},
				}},
			},
		})
	}))

	free, err := svc.IsSlotFree(context.Background(), time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC), appointments.TimeOfDay{Hour: 14})
	require.NoError(t, err)
	assert.False(t, free)
}

func TestIsSlotFreeMissingCalendarIsProviderError(t *testing.T) {
	svc := testService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"calendars": map[string]any{}})
	}))

	_, err := svc.IsSlotFree(context.Background(), time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC), appointments.TimeOfDay{Hour: 14})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProvider)
}

func TestIsSlotFreeTransportFailureIsProviderError(t *testing.T) {
	svc := testService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := svc.IsSlotFree(context.Background(), time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC), appointments.TimeOfDay{Hour: 14})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProvider)
}

func TestCreateEventReturnsID(t *testing.T) {
	var gotEvent map[string]any
	svc := testService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotEvent))
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "evt-123"})
	}))

	id, err := svc.CreateEvent(context.Background(), "+5511999990000",
		time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC), appointments.TimeOfDay{Hour: 14}, "Consulta")
	require.NoError(t, err)
	assert.Equal(t, "evt-123", id)
	assert.Equal(t, "Agendamento: +5511999990000", gotEvent["summary"])
	assert.Equal(t, "Consulta", gotEvent["description"])

	start, ok := gotEvent["start"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "America/Sao_Paulo", start["timeZone"])
	assert.Contains(t, start["dateTime"], "2026-09-08T14:00:00")
	end, ok := gotEvent["end"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, end["dateTime"], "2026-09-08T15:00:00")
}

func TestCreateEventFailureIsProviderError(t *testing.T) {
	svc := testService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusForbidden)
	}))

	_, err := svc.CreateEvent(context.Background(), "+55",
		time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC), appointments.TimeOfDay{Hour: 14}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProvider)
}

func TestUpdateEventLoadsThenWrites(t *testing.T) {
	var updated map[string]any
	svc := testService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "evt-1", "summary": "old"})
		case http.MethodPut:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&updated))
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "evt-1"})
		default:
			http.Error(w, "unexpected method", http.StatusMethodNotAllowed)
		}
	}))

	err := svc.UpdateEvent(context.Background(), "evt-1", "+5511999990000",
		time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC), appointments.TimeOfDay{Hour: 16}, "Retorno")
	require.NoError(t, err)
	assert.Equal(t, "Agendamento: +5511999990000", updated["summary"])
	assert.Equal(t, "Retorno", updated["description"])
	start, _ := updated["start"].(map[string]any)
	assert.Contains(t, start["dateTime"], "2026-09-10T16:00:00")
}

func TestDeleteEvent(t *testing.T) {
	deleted := false
	svc := testService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			deleted = true
			w.WriteHeader(http.StatusNoContent)
			return
		}
		http.Error(w, "unexpected", http.StatusBadRequest)
	}))

	require.NoError(t, svc.DeleteEvent(context.Background(), "evt-1"))
	assert.True(t, deleted)
}

func TestEventExists(t *testing.T) {
	svc := testService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "evt-1", "status": "confirmed"})
	}))
	assert.True(t, svc.EventExists(context.Background(), "evt-1"))
}

func TestEventExistsSwallowsErrors(t *testing.T) {
	svc := testService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	assert.False(t, svc.EventExists(context.Background(), "evt-1"))
}

func TestListCalendars(t *testing.T) {
	svc := testService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []any{
				map[string]any{
					"id":         "primary",
					"summary":    "Agenda",
					"timeZone":   "America/Sao_Paulo",
					"accessRole": "owner",
					"primary":    true,
				},
				map[string]any{
					"id":         "team",
					"summary":    "Equipe",
					"timeZone":   "America/Sao_Paulo",
					"accessRole": "reader",
				},
			},
		})
	}))

	calendars, err := svc.ListCalendars(context.Background())
	require.NoError(t, err)
	require.Len(t, calendars, 2)
	assert.Equal(t, "Nome: Agenda, Fuso Horário: America/Sao_Paulo, Papel: owner, Primário: Sim", calendars["primary"])
	assert.Equal(t, "Nome: Equipe, Fuso Horário: America/Sao_Paulo, Papel: reader, Primário: Não", calendars["team"])
}

func TestListCalendarsProviderError(t *testing.T) {
	svc := testService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusUnauthorized)
	}))

	_, err := svc.ListCalendars(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProvider)
}
