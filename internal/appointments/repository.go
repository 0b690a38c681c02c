package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DB is the subset of pgxpool.Pool the repository needs. pgxmock
// satisfies it in tests.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository persists appointments in Postgres.
type Repository struct {
	db DB
}

// NewRepository creates a repository backed by a pgx pool (or mock).
func NewRepository(db DB) *Repository {
	if db == nil {
		panic("appointments: db required")
	}
	return &Repository{db: db}
}

const appointmentColumns = `id, phone_number, date, time_of_day, summary, status, google_event_id, confirmation_sent, created_at, updated_at`

// FindActiveByPhone returns the non-canceled appointment for a phone
// number, or nil when there is none.
func (r *Repository) FindActiveByPhone(ctx context.Context, phone string) (*Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE phone_number = $1 AND status <> 'CANCELED'
	`
	appt, err := scanAppointment(r.db.QueryRow(ctx, query, phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("appointments: select active by phone: %w", err)
	}
	return appt, nil
}

// FindByEventID returns the appointment mirroring a Google Calendar
// event, or nil when none matches.
func (r *Repository) FindByEventID(ctx context.Context, eventID string) (*Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE google_event_id = $1
	`
	appt, err := scanAppointment(r.db.QueryRow(ctx, query, eventID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("appointments: select by event id: %w", err)
	}
	return appt, nil
}

// Create inserts a new row and fills in ID and CreatedAt.
func (r *Repository) Create(ctx context.Context, appt *Appointment) error {
	query := `
		INSERT INTO appointments (phone_number, date, time_of_day, summary, status, google_event_id, confirmation_sent)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query,
		appt.PhoneNumber,
		appt.Date,
		toPGTime(appt.Time),
		appt.Summary,
		string(appt.Status),
		appt.GoogleEventID,
		appt.ConfirmationSent,
	).Scan(&appt.ID, &appt.CreatedAt)
	if err != nil {
		return fmt.Errorf("appointments: insert: %w", err)
	}
	return nil
}

// Update rewrites the mutable fields of an existing row.
func (r *Repository) Update(ctx context.Context, appt *Appointment) error {
	query := `
		UPDATE appointments
		SET date = $2, time_of_day = $3, summary = $4, status = $5, confirmation_sent = $6, updated_at = now()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query,
		appt.ID,
		appt.Date,
		toPGTime(appt.Time),
		appt.Summary,
		string(appt.Status),
		appt.ConfirmationSent,
	)
	if err != nil {
		return fmt.Errorf("appointments: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("appointments: update: no row with id %d", appt.ID)
	}
	return nil
}

// MarkConfirmationSent flips the confirmation flag for one appointment.
func (r *Repository) MarkConfirmationSent(ctx context.Context, id int64) error {
	query := `
		UPDATE appointments
		SET confirmation_sent = TRUE, updated_at = now()
		WHERE id = $1
	`
	if _, err := r.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("appointments: mark confirmation sent: %w", err)
	}
	return nil
}

// ListForConfirmation returns appointments on the given date that still
// need a confirmation request. Rescheduled appointments count the same
// as scheduled ones.
func (r *Repository) ListForConfirmation(ctx context.Context, date time.Time) ([]Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE date = $1 AND status IN ('SCHEDULED', 'RESCHEDULED') AND confirmation_sent = FALSE
		ORDER BY time_of_day, id
	`
	rows, err := r.db.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("appointments: list for confirmation: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan confirmation row: %w", err)
		}
		out = append(out, *appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: iterate confirmation rows: %w", err)
	}
	return out, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		appt   Appointment
		status string
		tod    pgtype.Time
	)
	if err := row.Scan(
		&appt.ID,
		&appt.PhoneNumber,
		&appt.Date,
		&tod,
		&appt.Summary,
		&status,
		&appt.GoogleEventID,
		&appt.ConfirmationSent,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	); err != nil {
		return nil, err
	}
	appt.Status = Status(status)
	appt.Time = TimeOfDayFromMicroseconds(tod.Microseconds)
	appt.Date = DateOnly(appt.Date)
	return &appt, nil
}

func toPGTime(t TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: t.Microseconds(), Valid: true}
}
