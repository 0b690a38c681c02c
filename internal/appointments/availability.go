package appointments

import (
	"context"
	"fmt"
	"time"

	"github.com/wadtech/wad-calendar-service/pkg/logging"
)

// alternativeCount is how many fallback slots a busy availability check returns.
const alternativeCount = 4

// SlotChecker answers whether a date/time window is free on the shared calendar.
type SlotChecker interface {
	IsSlotFree(ctx context.Context, date time.Time, tod TimeOfDay) (bool, error)
}

// Slot is a bookable date/time pair.
type Slot struct {
	Date time.Time
	Time TimeOfDay
}

// Availability is the outcome of an availability check. Alternatives is
// populated only when the requested slot is busy.
type Availability struct {
	Available    bool
	Alternatives []Slot
}

// Resolver decides whether a requested slot can be booked and, when it
// cannot, scans forward for the next open business-day slots at the same
// time of day.
type Resolver struct {
	calendar      SlotChecker
	lookaheadDays int
	logger        *logging.Logger
	now           func() time.Time
}

// NewResolver creates a resolver. lookaheadDays caps the forward scan so
// a permanently busy time of day cannot loop forever.
func NewResolver(calendar SlotChecker, lookaheadDays int, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Default()
	}
	if lookaheadDays <= 0 {
		lookaheadDays = 60
	}
	return &Resolver{
		calendar:      calendar,
		lookaheadDays: lookaheadDays,
		logger:        logger,
		now:           time.Now,
	}
}

// Check validates the requested date and queries the calendar. Past dates
// and weekends are rejected before any provider call.
func (r *Resolver) Check(ctx context.Context, date time.Time, tod TimeOfDay) (*Availability, error) {
	today := DateOnly(r.now())
	date = DateOnly(date)

	if date.Before(today) {
		r.logger.Warn("availability check for past date", "date", FormatDate(date))
		return nil, invalidRequest("Não é possível agendar para datas passadas")
	}
	if IsWeekend(date) {
		r.logger.Warn("availability check for weekend", "date", FormatDate(date), "weekday", date.Weekday().String())
		return nil, invalidRequest("Não é possível agendar para fins de semana")
	}

	free, err := r.calendar.IsSlotFree(ctx, date, tod)
	if err != nil {
		return nil, fmt.Errorf("availability: slot query: %w", err)
	}
	r.logger.Info("availability checked", "date", FormatDate(date), "time", tod.String(), "available", free)

	result := &Availability{Available: free}
	if free {
		return result, nil
	}

	alternatives, err := r.findAlternatives(ctx, date, tod)
	if err != nil {
		return nil, err
	}
	result.Alternatives = alternatives
	return result, nil
}

// findAlternatives walks forward from the day after the requested date,
// skipping weekends, collecting slots that are free at the same time of
// day until alternativeCount are found or the lookahead window ends.
func (r *Resolver) findAlternatives(ctx context.Context, date time.Time, tod TimeOfDay) ([]Slot, error) {
	var found []Slot
	current := date.AddDate(0, 0, 1)
	limit := date.AddDate(0, 0, r.lookaheadDays)

	for len(found) < alternativeCount && !current.After(limit) {
		if IsWeekend(current) {
			current = current.AddDate(0, 0, 1)
			continue
		}
		free, err := r.calendar.IsSlotFree(ctx, current, tod)
		if err != nil {
			return nil, fmt.Errorf("availability: alternative scan: %w", err)
		}
		if free {
			found = append(found, Slot{Date: current, Time: tod})
		}
		current = current.AddDate(0, 0, 1)
	}

	if len(found) < alternativeCount {
		r.logger.Warn("alternative scan exhausted lookahead window",
			"from", FormatDate(date),
			"time", tod.String(),
			"found", len(found),
			"lookahead_days", r.lookaheadDays,
		)
	}
	return found, nil
}
