package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/wadtech/wad-calendar-service/pkg/logging"
)

// ConfirmationProcessor is the slice of the appointment service the
// scheduler drives. It sends confirmation requests for tomorrow's
// appointments and reports how many were dispatched.
type ConfirmationProcessor interface {
	ProcessConfirmations(ctx context.Context) (int, error)
}

// DailyTrigger fires the confirmation sweep once per day at a fixed
// local wall-clock time.
type DailyTrigger struct {
	processor ConfirmationProcessor
	hour      int
	minute    int
	zone      *time.Location
	logger    *logging.Logger
	now       func() time.Time
}

// NewDailyTrigger parses at as "HH:MM" and schedules sweeps at that
// time in zone. A nil zone means UTC.
func NewDailyTrigger(processor ConfirmationProcessor, at string, zone *time.Location, logger *logging.Logger) (*DailyTrigger, error) {
	parsed, err := time.Parse("15:04", at)
	if err != nil {
		return nil, fmt.Errorf("scheduler: invalid sweep time %q: %w", at, err)
	}
	if zone == nil {
		zone = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &DailyTrigger{
		processor: processor,
		hour:      parsed.Hour(),
		minute:    parsed.Minute(),
		zone:      zone,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// nextRun returns the next wall-clock occurrence of the sweep time
// strictly after from.
func (t *DailyTrigger) nextRun(from time.Time) time.Time {
	local := from.In(t.zone)
	next := time.Date(local.Year(), local.Month(), local.Day(), t.hour, t.minute, 0, 0, t.zone)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Run blocks until ctx is canceled, firing the sweep at each scheduled
// time. Sweep failures are logged and the loop keeps going.
func (t *DailyTrigger) Run(ctx context.Context) {
	for {
		next := t.nextRun(t.now())
		t.logger.Info("confirmation sweep scheduled", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			t.sweep(ctx)
		}
	}
}

func (t *DailyTrigger) sweep(ctx context.Context) {
	if t.processor == nil {
		return
	}
	sent, err := t.processor.ProcessConfirmations(ctx)
	if err != nil {
		t.logger.Error("confirmation sweep failed", "error", err)
		return
	}
	t.logger.Info("confirmation sweep finished", "sent", sent)
}
