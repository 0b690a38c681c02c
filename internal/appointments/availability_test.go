package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wadtech/wad-calendar-service/pkg/logging"
)

// fakeCalendarChecker answers IsSlotFree from a busy set and records the
// dates it was asked about.
type fakeCalendarChecker struct {
	busy    map[string]bool
	err     error
	queried []string
}

func (f *fakeCalendarChecker) IsSlotFree(ctx context.Context, date time.Time, tod TimeOfDay) (bool, error) {
	f.queried = append(f.queried, FormatDate(date))
	if f.err != nil {
		return false, f.err
	}
	return !f.busy[FormatDate(date)], nil
}

func fixedResolver(t *testing.T, checker SlotChecker, lookahead int) *Resolver {
	t.Helper()
	r := NewResolver(checker, lookahead, logging.Default())
	// Monday 2026-09-07.
	r.now = func() time.Time { return time.Date(2026, 9, 7, 8, 0, 0, 0, time.UTC) }
	return r
}

func TestCheckRejectsPastDate(t *testing.T) {
	checker := &fakeCalendarChecker{}
	r := fixedResolver(t, checker, 60)

	_, err := r.Check(context.Background(), time.Date(2026, 9, 4, 0, 0, 0, 0, time.UTC), TimeOfDay{Hour: 14})
	require.Error(t, err)

	var berr *BusinessError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, KindInvalidRequest, berr.Kind)
	assert.Equal(t, "Não é possível agendar para datas passadas", berr.Msg)
	assert.Empty(t, checker.queried)
}

func TestCheckRejectsWeekend(t *testing.T) {
	checker := &fakeCalendarChecker{}
	r := fixedResolver(t, checker, 60)

	// Saturday 2026-09-12.
	_, err := r.Check(context.Background(), time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC), TimeOfDay{Hour: 14})
	require.Error(t, err)

	var berr *BusinessError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, KindInvalidRequest, berr.Kind)
	assert.Equal(t, "Não é possível agendar para fins de semana", berr.Msg)
	assert.Empty(t, checker.queried)
}

func TestCheckFreeSlotHasNoAlternatives(t *testing.T) {
	checker := &fakeCalendarChecker{}
	r := fixedResolver(t, checker, 60)

	result, err := r.Check(context.Background(), time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC), TimeOfDay{Hour: 14})
	require.NoError(t, err)
	assert.True(t, result.Available)
	assert.Empty(t, result.Alternatives)
	assert.Equal(t, []string{"2026-09-08"}, checker.queried)
}

func TestCheckBusySlotReturnsExactlyFourAlternatives(t *testing.T) {
	// Tuesday 2026-09-08 busy; Wednesday 09-09 busy too, so the scan
	// must hop over it and over the weekend.
	checker := &fakeCalendarChecker{busy: map[string]bool{
		"2026-09-08": true,
		"2026-09-09": true,
	}}
	r := fixedResolver(t, checker, 60)

	result, err := r.Check(context.Background(), time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC), TimeOfDay{Hour: 14})
	require.NoError(t, err)
	assert.False(t, result.Available)
	require.Len(t, result.Alternatives, 4)

	var dates []string
	for _, slot := range result.Alternatives {
		dates = append(dates, FormatDate(slot.Date))
		assert.Equal(t, TimeOfDay{Hour: 14}, slot.Time)
		assert.False(t, IsWeekend(slot.Date))
		assert.True(t, slot.Date.After(time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC)))
	}
	assert.Equal(t, []string{"2026-09-10", "2026-09-11", "2026-09-14", "2026-09-15"}, dates)
}

func TestCheckAlternativesSkipWeekends(t *testing.T) {
	// Friday 2026-09-11 busy; the first candidates are the following
	// Monday through Thursday.
	checker := &fakeCalendarChecker{busy: map[string]bool{"2026-09-11": true}}
	r := fixedResolver(t, checker, 60)

	result, err := r.Check(context.Background(), time.Date(2026, 9, 11, 0, 0, 0, 0, time.UTC), TimeOfDay{Hour: 10})
	require.NoError(t, err)
	require.Len(t, result.Alternatives, 4)
	assert.Equal(t, "2026-09-14", FormatDate(result.Alternatives[0].Date))
	assert.NotContains(t, checker.queried, "2026-09-12")
	assert.NotContains(t, checker.queried, "2026-09-13")
}

func TestCheckLookaheadBoundsScan(t *testing.T) {
	// Every day busy: with a 7-day window only the weekday candidates
	// inside it are queried and a partial list comes back.
	busyAll := &fakeCalendarChecker{busy: map[string]bool{}}
	for d := 8; d <= 30; d++ {
		busyAll.busy[FormatDate(time.Date(2026, 9, d, 0, 0, 0, 0, time.UTC))] = true
	}
	r := fixedResolver(t, busyAll, 7)

	result, err := r.Check(context.Background(), time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC), TimeOfDay{Hour: 14})
	require.NoError(t, err)
	assert.False(t, result.Available)
	assert.Empty(t, result.Alternatives)
	// Initial check plus the five weekdays inside the window.
	assert.Len(t, busyAll.queried, 6)
}

func TestCheckPartialAlternativesWhenWindowTooSmall(t *testing.T) {
	// Only 2026-09-10 free inside a 3-day window.
	busyAll := &fakeCalendarChecker{busy: map[string]bool{
		"2026-09-08": true,
		"2026-09-09": true,
		"2026-09-11": true,
	}}
	r := fixedResolver(t, busyAll, 3)

	result, err := r.Check(context.Background(), time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC), TimeOfDay{Hour: 14})
	require.NoError(t, err)
	require.Len(t, result.Alternatives, 1)
	assert.Equal(t, "2026-09-10", FormatDate(result.Alternatives[0].Date))
}

func TestCheckPropagatesProviderError(t *testing.T) {
	providerErr := errors.New("freebusy unavailable")
	checker := &fakeCalendarChecker{err: providerErr}
	r := fixedResolver(t, checker, 60)

	_, err := r.Check(context.Background(), time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC), TimeOfDay{Hour: 14})
	require.Error(t, err)
	assert.ErrorIs(t, err, providerErr)

	var berr *BusinessError
	assert.False(t, errors.As(err, &berr))
}

func TestCheckTodayIsAllowed(t *testing.T) {
	checker := &fakeCalendarChecker{}
	r := fixedResolver(t, checker, 60)

	result, err := r.Check(context.Background(), time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC), TimeOfDay{Hour: 14})
	require.NoError(t, err)
	assert.True(t, result.Available)
}
