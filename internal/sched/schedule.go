package sched

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Allocator produces evenly spaced publish slots for a project. Slots are
// spaced 24h divided by the items-per-day rate, anchored on the project's
// day-start time in its timezone.
//
// The sequence is restartable: a run that consumed k slots records the last
// one as the project's cursor, and a later run seeded with that cursor
// continues exactly one interval after it, never skipping or colliding.
type Allocator struct {
	perDay    int
	interval  time.Duration
	startHour int
	startMin  int
	loc       *time.Location
}

// NewAllocator validates the scheduling parameters and returns an Allocator.
// perDay must be positive, dayStart is local "HH:MM", timezone is an IANA
// name. Validation failures wrap ErrInvalidConfig.
func NewAllocator(perDay int, dayStart string, timezone string) (*Allocator, error) {
	if perDay <= 0 {
		return nil, fmt.Errorf("items per day must be positive, got %d: %w", perDay, ErrInvalidConfig)
	}

	hour, min, err := parseDayStart(dayStart)
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %v: %w", timezone, err, ErrInvalidConfig)
	}

	return &Allocator{
		perDay:    perDay,
		interval:  24 * time.Hour / time.Duration(perDay),
		startHour: hour,
		startMin:  min,
		loc:       loc,
	}, nil
}

// Interval returns the spacing between consecutive slots.
func (a *Allocator) Interval() time.Duration { return a.interval }

// Slots returns count strictly increasing publish slots.
//
// If cursor is non-nil the first slot is cursor + interval. Otherwise the
// sequence is anchored on the day-start time: a zero startDate means "today",
// and the first slot is the earliest anchored slot at or after now; a future
// startDate yields the day-start slot on that calendar date.
//
// Slots whose RFC3339 UTC form appears in reserved are skipped, so a project
// never assigns the same slot twice even if its rate changed between runs.
// The reserved set is not mutated. count <= 0 yields an empty sequence.
func (a *Allocator) Slots(now time.Time, startDate time.Time, count int, cursor *time.Time, reserved map[string]struct{}) ([]time.Time, error) {
	if count <= 0 {
		return nil, nil
	}

	var slot time.Time
	switch {
	case cursor != nil:
		slot = cursor.Add(a.interval)
	case startDate.IsZero():
		slot = a.anchorFrom(now.In(a.loc), now)
	default:
		day := time.Date(startDate.Year(), startDate.Month(), startDate.Day(), 0, 0, 0, 0, a.loc)
		slot = a.anchorFrom(day, day)
	}

	taken := make(map[string]struct{}, len(reserved))
	for k := range reserved {
		taken[k] = struct{}{}
	}

	out := make([]time.Time, 0, count)
	// Bounded search: with a finite reserved set a free slot always exists
	// within len(reserved)+count steps.
	limit := count + len(reserved) + 1
	for steps := 0; len(out) < count; steps++ {
		if steps > limit {
			return nil, fmt.Errorf("could not find %d free slots after %d attempts", count, steps)
		}
		key := slot.UTC().Format(time.RFC3339)
		if _, ok := taken[key]; !ok {
			out = append(out, slot)
			taken[key] = struct{}{}
		}
		slot = slot.Add(a.interval)
	}
	return out, nil
}

// anchorFrom returns the earliest slot at or after ref, walking forward from
// the day-start time on ref's calendar day.
func (a *Allocator) anchorFrom(day time.Time, ref time.Time) time.Time {
	slot := time.Date(day.Year(), day.Month(), day.Day(), a.startHour, a.startMin, 0, 0, a.loc)
	for slot.Before(ref) {
		slot = slot.Add(a.interval)
	}
	return slot
}

// ParseStartDate parses a CLI start-date argument. Empty or "today" yields
// the zero time, meaning scheduling starts from the current moment. Anything
// else must be a YYYY-MM-DD calendar date.
func ParseStartDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "today") {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("start date %q: expected YYYY-MM-DD: %w", s, ErrInvalidConfig)
	}
	return t, nil
}

func parseDayStart(s string) (hour, min int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("day start %q: expected HH:MM: %w", s, ErrInvalidConfig)
	}
	hour, err = strconv.Atoi(parts[0])
	if err == nil {
		min, err = strconv.Atoi(parts[1])
	}
	if err != nil || hour < 0 || hour > 23 || min < 0 || min > 59 {
		return 0, 0, fmt.Errorf("day start %q: invalid time: %w", s, ErrInvalidConfig)
	}
	return hour, min, nil
}
