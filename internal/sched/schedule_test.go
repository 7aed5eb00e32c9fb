package sched_test

import (
	"errors"
	"testing"
	"time"

	"vsched/internal/sched"
)

func TestNewAllocator(t *testing.T) {
	t.Run("rejects non-positive rate", func(t *testing.T) {
		t.Parallel()
		_, err := sched.NewAllocator(0, "09:00", "UTC")
		if !errors.Is(err, sched.ErrInvalidConfig) {
			t.Fatalf("NewAllocator(0) error = %v, want ErrInvalidConfig", err)
		}
	})

	t.Run("rejects malformed day start", func(t *testing.T) {
		t.Parallel()
		for _, bad := range []string{"", "9am", "25:00", "09:60", "09"} {
			if _, err := sched.NewAllocator(1, bad, "UTC"); !errors.Is(err, sched.ErrInvalidConfig) {
				t.Errorf("NewAllocator(dayStart=%q) error = %v, want ErrInvalidConfig", bad, err)
			}
		}
	})

	t.Run("rejects unknown timezone", func(t *testing.T) {
		t.Parallel()
		_, err := sched.NewAllocator(1, "09:00", "Mars/Olympus_Mons")
		if !errors.Is(err, sched.ErrInvalidConfig) {
			t.Fatalf("NewAllocator(bad tz) error = %v, want ErrInvalidConfig", err)
		}
	})

	t.Run("interval divides the day by the rate", func(t *testing.T) {
		t.Parallel()
		a, err := sched.NewAllocator(3, "09:00", "UTC")
		if err != nil {
			t.Fatalf("NewAllocator() error = %v", err)
		}
		if got := a.Interval(); got != 8*time.Hour {
			t.Errorf("Interval() = %v, want 8h", got)
		}
	})
}

func TestAllocator_Slots(t *testing.T) {
	mustAllocator := func(t *testing.T, perDay int, dayStart, tz string) *sched.Allocator {
		t.Helper()
		a, err := sched.NewAllocator(perDay, dayStart, tz)
		if err != nil {
			t.Fatalf("NewAllocator() error = %v", err)
		}
		return a
	}

	t.Run("first slot lands on day start when now matches it", func(t *testing.T) {
		t.Parallel()
		a := mustAllocator(t, 2, "09:00", "UTC")
		now := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

		slots, err := a.Slots(now, time.Time{}, 3, nil, nil)
		if err != nil {
			t.Fatalf("Slots() error = %v", err)
		}

		want := []time.Time{
			time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 15, 21, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 16, 9, 0, 0, 0, time.UTC),
		}
		assertSlots(t, slots, want)
	})

	t.Run("now past the anchor rolls forward to the next slot", func(t *testing.T) {
		t.Parallel()
		a := mustAllocator(t, 3, "09:00", "UTC")
		now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

		slots, err := a.Slots(now, time.Time{}, 2, nil, nil)
		if err != nil {
			t.Fatalf("Slots() error = %v", err)
		}

		want := []time.Time{
			time.Date(2024, 1, 15, 17, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 16, 1, 0, 0, 0, time.UTC),
		}
		assertSlots(t, slots, want)
	})

	t.Run("cursor resumes exactly one interval later", func(t *testing.T) {
		t.Parallel()
		a := mustAllocator(t, 2, "09:00", "UTC")
		now := time.Date(2024, 1, 20, 8, 0, 0, 0, time.UTC)
		cursor := time.Date(2024, 1, 15, 21, 0, 0, 0, time.UTC)

		slots, err := a.Slots(now, time.Time{}, 2, &cursor, nil)
		if err != nil {
			t.Fatalf("Slots() error = %v", err)
		}

		want := []time.Time{
			time.Date(2024, 1, 16, 9, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 16, 21, 0, 0, 0, time.UTC),
		}
		assertSlots(t, slots, want)
	})

	t.Run("future start date anchors on its day start", func(t *testing.T) {
		t.Parallel()
		a := mustAllocator(t, 1, "10:00", "UTC")
		now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
		start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

		slots, err := a.Slots(now, start, 2, nil, nil)
		if err != nil {
			t.Fatalf("Slots() error = %v", err)
		}

		want := []time.Time{
			time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC),
			time.Date(2024, 2, 2, 10, 0, 0, 0, time.UTC),
		}
		assertSlots(t, slots, want)
	})

	t.Run("anchors in the project timezone", func(t *testing.T) {
		t.Parallel()
		a := mustAllocator(t, 1, "09:00", "America/New_York")
		loc, err := time.LoadLocation("America/New_York")
		if err != nil {
			t.Fatalf("LoadLocation() error = %v", err)
		}
		now := time.Date(2024, 6, 15, 8, 0, 0, 0, loc)

		slots, err := a.Slots(now, time.Time{}, 1, nil, nil)
		if err != nil {
			t.Fatalf("Slots() error = %v", err)
		}
		want := time.Date(2024, 6, 15, 9, 0, 0, 0, loc)
		if !slots[0].Equal(want) {
			t.Errorf("slot = %v, want %v", slots[0], want)
		}
	})

	t.Run("skips reserved slots without mutating the set", func(t *testing.T) {
		t.Parallel()
		a := mustAllocator(t, 2, "09:00", "UTC")
		now := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

		taken := time.Date(2024, 1, 15, 21, 0, 0, 0, time.UTC)
		reserved := map[string]struct{}{
			taken.Format(time.RFC3339): {},
		}

		slots, err := a.Slots(now, time.Time{}, 2, nil, reserved)
		if err != nil {
			t.Fatalf("Slots() error = %v", err)
		}

		want := []time.Time{
			time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 16, 9, 0, 0, 0, time.UTC),
		}
		assertSlots(t, slots, want)

		if len(reserved) != 1 {
			t.Errorf("reserved set mutated: len = %d, want 1", len(reserved))
		}
	})

	t.Run("zero count yields nothing", func(t *testing.T) {
		t.Parallel()
		a := mustAllocator(t, 1, "09:00", "UTC")
		slots, err := a.Slots(time.Now(), time.Time{}, 0, nil, nil)
		if err != nil {
			t.Fatalf("Slots() error = %v", err)
		}
		if len(slots) != 0 {
			t.Errorf("got %d slots, want 0", len(slots))
		}
	})

	t.Run("slots strictly increase", func(t *testing.T) {
		t.Parallel()
		a := mustAllocator(t, 5, "00:30", "UTC")
		now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

		slots, err := a.Slots(now, time.Time{}, 20, nil, nil)
		if err != nil {
			t.Fatalf("Slots() error = %v", err)
		}
		for i := 1; i < len(slots); i++ {
			if !slots[i-1].Before(slots[i]) {
				t.Fatalf("slots[%d]=%v not before slots[%d]=%v", i-1, slots[i-1], i, slots[i])
			}
		}
	})
}

func assertSlots(t *testing.T, got, want []time.Time) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d slots, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("slot[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestParseStartDate(t *testing.T) {
	t.Run("empty and today mean now", func(t *testing.T) {
		t.Parallel()
		for _, s := range []string{"", "today", "TODAY", " today "} {
			got, err := sched.ParseStartDate(s)
			if err != nil {
				t.Fatalf("ParseStartDate(%q) error = %v", s, err)
			}
			if !got.IsZero() {
				t.Errorf("ParseStartDate(%q) = %v, want zero", s, got)
			}
		}
	})

	t.Run("parses calendar dates", func(t *testing.T) {
		t.Parallel()
		got, err := sched.ParseStartDate("2024-06-01")
		if err != nil {
			t.Fatalf("ParseStartDate() error = %v", err)
		}
		want := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Errorf("ParseStartDate() = %v, want %v", got, want)
		}
	})

	t.Run("rejects other formats", func(t *testing.T) {
		t.Parallel()
		for _, s := range []string{"tomorrow", "06/01/2024", "2024-13-01"} {
			if _, err := sched.ParseStartDate(s); !errors.Is(err, sched.ErrInvalidConfig) {
				t.Errorf("ParseStartDate(%q) error = %v, want ErrInvalidConfig", s, err)
			}
		}
	})
}
