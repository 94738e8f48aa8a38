package scheduling

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scholarops/internal/interview/models"
	id "scholarops/pkg/domain"
	dErrors "scholarops/pkg/domain-errors"
)

func clock(t *testing.T, s string) models.ClockTime {
	t.Helper()
	c, err := models.ParseClockTime(s)
	require.NoError(t, err)
	return c
}

func interval(t *testing.T, start string, minutes int) models.Interval {
	t.Helper()
	i, err := models.NewInterval(clock(t, start), minutes)
	require.NoError(t, err)
	return i
}

func scheduledSlot(t *testing.T, start string, minutes int, status models.SlotStatus) *models.Slot {
	t.Helper()
	slot, err := models.NewSlot(id.NewSlotID(), models.SlotSpec{
		ApplicationID:   id.NewApplicationID(),
		ApplicantRef:    "STU-" + start,
		InterviewerID:   id.NewInterviewerID(),
		Date:            time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		Start:           clock(t, start),
		DurationMinutes: minutes,
	}, status, time.Now())
	require.NoError(t, err)
	return slot
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b models.Interval
		want bool
	}{
		{"ending at 10:00 and starting at 10:00 do not conflict", interval(t, "09:30", 30), interval(t, "10:00", 30), false},
		{"starting at 10:00 after one ending at 10:00 do not conflict", interval(t, "10:00", 30), interval(t, "09:30", 30), false},
		{"one minute overlap", interval(t, "09:30", 31), interval(t, "10:00", 30), true},
		{"contained", interval(t, "09:00", 120), interval(t, "09:30", 15), true},
		{"identical", interval(t, "13:00", 45), interval(t, "13:00", 45), true},
		{"disjoint", interval(t, "08:00", 30), interval(t, "15:00", 30), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.a, tt.b))
			assert.Equal(t, tt.want, Overlaps(tt.b, tt.a), "overlap must be symmetric")
		})
	}
}

func TestFindConflicts(t *testing.T) {
	booked := scheduledSlot(t, "09:00", 60, models.SlotScheduled)
	cancelled := scheduledSlot(t, "11:00", 60, models.SlotCancelled)
	completed := scheduledSlot(t, "13:00", 60, models.SlotCompleted)
	existing := []*models.Slot{booked, cancelled, completed}

	t.Run("reports applicant and both ranges", func(t *testing.T) {
		conflicts := FindConflicts(existing, interval(t, "09:30", 60))
		require.Len(t, conflicts, 1)
		assert.Equal(t, booked.ID, conflicts[0].SlotID)
		assert.Equal(t, booked.ApplicantRef, conflicts[0].ApplicantRef)
		assert.Equal(t, "09:00-10:00", conflicts[0].Existing.String())
		assert.Equal(t, "09:30-10:30", conflicts[0].Requested.String())
	})

	t.Run("ignores slots that are not scheduled", func(t *testing.T) {
		assert.Empty(t, FindConflicts(existing, interval(t, "11:00", 180)))
	})

	t.Run("boundary is free", func(t *testing.T) {
		assert.Empty(t, FindConflicts(existing, interval(t, "10:00", 60)))
		assert.Empty(t, FindConflicts(existing, interval(t, "08:00", 60)))
	})
}

func TestPack(t *testing.T) {
	t.Run("three applicants at 09:00 for 30 minutes with 15 minute gaps", func(t *testing.T) {
		got, err := Pack(clock(t, "09:00"), 30, 15, 3)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "09:00-09:30", got[0].String())
		assert.Equal(t, "09:45-10:15", got[1].String())
		assert.Equal(t, "10:30-11:00", got[2].String())
	})

	t.Run("zero gap packs end to end", func(t *testing.T) {
		got, err := Pack(clock(t, "14:00"), 20, 0, 3)
		require.NoError(t, err)
		assert.Equal(t, "14:40-15:00", got[2].String())
	})

	t.Run("packed intervals never overlap each other", func(t *testing.T) {
		rng := rand.New(rand.NewSource(11))
		for i := 0; i < 200; i++ {
			duration := 5 + rng.Intn(60)
			gap := rng.Intn(30)
			n := 1 + rng.Intn(8)
			got, err := Pack(models.ClockTime(rng.Intn(8*60)), duration, gap, n)
			if err != nil {
				continue
			}
			for a := range got {
				for b := a + 1; b < len(got); b++ {
					require.False(t, Overlaps(got[a], got[b]))
				}
			}
		}
	})

	t.Run("past midnight is a validation error", func(t *testing.T) {
		_, err := Pack(clock(t, "22:00"), 60, 30, 3)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects bad parameters", func(t *testing.T) {
		_, err := Pack(clock(t, "09:00"), 0, 0, 1)
		assert.Error(t, err)
		_, err = Pack(clock(t, "09:00"), 30, -5, 1)
		assert.Error(t, err)
		_, err = Pack(clock(t, "09:00"), 30, 0, 0)
		assert.Error(t, err)
	})

	t.Run("durations and gaps that would wrap the clock do not fit", func(t *testing.T) {
		for _, tc := range []struct{ duration, gap, n int }{
			{math.MaxInt, 0, 1},
			{math.MaxInt - 10, 15, 3},
			{30, math.MaxInt, 2},
			{1, 0, math.MaxInt},
		} {
			got, err := Pack(clock(t, "09:00"), tc.duration, tc.gap, tc.n)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			assert.Nil(t, got)
		}
	})

	t.Run("a huge gap is fine after the last interview", func(t *testing.T) {
		got, err := Pack(clock(t, "09:00"), 30, math.MaxInt, 1)
		require.NoError(t, err)
		assert.Equal(t, "09:00-09:30", got[0].String())
	})
}

func TestFindBatchConflicts(t *testing.T) {
	// Five applicants from 09:00, 30 minutes each with 15 minute gaps. The
	// third computed slot is 10:30-11:00.
	existing := []*models.Slot{scheduledSlot(t, "10:40", 30, models.SlotScheduled)}
	intervals, err := Pack(clock(t, "09:00"), 30, 15, 5)
	require.NoError(t, err)

	candidates := make([]Candidate, len(intervals))
	for i, iv := range intervals {
		candidates[i] = Candidate{ApplicationID: id.NewApplicationID(), Interval: iv}
	}

	conflicts := FindBatchConflicts(existing, candidates)
	require.Len(t, conflicts, 1)
	require.NotNil(t, conflicts[0].RequestedFor)
	assert.Equal(t, candidates[2].ApplicationID, *conflicts[0].RequestedFor)
	assert.Equal(t, "10:30-11:00", conflicts[0].Requested.String())
}

// TestNoOverlapInvariant books random candidates only when FindConflicts is
// empty and checks the resulting day stays pairwise disjoint.
func TestNoOverlapInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for run := 0; run < 100; run++ {
		var day []*models.Slot
		for i := 0; i < 50; i++ {
			start := models.ClockTime(rng.Intn(20 * 60))
			duration := 10 + rng.Intn(90)
			candidate, err := models.NewInterval(start, duration)
			require.NoError(t, err)
			if len(FindConflicts(day, candidate)) > 0 {
				continue
			}
			slot := scheduledSlot(t, start.String(), duration, models.SlotScheduled)
			day = append(day, slot)
		}
		for a := range day {
			for b := a + 1; b < len(day); b++ {
				require.False(t, Overlaps(day[a].Interval(), day[b].Interval()))
			}
		}
	}
}
