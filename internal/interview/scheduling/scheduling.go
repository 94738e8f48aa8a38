// Package scheduling holds the pure booking algorithms: half-open overlap
// detection against an interviewer's day and consecutive packing for bulk
// allocation. Nothing here touches storage.
package scheduling

import (
	"fmt"

	"scholarops/internal/interview/models"
	id "scholarops/pkg/domain"
	dErrors "scholarops/pkg/domain-errors"
)

// Overlaps reports whether [a.Start, a.End) and [b.Start, b.End) intersect.
func Overlaps(a, b models.Interval) bool {
	return a.Overlaps(b)
}

// FindConflicts returns every scheduled slot in existing that overlaps candidate.
// Slots in any other status hold no interviewer time and are ignored. The
// caller is responsible for restricting existing to one interviewer and date.
func FindConflicts(existing []*models.Slot, candidate models.Interval) []models.Conflict {
	var conflicts []models.Conflict
	for _, slot := range existing {
		if !slot.IsActive() {
			continue
		}
		if Overlaps(slot.Interval(), candidate) {
			conflicts = append(conflicts, models.Conflict{
				SlotID:        slot.ID,
				ApplicationID: slot.ApplicationID,
				ApplicantRef:  slot.ApplicantRef,
				Existing:      slot.Interval(),
				Requested:     candidate,
			})
		}
	}
	return conflicts
}

// maxPacked is the most interviews one day can hold: one per minute.
const maxPacked = models.MinutesPerDay

// Pack lays out n intervals of durationMinutes back to back, separated by
// gapMinutes, starting at start. Interval i starts at interval i-1's end plus
// the gap. The whole sequence must end by midnight.
func Pack(start models.ClockTime, durationMinutes, gapMinutes, n int) ([]models.Interval, error) {
	if n <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one application is required")
	}
	if gapMinutes < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "gap_minutes cannot be negative")
	}
	tooLong := func() error {
		return dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("%d interviews of %d minutes with %d minute gaps from %s do not fit in the day",
				n, durationMinutes, gapMinutes, start))
	}
	if n > maxPacked {
		return nil, tooLong()
	}
	intervals := make([]models.Interval, 0, n)
	next := start
	for i := 0; i < n; i++ {
		interval, err := models.NewInterval(next, durationMinutes)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeValidation) && i > 0 {
				return nil, tooLong()
			}
			return nil, err
		}
		intervals = append(intervals, interval)
		if i == n-1 {
			break
		}
		if gapMinutes >= models.MinutesPerDay-int(interval.End) {
			return nil, tooLong()
		}
		next = interval.End.Add(gapMinutes)
	}
	return intervals, nil
}

// Candidate pairs an application with its packed interval.
type Candidate struct {
	ApplicationID id.ApplicationID
	Interval      models.Interval
}

// FindBatchConflicts checks every candidate against existing bookings and
// returns all conflicts, in candidate order. Candidates produced by Pack never
// overlap each other.
func FindBatchConflicts(existing []*models.Slot, candidates []Candidate) []models.Conflict {
	var all []models.Conflict
	for _, c := range candidates {
		appID := c.ApplicationID
		for _, conflict := range FindConflicts(existing, c.Interval) {
			conflict.RequestedFor = &appID
			all = append(all, conflict)
		}
	}
	return all
}
