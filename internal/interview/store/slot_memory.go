package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"scholarops/internal/interview/models"
	"scholarops/internal/interview/scheduling"
	id "scholarops/pkg/domain"
	"scholarops/pkg/platform/sentinel"
	"scholarops/pkg/platform/tx"
)

// InMemorySlots is a thread-safe in-memory slot store. Create enforces the
// same uniqueness the Postgres schema does: one scheduled slot per
// application and no overlapping scheduled slots per interviewer day. Writes
// made inside a tx unit of work are undone when the unit fails.
type InMemorySlots struct {
	mu    sync.RWMutex
	slots map[id.SlotID]*models.Slot
}

func NewInMemorySlots() *InMemorySlots {
	return &InMemorySlots{slots: make(map[id.SlotID]*models.Slot)}
}

func (s *InMemorySlots) Create(ctx context.Context, slot *models.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.slots[slot.ID]; exists {
		return sentinel.ErrConflict
	}
	if slot.IsActive() {
		for _, other := range s.slots {
			if !other.IsActive() {
				continue
			}
			if other.ApplicationID == slot.ApplicationID {
				return sentinel.ErrConflict
			}
			if other.InterviewerID == slot.InterviewerID && other.Date.Equal(slot.Date) &&
				scheduling.Overlaps(other.Interval(), slot.Interval()) {
				return sentinel.ErrConflict
			}
		}
	}
	s.slots[slot.ID] = slot.Clone()
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.slots, slot.ID)
	})
	return nil
}

func (s *InMemorySlots) FindByID(_ context.Context, slotID id.SlotID) (*models.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, ok := s.slots[slotID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return slot.Clone(), nil
}

// FindScheduledByApplication returns the application's active slot.
func (s *InMemorySlots) FindScheduledByApplication(_ context.Context, appID id.ApplicationID) (*models.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, slot := range s.slots {
		if slot.ApplicationID == appID && slot.IsActive() {
			return slot.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// ListByInterviewerDate returns every slot of the day in any status, ordered by start.
func (s *InMemorySlots) ListByInterviewerDate(_ context.Context, interviewerID id.InterviewerID, date time.Time) ([]*models.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(interviewerID, models.DateOf(date), false), nil
}

// ListScheduled returns the day's slots that currently hold interviewer time.
func (s *InMemorySlots) ListScheduled(_ context.Context, interviewerID id.InterviewerID, date time.Time) ([]*models.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(interviewerID, models.DateOf(date), true), nil
}

func (s *InMemorySlots) collect(interviewerID id.InterviewerID, day time.Time, activeOnly bool) []*models.Slot {
	var out []*models.Slot
	for _, slot := range s.slots {
		if slot.InterviewerID != interviewerID || !slot.Date.Equal(day) {
			continue
		}
		if activeOnly && !slot.IsActive() {
			continue
		}
		out = append(out, slot.Clone())
	}
	sortSlots(out)
	return out
}

// Execute atomically validates and mutates a slot under lock.
func (s *InMemorySlots) Execute(ctx context.Context, slotID id.SlotID, validate func(*models.Slot) error, mutate func(*models.Slot)) (*models.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.slots[slotID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	slot := stored.Clone()
	if err := validate(slot); err != nil {
		return nil, err
	}
	mutate(slot)
	s.slots[slotID] = slot.Clone()
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.slots[slotID] = stored
	})
	return slot, nil
}

func sortSlots(slots []*models.Slot) {
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Start != slots[j].Start {
			return slots[i].Start < slots[j].Start
		}
		return slots[i].CreatedAt.Before(slots[j].CreatedAt)
	})
}
