package store

import (
	"context"
	"sync"

	"scholarops/internal/application/models"
	id "scholarops/pkg/domain"
	"scholarops/pkg/platform/sentinel"
	"scholarops/pkg/platform/tx"
)

// InMemoryEvaluations stores evaluations keyed by slot.
type InMemoryEvaluations struct {
	mu     sync.RWMutex
	bySlot map[id.SlotID]*models.Evaluation
	// byApp holds the latest evaluation per application.
	byApp map[id.ApplicationID]*models.Evaluation
}

func NewInMemoryEvaluations() *InMemoryEvaluations {
	return &InMemoryEvaluations{
		bySlot: make(map[id.SlotID]*models.Evaluation),
		byApp:  make(map[id.ApplicationID]*models.Evaluation),
	}
}

// Create stores an evaluation. Evaluations are immutable: a second write for
// the same slot returns ErrConflict.
func (s *InMemoryEvaluations) Create(ctx context.Context, eval *models.Evaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.bySlot[eval.SlotID]; exists {
		return sentinel.ErrConflict
	}
	previous, hadPrevious := s.byApp[eval.ApplicationID]
	c := *eval
	s.bySlot[eval.SlotID] = &c
	s.byApp[eval.ApplicationID] = &c
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.bySlot, c.SlotID)
		if hadPrevious {
			s.byApp[c.ApplicationID] = previous
		} else {
			delete(s.byApp, c.ApplicationID)
		}
	})
	return nil
}

func (s *InMemoryEvaluations) FindBySlot(_ context.Context, slotID id.SlotID) (*models.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	eval, ok := s.bySlot[slotID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *eval
	return &c, nil
}

// FindLatestByApplications returns the most recent evaluation per application.
// Applications without one are absent from the map.
func (s *InMemoryEvaluations) FindLatestByApplications(_ context.Context, ids []id.ApplicationID) (map[id.ApplicationID]*models.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	found := make(map[id.ApplicationID]*models.Evaluation, len(ids))
	for _, appID := range ids {
		if eval, ok := s.byApp[appID]; ok {
			c := *eval
			found[appID] = &c
		}
	}
	return found, nil
}
