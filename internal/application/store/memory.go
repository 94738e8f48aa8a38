package store

import (
	"context"
	"sync"

	"scholarops/internal/application/models"
	id "scholarops/pkg/domain"
	"scholarops/pkg/platform/sentinel"
	"scholarops/pkg/platform/tx"
	"scholarops/pkg/requestcontext"
)

// InMemory is a thread-safe in-memory application store for tests and the
// no-database mode. Writes made inside a tx unit of work are undone when the
// unit fails.
type InMemory struct {
	mu      sync.RWMutex
	apps    map[id.ApplicationID]*models.Application
	history map[id.ApplicationID][]models.StatusChange
}

func NewInMemory() *InMemory {
	return &InMemory{
		apps:    make(map[id.ApplicationID]*models.Application),
		history: make(map[id.ApplicationID][]models.StatusChange),
	}
}

func (s *InMemory) Create(ctx context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.apps[app.ID]; exists {
		return sentinel.ErrConflict
	}
	s.apps[app.ID] = app.Clone()
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.apps, app.ID)
		delete(s.history, app.ID)
	})
	return nil
}

func (s *InMemory) FindByID(_ context.Context, appID id.ApplicationID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.apps[appID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return app.Clone(), nil
}

// FindByIDs returns the applications that exist among ids. Missing IDs are absent from the map.
func (s *InMemory) FindByIDs(_ context.Context, ids []id.ApplicationID) (map[id.ApplicationID]*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	found := make(map[id.ApplicationID]*models.Application, len(ids))
	for _, appID := range ids {
		if app, ok := s.apps[appID]; ok {
			found[appID] = app.Clone()
		}
	}
	return found, nil
}

// Execute atomically validates and mutates an application under lock.
// The validate callback runs first; if it returns an error, mutate is skipped.
// Transitions recorded by mutate are appended to history with the context actor.
func (s *InMemory) Execute(ctx context.Context, appID id.ApplicationID, validate func(*models.Application) error, mutate func(*models.Application)) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.apps[appID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	app := stored.Clone()
	if err := validate(app); err != nil {
		return nil, err
	}
	mutate(app)

	recorded := len(s.history[appID])
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.apps[appID] = stored
		s.history[appID] = s.history[appID][:recorded]
	})

	actor := requestcontext.ActorID(ctx)
	for _, change := range app.DrainChanges() {
		change.ActorID = actor
		s.history[appID] = append(s.history[appID], change)
	}
	app.Version++
	s.apps[appID] = app.Clone()
	return app, nil
}

func (s *InMemory) History(_ context.Context, appID id.ApplicationID) ([]models.StatusChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.apps[appID]; !ok {
		return nil, sentinel.ErrNotFound
	}
	out := make([]models.StatusChange, len(s.history[appID]))
	copy(out, s.history[appID])
	return out, nil
}
