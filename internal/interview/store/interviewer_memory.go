package store

import (
	"context"
	"sync"

	"scholarops/internal/interview/models"
	id "scholarops/pkg/domain"
	"scholarops/pkg/platform/sentinel"
	"scholarops/pkg/platform/tx"
)

// InMemoryInterviewers mirrors the staff directory in memory.
type InMemoryInterviewers struct {
	mu           sync.RWMutex
	interviewers map[id.InterviewerID]*models.Interviewer
}

func NewInMemoryInterviewers() *InMemoryInterviewers {
	return &InMemoryInterviewers{interviewers: make(map[id.InterviewerID]*models.Interviewer)}
}

// Upsert inserts or replaces directory data, keeping the original CreatedAt.
func (s *InMemoryInterviewers) Upsert(ctx context.Context, interviewer *models.Interviewer) (*models.Interviewer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := *interviewer
	existing, existed := s.interviewers[interviewer.ID]
	if existed {
		saved.CreatedAt = existing.CreatedAt
	}
	s.interviewers[interviewer.ID] = &saved
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if existed {
			s.interviewers[saved.ID] = existing
		} else {
			delete(s.interviewers, saved.ID)
		}
	})
	out := saved
	return &out, nil
}

func (s *InMemoryInterviewers) FindByID(_ context.Context, interviewerID id.InterviewerID) (*models.Interviewer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	interviewer, ok := s.interviewers[interviewerID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *interviewer
	return &out, nil
}
