package service

import (
	"errors"
	"sync"
	"time"

	"github.com/Dan9191/deposit-service/internal/models"
	"github.com/Dan9191/deposit-service/internal/utils"
)

// ErrSessionOwned is returned when a session belongs to another caller
var ErrSessionOwned = errors.New("session belongs to another owner")

// SessionStore keeps the latest view of each calculator form session.
// Every submission bumps the session generation; an explanation is applied
// only while its generation is still the latest.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*models.SessionView
	now      func() time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*models.SessionView),
		now:      time.Now,
	}
}

// Begin records a new submission by owner and returns its pending view.
// A session stays bound to the owner that created it.
func (s *SessionStore) Begin(id, owner string, params models.FDParameters, result models.FDResult) (models.SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	view, ok := s.sessions[id]
	if !ok {
		view = &models.SessionView{SessionID: id, Owner: owner}
		s.sessions[id] = view
	}
	if view.Owner != owner {
		return models.SessionView{}, ErrSessionOwned
	}
	*view = models.SessionView{
		SessionID:  id,
		Owner:      owner,
		Generation: view.Generation + 1,
		Params:     params,
		Result:     result,
		Display:    utils.NewDisplay(result),
		Source:     models.ExplanationPending,
		Pending:    true,
		UpdatedAt:  s.now(),
	}
	return *view, nil
}

// Resolve applies an explanation to the submission with the given
// generation. It returns false if a newer submission has replaced it.
func (s *SessionStore) Resolve(id string, generation uint64, res models.ExplanationResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	view, ok := s.sessions[id]
	if !ok || view.Generation != generation {
		return false
	}
	view.Explanation = res.Explanation
	view.Source = res.Source
	view.Pending = false
	view.UpdatedAt = s.now()
	return true
}

// Get returns a copy of the session's latest view if owner created it
func (s *SessionStore) Get(id, owner string) (models.SessionView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	view, ok := s.sessions[id]
	if !ok || view.Owner != owner {
		return models.SessionView{}, false
	}
	return *view, true
}

// Prune drops sessions that have not changed for longer than maxIdle and
// reports how many were removed. Pending sessions are kept.
func (s *SessionStore) Prune(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxIdle)
	removed := 0
	for id, view := range s.sessions {
		if !view.Pending && view.UpdatedAt.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
