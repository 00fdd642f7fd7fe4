package services

import (
	"sync"

	"github.com/akumi07/RoleMaster21/internal/models"
)

// SelectionStore holds the bulk-action selection of every session
type SelectionStore struct {
	mu   sync.Mutex
	sets map[string]*selection
}

type selection struct {
	ids           []string
	members       map[string]struct{}
	deletePending bool
}

func NewSelectionStore() *SelectionStore {
	return &SelectionStore{sets: make(map[string]*selection)}
}

// Get returns a copy of the session's selection
func (s *SelectionStore) Get(sessionID string) models.SelectionSet {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked(sessionID)
}

// Toggle adds each id that is not selected and removes each id that is
func (s *SelectionStore) Toggle(sessionID string, ids ...string) models.SelectionSet {
	s.mu.Lock()
	defer s.mu.Unlock()

	sel := s.getLocked(sessionID)
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := sel.members[id]; ok {
			sel.remove(id)
		} else {
			sel.add(id)
		}
	}
	sel.deletePending = false

	return s.snapshotLocked(sessionID)
}

// Replace sets the selection to exactly ids
func (s *SelectionStore) Replace(sessionID string, ids []string) models.SelectionSet {
	s.mu.Lock()
	defer s.mu.Unlock()

	sel := &selection{members: make(map[string]struct{})}
	for _, id := range ids {
		if id != "" {
			sel.add(id)
		}
	}
	s.sets[sessionID] = sel

	return s.snapshotLocked(sessionID)
}

// MarkDeletePending records that the session was asked to confirm a delete
func (s *SelectionStore) MarkDeletePending(sessionID string) models.SelectionSet {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.getLocked(sessionID).deletePending = true
	return s.snapshotLocked(sessionID)
}

// Clear empties the selection and drops any pending confirmation
func (s *SelectionStore) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sets, sessionID)
}

func (s *SelectionStore) getLocked(sessionID string) *selection {
	sel, ok := s.sets[sessionID]
	if !ok {
		sel = &selection{members: make(map[string]struct{})}
		s.sets[sessionID] = sel
	}
	return sel
}

func (s *SelectionStore) snapshotLocked(sessionID string) models.SelectionSet {
	sel, ok := s.sets[sessionID]
	if !ok {
		return models.SelectionSet{IDs: []string{}}
	}

	ids := make([]string, len(sel.ids))
	copy(ids, sel.ids)
	return models.SelectionSet{IDs: ids, DeletePending: sel.deletePending}
}

func (sel *selection) add(id string) {
	if _, ok := sel.members[id]; ok {
		return
	}
	sel.members[id] = struct{}{}
	sel.ids = append(sel.ids, id)
}

func (sel *selection) remove(id string) {
	delete(sel.members, id)
	for i, v := range sel.ids {
		if v == id {
			sel.ids = append(sel.ids[:i], sel.ids[i+1:]...)
			return
		}
	}
}
