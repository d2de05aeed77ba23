package main

import "sync"

// FormKind tells which form a user is filling in.
type FormKind int

const (
	FormCreateEvent FormKind = iota
	FormEditEvent
)

// FormState is the per-user state of an in-progress form: which form, the
// current step and the values accumulated so far. A value stored as nil
// means the field was explicitly skipped (creation) or cleared (edit).
type FormState struct {
	Kind            FormKind
	Step            Field
	SelectingField  bool  // edit form: waiting for the field menu choice
	AwaitingConfirm bool  // terminal step reached, waiting for confirm/cancel
	EventID         int64 // edit form: the event being changed
	Values          map[Field]interface{}
}

// StateStore holds in-progress form state per user. Implementations do not
// need to coordinate operations for one user: the surrounding dispatcher
// serializes a user's updates, so states for different users never overlap.
type StateStore interface {
	Get(telegramID int64) (*FormState, bool)
	Put(telegramID int64, state *FormState)
	Delete(telegramID int64)
}

// MemoryStateStore keeps form states in a process-local map.
type MemoryStateStore struct {
	mu     sync.RWMutex
	states map[int64]*FormState
}

// NewMemoryStateStore creates an empty MemoryStateStore.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[int64]*FormState)}
}

// Get returns the user's current form state, if any.
func (s *MemoryStateStore) Get(telegramID int64) (*FormState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[telegramID]
	return state, ok
}

// Put stores the user's form state, replacing any stale one from an
// abandoned form.
func (s *MemoryStateStore) Put(telegramID int64, state *FormState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[telegramID] = state
}

// Delete removes the user's form state.
func (s *MemoryStateStore) Delete(telegramID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, telegramID)
}
