// Package groups resolves the user-visible title and color of tab groups
// and hands stored group metadata over when group identity changes.
package groups

import "sync"

// Store is a durable map from group root id to an optional title and color.
// Implementations do not report errors; a failed read behaves as absent.
type Store interface {
	Title(rootID int) (string, bool)
	SetTitle(rootID int, title string)
	RemoveTitle(rootID int)

	Color(rootID int) (int, bool)
	SetColor(rootID int, color int)
	RemoveColor(rootID int)
}

// MemoryStore is a Store kept in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	titles map[int]string
	colors map[int]int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		titles: make(map[int]string),
		colors: make(map[int]int),
	}
}

func (s *MemoryStore) Title(rootID int) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.titles[rootID]
	return t, ok
}

func (s *MemoryStore) SetTitle(rootID int, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.titles[rootID] = title
}

func (s *MemoryStore) RemoveTitle(rootID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.titles, rootID)
}

func (s *MemoryStore) Color(rootID int) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.colors[rootID]
	return c, ok
}

func (s *MemoryStore) SetColor(rootID int, color int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.colors[rootID] = color
}

func (s *MemoryStore) RemoveColor(rootID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.colors, rootID)
}
