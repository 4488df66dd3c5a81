// Package reports handles the report workflow: maintaining the set of
// studies picked for a report and sending the generation request.
package reports

import (
	"sync"
)

// Selection is the ordered, duplicate-free set of study uids picked for
// report generation. Order follows first insertion.
type Selection struct {
	mu    sync.Mutex
	order []string
	set   map[string]struct{}
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{set: make(map[string]struct{})}
}

// Add appends uid unless already present. Returns true when added.
func (s *Selection) Add(uid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.set[uid]; ok {
		return false
	}
	s.set[uid] = struct{}{}
	s.order = append(s.order, uid)
	return true
}

// Remove drops uid from the selection. Returns true when it was present.
func (s *Selection) Remove(uid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.set[uid]; !ok {
		return false
	}
	delete(s.set, uid)
	for i, id := range s.order {
		if id == uid {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Toggle flips membership and reports the resulting state.
func (s *Selection) Toggle(uid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.set[uid]; ok {
		delete(s.set, uid)
		for i, id := range s.order {
			if id == uid {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
		return false
	}
	s.set[uid] = struct{}{}
	s.order = append(s.order, uid)
	return true
}

// Contains reports membership.
func (s *Selection) Contains(uid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.set[uid]
	return ok
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.set = make(map[string]struct{})
}

// List returns the uids in insertion order.
func (s *Selection) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// Len returns the selection size.
func (s *Selection) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}
