// Package actionlog keeps the review action trail: one entry per decision,
// correction, or submission, queryable with the same filter/sort/pagination
// shape as the study list. The trail is in-memory and bounded; it is an
// operator view, not durable audit storage.
package actionlog

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/study-review-server/internal/dashboard"
)

// Actions recorded in the trail.
const (
	ActionDecision   = "decision"
	ActionCorrection = "correction"
	ActionSubmit     = "submit"
)

// DefaultCapacity bounds the trail; the oldest entries fall off first.
const DefaultCapacity = 1000

// Entry is one recorded review action. OldValue and NewValue carry the
// before/after of whatever the action changed (a status, an edited text).
type Entry struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Action       string    `json:"action"`
	StudyUID     string    `json:"study_uid,omitempty"`
	PathologyKey string    `json:"pathology_key,omitempty"`
	OldValue     string    `json:"old_value,omitempty"`
	NewValue     string    `json:"new_value,omitempty"`
	Details      string    `json:"details"`
}

// Filter narrows a trail query. Nil/empty dimensions match everything.
type Filter struct {
	DateFrom *time.Time
	DateTo   *time.Time
	Action   string
	StudyUID string
}

// Match reports whether an entry passes every set dimension.
func (f Filter) Match(e Entry) bool {
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.StudyUID != "" && e.StudyUID != f.StudyUID {
		return false
	}
	if f.DateFrom != nil && e.Timestamp.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && e.Timestamp.After(*f.DateTo) {
		return false
	}
	return true
}

// SortField names a sortable column of the trail.
type SortField string

const (
	SortByTimestamp SortField = "timestamp"
	SortByAction    SortField = "action"
	SortByStudyUID  SortField = "studyUid"
)

// Log is the bounded, concurrency-safe action trail.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	cap     int

	now func() time.Time
}

// New creates an empty trail holding at most capacity entries.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{cap: capacity, now: time.Now}
}

// Record appends an entry, assigning its ID and timestamp, and returns the
// stored entry. When the trail is full the oldest entry is dropped.
func (l *Log) Record(e Entry) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.ID = uuid.New().String()
	e.Timestamp = l.now()
	l.entries = append(l.entries, e)
	if len(l.entries) > l.cap {
		l.entries = l.entries[len(l.entries)-l.cap:]
	}
	return e
}

// Len returns the number of stored entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Actions returns the distinct actions present, in first-seen order. The
// trail view uses it to populate its filter options.
func (l *Log) Actions() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	seen := make(map[string]struct{})
	out := []string{}
	for _, e := range l.entries {
		if _, ok := seen[e.Action]; ok {
			continue
		}
		seen[e.Action] = struct{}{}
		out = append(out, e.Action)
	}
	return out
}

// Query filters, sorts, and paginates the trail. The sort is stable; the
// page is clamped by the pagination window like the study list.
func (l *Log) Query(f Filter, field SortField, dir dashboard.Direction, p dashboard.Pagination) ([]Entry, dashboard.PageWindow) {
	l.mu.Lock()
	matched := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		if f.Match(e) {
			matched = append(matched, e)
		}
	}
	l.mu.Unlock()

	if less := comparator(field); less != nil {
		sort.SliceStable(matched, func(i, j int) bool {
			if dir == dashboard.Descending {
				return less(matched[j], matched[i])
			}
			return less(matched[i], matched[j])
		})
	}

	w := p.Window(len(matched))
	if w.StartRecord == 0 {
		return []Entry{}, w
	}
	return matched[w.StartRecord-1 : w.EndRecord], w
}

func comparator(field SortField) func(a, b Entry) bool {
	switch field {
	case SortByTimestamp:
		return func(a, b Entry) bool { return a.Timestamp.Before(b.Timestamp) }
	case SortByAction:
		return func(a, b Entry) bool { return a.Action < b.Action }
	case SortByStudyUID:
		return func(a, b Entry) bool { return a.StudyUID < b.StudyUID }
	default:
		return nil
	}
}
