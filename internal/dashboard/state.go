package dashboard

import (
	"sync"

	"github.com/study-review-server/internal/domain"
)

// State holds one list view's filter, sort, pagination and row-selection
// state. Filter edits accumulate in a draft copy and only take effect on
// Apply; HasFiltersChanged compares draft and applied structurally, so a
// set-then-revert edit reads as unchanged.
type State struct {
	mu sync.Mutex

	draft   Filters
	applied Filters

	sort       SortConfig
	pagination Pagination

	selectedOrder []string
	selected      map[string]struct{}
}

// NewState starts with empty filters, the default sort and page 1.
func NewState() *State {
	return &State{
		sort:       DefaultSort(),
		pagination: NewPagination(),
		selected:   make(map[string]struct{}),
	}
}

// Draft returns a copy of the filters being edited.
func (s *State) Draft() Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Clone()
}

// Applied returns a copy of the filters currently in effect.
func (s *State) Applied() Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied.Clone()
}

// SetDraft replaces the draft filters without affecting results.
func (s *State) SetDraft(f Filters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = f.Clone()
}

// HasFiltersChanged reports whether the draft differs from the applied set.
func (s *State) HasFiltersChanged() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.draft.Equal(s.applied)
}

// Apply promotes the draft to the applied set and resets to page 1.
func (s *State) Apply() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applied = s.draft.Clone()
	s.pagination.Page = 1
	s.clearSelectionLocked()
}

// Reset clears both draft and applied filters and returns to page 1.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = Filters{}
	s.applied = Filters{}
	s.pagination.Page = 1
	s.clearSelectionLocked()
}

// Sort returns the active sort config.
func (s *State) Sort() SortConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sort
}

// ToggleSort handles a column-header click and resets to page 1.
func (s *State) ToggleSort(field SortField) SortConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sort = s.sort.Toggle(field)
	s.pagination.Page = 1
	return s.sort
}

// Pagination returns the current page request.
func (s *State) Pagination() Pagination {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pagination
}

// SetPage moves to a page and drops the row selection.
func (s *State) SetPage(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pagination.SetPage(n)
	s.clearSelectionLocked()
}

// SetPerPage changes the page size, returning to page 1.
func (s *State) SetPerPage(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.pagination.SetPerPage(n); err != nil {
		return err
	}
	s.clearSelectionLocked()
	return nil
}

// SetViewMode switches the row density without touching the page.
func (s *State) SetViewMode(mode ViewMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pagination.ViewMode = mode
}

// QueryParams composes the applied filters and the current page into
// backend listing parameters.
func (s *State) QueryParams() domain.ListProcessingsParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied.QueryParams(s.pagination.Page, s.pagination.PerPage)
}

// Present runs the in-memory pipeline over a loaded study set: applied
// filters, stable sort, then the clamped page slice.
func (s *State) Present(studies []domain.Study) ([]domain.Study, PageWindow) {
	s.mu.Lock()
	applied := s.applied.Clone()
	cfg := s.sort
	pg := s.pagination
	s.mu.Unlock()

	filtered := make([]domain.Study, 0, len(studies))
	for _, study := range studies {
		if applied.Match(study) {
			filtered = append(filtered, study)
		}
	}
	sorted := SortStudies(filtered, cfg)
	return pg.Slice(sorted), pg.Window(len(sorted))
}

// Select adds or removes a study uid from the row selection.
func (s *State) Select(uid string, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if on {
		if _, ok := s.selected[uid]; !ok {
			s.selected[uid] = struct{}{}
			s.selectedOrder = append(s.selectedOrder, uid)
		}
		return
	}
	if _, ok := s.selected[uid]; ok {
		delete(s.selected, uid)
		for i, id := range s.selectedOrder {
			if id == uid {
				s.selectedOrder = append(s.selectedOrder[:i], s.selectedOrder[i+1:]...)
				break
			}
		}
	}
}

// SelectAll sets the selection to exactly the given uids, in order.
func (s *State) SelectAll(uids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearSelectionLocked()
	for _, uid := range uids {
		if _, ok := s.selected[uid]; !ok {
			s.selected[uid] = struct{}{}
			s.selectedOrder = append(s.selectedOrder, uid)
		}
	}
}

// ClearSelection empties the row selection.
func (s *State) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearSelectionLocked()
}

// Selected returns the selected uids in selection order.
func (s *State) Selected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.selectedOrder...)
}

// IsSelected reports membership in the row selection.
func (s *State) IsSelected(uid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.selected[uid]
	return ok
}

func (s *State) clearSelectionLocked() {
	s.selected = make(map[string]struct{})
	s.selectedOrder = nil
}
