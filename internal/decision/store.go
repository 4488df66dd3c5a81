// Package decision implements the per-study pathology decision store and
// the submit-and-reconcile protocol. Local decisions are authoritative
// between first load and a confirmed submit; the server is authoritative at
// load time and immediately after.
package decision

import (
	"strings"
	"sync"
	"time"

	"github.com/study-review-server/internal/domain"
	"github.com/study-review-server/internal/mapper"
)

// Store holds the reviewer decisions for one study, keyed by pathology key.
// A Store is owned by a single study view; the mutex covers interleaving
// between view actions and background refetch seeding.
type Store struct {
	mu       sync.Mutex
	studyUID string

	// order preserves the backend-reported pathology order.
	order  []string
	states map[string]*domain.PathologyState

	// serverStatus is the last-known wire status per key, the submit
	// fallback for keys the reviewer never touched.
	serverStatus map[string]domain.RecommendationStatus

	initialized    bool
	hasUserChanges bool
	submitting     bool

	// changeSeq counts local edits; submitSeq is its value at the time the
	// in-flight batch was snapshotted. They diverge when the reviewer keeps
	// deciding while a submit is in flight.
	changeSeq uint64
	submitSeq uint64

	now func() time.Time
}

// NewStore creates an empty decision store for a study.
func NewStore(studyUID string) *Store {
	return &Store{
		studyUID:     studyUID,
		states:       make(map[string]*domain.PathologyState),
		serverStatus: make(map[string]domain.RecommendationStatus),
		now:          time.Now,
	}
}

// StudyUID returns the study this store belongs to.
func (s *Store) StudyUID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.studyUID
}

// Seed initializes the store from a server pathology snapshot. It applies
// on first load and on any refetch while the reviewer has no in-flight
// edits; once hasUserChanges is set, seeding is a no-op until a successful
// submit clears it, so local decisions are never clobbered by a background
// refresh. Returns whether the snapshot was applied.
func (s *Store) Seed(records []domain.ProcessingPathology) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasUserChanges {
		return false
	}

	s.order = s.order[:0]
	s.states = make(map[string]*domain.PathologyState, len(records))
	s.serverStatus = make(map[string]domain.RecommendationStatus, len(records))
	for _, r := range records {
		if _, dup := s.states[r.PathologyKey]; dup {
			// a pathology key never appears twice for one study
			continue
		}
		state := mapper.MapPathologyState(r)
		s.states[r.PathologyKey] = &state
		s.serverStatus[r.PathologyKey] = r.RecommendationStatus
		s.order = append(s.order, r.PathologyKey)
	}
	s.initialized = true
	return true
}

// Initialized reports whether the store has been seeded at least once.
func (s *Store) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// HasUserChanges reports whether local edits exist that a refetch must not
// overwrite.
func (s *Store) HasUserChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasUserChanges
}

// Decide applies an accept or reject action to one finding. Acting on a key
// the store does not know is a precondition violation and returns a typed
// error; it usually indicates a data-mapping bug upstream.
func (s *Store) Decide(pathologyKey string, action domain.DecisionAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[pathologyKey]
	if !ok {
		return domain.NewReviewError(domain.ErrUnknownPathology,
			"unknown pathology key for study", pathologyKey)
	}

	switch action {
	case domain.ActionAccept:
		state.Status = domain.PathologyAccepted
	case domain.ActionReject:
		state.Status = domain.PathologyRejected
	default:
		return domain.NewValidationError("action", "must be accept or reject", string(action))
	}

	ts := s.now()
	state.Timestamp = &ts
	state.IsEditing = false
	state.EditedText = state.OriginalText
	s.hasUserChanges = true
	s.changeSeq++
	return nil
}

// BeginEdit opens the manual free-text entry path for an accepted finding.
func (s *Store) BeginEdit(pathologyKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[pathologyKey]
	if !ok {
		return domain.NewReviewError(domain.ErrUnknownPathology,
			"unknown pathology key for study", pathologyKey)
	}
	if state.Status != domain.PathologyAccepted && state.Status != domain.PathologyCorrected {
		return domain.NewValidationError("status", "only accepted findings can be edited", string(state.Status))
	}
	state.IsEditing = true
	return nil
}

// SaveEdit commits an edited diagnosis text, moving the finding to the
// corrected state. An empty text is rejected locally, no state changes.
func (s *Store) SaveEdit(pathologyKey, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[pathologyKey]
	if !ok {
		return domain.NewReviewError(domain.ErrUnknownPathology,
			"unknown pathology key for study", pathologyKey)
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return domain.NewValidationError("text", "diagnosis text must not be empty", text)
	}

	state.EditedText = trimmed
	state.Status = domain.PathologyCorrected
	state.IsEditing = false
	ts := s.now()
	state.Timestamp = &ts
	s.hasUserChanges = true
	s.changeSeq++
	return nil
}

// CancelEdit discards an in-progress edit, restoring the accepted state.
func (s *Store) CancelEdit(pathologyKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[pathologyKey]
	if !ok {
		return domain.NewReviewError(domain.ErrUnknownPathology,
			"unknown pathology key for study", pathologyKey)
	}
	state.IsEditing = false
	state.EditedText = state.OriginalText
	if state.Status == domain.PathologyCorrected {
		state.Status = domain.PathologyAccepted
	}
	return nil
}

// AllDecided reports whether no finding remains pending. A study with zero
// findings is vacuously decided.
func (s *Store) AllDecided() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, state := range s.states {
		if state.Status == domain.PathologyPending {
			return false
		}
	}
	return true
}

// DiagnosisLabel rolls the per-finding decisions up to the study level.
func (s *Store) DiagnosisLabel() domain.DiagnosisLabel {
	s.mu.Lock()
	defer s.mu.Unlock()

	allRejected := true
	for _, state := range s.states {
		switch state.Status {
		case domain.PathologyPending:
			return domain.DiagnosisNotReviewed
		case domain.PathologyRejected:
		default:
			allRejected = false
		}
	}
	if len(s.states) > 0 && allRejected {
		return domain.DiagnosisAllRejected
	}
	return domain.DiagnosisConfirmed
}

// State returns a copy of one finding's decision state.
func (s *Store) State(pathologyKey string) (domain.PathologyState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[pathologyKey]
	if !ok {
		return domain.PathologyState{}, false
	}
	return *state, true
}

// States returns a snapshot of all decision states in backend order.
func (s *Store) States() []domain.PathologyState {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.PathologyState, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, *s.states[key])
	}
	return out
}

// StateMap returns a snapshot keyed by pathology key.
func (s *Store) StateMap() map[string]domain.PathologyState {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]domain.PathologyState, len(s.states))
	for key, state := range s.states {
		out[key] = *state
	}
	return out
}

// beginSubmit marks a submission in flight and snapshots the outgoing
// batch: the local decision for every touched key, the last-known server
// status for the rest, so untouched keys are never reset to pending.
func (s *Store) beginSubmit() ([]domain.PathologyUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitting {
		return nil, domain.NewReviewError(domain.ErrSubmitInFlight,
			"a submission is already in flight for this study", s.studyUID)
	}

	updates := make([]domain.PathologyUpdate, 0, len(s.order))
	for _, key := range s.order {
		status := s.serverStatus[key]
		if state := s.states[key]; state.Decided() {
			status = mapper.MapDecisionToWire(state.Status)
		}
		updates = append(updates, domain.PathologyUpdate{
			PathologyKey:         key,
			RecommendationStatus: status,
		})
	}
	s.submitting = true
	s.submitSeq = s.changeSeq
	return updates, nil
}

// finishSubmit closes the in-flight submission. On success the committed
// statuses become the new server truth; the user-changes guard resets only
// when no further edits landed while the batch was in flight, so a decision
// made during the submit stays protected until its own submit. On failure
// local state is left untouched so the reviewer can retry.
func (s *Store) finishSubmit(committed []domain.PathologyUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.submitting = false
	if committed == nil {
		return
	}
	for _, u := range committed {
		s.serverStatus[u.PathologyKey] = u.RecommendationStatus
	}
	if s.changeSeq == s.submitSeq {
		s.hasUserChanges = false
	}
}
