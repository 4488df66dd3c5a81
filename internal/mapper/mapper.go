// Package mapper translates backend wire records into the dashboard's
// internal shapes. Pure translation: no caching, no side effects, and no
// failures for unknown taxonomy values.
package mapper

import (
	"time"

	"github.com/study-review-server/internal/domain"
	"github.com/study-review-server/internal/registry"
)

// MapStatus collapses the backend status taxonomy onto the dashboard one.
// Total and deterministic: every wire status maps to exactly one UI status
// and unrecognized values fail safe to processing_error.
func MapStatus(status domain.ProcessingStatus) domain.StudyStatus {
	switch status {
	case domain.ProcessingSuccess:
		return domain.StudyStatusCompleted
	case domain.ProcessingInProgress:
		return domain.StudyStatusProcessing
	case domain.ProcessingPreconditionError,
		domain.ProcessingConfigurationError,
		domain.ProcessingError,
		domain.ProcessingGenerationError,
		domain.ProcessingUploadError:
		return domain.StudyStatusProcessingError
	default:
		return domain.StudyStatusProcessingError
	}
}

// MapStatusToWire maps a dashboard status back to the wire taxonomy, for
// composing the status filter of the listing endpoint.
func MapStatusToWire(status domain.StudyStatus) domain.ProcessingStatus {
	switch status {
	case domain.StudyStatusCompleted:
		return domain.ProcessingSuccess
	case domain.StudyStatusProcessing:
		return domain.ProcessingInProgress
	case domain.StudyStatusProcessingError, domain.StudyStatusDataError:
		return domain.ProcessingError
	default:
		return domain.ProcessingError
	}
}

// MapRecommendationStatus maps the wire review state to the reviewer-facing
// decision state. Unrecognized values are treated as pending.
func MapRecommendationStatus(status domain.RecommendationStatus) domain.PathologyStatus {
	switch status {
	case domain.RecommendationAccepted:
		return domain.PathologyAccepted
	case domain.RecommendationRejected:
		return domain.PathologyRejected
	default:
		return domain.PathologyPending
	}
}

// MapDecisionToWire serializes a reviewer decision for the backend.
// Corrected is a UI-layer distinction, it goes to the wire as accepted.
func MapDecisionToWire(status domain.PathologyStatus) domain.RecommendationStatus {
	switch status {
	case domain.PathologyAccepted, domain.PathologyCorrected:
		return domain.RecommendationAccepted
	case domain.PathologyRejected:
		return domain.RecommendationRejected
	default:
		return domain.RecommendationPending
	}
}

// FilterVisible drops rejected findings. Every summary surface (list badges,
// physician aggregation) works on the visible set; the full set remains
// available in the per-pathology detail view.
func FilterVisible(pathologies []domain.ProcessingPathology) []domain.ProcessingPathology {
	visible := make([]domain.ProcessingPathology, 0, len(pathologies))
	for _, p := range pathologies {
		if p.RecommendationStatus == domain.RecommendationPending ||
			p.RecommendationStatus == domain.RecommendationAccepted {
			visible = append(visible, p)
		}
	}
	return visible
}

// DisplayPathologyNames returns display names of the visible findings in
// backend-reported order. Aliased keys collapse to one entry, so a study
// never shows the same pathology twice.
func DisplayPathologyNames(pathologies []domain.ProcessingPathology) []string {
	visible := FilterVisible(pathologies)
	seen := make(map[string]struct{}, len(visible))
	names := make([]string, 0, len(visible))
	for _, p := range visible {
		name := registry.DisplayName(p.PathologyKey)
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// RecommendedPhysicians aggregates registry-recommended physician display
// names over the visible findings: first-seen order, duplicates collapsed.
func RecommendedPhysicians(pathologies []domain.ProcessingPathology) []string {
	visible := FilterVisible(pathologies)
	seen := make(map[string]struct{})
	var names []string
	for _, p := range visible {
		for _, key := range registry.RecommendedPhysicians(p.PathologyKey) {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			names = append(names, registry.PhysicianDisplayName(key))
		}
	}
	return names
}

// APIRecommendedPhysicians aggregates the backend-assigned physician keys of
// the visible findings, same ordering and uniqueness rules.
func APIRecommendedPhysicians(pathologies []domain.ProcessingPathology) []string {
	visible := FilterVisible(pathologies)
	seen := make(map[string]struct{})
	var names []string
	for _, p := range visible {
		key := p.RecommendationPhysicianKey
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, registry.PhysicianDisplayName(key))
	}
	return names
}

// MapStudy builds a Study from a processing record and, when already
// loaded, its pathology records.
func MapStudy(p domain.Processing, pathologies []domain.ProcessingPathology) domain.Study {
	study := domain.Study{
		UID:              p.UID,
		StudyInstanceUID: p.StudyInstanceUID,
		PatientID:        p.PatientID,
		PatientName:      p.PatientName,
		Date:             ParseWireTime(p.StudyCreatedAt),
		Status:           MapStatus(p.Status),
		Pathology:        []string{},
		StatusKey:        p.Status,
	}
	if p.Status == domain.ProcessingSuccess {
		study.DescriptionStatus = domain.DescriptionCompleted
	} else {
		study.DescriptionStatus = domain.DescriptionInProgress
	}
	if pathologies != nil {
		study.Pathology = DisplayPathologyNames(pathologies)
		study.DoctorRecommendations = APIRecommendedPhysicians(pathologies)
		study.PathologyKeys = pathologyKeys(pathologies)
	}
	return study
}

// MapPathologyState seeds a decision state from a wire pathology record.
func MapPathologyState(p domain.ProcessingPathology) domain.PathologyState {
	text := registry.DisplayName(p.PathologyKey)
	state := domain.PathologyState{
		ID:           p.PathologyKey,
		Status:       MapRecommendationStatus(p.RecommendationStatus),
		OriginalText: text,
		EditedText:   text,
	}
	if state.Status != domain.PathologyPending {
		if ts := ParseWireTime(p.UpdatedAt); !ts.IsZero() {
			state.Timestamp = &ts
		}
	}
	return state
}

// IsEffectivelyComplete is the cross-cutting display rule layered on top of
// the raw description status: a study also counts as completed when it has
// no findings at all, when it sits in an error state, or when the reviewer
// has rejected every finding. It depends on decision state, so it lives
// outside MapStudy.
func IsEffectivelyComplete(study domain.Study, states map[string]domain.PathologyState) bool {
	if study.DescriptionStatus == domain.DescriptionCompleted {
		return true
	}
	if study.Status == domain.StudyStatusProcessingError || study.Status == domain.StudyStatusDataError {
		return true
	}
	if len(states) == 0 {
		return true
	}
	for _, s := range states {
		if s.Status != domain.PathologyRejected {
			return false
		}
	}
	return true
}

// NoDataForStudy reports whether finding summaries should be suppressed for
// the study (still processing, or failed).
func NoDataForStudy(study domain.Study) bool {
	switch study.Status {
	case domain.StudyStatusProcessing,
		domain.StudyStatusProcessingError,
		domain.StudyStatusDataError:
		return true
	}
	return false
}

// ParseWireTime parses backend timestamps. The backend emits RFC 3339 with
// or without fractional seconds; a second-precision local form shows up in
// older records. Unparseable values yield the zero time.
func ParseWireTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func pathologyKeys(pathologies []domain.ProcessingPathology) []string {
	seen := make(map[string]struct{}, len(pathologies))
	keys := make([]string, 0, len(pathologies))
	for _, p := range pathologies {
		if _, dup := seen[p.PathologyKey]; dup {
			continue
		}
		seen[p.PathologyKey] = struct{}{}
		keys = append(keys, p.PathologyKey)
	}
	return keys
}
