package dashboard

import (
	"sort"

	"github.com/study-review-server/internal/domain"
)

// SortField names a sortable column of the study list.
type SortField string

const (
	SortByDate              SortField = "date"
	SortByUID               SortField = "uid"
	SortByPatientID         SortField = "patientId"
	SortByStatus            SortField = "status"
	SortByDescriptionStatus SortField = "descriptionStatus"
)

// Direction is asc or desc.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// SortConfig is the active sort of the list view.
type SortConfig struct {
	Field     SortField `json:"field"`
	Direction Direction `json:"direction"`
}

// DefaultSort orders newest studies first.
func DefaultSort() SortConfig {
	return SortConfig{Field: SortByDate, Direction: Descending}
}

// Toggle returns the config after a header click: same field flips the
// direction, a new field starts ascending.
func (c SortConfig) Toggle(field SortField) SortConfig {
	if c.Field == field {
		if c.Direction == Ascending {
			return SortConfig{Field: field, Direction: Descending}
		}
		return SortConfig{Field: field, Direction: Ascending}
	}
	return SortConfig{Field: field, Direction: Ascending}
}

// SortStudies returns a sorted copy of studies. The sort is stable, so
// records that compare equal keep their original relative order.
func SortStudies(studies []domain.Study, cfg SortConfig) []domain.Study {
	out := append([]domain.Study(nil), studies...)
	less := comparator(cfg.Field)
	if less == nil {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		if cfg.Direction == Descending {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

func comparator(field SortField) func(a, b domain.Study) bool {
	switch field {
	case SortByDate:
		return func(a, b domain.Study) bool { return a.Date.Before(b.Date) }
	case SortByUID:
		return func(a, b domain.Study) bool { return a.UID < b.UID }
	case SortByPatientID:
		return func(a, b domain.Study) bool { return a.PatientID < b.PatientID }
	case SortByStatus:
		return func(a, b domain.Study) bool { return a.Status < b.Status }
	case SortByDescriptionStatus:
		return func(a, b domain.Study) bool {
			return descriptionRank(a.DescriptionStatus) < descriptionRank(b.DescriptionStatus)
		}
	default:
		return nil
	}
}

// descriptionRank orders completed above in-progress so that a descending
// sort surfaces finished descriptions first.
func descriptionRank(s domain.DescriptionStatus) int {
	switch s {
	case domain.DescriptionCompleted:
		return 2
	case domain.DescriptionInProgress:
		return 1
	default:
		return 0
	}
}
