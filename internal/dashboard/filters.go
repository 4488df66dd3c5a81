// Package dashboard composes the list-view state: declarative filters with
// a draft/applied split, a stable multi-key sort, and a page-window slicer.
// Filters compose either into backend query parameters (server-paginated
// path) or into an in-memory predicate (client path).
package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/study-review-server/internal/domain"
	"github.com/study-review-server/internal/mapper"
)

// TimeOfDay is an optional intra-day bound of the date filter.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var t TimeOfDay
	if _, err := fmt.Sscanf(s, "%d:%d", &t.Hour, &t.Minute); err != nil {
		return TimeOfDay{}, domain.NewValidationError("time", "expected HH:MM", s)
	}
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return TimeOfDay{}, domain.NewValidationError("time", "out of range", s)
	}
	return t, nil
}

// Minutes returns the minute-of-day value.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Filters is one flat record of optional predicates. A nil/empty field
// means "no filter on this dimension"; there is no "all" sentinel value.
type Filters struct {
	// Search matches study uid or patient id, case-insensitive substring.
	Search      string `json:"search,omitempty"`
	PatientName string `json:"patient_name,omitempty"`

	// Date restricts to a single calendar day, optionally narrowed by a
	// time-of-day range.
	Date     *time.Time `json:"date,omitempty"`
	TimeFrom *TimeOfDay `json:"time_from,omitempty"`
	TimeTo   *TimeOfDay `json:"time_to,omitempty"`

	Status            *domain.StudyStatus       `json:"status,omitempty"`
	PathologyKeys     []string                  `json:"pathology_keys,omitempty"`
	DescriptionStatus *domain.DescriptionStatus `json:"description_status,omitempty"`
}

// Equal is structural equality; it backs the hasFiltersChanged flag.
func (f Filters) Equal(o Filters) bool {
	if f.Search != o.Search || f.PatientName != o.PatientName {
		return false
	}
	if !equalTime(f.Date, o.Date) {
		return false
	}
	if !equalTimeOfDay(f.TimeFrom, o.TimeFrom) || !equalTimeOfDay(f.TimeTo, o.TimeTo) {
		return false
	}
	if (f.Status == nil) != (o.Status == nil) || (f.Status != nil && *f.Status != *o.Status) {
		return false
	}
	if (f.DescriptionStatus == nil) != (o.DescriptionStatus == nil) ||
		(f.DescriptionStatus != nil && *f.DescriptionStatus != *o.DescriptionStatus) {
		return false
	}
	if len(f.PathologyKeys) != len(o.PathologyKeys) {
		return false
	}
	for i := range f.PathologyKeys {
		if f.PathologyKeys[i] != o.PathologyKeys[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the filter record.
func (f Filters) Clone() Filters {
	c := f
	if f.Date != nil {
		d := *f.Date
		c.Date = &d
	}
	if f.TimeFrom != nil {
		t := *f.TimeFrom
		c.TimeFrom = &t
	}
	if f.TimeTo != nil {
		t := *f.TimeTo
		c.TimeTo = &t
	}
	if f.Status != nil {
		s := *f.Status
		c.Status = &s
	}
	if f.DescriptionStatus != nil {
		s := *f.DescriptionStatus
		c.DescriptionStatus = &s
	}
	if f.PathologyKeys != nil {
		c.PathologyKeys = append([]string(nil), f.PathologyKeys...)
	}
	return c
}

// QueryParams composes the applied filters into backend listing parameters
// for the server-paginated path.
func (f Filters) QueryParams(page, perPage int) domain.ListProcessingsParams {
	params := domain.ListProcessingsParams{
		Page:    page,
		PerPage: perPage,
	}
	if f.Search != "" {
		params.SearchQuery = f.Search
	}
	if f.PatientName != "" {
		params.PatientName = f.PatientName
	}
	if f.Date != nil {
		day := *f.Date
		from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
		to := time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, int(999*time.Millisecond), day.Location())
		if f.TimeFrom != nil {
			from = time.Date(day.Year(), day.Month(), day.Day(), f.TimeFrom.Hour, f.TimeFrom.Minute, 0, 0, day.Location())
		}
		if f.TimeTo != nil {
			to = time.Date(day.Year(), day.Month(), day.Day(), f.TimeTo.Hour, f.TimeTo.Minute, 59, int(999*time.Millisecond), day.Location())
		}
		params.StudyCreatedAtGTE = from.Format(time.RFC3339)
		params.StudyCreatedAtLTE = to.Format(time.RFC3339)
	}
	if f.Status != nil {
		params.Status = mapper.MapStatusToWire(*f.Status)
	}
	if len(f.PathologyKeys) > 0 {
		params.PathologyKeys = append([]string(nil), f.PathologyKeys...)
	}
	return params
}

// Match is the in-memory predicate form of the same filters, for the
// client-paginated path and for derived analytics over a loaded set.
func (f Filters) Match(study domain.Study) bool {
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(study.UID), q) &&
			!strings.Contains(strings.ToLower(study.PatientID), q) {
			return false
		}
	}
	if f.PatientName != "" {
		if !strings.Contains(strings.ToLower(study.PatientName), strings.ToLower(f.PatientName)) {
			return false
		}
	}
	if f.Date != nil {
		y1, m1, d1 := f.Date.Date()
		y2, m2, d2 := study.Date.Date()
		if y1 != y2 || m1 != m2 || d1 != d2 {
			return false
		}
	}
	if f.TimeFrom != nil || f.TimeTo != nil {
		minute := study.Date.Hour()*60 + study.Date.Minute()
		if f.TimeFrom != nil && minute < f.TimeFrom.Minutes() {
			return false
		}
		if f.TimeTo != nil && minute > f.TimeTo.Minutes() {
			return false
		}
	}
	if f.Status != nil && study.Status != *f.Status {
		return false
	}
	if f.DescriptionStatus != nil && study.DescriptionStatus != *f.DescriptionStatus {
		return false
	}
	if len(f.PathologyKeys) > 0 && !f.matchPathology(study) {
		return false
	}
	return true
}

func (f Filters) matchPathology(study domain.Study) bool {
	for _, want := range f.PathologyKeys {
		for _, have := range study.PathologyKeys {
			if have == want {
				return true
			}
		}
	}
	return false
}

func equalTime(a, b *time.Time) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || a.Equal(*b)
}

func equalTimeOfDay(a, b *TimeOfDay) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}
