// Package analytics derives aggregate views from a loaded study set:
// daily volume, pathology frequency, status distribution and the mock
// revenue figure shown while billing integration is out of scope.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/study-review-server/internal/domain"
	"github.com/study-review-server/internal/registry"
)

// DefaultWindowDays is the daily-volume lookback.
const DefaultWindowDays = 30

// DefaultTopN caps the pathology frequency chart.
const DefaultTopN = 8

// DailyCount is one calendar-day bucket of the volume chart.
type DailyCount struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// PathologyCount is one bar of the frequency chart.
type PathologyCount struct {
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
	Count       int    `json:"count"`
}

// StatusShare is one slice of the status distribution.
type StatusShare struct {
	Status  domain.StudyStatus `json:"status"`
	Count   int                `json:"count"`
	Percent int                `json:"percent"`
}

// Summary bundles every derived metric for one study set.
type Summary struct {
	TotalStudies       int              `json:"total_studies"`
	CompletedStudies   int              `json:"completed_studies"`
	TotalRevenue       int              `json:"total_revenue"`
	DailyCounts        []DailyCount     `json:"daily_counts"`
	PathologyFrequency []PathologyCount `json:"pathology_frequency"`
	StatusRatio        []StatusShare    `json:"status_ratio"`
}

// Engine computes metrics over study snapshots. The clock is injectable
// so window boundaries are testable.
type Engine struct {
	windowDays int
	topN       int
	now        func() time.Time
}

// NewEngine builds an engine with the given window and chart cap; zero
// or negative values fall back to the defaults.
func NewEngine(windowDays, topN int) *Engine {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Engine{windowDays: windowDays, topN: topN, now: time.Now}
}

// DailyCounts returns exactly windowDays buckets ending today, oldest
// first. Days with no studies appear with a zero count; studies outside
// the window are ignored.
func (e *Engine) DailyCounts(studies []domain.Study) []DailyCount {
	today := e.now()
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location()).
		AddDate(0, 0, -(e.windowDays - 1))

	counts := make([]DailyCount, e.windowDays)
	index := make(map[string]int, e.windowDays)
	for i := 0; i < e.windowDays; i++ {
		key := start.AddDate(0, 0, i).Format("2006-01-02")
		counts[i] = DailyCount{Date: key}
		index[key] = i
	}
	for _, study := range studies {
		if study.Date.IsZero() {
			continue
		}
		if i, ok := index[study.Date.Format("2006-01-02")]; ok {
			counts[i].Count++
		}
	}
	return counts
}

// PathologyFrequency counts pathology keys across the set and returns
// the topN entries, descending. Ties keep first-seen order, which the
// stable sort preserves.
func (e *Engine) PathologyFrequency(studies []domain.Study) []PathologyCount {
	var order []string
	counts := make(map[string]int)
	for _, study := range studies {
		for _, key := range study.PathologyKeys {
			if _, seen := counts[key]; !seen {
				order = append(order, key)
			}
			counts[key]++
		}
	}

	out := make([]PathologyCount, 0, len(order))
	for _, key := range order {
		out = append(out, PathologyCount{
			Key:         key,
			DisplayName: registry.DisplayName(key),
			Count:       counts[key],
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > e.topN {
		out = out[:e.topN]
	}
	return out
}

// StatusRatio returns the per-status share of the set, percentages
// rounded to whole numbers. Statuses with zero studies are omitted.
func (e *Engine) StatusRatio(studies []domain.Study) []StatusShare {
	if len(studies) == 0 {
		return []StatusShare{}
	}
	statusOrder := []domain.StudyStatus{
		domain.StudyStatusCompleted,
		domain.StudyStatusProcessing,
		domain.StudyStatusProcessingError,
		domain.StudyStatusDataError,
	}
	counts := make(map[domain.StudyStatus]int)
	for _, study := range studies {
		counts[study.Status]++
	}

	total := len(studies)
	out := make([]StatusShare, 0, len(statusOrder))
	for _, status := range statusOrder {
		n := counts[status]
		if n == 0 {
			continue
		}
		out = append(out, StatusShare{
			Status:  status,
			Count:   n,
			Percent: int(math.Round(float64(n) / float64(total) * 100)),
		})
	}
	return out
}

// MockRevenue returns the placeholder revenue figure for a study, or
// false when the study has no completed description. The value is a
// pure function of the uid, so it is stable across reloads: a linear
// congruential step seeded by the uid's character sum, scaled into
// [2500, 7500] in increments of 100.
func MockRevenue(study domain.Study) (int, bool) {
	if study.DescriptionStatus != domain.DescriptionCompleted {
		return 0, false
	}
	var seed int64
	for _, r := range study.UID {
		seed += int64(r)
	}
	r := float64((seed*9301+49297)%233280) / 233280.0
	return int(math.Floor(r*50))*100 + 2500, true
}

// Summarize computes the full metric bundle in one pass over the set.
func (e *Engine) Summarize(studies []domain.Study) Summary {
	s := Summary{
		TotalStudies:       len(studies),
		DailyCounts:        e.DailyCounts(studies),
		PathologyFrequency: e.PathologyFrequency(studies),
		StatusRatio:        e.StatusRatio(studies),
	}
	for _, study := range studies {
		if revenue, ok := MockRevenue(study); ok {
			s.CompletedStudies++
			s.TotalRevenue += revenue
		}
	}
	return s
}
