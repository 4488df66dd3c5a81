// Package service orchestrates the review workflow: listing and loading
// studies through the cache, seeding decision state, and running decision
// submission against the processing API.
package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/study-review-server/internal/actionlog"
	"github.com/study-review-server/internal/cache"
	"github.com/study-review-server/internal/decision"
	"github.com/study-review-server/internal/domain"
	"github.com/study-review-server/internal/mapper"
	"github.com/study-review-server/pkg/backend"
)

// ReviewService is the application core behind the HTTP surface.
type ReviewService struct {
	client backend.Service
	cache  *cache.StudyCache
	stores *decision.Manager
	trail  *actionlog.Log
	logger *logrus.Logger

	submitter *decision.Submitter
}

// NewReviewService wires the service to its collaborators.
func NewReviewService(client backend.Service, studyCache *cache.StudyCache, stores *decision.Manager, trail *actionlog.Log, logger *logrus.Logger) *ReviewService {
	s := &ReviewService{
		client: client,
		cache:  studyCache,
		stores: stores,
		trail:  trail,
		logger: logger,
	}
	s.submitter = decision.NewSubmitter(client, cacheInvalidator{studyCache, logger}, logger)
	return s
}

// ActionTrail exposes the review action trail for the log view.
func (s *ReviewService) ActionTrail() *actionlog.Log {
	return s.trail
}

// cacheInvalidator adapts the study cache to the submitter's interface.
type cacheInvalidator struct {
	cache  *cache.StudyCache
	logger *logrus.Logger
}

func (ci cacheInvalidator) InvalidateStudy(ctx context.Context, uid string) {
	if err := ci.cache.InvalidateStudy(ctx, uid); err != nil {
		ci.logger.WithFields(logrus.Fields{
			"study_uid": uid,
			"error":     err.Error(),
		}).Warn("Cache invalidation failed")
	}
}

// ListStudies returns one page of mapped studies. Pages are cached per
// parameter set; a hit skips the upstream entirely.
func (s *ReviewService) ListStudies(ctx context.Context, params domain.ListProcessingsParams) (*domain.StudyPage, error) {
	key := cache.ListKey(params)
	var page domain.StudyPage
	if s.cache.Get(ctx, cache.ScopeList, key, &page) {
		return &page, nil
	}

	resp, err := s.client.ListProcessings(ctx, params)
	if err != nil {
		return nil, err
	}

	perPage := resp.PerPage
	if perPage <= 0 {
		perPage = len(resp.Items)
	}
	totalPages := 1
	if perPage > 0 {
		totalPages = (resp.Total + perPage - 1) / perPage
		if totalPages < 1 {
			totalPages = 1
		}
	}
	page = domain.StudyPage{
		Page:       resp.Page,
		PerPage:    resp.PerPage,
		Total:      resp.Total,
		TotalPages: totalPages,
		Items:      make([]domain.Study, 0, len(resp.Items)),
	}
	for _, item := range resp.Items {
		page.Items = append(page.Items, mapper.MapStudy(item, nil))
	}

	if err := s.cache.Set(ctx, cache.ScopeList, key, page); err != nil {
		s.logger.WithField("error", err.Error()).Warn("Caching study page failed")
	}
	return &page, nil
}

// GetStudy loads one study with its pathology records. The upstream has
// no single-study endpoint, so a miss resolves through a uid-scoped list
// query; a uid absent from that response is a terminal not-found.
func (s *ReviewService) GetStudy(ctx context.Context, uid string) (*domain.Study, error) {
	var study domain.Study
	if s.cache.Get(ctx, cache.ScopeStudy, uid, &study) {
		return &study, nil
	}

	resp, err := s.client.ListProcessings(ctx, domain.ListProcessingsParams{
		Page:        1,
		PerPage:     1,
		SearchQuery: uid,
	})
	if err != nil {
		return nil, err
	}

	var found *domain.Processing
	for i := range resp.Items {
		if resp.Items[i].UID == uid {
			found = &resp.Items[i]
			break
		}
	}
	if found == nil {
		return nil, domain.NewReviewError(domain.ErrNotFound, "study not found", uid)
	}

	records, err := s.loadPathologies(ctx, uid)
	if err != nil {
		return nil, err
	}

	study = mapper.MapStudy(*found, records)
	if err := s.cache.Set(ctx, cache.ScopeStudy, uid, study); err != nil {
		s.logger.WithField("error", err.Error()).Warn("Caching study failed")
	}
	return &study, nil
}

// StudyPathologies returns the review states for a study, seeding the
// decision store from server records. Seeding defers to local state once
// the reviewer has made changes.
func (s *ReviewService) StudyPathologies(ctx context.Context, uid string) ([]domain.PathologyState, error) {
	records, err := s.loadPathologies(ctx, uid)
	if err != nil {
		return nil, err
	}

	store := s.stores.GetOrCreate(uid)
	store.Seed(records)
	return store.States(), nil
}

// Decide records an accept or reject on one pathology of a loaded study.
func (s *ReviewService) Decide(ctx context.Context, uid, pathologyKey string, action domain.DecisionAction) ([]domain.PathologyState, error) {
	store, err := s.loadedStore(uid)
	if err != nil {
		return nil, err
	}
	before, _ := store.State(pathologyKey)
	if err := store.Decide(pathologyKey, action); err != nil {
		return nil, err
	}
	after, _ := store.State(pathologyKey)
	s.trail.Record(actionlog.Entry{
		Action:       actionlog.ActionDecision,
		StudyUID:     uid,
		PathologyKey: pathologyKey,
		OldValue:     string(before.Status),
		NewValue:     string(after.Status),
		Details:      fmt.Sprintf("pathology %s %sed", pathologyKey, action),
	})
	return store.States(), nil
}

// BeginCorrection opens manual editing on an accepted pathology.
func (s *ReviewService) BeginCorrection(ctx context.Context, uid, pathologyKey string) ([]domain.PathologyState, error) {
	store, err := s.loadedStore(uid)
	if err != nil {
		return nil, err
	}
	if err := store.BeginEdit(pathologyKey); err != nil {
		return nil, err
	}
	return store.States(), nil
}

// SaveCorrection stores the edited text, marking the pathology corrected.
func (s *ReviewService) SaveCorrection(ctx context.Context, uid, pathologyKey, text string) ([]domain.PathologyState, error) {
	store, err := s.loadedStore(uid)
	if err != nil {
		return nil, err
	}
	before, _ := store.State(pathologyKey)
	if err := store.SaveEdit(pathologyKey, text); err != nil {
		return nil, err
	}
	after, _ := store.State(pathologyKey)
	s.trail.Record(actionlog.Entry{
		Action:       actionlog.ActionCorrection,
		StudyUID:     uid,
		PathologyKey: pathologyKey,
		OldValue:     before.EditedText,
		NewValue:     after.EditedText,
		Details:      fmt.Sprintf("pathology %s text corrected", pathologyKey),
	})
	return store.States(), nil
}

// CancelCorrection abandons an open edit.
func (s *ReviewService) CancelCorrection(ctx context.Context, uid, pathologyKey string) ([]domain.PathologyState, error) {
	store, err := s.loadedStore(uid)
	if err != nil {
		return nil, err
	}
	if err := store.CancelEdit(pathologyKey); err != nil {
		return nil, err
	}
	return store.States(), nil
}

// DecisionProgress reports whether every pathology is decided and the
// resulting diagnosis label.
func (s *ReviewService) DecisionProgress(uid string) (bool, domain.DiagnosisLabel, error) {
	store, err := s.loadedStore(uid)
	if err != nil {
		return false, "", err
	}
	return store.AllDecided(), store.DiagnosisLabel(), nil
}

// SubmitDecisions sends the full decision batch upstream. After a
// confirmed submit the store is released so the next read reseeds from
// server truth; Release keeps it alive when further edits landed while
// the batch was in flight.
func (s *ReviewService) SubmitDecisions(ctx context.Context, uid string) error {
	store, err := s.loadedStore(uid)
	if err != nil {
		return err
	}
	pathologies := len(store.States())
	if err := s.submitter.Submit(ctx, store); err != nil {
		return err
	}
	s.trail.Record(actionlog.Entry{
		Action:   actionlog.ActionSubmit,
		StudyUID: uid,
		Details:  fmt.Sprintf("submitted %d pathology decisions", pathologies),
	})
	s.stores.Release(uid)
	return nil
}

// UpdateStudy overwrites study status and pathology keys upstream and
// drops every cached view of it.
func (s *ReviewService) UpdateStudy(ctx context.Context, uid string, req domain.UpdateProcessingRequest) (*domain.Study, error) {
	updated, err := s.client.UpdateProcessing(ctx, uid, req)
	if err != nil {
		return nil, err
	}
	if err := s.cache.InvalidateStudy(ctx, uid); err != nil {
		s.logger.WithFields(logrus.Fields{
			"study_uid": uid,
			"error":     err.Error(),
		}).Warn("Cache invalidation failed")
	}

	study := mapper.MapStudy(*updated, nil)
	return &study, nil
}

// StudiesForAnalytics loads a single large page for metric derivation.
func (s *ReviewService) StudiesForAnalytics(ctx context.Context, fetchLimit int) ([]domain.Study, error) {
	page, err := s.ListStudies(ctx, domain.ListProcessingsParams{Page: 1, PerPage: fetchLimit})
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// CacheHealthy reports cache liveness for the health endpoint.
func (s *ReviewService) CacheHealthy(ctx context.Context) bool {
	return s.cache.IsHealthy(ctx)
}

func (s *ReviewService) loadPathologies(ctx context.Context, uid string) ([]domain.ProcessingPathology, error) {
	var records []domain.ProcessingPathology
	if s.cache.Get(ctx, cache.ScopePathologies, uid, &records) {
		return records, nil
	}
	records, err := s.client.GetPathologies(ctx, uid)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, cache.ScopePathologies, uid, records); err != nil {
		s.logger.WithField("error", err.Error()).Warn("Caching pathologies failed")
	}
	return records, nil
}

// loadedStore fetches the decision store for a study the caller has
// already loaded; absent state is a not-found, not an implicit create.
func (s *ReviewService) loadedStore(uid string) (*decision.Store, error) {
	store := s.stores.Get(uid)
	if store == nil {
		return nil, domain.NewReviewError(domain.ErrNotFound, "no loaded decision state for study", uid)
	}
	return store, nil
}
