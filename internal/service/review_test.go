package service

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/study-review-server/internal/actionlog"
	"github.com/study-review-server/internal/cache"
	"github.com/study-review-server/internal/decision"
	"github.com/study-review-server/internal/domain"
)

type fakeBackend struct {
	listCalls      int
	pathologyCalls int
	listResponse   *domain.ListProcessingsResponse
	listErr        error
	pathologies    map[string][]domain.ProcessingPathology
	pathologiesErr error
	updateRequests []domain.UpdateProcessingRequest
	batchRequests  []domain.UpdatePathologiesRequest
	batchErr       error
	reportRequests []*domain.GenerateReportRequest
}

func (f *fakeBackend) ListProcessings(_ context.Context, params domain.ListProcessingsParams) (*domain.ListProcessingsResponse, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	if f.listResponse != nil {
		return f.listResponse, nil
	}
	return &domain.ListProcessingsResponse{Page: params.Page, PerPage: params.PerPage}, nil
}

func (f *fakeBackend) UpdateProcessing(_ context.Context, uid string, req domain.UpdateProcessingRequest) (*domain.Processing, error) {
	f.updateRequests = append(f.updateRequests, req)
	return &domain.Processing{UID: uid, Status: req.Status}, nil
}

func (f *fakeBackend) GetPathologies(_ context.Context, uid string) ([]domain.ProcessingPathology, error) {
	f.pathologyCalls++
	if f.pathologiesErr != nil {
		return nil, f.pathologiesErr
	}
	return f.pathologies[uid], nil
}

func (f *fakeBackend) UpdatePathologies(_ context.Context, uid string, req domain.UpdatePathologiesRequest) ([]domain.ProcessingPathology, error) {
	f.batchRequests = append(f.batchRequests, req)
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	echoed := make([]domain.ProcessingPathology, 0, len(req.Pathologies))
	for _, u := range req.Pathologies {
		echoed = append(echoed, domain.ProcessingPathology{
			PathologyKey:         u.PathologyKey,
			RecommendationStatus: u.RecommendationStatus,
		})
	}
	return echoed, nil
}

func (f *fakeBackend) UpdatePathology(_ context.Context, uid, key string, req domain.UpdatePathologyRequest) (*domain.ProcessingPathology, error) {
	return &domain.ProcessingPathology{PathologyKey: key, RecommendationStatus: req.RecommendationStatus}, nil
}

func (f *fakeBackend) GenerateReport(_ context.Context, req *domain.GenerateReportRequest) error {
	f.reportRequests = append(f.reportRequests, req)
	return nil
}

func newTestService(t *testing.T, client *fakeBackend) *ReviewService {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	studyCache := cache.NewStudyCache(cache.Config{
		DefaultTTL: time.Minute,
		MemorySize: 64,
		Enabled:    true,
	}, logger)
	return NewReviewService(client, studyCache, decision.NewManager(), actionlog.New(100), logger)
}

func pendingRecord(key string) domain.ProcessingPathology {
	return domain.ProcessingPathology{
		PathologyKey:         key,
		RecommendationStatus: domain.RecommendationPending,
	}
}

func TestListStudiesMapsAndCaches(t *testing.T) {
	client := &fakeBackend{
		listResponse: &domain.ListProcessingsResponse{
			Page:    1,
			PerPage: 25,
			Total:   231,
			Items: []domain.Processing{
				{UID: "1.2.3", PatientID: "P-1", Status: domain.ProcessingSuccess, StudyCreatedAt: "2026-03-01T10:00:00Z"},
				{UID: "4.5.6", PatientID: "P-2", Status: domain.ProcessingError},
			},
		},
	}
	svc := newTestService(t, client)
	ctx := context.Background()

	params := domain.ListProcessingsParams{Page: 1, PerPage: 25}
	page, err := svc.ListStudies(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, 231, page.Total)
	assert.Equal(t, 10, page.TotalPages)
	require.Len(t, page.Items, 2)
	assert.Equal(t, domain.StudyStatusCompleted, page.Items[0].Status)
	assert.Equal(t, domain.StudyStatusProcessingError, page.Items[1].Status)

	// Second read with identical params is served from cache.
	_, err = svc.ListStudies(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, 1, client.listCalls)

	// Different params miss the cache.
	_, err = svc.ListStudies(ctx, domain.ListProcessingsParams{Page: 2, PerPage: 25})
	require.NoError(t, err)
	assert.Equal(t, 2, client.listCalls)
}

func TestGetStudyResolvesThroughListLookup(t *testing.T) {
	client := &fakeBackend{
		listResponse: &domain.ListProcessingsResponse{
			Page: 1, PerPage: 1, Total: 1,
			Items: []domain.Processing{
				{UID: "1.2.3", PatientID: "P-1", Status: domain.ProcessingSuccess},
			},
		},
		pathologies: map[string][]domain.ProcessingPathology{
			"1.2.3": {pendingRecord("osteoporosis")},
		},
	}
	svc := newTestService(t, client)
	ctx := context.Background()

	study, err := svc.GetStudy(ctx, "1.2.3")
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", study.UID)
	assert.Equal(t, []string{"osteoporosis"}, study.PathologyKeys)

	// Cached on second read.
	_, err = svc.GetStudy(ctx, "1.2.3")
	require.NoError(t, err)
	assert.Equal(t, 1, client.listCalls)
}

func TestGetStudyNotFound(t *testing.T) {
	client := &fakeBackend{
		listResponse: &domain.ListProcessingsResponse{Page: 1, PerPage: 1},
	}
	svc := newTestService(t, client)

	_, err := svc.GetStudy(context.Background(), "9.9.9")
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
	assert.False(t, domain.IsRetryable(err), "absence is terminal, not retryable")
}

func TestStudyPathologiesSeedsStore(t *testing.T) {
	client := &fakeBackend{
		pathologies: map[string][]domain.ProcessingPathology{
			"1.2.3": {pendingRecord("osteoporosis"), pendingRecord("coronaryCalcium")},
		},
	}
	svc := newTestService(t, client)
	ctx := context.Background()

	states, err := svc.StudyPathologies(ctx, "1.2.3")
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, domain.PathologyPending, states[0].Status)

	// Decide, then re-read: local state survives the refetch.
	_, err = svc.Decide(ctx, "1.2.3", "osteoporosis", domain.ActionAccept)
	require.NoError(t, err)

	states, err = svc.StudyPathologies(ctx, "1.2.3")
	require.NoError(t, err)
	assert.Equal(t, domain.PathologyAccepted, states[0].Status,
		"server records must not clobber local decisions")
}

func TestDecideWithoutLoadedStudy(t *testing.T) {
	svc := newTestService(t, &fakeBackend{})

	_, err := svc.Decide(context.Background(), "9.9.9", "osteoporosis", domain.ActionAccept)
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}

func TestSubmitDecisionsReleasesStore(t *testing.T) {
	client := &fakeBackend{
		pathologies: map[string][]domain.ProcessingPathology{
			"1.2.3": {pendingRecord("osteoporosis")},
		},
	}
	svc := newTestService(t, client)
	ctx := context.Background()

	_, err := svc.StudyPathologies(ctx, "1.2.3")
	require.NoError(t, err)
	_, err = svc.Decide(ctx, "1.2.3", "osteoporosis", domain.ActionReject)
	require.NoError(t, err)

	require.NoError(t, svc.SubmitDecisions(ctx, "1.2.3"))
	require.Len(t, client.batchRequests, 1)
	require.Len(t, client.batchRequests[0].Pathologies, 1)
	assert.Equal(t, domain.RecommendationRejected, client.batchRequests[0].Pathologies[0].RecommendationStatus)

	// Store is gone; deciding again requires a fresh load.
	_, err = svc.Decide(ctx, "1.2.3", "osteoporosis", domain.ActionAccept)
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}

func TestSubmitDecisionsFailureKeepsStore(t *testing.T) {
	client := &fakeBackend{
		pathologies: map[string][]domain.ProcessingPathology{
			"1.2.3": {pendingRecord("osteoporosis")},
		},
		batchErr: domain.NewReviewError(domain.ErrExternalAPI, "upstream unavailable", ""),
	}
	svc := newTestService(t, client)
	ctx := context.Background()

	_, err := svc.StudyPathologies(ctx, "1.2.3")
	require.NoError(t, err)
	_, err = svc.Decide(ctx, "1.2.3", "osteoporosis", domain.ActionReject)
	require.NoError(t, err)

	require.Error(t, svc.SubmitDecisions(ctx, "1.2.3"))

	// State survives for retry.
	states, err := svc.StudyPathologies(ctx, "1.2.3")
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, domain.PathologyRejected, states[0].Status)
}

func TestCorrectionFlow(t *testing.T) {
	client := &fakeBackend{
		pathologies: map[string][]domain.ProcessingPathology{
			"1.2.3": {pendingRecord("osteoporosis")},
		},
	}
	svc := newTestService(t, client)
	ctx := context.Background()

	_, err := svc.StudyPathologies(ctx, "1.2.3")
	require.NoError(t, err)
	_, err = svc.Decide(ctx, "1.2.3", "osteoporosis", domain.ActionAccept)
	require.NoError(t, err)

	states, err := svc.BeginCorrection(ctx, "1.2.3", "osteoporosis")
	require.NoError(t, err)
	assert.True(t, states[0].IsEditing)

	states, err = svc.SaveCorrection(ctx, "1.2.3", "osteoporosis", "Osteoporosis, T-score -2.8")
	require.NoError(t, err)
	assert.Equal(t, domain.PathologyCorrected, states[0].Status)
	assert.Equal(t, "Osteoporosis, T-score -2.8", states[0].EditedText)

	allDecided, label, err := svc.DecisionProgress("1.2.3")
	require.NoError(t, err)
	assert.True(t, allDecided)
	assert.Equal(t, domain.DiagnosisConfirmed, label)
}

func TestUpdateStudyInvalidatesCache(t *testing.T) {
	client := &fakeBackend{
		listResponse: &domain.ListProcessingsResponse{
			Page: 1, PerPage: 1, Total: 1,
			Items: []domain.Processing{{UID: "1.2.3", Status: domain.ProcessingSuccess}},
		},
		pathologies: map[string][]domain.ProcessingPathology{},
	}
	svc := newTestService(t, client)
	ctx := context.Background()

	_, err := svc.GetStudy(ctx, "1.2.3")
	require.NoError(t, err)
	require.Equal(t, 1, client.listCalls)

	_, err = svc.UpdateStudy(ctx, "1.2.3", domain.UpdateProcessingRequest{
		Status:        domain.ProcessingSuccess,
		PathologyKeys: []string{"osteoporosis"},
	})
	require.NoError(t, err)
	require.Len(t, client.updateRequests, 1)

	// The cached detail entry was dropped; the next read goes upstream.
	_, err = svc.GetStudy(ctx, "1.2.3")
	require.NoError(t, err)
	assert.Equal(t, 2, client.listCalls)
}
