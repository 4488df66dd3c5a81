package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/study-review-server/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewClient(domain.BackendConfig{
		BaseURL:   server.URL,
		APIKey:    "test-key",
		Timeout:   5 * time.Second,
		RateLimit: 100,
	})
	return client, server
}

func TestListProcessingsEncodesParams(t *testing.T) {
	var gotMethod, gotPath string
	var gotQuery map[string][]string
	var gotAuth string

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(domain.ListProcessingsResponse{
			Page:    2,
			PerPage: 25,
			Total:   231,
			Items:   []domain.Processing{{UID: "1.2.3", Status: domain.ProcessingSuccess}},
		})
	})

	resp, err := client.ListProcessings(context.Background(), domain.ListProcessingsParams{
		Page:        2,
		PerPage:     25,
		SearchQuery: "1.2",
		Status:      domain.ProcessingInProgress,
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, gotMethod)
	assert.Equal(t, "/processings", gotPath)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, []string{"2"}, gotQuery["page"])
	assert.Equal(t, []string{"25"}, gotQuery["per_page"])
	assert.Equal(t, []string{"1.2"}, gotQuery["search_query"])
	assert.Equal(t, []string{"processing"}, gotQuery["status"])

	assert.Equal(t, 231, resp.Total)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "1.2.3", resp.Items[0].UID)
}

func TestListProcessingsDateWindowParams(t *testing.T) {
	var gotQuery map[string][]string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		json.NewEncoder(w).Encode(domain.ListProcessingsResponse{})
	})

	_, err := client.ListProcessings(context.Background(), domain.ListProcessingsParams{
		Page:              1,
		PerPage:           25,
		StudyCreatedAtGTE: "2026-03-12T00:00:00Z",
		StudyCreatedAtLTE: "2026-03-12T23:59:59Z",
	})
	require.NoError(t, err)

	// Double underscore, the list endpoint's range-lookup convention.
	assert.Equal(t, []string{"2026-03-12T00:00:00Z"}, gotQuery["study_created_at__gte"])
	assert.Equal(t, []string{"2026-03-12T23:59:59Z"}, gotQuery["study_created_at__lte"])
	assert.NotContains(t, gotQuery, "study_created_at_gte")
	assert.NotContains(t, gotQuery, "study_created_at_lte")
}

func TestListProcessingsPathologyKeysSwitchToPost(t *testing.T) {
	var gotMethod string
	var gotQuery map[string][]string
	var gotBody []string

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotQuery = r.URL.Query()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(domain.ListProcessingsResponse{Total: 2})
	})

	resp, err := client.ListProcessings(context.Background(), domain.ListProcessingsParams{
		Page:          1,
		PerPage:       25,
		SearchQuery:   "1.2",
		PathologyKeys: []string{"osteoporosis", "lungNodules"},
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, []string{"osteoporosis", "lungNodules"}, gotBody)
	assert.Equal(t, []string{"1"}, gotQuery["page"])
	assert.Equal(t, []string{"1.2"}, gotQuery["search_query"])
	assert.NotContains(t, gotQuery, "pathology_keys")
	assert.Equal(t, 2, resp.Total)
}

func TestListProcessingsOmitsEmptyParams(t *testing.T) {
	var gotQuery map[string][]string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		json.NewEncoder(w).Encode(domain.ListProcessingsResponse{})
	})

	_, err := client.ListProcessings(context.Background(), domain.ListProcessingsParams{Page: 1, PerPage: 25})
	require.NoError(t, err)

	assert.NotContains(t, gotQuery, "search_query")
	assert.NotContains(t, gotQuery, "status")
	assert.NotContains(t, gotQuery, "pathology_keys")
}

func TestUpdatePathologiesBatch(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody domain.UpdatePathologiesRequest

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode([]domain.ProcessingPathology{
			{PathologyKey: "osteoporosis", RecommendationStatus: domain.RecommendationAccepted},
		})
	})

	req := domain.UpdatePathologiesRequest{
		Pathologies: []domain.PathologyUpdate{
			{PathologyKey: "osteoporosis", RecommendationStatus: domain.RecommendationAccepted},
		},
	}
	records, err := client.UpdatePathologies(context.Background(), "1.2.3", req)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/processings/1.2.3/pathologies", gotPath)
	require.Len(t, gotBody.Pathologies, 1)
	assert.Equal(t, "osteoporosis", gotBody.Pathologies[0].PathologyKey)
	require.Len(t, records, 1)
	assert.Equal(t, domain.RecommendationAccepted, records[0].RecommendationStatus)
}

func TestNotFoundMapsToTypedError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.GetPathologies(context.Background(), "9.9.9")
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
	assert.False(t, domain.IsRetryable(err), "a 404 is a terminal answer")
}

func TestServerErrorMapsToExternalAPI(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	_, err := client.ListProcessings(context.Background(), domain.ListProcessingsParams{})
	require.Error(t, err)
	var rerr *domain.ReviewError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, domain.ErrExternalAPI, rerr.Code)
	assert.True(t, rerr.Retryable)
	assert.Contains(t, rerr.Details, "upstream exploded")
}

func TestGenerateReport(t *testing.T) {
	var gotBody domain.GenerateReportRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/processings/report", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	})

	err := client.GenerateReport(context.Background(), &domain.GenerateReportRequest{
		ProcessingUIDs: []string{"u1", "u2"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, gotBody.ProcessingUIDs)
}

func TestResilientClientOpensAfterFailures(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	resilient := NewResilientClient(client, logger)

	// Trip threshold: at least 3 requests with >=60% failures.
	for i := 0; i < 3; i++ {
		_, err := resilient.ListProcessings(context.Background(), domain.ListProcessingsParams{})
		require.Error(t, err)
	}

	_, err := resilient.ListProcessings(context.Background(), domain.ListProcessingsParams{})
	require.Error(t, err)
	var rerr *domain.ReviewError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, domain.ErrExternalAPI, rerr.Code)
}

func TestResilientClientNotFoundDoesNotTrip(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	resilient := NewResilientClient(client, logger)

	for i := 0; i < 10; i++ {
		_, err := resilient.GetPathologies(context.Background(), "9.9.9")
		require.Error(t, err)
		assert.True(t, domain.IsNotFound(err), "breaker must stay closed on 404s")
	}
}
