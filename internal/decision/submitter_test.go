package decision

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/study-review-server/internal/domain"
)

type fakeUpdater struct {
	mu       sync.Mutex
	calls    int
	requests []domain.UpdatePathologiesRequest
	response []domain.ProcessingPathology
	err      error
	block    chan struct{} // when set, the call waits until closed
}

func (f *fakeUpdater) UpdatePathologies(ctx context.Context, uid string, req domain.UpdatePathologiesRequest) ([]domain.ProcessingPathology, error) {
	f.mu.Lock()
	f.calls++
	f.requests = append(f.requests, req)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.response != nil {
		return f.response, nil
	}
	echoed := make([]domain.ProcessingPathology, 0, len(req.Pathologies))
	for _, p := range req.Pathologies {
		echoed = append(echoed, domain.ProcessingPathology{
			PathologyKey:         p.PathologyKey,
			RecommendationStatus: p.RecommendationStatus,
			UpdatedAt:            "2024-03-02T08:00:00Z",
		})
	}
	return echoed, nil
}

type fakeInvalidator struct {
	mu   sync.Mutex
	uids []string
}

func (f *fakeInvalidator) InvalidateStudy(ctx context.Context, uid string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uids = append(f.uids, uid)
}

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestSubmitBatchesAllKnownKeys(t *testing.T) {
	store := seededStore(t,
		serverPathology("coronary_сalcium", domain.RecommendationPending),
		serverPathology("osteoporosis", domain.RecommendationAccepted),
		serverPathology("lungNodules", domain.RecommendationPending),
	)
	require.NoError(t, store.Decide("coronary_сalcium", domain.ActionReject))

	updater := &fakeUpdater{}
	inv := &fakeInvalidator{}
	sub := NewSubmitter(updater, inv, testLogger())

	require.NoError(t, sub.Submit(context.Background(), store))

	// one network call, not one per pathology
	assert.Equal(t, 1, updater.calls)
	require.Len(t, updater.requests, 1)

	got := updater.requests[0].Pathologies
	require.Len(t, got, 3)
	// touched key carries the local decision
	assert.Equal(t, domain.RecommendationRejected, got[0].RecommendationStatus)
	// untouched keys fall back to the last-known server status, never
	// silently reset to pending
	assert.Equal(t, domain.RecommendationAccepted, got[1].RecommendationStatus)
	assert.Equal(t, domain.RecommendationPending, got[2].RecommendationStatus)

	assert.False(t, store.HasUserChanges(), "guard resets after a confirmed submit")
	assert.Equal(t, []string{"study-1"}, inv.uids)
}

func TestSubmitSerializesCorrectedAsAccepted(t *testing.T) {
	store := seededStore(t, serverPathology("osteoporosis", domain.RecommendationAccepted))
	require.NoError(t, store.BeginEdit("osteoporosis"))
	require.NoError(t, store.SaveEdit("osteoporosis", "Osteoporosis, corrected wording"))

	updater := &fakeUpdater{}
	sub := NewSubmitter(updater, &fakeInvalidator{}, testLogger())

	require.NoError(t, sub.Submit(context.Background(), store))

	require.Len(t, updater.requests, 1)
	assert.Equal(t, domain.RecommendationAccepted, updater.requests[0].Pathologies[0].RecommendationStatus)
}

func TestSubmitFailureLeavesLocalStateUntouched(t *testing.T) {
	store := seededStore(t,
		serverPathology("osteoporosis", domain.RecommendationPending),
	)
	require.NoError(t, store.Decide("osteoporosis", domain.ActionAccept))

	updater := &fakeUpdater{err: errors.New("backend unavailable")}
	inv := &fakeInvalidator{}
	sub := NewSubmitter(updater, inv, testLogger())

	err := sub.Submit(context.Background(), store)
	require.Error(t, err)

	state, _ := store.State("osteoporosis")
	assert.Equal(t, domain.PathologyAccepted, state.Status)
	assert.True(t, store.HasUserChanges(), "decisions are not rolled back, retry is possible")
	assert.Empty(t, inv.uids, "no invalidation on failure")

	// retry succeeds
	updater.err = nil
	require.NoError(t, sub.Submit(context.Background(), store))
	assert.False(t, store.HasUserChanges())
}

func TestConcurrentSubmitRejected(t *testing.T) {
	store := seededStore(t, serverPathology("osteoporosis", domain.RecommendationPending))
	require.NoError(t, store.Decide("osteoporosis", domain.ActionAccept))

	block := make(chan struct{})
	updater := &fakeUpdater{block: block}
	sub := NewSubmitter(updater, &fakeInvalidator{}, testLogger())

	done := make(chan error, 1)
	go func() { done <- sub.Submit(context.Background(), store) }()

	// wait for the first submit to reach the backend
	require.Eventually(t, func() bool {
		updater.mu.Lock()
		defer updater.mu.Unlock()
		return updater.calls == 1
	}, waitFor, tick)

	err := sub.Submit(context.Background(), store)
	require.Error(t, err)
	assert.Equal(t, domain.ErrSubmitInFlight, domain.CodeOf(err))

	close(block)
	require.NoError(t, <-done)

	// after the first completes, further submits are allowed again
	require.NoError(t, store.Decide("osteoporosis", domain.ActionReject))
	require.NoError(t, sub.Submit(context.Background(), store))
}

func TestSubmitDoesNotBlockFurtherDecides(t *testing.T) {
	store := seededStore(t,
		serverPathology("osteoporosis", domain.RecommendationPending),
		serverPathology("lungNodules", domain.RecommendationPending),
	)
	require.NoError(t, store.Decide("osteoporosis", domain.ActionAccept))

	block := make(chan struct{})
	updater := &fakeUpdater{block: block}
	sub := NewSubmitter(updater, &fakeInvalidator{}, testLogger())

	done := make(chan error, 1)
	go func() { done <- sub.Submit(context.Background(), store) }()
	require.Eventually(t, func() bool {
		updater.mu.Lock()
		defer updater.mu.Unlock()
		return updater.calls == 1
	}, waitFor, tick)

	// local decisions keep flowing while the batch is in flight
	require.NoError(t, store.Decide("lungNodules", domain.ActionReject))

	close(block)
	require.NoError(t, <-done)

	state, _ := store.State("lungNodules")
	assert.Equal(t, domain.PathologyRejected, state.Status)
}

func TestDecideDuringSubmitKeepsGuard(t *testing.T) {
	// A decision made while the batch is in flight was not part of that
	// batch; the confirmed submit must not drop its refetch protection.
	records := []domain.ProcessingPathology{
		serverPathology("osteoporosis", domain.RecommendationPending),
		serverPathology("lungNodules", domain.RecommendationPending),
	}
	store := seededStore(t, records...)
	require.NoError(t, store.Decide("osteoporosis", domain.ActionAccept))

	block := make(chan struct{})
	updater := &fakeUpdater{block: block}
	sub := NewSubmitter(updater, &fakeInvalidator{}, testLogger())

	done := make(chan error, 1)
	go func() { done <- sub.Submit(context.Background(), store) }()
	require.Eventually(t, func() bool {
		updater.mu.Lock()
		defer updater.mu.Unlock()
		return updater.calls == 1
	}, waitFor, tick)

	require.NoError(t, store.Decide("lungNodules", domain.ActionReject))

	close(block)
	require.NoError(t, <-done)

	assert.True(t, store.HasUserChanges(), "the in-flight decision is still unsubmitted")

	// a background refetch with the pre-decision snapshot must not apply
	assert.False(t, store.Seed(records))
	state, _ := store.State("lungNodules")
	assert.Equal(t, domain.PathologyRejected, state.Status)

	// the store survives release while it carries the unsubmitted decision
	manager := NewManager()
	manager.stores[store.studyUID] = store
	assert.False(t, manager.Release(store.studyUID))
	assert.Equal(t, 1, manager.Len())

	// the follow-up submit carries the decision and clears the guard
	require.NoError(t, sub.Submit(context.Background(), store))
	require.Len(t, updater.requests, 2)
	assert.Equal(t, domain.RecommendationRejected, updater.requests[1].Pathologies[1].RecommendationStatus)
	assert.False(t, store.HasUserChanges())
}

func TestSubmitRoundTrip(t *testing.T) {
	// The statuses a fresh load sees after submit are exactly the ones
	// that were sent: no lossy translation.
	store := seededStore(t,
		serverPathology("coronary_сalcium", domain.RecommendationPending),
		serverPathology("lungNodules", domain.RecommendationPending),
	)
	require.NoError(t, store.Decide("coronary_сalcium", domain.ActionAccept))
	require.NoError(t, store.Decide("lungNodules", domain.ActionReject))

	updater := &fakeUpdater{}
	sub := NewSubmitter(updater, &fakeInvalidator{}, testLogger())
	require.NoError(t, sub.Submit(context.Background(), store))

	// model the post-submit server state from the committed batch
	var echoed []domain.ProcessingPathology
	for _, p := range updater.requests[0].Pathologies {
		echoed = append(echoed, domain.ProcessingPathology{
			PathologyKey:         p.PathologyKey,
			RecommendationStatus: p.RecommendationStatus,
			UpdatedAt:            "2024-03-02T08:00:00Z",
		})
	}
	fresh := NewStore("study-1")
	require.True(t, fresh.Seed(echoed))

	accepted, _ := fresh.State("coronary_сalcium")
	rejected, _ := fresh.State("lungNodules")
	assert.Equal(t, domain.PathologyAccepted, accepted.Status)
	assert.Equal(t, domain.PathologyRejected, rejected.Status)
	assert.True(t, fresh.AllDecided())
}
