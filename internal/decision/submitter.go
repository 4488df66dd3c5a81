package decision

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/study-review-server/internal/domain"
)

// BatchUpdater sends one batch pathology update for a study. Batching keeps
// the operation atomic from the caller's point of view; the legacy one-call-
// per-pathology path is not used here.
type BatchUpdater interface {
	UpdatePathologies(ctx context.Context, uid string, req domain.UpdatePathologiesRequest) ([]domain.ProcessingPathology, error)
}

// Invalidator drops cached state for a study so every consumer re-derives
// from fresh server truth on next read.
type Invalidator interface {
	InvalidateStudy(ctx context.Context, uid string)
}

// Submitter runs the decision submission protocol.
type Submitter struct {
	client      BatchUpdater
	invalidator Invalidator
	logger      *logrus.Logger
}

// NewSubmitter creates a submitter.
func NewSubmitter(client BatchUpdater, invalidator Invalidator, logger *logrus.Logger) *Submitter {
	return &Submitter{client: client, invalidator: invalidator, logger: logger}
}

// Submit commits all pathology decisions for the store's study in a single
// batch request. Untouched keys keep their last-known server status. On
// success the user-changes guard resets and the study's cache scopes are
// invalidated; on failure local state is untouched and the reviewer may
// retry. A second Submit for the same study while one is in flight is
// rejected, interleaved batches could send stale fallback statuses.
func (s *Submitter) Submit(ctx context.Context, store *Store) error {
	updates, err := store.beginSubmit()
	if err != nil {
		return err
	}
	uid := store.StudyUID()

	// The request and its invalidation outlive the initiating view: other
	// open views depend on the committed state.
	ctx = context.WithoutCancel(ctx)

	committed, err := s.client.UpdatePathologies(ctx, uid, domain.UpdatePathologiesRequest{Pathologies: updates})
	if err != nil {
		store.finishSubmit(nil)
		s.logger.WithError(err).WithField("study_uid", uid).Warn("pathology decision submission failed")
		return fmt.Errorf("failed to submit pathology decisions for %s: %w", uid, err)
	}

	store.finishSubmit(commitResult(updates, committed))

	s.invalidator.InvalidateStudy(ctx, uid)
	s.logger.WithFields(logrus.Fields{
		"study_uid":   uid,
		"pathologies": len(updates),
	}).Info("pathology decisions committed")
	return nil
}

// commitResult prefers the statuses echoed by the server over the ones we
// sent; they are the new server truth.
func commitResult(sent []domain.PathologyUpdate, echoed []domain.ProcessingPathology) []domain.PathologyUpdate {
	if len(echoed) == 0 {
		return sent
	}
	out := make([]domain.PathologyUpdate, 0, len(echoed))
	for _, p := range echoed {
		out = append(out, domain.PathologyUpdate{
			PathologyKey:         p.PathologyKey,
			RecommendationStatus: p.RecommendationStatus,
		})
	}
	return out
}
