// Package backend implements the client for the upstream processing API
// that produces study analyses and pathology recommendations.
package backend

import (
	"context"

	"github.com/study-review-server/internal/domain"
)

// Service is the full upstream surface the review server consumes.
type Service interface {
	// ListProcessings fetches one page of processing transactions.
	ListProcessings(ctx context.Context, params domain.ListProcessingsParams) (*domain.ListProcessingsResponse, error)
	// UpdateProcessing overwrites status and pathology keys of one study.
	UpdateProcessing(ctx context.Context, uid string, req domain.UpdateProcessingRequest) (*domain.Processing, error)
	// GetPathologies fetches the pathology records of one study.
	GetPathologies(ctx context.Context, uid string) ([]domain.ProcessingPathology, error)
	// UpdatePathologies submits a full batch of decision statuses.
	UpdatePathologies(ctx context.Context, uid string, req domain.UpdatePathologiesRequest) ([]domain.ProcessingPathology, error)
	// UpdatePathology updates a single pathology status. Retained for the
	// upstream's older per-item endpoint; batch submission is preferred.
	UpdatePathology(ctx context.Context, uid, key string, req domain.UpdatePathologyRequest) (*domain.ProcessingPathology, error)
	// GenerateReport requests report generation for a set of studies.
	GenerateReport(ctx context.Context, req *domain.GenerateReportRequest) error
}
