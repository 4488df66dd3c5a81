package reports

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/study-review-server/internal/domain"
)

// ReportClient sends the generation request upstream.
type ReportClient interface {
	GenerateReport(ctx context.Context, req *domain.GenerateReportRequest) error
}

// Generator turns the current selection into a report request.
type Generator struct {
	client ReportClient
	logger *logrus.Logger
}

// NewGenerator wires a generator to the upstream client.
func NewGenerator(client ReportClient, logger *logrus.Logger) *Generator {
	return &Generator{client: client, logger: logger}
}

// Generate sends the selected uids upstream and clears the selection on
// success. An empty selection is rejected before any network call.
func (g *Generator) Generate(ctx context.Context, sel *Selection) ([]string, error) {
	uids := sel.List()
	if len(uids) == 0 {
		return nil, domain.NewValidationError("processing_uids", "no studies selected", nil)
	}

	req := &domain.GenerateReportRequest{ProcessingUIDs: uids}
	if err := g.client.GenerateReport(ctx, req); err != nil {
		g.logger.WithFields(logrus.Fields{
			"study_count": len(uids),
			"error":       err.Error(),
		}).Error("Report generation failed")
		return nil, fmt.Errorf("generating report for %d studies: %w", len(uids), err)
	}

	g.logger.WithField("study_count", len(uids)).Info("Report generated")
	sel.Clear()
	return uids, nil
}
