package backend

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/study-review-server/internal/domain"
)

// ResilientClient wraps the processing API client with a circuit breaker
// so a failing upstream sheds load instead of stacking timeouts. Reads
// and writes share one breaker: the upstream is a single service.
type ResilientClient struct {
	client  Service
	breaker *gobreaker.CircuitBreaker
}

// NewResilientClient wraps client with the standard breaker settings.
func NewResilientClient(client Service, logger *logrus.Logger) *ResilientClient {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ProcessingAPI",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
		IsSuccessful: func(err error) bool {
			// A 404 is a definite answer from a healthy upstream, not a
			// failure worth tripping on.
			return err == nil || domain.IsNotFound(err)
		},
	})
	return &ResilientClient{client: client, breaker: breaker}
}

func (r *ResilientClient) ListProcessings(ctx context.Context, params domain.ListProcessingsParams) (*domain.ListProcessingsResponse, error) {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.client.ListProcessings(ctx, params)
	})
	if err != nil {
		return nil, wrapBreakerErr(err, "listing studies")
	}
	return result.(*domain.ListProcessingsResponse), nil
}

func (r *ResilientClient) UpdateProcessing(ctx context.Context, uid string, req domain.UpdateProcessingRequest) (*domain.Processing, error) {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.client.UpdateProcessing(ctx, uid, req)
	})
	if err != nil {
		return nil, wrapBreakerErr(err, "updating study")
	}
	return result.(*domain.Processing), nil
}

func (r *ResilientClient) GetPathologies(ctx context.Context, uid string) ([]domain.ProcessingPathology, error) {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.client.GetPathologies(ctx, uid)
	})
	if err != nil {
		return nil, wrapBreakerErr(err, "fetching pathologies")
	}
	return result.([]domain.ProcessingPathology), nil
}

func (r *ResilientClient) UpdatePathologies(ctx context.Context, uid string, req domain.UpdatePathologiesRequest) ([]domain.ProcessingPathology, error) {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.client.UpdatePathologies(ctx, uid, req)
	})
	if err != nil {
		return nil, wrapBreakerErr(err, "submitting decisions")
	}
	return result.([]domain.ProcessingPathology), nil
}

func (r *ResilientClient) UpdatePathology(ctx context.Context, uid, key string, req domain.UpdatePathologyRequest) (*domain.ProcessingPathology, error) {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.client.UpdatePathology(ctx, uid, key, req)
	})
	if err != nil {
		return nil, wrapBreakerErr(err, "updating pathology")
	}
	return result.(*domain.ProcessingPathology), nil
}

func (r *ResilientClient) GenerateReport(ctx context.Context, req *domain.GenerateReportRequest) error {
	_, err := r.breaker.Execute(func() (interface{}, error) {
		return nil, r.client.GenerateReport(ctx, req)
	})
	if err != nil {
		return wrapBreakerErr(err, "generating report")
	}
	return nil
}

// wrapBreakerErr translates breaker-open errors into the API error shape;
// errors from the wrapped client pass through unchanged.
func wrapBreakerErr(err error, op string) error {
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return domain.NewReviewError(domain.ErrExternalAPI,
			"processing API unavailable while "+op, err.Error())
	}
	return err
}
