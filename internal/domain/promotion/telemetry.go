package promotion

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/xenking/foodhub-promotions/internal/domain/promotion"

type metrics struct {
	previews     metric.Int64Counter
	rejections   metric.Int64Counter
	consumptions metric.Int64Counter
	created      metric.Int64Counter
}

func newMetrics(mp metric.MeterProvider) (*metrics, error) {
	meter := mp.Meter(instrumentationName)

	var (
		m   metrics
		err error
	)
	if m.previews, err = meter.Int64Counter("promotion.previews",
		metric.WithDescription("Promotion evaluations that produced a discount"),
	); err != nil {
		return nil, errors.Wrap(err, "previews counter")
	}
	if m.rejections, err = meter.Int64Counter("promotion.rejections",
		metric.WithDescription("Promotion evaluations rejected by a business rule"),
	); err != nil {
		return nil, errors.Wrap(err, "rejections counter")
	}
	if m.consumptions, err = meter.Int64Counter("promotion.consumptions",
		metric.WithDescription("Confirmed promotion uses"),
	); err != nil {
		return nil, errors.Wrap(err, "consumptions counter")
	}
	if m.created, err = meter.Int64Counter("promotion.created",
		metric.WithDescription("Promotions created"),
	); err != nil {
		return nil, errors.Wrap(err, "created counter")
	}
	return &m, nil
}

// rejectionReason returns the metric label for a business-rule failure, or
// false for system errors.
func rejectionReason(err error) (string, bool) {
	var ise *InvalidStateError
	switch {
	case errors.As(err, &ise):
		return string(ise.Reason), true
	case errors.Is(err, ErrNotFound):
		return "not found", true
	case errors.Is(err, ErrAlreadyExists):
		return "already exists", true
	default:
		return "", false
	}
}

func (m *metrics) observeEvaluation(ctx context.Context, err error) {
	if err == nil {
		m.previews.Add(ctx, 1)
		return
	}
	if reason, ok := rejectionReason(err); ok {
		m.rejections.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	}
}

// endSpan closes span, marking it failed only for errors outside the
// business taxonomy.
func endSpan(span trace.Span, err error) {
	defer span.End()
	if err == nil {
		return
	}
	if reason, ok := rejectionReason(err); ok {
		span.SetAttributes(attribute.String("promotion.rejection", reason))
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
