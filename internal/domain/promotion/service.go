package promotion

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// Options configures a Service. The zero value is usable.
type Options struct {
	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider
}

func (o *Options) setDefaults() {
	if o.MeterProvider == nil {
		o.MeterProvider = metricnoop.NewMeterProvider()
	}
	if o.TracerProvider == nil {
		o.TracerProvider = tracenoop.NewTracerProvider()
	}
}

// Service evaluates, consumes and creates promotions.
//
// Preview has no side effects. Consume is the only operation that changes
// usage and it never lets the committed count pass MaxUses. The max-uses check
// in Preview reads a possibly stale count, so a preview may succeed for an
// order whose Consume later fails with "max uses reached".
type Service struct {
	repo    Repository
	history OrderHistory
	now     func() time.Time
	tracer  trace.Tracer
	metrics *metrics
}

// NewService creates a Service backed by the given store and order history.
func NewService(repo Repository, history OrderHistory, opts Options) (*Service, error) {
	opts.setDefaults()

	m, err := newMetrics(opts.MeterProvider)
	if err != nil {
		return nil, errors.Wrap(err, "create metrics")
	}

	return &Service{
		repo:    repo,
		history: history,
		now:     time.Now,
		tracer:  opts.TracerProvider.Tracer(instrumentationName),
		metrics: m,
	}, nil
}

// Preview validates the promotion named in ec against the order context and
// returns the discount it would grant. Checks run in a fixed order and the
// first failing one is reported.
func (s *Service) Preview(ctx context.Context, ec EvaluationContext) (_ *EvaluationResult, rerr error) {
	ctx, span := s.tracer.Start(ctx, "promotion.Preview",
		trace.WithAttributes(attribute.String("promotion.code", NormalizeCode(ec.Code))),
	)
	defer func() {
		s.metrics.observeEvaluation(ctx, rerr)
		endSpan(span, rerr)
	}()

	return s.preview(ctx, ec)
}

func (s *Service) preview(ctx context.Context, ec EvaluationContext) (*EvaluationResult, error) {
	p, err := s.load(ctx, NormalizeCode(ec.Code))
	if err != nil {
		return nil, err
	}

	if err := checkRules(p, ec, s.now()); err != nil {
		s.logRejection(ctx, p.Code, err)
		return nil, err
	}

	if p.PerUserLimit > 0 && ec.UserID != "" {
		used, err := s.history.CountUserOrders(ctx, ec.UserID, p.Code)
		if err != nil {
			return nil, errors.Wrap(err, "count user orders")
		}
		if used >= p.PerUserLimit {
			err := invalidState(ReasonPerUserLimitHit)
			s.logRejection(ctx, p.Code, err)
			return nil, err
		}
	}

	discount, total := ComputeDiscount(p, ec.Subtotal)
	return &EvaluationResult{
		Discount: discount,
		Total:    total,
		Code:     p.Code,
	}, nil
}

// checkRules applies the stateless eligibility rules in order.
func checkRules(p *Promotion, ec EvaluationContext, now time.Time) error {
	if p.Status != StatusActive {
		return invalidState(ReasonInactive)
	}
	if p.ValidFrom != nil && now.Before(*p.ValidFrom) {
		return invalidState(ReasonNotYetValid)
	}
	if p.ValidTo != nil && now.After(*p.ValidTo) {
		return invalidState(ReasonExpired)
	}
	if p.BranchID != "" && p.BranchID != ec.BranchID {
		return invalidState(ReasonWrongBranch)
	}
	if p.Exhausted() {
		return invalidState(ReasonMaxUsesReached)
	}
	return nil
}

// ApplyAndConsume previews the promotion and, if it is eligible, consumes one
// use. It is called once per order at the point the order is placed.
func (s *Service) ApplyAndConsume(ctx context.Context, ec EvaluationContext) (*EvaluationResult, error) {
	res, err := s.Preview(ctx, ec)
	if err != nil {
		return nil, err
	}
	if err := s.Consume(ctx, res.Code); err != nil {
		return nil, err
	}
	return res, nil
}

// Consume records one confirmed use of the promotion. The increment is a
// single atomic store operation, so K concurrent calls on an uncapped code add
// exactly K uses and a capped code never passes MaxUses.
func (s *Service) Consume(ctx context.Context, code string) (rerr error) {
	code = NormalizeCode(code)
	ctx, span := s.tracer.Start(ctx, "promotion.Consume",
		trace.WithAttributes(attribute.String("promotion.code", code)),
	)
	defer func() { endSpan(span, rerr) }()

	if code == "" {
		return ErrNotFound
	}
	usage, err := s.repo.IncrementUsage(ctx, code)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrExhausted):
		err := invalidState(ReasonMaxUsesReached)
		s.logRejection(ctx, code, err)
		return err
	default:
		return errors.Wrap(err, "increment promotion usage")
	}

	s.metrics.consumptions.Add(ctx, 1)
	zctx.From(ctx).Debug("Promotion consumed",
		zap.String("code", code),
		zap.Int("usage_count", usage),
	)
	return nil
}

// CreatePromotion validates req, applies creation defaults and stores the new
// promotion.
func (s *Service) CreatePromotion(ctx context.Context, req CreateRequest) (_ *Promotion, rerr error) {
	ctx, span := s.tracer.Start(ctx, "promotion.Create")
	defer func() { endSpan(span, rerr) }()

	p, err := req.validate()
	if err != nil {
		return nil, err
	}
	p.CreatedAt = s.now().UTC()

	if err := s.repo.Create(ctx, &p); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil, ErrAlreadyExists
		}
		return nil, errors.Wrap(err, "create promotion")
	}

	s.metrics.created.Add(ctx, 1)
	zctx.From(ctx).Info("Promotion created",
		zap.String("code", p.Code),
		zap.String("discount_type", string(p.DiscountType)),
		zap.String("discount_value", p.DiscountValue.String()),
	)
	return &p, nil
}

// GetPromotion returns the promotion stored under code.
func (s *Service) GetPromotion(ctx context.Context, code string) (*Promotion, error) {
	return s.load(ctx, NormalizeCode(code))
}

// SetStatus activates or deactivates a promotion.
func (s *Service) SetStatus(ctx context.Context, code string, status Status) error {
	if !status.Valid() {
		return invalidField("status", "unsupported status "+string(status))
	}
	code = NormalizeCode(code)
	if err := s.repo.UpdateStatus(ctx, code, status); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return errors.Wrap(err, "update promotion status")
	}
	zctx.From(ctx).Info("Promotion status changed",
		zap.String("code", code),
		zap.String("status", string(status)),
	)
	return nil
}

func (s *Service) load(ctx context.Context, code string) (*Promotion, error) {
	if code == "" {
		return nil, ErrNotFound
	}
	p, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup promotion")
	}
	return p, nil
}

func (s *Service) logRejection(ctx context.Context, code string, err error) {
	zctx.From(ctx).Debug("Promotion rejected",
		zap.String("code", code),
		zap.String("reason", err.Error()),
	)
}
