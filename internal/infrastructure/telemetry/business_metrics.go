package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// SettlementMetrics records the settlement workflow's business metrics:
// document transitions, settled amounts and event handler failures.
type SettlementMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	billCreatedTotal       *Counter
	billTransitionTotal    *Counter
	billSettledAmount      *Histogram
	requestTransitionTotal *Counter
	requestApprovedAmount  *Histogram

	failureRegistration metric.Registration
}

// SettlementMetricsConfig holds configuration for settlement metrics.
type SettlementMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// FailureCounter reports the number of failed event handler invocations.
type FailureCounter interface {
	Failures() int64
}

// NewSettlementMetrics creates the settlement instruments on the given meter.
func NewSettlementMetrics(cfg SettlementMetricsConfig) (*SettlementMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sm := &SettlementMetrics{meter: cfg.Meter, logger: logger}

	var err error
	sm.billCreatedTotal, err = NewCounter(cfg.Meter,
		"settlement_bill_created_total",
		"Total number of bills created",
		"{bills}",
	)
	if err != nil {
		return nil, err
	}

	sm.billTransitionTotal, err = NewCounter(cfg.Meter,
		"settlement_bill_transition_total",
		"Total number of bill state transitions",
		"{transitions}",
	)
	if err != nil {
		return nil, err
	}

	sm.billSettledAmount, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "settlement_bill_settled_amount",
		Description: "Net amount of bills paid or received",
		Unit:        "{amount}",
		Boundaries:  AmountBuckets,
	})
	if err != nil {
		return nil, err
	}

	sm.requestTransitionTotal, err = NewCounter(cfg.Meter,
		"settlement_request_transition_total",
		"Total number of expense and income request state transitions",
		"{transitions}",
	)
	if err != nil {
		return nil, err
	}

	sm.requestApprovedAmount, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "settlement_request_approved_amount",
		Description: "Amount of approved expense and income requests",
		Unit:        "{amount}",
		Boundaries:  AmountBuckets,
	})
	if err != nil {
		return nil, err
	}

	return sm, nil
}

// RecordBillCreated counts a newly created bill.
func (sm *SettlementMetrics) RecordBillCreated(ctx context.Context, category, billType string) {
	sm.billCreatedTotal.Inc(ctx,
		AttrBillCategory.String(category),
		AttrBillType.String(billType),
	)
}

// RecordBillTransition counts a bill moving to status through action.
func (sm *SettlementMetrics) RecordBillTransition(ctx context.Context, action, status string) {
	sm.billTransitionTotal.Inc(ctx,
		AttrAction.String(action),
		AttrStatus.String(status),
	)
}

// RecordBillSettled records the net amount of a paid or received bill.
func (sm *SettlementMetrics) RecordBillSettled(ctx context.Context, action string, amount float64) {
	sm.billSettledAmount.Record(ctx, amount, AttrAction.String(action))
}

// RecordRequestTransition counts a request moving to status through action.
func (sm *SettlementMetrics) RecordRequestTransition(ctx context.Context, kind, action, status string) {
	sm.requestTransitionTotal.Inc(ctx,
		AttrRequestKind.String(kind),
		AttrAction.String(action),
		AttrStatus.String(status),
	)
}

// RecordRequestApproved records the amount of an approved request.
func (sm *SettlementMetrics) RecordRequestApproved(ctx context.Context, kind, currency string, amount float64) {
	sm.requestApprovedAmount.Record(ctx, amount,
		AttrRequestKind.String(kind),
		AttrCurrency.String(currency),
	)
}

// ObserveHandlerFailures exports the failure count of source as an
// observable counter. Calling it again replaces the previous source.
func (sm *SettlementMetrics) ObserveHandlerFailures(source FailureCounter) error {
	counter, err := sm.meter.Int64ObservableCounter(
		"settlement_event_handler_failures_total",
		metric.WithDescription("Total number of failed event handler invocations"),
		metric.WithUnit("{failures}"),
	)
	if err != nil {
		return &MetricsError{Op: "ObserveHandlerFailures", Err: err.Error()}
	}

	if sm.failureRegistration != nil {
		if err := sm.failureRegistration.Unregister(); err != nil {
			sm.logger.Warn("Failed to unregister previous failure callback", zap.Error(err))
		}
	}

	reg, err := sm.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(counter, source.Failures())
		return nil
	}, counter)
	if err != nil {
		return &MetricsError{Op: "ObserveHandlerFailures", Err: err.Error()}
	}
	sm.failureRegistration = reg
	return nil
}

// Stop releases the observable callbacks.
func (sm *SettlementMetrics) Stop() {
	if sm.failureRegistration == nil {
		return
	}
	if err := sm.failureRegistration.Unregister(); err != nil {
		sm.logger.Warn("Failed to unregister failure callback", zap.Error(err))
	}
	sm.failureRegistration = nil
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewSettlementMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
