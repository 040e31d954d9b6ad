package handler

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/xenking/lester-loyalty/internal/handler"

type ledgerMetrics struct {
	submitted metric.Int64Counter
	decided   metric.Int64Counter
	awarded   metric.Int64Counter
}

func newLedgerMetrics(mp metric.MeterProvider) (*ledgerMetrics, error) {
	meter := mp.Meter(meterName)

	submitted, err := meter.Int64Counter("ledger.orders.submitted",
		metric.WithDescription("Orders submitted by agents"))
	if err != nil {
		return nil, errors.Wrap(err, "orders.submitted")
	}
	decided, err := meter.Int64Counter("ledger.orders.decided",
		metric.WithDescription("Orders approved or rejected"))
	if err != nil {
		return nil, errors.Wrap(err, "orders.decided")
	}
	awarded, err := meter.Int64Counter("ledger.points.awarded",
		metric.WithDescription("Points credited through order approval"),
		metric.WithUnit("{point}"))
	if err != nil {
		return nil, errors.Wrap(err, "points.awarded")
	}

	return &ledgerMetrics{submitted: submitted, decided: decided, awarded: awarded}, nil
}

func (m *ledgerMetrics) decision(ctx context.Context, decision string) {
	m.decided.Add(ctx, 1, metric.WithAttributes(attribute.String("decision", decision)))
}
