package lifecycle

import (
	"context"

	"adhocdist/internal/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "adhocdist/lifecycle"

type metrics struct {
	registered    metric.Int64Counter
	identified    metric.Int64Counter
	triggered     metric.Int64Counter
	notifications metric.Int64Counter
	vendor        metric.Int64Counter
}

// newMetrics registers the lifecycle instruments on the global meter provider.
// Instrument errors fall back to no-op instruments.
func newMetrics(s store.TesterStore) *metrics {
	meter := otel.Meter(instrumentationName)

	m := &metrics{}
	m.registered, _ = meter.Int64Counter("adhocdist.testers.registered",
		metric.WithDescription("Testers created by registration"))
	m.identified, _ = meter.Int64Counter("adhocdist.devices.identified",
		metric.WithDescription("Device identifiers accepted for testers"))
	m.triggered, _ = meter.Int64Counter("adhocdist.builds.triggered",
		metric.WithDescription("Build pipeline dispatch attempts"))
	m.notifications, _ = meter.Int64Counter("adhocdist.notifications.sent",
		metric.WithDescription("Download link notifications"))
	m.vendor, _ = meter.Int64Counter("adhocdist.vendor.registrations",
		metric.WithDescription("Vendor device registration attempts"))

	_, _ = meter.Int64ObservableGauge("adhocdist.testers.total",
		metric.WithDescription("Testers currently known"),
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			testers, err := s.ListTesters(ctx)
			if err != nil {
				return err
			}
			o.Observe(int64(len(testers)))
			return nil
		}),
	)

	return m
}

func outcome(value string) metric.AddOption {
	return metric.WithAttributes(attribute.String("outcome", value))
}

func (m *metrics) add(ctx context.Context, c metric.Int64Counter, opts ...metric.AddOption) {
	if c != nil {
		c.Add(ctx, 1, opts...)
	}
}
