package resolve

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "beacon/resolve"

type resolveMetricsCollection struct {
	getterHits     metric.Int64Counter
	dispatches     metric.Int64Counter
	outcomes       metric.Int64Counter
	workerDuration metric.Float64Histogram
}

var metrics resolveMetricsCollection

func init() {
	meter := otel.Meter(meterName)

	getterHits, err := meter.Int64Counter(
		"resolve/getter_hits",
		metric.WithDescription("Entity ids resolved directly by the getter"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create getter hit metric: %w", err))
	}

	dispatches, err := meter.Int64Counter(
		"resolve/dispatches",
		metric.WithDescription("Workers dispatched for missing entity ids"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create dispatch metric: %w", err))
	}

	outcomes, err := meter.Int64Counter(
		"resolve/worker_outcomes",
		metric.WithDescription("Completed worker runs by outcome kind"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create outcome metric: %w", err))
	}

	workerDuration, err := meter.Float64Histogram(
		"resolve/worker_duration_seconds",
		metric.WithDescription("Worker run duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create worker duration metric: %w", err))
	}

	metrics = resolveMetricsCollection{
		getterHits:     getterHits,
		dispatches:     dispatches,
		outcomes:       outcomes,
		workerDuration: workerDuration,
	}
}

func outcomeKindAttribute[T any](outcome Outcome[T]) attribute.KeyValue {
	kind := "absent"
	if _, ok := outcome.Data(); ok {
		kind = "value"
	} else if _, ok := outcome.Error(); ok {
		if outcome.hard {
			kind = "hard_error"
		} else {
			kind = "soft_error"
		}
	}
	return attribute.String("kind", kind)
}

func registerPoolGauges(name string, free func() int, running func() int) {
	meter := otel.Meter(meterName)

	freeGauge, err := meter.Int64ObservableGauge(
		"resolve/pool_free_slots",
		metric.WithDescription("Free slots in the worker pool"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create pool free slots metric: %w", err))
	}

	runningGauge, err := meter.Int64ObservableGauge(
		"resolve/pool_running_workers",
		metric.WithDescription("Workers currently occupying a pool slot"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create pool running workers metric: %w", err))
	}

	attributes := metric.WithAttributes(attribute.String("pool", name))
	_, err = meter.RegisterCallback(
		func(_ context.Context, observer metric.Observer) error {
			observer.ObserveInt64(freeGauge, int64(free()), attributes)
			observer.ObserveInt64(runningGauge, int64(running()), attributes)
			return nil
		},
		freeGauge,
		runningGauge,
	)
	if err != nil {
		panic(fmt.Errorf("failed to register pool gauges: %w", err))
	}
}
