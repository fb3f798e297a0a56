package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/ggc/backend/internal/domain/warehouse"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
var (
	AttrSourceScheme = attribute.Key("source.scheme")
	AttrErrorCode    = attribute.Key("error.code")
	AttrOutcome      = attribute.Key("outcome")
	AttrEntity       = attribute.Key("entity")
)

// LoadDurationBuckets are bucket boundaries for inventory load duration (seconds).
var LoadDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30}

// LoadMetrics records inventory load outcomes
type LoadMetrics struct {
	loads    metric.Int64Counter
	records  metric.Int64Counter
	duration metric.Float64Histogram
	entities metric.Int64Gauge
}

// NewLoadMetrics creates the load instruments on meter
func NewLoadMetrics(meter metric.Meter) (*LoadMetrics, error) {
	loads, errLoads := meter.Int64Counter("ggc.inventory.loads",
		metric.WithDescription("Inventory loads by outcome"), metric.WithUnit("{load}"))
	records, errRecords := meter.Int64Counter("ggc.inventory.records",
		metric.WithDescription("Records applied by successful loads"), metric.WithUnit("{record}"))
	duration, errDuration := meter.Float64Histogram("ggc.inventory.load.duration",
		metric.WithDescription("Inventory load duration"), metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(LoadDurationBuckets...))
	entities, errEntities := meter.Int64Gauge("ggc.warehouse.entities",
		metric.WithDescription("Entities in the published warehouse"), metric.WithUnit("{entity}"))

	if err := errors.Join(errLoads, errRecords, errDuration, errEntities); err != nil {
		return nil, err
	}
	return &LoadMetrics{loads: loads, records: records, duration: duration, entities: entities}, nil
}

// RecordSuccess records a completed load and the size of the published warehouse
func (m *LoadMetrics) RecordSuccess(ctx context.Context, scheme string, d time.Duration, records int, stats warehouse.Stats) {
	source := AttrSourceScheme.String(scheme)
	success := AttrOutcome.String("success")

	m.loads.Add(ctx, 1, metric.WithAttributes(source, success))
	m.records.Add(ctx, int64(records), metric.WithAttributes(source))
	m.duration.Record(ctx, d.Seconds(), metric.WithAttributes(source, success))

	counts := map[string]int{
		"partner":           stats.Partners,
		"simple_product":    stats.SimpleProducts,
		"aggregate_product": stats.AggregateProducts,
		"batch":             stats.Batches,
	}
	for entity, n := range counts {
		m.entities.Record(ctx, int64(n), metric.WithAttributes(AttrEntity.String(entity)))
	}
}

// RecordFailure records a failed load labelled by error code
func (m *LoadMetrics) RecordFailure(ctx context.Context, scheme string, d time.Duration, code string) {
	if code == "" {
		code = "UNKNOWN"
	}
	source := AttrSourceScheme.String(scheme)
	failure := AttrOutcome.String("failure")

	m.loads.Add(ctx, 1, metric.WithAttributes(source, failure, AttrErrorCode.String(code)))
	m.duration.Record(ctx, d.Seconds(), metric.WithAttributes(source, failure))
}
