package metrics

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/nakabonne/tstorage"
	"go.uber.org/zap"
)

const (
	OrdersPlaced     = "storefront_orders_placed"
	OrdersConfirmed  = "storefront_orders_confirmed"
	OrdersCancelled  = "storefront_orders_cancelled"
	PaymentsSuccess  = "storefront_payments_success"
	PaymentsFailed   = "storefront_payments_failed"
	ShipmentsCreated = "storefront_shipments_created"
	ShipmentsFailed  = "storefront_shipments_failed"
	WebhooksRejected = "storefront_webhooks_rejected"
)

// Point is a single sample returned by Query. Timestamp is in
// milliseconds since the epoch.
type Point struct {
	Timestamp int64   `json:"ts"`
	Value     float64 `json:"value"`
}

var (
	mu       sync.Mutex
	storage  tstorage.Storage
	counters = map[string]int64{}
	lastTs   = map[string]int64{}
)

// InitMetrics opens the time-series store under workdir/data/metrics.
// An empty workdir keeps samples in memory only.
func InitMetrics(workdir string) error {
	opts := []tstorage.Option{
		tstorage.WithTimestampPrecision(tstorage.Milliseconds),
		tstorage.WithPartitionDuration(6 * time.Hour),
	}
	if workdir != "" {
		opts = append(opts, tstorage.WithDataPath(filepath.Join(workdir, "data", "metrics")))
	}
	s, err := tstorage.NewStorage(opts...)
	if err != nil {
		return err
	}
	mu.Lock()
	storage = s
	counters = map[string]int64{}
	lastTs = map[string]int64{}
	mu.Unlock()
	return nil
}

// SetGauge records the current value of name.
func SetGauge(name string, value int64) {
	mu.Lock()
	defer mu.Unlock()
	insertLocked(name, float64(value))
}

// Incr bumps the process-local counter name and records its new total.
func Incr(name string) {
	mu.Lock()
	defer mu.Unlock()
	counters[name]++
	insertLocked(name, float64(counters[name]))
}

// Counter returns the process-local total for name.
func Counter(name string) int64 {
	mu.Lock()
	defer mu.Unlock()
	return counters[name]
}

// Query returns the samples of name within [start, end).
func Query(name string, start, end time.Time) ([]Point, error) {
	mu.Lock()
	s := storage
	mu.Unlock()
	if s == nil {
		return []Point{}, nil
	}
	dps, err := s.Select(name, nil, start.UnixMilli(), end.UnixMilli())
	if errors.Is(err, tstorage.ErrNoDataPoints) {
		return []Point{}, nil
	}
	if err != nil {
		return nil, err
	}
	points := make([]Point, 0, len(dps))
	for _, dp := range dps {
		points = append(points, Point{Timestamp: dp.Timestamp, Value: dp.Value})
	}
	return points, nil
}

func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if storage == nil {
		return nil
	}
	err := storage.Close()
	storage = nil
	return err
}

// insertLocked writes one sample. tstorage keeps only the first point per
// timestamp, so samples of a metric get strictly increasing timestamps even
// within the same millisecond. Callers hold mu.
func insertLocked(name string, value float64) {
	if storage == nil {
		return
	}
	ts := time.Now().UnixMilli()
	if last := lastTs[name]; ts <= last {
		ts = last + 1
	}
	lastTs[name] = ts
	if err := storage.InsertRows([]tstorage.Row{{
		Metric:    name,
		DataPoint: tstorage.DataPoint{Timestamp: ts, Value: value},
	}}); err != nil {
		zap.L().Warn("metrics insert failed", zap.String("metric", name), zap.Error(err))
	}
}
