package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type FusionMetrics struct {
	ordersCreated *prometheus.CounterVec
	fills         *prometheus.CounterVec
	fillVolume    *prometheus.CounterVec
	feesCollected *prometheus.CounterVec
	cancellations *prometheus.CounterVec
	incentives    prometheus.Counter
	rejections    *prometheus.CounterVec
}

var (
	fusionOnce     sync.Once
	fusionRegistry *FusionMetrics
)

// Fusion returns the process-wide settlement engine metrics, registering them
// with the default Prometheus registry on first use.
func Fusion() *FusionMetrics {
	fusionOnce.Do(func() {
		fusionRegistry = NewFusionMetrics()
		prometheus.MustRegister(fusionRegistry.Collectors()...)
	})
	return fusionRegistry
}

// NewFusionMetrics builds an unregistered metrics set. Callers that need an
// isolated registry register Collectors themselves.
func NewFusionMetrics() *FusionMetrics {
	return &FusionMetrics{
		ordersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fusion_orders_created_total",
			Help: "Count of escrows created by funding path.",
		}, []string{"funding"}),
		fills: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fusion_fills_total",
			Help: "Count of committed fills, split by whether the fill closed the escrow.",
		}, []string{"outcome"}),
		fillVolume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fusion_fill_volume",
			Help: "Source and destination units settled by fills.",
		}, []string{"side"}),
		feesCollected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fusion_fees_total",
			Help: "Destination units routed to fee payouts by kind.",
		}, []string{"kind"}),
		cancellations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fusion_cancellations_total",
			Help: "Count of escrows closed by a cancel path.",
		}, []string{"path"}),
		incentives: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fusion_cancellation_incentives_total",
			Help: "Native units paid to resolvers as cancellation incentives.",
		}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fusion_rejections_total",
			Help: "Count of aborted operations by operation and error class.",
		}, []string{"op", "class"}),
	}
}

// Collectors lists every collector of the metrics set.
func (m *FusionMetrics) Collectors() []prometheus.Collector {
	if m == nil {
		return nil
	}
	return []prometheus.Collector{
		m.ordersCreated,
		m.fills,
		m.fillVolume,
		m.feesCollected,
		m.cancellations,
		m.incentives,
		m.rejections,
	}
}

func (m *FusionMetrics) ObserveCreated(funding string) {
	if m == nil {
		return
	}
	if funding == "" {
		funding = "unknown"
	}
	m.ordersCreated.WithLabelValues(funding).Inc()
}

func (m *FusionMetrics) ObserveFill(srcAmount, dstAmount uint64, closed bool) {
	if m == nil {
		return
	}
	outcome := "partial"
	if closed {
		outcome = "closed"
	}
	m.fills.WithLabelValues(outcome).Inc()
	m.fillVolume.WithLabelValues("src").Add(float64(srcAmount))
	m.fillVolume.WithLabelValues("dst").Add(float64(dstAmount))
}

func (m *FusionMetrics) ObserveFees(protocol, surplus, integrator uint64) {
	if m == nil {
		return
	}
	m.feesCollected.WithLabelValues("protocol").Add(float64(protocol - surplus))
	m.feesCollected.WithLabelValues("surplus").Add(float64(surplus))
	m.feesCollected.WithLabelValues("integrator").Add(float64(integrator))
}

func (m *FusionMetrics) ObserveCancellation(path string, incentive uint64) {
	if m == nil {
		return
	}
	if path == "" {
		path = "unknown"
	}
	m.cancellations.WithLabelValues(path).Inc()
	m.incentives.Add(float64(incentive))
}

func (m *FusionMetrics) ObserveRejection(op, class string) {
	if m == nil {
		return
	}
	if class == "" {
		class = "unknown"
	}
	m.rejections.WithLabelValues(op, class).Inc()
}
