package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Muab01/samVR/internal/core/domain"
)

// PrometheusCollector exposes the media server's operational metrics.
type PrometheusCollector struct {
	connectionsActive prometheus.Gauge
	connectionsTotal  prometheus.Counter
	venuesLoaded      prometheus.Gauge

	signalRequestDuration *prometheus.HistogramVec
	transformBatchSize    prometheus.Histogram
	transformsFlushed     prometheus.Counter

	venueClientCount *prometheus.GaugeVec
	producersActive  *prometheus.GaugeVec
	consumersActive  prometheus.Gauge
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		connectionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "samvr_connections_active",
			Help: "Number of live websocket connections",
		}),

		connectionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "samvr_connections_total",
			Help: "Total number of websocket connections accepted",
		}),

		venuesLoaded: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "samvr_venues_loaded",
			Help: "Number of venues currently loaded in memory",
		}),

		signalRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "samvr_signal_request_duration_seconds",
			Help:    "Latency of signaling requests by method",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"method", "outcome"}),

		transformBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "samvr_transform_batch_size",
			Help:    "Number of distinct movers per coalesced transform flush",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 200},
		}),

		transformsFlushed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "samvr_transform_flushes_total",
			Help: "Total number of coalesced transform broadcasts",
		}),

		venueClientCount: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "samvr_venue_client_count",
			Help: "Number of clients per loaded venue by client type",
		}, []string{"venue_id", "client_type"}),

		producersActive: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "samvr_producers_active",
			Help: "Number of live producers by media kind",
		}, []string{"kind"}),

		consumersActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "samvr_consumers_active",
			Help: "Number of live consumers",
		}),
	}
}

func (p *PrometheusCollector) RecordConnectionOpened() {
	p.connectionsActive.Inc()
	p.connectionsTotal.Inc()
}

func (p *PrometheusCollector) RecordConnectionClosed() {
	p.connectionsActive.Dec()
}

func (p *PrometheusCollector) RecordVenueLoaded(venueID domain.VenueID) {
	p.venuesLoaded.Inc()
}

func (p *PrometheusCollector) RecordVenueUnloaded(venueID domain.VenueID) {
	p.venuesLoaded.Dec()
	p.venueClientCount.DeleteLabelValues(string(venueID), "client")
	p.venueClientCount.DeleteLabelValues(string(venueID), "sender")
}

func (p *PrometheusCollector) RecordSignalRequest(method string, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	p.signalRequestDuration.WithLabelValues(method, outcome).Observe(duration.Seconds())
}

func (p *PrometheusCollector) RecordTransformFlush(movers int) {
	p.transformsFlushed.Inc()
	p.transformBatchSize.Observe(float64(movers))
}

func (p *PrometheusCollector) SetVenueClientCount(venueID domain.VenueID, clientType domain.ClientType, count int) {
	p.venueClientCount.WithLabelValues(string(venueID), string(clientType)).Set(float64(count))
}

func (p *PrometheusCollector) RecordProducerOpened(kind domain.MediaKind) {
	p.producersActive.WithLabelValues(string(kind)).Inc()
}

func (p *PrometheusCollector) RecordProducerClosed(kind domain.MediaKind) {
	p.producersActive.WithLabelValues(string(kind)).Dec()
}

func (p *PrometheusCollector) RecordConsumerOpened() {
	p.consumersActive.Inc()
}

func (p *PrometheusCollector) RecordConsumerClosed() {
	p.consumersActive.Dec()
}
