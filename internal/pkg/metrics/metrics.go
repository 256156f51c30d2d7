package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fraudguard/fraud-service/internal/pkg/logger"
)

// Collector tracks pipeline throughput, scoring latency and alert
// volume for Prometheus scraping.
type Collector struct {
	registry *prometheus.Registry

	transactionsProcessed *prometheus.CounterVec
	persistenceFailures   *prometheus.CounterVec
	scoringDuration       prometheus.Histogram
	riskScoreDistribution prometheus.Histogram
	alertsEmitted         *prometheus.CounterVec
	ticksDropped          prometheus.Counter
	simulatorRunning      prometheus.Gauge

	log *logger.Logger
}

// NewCollector creates a collector with its own registry.
func NewCollector(log *logger.Logger) *Collector {
	registry := prometheus.NewRegistry()

	return &Collector{
		registry: registry,
		transactionsProcessed: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "fraud_transactions_processed_total",
			Help: "Total number of scored transactions by score source",
		}, []string{"source"}),
		persistenceFailures: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "fraud_persistence_failures_total",
			Help: "Total number of failed database writes by record kind",
		}, []string{"kind"}),
		scoringDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "fraud_scoring_duration_seconds",
			Help:    "Time taken to score a transaction",
			Buckets: prometheus.DefBuckets,
		}),
		riskScoreDistribution: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "fraud_risk_score_distribution",
			Help:    "Distribution of transaction risk scores",
			Buckets: []float64{0, 20, 40, 60, 80, 100},
		}),
		alertsEmitted: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "fraud_alerts_emitted_total",
			Help: "Total number of fraud alerts by severity",
		}, []string{"severity"}),
		ticksDropped: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "fraud_simulator_ticks_dropped_total",
			Help: "Total number of simulator ticks skipped because the previous tick was still running",
		}),
		simulatorRunning: promauto.With(registry).NewGauge(prometheus.GaugeOpts{
			Name: "fraud_simulator_running",
			Help: "Whether the transaction simulator is currently running",
		}),
		log: log.Named("metrics"),
	}
}

// RecordScore registers one scored transaction.
func (c *Collector) RecordScore(source string, riskScore int, duration time.Duration) {
	c.transactionsProcessed.WithLabelValues(source).Inc()
	c.scoringDuration.Observe(duration.Seconds())
	c.riskScoreDistribution.Observe(float64(riskScore))
}

// RecordAlert registers one emitted alert.
func (c *Collector) RecordAlert(severity string) {
	c.alertsEmitted.WithLabelValues(severity).Inc()
}

// RecordPersistenceFailure registers one failed database write.
func (c *Collector) RecordPersistenceFailure(kind string) {
	c.persistenceFailures.WithLabelValues(kind).Inc()
}

// RecordTickDropped registers one skipped simulator tick.
func (c *Collector) RecordTickDropped() {
	c.ticksDropped.Inc()
}

// SetSimulatorRunning flips the simulator state gauge.
func (c *Collector) SetSimulatorRunning(running bool) {
	if running {
		c.simulatorRunning.Set(1)
	} else {
		c.simulatorRunning.Set(0)
	}
}

// Handler returns the scrape handler for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// StartServer serves /metrics on the given port in a background
// goroutine and returns the server for shutdown.
func (c *Collector) StartServer(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		c.log.Info("starting metrics server", logger.StringField("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			c.log.Error("metrics server failed", logger.ErrorField(err))
		}
	}()

	return server
}
