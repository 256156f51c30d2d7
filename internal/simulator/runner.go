package simulator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fraudguard/fraud-service/internal/domain"
	"github.com/fraudguard/fraud-service/internal/pkg/logger"
	"github.com/fraudguard/fraud-service/internal/pkg/metrics"
	"github.com/fraudguard/fraud-service/internal/scoring"
)

// recentLimit caps the in-memory buffers used when no database is
// configured.
const recentLimit = 100

// Store persists pipeline output. nil disables persistence.
type Store interface {
	SaveTransaction(ctx context.Context, tx *domain.ProcessedTransaction) (string, error)
	SaveAlert(ctx context.Context, alert *domain.FraudAlert) (string, error)
}

// AlertPublisher streams alerts to an event bus. nil disables
// publishing.
type AlertPublisher interface {
	PublishAlert(alert *domain.FraudAlert) error
}

// RunnerStatus is a snapshot of the pipeline state.
type RunnerStatus struct {
	Running      bool                   `json:"running"`
	Processed    int64                  `json:"processed"`
	AlertCount   int64                  `json:"alert_count"`
	DroppedTicks int64                  `json:"dropped_ticks"`
	AvgLatencyMs float64                `json:"avg_latency_ms"`
	Config       domain.SimulatorConfig `json:"config"`
}

// Runner drives the simulation pipeline on a timer: each tick generates
// one transaction, scores it, and emits and persists any resulting
// alert. A tick that arrives while the previous one is still processing
// is dropped rather than queued.
type Runner struct {
	generator *Generator
	processor *scoring.Processor
	emitter   *scoring.Emitter
	store     Store
	publisher AlertPublisher
	collector *metrics.Collector
	log       *logger.Logger

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	done     chan struct{}
	reconfig chan struct{}

	busy         atomic.Bool
	inflight     sync.WaitGroup
	alertCount   atomic.Int64
	droppedTicks atomic.Int64

	recentMu     sync.RWMutex
	recentTxs    []domain.ProcessedTransaction
	recentAlerts []domain.FraudAlert
}

// NewRunner wires the pipeline together. store and publisher may be nil.
func NewRunner(
	generator *Generator,
	processor *scoring.Processor,
	emitter *scoring.Emitter,
	store Store,
	publisher AlertPublisher,
	collector *metrics.Collector,
	log *logger.Logger,
) *Runner {
	return &Runner{
		generator: generator,
		processor: processor,
		emitter:   emitter,
		store:     store,
		publisher: publisher,
		collector: collector,
		log:       log.Named("runner"),
		reconfig:  make(chan struct{}, 1),
	}
}

// Start begins the tick loop. Calling Start on a running pipeline is a
// no-op.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.running = true
	r.collector.SetSimulatorRunning(true)

	cfg := r.generator.Config()
	r.log.Info("simulator started",
		logger.IntField("transactions_per_minute", cfg.TransactionsPerMinute),
		logger.Float64Field("fraud_rate", cfg.FraudRate),
	)

	go r.run(runCtx)
}

// Stop halts the tick loop and waits for the in-flight tick to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	cancel := r.cancel
	done := r.done
	r.mu.Unlock()

	cancel()
	<-done
	r.inflight.Wait()

	r.collector.SetSimulatorRunning(false)
	r.log.Info("simulator stopped")
}

// Running reports whether the tick loop is active.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// UpdateConfig applies new simulator settings. The tick interval changes
// take effect immediately.
func (r *Runner) UpdateConfig(cfg domain.SimulatorConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	r.generator.UpdateConfig(cfg)

	select {
	case r.reconfig <- struct{}{}:
	default:
	}
	return nil
}

// Status returns a snapshot of the pipeline.
func (r *Runner) Status() RunnerStatus {
	return RunnerStatus{
		Running:      r.Running(),
		Processed:    r.processor.ProcessedCount(),
		AlertCount:   r.alertCount.Load(),
		DroppedTicks: r.droppedTicks.Load(),
		AvgLatencyMs: r.processor.AverageLatency(),
		Config:       r.generator.Config(),
	}
}

// RecentTransactions returns the in-memory tail of processed
// transactions, newest first.
func (r *Runner) RecentTransactions(limit int) []domain.ProcessedTransaction {
	r.recentMu.RLock()
	defer r.recentMu.RUnlock()

	if limit <= 0 || limit > len(r.recentTxs) {
		limit = len(r.recentTxs)
	}
	out := make([]domain.ProcessedTransaction, limit)
	for i := 0; i < limit; i++ {
		out[i] = r.recentTxs[len(r.recentTxs)-1-i]
	}
	return out
}

// RecentAlerts returns the in-memory tail of emitted alerts, newest
// first.
func (r *Runner) RecentAlerts(limit int) []domain.FraudAlert {
	r.recentMu.RLock()
	defer r.recentMu.RUnlock()

	if limit <= 0 || limit > len(r.recentAlerts) {
		limit = len(r.recentAlerts)
	}
	out := make([]domain.FraudAlert, limit)
	for i := 0; i < limit; i++ {
		out[i] = r.recentAlerts[len(r.recentAlerts)-1-i]
	}
	return out
}

func (r *Runner) run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.generator.Config().TickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.reconfig:
			ticker.Reset(r.generator.Config().TickInterval())
		case <-ticker.C:
			r.tick()
		}
	}
}

// tickWorkTimeout bounds one tick's scoring and persistence.
const tickWorkTimeout = 30 * time.Second

// tick runs one pipeline pass. Overlapping ticks are dropped.
func (r *Runner) tick() {
	if !r.busy.CompareAndSwap(false, true) {
		interval := r.generator.Config().TickInterval()
		r.droppedTicks.Add(1)
		r.collector.RecordTickDropped()
		r.log.TickDropped(interval)
		return
	}

	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		defer r.busy.Store(false)

		// Tick work runs on its own context so stopping the loop does
		// not abort the last tick's remote calls or writes. Stop waits
		// for this goroutine instead.
		ctx, cancel := context.WithTimeout(context.Background(), tickWorkTimeout)
		defer cancel()

		start := time.Now()
		tx := r.generator.Generate()
		processed := r.processor.Process(ctx, tx)

		r.collector.RecordScore(string(processed.ScoreSource), processed.RiskScore, time.Since(start))

		alert := r.emitter.Emit(processed)
		if alert != nil {
			r.alertCount.Add(1)
			r.collector.RecordAlert(string(alert.Severity))
			r.log.AlertCreated(alert.ID, string(alert.Severity), alert.TransactionID, alert.RiskScore)
		}

		r.remember(processed, alert)
		r.persist(ctx, processed, alert)
	}()
}

// persist writes the transaction first so the alert's foreign key
// resolves, then stores and publishes the alert concurrently.
func (r *Runner) persist(ctx context.Context, tx *domain.ProcessedTransaction, alert *domain.FraudAlert) {
	if r.store != nil {
		if _, err := r.store.SaveTransaction(ctx, tx); err != nil {
			r.collector.RecordPersistenceFailure("transaction")
			r.log.PersistenceFailed("transaction", tx.ID, err)
			return
		}
	}

	if alert == nil {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	if r.store != nil {
		g.Go(func() error {
			if _, err := r.store.SaveAlert(gctx, alert); err != nil {
				r.collector.RecordPersistenceFailure("alert")
				r.log.PersistenceFailed("alert", alert.ID, err)
			}
			return nil
		})
	}
	if r.publisher != nil {
		g.Go(func() error {
			if err := r.publisher.PublishAlert(alert); err != nil {
				r.log.Warn("alert publish failed", logger.ErrorField(err))
			}
			return nil
		})
	}
	g.Wait()
}

func (r *Runner) remember(tx *domain.ProcessedTransaction, alert *domain.FraudAlert) {
	r.recentMu.Lock()
	defer r.recentMu.Unlock()

	r.recentTxs = append(r.recentTxs, *tx)
	if len(r.recentTxs) > recentLimit {
		r.recentTxs = r.recentTxs[len(r.recentTxs)-recentLimit:]
	}
	if alert != nil {
		r.recentAlerts = append(r.recentAlerts, *alert)
		if len(r.recentAlerts) > recentLimit {
			r.recentAlerts = r.recentAlerts[len(r.recentAlerts)-recentLimit:]
		}
	}
}
