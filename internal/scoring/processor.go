package scoring

import (
	"context"
	"sync"
	"time"

	"github.com/fraudguard/fraud-service/internal/domain"
	"github.com/fraudguard/fraud-service/internal/pkg/logger"
)

// RemoteScorer is the signed AI inference endpoint. A nil RemoteScorer
// means the remote path is not configured and every transaction takes
// the heuristic path.
type RemoteScorer interface {
	Score(ctx context.Context, tx *domain.GeneratedTransaction, profile domain.HistoryProfile) (*domain.ScoreResult, error)
}

// HistorySource provides the behavioral baseline for a user and records
// observed transactions back into it.
type HistorySource interface {
	Profile(ctx context.Context, userID string) (domain.HistoryProfile, error)
	Record(ctx context.Context, userID string, amount float64) error
}

// slowScoreThresholdMs flags scoring calls that take long enough to risk
// colliding with the next simulator tick.
const slowScoreThresholdMs = 2000

// Processor assigns a risk score and explanation to each transaction.
// It never fails: any remote error routes to the heuristic scorer, so a
// result is always produced.
type Processor struct {
	remote    RemoteScorer
	heuristic *HeuristicScorer
	history   HistorySource
	log       *logger.Logger

	// Latency tracking
	processedCount int64
	avgLatencyMs   float64
	latencyMu      sync.RWMutex
}

// NewProcessor creates a scoring processor. remote may be nil; history
// must not be.
func NewProcessor(remote RemoteScorer, heuristic *HeuristicScorer, history HistorySource, log *logger.Logger) *Processor {
	return &Processor{
		remote:    remote,
		heuristic: heuristic,
		history:   history,
		log:       log.Named("processor"),
	}
}

// Process scores one transaction, preferring the remote model and falling
// back to the local heuristic on any error.
func (p *Processor) Process(ctx context.Context, tx *domain.GeneratedTransaction) *domain.ProcessedTransaction {
	start := time.Now()

	profile, err := p.history.Profile(ctx, tx.UserID)
	if err != nil {
		p.log.Debug("history profile unavailable, using static baseline", logger.ErrorField(err))
		profile = domain.StaticHistoryProfile()
	}
	if tx.IsSimulatedFraud {
		profile.UnusualPatterns = append(profile.UnusualPatterns, "rapid-velocity")
	}

	result := p.score(ctx, tx, profile)

	durationMs := time.Since(start).Milliseconds()
	p.recordLatency(durationMs)
	if durationMs > slowScoreThresholdMs {
		p.log.LatencyWarning("score", durationMs, slowScoreThresholdMs)
	}

	if err := p.history.Record(ctx, tx.UserID, tx.Amount); err != nil {
		p.log.Debug("failed to record transaction history", logger.ErrorField(err))
	}

	p.log.ScoringCompleted(tx.ID, string(result.Source), result.RiskScore, durationMs)

	return &domain.ProcessedTransaction{
		GeneratedTransaction: *tx,
		RiskScore:            result.RiskScore,
		FraudProbability:     result.FraudProbability,
		Confidence:           result.Confidence,
		RiskFactors:          result.RiskFactors,
		AIAnalysis:           result.Analysis,
		ProcessingTimeMs:     durationMs,
		ModelVersion:         result.ModelVersion,
		ScoreSource:          result.Source,
	}
}

func (p *Processor) score(ctx context.Context, tx *domain.GeneratedTransaction, profile domain.HistoryProfile) *domain.ScoreResult {
	if p.remote == nil {
		return p.heuristic.Score(tx, profile)
	}

	result, err := p.remote.Score(ctx, tx, profile)
	if err != nil {
		p.log.FallbackUsed(tx.ID, err)
		return p.heuristic.Score(tx, profile)
	}
	return result
}

// recordLatency keeps an exponential moving average of processing time.
func (p *Processor) recordLatency(durationMs int64) {
	p.latencyMu.Lock()
	defer p.latencyMu.Unlock()

	p.processedCount++
	p.avgLatencyMs = p.avgLatencyMs*0.9 + float64(durationMs)*0.1
}

// AverageLatency returns the moving-average processing latency.
func (p *Processor) AverageLatency() float64 {
	p.latencyMu.RLock()
	defer p.latencyMu.RUnlock()
	return p.avgLatencyMs
}

// ProcessedCount returns the number of transactions scored.
func (p *Processor) ProcessedCount() int64 {
	p.latencyMu.RLock()
	defer p.latencyMu.RUnlock()
	return p.processedCount
}
