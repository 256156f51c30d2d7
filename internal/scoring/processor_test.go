package scoring

import (
	"context"
	"errors"
	"testing"

	"github.com/fraudguard/fraud-service/internal/domain"
	"github.com/fraudguard/fraud-service/internal/pkg/logger"
)

type stubRemote struct {
	result *domain.ScoreResult
	err    error
	calls  int
}

func (s *stubRemote) Score(ctx context.Context, tx *domain.GeneratedTransaction, profile domain.HistoryProfile) (*domain.ScoreResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubHistory struct {
	profile    domain.HistoryProfile
	profileErr error
	recorded   []float64
}

func (s *stubHistory) Profile(ctx context.Context, userID string) (domain.HistoryProfile, error) {
	if s.profileErr != nil {
		return domain.HistoryProfile{}, s.profileErr
	}
	return s.profile, nil
}

func (s *stubHistory) Record(ctx context.Context, userID string, amount float64) error {
	s.recorded = append(s.recorded, amount)
	return nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("fraud-service-test", "test", false)
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func TestProcess_RemoteResultUsed(t *testing.T) {
	remote := &stubRemote{result: &domain.ScoreResult{
		RiskScore:        82,
		FraudProbability: 0.82,
		Confidence:       0.91,
		Analysis:         "remote analysis",
		ModelVersion:     "pangu-fraud-v1.0",
		Source:           domain.SourceRemote,
	}}
	history := &stubHistory{profile: domain.StaticHistoryProfile()}
	p := NewProcessor(remote, NewHeuristicScorer(testScoringConfig()), history, testLogger(t))

	tx := txAt(900, "electronics", "USA", 14)
	got := p.Process(context.Background(), tx)

	if remote.calls != 1 {
		t.Fatalf("expected one remote call, got %d", remote.calls)
	}
	if got.RiskScore != 82 || got.ModelVersion != "pangu-fraud-v1.0" {
		t.Errorf("remote result not propagated: score=%d version=%s", got.RiskScore, got.ModelVersion)
	}
	if got.AIAnalysis != "remote analysis" {
		t.Errorf("unexpected analysis %q", got.AIAnalysis)
	}
	if len(history.recorded) != 1 || history.recorded[0] != 900 {
		t.Errorf("transaction amount not recorded into history: %v", history.recorded)
	}
}

func TestProcess_FallsBackOnRemoteError(t *testing.T) {
	remote := &stubRemote{err: errors.New("inference endpoint unavailable")}
	history := &stubHistory{profile: domain.StaticHistoryProfile()}
	p := NewProcessor(remote, NewHeuristicScorer(testScoringConfig()), history, testLogger(t))

	tx := txAt(5000, "crypto-exchange", "Nigeria", 3)
	got := p.Process(context.Background(), tx)

	if got.ModelVersion != "fallback-v1.0" {
		t.Errorf("expected heuristic fallback, got model version %s", got.ModelVersion)
	}
	if got.RiskScore != 100 {
		t.Errorf("expected clamped heuristic score 100, got %d", got.RiskScore)
	}
}

func TestProcess_NilRemoteUsesHeuristic(t *testing.T) {
	history := &stubHistory{profile: domain.StaticHistoryProfile()}
	p := NewProcessor(nil, NewHeuristicScorer(testScoringConfig()), history, testLogger(t))

	got := p.Process(context.Background(), txAt(50, "grocery", "USA", 14))
	if got.RiskScore != 0 {
		t.Errorf("expected score 0, got %d", got.RiskScore)
	}
	if got.ModelVersion != "fallback-v1.0" {
		t.Errorf("expected heuristic model version, got %s", got.ModelVersion)
	}
}

func TestProcess_StaticBaselineOnHistoryError(t *testing.T) {
	history := &stubHistory{profileErr: errors.New("redis down")}
	p := NewProcessor(nil, NewHeuristicScorer(testScoringConfig()), history, testLogger(t))

	// $400 is above 3x the static $120 baseline, so the deviation rule
	// fires and proves the static profile was substituted.
	got := p.Process(context.Background(), txAt(400, "grocery", "USA", 14))
	if got.RiskScore != weightAmountLow+weightDeviation {
		t.Errorf("expected score %d from static baseline deviation, got %d", weightAmountLow+weightDeviation, got.RiskScore)
	}
}

func TestProcess_SimulatedFraudGetsPatternSignal(t *testing.T) {
	history := &stubHistory{profile: domain.HistoryProfile{AvgTransactionAmount: 5000, TransactionCount: 10}}
	p := NewProcessor(nil, NewHeuristicScorer(testScoringConfig()), history, testLogger(t))

	tx := txAt(50, "grocery", "USA", 14)
	tx.IsSimulatedFraud = true
	tx.FraudReason = "Rapid transaction velocity (card testing)"

	got := p.Process(context.Background(), tx)
	if got.RiskScore < 70 {
		t.Errorf("injected fraud must score at least 70, got %d", got.RiskScore)
	}
}

func TestProcess_SourceReflectsScoringPath(t *testing.T) {
	history := &stubHistory{profile: domain.StaticHistoryProfile()}

	// A remote model that happens to report the heuristic's version
	// string is still a remote result.
	remote := &stubRemote{result: &domain.ScoreResult{
		RiskScore:    30,
		ModelVersion: "fallback-v1.0",
		Source:       domain.SourceRemote,
	}}
	p := NewProcessor(remote, NewHeuristicScorer(testScoringConfig()), history, testLogger(t))
	if got := p.Process(context.Background(), txAt(50, "grocery", "USA", 14)); got.ScoreSource != domain.SourceRemote {
		t.Errorf("expected remote source, got %q", got.ScoreSource)
	}

	p = NewProcessor(nil, NewHeuristicScorer(testScoringConfig()), history, testLogger(t))
	if got := p.Process(context.Background(), txAt(50, "grocery", "USA", 14)); got.ScoreSource != domain.SourceHeuristic {
		t.Errorf("expected heuristic source, got %q", got.ScoreSource)
	}
}
