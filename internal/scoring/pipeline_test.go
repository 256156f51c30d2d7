package scoring_test

import (
	"context"
	"testing"

	"github.com/fraudguard/fraud-service/internal/config"
	"github.com/fraudguard/fraud-service/internal/domain"
	"github.com/fraudguard/fraud-service/internal/pkg/logger"
	"github.com/fraudguard/fraud-service/internal/scoring"
	"github.com/fraudguard/fraud-service/internal/simulator"
)

type fixedHistory struct{}

func (fixedHistory) Profile(ctx context.Context, userID string) (domain.HistoryProfile, error) {
	return domain.StaticHistoryProfile(), nil
}

func (fixedHistory) Record(ctx context.Context, userID string, amount float64) error {
	return nil
}

func pipelineScoringConfig() config.ScoringConfig {
	return config.ScoringConfig{
		RiskyMerchants:      []string{"crypto-exchange", "online-gaming", "gift-card", "wire-transfer"},
		SuspiciousCountries: []string{"Nigeria", "Russia", "Tor Network"},
		OffHoursStart:       2,
		OffHoursEnd:         6,
		SimulatedFraudFloor: 70,
	}
}

// Generate, score, emit: every transaction from the generator produces a
// bounded score and an alert exactly when the score crosses the low
// threshold.
func TestPipeline_GenerateScoreEmitNeverFails(t *testing.T) {
	log, err := logger.New("fraud-service-test", "test", false)
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	gen := simulator.NewSeededGenerator(domain.DefaultSimulatorConfig(), 42)
	p := scoring.NewProcessor(nil, scoring.NewHeuristicScorer(pipelineScoringConfig()), fixedHistory{}, log)
	e := scoring.NewEmitter()

	for i := 0; i < 500; i++ {
		tx := gen.Generate()
		processed := p.Process(context.Background(), tx)
		if processed.RiskScore < 0 || processed.RiskScore > 100 {
			t.Fatalf("score out of bounds: %d", processed.RiskScore)
		}
		alert := e.Emit(processed)
		if processed.RiskScore >= domain.ThresholdLow && alert == nil {
			t.Fatalf("score %d produced no alert", processed.RiskScore)
		}
		if processed.RiskScore < domain.ThresholdLow && alert != nil {
			t.Fatalf("score %d produced an unexpected alert", processed.RiskScore)
		}
	}
	if p.ProcessedCount() != 500 {
		t.Errorf("expected 500 processed, got %d", p.ProcessedCount())
	}
}
