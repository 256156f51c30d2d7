package scoring

import (
	"testing"
	"time"

	"github.com/fraudguard/fraud-service/internal/config"
	"github.com/fraudguard/fraud-service/internal/domain"
)

func testScoringConfig() config.ScoringConfig {
	return config.ScoringConfig{
		RiskyMerchants:      []string{"crypto-exchange", "online-gaming", "gift-card", "wire-transfer"},
		SuspiciousCountries: []string{"Nigeria", "Russia", "Tor Network"},
		OffHoursStart:       2,
		OffHoursEnd:         6,
		SimulatedFraudFloor: 70,
	}
}

func txAt(amount float64, merchantType, country string, hour int) *domain.GeneratedTransaction {
	return &domain.GeneratedTransaction{
		ID:           "TXN-test-1",
		UserID:       "user_1",
		UserName:     "Jane Smith",
		Amount:       amount,
		MerchantType: merchantType,
		MerchantName: merchantType + " Store",
		Country:      country,
		Timestamp:    time.Date(2025, 6, 1, hour, 30, 0, 0, time.UTC),
	}
}

func TestHeuristic_AllSignalsClampTo100(t *testing.T) {
	s := NewHeuristicScorer(testScoringConfig())

	// 30 (amount) + 25 (merchant) + 20 (country) + 15 (hour) = 90, plus
	// the behavioral deviation against a $100 baseline pushes past 100.
	tx := txAt(5000, "crypto-exchange", "Nigeria", 3)
	profile := domain.HistoryProfile{AvgTransactionAmount: 100, TransactionCount: 45}

	result := s.Score(tx, profile)
	if result.RiskScore != 100 {
		t.Errorf("expected clamped score 100, got %d", result.RiskScore)
	}
	if result.FraudProbability != 1.0 {
		t.Errorf("expected fraud probability 1.0, got %f", result.FraudProbability)
	}
}

func TestHeuristic_BenignTransactionScoresZero(t *testing.T) {
	s := NewHeuristicScorer(testScoringConfig())

	tx := txAt(50, "grocery", "USA", 14)
	result := s.Score(tx, domain.StaticHistoryProfile())

	if result.RiskScore != 0 {
		t.Errorf("expected score 0 for benign transaction, got %d", result.RiskScore)
	}
	if result.Source != domain.SourceHeuristic {
		t.Errorf("expected heuristic source, got %s", result.Source)
	}
}

func TestHeuristic_AmountBands(t *testing.T) {
	s := NewHeuristicScorer(testScoringConfig())
	profile := domain.HistoryProfile{} // no baseline, no deviation signal

	tests := []struct {
		amount float64
		want   int
	}{
		{100, 0},
		{201, 10},
		{501, 20},
		{1001, 30},
	}
	for _, tt := range tests {
		tx := txAt(tt.amount, "grocery", "USA", 14)
		if got := s.Score(tx, profile).RiskScore; got != tt.want {
			t.Errorf("amount %.0f: expected score %d, got %d", tt.amount, tt.want, got)
		}
	}
}

func TestHeuristic_SimulatedFraudFloor(t *testing.T) {
	s := NewHeuristicScorer(testScoringConfig())

	// A low-signal transaction tagged as injected fraud must still score
	// at least the floor.
	tx := txAt(20, "grocery", "USA", 14)
	tx.IsSimulatedFraud = true
	tx.FraudReason = "Rapid transaction velocity (card testing)"

	result := s.Score(tx, domain.HistoryProfile{})
	if result.RiskScore < 70 {
		t.Errorf("simulated fraud must score >= 70, got %d", result.RiskScore)
	}
}

func TestHeuristic_ScoreAlwaysInBounds(t *testing.T) {
	s := NewHeuristicScorer(testScoringConfig())

	amounts := []float64{0, 0.01, 199.99, 200.01, 500.5, 1000.01, 99999}
	merchants := []string{"grocery", "crypto-exchange", "gift-card", "hotel", ""}
	countries := []string{"USA", "Nigeria", "Tor Network", ""}
	hours := []int{0, 2, 5, 6, 13, 23}
	profiles := []domain.HistoryProfile{
		{},
		domain.StaticHistoryProfile(),
		{AvgTransactionAmount: 1, TransactionCount: 1, UnusualPatterns: []string{"rapid-velocity"}},
	}

	for _, amount := range amounts {
		for _, merchant := range merchants {
			for _, country := range countries {
				for _, hour := range hours {
					for _, profile := range profiles {
						for _, fraud := range []bool{false, true} {
							tx := txAt(amount, merchant, country, hour)
							tx.IsSimulatedFraud = fraud
							score := s.Score(tx, profile).RiskScore
							if score < 0 || score > 100 {
								t.Fatalf("score out of bounds: %d for amount=%.2f merchant=%q country=%q hour=%d fraud=%v",
									score, amount, merchant, country, hour, fraud)
							}
							if fraud && score < 70 {
								t.Fatalf("simulated fraud scored %d, below floor", score)
							}
						}
					}
				}
			}
		}
	}
}

func TestHeuristic_RiskFactorsRankedAndCapped(t *testing.T) {
	s := NewHeuristicScorer(testScoringConfig())

	tx := txAt(4800, "crypto-exchange", "Nigeria", 3)
	tx.FraudReason = "Suspicious geographic location"
	profile := domain.HistoryProfile{AvgTransactionAmount: 100}

	factors := s.RiskFactors(tx, profile)
	if len(factors) > 4 {
		t.Fatalf("expected at most 4 risk factors, got %d", len(factors))
	}
	if len(factors) == 0 {
		t.Fatal("expected risk factors for a multi-signal transaction")
	}
	for _, f := range factors {
		if f.Impact < 0 || f.Impact > 1 {
			t.Errorf("factor %q impact out of [0,1]: %f", f.Factor, f.Impact)
		}
		if f.Description == "" || f.Evidence == "" {
			t.Errorf("factor %q missing description or evidence", f.Factor)
		}
	}
	if factors[0].Factor != "High Transaction Amount" {
		t.Errorf("expected amount factor first, got %q", factors[0].Factor)
	}
}
