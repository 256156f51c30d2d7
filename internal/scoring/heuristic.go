package scoring

import (
	"fmt"
	"strings"

	"github.com/fraudguard/fraud-service/internal/config"
	"github.com/fraudguard/fraud-service/internal/domain"
)

// Additive rule weights for the local scoring path.
const (
	weightAmountHigh    = 30 // amount > 1000
	weightAmountMedium  = 20 // amount > 500
	weightAmountLow     = 10 // amount > 200
	weightRiskyMerchant = 25
	weightSuspiciousGeo = 20
	weightOffHours      = 15
	weightDeviation     = 20 // amount > 3x historical average
	weightPatternFlag   = 15 // unusual patterns in history profile

	heuristicConfidence   = 0.75
	heuristicModelVersion = "fallback-v1.0"

	maxRiskFactors = 4
)

// HeuristicScorer computes risk scores from fixed rules. It is the
// substitute used whenever the remote model is unreachable, failing,
// or not configured.
type HeuristicScorer struct {
	cfg                 config.ScoringConfig
	riskyMerchants      []string
	suspiciousCountries map[string]bool
}

// NewHeuristicScorer creates a rule-based scorer.
func NewHeuristicScorer(cfg config.ScoringConfig) *HeuristicScorer {
	suspicious := make(map[string]bool, len(cfg.SuspiciousCountries))
	for _, c := range cfg.SuspiciousCountries {
		suspicious[c] = true
	}

	return &HeuristicScorer{
		cfg:                 cfg,
		riskyMerchants:      cfg.RiskyMerchants,
		suspiciousCountries: suspicious,
	}
}

// Score computes the full heuristic result for a transaction.
func (s *HeuristicScorer) Score(tx *domain.GeneratedTransaction, profile domain.HistoryProfile) *domain.ScoreResult {
	score := s.calculateScore(tx, profile)

	return &domain.ScoreResult{
		RiskScore:        score,
		FraudProbability: float64(score) / 100,
		Confidence:       heuristicConfidence,
		RiskFactors:      s.RiskFactors(tx, profile),
		Analysis:         s.analysis(tx, score),
		ModelVersion:     heuristicModelVersion,
		Source:           domain.SourceHeuristic,
	}
}

// calculateScore applies the additive rule set and clamps to [0, 100].
func (s *HeuristicScorer) calculateScore(tx *domain.GeneratedTransaction, profile domain.HistoryProfile) int {
	score := 0

	// Amount bands
	switch {
	case tx.Amount > 1000:
		score += weightAmountHigh
	case tx.Amount > 500:
		score += weightAmountMedium
	case tx.Amount > 200:
		score += weightAmountLow
	}

	if s.isRiskyMerchant(tx.MerchantType) {
		score += weightRiskyMerchant
	}

	if s.suspiciousCountries[tx.Country] {
		score += weightSuspiciousGeo
	}

	if s.isOffHours(tx.Hour()) {
		score += weightOffHours
	}

	// Behavioral deviation against the historical baseline
	if profile.AvgTransactionAmount > 0 && tx.Amount > profile.AvgTransactionAmount*3 {
		score += weightDeviation
	}
	if len(profile.UnusualPatterns) > 0 {
		score += weightPatternFlag
	}

	// Injected fraud must never score below the floor
	if tx.IsSimulatedFraud && score < s.cfg.SimulatedFraudFloor {
		score = s.cfg.SimulatedFraudFloor
	}

	return domain.ClampScore(score)
}

// RiskFactors derives up to four ranked explanation factors from the same
// signals the score uses.
func (s *HeuristicScorer) RiskFactors(tx *domain.GeneratedTransaction, profile domain.HistoryProfile) []domain.RiskFactor {
	var factors []domain.RiskFactor

	if tx.Amount > 500 {
		impact := tx.Amount / 5000
		if impact > 0.4 {
			impact = 0.4
		}
		factors = append(factors, domain.RiskFactor{
			Factor:      "High Transaction Amount",
			Impact:      impact,
			Description: fmt.Sprintf("Transaction amount of $%.2f is significantly higher than typical.", tx.Amount),
			Evidence:    fmt.Sprintf("Amount: $%.2f, Avg: $%.2f", tx.Amount, profile.AvgTransactionAmount),
		})
	}

	if s.isRiskyMerchant(tx.MerchantType) {
		factors = append(factors, domain.RiskFactor{
			Factor:      "High-Risk Merchant Category",
			Impact:      0.35,
			Description: fmt.Sprintf("%s has elevated fraud rates.", tx.MerchantType),
			Evidence:    fmt.Sprintf("Merchant: %s", tx.MerchantName),
		})
	}

	if profile.AvgTransactionAmount > 0 && tx.Amount > profile.AvgTransactionAmount*2 {
		factors = append(factors, domain.RiskFactor{
			Factor:      "Behavioral Anomaly",
			Impact:      0.25,
			Description: "Transaction amount deviates significantly from the user's historical patterns.",
			Evidence:    fmt.Sprintf("Current: $%.2f, Historical Avg: $%.2f", tx.Amount, profile.AvgTransactionAmount),
		})
	}

	if s.isOffHours(tx.Hour()) {
		factors = append(factors, domain.RiskFactor{
			Factor:      "Unusual Transaction Time",
			Impact:      0.2,
			Description: "Transaction occurred during unusual hours (late night/early morning).",
			Evidence:    fmt.Sprintf("Time: %s", tx.Timestamp.Format("15:04:05")),
		})
	}

	if tx.FraudReason != "" {
		factors = append(factors, domain.RiskFactor{
			Factor:      "Pattern Anomaly",
			Impact:      0.25,
			Description: tx.FraudReason,
			Evidence:    "Automated fraud detection",
		})
	}

	if len(factors) > maxRiskFactors {
		factors = factors[:maxRiskFactors]
	}
	return factors
}

func (s *HeuristicScorer) analysis(tx *domain.GeneratedTransaction, score int) string {
	switch {
	case score > 70:
		return fmt.Sprintf("High fraud risk detected for $%.2f transaction at %s. Multiple risk factors identified including unusual amount, merchant category, and behavioral patterns. Immediate review recommended.", tx.Amount, tx.MerchantType)
	case score > 40:
		return fmt.Sprintf("Moderate fraud risk for $%.2f transaction. Some suspicious patterns detected but transaction may be legitimate. Suggest monitoring for additional activity.", tx.Amount)
	default:
		return fmt.Sprintf("Low fraud risk for $%.2f transaction at %s. Transaction patterns appear normal with no significant red flags.", tx.Amount, tx.MerchantType)
	}
}

func (s *HeuristicScorer) isRiskyMerchant(merchantType string) bool {
	for _, risky := range s.riskyMerchants {
		if strings.Contains(merchantType, risky) {
			return true
		}
	}
	return false
}

func (s *HeuristicScorer) isOffHours(hour int) bool {
	return hour >= s.cfg.OffHoursStart && hour < s.cfg.OffHoursEnd
}
