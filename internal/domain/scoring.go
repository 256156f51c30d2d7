package domain

// ScoreSource identifies which scoring path produced a result.
type ScoreSource string

const (
	SourceRemote    ScoreSource = "remote"
	SourceHeuristic ScoreSource = "heuristic"
)

// Severity represents the alert severity tier derived from a risk score.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Alert severity thresholds. A score below ThresholdLow produces no alert;
// otherwise the severity is the largest tier boundary not exceeding it.
const (
	ThresholdLow      = 40
	ThresholdMedium   = 60
	ThresholdHigh     = 75
	ThresholdCritical = 90
)

// SeverityForScore maps a risk score to its severity tier.
// Only meaningful for scores >= ThresholdLow.
func SeverityForScore(score int) Severity {
	switch {
	case score >= ThresholdCritical:
		return SeverityCritical
	case score >= ThresholdHigh:
		return SeverityHigh
	case score >= ThresholdMedium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// RiskFactor is one ranked signal contributing to a risk score.
type RiskFactor struct {
	Factor      string  `json:"factor"`
	Impact      float64 `json:"impact"` // 0-1
	Description string  `json:"description"`
	Evidence    string  `json:"evidence"`
}

// ScoreResult is the outcome of scoring a transaction. Source records
// whether the remote model or the local heuristic produced it; callers
// treat both variants identically.
type ScoreResult struct {
	RiskScore        int          `json:"risk_score"` // 0-100
	FraudProbability float64      `json:"fraud_probability"`
	Confidence       float64      `json:"confidence"`
	RiskFactors      []RiskFactor `json:"risk_factors"`
	Analysis         string       `json:"analysis"`
	ModelVersion     string       `json:"model_version"`
	Source           ScoreSource  `json:"source"`
}

// HistoryProfile is the behavioral baseline fed to the scorer.
type HistoryProfile struct {
	AvgTransactionAmount float64  `json:"avg_transaction_amount"`
	TransactionCount     int      `json:"transaction_count"`
	UnusualPatterns      []string `json:"unusual_patterns,omitempty"`
}

// StaticHistoryProfile is the baseline used when no history store is
// configured.
func StaticHistoryProfile() HistoryProfile {
	return HistoryProfile{
		AvgTransactionAmount: 120,
		TransactionCount:     45,
	}
}

// ClampScore bounds a risk score to [0, 100].
func ClampScore(score int) int {
	if score > 100 {
		return 100
	}
	if score < 0 {
		return 0
	}
	return score
}
