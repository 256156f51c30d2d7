package domain

import (
	"errors"
	"time"
)

var (
	ErrInvalidRate      = errors.New("transactions per minute must be positive")
	ErrInvalidFraudRate = errors.New("fraud rate must be within [0, 1]")
)

// GeneratedTransaction is a synthetic financial event produced by the
// simulator. It is immutable once created.
type GeneratedTransaction struct {
	ID       string `json:"id" db:"id"`
	UserID   string `json:"user_id" db:"user_id"`
	UserName string `json:"user_name" db:"user_name"`

	// Transaction details
	Amount       float64 `json:"amount" db:"amount"`
	MerchantType string  `json:"merchant_type" db:"merchant_type"`
	MerchantName string  `json:"merchant_name" db:"merchant_name"`

	// Origin
	Location string `json:"location" db:"location"`
	Country  string `json:"country" db:"country"`

	// Payment
	PaymentMethod string `json:"payment_method" db:"payment_method"`
	CardLast4     string `json:"card_last4" db:"card_last4"`

	// Device/Session
	IPAddress string `json:"ip_address" db:"ip_address"`
	DeviceID  string `json:"device_id" db:"device_id"`

	Timestamp time.Time `json:"timestamp" db:"timestamp"`

	// Fraud injection markers set by the generator
	IsSimulatedFraud bool   `json:"is_simulated_fraud"`
	FraudReason      string `json:"fraud_reason,omitempty"`
}

// Hour returns the local hour-of-day of the transaction timestamp.
func (t *GeneratedTransaction) Hour() int {
	return t.Timestamp.Hour()
}

// IsHighValue returns true if the amount meets or exceeds the threshold.
func (t *GeneratedTransaction) IsHighValue(threshold float64) bool {
	return t.Amount >= threshold
}

// ProcessedTransaction is a GeneratedTransaction plus the scoring output.
// Never mutated after creation.
type ProcessedTransaction struct {
	GeneratedTransaction

	RiskScore        int     `json:"risk_score" db:"risk_score"` // 0-100
	FraudProbability float64 `json:"fraud_probability" db:"fraud_probability"`
	Confidence       float64 `json:"confidence" db:"confidence"`

	// Explanation payload (stored as JSONB)
	RiskFactors []RiskFactor `json:"risk_factors"`
	AIAnalysis  string       `json:"ai_analysis"`

	ProcessingTimeMs int64  `json:"processing_time_ms" db:"processing_time"`
	ModelVersion     string `json:"model_version" db:"model_version"`

	// Which scoring path produced the score. Not persisted; consumers
	// that need it after a restart derive nothing from model_version.
	ScoreSource ScoreSource `json:"score_source,omitempty"`
}

// IsHighRisk returns true if the transaction warrants analyst attention.
func (t *ProcessedTransaction) IsHighRisk() bool {
	return t.RiskScore >= 70
}

// SimulatorConfig controls the synthetic transaction stream.
// Read by the generator on every invocation; rate must be > 0.
type SimulatorConfig struct {
	TransactionsPerMinute int             `json:"transactions_per_minute"`
	FraudRate             float64         `json:"fraud_rate"` // 0-1
	Scenarios             ScenarioToggles `json:"scenarios"`
}

// ScenarioToggles enables or disables individual fraud scenario generators.
type ScenarioToggles struct {
	HighAmount      bool `json:"high_amount"`
	RiskyMerchant   bool `json:"risky_merchant"`
	UnusualTime     bool `json:"unusual_time"`
	VelocitySpike   bool `json:"velocity_spike"`
	LocationAnomaly bool `json:"location_anomaly"`
}

// TickInterval returns the spacing between generator ticks.
func (c SimulatorConfig) TickInterval() time.Duration {
	tpm := c.TransactionsPerMinute
	if tpm <= 0 {
		tpm = 1
	}
	return time.Minute / time.Duration(tpm)
}

// Validate checks the config invariants.
func (c SimulatorConfig) Validate() error {
	if c.TransactionsPerMinute <= 0 {
		return ErrInvalidRate
	}
	if c.FraudRate < 0 || c.FraudRate > 1 {
		return ErrInvalidFraudRate
	}
	return nil
}

// DefaultSimulatorConfig mirrors the demo defaults: one transaction every
// two seconds with an 8% fraud injection rate and all scenarios on.
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		TransactionsPerMinute: 30,
		FraudRate:             0.08,
		Scenarios: ScenarioToggles{
			HighAmount:      true,
			RiskyMerchant:   true,
			UnusualTime:     true,
			VelocitySpike:   true,
			LocationAnomaly: true,
		},
	}
}

// TransactionStats is the aggregate view served by the stats endpoint.
type TransactionStats struct {
	Total        int     `json:"total"`
	HighRisk     int     `json:"high_risk"`
	AvgRiskScore float64 `json:"avg_risk_score"`
	TotalAmount  float64 `json:"total_amount"`
}

// User is a dashboard user persisted alongside transactions.
type User struct {
	ID          string     `json:"id" db:"id"`
	Email       string     `json:"email" db:"email"`
	DisplayName string     `json:"display_name" db:"display_name"`
	Role        UserRole   `json:"role" db:"role"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	LastLogin   *time.Time `json:"last_login,omitempty" db:"last_login"`
}

// UserRole enumerates dashboard access levels.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleAnalyst UserRole = "analyst"
	RoleViewer  UserRole = "viewer"
)
