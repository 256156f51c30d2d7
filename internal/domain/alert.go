package domain

import (
	"time"
)

// AlertStatus represents the triage state of a fraud alert.
// Status changes come from analyst actions in the dashboard.
type AlertStatus string

const (
	AlertStatusNew           AlertStatus = "new"
	AlertStatusInvestigating AlertStatus = "investigating"
	AlertStatusResolved      AlertStatus = "resolved"
	AlertStatusFalsePositive AlertStatus = "false-positive"
)

// FraudAlert is raised when a processed transaction's risk score crosses
// the low threshold. Every alert references exactly one transaction.
type FraudAlert struct {
	ID            string   `json:"id" db:"id"`
	TransactionID string   `json:"transaction_id" db:"transaction_id"`
	Severity      Severity `json:"severity" db:"severity"`

	Title   string `json:"title" db:"title"`
	Message string `json:"message" db:"message"`

	Status    AlertStatus `json:"status" db:"status"`
	RiskScore int         `json:"risk_score" db:"risk_score"`

	// Embedded copy of the triggering transaction
	Transaction *ProcessedTransaction `json:"transaction,omitempty"`

	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
	AssignedTo string     `json:"assigned_to,omitempty" db:"assigned_to"`
}

// IsOpen returns true while the alert still needs analyst action.
func (a *FraudAlert) IsOpen() bool {
	return a.Status == AlertStatusNew || a.Status == AlertStatusInvestigating
}

// RequiresEscalation returns true for the top severity tiers.
func (a *FraudAlert) RequiresEscalation() bool {
	return a.Severity == SeverityHigh || a.Severity == SeverityCritical
}

// AlertFilter narrows alert list queries.
type AlertFilter struct {
	Status   AlertStatus `json:"status,omitempty"`
	Severity Severity    `json:"severity,omitempty"`
	Limit    int         `json:"limit,omitempty"`
}

// AlertSummary is a lean DTO for list views.
type AlertSummary struct {
	ID            string      `json:"id"`
	TransactionID string      `json:"transaction_id"`
	Severity      Severity    `json:"severity"`
	Title         string      `json:"title"`
	Status        AlertStatus `json:"status"`
	RiskScore     int         `json:"risk_score"`
	CreatedAt     time.Time   `json:"created_at"`
}

// ToSummary converts a FraudAlert to its list representation.
func (a *FraudAlert) ToSummary() *AlertSummary {
	return &AlertSummary{
		ID:            a.ID,
		TransactionID: a.TransactionID,
		Severity:      a.Severity,
		Title:         a.Title,
		Status:        a.Status,
		RiskScore:     a.RiskScore,
		CreatedAt:     a.CreatedAt,
	}
}
