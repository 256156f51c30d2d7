package scoring

import (
	"strings"
	"testing"
	"time"

	"github.com/fraudguard/fraud-service/internal/domain"
)

func processedTx(score int) *domain.ProcessedTransaction {
	return &domain.ProcessedTransaction{
		GeneratedTransaction: domain.GeneratedTransaction{
			ID:           "TXN-emit-1",
			UserID:       "user_2",
			UserName:     "John Doe",
			Amount:       1250.50,
			MerchantType: "crypto-exchange",
			MerchantName: "CoinTrade Pro",
		},
		RiskScore: score,
		RiskFactors: []domain.RiskFactor{
			{Factor: "High Transaction Amount", Impact: 0.25, Description: "Transaction amount of $1250.50 is significantly higher than typical."},
		},
	}
}

func TestEmit_BelowThresholdReturnsNil(t *testing.T) {
	e := NewEmitter()

	for _, score := range []int{0, 15, 39} {
		if alert := e.Emit(processedTx(score)); alert != nil {
			t.Errorf("score %d: expected no alert, got severity %s", score, alert.Severity)
		}
	}
}

func TestEmit_SeverityTiers(t *testing.T) {
	e := NewEmitter()

	tests := []struct {
		score int
		want  domain.Severity
	}{
		{40, domain.SeverityLow},
		{59, domain.SeverityLow},
		{60, domain.SeverityMedium},
		{74, domain.SeverityMedium},
		{75, domain.SeverityHigh},
		{89, domain.SeverityHigh},
		{90, domain.SeverityCritical},
		{100, domain.SeverityCritical},
	}
	for _, tt := range tests {
		alert := e.Emit(processedTx(tt.score))
		if alert == nil {
			t.Fatalf("score %d: expected an alert", tt.score)
		}
		if alert.Severity != tt.want {
			t.Errorf("score %d: expected severity %s, got %s", tt.score, tt.want, alert.Severity)
		}
	}
}

func TestEmit_AlertContent(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e := NewEmitter().WithClock(func() time.Time { return fixed })

	alert := e.Emit(processedTx(92))
	if alert == nil {
		t.Fatal("expected an alert")
	}
	if !strings.HasPrefix(alert.ID, "alert-") {
		t.Errorf("unexpected alert id %q", alert.ID)
	}
	if alert.TransactionID != "TXN-emit-1" {
		t.Errorf("unexpected transaction id %q", alert.TransactionID)
	}
	if alert.Title != "CRITICAL Risk Transaction - $1250.50" {
		t.Errorf("unexpected title %q", alert.Title)
	}
	if !strings.Contains(alert.Message, "John Doe") || !strings.Contains(alert.Message, "CoinTrade Pro") {
		t.Errorf("message missing user or merchant: %q", alert.Message)
	}
	if alert.Status != domain.AlertStatusNew {
		t.Errorf("expected status new, got %s", alert.Status)
	}
	if !alert.CreatedAt.Equal(fixed) {
		t.Errorf("expected fixed clock timestamp, got %v", alert.CreatedAt)
	}
	if alert.Transaction == nil || alert.Transaction.ID != "TXN-emit-1" {
		t.Error("alert must carry the full processed transaction")
	}
}

func TestEmit_UniqueIDs(t *testing.T) {
	e := NewEmitter()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		alert := e.Emit(processedTx(80))
		if seen[alert.ID] {
			t.Fatalf("duplicate alert id %q", alert.ID)
		}
		seen[alert.ID] = true
	}
}
