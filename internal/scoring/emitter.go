package scoring

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fraudguard/fraud-service/internal/domain"
)

// Emitter converts processed transactions into fraud alerts. Pure: same
// input always yields an alert with the same severity and content.
type Emitter struct {
	now func() time.Time
}

// NewEmitter creates an alert emitter.
func NewEmitter() *Emitter {
	return &Emitter{now: time.Now}
}

// WithClock overrides the emitter's time source.
func (e *Emitter) WithClock(now func() time.Time) *Emitter {
	e.now = now
	return e
}

// Emit returns an alert for the transaction, or nil when the risk score
// is below the low threshold.
func (e *Emitter) Emit(tx *domain.ProcessedTransaction) *domain.FraudAlert {
	if tx.RiskScore < domain.ThresholdLow {
		return nil
	}

	severity := domain.SeverityForScore(tx.RiskScore)

	return &domain.FraudAlert{
		ID:            fmt.Sprintf("alert-%s", uuid.NewString()),
		TransactionID: tx.ID,
		Severity:      severity,
		Title:         alertTitle(severity, tx),
		Message:       alertMessage(tx),
		Status:        domain.AlertStatusNew,
		RiskScore:     tx.RiskScore,
		Transaction:   tx,
		CreatedAt:     e.now(),
	}
}

func alertTitle(severity domain.Severity, tx *domain.ProcessedTransaction) string {
	return fmt.Sprintf("%s Risk Transaction - $%.2f", strings.ToUpper(string(severity)), tx.Amount)
}

func alertMessage(tx *domain.ProcessedTransaction) string {
	if len(tx.RiskFactors) > 0 {
		return fmt.Sprintf("Transaction from %s at %s. %s", tx.UserName, tx.MerchantName, tx.RiskFactors[0].Description)
	}
	return fmt.Sprintf("Transaction from %s at %s. Multiple risk factors detected.", tx.UserName, tx.MerchantName)
}
