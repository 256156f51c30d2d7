package domain

import "testing"

func TestSeverityForScore(t *testing.T) {
	tests := []struct {
		score int
		want  Severity
	}{
		{40, SeverityLow},
		{59, SeverityLow},
		{60, SeverityMedium},
		{74, SeverityMedium},
		{75, SeverityHigh},
		{89, SeverityHigh},
		{90, SeverityCritical},
		{100, SeverityCritical},
	}
	for _, tt := range tests {
		if got := SeverityForScore(tt.score); got != tt.want {
			t.Errorf("score %d: expected %s, got %s", tt.score, tt.want, got)
		}
	}
}

func TestClampScore(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{-5, 0},
		{0, 0},
		{55, 55},
		{100, 100},
		{130, 100},
	}
	for _, tt := range tests {
		if got := ClampScore(tt.in); got != tt.want {
			t.Errorf("clamp(%d): expected %d, got %d", tt.in, tt.want, got)
		}
	}
}

func TestSimulatorConfigValidate(t *testing.T) {
	cfg := DefaultSimulatorConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}

	cfg.TransactionsPerMinute = 0
	if err := cfg.Validate(); err != ErrInvalidRate {
		t.Errorf("expected ErrInvalidRate, got %v", err)
	}

	cfg = DefaultSimulatorConfig()
	cfg.FraudRate = 1.2
	if err := cfg.Validate(); err != ErrInvalidFraudRate {
		t.Errorf("expected ErrInvalidFraudRate, got %v", err)
	}
}
