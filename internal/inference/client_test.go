package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fraudguard/fraud-service/internal/config"
	"github.com/fraudguard/fraud-service/internal/domain"
	"github.com/fraudguard/fraud-service/internal/pkg/logger"
	"github.com/fraudguard/fraud-service/internal/pkg/signer"
	"github.com/fraudguard/fraud-service/internal/scoring"
)

func testClient(t *testing.T, endpoint string) *Client {
	t.Helper()

	log, err := logger.New("fraud-service-test", "test", false)
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	scoringCfg := config.ScoringConfig{
		RiskyMerchants:      []string{"crypto-exchange"},
		SuspiciousCountries: []string{"Nigeria"},
		OffHoursStart:       2,
		OffHoursEnd:         6,
		SimulatedFraudFloor: 70,
	}

	cfg := config.InferenceConfig{
		Endpoint:       endpoint,
		ModelID:        "fraud-detection-v1",
		Service:        "pangu",
		RequestTimeout: 2 * time.Second,
		MaxTokens:      2000,
		Temperature:    0.3,
		TopP:           0.9,
	}

	sig := signer.New("AKTEST", "secret", "ap-southeast-1")
	return NewClient(cfg, sig, scoring.NewHeuristicScorer(scoringCfg), log)
}

func sampleTx() *domain.GeneratedTransaction {
	return &domain.GeneratedTransaction{
		ID:            "TXN-inf-1",
		UserID:        "user_5",
		Amount:        750,
		MerchantType:  "electronics",
		Location:      "New York, NY",
		Country:       "USA",
		PaymentMethod: "credit-card",
		Timestamp:     time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC),
	}
}

func TestScore_MapsPrediction(t *testing.T) {
	var gotPath string
	var gotAuth string
	var gotBody inferRequest

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"model_version": "pangu-fraud-v2.1",
			"predictions": []map[string]interface{}{{
				"risk_score":        88,
				"fraud_probability": 0.88,
				"confidence":        0.93,
				"explanation": map[string]interface{}{
					"analysis": "model analysis text",
					"risk_factors": []map[string]interface{}{{
						"factor":      "High Transaction Amount",
						"impact":      0.3,
						"description": "amount well above baseline",
						"evidence":    "Amount: $750.00",
					}},
				},
			}},
		})
	}))
	defer ts.Close()

	c := testClient(t, ts.URL)
	result, err := c.Score(context.Background(), sampleTx(), domain.StaticHistoryProfile())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/v1/infers/fraud-detection-v1" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if !strings.HasPrefix(gotAuth, "SDK-HMAC-SHA256") {
		t.Errorf("request not signed: %q", gotAuth)
	}
	if len(gotBody.Inputs) != 1 || gotBody.Inputs[0].TransactionID != "TXN-inf-1" {
		t.Errorf("unexpected request inputs %+v", gotBody.Inputs)
	}
	if gotBody.Inputs[0].HistoricalAvgAmount != 120 {
		t.Errorf("historical baseline not sent: %+v", gotBody.Inputs[0])
	}
	if !gotBody.Parameters.Explain {
		t.Error("explain parameter must be set")
	}

	if result.RiskScore != 88 || result.Confidence != 0.93 {
		t.Errorf("prediction not mapped: %+v", result)
	}
	if result.ModelVersion != "pangu-fraud-v2.1" {
		t.Errorf("unexpected model version %q", result.ModelVersion)
	}
	if result.Source != domain.SourceRemote {
		t.Errorf("expected remote source, got %s", result.Source)
	}
	if result.Analysis != "model analysis text" {
		t.Errorf("unexpected analysis %q", result.Analysis)
	}
	if len(result.RiskFactors) != 1 {
		t.Errorf("expected one model risk factor, got %d", len(result.RiskFactors))
	}
}

func TestScore_DefaultsWhenFieldsMissing(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"predictions": []map[string]interface{}{{
				"risk_score": 55,
			}},
		})
	}))
	defer ts.Close()

	c := testClient(t, ts.URL)
	result, err := c.Score(context.Background(), sampleTx(), domain.StaticHistoryProfile())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.RiskScore != 55 {
		t.Errorf("expected score 55, got %d", result.RiskScore)
	}
	if result.FraudProbability != 0.55 {
		t.Errorf("expected derived probability 0.55, got %f", result.FraudProbability)
	}
	if result.Confidence != 0.85 {
		t.Errorf("expected default confidence, got %f", result.Confidence)
	}
	if result.ModelVersion != "pangu-fraud-v1.0" {
		t.Errorf("expected default model version, got %q", result.ModelVersion)
	}
	if len(result.RiskFactors) == 0 {
		t.Error("expected heuristic risk factors substituted")
	}
	if result.Analysis == "" {
		t.Error("expected generated analysis")
	}
}

func TestScore_ServerErrorPropagates(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	c := testClient(t, ts.URL)
	if _, err := c.Score(context.Background(), sampleTx(), domain.StaticHistoryProfile()); err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestScore_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := testClient(t, ts.URL)
	for i := 0; i < 8; i++ {
		c.Score(context.Background(), sampleTx(), domain.StaticHistoryProfile())
	}

	// After five consecutive failures the breaker opens and stops
	// hitting the endpoint.
	if calls >= 8 {
		t.Errorf("breaker never opened, endpoint saw %d calls", calls)
	}
}
