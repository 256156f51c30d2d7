package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/fraudguard/fraud-service/internal/config"
	"github.com/fraudguard/fraud-service/internal/domain"
	"github.com/fraudguard/fraud-service/internal/pkg/logger"
	"github.com/fraudguard/fraud-service/internal/pkg/signer"
	"github.com/fraudguard/fraud-service/internal/scoring"
)

const defaultModelVersion = "pangu-fraud-v1.0"

// inferRequest is the payload for the model inference endpoint.
type inferRequest struct {
	Inputs     []inferInput    `json:"inputs"`
	Parameters inferParameters `json:"parameters"`
}

type inferInput struct {
	TransactionID       string  `json:"transaction_id"`
	Amount              float64 `json:"amount"`
	MerchantType        string  `json:"merchant_type"`
	Location            string  `json:"location"`
	Timestamp           string  `json:"timestamp"`
	UserID              string  `json:"user_id"`
	PaymentMethod       string  `json:"payment_method"`
	HistoricalAvgAmount float64 `json:"historical_avg_amount"`
	HistoricalCount     int     `json:"historical_count"`
}

type inferParameters struct {
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	Explain     bool    `json:"explain"`
}

type inferResponse struct {
	Predictions  []prediction `json:"predictions"`
	Outputs      []prediction `json:"outputs"`
	ModelVersion string       `json:"model_version"`
}

type prediction struct {
	RiskScore        float64      `json:"risk_score"`
	FraudProbability float64      `json:"fraud_probability"`
	Confidence       float64      `json:"confidence"`
	Explanation      *explanation `json:"explanation"`
}

type explanation struct {
	RiskFactors []domain.RiskFactor `json:"risk_factors"`
	Analysis    string              `json:"analysis"`
}

// Client calls the signed model inference endpoint. It satisfies
// scoring.RemoteScorer; callers route to the heuristic path when it
// returns an error.
type Client struct {
	endpoint  string
	modelID   string
	service   string
	params    inferParameters
	signer    *signer.Signer
	heuristic *scoring.HeuristicScorer
	http      *http.Client
	breaker   *gobreaker.CircuitBreaker
	log       *logger.Logger
}

// NewClient creates an inference client. The heuristic scorer fills in
// risk factors and analysis when the model omits them.
func NewClient(cfg config.InferenceConfig, sig *signer.Signer, heuristic *scoring.HeuristicScorer, log *logger.Logger) *Client {
	named := log.Named("inference")

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "pangu-inference",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			named.Warn(fmt.Sprintf("circuit breaker %s: %s -> %s", name, from, to))
		},
	})

	return &Client{
		endpoint: cfg.Endpoint,
		modelID:  cfg.ModelID,
		service:  cfg.Service,
		params: inferParameters{
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
			Explain:     true,
		},
		signer:    sig,
		heuristic: heuristic,
		http:      &http.Client{Timeout: cfg.RequestTimeout},
		breaker:   cb,
		log:       named,
	}
}

// Score submits one transaction to the model and maps the prediction
// into a score result.
func (c *Client) Score(ctx context.Context, tx *domain.GeneratedTransaction, profile domain.HistoryProfile) (*domain.ScoreResult, error) {
	payload := inferRequest{
		Inputs: []inferInput{{
			TransactionID:       tx.ID,
			Amount:              tx.Amount,
			MerchantType:        tx.MerchantType,
			Location:            tx.Location,
			Timestamp:           tx.Timestamp.Format(time.RFC3339),
			UserID:              tx.UserID,
			PaymentMethod:       tx.PaymentMethod,
			HistoricalAvgAmount: profile.AvgTransactionAmount,
			HistoricalCount:     profile.TransactionCount,
		}},
		Parameters: c.params,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("inference: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/infers/%s", c.endpoint, c.modelID)

	raw, err := c.breaker.Execute(func() (interface{}, error) {
		return c.post(ctx, url, body)
	})
	if err != nil {
		return nil, err
	}

	return c.toResult(tx, profile, raw.(*inferResponse)), nil
}

func (c *Client) post(ctx context.Context, url string, body []byte) (*inferResponse, error) {
	signed, err := c.signer.Sign(http.MethodPost, url, string(body), c.service)
	if err != nil {
		return nil, fmt.Errorf("inference: sign request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, signed.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("inference: build request: %w", err)
	}
	for k, v := range signed.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference: call endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("inference: endpoint returned status %d", resp.StatusCode)
	}

	var out inferResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("inference: decode response: %w", err)
	}
	return &out, nil
}

// toResult maps a model prediction onto a score result, substituting
// heuristic factors and analysis for anything the model left out.
func (c *Client) toResult(tx *domain.GeneratedTransaction, profile domain.HistoryProfile, resp *inferResponse) *domain.ScoreResult {
	preds := resp.Predictions
	if len(preds) == 0 {
		preds = resp.Outputs
	}

	var pred prediction
	if len(preds) > 0 {
		pred = preds[0]
	}

	score := domain.ClampScore(int(pred.RiskScore))
	if pred.RiskScore == 0 {
		score = c.heuristic.Score(tx, profile).RiskScore
	}

	probability := pred.FraudProbability
	if probability == 0 {
		probability = float64(score) / 100
	}

	confidence := pred.Confidence
	if confidence == 0 {
		confidence = 0.85
	}

	version := resp.ModelVersion
	if version == "" {
		version = defaultModelVersion
	}

	var factors []domain.RiskFactor
	analysis := ""
	if pred.Explanation != nil {
		factors = pred.Explanation.RiskFactors
		analysis = pred.Explanation.Analysis
	}
	if len(factors) == 0 {
		factors = c.heuristic.RiskFactors(tx, profile)
	}
	if analysis == "" {
		level := "low"
		switch {
		case score > 70:
			level = "high"
		case score > 40:
			level = "moderate"
		}
		analysis = fmt.Sprintf("Model detected %s fraud risk based on transaction patterns and historical behavior.", level)
	}

	return &domain.ScoreResult{
		RiskScore:        score,
		FraudProbability: probability,
		Confidence:       confidence,
		RiskFactors:      factors,
		Analysis:         analysis,
		ModelVersion:     version,
		Source:           domain.SourceRemote,
	}
}
