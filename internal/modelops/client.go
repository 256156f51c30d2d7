package modelops

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fraudguard/fraud-service/internal/config"
	"github.com/fraudguard/fraud-service/internal/domain"
	"github.com/fraudguard/fraud-service/internal/pkg/logger"
	"github.com/fraudguard/fraud-service/internal/pkg/signer"
)

// mockTrainingDuration is how long a simulated training job takes to
// reach 100 percent.
const mockTrainingDuration = 5 * time.Minute

// Client manages model training jobs and inference service deployments
// on the cloud ML platform. Every operation degrades to a deterministic
// mock when the platform is not configured or a call fails, so the
// pipeline keeps running in demo environments.
type Client struct {
	endpoint string
	service  string
	region   string
	enabled  bool
	signer   *signer.Signer
	http     *http.Client
	now      func() time.Time
	log      *logger.Logger
}

// NewClient creates a model operations client. sig may be nil when cloud
// credentials are absent; all calls then take the mock path.
func NewClient(cfg config.ModelOpsConfig, cloud config.CloudConfig, sig *signer.Signer, log *logger.Logger) *Client {
	return &Client{
		endpoint: cfg.Endpoint,
		service:  cfg.Service,
		region:   cloud.Region,
		enabled:  cloud.Enabled() && cfg.Endpoint != "" && sig != nil,
		signer:   sig,
		http:     &http.Client{Timeout: cfg.RequestTimeout},
		now:      time.Now,
		log:      log.Named("modelops"),
	}
}

// WithClock overrides the client's time source.
func (c *Client) WithClock(now func() time.Time) *Client {
	c.now = now
	return c
}

type createJobPayload struct {
	JobName string          `json:"job_name"`
	JobDesc string          `json:"job_desc"`
	Config  createJobConfig `json:"config"`
}

type createJobConfig struct {
	WorkerServerNum int               `json:"worker_server_num"`
	AppURL          string            `json:"app_url"`
	BootFileURL     string            `json:"boot_file_url"`
	ModelID         string            `json:"model_id"`
	TrainURL        string            `json:"train_url"`
	EngineID        int               `json:"engine_id"`
	UserImageURL    string            `json:"user_image_url"`
	UserCommand     string            `json:"user_command"`
	Hyperparameters map[string]string `json:"hyperparameters"`
}

type jobResponse struct {
	JobID    string           `json:"job_id"`
	JobName  string           `json:"job_name"`
	Status   string           `json:"status"`
	Progress int              `json:"progress"`
	Created  string           `json:"create_time"`
	Ended    string           `json:"end_time"`
	Duration int64            `json:"duration"`
	Metrics  *metricsResponse `json:"metrics"`
}

type metricsResponse struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1Score   float64 `json:"f1_score"`
	Loss      float64 `json:"loss"`
}

// CreateTrainingJob submits a training job and returns its initial state.
func (c *Client) CreateTrainingJob(ctx context.Context, req domain.TrainingJobRequest) (*domain.TrainingJob, error) {
	if !c.enabled {
		return c.mockTrainingJob(req), nil
	}

	instances := req.InstanceCount
	if instances == 0 {
		instances = 1
	}
	hyper := req.Hyperparameters
	if hyper == nil {
		hyper = map[string]string{}
	}

	payload := createJobPayload{
		JobName: req.JobName,
		JobDesc: fmt.Sprintf("Training job for fraud detection model: %s", req.ModelName),
		Config: createJobConfig{
			WorkerServerNum: instances,
			AppURL:          req.TrainingDataPath,
			BootFileURL:     "/opt/modelarts/training_code/train.py",
			ModelID:         req.ModelName,
			TrainURL:        req.OutputPath,
			EngineID:        1,
			UserCommand:     "python train.py",
			Hyperparameters: hyper,
		},
	}

	var out jobResponse
	url := c.endpoint + "/v1/training-jobs"
	if err := c.call(ctx, http.MethodPost, url, payload, &out); err != nil {
		c.log.Warn("training job submission failed, using mock job", logger.ErrorField(err))
		return c.mockTrainingJob(req), nil
	}

	status := domain.TrainingJobStatus(out.Status)
	if status == "" {
		status = domain.JobStatusCreating
	}

	job := &domain.TrainingJob{
		JobID:     out.JobID,
		JobName:   req.JobName,
		Status:    status,
		StartTime: c.now(),
	}
	c.log.TrainingJobCreated(job.JobID, job.JobName, false)
	return job, nil
}

// TrainingJobStatus fetches the current state of a training job. Mock
// job IDs encode their start time and report simulated progress.
func (c *Client) TrainingJobStatus(ctx context.Context, jobID string) (*domain.TrainingJob, error) {
	if !c.enabled || strings.HasPrefix(jobID, "training-job-") {
		return c.mockTrainingStatus(jobID), nil
	}

	var out jobResponse
	url := c.endpoint + "/v1/training-jobs/" + jobID
	if err := c.call(ctx, http.MethodGet, url, nil, &out); err != nil {
		c.log.Warn("training status fetch failed, using mock status", logger.ErrorField(err))
		return c.mockTrainingStatus(jobID), nil
	}

	job := &domain.TrainingJob{
		JobID:       out.JobID,
		JobName:     out.JobName,
		Status:      domain.TrainingJobStatus(out.Status),
		Progress:    out.Progress,
		DurationSec: out.Duration,
	}
	if t, err := time.Parse(time.RFC3339, out.Created); err == nil {
		job.StartTime = t
	}
	if t, err := time.Parse(time.RFC3339, out.Ended); err == nil {
		job.EndTime = &t
	}
	if out.Metrics != nil {
		job.Metrics = &domain.ModelMetrics{
			Accuracy:  out.Metrics.Accuracy,
			Precision: out.Metrics.Precision,
			Recall:    out.Metrics.Recall,
			F1Score:   out.Metrics.F1Score,
			Loss:      out.Metrics.Loss,
		}
	}
	return job, nil
}

type deployPayload struct {
	ServiceName string           `json:"service_name"`
	Description string           `json:"description"`
	InferType   string           `json:"infer_type"`
	Config      []deployInstance `json:"config"`
}

type deployInstance struct {
	ModelID       string `json:"model_id"`
	Weight        int    `json:"weight"`
	Specification string `json:"specification"`
	InstanceCount int    `json:"instance_count"`
}

type serviceResponse struct {
	ServiceID     string `json:"service_id"`
	ServiceName   string `json:"service_name"`
	Status        string `json:"status"`
	AccessAddress string `json:"access_address"`
	ModelVersion  string `json:"model_version"`
	CreateTime    string `json:"create_time"`
}

// DeployModel deploys a trained model as a real-time inference service.
func (c *Client) DeployModel(ctx context.Context, req domain.DeploymentRequest) (*domain.InferenceService, error) {
	if !c.enabled {
		return c.mockService(req.ServiceName, req.ModelVersion, ""), nil
	}

	spec := req.InstanceType
	if spec == "" {
		spec = "modelarts.vm.cpu.2u"
	}
	instances := req.InstanceCount
	if instances == 0 {
		instances = 1
	}

	payload := deployPayload{
		ServiceName: req.ServiceName,
		Description: fmt.Sprintf("Fraud detection inference service for %s", req.ModelID),
		InferType:   "real-time",
		Config: []deployInstance{{
			ModelID:       req.ModelID,
			Weight:        100,
			Specification: spec,
			InstanceCount: instances,
		}},
	}

	var out serviceResponse
	url := c.endpoint + "/v1/services"
	if err := c.call(ctx, http.MethodPost, url, payload, &out); err != nil {
		c.log.Warn("model deployment failed, using mock service", logger.ErrorField(err))
		return c.mockService(req.ServiceName, req.ModelVersion, ""), nil
	}

	svc := &domain.InferenceService{
		ServiceID:    out.ServiceID,
		ServiceName:  req.ServiceName,
		Status:       "creating",
		Endpoint:     out.AccessAddress,
		ModelVersion: req.ModelVersion,
		CreatedAt:    c.now(),
	}
	c.log.ModelDeployed(svc.ServiceID, svc.Endpoint, false)
	return svc, nil
}

// GetInferenceService fetches a deployed inference service.
func (c *Client) GetInferenceService(ctx context.Context, serviceID string) (*domain.InferenceService, error) {
	if !c.enabled || strings.HasPrefix(serviceID, "inference-service-") {
		return c.mockService("fraud-detection-service", "v1.0", serviceID), nil
	}

	var out serviceResponse
	url := c.endpoint + "/v1/services/" + serviceID
	if err := c.call(ctx, http.MethodGet, url, nil, &out); err != nil {
		c.log.Warn("inference service fetch failed, using mock service", logger.ErrorField(err))
		return c.mockService("fraud-detection-service", "v1.0", serviceID), nil
	}

	svc := &domain.InferenceService{
		ServiceID:    out.ServiceID,
		ServiceName:  out.ServiceName,
		Status:       out.Status,
		Endpoint:     out.AccessAddress,
		ModelVersion: out.ModelVersion,
	}
	if t, err := time.Parse(time.RFC3339, out.CreateTime); err == nil {
		svc.CreatedAt = t
	}
	return svc, nil
}

type listModelsResponse struct {
	Models []struct {
		ModelID          string           `json:"model_id"`
		ModelVersion     string           `json:"model_version"`
		Status           string           `json:"status"`
		UpdateTime       string           `json:"update_time"`
		TrainingDataSize int              `json:"training_data_size"`
		Metrics          *metricsResponse `json:"metrics"`
	} `json:"models"`
}

// ListModels returns all registered fraud models with their evaluation
// metrics.
func (c *Client) ListModels(ctx context.Context) ([]domain.MLModel, error) {
	if !c.enabled {
		return c.mockModels(), nil
	}

	var out listModelsResponse
	url := c.endpoint + "/v1/models"
	if err := c.call(ctx, http.MethodGet, url, nil, &out); err != nil {
		c.log.Warn("model listing failed, using mock catalog", logger.ErrorField(err))
		return c.mockModels(), nil
	}

	models := make([]domain.MLModel, 0, len(out.Models))
	for _, m := range out.Models {
		model := domain.MLModel{
			ID:               m.ModelID,
			Version:          m.ModelVersion,
			TrainingDataSize: m.TrainingDataSize,
			IsActive:         m.Status == "published",
		}
		if m.Metrics != nil {
			model.Accuracy = m.Metrics.Accuracy
			model.Precision = m.Metrics.Precision
			model.Recall = m.Metrics.Recall
			model.F1Score = m.Metrics.F1Score
		}
		if t, err := time.Parse(time.RFC3339, m.UpdateTime); err == nil {
			model.LastTrained = t
		}
		models = append(models, model)
	}
	return models, nil
}

// call signs and executes one platform request, decoding the JSON
// response into out.
func (c *Client) call(ctx context.Context, method, url string, payload, out interface{}) error {
	body := ""
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("modelops: marshal payload: %w", err)
		}
		body = string(raw)
	}

	signed, err := c.signer.Sign(method, url, body, c.service)
	if err != nil {
		return fmt.Errorf("modelops: sign request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, signed.URL, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("modelops: build request: %w", err)
	}
	for k, v := range signed.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("modelops: call endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("modelops: endpoint returned status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// Mock fallbacks. Job and service IDs embed the creation time in unix
// milliseconds so later status calls can simulate progress.

func (c *Client) mockTrainingJob(req domain.TrainingJobRequest) *domain.TrainingJob {
	start := c.now()
	jobID := fmt.Sprintf("training-job-%d-%s", start.UnixMilli(), shortID())

	job := &domain.TrainingJob{
		JobID:     jobID,
		JobName:   req.JobName,
		Status:    domain.JobStatusRunning,
		StartTime: start,
	}
	c.log.TrainingJobCreated(job.JobID, job.JobName, true)
	return job
}

func (c *Client) mockTrainingStatus(jobID string) *domain.TrainingJob {
	start := mockStartTime(jobID, c.now())
	elapsed := c.now().Sub(start)

	progress := int(float64(elapsed) / float64(mockTrainingDuration) * 100)
	if progress > 100 {
		progress = 100
	}
	if progress < 0 {
		progress = 0
	}

	job := &domain.TrainingJob{
		JobID:       jobID,
		JobName:     "fraud-detection-training",
		Status:      domain.JobStatusRunning,
		Progress:    progress,
		StartTime:   start,
		DurationSec: int64(elapsed.Seconds()),
	}
	if progress >= 100 {
		job.Status = domain.JobStatusCompleted
		end := c.now()
		job.EndTime = &end
		job.Metrics = &domain.ModelMetrics{
			Accuracy:  0.9542,
			Precision: 0.9321,
			Recall:    0.9156,
			F1Score:   0.9237,
			Loss:      0.0832,
		}
	}
	return job
}

func (c *Client) mockService(name, version, serviceID string) *domain.InferenceService {
	created := c.now()
	if serviceID == "" {
		serviceID = fmt.Sprintf("inference-service-%d-%s", created.UnixMilli(), shortID())
	} else {
		created = mockStartTime(serviceID, created)
	}

	svc := &domain.InferenceService{
		ServiceID:    serviceID,
		ServiceName:  name,
		Status:       "running",
		Endpoint:     fmt.Sprintf("https://modelarts.%s.myhuaweicloud.com/v1/%s/infer", c.region, serviceID),
		ModelVersion: version,
		CreatedAt:    created,
	}
	c.log.ModelDeployed(svc.ServiceID, svc.Endpoint, true)
	return svc
}

func (c *Client) mockModels() []domain.MLModel {
	now := c.now()
	return []domain.MLModel{
		{
			ID:               "fraud-detection-v1",
			Version:          "v1.0",
			Accuracy:         0.9542,
			Precision:        0.9321,
			Recall:           0.9156,
			F1Score:          0.9237,
			LastTrained:      now.Add(-7 * 24 * time.Hour),
			TrainingDataSize: 150000,
			IsActive:         true,
		},
		{
			ID:               "fraud-detection-v2",
			Version:          "v2.0-beta",
			Accuracy:         0.9678,
			Precision:        0.9545,
			Recall:           0.9423,
			F1Score:          0.9483,
			LastTrained:      now.Add(-2 * 24 * time.Hour),
			TrainingDataSize: 250000,
			IsActive:         false,
		},
	}
}

// mockStartTime recovers the embedded unix-millisecond timestamp from a
// mock ID, falling back to now when the ID does not carry one.
func mockStartTime(id string, fallback time.Time) time.Time {
	parts := strings.Split(id, "-")
	if len(parts) < 3 {
		return fallback
	}
	ms, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || ms <= 0 {
		return fallback
	}
	return time.UnixMilli(ms)
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}
