package domain

import (
	"time"
)

// TrainingJobStatus enumerates the lifecycle of a training job.
type TrainingJobStatus string

const (
	JobStatusCreating  TrainingJobStatus = "creating"
	JobStatusRunning   TrainingJobStatus = "running"
	JobStatusCompleted TrainingJobStatus = "completed"
	JobStatusFailed    TrainingJobStatus = "failed"
	JobStatusStopped   TrainingJobStatus = "stopped"
)

// TrainingJobRequest describes a model training job submission.
type TrainingJobRequest struct {
	JobName          string            `json:"job_name"`
	ModelName        string            `json:"model_name"`
	TrainingDataPath string            `json:"training_data_path"`
	OutputPath       string            `json:"output_path"`
	Hyperparameters  map[string]string `json:"hyperparameters,omitempty"`
	InstanceType     string            `json:"instance_type,omitempty"`
	InstanceCount    int               `json:"instance_count,omitempty"`
}

// TrainingJob reports the status of a submitted training job.
type TrainingJob struct {
	JobID    string            `json:"job_id"`
	JobName  string            `json:"job_name"`
	Status   TrainingJobStatus `json:"status"`
	Progress int               `json:"progress"` // 0-100

	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	DurationSec int64      `json:"duration_sec,omitempty"`

	Metrics *ModelMetrics `json:"metrics,omitempty"`
}

// DeploymentRequest describes a model-to-service deployment.
type DeploymentRequest struct {
	ModelID       string `json:"model_id"`
	ModelVersion  string `json:"model_version"`
	ServiceName   string `json:"service_name"`
	InstanceType  string `json:"instance_type,omitempty"`
	InstanceCount int    `json:"instance_count,omitempty"`
}

// InferenceService is a deployed real-time scoring endpoint.
type InferenceService struct {
	ServiceID    string    `json:"service_id"`
	ServiceName  string    `json:"service_name"`
	Status       string    `json:"status"`
	Endpoint     string    `json:"endpoint"`
	ModelVersion string    `json:"model_version"`
	CreatedAt    time.Time `json:"created_at"`
}

// ModelMetrics holds evaluation metrics for a trained model.
type ModelMetrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1Score   float64 `json:"f1_score"`
	Loss      float64 `json:"loss,omitempty"`
}

// MLModel is a registered fraud model as persisted in the ml_models table.
type MLModel struct {
	ID               string    `json:"id" db:"id"`
	Version          string    `json:"version" db:"version"`
	Accuracy         float64   `json:"accuracy" db:"accuracy"`
	Precision        float64   `json:"precision" db:"precision"`
	Recall           float64   `json:"recall" db:"recall"`
	F1Score          float64   `json:"f1_score" db:"f1_score"`
	LastTrained      time.Time `json:"last_trained" db:"last_trained"`
	RemoteModelID    string    `json:"remote_model_id,omitempty" db:"remote_model_id"`
	IsActive         bool      `json:"is_active" db:"is_active"`
	TrainingDataSize int       `json:"training_data_size" db:"training_data_size"`
}
