package logger

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with fraud-pipeline-specific functionality
type Logger struct {
	*zap.Logger
	serviceName string
}

// ContextKey for request context values
type ContextKey string

const (
	RequestIDKey ContextKey = "request_id"
	UserIDKey    ContextKey = "user_id"
)

// New creates a new logger instance
func New(serviceName, environment string, debug bool) (*Logger, error) {
	var config zap.Config

	if environment == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if debug {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	// Add service metadata
	config.InitialFields = map[string]interface{}{
		"service": serviceName,
		"env":     environment,
		"pid":     os.Getpid(),
	}

	zapLogger, err := config.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zap.ErrorLevel),
	)
	if err != nil {
		return nil, err
	}

	return &Logger{
		Logger:      zapLogger,
		serviceName: serviceName,
	}, nil
}

// Named returns a named sub-logger
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		Logger:      l.Logger.Named(name),
		serviceName: l.serviceName,
	}
}

// WithContext returns a logger with context values
func (l *Logger) WithContext(ctx context.Context) *Logger {
	fields := []zap.Field{}

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if userID, ok := ctx.Value(UserIDKey).(string); ok && userID != "" {
		fields = append(fields, zap.String("user_id", userID))
	}

	return &Logger{
		Logger:      l.With(fields...),
		serviceName: l.serviceName,
	}
}

// WithTransaction returns a logger with transaction context
func (l *Logger) WithTransaction(txID, userID string) *Logger {
	return &Logger{
		Logger: l.With(
			zap.String("transaction_id", txID),
			zap.String("user_id", userID),
		),
		serviceName: l.serviceName,
	}
}

// ScoringCompleted logs the completion of a scoring operation
func (l *Logger) ScoringCompleted(txID string, source string, riskScore int, durationMs int64) {
	l.Info("scoring completed",
		zap.String("transaction_id", txID),
		zap.String("source", source),
		zap.Int("risk_score", riskScore),
		zap.Int64("duration_ms", durationMs),
	)
}

// FallbackUsed logs that the heuristic path substituted for the remote model
func (l *Logger) FallbackUsed(txID string, reason error) {
	l.Warn("remote scoring unavailable, heuristic fallback used",
		zap.String("transaction_id", txID),
		zap.Error(reason),
	)
}

// AlertCreated logs alert creation
func (l *Logger) AlertCreated(alertID, severity, txID string, riskScore int) {
	l.Warn("fraud alert created",
		zap.String("alert_id", alertID),
		zap.String("severity", severity),
		zap.String("transaction_id", txID),
		zap.Int("risk_score", riskScore),
	)
}

// TickDropped logs a simulator tick skipped because the previous one is
// still in flight
func (l *Logger) TickDropped(elapsed time.Duration) {
	l.Warn("simulator tick dropped, previous tick still running",
		zap.Duration("running_for", elapsed),
	)
}

// PersistenceFailed logs a dropped write; the pipeline never retries
func (l *Logger) PersistenceFailed(kind, id string, err error) {
	l.Warn("persistence failed, record dropped",
		zap.String("kind", kind),
		zap.String("id", id),
		zap.Error(err),
	)
}

// TrainingJobCreated logs training job submission
func (l *Logger) TrainingJobCreated(jobID, jobName string, mocked bool) {
	l.Info("training job created",
		zap.String("job_id", jobID),
		zap.String("job_name", jobName),
		zap.Bool("mocked", mocked),
	)
}

// ModelDeployed logs inference service deployment
func (l *Logger) ModelDeployed(serviceID, endpoint string, mocked bool) {
	l.Info("model deployed",
		zap.String("service_id", serviceID),
		zap.String("endpoint", endpoint),
		zap.Bool("mocked", mocked),
	)
}

// LatencyWarning logs when an operation exceeds expected latency
func (l *Logger) LatencyWarning(opType string, durationMs, thresholdMs int64) {
	l.Warn("latency threshold exceeded",
		zap.String("op_type", opType),
		zap.Int64("duration_ms", durationMs),
		zap.Int64("threshold_ms", thresholdMs),
	)
}

// Helper field functions

// ErrorField creates an error field
func ErrorField(err error) zap.Field {
	return zap.Error(err)
}

// DurationField creates a duration field
func DurationField(name string, d time.Duration) zap.Field {
	return zap.Duration(name, d)
}

// StringField creates a string field
func StringField(key, value string) zap.Field {
	return zap.String(key, value)
}

// IntField creates an int field
func IntField(key string, value int) zap.Field {
	return zap.Int(key, value)
}

// Float64Field creates a float64 field
func Float64Field(key string, value float64) zap.Field {
	return zap.Float64(key, value)
}

// BoolField creates a bool field
func BoolField(key string, value bool) zap.Field {
	return zap.Bool(key, value)
}
