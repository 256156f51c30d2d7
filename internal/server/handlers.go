package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fraudguard/fraud-service/internal/domain"
	"github.com/fraudguard/fraud-service/internal/pkg/logger"
	"github.com/fraudguard/fraud-service/internal/storage"
)

// saveResponse is the write-endpoint contract: database reports whether
// the record actually reached persistent storage.
type saveResponse struct {
	Success  bool   `json:"success"`
	ID       string `json:"id,omitempty"`
	Database bool   `json:"database"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func fail(c echo.Context, code int, err error) error {
	return c.JSON(code, errorResponse{Success: false, Error: err.Error()})
}

func (s *Server) health(c echo.Context) error {
	dbStatus := "not configured"
	if s.store != nil {
		dbStatus = "connected"
	}
	inferenceStatus := "fallback"
	if s.cfg.Cloud.Enabled() && s.cfg.Inference.Endpoint != "" {
		inferenceStatus = "configured"
	}
	modelOpsStatus := "mock"
	if s.cfg.Cloud.Enabled() && s.cfg.ModelOps.Endpoint != "" {
		modelOpsStatus = "configured"
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services": map[string]string{
			"database":  dbStatus,
			"inference": inferenceStatus,
			"modelops":  modelOpsStatus,
		},
		"simulator": map[string]interface{}{
			"running": s.runner.Running(),
		},
	})
}

func (s *Server) saveTransaction(c echo.Context) error {
	var tx domain.ProcessedTransaction
	if err := c.Bind(&tx); err != nil {
		return fail(c, http.StatusBadRequest, err)
	}
	if tx.ID == "" {
		return fail(c, http.StatusBadRequest, errors.New("transaction id is required"))
	}

	if s.store == nil {
		return c.JSON(http.StatusOK, saveResponse{Success: true, ID: tx.ID, Database: false})
	}

	id, err := s.store.SaveTransaction(c.Request().Context(), &tx)
	if err != nil {
		s.log.PersistenceFailed("transaction", tx.ID, err)
		return fail(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, saveResponse{Success: true, ID: id, Database: true})
}

func (s *Server) saveAlert(c echo.Context) error {
	var alert domain.FraudAlert
	if err := c.Bind(&alert); err != nil {
		return fail(c, http.StatusBadRequest, err)
	}
	if alert.ID == "" {
		return fail(c, http.StatusBadRequest, errors.New("alert id is required"))
	}

	if s.store == nil {
		return c.JSON(http.StatusOK, saveResponse{Success: true, ID: alert.ID, Database: false})
	}

	id, err := s.store.SaveAlert(c.Request().Context(), &alert)
	if err != nil {
		s.log.PersistenceFailed("alert", alert.ID, err)
		return fail(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, saveResponse{Success: true, ID: id, Database: true})
}

func (s *Server) listTransactions(c echo.Context) error {
	limit := intQuery(c, "limit", 100)
	offset := intQuery(c, "offset", 0)

	if s.store == nil {
		return c.JSON(http.StatusOK, s.runner.RecentTransactions(limit))
	}

	txs, err := s.store.Transactions(c.Request().Context(), limit, offset)
	if err != nil {
		return fail(c, http.StatusInternalServerError, err)
	}
	if txs == nil {
		txs = []domain.ProcessedTransaction{}
	}
	return c.JSON(http.StatusOK, txs)
}

func (s *Server) getTransaction(c echo.Context) error {
	id := c.Param("id")

	if s.store == nil {
		for _, tx := range s.runner.RecentTransactions(0) {
			if tx.ID == id {
				return c.JSON(http.StatusOK, tx)
			}
		}
		return fail(c, http.StatusNotFound, errors.New("transaction not found"))
	}

	tx, err := s.store.TransactionByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fail(c, http.StatusNotFound, errors.New("transaction not found"))
		}
		return fail(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, tx)
}

func (s *Server) highRiskTransactions(c echo.Context) error {
	minScore := intQuery(c, "min_score", 70)
	limit := intQuery(c, "limit", 50)

	if s.store == nil {
		var out []domain.ProcessedTransaction
		for _, tx := range s.runner.RecentTransactions(0) {
			if tx.RiskScore >= minScore {
				out = append(out, tx)
			}
			if len(out) == limit {
				break
			}
		}
		if out == nil {
			out = []domain.ProcessedTransaction{}
		}
		return c.JSON(http.StatusOK, out)
	}

	txs, err := s.store.HighRiskTransactions(c.Request().Context(), minScore, limit)
	if err != nil {
		return fail(c, http.StatusInternalServerError, err)
	}
	if txs == nil {
		txs = []domain.ProcessedTransaction{}
	}
	return c.JSON(http.StatusOK, txs)
}

func (s *Server) transactionStats(c echo.Context) error {
	if s.store == nil {
		return c.JSON(http.StatusOK, memoryStats(s.runner.RecentTransactions(0)))
	}

	stats, err := s.store.Stats(c.Request().Context())
	if err != nil {
		return fail(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) listAlerts(c echo.Context) error {
	filter := domain.AlertFilter{
		Status:   domain.AlertStatus(c.QueryParam("status")),
		Severity: domain.Severity(c.QueryParam("severity")),
		Limit:    intQuery(c, "limit", 100),
	}

	if s.store == nil {
		var out []domain.FraudAlert
		for _, a := range s.runner.RecentAlerts(0) {
			if filter.Status != "" && a.Status != filter.Status {
				continue
			}
			if filter.Severity != "" && a.Severity != filter.Severity {
				continue
			}
			out = append(out, a)
			if len(out) == filter.Limit {
				break
			}
		}
		if out == nil {
			out = []domain.FraudAlert{}
		}
		return c.JSON(http.StatusOK, out)
	}

	alerts, err := s.store.Alerts(c.Request().Context(), filter)
	if err != nil {
		return fail(c, http.StatusInternalServerError, err)
	}
	if alerts == nil {
		alerts = []domain.FraudAlert{}
	}
	return c.JSON(http.StatusOK, alerts)
}

// startSimulator runs the pipeline on a background context so it
// outlives the request; shutdown stops it explicitly.
func (s *Server) startSimulator(c echo.Context) error {
	s.runner.Start(context.Background())
	return c.JSON(http.StatusOK, s.runner.Status())
}

func (s *Server) stopSimulator(c echo.Context) error {
	s.runner.Stop()
	return c.JSON(http.StatusOK, s.runner.Status())
}

func (s *Server) updateSimulatorConfig(c echo.Context) error {
	var cfg domain.SimulatorConfig
	if err := c.Bind(&cfg); err != nil {
		return fail(c, http.StatusBadRequest, err)
	}
	if err := s.runner.UpdateConfig(cfg); err != nil {
		return fail(c, http.StatusBadRequest, err)
	}
	s.log.Info("simulator config updated",
		logger.IntField("transactions_per_minute", cfg.TransactionsPerMinute),
		logger.Float64Field("fraud_rate", cfg.FraudRate),
	)
	return c.JSON(http.StatusOK, s.runner.Status())
}

func (s *Server) simulatorStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.runner.Status())
}

func (s *Server) saveUser(c echo.Context) error {
	if s.store == nil {
		return fail(c, http.StatusServiceUnavailable, errors.New("user persistence requires a database"))
	}

	var user domain.User
	if err := c.Bind(&user); err != nil {
		return fail(c, http.StatusBadRequest, err)
	}
	if user.ID == "" || user.Email == "" {
		return fail(c, http.StatusBadRequest, errors.New("user id and email are required"))
	}
	if user.Role == "" {
		user.Role = domain.RoleViewer
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	if err := s.store.UpsertUser(c.Request().Context(), &user); err != nil {
		s.log.PersistenceFailed("user", user.ID, err)
		return fail(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusCreated, saveResponse{Success: true, ID: user.ID, Database: true})
}

func (s *Server) getUser(c echo.Context) error {
	if s.store == nil {
		return fail(c, http.StatusServiceUnavailable, errors.New("user persistence requires a database"))
	}

	user, err := s.store.UserByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fail(c, http.StatusNotFound, errors.New("user not found"))
		}
		return fail(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, user)
}

func (s *Server) listModels(c echo.Context) error {
	if s.models == nil {
		return fail(c, http.StatusServiceUnavailable, errors.New("model operations not configured"))
	}
	models, err := s.models.ListModels(c.Request().Context())
	if err != nil {
		return fail(c, http.StatusInternalServerError, err)
	}
	if s.store == nil {
		return c.JSON(http.StatusOK, models)
	}

	// Refresh the registry from the catalog, then serve the registry so
	// locally trained models appear alongside the remote catalog.
	for i := range models {
		if err := s.store.UpsertModel(c.Request().Context(), &models[i]); err != nil {
			s.log.PersistenceFailed("model", models[i].ID, err)
		}
	}
	stored, err := s.store.Models(c.Request().Context())
	if err != nil {
		return fail(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, stored)
}

func (s *Server) createTrainingJob(c echo.Context) error {
	if s.models == nil {
		return fail(c, http.StatusServiceUnavailable, errors.New("model operations not configured"))
	}

	var req domain.TrainingJobRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, err)
	}
	if req.JobName == "" {
		return fail(c, http.StatusBadRequest, errors.New("job_name is required"))
	}

	job, err := s.models.CreateTrainingJob(c.Request().Context(), req)
	if err != nil {
		return fail(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusCreated, job)
}

func (s *Server) trainingJobStatus(c echo.Context) error {
	if s.models == nil {
		return fail(c, http.StatusServiceUnavailable, errors.New("model operations not configured"))
	}
	job, err := s.models.TrainingJobStatus(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, http.StatusInternalServerError, err)
	}

	if s.store != nil && job.Status == domain.JobStatusCompleted && job.Metrics != nil {
		trained := time.Now().UTC()
		if job.EndTime != nil {
			trained = *job.EndTime
		}
		model := &domain.MLModel{
			ID:            job.JobID,
			Version:       job.JobName,
			Accuracy:      job.Metrics.Accuracy,
			Precision:     job.Metrics.Precision,
			Recall:        job.Metrics.Recall,
			F1Score:       job.Metrics.F1Score,
			LastTrained:   trained,
			RemoteModelID: job.JobID,
		}
		if err := s.store.UpsertModel(c.Request().Context(), model); err != nil {
			s.log.PersistenceFailed("model", model.ID, err)
		}
	}
	return c.JSON(http.StatusOK, job)
}

func (s *Server) deployModel(c echo.Context) error {
	if s.models == nil {
		return fail(c, http.StatusServiceUnavailable, errors.New("model operations not configured"))
	}

	var req domain.DeploymentRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, err)
	}
	if req.ModelID == "" || req.ServiceName == "" {
		return fail(c, http.StatusBadRequest, errors.New("model_id and service_name are required"))
	}

	svc, err := s.models.DeployModel(c.Request().Context(), req)
	if err != nil {
		return fail(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusCreated, svc)
}

func (s *Server) getInferenceService(c echo.Context) error {
	if s.models == nil {
		return fail(c, http.StatusServiceUnavailable, errors.New("model operations not configured"))
	}
	svc, err := s.models.GetInferenceService(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, svc)
}

func intQuery(c echo.Context, name string, def int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func memoryStats(txs []domain.ProcessedTransaction) *domain.TransactionStats {
	stats := &domain.TransactionStats{Total: len(txs)}
	if len(txs) == 0 {
		return stats
	}

	sum := 0
	for _, tx := range txs {
		sum += tx.RiskScore
		stats.TotalAmount += tx.Amount
		if tx.IsHighRisk() {
			stats.HighRisk++
		}
	}
	stats.AvgRiskScore = float64(sum) / float64(len(txs))
	return stats
}
