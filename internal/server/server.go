package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/fraudguard/fraud-service/internal/config"
	"github.com/fraudguard/fraud-service/internal/domain"
	"github.com/fraudguard/fraud-service/internal/pkg/logger"
	"github.com/fraudguard/fraud-service/internal/simulator"
)

// Store is the persistence surface the HTTP layer needs. nil means no
// database is configured and reads are served from memory.
type Store interface {
	SaveTransaction(ctx context.Context, tx *domain.ProcessedTransaction) (string, error)
	SaveAlert(ctx context.Context, alert *domain.FraudAlert) (string, error)
	Transactions(ctx context.Context, limit, offset int) ([]domain.ProcessedTransaction, error)
	TransactionByID(ctx context.Context, id string) (*domain.ProcessedTransaction, error)
	HighRiskTransactions(ctx context.Context, minScore, limit int) ([]domain.ProcessedTransaction, error)
	Stats(ctx context.Context) (*domain.TransactionStats, error)
	Alerts(ctx context.Context, filter domain.AlertFilter) ([]domain.FraudAlert, error)
	UpsertUser(ctx context.Context, user *domain.User) error
	UserByID(ctx context.Context, id string) (*domain.User, error)
	UpsertModel(ctx context.Context, m *domain.MLModel) error
	Models(ctx context.Context) ([]domain.MLModel, error)
}

// ModelOps is the training and deployment surface exposed under
// /api/models.
type ModelOps interface {
	CreateTrainingJob(ctx context.Context, req domain.TrainingJobRequest) (*domain.TrainingJob, error)
	TrainingJobStatus(ctx context.Context, jobID string) (*domain.TrainingJob, error)
	DeployModel(ctx context.Context, req domain.DeploymentRequest) (*domain.InferenceService, error)
	GetInferenceService(ctx context.Context, serviceID string) (*domain.InferenceService, error)
	ListModels(ctx context.Context) ([]domain.MLModel, error)
}

// Server is the HTTP front of the fraud pipeline.
type Server struct {
	echo   *echo.Echo
	cfg    *config.Config
	store  Store
	runner *simulator.Runner
	models ModelOps
	log    *logger.Logger
}

// New builds the echo server with routing and middleware. store and
// models may be nil.
func New(cfg *config.Config, store Store, runner *simulator.Runner, models ModelOps, log *logger.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.Server.IdleTimeout = cfg.Server.IdleTimeout

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Secure())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Security.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
	}))

	s := &Server{
		echo:   e,
		cfg:    cfg,
		store:  store,
		runner: runner,
		models: models,
		log:    log.Named("server"),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.echo.Group("/api")

	api.GET("/health", s.health)

	api.POST("/transactions/save", s.saveTransaction)
	api.GET("/transactions", s.listTransactions)
	api.GET("/transactions/stats", s.transactionStats)
	api.GET("/transactions/high-risk", s.highRiskTransactions)
	api.GET("/transactions/:id", s.getTransaction)

	api.POST("/alerts/save", s.saveAlert)
	api.GET("/alerts", s.listAlerts)

	api.POST("/users/save", s.saveUser)
	api.GET("/users/:id", s.getUser)

	api.POST("/simulator/start", s.startSimulator)
	api.POST("/simulator/stop", s.stopSimulator)
	api.PUT("/simulator/config", s.updateSimulatorConfig)
	api.GET("/simulator/status", s.simulatorStatus)

	api.GET("/models", s.listModels)
	api.POST("/models/train", s.createTrainingJob)
	api.GET("/models/train/:id", s.trainingJobStatus)
	api.POST("/models/deploy", s.deployModel)
	api.GET("/models/services/:id", s.getInferenceService)
}

// Start runs the server until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)
	s.log.Info("starting http server", logger.StringField("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Echo exposes the underlying router for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
