package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fraudguard/fraud-service/internal/config"
	"github.com/fraudguard/fraud-service/internal/domain"
	"github.com/fraudguard/fraud-service/internal/pkg/logger"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("storage: not found")

// Store persists transactions, alerts, users and model metadata in a
// PostgreSQL-compatible database.
type Store struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// explanation is the JSONB document stored in ai_explanation.
type explanation struct {
	Summary     string              `json:"summary"`
	RiskFactors []domain.RiskFactor `json:"risk_factors,omitempty"`
}

// New connects to the database and verifies the connection.
func New(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*Store, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode,
	)

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: parse config: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	poolCfg.MaxConnIdleTime = cfg.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("storage: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}

	return &Store{pool: pool, log: log.Named("storage")}, nil
}

// InitSchema creates all tables and indexes in a single transaction.
func (s *Store) InitSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(255) PRIMARY KEY,
			email VARCHAR(255) UNIQUE NOT NULL,
			display_name VARCHAR(255),
			role VARCHAR(50) NOT NULL CHECK (role IN ('admin', 'analyst', 'viewer')),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			last_login TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id VARCHAR(255) PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			user_name VARCHAR(255),
			amount DECIMAL(15,2) NOT NULL,
			timestamp TIMESTAMP NOT NULL,
			location VARCHAR(255),
			country VARCHAR(100),
			merchant_type VARCHAR(100),
			merchant_name VARCHAR(255),
			payment_method VARCHAR(50),
			card_last4 VARCHAR(4),
			ip_address VARCHAR(45),
			device_id VARCHAR(255),
			risk_score INTEGER CHECK (risk_score >= 0 AND risk_score <= 100),
			fraud_probability DECIMAL(5,4),
			confidence DECIMAL(5,4),
			ai_explanation JSONB,
			processing_time INTEGER,
			model_version VARCHAR(100),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_timestamp
			ON transactions(timestamp DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_risk_score
			ON transactions(risk_score DESC)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id VARCHAR(255) PRIMARY KEY,
			transaction_id VARCHAR(255) REFERENCES transactions(id),
			severity VARCHAR(20) CHECK (severity IN ('low', 'medium', 'high', 'critical')),
			title TEXT NOT NULL,
			message TEXT,
			status VARCHAR(30) DEFAULT 'new' CHECK (status IN ('new', 'investigating', 'resolved', 'false-positive')),
			risk_score INTEGER,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			resolved_at TIMESTAMP,
			assigned_to VARCHAR(255)
		)`,
		`CREATE TABLE IF NOT EXISTS ml_models (
			id VARCHAR(100) PRIMARY KEY,
			version VARCHAR(50) NOT NULL,
			accuracy DECIMAL(5,4),
			precision DECIMAL(5,4),
			recall DECIMAL(5,4),
			f1_score DECIMAL(5,4),
			last_trained TIMESTAMP,
			remote_model_id VARCHAR(255),
			is_active BOOLEAN DEFAULT FALSE,
			training_data_size INTEGER
		)`,
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("storage: begin schema tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("storage: init schema: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("storage: commit schema: %w", err)
	}
	s.log.Info("database schema initialized")
	return nil
}

// SaveTransaction inserts a scored transaction and returns its id.
func (s *Store) SaveTransaction(ctx context.Context, tx *domain.ProcessedTransaction) (string, error) {
	expl, err := json.Marshal(explanation{
		Summary:     tx.AIAnalysis,
		RiskFactors: tx.RiskFactors,
	})
	if err != nil {
		return "", fmt.Errorf("storage: marshal explanation: %w", err)
	}

	query := `
		INSERT INTO transactions (
			id, user_id, user_name, amount, timestamp, location, country,
			merchant_type, merchant_name, payment_method, card_last4,
			ip_address, device_id, risk_score, fraud_probability, confidence,
			ai_explanation, processing_time, model_version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id
	`

	var id string
	err = s.pool.QueryRow(ctx, query,
		tx.ID,
		tx.UserID,
		tx.UserName,
		tx.Amount,
		tx.Timestamp,
		tx.Location,
		tx.Country,
		tx.MerchantType,
		tx.MerchantName,
		tx.PaymentMethod,
		tx.CardLast4,
		tx.IPAddress,
		tx.DeviceID,
		tx.RiskScore,
		tx.FraudProbability,
		tx.Confidence,
		expl,
		tx.ProcessingTimeMs,
		tx.ModelVersion,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("storage: insert transaction %s: %w", tx.ID, err)
	}
	return id, nil
}

const transactionColumns = `
	id, user_id, user_name, amount, timestamp, location, country,
	merchant_type, merchant_name, payment_method, card_last4,
	ip_address, device_id, risk_score, fraud_probability, confidence,
	ai_explanation, processing_time, model_version
`

// Transactions returns scored transactions, newest first.
func (s *Store) Transactions(ctx context.Context, limit, offset int) ([]domain.ProcessedTransaction, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + transactionColumns + `
		FROM transactions
		ORDER BY timestamp DESC
		LIMIT $1 OFFSET $2`

	rows, err := s.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("storage: list transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// TransactionByID returns one transaction or ErrNotFound.
func (s *Store) TransactionByID(ctx context.Context, id string) (*domain.ProcessedTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	tx, err := scanTransaction(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: get transaction %s: %w", id, err)
	}
	return tx, nil
}

// HighRiskTransactions returns transactions at or above the given score.
func (s *Store) HighRiskTransactions(ctx context.Context, minScore, limit int) ([]domain.ProcessedTransaction, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE risk_score >= $1
		ORDER BY risk_score DESC, timestamp DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, minScore, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: list high-risk transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// Stats returns aggregate transaction statistics.
func (s *Store) Stats(ctx context.Context) (*domain.TransactionStats, error) {
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(CASE WHEN risk_score >= 70 THEN 1 END) AS high_risk,
			COALESCE(AVG(risk_score), 0)::DECIMAL(5,2) AS avg_risk_score,
			COALESCE(SUM(amount), 0)::DECIMAL(15,2) AS total_amount
		FROM transactions
	`

	var stats domain.TransactionStats
	err := s.pool.QueryRow(ctx, query).Scan(
		&stats.Total,
		&stats.HighRisk,
		&stats.AvgRiskScore,
		&stats.TotalAmount,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: transaction stats: %w", err)
	}
	return &stats, nil
}

// SaveAlert inserts a fraud alert and returns its id.
func (s *Store) SaveAlert(ctx context.Context, alert *domain.FraudAlert) (string, error) {
	query := `
		INSERT INTO alerts (
			id, transaction_id, severity, title, message, status, risk_score, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	var id string
	err := s.pool.QueryRow(ctx, query,
		alert.ID,
		alert.TransactionID,
		alert.Severity,
		alert.Title,
		alert.Message,
		alert.Status,
		alert.RiskScore,
		alert.CreatedAt,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("storage: insert alert %s: %w", alert.ID, err)
	}
	return id, nil
}

// Alerts returns alerts matching the filter, newest first.
func (s *Store) Alerts(ctx context.Context, filter domain.AlertFilter) ([]domain.FraudAlert, error) {
	query := `
		SELECT id, transaction_id, severity, title, message, status,
		       risk_score, created_at, resolved_at, assigned_to
		FROM alerts WHERE 1=1`
	args := []interface{}{}
	n := 1

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", n)
		args = append(args, filter.Status)
		n++
	}
	if filter.Severity != "" {
		query += fmt.Sprintf(" AND severity = $%d", n)
		args = append(args, filter.Severity)
		n++
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", n)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []domain.FraudAlert
	for rows.Next() {
		var a domain.FraudAlert
		var resolvedAt sql.NullTime
		var assignedTo sql.NullString

		err := rows.Scan(
			&a.ID,
			&a.TransactionID,
			&a.Severity,
			&a.Title,
			&a.Message,
			&a.Status,
			&a.RiskScore,
			&a.CreatedAt,
			&resolvedAt,
			&assignedTo,
		)
		if err != nil {
			return nil, fmt.Errorf("storage: scan alert: %w", err)
		}
		if resolvedAt.Valid {
			a.ResolvedAt = &resolvedAt.Time
		}
		a.AssignedTo = assignedTo.String
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// UpsertUser creates or updates a dashboard user.
func (s *Store) UpsertUser(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, email, display_name, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			display_name = EXCLUDED.display_name,
			role = EXCLUDED.role
	`

	_, err := s.pool.Exec(ctx, query, user.ID, user.Email, user.DisplayName, user.Role, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("storage: upsert user %s: %w", user.ID, err)
	}
	return nil
}

// UserByID returns one user or ErrNotFound.
func (s *Store) UserByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT id, email, display_name, role, created_at, last_login FROM users WHERE id = $1`

	var u domain.User
	var lastLogin sql.NullTime
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&u.ID, &u.Email, &u.DisplayName, &u.Role, &u.CreatedAt, &lastLogin,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: get user %s: %w", id, err)
	}
	if lastLogin.Valid {
		u.LastLogin = &lastLogin.Time
	}
	return &u, nil
}

// UpsertModel registers or refreshes a fraud model's metadata.
func (s *Store) UpsertModel(ctx context.Context, m *domain.MLModel) error {
	query := `
		INSERT INTO ml_models (
			id, version, accuracy, precision, recall, f1_score,
			last_trained, remote_model_id, is_active, training_data_size
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			version = EXCLUDED.version,
			accuracy = EXCLUDED.accuracy,
			precision = EXCLUDED.precision,
			recall = EXCLUDED.recall,
			f1_score = EXCLUDED.f1_score,
			last_trained = EXCLUDED.last_trained,
			remote_model_id = EXCLUDED.remote_model_id,
			is_active = EXCLUDED.is_active,
			training_data_size = EXCLUDED.training_data_size
	`

	_, err := s.pool.Exec(ctx, query,
		m.ID, m.Version, m.Accuracy, m.Precision, m.Recall, m.F1Score,
		m.LastTrained, m.RemoteModelID, m.IsActive, m.TrainingDataSize,
	)
	if err != nil {
		return fmt.Errorf("storage: upsert model %s: %w", m.ID, err)
	}
	return nil
}

// Models returns all registered fraud models.
func (s *Store) Models(ctx context.Context) ([]domain.MLModel, error) {
	query := `
		SELECT id, version, accuracy, precision, recall, f1_score,
		       last_trained, remote_model_id, is_active, training_data_size
		FROM ml_models
		ORDER BY last_trained DESC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("storage: list models: %w", err)
	}
	defer rows.Close()

	var models []domain.MLModel
	for rows.Next() {
		var m domain.MLModel
		var remoteID sql.NullString
		var trained sql.NullTime

		err := rows.Scan(
			&m.ID, &m.Version, &m.Accuracy, &m.Precision, &m.Recall,
			&m.F1Score, &trained, &remoteID, &m.IsActive, &m.TrainingDataSize,
		)
		if err != nil {
			return nil, fmt.Errorf("storage: scan model: %w", err)
		}
		m.RemoteModelID = remoteID.String
		if trained.Valid {
			m.LastTrained = trained.Time
		}
		models = append(models, m)
	}
	return models, rows.Err()
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

func scanTransactions(rows pgx.Rows) ([]domain.ProcessedTransaction, error) {
	var txs []domain.ProcessedTransaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan transaction: %w", err)
		}
		txs = append(txs, *tx)
	}
	return txs, rows.Err()
}

func scanTransaction(row pgx.Row) (*domain.ProcessedTransaction, error) {
	var tx domain.ProcessedTransaction
	var explJSON []byte

	err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&tx.UserName,
		&tx.Amount,
		&tx.Timestamp,
		&tx.Location,
		&tx.Country,
		&tx.MerchantType,
		&tx.MerchantName,
		&tx.PaymentMethod,
		&tx.CardLast4,
		&tx.IPAddress,
		&tx.DeviceID,
		&tx.RiskScore,
		&tx.FraudProbability,
		&tx.Confidence,
		&explJSON,
		&tx.ProcessingTimeMs,
		&tx.ModelVersion,
	)
	if err != nil {
		return nil, err
	}

	if len(explJSON) > 0 {
		var expl explanation
		if err := json.Unmarshal(explJSON, &expl); err == nil {
			tx.AIAnalysis = expl.Summary
			tx.RiskFactors = expl.RiskFactors
		}
	}
	return &tx, nil
}
