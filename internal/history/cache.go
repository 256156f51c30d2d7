package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fraudguard/fraud-service/internal/config"
	"github.com/fraudguard/fraud-service/internal/domain"
	"github.com/fraudguard/fraud-service/internal/pkg/logger"
)

const keyPrefix = "history:user:"

// record is the per-user aggregate stored as a JSON blob in redis.
type record struct {
	TotalAmount float64   `json:"total_amount"`
	TxnCount    int       `json:"txn_count"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
}

// Cache keeps per-user behavioral baselines in redis. Users with no
// recorded history fall back to the static profile so the deviation
// rule always has a baseline to compare against.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewCache connects to redis and verifies the connection.
func NewCache(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("history: redis ping: %w", err)
	}

	return &Cache{
		client: client,
		ttl:    cfg.HistoryTTL,
		log:    log.Named("history"),
	}, nil
}

// Profile returns the user's behavioral baseline. Unknown users get the
// static profile rather than an empty one.
func (c *Cache) Profile(ctx context.Context, userID string) (domain.HistoryProfile, error) {
	raw, err := c.client.Get(ctx, keyPrefix+userID).Result()
	if err == redis.Nil {
		return domain.StaticHistoryProfile(), nil
	}
	if err != nil {
		return domain.HistoryProfile{}, fmt.Errorf("history: get %s: %w", userID, err)
	}

	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return domain.HistoryProfile{}, fmt.Errorf("history: unmarshal %s: %w", userID, err)
	}
	if rec.TxnCount == 0 {
		return domain.StaticHistoryProfile(), nil
	}

	return domain.HistoryProfile{
		AvgTransactionAmount: rec.TotalAmount / float64(rec.TxnCount),
		TransactionCount:     rec.TxnCount,
	}, nil
}

// Record folds one observed transaction into the user's aggregate.
func (c *Cache) Record(ctx context.Context, userID string, amount float64) error {
	key := keyPrefix + userID
	now := time.Now()

	var rec record
	raw, err := c.client.Get(ctx, key).Result()
	switch {
	case err == redis.Nil:
		rec = record{FirstSeen: now}
	case err != nil:
		return fmt.Errorf("history: get %s: %w", userID, err)
	default:
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			c.log.Debug("corrupt history record, resetting", logger.StringField("user_id", userID))
			rec = record{FirstSeen: now}
		}
	}

	rec.TotalAmount += amount
	rec.TxnCount++
	rec.LastSeen = now

	blob, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("history: marshal %s: %w", userID, err)
	}
	if err := c.client.Set(ctx, key, blob, c.ttl).Err(); err != nil {
		return fmt.Errorf("history: set %s: %w", userID, err)
	}
	return nil
}

// Close releases the redis connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Static is the history source used when no redis cache is configured.
// Every user shares the same fixed baseline and nothing is recorded.
type Static struct{}

// NewStatic creates a fixed-baseline history source.
func NewStatic() Static {
	return Static{}
}

// Profile returns the shared static baseline.
func (Static) Profile(ctx context.Context, userID string) (domain.HistoryProfile, error) {
	return domain.StaticHistoryProfile(), nil
}

// Record is a no-op.
func (Static) Record(ctx context.Context, userID string, amount float64) error {
	return nil
}
