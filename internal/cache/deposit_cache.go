package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/observability"
	customError "github.com/segyhp/lending-engine/pkg/errors"
)

const depositKeyPrefix = "lending:deposits:"

// RedisClient is the subset of *redis.Client the cache needs
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// DepositSource lists deposits straight from the settlement layer
type DepositSource interface {
	ListDeposits(ctx context.Context, account common.Address) ([]domain.Deposit, error)
}

// DepositCache is a read-through cache of account deposit listings.
// Entries live at most ttl and are dropped when the account opens a loan.
type DepositCache struct {
	client  RedisClient
	source  DepositSource
	ttl     time.Duration
	metrics *observability.Metrics
	logger  zerolog.Logger
}

func NewDepositCache(client RedisClient, source DepositSource, ttl time.Duration, metrics *observability.Metrics, logger zerolog.Logger) *DepositCache {
	return &DepositCache{
		client:  client,
		source:  source,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger,
	}
}

// DepositKey is the Redis key holding an account's listing
func DepositKey(account common.Address) string {
	return depositKeyPrefix + strings.ToLower(account.Hex())
}

// ListDeposits serves from Redis when possible and falls back to the source.
// Redis failures never fail the read.
func (c *DepositCache) ListDeposits(ctx context.Context, account common.Address) ([]domain.Deposit, error) {
	key := DepositKey(account)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var deposits []domain.Deposit
		jsonErr := json.Unmarshal(raw, &deposits)
		if jsonErr == nil {
			c.observe("hit")
			return deposits, nil
		}
		c.observe("error")
		c.logger.Warn().Err(jsonErr).Str("key", key).Msg("corrupt deposit cache entry")
	case errors.Is(err, redis.Nil):
		c.observe("miss")
	default:
		c.observe("error")
		c.logger.Warn().Err(err).Str("key", key).Msg("deposit cache read failed")
	}

	deposits, err := c.source.ListDeposits(ctx, account)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(deposits)
	if err != nil {
		return deposits, nil
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("deposit cache write failed")
	}
	return deposits, nil
}

// Invalidate drops the cached listing of account
func (c *DepositCache) Invalidate(ctx context.Context, account common.Address) error {
	if err := c.client.Del(ctx, DepositKey(account)).Err(); err != nil {
		return customError.WrapCacheError(err)
	}
	return nil
}

// HandleEvent invalidates the borrower's listing when a loan opens
func (c *DepositCache) HandleEvent(ctx context.Context, event domain.Event) error {
	if event.Type != domain.EventLoanOpened {
		return nil
	}

	var borrower common.Address
	switch payload := event.Payload.(type) {
	case domain.LoanOpened:
		borrower = payload.Borrower
	case *domain.LoanOpened:
		borrower = payload.Borrower
	default:
		return fmt.Errorf("unexpected %s payload %T", event.Type, event.Payload)
	}

	if err := c.Invalidate(ctx, borrower); err != nil {
		return err
	}
	c.logger.Debug().Str("account", borrower.Hex()).Msg("deposit cache invalidated")
	return nil
}

func (c *DepositCache) observe(result string) {
	if c.metrics != nil {
		c.metrics.DepositCache.WithLabelValues(result).Inc()
	}
}
