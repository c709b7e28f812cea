package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	interfaces "github.com/sheikh-saqib/escrow-ledger/internal/interfaces"
	"go.uber.org/zap"
)

const (
	DefaultTTL           = 5 * time.Second
	defaultRetryInterval = 25 * time.Millisecond
)

var ErrLockNotOwned = errors.New("lock not owned by this token")

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// Redis is a Locker shared by every process pointed at the same Redis.
// A holder that dies is released once ttl expires.
type Redis struct {
	client        redis.UniversalClient
	ttl           time.Duration
	retryInterval time.Duration
	logger        *zap.Logger
}

func NewRedis(client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{
		client:        client,
		ttl:           ttl,
		retryInterval: defaultRetryInterval,
		logger:        logger,
	}
}

// Lock polls SET NX until it wins or ctx is done.
func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := "lock:" + key
	token := uuid.NewString()

	ticker := time.NewTicker(r.retryInterval)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, redisKey, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire lock %s: %w", key, ctx.Err())
		case <-ticker.C:
		}
	}

	r.logger.Debug("lock acquired", zap.String("resource", key), zap.Duration("ttl", r.ttl))

	return func() {
		// release must run even when the caller's ctx was cancelled
		relCtx, cancel := context.WithTimeout(context.Background(), r.ttl)
		defer cancel()
		if err := r.release(relCtx, redisKey, token); err != nil {
			r.logger.Warn("lock release failed", zap.String("resource", key), zap.Error(err))
		}
	}, nil
}

func (r *Redis) release(ctx context.Context, redisKey, token string) error {
	n, err := releaseScript.Run(ctx, r.client, []string{redisKey}, token).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLockNotOwned
	}
	return nil
}

var _ interfaces.Locker = (*Redis)(nil)
