package service

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"shepherd-api/internal/domain"
	"shepherd-api/pkg/redis"
)

// CacheService provides cache-aside reads over Redis with database
// fallback. All caching is best effort: cache errors fall through to the
// database and never fail the request.
type CacheService struct {
	redis  *redis.Client
	logger *zap.Logger
}

// NewCacheService creates a new cache service. A nil Redis client turns
// every operation into a plain database read.
func NewCacheService(redisClient *redis.Client, logger *zap.Logger) *CacheService {
	return &CacheService{
		redis:  redisClient,
		logger: logger,
	}
}

// GetRequestWithCache retrieves full request details with cache-aside.
func (c *CacheService) GetRequestWithCache(ctx context.Context, requestID string, dbFallback func(ctx context.Context, id string) (*domain.Request, error)) (*domain.Request, error) {
	if c.redis == nil {
		return dbFallback(ctx, requestID)
	}
	cacheKey := c.redis.KeyBuilder.KeyRequest(requestID)

	cachedData, err := c.redis.Get(ctx, cacheKey)
	if err == nil && cachedData != "" {
		var req domain.Request
		if marshalErr := json.Unmarshal([]byte(cachedData), &req); marshalErr == nil {
			c.logger.Debug("request cache hit", zap.String("request_id", requestID))
			return &req, nil
		} else {
			c.logger.Warn("request cache corrupted, falling back to database",
				zap.String("request_id", requestID),
				zap.Error(marshalErr))
		}
	} else if err != nil && err != goredis.Nil {
		c.logger.Warn("request cache error, falling back to database",
			zap.String("request_id", requestID),
			zap.Error(err))
	}

	c.logger.Debug("request cache miss", zap.String("request_id", requestID))
	req, err := dbFallback(ctx, requestID)
	if err != nil {
		return nil, err
	}

	// Cache the result asynchronously (fire and forget)
	if req != nil {
		go c.cacheRequestAsync(requestID, req)
	}
	return req, nil
}

// GetBoardTasksWithCache retrieves a board's task list with cache-aside.
// The view key separates leader boards from per-member boards.
func (c *CacheService) GetBoardTasksWithCache(ctx context.Context, groupID, view string, dbFallback func(ctx context.Context) ([]domain.Task, error)) ([]domain.Task, error) {
	if c.redis == nil {
		return dbFallback(ctx)
	}
	cacheKey := c.redis.KeyBuilder.KeyBoard(groupID, view)

	cachedData, err := c.redis.Get(ctx, cacheKey)
	if err == nil && cachedData != "" {
		var tasks []domain.Task
		if marshalErr := json.Unmarshal([]byte(cachedData), &tasks); marshalErr == nil {
			c.logger.Debug("board cache hit", zap.String("group_id", groupID))
			return tasks, nil
		} else {
			c.logger.Warn("board cache corrupted, falling back to database",
				zap.String("group_id", groupID),
				zap.Error(marshalErr))
		}
	} else if err != nil && err != goredis.Nil {
		c.logger.Warn("board cache error, falling back to database",
			zap.String("group_id", groupID),
			zap.Error(err))
	}

	c.logger.Debug("board cache miss", zap.String("group_id", groupID))
	tasks, err := dbFallback(ctx)
	if err != nil {
		return nil, err
	}

	go c.cacheBoardAsync(cacheKey, tasks)
	return tasks, nil
}

// HealthCheck performs a health check on the cache system
func (c *CacheService) HealthCheck(ctx context.Context) error {
	if c.redis == nil {
		return nil
	}
	start := time.Now()
	err := c.redis.Health(ctx)
	duration := time.Since(start)

	if err != nil {
		c.logger.Error("cache health check failed",
			zap.Duration("duration", duration),
			zap.Error(err))
		return err
	}

	c.logger.Debug("cache health check passed", zap.Duration("duration", duration))
	return nil
}

func (c *CacheService) cacheRequestAsync(requestID string, req *domain.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data, err := marshalForCache(req)
	if err != nil {
		c.logger.Error("failed to marshal request for caching",
			zap.String("request_id", requestID),
			zap.Error(err))
		return
	}

	cacheKey := c.redis.KeyBuilder.KeyRequest(requestID)
	if err := c.redis.Set(ctx, cacheKey, data, redis.TTLRequest); err != nil {
		c.logger.Error("failed to cache request",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}

func (c *CacheService) cacheBoardAsync(cacheKey string, tasks []domain.Task) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data, err := json.Marshal(tasks)
	if err != nil {
		c.logger.Error("failed to marshal tasks for caching", zap.Error(err))
		return
	}

	if err := c.redis.Set(ctx, cacheKey, string(data), redis.TTLBoard); err != nil {
		c.logger.Error("failed to cache board snapshot", zap.Error(err))
	}
}
