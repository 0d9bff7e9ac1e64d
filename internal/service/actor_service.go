package service

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"shepherd-api/internal/domain"
	apperrors "shepherd-api/pkg/errors"
	"shepherd-api/pkg/redis"
)

// ActorService resolves validated token subjects into full actors (portal
// role plus group roles). Resolution happens on every authenticated request,
// so profiles are cached briefly in Redis.
type ActorService struct {
	users  UserStore
	redis  *redis.Client
	logger *zap.Logger
}

func NewActorService(users UserStore, redisClient *redis.Client, logger *zap.Logger) *ActorService {
	return &ActorService{
		users:  users,
		redis:  redisClient,
		logger: logger,
	}
}

// Resolve builds the Actor for a user id.
func (s *ActorService) Resolve(ctx context.Context, userID string) (*domain.Actor, error) {
	if actor := s.fromCache(ctx, userID); actor != nil {
		return actor, nil
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to resolve user", err)
	}
	if user == nil {
		return nil, apperrors.NewAuthenticationError("Unknown user")
	}

	actor := &domain.Actor{
		UserID:     user.ID,
		Name:       user.Name,
		Role:       user.Role,
		GroupRoles: user.GroupRoles,
	}
	go s.cacheAsync(userID, actor)
	return actor, nil
}

// Invalidate drops a cached actor profile, e.g. after a role change.
func (s *ActorService) Invalidate(ctx context.Context, userID string) error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Delete(ctx, s.redis.KeyBuilder.KeyActorProfile(userID))
}

func (s *ActorService) fromCache(ctx context.Context, userID string) *domain.Actor {
	if s.redis == nil {
		return nil
	}
	cached, err := s.redis.Get(ctx, s.redis.KeyBuilder.KeyActorProfile(userID))
	if err != nil {
		if err != goredis.Nil {
			s.logger.Warn("actor cache error, falling back to database",
				zap.String("user_id", userID), zap.Error(err))
		}
		return nil
	}
	var actor domain.Actor
	if err := json.Unmarshal([]byte(cached), &actor); err != nil {
		s.logger.Warn("actor cache corrupted, falling back to database",
			zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	return &actor
}

func (s *ActorService) cacheAsync(userID string, actor *domain.Actor) {
	if s.redis == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data, err := json.Marshal(actor)
	if err != nil {
		return
	}
	key := s.redis.KeyBuilder.KeyActorProfile(userID)
	if err := s.redis.Set(ctx, key, string(data), redis.TTLActorProfile); err != nil {
		s.logger.Warn("failed to cache actor profile",
			zap.String("user_id", userID), zap.Error(err))
	}
}
