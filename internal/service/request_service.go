package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"shepherd-api/internal/config"
	"shepherd-api/internal/domain"
	"shepherd-api/internal/repository"
	apperrors "shepherd-api/pkg/errors"
	"shepherd-api/pkg/redis"
)

// RequestService is the request approval workflow engine. It owns the
// Pending -> Accepted/Rejected state machine, the per-activity review
// aggregation and the validation that gates submission.
type RequestService struct {
	requests RequestStore
	users    UserStore
	redis    *redis.Client
	cache    *CacheService
	notifier Notifier
	policy   config.FlaggedActivityPolicy
	resubmit bool
	logger   *zap.Logger
}

func NewRequestService(
	requests RequestStore,
	users UserStore,
	redisClient *redis.Client,
	notifier Notifier,
	cfg *config.Config,
	logger *zap.Logger,
) *RequestService {
	return &RequestService{
		requests: requests,
		users:    users,
		redis:    redisClient,
		cache:    NewCacheService(redisClient, logger),
		notifier: notifier,
		policy:   cfg.FlaggedActivityPolicy,
		resubmit: cfg.AllowResubmit,
		logger:   logger,
	}
}

// CreateRequestInput carries the fields a member submits when opening a
// request.
type CreateRequestInput struct {
	Type            domain.RequestType `json:"type"`
	Title           string             `json:"title"`
	Content         string             `json:"content"`
	To              domain.Role        `json:"to"`
	RequestingGroup string             `json:"requestingGroup"`
	Event           *domain.Event      `json:"eventModel,omitempty"`
}

// Create validates and persists a new request. All invariants are checked
// before any write: nothing is clamped silently.
func (s *RequestService) Create(ctx context.Context, actor domain.Actor, in *CreateRequestInput) (*domain.Request, error) {
	if in.Title == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}
	if !in.Type.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown request type %q", in.Type), nil)
	}
	if in.Type == domain.RequestTypeCreateEvent {
		if in.Event == nil {
			return nil, apperrors.NewValidationError("event payload is required for event requests", nil)
		}
		if err := domain.ValidateEvent(in.Event); err != nil {
			return nil, apperrors.NewValidationError(err.Error(), nil)
		}
	}

	to := in.To
	if to == "" {
		to = domain.RoleCouncil
	}

	req := &domain.Request{
		ID:              generateID(),
		Type:            in.Type,
		Title:           in.Title,
		Content:         in.Content,
		CreatedBy:       actor.UserID,
		To:              to,
		Decision:        domain.DecisionPending,
		Comment:         "",
		RequestingGroup: in.RequestingGroup,
		Event:           in.Event,
	}
	if req.Event != nil {
		for i := range req.Event.Activities {
			act := &req.Event.Activities[i]
			if act.ID == "" {
				act.ID = generateID()
			}
			act.Decision = domain.DecisionPending
		}
	}

	if err := s.requests.CreateRequest(ctx, req); err != nil {
		return nil, apperrors.NewInternalError("Failed to create request", err)
	}

	s.invalidateRequestCaches(req)
	s.logger.Info("request created",
		zap.String("request_id", req.ID),
		zap.String("type", string(req.Type)),
		zap.String("created_by", actor.UserID))
	return req, nil
}

// Get loads a request with its activities and resolved display names,
// cache-aside. Calling it twice without an intervening decision returns
// structurally identical data.
func (s *RequestService) Get(ctx context.Context, actor domain.Actor, requestID string) (*domain.Request, error) {
	req, err := s.cache.GetRequestWithCache(ctx, requestID, s.requests.GetRequestByID)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to load request", err)
	}
	if req == nil {
		return nil, apperrors.NewNotFoundError("Request not found")
	}
	if !s.canView(actor, req) {
		return nil, apperrors.NewAuthorizationError("Not permitted to view this request")
	}
	return req, nil
}

// canView limits request visibility to the reviewer queue, the creator and
// leaders of the requesting group.
func (s *RequestService) canView(actor domain.Actor, req *domain.Request) bool {
	if actor.Role == domain.RoleAdmin || actor.Role == req.To {
		return true
	}
	if actor.UserID == req.CreatedBy {
		return true
	}
	return req.RequestingGroup != "" && actor.IsGroupLeader(req.RequestingGroup)
}

// Page is one page of a request listing.
type Page struct {
	Requests []domain.Request `json:"requests"`
	Total    int              `json:"total"`
	PageNum  int              `json:"page"`
	Limit    int              `json:"limit"`
}

// List returns a page of the actor's review queue.
func (s *RequestService) List(ctx context.Context, actor domain.Actor, page, limit int) (*Page, error) {
	if !actor.IsCouncil() {
		return nil, apperrors.NewAuthorizationError("Only council members may list the review queue")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	requests, total, err := s.requests.ListRequests(ctx, domain.RoleCouncil, (page-1)*limit, limit)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to list requests", err)
	}
	if requests == nil {
		requests = []domain.Request{}
	}
	return &Page{Requests: requests, Total: total, PageNum: page, Limit: limit}, nil
}

// Decide runs the request state machine for a submitted decision:
//
//	Pending  --approve-->  Accepted
//	Pending  --reject--->  Rejected
//	Accepted|Rejected --resubmit--> Pending (when resubmission is enabled)
//
// Accepted and Rejected are otherwise terminal: a second decision against a
// decided request fails with a conflict instead of silently overwriting it.
func (s *RequestService) Decide(ctx context.Context, actor domain.Actor, sub *domain.DecisionSubmission) (*domain.Request, error) {
	if !actor.IsCouncil() {
		return nil, apperrors.NewAuthorizationError("Only council members may decide requests")
	}
	if sub.ID == "" {
		return nil, apperrors.NewValidationError("request id is required", nil)
	}
	sub.Normalize()

	req, err := s.requests.GetRequestByID(ctx, sub.ID)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to load request", err)
	}
	if req == nil {
		return nil, apperrors.NewNotFoundError("Request not found")
	}

	overwrite := false
	switch {
	case sub.IsAccepted == domain.DecisionPending:
		// Resubmit: re-open a decided request for another review pass.
		if !s.resubmit {
			return nil, apperrors.NewValidationError("resubmission is disabled", nil)
		}
		if !req.Decision.Decided() {
			return nil, apperrors.NewConflictError("Request is still pending review")
		}
		overwrite = true

	case sub.IsAccepted == domain.DecisionAccepted:
		if flagged := sub.FlaggedActivities(); len(flagged) > 0 && s.policy == config.FlagPolicyBlock {
			return nil, apperrors.NewValidationError(
				"cannot accept while activities are flagged for revision",
				map[string]interface{}{"flagged_activities": flagged})
		}
	}

	// Guard against rapid double-submit racing ahead of the row lock.
	if acquired, err := s.tryDecisionLock(ctx, sub.ID); err == nil && !acquired {
		return nil, apperrors.NewConflictError("A decision for this request is already in flight")
	}

	if err := s.requests.ApplyDecision(ctx, sub, overwrite); err != nil {
		if errors.Is(err, repository.ErrAlreadyDecided) {
			return nil, apperrors.NewConflictError("Request has already been decided; resubmit it first")
		}
		return nil, apperrors.NewInternalError("Failed to apply decision", err)
	}

	s.invalidateRequestCaches(req)

	decided, err := s.requests.GetRequestByID(ctx, sub.ID)
	if err != nil || decided == nil {
		// The decision is durable; fall back to the pre-decision snapshot.
		s.logger.Warn("failed to reload request after decision",
			zap.String("request_id", sub.ID), zap.Error(err))
		decided = req
		decided.Decision = sub.IsAccepted
	}

	s.logger.Info("request decided",
		zap.String("request_id", sub.ID),
		zap.String("decision", sub.IsAccepted.String()),
		zap.String("decided_by", actor.UserID))

	if sub.IsAccepted.Decided() {
		s.notifier.RequestDecided(decided)
	}
	return decided, nil
}

// tryDecisionLock acquires a short-TTL idempotency lock for a request.
// Redis being down degrades to the transactional row-lock check alone.
func (s *RequestService) tryDecisionLock(ctx context.Context, requestID string) (bool, error) {
	if s.redis == nil {
		return true, nil
	}
	key := s.redis.KeyBuilder.KeyDecisionLock(requestID)
	return s.redis.SetNX(ctx, key, "1", redis.TTLDecisionLock)
}

func (s *RequestService) invalidateRequestCaches(req *domain.Request) {
	if s.redis == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		keys := []string{
			s.redis.KeyBuilder.KeyRequest(req.ID),
			s.redis.KeyBuilder.KeyRequestList(string(req.To)),
		}
		if err := s.redis.Delete(ctx, keys...); err != nil {
			s.logger.Warn("failed to invalidate request caches",
				zap.String("request_id", req.ID), zap.Error(err))
		}
	}()
}

// generateID returns a random 20-hex-character identifier.
func generateID() string {
	bytes := make([]byte, 10)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}

// marshalForCache keeps cached request payloads in one place so the cache
// and the fresh path serialize identically.
func marshalForCache(req *domain.Request) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
