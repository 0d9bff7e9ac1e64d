package service

import (
	"context"

	"shepherd-api/internal/domain"
)

// AuthService validates bearer tokens.
type AuthService interface {
	// ValidateToken verifies a bearer token and returns its claims.
	ValidateToken(ctx context.Context, token string) (*domain.AuthClaims, error)
}

// RequestStore is the persistence surface the request workflow needs.
type RequestStore interface {
	CreateRequest(ctx context.Context, req *domain.Request) error
	GetRequestByID(ctx context.Context, requestID string) (*domain.Request, error)
	ListRequests(ctx context.Context, toRole domain.Role, offset, limit int) ([]domain.Request, int, error)
	ApplyDecision(ctx context.Context, sub *domain.DecisionSubmission, overwrite bool) error
}

// TaskStore is the persistence surface the task board needs.
type TaskStore interface {
	CreateTask(ctx context.Context, task *domain.Task) error
	GetTaskByID(ctx context.Context, taskID string) (*domain.Task, error)
	ListByGroup(ctx context.Context, groupID string) ([]domain.Task, error)
	ListByGroupAndAssignee(ctx context.Context, groupID, userID string) ([]domain.Task, error)
	UpdateStatus(ctx context.Context, taskID string, from, to domain.Column) (bool, error)
	UpdateTask(ctx context.Context, taskID string, patch *domain.TaskPatch) (*domain.Task, error)
}

// UserStore resolves users, rosters and group membership.
type UserStore interface {
	GetUserByID(ctx context.Context, userID string) (*domain.User, error)
	GetGroupMembers(ctx context.Context, groupID string) ([]domain.GroupMember, error)
	IsGroupMember(ctx context.Context, userID, groupID string) (bool, error)
}

// DeviceTokenStore keeps push-notification device tokens.
type DeviceTokenStore interface {
	SaveToken(ctx context.Context, userID, token string) error
	TokensForUser(ctx context.Context, userID string) ([]string, error)
	DeleteToken(ctx context.Context, userID, token string) error
}

// Notifier delivers push notifications. Implementations must not block the
// calling request path; delivery is best effort.
type Notifier interface {
	RequestDecided(req *domain.Request)
	TaskAssigned(task *domain.Task)
}

// NopNotifier is used when push notifications are not configured.
type NopNotifier struct{}

func (NopNotifier) RequestDecided(*domain.Request) {}
func (NopNotifier) TaskAssigned(*domain.Task)      {}
