package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"shepherd-api/internal/domain"
	apperrors "shepherd-api/pkg/errors"
	"shepherd-api/pkg/redis"
)

// BoardService is the task board engine: it partitions a group's tasks into
// the canonical status columns and enforces the role-scoped transition table
// before any move is persisted.
type BoardService struct {
	tasks    TaskStore
	users    UserStore
	redis    *redis.Client
	cache    *CacheService
	notifier Notifier
	logger   *zap.Logger
}

func NewBoardService(
	tasks TaskStore,
	users UserStore,
	redisClient *redis.Client,
	notifier Notifier,
	logger *zap.Logger,
) *BoardService {
	return &BoardService{
		tasks:    tasks,
		users:    users,
		redis:    redisClient,
		cache:    NewCacheService(redisClient, logger),
		notifier: notifier,
		logger:   logger,
	}
}

// LoadBoard returns the group's board for the actor: leaders see every
// task, members only their own. Every canonical column is present even
// when empty so the board always renders consistently.
func (s *BoardService) LoadBoard(ctx context.Context, actor domain.Actor, groupID string) (*domain.Board, error) {
	role := actor.BoardRoleFor(groupID)
	if role == domain.BoardRoleMember {
		member, err := s.users.IsGroupMember(ctx, actor.UserID, groupID)
		if err != nil {
			return nil, apperrors.NewInternalError("Failed to check group membership", err)
		}
		if !member {
			return nil, apperrors.NewAuthorizationError("Not a member of this group")
		}
	}

	fetch := func(ctx context.Context) ([]domain.Task, error) {
		if role == domain.BoardRoleLeader {
			return s.tasks.ListByGroup(ctx, groupID)
		}
		return s.tasks.ListByGroupAndAssignee(ctx, groupID, actor.UserID)
	}

	tasks, err := s.cache.GetBoardTasksWithCache(ctx, groupID, string(role)+":"+actor.UserID, fetch)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to load tasks", err)
	}
	return domain.NewBoard(groupID, role, tasks), nil
}

// MoveTask validates a column transition against the role allow-list and
// persists it. Both endpoints must be allowed for the actor's role; a
// same-column move is a no-op (ordering within a column is not modeled
// server-side).
func (s *BoardService) MoveTask(ctx context.Context, actor domain.Actor, taskID string, from, to domain.Column) (*domain.Task, error) {
	if !from.Valid() || !to.Valid() {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("unknown column in move %s -> %s", from, to), nil)
	}

	task, err := s.tasks.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to load task", err)
	}
	if task == nil {
		return nil, apperrors.NewNotFoundError("Task not found")
	}

	role := actor.BoardRoleFor(task.GroupID)
	if role == domain.BoardRoleMember && task.AssigneeID != actor.UserID {
		return nil, apperrors.NewAuthorizationError("Not permitted to move another member's task")
	}
	if !domain.CanMove(role, from, to) {
		return nil, apperrors.NewAuthorizationError(
			fmt.Sprintf("not permitted to move a task from %s to %s as %s", from, to, role))
	}

	if from == to {
		return task, nil
	}

	moved, err := s.tasks.UpdateStatus(ctx, taskID, from, to)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to move task", err)
	}
	if !moved {
		// The task left the expected column between load and update.
		return nil, apperrors.NewConflictError(
			fmt.Sprintf("task is no longer in column %s", from))
	}

	task.Column = to
	s.invalidateBoardCaches(task.GroupID)
	s.logger.Info("task moved",
		zap.String("task_id", taskID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("moved_by", actor.UserID))
	return task, nil
}

// CreateTask adds a task to a group's board. Leader-only; the assignee must
// come from the group's roster.
func (s *BoardService) CreateTask(ctx context.Context, actor domain.Actor, groupID string, spec *domain.TaskSpec) (*domain.Task, error) {
	if !actor.IsGroupLeader(groupID) {
		return nil, apperrors.NewAuthorizationError("Only the group leader may create tasks")
	}
	if spec.Title == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}
	if spec.AssigneeID == "" {
		return nil, apperrors.NewValidationError("assignee is required", nil)
	}
	if spec.Cost < 0 {
		return nil, apperrors.NewValidationError("cost must not be negative", nil)
	}

	member, err := s.users.IsGroupMember(ctx, spec.AssigneeID, groupID)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to check assignee membership", err)
	}
	if !member {
		return nil, apperrors.NewValidationError("assignee is not a member of this group", nil)
	}

	task := &domain.Task{
		ID:          generateID(),
		Title:       spec.Title,
		Description: spec.Description,
		Cost:        spec.Cost,
		ActivityID:  spec.ActivityID,
		GroupID:     groupID,
		AssigneeID:  spec.AssigneeID,
		Column:      domain.ColumnDraft,
		DueDate:     spec.DueDate,
	}
	if err := s.tasks.CreateTask(ctx, task); err != nil {
		return nil, apperrors.NewInternalError("Failed to create task", err)
	}

	s.invalidateBoardCaches(groupID)
	s.logger.Info("task created",
		zap.String("task_id", task.ID),
		zap.String("group_id", groupID),
		zap.String("assignee_id", task.AssigneeID))
	s.notifier.TaskAssigned(task)
	return task, nil
}

// UpdateTask edits a task's fields. Allowed only for the group leader and
// only while the task is still in Draft or Pending.
func (s *BoardService) UpdateTask(ctx context.Context, actor domain.Actor, taskID string, patch *domain.TaskPatch) (*domain.Task, error) {
	task, err := s.tasks.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to load task", err)
	}
	if task == nil {
		return nil, apperrors.NewNotFoundError("Task not found")
	}

	role := actor.BoardRoleFor(task.GroupID)
	if !task.CanEdit(role) {
		return nil, apperrors.NewAuthorizationError(
			"Tasks may only be edited by the group leader while in Draft or Pending")
	}
	if patch.AssigneeID != nil {
		member, err := s.users.IsGroupMember(ctx, *patch.AssigneeID, task.GroupID)
		if err != nil {
			return nil, apperrors.NewInternalError("Failed to check assignee membership", err)
		}
		if !member {
			return nil, apperrors.NewValidationError("assignee is not a member of this group", nil)
		}
	}
	if patch.Cost != nil && *patch.Cost < 0 {
		return nil, apperrors.NewValidationError("cost must not be negative", nil)
	}

	updated, err := s.tasks.UpdateTask(ctx, taskID, patch)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to update task", err)
	}
	if updated == nil {
		return nil, apperrors.NewNotFoundError("Task not found")
	}

	s.invalidateBoardCaches(task.GroupID)
	if patch.AssigneeID != nil && *patch.AssigneeID != task.AssigneeID {
		s.notifier.TaskAssigned(updated)
	}
	return updated, nil
}

// GroupMembers returns the roster used to pick an assignee. Fetched fresh
// with a short cache so a just-added member shows up quickly.
func (s *BoardService) GroupMembers(ctx context.Context, actor domain.Actor, groupID string) ([]domain.GroupMember, error) {
	if !actor.IsGroupLeader(groupID) {
		member, err := s.users.IsGroupMember(ctx, actor.UserID, groupID)
		if err != nil {
			return nil, apperrors.NewInternalError("Failed to check group membership", err)
		}
		if !member {
			return nil, apperrors.NewAuthorizationError("Not a member of this group")
		}
	}

	members, err := s.users.GetGroupMembers(ctx, groupID)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to load group members", err)
	}
	if members == nil {
		members = []domain.GroupMember{}
	}
	return members, nil
}

func (s *BoardService) invalidateBoardCaches(groupID string) {
	if s.redis == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		pattern := s.redis.KeyBuilder.KeyBoard(groupID, "*")
		if err := s.redis.InvalidatePattern(ctx, pattern); err != nil {
			s.logger.Warn("failed to invalidate board caches",
				zap.String("group_id", groupID), zap.Error(err))
		}
	}()
}
