package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"shepherd-api/internal/domain"
	"shepherd-api/pkg/database"
)

type TaskRepository struct {
	db *database.PostgresDB
}

func NewTaskRepository(db *database.PostgresDB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, title, description, cost, activity_id, group_id, assignee_id, status, due_date, created_at, updated_at`

func scanTask(row pgx.Row) (*domain.Task, error) {
	var t domain.Task
	var status string
	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.Cost,
		&t.ActivityID,
		&t.GroupID,
		&t.AssigneeID,
		&status,
		&t.DueDate,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Column = domain.ParseColumn(status)
	return &t, nil
}

// CreateTask inserts a new task.
func (r *TaskRepository) CreateTask(ctx context.Context, task *domain.Task) error {
	query := `
		INSERT INTO tasks (id, title, description, cost, activity_id, group_id, assignee_id, status, due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	err := r.db.Pool.QueryRow(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.Cost,
		task.ActivityID,
		task.GroupID,
		task.AssigneeID,
		string(task.Column),
		task.DueDate,
	).Scan(&task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetTaskByID fetches one task. Returns nil when the id is unknown.
func (r *TaskRepository) GetTaskByID(ctx context.Context, taskID string) (*domain.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE id = $1`, taskColumns)
	task, err := scanTask(r.db.Pool.QueryRow(ctx, query, taskID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// ListByGroup returns every task of a group (the leader's view).
func (r *TaskRepository) ListByGroup(ctx context.Context, groupID string) ([]domain.Task, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM tasks WHERE group_id = $1 ORDER BY created_at ASC
	`, taskColumns)
	return r.listTasks(ctx, query, groupID)
}

// ListByGroupAndAssignee returns only the caller's tasks within a group
// (the member's view).
func (r *TaskRepository) ListByGroupAndAssignee(ctx context.Context, groupID, userID string) ([]domain.Task, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM tasks WHERE group_id = $1 AND assignee_id = $2 ORDER BY created_at ASC
	`, taskColumns)
	return r.listTasks(ctx, query, groupID, userID)
}

func (r *TaskRepository) listTasks(ctx context.Context, query string, args ...interface{}) ([]domain.Task, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// UpdateStatus moves a task to a new column only if it still sits in the
// expected one. Returns false when the conditional update matched no row,
// which means the move raced a concurrent column change.
func (r *TaskRepository) UpdateStatus(ctx context.Context, taskID string, from, to domain.Column) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE tasks SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, taskID, string(from), string(to))
	if err != nil {
		return false, fmt.Errorf("failed to update task status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateTask applies a partial edit to a task and returns the fresh row.
func (r *TaskRepository) UpdateTask(ctx context.Context, taskID string, patch *domain.TaskPatch) (*domain.Task, error) {
	query := fmt.Sprintf(`
		UPDATE tasks SET
			title       = COALESCE($2, title),
			description = COALESCE($3, description),
			cost        = COALESCE($4, cost),
			assignee_id = COALESCE($5, assignee_id),
			due_date    = COALESCE($6, due_date),
			updated_at  = NOW()
		WHERE id = $1
		RETURNING %s
	`, taskColumns)

	task, err := scanTask(r.db.Pool.QueryRow(ctx, query,
		taskID,
		patch.Title,
		patch.Description,
		patch.Cost,
		patch.AssigneeID,
		patch.DueDate,
	))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return task, nil
}
