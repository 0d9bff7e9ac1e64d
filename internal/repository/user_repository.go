package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"shepherd-api/internal/domain"
	"shepherd-api/pkg/database"
)

type UserRepository struct {
	db *database.PostgresDB
}

func NewUserRepository(db *database.PostgresDB) *UserRepository {
	return &UserRepository{db: db}
}

// GetUserByID fetches a user together with their group roles. Returns nil
// when the id is unknown.
func (r *UserRepository) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	var user domain.User
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, name, email, role, created_at, updated_at
		FROM users
		WHERE id = $1
	`, userID).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT group_id, role_name
		FROM group_roles
		WHERE user_id = $1
		ORDER BY group_id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group roles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var gr domain.GroupRole
		if err := rows.Scan(&gr.GroupID, &gr.RoleName); err != nil {
			return nil, fmt.Errorf("failed to scan group role: %w", err)
		}
		user.GroupRoles = append(user.GroupRoles, gr)
	}
	return &user, rows.Err()
}

// GetGroupMembers returns the roster of a group for assignee selection.
func (r *UserRepository) GetGroupMembers(ctx context.Context, groupID string) ([]domain.GroupMember, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT u.id, u.name, gr.role_name
		FROM group_roles gr
		JOIN users u ON u.id = gr.user_id
		WHERE gr.group_id = $1
		ORDER BY u.name ASC
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group members: %w", err)
	}
	defer rows.Close()

	var members []domain.GroupMember
	for rows.Next() {
		var m domain.GroupMember
		if err := rows.Scan(&m.UserID, &m.Name, &m.RoleName); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// IsGroupMember reports whether the user belongs to the group.
func (r *UserRepository) IsGroupMember(ctx context.Context, userID, groupID string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM group_roles WHERE user_id = $1 AND group_id = $2
		)
	`, userID, groupID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check group membership: %w", err)
	}
	return exists, nil
}
