package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"shepherd-api/internal/domain"
	"shepherd-api/pkg/database"
)

// ErrAlreadyDecided is returned when a decision is applied to a request
// whose decision is no longer pending and resubmission was not requested.
var ErrAlreadyDecided = errors.New("request already decided")

type RequestRepository struct {
	db *database.PostgresDB
}

func NewRequestRepository(db *database.PostgresDB) *RequestRepository {
	return &RequestRepository{db: db}
}

// decisionToBool maps the decision enum onto the nullable boolean column.
func decisionToBool(d domain.Decision) *bool {
	switch d {
	case domain.DecisionAccepted:
		v := true
		return &v
	case domain.DecisionRejected:
		v := false
		return &v
	default:
		return nil
	}
}

// decisionFromBool maps the nullable boolean column onto the decision enum.
func decisionFromBool(v *bool) domain.Decision {
	switch {
	case v == nil:
		return domain.DecisionPending
	case *v:
		return domain.DecisionAccepted
	default:
		return domain.DecisionRejected
	}
}

// CreateRequest persists a request together with its event payload,
// activities and cost rows in one transaction.
func (r *RequestRepository) CreateRequest(ctx context.Context, req *domain.Request) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO requests (id, type, title, content, created_by, to_role, is_accepted, comment, requesting_group)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING created_date
		`
		err := tx.QueryRow(ctx, query,
			req.ID,
			req.Type,
			req.Title,
			req.Content,
			req.CreatedBy,
			req.To,
			decisionToBool(req.Decision),
			req.Comment,
			req.RequestingGroup,
		).Scan(&req.CreatedDate)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		if req.Event == nil {
			return nil
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO events (request_id, name, description, from_date, to_date)
			VALUES ($1, $2, $3, $4, $5)
		`, req.ID, req.Event.Name, req.Event.Description, req.Event.FromDate, req.Event.ToDate)
		if err != nil {
			return fmt.Errorf("failed to create event: %w", err)
		}

		for i := range req.Event.Activities {
			act := &req.Event.Activities[i]
			_, err = tx.Exec(ctx, `
				INSERT INTO activities (id, request_id, name, description, start_time, end_time, location, is_accepted, comment, position)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			`, act.ID, req.ID, act.Name, act.Description, act.StartTime, act.EndTime,
				act.Location, decisionToBool(act.Decision), act.Comment, i)
			if err != nil {
				return fmt.Errorf("failed to create activity: %w", err)
			}

			for _, gc := range act.Costs {
				_, err = tx.Exec(ctx, `
					INSERT INTO activity_costs (activity_id, group_id, cost)
					VALUES ($1, $2, $3)
				`, act.ID, gc.GroupID, gc.Cost)
				if err != nil {
					return fmt.Errorf("failed to create activity cost: %w", err)
				}
			}
		}
		return nil
	})
}

// GetRequestByID fetches a request with its event payload, activities and
// resolved display names. Returns nil when the id is unknown.
func (r *RequestRepository) GetRequestByID(ctx context.Context, requestID string) (*domain.Request, error) {
	var req domain.Request
	var isAccepted *bool
	query := `
		SELECT r.id, r.type, r.title, r.content, r.created_by, COALESCE(u.name, ''),
		       r.created_date, r.to_role, r.is_accepted, r.comment,
		       r.requesting_group, COALESCE(g.name, '')
		FROM requests r
		LEFT JOIN users u ON u.id = r.created_by
		LEFT JOIN groups g ON g.id = r.requesting_group
		WHERE r.id = $1
	`

	err := r.db.Pool.QueryRow(ctx, query, requestID).Scan(
		&req.ID,
		&req.Type,
		&req.Title,
		&req.Content,
		&req.CreatedBy,
		&req.CreatedByName,
		&req.CreatedDate,
		&req.To,
		&isAccepted,
		&req.Comment,
		&req.RequestingGroup,
		&req.GroupName,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	req.Decision = decisionFromBool(isAccepted)

	event, err := r.getEvent(ctx, requestID)
	if err != nil {
		return nil, err
	}
	req.Event = event

	return &req, nil
}

func (r *RequestRepository) getEvent(ctx context.Context, requestID string) (*domain.Event, error) {
	var ev domain.Event
	err := r.db.Pool.QueryRow(ctx, `
		SELECT name, description, from_date, to_date
		FROM events
		WHERE request_id = $1
	`, requestID).Scan(&ev.Name, &ev.Description, &ev.FromDate, &ev.ToDate)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, name, description, start_time, end_time, location, is_accepted, comment
		FROM activities
		WHERE request_id = $1
		ORDER BY position ASC
	`, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get activities: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var act domain.Activity
		var isAccepted *bool
		err := rows.Scan(
			&act.ID,
			&act.Name,
			&act.Description,
			&act.StartTime,
			&act.EndTime,
			&act.Location,
			&isAccepted,
			&act.Comment,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		act.Decision = decisionFromBool(isAccepted)
		ev.Activities = append(ev.Activities, act)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read activities: %w", err)
	}

	for i := range ev.Activities {
		costs, err := r.getActivityCosts(ctx, ev.Activities[i].ID)
		if err != nil {
			return nil, err
		}
		ev.Activities[i].Costs = costs
		ev.TotalCost += ev.Activities[i].TotalCost()
	}

	return &ev, nil
}

func (r *RequestRepository) getActivityCosts(ctx context.Context, activityID string) ([]domain.GroupCost, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT group_id, cost
		FROM activity_costs
		WHERE activity_id = $1
		ORDER BY group_id ASC
	`, activityID)
	if err != nil {
		return nil, fmt.Errorf("failed to get activity costs: %w", err)
	}
	defer rows.Close()

	var costs []domain.GroupCost
	for rows.Next() {
		var gc domain.GroupCost
		if err := rows.Scan(&gc.GroupID, &gc.Cost); err != nil {
			return nil, fmt.Errorf("failed to scan activity cost: %w", err)
		}
		costs = append(costs, gc)
	}
	return costs, rows.Err()
}

// ListRequests returns one page of requests addressed to the given role,
// newest first, together with the total count for pagination.
func (r *RequestRepository) ListRequests(ctx context.Context, toRole domain.Role, offset, limit int) ([]domain.Request, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM requests WHERE to_role = $1`, toRole).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count requests: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT r.id, r.type, r.title, r.content, r.created_by, COALESCE(u.name, ''),
		       r.created_date, r.to_role, r.is_accepted, r.comment,
		       r.requesting_group, COALESCE(g.name, '')
		FROM requests r
		LEFT JOIN users u ON u.id = r.created_by
		LEFT JOIN groups g ON g.id = r.requesting_group
		WHERE r.to_role = $1
		ORDER BY r.created_date DESC
		OFFSET $2 LIMIT $3
	`, toRole, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	var requests []domain.Request
	for rows.Next() {
		var req domain.Request
		var isAccepted *bool
		err := rows.Scan(
			&req.ID,
			&req.Type,
			&req.Title,
			&req.Content,
			&req.CreatedBy,
			&req.CreatedByName,
			&req.CreatedDate,
			&req.To,
			&isAccepted,
			&req.Comment,
			&req.RequestingGroup,
			&req.GroupName,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan request: %w", err)
		}
		req.Decision = decisionFromBool(isAccepted)
		requests = append(requests, req)
	}
	return requests, total, rows.Err()
}

// ApplyDecision records the submitted decision on the request and every
// reviewed activity in one transaction. The request row is locked first;
// applying a non-pending decision over an already-decided request fails
// with ErrAlreadyDecided unless overwrite is set (the resubmit path resets
// a decided request back to pending, so overwrite is implied there).
func (r *RequestRepository) ApplyDecision(ctx context.Context, sub *domain.DecisionSubmission, overwrite bool) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		var current *bool
		err := tx.QueryRow(ctx,
			`SELECT is_accepted FROM requests WHERE id = $1 FOR UPDATE`,
			sub.ID).Scan(&current)
		if err == pgx.ErrNoRows {
			return pgx.ErrNoRows
		}
		if err != nil {
			return fmt.Errorf("failed to lock request: %w", err)
		}

		if current != nil && sub.IsAccepted.Decided() && !overwrite {
			return ErrAlreadyDecided
		}

		_, err = tx.Exec(ctx, `
			UPDATE requests SET is_accepted = $2, comment = $3 WHERE id = $1
		`, sub.ID, decisionToBool(sub.IsAccepted), sub.EventModel.Comment)
		if err != nil {
			return fmt.Errorf("failed to update request decision: %w", err)
		}

		for _, ar := range sub.EventModel.ListActivities {
			var decided *bool
			if sub.IsAccepted.Decided() {
				v := ar.IsAccepted
				decided = &v
			}
			tag, err := tx.Exec(ctx, `
				UPDATE activities SET is_accepted = $3, comment = $4
				WHERE id = $1 AND request_id = $2
			`, ar.ID, sub.ID, decided, ar.Comment)
			if err != nil {
				return fmt.Errorf("failed to update activity decision: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("activity %s does not belong to request %s", ar.ID, sub.ID)
			}
		}
		return nil
	})
}
