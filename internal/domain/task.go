package domain

import "time"

// Column is one status column of the task board.
type Column string

const (
	ColumnDraft      Column = "Draft"
	ColumnPending    Column = "Pending"
	ColumnTodo       Column = "Todo"
	ColumnInProgress Column = "InProgress"
	ColumnReview     Column = "Review"
	ColumnDone       Column = "Done"

	// ColumnUncategorized buckets tasks whose stored status is not one of
	// the canonical columns. It never appears in any allow-list.
	ColumnUncategorized Column = "Uncategorized"
)

// ColumnOrder is the fixed left-to-right order of the board.
var ColumnOrder = []Column{
	ColumnDraft,
	ColumnPending,
	ColumnTodo,
	ColumnInProgress,
	ColumnReview,
	ColumnDone,
}

// columnLabels are the localized display labels of the canonical columns.
var columnLabels = map[Column]string{
	ColumnDraft:      "Bản nháp",
	ColumnPending:    "Đang chờ",
	ColumnTodo:       "Việc cần làm",
	ColumnInProgress: "Đang thực hiện",
	ColumnReview:     "Xem xét",
	ColumnDone:       "Đã hoàn thành",
}

// Label returns the localized display label of the column.
func (c Column) Label() string {
	if label, ok := columnLabels[c]; ok {
		return label
	}
	return string(c)
}

// Valid reports whether c is one of the canonical columns.
func (c Column) Valid() bool {
	_, ok := columnLabels[c]
	return ok
}

// ParseColumn maps a stored status string onto a canonical column, bucketing
// unknown values under Uncategorized.
func ParseColumn(status string) Column {
	c := Column(status)
	if c.Valid() {
		return c
	}
	return ColumnUncategorized
}

// BoardRole is the actor's role with respect to one group's board.
type BoardRole string

const (
	BoardRoleLeader BoardRole = "leader"
	BoardRoleMember BoardRole = "member"
)

// columnAllowance is the role-scoped transition table. A move is permitted
// only when both its endpoints are allowed for the role.
var columnAllowance = map[BoardRole]map[Column]bool{
	BoardRoleLeader: {
		ColumnDraft:   true,
		ColumnPending: true,
		ColumnReview:  true,
		ColumnDone:    true,
	},
	BoardRoleMember: {
		ColumnPending:    true,
		ColumnTodo:       true,
		ColumnInProgress: true,
		ColumnReview:     true,
	},
}

// CanMove reports whether the role may move a task from one column to
// another. Both endpoints must be in the role's allow-list.
func CanMove(role BoardRole, from, to Column) bool {
	allowed := columnAllowance[role]
	return allowed[from] && allowed[to]
}

// Task is one card on a group's board.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Cost        int64      `json:"cost"`
	ActivityID  string     `json:"activityID"`
	GroupID     string     `json:"groupID"`
	AssigneeID  string     `json:"userID"`
	Column      Column     `json:"status"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CanEdit reports whether a task's fields may still be edited: leaders only,
// and only while the task sits in an early-stage column.
func (t *Task) CanEdit(role BoardRole) bool {
	return role == BoardRoleLeader &&
		(t.Column == ColumnDraft || t.Column == ColumnPending)
}

// BoardColumn is one rendered column of a board snapshot.
type BoardColumn struct {
	Column Column `json:"column"`
	Label  string `json:"label"`
	Tasks  []Task `json:"tasks"`
}

// Board is a group's full board snapshot. Every canonical column is present
// even when empty; Uncategorized appears only when it holds tasks.
type Board struct {
	GroupID string        `json:"groupID"`
	Role    BoardRole     `json:"role"`
	Columns []BoardColumn `json:"columns"`
}

// NewBoard partitions tasks into the canonical columns.
func NewBoard(groupID string, role BoardRole, tasks []Task) *Board {
	byColumn := make(map[Column][]Task, len(ColumnOrder)+1)
	for _, t := range tasks {
		c := ParseColumn(string(t.Column))
		byColumn[c] = append(byColumn[c], t)
	}

	board := &Board{GroupID: groupID, Role: role}
	for _, c := range ColumnOrder {
		col := BoardColumn{Column: c, Label: c.Label(), Tasks: byColumn[c]}
		if col.Tasks == nil {
			col.Tasks = []Task{}
		}
		board.Columns = append(board.Columns, col)
	}
	if stray := byColumn[ColumnUncategorized]; len(stray) > 0 {
		board.Columns = append(board.Columns, BoardColumn{
			Column: ColumnUncategorized,
			Label:  ColumnUncategorized.Label(),
			Tasks:  stray,
		})
	}
	return board
}

// TaskSpec carries the fields a leader supplies when creating a task.
type TaskSpec struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Cost        int64      `json:"cost"`
	ActivityID  string     `json:"activityID"`
	AssigneeID  string     `json:"userID"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

// TaskPatch carries the editable fields of a task. Nil fields are left
// untouched.
type TaskPatch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Cost        *int64     `json:"cost,omitempty"`
	AssigneeID  *string    `json:"userID,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}
