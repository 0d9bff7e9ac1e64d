package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"shepherd-api/internal/domain"
	"shepherd-api/internal/middleware"
	"shepherd-api/internal/service"
	"shepherd-api/pkg/errors"
)

// BoardHandler exposes the task board over HTTP.
type BoardHandler struct {
	board *service.BoardService
}

func NewBoardHandler(board *service.BoardService) *BoardHandler {
	return &BoardHandler{board: board}
}

// GetBoard handles GET /api/groups/{groupId}/board
func (h *BoardHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.ActorFromContext(ctx)
	if !ok {
		respondError(w, errors.NewAuthenticationError("Authentication required"))
		return
	}

	groupID := chi.URLParam(r, "groupId")
	if groupID == "" {
		respondError(w, errors.NewValidationError("group id is required", nil))
		return
	}

	board, err := h.board.LoadBoard(ctx, actor, groupID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, board)
}

// GetMembers handles GET /api/groups/{groupId}/members
func (h *BoardHandler) GetMembers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.ActorFromContext(ctx)
	if !ok {
		respondError(w, errors.NewAuthenticationError("Authentication required"))
		return
	}

	groupID := chi.URLParam(r, "groupId")
	members, err := h.board.GroupMembers(ctx, actor, groupID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, members)
}

// CreateTask handles POST /api/groups/{groupId}/tasks
func (h *BoardHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.ActorFromContext(ctx)
	if !ok {
		respondError(w, errors.NewAuthenticationError("Authentication required"))
		return
	}

	groupID := chi.URLParam(r, "groupId")

	var spec domain.TaskSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		respondError(w, errors.NewValidationError("Invalid request body", nil))
		return
	}

	task, err := h.board.CreateTask(ctx, actor, groupID, &spec)
	if err != nil {
		respondError(w, err)
		return
	}
	respondResult(w, http.StatusCreated, task, "Task created")
}

// moveTaskRequest is the body of a status move.
type moveTaskRequest struct {
	From   domain.Column `json:"from"`
	Status domain.Column `json:"status"`
}

// MoveTask handles PATCH /api/tasks/{id}/status
func (h *BoardHandler) MoveTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.ActorFromContext(ctx)
	if !ok {
		respondError(w, errors.NewAuthenticationError("Authentication required"))
		return
	}

	taskID := chi.URLParam(r, "id")

	var body moveTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, errors.NewValidationError("Invalid request body", nil))
		return
	}

	task, err := h.board.MoveTask(ctx, actor, taskID, body.From, body.Status)
	if err != nil {
		respondError(w, err)
		return
	}
	respondResult(w, http.StatusOK, task, "Task moved")
}

// UpdateTask handles PUT /api/tasks/{id}
func (h *BoardHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := middleware.ActorFromContext(ctx)
	if !ok {
		respondError(w, errors.NewAuthenticationError("Authentication required"))
		return
	}

	taskID := chi.URLParam(r, "id")

	var patch domain.TaskPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, errors.NewValidationError("Invalid request body", nil))
		return
	}

	task, err := h.board.UpdateTask(ctx, actor, taskID, &patch)
	if err != nil {
		respondError(w, err)
		return
	}
	respondResult(w, http.StatusOK, task, "Task updated")
}
