package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shepherd-api/internal/config"
	"shepherd-api/internal/domain"
	"shepherd-api/internal/repository"
	apperrors "shepherd-api/pkg/errors"
)

// fakeRequestStore is an in-memory RequestStore mirroring the repository's
// decision semantics, including the already-decided guard.
type fakeRequestStore struct {
	mu       sync.Mutex
	requests map[string]*domain.Request
}

func newFakeRequestStore() *fakeRequestStore {
	return &fakeRequestStore{requests: make(map[string]*domain.Request)}
}

func (f *fakeRequestStore) CreateRequest(_ context.Context, req *domain.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	req.CreatedDate = time.Now().UTC()
	cp := *req
	f.requests[req.ID] = &cp
	return nil
}

func (f *fakeRequestStore) GetRequestByID(_ context.Context, requestID string) (*domain.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[requestID]
	if !ok {
		return nil, nil
	}
	cp := *req
	return &cp, nil
}

func (f *fakeRequestStore) ListRequests(_ context.Context, toRole domain.Role, offset, limit int) ([]domain.Request, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []domain.Request
	for _, req := range f.requests {
		if req.To == toRole {
			all = append(all, *req)
		}
	}
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (f *fakeRequestStore) ApplyDecision(_ context.Context, sub *domain.DecisionSubmission, overwrite bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[sub.ID]
	if !ok {
		return errors.New("request not found")
	}
	if req.Decision.Decided() && sub.IsAccepted.Decided() && !overwrite {
		return repository.ErrAlreadyDecided
	}

	req.Decision = sub.IsAccepted
	req.Comment = sub.EventModel.Comment
	if req.Event != nil {
		for _, ar := range sub.EventModel.ListActivities {
			for i := range req.Event.Activities {
				if req.Event.Activities[i].ID != ar.ID {
					continue
				}
				if sub.IsAccepted.Decided() {
					req.Event.Activities[i].Decision = domain.DecisionFromBool(ar.IsAccepted)
				} else {
					req.Event.Activities[i].Decision = domain.DecisionPending
				}
				req.Event.Activities[i].Comment = ar.Comment
			}
		}
	}
	return nil
}

// fakeUserStore is an in-memory UserStore shared by the service tests.
type fakeUserStore struct {
	users   map[string]*domain.User
	members map[string][]string // groupID -> userIDs
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users:   make(map[string]*domain.User),
		members: make(map[string][]string),
	}
}

func (f *fakeUserStore) GetUserByID(_ context.Context, userID string) (*domain.User, error) {
	return f.users[userID], nil
}

func (f *fakeUserStore) GetGroupMembers(_ context.Context, groupID string) ([]domain.GroupMember, error) {
	var members []domain.GroupMember
	for _, id := range f.members[groupID] {
		name := id
		if u, ok := f.users[id]; ok {
			name = u.Name
		}
		members = append(members, domain.GroupMember{UserID: id, Name: name})
	}
	return members, nil
}

func (f *fakeUserStore) IsGroupMember(_ context.Context, userID, groupID string) (bool, error) {
	for _, id := range f.members[groupID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

// recordingNotifier captures notification calls for assertions.
type recordingNotifier struct {
	mu       sync.Mutex
	decided  []string
	assigned []string
}

func (n *recordingNotifier) RequestDecided(req *domain.Request) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.decided = append(n.decided, req.ID)
}

func (n *recordingNotifier) TaskAssigned(task *domain.Task) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.assigned = append(n.assigned, task.ID)
}

func (n *recordingNotifier) decidedCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.decided)
}

func (n *recordingNotifier) assignedCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.assigned)
}

func newTestRequestService(policy config.FlaggedActivityPolicy, allowResubmit bool) (*RequestService, *fakeRequestStore, *recordingNotifier) {
	store := newFakeRequestStore()
	notifier := &recordingNotifier{}
	cfg := &config.Config{
		FlaggedActivityPolicy: policy,
		AllowResubmit:         allowResubmit,
	}
	svc := NewRequestService(store, newFakeUserStore(), nil, notifier, cfg, zap.NewNop())
	return svc, store, notifier
}

var (
	councilActor = domain.Actor{UserID: "user-council", Role: domain.RoleCouncil}
	memberActor  = domain.Actor{UserID: "user-member", Role: domain.RoleMember}
)

func eventInput() *CreateRequestInput {
	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	return &CreateRequestInput{
		Type:            domain.RequestTypeCreateEvent,
		Title:           "Tổ chức trại hè",
		RequestingGroup: "group-youth",
		Event: &domain.Event{
			Name:     "Trại hè giới trẻ",
			FromDate: from,
			ToDate:   to,
			Activities: []domain.Activity{
				{
					Name:      "Đêm lửa trại",
					StartTime: from.Add(24 * time.Hour),
					EndTime:   from.Add(30 * time.Hour),
					Costs:     []domain.GroupCost{{GroupID: "group-youth", Cost: 2_000_000}},
				},
				{
					Name:      "Thi đua thể thao",
					StartTime: from.Add(48 * time.Hour),
					EndTime:   from.Add(54 * time.Hour),
					Costs:     []domain.GroupCost{{GroupID: "group-youth", Cost: 1_000_000}},
				},
			},
		},
	}
}

func assertAppError(t *testing.T, err error, errType apperrors.ErrorType) {
	t.Helper()
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errType, appErr.Type)
}

func TestRequestService_Create_Validation(t *testing.T) {
	svc, _, _ := newTestRequestService(config.FlagPolicyBlock, true)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(in *CreateRequestInput)
	}{
		{
			name:   "missing title",
			mutate: func(in *CreateRequestInput) { in.Title = "" },
		},
		{
			name:   "unknown type",
			mutate: func(in *CreateRequestInput) { in.Type = "DeleteEverything" },
		},
		{
			name:   "event request without payload",
			mutate: func(in *CreateRequestInput) { in.Event = nil },
		},
		{
			name: "activity outside event window",
			mutate: func(in *CreateRequestInput) {
				in.Event.Activities[0].EndTime = in.Event.ToDate.Add(time.Hour)
			},
		},
		{
			name: "activity over the cost cap",
			mutate: func(in *CreateRequestInput) {
				in.Event.Activities[0].Costs = []domain.GroupCost{
					{GroupID: "group-youth", Cost: 60_000_000},
					{GroupID: "group-choir", Cost: 90_000_000},
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := eventInput()
			tt.mutate(in)
			_, err := svc.Create(ctx, memberActor, in)
			assertAppError(t, err, apperrors.ErrorTypeValidation)
		})
	}
}

func TestRequestService_Create_Defaults(t *testing.T) {
	svc, store, _ := newTestRequestService(config.FlagPolicyBlock, true)
	ctx := context.Background()

	req, err := svc.Create(ctx, memberActor, eventInput())
	require.NoError(t, err)

	assert.NotEmpty(t, req.ID)
	assert.Equal(t, domain.RoleCouncil, req.To)
	assert.Equal(t, domain.DecisionPending, req.Decision)
	assert.Equal(t, memberActor.UserID, req.CreatedBy)
	for _, act := range req.Event.Activities {
		assert.NotEmpty(t, act.ID)
		assert.Equal(t, domain.DecisionPending, act.Decision)
	}

	stored, err := store.GetRequestByID(ctx, req.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestRequestService_Create_NonEventTypesNeedNoPayload(t *testing.T) {
	svc, _, _ := newTestRequestService(config.FlagPolicyBlock, true)

	req, err := svc.Create(context.Background(), memberActor, &CreateRequestInput{
		Type:  domain.RequestTypeCreateAccount,
		Title: "Cấp tài khoản cho thành viên mới",
	})
	require.NoError(t, err)
	assert.Nil(t, req.Event)
}

func TestRequestService_List_CouncilOnly(t *testing.T) {
	svc, _, _ := newTestRequestService(config.FlagPolicyBlock, true)

	_, err := svc.List(context.Background(), memberActor, 1, 20)
	assertAppError(t, err, apperrors.ErrorTypeAuthorization)
}

func TestRequestService_List_ClampsPaging(t *testing.T) {
	svc, _, _ := newTestRequestService(config.FlagPolicyBlock, true)
	ctx := context.Background()

	_, err := svc.Create(ctx, memberActor, eventInput())
	require.NoError(t, err)

	page, err := svc.List(ctx, councilActor, -3, 500)
	require.NoError(t, err)
	assert.Equal(t, 1, page.PageNum)
	assert.Equal(t, 20, page.Limit)
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Requests, 1)
}

func decide(id string, decision domain.Decision, reviews ...domain.ActivityReview) *domain.DecisionSubmission {
	return &domain.DecisionSubmission{
		ID:         id,
		IsAccepted: decision,
		EventModel: &domain.EventReview{ListActivities: reviews},
	}
}

func TestRequestService_Decide_CouncilOnly(t *testing.T) {
	svc, _, _ := newTestRequestService(config.FlagPolicyBlock, true)

	_, err := svc.Decide(context.Background(), memberActor, decide("req-1", domain.DecisionAccepted))
	assertAppError(t, err, apperrors.ErrorTypeAuthorization)
}

func TestRequestService_Decide_NotFound(t *testing.T) {
	svc, _, _ := newTestRequestService(config.FlagPolicyBlock, true)

	_, err := svc.Decide(context.Background(), councilActor, decide("missing", domain.DecisionAccepted))
	assertAppError(t, err, apperrors.ErrorTypeNotFound)
}

func TestRequestService_Decide_AcceptAndReject(t *testing.T) {
	svc, _, notifier := newTestRequestService(config.FlagPolicyBlock, true)
	ctx := context.Background()

	accepted, err := svc.Create(ctx, memberActor, eventInput())
	require.NoError(t, err)
	rejected, err := svc.Create(ctx, memberActor, eventInput())
	require.NoError(t, err)

	got, err := svc.Decide(ctx, councilActor, decide(accepted.ID, domain.DecisionAccepted,
		domain.ActivityReview{ID: accepted.Event.Activities[0].ID, IsAccepted: true},
		domain.ActivityReview{ID: accepted.Event.Activities[1].ID, IsAccepted: true},
	))
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionAccepted, got.Decision)
	for _, act := range got.Event.Activities {
		assert.Equal(t, domain.DecisionAccepted, act.Decision)
	}

	got, err = svc.Decide(ctx, councilActor, decide(rejected.ID, domain.DecisionRejected))
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionRejected, got.Decision)

	assert.Equal(t, 2, notifier.decidedCount())
}

func TestRequestService_Decide_BlockPolicyRefusesFlaggedApproval(t *testing.T) {
	svc, store, notifier := newTestRequestService(config.FlagPolicyBlock, true)
	ctx := context.Background()

	req, err := svc.Create(ctx, memberActor, eventInput())
	require.NoError(t, err)

	_, err = svc.Decide(ctx, councilActor, decide(req.ID, domain.DecisionAccepted,
		domain.ActivityReview{ID: req.Event.Activities[0].ID, IsAccepted: true},
		domain.ActivityReview{ID: req.Event.Activities[1].ID, IsAccepted: false, Comment: "trùng lịch"},
	))
	assertAppError(t, err, apperrors.ErrorTypeValidation)

	// Nothing was persisted and nobody was notified.
	stored, err := store.GetRequestByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionPending, stored.Decision)
	assert.Equal(t, 0, notifier.decidedCount())
}

func TestRequestService_Decide_PartialPolicyAcceptsWithFlagged(t *testing.T) {
	svc, _, _ := newTestRequestService(config.FlagPolicyPartial, true)
	ctx := context.Background()

	req, err := svc.Create(ctx, memberActor, eventInput())
	require.NoError(t, err)

	got, err := svc.Decide(ctx, councilActor, decide(req.ID, domain.DecisionAccepted,
		domain.ActivityReview{ID: req.Event.Activities[0].ID, IsAccepted: true},
		domain.ActivityReview{ID: req.Event.Activities[1].ID, IsAccepted: false, Comment: "trùng lịch"},
	))
	require.NoError(t, err)

	assert.Equal(t, domain.DecisionAccepted, got.Decision)
	assert.Equal(t, domain.DecisionAccepted, got.Event.Activities[0].Decision)
	assert.Equal(t, domain.DecisionRejected, got.Event.Activities[1].Decision)
}

func TestRequestService_Decide_ConflictOnSecondDecision(t *testing.T) {
	svc, _, _ := newTestRequestService(config.FlagPolicyBlock, true)
	ctx := context.Background()

	req, err := svc.Create(ctx, memberActor, eventInput())
	require.NoError(t, err)

	_, err = svc.Decide(ctx, councilActor, decide(req.ID, domain.DecisionRejected))
	require.NoError(t, err)

	_, err = svc.Decide(ctx, councilActor, decide(req.ID, domain.DecisionAccepted))
	assertAppError(t, err, apperrors.ErrorTypeConflict)
}

func TestRequestService_Decide_ResubmitReopensRequest(t *testing.T) {
	svc, _, notifier := newTestRequestService(config.FlagPolicyBlock, true)
	ctx := context.Background()

	req, err := svc.Create(ctx, memberActor, eventInput())
	require.NoError(t, err)

	_, err = svc.Decide(ctx, councilActor, decide(req.ID, domain.DecisionRejected))
	require.NoError(t, err)
	require.Equal(t, 1, notifier.decidedCount())

	reopened, err := svc.Decide(ctx, councilActor, decide(req.ID, domain.DecisionPending))
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionPending, reopened.Decision)

	// Re-opening is not a decision, so no notification went out.
	assert.Equal(t, 1, notifier.decidedCount())

	// The re-opened request can be decided again.
	got, err := svc.Decide(ctx, councilActor, decide(req.ID, domain.DecisionAccepted))
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionAccepted, got.Decision)
}

func TestRequestService_Decide_ResubmitDisabled(t *testing.T) {
	svc, _, _ := newTestRequestService(config.FlagPolicyBlock, false)
	ctx := context.Background()

	req, err := svc.Create(ctx, memberActor, eventInput())
	require.NoError(t, err)
	_, err = svc.Decide(ctx, councilActor, decide(req.ID, domain.DecisionRejected))
	require.NoError(t, err)

	_, err = svc.Decide(ctx, councilActor, decide(req.ID, domain.DecisionPending))
	assertAppError(t, err, apperrors.ErrorTypeValidation)
}

func TestRequestService_Decide_ResubmitPendingRequestConflicts(t *testing.T) {
	svc, _, _ := newTestRequestService(config.FlagPolicyBlock, true)
	ctx := context.Background()

	req, err := svc.Create(ctx, memberActor, eventInput())
	require.NoError(t, err)

	_, err = svc.Decide(ctx, councilActor, decide(req.ID, domain.DecisionPending))
	assertAppError(t, err, apperrors.ErrorTypeConflict)
}

func TestRequestService_Decide_NormalizesNilPayload(t *testing.T) {
	svc, _, _ := newTestRequestService(config.FlagPolicyBlock, true)
	ctx := context.Background()

	req, err := svc.Create(ctx, memberActor, eventInput())
	require.NoError(t, err)

	// A bare rejection with no event review payload must not panic and must
	// leave the activities untouched.
	sub := &domain.DecisionSubmission{ID: req.ID, IsAccepted: domain.DecisionRejected}
	got, err := svc.Decide(ctx, councilActor, sub)
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionRejected, got.Decision)
	require.NotNil(t, sub.EventModel)
}

func TestRequestService_Get_Visibility(t *testing.T) {
	svc, _, _ := newTestRequestService(config.FlagPolicyBlock, true)
	ctx := context.Background()

	req, err := svc.Create(ctx, memberActor, eventInput())
	require.NoError(t, err)

	// Creator, reviewer queue and requesting-group leader can all view.
	viewers := []domain.Actor{
		memberActor,
		councilActor,
		{UserID: "user-admin", Role: domain.RoleAdmin},
		{
			UserID: "user-leader",
			Role:   domain.RoleMember,
			GroupRoles: []domain.GroupRole{
				{GroupID: "group-youth", RoleName: domain.GroupLeaderRoleName},
			},
		},
	}
	for _, actor := range viewers {
		got, err := svc.Get(ctx, actor, req.ID)
		require.NoError(t, err, "actor %s", actor.UserID)
		assert.Equal(t, req.ID, got.ID)
	}

	outsider := domain.Actor{UserID: "user-outsider", Role: domain.RoleMember}
	_, err = svc.Get(ctx, outsider, req.ID)
	assertAppError(t, err, apperrors.ErrorTypeAuthorization)
}
