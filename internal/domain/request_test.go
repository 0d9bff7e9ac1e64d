package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecision_MarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		decision Decision
		expected string
	}{
		{
			name:     "Accepted marshals to true",
			decision: DecisionAccepted,
			expected: "true",
		},
		{
			name:     "Rejected marshals to false",
			decision: DecisionRejected,
			expected: "false",
		},
		{
			name:     "Pending marshals to null",
			decision: DecisionPending,
			expected: "null",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.decision)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(data))
		})
	}
}

func TestDecision_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		expected Decision
		wantErr  bool
	}{
		{
			name:     "true decodes to Accepted",
			payload:  `{"isAccepted":true}`,
			expected: DecisionAccepted,
		},
		{
			name:     "false decodes to Rejected",
			payload:  `{"isAccepted":false}`,
			expected: DecisionRejected,
		},
		{
			name:     "null decodes to Pending",
			payload:  `{"isAccepted":null}`,
			expected: DecisionPending,
		},
		{
			name:    "string value is rejected",
			payload: `{"isAccepted":"yes"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sub DecisionSubmission
			err := json.Unmarshal([]byte(tt.payload), &sub)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, sub.IsAccepted)
		})
	}
}

func TestDecision_MissingFieldDefaultsToPending(t *testing.T) {
	var sub DecisionSubmission
	require.NoError(t, json.Unmarshal([]byte(`{"id":"req-1"}`), &sub))
	assert.Equal(t, DecisionPending, sub.IsAccepted)
	assert.False(t, sub.IsAccepted.Decided())
}

func TestDecisionSubmission_FlaggedActivities(t *testing.T) {
	sub := &DecisionSubmission{
		ID:         "req-1",
		IsAccepted: DecisionAccepted,
		EventModel: &EventReview{
			ListActivities: []ActivityReview{
				{ID: "act-1", IsAccepted: true},
				{ID: "act-2", IsAccepted: false, Comment: "cần chỉnh lại thời gian"},
				{ID: "act-3", IsAccepted: false},
			},
		},
	}

	assert.Equal(t, []string{"act-2", "act-3"}, sub.FlaggedActivities())

	// No review payload means nothing is flagged.
	empty := &DecisionSubmission{ID: "req-2", IsAccepted: DecisionAccepted}
	assert.Nil(t, empty.FlaggedActivities())
}

func TestDecisionSubmission_Normalize(t *testing.T) {
	sub := &DecisionSubmission{ID: "req-1", IsAccepted: DecisionRejected}
	sub.Normalize()

	require.NotNil(t, sub.EventModel)
	require.NotNil(t, sub.EventModel.ListActivities)
	assert.Len(t, sub.EventModel.ListActivities, 0)
}

func validEvent() *Event {
	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	return &Event{
		Name:     "Trại hè giới trẻ",
		FromDate: from,
		ToDate:   to,
		Activities: []Activity{
			{
				Name:      "Đêm lửa trại",
				StartTime: from.Add(24 * time.Hour),
				EndTime:   from.Add(30 * time.Hour),
				Costs: []GroupCost{
					{GroupID: "group-youth", Cost: 2_000_000},
					{GroupID: "group-choir", Cost: 500_000},
				},
			},
		},
	}
}

func TestValidateEvent(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(ev *Event)
		wantErr bool
	}{
		{
			name:   "valid event passes",
			mutate: func(ev *Event) {},
		},
		{
			name:    "missing event name fails",
			mutate:  func(ev *Event) { ev.Name = "" },
			wantErr: true,
		},
		{
			name: "event end before start fails",
			mutate: func(ev *Event) {
				ev.ToDate = ev.FromDate.Add(-time.Hour)
				ev.Activities = nil
			},
			wantErr: true,
		},
		{
			name: "activity starting before the event window fails",
			mutate: func(ev *Event) {
				ev.Activities[0].StartTime = ev.FromDate.Add(-time.Hour)
			},
			wantErr: true,
		},
		{
			name: "activity ending after the event window fails",
			mutate: func(ev *Event) {
				ev.Activities[0].EndTime = ev.ToDate.Add(time.Hour)
			},
			wantErr: true,
		},
		{
			name: "activity ending before it starts fails",
			mutate: func(ev *Event) {
				ev.Activities[0].EndTime = ev.Activities[0].StartTime.Add(-time.Minute)
			},
			wantErr: true,
		},
		{
			name: "negative group cost fails",
			mutate: func(ev *Event) {
				ev.Activities[0].Costs[0].Cost = -1
			},
			wantErr: true,
		},
		{
			name: "activity cost at the cap passes",
			mutate: func(ev *Event) {
				ev.Activities[0].Costs = []GroupCost{
					{GroupID: "group-youth", Cost: MaxActivityGroupCost},
				}
			},
		},
		{
			name: "activity cost summed across groups over the cap fails",
			mutate: func(ev *Event) {
				ev.Activities[0].Costs = []GroupCost{
					{GroupID: "group-youth", Cost: 60_000_000},
					{GroupID: "group-choir", Cost: 90_000_000},
				}
			},
			wantErr: true,
		},
		{
			name: "event total over the event cap fails",
			mutate: func(ev *Event) {
				// Eleven activities at the per-activity cap exceed the
				// event-wide cap without any single activity doing so.
				base := ev.Activities[0]
				base.Costs = []GroupCost{{GroupID: "group-youth", Cost: MaxActivityGroupCost}}
				ev.Activities = nil
				for i := 0; i < 11; i++ {
					ev.Activities = append(ev.Activities, base)
				}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := validEvent()
			tt.mutate(ev)
			err := ValidateEvent(ev)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestActivity_TotalCost(t *testing.T) {
	act := Activity{
		Costs: []GroupCost{
			{GroupID: "a", Cost: 100},
			{GroupID: "b", Cost: 250},
		},
	}
	assert.Equal(t, int64(350), act.TotalCost())

	empty := Activity{}
	assert.Equal(t, int64(0), empty.TotalCost())
}
