package domain

import (
	"bytes"
	"fmt"
	"time"
)

// RequestType identifies what a request asks for.
type RequestType string

const (
	RequestTypeCreateEvent   RequestType = "CreateEvent"
	RequestTypeCreateAccount RequestType = "CreateAccount"
	RequestTypeOther         RequestType = "Other"
)

// Valid reports whether t is a known request type.
func (t RequestType) Valid() bool {
	switch t {
	case RequestTypeCreateEvent, RequestTypeCreateAccount, RequestTypeOther:
		return true
	}
	return false
}

// Cost caps enforced before any request is persisted or decided.
const (
	// MaxActivityGroupCost caps the summed cost of one activity across all
	// contributing groups.
	MaxActivityGroupCost int64 = 100_000_000
	// MaxEventTotalCost caps the summed cost of all activities in one event.
	MaxEventTotalCost int64 = 1_000_000_000
)

// Decision is the review outcome of a request or activity. It replaces the
// nullable boolean the wire format uses with an exhaustive three-case enum,
// while still marshaling to true/false/null for API compatibility.
type Decision int

const (
	DecisionPending Decision = iota
	DecisionAccepted
	DecisionRejected
)

func (d Decision) String() string {
	switch d {
	case DecisionAccepted:
		return "accepted"
	case DecisionRejected:
		return "rejected"
	default:
		return "pending"
	}
}

// Decided reports whether the decision is terminal.
func (d Decision) Decided() bool {
	return d == DecisionAccepted || d == DecisionRejected
}

// MarshalJSON encodes the decision as the tri-state true/false/null.
func (d Decision) MarshalJSON() ([]byte, error) {
	switch d {
	case DecisionAccepted:
		return []byte("true"), nil
	case DecisionRejected:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes true/false/null into the corresponding decision.
func (d *Decision) UnmarshalJSON(data []byte) error {
	switch {
	case bytes.Equal(data, []byte("true")):
		*d = DecisionAccepted
	case bytes.Equal(data, []byte("false")):
		*d = DecisionRejected
	case bytes.Equal(data, []byte("null")):
		*d = DecisionPending
	default:
		return fmt.Errorf("invalid decision value: %s", data)
	}
	return nil
}

// DecisionFromBool converts a per-activity review flag into a decision.
func DecisionFromBool(accepted bool) Decision {
	if accepted {
		return DecisionAccepted
	}
	return DecisionRejected
}

// GroupCost is one group's contribution to an activity's cost.
type GroupCost struct {
	GroupID string `json:"groupID"`
	Cost    int64  `json:"cost"`
}

// Activity is a sub-event of an event request, independently reviewable.
type Activity struct {
	ID          string      `json:"id"`
	Name        string      `json:"activityName"`
	Description string      `json:"description"`
	StartTime   time.Time   `json:"startTime"`
	EndTime     time.Time   `json:"endTime"`
	Location    string      `json:"location"`
	Decision    Decision    `json:"isAccepted"`
	Comment     string      `json:"comment"`
	Costs       []GroupCost `json:"listGroup"`
}

// TotalCost sums the activity's group costs.
func (a *Activity) TotalCost() int64 {
	var total int64
	for _, gc := range a.Costs {
		total += gc.Cost
	}
	return total
}

// Event is the payload of a CreateEvent request.
type Event struct {
	Name        string     `json:"eventName"`
	Description string     `json:"description"`
	FromDate    time.Time  `json:"fromDate"`
	ToDate      time.Time  `json:"toDate"`
	TotalCost   int64      `json:"totalCost"`
	Activities  []Activity `json:"listActivities"`
}

// Request is a submission awaiting a council decision.
type Request struct {
	ID              string      `json:"id"`
	Type            RequestType `json:"type"`
	Title           string      `json:"title"`
	Content         string      `json:"content"`
	CreatedBy       string      `json:"createdBy"`
	CreatedByName   string      `json:"createdByName,omitempty"`
	CreatedDate     time.Time   `json:"createdDate"`
	To              Role        `json:"to"`
	Decision        Decision    `json:"isAccepted"`
	Comment         string      `json:"comment"`
	RequestingGroup string      `json:"requestingGroup"`
	GroupName       string      `json:"groupName,omitempty"`
	Event           *Event      `json:"eventModel,omitempty"`
}

// ActivityReview is one activity's entry in a decision submission. The
// accepted flag is a plain boolean on the wire: the reviewer either clears
// the activity or flags it for revision.
type ActivityReview struct {
	ID         string `json:"id"`
	Comment    string `json:"comment"`
	IsAccepted bool   `json:"isAccepted"`
}

// EventReview carries the reviewer's per-event comments in a submission.
type EventReview struct {
	Comment        string           `json:"comment"`
	ListActivities []ActivityReview `json:"listActivities"`
}

// DecisionSubmission is the wire payload deciding a request: approve
// (accepted), reject (rejected) or resubmit (pending, re-opening review).
type DecisionSubmission struct {
	ID         string       `json:"id"`
	IsAccepted Decision     `json:"isAccepted"`
	EventModel *EventReview `json:"eventModel,omitempty"`
}

// FlaggedActivities lists the activity IDs marked as needing revision.
func (s *DecisionSubmission) FlaggedActivities() []string {
	if s.EventModel == nil {
		return nil
	}
	var flagged []string
	for _, ar := range s.EventModel.ListActivities {
		if !ar.IsAccepted {
			flagged = append(flagged, ar.ID)
		}
	}
	return flagged
}

// Normalize fills defaults so the persisted shape is stable: comments are
// empty strings, never null.
func (s *DecisionSubmission) Normalize() {
	if s.EventModel == nil {
		s.EventModel = &EventReview{}
	}
	if s.EventModel.ListActivities == nil {
		s.EventModel.ListActivities = []ActivityReview{}
	}
}

// ValidateEvent checks the invariants of an event payload before it is
// persisted: date ordering, activity containment and cost caps. Violations
// block submission; nothing is clamped silently.
func ValidateEvent(ev *Event) error {
	if ev.Name == "" {
		return fmt.Errorf("event name is required")
	}
	if ev.ToDate.Before(ev.FromDate) {
		return fmt.Errorf("event end date %s is before start date %s",
			ev.ToDate.Format(time.RFC3339), ev.FromDate.Format(time.RFC3339))
	}

	var eventTotal int64
	for i := range ev.Activities {
		act := &ev.Activities[i]
		if act.Name == "" {
			return fmt.Errorf("activity name is required")
		}
		if act.EndTime.Before(act.StartTime) {
			return fmt.Errorf("activity %q ends before it starts", act.Name)
		}
		if act.StartTime.Before(ev.FromDate) || act.EndTime.After(ev.ToDate) {
			return fmt.Errorf("activity %q lies outside the event window", act.Name)
		}

		var activityTotal int64
		for _, gc := range act.Costs {
			if gc.Cost < 0 {
				return fmt.Errorf("activity %q has a negative cost for group %s", act.Name, gc.GroupID)
			}
			activityTotal += gc.Cost
		}
		if activityTotal > MaxActivityGroupCost {
			return fmt.Errorf("activity %q cost %d exceeds the per-activity cap of %d",
				act.Name, activityTotal, MaxActivityGroupCost)
		}
		eventTotal += activityTotal
	}

	if eventTotal > MaxEventTotalCost {
		return fmt.Errorf("event cost %d exceeds the event-wide cap of %d",
			eventTotal, MaxEventTotalCost)
	}
	return nil
}
