package purchase_order

import (
	"slices"
	"strings"

	"procura/internal/core/apperror"
)

// Status is the purchase order workflow state.
type Status string

const (
	StatusDraft             Status = "draft"
	StatusPendingApproval   Status = "pending_approval"
	StatusApproved          Status = "approved"
	StatusRejected          Status = "rejected"
	StatusSent              Status = "sent"
	StatusConfirmed         Status = "confirmed"
	StatusPartiallyReceived Status = "partially_received"
	StatusFullyReceived     Status = "fully_received"
	StatusCancelled         Status = "cancelled"
	StatusClosed            Status = "closed"
)

// AllStatuses lists every state in workflow order.
var AllStatuses = []Status{
	StatusDraft, StatusPendingApproval, StatusApproved, StatusRejected, StatusSent,
	StatusConfirmed, StatusPartiallyReceived, StatusFullyReceived, StatusCancelled, StatusClosed,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return slices.Contains(AllStatuses, s)
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusClosed
}

// Action is a requested workflow transition.
type Action string

const (
	ActionSubmit          Action = "submit"
	ActionApprove         Action = "approve"
	ActionReject          Action = "reject"
	ActionRevise          Action = "revise"
	ActionSend            Action = "send"
	ActionConfirm         Action = "confirm"
	ActionReceivePartial  Action = "receive_partial"
	ActionReceiveComplete Action = "receive_complete"
	ActionCancel          Action = "cancel"
	ActionClose           Action = "close"
)

// TransitionContext carries the facts some transitions depend on.
type TransitionContext struct {
	// Lines is the number of line items; IncompleteLines counts lines missing
	// product, quantity or price.
	Lines           int
	IncompleteLines int

	// Reason is required for reject.
	Reason string

	// FullyReceived is true when every line has pending_quantity == 0.
	FullyReceived bool

	// Administrative allows close from any non-terminal state.
	Administrative bool
}

type transitionRule struct {
	from  []Status
	to    Status
	check func(TransitionContext) []apperror.Violation
}

var receivable = []Status{StatusSent, StatusConfirmed, StatusPartiallyReceived}

// transitions is the single source of truth for the workflow. Both the engine
// and AllowedActions read it.
var transitions = map[Action]transitionRule{
	ActionSubmit: {
		from: []Status{StatusDraft},
		to:   StatusPendingApproval,
		check: func(tc TransitionContext) []apperror.Violation {
			var v []apperror.Violation
			if tc.Lines == 0 {
				v = append(v, apperror.Violation{Field: "items", Code: "min", Message: "at least one line item is required"})
			}
			if tc.IncompleteLines > 0 {
				v = append(v, apperror.Violation{Field: "items", Code: "required", Message: "every line item needs product, quantity and unit price"})
			}
			return v
		},
	},
	ActionApprove: {from: []Status{StatusPendingApproval}, to: StatusApproved},
	ActionReject: {
		from: []Status{StatusPendingApproval, StatusApproved},
		to:   StatusRejected,
		check: func(tc TransitionContext) []apperror.Violation {
			if isBlank(tc.Reason) {
				return []apperror.Violation{{Field: "reason", Code: "required", Message: "a rejection reason is required"}}
			}
			return nil
		},
	},
	ActionRevise:  {from: []Status{StatusRejected}, to: StatusDraft},
	ActionSend:    {from: []Status{StatusApproved}, to: StatusSent},
	ActionConfirm: {from: []Status{StatusSent}, to: StatusConfirmed},
	ActionReceivePartial: {
		from: receivable,
		to:   StatusPartiallyReceived,
		check: func(tc TransitionContext) []apperror.Violation {
			if tc.FullyReceived {
				return []apperror.Violation{{Field: "items", Code: "pending", Message: "nothing is pending; use receive_complete"}}
			}
			return nil
		},
	},
	ActionReceiveComplete: {
		from: receivable,
		to:   StatusFullyReceived,
		check: func(tc TransitionContext) []apperror.Violation {
			if !tc.FullyReceived {
				return []apperror.Violation{{Field: "items", Code: "pending", Message: "some line items still have pending quantity"}}
			}
			return nil
		},
	},
	ActionCancel: {
		from: []Status{
			StatusDraft, StatusPendingApproval, StatusApproved, StatusRejected,
			StatusSent, StatusConfirmed, StatusPartiallyReceived,
		},
		to: StatusCancelled,
	},
	ActionClose: {from: []Status{StatusFullyReceived}, to: StatusClosed},
}

// Transition returns the status that action leads to from current. It never
// mutates anything; callers apply the result.
func Transition(current Status, action Action, tc TransitionContext) (Status, error) {
	rule, ok := transitions[action]
	if !ok {
		return current, invalidTransition(current, action)
	}

	allowed := slices.Contains(rule.from, current)
	if !allowed && action == ActionClose && tc.Administrative && !current.IsTerminal() {
		allowed = true
	}
	if !allowed {
		return current, invalidTransition(current, action)
	}

	if rule.check != nil {
		if v := rule.check(tc); len(v) > 0 {
			return current, apperror.NewValidationList(
				"Purchase order does not meet the requirements for "+string(action), v,
			).WithDetail("action", string(action)).WithDetail("current", string(current))
		}
	}
	return rule.to, nil
}

// CanTransition reports whether action is listed for current, ignoring preconditions.
func CanTransition(current Status, action Action) bool {
	rule, ok := transitions[action]
	return ok && slices.Contains(rule.from, current)
}

// CheckReceivable fails with INVALID_TRANSITION unless goods can be received in s.
func CheckReceivable(s Status) error {
	if !CanTransition(s, ActionReceivePartial) {
		return invalidTransition(s, ActionReceivePartial)
	}
	return nil
}

// AllowedActions lists the actions the table permits from current, sorted.
func AllowedActions(current Status) []Action {
	var out []Action
	for action, rule := range transitions {
		if slices.Contains(rule.from, current) {
			out = append(out, action)
		}
	}
	slices.Sort(out)
	return out
}

// CanEdit reports whether header and lines may be edited or the PO deleted.
func CanEdit(s Status) bool {
	return s == StatusDraft || s == StatusRejected
}

func invalidTransition(current Status, action Action) *apperror.AppError {
	allowed := AllowedActions(current)
	names := make([]string, len(allowed))
	for i, a := range allowed {
		names[i] = string(a)
	}
	return apperror.NewInvalidTransition(string(current), string(action), names)
}

func isBlank(s string) bool { return strings.TrimSpace(s) == "" }
