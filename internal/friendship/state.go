// Package friendship implements the friendship edge lifecycle: the pure
// transition rules over a canonically ordered pair, and a Service that applies
// them to the database with notification, broadcast and event side effects.
package friendship

import (
	"errors"

	"socialcal/backend/internal/models"
)

// Action is a user-initiated change to a friendship edge.
type Action string

const (
	ActionCreate  Action = "create"
	ActionAccept  Action = "accept"
	ActionDecline Action = "decline"
	ActionCancel  Action = "cancel"
	ActionRemove  Action = "remove"
)

// StatusNone stands for "no edge stored".
const StatusNone models.FriendshipStatus = "none"

var (
	ErrSelfRelation  = errors.New("cannot befriend yourself")
	ErrAlreadyExists = errors.New("friendship already exists")
	ErrNotFound      = errors.New("friendship not found")
	ErrNotRecipient  = errors.New("only the recipient can respond to this request")
	ErrNotSender     = errors.New("only the sender can cancel this request")
	ErrNotPending    = errors.New("friendship is not pending")
	ErrNotAccepted   = errors.New("friendship is not accepted")
	ErrUnknownAction = errors.New("unknown friendship action")
)

// Outcome is the result of a legal transition. When Delete is set the edge is
// removed and Next is StatusNone.
type Outcome struct {
	Next   models.FriendshipStatus
	Delete bool
}

// Canonical orders a pair so that user1 < user2.
func Canonical(a, b uint) (user1, user2 uint) {
	if a < b {
		return a, b
	}
	return b, a
}

// InitialStatus is the status of a new request sent by sender to recipient: the
// pending slot names the recipient's canonical position.
func InitialStatus(sender, recipient uint) models.FriendshipStatus {
	user1, _ := Canonical(sender, recipient)
	if sender == user1 {
		return models.StatusPending2
	}
	return models.StatusPending1
}

// IsPending reports whether status is pending1 or pending2.
func IsPending(status models.FriendshipStatus) bool {
	return status == models.StatusPending1 || status == models.StatusPending2
}

// Recipient returns the user who owes a response on a pending edge, or 0.
func Recipient(edge models.Friendship) uint {
	switch edge.Status {
	case models.StatusPending1:
		return edge.User1ID
	case models.StatusPending2:
		return edge.User2ID
	}
	return 0
}

// Sender returns the user who sent a pending request, or 0.
func Sender(edge models.Friendship) uint {
	switch edge.Status {
	case models.StatusPending1:
		return edge.User2ID
	case models.StatusPending2:
		return edge.User1ID
	}
	return 0
}

// Transition decides whether actor may apply action to the edge between actor
// and other. edge is nil when no record exists.
func Transition(edge *models.Friendship, actor, other uint, action Action) (Outcome, error) {
	if actor == other {
		return Outcome{}, ErrSelfRelation
	}

	if action == ActionCreate {
		if edge != nil {
			return Outcome{}, ErrAlreadyExists
		}
		return Outcome{Next: InitialStatus(actor, other)}, nil
	}

	switch action {
	case ActionAccept, ActionDecline, ActionCancel, ActionRemove:
	default:
		return Outcome{}, ErrUnknownAction
	}
	if edge == nil {
		return Outcome{}, ErrNotFound
	}

	switch action {
	case ActionAccept, ActionDecline:
		if !IsPending(edge.Status) {
			return Outcome{}, ErrNotPending
		}
		if Recipient(*edge) != actor {
			return Outcome{}, ErrNotRecipient
		}
		if action == ActionAccept {
			return Outcome{Next: models.StatusAccepted}, nil
		}
	case ActionCancel:
		if !IsPending(edge.Status) {
			return Outcome{}, ErrNotPending
		}
		if Sender(*edge) != actor {
			return Outcome{}, ErrNotSender
		}
	case ActionRemove:
		if edge.Status != models.StatusAccepted {
			return Outcome{}, ErrNotAccepted
		}
	}
	return Outcome{Next: StatusNone, Delete: true}, nil
}
