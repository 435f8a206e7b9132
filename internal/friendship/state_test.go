package friendship

import (
	"testing"

	"socialcal/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func edge(status models.FriendshipStatus) *models.Friendship {
	return &models.Friendship{User1ID: 3, User2ID: 7, Status: status}
}

func TestCanonical(t *testing.T) {
	u1, u2 := Canonical(9, 4)
	assert.Equal(t, uint(4), u1)
	assert.Equal(t, uint(9), u2)

	u1, u2 = Canonical(4, 9)
	assert.Equal(t, uint(4), u1)
	assert.Equal(t, uint(9), u2)
}

func TestInitialStatusNamesRecipientSlot(t *testing.T) {
	// Smaller id sends: user2 owes the response.
	assert.Equal(t, models.StatusPending2, InitialStatus(3, 7))
	// Larger id sends: user1 owes the response.
	assert.Equal(t, models.StatusPending1, InitialStatus(7, 3))
}

func TestRecipientAndSender(t *testing.T) {
	assert.Equal(t, uint(7), Recipient(*edge(models.StatusPending2)))
	assert.Equal(t, uint(3), Sender(*edge(models.StatusPending2)))
	assert.Equal(t, uint(3), Recipient(*edge(models.StatusPending1)))
	assert.Equal(t, uint(7), Sender(*edge(models.StatusPending1)))
	assert.Zero(t, Recipient(*edge(models.StatusAccepted)))
	assert.Zero(t, Sender(*edge(models.StatusAccepted)))
}

func TestTransition(t *testing.T) {
	tests := []struct {
		name    string
		edge    *models.Friendship
		actor   uint
		other   uint
		action  Action
		want    Outcome
		wantErr error
	}{
		{"create from none by smaller", nil, 3, 7, ActionCreate, Outcome{Next: models.StatusPending2}, nil},
		{"create from none by larger", nil, 7, 3, ActionCreate, Outcome{Next: models.StatusPending1}, nil},
		{"create on pending", edge(models.StatusPending2), 3, 7, ActionCreate, Outcome{}, ErrAlreadyExists},
		{"create on accepted", edge(models.StatusAccepted), 7, 3, ActionCreate, Outcome{}, ErrAlreadyExists},
		{"create self", nil, 3, 3, ActionCreate, Outcome{}, ErrSelfRelation},

		{"accept by recipient", edge(models.StatusPending2), 7, 3, ActionAccept, Outcome{Next: models.StatusAccepted}, nil},
		{"accept by recipient user1", edge(models.StatusPending1), 3, 7, ActionAccept, Outcome{Next: models.StatusAccepted}, nil},
		{"accept by sender", edge(models.StatusPending2), 3, 7, ActionAccept, Outcome{}, ErrNotRecipient},
		{"accept accepted", edge(models.StatusAccepted), 7, 3, ActionAccept, Outcome{}, ErrNotPending},
		{"accept none", nil, 7, 3, ActionAccept, Outcome{}, ErrNotFound},

		{"decline by recipient", edge(models.StatusPending1), 3, 7, ActionDecline, Outcome{Next: StatusNone, Delete: true}, nil},
		{"decline by sender", edge(models.StatusPending1), 7, 3, ActionDecline, Outcome{}, ErrNotRecipient},
		{"decline accepted", edge(models.StatusAccepted), 3, 7, ActionDecline, Outcome{}, ErrNotPending},

		{"cancel by sender", edge(models.StatusPending2), 3, 7, ActionCancel, Outcome{Next: StatusNone, Delete: true}, nil},
		{"cancel by recipient", edge(models.StatusPending2), 7, 3, ActionCancel, Outcome{}, ErrNotSender},
		{"cancel accepted", edge(models.StatusAccepted), 3, 7, ActionCancel, Outcome{}, ErrNotPending},
		{"cancel none", nil, 3, 7, ActionCancel, Outcome{}, ErrNotFound},

		{"remove accepted by user1", edge(models.StatusAccepted), 3, 7, ActionRemove, Outcome{Next: StatusNone, Delete: true}, nil},
		{"remove accepted by user2", edge(models.StatusAccepted), 7, 3, ActionRemove, Outcome{Next: StatusNone, Delete: true}, nil},
		{"remove pending", edge(models.StatusPending1), 7, 3, ActionRemove, Outcome{}, ErrNotAccepted},
		{"remove none", nil, 7, 3, ActionRemove, Outcome{}, ErrNotFound},

		{"unknown action", edge(models.StatusAccepted), 7, 3, Action("block"), Outcome{}, ErrUnknownAction},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Transition(tc.edge, tc.actor, tc.other, tc.action)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
