package friendship

import (
	"context"
	"testing"

	"socialcal/backend/internal/events"
	"socialcal/backend/internal/hub"
	"socialcal/backend/internal/models"
	"socialcal/backend/internal/notification"
	"socialcal/backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db        *gorm.DB
	svc       *Service
	pusher    *hub.Recorder
	publisher *events.Recorder
	alice     models.User
	bob       models.User
}

// newFixture creates alice before bob, so alice is always user1 of their edge.
func newFixture(t *testing.T) fixture {
	t.Helper()
	db := testutil.NewDB(t)
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bobby")
	pusher := hub.NewRecorder(alice.ID, bob.ID)
	publisher := &events.Recorder{}
	log := testutil.Logger()
	notifier := notification.NewService(db, pusher, log)
	return fixture{
		db:        db,
		svc:       NewService(db, notifier, pusher, publisher, log),
		pusher:    pusher,
		publisher: publisher,
		alice:     alice,
		bob:       bob,
	}
}

func (f fixture) requestNotes(t *testing.T, userID uint) []models.Notification {
	t.Helper()
	var notes []models.Notification
	require.NoError(t, f.db.Preload("Request").
		Where("user_id = ? AND type = ?", userID, models.NotificationRequest).
		Find(&notes).Error)
	return notes
}

func TestRequestCreatesPendingEdgeAndNotifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	update, err := f.svc.Request(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending2, update.Status)
	assert.Equal(t, f.alice.ID, update.User1ID)
	assert.Equal(t, f.bob.ID, update.User2ID)

	edge, err := f.svc.Get(ctx, f.bob.ID, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending2, edge.Status)

	notes := f.requestNotes(t, f.bob.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, "Alice Tester sent you a friend request", notes[0].Message)
	require.NotNil(t, notes[0].Request)
	assert.Equal(t, f.alice.ID, notes[0].Request.SenderID)

	assert.Equal(t, []string{notification.EventType, UpdateEvent}, f.pusher.To(f.bob.ID))
	assert.Equal(t, []string{UpdateEvent}, f.pusher.To(f.alice.ID))
	assert.Equal(t, []string{events.FriendshipCreated}, f.publisher.Keys())
}

func TestRequestFromLargerIDIsPending1(t *testing.T) {
	f := newFixture(t)

	update, err := f.svc.Request(context.Background(), f.bob.ID, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending1, update.Status)
}

func TestRequestErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Request(ctx, f.alice.ID, f.alice.ID)
	require.ErrorIs(t, err, ErrSelfRelation)

	_, err = f.svc.Request(ctx, f.alice.ID, 9999)
	require.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.svc.Request(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	_, err = f.svc.Request(ctx, f.bob.ID, f.alice.ID)
	require.ErrorIs(t, err, ErrAlreadyExists)

	assert.Equal(t, []string{events.FriendshipCreated}, f.publisher.Keys())
}

func TestAcceptByRecipient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Request(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	f.pusher.Reset()

	_, err = f.svc.Accept(ctx, f.alice.ID, f.bob.ID)
	require.ErrorIs(t, err, ErrNotRecipient)

	update, err := f.svc.Accept(ctx, f.bob.ID, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, update.Status)

	ok, err := f.svc.AreFriends(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	notes := f.requestNotes(t, f.alice.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, "Bobby Tester accepted your friend request", notes[0].Message)
	assert.Equal(t, []string{notification.EventType, UpdateEvent}, f.pusher.To(f.alice.ID))

	_, err = f.svc.Accept(ctx, f.bob.ID, f.alice.ID)
	require.ErrorIs(t, err, ErrNotPending)

	assert.Equal(t, []string{events.FriendshipCreated, events.FriendshipAccepted}, f.publisher.Keys())
}

func TestDeclineDeletesEdgeAndRequestNotifications(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Request(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)

	_, err = f.svc.Decline(ctx, f.alice.ID, f.bob.ID)
	require.ErrorIs(t, err, ErrNotRecipient)

	update, err := f.svc.Decline(ctx, f.bob.ID, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusNone, update.Status)

	_, err = f.svc.Get(ctx, f.alice.ID, f.bob.ID)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, f.requestNotes(t, f.bob.ID))

	var subs int64
	require.NoError(t, f.db.Model(&models.RequestNotification{}).Count(&subs).Error)
	assert.Zero(t, subs)
}

func TestDeclineKeepsEarlierCycleNotifications(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Request(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, f.bob.ID, f.alice.ID)
	require.NoError(t, err)
	_, err = f.svc.Remove(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	require.Len(t, f.requestNotes(t, f.alice.ID), 1)
	require.Len(t, f.requestNotes(t, f.bob.ID), 1)

	_, err = f.svc.Request(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	require.Len(t, f.requestNotes(t, f.bob.ID), 2)

	_, err = f.svc.Decline(ctx, f.bob.ID, f.alice.ID)
	require.NoError(t, err)

	aliceNotes := f.requestNotes(t, f.alice.ID)
	require.Len(t, aliceNotes, 1)
	assert.Contains(t, aliceNotes[0].Message, "accepted")
	bobNotes := f.requestNotes(t, f.bob.ID)
	require.Len(t, bobNotes, 1)
	assert.Contains(t, bobNotes[0].Message, "sent you a friend request")
}

func TestCancelBySenderOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Request(ctx, f.bob.ID, f.alice.ID)
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, f.alice.ID, f.bob.ID)
	require.ErrorIs(t, err, ErrNotSender)

	_, err = f.svc.Cancel(ctx, f.bob.ID, f.alice.ID)
	require.NoError(t, err)
	// Only a decline clears the request notification.
	assert.Len(t, f.requestNotes(t, f.alice.ID), 1)

	_, err = f.svc.Cancel(ctx, f.bob.ID, f.alice.ID)
	require.ErrorIs(t, err, ErrNotFound)

	// A fresh request is allowed once the edge is gone.
	_, err = f.svc.Request(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
}

func TestRemoveRequiresAccepted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Request(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)

	_, err = f.svc.Remove(ctx, f.alice.ID, f.bob.ID)
	require.ErrorIs(t, err, ErrNotAccepted)

	_, err = f.svc.Accept(ctx, f.bob.ID, f.alice.ID)
	require.NoError(t, err)

	_, err = f.svc.Remove(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)

	ok, err := f.svc.AreFriends(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, events.FriendshipRemoved, f.publisher.Keys()[2])
}

func TestListFriendsAndPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	carol := testutil.CreateUser(t, f.db, "carol")
	dave := testutil.CreateUser(t, f.db, "dave")

	_, err := f.svc.Request(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, f.bob.ID, f.alice.ID)
	require.NoError(t, err)
	_, err = f.svc.Request(ctx, carol.ID, f.alice.ID)
	require.NoError(t, err)
	_, err = f.svc.Request(ctx, f.alice.ID, dave.ID)
	require.NoError(t, err)

	friends, err := f.svc.ListFriends(ctx, f.alice.ID)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, f.bob.ID, friends[0].ID)

	incoming, err := f.svc.ListPending(ctx, f.alice.ID, Incoming)
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, carol.ID, incoming[0].ID)

	outgoing, err := f.svc.ListPending(ctx, f.alice.ID, Outgoing)
	require.NoError(t, err)
	require.Len(t, outgoing, 1)
	assert.Equal(t, dave.ID, outgoing[0].ID)

	incoming, err = f.svc.ListPending(ctx, carol.ID, Incoming)
	require.NoError(t, err)
	assert.Empty(t, incoming)

	_, err = f.svc.ListPending(ctx, f.alice.ID, "sideways")
	require.Error(t, err)

	ids, err := f.svc.FriendIDs(ctx, f.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{f.alice.ID}, ids)
}
