package notification

import (
	"context"
	"testing"
	"time"

	"socialcal/backend/internal/hub"
	"socialcal/backend/internal/models"
	"socialcal/backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		n    models.Notification
		ok   bool
	}{
		{"common without sub-record", models.Notification{UserID: 1, Message: "hi", Type: models.NotificationCommon}, true},
		{"request with request", models.Notification{UserID: 1, Message: "m", Type: models.NotificationRequest, Request: &models.RequestNotification{User1ID: 1, User2ID: 2}}, true},
		{"reminder with reminder", models.Notification{UserID: 1, Message: "m", Type: models.NotificationReminder, Reminder: &models.ReminderNotification{ReminderID: 3}}, true},
		{"invite with event", models.Notification{UserID: 1, Message: "m", Type: models.NotificationInvite, Event: &models.EventNotification{EventID: 3, Kind: models.EventKindInvite}}, true},
		{"request without sub-record", models.Notification{UserID: 1, Message: "m", Type: models.NotificationRequest}, false},
		{"two sub-records", models.Notification{UserID: 1, Message: "m", Type: models.NotificationEvent, Event: &models.EventNotification{}, Reminder: &models.ReminderNotification{}}, false},
		{"common with sub-record", models.Notification{UserID: 1, Message: "m", Type: models.NotificationCommon, Event: &models.EventNotification{}}, false},
		{"empty message", models.Notification{UserID: 1, Message: "  ", Type: models.NotificationCommon}, false},
		{"no owner", models.Notification{Message: "m", Type: models.NotificationCommon}, false},
		{"unknown type", models.Notification{UserID: 1, Message: "m", Type: "spam"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			n := tc.n
			err := Validate(&n)
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, ErrInvalid)
			}
		})
	}
}

func TestNotifyStoresAndPushes(t *testing.T) {
	db := testutil.NewDB(t)
	alice := testutil.CreateUser(t, db, "alice")
	rec := hub.NewRecorder(alice.ID)
	svc := NewService(db, rec, testutil.Logger())

	n := &models.Notification{
		UserID:  alice.ID,
		Message: "bob sent you a friend request",
		Type:    models.NotificationRequest,
		Request: &models.RequestNotification{User1ID: alice.ID, User2ID: alice.ID + 1, SenderID: alice.ID + 1},
	}
	require.NoError(t, svc.Notify(context.Background(), n))
	require.NotZero(t, n.ID)

	var sub models.RequestNotification
	require.NoError(t, db.First(&sub, "notification_id = ?", n.ID).Error)
	assert.Equal(t, alice.ID+1, sub.SenderID)

	assert.Equal(t, []string{EventType}, rec.To(alice.ID))
}

func TestNotifyRejectsInvalid(t *testing.T) {
	db := testutil.NewDB(t)
	rec := hub.NewRecorder()
	svc := NewService(db, rec, testutil.Logger())

	err := svc.Notify(context.Background(), &models.Notification{UserID: 1, Type: models.NotificationCommon})
	require.ErrorIs(t, err, ErrInvalid)
	assert.Empty(t, rec.Sent)
}

func seed(t *testing.T, svc *Service, userID uint, n int, typ models.NotificationType) {
	t.Helper()
	for i := 0; i < n; i++ {
		note := &models.Notification{UserID: userID, Message: "note", Type: typ}
		if typ == models.NotificationEvent {
			note.Event = &models.EventNotification{EventID: 1, Kind: models.EventKindStarting}
		}
		require.NoError(t, svc.Create(nil, note))
	}
}

func TestListStatsAndReadFlags(t *testing.T) {
	db := testutil.NewDB(t)
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bobby")
	svc := NewService(db, hub.NewRecorder(), testutil.Logger())
	ctx := context.Background()

	seed(t, svc, alice.ID, 3, models.NotificationCommon)
	seed(t, svc, alice.ID, 2, models.NotificationEvent)
	seed(t, svc, bob.ID, 1, models.NotificationCommon)

	items, total, err := svc.List(ctx, alice.ID, ListFilter{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, items, 2)

	items, total, err = svc.List(ctx, alice.ID, ListFilter{Type: models.NotificationEvent})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, items, 2)
	require.NotNil(t, items[0].Event)
	assert.Equal(t, models.EventKindStarting, items[0].Event.Kind)

	require.NoError(t, svc.MarkRead(ctx, alice.ID, items[0].ID))
	require.ErrorIs(t, svc.MarkRead(ctx, bob.ID, items[1].ID), ErrNotFound)

	st, err := svc.Stats(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, Stats{Unread: 4, Total: 5}, st)

	_, total, err = svc.List(ctx, alice.ID, ListFilter{UnreadOnly: true})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)

	n, err := svc.MarkAllRead(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	st, err = svc.Stats(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, Stats{Unread: 0, Total: 5}, st)
}

func TestDeleteRemovesSubRecord(t *testing.T) {
	db := testutil.NewDB(t)
	alice := testutil.CreateUser(t, db, "alice")
	svc := NewService(db, hub.NewRecorder(), testutil.Logger())
	ctx := context.Background()

	seed(t, svc, alice.ID, 1, models.NotificationEvent)
	items, _, err := svc.List(ctx, alice.ID, ListFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)

	require.ErrorIs(t, svc.Delete(ctx, alice.ID+99, items[0].ID), ErrNotFound)
	require.NoError(t, svc.Delete(ctx, alice.ID, items[0].ID))

	var count int64
	require.NoError(t, db.Model(&models.EventNotification{}).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDeleteRequestNotificationsScope(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewService(db, hub.NewRecorder(), testutil.Logger())
	a := testutil.CreateUser(t, db, "alice")
	b := testutil.CreateUser(t, db, "bobby")
	c := testutil.CreateUser(t, db, "carol")

	create := func(user, user1, user2, sender uint) {
		require.NoError(t, svc.Create(nil, &models.Notification{
			UserID: user, Message: "req", Type: models.NotificationRequest,
			Request: &models.RequestNotification{User1ID: user1, User2ID: user2, SenderID: sender},
		}))
	}

	// Earlier cycle.
	create(a.ID, a.ID, b.ID, b.ID)
	since := time.Now().Add(-time.Millisecond)
	require.NoError(t, db.Model(&models.Notification{}).Where("1 = 1").
		Update("created_at", since.Add(-time.Hour)).Error)

	create(a.ID, a.ID, b.ID, b.ID)
	create(b.ID, a.ID, b.ID, a.ID)
	create(a.ID, a.ID, c.ID, c.ID)

	n, err := DeleteRequestNotifications(db, a.ID, b.ID, b.ID, since)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var remaining []models.RequestNotification
	require.NoError(t, db.Order("notification_id").Find(&remaining).Error)
	require.Len(t, remaining, 3)
	assert.Equal(t, b.ID, remaining[0].SenderID)
	assert.Equal(t, a.ID, remaining[1].SenderID)
	assert.Equal(t, c.ID, remaining[2].User2ID)
}
