package messaging

import (
	"context"
	"strings"
	"testing"

	"socialcal/backend/internal/events"
	"socialcal/backend/internal/hub"
	"socialcal/backend/internal/models"
	"socialcal/backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendStoresPushesAndPublishes(t *testing.T) {
	db := testutil.NewDB(t)
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bobby")
	pusher := hub.NewRecorder(bob.ID)
	publisher := &events.Recorder{}
	svc := NewService(db, pusher, publisher, testutil.Logger())

	msg, err := svc.Send(context.Background(), alice.ID, bob.ID, "  hello  ")
	require.NoError(t, err)
	assert.NotZero(t, msg.ID)
	assert.Equal(t, "hello", msg.Content)

	assert.Equal(t, []string{EventType}, pusher.To(bob.ID))
	assert.Equal(t, []string{EventType}, pusher.To(alice.ID))
	assert.Equal(t, []string{events.MessageSent}, publisher.Keys())
}

func TestSendValidation(t *testing.T) {
	db := testutil.NewDB(t)
	alice := testutil.CreateUser(t, db, "alice")
	svc := NewService(db, hub.NewRecorder(), &events.Recorder{}, testutil.Logger())
	ctx := context.Background()

	_, err := svc.Send(ctx, alice.ID, alice.ID, "hi")
	require.ErrorIs(t, err, ErrSelfMessage)

	_, err = svc.Send(ctx, alice.ID, alice.ID+1, "   ")
	require.ErrorIs(t, err, ErrEmptyContent)

	_, err = svc.Send(ctx, alice.ID, alice.ID+1, strings.Repeat("x", MaxContentLength+1))
	require.ErrorIs(t, err, ErrContentTooLong)

	_, err = svc.Send(ctx, alice.ID, alice.ID+1, "hi")
	require.ErrorIs(t, err, ErrReceiverNotFound)
}

func TestConversationOrdersAndMarksRead(t *testing.T) {
	db := testutil.NewDB(t)
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bobby")
	carol := testutil.CreateUser(t, db, "carol")
	svc := NewService(db, hub.NewRecorder(), nil, testutil.Logger())
	ctx := context.Background()

	for _, m := range []struct {
		from, to uint
		text     string
	}{
		{alice.ID, bob.ID, "one"},
		{bob.ID, alice.ID, "two"},
		{alice.ID, bob.ID, "three"},
		{carol.ID, alice.ID, "other"},
	} {
		_, err := svc.Send(ctx, m.from, m.to, m.text)
		require.NoError(t, err)
	}

	page, total, err := svc.Conversation(ctx, bob.ID, alice.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	assert.Equal(t, "one", page[0].Content)
	assert.Equal(t, "two", page[1].Content)

	var unread int64
	require.NoError(t, db.Model(&models.Message{}).
		Where("receiver_id = ? AND read_at IS NULL", bob.ID).Count(&unread).Error)
	assert.Zero(t, unread)
	require.NoError(t, db.Model(&models.Message{}).
		Where("receiver_id = ? AND read_at IS NULL", alice.ID).Count(&unread).Error)
	assert.Equal(t, int64(2), unread)

	all, err := svc.ListForUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "other", all[0].Content)
}
