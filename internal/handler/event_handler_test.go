package handler

import (
	"net/http"
	"testing"
	"time"

	"socialcal/backend/internal/events"
	"socialcal/backend/internal/models"
	"socialcal/backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e testEnv) createEvent(t *testing.T, owner uint, item models.CalendarItem) EventResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, api("/events"), owner, CreateEventInput{ItemID: item.ID, Published: true})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[EventResponse](t, w)
}

func TestCreateEventPromotesItem(t *testing.T) {
	env := newTestEnv(t)
	alice := testutil.CreateUser(t, env.db, "alice")
	bob := testutil.CreateUser(t, env.db, "bobby")
	item := env.createItem(t, alice.ID, "Launch party", models.PrivacyPublic, time.Now().Add(24*time.Hour))

	w := env.do(t, http.MethodPost, api("/events"), bob.ID, CreateEventInput{ItemID: item.ID})
	assert.Equal(t, http.StatusForbidden, w.Code)

	event := env.createEvent(t, alice.ID, item)
	assert.Equal(t, "Launch party", event.Title)
	assert.Equal(t, "Alice Tester", event.CreatorName)
	assert.Equal(t, "alice", event.CreatorUsername)
	assert.True(t, event.Published)

	var stored models.CalendarItem
	require.NoError(t, env.db.First(&stored, item.ID).Error)
	assert.Equal(t, models.ItemTypeEvent, stored.ItemType)

	w = env.do(t, http.MethodPost, api("/events"), alice.ID, CreateEventInput{ItemID: item.ID})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPublishedEventNeedsDescriptionAndLocation(t *testing.T) {
	env := newTestEnv(t)
	alice := testutil.CreateUser(t, env.db, "alice")

	w := env.do(t, http.MethodPost, api("/calendar-items"), alice.ID, CalendarItemInput{Title: "Bare"})
	require.Equal(t, http.StatusCreated, w.Code)
	bare := decode[models.CalendarItem](t, w)

	w = env.do(t, http.MethodPost, api("/events"), alice.ID, CreateEventInput{ItemID: bare.ID, Published: true})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, api("/events"), alice.ID, CreateEventInput{ItemID: bare.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	draft := decode[EventResponse](t, w)

	published := true
	w = env.do(t, http.MethodPatch, api("/events/%d", draft.ID), alice.ID, UpdateEventInput{Published: &published})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventBusinessMustBelongToCreator(t *testing.T) {
	env := newTestEnv(t)
	alice := testutil.CreateUser(t, env.db, "alice")
	bob := testutil.CreateUser(t, env.db, "bobby")
	bakery := env.createBusiness(t, bob.ID, "bakery")
	item := env.createItem(t, alice.ID, "Bake sale", models.PrivacyPublic, time.Now().Add(time.Hour))

	w := env.do(t, http.MethodPost, api("/events"), alice.ID, CreateEventInput{ItemID: item.ID, BusinessID: &bakery.ID})
	assert.Equal(t, http.StatusForbidden, w.Code)

	cafe := env.createBusiness(t, alice.ID, "cafe")
	w = env.do(t, http.MethodPost, api("/events"), alice.ID, CreateEventInput{ItemID: item.ID, BusinessID: &cafe.ID, Published: true})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "cafe", decode[EventResponse](t, w).BusinessName)
}

func TestListEventsPublicAndFuture(t *testing.T) {
	env := newTestEnv(t)
	alice := testutil.CreateUser(t, env.db, "alice")
	now := time.Now()

	past := env.createItem(t, alice.ID, "Yesterday", models.PrivacyPublic, now.Add(-24*time.Hour))
	soon := env.createItem(t, alice.ID, "Tomorrow", models.PrivacyPublic, now.Add(24*time.Hour))
	hidden := env.createItem(t, alice.ID, "Secret", models.PrivacyPrivate, now.Add(48*time.Hour))
	env.createEvent(t, alice.ID, past)
	env.createEvent(t, alice.ID, soon)
	env.createEvent(t, alice.ID, hidden)

	w := env.do(t, http.MethodGet, api("/events"), 0, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	all := decode[PaginatedResponse[EventResponse]](t, w)
	require.Len(t, all.Data, 2)
	assert.Equal(t, "Yesterday", all.Data[0].Title)
	assert.Equal(t, "Tomorrow", all.Data[1].Title)
	assert.Equal(t, int64(2), all.Meta.TotalItems)

	w = env.do(t, http.MethodGet, api("/events/future"), 0, nil)
	future := decode[PaginatedResponse[EventResponse]](t, w)
	require.Len(t, future.Data, 1)
	assert.Equal(t, "Tomorrow", future.Data[0].Title)
}

func TestAttendConfirmAndLeave(t *testing.T) {
	env := newTestEnv(t)
	alice := testutil.CreateUser(t, env.db, "alice")
	bob := testutil.CreateUser(t, env.db, "bobby")
	event := env.createEvent(t, alice.ID, env.createItem(t, alice.ID, "Picnic", models.PrivacyPublic, time.Now().Add(time.Hour)))

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, api("/events/%d/confirm", event.ID), bob.ID, nil).Code)
	assert.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, api("/events/%d/attend", event.ID), bob.ID, nil).Code)
	assert.Equal(t, http.StatusConflict, env.do(t, http.MethodPost, api("/events/%d/attend", event.ID), bob.ID, nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodPost, api("/events/%d/confirm", event.ID), bob.ID, nil).Code)

	w := env.do(t, http.MethodGet, api("/events/%d/attendees", event.ID), alice.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	attendees := decode[[]AttendeeResponse](t, w)
	require.Len(t, attendees, 1)
	assert.Equal(t, bob.ID, attendees[0].ID)
	assert.True(t, attendees[0].Confirmed)

	w = env.do(t, http.MethodGet, api("/events/%d", event.ID), bob.ID, nil)
	assert.Equal(t, int64(1), decode[EventResponse](t, w).AttendeesCount)

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, api("/events/%d/attend", event.ID), bob.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, api("/events/%d/attend", event.ID), bob.ID, nil).Code)
}

func TestPrivateEventHiddenFromStrangers(t *testing.T) {
	env := newTestEnv(t)
	alice := testutil.CreateUser(t, env.db, "alice")
	bob := testutil.CreateUser(t, env.db, "bobby")
	carol := testutil.CreateUser(t, env.db, "carol")
	env.befriend(t, alice, bob)
	event := env.createEvent(t, alice.ID, env.createItem(t, alice.ID, "Dinner", models.PrivacyPrivate, time.Now().Add(time.Hour)))

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, api("/events/%d", event.ID), bob.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, api("/events/%d", event.ID), carol.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, api("/events/%d/attend", event.ID), carol.ID, nil).Code)
}

func TestInviteCreatesAttendeeAndNotification(t *testing.T) {
	env := newTestEnv(t)
	alice := testutil.CreateUser(t, env.db, "alice")
	bob := testutil.CreateUser(t, env.db, "bobby")
	carol := testutil.CreateUser(t, env.db, "carol")
	event := env.createEvent(t, alice.ID, env.createItem(t, alice.ID, "Hike", models.PrivacyPublic, time.Now().Add(time.Hour)))

	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodPost, api("/events/%d/invite/%d", event.ID, carol.ID), bob.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, api("/events/%d/invite/%d", event.ID, 9999), alice.ID, nil).Code)

	w := env.do(t, http.MethodPost, api("/events/%d/invite/%d", event.ID, bob.ID), alice.ID, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.False(t, decode[models.Attendee](t, w).Confirmed)
	assert.Equal(t, http.StatusConflict, env.do(t, http.MethodPost, api("/events/%d/invite/%d", event.ID, bob.ID), alice.ID, nil).Code)

	var note models.Notification
	require.NoError(t, env.db.Preload("Event").Where("user_id = ?", bob.ID).First(&note).Error)
	assert.Equal(t, models.NotificationInvite, note.Type)
	assert.Equal(t, "Alice Tester invited you to Hike", note.Message)
	require.NotNil(t, note.Event)
	assert.Equal(t, models.EventKindInvite, note.Event.Kind)
	assert.Equal(t, event.ID, note.Event.EventID)

	// attendees may invite too
	assert.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, api("/events/%d/invite/%d", event.ID, carol.ID), bob.ID, nil).Code)
}

func TestDeleteEventNotifiesAttendees(t *testing.T) {
	env := newTestEnv(t)
	alice := testutil.CreateUser(t, env.db, "alice")
	bob := testutil.CreateUser(t, env.db, "bobby")
	item := env.createItem(t, alice.ID, "Concert", models.PrivacyPublic, time.Now().Add(time.Hour))
	event := env.createEvent(t, alice.ID, item)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, api("/events/%d/attend", event.ID), bob.ID, nil).Code)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, api("/events/%d/attend", event.ID), alice.ID, nil).Code)

	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodDelete, api("/events/%d", event.ID), bob.ID, nil).Code)
	require.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, api("/events/%d", event.ID), alice.ID, nil).Code)

	var notes []models.Notification
	require.NoError(t, env.db.Preload("Event").Where("type = ?", models.NotificationEvent).Find(&notes).Error)
	require.Len(t, notes, 1)
	assert.Equal(t, bob.ID, notes[0].UserID)
	assert.Equal(t, "Concert has been cancelled", notes[0].Message)
	require.NotNil(t, notes[0].Event)
	assert.Equal(t, models.EventKindCancelled, notes[0].Event.Kind)

	var n int64
	env.db.Model(&models.Attendee{}).Where("event_id = ?", event.ID).Count(&n)
	assert.Zero(t, n)

	var stored models.CalendarItem
	require.NoError(t, env.db.First(&stored, item.ID).Error)
	assert.Equal(t, models.ItemTypePersonal, stored.ItemType)

	assert.Contains(t, env.publisher.Keys(), events.EventCancelled)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, api("/events/%d", event.ID), alice.ID, nil).Code)
}
