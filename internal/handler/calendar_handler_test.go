package handler

import (
	"net/http"
	"testing"
	"time"

	"socialcal/backend/internal/models"
	"socialcal/backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e testEnv) createItem(t *testing.T, owner uint, title string, privacy models.Privacy, start time.Time) models.CalendarItem {
	t.Helper()
	end := start.Add(time.Hour)
	w := e.do(t, http.MethodPost, api("/calendar-items"), owner, CalendarItemInput{
		Title:       title,
		Description: title + " details",
		Location:    "Town hall",
		Start:       &start,
		End:         &end,
		Privacy:     privacy,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.CalendarItem](t, w)
}

func TestCreateCalendarItemDefaultsAndValidation(t *testing.T) {
	env := newTestEnv(t)
	alice := testutil.CreateUser(t, env.db, "alice")

	item := env.createItem(t, alice.ID, "Dentist", "", time.Now().Add(24*time.Hour))
	assert.Equal(t, models.ItemTypePersonal, item.ItemType)
	assert.Equal(t, models.PrivacyPrivate, item.Privacy)
	assert.Equal(t, alice.ID, item.UserID)

	start := time.Now()
	end := start.Add(-time.Hour)
	w := env.do(t, http.MethodPost, api("/calendar-items"), alice.ID, CalendarItemInput{Title: "Backwards", Start: &start, End: &end})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, api("/calendar-items"), alice.ID, CalendarItemInput{Title: "Odd", Privacy: "secret"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMyCalendarItemsOrderedByStart(t *testing.T) {
	env := newTestEnv(t)
	alice := testutil.CreateUser(t, env.db, "alice")
	now := time.Now()
	env.createItem(t, alice.ID, "Later", models.PrivacyPrivate, now.Add(48*time.Hour))
	env.createItem(t, alice.ID, "Sooner", models.PrivacyPublic, now.Add(24*time.Hour))

	w := env.do(t, http.MethodGet, api("/calendar-items/me"), alice.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := decode[[]models.CalendarItem](t, w)
	require.Len(t, items, 2)
	assert.Equal(t, "Sooner", items[0].Title)
	assert.Equal(t, "Later", items[1].Title)
}

func TestFriendCalendarVisibility(t *testing.T) {
	env := newTestEnv(t)
	alice := testutil.CreateUser(t, env.db, "alice")
	bob := testutil.CreateUser(t, env.db, "bobby")
	carol := testutil.CreateUser(t, env.db, "carol")
	env.befriend(t, alice, bob)

	now := time.Now()
	public := env.createItem(t, alice.ID, "Picnic", models.PrivacyPublic, now.Add(time.Hour))
	private := env.createItem(t, alice.ID, "Therapy", models.PrivacyPrivate, now.Add(2*time.Hour))

	w := env.do(t, http.MethodGet, api("/calendar-items/user/%d", alice.ID), bob.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := decode[[]models.CalendarItem](t, w)
	require.Len(t, items, 1)
	assert.Equal(t, public.ID, items[0].ID)

	w = env.do(t, http.MethodGet, api("/calendar-items/user/%d", alice.ID), carol.ID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodGet, api("/calendar-items/user/%d", alice.ID), alice.ID, nil)
	assert.Len(t, decode[[]models.CalendarItem](t, w), 2)

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, api("/calendar-items/%d", public.ID), bob.ID, nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, api("/calendar-items/%d", private.ID), bob.ID, nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, api("/calendar-items/%d", public.ID), carol.ID, nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, api("/calendar-items/%d", private.ID), alice.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, api("/calendar-items/%d", 9999), alice.ID, nil).Code)
}

func TestUpdateAndDeleteCalendarItemOwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	alice := testutil.CreateUser(t, env.db, "alice")
	bob := testutil.CreateUser(t, env.db, "bobby")
	item := env.createItem(t, alice.ID, "Gym", models.PrivacyPrivate, time.Now().Add(time.Hour))

	title := "Gym with Bob"
	w := env.do(t, http.MethodPatch, api("/calendar-items/%d", item.ID), bob.ID, UpdateCalendarItemInput{Title: &title})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPatch, api("/calendar-items/%d", item.ID), alice.ID, UpdateCalendarItemInput{Title: &title})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[models.CalendarItem](t, w)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, "Town hall", updated.Location)

	early := item.Start.Add(-2 * time.Hour)
	w = env.do(t, http.MethodPatch, api("/calendar-items/%d", item.ID), alice.ID, UpdateCalendarItemInput{End: &early})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	reminder := models.Reminder{TimeValue: 10, TimeScale: models.ScaleMinutes, CalendarItemID: item.ID, OwnerID: alice.ID}
	require.NoError(t, env.db.Create(&reminder).Error)

	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodDelete, api("/calendar-items/%d", item.ID), bob.ID, nil).Code)
	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, api("/calendar-items/%d", item.ID), alice.ID, nil).Code)

	var n int64
	env.db.Model(&models.Reminder{}).Where("calendar_item_id = ?", item.ID).Count(&n)
	assert.Zero(t, n)
}
