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

func (e testEnv) createBusiness(t *testing.T, owner uint, name string) models.Business {
	t.Helper()
	w := e.do(t, http.MethodPost, api("/businesses"), owner, BusinessInput{
		Name:  name,
		Email: "Hello@" + name + ".example",
		Bio:   "We serve coffee",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Business](t, w)
}

func TestBusinessCRUD(t *testing.T) {
	env := newTestEnv(t)
	alice := testutil.CreateUser(t, env.db, "alice")
	bob := testutil.CreateUser(t, env.db, "bobby")

	cafe := env.createBusiness(t, alice.ID, "cafe")
	assert.Equal(t, alice.ID, cafe.OwnerID)
	assert.Equal(t, "hello@cafe.example", cafe.Email)
	assert.Equal(t, models.DefaultAvatarURL, cafe.PictureURL)
	env.createBusiness(t, bob.ID, "bakery")

	w := env.do(t, http.MethodGet, api("/businesses?q=CAF"), 0, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[PaginatedResponse[BusinessResponse]](t, w)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "cafe", page.Data[0].Name)

	name := "Corner Cafe"
	w = env.do(t, http.MethodPatch, api("/businesses/%d", cafe.ID), bob.ID, UpdateBusinessInput{Name: &name})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = env.do(t, http.MethodPatch, api("/businesses/%d", cafe.ID), alice.ID, UpdateBusinessInput{Name: &name})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, name, decode[models.Business](t, w).Name)

	w = env.do(t, http.MethodGet, api("/users/%d/businesses", alice.ID), bob.ID, nil)
	require.Len(t, decode[[]models.Business](t, w), 1)

	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodDelete, api("/businesses/%d", cafe.ID), bob.ID, nil).Code)
	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, api("/businesses/%d", cafe.ID), alice.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, api("/businesses/%d", cafe.ID), 0, nil).Code)
}

func TestToggleFollowBusiness(t *testing.T) {
	env := newTestEnv(t)
	alice := testutil.CreateUser(t, env.db, "alice")
	bob := testutil.CreateUser(t, env.db, "bobby")
	cafe := env.createBusiness(t, alice.ID, "cafe")

	w := env.do(t, http.MethodPost, api("/businesses/%d/follow", cafe.ID), bob.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[map[string]bool](t, w)["following"])

	w = env.do(t, http.MethodGet, api("/businesses/%d", cafe.ID), bob.ID, nil)
	resp := decode[BusinessResponse](t, w)
	assert.Equal(t, int64(1), resp.FollowersCount)
	assert.True(t, resp.Following)

	w = env.do(t, http.MethodGet, api("/businesses/%d/followers", cafe.ID), 0, nil)
	followers := decode[[]PublicUserResponse](t, w)
	require.Len(t, followers, 1)
	assert.Equal(t, bob.ID, followers[0].ID)

	w = env.do(t, http.MethodGet, api("/users/%d/following", bob.ID), alice.ID, nil)
	require.Len(t, decode[[]models.Business](t, w), 1)

	w = env.do(t, http.MethodPost, api("/businesses/%d/follow", cafe.ID), bob.ID, nil)
	assert.False(t, decode[map[string]bool](t, w)["following"])

	w = env.do(t, http.MethodPost, api("/businesses/%d/follow", 9999), bob.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBusinessItems(t *testing.T) {
	env := newTestEnv(t)
	alice := testutil.CreateUser(t, env.db, "alice")
	bob := testutil.CreateUser(t, env.db, "bobby")
	cafe := env.createBusiness(t, alice.ID, "cafe")

	start := time.Now().Add(24 * time.Hour)
	input := CalendarItemInput{Title: "Tasting", Start: &start, Privacy: models.PrivacyPublic}
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodPost, api("/businesses/%d/items", cafe.ID), bob.ID, input).Code)

	w := env.do(t, http.MethodPost, api("/businesses/%d/items", cafe.ID), alice.ID, input)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	public := decode[models.CalendarItem](t, w)
	require.NotNil(t, public.BusinessID)
	assert.Equal(t, cafe.ID, *public.BusinessID)

	input.Title = "Inventory"
	input.Privacy = models.PrivacyPrivate
	w = env.do(t, http.MethodPost, api("/businesses/%d/items", cafe.ID), alice.ID, input)
	require.Equal(t, http.StatusCreated, w.Code)
	private := decode[models.CalendarItem](t, w)

	w = env.do(t, http.MethodGet, api("/businesses/%d/items", cafe.ID), 0, nil)
	require.Len(t, decode[[]models.CalendarItem](t, w), 1)
	w = env.do(t, http.MethodGet, api("/businesses/%d/items", cafe.ID), alice.ID, nil)
	require.Len(t, decode[[]models.CalendarItem](t, w), 2)

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, api("/businesses/%d/items/%d", cafe.ID, public.ID), bob.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, api("/businesses/%d/items/%d", cafe.ID, private.ID), bob.ID, nil).Code)

	title := "Wine tasting"
	w = env.do(t, http.MethodPatch, api("/businesses/%d/items/%d", cafe.ID, public.ID), alice.ID, UpdateCalendarItemInput{Title: &title})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, title, decode[models.CalendarItem](t, w).Title)

	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodDelete, api("/businesses/%d/items/%d", cafe.ID, public.ID), bob.ID, nil).Code)
	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, api("/businesses/%d/items/%d", cafe.ID, public.ID), alice.ID, nil).Code)
}
