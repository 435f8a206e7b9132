package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"socialcal/backend/internal/config"
	"socialcal/backend/internal/database"
	"socialcal/backend/internal/events"
	"socialcal/backend/internal/friendship"
	"socialcal/backend/internal/hub"
	"socialcal/backend/internal/messaging"
	"socialcal/backend/internal/models"
	"socialcal/backend/internal/notification"
	"socialcal/backend/internal/testutil"
	"socialcal/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "handler-test-secret"

type testEnv struct {
	router    *gin.Engine
	db        *gorm.DB
	publisher *events.Recorder
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	database.DB = db
	config.AppConfig = &config.Config{JWTSecret: testSecret}

	log := testutil.Logger()
	h := hub.NewHub(log)
	publisher := &events.Recorder{}
	notifier := notification.NewService(db, h, log)

	router := NewRouter(RouterDeps{
		DB:            db,
		Log:           log,
		Hub:           h,
		Friends:       friendship.NewService(db, notifier, h, publisher, log),
		Notifications: notifier,
		Messages:      messaging.NewService(db, h, publisher, log),
		Publisher:     publisher,
		JWTSecret:     testSecret,
	})
	return testEnv{router: router, db: db, publisher: publisher}
}

// do sends a JSON request as userID; zero sends no token.
func (e testEnv) do(t *testing.T, method, path string, userID uint, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		token, err := jwt.Sign(testSecret, userID, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func api(format string, args ...any) string {
	return "/api/v1" + fmt.Sprintf(format, args...)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (e testEnv) befriend(t *testing.T, a, b models.User) {
	t.Helper()
	require.Equal(t, http.StatusCreated, e.do(t, http.MethodPost, api("/friends/%d/request", b.ID), a.ID, nil).Code)
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, api("/friends/%d/accept", a.ID), b.ID, nil).Code)
}

func TestPing(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/ping", 0, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", decode[map[string]string](t, w)["message"])
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/ping", 0, nil)

	w := env.do(t, http.MethodGet, "/metrics", 0, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)
	for _, p := range []string{"/api/v1/users/me", "/api/v1/friends", "/api/v1/notifications", "/api/v1/calendar-items/me"} {
		w := env.do(t, http.MethodGet, p, 0, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, p)
	}
}

func TestInvalidPathID(t *testing.T) {
	env := newTestEnv(t)
	alice := testutil.CreateUser(t, env.db, "alice")
	w := env.do(t, http.MethodGet, "/api/v1/users/abc", alice.ID, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
