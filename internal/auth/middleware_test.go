package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"socialcal/backend/internal/testutil"
	"socialcal/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func whoami(c *gin.Context) {
	id, ok := CurrentUserID(c)
	c.JSON(http.StatusOK, gin.H{"id": id, "ok": ok})
}

func do(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer  abc"))
	assert.Empty(t, BearerToken("Basic abc"))
	assert.Empty(t, BearerToken("abc"))
}

func TestAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/", AuthMiddleware(secret), whoami)

	token, err := jwt.Sign(secret, 5, time.Hour)
	require.NoError(t, err)

	w := do(r, "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":5,"ok":true}`, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, do(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "Bearer nope").Code)
}

func TestOptionalAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/", OptionalAuthMiddleware(secret), whoami)

	w := do(r, "Bearer nope")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":0,"ok":false}`, w.Body.String())
}

func TestAdminMiddleware(t *testing.T) {
	db := testutil.NewDB(t)
	admin := testutil.CreateUser(t, db, "admin")
	require.NoError(t, db.Model(&admin).Update("is_admin", true).Error)
	plain := testutil.CreateUser(t, db, "plain")

	r := gin.New()
	r.GET("/", AuthMiddleware(secret), AdminMiddleware(db), whoami)

	for _, tc := range []struct {
		userID uint
		want   int
	}{
		{admin.ID, http.StatusOK},
		{plain.ID, http.StatusForbidden},
		{9999, http.StatusNotFound},
	} {
		token, err := jwt.Sign(secret, tc.userID, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, tc.want, do(r, "Bearer "+token).Code, "user %d", tc.userID)
	}
}

func TestPasswordHashing(t *testing.T) {
	_, err := HashPassword("short")
	require.ErrorIs(t, err, ErrPasswordTooShort)

	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong horse"))
	assert.False(t, CheckPassword("", "correct horse"))
}
