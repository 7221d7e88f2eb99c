package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/time/rate"

	"github.com/agrilink/agrilink-backend/internal/models"
	"github.com/agrilink/agrilink-backend/internal/testutil"
	"github.com/agrilink/agrilink-backend/internal/utils"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("middleware-test-secret")
	goleak.VerifyTestMain(m)
}

func serve(router *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var response utils.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.NotNil(t, response.Error)
	return response.Error.Code
}

func TestAuthRequired(t *testing.T) {
	router := gin.New()
	router.Use(I18nMiddleware("en"))
	router.GET("/me", AuthRequired(), func(c *gin.Context) {
		userID, _ := utils.GetUserIDFromContext(c)
		c.String(http.StatusOK, userID)
	})

	w := serve(router, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(router, http.MethodGet, "/me", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, w))

	expired, err := utils.GenerateJWT(uuid.New(), "a@b.c", "farmer", -1)
	require.NoError(t, err)
	w = serve(router, http.MethodGet, "/me", expired)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	userID := uuid.New()
	token, err := utils.GenerateJWT(userID, "a@b.c", "farmer", 1)
	require.NoError(t, err)
	w = serve(router, http.MethodGet, "/me", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID.String(), w.Body.String())
}

func TestActiveAccountAndAdminRequired(t *testing.T) {
	db := testutil.NewTestDB(t)
	farmer := testutil.CreateUser(t, db, "farmer@example.com", models.UserTypeFarmer)
	admin := testutil.CreateUser(t, db, "admin@example.com", models.UserTypeAdmin)
	inactive := testutil.CreateUser(t, db, "gone@example.com", models.UserTypeFarmer)
	require.NoError(t, db.Model(inactive).Update("is_active", false).Error)

	router := gin.New()
	router.GET("/admin", AuthRequired(), ActiveAccount(db), AdminRequired(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	tokenFor := func(user *models.User, claimedType string) string {
		token, err := utils.GenerateJWT(user.ID, user.Email, claimedType, 1)
		require.NoError(t, err)
		return token
	}

	assert.Equal(t, http.StatusNoContent, serve(router, http.MethodGet, "/admin", tokenFor(admin, "admin")).Code)
	assert.Equal(t, http.StatusForbidden, serve(router, http.MethodGet, "/admin", tokenFor(farmer, "farmer")).Code)
	// A forged role claim is overridden by the stored user type.
	assert.Equal(t, http.StatusForbidden, serve(router, http.MethodGet, "/admin", tokenFor(farmer, "admin")).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/admin", tokenFor(inactive, "farmer")).Code)

	ghost := &models.User{}
	ghost.ID = uuid.New()
	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/admin", tokenFor(ghost, "admin")).Code)
}

func TestOptionalAuth(t *testing.T) {
	router := gin.New()
	router.GET("/products", OptionalAuth(), func(c *gin.Context) {
		_, ok := utils.GetUserIDFromContext(c)
		c.JSON(http.StatusOK, gin.H{"authenticated": ok})
	})

	w := serve(router, http.MethodGet, "/products", "garbage")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"authenticated":false}`, w.Body.String())

	token, err := utils.GenerateJWT(uuid.New(), "a@b.c", "buyer", 1)
	require.NoError(t, err)
	w = serve(router, http.MethodGet, "/products", token)
	assert.JSONEq(t, `{"authenticated":true}`, w.Body.String())
}

func TestI18nMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(I18nMiddleware("en"))
	router.GET("/lang", func(c *gin.Context) {
		c.String(http.StatusOK, utils.GetLangFromContext(c))
	})

	for header, want := range map[string]string{
		"":                        "en",
		"hi-IN,hi;q=0.9,en;q=0.8": "hi",
		"hi":                      "hi",
		"fr-FR":                   "en",
	} {
		req := httptest.NewRequest(http.MethodGet, "/lang", nil)
		req.Header.Set("Accept-Language", header)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, want, w.Body.String(), header)
	}
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(rate.Every(time.Hour), 2)
	defer limiter.Stop()

	router := gin.New()
	router.Use(limiter.Middleware())
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/ping", "").Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/ping", "").Code)

	w := serve(router, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", errorCode(t, w))
}

func TestRateLimiter_Evict(t *testing.T) {
	limiter := NewRateLimiter(rate.Every(time.Second), 1)
	defer limiter.Stop()

	limiter.getVisitor("10.0.0.1")
	limiter.evict(time.Now())
	assert.Len(t, limiter.visitors, 1)

	limiter.evict(time.Now().Add(visitorTTL + time.Second))
	assert.Empty(t, limiter.visitors)
}

func TestRecovery(t *testing.T) {
	router := gin.New()
	router.Use(Recovery())
	router.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := serve(router, http.MethodGet, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", errorCode(t, w))
}

func TestExtractResource(t *testing.T) {
	id := uuid.New().String()
	assert.Equal(t, "loans", extractResourceType("/api/loans/"+id))
	assert.Equal(t, "loans", extractResourceType("/api/admin/loans/"+id+"/approve"))
	assert.Equal(t, "products", extractResourceType("/api/products"))
	assert.Equal(t, id, extractResourceID("/api/admin/loans/"+id+"/approve"))
	assert.Equal(t, "", extractResourceID("/api/products"))

	values := redact([]byte(`{"email":"a@b.c","password":"secret"}`))
	assert.Equal(t, "[REDACTED]", values["password"])
	assert.Equal(t, "a@b.c", values["email"])
}
