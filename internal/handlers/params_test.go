package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(target string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c, w
}

func TestPathID(t *testing.T) {
	id := uuid.New()

	c, w := testContext("/")
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	parsed, ok := pathID(c, "id", "loan ID")
	require.True(t, ok)
	assert.Equal(t, id, parsed)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = testContext("/")
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	_, ok = pathID(c, "id", "loan ID")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCurrentUserID_Missing(t *testing.T) {
	c, w := testContext("/")
	_, ok := currentUserID(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestQueryParsers(t *testing.T) {
	c, _ := testContext("/?organic=true&featured=maybe&minPrice=12.5&maxPrice=abc")

	organic := queryBool(c, "organic")
	require.NotNil(t, organic)
	assert.True(t, *organic)
	assert.Nil(t, queryBool(c, "featured"))
	assert.Nil(t, queryBool(c, "missing"))

	minPrice := queryFloat(c, "minPrice")
	require.NotNil(t, minPrice)
	assert.Equal(t, 12.5, *minPrice)
	assert.Nil(t, queryFloat(c, "maxPrice"))
}
