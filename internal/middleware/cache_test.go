package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/listing-platform/internal/config"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	cfg := config.CacheConfig{
		Enabled: true,
		Methods: map[string]bool{http.MethodGet: true},
		TTL:     time.Minute,
		Prefix:  "listings-cache",
	}
	return NewRedisCache(cfg, rdb, nil), mr
}

// cachedEcho mirrors the listings stack: CORS and request ids run outside
// the route-level cache.
func cachedEcho(rc *RedisCache, calls *int) *echo.Echo {
	e := newEcho()
	e.Use(echomw.RequestID())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: []string{"http://a.test", "http://b.test"}}))
	e.GET("/api/listings", func(c echo.Context) error {
		*calls++
		return c.JSON(http.StatusOK, []string{"L1"})
	}, rc.Middleware())
	return e
}

func getFrom(e *echo.Echo, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/listings", nil)
	req.Header.Set(echo.HeaderOrigin, origin)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCacheHitKeepsPerRequestHeaders(t *testing.T) {
	rc, _ := newTestCache(t)
	calls := 0
	e := cachedEcho(rc, &calls)

	first := getFrom(e, "http://a.test")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := getFrom(e, "http://b.test")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, 1, calls)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, echo.MIMEApplicationJSON, second.Header().Get(echo.HeaderContentType))

	assert.Equal(t, []string{"http://b.test"}, second.Header().Values(echo.HeaderAccessControlAllowOrigin))
	ids := second.Header().Values(echo.HeaderXRequestID)
	require.Len(t, ids, 1)
	assert.NotEqual(t, first.Header().Get(echo.HeaderXRequestID), ids[0])
	assert.Len(t, second.Header().Values(echo.HeaderVary), len(first.Header().Values(echo.HeaderVary)))
}

func TestCacheStoresOnlyEntityHeaders(t *testing.T) {
	rc, mr := newTestCache(t)
	calls := 0
	getFrom(cachedEcho(rc, &calls), "http://a.test")

	keys := mr.Keys()
	require.Len(t, keys, 1)
	raw, err := mr.Get(keys[0])
	require.NoError(t, err)
	_, hdr, _, ok := decodePayload([]byte(raw))
	require.True(t, ok)
	assert.Equal(t, echo.MIMEApplicationJSON, hdr.Get(echo.HeaderContentType))
	assert.Empty(t, hdr.Get(echo.HeaderAccessControlAllowOrigin))
	assert.Empty(t, hdr.Get(echo.HeaderXRequestID))
	assert.Empty(t, hdr.Get(echo.HeaderVary))
	assert.Empty(t, hdr.Get("X-Cache"))
}

func TestCachePurge(t *testing.T) {
	rc, mr := newTestCache(t)
	require.NoError(t, mr.Set("other-app:key", "keep"))
	calls := 0
	e := cachedEcho(rc, &calls)

	getFrom(e, "http://a.test")
	require.Len(t, mr.Keys(), 2)

	require.NoError(t, rc.Purge(context.Background()))
	assert.Equal(t, []string{"other-app:key"}, mr.Keys())

	rec := getFrom(e, "http://a.test")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, 2, calls)
}

func TestCacheSkipsErrorResponses(t *testing.T) {
	rc, mr := newTestCache(t)
	e := newEcho()
	e.GET("/api/listings/:id", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "Listing not found")
	}, rc.Middleware())

	rec := do(e, http.MethodGet, "/api/listings/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, mr.Keys())
}

func TestStoredHeaders(t *testing.T) {
	h := http.Header{}
	h.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	h.Set(echo.HeaderAccessControlAllowOrigin, "http://a.test")
	h.Set(echo.HeaderXRequestID, "abc")
	h.Add("etag", `"v1"`)

	got := storedHeaders(h)
	assert.Equal(t, http.Header{
		"Content-Type": {echo.MIMEApplicationJSON},
		"Etag":         {`"v1"`},
	}, got)
}
