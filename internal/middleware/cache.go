package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/listing-platform/internal/config"
	"github.com/iliyamo/listing-platform/internal/logging"
)

// captureWriter tees the response body (up to limit bytes) while
// forwarding everything to the client.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	switch remain := cw.limit - cw.size; {
	case cw.limit <= 0:
		cw.buf.Write(b)
	case remain > 0 && int64(len(b)) <= remain:
		cw.buf.Write(b)
	case remain > 0:
		cw.buf.Write(b[:remain])
	}
	cw.size += int64(len(b))
	return cw.ResponseWriter.Write(b)
}

// truncated reports whether the body outgrew the capture limit.
func (cw *captureWriter) truncated() bool {
	return cw.limit > 0 && cw.size > cw.limit
}

// cachedHeaders are the response headers kept with a cached body. CORS,
// Vary and request id headers belong to the current request and are
// written by the outer middleware on every hit.
var cachedHeaders = []string{
	echo.HeaderContentType,
	echo.HeaderContentEncoding,
	echo.HeaderLastModified,
	"Content-Language",
	"ETag",
}

// storedHeaders copies the cachedHeaders present in h.
func storedHeaders(h http.Header) http.Header {
	out := make(http.Header, len(cachedHeaders))
	for _, k := range cachedHeaders {
		if vals := h.Values(k); len(vals) > 0 {
			out[http.CanonicalHeaderKey(k)] = append([]string(nil), vals...)
		}
	}
	return out
}

// RedisCache caches successful responses of public listing reads and drops
// every entry when a listing changes. A nil client or a disabled config
// turns it into a pass-through.
type RedisCache struct {
	cfg    config.CacheConfig
	rdb    *redis.Client
	logger *slog.Logger
}

func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, logger *slog.Logger) *RedisCache {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "listings-cache"
	}
	return &RedisCache{cfg: cfg, rdb: rdb, logger: logging.Resolve(logger)}
}

func (rc *RedisCache) enabled() bool { return rc != nil && rc.cfg.Enabled && rc.rdb != nil }

// Key builds the cache key for a request path and raw query.
func (rc *RedisCache) Key(method, path, rawQuery string) string {
	parts := []string{method, path}
	if !strings.EqualFold(rc.cfg.KeyStrategy, "path") {
		parts = append(parts, rawQuery)
	}
	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("%s:%x", rc.cfg.Prefix, sum[:])
}

// Middleware serves cached 200 responses and stores fresh ones. Responses
// carry X-Cache: HIT or MISS.
func (rc *RedisCache) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if !rc.enabled() {
			return next
		}
		return func(c echo.Context) error {
			req := c.Request()
			if !rc.cfg.Methods[strings.ToUpper(req.Method)] {
				return next(c)
			}
			ctx := req.Context()
			key := rc.Key(req.Method, req.URL.Path, req.URL.RawQuery)

			if bs, err := rc.rdb.Get(ctx, key).Bytes(); err == nil {
				if status, hdr, body, ok := decodePayload(bs); ok {
					for k, vals := range storedHeaders(hdr) {
						c.Response().Header()[k] = vals
					}
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					_, werr := c.Response().Write(body)
					return werr
				}
			} else if err != redis.Nil {
				rc.logger.Warn("cache read failed",
					"event", "cache_get_failed",
					"module", "listings/cache",
					"layer", "adapter",
					"error", err.Error(),
				)
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: int64(rc.cfg.MaxBodyBytes)}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || cw.truncated() {
				return nil
			}
			payload, err := encodePayload(cw.status, storedHeaders(c.Response().Header()), cw.buf.Bytes())
			if err != nil {
				return nil
			}
			// The request context is done once the client disconnects.
			if err := rc.rdb.SetEx(context.WithoutCancel(ctx), key, payload, rc.cfg.TTL).Err(); err != nil {
				rc.logger.Warn("cache write failed",
					"event", "cache_set_failed",
					"module", "listings/cache",
					"layer", "adapter",
					"error", err.Error(),
				)
			}
			return nil
		}
	}
}

// Purge deletes every key under the cache prefix.
func (rc *RedisCache) Purge(ctx context.Context) error {
	if !rc.enabled() {
		return nil
	}
	var keys []string
	iter := rc.rdb.Scan(ctx, 0, rc.cfg.Prefix+":*", 200).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan cache keys: %w", err)
	}
	for len(keys) > 0 {
		n := min(len(keys), 500)
		if err := rc.rdb.Del(ctx, keys[:n]...).Err(); err != nil {
			return fmt.Errorf("delete cache keys: %w", err)
		}
		keys = keys[n:]
	}
	return nil
}

// encodePayload packs [4 bytes status][4 bytes header length][header JSON][body].
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:], hdrJSON)
	copy(out[8+len(hdrJSON):], body)
	return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status = int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	header = make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, header, bs[8+hlen:], true
}
