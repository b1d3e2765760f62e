package middleware

import (
    "bytes"
    "encoding/json"
    "net/http"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/flagquest/auction-service/internal/config"
)

// cachedResponse is the envelope stored in Redis for a cached GET.
type cachedResponse struct {
    Status      int    `json:"status"`
    ContentType string `json:"content_type"`
    Body        []byte `json:"body"`
}

// captureWriter tees the response body into a buffer, up to limit
// bytes, while forwarding everything to the client.
type captureWriter struct {
    http.ResponseWriter
    status int
    buf    bytes.Buffer
    limit  int
    over   bool
}

func (w *captureWriter) WriteHeader(code int) {
    w.status = code
    w.ResponseWriter.WriteHeader(code)
}

func (w *captureWriter) Write(b []byte) (int, error) {
    if !w.over {
        if w.buf.Len()+len(b) <= w.limit {
            w.buf.Write(b)
        } else {
            w.over = true
        }
    }
    return w.ResponseWriter.Write(b)
}

// ResponseCache returns a middleware that serves successful GET
// responses from Redis for the configured TTL. Only 200 responses
// within the size limit are stored. Cache failures are invisible to
// the client; the request just falls through to the handler.
func ResponseCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if c.Request().Method != http.MethodGet {
                return next(c)
            }
            key := cacheKey(cfg.Prefix, c)
            ctx := c.Request().Context()

            if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
                var cached cachedResponse
                if json.Unmarshal(raw, &cached) == nil {
                    c.Response().Header().Set("X-Cache", "HIT")
                    return c.Blob(cached.Status, cached.ContentType, cached.Body)
                }
            }

            cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            c.Response().Writer = cw
            c.Response().Header().Set("X-Cache", "MISS")

            if err := next(c); err != nil {
                return err
            }
            if cw.status != http.StatusOK || cw.over {
                return nil
            }
            raw, err := json.Marshal(cachedResponse{
                Status:      cw.status,
                ContentType: c.Response().Header().Get(echo.HeaderContentType),
                Body:        cw.buf.Bytes(),
            })
            if err == nil {
                // Best effort; a failed SET just means the next request misses.
                rdb.Set(ctx, key, raw, cfg.TTL)
            }
            return nil
        }
    }
}

func cacheKey(prefix string, c echo.Context) string {
    r := c.Request()
    return prefix + ":" + r.URL.Path + "?" + r.URL.RawQuery
}
