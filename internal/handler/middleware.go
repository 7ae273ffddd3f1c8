package handler

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/maxviazov/ats-service/pkg/response"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	// RequestIDHeader carries the request id in both directions.
	RequestIDHeader = "X-Request-ID"
	// RequestIDKey is the gin context key holding the request id.
	RequestIDKey = "request_id"
)

// RequestID reuses a client-supplied X-Request-ID or generates one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RequestLogger writes one access log line per request.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	l := logger.With().Str("module", "http").Logger()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := l.Info()
		switch {
		case status >= http.StatusInternalServerError:
			event = l.Error()
		case status >= http.StatusBadRequest:
			event = l.Warn()
		}
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		event.
			Str(RequestIDKey, c.GetString(RequestIDKey)).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Int("size", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// Recovery turns panics into a 500 envelope.
func Recovery(logger zerolog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, err any) {
		logger.Error().
			Interface("panic", err).
			Str(RequestIDKey, c.GetString(RequestIDKey)).
			Str("path", c.Request.URL.Path).
			Msg("Recovered from panic")
		response.Error(c, http.StatusInternalServerError, "Internal server error")
	})
}

// CORS allows the given origins; "*" (or none) allows any origin.
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", RequestIDHeader}
	cfg.ExposeHeaders = []string{RequestIDHeader, "Content-Disposition"}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// RateLimitConfig configures the per-client limiter.
type RateLimitConfig struct {
	Rate  float64 // requests per second
	Burst int
	// MaxIdle drops limiters of clients idle longer than this (default 5m).
	MaxIdle time.Duration
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit applies a token bucket per client IP and answers 429 envelopes when exhausted.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.MaxIdle <= 0 {
		cfg.MaxIdle = 5 * time.Minute
	}
	cleanupInterval := time.Minute
	retryAfter := "1"
	if cfg.Rate > 0 && cfg.Rate < 1 {
		retryAfter = strconv.FormatFloat(1/cfg.Rate, 'f', 0, 64)
	}

	var (
		mu          sync.Mutex
		limiters    = make(map[string]*limiterEntry)
		lastCleanup time.Time
	)

	return func(c *gin.Context) {
		key := c.ClientIP()

		mu.Lock()
		now := time.Now()
		// lazy cleanup of idle limiters
		if now.Sub(lastCleanup) >= cleanupInterval {
			for k, e := range limiters {
				if now.Sub(e.lastSeen) > cfg.MaxIdle {
					delete(limiters, k)
				}
			}
			lastCleanup = now
		}
		entry, ok := limiters[key]
		if !ok {
			entry = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst)}
			limiters[key] = entry
		}
		entry.lastSeen = now
		mu.Unlock()

		if !entry.limiter.Allow() {
			c.Header("Retry-After", retryAfter)
			response.Error(c, http.StatusTooManyRequests, "Too many requests")
			return
		}
		c.Next()
	}
}
