package api

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tripledger/internal/auth"
	"tripledger/internal/logger"
	"tripledger/pkg/models"
)

const (
	headerRequestID = "X-Request-ID"
	keyLogger       = "logger"
)

// requestLog assigns a request id, stores a request-scoped logger and logs
// one line per request.
func requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(headerRequestID, id)

		log := logger.WithRequestID(id)
		c.Set(keyLogger, log)

		start := time.Now()
		c.Next()

		level := zerolog.InfoLevel
		if c.Writer.Status() >= 500 {
			level = zerolog.ErrorLevel
		}
		log.WithLevel(level).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	}
}

func requestLogger(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(keyLogger); ok {
		if l, ok := v.(zerolog.Logger); ok {
			return &l
		}
	}
	l := logger.WithComponent("api")
	return &l
}

// timeout bounds the request context.
func timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// authenticate verifies the bearer token and stores the caller in the
// request context.
func authenticate(v *auth.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
			fail(c, auth.ErrUnauthenticated)
			return
		}

		caller, err := v.Verify(parts[1])
		if err != nil {
			fail(c, err)
			return
		}

		c.Request = c.Request.WithContext(auth.WithCaller(c.Request.Context(), caller))
		c.Set(keyLogger, logger.WithCaller(*requestLogger(c), caller))
		c.Next()
	}
}

func callerOf(c *gin.Context) models.Caller {
	caller, _ := auth.CallerFrom(c.Request.Context())
	return caller
}
