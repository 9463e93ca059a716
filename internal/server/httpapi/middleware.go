package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/feedbackd/internal/common"
	"github.com/dmitrijs2005/feedbackd/internal/server/auth"
	"github.com/gin-gonic/gin"
)

type ctxKey string

const userIDKey ctxKey = "userID"

// UserIDFromContext returns the id of the authenticated caller.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// bearerToken extracts the token from an Authorization header value.
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", common.ErrUnauthenticated
	}
	fields := strings.Fields(header)
	if len(fields) < 2 || !strings.EqualFold(fields[0], common.BearerScheme) {
		return "", common.ErrMalformedCredential
	}
	return fields[1], nil
}

func (s *HTTPServer) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		token, err := bearerToken(c.GetHeader(common.AuthorizationHeaderName))
		if err != nil {
			s.logger.Warn(ctx, "auth rejected", "path", c.FullPath(), "error", err)
			if errors.Is(err, common.ErrUnauthenticated) {
				abortWithMessage(c, http.StatusUnauthorized, "Access Denied: No token provided")
			} else {
				abortWithMessage(c, http.StatusBadRequest, "Bearer token missing")
			}
			return
		}

		userID, err := auth.GetUserIDFromToken(token, s.jwtSecret)
		if err != nil {
			s.logger.Warn(ctx, "auth rejected", "path", c.FullPath(), "error", err)
			if errors.Is(err, common.ErrTokenExpired) {
				abortWithMessage(c, http.StatusUnauthorized, "Token expired")
			} else {
				abortWithMessage(c, http.StatusUnauthorized, "Invalid token")
			}
			return
		}

		c.Set(string(userIDKey), userID)
		c.Request = c.Request.WithContext(context.WithValue(ctx, userIDKey, userID))
		c.Next()
	}
}

// rateLimit caps requests per client IP. Limiter failures let the request
// through.
func (s *HTTPServer) rateLimit(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		ok, err := s.limiter.Allow(ctx, scope+":"+c.ClientIP())
		if err != nil {
			s.logger.Error(ctx, "rate limiter failed", "error", err)
			c.Next()
			return
		}
		if !ok {
			abortWithMessage(c, http.StatusTooManyRequests, "Too many requests")
			return
		}
		c.Next()
	}
}

func (s *HTTPServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		s.logger.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"ip", c.ClientIP(),
		)
	}
}
