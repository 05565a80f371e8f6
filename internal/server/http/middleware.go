package http

import (
	"context"
	"time"

	"github.com/dmitrijs2005/blogd/internal/common"
	"github.com/dmitrijs2005/blogd/internal/logging"
	"github.com/dmitrijs2005/blogd/internal/server/authz"
	"github.com/dmitrijs2005/blogd/internal/server/errmap"
	"github.com/dmitrijs2005/blogd/internal/server/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *HTTPServer) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(logging.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func (s *HTTPServer) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// admit bounds the request with the timeout, runs it through the gate and
// records its outcome.
func (s *HTTPServer) admit(op authz.Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		ctx := c.Request.Context()
		if s.opts.RequestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.opts.RequestTimeout)
			defer cancel()
		}

		ctx, err := s.gate.Admit(ctx, op, c.GetHeader(common.AuthorizationHeaderName), c.ClientIP())
		if err != nil {
			s.fail(c, err)
		} else {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		}

		var outcome error
		if last := c.Errors.Last(); last != nil {
			outcome = last.Err
		}
		s.metrics.Observe(metrics.TransportHTTP, op, outcome, time.Since(start))
	}
}

// fail renders err through errmap and stops the chain.
func (s *HTTPServer) fail(c *gin.Context, err error) {
	kind, m, msg := errmap.Resolve(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(m.HTTPStatus, errorResponse{Code: string(kind), Message: msg})
}
