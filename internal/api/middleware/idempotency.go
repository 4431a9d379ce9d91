package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"parking_allocator/internal/service"
)

const IdempotencyKeyHeader = "Idempotency-Key"

type KeyClaimer interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Idempotency rejects a replayed Idempotency-Key with 409. Keys are scoped to
// the caller and freed again when the request fails, so the client may retry.
// Requests without the header pass through.
func Idempotency(claimer KeyClaimer) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}
		if p, ok := PrincipalFrom(c); ok {
			key = strconv.Itoa(p.UserID) + ":" + key
		}

		ctx := c.Request.Context()
		claimed, err := claimer.Claim(ctx, key)
		if err != nil {
			zap.L().Warn("idempotency store unavailable, request not deduplicated", zap.Error(err))
			c.Next()
			return
		}
		if !claimed {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": service.ErrDuplicateRequest.Error()})
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			if err := claimer.Release(context.WithoutCancel(ctx), key); err != nil {
				zap.L().Warn("could not release idempotency key", zap.Error(err))
			}
		}
	}
}
