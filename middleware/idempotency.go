package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mindbridge/utils"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	ReplayedHeader    = "Idempotent-Replayed"
)

// IdempotencyStore persists request claims and completed responses.
type IdempotencyStore interface {
	Reserve(ctx context.Context, key, fingerprint string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (*utils.IdempotencyRecord, error)
	Complete(ctx context.Context, key string, rec utils.IdempotencyRecord, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

type recordingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *recordingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// IdempotencyMiddleware replays the stored response when a caller repeats an
// Idempotency-Key. Requests without the header pass through. Server errors
// release the key so the caller can retry.
func IdempotencyMiddleware(store IdempotencyStore, ttl time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(IdempotencyHeader)
		if header == "" {
			c.Next()
			return
		}
		if len(header) > 255 {
			utils.JSONError(c, utils.ValidationError("Idempotency-Key is too long."))
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			utils.JSONError(c, utils.ValidationError("Unable to read request body."))
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		sum := sha256.Sum256(body)
		fingerprint := hex.EncodeToString(sum[:])

		key := scopeKey(c, header)
		ctx := c.Request.Context()

		claimed, err := store.Reserve(ctx, key, fingerprint, ttl)
		if err != nil {
			logger.Error("Idempotency store unavailable; continuing without it", zap.Error(err))
			c.Next()
			return
		}
		if !claimed {
			replay(c, store, key, fingerprint, logger)
			return
		}

		w := &recordingWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		// Detached from the request so a client disconnect cannot skip the write.
		saveCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		status := w.Status()
		if status >= http.StatusInternalServerError {
			if err := store.Release(saveCtx, key); err != nil {
				logger.Warn("Failed to release idempotency key", zap.String("key", key), zap.Error(err))
			}
			return
		}
		rec := utils.IdempotencyRecord{Status: status, Body: w.body.Bytes(), Fingerprint: fingerprint, CreatedAt: time.Now()}
		if err := store.Complete(saveCtx, key, rec, ttl); err != nil {
			logger.Warn("Failed to store idempotent response", zap.String("key", key), zap.Error(err))
		}
	}
}

func replay(c *gin.Context, store IdempotencyStore, key, fingerprint string, logger *zap.Logger) {
	rec, err := store.Get(c.Request.Context(), key)
	if errors.Is(err, utils.ErrIdempotencyMiss) {
		utils.JSONError(c, utils.ConflictError("A request with this Idempotency-Key is still being processed."))
		return
	}
	if err != nil {
		logger.Error("Failed to load idempotency record", zap.String("key", key), zap.Error(err))
		utils.JSONError(c, utils.InternalError("Unable to process request. Please try again later.", err))
		return
	}
	if rec.Fingerprint != fingerprint {
		utils.JSONError(c, utils.ValidationError("Idempotency-Key was reused with a different request."))
		return
	}
	if rec.Status == 0 {
		utils.JSONError(c, utils.ConflictError("A request with this Idempotency-Key is still being processed."))
		return
	}
	c.Header(ReplayedHeader, "true")
	c.Data(rec.Status, "application/json; charset=utf-8", rec.Body)
	c.Abort()
}

func scopeKey(c *gin.Context, key string) string {
	owner := "anonymous"
	if identity, ok := IdentityFrom(c); ok {
		owner = identity.UserID
	}
	return owner + ":" + c.Request.Method + ":" + c.FullPath() + ":" + key
}
