package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	idempotencyHeader   = "Idempotency-Key"
	idempotencyReplayed = "Idempotent-Replayed"
	idempotencyTTL      = 24 * time.Hour
	idempotencyInFlight = 30 * time.Second
)

// IdempotencyStore is the subset of the Redis client the middleware uses.
// *redis.Client satisfies it.
type IdempotencyStore interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

var _ IdempotencyStore = (*redis.Client)(nil)

// idempotencyRecord is what is stored under an idempotency key. A record
// without a status code belongs to a request that is still being processed.
type idempotencyRecord struct {
	Fingerprint string          `json:"fingerprint"`
	StatusCode  int             `json:"status_code,omitempty"`
	ContentType string          `json:"content_type,omitempty"`
	Body        json.RawMessage `json:"body,omitempty"`
}

func (r *idempotencyRecord) pending() bool {
	return r.StatusCode == 0
}

// bodyRecorder tees the response body so it can be stored.
type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// IdempotencyMiddleware makes mutating requests that carry an Idempotency-Key
// safe to retry. The first request claims the key with SETNX and its response
// is stored; a retry with the same key and body gets the stored response
// replayed, so an accept or COMPLETED never reaches the dispatch service
// twice. A retry while the first is still running gets 409, and reusing a key
// with a different body gets 422. Responses with 5xx release the key.
// Redis failures disable the guard for that request.
func IdempotencyMiddleware(client IdempotencyStore, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			c.Next()
			return
		}

		key := c.GetHeader(idempotencyHeader)
		if key == "" {
			c.Next()
			return
		}

		fingerprint, err := fingerprintBody(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		ctx := c.Request.Context()
		storeKey := "idempotency:" + c.Request.Method + ":" + c.Request.URL.Path + ":" + key
		log := logger.With(zap.String("idempotency_key", storeKey))

		claimed, err := claimKey(ctx, client, storeKey, fingerprint)
		if err != nil {
			log.Warn("idempotency claim failed", zap.Error(err))
			c.Next()
			return
		}

		if !claimed {
			existing, err := loadRecord(ctx, client, storeKey)
			if err != nil {
				if !errors.Is(err, redis.Nil) {
					log.Warn("idempotency lookup failed", zap.Error(err))
				}
				c.Next()
				return
			}

			switch {
			case existing.Fingerprint != fingerprint:
				c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "idempotency key reused with a different request"})
			case existing.pending():
				c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "request with this idempotency key is in progress"})
			default:
				c.Header(idempotencyReplayed, "true")
				c.Data(existing.StatusCode, existing.ContentType, existing.Body)
				c.Abort()
			}
			return
		}

		rec := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec

		c.Next()

		status := rec.Status()
		if status >= http.StatusInternalServerError {
			if err := client.Del(ctx, storeKey).Err(); err != nil {
				log.Warn("idempotency release failed", zap.Error(err))
			}
			return
		}

		done := idempotencyRecord{
			Fingerprint: fingerprint,
			StatusCode:  status,
			ContentType: rec.Header().Get("Content-Type"),
			Body:        rec.body.Bytes(),
		}
		if err := storeRecord(ctx, client, storeKey, &done, idempotencyTTL); err != nil {
			log.Warn("idempotency store failed", zap.Error(err))
		}
	}
}

// fingerprintBody hashes the request body and puts it back for the handler.
func fingerprintBody(c *gin.Context) (string, error) {
	var body []byte
	if c.Request.Body != nil {
		var err error
		body, err = io.ReadAll(c.Request.Body)
		if err != nil {
			return "", err
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
	}

	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:]), nil
}

func claimKey(ctx context.Context, client IdempotencyStore, key, fingerprint string) (bool, error) {
	data, err := json.Marshal(idempotencyRecord{Fingerprint: fingerprint})
	if err != nil {
		return false, err
	}
	return client.SetNX(ctx, key, data, idempotencyInFlight).Result()
}

func loadRecord(ctx context.Context, client IdempotencyStore, key string) (*idempotencyRecord, error) {
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}

	var rec idempotencyRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func storeRecord(ctx context.Context, client IdempotencyStore, key string, rec *idempotencyRecord, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, data, ttl).Err()
}
