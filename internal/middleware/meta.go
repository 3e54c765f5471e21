package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// Handlers serving cache-backed reads stamp their envelope meta through this
// package. The middleware seeds the map per request and fills in the elapsed
// time for handlers that never measured their own.

const envelopeMetaKey = "envelope_meta"

// WithResponseMeta seeds an envelope meta map on every request.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Set(envelopeMetaKey, map[string]interface{}{})
		c.Next()

		meta := metaFrom(c)
		if _, ok := meta["processing_time_ms"]; !ok {
			meta["processing_time_ms"] = time.Since(started).Milliseconds()
		}
	}
}

// SetCacheHit marks whether the response was served from cache.
func SetCacheHit(c *gin.Context, hit bool) {
	metaFrom(c)["cache_hit"] = hit
}

// ExtractMeta returns the request's envelope meta map, or nil when the
// middleware is not installed.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	if value, ok := c.Get(envelopeMetaKey); ok {
		if meta, ok := value.(map[string]interface{}); ok {
			return meta
		}
	}
	return nil
}

// metaFrom always yields a usable map, attaching a fresh one when the
// middleware is absent. Handler unit tests drive contexts without it.
func metaFrom(c *gin.Context) map[string]interface{} {
	if c == nil {
		return map[string]interface{}{}
	}
	if meta := ExtractMeta(c); meta != nil {
		return meta
	}
	meta := map[string]interface{}{}
	c.Set(envelopeMetaKey, meta)
	return meta
}
