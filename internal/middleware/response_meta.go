package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const responseMetaKey = "response_meta"

// Keys written into the envelope meta by analytics endpoints.
const (
	MetaCacheHit    = "cache_hit"
	MetaGranularity = "granularity"
	MetaPeriods     = "periods"
	MetaFrom        = "from"
	MetaTo          = "to"
)

// WithResponseMeta gives every request an empty meta map handlers can fill.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaKey, map[string]interface{}{})
		c.Next()
	}
}

// SetCacheHit records whether the payload came from the analytics cache.
func SetCacheHit(c *gin.Context, hit bool) {
	metaFor(c)[MetaCacheHit] = hit
}

// SetTrendWindow records the bucketing a trend was computed with. Unset bounds
// are omitted.
func SetTrendWindow(c *gin.Context, granularity string, from, to *time.Time, periods int) {
	meta := metaFor(c)
	meta[MetaGranularity] = granularity
	meta[MetaPeriods] = periods
	if from != nil {
		meta[MetaFrom] = from.UTC().Format(time.RFC3339)
	}
	if to != nil {
		meta[MetaTo] = to.UTC().Format(time.RFC3339)
	}
}

// ExtractMeta returns the meta map stored on the context, or nil.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	if value, ok := c.Get(responseMetaKey); ok {
		if meta, ok := value.(map[string]interface{}); ok {
			return meta
		}
	}
	return nil
}

func metaFor(c *gin.Context) map[string]interface{} {
	if meta := ExtractMeta(c); meta != nil {
		return meta
	}
	meta := make(map[string]interface{})
	if c != nil {
		c.Set(responseMetaKey, meta)
	}
	return meta
}
