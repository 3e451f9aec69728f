package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/exact3design/soundcard/internal/apperr"
	"github.com/exact3design/soundcard/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	rd "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// slidingWindow trims the window, counts it, and records the request when the
// count is under the limit, all in one round trip.
// KEYS[1]=key ARGV[1]=now ms ARGV[2]=window start ms ARGV[3]=window ms ARGV[4]=member ARGV[5]=limit
// Returns the count including this request, or -1 when limited.
var slidingWindow = rd.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local windowStart = tonumber(ARGV[2])
local windowMs = tonumber(ARGV[3])
local member = ARGV[4]
local limit = tonumber(ARGV[5])

redis.call('ZREMRANGEBYSCORE', key, '0', windowStart)
local count = redis.call('ZCARD', key)
if count < limit then
  redis.call('ZADD', key, now, member)
  redis.call('PEXPIRE', key, windowMs)
  return count + 1
end
return -1
`)

// RateLimit caps requests per client IP within a sliding window shared through
// Redis. A nil client disables the limiter; Redis errors let the request through.
func RateLimit(rdb rd.Scripter, scope string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || limit <= 0 || window <= 0 {
			c.Next()
			return
		}

		key := fmt.Sprintf("soundcard:rate:%s:%s", scope, c.ClientIP())
		now := time.Now()
		nowMs := now.UnixMilli()
		windowMs := window.Milliseconds()
		member := strconv.FormatInt(now.UnixNano(), 10) + "-" + uuid.NewString()

		res, errEval := slidingWindow.Run(c.Request.Context(), rdb, []string{key},
			nowMs, nowMs-windowMs, windowMs, member, limit).Int()
		if errEval != nil {
			log.WithError(errEval).WithField("scope", scope).Debug("rate limit: redis unavailable, allowing request")
			c.Next()
			return
		}
		if res < 0 {
			metrics.RateLimited.WithLabelValues(routeLabel(c)).Inc()
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   string(apperr.KindRateLimited),
				"message": "Too many requests. Please slow down and try again.",
			})
			return
		}
		c.Next()
	}
}
