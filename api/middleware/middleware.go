package middleware

import (
	"contract-insight/api/response"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	UserHeader = "X-User-ID"
	userKey    = "user_id"
)

// UserIdentity 登录不在本服务范围内，由网关把用户 ID 放在请求头里
func UserIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(UserHeader))
		if userID == "" || len(userID) > 64 {
			response.Abort(c, http.StatusUnauthorized, "missing or invalid "+UserHeader+" header")
			return
		}
		c.Set(userKey, userID)
		c.Next()
	}
}

func UserID(c *gin.Context) string {
	return c.GetString(userKey)
}

// idleTTL 远大于令牌桶回满的时间（一分钟），闲置超过它的桶与新建的桶等价，可以直接丢弃
const idleTTL = 10 * time.Minute

type userLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// UserRateLimiter 每个用户一个令牌桶，闲置的桶定期清理
type UserRateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*userLimiter
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

// NewUserRateLimiter perMinute <= 0 表示不限流
func NewUserRateLimiter(perMinute int) *UserRateLimiter {
	l := &UserRateLimiter{limiters: make(map[string]*userLimiter), now: time.Now}
	l.lastSweep = l.now()
	if perMinute <= 0 {
		l.limit = rate.Inf
		l.burst = 1
		return l
	}
	l.limit = rate.Every(time.Minute / time.Duration(perMinute))
	l.burst = perMinute
	return l
}

func (l *UserRateLimiter) Allow(userID string) bool {
	l.mu.Lock()
	now := l.now()
	if now.Sub(l.lastSweep) >= idleTTL {
		l.sweep(now)
	}
	ul, ok := l.limiters[userID]
	if !ok {
		ul = &userLimiter{lim: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[userID] = ul
	}
	ul.lastSeen = now
	l.mu.Unlock()
	return ul.lim.AllowN(now, 1)
}

// sweep 调用方持有 l.mu
func (l *UserRateLimiter) sweep(now time.Time) {
	for id, ul := range l.limiters {
		if now.Sub(ul.lastSeen) >= idleTTL {
			delete(l.limiters, id)
		}
	}
	l.lastSweep = now
}

func (l *UserRateLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// Handler 必须挂在 UserIdentity 之后
func (l *UserRateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := UserID(c)
		if !l.Allow(userID) {
			zap.L().Warn("rate limited", zap.String("user_id", userID), zap.String("path", c.FullPath()))
			response.Abort(c, http.StatusTooManyRequests, "too many requests, please slow down")
			return
		}
		c.Next()
	}
}
