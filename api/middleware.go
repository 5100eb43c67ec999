package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"

	"github.com/Domenick1991/airline-ticketing/internal/metrics"
)

const (
	ctxEmail   = "identity.email"
	ctxIsAdmin = "identity.admin"
	ctxAuthed  = "identity.authenticated"

	groupsClaim = "cognito:groups"
)

// Identity reads a Bearer token issued by the identity provider, if present.
// It never rejects a request; RequireAdmin decides what an anonymous or
// invalid caller may do.
func Identity(signingKey, adminGroup string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if signingKey == "" || !strings.HasPrefix(auth, "Bearer ") {
			c.Next()
			return
		}
		raw := strings.TrimPrefix(auth, "Bearer ")

		tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			return []byte(signingKey), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !tok.Valid {
			c.Next()
			return
		}
		claims, ok := tok.Claims.(jwt.MapClaims)
		if !ok {
			c.Next()
			return
		}

		c.Set(ctxAuthed, true)
		if email, ok := claims["email"].(string); ok {
			c.Set(ctxEmail, email)
		}
		c.Set(ctxIsAdmin, inGroup(claims[groupsClaim], adminGroup))
		c.Next()
	}
}

func inGroup(claim any, group string) bool {
	switch groups := claim.(type) {
	case []any:
		for _, g := range groups {
			if s, ok := g.(string); ok && s == group {
				return true
			}
		}
	case string:
		return groups == group
	}
	return false
}

// RequireAdmin answers 401 without a valid identity and 403 without the admin group.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(ctxAuthed) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if !c.GetBool(ctxIsAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			return
		}
		c.Next()
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	rps   rate.Limit
	burst int

	mu       sync.Mutex
	visitors map[string]*visitor
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		visitors: make(map[string]*visitor),
	}
}

func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.limiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}

func (l *RateLimiter) limiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, exists := l.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// Cleanup forgets visitors idle for longer than idle, every interval, until ctx ends.
func (l *RateLimiter) Cleanup(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.mu.Lock()
			for ip, v := range l.visitors {
				if time.Since(v.lastSeen) > idle {
					delete(l.visitors, ip)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Monitor records request counts and latency by route template.
func Monitor(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.ObserveHTTP(path, c.Request.Method, strconv.Itoa(c.Writer.Status()), time.Since(start).Seconds())
	}
}

var errNoIdentity = errors.New("no identity")

// CallerEmail returns the email claim of an authenticated caller.
func CallerEmail(c *gin.Context) (string, error) {
	email := c.GetString(ctxEmail)
	if email == "" {
		return "", errNoIdentity
	}
	return email, nil
}
