package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// rateWindow tracks request counts for a single client IP.
type rateWindow struct {
	count     int
	expiresAt time.Time
}

// RateLimiter limits requests per IP address within a fixed time window.
// Bookmark writes sit behind this so a single client cannot inflate counters.
func RateLimiter(maxRequests int, window time.Duration) gin.HandlerFunc {
	var mu sync.Mutex
	windows := make(map[string]*rateWindow)

	// Expired entries are swept once per window.
	go func() {
		ticker := time.NewTicker(window)
		defer ticker.Stop()
		for range ticker.C {
			mu.Lock()
			now := time.Now()
			for ip, w := range windows {
				if now.After(w.expiresAt) {
					delete(windows, ip)
				}
			}
			mu.Unlock()
		}
	}()

	return func(c *gin.Context) {
		ip := clientIP(c)

		mu.Lock()
		now := time.Now()
		w, exists := windows[ip]
		if !exists || now.After(w.expiresAt) {
			windows[ip] = &rateWindow{count: 1, expiresAt: now.Add(window)}
			mu.Unlock()
			c.Next()
			return
		}

		w.count++
		exceeded := w.count > maxRequests
		mu.Unlock()

		if exceeded {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

func clientIP(c *gin.Context) string {
	ip, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil || ip == "" {
		return c.Request.RemoteAddr
	}
	return ip
}
