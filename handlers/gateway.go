package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/gateway/internal/counter"
	"github.com/gogotex/gateway/internal/search"
	"github.com/gogotex/gateway/pkg/logger"
)

// Counter is the counter-store dependency of GET /point.
type Counter interface {
	Incr(ctx context.Context) counter.Result
	Ping(ctx context.Context) error
}

// Deps holds the backend handles the routes forward to.
type Deps struct {
	Counter   Counter
	Search    search.Engine
	StartedAt time.Time
	// ReadyTimeout bounds each dependency probe of GET /ready.
	ReadyTimeout time.Duration
}

// Register wires every gateway route onto r.
func Register(r *gin.Engine, d Deps) {
	r.GET("/health", Health)
	r.GET("/print", Print)
	r.GET("/ready", d.Ready)
	r.GET("/point", Point(d.Counter))

	NewSearchHandler(d.Search).Register(r.Group("/es"))
	RegisterSwagger(r)
}

// Health is a static liveness answer; it never consults a backend.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Print emits exactly one log line at any log level.
func Print(c *gin.Context) {
	logger.Printf("/print endpoint called")
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Point increments the shared counter. A counter-store failure is reported in
// the body with status 200, unlike the search routes.
func Point(store Counter) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := store.Incr(c.Request.Context())
		if !res.OK() {
			c.JSON(http.StatusOK, gin.H{"status": "error", "detail": res.Reason})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "points": res.Value})
	}
}

// Ready returns 200 only when both backends answer a ping.
func (d Deps) Ready(c *gin.Context) {
	timeout := d.ReadyTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	probe := func(ping func(context.Context) error) bool {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		return ping(ctx) == nil
	}

	checks := []struct {
		name string
		ok   bool
	}{
		{"redis", d.Counter != nil && probe(d.Counter.Ping)},
		{"elasticsearch", d.Search != nil && probe(d.Search.Ping)},
	}
	deps := make(map[string]bool, len(checks))
	ready := true
	for _, chk := range checks {
		deps[chk.name] = chk.ok
		if !chk.ok {
			logger.Warnf("readiness: %s unavailable", chk.name)
			ready = false
		}
	}

	uptime := time.Since(d.StartedAt).Round(time.Second).String()
	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "deps": deps, "uptime": uptime})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "deps": deps, "uptime": uptime})
}
