package http_pack

import (
	"sync"
	"time"

	"github.com/modulrcloud/counter-relay/http_pack/helpers"
	"github.com/modulrcloud/counter-relay/utils"

	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
)

const (
	headerRequestID    = "X-Request-ID"
	userValueRequestID = "requestId"

	maxTrackedClients = 10_000
	clientIdleTTL     = 3 * time.Minute
)

// withRequestID reuses the caller's X-Request-ID or issues a new one.
func withRequestID(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		requestID := string(ctx.Request.Header.Peek(headerRequestID))
		if requestID == "" {
			requestID = uuid.New().String()
		}
		ctx.SetUserValue(userValueRequestID, requestID)
		ctx.Response.Header.Set(headerRequestID, requestID)
		next(ctx)
	}
}

func requestIDOf(ctx *fasthttp.RequestCtx) string {
	id, _ := ctx.UserValue(userValueRequestID).(string)
	return id
}

// routeOf is the matched route pattern, so metrics stay bounded regardless of path parameters.
func routeOf(ctx *fasthttp.RequestCtx) string {
	if route, ok := ctx.UserValue(router.MatchedRoutePathParam).(string); ok && route != "" {
		return route
	}
	return "unmatched"
}

func withAccessLog(metrics *utils.Metrics, next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {

		start := time.Now()
		next(ctx)
		took := time.Since(start)

		status := ctx.Response.StatusCode()
		method := string(ctx.Method())
		route := routeOf(ctx)

		metrics.ObserveRequest(method, route, status, took)

		level := zapcore.InfoLevel
		switch {
		case status >= fasthttp.StatusInternalServerError:
			level = zapcore.ErrorLevel
		case status >= fasthttp.StatusBadRequest:
			level = zapcore.WarnLevel
		}

		utils.LogWithTime("HTTP request", level,
			zap.String("requestId", requestIDOf(ctx)),
			zap.String("method", method),
			zap.ByteString("path", ctx.Path()),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("took", took),
		)
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiter is a token bucket per remote IP.
type clientLimiter struct {
	mu       sync.Mutex
	rps      rate.Limit
	burst    int
	visitors map[string]*visitor
}

// newClientLimiter returns nil (no limiting) when rps is not positive.
func newClientLimiter(rps float64, burst int) *clientLimiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &clientLimiter{rps: rate.Limit(rps), burst: burst, visitors: make(map[string]*visitor)}
}

func (l *clientLimiter) allow(client string, now time.Time) bool {

	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[client]
	if !ok {
		if len(l.visitors) >= maxTrackedClients {
			l.evict(now)
		}
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[client] = v
	}
	v.lastSeen = now

	return v.limiter.AllowN(now, 1)
}

// evict drops idle clients, or the least recently seen one when none is idle.
func (l *clientLimiter) evict(now time.Time) {

	var oldest string
	var oldestSeen time.Time
	found := false

	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) > clientIdleTTL {
			delete(l.visitors, ip)
			continue
		}
		if !found || v.lastSeen.Before(oldestSeen) {
			oldest, oldestSeen, found = ip, v.lastSeen, true
		}
	}

	if len(l.visitors) >= maxTrackedClients {
		delete(l.visitors, oldest)
	}
}

// withRateLimit throttles mutating requests only; reads go straight through.
func withRateLimit(limiter *clientLimiter, next fasthttp.RequestHandler) fasthttp.RequestHandler {
	if limiter == nil {
		return next
	}
	return func(ctx *fasthttp.RequestCtx) {

		if !ctx.IsPost() {
			next(ctx)
			return
		}

		client := ctx.RemoteIP().String()
		if !limiter.allow(client, time.Now()) {
			utils.LogWithTimeThrottled("ratelimit:"+client, 10*time.Second, "Rate limit exceeded", zapcore.WarnLevel,
				zap.String("client", client), zap.ByteString("path", ctx.Path()))
			helpers.WriteErr(ctx, fasthttp.StatusTooManyRequests, "Too many requests")
			return
		}

		next(ctx)
	}
}
