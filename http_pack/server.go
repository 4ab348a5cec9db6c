package http_pack

import (
	"fmt"
	"time"

	"github.com/modulrcloud/counter-relay/dashboard"
	"github.com/modulrcloud/counter-relay/handlers"
	"github.com/modulrcloud/counter-relay/http_pack/helpers"
	"github.com/modulrcloud/counter-relay/http_pack/routes"
	"github.com/modulrcloud/counter-relay/utils"

	"github.com/fasthttp/router"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func preflight(ctx *fasthttp.RequestCtx) {
	ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
	ctx.Response.Header.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	ctx.Response.Header.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID, If-None-Match")
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

func CreateRouter(relay *handlers.Relay) fasthttp.RequestHandler {

	r := router.New()
	r.SaveMatchedRoutePath = true
	r.GlobalOPTIONS = preflight

	r.NotFound = func(ctx *fasthttp.RequestCtx) {
		helpers.WriteErr(ctx, fasthttp.StatusNotFound, "Not found")
	}

	r.PanicHandler = func(ctx *fasthttp.RequestCtx, recovered any) {
		utils.Log().Error("Handler panic", zap.Any("panic", recovered), zap.ByteString("path", ctx.Path()))
		helpers.WriteErr(ctx, fasthttp.StatusInternalServerError, "Internal server error")
	}

	r.GET("/health", routes.Health)

	r.GET("/tx/{digest}", routes.GetTransactionByDigest(relay))
	r.GET("/debug/module", routes.GetModuleInfo(relay))

	r.POST("/create", routes.CreateCounter(relay))
	r.POST("/increment", routes.IncrementCounter(relay))
	r.POST("/reset", routes.ResetCounter(relay))
	r.GET("/value", routes.GetCounterValue(relay))

	// Observability
	r.GET("/dashboard/api/overview", dashboard.ServeOverview(relay))
	if relay.Metrics != nil {
		r.GET("/metrics", fasthttpadaptor.NewFastHTTPHandler(
			promhttp.HandlerFor(relay.Metrics.Registry, promhttp.HandlerOpts{}),
		))
	}

	limiter := newClientLimiter(relay.Config.RateLimitRps, relay.Config.RateLimitBurst)

	return withRequestID(withAccessLog(relay.Metrics, withRateLimit(limiter, r.Handler)))
}

// NewHTTPServer has no write timeout: mutating requests wait for finality.
func NewHTTPServer(relay *handlers.Relay) *fasthttp.Server {
	return &fasthttp.Server{
		Handler:            CreateRouter(relay),
		Name:               "counter-relay",
		ReadTimeout:        30 * time.Second,
		IdleTimeout:        90 * time.Second,
		MaxRequestBodySize: 64 * 1024,
	}
}

func CreateHTTPServer(server *fasthttp.Server, addr string) error {

	utils.LogWithTime(fmt.Sprintf("Server is starting at http://%s ...✅", addr), zapcore.InfoLevel)

	if err := server.ListenAndServe(addr); err != nil {
		utils.LogWithTime(fmt.Sprintf("Error in server: %s", err), zapcore.ErrorLevel)
		return err
	}

	return nil
}
