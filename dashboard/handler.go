package dashboard

import (
	"encoding/json"
	"time"

	"github.com/modulrcloud/counter-relay/handlers"

	"github.com/valyala/fasthttp"
)

type OverviewResponse struct {
	Network          string         `json:"network"`
	RpcUrl           string         `json:"rpcUrl"`
	Signer           string         `json:"signer"`
	IdentitySource   string         `json:"identitySource"`
	PackageId        string         `json:"packageId"`
	DefaultCounterId string         `json:"defaultCounterId"`
	StartedAt        int64          `json:"startedAt"`
	Uptime           string         `json:"uptime"`
	NodeConfig       NodeConfigSafe `json:"nodeConfig"`
}

// NodeConfigSafe is the part of the configuration that can be shown without leaking secrets.
type NodeConfigSafe struct {
	Interface       string  `json:"interface"`
	Port            int     `json:"port"`
	RpcTimeout      string  `json:"rpcTimeout"`
	FinalityTimeout string  `json:"finalityTimeout"`
	RateLimitRps    float64 `json:"rateLimitRps"`
	RateLimitBurst  int     `json:"rateLimitBurst"`
}

func ServeOverview(relay *handlers.Relay) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
		ctx.SetContentType("application/json")

		resp := OverviewResponse{
			Signer:    relay.SignerAddress(),
			PackageId: relay.PackageId(),
			StartedAt: relay.StartedAt.UnixMilli(),
			Uptime:    time.Since(relay.StartedAt).Truncate(time.Second).String(),
		}

		if relay.Identity != nil {
			resp.IdentitySource = relay.Identity.Source()
		}

		if cfg := relay.Config; cfg != nil {
			resp.Network = cfg.Network
			resp.RpcUrl = cfg.RpcUrl
			resp.DefaultCounterId = cfg.CounterId
			resp.NodeConfig = NodeConfigSafe{
				Interface:       cfg.Interface,
				Port:            cfg.Port,
				RpcTimeout:      cfg.RpcTimeout.String(),
				FinalityTimeout: cfg.FinalityTimeout.String(),
				RateLimitRps:    cfg.RateLimitRps,
				RateLimitBurst:  cfg.RateLimitBurst,
			}
		}

		writeJSON(ctx, resp)
	}
}

func writeJSON(ctx *fasthttp.RequestCtx, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.WriteString(`{"error":"marshal failed"}`)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.Write(data)
}
