package routes

import (
	"github.com/modulrcloud/counter-relay/http_pack/helpers"

	"github.com/valyala/fasthttp"
)

func Health(ctx *fasthttp.RequestCtx) {
	helpers.WriteJSONBytes(ctx, fasthttp.StatusOK, []byte(`{"ok":true}`))
}
