package routes

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/modulrcloud/counter-relay/cryptography"
	"github.com/modulrcloud/counter-relay/events"
	"github.com/modulrcloud/counter-relay/handlers"
	"github.com/modulrcloud/counter-relay/http_pack/helpers"
	"github.com/modulrcloud/counter-relay/ledger"
	"github.com/modulrcloud/counter-relay/structures"
	"github.com/modulrcloud/counter-relay/utils"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

type transactionResponse struct {
	Digest         string                            `json:"digest"`
	Status         *string                           `json:"status"`
	Error          *string                           `json:"error"`
	EventTypes     []string                          `json:"eventTypes"`
	Events         []structures.RawEvent             `json:"events"`
	TxStatusEvents []structures.ExtractedStatusEvent `json:"txStatusEvents"`
}

// GetTransactionByDigest reports a finalized transaction with its decoded status events.
// The body is immutable once final, so it is tagged with a content hash for conditional requests.
func GetTransactionByDigest(relay *handlers.Relay) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {

		digest, _ := ctx.UserValue("digest").(string)

		if !cryptography.IsValidDigest(digest) {
			helpers.WriteErr(ctx, fasthttp.StatusBadRequest, "Invalid transaction digest")
			return
		}

		result, err := relay.Ledger.GetTransaction(context.Background(), digest, ledger.FullResponse)
		if err != nil {
			utils.Log().Warn("Transaction lookup failed", zap.String("digest", digest), zap.Error(err))
			helpers.WriteErr(ctx, fasthttp.StatusInternalServerError, err.Error())
			return
		}

		resp := transactionResponse{
			Digest:         result.Digest,
			Error:          result.StatusError(),
			EventTypes:     result.EventTypes(),
			Events:         eventsOf(result),
			TxStatusEvents: events.Extract(result.Events),
		}
		if result.Effects != nil {
			status := result.Effects.Status.Status
			resp.Status = &status
		}

		data, err := json.Marshal(resp)
		if err != nil {
			helpers.WriteErr(ctx, fasthttp.StatusInternalServerError, "Failed to marshal response")
			return
		}

		etag := `"` + utils.Blake3(data) + `"`
		ctx.Response.Header.Set(fasthttp.HeaderETag, etag)

		if bytes.Equal(ctx.Request.Header.Peek(fasthttp.HeaderIfNoneMatch), []byte(etag)) {
			ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
			ctx.SetStatusCode(fasthttp.StatusNotModified)
			return
		}

		helpers.WriteJSONBytes(ctx, fasthttp.StatusOK, data)
	}
}
