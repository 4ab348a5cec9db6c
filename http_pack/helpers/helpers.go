package helpers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/valyala/fasthttp"
)

var ErrInvalidBody = errors.New("request body must be a JSON object")

type errResponse struct {
	Error string `json:"error"`
}

func setJSONHeaders(ctx *fasthttp.RequestCtx) {
	ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
	ctx.SetContentType("application/json")
}

func WriteErr(ctx *fasthttp.RequestCtx, status int, msg string) {
	setJSONHeaders(ctx)
	ctx.SetStatusCode(status)
	if payload, err := json.Marshal(errResponse{Error: msg}); err == nil {
		ctx.Write(payload)
		return
	}
	ctx.Write([]byte(`{"error":"marshal failed"}`))
}

func WriteJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	setJSONHeaders(ctx)
	data, err := json.Marshal(v)
	if err != nil {
		WriteErr(ctx, fasthttp.StatusInternalServerError, "Failed to marshal response")
		return
	}
	ctx.SetStatusCode(status)
	ctx.Write(data)
}

func WriteJSONBytes(ctx *fasthttp.RequestCtx, status int, raw []byte) {
	setJSONHeaders(ctx)
	ctx.SetStatusCode(status)
	ctx.Write(raw)
}

// ParseBody decodes an optional JSON object body. An empty body yields an empty map.
// Numbers are kept as json.Number so large gas values survive intact.
func ParseBody(ctx *fasthttp.RequestCtx) (map[string]any, error) {

	raw := bytes.TrimSpace(ctx.PostBody())
	if len(raw) == 0 {
		return map[string]any{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	if body == nil {
		body = map[string]any{}
	}

	return body, nil
}

// StringParam returns the first non-empty string found under name in the body, then the query.
func StringParam(body map[string]any, query *fasthttp.Args, name string) string {

	if v, ok := body[name].(string); ok && v != "" {
		return v
	}

	if query != nil {
		return string(query.Peek(name))
	}

	return ""
}
