// Package rpc_pack is a Sui fullnode JSON-RPC client implementing ledger.Client over fasthttp.
package rpc_pack

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/modulrcloud/counter-relay/ledger"

	"github.com/valyala/fasthttp"
)

var _ ledger.Client = (*Client)(nil)

const (
	defaultTimeout         = 30 * time.Second
	defaultPollInterval    = 1 * time.Second
	defaultFinalityTimeout = 60 * time.Second
)

type Client struct {
	endpoint        string
	http            *fasthttp.Client
	timeout         time.Duration
	pollInterval    time.Duration
	finalityTimeout time.Duration
	nextID          atomic.Uint64
}

type Option func(*Client)

// WithDial replaces the transport dialer. Tests pass an in-memory listener's Dial here.
func WithDial(dial fasthttp.DialFunc) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func WithPollInterval(interval time.Duration) Option {
	return func(c *Client) {
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

func WithFinalityTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.finalityTimeout = timeout
		}
	}
}

func NewClient(endpoint string, opts ...Option) *Client {

	c := &Client{
		endpoint: endpoint,
		http: &fasthttp.Client{
			Name:                "counter-relay",
			MaxConnsPerHost:     64,
			MaxIdleConnDuration: 90 * time.Second,
			ReadTimeout:         defaultTimeout,
			WriteTimeout:        defaultTimeout,
		},
		timeout:         defaultTimeout,
		pollInterval:    defaultPollInterval,
		finalityTimeout: defaultFinalityTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) Endpoint() string { return c.endpoint }

// call performs one JSON-RPC 2.0 round trip and decodes the result into result (when non-nil).
func (c *Client) call(ctx context.Context, method string, params []any, result any) error {

	if params == nil {
		params = []any{}
	}

	body, err := json.Marshal(Request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	})
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", method, err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.endpoint)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	if deadline, ok := ctx.Deadline(); ok {
		err = c.http.DoDeadline(req, resp, deadline)
	} else {
		err = c.http.DoTimeout(req, resp, c.timeout)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", method, ctxErr)
		}
		return fmt.Errorf("%s: %w", method, err)
	}

	var envelope Response
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		if resp.StatusCode() != fasthttp.StatusOK {
			return fmt.Errorf("%s: http status %d", method, resp.StatusCode())
		}
		return fmt.Errorf("%s: unmarshal response: %w", method, err)
	}

	if envelope.Error != nil {
		envelope.Error.Method = method
		return envelope.Error
	}

	if result != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("%s: unmarshal result: %w", method, err)
		}
	}

	return nil
}
