package rpc_pack

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/modulrcloud/counter-relay/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

type rpcHandler func(params []json.RawMessage) (any, *RPCError)

type fakeFullnode struct {
	mu       sync.Mutex
	handlers map[string]rpcHandler
	calls    map[string]int
}

func (f *fakeFullnode) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeFullnode) serve(ctx *fasthttp.RequestCtx) {

	var req struct {
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
		ID     uint64            `json:"id"`
	}
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.calls[req.Method]++
	handler, ok := f.handlers[req.Method]
	f.mu.Unlock()

	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	if !ok {
		resp["error"] = &RPCError{Code: -32601, Message: "Method not found"}
	} else if result, rpcErr := handler(req.Params); rpcErr != nil {
		resp["error"] = rpcErr
	} else {
		resp["result"] = result
	}

	body, _ := json.Marshal(resp)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

func startFullnode(t *testing.T, handlers map[string]rpcHandler) (*Client, *fakeFullnode) {
	t.Helper()

	node := &fakeFullnode{handlers: handlers, calls: make(map[string]int)}

	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: node.serve}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })

	client := NewClient("http://fullnode.test/",
		WithDial(func(string) (net.Conn, error) { return ln.Dial() }),
		WithTimeout(2*time.Second),
		WithPollInterval(5*time.Millisecond),
		WithFinalityTimeout(300*time.Millisecond),
	)

	return client, node
}

// txData is a synthetic TransactionData: an opaque prefix followed by the gas tail.
func txData(price, budget uint64) []byte {
	out := []byte{0x00, 0x00, 0x01, 0x02, 0x03, 0x04, 0x05}
	out = binary.LittleEndian.AppendUint64(out, price)
	out = binary.LittleEndian.AppendUint64(out, budget)
	return append(out, 0x00)
}

func decodeParam[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestPatchGasData(t *testing.T) {

	original := txData(1000, 50_000_000)

	price, budget := uint64(1500), uint64(7_000_000)
	patched, err := patchGasData(original, &budget, &price)
	require.NoError(t, err)

	gotPrice, err := readGasPrice(patched)
	require.NoError(t, err)
	gotBudget, err := readGasBudget(patched)
	require.NoError(t, err)
	assert.Equal(t, price, gotPrice)
	assert.Equal(t, budget, gotBudget)
	assert.Equal(t, original[:7], patched[:7])

	origPrice, _ := readGasPrice(original)
	assert.Equal(t, uint64(1000), origPrice, "source bytes must not change")

	onlyPrice, err := patchGasData(original, nil, &price)
	require.NoError(t, err)
	keptBudget, _ := readGasBudget(onlyPrice)
	assert.Equal(t, uint64(50_000_000), keptBudget)
}

func TestPatchGasDataRejectsUnknownLayout(t *testing.T) {

	_, err := patchGasData([]byte{1, 2, 3}, nil, nil)
	assert.ErrorIs(t, err, ErrUnexpectedLayout)

	withExpiration := txData(1000, 1000)
	withExpiration[len(withExpiration)-1] = 0x01
	_, err = readGasPrice(withExpiration)
	assert.ErrorIs(t, err, ErrUnexpectedLayout)
}

func TestBuildMoveCallEstimatesBudget(t *testing.T) {

	var dryRunPrice uint64

	client, node := startFullnode(t, map[string]rpcHandler{
		methodMoveCall: func(params []json.RawMessage) (any, *RPCError) {
			require.Len(t, params, 8)
			assert.Equal(t, "0xSENDER", decodeParam[string](t, params[0]))
			assert.Equal(t, "0xPKG", decodeParam[string](t, params[1]))
			assert.Equal(t, "counter", decodeParam[string](t, params[2]))
			assert.Equal(t, "increment", decodeParam[string](t, params[3]))
			assert.Equal(t, []any{"0xC"}, decodeParam[[]any](t, params[5]))
			assert.Equal(t, "null", string(params[6]))
			assert.Equal(t, "50000000", decodeParam[string](t, params[7]))
			return moveCallResult{TxBytes: base64.StdEncoding.EncodeToString(txData(1000, 50_000_000))}, nil
		},
		methodDryRun: func(params []json.RawMessage) (any, *RPCError) {
			raw, err := base64.StdEncoding.DecodeString(decodeParam[string](t, params[0]))
			require.NoError(t, err)
			dryRunPrice, err = readGasPrice(raw)
			require.NoError(t, err)
			return map[string]any{"effects": map[string]any{
				"status": map[string]any{"status": "success"},
				"gasUsed": map[string]any{
					"computationCost": "1000000",
					"storageCost":     "2000000",
					"storageRebate":   "500000",
				},
			}}, nil
		},
	})

	tx := ledger.NewMoveCall("0xPKG", "counter", "increment", ledger.ObjectArg("0xC"))
	require.NoError(t, tx.SetGasPrice(2000))

	txBytes, err := client.BuildMoveCall(context.Background(), "0xSENDER", tx)
	require.NoError(t, err)

	assert.Equal(t, uint64(2000), dryRunPrice, "dry run sees the overridden price")

	price, _ := readGasPrice(txBytes)
	budget, _ := readGasBudget(txBytes)
	assert.Equal(t, uint64(2000), price)
	// computation 1_000_000 + overhead 1000*2000, plus storage 2_000_000 minus rebate 500_000
	assert.Equal(t, uint64(4_500_000), budget)
	assert.Equal(t, 1, node.count(methodDryRun))
}

func TestBuildMoveCallWithExplicitBudgetSkipsDryRun(t *testing.T) {

	client, node := startFullnode(t, map[string]rpcHandler{
		methodMoveCall: func(params []json.RawMessage) (any, *RPCError) {
			assert.Equal(t, "5000", decodeParam[string](t, params[7]))
			return moveCallResult{TxBytes: base64.StdEncoding.EncodeToString(txData(750, 5000))}, nil
		},
	})

	tx := ledger.NewMoveCall("0xPKG", "counter", "create")
	require.NoError(t, tx.SetGasBudget(5000))

	txBytes, err := client.BuildMoveCall(context.Background(), "0xSENDER", tx)
	require.NoError(t, err)

	budget, _ := readGasBudget(txBytes)
	price, _ := readGasPrice(txBytes)
	assert.Equal(t, uint64(5000), budget)
	assert.Equal(t, uint64(750), price, "reference price kept when no override")
	assert.Zero(t, node.count(methodDryRun))
}

func TestEstimateBudgetFloorsAtComputation(t *testing.T) {

	client, _ := startFullnode(t, map[string]rpcHandler{
		methodDryRun: func([]json.RawMessage) (any, *RPCError) {
			return map[string]any{"effects": map[string]any{
				"status": map[string]any{"status": "success"},
				"gasUsed": map[string]any{
					"computationCost": "100",
					"storageCost":     "0",
					"storageRebate":   "10000000",
				},
			}}, nil
		},
	})

	budget, err := client.estimateBudget(context.Background(), txData(1000, 1))
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_100), budget)
}

func TestEstimateBudgetFailsOnAbortedDryRun(t *testing.T) {

	client, _ := startFullnode(t, map[string]rpcHandler{
		methodDryRun: func([]json.RawMessage) (any, *RPCError) {
			return map[string]any{"effects": map[string]any{
				"status": map[string]any{"status": "failure", "error": "MoveAbort(1)"},
			}}, nil
		},
	})

	_, err := client.estimateBudget(context.Background(), txData(1000, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MoveAbort(1)")
}

func TestCallSurfacesRPCError(t *testing.T) {

	client, _ := startFullnode(t, map[string]rpcHandler{
		methodNormalizedModule: func([]json.RawMessage) (any, *RPCError) {
			return nil, &RPCError{Code: -32602, Message: "Package object does not exist"}
		},
	})

	_, err := client.GetNormalizedModule(context.Background(), "0xPKG", "counter")

	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, -32602, rpcErr.Code)
	assert.Equal(t, methodNormalizedModule, rpcErr.Method)
	assert.Contains(t, err.Error(), "Package object does not exist")
}

func TestExecuteTransaction(t *testing.T) {

	client, _ := startFullnode(t, map[string]rpcHandler{
		methodExecute: func(params []json.RawMessage) (any, *RPCError) {
			require.Len(t, params, 4)
			assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("bytes")), decodeParam[string](t, params[0]))
			assert.Equal(t, []string{"sig"}, decodeParam[[]string](t, params[1]))
			assert.Equal(t, executeRequestType, decodeParam[string](t, params[3]))
			return map[string]any{"digest": "D1"}, nil
		},
	})

	digest, err := client.ExecuteTransaction(context.Background(), []byte("bytes"), []string{"sig"})
	require.NoError(t, err)
	assert.Equal(t, "D1", digest)
}

func TestWaitForTransactionPollsUntilFinal(t *testing.T) {

	var mu sync.Mutex
	attempts := 0

	client, node := startFullnode(t, map[string]rpcHandler{
		methodGetTransaction: func(params []json.RawMessage) (any, *RPCError) {
			opts := decodeParam[ledger.ResponseOptions](t, params[1])
			assert.True(t, opts.ShowEvents)
			assert.True(t, opts.ShowObjectChanges)

			mu.Lock()
			defer mu.Unlock()
			attempts++
			if attempts < 3 {
				return nil, &RPCError{Code: -32602, Message: "Could not find the referenced transaction [TransactionDigest(D1)]."}
			}
			return map[string]any{
				"digest":  "D1",
				"effects": map[string]any{"status": map[string]any{"status": "success"}},
				"events": []any{map[string]any{
					"type":       "0xPKG::counter::TxStatus",
					"id":         map[string]any{"txDigest": "D1", "eventSeq": "0"},
					"parsedJson": map[string]any{"action": "create"},
				}},
				"objectChanges": []any{map[string]any{
					"type":       "created",
					"objectId":   "0xABC",
					"objectType": "0xPKG::counter::Counter",
				}},
			}, nil
		},
	})

	result, err := client.WaitForTransaction(context.Background(), "D1", ledger.FullResponse)
	require.NoError(t, err)

	assert.Equal(t, 3, node.count(methodGetTransaction))
	assert.True(t, result.Succeeded())
	require.Len(t, result.Events, 1)
	assert.Equal(t, "create", result.Events[0].ParsedJson["action"])
	require.Len(t, result.CreatedObjects(), 1)
	assert.Equal(t, "0xABC", result.CreatedObjects()[0].ObjectId)
}

func TestWaitForTransactionTimesOut(t *testing.T) {

	client, _ := startFullnode(t, map[string]rpcHandler{
		methodGetTransaction: func([]json.RawMessage) (any, *RPCError) {
			return nil, &RPCError{Code: -32602, Message: "Could not find the referenced transaction"}
		},
	})

	_, err := client.WaitForTransaction(context.Background(), "D1", ledger.FullResponse)
	assert.ErrorIs(t, err, ledger.ErrFinalityTimeout)
}

func TestWaitForTransactionHonoursContext(t *testing.T) {

	client, _ := startFullnode(t, map[string]rpcHandler{
		methodGetTransaction: func([]json.RawMessage) (any, *RPCError) {
			return nil, &RPCError{Code: -32602, Message: "Could not find the referenced transaction"}
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := client.WaitForTransaction(ctx, "D1", ledger.FullResponse)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGetObject(t *testing.T) {

	client, _ := startFullnode(t, map[string]rpcHandler{
		methodGetObject: func(params []json.RawMessage) (any, *RPCError) {
			id := decodeParam[string](t, params[0])
			if id != "0xC" {
				return map[string]any{"error": map[string]any{"code": "notExists", "object_id": id}}, nil
			}
			return map[string]any{"data": map[string]any{
				"objectId": "0xC",
				"version":  "7",
				"type":     "0xPKG::counter::Counter",
				"content": map[string]any{
					"dataType": "moveObject",
					"type":     "0xPKG::counter::Counter",
					"fields":   map[string]any{"value": "41"},
				},
			}}, nil
		},
	})

	obj, err := client.GetObject(context.Background(), "0xC")
	require.NoError(t, err)
	assert.Equal(t, "0xPKG::counter::Counter", obj.MoveType())
	value, ok := obj.Field("value")
	require.True(t, ok)
	assert.Equal(t, "41", value)

	_, err = client.GetObject(context.Background(), "0xMISSING")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}
