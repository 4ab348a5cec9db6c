package rpc_pack

import (
	"encoding/json"
	"fmt"
)

type Request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      uint64 `json:"id"`
}

type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      any             `json:"id"`
}

// RPCError is an error object returned by the fullnode. Method is filled in by the client.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	Method  string          `json:"-"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("%s: rpc error %d: %s", e.Method, e.Code, e.Message)
}

type moveCallResult struct {
	TxBytes string `json:"txBytes"`
}

type executeResult struct {
	Digest string `json:"digest"`
}

type dryRunResult struct {
	Effects struct {
		Status  struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		} `json:"status"`
		GasUsed struct {
			ComputationCost string `json:"computationCost"`
			StorageCost     string `json:"storageCost"`
			StorageRebate   string `json:"storageRebate"`
		} `json:"gasUsed"`
	} `json:"effects"`
}

type objectResponseError struct {
	Code     string `json:"code"`
	ObjectId string `json:"object_id,omitempty"`
}

type objectResponse struct {
	Data  json.RawMessage      `json:"data,omitempty"`
	Error *objectResponseError `json:"error,omitempty"`
}
