package rpc_pack

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/modulrcloud/counter-relay/constants"
	"github.com/modulrcloud/counter-relay/ledger"
	"github.com/modulrcloud/counter-relay/structures"
	"github.com/modulrcloud/counter-relay/utils"

	"go.uber.org/zap"
)

const (
	methodMoveCall          = "unsafe_moveCall"
	methodDryRun            = "sui_dryRunTransactionBlock"
	methodExecute           = "sui_executeTransactionBlock"
	methodGetTransaction    = "sui_getTransactionBlock"
	methodGetObject         = "sui_getObject"
	methodNormalizedModule  = "sui_getNormalizedMoveModule"
	executeRequestType      = "WaitForEffectsCert"
	transactionNotFoundHint = "could not find the referenced transaction"
)

// BuildMoveCall asks the fullnode to assemble the move call (gas coin selection included),
// then applies the descriptor's gas price and either its budget or a dry-run estimate.
func (c *Client) BuildMoveCall(ctx context.Context, sender string, tx *ledger.Transaction) ([]byte, error) {

	args := make([]any, 0, len(tx.Arguments()))
	for _, arg := range tx.Arguments() {
		args = append(args, arg.RpcValue())
	}

	budget, hasBudget := tx.GasBudget()
	buildBudget := constants.EstimationGasBudget
	if hasBudget {
		buildBudget = budget
	}

	var built moveCallResult
	params := []any{
		sender,
		tx.PackageId(),
		tx.Module(),
		tx.Function(),
		[]string{},
		args,
		nil,
		strconv.FormatUint(buildBudget, 10),
	}
	if err := c.call(ctx, methodMoveCall, params, &built); err != nil {
		return nil, err
	}

	txBytes, err := base64.StdEncoding.DecodeString(built.TxBytes)
	if err != nil {
		return nil, fmt.Errorf("%s: decode txBytes: %w", methodMoveCall, err)
	}

	if price, ok := tx.GasPrice(); ok {
		if txBytes, err = patchGasData(txBytes, nil, &price); err != nil {
			return nil, err
		}
	}

	if !hasBudget {
		estimated, err := c.estimateBudget(ctx, txBytes)
		if err != nil {
			return nil, err
		}
		if txBytes, err = patchGasData(txBytes, &estimated, nil); err != nil {
			return nil, err
		}
	}

	return txBytes, nil
}

// estimateBudget dry-runs txBytes and returns the budget the transaction needs:
// computation plus a safety overhead, plus net storage when that is larger.
func (c *Client) estimateBudget(ctx context.Context, txBytes []byte) (uint64, error) {

	var dry dryRunResult
	if err := c.call(ctx, methodDryRun, []any{base64.StdEncoding.EncodeToString(txBytes)}, &dry); err != nil {
		return 0, err
	}

	if dry.Effects.Status.Status != structures.EffectsSuccess {
		return 0, fmt.Errorf("dry run failed: %s", dry.Effects.Status.Error)
	}

	computation, err := parseMist(dry.Effects.GasUsed.ComputationCost)
	if err != nil {
		return 0, err
	}
	storage, err := parseMist(dry.Effects.GasUsed.StorageCost)
	if err != nil {
		return 0, err
	}
	rebate, err := parseMist(dry.Effects.GasUsed.StorageRebate)
	if err != nil {
		return 0, err
	}

	price, err := readGasPrice(txBytes)
	if err != nil {
		return 0, err
	}

	base := computation + constants.GasSafeOverhead*price

	withStorage := base + storage
	if withStorage > rebate {
		withStorage -= rebate
	} else {
		withStorage = 0
	}

	return max(base, withStorage), nil
}

func parseMist(v string) (uint64, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse gas cost %q: %w", v, err)
	}
	return n, nil
}

func (c *Client) ExecuteTransaction(ctx context.Context, txBytes []byte, signatures []string) (string, error) {

	var executed executeResult
	params := []any{
		base64.StdEncoding.EncodeToString(txBytes),
		signatures,
		ledger.ResponseOptions{ShowEffects: true},
		executeRequestType,
	}
	if err := c.call(ctx, methodExecute, params, &executed); err != nil {
		return "", err
	}
	if executed.Digest == "" {
		return "", fmt.Errorf("%s: response carries no digest", methodExecute)
	}

	return executed.Digest, nil
}

func (c *Client) GetTransaction(ctx context.Context, digest string, opts ledger.ResponseOptions) (*structures.TransactionResult, error) {

	var result structures.TransactionResult
	if err := c.call(ctx, methodGetTransaction, []any{digest, opts}, &result); err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) && strings.Contains(strings.ToLower(rpcErr.Message), transactionNotFoundHint) {
			return nil, fmt.Errorf("transaction %s: %w", digest, ledger.ErrNotFound)
		}
		return nil, err
	}
	if result.Digest == "" {
		return nil, fmt.Errorf("transaction %s: %w", digest, ledger.ErrNotFound)
	}

	return &result, nil
}

// WaitForTransaction polls until the digest is queryable, the finality timeout elapses or ctx ends.
func (c *Client) WaitForTransaction(ctx context.Context, digest string, opts ledger.ResponseOptions) (*structures.TransactionResult, error) {

	timeout := time.NewTimer(c.finalityTimeout)
	defer timeout.Stop()

	for attempt := 1; ; attempt++ {

		result, err := c.GetTransaction(ctx, digest, opts)
		if err == nil {
			return result, nil
		}

		if !errors.Is(err, ledger.ErrNotFound) {
			utils.LogWithTimeThrottled("wait:"+digest, 5*time.Second, "Transaction lookup failed while waiting for finality", zap.WarnLevel,
				zap.String("digest", digest), zap.Int("attempt", attempt), zap.Error(err))
		}

		poll := time.NewTimer(c.pollInterval)

		select {
		case <-ctx.Done():
			poll.Stop()
			return nil, fmt.Errorf("wait for %s: %w", digest, ctx.Err())
		case <-timeout.C:
			poll.Stop()
			return nil, fmt.Errorf("%w: %s after %d attempts (last error: %v)", ledger.ErrFinalityTimeout, digest, attempt, err)
		case <-poll.C:
		}
	}
}

func (c *Client) GetObject(ctx context.Context, objectId string) (*structures.ObjectData, error) {

	options := map[string]bool{"showType": true, "showContent": true, "showOwner": true}

	var resp objectResponse
	if err := c.call(ctx, methodGetObject, []any{objectId, options}, &resp); err != nil {
		return nil, err
	}

	if resp.Error != nil {
		return nil, fmt.Errorf("object %s (%s): %w", objectId, resp.Error.Code, ledger.ErrNotFound)
	}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return nil, fmt.Errorf("object %s: %w", objectId, ledger.ErrNotFound)
	}

	var data structures.ObjectData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("%s: unmarshal object: %w", methodGetObject, err)
	}

	return &data, nil
}

func (c *Client) GetNormalizedModule(ctx context.Context, packageId, module string) (*structures.NormalizedModule, error) {

	var mod structures.NormalizedModule
	if err := c.call(ctx, methodNormalizedModule, []any{packageId, module}, &mod); err != nil {
		return nil, err
	}

	return &mod, nil
}
