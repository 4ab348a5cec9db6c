// Package executor submits move calls for the relay identity and waits until they are final.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/modulrcloud/counter-relay/cryptography"
	"github.com/modulrcloud/counter-relay/events"
	"github.com/modulrcloud/counter-relay/ledger"
	"github.com/modulrcloud/counter-relay/structures"
	"github.com/modulrcloud/counter-relay/utils"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const statusError = "error"

type Executor struct {
	client  ledger.Client
	signer  ledger.Signer
	metrics *utils.Metrics
}

// New returns an executor. metrics may be nil.
func New(client ledger.Client, signer ledger.Signer, metrics *utils.Metrics) *Executor {
	return &Executor{client: client, signer: signer, metrics: metrics}
}

// ApplyGasOverrides copies the resolved gas parameters onto tx. A rejected value is logged
// and left out. The returned params are the ones that were applied.
func ApplyGasOverrides(tx *ledger.Transaction, gas structures.GasParams) structures.GasParams {

	var applied structures.GasParams

	if gas.Budget != nil {
		res := utils.BestEffort("apply gas budget", func() (uint64, error) {
			return *gas.Budget, tx.SetGasBudget(*gas.Budget)
		}, zap.String("target", tx.Target()), zap.Uint64("gasBudget", *gas.Budget))
		if res.OK() {
			applied.Budget = &res.Value
		}
	}

	if gas.Price != nil {
		res := utils.BestEffort("apply gas price", func() (uint64, error) {
			return *gas.Price, tx.SetGasPrice(*gas.Price)
		}, zap.String("target", tx.Target()), zap.Uint64("gasPrice", *gas.Price))
		if res.OK() {
			applied.Price = &res.Value
		}
	}

	return applied
}

// Execute submits tx once and returns the final result with its status events attached.
// Submission and finality errors are returned as is; nothing is retried.
func (e *Executor) Execute(ctx context.Context, tx *ledger.Transaction, gas structures.GasParams) (*structures.TransactionResult, error) {

	applied := ApplyGasOverrides(tx, gas)

	submittedAt := time.Now()

	digest, txBytes, err := ledger.SignAndExecute(ctx, e.client, e.signer, tx)
	if err != nil {
		e.metrics.ObserveTransaction(tx.Function(), statusError)
		return nil, fmt.Errorf("submit %s: %w", tx.Target(), err)
	}

	if local := cryptography.TransactionDigest(txBytes); local != digest {
		utils.Log().Warn("Fullnode digest differs from locally computed one",
			zap.String("digest", digest), zap.String("local", local))
	}

	utils.LogWithTime("Transaction submitted", zapcore.InfoLevel,
		zap.String("target", tx.Target()), zap.String("digest", digest))

	result, err := e.client.WaitForTransaction(ctx, digest, ledger.FullResponse)
	if err != nil {
		e.metrics.ObserveTransaction(tx.Function(), statusError)
		return nil, fmt.Errorf("wait for %s: %w", digest, err)
	}

	e.metrics.ObserveFinality(time.Since(submittedAt))

	if types := result.EventTypes(); len(types) > 0 {
		utils.Log().Info("Transaction events", zap.String("digest", digest), zap.Strings("types", types))
	} else {
		utils.Log().Info("Transaction emitted no events", zap.String("digest", digest))
	}

	normalized := events.Normalize(result.Events)
	for _, ev := range normalized.Events {
		if hits := ev.Collisions(); len(hits) > 0 {
			utils.Log().Warn("Status event payload shadows structural fields",
				zap.String("digest", digest), zap.Strings("keys", hits))
		}
	}

	result.TxStatusEvents = normalized.Events
	result.AppliedGas = applied

	status := structures.EffectsFailure
	if result.Effects != nil {
		status = result.Effects.Status.Status
	}

	if result.Succeeded() {
		utils.LogWithTime("Transaction succeeded", zapcore.InfoLevel,
			zap.String("digest", digest),
			zap.String("selection", string(normalized.Strategy)),
			zap.Int("statusEvents", len(normalized.Events)))
	} else {
		fields := []zap.Field{zap.String("digest", digest), zap.String("status", status)}
		if msg := result.StatusError(); msg != nil {
			fields = append(fields, zap.String("error", *msg))
		}
		utils.LogWithTime("Transaction failed", zapcore.ErrorLevel, fields...)
	}

	e.metrics.ObserveTransaction(tx.Function(), status)

	return result, nil
}
