// Package ledgertest provides a configurable in-memory ledger client for tests.
package ledgertest

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/modulrcloud/counter-relay/ledger"
	"github.com/modulrcloud/counter-relay/structures"
)

// Compile-time interface check.
var _ ledger.Client = (*FakeClient)(nil)

const DefaultDigest = "9xsJ2LgEKjD1VjAc9u7bBzvRVXvaFdDSMvZeWeVQpCNA"

// FakeClient is configurable via function fields. Unconfigured methods return a
// successful, empty transaction for DefaultDigest.
type FakeClient struct {
	BuildMoveCallFn       func(context.Context, string, *ledger.Transaction) ([]byte, error)
	ExecuteTransactionFn  func(context.Context, []byte, []string) (string, error)
	WaitForTransactionFn  func(context.Context, string, ledger.ResponseOptions) (*structures.TransactionResult, error)
	GetTransactionFn      func(context.Context, string, ledger.ResponseOptions) (*structures.TransactionResult, error)
	GetObjectFn           func(context.Context, string) (*structures.ObjectData, error)
	GetNormalizedModuleFn func(context.Context, string, string) (*structures.NormalizedModule, error)

	BuildCalls     atomic.Int64
	ExecuteCalls   atomic.Int64
	WaitCalls      atomic.Int64
	GetTxCalls     atomic.Int64
	GetObjectCalls atomic.Int64
	ModuleCalls    atomic.Int64

	// LastBuilt is the descriptor passed to the most recent BuildMoveCall.
	LastBuilt atomic.Pointer[ledger.Transaction]
}

func (f *FakeClient) BuildMoveCall(ctx context.Context, sender string, tx *ledger.Transaction) ([]byte, error) {
	f.BuildCalls.Add(1)
	f.LastBuilt.Store(tx)
	if f.BuildMoveCallFn != nil {
		return f.BuildMoveCallFn(ctx, sender, tx)
	}
	return []byte("tx:" + tx.Target()), nil
}

func (f *FakeClient) ExecuteTransaction(ctx context.Context, txBytes []byte, signatures []string) (string, error) {
	f.ExecuteCalls.Add(1)
	if f.ExecuteTransactionFn != nil {
		return f.ExecuteTransactionFn(ctx, txBytes, signatures)
	}
	return DefaultDigest, nil
}

func (f *FakeClient) WaitForTransaction(ctx context.Context, digest string, opts ledger.ResponseOptions) (*structures.TransactionResult, error) {
	f.WaitCalls.Add(1)
	if f.WaitForTransactionFn != nil {
		return f.WaitForTransactionFn(ctx, digest, opts)
	}
	return SuccessfulResult(digest), nil
}

func (f *FakeClient) GetTransaction(ctx context.Context, digest string, opts ledger.ResponseOptions) (*structures.TransactionResult, error) {
	f.GetTxCalls.Add(1)
	if f.GetTransactionFn != nil {
		return f.GetTransactionFn(ctx, digest, opts)
	}
	return SuccessfulResult(digest), nil
}

func (f *FakeClient) GetObject(ctx context.Context, objectId string) (*structures.ObjectData, error) {
	f.GetObjectCalls.Add(1)
	if f.GetObjectFn != nil {
		return f.GetObjectFn(ctx, objectId)
	}
	return nil, fmt.Errorf("object %s: %w", objectId, ledger.ErrNotFound)
}

func (f *FakeClient) GetNormalizedModule(ctx context.Context, packageId, module string) (*structures.NormalizedModule, error) {
	f.ModuleCalls.Add(1)
	if f.GetNormalizedModuleFn != nil {
		return f.GetNormalizedModuleFn(ctx, packageId, module)
	}
	return &structures.NormalizedModule{Address: packageId, Name: module}, nil
}

// SuccessfulResult is a finalized, successful transaction with no events or object changes.
func SuccessfulResult(digest string) *structures.TransactionResult {
	return &structures.TransactionResult{
		Digest:  digest,
		Effects: &structures.TransactionEffects{Status: structures.EffectsStatus{Status: structures.EffectsSuccess}},
	}
}

// CounterObject is a shared counter object holding value.
func CounterObject(objectId, packageId string, value any) *structures.ObjectData {
	objType := packageId + "::counter::Counter"
	return &structures.ObjectData{
		ObjectId: objectId,
		Version:  "1",
		Type:     objType,
		Content: &structures.MoveObjectContent{
			DataType: "moveObject",
			Type:     objType,
			Fields: map[string]any{
				"id":    map[string]any{"id": objectId},
				"value": value,
			},
		},
	}
}
