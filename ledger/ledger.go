// Package ledger describes the remote ledger the relay talks to and the single-use
// transaction descriptor handed to it.
package ledger

import (
	"context"
	"errors"

	"github.com/modulrcloud/counter-relay/structures"
)

var (
	ErrNotFound        = errors.New("ledger: not found")
	ErrFinalityTimeout = errors.New("ledger: timed out waiting for finality")
)

// ResponseOptions selects which parts of a transaction the fullnode returns.
type ResponseOptions struct {
	ShowInput         bool `json:"showInput"`
	ShowEffects       bool `json:"showEffects"`
	ShowEvents        bool `json:"showEvents"`
	ShowObjectChanges bool `json:"showObjectChanges"`
}

// FullResponse asks for everything the relay reports back to callers.
var FullResponse = ResponseOptions{ShowEffects: true, ShowEvents: true, ShowObjectChanges: true}

// Client is the ledger capability. Implementations must be safe for concurrent use.
type Client interface {
	// BuildMoveCall turns a descriptor into unsigned transaction bytes for sender.
	BuildMoveCall(ctx context.Context, sender string, tx *Transaction) ([]byte, error)

	// ExecuteTransaction submits signed bytes and returns the transaction digest.
	ExecuteTransaction(ctx context.Context, txBytes []byte, signatures []string) (string, error)

	// WaitForTransaction blocks until the digest is final and queryable.
	WaitForTransaction(ctx context.Context, digest string, opts ResponseOptions) (*structures.TransactionResult, error)

	GetTransaction(ctx context.Context, digest string, opts ResponseOptions) (*structures.TransactionResult, error)

	GetObject(ctx context.Context, objectId string) (*structures.ObjectData, error)

	GetNormalizedModule(ctx context.Context, packageId, module string) (*structures.NormalizedModule, error)
}

// Signer signs transaction bytes on behalf of Address.
type Signer interface {
	Address() string
	Sign(txBytes []byte) (string, error)
}

// SignAndExecute consumes tx: it is built, signed and submitted once.
// A second call with the same descriptor fails with ErrTransactionConsumed.
func SignAndExecute(ctx context.Context, client Client, signer Signer, tx *Transaction) (string, []byte, error) {

	if err := tx.markSubmitted(); err != nil {
		return "", nil, err
	}

	txBytes, err := client.BuildMoveCall(ctx, signer.Address(), tx)
	if err != nil {
		return "", nil, err
	}

	signature, err := signer.Sign(txBytes)
	if err != nil {
		return "", nil, err
	}

	digest, err := client.ExecuteTransaction(ctx, txBytes, []string{signature})
	if err != nil {
		return "", txBytes, err
	}

	return digest, txBytes, nil
}
