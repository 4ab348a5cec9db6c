package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/modulrcloud/counter-relay/constants"
)

var (
	ErrTransactionConsumed = errors.New("transaction descriptor already consumed")
	ErrGasOutOfRange       = errors.New("gas value out of range")
)

// Argument is either an immediate (pure) value or a reference to an existing object.
type Argument struct {
	objectId string
	pure     any
	isObject bool
}

func ObjectArg(objectId string) Argument { return Argument{objectId: objectId, isObject: true} }

func PureArg(value any) Argument { return Argument{pure: value} }

func (a Argument) IsObject() bool { return a.isObject }

// RpcValue is the JSON form of the argument for fullnode move-call builders.
func (a Argument) RpcValue() any {
	if a.isObject {
		return a.objectId
	}
	return a.pure
}

// Transaction is a pending move call. It is mutable until submitted and can be submitted once.
type Transaction struct {
	mu        sync.Mutex
	packageId string
	module    string
	function  string
	args      []Argument
	gasBudget *uint64
	gasPrice  *uint64
	submitted bool
}

func NewMoveCall(packageId, module, function string, args ...Argument) *Transaction {
	return &Transaction{packageId: packageId, module: module, function: function, args: args}
}

func (tx *Transaction) PackageId() string { return tx.packageId }

func (tx *Transaction) Module() string { return tx.module }

func (tx *Transaction) Function() string { return tx.function }

func (tx *Transaction) Target() string {
	return tx.packageId + "::" + tx.module + "::" + tx.function
}

func (tx *Transaction) Arguments() []Argument {
	return append([]Argument(nil), tx.args...)
}

// SetGasBudget overrides the gas budget. It fails after submission or outside (0, MaxGasBudget].
func (tx *Transaction) SetGasBudget(budget uint64) error {

	if budget == 0 || budget > constants.MaxGasBudget {
		return fmt.Errorf("%w: budget %d not in [1, %d]", ErrGasOutOfRange, budget, constants.MaxGasBudget)
	}

	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.submitted {
		return ErrTransactionConsumed
	}
	tx.gasBudget = &budget
	return nil
}

// SetGasPrice overrides the gas price. It fails after submission or outside (0, MaxGasPrice].
func (tx *Transaction) SetGasPrice(price uint64) error {

	if price == 0 || price > constants.MaxGasPrice {
		return fmt.Errorf("%w: price %d not in [1, %d]", ErrGasOutOfRange, price, constants.MaxGasPrice)
	}

	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.submitted {
		return ErrTransactionConsumed
	}
	tx.gasPrice = &price
	return nil
}

func (tx *Transaction) GasBudget() (uint64, bool) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.gasBudget == nil {
		return 0, false
	}
	return *tx.gasBudget, true
}

func (tx *Transaction) GasPrice() (uint64, bool) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.gasPrice == nil {
		return 0, false
	}
	return *tx.gasPrice, true
}

func (tx *Transaction) Submitted() bool {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.submitted
}

func (tx *Transaction) markSubmitted() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.submitted {
		return ErrTransactionConsumed
	}
	tx.submitted = true
	return nil
}
