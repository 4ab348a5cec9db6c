package rpc_pack

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// BCS TransactionData ends with GasData.price (u64), GasData.budget (u64) and the
// expiration enum. With no expiration the enum is the single tag byte 0x00.
const gasTailLength = 8 + 8 + 1

var ErrUnexpectedLayout = errors.New("unexpected transaction data layout")

func gasTailOffset(txBytes []byte) (int, error) {
	n := len(txBytes)
	if n <= gasTailLength {
		return 0, fmt.Errorf("%w: %d bytes", ErrUnexpectedLayout, n)
	}
	if txBytes[n-1] != 0x00 {
		return 0, fmt.Errorf("%w: expiration is set", ErrUnexpectedLayout)
	}
	return n - gasTailLength, nil
}

// patchGasData returns a copy of txBytes with the given gas fields replaced. nil leaves a field untouched.
func patchGasData(txBytes []byte, budget, price *uint64) ([]byte, error) {

	off, err := gasTailOffset(txBytes)
	if err != nil {
		return nil, err
	}

	out := append([]byte(nil), txBytes...)

	if price != nil {
		binary.LittleEndian.PutUint64(out[off:off+8], *price)
	}
	if budget != nil {
		binary.LittleEndian.PutUint64(out[off+8:off+16], *budget)
	}

	return out, nil
}

func readGasPrice(txBytes []byte) (uint64, error) {
	off, err := gasTailOffset(txBytes)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(txBytes[off : off+8]), nil
}

func readGasBudget(txBytes []byte) (uint64, error) {
	off, err := gasTailOffset(txBytes)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(txBytes[off+8 : off+16]), nil
}
