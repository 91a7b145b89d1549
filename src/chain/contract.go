package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Caller is the read-only slice of an Ethereum client. *ethclient.Client
// satisfies it.
type Caller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ErrNoCode is returned when a call comes back empty, usually because the
// configured address has no contract on the connected chain.
var ErrNoCode = errors.New("chain: empty call result (no contract at address?)")

type contract struct {
	address common.Address
	abi     abi.ABI
	caller  Caller
}

func (c *contract) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	to := c.address
	out, err := c.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("call %s: %w", method, ErrNoCode)
	}
	vals, err := c.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return vals, nil
}

// pack builds calldata for a write method; the transaction itself is signed
// by the user's wallet.
func (c *contract) pack(method string, value *big.Int, args ...interface{}) (TxRequest, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return TxRequest{}, fmt.Errorf("pack %s: %w", method, err)
	}
	if value == nil {
		value = new(big.Int)
	}
	return TxRequest{To: c.address, Value: value, Data: data, Method: method}, nil
}

func (c *contract) bigCall(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	vals, err := c.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	return bigAt(vals, 0, method)
}

func (c *contract) uint8Call(ctx context.Context, method string, args ...interface{}) (uint8, error) {
	vals, err := c.call(ctx, method, args...)
	if err != nil {
		return 0, err
	}
	v, ok := vals[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("%s: unexpected output %T", method, vals[0])
	}
	return v, nil
}

func (c *contract) boolCall(ctx context.Context, method string, args ...interface{}) (bool, error) {
	vals, err := c.call(ctx, method, args...)
	if err != nil {
		return false, err
	}
	v, ok := vals[0].(bool)
	if !ok {
		return false, fmt.Errorf("%s: unexpected output %T", method, vals[0])
	}
	return v, nil
}

func (c *contract) addressCall(ctx context.Context, method string, args ...interface{}) (common.Address, error) {
	vals, err := c.call(ctx, method, args...)
	if err != nil {
		return common.Address{}, err
	}
	v, ok := vals[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%s: unexpected output %T", method, vals[0])
	}
	return v, nil
}

func (c *contract) stringCall(ctx context.Context, method string, args ...interface{}) (string, error) {
	vals, err := c.call(ctx, method, args...)
	if err != nil {
		return "", err
	}
	v, ok := vals[0].(string)
	if !ok {
		return "", fmt.Errorf("%s: unexpected output %T", method, vals[0])
	}
	return v, nil
}

func bigAt(vals []interface{}, i int, method string) (*big.Int, error) {
	if i >= len(vals) {
		return nil, fmt.Errorf("%s: missing output %d", method, i)
	}
	v, ok := vals[i].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected output %T", method, vals[i])
	}
	return v, nil
}
