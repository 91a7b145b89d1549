// Package chaintest provides an in-memory contract caller for tests.
package chaintest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Contract answers calls for one address. Handlers take precedence over
// static Outputs; a method with neither returns empty data.
type Contract struct {
	ABI      abi.ABI
	Outputs  map[string][]interface{}
	Handlers map[string]func(args []interface{}) ([]interface{}, error)
	Errs     map[string]error
}

// Caller implements chain.Caller over a set of fake contracts.
type Caller struct {
	mu        sync.Mutex
	contracts map[common.Address]*Contract
	calls     map[string]int
}

func NewCaller() *Caller {
	return &Caller{contracts: map[common.Address]*Contract{}, calls: map[string]int{}}
}

// Deploy registers a contract at addr and returns it for further setup.
func (f *Caller) Deploy(addr common.Address, a abi.ABI) *Contract {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &Contract{
		ABI:      a,
		Outputs:  map[string][]interface{}{},
		Handlers: map[string]func([]interface{}) ([]interface{}, error){},
		Errs:     map[string]error{},
	}
	f.contracts[addr] = c
	return c
}

// Set is shorthand for a static output.
func (c *Contract) Set(method string, out ...interface{}) *Contract {
	c.Outputs[method] = out
	return c
}

// Calls returns how many times method was called on any contract.
func (f *Caller) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *Caller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if msg.To == nil || len(msg.Data) < 4 {
		return nil, errors.New("chaintest: bad call")
	}
	f.mu.Lock()
	c, ok := f.contracts[*msg.To]
	if !ok {
		f.mu.Unlock()
		return nil, nil
	}
	m, err := c.ABI.MethodById(msg.Data[:4])
	if err != nil {
		f.mu.Unlock()
		return nil, fmt.Errorf("chaintest: %w", err)
	}
	f.calls[m.Name]++
	callErr := c.Errs[m.Name]
	handler := c.Handlers[m.Name]
	out, hasOut := c.Outputs[m.Name]
	f.mu.Unlock()

	if callErr != nil {
		return nil, callErr
	}
	if handler != nil {
		args, err := m.Inputs.Unpack(msg.Data[4:])
		if err != nil {
			return nil, err
		}
		if out, err = handler(args); err != nil {
			return nil, err
		}
		hasOut = true
	}
	if !hasOut {
		return nil, nil
	}
	return m.Outputs.Pack(out...)
}
