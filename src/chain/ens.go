package chain

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// ENS resolves primary names through the ENS registry. Nil means no
// registry is configured and every lookup yields "".
type ENS struct {
	registry contract
	caller   Caller
}

func NewENS(registry *common.Address, caller Caller) *ENS {
	if registry == nil || caller == nil {
		return nil
	}
	return &ENS{registry: contract{address: *registry, abi: ENSABI, caller: caller}, caller: caller}
}

// Namehash implements the EIP-137 recursive name hash.
func Namehash(name string) [32]byte {
	var node [32]byte
	name = strings.TrimSpace(name)
	if name == "" {
		return node
	}
	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		lh := keccak([]byte(labels[i]))
		copy(node[:], keccak(node[:], lh))
	}
	return node
}

func keccak(parts ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

func (e *ENS) resolver(ctx context.Context, node [32]byte) (*contract, error) {
	addr, err := e.registry.addressCall(ctx, "resolver", node)
	if err != nil {
		return nil, err
	}
	if addr == (common.Address{}) {
		return nil, nil
	}
	return &contract{address: addr, abi: ENSABI, caller: e.caller}, nil
}

// ReverseName returns the primary name of addr, or "" when none is set or
// the name does not resolve forward to the same address.
func (e *ENS) ReverseName(ctx context.Context, addr common.Address) (string, error) {
	if e == nil {
		return "", nil
	}
	node := Namehash(strings.ToLower(addr.Hex()[2:]) + ".addr.reverse")
	res, err := e.resolver(ctx, node)
	if err != nil || res == nil {
		return "", err
	}
	name, err := res.stringCall(ctx, "name", node)
	if err != nil || name == "" {
		return "", err
	}

	fwdNode := Namehash(name)
	fwd, err := e.resolver(ctx, fwdNode)
	if err != nil || fwd == nil {
		return "", err
	}
	resolved, err := fwd.addressCall(ctx, "addr", fwdNode)
	if err != nil {
		return "", err
	}
	if resolved != addr {
		return "", nil
	}
	return name, nil
}
