package gov

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ParseAddress validates a 0x-prefixed 20 byte hex address.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) || !strings.HasPrefix(strings.ToLower(s), "0x") {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

// IsZero reports whether addr is unset or the zero address.
func IsZero(addr *common.Address) bool {
	return addr == nil || *addr == (common.Address{})
}

func TruncateAddress(addr string, startChars, endChars int) string {
	if addr == "" {
		return ""
	}
	if len(addr) <= startChars+endChars {
		return addr
	}
	return addr[:startChars] + "..." + addr[len(addr)-endChars:]
}

// DisplayName prefers an ENS name and falls back to a shortened address.
func DisplayName(addr *common.Address, ensName string) string {
	if ensName != "" {
		return ensName
	}
	if addr == nil {
		return ""
	}
	return TruncateAddress(addr.Hex(), 6, 4)
}
