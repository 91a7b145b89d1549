package chain

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// TxRequest is an unsigned contract call handed to the user's wallet.
type TxRequest struct {
	To     common.Address `json:"to"`
	Value  *big.Int       `json:"-"`
	Data   hexutil.Bytes  `json:"data"`
	Method string         `json:"method"`
}

// ValueHex renders Value the way eth_sendTransaction expects it.
func (t TxRequest) ValueHex() string {
	if t.Value == nil {
		return "0x0"
	}
	return hexutil.EncodeBig(t.Value)
}

func (t TxRequest) MarshalJSON() ([]byte, error) {
	type plain TxRequest
	return json.Marshal(struct {
		plain
		Value string `json:"value"`
	}{plain(t), t.ValueHex()})
}
