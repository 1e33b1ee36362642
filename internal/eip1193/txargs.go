package eip1193

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// TxArgs is the transaction object accepted by eth_signTransaction and
// eth_sendTransaction.
type TxArgs struct {
	From                 *common.Address `json:"from"`
	To                   *common.Address `json:"to,omitempty"`
	Gas                  *hexutil.Uint64 `json:"gas,omitempty"`
	GasPrice             *hexutil.Big    `json:"gasPrice,omitempty"`
	MaxFeePerGas         *hexutil.Big    `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *hexutil.Big    `json:"maxPriorityFeePerGas,omitempty"`
	Value                *hexutil.Big    `json:"value,omitempty"`
	Nonce                *hexutil.Uint64 `json:"nonce,omitempty"`
	Data                 *hexutil.Bytes  `json:"data,omitempty"`
	ChainID              *hexutil.Big    `json:"chainId,omitempty"`
}

// NewTxArgs describes an unsigned transaction for the wallet.
func NewTxArgs(from common.Address, tx *types.Transaction) TxArgs {
	gas := hexutil.Uint64(tx.Gas())
	nonce := hexutil.Uint64(tx.Nonce())
	args := TxArgs{
		From:  &from,
		To:    tx.To(),
		Gas:   &gas,
		Nonce: &nonce,
		Value: (*hexutil.Big)(new(big.Int).Set(tx.Value())),
	}
	if data := tx.Data(); len(data) > 0 {
		b := hexutil.Bytes(data)
		args.Data = &b
	}
	if tx.Type() == types.DynamicFeeTxType {
		args.MaxFeePerGas = (*hexutil.Big)(tx.GasFeeCap())
		args.MaxPriorityFeePerGas = (*hexutil.Big)(tx.GasTipCap())
		args.ChainID = (*hexutil.Big)(tx.ChainId())
	} else {
		args.GasPrice = (*hexutil.Big)(tx.GasPrice())
	}
	return args
}

// ToTransaction builds the unsigned transaction. Unset numeric fields are zero.
// A dynamic fee transaction is produced when MaxFeePerGas is set, using
// chainID when the args carry none.
func (a TxArgs) ToTransaction(chainID *big.Int) (*types.Transaction, error) {
	var data []byte
	if a.Data != nil {
		data = *a.Data
	}
	value := new(big.Int)
	if a.Value != nil {
		value = a.Value.ToInt()
	}
	var gas, nonce uint64
	if a.Gas != nil {
		gas = uint64(*a.Gas)
	}
	if a.Nonce != nil {
		nonce = uint64(*a.Nonce)
	}

	if a.MaxFeePerGas != nil {
		cid := chainID
		if a.ChainID != nil {
			cid = a.ChainID.ToInt()
		}
		if cid == nil {
			return nil, fmt.Errorf("dynamic fee transaction without chain id")
		}
		tip := new(big.Int)
		if a.MaxPriorityFeePerGas != nil {
			tip = a.MaxPriorityFeePerGas.ToInt()
		}
		return types.NewTx(&types.DynamicFeeTx{
			ChainID:   cid,
			Nonce:     nonce,
			GasTipCap: tip,
			GasFeeCap: a.MaxFeePerGas.ToInt(),
			Gas:       gas,
			To:        a.To,
			Value:     value,
			Data:      data,
		}), nil
	}

	price := new(big.Int)
	if a.GasPrice != nil {
		price = a.GasPrice.ToInt()
	}
	return types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: price,
		Gas:      gas,
		To:       a.To,
		Value:    value,
		Data:     data,
	}), nil
}

// DecodeParam decodes positional parameter i into out. Params may be Go
// values or raw JSON, depending on who built the request.
func DecodeParam(params []any, i int, out any) error {
	if i >= len(params) {
		return NewError(CodeInvalidParams, "missing parameter %d", i)
	}
	raw, ok := params[i].(json.RawMessage)
	if !ok {
		var err error
		if raw, err = json.Marshal(params[i]); err != nil {
			return NewError(CodeInvalidParams, "parameter %d: %v", i, err)
		}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return NewError(CodeInvalidParams, "parameter %d: %v", i, err)
	}
	return nil
}
