package eip1193

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testFrom = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	testTo   = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

func TestTxArgsDynamicFeeRoundTrip(t *testing.T) {
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(11155111),
		Nonce:     7,
		GasTipCap: big.NewInt(2),
		GasFeeCap: big.NewInt(30),
		Gas:       21000,
		To:        &testTo,
		Value:     big.NewInt(1000),
		Data:      []byte{0xde, 0xad},
	})

	args := NewTxArgs(testFrom, tx)
	assert.Nil(t, args.GasPrice)
	require.NotNil(t, args.ChainID)

	// survive the wire
	data, err := json.Marshal(args)
	require.NoError(t, err)
	var decoded TxArgs
	require.NoError(t, json.Unmarshal(data, &decoded))

	got, err := decoded.ToTransaction(nil)
	require.NoError(t, err)
	assert.Equal(t, uint8(types.DynamicFeeTxType), got.Type())
	assert.Equal(t, tx.Hash(), got.Hash())
	assert.Equal(t, testFrom, *decoded.From)
}

func TestTxArgsLegacyRoundTrip(t *testing.T) {
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    1,
		GasPrice: big.NewInt(5),
		Gas:      50000,
		To:       &testTo,
		Value:    big.NewInt(0),
	})

	args := NewTxArgs(testFrom, tx)
	assert.Nil(t, args.MaxFeePerGas)
	assert.Nil(t, args.Data)

	got, err := args.ToTransaction(big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, uint8(types.LegacyTxType), got.Type())
	assert.Equal(t, tx.Hash(), got.Hash())
}

func TestTxArgsWireNames(t *testing.T) {
	raw := `{"from":"0x00000000000000000000000000000000000000aa","to":"0x00000000000000000000000000000000000000bb","value":"0x10","data":"0x01","maxFeePerGas":"0x1e","chainId":"0x1"}`
	var args TxArgs
	require.NoError(t, json.Unmarshal([]byte(raw), &args))

	tx, err := args.ToTransaction(nil)
	require.NoError(t, err)
	assert.Equal(t, int64(16), tx.Value().Int64())
	assert.Equal(t, []byte{0x01}, tx.Data())
	assert.Equal(t, int64(1), tx.ChainId().Int64())
	assert.Equal(t, int64(0), tx.GasTipCap().Int64())
}

func TestTxArgsDynamicNeedsChainID(t *testing.T) {
	var args TxArgs
	require.NoError(t, json.Unmarshal([]byte(`{"from":"0x00000000000000000000000000000000000000aa","maxFeePerGas":"0x1"}`), &args))
	_, err := args.ToTransaction(nil)
	assert.Error(t, err)
}

func TestDecodeParam(t *testing.T) {
	params := []any{json.RawMessage(`{"chainId":"0x1"}`), "plain"}

	var obj struct {
		ChainID string `json:"chainId"`
	}
	require.NoError(t, DecodeParam(params, 0, &obj))
	assert.Equal(t, "0x1", obj.ChainID)

	var s string
	require.NoError(t, DecodeParam(params, 1, &s))
	assert.Equal(t, "plain", s)

	err := DecodeParam(params, 2, &s)
	assert.True(t, HasCode(err, CodeInvalidParams))

	var n int
	err = DecodeParam(params, 1, &n)
	assert.True(t, HasCode(err, CodeInvalidParams))
}
