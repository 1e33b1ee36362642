package wallet

import (
	"crypto/ecdsa"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPrivKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testSignerAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func testKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	k, err := crypto.HexToECDSA(testPrivKeyHex)
	require.NoError(t, err)
	return k
}

// ─── SignMessage + VerifyMessage round-trip ───────────────────────────────────

func TestSignMessageRoundTrip(t *testing.T) {
	sig, err := SignMessage(testKey(t), []byte("hello web3"))
	require.NoError(t, err)
	assert.Len(t, sig, 65, "EIP-191 signature must be 65 bytes")
	assert.Contains(t, []byte{27, 28}, sig[64])

	recovered, err := VerifyMessage([]byte("hello web3"), sig)
	require.NoError(t, err)
	assert.Equal(t, testSignerAddr, recovered.Hex(), "recovered address must match signer")
}

func TestSignMessageEmptyAndLong(t *testing.T) {
	longMsg := make([]byte, 1024)
	for i := range longMsg {
		longMsg[i] = byte(i % 256)
	}
	for _, msg := range [][]byte{{}, longMsg} {
		sig, err := SignMessage(testKey(t), msg)
		require.NoError(t, err)

		recovered, err := VerifyMessage(msg, sig)
		require.NoError(t, err)
		assert.Equal(t, testSignerAddr, recovered.Hex())
	}
}

func TestVerifyMessageWrongMessage(t *testing.T) {
	sig, err := SignMessage(testKey(t), []byte("correct message"))
	require.NoError(t, err)

	recovered, err := VerifyMessage([]byte("wrong message"), sig)
	if err == nil {
		assert.NotEqual(t, testSignerAddr, recovered.Hex(), "wrong message should not match signer")
	}
}

func TestVerifyMessageInvalidSigLength(t *testing.T) {
	_, err := VerifyMessage([]byte("test"), []byte("tooshort"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid signature length")
}

// ─── eip191Hash ───────────────────────────────────────────────────────────────

func TestEIP191HashMatchesKeccak(t *testing.T) {
	msg := []byte("deterministic test")
	want := crypto.Keccak256([]byte("\x19Ethereum Signed Message:\n18deterministic test"))
	assert.Equal(t, hex.EncodeToString(want), hex.EncodeToString(eip191Hash(msg)))
}

func TestEIP191HashDifferentMessages(t *testing.T) {
	h1 := eip191Hash([]byte("message A"))
	h2 := eip191Hash([]byte("message B"))
	assert.NotEqual(t, hex.EncodeToString(h1), hex.EncodeToString(h2))
}

// ─── SignTx ───────────────────────────────────────────────────────────────────

func TestSignTxRecoversSender(t *testing.T) {
	to := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	chainID := big.NewInt(11155111)

	for _, tx := range []*types.Transaction{
		types.NewTx(&types.LegacyTx{Nonce: 1, GasPrice: big.NewInt(1), Gas: 21000, To: &to, Value: big.NewInt(1)}),
		types.NewTx(&types.DynamicFeeTx{ChainID: chainID, Nonce: 2, GasTipCap: big.NewInt(1), GasFeeCap: big.NewInt(2), Gas: 21000, To: &to}),
	} {
		signed, err := SignTx(testKey(t), tx, chainID)
		require.NoError(t, err)

		sender, err := types.Sender(types.LatestSignerForChainID(chainID), signed)
		require.NoError(t, err)
		assert.Equal(t, testSignerAddr, sender.Hex())
		assert.Zero(t, chainID.Cmp(signed.ChainId()))
	}
}
