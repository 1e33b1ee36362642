// Package ens resolves ENS names through the registry contract.
package ens

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"

	"github.com/Mohsinsiddi/cryptopet/internal/chain"
)

// RegistryAddress is the ENS registry, same on Ethereum mainnet and Sepolia.
var RegistryAddress = common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")

// ErrNotFound is returned when a name or reverse record does not resolve.
var ErrNotFound = errors.New("ens record not found")

const ensABIJSON = `[
	{"type":"function","name":"resolver","stateMutability":"view","inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"addr","stateMutability":"view","inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"name","stateMutability":"view","inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"string"}]}
]`

var ensABI = func() abi.ABI {
	a, err := abi.JSON(strings.NewReader(ensABIJSON))
	if err != nil {
		panic(err)
	}
	return a
}()

// Caller runs eth_call.
type Caller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Supported reports whether the registry is deployed on the chain.
func Supported(slug string) bool {
	return slug == chain.Ethereum || slug == chain.Sepolia
}

// IsName reports whether s looks like an ENS name rather than an address.
func IsName(s string) bool {
	return strings.Contains(s, ".") && !common.IsHexAddress(s)
}

// Resolver looks names up via the registry.
type Resolver struct {
	caller   Caller
	registry common.Address
}

// NewResolver returns a resolver using the standard registry.
func NewResolver(caller Caller) *Resolver {
	return &Resolver{caller: caller, registry: RegistryAddress}
}

// Resolve returns the address name points to. Names are lowercased first;
// full UTS-46 normalisation is not applied.
func (r *Resolver) Resolve(ctx context.Context, name string) (common.Address, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	node := Namehash(name)

	res, err := r.resolverOf(ctx, node)
	if err != nil {
		return common.Address{}, fmt.Errorf("%s: %w", name, err)
	}
	out, err := r.call(ctx, res, "addr", node)
	if err != nil {
		return common.Address{}, fmt.Errorf("%s: %w", name, err)
	}
	addr, _ := out[0].(common.Address)
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: no address record for %q", ErrNotFound, name)
	}
	return addr, nil
}

// Reverse returns the primary name of addr. A name whose forward record
// points elsewhere is rejected.
func (r *Resolver) Reverse(ctx context.Context, addr common.Address) (string, error) {
	node := Namehash(strings.ToLower(strings.TrimPrefix(addr.Hex(), "0x")) + ".addr.reverse")

	res, err := r.resolverOf(ctx, node)
	if err != nil {
		return "", err
	}
	out, err := r.call(ctx, res, "name", node)
	if err != nil {
		return "", err
	}
	name, _ := out[0].(string)
	if name == "" {
		return "", fmt.Errorf("%w: no reverse name for %s", ErrNotFound, addr.Hex())
	}

	forward, err := r.Resolve(ctx, name)
	if err != nil {
		return "", err
	}
	if forward != addr {
		return "", fmt.Errorf("%w: %s does not resolve back to %s", ErrNotFound, name, addr.Hex())
	}
	return name, nil
}

func (r *Resolver) resolverOf(ctx context.Context, node common.Hash) (common.Address, error) {
	out, err := r.call(ctx, r.registry, "resolver", node)
	if err != nil {
		return common.Address{}, err
	}
	res, _ := out[0].(common.Address)
	if res == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: no resolver set", ErrNotFound)
	}
	return res, nil
}

func (r *Resolver) call(ctx context.Context, to common.Address, method string, node common.Hash) ([]any, error) {
	data, err := ensABI.Pack(method, [32]byte(node))
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	out, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("ens %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s returned no data", ErrNotFound, method)
	}
	return ensABI.Methods[method].Outputs.Unpack(out)
}

// Namehash implements the EIP-137 namehash.
func Namehash(name string) common.Hash {
	var node common.Hash
	if name == "" {
		return node
	}
	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		label := keccak256([]byte(labels[i]))
		copy(node[:], keccak256(node[:], label))
	}
	return node
}

func keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}
