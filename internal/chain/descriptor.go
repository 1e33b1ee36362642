package chain

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// ErrInvalidDescriptor is returned by Validate for malformed descriptors.
var ErrInvalidDescriptor = errors.New("invalid chain descriptor")

// Currency describes a chain's native currency.
type Currency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// Descriptor is the static description of a network. Its JSON form is exactly
// the parameter object of wallet_addEthereumChain.
type Descriptor struct {
	ChainID           string   `json:"chainId"` // 0x-prefixed, no leading zeros
	ChainName         string   `json:"chainName"`
	NativeCurrency    Currency `json:"nativeCurrency"`
	RPCURLs           []string `json:"rpcUrls"`
	BlockExplorerURLs []string `json:"blockExplorerUrls"`
}

// HexChainID encodes id the way wallets expect it: 0x-prefixed lowercase hex
// with leading zeros stripped ("0x0" for zero).
func HexChainID(id *big.Int) string {
	return "0x" + id.Text(16)
}

// ParseChainID accepts a 0x-prefixed hex or a plain decimal chain id.
func ParseChainID(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	n := new(big.Int)
	var ok bool
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		_, ok = n.SetString(s[2:], 16)
	} else {
		_, ok = n.SetString(s, 10)
	}
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("invalid chain id %q", s)
	}
	return n, nil
}

// ID returns the numeric chain id. It panics on a descriptor that failed Validate.
func (d Descriptor) ID() *big.Int {
	id, err := ParseChainID(d.ChainID)
	if err != nil {
		panic(err)
	}
	return id
}

// Matches reports whether other (hex or decimal, any case, any zero padding)
// names the same chain as d.
func (d Descriptor) Matches(other string) bool {
	want, err := ParseChainID(d.ChainID)
	if err != nil {
		return false
	}
	got, err := ParseChainID(other)
	if err != nil {
		return false
	}
	return want.Cmp(got) == 0
}

// Validate checks the invariants wallets enforce on wallet_addEthereumChain.
func (d Descriptor) Validate() error {
	id, err := ParseChainID(d.ChainID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	if d.ChainID != HexChainID(id) {
		return fmt.Errorf("%w: chain id %q must be 0x-prefixed hex without leading zeros", ErrInvalidDescriptor, d.ChainID)
	}
	if d.ChainName == "" {
		return fmt.Errorf("%w: chain name is empty", ErrInvalidDescriptor)
	}
	if d.NativeCurrency.Symbol == "" || d.NativeCurrency.Decimals <= 0 {
		return fmt.Errorf("%w: native currency incomplete", ErrInvalidDescriptor)
	}
	if len(d.RPCURLs) == 0 {
		return fmt.Errorf("%w: at least one rpc url is required", ErrInvalidDescriptor)
	}
	return nil
}

// Explorer returns the first block explorer URL, or "".
func (d Descriptor) Explorer() string {
	if len(d.BlockExplorerURLs) == 0 {
		return ""
	}
	return strings.TrimRight(d.BlockExplorerURLs[0], "/")
}

// TxURL links a transaction hash on the chain's explorer.
func (d Descriptor) TxURL(hash string) string {
	if e := d.Explorer(); e != "" {
		return e + "/tx/" + hash
	}
	return ""
}

// AddressURL links an address on the chain's explorer.
func (d Descriptor) AddressURL(addr string) string {
	if e := d.Explorer(); e != "" {
		return e + "/address/" + addr
	}
	return ""
}
