package contract

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/cryptopet/internal/chain"
)

// PetStats is the result of getPetStatsView.
type PetStats struct {
	Name       string
	Happiness  *big.Int
	Hunger     *big.Int
	BirthTime  *big.Int
	LastUpdate *big.Int
	Level      *big.Int
	XP         *big.Int
}

// Reader performs view calls against the contract.
type Reader struct {
	backend   chain.Backend
	address   common.Address
	chainName string
}

// NewReader returns a read handle for the contract at address.
func NewReader(backend chain.Backend, address common.Address, chainName string) *Reader {
	return &Reader{backend: backend, address: address, chainName: chainName}
}

// Address returns the contract address.
func (r *Reader) Address() common.Address {
	return r.address
}

// call packs method, runs eth_call on the latest block and unpacks the outputs.
func (r *Reader) call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := PetABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	to := r.address
	out, err := r.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, mapError(method, r.chainName, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: make sure you are on the correct network: %s returned no data", ErrCallException, method)
	}
	values, err := PetABI.Methods[method].Outputs.Unpack(out)
	if err != nil {
		return nil, fmt.Errorf("%w: unpack %s: %w", ErrCallException, method, err)
	}
	return values, nil
}

// PetsByOwner returns the token ids owned by owner as the contract reports them.
func (r *Reader) PetsByOwner(ctx context.Context, owner common.Address) ([]*big.Int, error) {
	out, err := r.call(ctx, MethodGetPetsByOwner, owner)
	if err != nil {
		return nil, err
	}
	ids, ok := out[0].([]*big.Int)
	if !ok {
		return nil, unexpected(MethodGetPetsByOwner, out[0])
	}
	return ids, nil
}

// PetStats returns the stats of pet id.
func (r *Reader) PetStats(ctx context.Context, id *big.Int) (PetStats, error) {
	out, err := r.call(ctx, MethodGetPetStatsView, id)
	if err != nil {
		return PetStats{}, err
	}
	name, ok := out[0].(string)
	if !ok {
		return PetStats{}, unexpected(MethodGetPetStatsView, out[0])
	}
	nums := make([]*big.Int, 0, 6)
	for _, v := range out[1:] {
		n, ok := v.(*big.Int)
		if !ok {
			return PetStats{}, unexpected(MethodGetPetStatsView, v)
		}
		nums = append(nums, n)
	}
	return PetStats{
		Name:       name,
		Happiness:  nums[0],
		Hunger:     nums[1],
		BirthTime:  nums[2],
		LastUpdate: nums[3],
		Level:      nums[4],
		XP:         nums[5],
	}, nil
}

// PetType returns the elemental type of pet id.
func (r *Reader) PetType(ctx context.Context, id *big.Int) (uint8, error) {
	out, err := r.call(ctx, MethodGetPetType, id)
	if err != nil {
		return 0, err
	}
	t, ok := out[0].(uint8)
	if !ok {
		return 0, unexpected(MethodGetPetType, out[0])
	}
	return t, nil
}

// TokenURI returns the metadata URI of pet id.
func (r *Reader) TokenURI(ctx context.Context, id *big.Int) (string, error) {
	out, err := r.call(ctx, MethodTokenURI, id)
	if err != nil {
		return "", err
	}
	uri, ok := out[0].(string)
	if !ok {
		return "", unexpected(MethodTokenURI, out[0])
	}
	return uri, nil
}

// MintPrice returns the value mintPet requires.
func (r *Reader) MintPrice(ctx context.Context) (*big.Int, error) {
	out, err := r.call(ctx, MethodMintPrice)
	if err != nil {
		return nil, err
	}
	price, ok := out[0].(*big.Int)
	if !ok {
		return nil, unexpected(MethodMintPrice, out[0])
	}
	return price, nil
}

func unexpected(method string, v any) error {
	return fmt.Errorf("%w: %s returned %T", ErrCallException, method, v)
}
