// Package contracttest provides an in-memory chain running the pet contract,
// for tests of code built on the contract facade.
package contracttest

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Mohsinsiddi/cryptopet/internal/contract"
)

// DefaultMintPrice is the mint price a new Chain starts with (0.01 ether).
var DefaultMintPrice = big.NewInt(10_000_000_000_000_000)

// RevertError is what the fake returns for reverted calls. It carries the
// JSON-RPC code nodes use for execution errors.
type RevertError struct {
	Reason string
}

func (e *RevertError) Error() string  { return "execution reverted: " + e.Reason }
func (e *RevertError) ErrorCode() int { return 3 }

// Pet is the on-chain state of one token.
type Pet struct {
	Owner      common.Address
	Name       string
	Happiness  int64
	Hunger     int64
	BirthTime  int64
	LastUpdate int64
	Level      int64
	XP         int64
	Type       uint8
	URI        string
}

// Chain is a single-contract chain. It implements chain.Backend.
type Chain struct {
	mu         sync.Mutex
	address    common.Address
	chainID    *big.Int
	price      *big.Int
	pets       map[uint64]*Pet
	nextID     uint64
	nonces     map[common.Address]uint64
	receipts   map[common.Hash]*types.Receipt
	sent       []*types.Transaction
	calls      map[string]int
	callErrs   map[string]error
	sendErr    error
	revertNext bool
	holdTxs    bool
	zeroIDs    bool
	block      uint64
	now        func() time.Time
}

// New returns an empty chain with the contract deployed at address.
func New(address common.Address, chainID *big.Int) *Chain {
	return &Chain{
		address:  address,
		chainID:  new(big.Int).Set(chainID),
		price:    new(big.Int).Set(DefaultMintPrice),
		pets:     make(map[uint64]*Pet),
		nextID:   1,
		nonces:   make(map[common.Address]uint64),
		receipts: make(map[common.Hash]*types.Receipt),
		calls:    make(map[string]int),
		callErrs: make(map[string]error),
		block:    1,
		now:      time.Now,
	}
}

// SetMintPrice changes MINT_PRICE.
func (c *Chain) SetMintPrice(price *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.price = new(big.Int).Set(price)
}

// AddPet stores p under the next token id and returns it.
func (c *Chain) AddPet(p Pet) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).SetUint64(c.addPetLocked(p))
}

func (c *Chain) addPetLocked(p Pet) uint64 {
	id := c.nextID
	c.nextID++
	if p.BirthTime == 0 {
		p.BirthTime = c.now().Unix()
	}
	if p.LastUpdate == 0 {
		p.LastUpdate = p.BirthTime
	}
	if p.Level == 0 {
		p.Level = 1
	}
	c.pets[id] = &p
	return id
}

// Pet returns the state of token id.
func (c *Chain) Pet(id uint64) (Pet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pets[id]
	if !ok {
		return Pet{}, false
	}
	return *p, true
}

// FailCall makes every eth_call of method fail with err. A nil err clears it.
func (c *Chain) FailCall(method string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.callErrs, method)
		return
	}
	c.callErrs[method] = err
}

// FailSend makes SendTransaction fail with err. A nil err clears it.
func (c *Chain) FailSend(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendErr = err
}

// RevertNext mines the next transaction with status 0.
func (c *Chain) RevertNext() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revertNext = true
}

// HoldReceipts leaves every transaction pending: it executes on send but no
// receipt is ever returned.
func (c *Chain) HoldReceipts() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.holdTxs = true
}

// ReportZeroIDs makes getPetsByOwner include a zero token id.
func (c *Chain) ReportZeroIDs() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zeroIDs = true
}

// Calls returns how many eth_calls of method were served.
func (c *Chain) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

// Sent returns the transactions received, in order.
func (c *Chain) Sent() []*types.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*types.Transaction(nil), c.sent...)
}

// ─── chain.Backend ────────────────────────────────────────────────────────────

func (c *Chain) ChainID(context.Context) (*big.Int, error) {
	return new(big.Int).Set(c.chainID), nil
}

func (c *Chain) CodeAt(_ context.Context, account common.Address, _ *big.Int) ([]byte, error) {
	if account == c.address {
		return []byte{0x60, 0x80}, nil
	}
	return nil, nil
}

func (c *Chain) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return c.CodeAt(ctx, account, nil)
}

func (c *Chain) PendingNonceAt(_ context.Context, account common.Address) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nonces[account], nil
}

func (c *Chain) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &types.Header{Number: new(big.Int).SetUint64(c.block), BaseFee: big.NewInt(1_000_000_000)}, nil
}

func (c *Chain) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(2_000_000_000), nil
}

func (c *Chain) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (c *Chain) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 120_000, nil
}

func (c *Chain) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.receipts[hash]
	if !ok || c.holdTxs {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (c *Chain) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if msg.To == nil || *msg.To != c.address || len(msg.Data) < 4 {
		return nil, nil
	}
	method, err := contract.PetABI.MethodById(msg.Data[:4])
	if err != nil {
		return nil, &RevertError{Reason: "unknown selector"}
	}
	c.calls[method.Name]++
	if err := c.callErrs[method.Name]; err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, &RevertError{Reason: err.Error()}
	}

	switch method.Name {
	case contract.MethodGetPetsByOwner:
		owner := args[0].(common.Address)
		var ids []*big.Int
		if c.zeroIDs {
			ids = append(ids, new(big.Int))
		}
		for _, id := range c.sortedIDs() {
			if c.pets[id].Owner == owner {
				ids = append(ids, new(big.Int).SetUint64(id))
			}
		}
		if ids == nil {
			ids = []*big.Int{}
		}
		return method.Outputs.Pack(ids)
	case contract.MethodGetPetStatsView:
		p, err := c.petLocked(args[0].(*big.Int))
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(p.Name, big.NewInt(p.Happiness), big.NewInt(p.Hunger),
			big.NewInt(p.BirthTime), big.NewInt(p.LastUpdate), big.NewInt(p.Level), big.NewInt(p.XP))
	case contract.MethodGetPetType:
		p, err := c.petLocked(args[0].(*big.Int))
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(p.Type)
	case contract.MethodTokenURI:
		p, err := c.petLocked(args[0].(*big.Int))
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(p.URI)
	case contract.MethodMintPrice:
		return method.Outputs.Pack(new(big.Int).Set(c.price))
	default:
		return nil, &RevertError{Reason: method.Name + " is not a view"}
	}
}

func (c *Chain) SendTransaction(_ context.Context, tx *types.Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	from, err := types.Sender(types.LatestSignerForChainID(c.chainID), tx)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	if want := c.nonces[from]; tx.Nonce() != want {
		return fmt.Errorf("invalid nonce: got %d, want %d", tx.Nonce(), want)
	}
	c.nonces[from]++
	c.sent = append(c.sent, tx)

	status := types.ReceiptStatusSuccessful
	if c.revertNext || c.execute(from, tx) != nil {
		status = types.ReceiptStatusFailed
		c.revertNext = false
	}
	c.block++
	c.receipts[tx.Hash()] = &types.Receipt{
		Status:      status,
		TxHash:      tx.Hash(),
		BlockNumber: new(big.Int).SetUint64(c.block),
		GasUsed:     21_000,
	}
	return nil
}

// execute applies a contract call. A non-nil error reverts it.
func (c *Chain) execute(from common.Address, tx *types.Transaction) error {
	if tx.To() == nil || *tx.To() != c.address || len(tx.Data()) < 4 {
		return errors.New("not a contract call")
	}
	method, err := contract.PetABI.MethodById(tx.Data()[:4])
	if err != nil {
		return err
	}
	args, err := method.Inputs.Unpack(tx.Data()[4:])
	if err != nil {
		return err
	}
	switch method.Name {
	case contract.MethodMintPet:
		if tx.Value().Cmp(c.price) < 0 {
			return errors.New("insufficient payment")
		}
		id := c.nextID
		c.addPetLocked(Pet{
			Owner:     from,
			Name:      args[0].(string),
			Happiness: 50,
			Hunger:    50,
			BirthTime: c.now().Unix(),
			Type:      uint8(id % 3),
		})
		return nil
	case contract.MethodFeedPet:
		p, err := c.ownedLocked(from, args[0].(*big.Int))
		if err != nil {
			return err
		}
		p.Hunger = max(0, p.Hunger-20)
		p.XP += 5
		p.Level = 1 + p.XP/100
	case contract.MethodPlayWithPet:
		p, err := c.ownedLocked(from, args[0].(*big.Int))
		if err != nil {
			return err
		}
		p.Happiness = min(100, p.Happiness+15)
		p.Hunger = min(100, p.Hunger+5)
		p.XP += 10
		p.Level = 1 + p.XP/100
	default:
		return fmt.Errorf("%s is a view", method.Name)
	}
	return nil
}

func (c *Chain) petLocked(id *big.Int) (*Pet, error) {
	if !id.IsUint64() {
		return nil, &RevertError{Reason: "pet does not exist"}
	}
	p, ok := c.pets[id.Uint64()]
	if !ok {
		return nil, &RevertError{Reason: "pet does not exist"}
	}
	return p, nil
}

func (c *Chain) ownedLocked(from common.Address, id *big.Int) (*Pet, error) {
	p, err := c.petLocked(id)
	if err != nil {
		return nil, err
	}
	if p.Owner != from {
		return nil, errors.New("not the owner")
	}
	p.LastUpdate = c.now().Unix()
	return p, nil
}

func (c *Chain) sortedIDs() []uint64 {
	ids := make([]uint64, 0, len(c.pets))
	for id := range c.pets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ─── Signer ───────────────────────────────────────────────────────────────────

// KeySigner signs with a local key. It implements contract.TxSigner.
type KeySigner struct {
	key     *ecdsa.PrivateKey
	chainID *big.Int
}

// NewKeySigner returns a signer for key on chainID.
func NewKeySigner(key *ecdsa.PrivateKey, chainID *big.Int) *KeySigner {
	return &KeySigner{key: key, chainID: chainID}
}

// GenerateSigner returns a signer for a fresh random key.
func GenerateSigner(chainID *big.Int) *KeySigner {
	key, err := crypto.GenerateKey()
	if err != nil {
		panic(err)
	}
	return NewKeySigner(key, chainID)
}

func (s *KeySigner) Address() common.Address {
	return crypto.PubkeyToAddress(s.key.PublicKey)
}

func (s *KeySigner) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(s.key, s.chainID)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	return opts, nil
}
