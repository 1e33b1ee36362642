package pets_test

import (
	"context"
	"encoding/base64"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/cryptopet/internal/chain"
	"github.com/Mohsinsiddi/cryptopet/internal/contract"
	"github.com/Mohsinsiddi/cryptopet/internal/contract/contracttest"
	"github.com/Mohsinsiddi/cryptopet/internal/pets"
)

var petAddr = common.HexToAddress(contract.DefaultAddress)

type env struct {
	chain  *contracttest.Chain
	signer *contracttest.KeySigner
	sync   *pets.Synchronizer

	mu      sync.Mutex
	binding pets.Binding
}

func (e *env) source() pets.Binding {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.binding
}

func (e *env) disconnect() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.binding.Connected = false
}

func newEnv(t *testing.T) *env {
	t.Helper()
	target, err := chain.NewRegistry().GetByName(chain.Sepolia)
	require.NoError(t, err)

	e := &env{
		chain:  contracttest.New(petAddr, target.ID()),
		signer: contracttest.GenerateSigner(target.ID()),
	}
	facade := contract.NewDeriver(petAddr, target, nil).Derive(e.chain, e.signer, true)
	e.binding = pets.Binding{Facade: facade, Owner: e.signer.Address(), Connected: true}
	e.sync = pets.NewSynchronizer(e.source, pets.NewMetadataResolver("", nil, nil), nil)
	t.Cleanup(e.sync.Close)
	return e
}

func dataURI(json string) string {
	return "data:application/json;base64," + base64.StdEncoding.EncodeToString([]byte(json))
}

// ─── Fetch ────────────────────────────────────────────────────────────────────

func TestFetchBuildsRecordsInIDOrder(t *testing.T) {
	e := newEnv(t)
	owner := e.signer.Address()
	e.chain.AddPet(contracttest.Pet{Owner: owner, Name: "Ember", Happiness: 70, Hunger: 20,
		BirthTime: 1_700_000_000, LastUpdate: 1_700_003_600, Level: 2, XP: 120, Type: 0,
		URI: dataURI(`{"name":"Ember","image":"ipfs://img/ember.png"}`)})
	e.chain.AddPet(contracttest.Pet{Owner: common.HexToAddress("0x01"), Name: "NotMine"})
	e.chain.AddPet(contracttest.Pet{Owner: owner, Name: "Splash", Type: 1})

	require.NoError(t, e.sync.Fetch(context.Background()))

	got := e.sync.Pets()
	require.Len(t, got, 2)
	first := got[0]
	assert.Equal(t, "1", first.ID)
	assert.Equal(t, "Ember", first.Name)
	assert.Equal(t, 70, first.Happiness)
	assert.Equal(t, 20, first.Hunger)
	assert.Equal(t, 2, first.Level)
	assert.Equal(t, 120, first.XP)
	assert.Equal(t, pets.Fire, first.Type)
	assert.True(t, first.HasNFT)
	assert.Equal(t, time.Unix(1_700_000_000, 0), first.Birthdate)
	assert.Equal(t, time.Unix(1_700_003_600, 0), first.LastInteraction)
	assert.Equal(t, pets.DefaultGateway+"img/ember.png", first.ImageURI)

	assert.Equal(t, "3", got[1].ID)
	assert.Equal(t, pets.Water, got[1].Type)
	assert.Empty(t, got[1].ImageURI)

	assert.Equal(t, "1", e.sync.Selected().ID, "first pet is selected by default")
}

func TestFetchNoopWhenDisconnected(t *testing.T) {
	e := newEnv(t)
	e.chain.AddPet(contracttest.Pet{Owner: e.signer.Address()})
	e.disconnect()

	require.NoError(t, e.sync.Fetch(context.Background()))
	assert.Empty(t, e.sync.Pets())
	assert.Zero(t, e.chain.Calls(contract.MethodGetPetsByOwner))
	assert.Equal(t, pets.Placeholder(), e.sync.Selected())
}

func TestFetchToleratesTypeAndURIFailures(t *testing.T) {
	e := newEnv(t)
	e.chain.AddPet(contracttest.Pet{Owner: e.signer.Address(), Name: "Leafy", Type: 2})
	e.chain.FailCall(contract.MethodGetPetType, errors.New("boom"))
	e.chain.FailCall(contract.MethodTokenURI, errors.New("boom"))

	require.NoError(t, e.sync.Fetch(context.Background()))
	got := e.sync.Pets()
	require.Len(t, got, 1)
	assert.Equal(t, "Leafy", got[0].Name)
	assert.Equal(t, pets.Fire, got[0].Type)
}

func TestFetchStatsFailureKeepsPreviousSet(t *testing.T) {
	e := newEnv(t)
	e.chain.AddPet(contracttest.Pet{Owner: e.signer.Address(), Name: "Keep"})
	require.NoError(t, e.sync.Fetch(context.Background()))

	e.chain.FailCall(contract.MethodGetPetStatsView, errors.New("connection refused"))
	err := e.sync.Fetch(context.Background())
	assert.ErrorIs(t, err, contract.ErrNetwork)

	snap := e.sync.Snapshot()
	require.Len(t, snap.Pets, 1)
	assert.Equal(t, "Keep", snap.Pets[0].Name)
	assert.ErrorIs(t, snap.Err, contract.ErrNetwork)
	assert.False(t, snap.Loading)
}

func TestFetchIsIdempotent(t *testing.T) {
	e := newEnv(t)
	e.chain.AddPet(contracttest.Pet{Owner: e.signer.Address(), Name: "A", Hunger: 30})
	e.chain.AddPet(contracttest.Pet{Owner: e.signer.Address(), Name: "B", Type: 2})
	require.NoError(t, e.sync.Fetch(context.Background()))
	first := e.sync.Pets()

	require.NoError(t, e.sync.Fetch(context.Background()))
	assert.Equal(t, first, e.sync.Pets())
	assert.Equal(t, "1", e.sync.Selected().ID)
}

func TestFetchAfterCloseIsDropped(t *testing.T) {
	e := newEnv(t)
	e.chain.AddPet(contracttest.Pet{Owner: e.signer.Address()})
	e.sync.Close()

	require.NoError(t, e.sync.Fetch(context.Background()))
	assert.Empty(t, e.sync.Pets())
}

// ─── Selection / subscribe ────────────────────────────────────────────────────

func TestReadAnyPet(t *testing.T) {
	e := newEnv(t)
	e.chain.AddPet(contracttest.Pet{Owner: common.HexToAddress("0x02"), Name: "Stranger", Type: 1, Level: 3})
	e.disconnect()

	r, err := e.sync.Read(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Stranger", r.Name)
	assert.Equal(t, pets.Water, r.Type)
	assert.Equal(t, 3, r.Level)
	assert.Empty(t, e.sync.Pets())

	_, err = e.sync.Read(context.Background(), "9")
	assert.ErrorIs(t, err, contract.ErrCallException)
	_, err = e.sync.Read(context.Background(), "x")
	assert.Error(t, err)
}

func TestSelect(t *testing.T) {
	e := newEnv(t)
	e.chain.AddPet(contracttest.Pet{Owner: e.signer.Address(), Name: "A"})
	e.chain.AddPet(contracttest.Pet{Owner: e.signer.Address(), Name: "B"})
	require.NoError(t, e.sync.Fetch(context.Background()))

	require.NoError(t, e.sync.Select("2"))
	assert.Equal(t, "B", e.sync.Selected().Name)
	assert.ErrorIs(t, e.sync.Select("9"), pets.ErrPetNotFound)

	// selection survives a refetch
	require.NoError(t, e.sync.Fetch(context.Background()))
	assert.Equal(t, "B", e.sync.Selected().Name)

	r, ok := e.sync.Lookup("1")
	assert.True(t, ok)
	assert.Equal(t, "A", r.Name)
}

func TestSubscribeSeesLoadingThenResult(t *testing.T) {
	e := newEnv(t)
	e.chain.AddPet(contracttest.Pet{Owner: e.signer.Address(), Name: "A"})

	var snaps []pets.Snapshot
	unsubscribe := e.sync.Subscribe(func(s pets.Snapshot) { snaps = append(snaps, s) })
	require.NoError(t, e.sync.Fetch(context.Background()))
	unsubscribe()
	require.NoError(t, e.sync.Fetch(context.Background()))

	require.Len(t, snaps, 2)
	assert.True(t, snaps[0].Loading)
	assert.False(t, snaps[1].Loading)
	assert.Len(t, snaps[1].Pets, 1)
}

// ─── Writes ───────────────────────────────────────────────────────────────────

func TestFeedConfirmsThenRefetches(t *testing.T) {
	e := newEnv(t)
	e.chain.AddPet(contracttest.Pet{Owner: e.signer.Address(), Name: "A", Hunger: 60})
	require.NoError(t, e.sync.Fetch(context.Background()))

	receipt, err := e.sync.Feed(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), receipt.Status)

	pet, ok := e.sync.Lookup("1")
	require.True(t, ok)
	assert.Equal(t, 40, pet.Hunger, "state is refetched, not patched")
	assert.Equal(t, 2, e.chain.Calls(contract.MethodGetPetsByOwner))
}

func TestFeedRefetchesAfterConfirmationDeadline(t *testing.T) {
	e := newEnv(t)
	e.chain.AddPet(contracttest.Pet{Owner: e.signer.Address(), Name: "A", Hunger: 60})
	require.NoError(t, e.sync.Fetch(context.Background()))
	e.chain.HoldReceipts()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err := e.sync.Feed(ctx, "1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Equal(t, 2, e.chain.Calls(contract.MethodGetPetsByOwner), "refetch ran after the deadline")
	pet, ok := e.sync.Lookup("1")
	require.True(t, ok)
	chainPet, _ := e.chain.Pet(1)
	assert.Equal(t, int(chainPet.Hunger), pet.Hunger)
	assert.Equal(t, 40, pet.Hunger)
}

func TestFeedRefetchesAfterCancel(t *testing.T) {
	e := newEnv(t)
	e.chain.AddPet(contracttest.Pet{Owner: e.signer.Address(), Name: "A", Hunger: 60})
	e.chain.HoldReceipts()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)
	_, err := e.sync.Feed(ctx, "1")
	assert.ErrorIs(t, err, context.Canceled)

	pet, ok := e.sync.Lookup("1")
	require.True(t, ok)
	assert.Equal(t, 40, pet.Hunger)
}

func TestPlayRevertedStillRefetches(t *testing.T) {
	e := newEnv(t)
	e.chain.AddPet(contracttest.Pet{Owner: e.signer.Address(), Happiness: 10})
	e.chain.RevertNext()

	_, err := e.sync.Play(context.Background(), "1")
	assert.ErrorIs(t, err, pets.ErrTransactionFailed)
	assert.Equal(t, 1, e.chain.Calls(contract.MethodGetPetsByOwner))
	pet, _ := e.sync.Lookup("1")
	assert.Equal(t, 10, pet.Happiness)
}

func TestMintAddsPet(t *testing.T) {
	e := newEnv(t)

	_, err := e.sync.Mint(context.Background(), "  Sprout ")
	require.NoError(t, err)

	got := e.sync.Pets()
	require.Len(t, got, 1)
	assert.Equal(t, "Sprout", got[0].Name)
	assert.Equal(t, "1", e.sync.Selected().ID)
	assert.Equal(t, 0, e.chain.Sent()[0].Value().Cmp(contracttest.DefaultMintPrice))
}

func TestMintAppendsToExistingSet(t *testing.T) {
	e := newEnv(t)
	e.chain.AddPet(contracttest.Pet{Owner: e.signer.Address(), Name: "Ember"})
	require.NoError(t, e.sync.Fetch(context.Background()))

	_, err := e.sync.Mint(context.Background(), "Aria")
	require.NoError(t, err)

	got := e.sync.Pets()
	require.Len(t, got, 2)
	assert.Equal(t, "Ember", got[0].Name)
	assert.Equal(t, "Aria", got[1].Name)
	assert.Equal(t, "2", got[1].ID)
	assert.True(t, got[1].HasNFT)
	assert.Equal(t, 50, got[1].Happiness)
	assert.Equal(t, 50, got[1].Hunger)
}

func TestMintRejectsEmptyName(t *testing.T) {
	e := newEnv(t)

	_, err := e.sync.Mint(context.Background(), "   ")
	assert.ErrorIs(t, err, pets.ErrEmptyName)
	assert.Empty(t, e.chain.Sent())
}

func TestWriteWithoutWallet(t *testing.T) {
	e := newEnv(t)
	e.mu.Lock()
	e.binding.Facade = contract.NewDeriver(petAddr, chain.Descriptor{ChainName: "Sepolia"}, nil).Derive(e.chain, nil, false)
	e.binding.Connected = false
	e.mu.Unlock()

	_, err := e.sync.Feed(context.Background(), "1")
	assert.ErrorIs(t, err, contract.ErrContractNotInitialized)
	assert.Empty(t, e.chain.Sent())
}

func TestWriteCheckAbortsBeforeSend(t *testing.T) {
	e := newEnv(t)
	e.chain.AddPet(contracttest.Pet{Owner: e.signer.Address(), Hunger: 60})
	mismatch := errors.New("wallet on 0x1")
	s := pets.NewSynchronizer(e.source, nil, nil, pets.WithWriteCheck(func(context.Context) error { return mismatch }))
	t.Cleanup(s.Close)

	_, err := s.Feed(context.Background(), "1")
	assert.ErrorIs(t, err, mismatch)
	_, err = s.Mint(context.Background(), "Aria")
	assert.ErrorIs(t, err, mismatch)
	assert.Empty(t, e.chain.Sent())
	assert.Zero(t, e.chain.Calls(contract.MethodGetPetsByOwner))
}

func TestWriteRejectsBadID(t *testing.T) {
	e := newEnv(t)

	_, err := e.sync.Feed(context.Background(), "abc")
	assert.Error(t, err)
	_, err = e.sync.Play(context.Background(), "0")
	assert.Error(t, err)
}

func TestParseID(t *testing.T) {
	n, err := pets.ParseID("42")
	require.NoError(t, err)
	assert.Equal(t, 0, n.Cmp(big.NewInt(42)))

	_, err = pets.ParseID("-1")
	assert.Error(t, err)
}
