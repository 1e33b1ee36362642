package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/cryptopet/internal/chain"
	"github.com/Mohsinsiddi/cryptopet/internal/connector"
	"github.com/Mohsinsiddi/cryptopet/internal/contract"
	"github.com/Mohsinsiddi/cryptopet/internal/contract/contracttest"
	"github.com/Mohsinsiddi/cryptopet/internal/eip1193"
	"github.com/Mohsinsiddi/cryptopet/internal/eip1193/eip1193test"
	"github.com/Mohsinsiddi/cryptopet/internal/session"
)

const account = "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"

var petAddr = common.HexToAddress(contract.DefaultAddress)

func sepolia(t *testing.T) chain.Descriptor {
	t.Helper()
	d, err := chain.NewRegistry().GetByName(chain.Sepolia)
	require.NoError(t, err)
	return d
}

func wallet(authorized bool) *eip1193test.Provider {
	granted := []string{}
	if authorized {
		granted = []string{account}
	}
	return eip1193test.New().
		Returns(eip1193.MethodRequestAccounts, []string{account}).
		Returns(eip1193.MethodAccounts, granted).
		Returns(eip1193.MethodChainID, "0xaa36a7")
}

func newStore(t *testing.T, w eip1193.Provider) (*session.Store, *contracttest.Chain) {
	t.Helper()
	target := sepolia(t)
	fallback := contracttest.New(petAddr, target.ID())
	s := session.New(
		connector.New(w, target, nil),
		contract.NewDeriver(petAddr, target, nil),
		session.WithFallback(func(context.Context) (chain.Backend, error) { return fallback, nil }),
	)
	t.Cleanup(s.Close)
	return s, fallback
}

// ─── Init ─────────────────────────────────────────────────────────────────────

func TestInitStartsEmptyWithFallback(t *testing.T) {
	s, fallback := newStore(t, wallet(false))

	assert.Equal(t, session.State{}, s.Snapshot())
	assert.Nil(t, s.ReadProvider())

	require.NoError(t, s.Init(context.Background()))

	st := s.Snapshot()
	assert.False(t, st.IsConnected)
	assert.False(t, st.IsConnecting)
	assert.Same(t, fallback, s.ReadProvider())

	f := s.Facade()
	assert.NotNil(t, f.Read)
	assert.Nil(t, f.Write)
}

func TestInitConnectsSilentlyWhenAuthorized(t *testing.T) {
	w := wallet(true)
	s, fallback := newStore(t, w)

	require.NoError(t, s.Init(context.Background()))

	st := s.Snapshot()
	assert.True(t, st.IsConnected)
	assert.Equal(t, common.HexToAddress(account), st.Address)
	require.NotNil(t, st.Signer)
	assert.NotSame(t, fallback, s.ReadProvider())
	assert.NotNil(t, s.Facade().Write)
	assert.Equal(t, 1, w.Count(eip1193.MethodRequestAccounts))
}

func TestInitWithoutWallet(t *testing.T) {
	s, _ := newStore(t, nil)

	require.NoError(t, s.Init(context.Background()))
	assert.False(t, s.Snapshot().IsConnected)
	assert.NotNil(t, s.ReadProvider())
}

func TestInitFallbackFailureIsNotFatal(t *testing.T) {
	target := sepolia(t)
	s := session.New(connector.New(nil, target, nil), contract.NewDeriver(petAddr, target, nil),
		session.WithFallback(func(context.Context) (chain.Backend, error) { return nil, errors.New("all rpcs down") }))

	require.NoError(t, s.Init(context.Background()))
	_, err := s.NetworkStatus(context.Background())
	assert.ErrorIs(t, err, session.ErrNoProvider)
}

// ─── Connect ──────────────────────────────────────────────────────────────────

func TestConnectWithoutWalletSetsError(t *testing.T) {
	s, _ := newStore(t, nil)

	err := s.Connect(context.Background())
	assert.ErrorIs(t, err, connector.ErrWalletUnavailable)

	st := s.Snapshot()
	assert.ErrorIs(t, st.Err, connector.ErrWalletUnavailable)
	assert.False(t, st.IsConnecting)
	assert.False(t, st.IsConnected)
}

func TestConnectFailureKeepsPriorConnection(t *testing.T) {
	w := wallet(true)
	s, _ := newStore(t, w)
	require.NoError(t, s.Connect(context.Background()))
	before := s.Snapshot()

	w.Fails(eip1193.MethodRequestAccounts, eip1193.CodeUserRejected)
	err := s.Connect(context.Background())
	assert.ErrorIs(t, err, connector.ErrUserRejected)

	after := s.Snapshot()
	assert.True(t, after.IsConnected)
	assert.Equal(t, before.Address, after.Address)
	assert.Same(t, before.Signer, after.Signer)
	assert.ErrorIs(t, after.Err, connector.ErrUserRejected)

	// a later success clears the error
	w.Returns(eip1193.MethodRequestAccounts, []string{account})
	require.NoError(t, s.Connect(context.Background()))
	assert.NoError(t, s.Snapshot().Err)
}

func TestConnectWhileConnectingIsNoop(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	w := wallet(false).Handle(eip1193.MethodRequestAccounts, func([]any) (any, error) {
		close(entered)
		<-release
		return []string{account}, nil
	})
	s, _ := newStore(t, w)

	done := make(chan error, 1)
	go func() { done <- s.Connect(context.Background()) }()
	<-entered

	assert.True(t, s.Snapshot().IsConnecting)
	assert.NoError(t, s.Connect(context.Background()))
	assert.Equal(t, 1, w.Count(eip1193.MethodRequestAccounts))

	close(release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("connect did not finish")
	}
	st := s.Snapshot()
	assert.True(t, st.IsConnected)
	assert.False(t, st.IsConnecting)
}

func TestSubscribe(t *testing.T) {
	s, _ := newStore(t, wallet(false))

	var seen []session.State
	unsubscribe := s.Subscribe(func(st session.State) { seen = append(seen, st) })
	require.NoError(t, s.Connect(context.Background()))
	unsubscribe()
	require.NoError(t, s.Connect(context.Background()))

	require.Len(t, seen, 2)
	assert.True(t, seen[0].IsConnecting)
	assert.False(t, seen[0].IsConnected)
	assert.True(t, seen[1].IsConnected)
	assert.False(t, seen[1].IsConnecting)
}

// ─── Derived views ────────────────────────────────────────────────────────────

func TestFacadeMemoizedUntilStateChanges(t *testing.T) {
	s, _ := newStore(t, wallet(false))
	require.NoError(t, s.Init(context.Background()))

	first := s.Facade()
	assert.Same(t, first, s.Facade())

	require.NoError(t, s.Connect(context.Background()))
	second := s.Facade()
	assert.NotSame(t, first, second)
	assert.NotNil(t, second.Write)
}

func TestBinding(t *testing.T) {
	s, _ := newStore(t, wallet(true))
	require.NoError(t, s.Init(context.Background()))

	b := s.Binding()
	assert.True(t, b.Connected)
	assert.Equal(t, common.HexToAddress(account), b.Owner)
	assert.NotNil(t, b.Facade.Write)
}

func TestNetworkStatus(t *testing.T) {
	s, _ := newStore(t, wallet(false))
	require.NoError(t, s.Init(context.Background()))

	st, err := s.NetworkStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Matches)
	assert.False(t, st.ViaWallet)
	assert.Equal(t, int64(11155111), st.ChainID.Int64())
}

func TestNetworkStatusWrongWalletChain(t *testing.T) {
	w := wallet(true)
	s, _ := newStore(t, w)
	require.NoError(t, s.Init(context.Background()))

	// the user moved the wallet to mainnet after connecting
	w.Returns(eip1193.MethodChainID, "0x1")
	st, err := s.NetworkStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, st.ViaWallet)
	assert.False(t, st.Matches)
	assert.Equal(t, int64(1), st.ChainID.Int64())
}

func TestCheckChain(t *testing.T) {
	w := wallet(true)
	s, _ := newStore(t, w)
	require.NoError(t, s.Init(context.Background()))
	assert.NoError(t, s.CheckChain(context.Background()))

	w.Returns(eip1193.MethodChainID, "0x1")
	assert.ErrorIs(t, s.CheckChain(context.Background()), connector.ErrChainMismatch)
}

func TestCheckChainDisconnected(t *testing.T) {
	w := wallet(false).Returns(eip1193.MethodChainID, "0x1")
	s, _ := newStore(t, w)
	require.NoError(t, s.Init(context.Background()))
	assert.NoError(t, s.CheckChain(context.Background()))
}
