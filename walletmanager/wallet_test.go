package walletmanager

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	wcommon "github.com/obsidianwallet/obsidian-wallet-connect/common"
	"github.com/obsidianwallet/obsidian-wallet-connect/database"
)

var (
	testAddress  = common.HexToAddress("0x000000000000000000000000000000000000dEaD")
	otherAddress = common.HexToAddress("0x00000000000000000000000000000000000bEEF1")
)

type fakeConnector struct {
	id, name string

	mu            sync.Mutex
	account       Account
	connectErr    error
	accountErr    error
	disconnectErr error
	connectCalls  []*uint64
	onConnect     func()
	disconnects   int
}

func (f *fakeConnector) ID() string   { return f.id }
func (f *fakeConnector) Name() string { return f.name }

func (f *fakeConnector) Connect(_ context.Context, chainID *uint64) (Account, error) {
	f.mu.Lock()
	f.connectCalls = append(f.connectCalls, chainID)
	hook := f.onConnect
	acc, err := f.account, f.connectErr
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return acc, err
}

func (f *fakeConnector) Account(context.Context) (Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.account, f.accountErr
}

func (f *fakeConnector) Disconnect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	return f.disconnectErr
}

func (f *fakeConnector) set(fn func(f *fakeConnector)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func newMetaMask() *fakeConnector {
	return &fakeConnector{id: "metaMask", name: "MetaMask", account: Account{Address: testAddress, ChainID: 1315}}
}

func newTestManager(t *testing.T, db *database.Database, connectors ...Connector) *WalletManager {
	t.Helper()
	wlm, err := InitWallet(db, zerolog.Nop(), 0, connectors...)
	require.NoError(t, err)
	return wlm
}

// startWithin fails the test instead of hanging when Start blocks.
func startWithin(t *testing.T, wlm *WalletManager) {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- wlm.Start() }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Start did not return")
	}
}

func recordStates(wlm *WalletManager) *[]ConnectionState {
	var states []ConnectionState
	wlm.Subscribe(func(s ConnectionState) {
		states = append(states, s)
	})
	return &states
}

func TestInitWallet_DuplicateConnector(t *testing.T) {
	_, err := InitWallet(nil, zerolog.Nop(), 0, newMetaMask(), newMetaMask())
	assert.Error(t, err)
}

func TestWalletManager_Connectors(t *testing.T) {
	wlm := newTestManager(t, nil, newMetaMask(), &fakeConnector{id: "injected", name: "Injected"})
	assert.Equal(t, []ConnectorInfo{{ID: "metaMask", Name: "MetaMask"}, {ID: "injected", Name: "Injected"}}, wlm.Connectors())
}

func TestWalletManager_Connect(t *testing.T) {
	mm := newMetaMask()
	wlm := newTestManager(t, nil, mm)
	states := recordStates(wlm)

	var pendingDuringConnect bool
	mm.onConnect = func() { pendingDuringConnect = wlm.IsPending() }

	require.NoError(t, wlm.Connect(context.Background(), "metaMask", nil))

	assert.True(t, pendingDuringConnect)
	assert.False(t, wlm.IsPending())
	require.Len(t, mm.connectCalls, 1)
	assert.Nil(t, mm.connectCalls[0])

	state := wlm.State()
	assert.True(t, state.IsConnected)
	assert.Equal(t, StatusConnected, state.Status)
	assert.Equal(t, testAddress, *state.Address)
	assert.EqualValues(t, 1315, *state.ChainID)
	assert.Equal(t, "MetaMask", state.ConnectorName)
	assert.NoError(t, wlm.ConnectError())

	require.Len(t, *states, 2)
	assert.Equal(t, StatusConnecting, (*states)[0].Status)
	assert.Equal(t, StatusConnected, (*states)[1].Status)
}

func TestWalletManager_ConnectFailure(t *testing.T) {
	mm := newMetaMask()
	mm.connectErr = errors.New("user rejected")
	wlm := newTestManager(t, nil, mm)
	states := recordStates(wlm)

	err := wlm.Connect(context.Background(), "metaMask", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, mm.connectErr))
	assert.Equal(t, err, wlm.ConnectError())
	assert.Equal(t, StatusDisconnected, wlm.State().Status)
	assert.False(t, wlm.IsPending())

	require.Len(t, *states, 2)
	assert.Equal(t, StatusDisconnected, (*states)[1].Status)

	mm.set(func(f *fakeConnector) { f.connectErr = nil })
	require.NoError(t, wlm.Connect(context.Background(), "metaMask", nil))
	assert.NoError(t, wlm.ConnectError())
}

func TestWalletManager_OverlappingConnects(t *testing.T) {
	mm := newMetaMask()
	wlm := newTestManager(t, nil, mm)

	calls := atomic.NewInt32(0)
	entered := make(chan struct{})
	release := make(chan struct{})
	mm.onConnect = func() {
		if calls.Inc() == 1 {
			close(entered)
			<-release
		}
	}

	slow := make(chan error, 1)
	go func() { slow <- wlm.Connect(context.Background(), "metaMask", nil) }()
	<-entered

	require.NoError(t, wlm.Connect(context.Background(), "metaMask", nil))
	assert.Equal(t, StatusConnected, wlm.State().Status)
	assert.True(t, wlm.IsPending(), "first connect is still in flight")

	close(release)
	require.NoError(t, <-slow)
	assert.False(t, wlm.IsPending())
}

func TestWalletManager_ConnectUnknown(t *testing.T) {
	wlm := newTestManager(t, nil, newMetaMask())
	assert.Error(t, wlm.Connect(context.Background(), "coinbase", nil))
	assert.Equal(t, StatusDisconnected, wlm.State().Status)
}

func TestWalletManager_Disconnect(t *testing.T) {
	mm := newMetaMask()
	wlm := newTestManager(t, nil, mm)
	require.NoError(t, wlm.Connect(context.Background(), "metaMask", nil))

	t.Run("Failure keeps state", func(t *testing.T) {
		states := recordStates(wlm)
		mm.set(func(f *fakeConnector) { f.disconnectErr = errors.New("provider gone") })
		err := wlm.Disconnect(context.Background())
		require.Error(t, err)
		assert.Equal(t, err, wlm.DisconnectError())
		assert.True(t, wlm.State().IsConnected)

		require.Len(t, *states, 1, "a new disconnect error notifies listeners")
		assert.True(t, (*states)[0].IsConnected)
	})

	t.Run("Success resets state", func(t *testing.T) {
		mm.set(func(f *fakeConnector) { f.disconnectErr = nil })
		require.NoError(t, wlm.Disconnect(context.Background()))
		assert.NoError(t, wlm.DisconnectError())
		assert.Equal(t, ConnectionState{Status: StatusDisconnected}, wlm.State())
		assert.Equal(t, 2, mm.disconnects)
	})

	t.Run("Without active connector", func(t *testing.T) {
		require.NoError(t, wlm.Disconnect(context.Background()))
		assert.Equal(t, 2, mm.disconnects)
	})
}

func TestWalletManager_Unsubscribe(t *testing.T) {
	wlm := newTestManager(t, nil, newMetaMask())
	calls := 0
	unsubscribe := wlm.Subscribe(func(ConnectionState) { calls++ })
	unsubscribe()
	require.NoError(t, wlm.Connect(context.Background(), "metaMask", nil))
	assert.Zero(t, calls)
}

func TestWalletManager_Refresh(t *testing.T) {
	mm := newMetaMask()
	wlm := newTestManager(t, nil, mm)
	require.NoError(t, wlm.Connect(context.Background(), "metaMask", nil))
	states := recordStates(wlm)

	wlm.refresh()
	assert.Empty(t, *states, "unchanged account must not notify")

	mm.set(func(f *fakeConnector) { f.account = Account{Address: otherAddress, ChainID: 1} })
	wlm.refresh()
	require.Len(t, *states, 1)
	assert.Equal(t, otherAddress, *(*states)[0].Address)
	assert.EqualValues(t, 1, *(*states)[0].ChainID)

	mm.set(func(f *fakeConnector) { f.accountErr = errors.New("timeout") })
	wlm.refresh()
	assert.Len(t, *states, 1)
	assert.True(t, wlm.State().IsConnected)

	mm.set(func(f *fakeConnector) { f.accountErr = ErrNoAccounts })
	wlm.refresh()
	require.Len(t, *states, 2)
	assert.False(t, (*states)[1].IsConnected)
	assert.Equal(t, StatusDisconnected, wlm.State().Status)
}

func TestWalletManager_Persistence(t *testing.T) {
	bdb, err := database.NewBadgerDB(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	defer bdb.Close()
	db := &database.Database{DB: bdb}

	mm := newMetaMask()
	first := newTestManager(t, db, mm)
	require.NoError(t, first.Connect(context.Background(), "metaMask", nil))

	t.Run("Reconnect on start", func(t *testing.T) {
		second := newTestManager(t, db, mm)
		require.NoError(t, second.SwitchNetwork(wcommon.StoryAeneidTestnet))
		states := recordStates(second)
		startWithin(t, second)
		defer second.Stop()

		require.Len(t, *states, 2)
		assert.Equal(t, StatusReconnecting, (*states)[0].Status)
		assert.Equal(t, StatusConnected, (*states)[1].Status)
		assert.Equal(t, testAddress, *second.State().Address)

		sessions, err := second.ListSessions(0)
		require.NoError(t, err)
		require.Len(t, sessions, 2)
		assert.Equal(t, "metaMask", sessions[0].ConnectorID)
		assert.Equal(t, testAddress.Hex(), sessions[0].Address)
		assert.EqualValues(t, 1315, sessions[0].ChainID)
		assert.Equal(t, wcommon.StoryAeneidTestnet.Name, sessions[0].Network)

		require.NoError(t, second.Stop())
		require.NoError(t, second.SwitchNetwork(wcommon.ChainSpec{ChainID: 1, Name: "Ethereum"}))
		startWithin(t, second)
		sessions, err = second.ListSessions(0)
		require.NoError(t, err)
		assert.Len(t, sessions, 2, "restart keeps the active session")

		require.NoError(t, second.Disconnect(context.Background()))
		sessions, err = second.ListSessions(1)
		require.NoError(t, err)
		require.Len(t, sessions, 1)
		assert.NotNil(t, sessions[0].DisconnectedAt)
	})

	t.Run("Nothing to restore after disconnect", func(t *testing.T) {
		third := newTestManager(t, db, mm)
		states := recordStates(third)
		startWithin(t, third)
		defer third.Stop()
		assert.Empty(t, *states)
		assert.False(t, third.State().IsConnected)
	})

	t.Run("Failed restore forgets connector", func(t *testing.T) {
		require.NoError(t, first.Connect(context.Background(), "metaMask", nil))
		mm.set(func(f *fakeConnector) { f.accountErr = ErrNoAccounts })
		defer mm.set(func(f *fakeConnector) { f.accountErr = nil })

		fourth := newTestManager(t, db, mm)
		states := recordStates(fourth)
		startWithin(t, fourth)
		require.NoError(t, fourth.Stop())
		require.Len(t, *states, 2)
		assert.Equal(t, StatusDisconnected, (*states)[1].Status)

		id, err := fourth.loadRecentConnector()
		require.NoError(t, err)
		assert.Empty(t, id)
	})

	t.Run("Clear sessions", func(t *testing.T) {
		require.NoError(t, first.ClearSessions())
		sessions, err := first.ListSessions(0)
		require.NoError(t, err)
		assert.Empty(t, sessions)

		require.NoError(t, first.Disconnect(context.Background()))
		sessions, err = first.ListSessions(0)
		require.NoError(t, err)
		assert.Empty(t, sessions)
	})
}

func TestStatusMarshalText(t *testing.T) {
	for status, want := range map[Status]string{
		StatusDisconnected: "disconnected",
		StatusConnecting:   "connecting",
		StatusConnected:    "connected",
		StatusReconnecting: "reconnecting",
	} {
		text, err := status.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, want, string(text))
	}
}
