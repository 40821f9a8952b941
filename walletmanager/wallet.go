package walletmanager

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/obsidianwallet/obsidian-wallet-connect/database"
)

// InitWallet builds a manager over the given connectors. db may be nil, in
// which case nothing is persisted and Start does not reconnect.
func InitWallet(db *database.Database, logger zerolog.Logger, watchInterval time.Duration, connectors ...Connector) (*WalletManager, error) {
	seen := make(map[string]struct{}, len(connectors))
	for _, c := range connectors {
		if _, dup := seen[c.ID()]; dup {
			return nil, errors.Newf("connector %q registered twice", c.ID())
		}
		seen[c.ID()] = struct{}{}
	}
	if watchInterval <= 0 {
		watchInterval = defaultWatchInterval
	}
	return &WalletManager{
		db:            db,
		logger:        logger.With().Str("module", "walletmanager").Logger(),
		connectors:    connectors,
		watchInterval: watchInterval,
	}, nil
}

// Connectors lists the registered connectors in registration order.
func (wlm *WalletManager) Connectors() []ConnectorInfo {
	wlm.lock.RLock()
	defer wlm.lock.RUnlock()
	out := make([]ConnectorInfo, 0, len(wlm.connectors))
	for _, c := range wlm.connectors {
		out = append(out, ConnectorInfo{ID: c.ID(), Name: c.Name()})
	}
	return out
}

func (wlm *WalletManager) State() ConnectionState {
	wlm.lock.RLock()
	defer wlm.lock.RUnlock()
	return wlm.state.clone()
}

// IsPending reports whether any Connect call is in flight.
func (wlm *WalletManager) IsPending() bool {
	return wlm.pending.Load() > 0
}

// ConnectError is the error of the last failed Connect, cleared by the next
// successful one.
func (wlm *WalletManager) ConnectError() error {
	wlm.lock.RLock()
	defer wlm.lock.RUnlock()
	return wlm.connectErr
}

// DisconnectError is the error of the last failed Disconnect, cleared by the
// next successful one.
func (wlm *WalletManager) DisconnectError() error {
	wlm.lock.RLock()
	defer wlm.lock.RUnlock()
	return wlm.disconnectErr
}

// Subscribe registers fn to be called with the new state after every change
// of the state or of the last connect or disconnect error.
// fn runs synchronously on the goroutine that made the change and must not
// call back into Connect or Disconnect.
func (wlm *WalletManager) Subscribe(fn func(ConnectionState)) (unsubscribe func()) {
	wlm.listenerLock.Lock()
	defer wlm.listenerLock.Unlock()
	wlm.nextListenerID++
	id := wlm.nextListenerID
	wlm.listeners = append(wlm.listeners, listener{id: id, fn: fn})
	return func() {
		wlm.listenerLock.Lock()
		defer wlm.listenerLock.Unlock()
		for i, l := range wlm.listeners {
			if l.id == id {
				wlm.listeners = append(wlm.listeners[:i:i], wlm.listeners[i+1:]...)
				return
			}
		}
	}
}

// Connect connects through the connector with the given id. A nil chainID
// leaves the wallet on its current chain.
func (wlm *WalletManager) Connect(ctx context.Context, connectorID string, chainID *uint64) error {
	c := wlm.connector(connectorID)
	if c == nil {
		return errors.Newf("connector %q not registered", connectorID)
	}

	wlm.pending.Inc()
	defer wlm.pending.Dec()

	wlm.update(func() {
		wlm.state.Status = StatusConnecting
	})

	acc, err := c.Connect(ctx, chainID)
	if err != nil {
		err = errors.Wrapf(err, "connect %s", c.Name())
		wlm.update(func() {
			wlm.connectErr = err
			if wlm.state.IsConnected {
				wlm.state.Status = StatusConnected
			} else {
				wlm.state.Status = StatusDisconnected
			}
		})
		return err
	}

	wlm.update(func() {
		wlm.active = c
		wlm.connectErr = nil
		wlm.setConnected(c, acc)
	})
	wlm.logger.Info().Str("connector", c.ID()).Str("address", acc.Address.Hex()).Uint64("chainID", acc.ChainID).Msg("wallet connected")

	if err := wlm.saveRecentConnector(c.ID()); err != nil {
		wlm.logger.Warn().Err(err).Msg("failed to remember connector")
	}
	if err := wlm.openSessionRecord(c.ID(), acc, wlm.GetCurrentNetwork().Name); err != nil {
		wlm.logger.Warn().Err(err).Msg("failed to record session")
	}
	return nil
}

// Disconnect detaches from the active connector and resets the state. The
// state is left untouched when the connector fails to disconnect.
func (wlm *WalletManager) Disconnect(ctx context.Context) error {
	wlm.lock.RLock()
	c := wlm.active
	wlm.lock.RUnlock()

	if c != nil {
		if err := c.Disconnect(ctx); err != nil {
			err = errors.Wrapf(err, "disconnect %s", c.Name())
			wlm.update(func() {
				wlm.disconnectErr = err
			})
			return err
		}
	}

	wlm.update(func() {
		wlm.active = nil
		wlm.disconnectErr = nil
		wlm.state = ConnectionState{Status: StatusDisconnected}
	})
	wlm.logger.Info().Msg("wallet disconnected")

	if err := wlm.forgetRecentConnector(); err != nil {
		wlm.logger.Warn().Err(err).Msg("failed to forget connector")
	}
	if err := wlm.closeSessionRecord(); err != nil {
		wlm.logger.Warn().Err(err).Msg("failed to close session record")
	}
	return nil
}

func (wlm *WalletManager) connector(id string) Connector {
	wlm.lock.RLock()
	defer wlm.lock.RUnlock()
	for _, c := range wlm.connectors {
		if c.ID() == id {
			return c
		}
	}
	return nil
}

// setConnected must be called with lock held.
func (wlm *WalletManager) setConnected(c Connector, acc Account) {
	addr := acc.Address
	chainID := acc.ChainID
	wlm.state = ConnectionState{
		Address:       &addr,
		IsConnected:   true,
		ChainID:       &chainID,
		Status:        StatusConnected,
		ConnectorName: c.Name(),
	}
}

// update applies mutate under the state lock and, when the state or one of
// the last errors changed, notifies listeners before any other update can run.
func (wlm *WalletManager) update(mutate func()) {
	wlm.notifyLock.Lock()
	defer wlm.notifyLock.Unlock()

	wlm.lock.Lock()
	before := wlm.state.clone()
	connectErr, disconnectErr := wlm.connectErr, wlm.disconnectErr
	mutate()
	after := wlm.state.clone()
	errorsChanged := connectErr != wlm.connectErr || disconnectErr != wlm.disconnectErr
	wlm.lock.Unlock()

	if before.equal(after) && !errorsChanged {
		return
	}

	wlm.listenerLock.RLock()
	listeners := make([]listener, len(wlm.listeners))
	copy(listeners, wlm.listeners)
	wlm.listenerLock.RUnlock()

	for _, l := range listeners {
		l.fn(after.clone())
	}
}
