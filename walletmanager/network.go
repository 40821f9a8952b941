package walletmanager

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/obsidianwallet/obsidian-wallet-connect/common"
)

// Start restores the last connection, if any, and begins watching the wallet
// for account and chain changes.
func (wlm *WalletManager) Start() error {
	wlm.networkLock.Lock()
	defer wlm.networkLock.Unlock()
	if wlm.stopCh != nil {
		return nil
	}

	wlm.reconnect()

	wlm.stopCh = make(chan struct{})
	wlm.doneCh = make(chan struct{})
	go wlm.watch(wlm.stopCh, wlm.doneCh)
	return nil
}

// Stop ends the watcher and waits for it to return.
func (wlm *WalletManager) Stop() error {
	wlm.networkLock.Lock()
	defer wlm.networkLock.Unlock()
	if wlm.stopCh == nil {
		return nil
	}
	close(wlm.stopCh)
	<-wlm.doneCh
	wlm.stopCh = nil
	wlm.doneCh = nil
	return nil
}

func (wlm *WalletManager) SwitchNetwork(network common.ChainSpec) error {
	wlm.networkLock.Lock()
	defer wlm.networkLock.Unlock()
	wlm.currentNetwork = network
	return nil
}

func (wlm *WalletManager) GetCurrentNetwork() common.ChainSpec {
	wlm.networkLock.RLock()
	defer wlm.networkLock.RUnlock()
	return wlm.currentNetwork
}

// reconnect re-attaches to the connector used last time without prompting. It
// does nothing while a connector is active, so a restart keeps the session.
// The caller holds networkLock.
func (wlm *WalletManager) reconnect() {
	wlm.lock.RLock()
	active := wlm.active
	wlm.lock.RUnlock()
	if active != nil {
		return
	}

	id, err := wlm.loadRecentConnector()
	if err != nil || id == "" {
		return
	}
	c := wlm.connector(id)
	if c == nil {
		wlm.logger.Warn().Str("connector", id).Msg("remembered connector is no longer registered")
		return
	}

	wlm.update(func() {
		wlm.state.Status = StatusReconnecting
	})

	ctx, cancel := context.WithTimeout(context.Background(), reconnectTimeout)
	defer cancel()
	acc, err := c.Account(ctx)
	if err != nil {
		wlm.logger.Info().Err(err).Str("connector", id).Msg("could not restore wallet connection")
		wlm.update(func() {
			wlm.state = ConnectionState{Status: StatusDisconnected}
		})
		if err := wlm.forgetRecentConnector(); err != nil {
			wlm.logger.Warn().Err(err).Msg("failed to forget connector")
		}
		return
	}

	wlm.update(func() {
		wlm.active = c
		wlm.setConnected(c, acc)
	})
	wlm.logger.Info().Str("connector", id).Str("address", acc.Address.Hex()).Msg("wallet connection restored")
	if err := wlm.openSessionRecord(id, acc, wlm.currentNetwork.Name); err != nil {
		wlm.logger.Warn().Err(err).Msg("failed to record session")
	}
}

func (wlm *WalletManager) watch(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	ticker := time.NewTicker(wlm.watchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			wlm.refresh()
		}
	}
}

// refresh polls the active connector and publishes account or chain changes.
// A wallet that stops exposing accounts is treated as disconnected.
func (wlm *WalletManager) refresh() {
	wlm.lock.RLock()
	c := wlm.active
	wlm.lock.RUnlock()
	if c == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), watchRequestTimeout)
	defer cancel()
	acc, err := c.Account(ctx)
	switch {
	case errors.Is(err, ErrNoAccounts):
		wlm.logger.Info().Str("connector", c.ID()).Msg("wallet revoked account access")
		wlm.update(func() {
			if wlm.active != c {
				return
			}
			wlm.active = nil
			wlm.state = ConnectionState{Status: StatusDisconnected}
		})
		if err := wlm.forgetRecentConnector(); err != nil {
			wlm.logger.Warn().Err(err).Msg("failed to forget connector")
		}
		if err := wlm.closeSessionRecord(); err != nil {
			wlm.logger.Warn().Err(err).Msg("failed to close session record")
		}
	case err != nil:
		wlm.logger.Debug().Err(err).Str("connector", c.ID()).Msg("wallet poll failed")
	default:
		wlm.update(func() {
			if wlm.active != c {
				return
			}
			wlm.setConnected(c, acc)
		})
	}
}
