// Package session ties the wallet connection to the application state the UI
// renders and offers the connect, disconnect and switch-network actions.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	wcommon "github.com/obsidianwallet/obsidian-wallet-connect/common"
	"github.com/obsidianwallet/obsidian-wallet-connect/provider"
	"github.com/obsidianwallet/obsidian-wallet-connect/walletmanager"
)

// ConnectionLibrary is the wallet connection the session observes and drives.
type ConnectionLibrary interface {
	State() walletmanager.ConnectionState
	Connectors() []walletmanager.ConnectorInfo
	Connect(ctx context.Context, connectorID string, chainID *uint64) error
	Disconnect(ctx context.Context) error
	Subscribe(fn func(walletmanager.ConnectionState)) (unsubscribe func())
	IsPending() bool
	ConnectError() error
	DisconnectError() error
}

// StateStore receives the mirrored connection fields. Mirror applies all of
// them at once and leaves the chain id alone when chainID is nil.
type StateStore interface {
	Mirror(address *common.Address, connected bool, chainID *uint64)
	Disconnect()
}

type SwitchResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// View is everything the UI reads from the session at once.
type View struct {
	Address      *common.Address `json:"address"`
	IsConnected  bool            `json:"isConnected"`
	ChainID      *uint64         `json:"chainId"`
	IsConnecting bool            `json:"isConnecting"`
	Error        string          `json:"error,omitempty"`
	Connector    string          `json:"connector,omitempty"`
}

type WalletSession struct {
	library   ConnectionLibrary
	store     StateStore
	provider  provider.Provider
	connector wcommon.ConnectorTarget
	logger    zerolog.Logger

	lock   sync.RWMutex
	target wcommon.ChainSpec

	// last values seen by the reaction, used only for logging
	lastConnector  string
	lastConnectErr error
	lastDiscErr    error

	unsubscribe func()
}

// New creates a session and starts mirroring library state into store. p is
// the wallet provider used for chain switching; nil means none is present.
func New(library ConnectionLibrary, store StateStore, p provider.Provider, connector wcommon.ConnectorTarget, target wcommon.ChainSpec, logger zerolog.Logger) *WalletSession {
	s := &WalletSession{
		library:   library,
		store:     store,
		provider:  p,
		connector: connector,
		target:    target,
		logger:    logger.With().Str("module", "session").Logger(),
	}
	s.unsubscribe = library.Subscribe(s.mirror)
	return s
}

// Close stops mirroring.
func (s *WalletSession) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// mirror copies the connection fields into the store. A missing chain id
// leaves the store's chain id as it was.
func (s *WalletSession) mirror(state walletmanager.ConnectionState) {
	event := s.logger.Debug().Bool("isConnected", state.IsConnected).Stringer("status", state.Status)
	if state.Address != nil {
		event = event.Str("address", state.Address.Hex())
	}
	if state.ChainID != nil {
		event = event.Uint64("chainID", *state.ChainID)
	}
	event.Msg("wallet state changed")

	s.store.Mirror(state.Address, state.IsConnected, state.ChainID)

	if state.ConnectorName != "" && state.ConnectorName != s.lastConnector {
		s.logger.Info().Str("connector", state.ConnectorName).Msg("active connector")
	}
	s.lastConnector = state.ConnectorName

	if err := s.library.ConnectError(); err != nil && err != s.lastConnectErr {
		s.logger.Error().Err(err).Msg("connection error")
	}
	s.lastConnectErr = s.library.ConnectError()
	if err := s.library.DisconnectError(); err != nil && err != s.lastDiscErr {
		s.logger.Error().Err(err).Msg("disconnection error")
	}
	s.lastDiscErr = s.library.DisconnectError()
}

// Connect connects with the configured connector, leaving the wallet on
// whatever chain it is currently on. It makes exactly one attempt.
func (s *WalletSession) Connect(ctx context.Context) error {
	available := s.library.Connectors()
	s.logger.Debug().Interface("connectors", available).Msg("available connectors")

	var found *walletmanager.ConnectorInfo
	for i, c := range available {
		if c.ID == s.connector.ID || c.Name == s.connector.Name {
			found = &available[i]
			break
		}
	}
	if found == nil {
		err := &ConnectorNotFoundError{WantID: s.connector.ID, WantName: s.connector.Name, Available: available}
		s.logger.Error().Err(err).Msg("failed to connect wallet")
		return errors.Mark(err, ErrConnectorNotFound)
	}

	s.logger.Info().Str("connector", found.Name).Msg("initiating connection")
	if err := s.library.Connect(ctx, found.ID, nil); err != nil {
		s.logger.Error().Err(err).Msg("failed to connect wallet")
		return fail(ErrConnectFailed, err, "connect wallet")
	}
	return nil
}

// SwitchToTargetChain asks the wallet to switch to the target chain and, if the
// wallet does not know the chain, registers it first.
func (s *WalletSession) SwitchToTargetChain(ctx context.Context) (SwitchResult, error) {
	if s.provider == nil {
		return SwitchResult{}, ErrProviderUnavailable
	}
	target := s.Target()

	err := provider.SwitchChain(ctx, s.provider, target)
	if err == nil {
		return SwitchResult{Success: true, Message: fmt.Sprintf("Switched to %s", target.Name)}, nil
	}
	if !provider.IsUnrecognizedChain(err) {
		s.logger.Error().Err(err).Str("chain", target.Name).Msg("failed to switch chain")
		return SwitchResult{}, fail(ErrChainSwitchFailed, err, fmt.Sprintf("switch to %s, please switch manually in the wallet", target.Name))
	}

	s.logger.Info().Str("chain", target.Name).Msg("chain unknown to wallet, adding it")
	if err := provider.AddChain(ctx, s.provider, target); err != nil {
		s.logger.Error().Err(err).Str("chain", target.Name).Msg("failed to add chain")
		return SwitchResult{}, fail(ErrChainAddFailed, err, fmt.Sprintf("add %s, please add it manually in the wallet", target.Name))
	}
	return SwitchResult{Success: true, Message: fmt.Sprintf("Added and switched to %s", target.Name)}, nil
}

// Disconnect disconnects the library and then clears the store. When the
// library fails the store keeps its fields, so the two can disagree until the
// next state notification.
func (s *WalletSession) Disconnect(ctx context.Context) error {
	s.logger.Info().Msg("disconnecting wallet")
	if err := s.library.Disconnect(ctx); err != nil {
		s.logger.Error().Err(err).Msg("error during disconnection")
		return fail(ErrDisconnectFailed, err, "disconnect wallet")
	}
	s.store.Disconnect()
	s.logger.Info().Msg("wallet disconnected")
	return nil
}

func (s *WalletSession) Address() *common.Address {
	return s.library.State().Address
}

func (s *WalletSession) IsConnected() bool {
	return s.library.State().IsConnected
}

func (s *WalletSession) ChainID() *uint64 {
	return s.library.State().ChainID
}

func (s *WalletSession) IsConnecting() bool {
	return s.library.State().Status == walletmanager.StatusConnecting || s.library.IsPending()
}

// Err returns the library's connect error, or its disconnect error when there
// is no connect error.
func (s *WalletSession) Err() error {
	if err := s.library.ConnectError(); err != nil {
		return err
	}
	return s.library.DisconnectError()
}

func (s *WalletSession) ConnectorName() string {
	return s.library.State().ConnectorName
}

func (s *WalletSession) View() View {
	state := s.library.State()
	v := View{
		Address:      state.Address,
		IsConnected:  state.IsConnected,
		ChainID:      state.ChainID,
		IsConnecting: state.Status == walletmanager.StatusConnecting || s.library.IsPending(),
		Connector:    state.ConnectorName,
	}
	if err := s.Err(); err != nil {
		v.Error = err.Error()
	}
	return v
}

func (s *WalletSession) Target() wcommon.ChainSpec {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.target
}

func (s *WalletSession) SetTarget(target wcommon.ChainSpec) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.target = target
}
