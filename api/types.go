package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/obsidianwallet/obsidian-wallet-connect/common"
	"github.com/obsidianwallet/obsidian-wallet-connect/session"
	"github.com/obsidianwallet/obsidian-wallet-connect/store"
	"github.com/obsidianwallet/obsidian-wallet-connect/walletmanager"
)

type APIService struct {
	address string
	logger  zerolog.Logger

	session           WalletSession
	wallet            WalletLibrary
	networkController NetworkController
	events            *EventFeed

	lock   sync.Mutex
	server *http.Server
}

type WalletSession interface {
	View() session.View
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	SwitchToTargetChain(ctx context.Context) (session.SwitchResult, error)
	Target() common.ChainSpec
	SetTarget(target common.ChainSpec)
}

type WalletLibrary interface {
	Connectors() []walletmanager.ConnectorInfo
	ListSessions(limit int) ([]walletmanager.SessionRecord, error)
	ClearSessions() error
}

type StateFeed interface {
	Snapshot() store.Snapshot
	Subscribe(fn func(store.Snapshot)) (unsubscribe func())
}

type NetworkController interface {
	GetCurrentNetwork() common.ChainSpec
	GetNetworkList() []common.ChainSpec
	AddNetwork(network common.ChainSpec) error
	RemoveNetwork(name string) error
	SwitchNetwork(name string) error
}

type errorResponse struct {
	Error string `json:"error"`
}

type resultResponse struct {
	Result interface{} `json:"result"`
}
