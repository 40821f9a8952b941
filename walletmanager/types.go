package walletmanager

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	wcommon "github.com/obsidianwallet/obsidian-wallet-connect/common"
	"github.com/obsidianwallet/obsidian-wallet-connect/database"
)

// WalletManager owns the connection to the user's wallet. It keeps the
// registered connectors, the current ConnectionState and notifies subscribers
// of every state change.
type WalletManager struct {
	db     *database.Database
	logger zerolog.Logger

	lock          sync.RWMutex
	connectors    []Connector
	state         ConnectionState
	active        Connector
	activeSession []byte
	connectErr    error
	disconnectErr error

	// number of Connect calls in flight
	pending atomic.Int32

	// notifyLock serializes state changes together with their notifications,
	// so listeners observe changes in the order they happened.
	notifyLock     sync.Mutex
	listenerLock   sync.RWMutex
	listeners      []listener
	nextListenerID uint64

	networkLock    sync.RWMutex
	currentNetwork wcommon.ChainSpec

	watchInterval time.Duration
	stopCh        chan struct{}
	doneCh        chan struct{}
}

type listener struct {
	id uint64
	fn func(ConnectionState)
}

type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ConnectionState is the wallet connection as seen by the manager. Address and
// ChainID are nil when unknown.
type ConnectionState struct {
	Address       *common.Address
	IsConnected   bool
	ChainID       *uint64
	Status        Status
	ConnectorName string
}

func (s ConnectionState) clone() ConnectionState {
	out := s
	if s.Address != nil {
		addr := *s.Address
		out.Address = &addr
	}
	if s.ChainID != nil {
		id := *s.ChainID
		out.ChainID = &id
	}
	return out
}

func (s ConnectionState) equal(o ConnectionState) bool {
	if s.IsConnected != o.IsConnected || s.Status != o.Status || s.ConnectorName != o.ConnectorName {
		return false
	}
	if (s.Address == nil) != (o.Address == nil) || (s.Address != nil && *s.Address != *o.Address) {
		return false
	}
	if (s.ChainID == nil) != (o.ChainID == nil) || (s.ChainID != nil && *s.ChainID != *o.ChainID) {
		return false
	}
	return true
}

type ConnectorInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Account is what a connector reports for the wallet it is attached to.
type Account struct {
	Address common.Address
	ChainID uint64
}

// SessionRecord is the persisted trace of one wallet connection.
type SessionRecord struct {
	ID             string     `json:"id"`
	ConnectorID    string     `json:"connectorId"`
	Address        string     `json:"address"`
	ChainID        uint64     `json:"chainId"`
	Network        string     `json:"network,omitempty"`
	ConnectedAt    time.Time  `json:"connectedAt"`
	DisconnectedAt *time.Time `json:"disconnectedAt,omitempty"`
}
