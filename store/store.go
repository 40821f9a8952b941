// Package store holds the wallet fields the UI renders.
package store

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Snapshot is a copy of the store's fields. ChainID is nil until a chain has
// been reported.
type Snapshot struct {
	Address     *common.Address `json:"address"`
	IsConnected bool            `json:"isConnected"`
	ChainID     *uint64         `json:"chainId"`
}

type WalletStore struct {
	lock     sync.RWMutex
	snapshot Snapshot

	listenerLock   sync.RWMutex
	listeners      map[uint64]func(Snapshot)
	nextListenerID uint64
}

func New() *WalletStore {
	return &WalletStore{listeners: make(map[uint64]func(Snapshot))}
}

// SetAddress stores address; nil means no account.
func (s *WalletStore) SetAddress(address *common.Address) {
	s.mutate(func(snap *Snapshot) {
		if address == nil {
			snap.Address = nil
			return
		}
		addr := *address
		snap.Address = &addr
	})
}

func (s *WalletStore) SetIsConnected(connected bool) {
	s.mutate(func(snap *Snapshot) {
		snap.IsConnected = connected
	})
}

func (s *WalletStore) SetChainID(chainID uint64) {
	s.mutate(func(snap *Snapshot) {
		snap.ChainID = &chainID
	})
}

// Mirror sets the address and connected flag and, when chainID is non-nil, the
// chain id. Subscribers see a single snapshot with all of them applied.
func (s *WalletStore) Mirror(address *common.Address, connected bool, chainID *uint64) {
	s.mutate(func(snap *Snapshot) {
		snap.Address = nil
		if address != nil {
			addr := *address
			snap.Address = &addr
		}
		snap.IsConnected = connected
		if chainID != nil {
			id := *chainID
			snap.ChainID = &id
		}
	})
}

// Disconnect clears every field.
func (s *WalletStore) Disconnect() {
	s.mutate(func(snap *Snapshot) {
		*snap = Snapshot{}
	})
}

func (s *WalletStore) Snapshot() Snapshot {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.snapshot.clone()
}

// Subscribe registers fn to receive the new snapshot after every mutation.
func (s *WalletStore) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.listenerLock.Lock()
	defer s.listenerLock.Unlock()
	s.nextListenerID++
	id := s.nextListenerID
	s.listeners[id] = fn
	return func() {
		s.listenerLock.Lock()
		defer s.listenerLock.Unlock()
		delete(s.listeners, id)
	}
}

func (s *WalletStore) mutate(fn func(*Snapshot)) {
	s.lock.Lock()
	fn(&s.snapshot)
	snap := s.snapshot.clone()
	s.lock.Unlock()

	s.listenerLock.RLock()
	defer s.listenerLock.RUnlock()
	for _, l := range s.listeners {
		l(snap.clone())
	}
}

func (s Snapshot) clone() Snapshot {
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
