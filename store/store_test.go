package store

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletStore(t *testing.T) {
	s := New()
	assert.Equal(t, Snapshot{}, s.Snapshot())

	var seen []Snapshot
	unsubscribe := s.Subscribe(func(snap Snapshot) { seen = append(seen, snap) })

	addr := common.HexToAddress("0x000000000000000000000000000000000000dEaD")
	s.SetAddress(&addr)
	s.SetIsConnected(true)
	s.SetChainID(1315)

	snap := s.Snapshot()
	require.NotNil(t, snap.Address)
	assert.Equal(t, addr, *snap.Address)
	assert.True(t, snap.IsConnected)
	require.NotNil(t, snap.ChainID)
	assert.EqualValues(t, 1315, *snap.ChainID)
	assert.Len(t, seen, 3)

	// the store keeps its own copy
	addr[0] = 0xff
	assert.NotEqual(t, addr, *s.Snapshot().Address)

	s.SetAddress(nil)
	assert.Nil(t, s.Snapshot().Address)

	s.Disconnect()
	assert.Equal(t, Snapshot{}, s.Snapshot())
	assert.Len(t, seen, 5)

	unsubscribe()
	s.SetIsConnected(true)
	assert.Len(t, seen, 5)
}

func TestWalletStore_Mirror(t *testing.T) {
	s := New()
	var seen []Snapshot
	s.Subscribe(func(snap Snapshot) { seen = append(seen, snap) })

	addr := common.HexToAddress("0x000000000000000000000000000000000000dEaD")
	chainID := uint64(1315)
	s.Mirror(&addr, true, &chainID)

	require.Len(t, seen, 1)
	require.NotNil(t, seen[0].Address)
	assert.Equal(t, addr, *seen[0].Address)
	assert.True(t, seen[0].IsConnected)
	require.NotNil(t, seen[0].ChainID)
	assert.EqualValues(t, 1315, *seen[0].ChainID)

	chainID = 1
	assert.EqualValues(t, 1315, *s.Snapshot().ChainID)

	s.Mirror(nil, false, nil)
	require.Len(t, seen, 2)
	assert.Nil(t, seen[1].Address)
	assert.False(t, seen[1].IsConnected)
	require.NotNil(t, seen[1].ChainID, "a missing chain id keeps the previous one")
	assert.EqualValues(t, 1315, *seen[1].ChainID)
}
