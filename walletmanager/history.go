package walletmanager

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/obsidianwallet/obsidian-wallet-connect/database"
)

func (wlm *WalletManager) saveRecentConnector(id string) error {
	if wlm.db == nil {
		return nil
	}
	obj := database.Object{Key: []byte(recentConnectorKey), Value: []byte(id)}
	return wlm.db.DB.Set([]byte(dbRecentPrefix), []database.Object{obj})
}

func (wlm *WalletManager) loadRecentConnector() (string, error) {
	if wlm.db == nil {
		return "", nil
	}
	ok, err := wlm.db.DB.Has([]byte(dbRecentPrefix), []byte(recentConnectorKey))
	if err != nil || !ok {
		return "", err
	}
	value, err := wlm.db.DB.Get([]byte(dbRecentPrefix), []byte(recentConnectorKey))
	if err != nil {
		return "", err
	}
	return string(value), nil
}

func (wlm *WalletManager) forgetRecentConnector() error {
	if wlm.db == nil {
		return nil
	}
	return wlm.db.DB.Delete([]byte(dbRecentPrefix), []byte(recentConnectorKey))
}

// openSessionRecord takes the network name from the caller since reconnect
// runs with networkLock held.
func (wlm *WalletManager) openSessionRecord(connectorID string, acc Account, network string) error {
	if wlm.db == nil {
		return nil
	}
	if err := wlm.closeSessionRecord(); err != nil {
		return err
	}
	now := time.Now()
	key, err := wlm.db.DB.CreateULID(now)
	if err != nil {
		return err
	}
	var id ulid.ULID
	copy(id[:], key)
	record := SessionRecord{
		ID:          id.String(),
		ConnectorID: connectorID,
		Address:     acc.Address.Hex(),
		ChainID:     acc.ChainID,
		Network:     network,
		ConnectedAt: now.UTC(),
	}
	if err := wlm.saveSessionRecord(key, record); err != nil {
		return err
	}
	wlm.lock.Lock()
	wlm.activeSession = key
	wlm.lock.Unlock()
	return nil
}

func (wlm *WalletManager) closeSessionRecord() error {
	if wlm.db == nil {
		return nil
	}
	wlm.lock.Lock()
	key := wlm.activeSession
	wlm.activeSession = nil
	wlm.lock.Unlock()
	if key == nil {
		return nil
	}

	value, err := wlm.db.DB.Get([]byte(dbSessionPrefix), key)
	if err != nil {
		return err
	}
	var record SessionRecord
	if err := json.Unmarshal(value, &record); err != nil {
		return err
	}
	now := time.Now().UTC()
	record.DisconnectedAt = &now
	return wlm.saveSessionRecord(key, record)
}

func (wlm *WalletManager) saveSessionRecord(key []byte, record SessionRecord) error {
	value, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return wlm.db.DB.Set([]byte(dbSessionPrefix), []database.Object{{Key: key, Value: value}})
}

// ListSessions returns up to limit session records, newest first. A limit of
// zero or less returns all of them.
func (wlm *WalletManager) ListSessions(limit int) ([]SessionRecord, error) {
	if wlm.db == nil {
		return nil, nil
	}
	var records []SessionRecord
	action := func(k []byte, v []byte) (bool, error) {
		var record SessionRecord
		if err := json.Unmarshal(v, &record); err != nil {
			return true, err
		}
		records = append(records, record)
		return limit > 0 && len(records) >= limit, nil
	}
	if err := wlm.db.DB.ReadIterator([]byte(dbSessionPrefix), true, action); err != nil {
		return nil, err
	}
	return records, nil
}

// ClearSessions deletes the session history. A session that is still open is
// forgotten and not recorded as closed.
func (wlm *WalletManager) ClearSessions() error {
	if wlm.db == nil {
		return nil
	}
	wlm.lock.Lock()
	wlm.activeSession = nil
	wlm.lock.Unlock()
	return wlm.db.DB.DeleteNamespace([]byte(dbSessionPrefix))
}
