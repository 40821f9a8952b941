package database

import (
	"context"
	"math/rand"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dgraph-io/badger/v3"
	"github.com/rs/zerolog"
)

func InitDatabase(dataDir string, logger zerolog.Logger) (*Database, error) {
	db := Database{}
	DB, err := NewBadgerDB(dataDir, logger)
	if err != nil {
		return nil, err
	}
	db.DB = DB
	return &db, nil
}

const (
	// Default BadgerDB discardRatio. It represents the discard ratio for the
	// BadgerDB GC.
	//
	// Ref: https://godoc.org/github.com/dgraph-io/badger#DB.RunValueLogGC
	badgerDiscardRatio = 0.5

	// Default BadgerDB GC interval
	badgerGCInterval = 10 * time.Minute
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = badger.ErrKeyNotFound

// NewBadgerDB returns a new initialized BadgerDB database implementing the DB
// interface. If the database cannot be initialized, an error will be returned.
func NewBadgerDB(dataDir string, logger zerolog.Logger) (DB, error) {
	if err := os.MkdirAll(dataDir, 0774); err != nil {
		return nil, errors.Wrapf(err, "create data dir %s", dataDir)
	}

	logger = logger.With().Str("module", "db").Logger()
	opts := badger.DefaultOptions(dataDir).
		WithSyncWrites(true).
		WithLogger(badgerLogger{logger})

	badgerDB, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "open badger at %s", dataDir)
	}

	bdb := &BadgerDB{
		db:     badgerDB,
		logger: logger,
	}
	bdb.ctx, bdb.cancelFunc = context.WithCancel(context.Background())

	go bdb.runGC()

	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	bdb.ulidSource = NewMonotonicULIDsource(entropy)
	return bdb, nil
}

// Get implements the DB interface. It attempts to get a value for a given key
// and namespace. If the key does not exist in the provided namespace,
// ErrNotFound is returned, otherwise the retrieved value.
func (bdb *BadgerDB) Get(namespace, key []byte) (value []byte, err error) {
	err = bdb.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerNamespaceKey(namespace, key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set implements the DB interface. It attempts to store a value for a given key
// and namespace. If the key/value pair cannot be saved, an error is returned.
func (bdb *BadgerDB) Set(namespace []byte, objs []Object) error {
	batch := bdb.db.NewWriteBatch()
	defer batch.Cancel()
	for _, obj := range objs {
		err := batch.Set(badgerNamespaceKey(namespace, obj.Key), obj.Value)
		if err != nil {
			bdb.logger.Error().Err(err).Bytes("namespace", namespace).Bytes("key", obj.Key).Msg("failed to set key")
			return err
		}
	}
	return batch.Flush()
}

func (bdb *BadgerDB) Delete(namespace, key []byte) error {
	return bdb.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(badgerNamespaceKey(namespace, key))
	})
}

func (bdb *BadgerDB) DeleteNamespace(namespace []byte) error {
	return bdb.db.DropPrefix(namespace)
}

// ReadIterator calls action for every key under prefix, copying each value out
// of the transaction. Iteration ends early when action returns willStop or an
// error. Keys are passed without the prefix.
func (bdb *BadgerDB) ReadIterator(prefix []byte, reverse bool, action func(k []byte, v []byte) (bool, error)) error {
	return bdb.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		opts.Prefix = prefix
		opts.Reverse = reverse
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := prefix
		if reverse {
			seek = append(append([]byte{}, prefix...), 0xFF)
		}
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			k := item.KeyCopy(nil)[len(prefix):]
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			willStop, err := action(k, v)
			if err != nil {
				return err
			}
			if willStop {
				return nil
			}
		}
		return nil
	})
}

// Has implements the DB interface. It returns a boolean reflecting if the
// datbase has a given key for a namespace or not. An error is only returned if
// an error to Get would be returned that is not of type badger.ErrKeyNotFound.
func (bdb *BadgerDB) Has(namespace, key []byte) (ok bool, err error) {
	_, err = bdb.Get(namespace, key)
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	case err == nil:
		return true, nil
	}
	return false, err
}

// Close implements the DB interface. It closes the connection to the underlying
// BadgerDB database as well as invoking the context's cancel function.
func (bdb *BadgerDB) Close() error {
	bdb.cancelFunc()
	return bdb.db.Close()
}

// runGC triggers the garbage collection for the BadgerDB backend database. It
// should be run in a goroutine.
func (bdb *BadgerDB) runGC() {
	ticker := time.NewTicker(badgerGCInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			err := bdb.db.RunValueLogGC(badgerDiscardRatio)
			if err != nil {
				// don't report error when GC didn't result in any cleanup
				if errors.Is(err, badger.ErrNoRewrite) {
					bdb.logger.Debug().Msg("no BadgerDB GC occurred")
				} else {
					bdb.logger.Warn().Err(err).Msg("failed to GC BadgerDB")
				}
			}

		case <-bdb.ctx.Done():
			return
		}
	}
}

func (bdb *BadgerDB) CreateULID(t time.Time) ([]byte, error) {
	id, err := bdb.ulidSource.New(t)
	if err != nil {
		return nil, err
	}
	return id.MarshalBinary()
}

// badgerNamespaceKey returns a composite key used for lookup and storage for a
// given namespace and key.
func badgerNamespaceKey(namespace, key []byte) []byte {
	out := make([]byte, 0, len(namespace)+len(key))
	out = append(out, namespace...)
	return append(out, key...)
}

// badgerLogger routes badger's internal logging into zerolog.
type badgerLogger struct {
	l zerolog.Logger
}

func (b badgerLogger) Errorf(format string, args ...interface{}) {
	b.l.Error().Msgf(format, args...)
}

func (b badgerLogger) Warningf(format string, args ...interface{}) {
	b.l.Warn().Msgf(format, args...)
}

func (b badgerLogger) Infof(format string, args ...interface{}) {
	b.l.Debug().Msgf(format, args...)
}

func (b badgerLogger) Debugf(format string, args ...interface{}) {
	b.l.Trace().Msgf(format, args...)
}
