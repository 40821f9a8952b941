package database

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) DB {
	t.Helper()
	db, err := NewBadgerDB(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestBadgerDB(t *testing.T) {
	t.Run("SetGetHas", func(t *testing.T) {
		db := newTestDB(t)
		ns := []byte("ns-")

		require.NoError(t, db.Set(ns, []Object{{Key: []byte("a"), Value: []byte("1")}}))

		v, err := db.Get(ns, []byte("a"))
		require.NoError(t, err)
		assert.Equal(t, []byte("1"), v)

		ok, err := db.Has(ns, []byte("a"))
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = db.Has(ns, []byte("b"))
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = db.Get(ns, []byte("b"))
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("Delete", func(t *testing.T) {
		db := newTestDB(t)
		ns := []byte("ns-")
		require.NoError(t, db.Set(ns, []Object{{Key: []byte("a"), Value: []byte("1")}}))
		require.NoError(t, db.Delete(ns, []byte("a")))

		ok, err := db.Has(ns, []byte("a"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("ReadIterator", func(t *testing.T) {
		db := newTestDB(t)
		ns := []byte("it-")
		require.NoError(t, db.Set(ns, []Object{
			{Key: []byte("1"), Value: []byte("one")},
			{Key: []byte("2"), Value: []byte("two")},
			{Key: []byte("3"), Value: []byte("three")},
		}))
		require.NoError(t, db.Set([]byte("other-"), []Object{{Key: []byte("x"), Value: []byte("x")}}))

		var forward []string
		err := db.ReadIterator(ns, false, func(k, v []byte) (bool, error) {
			forward = append(forward, string(k)+"="+string(v))
			return false, nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"1=one", "2=two", "3=three"}, forward)

		var reverse []string
		err = db.ReadIterator(ns, true, func(k, v []byte) (bool, error) {
			reverse = append(reverse, string(k))
			return len(reverse) == 2, nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"3", "2"}, reverse)
	})

	t.Run("DeleteNamespace", func(t *testing.T) {
		db := newTestDB(t)
		ns := []byte("drop-")
		require.NoError(t, db.Set(ns, []Object{{Key: []byte("a"), Value: []byte("1")}}))
		require.NoError(t, db.Set([]byte("keep-"), []Object{{Key: []byte("a"), Value: []byte("1")}}))
		require.NoError(t, db.DeleteNamespace(ns))

		ok, err := db.Has(ns, []byte("a"))
		require.NoError(t, err)
		assert.False(t, ok)
		ok, err = db.Has([]byte("keep-"), []byte("a"))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("CreateULID", func(t *testing.T) {
		db := newTestDB(t)
		now := time.Now()
		a, err := db.CreateULID(now)
		require.NoError(t, err)
		b, err := db.CreateULID(now)
		require.NoError(t, err)
		assert.Len(t, a, 16)
		assert.Less(t, string(a), string(b))
	})
}
