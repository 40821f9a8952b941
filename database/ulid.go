package database

import (
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// MonotonicULIDsource hands out ULIDs that sort strictly by creation order,
// even for ids minted within the same millisecond.
type MonotonicULIDsource struct {
	lock    sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewMonotonicULIDsource(entropy io.Reader) *MonotonicULIDsource {
	return &MonotonicULIDsource{
		entropy: ulid.Monotonic(entropy, 0),
	}
}

func (u *MonotonicULIDsource) New(t time.Time) (ulid.ULID, error) {
	u.lock.Lock()
	defer u.lock.Unlock()
	return ulid.New(ulid.Timestamp(t), u.entropy)
}
