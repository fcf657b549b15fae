package util

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	idMu      sync.Mutex
	idEntropy io.Reader = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns a ULID used as the message id when the caller supplies none.
// Ids minted within the same millisecond stay lexically ordered.
func NewID() string {
	return NewIDAt(time.Now())
}

// NewIDAt mints an id for the given instant.
func NewIDAt(t time.Time) string {
	idMu.Lock()
	defer idMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(t), idEntropy).String()
}

// IDTime extracts the mint time of a ULID message id.
func IDTime(id string) (time.Time, bool) {
	u, err := ulid.ParseStrict(id)
	if err != nil {
		return time.Time{}, false
	}

	return ulid.Time(u.Time()), true
}
