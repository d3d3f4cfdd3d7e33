// Package snowflake provides a time ordered, Mastodon style, 64 bit ID generator.
package snowflake

import (
	"math/rand"
	"sync"
	"time"
)

// ID is a snowflake ID.
type ID uint64

var (
	mu   sync.Mutex
	last ID
)

// Now returns a new ID for the current time. IDs returned by Now are
// strictly increasing within a process, even within one millisecond.
func Now() ID {
	id := TimeToID(time.Now())
	mu.Lock()
	defer mu.Unlock()
	if id <= last {
		id = last + 1
	}
	last = id
	return id
}

// TimeToID converts a time.Time to a Snowflake ID.
func TimeToID(ts time.Time) ID {
	// 48 bits for time in milliseconds.
	// 0 bits for worker ID.
	// 0 bits for sequence.
	// 16 bits for random.
	return ID(uint64(ts.UnixNano()/int64(time.Millisecond))<<16 | uint64(rand.Intn(1<<16)))
}

// ToTime returns the time the ID was generated, truncated to the millisecond.
func (id ID) ToTime() time.Time {
	return time.Unix(0, int64(id>>16)*1e6)
}
