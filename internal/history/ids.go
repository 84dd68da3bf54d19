package history

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ledgerClock hands out record IDs that strictly increase and RecordedAt
// values that never decrease, even if the wall clock steps backwards.
type ledgerClock struct {
	mu           sync.Mutex
	entropy      *ulid.MonotonicEntropy
	lastID       ulid.ULID
	lastRecorded time.Time
	now          func() time.Time
}

func newLedgerClock() *ledgerClock {
	return &ledgerClock{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// observe raises the floor to an already persisted record.
func (c *ledgerClock) observe(id string, recordedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if parsed, err := ulid.ParseStrict(id); err == nil && parsed.Compare(c.lastID) > 0 {
		c.lastID = parsed
	}
	if recordedAt.After(c.lastRecorded) {
		c.lastRecorded = recordedAt
	}
}

// next returns a fresh ID and ledger time.
func (c *ledgerClock) next() (string, time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now().UTC()
	recorded := now
	if recorded.Before(c.lastRecorded) {
		recorded = c.lastRecorded
	}

	ms := ulid.Timestamp(now)
	if last := c.lastID.Time(); ms < last {
		ms = last
	}
	id, err := ulid.New(ms, c.entropy)
	if err != nil || id.Compare(c.lastID) <= 0 {
		// Entropy overflow within a millisecond or a floor loaded from disk.
		id, err = ulid.New(ms+1, c.entropy)
		if err != nil {
			return "", time.Time{}, fmt.Errorf("generating record id: %w", err)
		}
	}

	c.lastID = id
	c.lastRecorded = recorded
	return id.String(), recorded, nil
}
