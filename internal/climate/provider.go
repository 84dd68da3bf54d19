package climate

import (
	"context"
	"errors"
	"time"
)

// ErrExternalDataUnavailable reports that an upstream climate source could not
// be reached or parsed. It is logged and never returned from Fetch.
var ErrExternalDataUnavailable = errors.New("external climate data unavailable")

// Provider supplies a climate Snapshot. Fetch never fails: sources that cannot
// be reached are replaced by cached readings or defaults and flagged as cached.
type Provider interface {
	Fetch(ctx context.Context) Snapshot
}

// StaticProvider always returns FallbackSnapshot. It never touches the network.
type StaticProvider struct {
	Now func() time.Time
}

// Fetch implements Provider.
func (p StaticProvider) Fetch(_ context.Context) Snapshot {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	return FallbackSnapshot(now().UTC())
}
