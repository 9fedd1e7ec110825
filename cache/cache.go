package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/wudi/doctext/document"
)

// Key identifies one cached extraction: the document content fingerprint, the
// canonical page-range key, and the extraction method. The source path is
// deliberately absent so renamed files keep their entries and identical
// documents share one.
type Key struct {
	Fingerprint string          `json:"fingerprint"`
	RangeKey    string          `json:"range_key"`
	Method      document.Method `json:"method"`
}

// Digest returns the content-addressed storage name for the key.
func (k Key) Digest() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\n%s\n%s", k.Fingerprint, k.RangeKey, k.Method)
	return hex.EncodeToString(h.Sum(nil))
}

// FlightKey groups concurrent computations of one document+range. The method
// is absent on purpose: it is unknown until classification runs, and every
// concurrent reader of the same uncached document+range must join one flight.
func FlightKey(fingerprint, rangeKey string) string {
	return fingerprint + "|" + rangeKey
}

// Entry is one persisted extraction result.
type Entry struct {
	Key       Key                       `json:"key"`
	Result    document.ExtractionResult `json:"result"`
	CreatedAt time.Time                 `json:"created_at"`
}

// Store persists entries across restarts. Get reports a miss as (nil, nil);
// unreadable or corrupt entries are misses, never errors.
type Store interface {
	Get(ctx context.Context, key Key) (*Entry, error)
	Put(ctx context.Context, entry *Entry) error
	Sweep(ctx context.Context, maxAge time.Duration) (int, error)
}

// Cache couples a Store with request coordination so concurrent requests for
// the same uncached document+range compute the result exactly once.
type Cache struct {
	store Store
	group singleflight.Group
	log   zerolog.Logger
}

// New builds a Cache over the given store.
func New(store Store, log zerolog.Logger) *Cache {
	return &Cache{store: store, log: log}
}

// Get probes the store for key. A miss is (nil, nil).
func (c *Cache) Get(ctx context.Context, key Key) (*Entry, error) {
	return c.store.Get(ctx, key)
}

// Put persists an entry. Failures wrap document.ErrCacheWrite; callers log
// them and keep serving the computed result.
func (c *Cache) Put(ctx context.Context, entry *Entry) error {
	if err := c.store.Put(ctx, entry); err != nil {
		return document.NewError("cache-store", "", document.ErrCacheWrite, err.Error())
	}
	return nil
}

// Do runs fn under the flight for flightKey: one caller computes while the
// rest wait for the shared outcome. The boolean reports whether the result
// was shared with other callers.
func (c *Cache) Do(ctx context.Context, flightKey string, fn func() (*document.ExtractionResult, error)) (*document.ExtractionResult, bool, error) {
	ch := c.group.DoChan(flightKey, func() (interface{}, error) {
		return fn()
	})
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Shared, res.Err
		}
		return res.Val.(*document.ExtractionResult), res.Shared, nil
	}
}

// Sweep removes entries older than maxAge and reports how many were removed.
// A maxAge of zero or less disables sweeping.
func (c *Cache) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	removed, err := c.store.Sweep(ctx, maxAge)
	if err != nil {
		return removed, err
	}
	if removed > 0 {
		c.log.Info().Int("removed", removed).Dur("max_age", maxAge).Msg("cache swept")
	}
	return removed, nil
}
