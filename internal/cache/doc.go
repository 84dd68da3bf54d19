// Package cache persists the last good reading of each external climate
// source so that later runs can fall back to it.
//
// Entries are JSON files under ~/.carbonfocus/cache/ (or CARBONFOCUS_CACHE_DIR).
// An entry is fresh until its TTL passes; stale entries are still returned so
// callers can serve them as "cached" values when the upstream is unreachable.
package cache
