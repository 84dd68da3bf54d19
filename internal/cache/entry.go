package cache

import (
	"encoding/json"
	"errors"
	"time"
)

// Entry is one cached reading with its freshness window.
type Entry struct {
	Key        string          `json:"key"`
	Data       json.RawMessage `json:"data"`
	StoredAt   time.Time       `json:"stored_at"`
	ExpiresAt  time.Time       `json:"expires_at"`
	TTLSeconds int             `json:"ttl_seconds"`
}

// newEntry stamps data with now and a TTL.
func newEntry(key string, data json.RawMessage, ttlSeconds int, now time.Time) *Entry {
	return &Entry{
		Key:        key,
		Data:       data,
		StoredAt:   now.UTC(),
		ExpiresAt:  now.UTC().Add(time.Duration(ttlSeconds) * time.Second),
		TTLSeconds: ttlSeconds,
	}
}

// FreshAt reports whether the entry is still within its TTL at t.
func (e *Entry) FreshAt(t time.Time) bool {
	return !t.After(e.ExpiresAt)
}

// AgeAt returns how long before t the entry was stored.
func (e *Entry) AgeAt(t time.Time) time.Duration {
	age := t.Sub(e.StoredAt)
	if age < 0 {
		return 0
	}
	return age
}

// Decode unmarshals the cached payload into v.
func (e *Entry) Decode(v any) error {
	if e == nil || len(e.Data) == 0 {
		return errors.New("cache entry has no data")
	}
	return json.Unmarshal(e.Data, v)
}

// MarshalJSON writes timestamps as RFC3339Nano.
func (e *Entry) MarshalJSON() ([]byte, error) {
	type alias Entry
	return json.Marshal(&struct {
		*alias

		StoredAt  string `json:"stored_at"`
		ExpiresAt string `json:"expires_at"`
	}{
		alias:     (*alias)(e),
		StoredAt:  e.StoredAt.Format(time.RFC3339Nano),
		ExpiresAt: e.ExpiresAt.Format(time.RFC3339Nano),
	})
}

// UnmarshalJSON parses the RFC3339Nano timestamps written by MarshalJSON.
func (e *Entry) UnmarshalJSON(data []byte) error {
	if e == nil {
		return errors.New("cannot unmarshal into nil Entry")
	}
	type alias Entry
	aux := &struct {
		*alias

		StoredAt  string `json:"stored_at"`
		ExpiresAt string `json:"expires_at"`
	}{
		alias: (*alias)(e),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if e.StoredAt, err = time.Parse(time.RFC3339Nano, aux.StoredAt); err != nil {
		return err
	}
	if e.ExpiresAt, err = time.Parse(time.RFC3339Nano, aux.ExpiresAt); err != nil {
		return err
	}
	return nil
}
