// Package library maintains the media library mirror: the ordered list of
// processed media records the public site renders. The list lives in the
// content mirror as a JSON document so the site can fetch it with a single
// key lookup.
package library

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"crownworks/internal/logging"
	"crownworks/internal/media"
	"crownworks/internal/store"
)

// Key is the content mirror key holding the serialized library.
const Key = "media_library"

// Library is a write-through view over the media library document. Records
// are kept in memory for cheap reads and persisted on every append.
type Library struct {
	mu      sync.Mutex
	store   *store.Store
	logger  *slog.Logger
	records []media.Record
}

// Open loads the library document from the content mirror. A missing key
// yields an empty library; a corrupt document is logged and discarded so a
// bad write never wedges processing.
func Open(ctx context.Context, st *store.Store, logger *slog.Logger) (*Library, error) {
	lib := &Library{
		store:  st,
		logger: logging.NewComponentLogger(logger, "library"),
	}

	raw, ok, err := st.GetContent(ctx, Key)
	if err != nil {
		return nil, fmt.Errorf("load media library: %w", err)
	}
	if !ok {
		return lib, nil
	}
	var records []media.Record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		lib.logger.Warn("media library document is corrupt, starting empty",
			logging.Error(err))
		return lib, nil
	}
	lib.records = records
	return lib, nil
}

// Append adds a record to the library and persists the updated document.
// Newest records come first so the site shows recent work without sorting.
func (l *Library) Append(ctx context.Context, record media.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	updated := make([]media.Record, 0, len(l.records)+1)
	updated = append(updated, record)
	updated = append(updated, l.records...)

	encoded, err := json.Marshal(updated)
	if err != nil {
		return fmt.Errorf("encode media library: %w", err)
	}
	if err := l.store.SetContent(ctx, Key, string(encoded)); err != nil {
		return err
	}
	l.records = updated
	return nil
}

// Records returns a copy of the current library, newest first.
func (l *Library) Records() []media.Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]media.Record, len(l.records))
	copy(out, l.records)
	return out
}

// Len reports the number of records in the library.
func (l *Library) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}
