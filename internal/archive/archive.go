// Package archive keeps named snapshots of structures for the lifetime of
// the process.
package archive

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/phrazzld/chemlab/internal/domain"
)

// ErrItemNotFound is returned by Get for an unknown id.
var ErrItemNotFound = errors.New("archive item not found")

// Archive is an ordered, newest-first collection of structure snapshots.
// Every structure entering or leaving the archive is deep-copied, so callers
// can never reach an archived structure through a shared reference.
type Archive struct {
	mu    sync.RWMutex
	items []domain.ArchiveItem
	now   func() time.Time

	lastMillis int64
	seq        int
}

// Option configures an Archive.
type Option func(*Archive)

// WithClock replaces the wall clock used for ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Archive) {
		a.now = now
	}
}

// New creates an empty archive.
func New(opts ...Option) *Archive {
	a := &Archive{now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Save snapshots structure under its name and returns the new item.
//
// Ids have the form "<epoch-ms>-<seq>". seq restarts at 0 each millisecond,
// so items saved within the same millisecond stay distinct and ordered. A
// clock that moves backwards is treated as standing still.
func (a *Archive) Save(structure domain.Structure) domain.ArchiveItem {
	a.mu.Lock()
	defer a.mu.Unlock()

	ms := a.now().UnixMilli()
	if ms > a.lastMillis {
		a.lastMillis = ms
		a.seq = 0
	} else {
		a.seq++
	}

	item := domain.ArchiveItem{
		ID:        fmt.Sprintf("%d-%d", a.lastMillis, a.seq),
		Name:      structure.Name,
		Timestamp: ms,
		Data:      structure.Clone(),
	}

	a.items = append([]domain.ArchiveItem{item}, a.items...)

	return cloneItem(item)
}

// Remove deletes the item with id. Removing an absent id is a no-op.
func (a *Archive) Remove(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	kept := make([]domain.ArchiveItem, 0, len(a.items))
	for _, item := range a.items {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	a.items = kept
}

// List returns copies of all items, newest first.
func (a *Archive) List() []domain.ArchiveItem {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]domain.ArchiveItem, len(a.items))
	for i, item := range a.items {
		out[i] = cloneItem(item)
	}
	return out
}

// Get returns a copy of the item with id.
func (a *Archive) Get(id string) (domain.ArchiveItem, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, item := range a.items {
		if item.ID == id {
			return cloneItem(item), nil
		}
	}
	return domain.ArchiveItem{}, fmt.Errorf("%w: %s", ErrItemNotFound, id)
}

// Len returns the number of archived items.
func (a *Archive) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.items)
}

func cloneItem(item domain.ArchiveItem) domain.ArchiveItem {
	item.Data = item.Data.Clone()
	return item
}
