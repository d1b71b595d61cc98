// Package logbuf keeps the most recent daemon log records in memory so a
// client can read them after a failed generation.
package logbuf

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dhruvladani04/Agile-Sprint-Guardian/pkg/protocol"
)

// DefaultSize is the number of records guardiand keeps.
const DefaultSize = 2000

// Filter selects records from a Buffer. The zero Filter matches every
// record at info or above.
type Filter struct {
	Since    time.Time
	MinLevel slog.Level
	Contains string // case-insensitive; matched against message and attr values
	Limit    int    // newest N after filtering; <= 0 means all
}

// Buffer is a fixed-size ring of log records. Safe for concurrent use.
type Buffer struct {
	mu      sync.Mutex
	entries []protocol.LogEntry
	written uint64
}

// New creates a buffer holding up to size records.
func New(size int) *Buffer {
	if size < 1 {
		size = DefaultSize
	}
	return &Buffer{entries: make([]protocol.LogEntry, size)}
}

// Write stores e, dropping the oldest record when full.
func (b *Buffer) Write(e protocol.LogEntry) {
	b.mu.Lock()
	b.entries[b.written%uint64(len(b.entries))] = e
	b.written++
	b.mu.Unlock()
}

// Len is the number of records currently held.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lenLocked()
}

func (b *Buffer) lenLocked() int {
	if b.written < uint64(len(b.entries)) {
		return int(b.written)
	}
	return len(b.entries)
}

// Query returns the records matching f, oldest first. It never returns nil.
func (b *Buffer) Query(f Filter) []protocol.LogEntry {
	needle := strings.ToLower(f.Contains)

	b.mu.Lock()
	n := b.lenLocked()
	first := b.written - uint64(n)
	out := make([]protocol.LogEntry, 0, n)
	for i := uint64(0); i < uint64(n); i++ {
		e := b.entries[(first+i)%uint64(len(b.entries))]
		if !f.Since.IsZero() && e.Time.Before(f.Since) {
			continue
		}
		if ParseLevel(e.Level) < f.MinLevel {
			continue
		}
		if needle != "" && !matches(e, needle) {
			continue
		}
		out = append(out, e)
	}
	b.mu.Unlock()

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[len(out)-f.Limit:]
	}
	return out
}

func matches(e protocol.LogEntry, needle string) bool {
	if strings.Contains(strings.ToLower(e.Message), needle) {
		return true
	}
	for _, v := range e.Attrs {
		if strings.Contains(strings.ToLower(fmt.Sprint(v)), needle) {
			return true
		}
	}
	return false
}

// ParseLevel reads a level name such as "warn" or "ERROR+2". Unknown
// names are treated as info.
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}
