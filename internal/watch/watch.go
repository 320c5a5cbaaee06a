// Package watch holds the mutable set of symbols the scanner cycles over.
package watch

import (
	"sort"
	"strings"
	"sync"
)

// List is a thread-safe symbol set. The scan loop snapshots it each pass and
// Telegram commands replace or clear it between passes.
type List struct {
	mu      sync.RWMutex
	symbols map[string]struct{}
}

func NewList(initial []string) *List {
	l := &List{symbols: make(map[string]struct{})}
	l.add(initial)
	return l
}

func (l *List) add(symbols []string) {
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		l.symbols[s] = struct{}{}
	}
}

// Replace swaps the whole set for the given symbols.
func (l *List) Replace(symbols []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.symbols = make(map[string]struct{})
	l.add(symbols)
}

// Clear empties the set.
func (l *List) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.symbols = make(map[string]struct{})
}

// Snapshot returns the symbols sorted, safe for iteration while the set
// changes underneath.
func (l *List) Snapshot() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.symbols))
	for s := range l.symbols {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.symbols)
}
