// internal/seqio/registry.go
package seqio

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/user/dbbuddy/internal/types"
)

// Writer serializes full records in one sequence format.
type Writer func(w io.Writer, recs []*types.FullRecord) error

// Registry maps format names to writers.
type Registry struct {
	mu      sync.RWMutex
	writers map[string]Writer
}

// NewRegistry creates an empty serializer registry.
func NewRegistry() *Registry {
	return &Registry{writers: make(map[string]Writer)}
}

// Default returns a registry with the built-in formats.
func Default() *Registry {
	r := NewRegistry()
	r.Register("fasta", WriteFASTA)
	r.Register("gb", WriteGenBank)
	r.Register("genbank", WriteGenBank)
	r.Register("raw", WriteRaw)
	return r
}

// Register adds a writer under a case-insensitive format name.
func (r *Registry) Register(format string, w Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writers[strings.ToLower(format)] = w
}

// Has reports whether format is registered.
func (r *Registry) Has(format string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.writers[strings.ToLower(format)]
	return ok
}

// Formats lists registered names in sorted order.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.writers))
	for name := range r.writers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Write finds the writer for format and runs it.
func (r *Registry) Write(w io.Writer, format string, recs []*types.FullRecord) error {
	r.mu.RLock()
	fn, ok := r.writers[strings.ToLower(format)]
	r.mu.RUnlock()
	if !ok {
		return &types.ConfigError{Key: "format", Msg: fmt.Sprintf("unsupported output format %q", format)}
	}
	if err := fn(w, recs); err != nil {
		return fmt.Errorf("write %s: %w", format, err)
	}
	return nil
}
