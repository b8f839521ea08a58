// internal/types/models.go
package types

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Summary is an insertion-ordered string map of lightweight record metadata.
type Summary struct {
	keys   []string
	values map[string]string
}

// NewSummary builds a Summary from alternating key, value pairs.
func NewSummary(kv ...string) *Summary {
	s := &Summary{values: make(map[string]string, len(kv)/2)}
	for i := 0; i+1 < len(kv); i += 2 {
		s.Set(kv[i], kv[i+1])
	}
	return s
}

// Set stores value under key, keeping the key's original position if present.
func (s *Summary) Set(key, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

func (s *Summary) Get(key string) (string, bool) {
	if s == nil {
		return "", false
	}
	v, ok := s.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (s *Summary) Keys() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

func (s *Summary) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Equal compares keys, order and values.
func (s *Summary) Equal(o *Summary) bool {
	if s.Len() != o.Len() {
		return false
	}
	for i, k := range s.Keys() {
		if o.keys[i] != k || o.values[k] != s.values[k] {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the summary as an array of [key, value] pairs so the
// order survives a round trip.
func (s *Summary) MarshalJSON() ([]byte, error) {
	pairs := make([][2]string, 0, s.Len())
	for _, k := range s.Keys() {
		pairs = append(pairs, [2]string{k, s.values[k]})
	}
	return json.Marshal(pairs)
}

func (s *Summary) UnmarshalJSON(data []byte) error {
	var pairs [][2]string
	if err := json.Unmarshal(data, &pairs); err != nil {
		return fmt.Errorf("unmarshal summary: %w", err)
	}
	s.keys = nil
	s.values = make(map[string]string, len(pairs))
	for _, p := range pairs {
		s.Set(p[0], p[1])
	}
	return nil
}

// FullRecord is a complete sequence record as returned by a backend.
type FullRecord struct {
	ID          string   `json:"id"`
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Molecule    Kind     `json:"molecule"`
	Sequence    string   `json:"sequence"`
	Annotations *Summary `json:"annotations,omitempty"`
	// Native is the record text exactly as the backend served it, in NativeFormat.
	Native       string `json:"native,omitempty"`
	NativeFormat string `json:"native_format,omitempty"`
}

// Text is the searchable text of the record.
func (f *FullRecord) Text() string {
	if f.Native != "" {
		return f.Native
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s %s\n", f.ID, f.Name, f.Description)
	for _, k := range f.Annotations.Keys() {
		v, _ := f.Annotations.Get(k)
		fmt.Fprintf(&sb, "%s: %s\n", k, v)
	}
	sb.WriteString(f.Sequence)
	return sb.String()
}

// Record is a single accession tracked by a session.
type Record struct {
	Accession  string      `json:"accession"`
	Database   Database    `json:"database"`
	Kind       Kind        `json:"kind"`
	Summary    *Summary    `json:"summary,omitempty"`
	Full       *FullRecord `json:"full,omitempty"`
	Size       int         `json:"size,omitempty"` // sequence length, 0 when unknown
	SearchTerm string      `json:"search_term,omitempty"`
}

// RecordState is the derived completeness of a Record.
type RecordState int

const (
	StateAccessionOnly RecordState = iota
	StatePartial
	StateFull
)

func (r *Record) State() RecordState {
	switch {
	case r.Full != nil:
		return StateFull
	case r.Summary.Len() > 0:
		return StatePartial
	}
	return StateAccessionOnly
}

// Failure is a recorded remote error for one query.
type Failure struct {
	Query   string `json:"query"`
	Message string `json:"message"`
	Hash    string `json:"hash"`
}

// NewFailure builds a Failure whose Hash is the md5 of query+message, so
// identical failures collapse to one entry.
func NewFailure(query, message string) Failure {
	sum := md5.Sum([]byte(query + message))
	return Failure{Query: query, Message: message, Hash: hex.EncodeToString(sum[:])}
}

func (f Failure) String() string {
	return fmt.Sprintf("%s\n%s\n", f.Query, f.Message)
}

// Result is what a backend call hands back for merging into a session.
type Result struct {
	Records  []*Record
	Failures []Failure
	// Renamed maps a queried identifier (e.g. a numeric GI) to the accession
	// it resolved to.
	Renamed map[string]string
}

// Merge appends o into r.
func (r *Result) Merge(o Result) {
	r.Records = append(r.Records, o.Records...)
	r.Failures = append(r.Failures, o.Failures...)
	for k, v := range o.Renamed {
		if r.Renamed == nil {
			r.Renamed = make(map[string]string)
		}
		r.Renamed[k] = v
	}
}

// RunOptions carries the command line switches that shape a run.
type RunOptions struct {
	Quiet     bool
	TestMode  bool
	OutFormat string
	Scope     Scope
}
