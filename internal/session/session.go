// internal/session/session.go
package session

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/user/dbbuddy/internal/seqio"
	"github.com/user/dbbuddy/internal/types"
)

// Output formats rendered by the session itself rather than a serializer.
const (
	FormatIDs         = "ids"
	FormatAccessions  = "accessions"
	FormatSummary     = "summary"
	FormatFullSummary = "full_summary"
)

// IsSummaryFormat reports whether format is rendered as text by the session.
func IsSummaryFormat(format string) bool {
	switch format {
	case FormatIDs, FormatAccessions, FormatSummary, FormatFullSummary:
		return true
	}
	return false
}

type recordState int

const (
	stateActive recordState = iota
	stateRecycled
)

// entry owns a record and tags which partition it currently belongs to.
// Moving a record between active and recycled only flips the tag, so an
// accession can never be in both.
type entry struct {
	rec   *types.Record
	state recordState
}

// Session is the in-memory working set for one run: records partitioned
// into active and recycled, deduplicated failures, pending search terms,
// the database scope and the output format.
type Session struct {
	ID types.SessionID

	entries     map[string]*entry
	order       []string
	failures    map[string]types.Failure
	failOrder   []string
	searchTerms []string
	scope       types.Scope
	scopeSet    bool
	outFormat   string

	formats *seqio.Registry
	log     zerolog.Logger
}

// Option configures a Session at construction.
type Option func(*Session)

// WithScope restricts the databases searched. An empty scope means all.
func WithScope(scope types.Scope) Option {
	return func(s *Session) {
		s.scope = types.NewScope(scope.Sorted()...)
		s.scopeSet = len(scope) > 0
	}
}

// WithFormat sets the initial output format.
func WithFormat(format string) Option {
	return func(s *Session) {
		if format != "" {
			s.outFormat = strings.ToLower(format)
		}
	}
}

// WithLogger attaches a logger; the session id is added as a field.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Session) { s.log = log }
}

// WithSerializers overrides the sequence format registry.
func WithSerializers(reg *seqio.Registry) Option {
	return func(s *Session) { s.formats = reg }
}

// New builds a Session from input, which may be nil, a string holding a
// file path or raw text, a []byte, an io.Reader, or a []*Session to merge.
func New(input any, opts ...Option) (*Session, error) {
	s := &Session{
		ID:        types.NewSessionID(),
		entries:   make(map[string]*entry),
		failures:  make(map[string]types.Failure),
		scope:     types.NewScope(),
		outFormat: FormatSummary,
		formats:   seqio.Default(),
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("session_id", string(s.ID)).Logger()
	if err := s.SetFormat(s.outFormat); err != nil {
		return nil, err
	}

	var text string
	switch v := input.(type) {
	case nil:
	case []*Session:
		for _, other := range v {
			s.absorb(other)
		}
	case string:
		if info, err := os.Stat(v); err == nil && !info.IsDir() {
			data, err := os.ReadFile(v)
			if err != nil {
				return nil, &types.InputError{Msg: "read input file " + v, Err: err}
			}
			text = string(data)
		} else {
			text = v
		}
	case []byte:
		text = string(v)
	case io.Reader:
		data, err := io.ReadAll(v)
		if err != nil {
			return nil, &types.InputError{Msg: "read input stream", Err: err}
		}
		text = string(data)
	default:
		return nil, &types.InputError{Msg: fmt.Sprintf("could not determine the input type (%T)", input)}
	}

	if text = strings.TrimSpace(text); text != "" {
		s.Ingest(text)
	}
	return s, nil
}

// Merge adds the active records, search terms and failures of other.
func (s *Session) Merge(other *Session) { s.absorb(other) }

func (s *Session) absorb(other *Session) {
	for _, rec := range other.Active() {
		s.Add(rec)
	}
	for _, term := range other.searchTerms {
		s.AddSearchTerm(term)
	}
	for _, f := range other.Failures() {
		s.AddFailure(f)
	}
	if !s.scopeSet {
		for db := range other.scope {
			s.scope.Add(db)
		}
	}
}

// Logger returns the session scoped logger.
func (s *Session) Logger() zerolog.Logger { return s.log }

// Serializers returns the registry used for sequence formats.
func (s *Session) Serializers() *seqio.Registry { return s.formats }

// Add inserts an accession-keyed record. It returns false, leaving the
// existing record untouched, if the accession is already tracked.
func (s *Session) Add(rec *types.Record) bool {
	if rec == nil || rec.Accession == "" {
		return false
	}
	if _, ok := s.entries[rec.Accession]; ok {
		return false
	}
	s.entries[rec.Accession] = &entry{rec: rec, state: stateActive}
	s.order = append(s.order, rec.Accession)
	return true
}

// Upsert adds rec, or fills the fields of the existing record that rec has
// data for. The existing record keeps its partition.
func (s *Session) Upsert(rec *types.Record) {
	e, ok := s.entries[rec.Accession]
	if !ok {
		s.Add(rec)
		return
	}
	cur := e.rec
	if rec.Summary.Len() > 0 {
		if cur.Summary == nil {
			cur.Summary = types.NewSummary()
		}
		for _, k := range rec.Summary.Keys() {
			v, _ := rec.Summary.Get(k)
			cur.Summary.Set(k, v)
		}
	}
	if rec.Full != nil {
		cur.Full = rec.Full
	}
	if rec.Size > 0 {
		cur.Size = rec.Size
	}
	if cur.SearchTerm == "" {
		cur.SearchTerm = rec.SearchTerm
	}
	if rec.Database != "" && rec.Database != types.DBUnknown {
		cur.Database = rec.Database
	}
	if rec.Kind != "" && rec.Kind != types.KindUnknown && (cur.Kind == types.KindNumericID || cur.Kind == types.KindUnknown || cur.Kind == "") {
		cur.Kind = rec.Kind
	}
}

// Rekey renames a tracked accession, as when a numeric GI resolves to its
// real accession. If newAcc already exists the two records are merged.
func (s *Session) Rekey(oldAcc, newAcc string) {
	e, ok := s.entries[oldAcc]
	if !ok || oldAcc == newAcc {
		return
	}
	delete(s.entries, oldAcc)
	idx := s.indexOf(oldAcc)
	if existing, ok := s.entries[newAcc]; ok {
		s.order = append(s.order[:idx], s.order[idx+1:]...)
		if existing.rec.SearchTerm == "" {
			existing.rec.SearchTerm = e.rec.SearchTerm
		}
		return
	}
	e.rec.Accession = newAcc
	s.entries[newAcc] = e
	s.order[idx] = newAcc
}

func (s *Session) indexOf(acc string) int {
	for i, a := range s.order {
		if a == acc {
			return i
		}
	}
	return -1
}

// Get returns the active record for acc.
func (s *Session) Get(acc string) (*types.Record, bool) {
	e, ok := s.entries[acc]
	if !ok || e.state != stateActive {
		return nil, false
	}
	return e.rec, true
}

// Has reports whether acc is tracked in either partition.
func (s *Session) Has(acc string) bool {
	_, ok := s.entries[acc]
	return ok
}

// Recycled reports whether acc sits in the recycle bin.
func (s *Session) Recycled(acc string) bool {
	e, ok := s.entries[acc]
	return ok && e.state == stateRecycled
}

func (s *Session) collect(state recordState) []*types.Record {
	var out []*types.Record
	for _, acc := range s.order {
		if e := s.entries[acc]; e.state == state {
			out = append(out, e.rec)
		}
	}
	return out
}

// Active returns the active records in insertion order.
func (s *Session) Active() []*types.Record { return s.collect(stateActive) }

// RecycleBin returns the recycled records in insertion order.
func (s *Session) RecycleBin() []*types.Record { return s.collect(stateRecycled) }

// ActiveAccessions returns active accessions in insertion order.
func (s *Session) ActiveAccessions() []string {
	recs := s.Active()
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Accession
	}
	return out
}

// Len is the number of active records.
func (s *Session) Len() int {
	n := 0
	for _, e := range s.entries {
		if e.state == stateActive {
			n++
		}
	}
	return n
}

// RecycledLen is the number of records in the recycle bin.
func (s *Session) RecycledLen() int { return len(s.entries) - s.Len() }

// SearchTerms returns a copy of the pending free-text queries.
func (s *Session) SearchTerms() []string {
	out := make([]string, len(s.searchTerms))
	copy(out, s.searchTerms)
	return out
}

// AddSearchTerm appends term unless it is blank or already present.
func (s *Session) AddSearchTerm(term string) bool {
	term = strings.TrimSpace(term)
	if term == "" {
		return false
	}
	for _, t := range s.searchTerms {
		if t == term {
			return false
		}
	}
	s.searchTerms = append(s.searchTerms, term)
	return true
}

// Scope returns a copy of the database scope.
func (s *Session) Scope() types.Scope {
	return types.NewScope(s.scope.Sorted()...)
}

// SetScope replaces the database scope. An empty scope means all.
func (s *Session) SetScope(scope types.Scope) {
	s.scope = types.NewScope(scope.Sorted()...)
	s.scopeSet = len(scope) > 0
}

// Format is the current output format.
func (s *Session) Format() string { return s.outFormat }

// SetFormat validates and sets the output format.
func (s *Session) SetFormat(format string) error {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "full-summary" {
		format = FormatFullSummary
	}
	if !IsSummaryFormat(format) && !s.formats.Has(format) {
		return &types.ConfigError{Key: "format", Msg: fmt.Sprintf("unsupported output format %q", format)}
	}
	s.outFormat = format
	return nil
}

// Formats lists every output format the session accepts.
func (s *Session) Formats() []string {
	return append([]string{FormatIDs, FormatAccessions, FormatSummary, FormatFullSummary}, s.formats.Formats()...)
}

// AddFailure records f unless an identical failure is already present.
func (s *Session) AddFailure(f types.Failure) bool {
	if f.Hash == "" {
		f = types.NewFailure(f.Query, f.Message)
	}
	if _, ok := s.failures[f.Hash]; ok {
		return false
	}
	s.failures[f.Hash] = f
	s.failOrder = append(s.failOrder, f.Hash)
	return true
}

// Failures returns the recorded failures in the order first seen.
func (s *Session) Failures() []types.Failure {
	out := make([]types.Failure, 0, len(s.failOrder))
	for _, h := range s.failOrder {
		out = append(out, s.failures[h])
	}
	return out
}

// ClearFailures drops every recorded failure.
func (s *Session) ClearFailures() {
	s.failures = make(map[string]types.Failure)
	s.failOrder = nil
}

// Breakdown partitions active accessions by record completeness.
type Breakdown struct {
	Full          []string
	Partial       []string
	AccessionOnly []string
}

func (s *Session) Breakdown() Breakdown {
	var b Breakdown
	for _, rec := range s.Active() {
		switch rec.State() {
		case types.StateFull:
			b.Full = append(b.Full, rec.Accession)
		case types.StatePartial:
			b.Partial = append(b.Partial, rec.Accession)
		default:
			b.AccessionOnly = append(b.AccessionOnly, rec.Accession)
		}
	}
	return b
}

// TotalSize sums the known sequence lengths of active records.
func (s *Session) TotalSize() int {
	total := 0
	for _, rec := range s.Active() {
		total += rec.Size
	}
	return total
}

// Hash fingerprints the active records and output format. Two sessions
// with the same hash are equivalent for unsaved-change checks.
func (s *Session) Hash() string {
	h := md5.New()
	for _, rec := range s.Active() {
		fmt.Fprintf(h, "%s\x00%s\x00%s\x00%d\x00%d\x00", rec.Accession, rec.Database, rec.Kind, rec.State(), rec.Size)
		for _, k := range rec.Summary.Keys() {
			v, _ := rec.Summary.Get(k)
			fmt.Fprintf(h, "%s=%s\x00", k, v)
		}
	}
	fmt.Fprintf(h, "\x01%s", s.outFormat)
	return hex.EncodeToString(h.Sum(nil))
}

// Equal reports whether both sessions hold equivalent active records and
// share an output format.
func (s *Session) Equal(o *Session) bool {
	return o != nil && s.Hash() == o.Hash()
}
