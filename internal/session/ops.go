// internal/session/ops.go
package session

import (
	"fmt"
	"regexp"

	"github.com/user/dbbuddy/internal/types"
)

// Matches reports whether any searchable field of rec matches re.
func Matches(rec *types.Record, re *regexp.Regexp) bool {
	for _, field := range []string{rec.Accession, string(rec.Database), string(rec.Kind), rec.SearchTerm} {
		if re.MatchString(field) {
			return true
		}
	}
	for _, k := range rec.Summary.Keys() {
		v, _ := rec.Summary.Get(k)
		if re.MatchString(k) || re.MatchString(v) {
			return true
		}
	}
	return rec.Full != nil && re.MatchString(rec.Full.Text())
}

func compile(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, &types.ConfigError{Key: "pattern", Msg: fmt.Sprintf("invalid regular expression %q: %v", pattern, err)}
	}
	return re, nil
}

// Filter keeps only the active records matching pattern and moves the rest
// to the recycle bin. It returns the number of records moved.
func (s *Session) Filter(pattern string) (int, error) {
	re, err := compile(pattern)
	if err != nil {
		return 0, err
	}
	moved := 0
	for _, acc := range s.order {
		e := s.entries[acc]
		if e.state == stateActive && !Matches(e.rec, re) {
			e.state = stateRecycled
			moved++
		}
	}
	s.log.Debug().Str("pattern", pattern).Int("moved", moved).Msg("filter")
	return moved, nil
}

// Restore moves recycled records matching pattern back to active and
// returns how many moved.
func (s *Session) Restore(pattern string) (int, error) {
	re, err := compile(pattern)
	if err != nil {
		return 0, err
	}
	moved := 0
	for _, acc := range s.order {
		e := s.entries[acc]
		if e.state == stateRecycled && Matches(e.rec, re) {
			e.state = stateActive
			moved++
		}
	}
	s.log.Debug().Str("pattern", pattern).Int("moved", moved).Msg("restore")
	return moved, nil
}

// ResetAll moves every recycled record back to active.
func (s *Session) ResetAll() int {
	moved := 0
	for _, e := range s.entries {
		if e.state == stateRecycled {
			e.state = stateActive
			moved++
		}
	}
	return moved
}

// ClearAll empties both record partitions and the search terms.
func (s *Session) ClearAll() {
	s.entries = make(map[string]*entry)
	s.order = nil
	s.searchTerms = nil
}

// ClearSearchTerms drops the pending search terms.
func (s *Session) ClearSearchTerms() { s.searchTerms = nil }

// Status is a point-in-time summary of the session.
type Status struct {
	Databases     string
	OutFormat     string
	SearchTerms   []string
	Full          int
	Partial       int
	AccessionOnly int
	FilteredOut   int
	Failures      int
}

func (s *Session) Status() Status {
	b := s.Breakdown()
	return Status{
		Databases:     s.scope.String(),
		OutFormat:     s.outFormat,
		SearchTerms:   s.SearchTerms(),
		Full:          len(b.Full),
		Partial:       len(b.Partial),
		AccessionOnly: len(b.AccessionOnly),
		FilteredOut:   s.RecycledLen(),
		Failures:      len(s.failOrder),
	}
}
