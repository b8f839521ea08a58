// internal/session/snapshot.go
package session

import (
	"github.com/user/dbbuddy/internal/state"
	"github.com/user/dbbuddy/internal/types"
)

// Snapshot captures the session, recycle bin included, for storage.
func (s *Session) Snapshot() *state.Snapshot {
	snap := &state.Snapshot{
		ID:          s.ID,
		Format:      s.outFormat,
		Scope:       s.scope.Sorted(),
		SearchTerms: s.SearchTerms(),
		Failures:    s.Failures(),
		Records:     make([]state.SnapshotRecord, 0, len(s.order)),
	}
	for _, acc := range s.order {
		e := s.entries[acc]
		snap.Records = append(snap.Records, state.SnapshotRecord{Record: e.rec, Recycled: e.state == stateRecycled})
	}
	return snap
}

// FromSnapshot rebuilds a session from a stored snapshot. The session keeps
// the snapshot's id so saving it again replaces the stored copy.
func FromSnapshot(snap *state.Snapshot, opts ...Option) (*Session, error) {
	opts = append([]Option{WithFormat(snap.Format), WithScope(types.NewScope(snap.Scope...))}, opts...)
	s, err := New(nil, opts...)
	if err != nil {
		return nil, err
	}
	if snap.ID != "" {
		s.ID = snap.ID
		s.log = s.log.With().Str("resumed_from", string(snap.ID)).Logger()
	}
	for _, r := range snap.Records {
		if r.Record == nil || !s.Add(r.Record) {
			continue
		}
		if r.Recycled {
			s.entries[r.Accession].state = stateRecycled
		}
	}
	for _, term := range snap.SearchTerms {
		s.AddSearchTerm(term)
	}
	for _, f := range snap.Failures {
		s.AddFailure(f)
	}
	return s, nil
}
