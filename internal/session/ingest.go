// internal/session/ingest.go
package session

import (
	"regexp"
	"strings"

	"github.com/user/dbbuddy/internal/classify"
	"github.com/user/dbbuddy/internal/types"
)

var (
	accessionSep = regexp.MustCompile(`[\n\r, ]+`)
	termSep      = regexp.MustCompile(`[\n\r,]+`)
)

// Ingest classifies whitespace, comma and newline separated tokens into
// accession records. When some tokens are not accessions, the text is split
// again on commas and newlines only, keeping multi-word phrases intact, and
// every piece that is not already an accession becomes a search term.
func (s *Session) Ingest(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	observed := types.NewScope()
	var tokens []string
	matched := 0
	for _, tok := range accessionSep.Split(text, -1) {
		if tok == "" {
			continue
		}
		tokens = append(tokens, tok)
		rec, ok := classify.Record(tok)
		if !ok {
			continue
		}
		matched++
		observed.Add(rec.Database)
		if s.Add(rec) {
			s.log.Debug().Str("accession", rec.Accession).Str("database", string(rec.Database)).Msg("ingested accession")
		}
	}

	if matched < len(tokens) {
		for _, piece := range termSep.Split(text, -1) {
			piece = strings.TrimSpace(piece)
			if piece == "" || s.allTracked(piece) {
				continue
			}
			if s.AddSearchTerm(piece) {
				s.log.Debug().Str("term", piece).Msg("ingested search term")
			}
		}
	}

	if !s.scopeSet && len(observed) > 0 {
		for db := range observed {
			s.scope.Add(db)
		}
		s.scopeSet = true
	}
}

// allTracked reports whether every whitespace separated field of piece is a
// tracked accession.
func (s *Session) allTracked(piece string) bool {
	fields := strings.Fields(piece)
	for _, f := range fields {
		if !s.Has(f) {
			return false
		}
	}
	return len(fields) > 0
}
