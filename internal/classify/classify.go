// internal/classify/classify.go
package classify

import (
	"regexp"
	"strings"

	"github.com/user/dbbuddy/internal/types"
)

// Rule assigns a database and kind to tokens matching Pattern.
type Rule struct {
	Name     string
	Pattern  *regexp.Regexp
	Database types.Database
	Kind     types.Kind
}

// Rules are evaluated in order and the first match wins. RefSeq protein
// prefixes overlap the looser UniProt layout, and UniProt's O/P/Q + 5 layout
// overlaps the single-letter GenBank one, so the order below is load bearing.
var Rules = []Rule{
	{"refseq nucleotide", regexp.MustCompile(`^[NX][MR]_[0-9]+`), types.DBRefSeq, types.KindNucleotide},
	{"refseq protein", regexp.MustCompile(`^[ANYXZ]P_[0-9]+`), types.DBRefSeq, types.KindProtein},
	{"uniprot", regexp.MustCompile(`^(?:[OPQ][0-9][A-Z0-9]{3}[0-9]|[A-NR-Z][0-9](?:[A-Z][A-Z0-9]{2}[0-9]){1,2})`), types.DBUniProt, types.KindProtein},
	{"ensembl stable id", regexp.MustCompile(`^(?:ENS|FB)[A-Z]*[0-9]+`), types.DBEnsembl, types.KindNucleotide},
	{"genbank nucleotide", regexp.MustCompile(`^[A-Z][0-9]{5}$|^[A-Z]{2}[0-9]{6}$`), types.DBGenBank, types.KindNucleotide},
	{"genbank protein", regexp.MustCompile(`^[A-Z]{3}[0-9]{5}$`), types.DBGenBank, types.KindProtein},
	{"genbank whole genome", regexp.MustCompile(`^[A-Z]{4}[0-9]{8,10}$`), types.DBGenBank, types.KindNucleotide},
	{"genbank mass annotation", regexp.MustCompile(`^[A-Z]{5}[0-9]{7}$`), types.DBGenBank, types.KindProtein},
	{"gi number", regexp.MustCompile(`^[0-9]+$`), types.DBGenBank, types.KindNumericID},
}

// Classify returns the database and kind for token, or ok=false when no
// rule matches and the token should be treated as a search term.
func Classify(token string) (db types.Database, kind types.Kind, ok bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return types.DBUnknown, types.KindUnknown, false
	}
	for _, r := range Rules {
		if r.Pattern.MatchString(token) {
			return r.Database, r.Kind, true
		}
	}
	return types.DBUnknown, types.KindUnknown, false
}

// Record builds an accession-only record for token if it classifies.
func Record(token string) (*types.Record, bool) {
	db, kind, ok := Classify(token)
	if !ok {
		return nil, false
	}
	return &types.Record{Accession: strings.TrimSpace(token), Database: db, Kind: kind}, true
}
