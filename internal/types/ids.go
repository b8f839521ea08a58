// internal/types/ids.go
package types

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

type SessionID string

func NewSessionID() SessionID {
	return SessionID(uuid.New().String())
}

// Database identifies the sequence database an accession belongs to.
type Database string

const (
	DBRefSeq  Database = "refseq"
	DBGenBank Database = "genbank"
	DBUniProt Database = "uniprot"
	DBEnsembl Database = "ensembl"
	DBUnknown Database = "unknown"
)

// Kind is the molecule (or identifier) type of a record.
type Kind string

const (
	KindNucleotide Kind = "nucleotide"
	KindProtein    Kind = "protein"
	KindNumericID  Kind = "numeric_id"
	KindUnknown    Kind = "unknown"
)

// Backend names the remote service that serves a database. RefSeq and
// GenBank are both served by NCBI.
type Backend string

const (
	BackendUniProt Backend = "uniprot"
	BackendNCBI    Backend = "ncbi"
	BackendEnsembl Backend = "ensembl"
)

// Backends lists every backend in dispatch order.
var Backends = []Backend{BackendUniProt, BackendNCBI, BackendEnsembl}

// Backend returns the backend serving d, or "" for DBUnknown.
func (d Database) Backend() Backend {
	switch d {
	case DBRefSeq, DBGenBank:
		return BackendNCBI
	case DBUniProt:
		return BackendUniProt
	case DBEnsembl:
		return BackendEnsembl
	}
	return ""
}

// ParseDatabase maps a user supplied database name onto a Database.
// "all" yields an empty scope (search everything).
func ParseDatabase(name string) ([]Database, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "all":
		return nil, nil
	case "gb", "genbank", "ncbi":
		return []Database{DBGenBank}, nil
	case "refseq":
		return []Database{DBRefSeq}, nil
	case "uniprot":
		return []Database{DBUniProt}, nil
	case "ensembl":
		return []Database{DBEnsembl}, nil
	}
	return nil, &ConfigError{Key: "database", Msg: fmt.Sprintf("%s is not currently supported", name)}
}

// DatabaseNames is the vocabulary accepted by ParseDatabase.
var DatabaseNames = []string{"all", "gb", "genbank", "refseq", "uniprot", "ensembl"}

// Scope is a set of databases. An empty scope means "search all".
type Scope map[Database]struct{}

func NewScope(dbs ...Database) Scope {
	s := make(Scope, len(dbs))
	for _, db := range dbs {
		s.Add(db)
	}
	return s
}

func (s Scope) Add(db Database) { s[db] = struct{}{} }

func (s Scope) Has(db Database) bool {
	_, ok := s[db]
	return ok
}

// All reports whether the scope places no restriction.
func (s Scope) All() bool { return len(s) == 0 }

// Includes reports whether the backend should be queried under this scope.
func (s Scope) Includes(b Backend) bool {
	if s.All() {
		return true
	}
	for db := range s {
		if db.Backend() == b {
			return true
		}
	}
	return false
}

// Sorted returns the scope members in stable order.
func (s Scope) Sorted() []Database {
	out := make([]Database, 0, len(s))
	for db := range s {
		out = append(out, db)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s Scope) String() string {
	if s.All() {
		return "all"
	}
	names := make([]string, 0, len(s))
	for _, db := range s.Sorted() {
		names = append(names, string(db))
	}
	return strings.Join(names, ", ")
}
