// internal/classify/classify_test.go
package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/user/dbbuddy/internal/types"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		token string
		db    types.Database
		kind  types.Kind
	}{
		{"NM_001234", types.DBRefSeq, types.KindNucleotide},
		{"XR_000123.1", types.DBRefSeq, types.KindNucleotide},
		{"NP_001234", types.DBRefSeq, types.KindProtein},
		{"XP_99", types.DBRefSeq, types.KindProtein},
		{"U12345", types.DBGenBank, types.KindNucleotide},
		{"AB123456", types.DBGenBank, types.KindNucleotide},
		{"AAA12345", types.DBGenBank, types.KindProtein},
		{"AAAA01000001", types.DBGenBank, types.KindNucleotide},
		{"AAAAA1234567", types.DBGenBank, types.KindProtein},
		{"12345678", types.DBGenBank, types.KindNumericID},
		{"P12345", types.DBUniProt, types.KindProtein},
		{"Q9H0H5", types.DBUniProt, types.KindProtein},
		{"A0A023GPI8", types.DBUniProt, types.KindProtein},
		{"ENSG00000139618", types.DBEnsembl, types.KindNucleotide},
		{"FBGN0000008", types.DBEnsembl, types.KindNucleotide},
		{"ENSMUST00000000001", types.DBEnsembl, types.KindNucleotide},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			db, kind, ok := Classify(tt.token)
			assert.True(t, ok)
			assert.Equal(t, tt.db, db)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestClassifyUnknown(t *testing.T) {
	for _, token := range []string{"", "   ", "some free text", "cytochrome", "p12345", "nm_001234", "BRCA2"} {
		db, kind, ok := Classify(token)
		assert.False(t, ok, token)
		assert.Equal(t, types.DBUnknown, db, token)
		assert.Equal(t, types.KindUnknown, kind, token)
	}
}

func TestUniProtBeatsSingleLetterGenBank(t *testing.T) {
	// P12345 also fits the one letter + five digit GenBank layout.
	db, kind, ok := Classify("P12345")
	assert.True(t, ok)
	assert.Equal(t, types.DBUniProt, db)
	assert.Equal(t, types.KindProtein, kind)

	db, _, _ = Classify("U12345")
	assert.Equal(t, types.DBGenBank, db)
}

func TestRecord(t *testing.T) {
	r, ok := Record(" P12345 ")
	assert.True(t, ok)
	assert.Equal(t, "P12345", r.Accession)
	assert.Equal(t, types.StateAccessionOnly, r.State())

	_, ok = Record("free text")
	assert.False(t, ok)
}
