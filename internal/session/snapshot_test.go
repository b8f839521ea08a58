// internal/session/snapshot_test.go
package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/dbbuddy/internal/state"
	"github.com/user/dbbuddy/internal/types"
)

func TestSnapshotRoundTrip(t *testing.T) {
	s := mixedSession(t)
	s.AddSearchTerm("kinase")
	s.AddFailure(types.NewFailure("kinase", "400 Bad Request"))
	require.NoError(t, s.SetFormat(FormatIDs))
	s.Upsert(&types.Record{Accession: "P12345", Summary: types.NewSummary("organism", "Homo sapiens"), Size: 393})
	_, err := s.Filter("uniprot")
	require.NoError(t, err)

	store := state.NewStore(t.TempDir())
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, s.Snapshot()))

	snap, err := store.Load(ctx, s.ID)
	require.NoError(t, err)
	back, err := FromSnapshot(snap)
	require.NoError(t, err)

	assert.Equal(t, s.ID, back.ID)
	assert.Equal(t, s.ActiveAccessions(), back.ActiveAccessions())
	assert.Equal(t, s.RecycledLen(), back.RecycledLen())
	assert.Equal(t, []string{"kinase"}, back.SearchTerms())
	assert.Len(t, back.Failures(), 1)
	assert.Equal(t, FormatIDs, back.Format())
	assert.Equal(t, s.Hash(), back.Hash())
	assertDisjoint(t, back)

	rec, ok := back.Get("P12345")
	require.True(t, ok)
	assert.Equal(t, 393, rec.Size)
}

func TestFromSnapshotFormatOverride(t *testing.T) {
	snap := &state.Snapshot{ID: "abc", Format: FormatIDs}
	s, err := FromSnapshot(snap, WithFormat("fasta"))
	require.NoError(t, err)
	assert.Equal(t, "fasta", s.Format())
}

func TestMergeKeepsReceiverScope(t *testing.T) {
	s := newSession(t, "P12345", WithScope(types.NewScope(types.DBUniProt)))
	other := newSession(t, "NM_001234\nkinase")
	s.Merge(other)

	assert.Equal(t, []string{"P12345", "NM_001234"}, s.ActiveAccessions())
	assert.Equal(t, []string{"kinase"}, s.SearchTerms())
	assert.Equal(t, types.NewScope(types.DBUniProt), s.Scope())
}
