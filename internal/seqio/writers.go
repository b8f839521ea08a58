// internal/seqio/writers.go
package seqio

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/TuftsBCB/io/fasta"
	"github.com/TuftsBCB/seq"

	"github.com/user/dbbuddy/internal/types"
)

const lineWidth = 60

// WriteFASTA writes one ">id description" header per record with the
// sequence wrapped at 60 columns.
func WriteFASTA(w io.Writer, recs []*types.FullRecord) error {
	seqs := make([]seq.Sequence, len(recs))
	for i, rec := range recs {
		seqs[i] = Sequence(rec)
	}
	fw := fasta.NewWriter(w)
	fw.Columns = lineWidth
	return fw.WriteAll(seqs)
}

// Sequence converts rec to a sequence named by its FASTA header text.
func Sequence(rec *types.FullRecord) seq.Sequence {
	name := rec.ID
	if rec.Description != "" {
		name += " " + rec.Description
	}
	return seq.NewSequenceString(name, rec.Sequence)
}

// WriteGenBank passes native GenBank text through untouched and synthesizes
// a minimal flat file for records that came from other backends.
func WriteGenBank(w io.Writer, recs []*types.FullRecord) error {
	bw := bufio.NewWriter(w)
	for _, rec := range recs {
		if rec.NativeFormat == "gb" && rec.Native != "" {
			native := strings.TrimRight(rec.Native, "\n")
			fmt.Fprintln(bw, native)
			continue
		}
		writeFlatFile(bw, rec)
	}
	return bw.Flush()
}

func writeFlatFile(bw *bufio.Writer, rec *types.FullRecord) {
	unit, mol := "bp", "DNA"
	if rec.Molecule == types.KindProtein {
		unit, mol = "aa", ""
	}
	name := rec.Name
	if name == "" {
		name = rec.ID
	}
	fmt.Fprintf(bw, "LOCUS       %-16s %11d %s    %-6s\n", name, len(rec.Sequence), unit, mol)
	desc := rec.Description
	if desc == "" {
		desc = "."
	}
	fmt.Fprintf(bw, "DEFINITION  %s\n", desc)
	fmt.Fprintf(bw, "ACCESSION   %s\n", rec.ID)
	for _, k := range rec.Annotations.Keys() {
		v, _ := rec.Annotations.Get(k)
		fmt.Fprintf(bw, "COMMENT     %s: %s\n", k, v)
	}
	fmt.Fprintln(bw, "ORIGIN")
	residues := strings.ToLower(rec.Sequence)
	for i := 0; i < len(residues); i += lineWidth {
		end := min(i+lineWidth, len(residues))
		chunk := residues[i:end]
		var groups []string
		for j := 0; j < len(chunk); j += 10 {
			groups = append(groups, chunk[j:min(j+10, len(chunk))])
		}
		fmt.Fprintf(bw, "%9d %s\n", i+1, strings.Join(groups, " "))
	}
	fmt.Fprintln(bw, "//")
}

// WriteRaw writes bare sequences, one per line.
func WriteRaw(w io.Writer, recs []*types.FullRecord) error {
	bw := bufio.NewWriter(w)
	for _, rec := range recs {
		fmt.Fprintln(bw, rec.Sequence)
	}
	return bw.Flush()
}
