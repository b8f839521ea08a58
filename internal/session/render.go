// internal/session/render.go
package session

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/user/dbbuddy/internal/types"
)

const (
	failureBanner   = "# ########################## Failures ########################### #\n"
	accessionBanner = "# ################## Accessions without Records ################## #\n"
	closingBanner   = "# ################################################################ #\n"

	maxCellWidth = 50
)

var palette = []color.Attribute{
	color.FgHiCyan, color.FgHiGreen, color.FgHiYellow, color.FgHiMagenta, color.FgHiBlue, color.FgHiRed,
}

// RenderOptions controls what Render prints.
type RenderOptions struct {
	N       int // at most N records, 0 for all
	Columns []string
	Test    bool
	Color   bool
}

// Render writes the failure report to errOut and the active records, in the
// session's output format, to out. In test mode only a marker is printed.
func (s *Session) Render(out, errOut io.Writer, opts RenderOptions) error {
	if opts.Test {
		_, err := fmt.Fprint(errOut, "*** Test passed ***\n")
		return err
	}
	if err := s.RenderFailures(errOut); err != nil {
		return err
	}
	_, err := s.renderBody(out, opts)
	return err
}

// Export writes the active records without colors or report sections and
// returns how many records were written.
func (s *Session) Export(w io.Writer) (int, error) {
	return s.renderBody(w, RenderOptions{})
}

// RenderFailures writes the failures and accessions-without-records report.
// Nothing is written when there is nothing to report.
func (s *Session) RenderFailures(w io.Writer) error {
	var sb strings.Builder
	if failures := s.Failures(); len(failures) > 0 {
		sb.WriteString(failureBanner)
		for _, f := range failures {
			sb.WriteString(f.String())
		}
	}
	if s.outFormat != FormatIDs && s.outFormat != FormatAccessions {
		if missing := s.Breakdown().AccessionOnly; len(missing) > 0 {
			sb.WriteString(accessionBanner)
			for i := 0; i < len(missing); i += 4 {
				sb.WriteString(strings.Join(missing[i:min(i+4, len(missing))], "\t"))
				sb.WriteString("\n")
			}
		}
	}
	if sb.Len() == 0 {
		return nil
	}
	sb.WriteString(closingBanner + "\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

func (s *Session) renderBody(w io.Writer, opts RenderOptions) (int, error) {
	recs := s.Active()
	if opts.N > 0 && opts.N < len(recs) {
		recs = recs[:opts.N]
	}
	switch s.outFormat {
	case FormatIDs, FormatAccessions:
		var sb strings.Builder
		for _, rec := range recs {
			sb.WriteString(rec.Accession + "\n")
		}
		_, err := io.WriteString(w, sb.String())
		return len(recs), err
	case FormatSummary, FormatFullSummary:
		_, err := io.WriteString(w, s.summaryTable(recs, opts))
		return len(recs), err
	}
	return s.writeSequences(w, opts.N)
}

func (s *Session) summaryTable(recs []*types.Record, opts RenderOptions) string {
	paint := func(i int, v string) string {
		if !opts.Color {
			return v
		}
		c := color.New(palette[i%len(palette)])
		c.EnableColor()
		return c.Sprint(v)
	}

	var sb strings.Builder
	var saved []string
	for _, rec := range recs {
		headings := append([]string{"ACCN", "DB"}, rec.Summary.Keys()...)
		if len(opts.Columns) > 0 {
			headings = slices.DeleteFunc(headings, func(h string) bool { return !slices.Contains(opts.Columns, h) })
		}
		if !slices.Equal(saved, headings) {
			cells := make([]string, len(headings))
			for i, h := range headings {
				cells[i] = paint(i, h)
			}
			sb.WriteString(strings.Join(cells, "\t") + "\n")
			saved = headings
		}

		var cells []string
		for _, h := range headings {
			var v string
			switch h {
			case "ACCN":
				v = rec.Accession
			case "DB":
				v = string(rec.Database)
			default:
				v, _ = rec.Summary.Get(h)
				if s.outFormat != FormatFullSummary {
					v = truncate(v, maxCellWidth)
				}
			}
			cells = append(cells, paint(len(cells), v))
		}
		sb.WriteString(strings.Join(cells, "\t") + "\n")
	}
	return sb.String()
}

// truncate shortens v to width runes, the last three being "...".
func truncate(v string, width int) string {
	if utf8.RuneCountInString(v) <= width {
		return v
	}
	r := []rune(v)
	return string(r[:width-3]) + "..."
}

// writeSequences serializes full records, nucleotides first then proteins,
// each block capped at n records when n > 0.
func (s *Session) writeSequences(w io.Writer, n int) (int, error) {
	var nuc, prot []*types.FullRecord
	for _, rec := range s.Active() {
		if rec.Full == nil {
			continue
		}
		kind := rec.Full.Molecule
		if kind == "" || kind == types.KindUnknown {
			kind = rec.Kind
		}
		if kind == types.KindProtein {
			prot = append(prot, rec.Full)
		} else {
			nuc = append(nuc, rec.Full)
		}
	}
	if n > 0 {
		nuc = nuc[:min(n, len(nuc))]
		prot = prot[:min(n, len(prot))]
	}

	var buf bytes.Buffer
	for _, block := range [][]*types.FullRecord{nuc, prot} {
		if len(block) == 0 {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		if err := s.formats.Write(&buf, s.outFormat, block); err != nil {
			return 0, err
		}
	}
	_, err := w.Write(buf.Bytes())
	return len(nuc) + len(prot), err
}
