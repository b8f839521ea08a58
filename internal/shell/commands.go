package shell

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/user/dbbuddy/internal/session"
	"github.com/user/dbbuddy/internal/types"
)

func (sh *Shell) printErr(err error) {
	sh.bad.Fprintf(sh.errOut, "Error: %v\n", err)
}

func (sh *Shell) doSearch(ctx context.Context, args string) {
	if args == "" {
		if args = sh.ask("Specify search string", ""); args == "" {
			sh.aborted()
			return
		}
	}

	temp, err := session.New(args,
		session.WithScope(sh.sess.Scope()),
		session.WithLogger(sh.log),
		session.WithSerializers(sh.sess.Serializers()),
	)
	if err != nil {
		sh.printErr(err)
		return
	}
	if temp.Len() > 0 {
		sh.ret.RetrieveSequences(ctx, temp)
	}
	if len(temp.SearchTerms()) > 0 {
		sh.ret.RetrieveAccessions(ctx, temp)
	}

	for _, term := range temp.SearchTerms() {
		sh.sess.AddSearchTerm(term)
	}
	added := 0
	for _, rec := range temp.Active() {
		if sh.sess.Add(rec) {
			added++
		}
	}
	for _, f := range temp.Failures() {
		sh.sess.AddFailure(f)
	}

	if err := temp.RenderFailures(sh.errOut); err != nil {
		sh.log.Warn().Err(err).Msg("render failures")
	}
	sh.good.Fprintf(sh.out, "%d new records added to the live session\n", added)
}

func (sh *Shell) patterns(args, question string) []string {
	if args == "" {
		args = sh.ask(question, "")
	}
	return splitPatterns(args)
}

func (sh *Shell) doFilter(args string) {
	patterns := sh.patterns(args, "Specify a search string to be used as a filter")
	if len(patterns) == 0 {
		sh.aborted()
		return
	}
	width := patternWidth(patterns)
	fmt.Fprintf(sh.out, "%-*s%s\n", width, "Filter", "# Recs removed")
	for _, p := range patterns {
		n, err := sh.sess.Filter(p)
		if err != nil {
			sh.printErr(err)
			continue
		}
		fmt.Fprintf(sh.out, "%-*s%d\n", width, p, n)
	}
	fmt.Fprintf(sh.out, "\n%d records remain.\n", sh.sess.Len())
}

func (sh *Shell) doRestore(args string) {
	patterns := sh.patterns(args, "Specify a string to search the recycle bin with")
	if len(patterns) == 0 {
		sh.aborted()
		return
	}
	width := patternWidth(patterns)
	fmt.Fprintf(sh.out, "%-*s%s\n", width, "Filter", "# Recs returned")
	for _, p := range patterns {
		n, err := sh.sess.Restore(p)
		if err != nil {
			sh.printErr(err)
			continue
		}
		fmt.Fprintf(sh.out, "%-*s%d\n", width, p, n)
	}
	fmt.Fprintf(sh.out, "\n%d records remain in the recycle bin.\n", sh.sess.RecycledLen())
}

func patternWidth(patterns []string) int {
	w := 0
	for _, p := range patterns {
		w = max(w, len(p))
	}
	return w + 2
}

func (sh *Shell) doReset() {
	n := sh.sess.ResetAll()
	sh.info.Fprintf(sh.out, "%d records recovered\n", n)
}

func (sh *Shell) doClearAll() {
	total := sh.sess.Len() + sh.sess.RecycledLen()
	if !sh.confirm(fmt.Sprintf("Are you sure you want to delete ALL %d records from your live session", total)) {
		sh.aborted()
		return
	}
	sh.sess.ClearAll()
	sh.good.Fprintln(sh.out, "Live session cleared")
}

func (sh *Shell) doDatabase(args string) {
	if args == "" {
		if args = sh.ask("Specify database", ""); args == "" {
			sh.aborted()
			return
		}
	}

	scope := types.NewScope()
	all := false
	for _, name := range strings.Fields(args) {
		dbs, err := types.ParseDatabase(name)
		if err != nil {
			sh.bad.Fprintf(sh.errOut, "Error: %s is not a valid database choice.\nPlease select from %s\n",
				name, strings.Join(types.DatabaseNames, ", "))
			continue
		}
		if dbs == nil {
			all = true
		}
		for _, db := range dbs {
			scope.Add(db)
		}
	}
	if !all && len(scope) == 0 {
		sh.bad.Fprintln(sh.out, "Database search list not changed.")
		return
	}
	if all {
		scope = types.NewScope()
	}
	sh.sess.SetScope(scope)
	sh.good.Fprintf(sh.out, "Database search list updated to %s\n", scope)
}

func (sh *Shell) doDownload(ctx context.Context) {
	if sh.sess.Len() == 0 {
		sh.warn.Fprintln(sh.out, "There are no records in the live session to download.")
		return
	}
	sh.ret.RetrieveSummaries(ctx, sh.sess)

	total := sh.sess.TotalSize()
	if total > sh.opts.DownloadThreshold {
		q := fmt.Sprintf("You are requesting %.1f Mbp of sequence data. Continue", float64(total)/1e6)
		if !sh.confirm(q) {
			sh.aborted()
			return
		}
	}
	st := sh.ret.RetrieveSequences(ctx, sh.sess)
	sh.reportFailures()
	sh.good.Fprintf(sh.out, "Retrieved %.1f Mbp of sequence data (%s)\n", float64(total)/1e6, st)
}

func (sh *Shell) doFormat(args string) {
	if args == "" {
		if args = sh.ask("Which format would you like set", ""); args == "" {
			sh.aborted()
			return
		}
	}
	if err := sh.sess.SetFormat(args); err != nil {
		sh.printErr(err)
		fmt.Fprintf(sh.errOut, "Valid choices: %s\n", strings.Join(sh.sess.Formats(), ", "))
		return
	}
	sh.good.Fprintf(sh.out, "Output format changed to %s\n", sh.sess.Format())
}

func (sh *Shell) doShow(args string) {
	n := 0
	var columns []string
	for _, f := range strings.Fields(args) {
		if v, err := strconv.Atoi(f); err == nil {
			n = v
			continue
		}
		columns = append(columns, f)
	}

	count := sh.sess.Len()
	if n > 0 {
		count = min(n, count)
	}
	if count == 0 {
		sh.warn.Fprintln(sh.out, "No records to show.")
		return
	}
	if n == 0 && count > sh.opts.ShowThreshold {
		if !sh.confirm(fmt.Sprintf("%d records currently in buffer, show them all", sh.sess.Len())) {
			fmt.Fprintln(sh.out, "Include an integer value with 'show' to return a specific number of records.")
			return
		}
	}
	if !session.IsSummaryFormat(sh.sess.Format()) && len(sh.sess.Breakdown().Full) == 0 {
		sh.warn.Fprintf(sh.out, "No full records to show in '%s' format. Use the 'download' command first.\n", sh.sess.Format())
		return
	}

	opts := session.RenderOptions{N: n, Columns: columns, Color: sh.opts.Color}
	if err := sh.sess.Render(sh.out, sh.errOut, opts); err != nil {
		sh.printErr(err)
	}
}

func (sh *Shell) doFailures() {
	if len(sh.sess.Failures()) == 0 {
		sh.good.Fprintln(sh.out, "No failures to report")
		return
	}
	if err := sh.sess.RenderFailures(sh.out); err != nil {
		sh.printErr(err)
	}
}

func (sh *Shell) doWrite(args string) {
	path := args
	if path == "" {
		path = sh.lastPath
	}
	if path == "" {
		if path = sh.ask("Where would you like your records written", ""); path == "" {
			sh.aborted()
			return
		}
	}
	path, err := filepath.Abs(path)
	if err != nil {
		sh.printErr(err)
		return
	}
	if info, err := os.Stat(filepath.Dir(path)); err != nil || !info.IsDir() {
		sh.bad.Fprintln(sh.errOut, "Error: The specified directory does not exist. Please create it before continuing.")
		return
	}

	b := sh.sess.Breakdown()
	format := sh.sess.Format()
	if sh.sess.Len() == 0 {
		sh.warn.Fprintln(sh.out, "There are no records in the live session to write.")
		return
	}
	if !session.IsSummaryFormat(format) && len(b.Full) == 0 {
		sh.warn.Fprintf(sh.out, "No full records to write in '%s' format. Use the 'download' command to retrieve full records.\n", format)
		return
	}

	if _, err := os.Stat(path); err == nil {
		if !sh.confirm("File already exists, overwrite") {
			sh.aborted()
			return
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		sh.printErr(err)
		return
	}

	n, err := writeExport(path, sh.sess)
	if err != nil {
		sh.printErr(err)
		return
	}

	switch {
	case format == session.FormatIDs || format == session.FormatAccessions:
		sh.good.Fprintf(sh.out, "%d accessions ", n)
	case session.IsSummaryFormat(format):
		sh.good.Fprintf(sh.out, "%d summary records ", n)
	default:
		if nonFull := len(b.Partial) + len(b.AccessionOnly); nonFull > 0 {
			sh.bad.Fprintf(sh.out, "NOTE: There are %d partial records in the live session, and only full records can be written\n"+
				"      in '%s' format. Use the 'download' command to retrieve full records.\n", nonFull, format)
		}
		sh.good.Fprintf(sh.out, "%d %s records ", n, format)
	}
	sh.good.Fprintf(sh.out, "written to %s.\n", path)
	sh.lastSaved = sh.sess.Hash()
	sh.lastPath = path
}

func writeExport(path string, s *session.Session) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	n, err := s.Export(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("write %s: %w", path, err)
	}
	return n, nil
}

func (sh *Shell) doExit(ctx context.Context) {
	if sh.unsaved() && !sh.confirm("You have unsaved records, are you sure you want to quit") {
		sh.aborted()
		return
	}
	sh.finish(ctx)
	fmt.Fprintln(sh.out, "Goodbye")
}
