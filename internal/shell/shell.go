// Package shell implements the live session: a line-oriented command loop
// over one Session.
package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/user/dbbuddy/internal/orchestrator"
	"github.com/user/dbbuddy/internal/session"
	"github.com/user/dbbuddy/internal/state"
)

// Retriever is the part of the orchestrator the shell drives.
type Retriever interface {
	RetrieveAccessions(ctx context.Context, s *session.Session) orchestrator.Stats
	RetrieveSummaries(ctx context.Context, s *session.Session) orchestrator.Stats
	RetrieveSequences(ctx context.Context, s *session.Session) orchestrator.Stats
}

// Snapshots stores the session when the shell ends so it can be resumed.
type Snapshots interface {
	Save(ctx context.Context, snap *state.Snapshot) error
}

type Options struct {
	// DownloadThreshold is the total sequence length above which download
	// asks for confirmation.
	DownloadThreshold int
	// ShowThreshold is the record count above which an unbounded show asks
	// for confirmation.
	ShowThreshold int
	Color         bool
	Logger        zerolog.Logger
	// Snapshots is optional.
	Snapshots Snapshots
}

// Shell reads commands from in and applies them to a session.
type Shell struct {
	in     *bufio.Scanner
	out    io.Writer
	errOut io.Writer
	sess   *session.Session
	ret    Retriever
	opts   Options
	log    zerolog.Logger

	lastSaved string // session hash at the last successful write
	lastPath  string
	done      bool

	bold, info, good, warn, bad *color.Color
}

func New(in io.Reader, out, errOut io.Writer, sess *session.Session, ret Retriever, opts Options) *Shell {
	if opts.DownloadThreshold <= 0 {
		opts.DownloadThreshold = 5000000
	}
	if opts.ShowThreshold <= 0 {
		opts.ShowThreshold = 100
	}
	sh := &Shell{
		in:     bufio.NewScanner(in),
		out:    out,
		errOut: errOut,
		sess:   sess,
		ret:    ret,
		opts:   opts,
		log:    opts.Logger.With().Str("component", "shell").Logger(),
		bold:   color.New(color.Bold),
		info:   color.New(color.FgHiBlue),
		good:   color.New(color.FgHiGreen),
		warn:   color.New(color.FgHiYellow),
		bad:    color.New(color.FgHiRed),
	}
	sh.in.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for _, c := range []*color.Color{sh.bold, sh.info, sh.good, sh.warn, sh.bad} {
		if opts.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return sh
}

// Run retrieves records for the initial input, then reads and executes
// commands until exit, quit or end of input.
func (sh *Shell) Run(ctx context.Context) error {
	sh.welcome()
	sh.prime(ctx)

	for !sh.done {
		if err := ctx.Err(); err != nil {
			return err
		}
		sh.bold.Fprint(sh.out, "DbBuddy> ")
		if !sh.in.Scan() {
			sh.endOfInput(ctx)
			break
		}
		sh.Exec(ctx, sh.in.Text())
	}
	return sh.in.Err()
}

func (sh *Shell) welcome() {
	fmt.Fprintln(sh.out)
	sh.bold.Fprintln(sh.out, "Welcome to the DatabaseBuddy live shell")
	fmt.Fprintln(sh.out)
	fmt.Fprintln(sh.out, "Type 'help' for a list of available commands or 'help <command>' for further details.")
	fmt.Fprintln(sh.out, "To end the session, use the 'quit' command.")
	fmt.Fprintln(sh.out)
}

func (sh *Shell) prime(ctx context.Context) {
	if sh.sess.Len() > 0 {
		st := sh.ret.RetrieveSequences(ctx, sh.sess)
		sh.log.Debug().Str("stats", st.String()).Msg("initial sequences")
	}
	if len(sh.sess.SearchTerms()) > 0 {
		st := sh.ret.RetrieveAccessions(ctx, sh.sess)
		sh.log.Debug().Str("stats", st.String()).Msg("initial search")
	}
	if sh.sess.Len() > 0 || len(sh.sess.Failures()) > 0 {
		sh.reportFailures()
		sh.printStatus()
	}
}

func (sh *Shell) endOfInput(ctx context.Context) {
	fmt.Fprintln(sh.out)
	if sh.unsaved() {
		sh.warn.Fprintln(sh.errOut, "End of input, unsaved records were discarded.")
	}
	sh.finish(ctx)
}

// finish ends the loop, storing a snapshot when a store is configured and
// the session holds anything worth resuming.
func (sh *Shell) finish(ctx context.Context) {
	sh.done = true
	if sh.opts.Snapshots == nil || sh.sess.Len()+sh.sess.RecycledLen() == 0 {
		return
	}
	if err := sh.opts.Snapshots.Save(ctx, sh.sess.Snapshot()); err != nil {
		sh.log.Warn().Err(err).Msg("store session snapshot")
		sh.bad.Fprintf(sh.errOut, "Could not store the live session: %v\n", err)
		return
	}
	sh.info.Fprintf(sh.out, "Live session stored, resume it with 'dbbuddy --resume %s'\n", sh.sess.ID)
}

// Exec runs a single command line.
func (sh *Shell) Exec(ctx context.Context, line string) {
	name, args := splitCommand(line)
	if name == "" {
		return
	}
	sh.log.Debug().Str("command", name).Str("args", args).Msg("exec")

	switch name {
	case "search":
		sh.doSearch(ctx, args)
	case "filter":
		sh.doFilter(args)
	case "restore":
		sh.doRestore(args)
	case "reset":
		sh.doReset()
	case "clear_all":
		sh.doClearAll()
	case "database":
		sh.doDatabase(args)
	case "download":
		sh.doDownload(ctx)
	case "format":
		sh.doFormat(args)
	case "show":
		sh.doShow(args)
	case "status":
		sh.printStatus()
	case "failures":
		sh.doFailures()
	case "write", "save":
		sh.doWrite(args)
	case "exit", "quit":
		sh.doExit(ctx)
	case "help", "?":
		sh.doHelp(args)
	default:
		sh.bad.Fprintf(sh.errOut, "*** Unknown syntax: %s\n", strings.TrimSpace(line))
	}
}

// Done reports whether the loop has ended.
func (sh *Shell) Done() bool { return sh.done }

func splitCommand(line string) (name, args string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", ""
	}
	name, args, _ = strings.Cut(line, " ")
	return strings.ToLower(name), strings.TrimSpace(args)
}

// splitPatterns breaks a filter argument into its quoted parts. Single
// quoted and double quoted lists are both accepted; an unquoted argument is
// one pattern.
func splitPatterns(line string) []string {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	quote := `"`
	if line[0] == '\'' {
		quote = "'"
	}
	line = strings.Trim(line, quote)
	var out []string
	for _, p := range strings.Split(line, quote+" "+quote) {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ask prints label and returns the trimmed reply, or def on empty input or
// end of input.
func (sh *Shell) ask(label, def string) string {
	if def != "" {
		sh.bad.Fprintf(sh.out, "%s [%s]: ", label, def)
	} else {
		sh.bad.Fprintf(sh.out, "%s: ", label)
	}
	if sh.in.Scan() {
		if input := strings.TrimSpace(sh.in.Text()); input != "" {
			return input
		}
	}
	return def
}

// confirm asks a yes/no question. Anything but y or yes, including end of
// input, is a no.
func (sh *Shell) confirm(question string) bool {
	sh.bad.Fprintf(sh.out, "%s (y/[n])? ", question)
	if !sh.in.Scan() {
		fmt.Fprintln(sh.out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(sh.in.Text())) {
	case "y", "yes":
		return true
	}
	return false
}

func (sh *Shell) aborted() {
	sh.bad.Fprintln(sh.out, "Aborted...")
}

func (sh *Shell) unsaved() bool {
	return sh.sess.Len() > 0 && sh.sess.Hash() != sh.lastSaved
}

func (sh *Shell) reportFailures() {
	if err := sh.sess.RenderFailures(sh.errOut); err != nil {
		sh.log.Warn().Err(err).Msg("render failures")
	}
}
