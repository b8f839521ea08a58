package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/user/dbbuddy/internal/config"
	"github.com/user/dbbuddy/internal/logging"
	"github.com/user/dbbuddy/internal/orchestrator"
	"github.com/user/dbbuddy/internal/remote"
	"github.com/user/dbbuddy/internal/session"
	"github.com/user/dbbuddy/internal/shell"
	"github.com/user/dbbuddy/internal/state"
	"github.com/user/dbbuddy/internal/types"
)

type runFlags struct {
	guess      bool
	accessions bool
	sequences  bool
	live       bool
	quiet      bool
	test       bool
	outFormat  string
	database   string
	resume     string
}

var flags runFlags

func bindRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolVarP(&flags.guess, "guess-database", "g", false, "list the database each accession belongs to, then exit")
	f.BoolVarP(&flags.accessions, "retrieve-accessions", "a", false, "search and print matching accessions")
	f.BoolVarP(&flags.sequences, "retrieve-sequences", "s", false, "search and print full sequence records")
	f.BoolVarP(&flags.live, "live-shell", "l", false, "open the live shell (default)")
	f.BoolVarP(&flags.quiet, "quiet", "q", false, "suppress stderr messages")
	f.BoolVarP(&flags.test, "test", "t", false, "run everything but print a marker instead of output")
	f.StringVarP(&flags.outFormat, "out-format", "o", "", "output format (ids, accessions, summary, full_summary, fasta, gb, raw)")
	f.StringVarP(&flags.database, "database", "d", "all", "restrict searches to a database (all, genbank, gb, refseq, uniprot, ensembl)")
	f.StringVar(&flags.resume, "resume", "", "reopen a stored live session by id (see 'dbbuddy session list')")
}

// runOptions resolves the flags against the config into per-run options.
func runOptions(cfg *config.Config, fl runFlags) (types.RunOptions, error) {
	dbs, err := types.ParseDatabase(fl.database)
	if err != nil {
		return types.RunOptions{}, err
	}
	opts := types.RunOptions{
		Quiet:     fl.quiet,
		TestMode:  fl.test,
		OutFormat: fl.outFormat,
		Scope:     types.NewScope(dbs...),
	}
	if opts.OutFormat == "" {
		switch {
		case fl.accessions:
			opts.OutFormat = session.FormatIDs
		case fl.sequences:
			opts.OutFormat = "gb"
		default:
			opts.OutFormat = cfg.OutFormat
		}
	}
	return opts, nil
}

// buildSession makes one session per argument and merges them. With no
// arguments, piped stdin is the input.
func buildSession(args []string, stdin io.Reader, opts types.RunOptions, log zerolog.Logger) (*session.Session, error) {
	sessOpts := []session.Option{
		session.WithScope(opts.Scope),
		session.WithFormat(opts.OutFormat),
		session.WithLogger(log),
	}
	switch len(args) {
	case 0:
		if stdin == nil || isTerminal(stdin) {
			return session.New(nil, sessOpts...)
		}
		return session.New(stdin, sessOpts...)
	case 1:
		return session.New(args[0], sessOpts...)
	}
	parts := make([]*session.Session, 0, len(args))
	for _, arg := range args {
		s, err := session.New(arg, sessOpts...)
		if err != nil {
			return nil, err
		}
		parts = append(parts, s)
	}
	return session.New(parts, sessOpts...)
}

// openSession resumes a stored session when --resume is given, merging any
// new input into it, and otherwise builds one from the arguments.
func openSession(cmd *cobra.Command, store *state.Store, args []string, opts types.RunOptions, log zerolog.Logger) (*session.Session, error) {
	if flags.resume == "" {
		return buildSession(args, cmd.InOrStdin(), opts, log)
	}

	snap, err := store.Load(cmd.Context(), types.SessionID(flags.resume))
	if err != nil {
		return nil, err
	}
	var resumeOpts []session.Option
	resumeOpts = append(resumeOpts, session.WithLogger(log))
	if cmd.Flags().Changed("out-format") {
		resumeOpts = append(resumeOpts, session.WithFormat(opts.OutFormat))
	}
	if cmd.Flags().Changed("database") {
		resumeOpts = append(resumeOpts, session.WithScope(opts.Scope))
	}
	sess, err := session.FromSnapshot(snap, resumeOpts...)
	if err != nil {
		return nil, err
	}
	if len(args) > 0 {
		extra, err := buildSession(args, nil, opts, log)
		if err != nil {
			return nil, err
		}
		sess.Merge(extra)
	}
	return sess, nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func buildOrchestrator(cfg *config.Config, log zerolog.Logger) *orchestrator.Orchestrator {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	return orchestrator.New(log, time.Duration(cfg.CacheTTLSeconds)*time.Second,
		remote.NewUniProt(remote.UniProtOptions{
			BaseURL:       cfg.UniProt.BaseURL,
			MaxConcurrent: cfg.UniProt.MaxConcurrent,
			Timeout:       timeout,
			Logger:        log,
		}),
		remote.NewNCBI(remote.NCBIOptions{
			BaseURL: cfg.NCBI.BaseURL,
			APIKey:  cfg.NCBI.APIKey,
			Email:   cfg.NCBI.Email,
			Timeout: timeout,
			Logger:  log,
		}),
		remote.NewEnsembl(remote.EnsemblOptions{
			BaseURL:    cfg.Ensembl.BaseURL,
			ReqsPerSec: cfg.Ensembl.ReqsPerSec,
			Species:    cfg.Ensembl.Species,
			Timeout:    timeout,
			Logger:     log,
		}),
	)
}

func runRoot(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	log := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile, Quiet: flags.quiet})

	opts, err := runOptions(cfg, flags)
	if err != nil {
		return err
	}
	store := state.NewStore(cfg.DataDir)
	sess, err := openSession(cmd, store, args, opts, log)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	if opts.Quiet {
		errOut = io.Discard
	}

	if flags.guess {
		if opts.TestMode {
			_, err := fmt.Fprint(errOut, "*** Test passed ***\n")
			return err
		}
		_, err := io.WriteString(out, guessReport(sess))
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	orch := buildOrchestrator(cfg, log)

	render := session.RenderOptions{Test: opts.TestMode, Color: !opts.TestMode && isTerminal(os.Stdout)}
	switch {
	case flags.accessions:
		st := orch.RetrieveAccessions(ctx, sess)
		log.Info().Str("session_id", string(sess.ID)).Str("stats", st.String()).Msg("retrieved accessions")
		return sess.Render(out, errOut, render)

	case flags.sequences:
		orch.RetrieveAccessions(ctx, sess)
		st := orch.RetrieveSequences(ctx, sess)
		log.Info().Str("session_id", string(sess.ID)).Str("stats", st.String()).Msg("retrieved sequences")
		return sess.Render(out, errOut, render)
	}

	if opts.TestMode {
		_, err := fmt.Fprint(errOut, "*** Test passed ***\n")
		return err
	}
	sh := shell.New(cmd.InOrStdin(), out, errOut, sess, orch, shell.Options{
		DownloadThreshold: cfg.DownloadThreshold,
		ShowThreshold:     cfg.ShowThreshold,
		Color:             isTerminal(os.Stdout),
		Logger:            log,
		Snapshots:         store,
	})
	return sh.Run(ctx)
}

// guessReport lists each accession with its database, then the search terms.
func guessReport(s *session.Session) string {
	var sb strings.Builder
	recs := s.Active()
	if len(recs) > 0 {
		sb.WriteString("# Accession\tDatabase\n")
		for _, rec := range recs {
			fmt.Fprintf(&sb, "%s\t%s\n", rec.Accession, rec.Database)
		}
		sb.WriteString("\n")
	}
	if terms := s.SearchTerms(); len(terms) > 0 {
		sb.WriteString("# Search terms\n")
		for _, term := range terms {
			sb.WriteString(term + "\n")
		}
	}
	if sb.Len() == 0 {
		sb.WriteString("Nothing to return\n")
	}
	return sb.String()
}
