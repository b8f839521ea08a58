package remote

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/TuftsBCB/io/fasta"
	"github.com/rs/zerolog"

	"github.com/user/dbbuddy/internal/types"
)

const (
	uniprotBaseURL = "https://rest.uniprot.org/uniprotkb"
	uniprotFields  = "accession,id,length,organism_id,organism_name,protein_name,cc_function"
	uniprotChunk   = 100
)

// uniprotColumns are the summary keys, in the order of uniprotFields after
// the accession.
var uniprotColumns = []string{"entry_name", "length", "organism-id", "organism", "protein_names", "comments"}

// UniProtOptions configures a UniProt client.
type UniProtOptions struct {
	BaseURL       string
	MaxConcurrent int
	Timeout       time.Duration
	Logger        zerolog.Logger
}

// UniProt queries the UniProtKB REST API.
type UniProt struct {
	baseURL   string
	transport *Transport
	pool      *Pool
	log       zerolog.Logger
}

// NewUniProt creates a UniProt client.
func NewUniProt(opts UniProtOptions) *UniProt {
	if opts.BaseURL == "" {
		opts.BaseURL = uniprotBaseURL
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 10
	}
	return &UniProt{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		transport: NewTransport(types.BackendUniProt, opts.Timeout, nil, opts.Logger),
		pool:      NewPool(int64(opts.MaxConcurrent)),
		log:       opts.Logger,
	}
}

func (u *UniProt) Backend() types.Backend { return types.BackendUniProt }

func (u *UniProt) searchURL(query, format string, extra url.Values) string {
	q := url.Values{}
	q.Set("query", query)
	q.Set("format", format)
	for k, vs := range extra {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	return u.baseURL + "/search?" + q.Encode()
}

// CountHits returns the number of entries matching any of terms.
func (u *UniProt) CountHits(ctx context.Context, terms []string) (int, error) {
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = "(" + t + ")"
	}
	body, header, err := u.transport.Get(ctx, u.searchURL(strings.Join(parts, " OR "), "list", url.Values{"size": {"1"}}), "text/plain")
	if err != nil {
		return 0, err
	}
	if total := header.Get("X-Total-Results"); total != "" {
		if n, err := strconv.Atoi(total); err == nil {
			return n, nil
		}
	}
	return len(strings.Fields(string(body))), nil
}

// Search checks all terms at once and, if anything matches, runs one
// summary query per term on the worker pool.
func (u *UniProt) Search(ctx context.Context, terms []string) types.Result {
	if len(terms) == 0 {
		return types.Result{}
	}
	hits, err := u.CountHits(ctx, terms)
	if err != nil {
		return types.Result{Failures: []types.Failure{FailureFor(strings.Join(terms, " OR "), err)}}
	}
	if hits == 0 {
		u.log.Debug().Strs("terms", terms).Msg("uniprot combined query found no hits")
		return types.Result{}
	}

	var batch Batch
	u.pool.RunItems(ctx, terms, func(ctx context.Context, i int) {
		term := terms[i]
		recs, err := u.summaries(ctx, term, term)
		if err != nil {
			batch.AddFailure(FailureFor(term, err))
			return
		}
		batch.AddRecords(recs...)
	}, u.skipped(&batch))
	return batch.Result()
}

// Summarize fetches summary rows for known accessions.
func (u *UniProt) Summarize(ctx context.Context, accessions []string) types.Result {
	chunks := chunk(accessions, uniprotChunk)
	var batch Batch
	u.pool.RunItems(ctx, chunkNames(chunks), func(ctx context.Context, i int) {
		query := accessionQuery(chunks[i])
		recs, err := u.summaries(ctx, query, "")
		if err != nil {
			batch.AddFailure(FailureFor(strings.Join(chunks[i], ", "), err))
			return
		}
		batch.AddRecords(recs...)
	}, u.skipped(&batch))
	return batch.Result()
}

// Fetch retrieves FASTA records for known accessions.
func (u *UniProt) Fetch(ctx context.Context, accessions []string) types.Result {
	chunks := chunk(accessions, uniprotChunk)
	var batch Batch
	u.pool.RunItems(ctx, chunkNames(chunks), func(ctx context.Context, i int) {
		body, _, err := u.transport.Get(ctx, u.searchURL(accessionQuery(chunks[i]), "fasta", nil), "text/plain")
		if err != nil {
			batch.AddFailure(FailureFor(strings.Join(chunks[i], ", "), err))
			return
		}
		fulls, err := parseUniProtFASTA(body)
		if err != nil {
			batch.AddFailure(FailureFor(strings.Join(chunks[i], ", "), err))
			return
		}
		for _, full := range fulls {
			batch.AddRecords(&types.Record{
				Accession: full.ID,
				Database:  types.DBUniProt,
				Kind:      types.KindProtein,
				Full:      full,
				Size:      len(full.Sequence),
			})
		}
	}, u.skipped(&batch))
	return batch.Result()
}

// skipped records a failure for work the pool never started.
func (u *UniProt) skipped(batch *Batch) func(string, error) {
	return func(item string, err error) {
		u.log.Warn().Str("query", item).Err(err).Msg("uniprot request not started")
		batch.AddFailure(FailureFor(item, err))
	}
}

func (u *UniProt) summaries(ctx context.Context, query, term string) ([]*types.Record, error) {
	body, _, err := u.transport.Get(ctx, u.searchURL(query, "tsv", url.Values{"fields": {uniprotFields}, "size": {"500"}}), "text/plain")
	if err != nil {
		return nil, err
	}
	return parseUniProtTSV(body, term)
}

func accessionQuery(accessions []string) string {
	parts := make([]string, len(accessions))
	for i, a := range accessions {
		parts[i] = "accession:" + a
	}
	return strings.Join(parts, " OR ")
}

// parseUniProtTSV reads a header line followed by rows in uniprotFields
// order. Every record carries term as its provenance.
func parseUniProtTSV(body []byte, term string) ([]*types.Record, error) {
	var out []*types.Record
	sc := bufio.NewScanner(bytes.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	header := true
	for sc.Scan() {
		line := sc.Text()
		if header {
			header = false
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		cols := strings.Split(line, "\t")
		rec := &types.Record{
			Accession:  cols[0],
			Database:   types.DBUniProt,
			Kind:       types.KindProtein,
			Summary:    types.NewSummary(),
			SearchTerm: term,
		}
		for i, key := range uniprotColumns {
			v := ""
			if i+1 < len(cols) {
				v = strings.TrimSpace(cols[i+1])
			}
			if key == "comments" {
				v = strings.TrimPrefix(v, "FUNCTION: ")
			}
			rec.Summary.Set(key, v)
		}
		length, _ := rec.Summary.Get("length")
		if n, err := strconv.Atoi(length); err == nil {
			rec.Size = n
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("parse uniprot tsv: %w", err)
	}
	return out, nil
}

// parseUniProtFASTA splits a multi-record FASTA body. Headers look like
// ">sp|P12345|AATM_RABIT Aspartate aminotransferase OS=...".
func parseUniProtFASTA(body []byte) ([]*types.FullRecord, error) {
	seqs, err := fasta.NewReader(bytes.NewReader(body)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse uniprot fasta: %w", err)
	}
	out := make([]*types.FullRecord, 0, len(seqs))
	for _, s := range seqs {
		id, desc, _ := strings.Cut(s.Name, " ")
		full := &types.FullRecord{
			ID:           id,
			Description:  desc,
			Molecule:     types.KindProtein,
			Sequence:     string(s.Residues),
			Native:       fasta.SequenceFasta(s, 60) + "\n",
			NativeFormat: "fasta",
		}
		if parts := strings.Split(id, "|"); len(parts) == 3 {
			full.ID, full.Name = parts[1], parts[2]
		}
		out = append(out, full)
	}
	return out, nil
}

// chunkNames gives each chunk the name its failures are reported under.
func chunkNames(chunks [][]string) []string {
	names := make([]string, len(chunks))
	for i, c := range chunks {
		names[i] = strings.Join(c, ", ")
	}
	return names
}

func chunk(items []string, size int) [][]string {
	var out [][]string
	for len(items) > size {
		out = append(out, items[:size])
		items = items[size:]
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}
