package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/user/dbbuddy/internal/types"
)

const ensemblBaseURL = "https://rest.ensembl.org"

// EnsemblOptions configures an Ensembl client.
type EnsemblOptions struct {
	BaseURL    string
	ReqsPerSec int
	Species    string
	Timeout    time.Duration
	Logger     zerolog.Logger
}

// Ensembl queries the Ensembl REST API under a per-second request budget.
type Ensembl struct {
	baseURL   string
	species   string
	transport *Transport
	log       zerolog.Logger
}

// NewEnsembl creates an Ensembl client. The public server allows 15
// requests per second.
func NewEnsembl(opts EnsemblOptions) *Ensembl {
	if opts.BaseURL == "" {
		opts.BaseURL = ensemblBaseURL
	}
	if opts.ReqsPerSec <= 0 {
		opts.ReqsPerSec = 15
	}
	if opts.Species == "" {
		opts.Species = "homo_sapiens"
	}
	return &Ensembl{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		species:   opts.Species,
		transport: NewTransport(types.BackendEnsembl, opts.Timeout, NewLimiter(opts.ReqsPerSec), opts.Logger),
		log:       opts.Logger,
	}
}

func (e *Ensembl) Backend() types.Backend { return types.BackendEnsembl }

type ensemblLookup struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	Species     string `json:"species"`
	Biotype     string `json:"biotype"`
	ObjectType  string `json:"object_type"`
	Start       int    `json:"start"`
	End         int    `json:"end"`
	Length      int    `json:"length"`
	Version     int    `json:"version"`
}

func (l ensemblLookup) size() int {
	if l.Length > 0 {
		return l.Length
	}
	if l.End >= l.Start && l.End > 0 {
		return l.End - l.Start + 1
	}
	return 0
}

func (l ensemblLookup) record(term string) *types.Record {
	kind := types.KindNucleotide
	if l.ObjectType == "Translation" {
		kind = types.KindProtein
	}
	return &types.Record{
		Accession: l.ID,
		Database:  types.DBEnsembl,
		Kind:      kind,
		Summary: types.NewSummary(
			"display_name", l.DisplayName,
			"description", l.Description,
			"species", l.Species,
			"biotype", l.Biotype,
			"length", strconv.Itoa(l.size()),
			"version", strconv.Itoa(l.Version),
		),
		Size:       l.size(),
		SearchTerm: term,
	}
}

func (e *Ensembl) get(ctx context.Context, path string, out any) ([]byte, error) {
	u := e.baseURL + path + "?" + url.Values{"content-type": {"application/json"}}.Encode()
	body, _, err := e.transport.Get(ctx, u, "application/json")
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return nil, fmt.Errorf("parse ensembl response: %w", err)
	}
	return body, nil
}

// Search looks up each term as a gene symbol in the configured species.
func (e *Ensembl) Search(ctx context.Context, terms []string) types.Result {
	var res types.Result
	for _, term := range terms {
		var l ensemblLookup
		if _, err := e.get(ctx, "/lookup/symbol/"+url.PathEscape(e.species)+"/"+url.PathEscape(term), &l); err != nil {
			res.Failures = append(res.Failures, FailureFor(term, err))
			continue
		}
		res.Records = append(res.Records, l.record(term))
	}
	return res
}

// Summarize looks up each stable id.
func (e *Ensembl) Summarize(ctx context.Context, accessions []string) types.Result {
	var res types.Result
	for _, acc := range accessions {
		var l ensemblLookup
		if _, err := e.get(ctx, "/lookup/id/"+url.PathEscape(acc), &l); err != nil {
			res.Failures = append(res.Failures, FailureFor(acc, err))
			continue
		}
		rec := l.record("")
		rec.Accession = acc
		res.Records = append(res.Records, rec)
	}
	return res
}

type ensemblSequence struct {
	ID       string `json:"id"`
	Desc     string `json:"desc"`
	Seq      string `json:"seq"`
	Molecule string `json:"molecule"`
	Version  int    `json:"version"`
}

// Fetch downloads sequences one stable id at a time.
func (e *Ensembl) Fetch(ctx context.Context, accessions []string) types.Result {
	var res types.Result
	for _, acc := range accessions {
		var s ensemblSequence
		body, err := e.get(ctx, "/sequence/id/"+url.PathEscape(acc), &s)
		if err != nil {
			e.log.Warn().Str("accession", acc).Err(err).Msg("sequence fetch failed")
			res.Failures = append(res.Failures, FailureFor(acc, err))
			continue
		}
		kind := types.KindNucleotide
		if s.Molecule == "protein" {
			kind = types.KindProtein
		}
		full := &types.FullRecord{
			ID:           acc,
			Name:         s.ID,
			Description:  s.Desc,
			Molecule:     kind,
			Sequence:     s.Seq,
			Annotations:  types.NewSummary("version", strconv.Itoa(s.Version)),
			Native:       string(body),
			NativeFormat: "json",
		}
		res.Records = append(res.Records, &types.Record{Accession: acc, Kind: kind, Full: full, Size: len(s.Seq)})
	}
	return res
}
