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

	"github.com/user/dbbuddy/internal/classify"
	"github.com/user/dbbuddy/internal/types"
)

const (
	ncbiBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	ncbiRetMax  = 500
	ncbiChunk   = 200
)

// Entrez database names.
const (
	dbNuccore = "nuccore"
	dbProtein = "protein"
)

// NCBIOptions configures an NCBI client.
type NCBIOptions struct {
	BaseURL string
	APIKey  string
	Email   string
	Timeout time.Duration
	Logger  zerolog.Logger
}

// NCBI queries GenBank and RefSeq through the Entrez E-utilities.
type NCBI struct {
	baseURL   string
	apiKey    string
	email     string
	transport *Transport
	log       zerolog.Logger
}

// NewNCBI creates an NCBI client. Entrez allows 3 requests per second, or
// 10 with an API key.
func NewNCBI(opts NCBIOptions) *NCBI {
	if opts.BaseURL == "" {
		opts.BaseURL = ncbiBaseURL
	}
	rps := 3
	if opts.APIKey != "" {
		rps = 10
	}
	return &NCBI{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		apiKey:    opts.APIKey,
		email:     opts.Email,
		transport: NewTransport(types.BackendNCBI, opts.Timeout, NewLimiter(rps), opts.Logger),
		log:       opts.Logger,
	}
}

func (n *NCBI) Backend() types.Backend { return types.BackendNCBI }

func (n *NCBI) endpoint(util string, params url.Values) string {
	params.Set("tool", "dbbuddy")
	if n.email != "" {
		params.Set("email", n.email)
	}
	if n.apiKey != "" {
		params.Set("api_key", n.apiKey)
	}
	return fmt.Sprintf("%s/%s.fcgi?%s", n.baseURL, util, params.Encode())
}

type esearchResponse struct {
	Result struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type esummaryDoc struct {
	UID              string `json:"uid"`
	Caption          string `json:"caption"`
	AccessionVersion string `json:"accessionversion"`
	Title            string `json:"title"`
	Organism         string `json:"organism"`
	SLen             int    `json:"slen"`
	TaxID            int    `json:"taxid"`
	Error            string `json:"error"`
}

func (n *NCBI) esearch(ctx context.Context, db, term string) ([]string, error) {
	params := url.Values{"db": {db}, "term": {term}, "retmode": {"json"}, "retmax": {strconv.Itoa(ncbiRetMax)}}
	body, _, err := n.transport.Get(ctx, n.endpoint("esearch", params), "application/json")
	if err != nil {
		return nil, err
	}
	var resp esearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse esearch: %w", err)
	}
	return resp.Result.IDList, nil
}

func (n *NCBI) esummary(ctx context.Context, db string, ids []string) ([]esummaryDoc, error) {
	params := url.Values{"db": {db}, "id": {strings.Join(ids, ",")}, "retmode": {"json"}}
	body, _, err := n.transport.Get(ctx, n.endpoint("esummary", params), "application/json")
	if err != nil {
		return nil, err
	}
	var resp struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse esummary: %w", err)
	}
	var uids []string
	if raw, ok := resp.Result["uids"]; ok {
		if err := json.Unmarshal(raw, &uids); err != nil {
			return nil, fmt.Errorf("parse esummary uids: %w", err)
		}
	}
	docs := make([]esummaryDoc, 0, len(uids))
	for _, uid := range uids {
		var doc esummaryDoc
		if err := json.Unmarshal(resp.Result[uid], &doc); err != nil {
			return nil, fmt.Errorf("parse esummary %s: %w", uid, err)
		}
		if doc.Error != "" || doc.AccessionVersion == "" {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func docRecord(db string, doc esummaryDoc, accession, term string) *types.Record {
	kind := types.KindNucleotide
	if db == dbProtein {
		kind = types.KindProtein
	}
	database := types.DBGenBank
	if d, _, ok := classify.Classify(doc.AccessionVersion); ok && d == types.DBRefSeq {
		database = types.DBRefSeq
	}
	return &types.Record{
		Accession: accession,
		Database:  database,
		Kind:      kind,
		Summary: types.NewSummary(
			"title", doc.Title,
			"organism", doc.Organism,
			"length", strconv.Itoa(doc.SLen),
			"taxid", strconv.Itoa(doc.TaxID),
			"gi", doc.UID,
		),
		Size:       doc.SLen,
		SearchTerm: term,
	}
}

// Search runs each term against both nucleotide and protein databases.
func (n *NCBI) Search(ctx context.Context, terms []string) types.Result {
	var res types.Result
	for _, term := range terms {
		for _, db := range []string{dbNuccore, dbProtein} {
			ids, err := n.esearch(ctx, db, term)
			if err != nil {
				res.Failures = append(res.Failures, FailureFor(term, err))
				continue
			}
			for _, ids := range chunk(ids, ncbiChunk) {
				docs, err := n.esummary(ctx, db, ids)
				if err != nil {
					res.Failures = append(res.Failures, FailureFor(term, err))
					continue
				}
				for _, doc := range docs {
					res.Records = append(res.Records, docRecord(db, doc, doc.AccessionVersion, term))
				}
			}
		}
	}
	return res
}

// entrezDB picks the database for an accession. Numeric GIs could be either
// and return both.
func entrezDB(accession string) []string {
	_, kind, _ := classify.Classify(accession)
	switch kind {
	case types.KindProtein:
		return []string{dbProtein}
	case types.KindNucleotide:
		return []string{dbNuccore}
	}
	return []string{dbNuccore, dbProtein}
}

// Summarize fetches document summaries. Numeric GIs are renamed to the
// accession they resolve to.
func (n *NCBI) Summarize(ctx context.Context, accessions []string) types.Result {
	var res types.Result
	pending := make(map[string][]string)
	for _, acc := range accessions {
		dbs := entrezDB(acc)
		pending[dbs[0]] = append(pending[dbs[0]], acc)
	}

	for _, db := range []string{dbNuccore, dbProtein} {
		for _, ids := range chunk(pending[db], ncbiChunk) {
			docs, err := n.esummary(ctx, db, ids)
			if err != nil {
				res.Failures = append(res.Failures, FailureFor(strings.Join(ids, ", "), err))
				continue
			}
			found := make(map[string]bool)
			for _, doc := range docs {
				acc, isGI := matchRequested(ids, doc)
				if acc == "" {
					continue
				}
				found[acc] = true
				rec := docRecord(db, doc, acc, "")
				if isGI {
					res.Renamed = ensureMap(res.Renamed)
					res.Renamed[acc] = doc.AccessionVersion
				}
				res.Records = append(res.Records, rec)
			}
			// GIs missing from nuccore may be protein GIs.
			if db == dbNuccore {
				for _, id := range ids {
					if !found[id] && len(entrezDB(id)) == 2 {
						pending[dbProtein] = append(pending[dbProtein], id)
					}
				}
			}
		}
	}
	return res
}

func matchRequested(ids []string, doc esummaryDoc) (string, bool) {
	for _, id := range ids {
		switch id {
		case doc.UID:
			return id, true
		case doc.Caption, doc.AccessionVersion:
			return id, false
		}
	}
	return "", false
}

// failedQueries returns every id named by failures, splitting the
// comma-separated queries chunked requests report under.
func failedQueries(failures []types.Failure) map[string]bool {
	out := make(map[string]bool)
	for _, f := range failures {
		for _, id := range strings.Split(f.Query, ", ") {
			out[id] = true
		}
	}
	return out
}

func ensureMap(m map[string]string) map[string]string {
	if m == nil {
		return make(map[string]string)
	}
	return m
}

// Fetch downloads GenBank flat files one accession at a time. A failed
// accession is recorded and the loop moves on.
func (n *NCBI) Fetch(ctx context.Context, accessions []string) types.Result {
	var res types.Result
	kinds := make(map[string]string)
	var gis []string
	for _, acc := range accessions {
		if dbs := entrezDB(acc); len(dbs) == 1 {
			kinds[acc] = dbs[0]
		} else {
			gis = append(gis, acc)
		}
	}

	var queue []string
	for _, acc := range accessions {
		if _, ok := kinds[acc]; ok {
			queue = append(queue, acc)
		}
	}
	if len(gis) > 0 {
		resolved := n.Summarize(ctx, gis)
		res.Failures = append(res.Failures, resolved.Failures...)
		for _, rec := range resolved.Records {
			db := dbNuccore
			if rec.Kind == types.KindProtein {
				db = dbProtein
			}
			target := rec.Accession
			if to, ok := resolved.Renamed[rec.Accession]; ok {
				res.Renamed = ensureMap(res.Renamed)
				res.Renamed[rec.Accession] = to
				target = to
			}
			kinds[target] = db
			queue = append(queue, target)
		}
		failed := failedQueries(resolved.Failures)
		for _, gi := range gis {
			if _, ok := resolved.Renamed[gi]; !ok && !failed[gi] {
				res.Failures = append(res.Failures, types.NewFailure(gi, "GI number did not resolve to an accession"))
			}
		}
	}

	for _, acc := range queue {
		db := kinds[acc]
		params := url.Values{"db": {db}, "id": {acc}, "rettype": {"gb"}, "retmode": {"text"}}
		body, _, err := n.transport.Get(ctx, n.endpoint("efetch", params), "text/plain")
		if err != nil {
			n.log.Warn().Str("accession", acc).Err(err).Msg("efetch failed")
			res.Failures = append(res.Failures, FailureFor(acc, err))
			continue
		}
		full := ParseGenBank(string(body))
		if db == dbProtein {
			full.Molecule = types.KindProtein
		}
		kind := types.KindNucleotide
		if db == dbProtein {
			kind = types.KindProtein
		}
		res.Records = append(res.Records, &types.Record{
			Accession: acc,
			Kind:      kind,
			Full:      full,
			Size:      len(full.Sequence),
		})
	}
	return res
}

// ParseGenBank extracts the identifying fields and sequence from a GenBank
// flat file, keeping the original text as the native representation.
func ParseGenBank(text string) *types.FullRecord {
	full := &types.FullRecord{Native: text, NativeFormat: "gb", Molecule: types.KindNucleotide, Annotations: types.NewSummary()}
	var seq strings.Builder
	var field string
	inOrigin := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if inOrigin {
			if strings.HasPrefix(line, "//") {
				break
			}
			for _, f := range strings.Fields(line) {
				if _, err := strconv.Atoi(f); err != nil {
					seq.WriteString(f)
				}
			}
			continue
		}
		if line == "" {
			continue
		}
		if line[0] != ' ' {
			key, rest, _ := strings.Cut(line, " ")
			field = key
			rest = strings.TrimSpace(rest)
			switch key {
			case "LOCUS":
				if f := strings.Fields(rest); len(f) > 0 {
					full.Name = f[0]
				}
				if strings.Contains(rest, " aa ") {
					full.Molecule = types.KindProtein
				}
			case "DEFINITION":
				full.Description = rest
			case "VERSION":
				if f := strings.Fields(rest); len(f) > 0 {
					full.ID = f[0]
				}
			case "ACCESSION":
				if full.ID == "" {
					if f := strings.Fields(rest); len(f) > 0 {
						full.ID = f[0]
					}
				}
			case "SOURCE":
				full.Annotations.Set("source", rest)
			case "ORIGIN":
				inOrigin = true
			}
			continue
		}
		if field == "DEFINITION" {
			full.Description += " " + strings.TrimSpace(line)
		}
	}
	full.Description = strings.TrimSuffix(full.Description, ".")
	full.Sequence = strings.ToUpper(seq.String())
	if full.ID == "" {
		full.ID = full.Name
	}
	return full
}
