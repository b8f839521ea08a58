package orchestrator

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/user/dbbuddy/internal/session"
	"github.com/user/dbbuddy/internal/types"
)

// Orchestrator fans retrieval out to the backends a session's scope
// selects and merges what comes back into the session. Backends run
// concurrently; only the merge step, after all of them finish, touches the
// session.
type Orchestrator struct {
	clients map[types.Backend]types.Client
	cache   *cache.Cache
	log     zerolog.Logger
}

// New creates an Orchestrator over clients. Search results are cached per
// backend and term for cacheTTL; zero disables caching.
func New(log zerolog.Logger, cacheTTL time.Duration, clients ...types.Client) *Orchestrator {
	o := &Orchestrator{clients: make(map[types.Backend]types.Client), log: log}
	if cacheTTL > 0 {
		o.cache = cache.New(cacheTTL, 2*cacheTTL)
	}
	for _, c := range clients {
		o.Register(c)
	}
	return o
}

// Register adds or replaces the client for its backend.
func (o *Orchestrator) Register(c types.Client) {
	o.clients[c.Backend()] = c
}

// Client returns the client registered for b.
func (o *Orchestrator) Client(b types.Backend) (types.Client, bool) {
	c, ok := o.clients[b]
	return c, ok
}

// inScope returns registered clients the scope selects, in dispatch order.
func (o *Orchestrator) inScope(scope types.Scope) []types.Client {
	var out []types.Client
	for _, b := range types.Backends {
		if c, ok := o.clients[b]; ok && scope.Includes(b) {
			out = append(out, c)
		}
	}
	return out
}

// Stats counts what one retrieval changed in the session.
type Stats struct {
	Added    int
	Updated  int
	Failures int
}

func (s Stats) String() string {
	return fmt.Sprintf("%d added, %d updated, %d failures", s.Added, s.Updated, s.Failures)
}

// RetrieveAccessions runs the session's search terms against every backend
// in scope and adds the records found. Accessions already in the session
// are left untouched.
func (o *Orchestrator) RetrieveAccessions(ctx context.Context, s *session.Session) Stats {
	terms := s.SearchTerms()
	if len(terms) == 0 {
		return Stats{}
	}
	var jobs []*job
	for _, c := range o.inScope(s.Scope()) {
		jobs = append(jobs, &job{client: c, op: opSearch, items: terms})
	}
	o.run(ctx, jobs, s.Logger())

	var st Stats
	for _, j := range jobs {
		st.Failures += mergeFailures(s, j.result)
		for _, rec := range j.result.Records {
			if s.Add(rec) {
				st.Added++
			}
		}
	}
	return st
}

// RetrieveSummaries fetches summaries for active records that lack one.
func (o *Orchestrator) RetrieveSummaries(ctx context.Context, s *session.Session) Stats {
	return o.retrieve(ctx, s, opSummarize, func(r *types.Record) bool { return r.State() == types.StateAccessionOnly })
}

// RetrieveSequences fetches full records for active records that lack one.
func (o *Orchestrator) RetrieveSequences(ctx context.Context, s *session.Session) Stats {
	return o.retrieve(ctx, s, opFetch, func(r *types.Record) bool { return r.State() != types.StateFull })
}

func (o *Orchestrator) retrieve(ctx context.Context, s *session.Session, op operation, want func(*types.Record) bool) Stats {
	scope := s.Scope()
	byBackend := make(map[types.Backend][]string)
	for _, rec := range s.Active() {
		b := rec.Database.Backend()
		if b == "" || !scope.Includes(b) || !want(rec) {
			continue
		}
		byBackend[b] = append(byBackend[b], rec.Accession)
	}

	var jobs []*job
	for _, c := range o.inScope(scope) {
		if items := byBackend[c.Backend()]; len(items) > 0 {
			jobs = append(jobs, &job{client: c, op: op, items: items})
		}
	}
	o.run(ctx, jobs, s.Logger())

	var st Stats
	for _, j := range jobs {
		st.Failures += mergeFailures(s, j.result)
		renames := make([]string, 0, len(j.result.Renamed))
		for from := range j.result.Renamed {
			renames = append(renames, from)
		}
		sort.Strings(renames)
		for _, from := range renames {
			s.Rekey(from, j.result.Renamed[from])
		}
		for _, rec := range j.result.Records {
			// A record may still carry the numeric id it was requested by.
			if to, ok := j.result.Renamed[rec.Accession]; ok {
				rec.Accession = to
			}
			if s.Has(rec.Accession) {
				st.Updated++
			} else {
				st.Added++
			}
			s.Upsert(rec)
		}
	}
	return st
}

func mergeFailures(s *session.Session, res types.Result) int {
	n := 0
	for _, f := range res.Failures {
		if s.AddFailure(f) {
			n++
		}
	}
	return n
}

// run executes every job concurrently and waits for all of them. Each job
// writes only its own result.
func (o *Orchestrator) run(ctx context.Context, jobs []*job, log zerolog.Logger) {
	g, gctx := errgroup.WithContext(ctx)
	for _, j := range jobs {
		g.Go(func() error {
			j.started = time.Now()
			log.Info().Str("backend", string(j.client.Backend())).Str("op", string(j.op)).Int("items", len(j.items)).Msg("retrieving")
			j.result = o.execute(gctx, j)
			log.Debug().
				Str("backend", string(j.client.Backend())).
				Str("op", string(j.op)).
				Int("records", len(j.result.Records)).
				Int("failures", len(j.result.Failures)).
				Dur("elapsed", time.Since(j.started)).
				Msg("retrieved")
			return nil
		})
	}
	_ = g.Wait()
}

func (o *Orchestrator) execute(ctx context.Context, j *job) types.Result {
	switch j.op {
	case opSummarize:
		return j.client.Summarize(ctx, j.items)
	case opFetch:
		return j.client.Fetch(ctx, j.items)
	}
	return o.search(ctx, j.client, j.items)
}

// search serves cached terms from the cache and queries the rest.
func (o *Orchestrator) search(ctx context.Context, c types.Client, terms []string) types.Result {
	if o.cache == nil {
		return c.Search(ctx, terms)
	}
	var res types.Result
	var misses []string
	for _, term := range terms {
		if v, ok := o.cache.Get(cacheKey(c.Backend(), term)); ok {
			res.Records = append(res.Records, cloneAll(v.([]*types.Record))...)
			continue
		}
		misses = append(misses, term)
	}
	if len(misses) == 0 {
		return res
	}

	fresh := c.Search(ctx, misses)
	res.Merge(fresh)

	failed := make(map[string]bool)
	for _, f := range fresh.Failures {
		failed[f.Query] = true
	}
	// A failure that names no single term, like a combined lookup, says
	// nothing about which terms really had no hits.
	for q := range failed {
		if !slices.Contains(misses, q) {
			o.log.Debug().Str("backend", string(c.Backend())).Str("query", q).Msg("search not cached")
			return res
		}
	}
	byTerm := make(map[string][]*types.Record)
	for _, rec := range fresh.Records {
		byTerm[rec.SearchTerm] = append(byTerm[rec.SearchTerm], rec)
	}
	for _, term := range misses {
		if !failed[term] {
			o.cache.SetDefault(cacheKey(c.Backend(), term), cloneAll(byTerm[term]))
		}
	}
	return res
}

func cacheKey(b types.Backend, term string) string {
	return string(b) + "|" + term
}

func cloneAll(recs []*types.Record) []*types.Record {
	out := make([]*types.Record, len(recs))
	for i, r := range recs {
		cp := *r
		if r.Summary != nil {
			cp.Summary = types.NewSummary()
			for _, k := range r.Summary.Keys() {
				v, _ := r.Summary.Get(k)
				cp.Summary.Set(k, v)
			}
		}
		out[i] = &cp
	}
	return out
}
