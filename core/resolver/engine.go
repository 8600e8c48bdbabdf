// Package resolver builds a linked graph of issues from the tracker's flat
// responses. An Engine owns one session: its store, project cache and
// deferred-load queue are never shared with other engines.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/opensdd/youtrack-core/core"
	"github.com/opensdd/youtrack-core/core/entity"
	"github.com/opensdd/youtrack-core/core/parser"
	"github.com/opensdd/youtrack-core/core/prefetch"
	"github.com/opensdd/youtrack-core/core/store"
	"github.com/opensdd/youtrack-core/core/transport"
	"github.com/opensdd/youtrack-core/core/utils"
)

const (
	issuesPath = "/rest/issue"
)

func issuePath(id string) string {
	return issuesPath + "/" + url.PathEscape(id)
}

// SearchOptions are forwarded to the tracker's search endpoint.
type SearchOptions struct {
	// Max is the page size; zero leaves it to the server.
	Max int
	// After is the opaque pagination cursor.
	After string
	// WithWorkItems loads logged work for issues of time-tracked projects.
	WithWorkItems bool
}

// Engine resolves issues and their hierarchy. Public methods are serialised
// by one mutex so the cache check and the fetch that fills it are atomic.
// Fetches run strictly one at a time.
type Engine struct {
	mu               sync.Mutex
	transport        transport.Transport
	store            *store.Store
	projects         *prefetch.Projects
	trackingDisabled transport.Matcher
	now              func() time.Time

	queue   queue
	pending []entity.Link
}

type Option func(*Engine)

// WithStore makes the engine use s instead of a fresh store.
func WithStore(s *store.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithTrackingDisabled sets the matcher for "time tracking disabled"
// responses that are swallowed during work-item attachment.
func WithTrackingDisabled(m transport.Matcher) Option {
	return func(e *Engine) { e.trackingDisabled = m }
}

// WithClock overrides the time source used for new work items.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(t transport.Transport, opts ...Option) *Engine {
	e := &Engine{
		transport: t,
		now:       time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	if e.store == nil {
		e.store = store.New()
	}
	e.projects = &prefetch.Projects{Transport: t, Store: e.store}
	return e
}

// Store exposes the session's entity store.
func (e *Engine) Store() *store.Store {
	return e.store
}

// GetIssue returns the issue with the given bare identifier. A (nil, nil)
// result means the issue does not exist; that answer is cached like any other.
func (e *Engine) GetIssue(ctx context.Context, id string) (*entity.Issue, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if issue, known := e.store.Lookup(id); known {
		return issue, nil
	}

	log := slog.With("op", "GetIssue", "id", id)
	log.Debug("Fetching issue")
	var payload parser.Payload
	err := e.transport.Get(ctx, issuePath(id), nil, &payload)
	if transport.IsNotFound(err) {
		log.Debug("Issue not found")
		e.store.MarkAbsent(id)
		return nil, nil
	}
	if err != nil {
		return nil, core.Remote("getIssue", err)
	}
	if payload.ID == "" {
		payload.ID = id
	}

	batch, err := e.parseBatch(ctx, []*parser.Payload{&payload})
	if err != nil {
		return nil, err
	}
	e.commit(batch)
	e.store.Alias(id, payload.ID)
	if err := e.drain(ctx); err != nil {
		return nil, err
	}
	issue, _ := e.store.Lookup(payload.ID)
	return issue, nil
}

// GetIssues fetches ids with a single search. Cached copies are replaced by
// the fresh ones; requested ids the tracker does not return are cached as
// missing. Results follow the response order.
func (e *Engine) GetIssues(ctx context.Context, ids []string, opts SearchOptions) ([]*entity.Issue, error) {
	if len(ids) == 0 {
		return []*entity.Issue{}, nil
	}
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if err := checkID(id); err != nil {
			return nil, err
		}
		if !slices.Contains(unique, id) {
			unique = append(unique, id)
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	issues, err := e.fetchTopLevel(ctx, "getIssues", utils.IDsFilter(unique), len(unique), "", opts.WithWorkItems)
	if err != nil {
		return nil, err
	}
	for _, id := range unique {
		e.store.MarkAbsent(id)
	}
	if err := e.drain(ctx); err != nil {
		return nil, err
	}
	return issues, nil
}

// SearchIssues runs filter against the tracker with the same caching and
// resolution behaviour as GetIssues.
func (e *Engine) SearchIssues(ctx context.Context, filter string, opts SearchOptions) ([]*entity.Issue, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	issues, err := e.fetchTopLevel(ctx, "searchIssues", filter, opts.Max, opts.After, opts.WithWorkItems)
	if err != nil {
		return nil, err
	}
	if err := e.drain(ctx); err != nil {
		return nil, err
	}
	return issues, nil
}

// fetchTopLevel fetches, parses and commits one caller-requested batch.
// Nothing is committed unless every step succeeds.
func (e *Engine) fetchTopLevel(ctx context.Context, op, filter string, limit int, after string, withWorkItems bool) ([]*entity.Issue, error) {
	payloads, err := e.search(ctx, op, filter, limit, after)
	if err != nil {
		return nil, err
	}
	batch, err := e.parseBatch(ctx, payloads)
	if err != nil {
		return nil, err
	}
	if withWorkItems {
		if err := e.attachWorkItems(ctx, batch); err != nil {
			return nil, err
		}
	}
	e.commit(batch)

	issues := make([]*entity.Issue, len(batch))
	for i, p := range batch {
		issues[i] = p.issue
	}
	return issues, nil
}

type searchResult struct {
	Issues []*parser.Payload `json:"issue"`
}

func (e *Engine) search(ctx context.Context, op, filter string, limit int, after string) ([]*parser.Payload, error) {
	q := url.Values{}
	q.Set("filter", filter)
	if limit > 0 {
		q.Set("max", strconv.Itoa(limit))
	}
	if after != "" {
		q.Set("after", after)
	}
	slog.Debug("Searching issues", "op", op, "filter", filter, "max", limit, "after", after)

	var res searchResult
	if err := e.transport.Get(ctx, issuesPath, q, &res); err != nil {
		return nil, core.Remote(op, err)
	}
	payloads := res.Issues[:0]
	for _, p := range res.Issues {
		if p != nil && p.ID != "" {
			payloads = append(payloads, p)
		}
	}
	return payloads, nil
}

type parsed struct {
	issue *entity.Issue
	links []entity.Link
}

// parseBatch resolves projects and parses every payload. It commits nothing.
func (e *Engine) parseBatch(ctx context.Context, payloads []*parser.Payload) ([]parsed, error) {
	out := make([]parsed, 0, len(payloads))
	for _, p := range payloads {
		project, err := e.projects.Prefetch(ctx, p)
		if err != nil {
			return nil, err
		}
		issue, links, err := parser.Parse(p.ID, p)
		if err != nil {
			return nil, err
		}
		issue.Project = project
		out = append(out, parsed{issue: issue, links: links})
	}
	return out, nil
}

func checkID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty identifier", core.ErrInvalidIdentifier)
	}
	if utils.IsReference(id) {
		return fmt.Errorf("%w: supply the issue id without the %s: %s", core.ErrInvalidIdentifier, utils.ReferencePrefix, id)
	}
	return nil
}
