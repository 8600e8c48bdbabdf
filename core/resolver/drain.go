package resolver

import (
	"context"
	"log/slog"

	"github.com/opensdd/youtrack-core/core/entity"
	"github.com/opensdd/youtrack-core/core/utils"
)

// queue is an insertion-ordered set of identifiers awaiting a fetch.
type queue struct {
	ids  []string
	seen map[string]bool
}

func (q *queue) add(id string) {
	if q.seen == nil {
		q.seen = map[string]bool{}
	}
	if q.seen[id] {
		return
	}
	q.seen[id] = true
	q.ids = append(q.ids, id)
}

func (q *queue) empty() bool { return len(q.ids) == 0 }

// take returns the queued ids and clears the queue.
func (q *queue) take() []string {
	ids := q.ids
	q.ids = nil
	q.seen = nil
	return ids
}

// commit registers a parsed batch, wires the links it declares and applies
// earlier links that were waiting for one of its issues.
func (e *Engine) commit(batch []parsed) {
	for _, p := range batch {
		e.store.Put(p.issue)
	}
	for _, p := range batch {
		for _, l := range p.links {
			e.wire(l)
		}
	}
	e.flushPending()
}

// wire applies a hierarchical link whose target is stored, drops it if the
// target is known to be missing, and otherwise defers it until the target
// has been fetched.
func (e *Engine) wire(l entity.Link) {
	if !l.Role.Hierarchical() {
		return
	}
	target, known := e.store.Lookup(l.Target)
	switch {
	case target != nil:
		e.apply(l)
	case known:
		slog.Debug("Dropping link to missing issue", "source", l.Source, "role", l.Role, "target", l.Target)
	default:
		e.queue.add(l.Target)
		e.pending = append(e.pending, l)
	}
}

func (e *Engine) apply(l entity.Link) {
	switch l.Role {
	case entity.RoleSubtaskOf:
		e.store.Link(l.Target, l.Source)
	case entity.RoleParentFor:
		e.store.Link(l.Source, l.Target)
	}
}

// drain fetches deferred link targets breadth-first until a round queues
// nothing new. Every fetched id ends up either stored or marked missing, so
// the loop terminates on any finite link graph, cycles included. A failure
// keeps the rounds committed before it, and links to the ids of the failed
// round stay pending until a later fetch stores their targets.
func (e *Engine) drain(ctx context.Context) error {
	log := slog.With("op", "drain")
	for round := 1; !e.queue.empty(); round++ {
		ids := e.queue.take()
		log.Debug("Resolving deferred issues", "round", round, "count", len(ids))

		payloads, err := e.search(ctx, "resolveDeferred", utils.IDsFilter(ids), len(ids), "")
		if err != nil {
			return err
		}
		batch, err := e.parseBatch(ctx, payloads)
		if err != nil {
			return err
		}
		e.commit(batch)
		for _, id := range ids {
			e.store.MarkAbsent(id)
		}
		e.flushPending()
	}
	return nil
}

// flushPending applies deferred links whose targets are now known.
func (e *Engine) flushPending() {
	waiting := e.pending[:0]
	for _, l := range e.pending {
		target, known := e.store.Lookup(l.Target)
		switch {
		case target != nil:
			e.apply(l)
		case !known:
			waiting = append(waiting, l)
		}
	}
	e.pending = waiting
}
