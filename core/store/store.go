// Package store holds the canonical issue and project instances of a session.
package store

import (
	"slices"
	"sort"
	"sync"

	"github.com/opensdd/youtrack-core/core/entity"
)

// Store deduplicates issues and projects by identifier and owns the
// parent/child edges between issues. Entries live as long as the store;
// there is no eviction.
type Store struct {
	mu       sync.RWMutex
	issues   map[string]*entity.Issue // nil value: confirmed missing
	projects map[string]*entity.Project
	parent   map[string]string
	children map[string][]string
	// aliases maps a requested identifier to the one the tracker returned.
	aliases map[string]string
}

var _ entity.Relations = (*Store)(nil)

func New() *Store {
	return &Store{
		issues:   map[string]*entity.Issue{},
		projects: map[string]*entity.Project{},
		parent:   map[string]string{},
		children: map[string][]string{},
		aliases:  map[string]string{},
	}
}

// Lookup returns the stored issue and whether id has been looked up before.
// A known id with a nil issue was confirmed missing upstream.
func (s *Store) Lookup(id string) (*entity.Issue, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	issue, ok := s.issues[id]
	if !ok {
		if canonical, aliased := s.aliases[id]; aliased {
			issue, ok = s.issues[canonical]
		}
	}
	return issue, ok
}

// Alias makes lookups of alias resolve to the issue stored as id, e.g. when
// the tracker answers a request for "proj-1" with "PROJ-1".
func (s *Store) Alias(alias, id string) {
	if alias == id {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aliases[alias] = id
}

// Known reports whether id is resolved or confirmed missing.
func (s *Store) Known(id string) bool {
	_, ok := s.Lookup(id)
	return ok
}

// Resolved reports whether id is stored as an existing issue.
func (s *Store) Resolved(id string) bool {
	issue, _ := s.Lookup(id)
	return issue != nil
}

// Put registers issue, replacing any previous instance with the same id.
// Edges are keyed by id and survive the replacement.
func (s *Store) Put(issue *entity.Issue) {
	issue.Bind(s)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issues[issue.ID] = issue
}

// MarkAbsent records that id does not exist upstream. Resolved ids are left
// untouched.
func (s *Store) MarkAbsent(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.issues[id] == nil {
		s.issues[id] = nil
	}
}

// Issues returns every resolved issue ordered by id.
func (s *Store) Issues() []*entity.Issue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entity.Issue, 0, len(s.issues))
	for _, issue := range s.issues {
		if issue != nil {
			out = append(out, issue)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) Project(name string) (*entity.Project, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[name]
	return p, ok
}

func (s *Store) PutProject(p *entity.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[p.Name()] = p
}

// Link makes parentID the parent of childID. Both directions are updated in
// one step; a child that had another parent is detached from it first.
// Re-linking an existing edge is a no-op.
func (s *Store) Link(parentID, childID string) {
	if parentID == childID {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.parent[childID]; ok {
		if old == parentID {
			return
		}
		s.children[old] = slices.DeleteFunc(s.children[old], func(id string) bool { return id == childID })
	}
	s.parent[childID] = parentID
	if !slices.Contains(s.children[parentID], childID) {
		s.children[parentID] = append(s.children[parentID], childID)
	}
}

// Parent returns the stored parent of id.
func (s *Store) Parent(id string) *entity.Issue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.parent[id]
	if !ok {
		return nil
	}
	return s.issues[p]
}

// Children returns the stored children of id in link order.
func (s *Store) Children(id string) []*entity.Issue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.children[id]
	out := make([]*entity.Issue, 0, len(ids))
	for _, c := range ids {
		if issue := s.issues[c]; issue != nil {
			out = append(out, issue)
		}
	}
	return out
}
