package entity

import (
	"encoding/json"
	"time"
)

// Relations resolves hierarchy edges by identifier. The entity store is the
// only implementation; issues never hold pointers to each other.
type Relations interface {
	Parent(id string) *Issue
	Children(id string) []*Issue
}

// Issue is a single tracker issue. Parent and children are looked up through
// the store the issue was registered in.
type Issue struct {
	ID          string          `json:"id" yaml:"id"`
	Summary     string          `json:"summary" yaml:"summary"`
	Status      string          `json:"status,omitempty" yaml:"status,omitempty"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Estimate    *int            `json:"estimate,omitempty" yaml:"estimate,omitempty"`
	Tags        []string        `json:"tags,omitempty" yaml:"tags,omitempty"`
	Sprint      json.RawMessage `json:"sprint,omitempty" yaml:"-"`
	Assignee    json.RawMessage `json:"assignee,omitempty" yaml:"-"`
	Developer   json.RawMessage `json:"developer,omitempty" yaml:"-"`
	Created     time.Time       `json:"created,omitzero" yaml:"created,omitempty"`
	Updated     time.Time       `json:"updated,omitzero" yaml:"updated,omitempty"`
	Project     *Project        `json:"-" yaml:"-"`
	WorkItems   []WorkItem      `json:"workItems,omitempty" yaml:"workItems,omitempty"`

	rel Relations
}

// NewIssue returns an issue with the given identifier.
func NewIssue(id string) *Issue {
	return &Issue{ID: id}
}

// Bind attaches the issue to the relations index it is stored in.
func (i *Issue) Bind(r Relations) {
	i.rel = r
}

// Parent returns the issue's parent, or nil if it has none or is not stored.
func (i *Issue) Parent() *Issue {
	if i == nil || i.rel == nil {
		return nil
	}
	return i.rel.Parent(i.ID)
}

// Children returns the issue's children in the order they were linked.
func (i *Issue) Children() []*Issue {
	if i == nil || i.rel == nil {
		return nil
	}
	return i.rel.Children(i.ID)
}

// ProjectName returns the short name of the owning project.
func (i *Issue) ProjectName() string {
	if i == nil || i.Project == nil {
		return ""
	}
	return i.Project.Name()
}
