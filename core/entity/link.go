package entity

// LinkRole names the direction of a link as seen from the issue declaring it.
type LinkRole string

const (
	RoleSubtaskOf LinkRole = "subtask-of"
	RoleParentFor LinkRole = "parent-for"
)

// Hierarchical reports whether the role creates a parent/child edge.
func (r LinkRole) Hierarchical() bool {
	return r == RoleSubtaskOf || r == RoleParentFor
}

// Link is a reference from one issue to another found while parsing.
type Link struct {
	Source string
	Role   LinkRole
	Target string
}
