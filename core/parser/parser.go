// Package parser converts raw YouTrack issue payloads into entities. It
// performs no I/O.
package parser

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/opensdd/youtrack-core/core"
	"github.com/opensdd/youtrack-core/core/entity"
)

// Field names as delivered by the tracker.
const (
	FieldSummary          = "summary"
	FieldDescription      = "description"
	FieldProjectShortName = "projectShortName"
	FieldState            = "State"
	FieldEstimation       = "Estimation"
	FieldSprint           = "Sprint"
	FieldAssignee         = "Assignee"
	FieldDeveloper        = "Developer"
	FieldCreated          = "created"
	FieldUpdated          = "updated"
	FieldLinks            = "links"
)

// Payload is one issue as returned by /rest/issue/{id} or inside a search result.
type Payload struct {
	ID     string  `json:"id"`
	Fields []Field `json:"field"`
	Tags   []Tag   `json:"tag"`
}

type Field struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

type Tag struct {
	Value string `json:"value"`
}

type linkValue struct {
	Value string `json:"value"`
	Type  string `json:"type"`
	Role  string `json:"role"`
}

// Field returns the raw value of the named field.
func (p *Payload) Field(name string) (json.RawMessage, bool) {
	for _, f := range p.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// ProjectName returns the project short name of the payload.
func ProjectName(p *Payload) (string, error) {
	raw, ok := p.Field(FieldProjectShortName)
	if !ok {
		return "", fmt.Errorf("issue %s: %w", p.ID, core.ErrMissingProjectReference)
	}
	name, err := scalar(raw)
	if err != nil {
		return "", fmt.Errorf("issue %s: failed to parse %s: %w", p.ID, FieldProjectShortName, err)
	}
	if name == "" {
		return "", fmt.Errorf("issue %s: %w", p.ID, core.ErrMissingProjectReference)
	}
	return name, nil
}

// Parse builds an issue from its payload and returns the links it declares.
// When id is empty the payload's own id is used. Unknown fields are ignored
// and absent fields keep their zero value.
func Parse(id string, p *Payload) (*entity.Issue, []entity.Link, error) {
	if id == "" {
		id = p.ID
	}
	issue := entity.NewIssue(id)
	var links []entity.Link

	for _, f := range p.Fields {
		var err error
		switch f.Name {
		case FieldSummary:
			issue.Summary, err = scalar(f.Value)
		case FieldDescription:
			issue.Description, err = scalar(f.Value)
		case FieldState:
			issue.Status, err = scalar(f.Value)
		case FieldEstimation:
			issue.Estimate, err = optionalInt(f.Value)
		case FieldSprint:
			issue.Sprint = passThrough(f.Value)
		case FieldAssignee:
			issue.Assignee = passThrough(f.Value)
		case FieldDeveloper:
			issue.Developer = passThrough(f.Value)
		case FieldCreated:
			issue.Created, err = epochMillis(f.Value)
		case FieldUpdated:
			issue.Updated, err = epochMillis(f.Value)
		case FieldLinks:
			links, err = parseLinks(id, f.Value)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("issue %s: failed to parse field %s: %w", id, f.Name, err)
		}
	}

	for _, t := range p.Tags {
		if t.Value != "" {
			issue.Tags = append(issue.Tags, t.Value)
		}
	}
	return issue, links, nil
}

// NormalizeRole maps the tracker's role spelling ("subtask of") to a LinkRole.
func NormalizeRole(role string) entity.LinkRole {
	role = strings.ToLower(strings.TrimSpace(role))
	return entity.LinkRole(strings.Join(strings.Fields(role), "-"))
}

func parseLinks(id string, raw json.RawMessage) ([]entity.Link, error) {
	if isNull(raw) {
		return nil, nil
	}
	var values []linkValue
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, err
	}
	links := make([]entity.Link, 0, len(values))
	for _, v := range values {
		if v.Value == "" || v.Value == id {
			continue
		}
		links = append(links, entity.Link{Source: id, Role: NormalizeRole(v.Role), Target: v.Value})
	}
	return links, nil
}

// scalar decodes a string, number, or a list whose first element is one of
// those. Empty lists and null decode to "".
func scalar(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", nil
	}
	var list []json.RawMessage
	if json.Unmarshal(raw, &list) == nil {
		if len(list) == 0 {
			return "", nil
		}
		return scalar(list[0])
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("unsupported value %s", string(raw))
	}
	return n.String(), nil
}

func optionalInt(raw json.RawMessage) (*int, error) {
	s, err := scalar(raw)
	if err != nil || s == "" {
		return nil, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func epochMillis(raw json.RawMessage) (time.Time, error) {
	s, err := scalar(raw)
	if err != nil || s == "" {
		return time.Time{}, err
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

func passThrough(raw json.RawMessage) json.RawMessage {
	if isNull(raw) {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}

func isNull(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}
