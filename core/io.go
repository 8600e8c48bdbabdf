package core

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/opensdd/youtrack-core/core/entity"
	"gopkg.in/yaml.v3"
)

// Document is the exported form of an issue: the issue itself plus the
// identifiers of its project and its hierarchy neighbours.
type Document struct {
	*entity.Issue `yaml:",inline"`

	Project  string   `json:"project,omitempty" yaml:"project,omitempty"`
	Parent   string   `json:"parent,omitempty" yaml:"parent,omitempty"`
	Children []string `json:"children,omitempty" yaml:"children,omitempty"`
}

// NewDocument captures issue and its current links.
func NewDocument(issue *entity.Issue) Document {
	d := Document{Issue: issue, Project: issue.ProjectName()}
	if p := issue.Parent(); p != nil {
		d.Parent = p.ID
	}
	for _, c := range issue.Children() {
		d.Children = append(d.Children, c.ID)
	}
	return d
}

// MarshalIssues renders issues as a YAML list of documents.
func MarshalIssues(issues []*entity.Issue) ([]byte, error) {
	docs := make([]Document, 0, len(issues))
	for _, issue := range issues {
		if issue != nil {
			docs = append(docs, NewDocument(issue))
		}
	}
	b, err := yaml.Marshal(docs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal issues: %w", err)
	}
	return b, nil
}

// PersistIssues writes every issue to root/<project>/<id>.yaml.
// - Creates parent directories as needed (0755 perms).
// - Overwrites existing files (0644 perms).
// - Skips nil issues.
// - Rejects identifiers that would escape root.
func PersistIssues(_ context.Context, root string, issues []*entity.Issue) error {
	log := slog.With("op", "PersistIssues")
	if strings.TrimSpace(root) == "" {
		return fmt.Errorf("root path cannot be empty")
	}
	root = filepath.Clean(root)

	for i, issue := range issues {
		if issue == nil {
			continue
		}
		if strings.TrimSpace(issue.ID) == "" {
			return fmt.Errorf("entry %d: issue id cannot be empty", i)
		}
		rel := filepath.Join(issue.ProjectName(), issue.ID+".yaml")
		full := filepath.Clean(filepath.Join(root, rel))
		if !isPathWithinRoot(root, full) {
			return fmt.Errorf("entry %d: path escapes root: %s", i, rel)
		}

		b, err := yaml.Marshal(NewDocument(issue))
		if err != nil {
			return fmt.Errorf("entry %d: failed to marshal issue %s: %w", i, issue.ID, err)
		}

		dir := filepath.Dir(full)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("entry %d: failed to create directories for %s: %w", i, full, err)
		}
		log.Debug("Writing issue", "id", issue.ID, "path", full)
		if err := os.WriteFile(full, b, 0o644); err != nil {
			return fmt.Errorf("entry %d: failed to write file %s: %w", i, full, err)
		}
	}
	return nil
}

// isPathWithinRoot checks whether target is inside root directory.
func isPathWithinRoot(root, target string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(target))
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}
