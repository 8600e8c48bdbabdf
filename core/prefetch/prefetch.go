// Package prefetch loads project settings once per project per session.
package prefetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/opensdd/youtrack-core/core"
	"github.com/opensdd/youtrack-core/core/entity"
	"github.com/opensdd/youtrack-core/core/parser"
	"github.com/opensdd/youtrack-core/core/store"
	"github.com/opensdd/youtrack-core/core/transport"
)

// SettingsPath returns the time-tracking settings path of a project.
func SettingsPath(project string) string {
	return "/rest/admin/project/" + url.PathEscape(project) + "/timetracking"
}

// Projects resolves the project of an issue payload, fetching its
// time-tracking settings on first sight and reusing the cached instance after.
type Projects struct {
	Transport transport.Transport
	Store     *store.Store
}

// Prefetch returns the shared project of payload. At most one settings fetch
// is made per distinct project name over the lifetime of the store.
func (p *Projects) Prefetch(ctx context.Context, payload *parser.Payload) (*entity.Project, error) {
	name, err := parser.ProjectName(payload)
	if err != nil {
		return nil, err
	}
	if project, ok := p.Store.Project(name); ok {
		return project, nil
	}

	slog.Debug("Fetching project settings", "project", name)
	settings := map[string]any{}
	if err := p.Transport.Get(ctx, SettingsPath(name), nil, &settings); err != nil {
		return nil, core.Remote(fmt.Sprintf("prefetchProject(%s)", name), err)
	}

	project := entity.NewProject(name)
	project.SetSettings(settings)
	if id, ok := settings["id"].(float64); ok {
		project.SetID(int(id))
	}
	p.Store.PutProject(project)
	return project, nil
}
