package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/opensdd/youtrack-core/core/prefetch"
	"github.com/opensdd/youtrack-core/core/transport"
)

type link struct {
	role   string
	target string
}

func subtaskOf(id string) link { return link{role: "subtask of", target: id} }
func parentFor(id string) link { return link{role: "parent for", target: id} }

func issueJSON(id, project string, links ...link) string {
	fields := []map[string]any{
		{"name": "summary", "value": "Summary of " + id},
	}
	if project != "" {
		fields = append(fields, map[string]any{"name": "projectShortName", "value": project})
	}
	if len(links) > 0 {
		values := make([]map[string]string, len(links))
		for i, l := range links {
			values[i] = map[string]string{"value": l.target, "type": "Subtask", "role": l.role}
		}
		fields = append(fields, map[string]any{"name": "links", "value": values})
	}
	b, _ := json.Marshal(map[string]any{"id": id, "field": fields})
	return string(b)
}

type post struct {
	path   string
	header http.Header
	body   string
}

// fakeTracker serves issues from memory and counts every request.
type fakeTracker struct {
	mu sync.Mutex

	issues    map[string]string
	settings  map[string]string
	workItems map[string]string
	users     map[string]string
	// searches maps a non-id filter to the ids it returns.
	searches map[string][]string
	// failures maps an issue id or request path to the error returned for it.
	failures map[string]error

	issueFetches    map[string]int
	settingsFetches map[string]int
	workItemFetches map[string]int
	issueRequests   int
	queries         []url.Values
	posts           []post
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{
		issues:          map[string]string{},
		settings:        map[string]string{},
		workItems:       map[string]string{},
		users:           map[string]string{},
		searches:        map[string][]string{},
		failures:        map[string]error{},
		issueFetches:    map[string]int{},
		settingsFetches: map[string]int{},
		workItemFetches: map[string]int{},
	}
}

func (f *fakeTracker) addIssue(id, project string, links ...link) {
	f.issues[id] = issueJSON(id, project, links...)
	if _, ok := f.settings[project]; !ok && project != "" {
		f.settings[project] = `{"enabled": false}`
	}
}

func statusErr(method, path string, status int) *transport.Error {
	return &transport.Error{Method: method, Path: path, Status: status}
}

func (f *fakeTracker) Get(_ context.Context, path string, query url.Values, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.failures[path]; ok {
		return err
	}

	switch {
	case path == issuesPath:
		f.issueRequests++
		f.queries = append(f.queries, query)
		return f.search(query.Get("filter"), out)

	case strings.HasSuffix(path, "/timetracking/workitem/"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, issuesPath+"/"), "/timetracking/workitem/")
		f.workItemFetches[id]++
		body, ok := f.workItems[id]
		if !ok {
			body = `[]`
		}
		return json.Unmarshal([]byte(body), out)

	case strings.HasPrefix(path, issuesPath+"/"):
		f.issueRequests++
		id := strings.TrimPrefix(path, issuesPath+"/")
		f.issueFetches[id]++
		if err, ok := f.failures[id]; ok {
			return err
		}
		body, ok := f.issues[id]
		if !ok {
			return statusErr(http.MethodGet, path, http.StatusNotFound)
		}
		return json.Unmarshal([]byte(body), out)

	case strings.HasPrefix(path, "/rest/admin/project/"):
		for name, body := range f.settings {
			if path == prefetch.SettingsPath(name) {
				f.settingsFetches[name]++
				return json.Unmarshal([]byte(body), out)
			}
		}
		return statusErr(http.MethodGet, path, http.StatusNotFound)

	case path == "/rest/admin/user":
		return json.Unmarshal([]byte(f.users[query.Get("q")]), out)

	case strings.HasPrefix(path, "/rest/admin/user/"):
		return json.Unmarshal([]byte(f.users[path]), out)
	}
	return fmt.Errorf("unexpected path %s", path)
}

func (f *fakeTracker) search(filter string, out any) error {
	var ids []string
	if strings.HasPrefix(filter, "#") {
		for _, ref := range strings.Fields(filter) {
			ids = append(ids, strings.TrimPrefix(ref, "#"))
		}
	} else {
		ids = f.searches[filter]
	}

	var bodies []string
	for _, id := range ids {
		f.issueFetches[id]++
		if err, ok := f.failures[id]; ok {
			return err
		}
		if body, ok := f.issues[id]; ok {
			bodies = append(bodies, body)
		}
	}
	return json.Unmarshal([]byte(`{"issue": [`+strings.Join(bodies, ",")+`]}`), out)
}

func (f *fakeTracker) Post(_ context.Context, path string, header http.Header, body []byte, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failures[path]; ok {
		return err
	}
	f.posts = append(f.posts, post{path: path, header: header, body: string(body)})
	return nil
}

func (f *fakeTracker) totalSettingsFetches() int {
	n := 0
	for _, c := range f.settingsFetches {
		n += c
	}
	return n
}
