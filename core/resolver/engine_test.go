package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/opensdd/youtrack-core/core"
	"github.com/opensdd/youtrack-core/core/entity"
	"github.com/opensdd/youtrack-core/core/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertHierarchy checks the parent/child invariant over every stored issue:
// each child points back at its parent and every issue is listed by at most
// one parent.
func assertHierarchy(t *testing.T, s *store.Store) {
	t.Helper()
	listedBy := map[string]string{}
	for _, issue := range s.Issues() {
		for _, c := range issue.Children() {
			if assert.NotNil(t, c.Parent(), "child %s of %s has no parent", c.ID, issue.ID) {
				assert.Equal(t, issue.ID, c.Parent().ID, "child %s of %s points elsewhere", c.ID, issue.ID)
			}
			prev, dup := listedBy[c.ID]
			assert.False(t, dup, "%s listed as child by %s and %s", c.ID, prev, issue.ID)
			listedBy[c.ID] = issue.ID
		}
		if p := issue.Parent(); p != nil {
			assert.Contains(t, p.Children(), issue, "%s missing from children of %s", issue.ID, p.ID)
		}
	}
}

func TestGetIssue_CachesResult(t *testing.T) {
	t.Parallel()
	tr := newFakeTracker()
	tr.addIssue("PROJ-1", "PROJ")
	e := New(tr)

	first, err := e.GetIssue(context.Background(), "PROJ-1")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "Summary of PROJ-1", first.Summary)
	assert.Equal(t, "PROJ", first.ProjectName())

	second, err := e.GetIssue(context.Background(), "PROJ-1")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, tr.issueFetches["PROJ-1"])
	assert.Equal(t, 1, tr.issueRequests)
}

func TestGetIssue_NotFoundIsSticky(t *testing.T) {
	t.Parallel()
	tr := newFakeTracker()
	e := New(tr)

	for i := 0; i < 2; i++ {
		issue, err := e.GetIssue(context.Background(), "GHOST-1")
		require.NoError(t, err)
		assert.Nil(t, issue)
	}
	assert.Equal(t, 1, tr.issueFetches["GHOST-1"])
	_, known := e.Store().Lookup("GHOST-1")
	assert.True(t, known)
}

func TestGetIssue_InvalidIdentifier(t *testing.T) {
	t.Parallel()
	tests := []string{"#PROJ-1", ""}
	for _, id := range tests {
		id := id
		t.Run(fmt.Sprintf("%q", id), func(t *testing.T) {
			t.Parallel()
			tr := newFakeTracker()
			e := New(tr)

			_, err := e.GetIssue(context.Background(), id)
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrInvalidIdentifier)
			assert.Zero(t, tr.issueRequests)

			_, err = e.GetIssues(context.Background(), []string{"PROJ-2", id}, SearchOptions{})
			assert.ErrorIs(t, err, core.ErrInvalidIdentifier)
			assert.Zero(t, tr.issueRequests)
		})
	}
}

func TestGetIssue_RemoteUnavailable(t *testing.T) {
	t.Parallel()
	tr := newFakeTracker()
	tr.failures["PROJ-1"] = statusErr(http.MethodGet, "/rest/issue/PROJ-1", http.StatusInternalServerError)
	e := New(tr)

	_, err := e.GetIssue(context.Background(), "PROJ-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrRemoteUnavailable)
	var re *core.RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, http.StatusInternalServerError, re.Status)
	assert.Equal(t, "getIssue", re.Op)

	assert.False(t, e.Store().Known("PROJ-1"), "failures must not be cached")
	_, _ = e.GetIssue(context.Background(), "PROJ-1")
	assert.Equal(t, 2, tr.issueFetches["PROJ-1"])
}

func TestGetIssue_MissingProjectReference(t *testing.T) {
	t.Parallel()
	tr := newFakeTracker()
	tr.addIssue("ORPHAN-1", "")
	e := New(tr)

	_, err := e.GetIssue(context.Background(), "ORPHAN-1")
	assert.ErrorIs(t, err, core.ErrMissingProjectReference)
	assert.False(t, e.Store().Known("ORPHAN-1"))
}

func TestGetIssues_EmptyInput(t *testing.T) {
	t.Parallel()
	tr := newFakeTracker()
	e := New(tr)

	issues, err := e.GetIssues(context.Background(), nil, SearchOptions{})
	require.NoError(t, err)
	assert.NotNil(t, issues)
	assert.Empty(t, issues)
	assert.Zero(t, tr.issueRequests)
}

func TestGetIssue_DeferredParent(t *testing.T) {
	t.Parallel()
	tr := newFakeTracker()
	tr.addIssue("A-1", "A", subtaskOf("A-2"))
	tr.addIssue("A-2", "A")
	e := New(tr)

	a1, err := e.GetIssue(context.Background(), "A-1")
	require.NoError(t, err)

	a2, ok := e.Store().Lookup("A-2")
	require.True(t, ok)
	require.NotNil(t, a2)
	assert.Same(t, a2, a1.Parent())
	assert.Equal(t, []*entity.Issue{a1}, a2.Children())
	assert.Equal(t, 2, tr.issueRequests)
	assert.Equal(t, 1, tr.settingsFetches["A"])
}

func TestGetIssues_DeferredParent(t *testing.T) {
	t.Parallel()
	tr := newFakeTracker()
	tr.addIssue("A-1", "A", subtaskOf("A-2"))
	tr.addIssue("A-2", "A")
	e := New(tr)

	issues, err := e.GetIssues(context.Background(), []string{"A-1"}, SearchOptions{})
	require.NoError(t, err)
	require.Len(t, issues, 1)

	a1 := issues[0]
	a2 := a1.Parent()
	require.NotNil(t, a2)
	assert.Equal(t, "A-2", a2.ID)
	assert.Equal(t, []*entity.Issue{a1}, a2.Children())
	assert.Equal(t, 2, tr.issueRequests)
	assert.Equal(t, "1", tr.queries[1].Get("max"))
}

func TestResolve_MutualReference(t *testing.T) {
	t.Parallel()
	tr := newFakeTracker()
	tr.addIssue("A-1", "A", subtaskOf("B-1"))
	tr.addIssue("B-1", "B", parentFor("A-1"))
	e := New(tr)

	a, err := e.GetIssue(context.Background(), "A-1")
	require.NoError(t, err)

	b := a.Parent()
	require.NotNil(t, b)
	assert.Equal(t, "B-1", b.ID)
	assert.Equal(t, []*entity.Issue{a}, b.Children())
	assert.Equal(t, 1, tr.issueFetches["A-1"])
	assert.Equal(t, 1, tr.issueFetches["B-1"])
	assertHierarchy(t, e.Store())
}

func TestResolve_Diamond(t *testing.T) {
	t.Parallel()
	tr := newFakeTracker()
	tr.addIssue("A-1", "A", parentFor("B-1"), parentFor("C-1"))
	tr.addIssue("B-1", "A", subtaskOf("A-1"), parentFor("C-1"))
	tr.addIssue("C-1", "A", subtaskOf("A-1"))
	e := New(tr)

	a, err := e.GetIssue(context.Background(), "A-1")
	require.NoError(t, err)
	require.NotNil(t, a)

	for _, id := range []string{"A-1", "B-1", "C-1"} {
		assert.Equal(t, 1, tr.issueFetches[id], "fetches of %s", id)
		assert.True(t, e.Store().Resolved(id))
	}
	b, _ := e.Store().Lookup("B-1")
	assert.Same(t, a, b.Parent())
	assertHierarchy(t, e.Store())
}

func TestResolve_ParentCycle(t *testing.T) {
	t.Parallel()
	tr := newFakeTracker()
	tr.addIssue("A-1", "A", parentFor("A-2"))
	tr.addIssue("A-2", "A", parentFor("A-3"))
	tr.addIssue("A-3", "A", parentFor("A-1"))
	e := New(tr)

	_, err := e.GetIssue(context.Background(), "A-1")
	require.NoError(t, err)
	for _, id := range []string{"A-1", "A-2", "A-3"} {
		assert.Equal(t, 1, tr.issueFetches[id], "fetches of %s", id)
	}
	assertHierarchy(t, e.Store())
}

func TestResolve_DeepChain(t *testing.T) {
	t.Parallel()
	const depth = 200
	tr := newFakeTracker()
	for i := 1; i <= depth; i++ {
		var links []link
		if i < depth {
			links = append(links, parentFor(fmt.Sprintf("DEEP-%d", i+1)))
		}
		tr.addIssue(fmt.Sprintf("DEEP-%d", i), "DEEP", links...)
	}
	e := New(tr)

	root, err := e.GetIssue(context.Background(), "DEEP-1")
	require.NoError(t, err)

	n := 0
	for cur := root; cur != nil; n++ {
		children := cur.Children()
		if len(children) == 0 {
			break
		}
		require.Len(t, children, 1)
		assert.Same(t, cur, children[0].Parent())
		cur = children[0]
	}
	assert.Equal(t, depth-1, n)
	assert.Equal(t, depth, tr.issueRequests)
	assert.Equal(t, 1, tr.settingsFetches["DEEP"])
}

func TestResolve_WideFanOutIsOneBatch(t *testing.T) {
	t.Parallel()
	tr := newFakeTracker()
	var links []link
	for i := 2; i <= 30; i++ {
		id := fmt.Sprintf("W-%d", i)
		links = append(links, parentFor(id))
		tr.addIssue(id, "W", subtaskOf("W-1"))
	}
	tr.addIssue("W-1", "W", links...)
	e := New(tr)

	root, err := e.GetIssue(context.Background(), "W-1")
	require.NoError(t, err)
	children := root.Children()
	require.Len(t, children, 29)
	assert.Equal(t, "W-2", children[0].ID)
	assert.Equal(t, "W-30", children[28].ID)
	assert.Equal(t, 2, tr.issueRequests)
}

func TestResolve_LinkToMissingIssue(t *testing.T) {
	t.Parallel()
	tr := newFakeTracker()
	tr.addIssue("A-1", "A", subtaskOf("GONE-1"))
	e := New(tr)

	a, err := e.GetIssue(context.Background(), "A-1")
	require.NoError(t, err)
	assert.Nil(t, a.Parent())
	issue, known := e.Store().Lookup("GONE-1")
	assert.True(t, known)
	assert.Nil(t, issue)

	_, err = e.GetIssue(context.Background(), "GONE-1")
	require.NoError(t, err)
	assert.Equal(t, 1, tr.issueFetches["GONE-1"])
}

func TestResolve_LinkToCachedIssueWiresImmediately(t *testing.T) {
	t.Parallel()
	tr := newFakeTracker()
	tr.addIssue("A-1", "A")
	tr.addIssue("A-2", "A", subtaskOf("A-1"))
	e := New(tr)

	a1, err := e.GetIssue(context.Background(), "A-1")
	require.NoError(t, err)
	a2, err := e.GetIssue(context.Background(), "A-2")
	require.NoError(t, err)

	assert.Same(t, a1, a2.Parent())
	assert.Equal(t, []*entity.Issue{a2}, a1.Children())
	assert.Equal(t, 1, tr.issueFetches["A-1"])
	assert.Equal(t, 2, tr.issueRequests)
}

func TestResolve_NonHierarchicalLinksNotFollowed(t *testing.T) {
	t.Parallel()
	tr := newFakeTracker()
	tr.issues["A-1"] = `{"id": "A-1", "field": [
		{"name": "projectShortName", "value": "A"},
		{"name": "links", "value": [{"value": "B-1", "type": "Relates", "role": "relates to"}]}
	]}`
	tr.settings["A"] = `{"enabled": false}`
	tr.addIssue("B-1", "B")
	e := New(tr)

	_, err := e.GetIssue(context.Background(), "A-1")
	require.NoError(t, err)
	assert.Zero(t, tr.issueFetches["B-1"])
}

func TestProjectSettings_FetchedOnceAndShared(t *testing.T) {
	t.Parallel()
	tr := newFakeTracker()
	tr.addIssue("PROJ-1", "PROJ")
	tr.addIssue("PROJ-2", "PROJ")
	tr.addIssue("PROJ-3", "PROJ")
	tr.settings["PROJ"] = `{"enabled": true}`
	e := New(tr)

	issues, err := e.GetIssues(context.Background(), []string{"PROJ-1", "PROJ-2"}, SearchOptions{})
	require.NoError(t, err)
	third, err := e.GetIssue(context.Background(), "PROJ-3")
	require.NoError(t, err)
	issues = append(issues, third)

	assert.Equal(t, 1, tr.settingsFetches["PROJ"])
	require.Len(t, issues, 3)
	issues[0].Project.SetSetting("enabled", false)
	for _, issue := range issues {
		assert.Same(t, issues[0].Project, issue.Project)
		assert.False(t, issue.Project.TimeTrackingEnabled())
	}
}

func TestGetIssues_RefetchReplacesAndKeepsEdges(t *testing.T) {
	t.Parallel()
	tr := newFakeTracker()
	tr.addIssue("P-1", "P", parentFor("C-1"))
	tr.addIssue("C-1", "P")
	e := New(tr)

	parent, err := e.GetIssue(context.Background(), "P-1")
	require.NoError(t, err)
	old := parent.Children()[0]

	issues, err := e.GetIssues(context.Background(), []string{"C-1", "MISSING-1"}, SearchOptions{})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	fresh := issues[0]
	assert.NotSame(t, old, fresh)
	assert.Same(t, parent, fresh.Parent())
	assert.Equal(t, []*entity.Issue{fresh}, parent.Children())

	missing, known := e.Store().Lookup("MISSING-1")
	assert.True(t, known)
	assert.Nil(t, missing)
	assertHierarchy(t, e.Store())
}

func TestGetIssues_BatchIsAtomic(t *testing.T) {
	t.Parallel()
	tr := newFakeTracker()
	tr.addIssue("OK-1", "OK")
	tr.addIssue("BAD-1", "")
	e := New(tr)

	_, err := e.GetIssues(context.Background(), []string{"OK-1", "BAD-1"}, SearchOptions{})
	require.ErrorIs(t, err, core.ErrMissingProjectReference)
	assert.False(t, e.Store().Known("OK-1"))
	assert.False(t, e.Store().Known("BAD-1"))
}

func TestDrain_FailureKeepsEarlierRounds(t *testing.T) {
	t.Parallel()
	tr := newFakeTracker()
	tr.addIssue("A-1", "A", parentFor("A-2"))
	tr.addIssue("A-2", "A", parentFor("A-3"))
	tr.addIssue("A-3", "A")
	tr.failures["A-3"] = statusErr(http.MethodGet, "/rest/issue", http.StatusServiceUnavailable)
	e := New(tr)

	_, err := e.GetIssue(context.Background(), "A-1")
	require.ErrorIs(t, err, core.ErrRemoteUnavailable)

	assert.True(t, e.Store().Resolved("A-1"))
	assert.True(t, e.Store().Resolved("A-2"))
	assert.False(t, e.Store().Known("A-3"))

	a1, _ := e.Store().Lookup("A-1")
	a2, _ := e.Store().Lookup("A-2")
	assert.Same(t, a1, a2.Parent())
	assert.Empty(t, a2.Children())
}

func TestDrain_FailedTargetLinksOnLaterFetch(t *testing.T) {
	t.Parallel()
	tr := newFakeTracker()
	tr.addIssue("A-1", "A", parentFor("A-2"))
	tr.addIssue("A-2", "A")
	tr.failures["A-2"] = statusErr(http.MethodGet, "/rest/issue", http.StatusServiceUnavailable)
	e := New(tr)

	_, err := e.GetIssue(context.Background(), "A-1")
	require.ErrorIs(t, err, core.ErrRemoteUnavailable)
	delete(tr.failures, "A-2")

	a1, err := e.GetIssue(context.Background(), "A-1")
	require.NoError(t, err)
	a2, err := e.GetIssue(context.Background(), "A-2")
	require.NoError(t, err)

	assert.Same(t, a1, a2.Parent())
	assert.Equal(t, []*entity.Issue{a2}, a1.Children())
	assertHierarchy(t, e.Store())
}

func TestDrain_FailedTargetLinksOnLaterBatch(t *testing.T) {
	t.Parallel()
	tr := newFakeTracker()
	tr.addIssue("A-1", "A", subtaskOf("A-2"))
	tr.addIssue("A-2", "A")
	tr.failures["A-2"] = statusErr(http.MethodGet, "/rest/issue", http.StatusServiceUnavailable)
	e := New(tr)

	_, err := e.GetIssue(context.Background(), "A-1")
	require.Error(t, err)
	delete(tr.failures, "A-2")

	issues, err := e.GetIssues(context.Background(), []string{"A-2"}, SearchOptions{})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	a1, _ := e.Store().Lookup("A-1")
	assert.Same(t, issues[0], a1.Parent())
}

func TestSearchIssues_ForwardsPagination(t *testing.T) {
	t.Parallel()
	tr := newFakeTracker()
	tr.addIssue("S-1", "S", parentFor("S-3"))
	tr.addIssue("S-2", "S")
	tr.addIssue("S-3", "S")
	tr.searches["project: S"] = []string{"S-1", "S-2"}
	e := New(tr)

	issues, err := e.SearchIssues(context.Background(), "project: S", SearchOptions{Max: 2, After: "10"})
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, "S-1", issues[0].ID)
	assert.Equal(t, "S-2", issues[1].ID)

	q := tr.queries[0]
	assert.Equal(t, "project: S", q.Get("filter"))
	assert.Equal(t, "2", q.Get("max"))
	assert.Equal(t, "10", q.Get("after"))

	require.Len(t, issues[0].Children(), 1)
	assert.Equal(t, "S-3", issues[0].Children()[0].ID)
}

func TestSearchIssues_NoPagination(t *testing.T) {
	t.Parallel()
	tr := newFakeTracker()
	e := New(tr)

	issues, err := e.SearchIssues(context.Background(), "State: Open", SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, issues)
	require.Len(t, tr.queries, 1)
	assert.False(t, tr.queries[0].Has("max"))
	assert.False(t, tr.queries[0].Has("after"))
}

func TestGetIssue_CanonicalIdentifier(t *testing.T) {
	t.Parallel()
	tr := newFakeTracker()
	tr.addIssue("PROJ-1", "PROJ")
	tr.issues["proj-1"] = tr.issues["PROJ-1"]
	e := New(tr)

	issue, err := e.GetIssue(context.Background(), "proj-1")
	require.NoError(t, err)
	require.NotNil(t, issue)
	assert.Equal(t, "PROJ-1", issue.ID)

	again, err := e.GetIssue(context.Background(), "proj-1")
	require.NoError(t, err)
	assert.Same(t, issue, again)
	canonical, err := e.GetIssue(context.Background(), "PROJ-1")
	require.NoError(t, err)
	assert.Same(t, issue, canonical)
	assert.Equal(t, 1, tr.issueFetches["proj-1"])
	assert.Zero(t, tr.issueFetches["PROJ-1"])
}

func TestEngines_SharedStore(t *testing.T) {
	t.Parallel()
	tr := newFakeTracker()
	tr.addIssue("PROJ-1", "PROJ", parentFor("PROJ-2"))
	tr.addIssue("PROJ-2", "PROJ")
	shared := store.New()

	first, err := New(tr, WithStore(shared)).GetIssue(context.Background(), "PROJ-1")
	require.NoError(t, err)
	second := New(tr, WithStore(shared))
	again, err := second.GetIssue(context.Background(), "PROJ-1")
	require.NoError(t, err)

	assert.Same(t, first, again)
	assert.Same(t, shared, second.Store())
	assert.Equal(t, 1, tr.issueFetches["PROJ-1"])
	assert.Equal(t, 1, tr.settingsFetches["PROJ"])
	require.Len(t, again.Children(), 1)
	assert.Equal(t, "PROJ-2", again.Children()[0].ID)
}

func TestEngines_DoNotShareState(t *testing.T) {
	t.Parallel()
	tr := newFakeTracker()
	tr.addIssue("PROJ-1", "PROJ")

	for i := 0; i < 2; i++ {
		_, err := New(tr).GetIssue(context.Background(), "PROJ-1")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, tr.issueFetches["PROJ-1"])
	assert.Equal(t, 2, tr.settingsFetches["PROJ"])
}

func TestGetIssue_ConcurrentCallersFetchOnce(t *testing.T) {
	t.Parallel()
	tr := newFakeTracker()
	tr.addIssue("PROJ-1", "PROJ", parentFor("PROJ-2"))
	tr.addIssue("PROJ-2", "PROJ")
	e := New(tr)

	var wg sync.WaitGroup
	results := make([]*entity.Issue, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			issue, err := e.GetIssue(context.Background(), "PROJ-1")
			assert.NoError(t, err)
			results[i] = issue
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Same(t, results[0], r)
	}
	assert.Equal(t, 1, tr.issueFetches["PROJ-1"])
	assert.Equal(t, 1, tr.issueFetches["PROJ-2"])
	assert.Equal(t, 1, tr.totalSettingsFetches())
}
