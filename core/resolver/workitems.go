package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/opensdd/youtrack-core/core"
	"github.com/opensdd/youtrack-core/core/entity"
)

func workItemsPath(id string) string {
	return issuePath(id) + "/timetracking/workitem/"
}

type workItemPayload struct {
	ID          string `json:"id"`
	Date        int64  `json:"date"`
	Duration    int    `json:"duration"`
	Description string `json:"description"`
	URL         string `json:"url"`
	WorkType    *struct {
		Name string `json:"name"`
	} `json:"worktype"`
	Author *struct {
		Login string `json:"login"`
		URL   string `json:"url"`
	} `json:"author"`
}

func (p workItemPayload) toEntity() entity.WorkItem {
	w := entity.WorkItem{
		ID:       p.ID,
		Comment:  p.Description,
		Duration: p.Duration,
		Date:     p.Date,
		URL:      p.URL,
	}
	if p.WorkType != nil {
		w.Type = p.WorkType.Name
	}
	if p.Author != nil {
		w.AuthorName = p.Author.Login
		w.AuthorURL = p.Author.URL
	}
	return w
}

// WorkItems fetches the logged work of an issue.
func (e *Engine) WorkItems(ctx context.Context, id string) ([]entity.WorkItem, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	return e.fetchWorkItems(ctx, id)
}

func (e *Engine) fetchWorkItems(ctx context.Context, id string) ([]entity.WorkItem, error) {
	var payloads []workItemPayload
	if err := e.transport.Get(ctx, workItemsPath(id), nil, &payloads); err != nil {
		return nil, core.Remote(fmt.Sprintf("getWorkItems(%s)", id), err)
	}
	items := make([]entity.WorkItem, len(payloads))
	for i, p := range payloads {
		items[i] = p.toEntity()
	}
	return items, nil
}

// attachWorkItems loads work items for issues of time-tracked projects.
// A "tracking disabled" response counts as no work items; any other failure
// aborts the batch.
func (e *Engine) attachWorkItems(ctx context.Context, batch []parsed) error {
	for _, p := range batch {
		issue := p.issue
		if issue.Project == nil || !issue.Project.TimeTrackingEnabled() {
			continue
		}
		items, err := e.fetchWorkItems(ctx, issue.ID)
		if err != nil {
			if !e.trackingDisabled.Match(err) {
				return err
			}
			slog.Warn("Time tracking disabled for issue, skipping work items", "id", issue.ID, "project", issue.ProjectName())
			items = nil
		}
		issue.WorkItems = items
	}
	return nil
}

type newWorkItem struct {
	Date        int64  `json:"date"`
	Duration    int    `json:"duration"`
	Description string `json:"description,omitempty"`
	WorkType    *struct {
		Name string `json:"name"`
	} `json:"worktype,omitempty"`
}

// TrackTime logs minutes of work on an issue, dated now.
func (e *Engine) TrackTime(ctx context.Context, id string, minutes int, comment, workType string) error {
	if err := checkID(id); err != nil {
		return err
	}
	if minutes <= 0 {
		return fmt.Errorf("duration must be positive, got %d minutes", minutes)
	}
	item := newWorkItem{
		Date:        e.now().UnixMilli(),
		Duration:    minutes,
		Description: comment,
	}
	if workType != "" {
		item.WorkType = &struct {
			Name string `json:"name"`
		}{Name: workType}
	}
	body, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal work item: %w", err)
	}
	h := http.Header{}
	h.Set("Content-Type", "application/json")

	slog.Debug("Tracking time", "id", id, "minutes", minutes)
	if err := e.transport.Post(ctx, issuePath(id)+"/timetracking/workitem", h, body, nil); err != nil {
		return core.Remote(fmt.Sprintf("trackTime(%s)", id), err)
	}
	return nil
}
