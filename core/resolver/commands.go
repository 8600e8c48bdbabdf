package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/opensdd/youtrack-core/core"
)

// CommandOptions tune ExecuteCommands.
type CommandOptions struct {
	Comment string
	// Group restricts the visibility of the comment.
	Group string
	// Silent disables notifications.
	Silent bool
	// RunAs executes the command on behalf of another user login.
	RunAs string
}

// ExecuteCommands applies tracker commands such as "State Fixed" to an issue.
func (e *Engine) ExecuteCommands(ctx context.Context, id string, commands []string, opts CommandOptions) error {
	if err := checkID(id); err != nil {
		return err
	}
	if len(commands) == 0 {
		return fmt.Errorf("commands cannot be empty")
	}
	form := url.Values{}
	form.Set("command", strings.Join(commands, " "))
	form.Set("comment", opts.Comment)
	form.Set("disableNotifications", strconv.FormatBool(opts.Silent))
	if opts.Group != "" {
		form.Set("group", opts.Group)
	}
	if opts.RunAs != "" {
		form.Set("runAs", opts.RunAs)
	}
	h := http.Header{}
	h.Set("Content-Type", "application/x-www-form-urlencoded")

	slog.Debug("Executing command", "id", id, "command", form.Get("command"))
	if err := e.transport.Post(ctx, issuePath(id)+"/execute", h, []byte(form.Encode()), nil); err != nil {
		return core.Remote(fmt.Sprintf("executeCommands(%s)", id), err)
	}
	return nil
}

type userRef struct {
	Login string `json:"login"`
}

type user struct {
	Login string `json:"login"`
	Email string `json:"email"`
}

// FindUserName returns the login of the user with the given email, or "" if
// there is none.
func (e *Engine) FindUserName(ctx context.Context, email string) (string, error) {
	var refs []userRef
	if err := e.transport.Get(ctx, "/rest/admin/user", url.Values{"q": {email}}, &refs); err != nil {
		return "", core.Remote("findUserName", err)
	}
	for _, ref := range refs {
		var u user
		if err := e.transport.Get(ctx, "/rest/admin/user/"+url.PathEscape(ref.Login), nil, &u); err != nil {
			return "", core.Remote("findUserName", err)
		}
		if strings.EqualFold(u.Email, email) {
			return u.Login, nil
		}
	}
	return "", nil
}
