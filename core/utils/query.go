package utils

import (
	"strings"

	"google.golang.org/protobuf/types/known/timestamppb"
)

// Filter describes an issue search. Zero fields are not constrained.
type Filter struct {
	Projects    []string
	CreatedFrom *timestamppb.Timestamp
	CreatedTo   *timestamppb.Timestamp
	UpdatedFrom *timestamppb.Timestamp
	UpdatedTo   *timestamppb.Timestamp
	// Query is appended verbatim, e.g. "State: Open".
	Query string
}

// IDsFilter builds the search filter selecting exactly ids.
func IDsFilter(ids []string) string {
	refs := make([]string, len(ids))
	for i, id := range ids {
		refs[i] = ReferencePrefix + id
	}
	return strings.Join(refs, " ")
}

// BuildFilter constructs a YouTrack search query from f.
func BuildFilter(f Filter) string {
	var clauses []string

	if len(f.Projects) > 0 {
		names := make([]string, len(f.Projects))
		for i, p := range f.Projects {
			names[i] = quoteValue(p)
		}
		clauses = append(clauses, "project: "+strings.Join(names, ", "))
	}
	if r := dateRange(f.CreatedFrom, f.CreatedTo); r != "" {
		clauses = append(clauses, "created: "+r)
	}
	if r := dateRange(f.UpdatedFrom, f.UpdatedTo); r != "" {
		clauses = append(clauses, "updated: "+r)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		clauses = append(clauses, q)
	}
	return strings.Join(clauses, " ")
}

func dateRange(from, to *timestamppb.Timestamp) string {
	if from == nil && to == nil {
		return ""
	}
	lo, hi := "1970-01-01", "Today"
	if from != nil {
		lo = formatDate(from)
	}
	if to != nil {
		hi = formatDate(to)
	}
	return lo + " .. " + hi
}

// formatDate formats a protobuf timestamp for YouTrack date queries.
func formatDate(ts *timestamppb.Timestamp) string {
	return ts.AsTime().UTC().Format("2006-01-02")
}

func quoteValue(v string) string {
	if strings.ContainsAny(v, " ,") {
		return "{" + v + "}"
	}
	return v
}
