package utils

import (
	"regexp"
	"strings"
)

// ReferencePrefix marks an issue mention in free text, e.g. "#PROJ-12".
const ReferencePrefix = "#"

const idPattern = `[a-zA-Z_]+-\d+`

var (
	idRegexp  = regexp.MustCompile(`^` + idPattern + `$`)
	refRegexp = regexp.MustCompile(`#(` + idPattern + `)`)
)

// Supports reports whether s is a bare issue identifier such as "PROJ-12".
func Supports(s string) bool {
	return idRegexp.MatchString(s)
}

// IsReference reports whether id is in the "#"-prefixed form used in free text.
func IsReference(id string) bool {
	return strings.HasPrefix(id, ReferencePrefix)
}

// FindIDs returns the bare identifiers of every "#ID" mention in text, in
// order of appearance and without duplicates.
func FindIDs(text string) []string {
	var ids []string
	seen := map[string]bool{}
	for _, m := range refRegexp.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			ids = append(ids, m[1])
		}
	}
	return ids
}
