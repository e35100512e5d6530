package domain

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

// Advisory per-row validation. These flags are presentation hints for the
// dashboard and never block a save. Blocking validation happens server side
// during the validate step.

// RowIssueKind classifies an advisory row flag.
type RowIssueKind string

const (
	// RowIssueMissingName flags an entry whose name is empty or blank.
	RowIssueMissingName RowIssueKind = "missing_name"
	// RowIssueDuplicateName flags entries whose names collide after
	// trimming and case folding.
	RowIssueDuplicateName RowIssueKind = "duplicate"
)

// RowIssue is an advisory flag on a single entry.
type RowIssue struct {
	Index int          `json:"index"`
	Kind  RowIssueKind `json:"kind"`
	Name  string       `json:"name,omitempty"`
}

// EntryIssues computes advisory flags for a resource's entries: missing names
// and case-insensitive duplicates. Every entry in a duplicate group is
// flagged, including the first occurrence.
func EntryIssues(entries []Entry) []RowIssue {
	fold := cases.Fold()

	seen := make(map[string][]int, len(entries))
	var issues []RowIssue

	for i, e := range entries {
		trimmed := strings.TrimSpace(e.Name)
		if trimmed == "" {
			issues = append(issues, RowIssue{Index: i, Kind: RowIssueMissingName})
			continue
		}
		key := fold.String(trimmed)
		seen[key] = append(seen[key], i)
	}

	for _, indexes := range seen {
		if len(indexes) < 2 {
			continue
		}
		for _, i := range indexes {
			issues = append(issues, RowIssue{Index: i, Kind: RowIssueDuplicateName, Name: entries[i].Name})
		}
	}

	// Deterministic order for the UI.
	slices.SortFunc(issues, func(a, b RowIssue) int {
		if c := cmp.Compare(a.Index, b.Index); c != 0 {
			return c
		}
		return strings.Compare(string(a.Kind), string(b.Kind))
	})
	return issues
}
