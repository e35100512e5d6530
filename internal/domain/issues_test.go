package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntryIssues_MissingName(t *testing.T) {
	entries := []Entry{
		{Name: "Dinner"},
		{Name: "   "},
		{Name: ""},
	}

	issues := EntryIssues(entries)

	assert.Equal(t, []RowIssue{
		{Index: 1, Kind: RowIssueMissingName},
		{Index: 2, Kind: RowIssueMissingName},
	}, issues)
}

func TestEntryIssues_DuplicatesAfterTrimAndFold(t *testing.T) {
	entries := []Entry{
		{Name: "Quick"},
		{Name: " quick "},
		{Name: "Slow"},
	}

	issues := EntryIssues(entries)

	assert.Equal(t, []RowIssue{
		{Index: 0, Kind: RowIssueDuplicateName, Name: "Quick"},
		{Index: 1, Kind: RowIssueDuplicateName, Name: " quick "},
	}, issues)
}

func TestEntryIssues_CleanEntries(t *testing.T) {
	entries := []Entry{
		{Name: "Dinner"},
		{Name: "Breakfast"},
	}

	assert.Empty(t, EntryIssues(entries))
}
