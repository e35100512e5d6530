// Package domain contains the core types for the taxonomy draft workspace:
// the multi-resource draft document, cookbook ordering, and the snapshot
// metadata exchanged with the upstream recipe server.
package domain

import (
	"encoding/json/jsontext"
	"encoding/json/v2"
	"slices"
)

// Resource identifies one of the fixed draft resource collections.
type Resource string

// The closed set of draft resources. Membership is fixed; order within
// Resources() is the canonical enumeration order used for dirty reporting.
const (
	ResourceCategories  Resource = "categories"
	ResourceTags        Resource = "tags"
	ResourceLabels      Resource = "labels"
	ResourceTools       Resource = "tools"
	ResourceUnitAliases Resource = "units_aliases"
	ResourceCookbooks   Resource = "cookbooks"
)

// DefaultLabelColor is applied to label entries that arrive without a color.
const DefaultLabelColor = "#959595"

// resourceOrder is the canonical enumeration order.
var resourceOrder = []Resource{
	ResourceCategories,
	ResourceTags,
	ResourceLabels,
	ResourceTools,
	ResourceUnitAliases,
	ResourceCookbooks,
}

// Resources returns the fixed resource set in canonical order.
// The returned slice is a copy and safe to modify.
func Resources() []Resource {
	return slices.Clone(resourceOrder)
}

// ValidResource reports whether name is a member of the fixed resource set.
func ValidResource(name Resource) bool {
	return slices.Contains(resourceOrder, name)
}

// Entry is one row of a draft resource. The populated fields depend on the
// resource: plain taxonomy entries carry only Name; labels add Color; tools
// add OnHand; unit aliases add Aliases/Fraction/UseAbbreviation/Abbreviation;
// cookbooks add Description/Filter/Public/Position.
type Entry struct {
	Name            string   `json:"name"`
	Color           string   `json:"color,omitempty"`
	OnHand          bool     `json:"onHand,omitempty"`
	Aliases         []string `json:"aliases,omitempty"`
	Fraction        bool     `json:"fraction,omitempty"`
	UseAbbreviation bool     `json:"useAbbreviation,omitempty"`
	Abbreviation    string   `json:"abbreviation,omitempty"`
	Description     string   `json:"description,omitempty"`
	Filter          string   `json:"queryFilterString,omitempty"`
	Public          bool     `json:"public,omitempty"`
	Position        int      `json:"position,omitempty"`
}

// Clone returns a deep copy of the entry.
func (e Entry) Clone() Entry {
	c := e
	c.Aliases = slices.Clone(e.Aliases)
	return c
}

// Equal reports structural equality. Nil and empty alias lists compare equal
// so that a round-trip through JSON never flips dirtiness.
func (e Entry) Equal(other Entry) bool {
	return e.Name == other.Name &&
		e.Color == other.Color &&
		e.OnHand == other.OnHand &&
		slices.Equal(e.Aliases, other.Aliases) &&
		e.Fraction == other.Fraction &&
		e.UseAbbreviation == other.UseAbbreviation &&
		e.Abbreviation == other.Abbreviation &&
		e.Description == other.Description &&
		e.Filter == other.Filter &&
		e.Public == other.Public &&
		e.Position == other.Position
}

// EntriesEqual reports structural equality of two entry sequences,
// order-sensitively.
func EntriesEqual(a, b []Entry) bool {
	return slices.EqualFunc(a, b, Entry.Equal)
}

// Draft maps each resource to its ordered entry list. A normalized Draft
// always holds exactly the six fixed resource keys, each bound to a non-nil
// slice; use NewDraft or Normalize to establish that invariant.
type Draft map[Resource][]Entry

// NewDraft returns an empty draft with every resource present.
func NewDraft() Draft {
	d := make(Draft, len(resourceOrder))
	for _, r := range resourceOrder {
		d[r] = []Entry{}
	}
	return d
}

// Normalize coerces d into the fixed shape: every resource key present with a
// non-nil entry list, unknown keys dropped, and per-resource defaults applied.
// A nil receiver normalizes to an empty draft. Coercion never fails.
func (d Draft) Normalize() Draft {
	out := make(Draft, len(resourceOrder))
	for _, r := range resourceOrder {
		entries := d[r]
		if entries == nil {
			entries = []Entry{}
		}
		out[r] = applyDefaults(r, slices.Clone(entries))
	}
	return out
}

// applyDefaults fills per-resource fallback values in place.
func applyDefaults(r Resource, entries []Entry) []Entry {
	if r == ResourceLabels {
		for i := range entries {
			if entries[i].Color == "" {
				entries[i].Color = DefaultLabelColor
			}
		}
	}
	return entries
}

// Clone returns a deep copy of the draft.
func (d Draft) Clone() Draft {
	out := make(Draft, len(d))
	for r, entries := range d {
		cloned := make([]Entry, len(entries))
		for i, e := range entries {
			cloned[i] = e.Clone()
		}
		out[r] = cloned
	}
	return out
}

// UnmarshalJSON decodes a draft leniently: a raw value that is not an array
// of entries is coerced to an empty list, and a top-level value that is not an
// object yields an empty draft. Loading never fails on malformed shapes.
func (d *Draft) UnmarshalJSON(data []byte) error {
	var raw map[Resource]jsontext.Value
	if err := json.Unmarshal(data, &raw); err != nil {
		*d = NewDraft()
		return nil
	}

	out := make(Draft, len(resourceOrder))
	for _, r := range resourceOrder {
		entries := []Entry{}
		if msg, ok := raw[r]; ok {
			var list []Entry
			if err := json.Unmarshal(msg, &list); err == nil && list != nil {
				entries = list
			}
		}
		out[r] = applyDefaults(r, entries)
	}
	*d = out
	return nil
}

// DecodeEntries parses a raw JSON value into an entry list. Unlike draft
// loading this is strict: a value that is not an array is a shape failure,
// reported to the caller so the advanced edit path can refuse it.
func DecodeEntries(raw []byte) ([]Entry, error) {
	var list []Entry
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []Entry{}
	}
	return list, nil
}
