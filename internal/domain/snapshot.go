package domain

import "time"

// Snapshot is the last draft state accepted from the upstream recipe server,
// together with its opaque version token and bookkeeping metadata. A Snapshot
// is never mutated locally; every successful save or publish replaces it
// wholesale. The version token is compared only for equality.
type Snapshot struct {
	Version string `json:"version"`
	Draft   Draft  `json:"draft"`
	Managed Draft  `json:"managed"`
	Meta    Meta   `json:"meta"`
}

// Meta carries per-resource counts and publish bookkeeping from the server.
type Meta struct {
	DraftCounts     map[Resource]int `json:"draft_counts,omitempty"`
	ManagedCounts   map[Resource]int `json:"managed_counts,omitempty"`
	ChangedCounts   map[Resource]int `json:"changed_counts,omitempty"`
	LastPublishedAt time.Time        `json:"last_published_at,omitzero"`
	LastPublishedBy string           `json:"last_published_by,omitempty"`
}

// Issue is one server-side validation finding.
type Issue struct {
	Resource Resource `json:"resource,omitempty"`
	Message  string   `json:"message"`
}

// ValidationResult is the outcome of a draft-wide server validation. It is
// current only while its Version equals the snapshot's version token; any
// save mints a new token and makes prior results stale.
type ValidationResult struct {
	Version    string  `json:"version"`
	CanPublish bool    `json:"can_publish"`
	Errors     []Issue `json:"errors,omitempty"`
	Warnings   []Issue `json:"warnings,omitempty"`
}

// PublishReceipt records a successful publish.
type PublishReceipt struct {
	ChangedResources []Resource `json:"changed_resources"`
	PublishedAt      time.Time  `json:"published_at"`
	PublishedBy      string     `json:"published_by"`
}

// Ref is an {id, name} pair from the advisory lookup service, used only to
// resolve filter-rule values to display names.
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
