// Package workspace implements the draft editing session: a working copy of
// the multi-resource taxonomy draft, derived dirtiness against the last
// server snapshot, and the version-gated save → validate → publish protocol.
package workspace

import (
	"context"
	"sync"

	"github.com/saucierapp/saucier-server/internal/domain"
	"github.com/saucierapp/saucier-server/internal/errors"
)

// Client is the upstream recipe-server surface the session depends on.
// Implementations must signal optimistic-concurrency failures with the
// errors.ErrVersionConflict / errors.ErrStaleVersion sentinels.
type Client interface {
	LoadDraft(ctx context.Context) (*domain.Snapshot, error)
	SaveDraft(ctx context.Context, version string, partial domain.Draft) (*domain.Snapshot, error)
	ValidateDraft(ctx context.Context, version string) (*domain.ValidationResult, error)
	PublishDraft(ctx context.Context, version string) (*domain.PublishReceipt, *domain.Snapshot, error)
}

// Workspace is one editing session over the taxonomy draft. The snapshot is
// the last state accepted from the server and is never mutated locally; the
// working draft is the edit buffer. Dirtiness is always recomputed, never
// stored.
//
// All methods are safe for concurrent use. Protocol operations (save,
// validate, publish, reload) are not reentrant: while one is in flight every
// other call is rejected with a Busy error rather than queued.
type Workspace struct {
	ID string

	mu         sync.Mutex
	client     Client
	snapshot   *domain.Snapshot
	working    domain.Draft
	validation *domain.ValidationResult

	busy string // in-flight protocol operation name, "" when idle
	// conflict is set when the last save lost the optimistic-concurrency
	// race; cleared by the next successful save or reload.
	conflict bool
	// publishedVersion is the snapshot version minted by the most recent
	// successful publish from this session.
	publishedVersion string
}

// New seeds a workspace from a freshly loaded snapshot.
func New(id string, snapshot *domain.Snapshot, client Client) *Workspace {
	snapshot.Draft = snapshot.Draft.Normalize()
	snapshot.Managed = snapshot.Managed.Normalize()
	return &Workspace{
		ID:       id,
		client:   client,
		snapshot: snapshot,
		working:  snapshot.Draft.Clone(),
	}
}

// Restore rebuilds a workspace from persisted state, e.g. after a server
// restart, keeping unsaved edits intact.
func Restore(id string, snapshot *domain.Snapshot, working domain.Draft, client Client) *Workspace {
	snapshot.Draft = snapshot.Draft.Normalize()
	snapshot.Managed = snapshot.Managed.Normalize()
	return &Workspace{
		ID:       id,
		client:   client,
		snapshot: snapshot,
		working:  working.Normalize(),
	}
}

// Snapshot returns the current server snapshot.
func (w *Workspace) Snapshot() *domain.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshot
}

// Working returns a deep copy of the working draft.
func (w *Workspace) Working() domain.Draft {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.working.Clone()
}

// Entries returns a deep copy of one resource's working entries.
func (w *Workspace) Entries(resource domain.Resource) ([]domain.Entry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !domain.ValidResource(resource) {
		return nil, errors.NotFoundf("unknown resource %q", resource)
	}
	entries := make([]domain.Entry, len(w.working[resource]))
	for i, e := range w.working[resource] {
		entries[i] = e.Clone()
	}
	return entries, nil
}

// Status is a point-in-time summary of the session state machine. States are
// not mutually exclusive: a session can be dirty and hold a stale validation
// at the same time.
type Status struct {
	Version           string                                 `json:"version"`
	States            []string                               `json:"states"`
	DirtyResources    []domain.Resource                      `json:"dirty_resources"`
	Conflict          bool                                   `json:"conflict"`
	Busy              string                                 `json:"busy,omitempty"`
	ValidationCurrent bool                                   `json:"validation_current"`
	CanPublish        bool                                   `json:"can_publish"`
	Validation        *domain.ValidationResult               `json:"validation,omitempty"`
	RowIssues         map[domain.Resource][]domain.RowIssue  `json:"row_issues,omitempty"`
	Meta              domain.Meta                            `json:"meta"`
}

// Status computes the current session summary.
func (w *Workspace) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()

	dirty := w.dirtyResourcesLocked()
	current := w.validationCurrentLocked()

	st := Status{
		Version:           w.snapshot.Version,
		DirtyResources:    dirty,
		Conflict:          w.conflict,
		Busy:              w.busy,
		ValidationCurrent: current,
		Validation:        w.validation,
		Meta:              w.snapshot.Meta,
		RowIssues:         w.rowIssuesLocked(),
	}

	if len(dirty) == 0 {
		st.States = append(st.States, "synced")
	} else {
		st.States = append(st.States, "dirty")
	}
	if w.busy != "" {
		st.States = append(st.States, w.busy)
	}
	switch {
	case w.validation == nil:
		// No validation state to report.
	case !current:
		st.States = append(st.States, "stale-validation")
	case w.validation.CanPublish:
		st.States = append(st.States, "valid")
		st.CanPublish = len(dirty) == 0
	default:
		st.States = append(st.States, "invalid")
	}
	if w.publishedVersion != "" && w.publishedVersion == w.snapshot.Version {
		st.States = append(st.States, "published")
	}

	return st
}

// rowIssuesLocked computes advisory flags for every resource with findings.
func (w *Workspace) rowIssuesLocked() map[domain.Resource][]domain.RowIssue {
	var issues map[domain.Resource][]domain.RowIssue
	for _, r := range domain.Resources() {
		if found := domain.EntryIssues(w.working[r]); len(found) > 0 {
			if issues == nil {
				issues = make(map[domain.Resource][]domain.RowIssue)
			}
			issues[r] = found
		}
	}
	return issues
}

// begin marks a protocol operation in flight, rejecting reentrant calls.
func (w *Workspace) begin(op string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy != "" {
		return errors.Busy("a " + w.busy + " is already in flight")
	}
	w.busy = op
	return nil
}

// end clears the in-flight marker.
func (w *Workspace) end() {
	w.mu.Lock()
	w.busy = ""
	w.mu.Unlock()
}
