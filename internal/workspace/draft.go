package workspace

import (
	"github.com/saucierapp/saucier-server/internal/domain"
	"github.com/saucierapp/saucier-server/internal/errors"
)

// Mutate applies an edit to one resource of the working draft. The editor
// receives a deep copy of the current entries and returns the replacement
// slice; the original working draft is swapped only after the editor returns,
// so a panicking or failing editor never leaves a half-applied state.
// Any mutation invalidates a held validation result.
func (w *Workspace) Mutate(resource domain.Resource, edit func(entries []domain.Entry) ([]domain.Entry, error)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !domain.ValidResource(resource) {
		return errors.NotFoundf("unknown resource %q", resource)
	}
	if w.busy != "" {
		return errors.Busy("a " + w.busy + " is already in flight")
	}

	entries := make([]domain.Entry, len(w.working[resource]))
	for i, e := range w.working[resource] {
		entries[i] = e.Clone()
	}
	next, err := edit(entries)
	if err != nil {
		return err
	}
	if next == nil {
		next = []domain.Entry{}
	}
	w.working[resource] = next
	w.validation = nil
	return nil
}

// ReplaceEntries swaps one resource's working entries wholesale.
func (w *Workspace) ReplaceEntries(resource domain.Resource, entries []domain.Entry) error {
	return w.Mutate(resource, func([]domain.Entry) ([]domain.Entry, error) {
		next := make([]domain.Entry, len(entries))
		for i, e := range entries {
			next[i] = e.Clone()
		}
		return next, nil
	})
}

// ApplyBulkReplace replaces one resource's entries from raw JSON, e.g. a
// paste of an exported array. The payload must decode to an entry array;
// anything else is rejected with a shape error and the draft is untouched.
func (w *Workspace) ApplyBulkReplace(resource domain.Resource, raw []byte) error {
	entries, err := domain.DecodeEntries(raw)
	if err != nil {
		return errors.Wrap(err, errors.CodeShape, "entries must be a JSON array")
	}
	return w.Mutate(resource, func([]domain.Entry) ([]domain.Entry, error) {
		return entries, nil
	})
}

// Discard resets one resource's working entries back to the snapshot.
func (w *Workspace) Discard(resource domain.Resource) error {
	return w.Mutate(resource, func([]domain.Entry) ([]domain.Entry, error) {
		snap := w.snapshot.Draft[resource]
		next := make([]domain.Entry, len(snap))
		for i, e := range snap {
			next[i] = e.Clone()
		}
		return next, nil
	})
}

// Dirty reports whether one resource's working entries differ structurally
// from the snapshot.
func (w *Workspace) Dirty(resource domain.Resource) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !domain.ValidResource(resource) {
		return false, errors.NotFoundf("unknown resource %q", resource)
	}
	return !domain.EntriesEqual(w.working[resource], w.snapshot.Draft[resource]), nil
}

// DirtyResources lists every resource whose working entries differ from the
// snapshot, in canonical resource order.
func (w *Workspace) DirtyResources() []domain.Resource {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dirtyResourcesLocked()
}

func (w *Workspace) dirtyResourcesLocked() []domain.Resource {
	var dirty []domain.Resource
	for _, r := range domain.Resources() {
		if !domain.EntriesEqual(w.working[r], w.snapshot.Draft[r]) {
			dirty = append(dirty, r)
		}
	}
	return dirty
}

func (w *Workspace) validationCurrentLocked() bool {
	return w.validation != nil && w.validation.Version == w.snapshot.Version
}
