package workspace

import (
	"context"
	stderrors "errors"

	"github.com/saucierapp/saucier-server/internal/domain"
	"github.com/saucierapp/saucier-server/internal/errors"
)

// Save pushes dirty working entries to the server under the snapshot version
// token. With no explicit resources the dirty set is saved; with an explicit
// list only those resources are sent, leaving other unsaved edits in place.
//
// On a version conflict the snapshot is reloaded from the server so the next
// attempt carries a current token, but the working draft is kept: losing the
// optimistic-concurrency race must never lose local edits.
func (w *Workspace) Save(ctx context.Context, resources []domain.Resource) (*domain.Snapshot, error) {
	if err := w.begin("saving"); err != nil {
		return nil, err
	}
	defer w.end()

	w.mu.Lock()
	if len(resources) == 0 {
		resources = w.dirtyResourcesLocked()
	}
	if len(resources) == 0 {
		snap := w.snapshot
		w.mu.Unlock()
		return snap, nil
	}
	partial := domain.Draft{}
	for _, r := range resources {
		if !domain.ValidResource(r) {
			w.mu.Unlock()
			return nil, errors.NotFoundf("unknown resource %q", r)
		}
		entries := make([]domain.Entry, len(w.working[r]))
		for i, e := range w.working[r] {
			entries[i] = e.Clone()
		}
		partial[r] = entries
	}
	version := w.snapshot.Version
	w.mu.Unlock()

	snap, err := w.client.SaveDraft(ctx, version, partial)
	if err != nil {
		if stderrors.Is(err, errors.ErrVersionConflict) {
			w.recoverConflict(ctx)
			return nil, err
		}
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	snap.Draft = snap.Draft.Normalize()
	snap.Managed = snap.Managed.Normalize()
	w.snapshot = snap
	// Adopt the server's normalization of what we just sent so the saved
	// resources read back clean; untouched resources keep their edits.
	for _, r := range resources {
		entries := make([]domain.Entry, len(snap.Draft[r]))
		for i, e := range snap.Draft[r] {
			entries[i] = e.Clone()
		}
		w.working[r] = entries
	}
	w.validation = nil
	w.conflict = false
	return snap, nil
}

// Validate asks the server to check the saved draft under the current version
// token. Validation only ever speaks about saved state, so it is refused
// while any resource is dirty.
func (w *Workspace) Validate(ctx context.Context) (*domain.ValidationResult, error) {
	if err := w.begin("validating"); err != nil {
		return nil, err
	}
	defer w.end()

	w.mu.Lock()
	if dirty := w.dirtyResourcesLocked(); len(dirty) > 0 {
		w.mu.Unlock()
		return nil, errors.Validationf("unsaved changes in %v; save before validating", dirty)
	}
	version := w.snapshot.Version
	w.mu.Unlock()

	result, err := w.client.ValidateDraft(ctx, version)
	if err != nil {
		if stderrors.Is(err, errors.ErrStaleVersion) || stderrors.Is(err, errors.ErrVersionConflict) {
			w.recoverConflict(ctx)
		}
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.validation = result
	return result, nil
}

// Publish commits the saved draft to the live taxonomy. It requires a clean
// working draft and a passing validation result for the exact snapshot
// version; any shortfall is a local precondition failure and the server is
// never contacted.
func (w *Workspace) Publish(ctx context.Context) (*domain.PublishReceipt, error) {
	if err := w.begin("publishing"); err != nil {
		return nil, err
	}
	defer w.end()

	w.mu.Lock()
	if dirty := w.dirtyResourcesLocked(); len(dirty) > 0 {
		w.mu.Unlock()
		return nil, errors.ValidationRequired("unsaved changes; save and validate before publishing")
	}
	switch {
	case w.validation == nil:
		w.mu.Unlock()
		return nil, errors.ValidationRequired("no validation result; validate before publishing")
	case !w.validationCurrentLocked():
		w.mu.Unlock()
		return nil, errors.ValidationRequired("validation result is stale; validate again before publishing")
	case !w.validation.CanPublish:
		w.mu.Unlock()
		return nil, errors.ValidationRequired("validation reported errors; fix them before publishing")
	}
	version := w.snapshot.Version
	w.mu.Unlock()

	receipt, snap, err := w.client.PublishDraft(ctx, version)
	if err != nil {
		if stderrors.Is(err, errors.ErrStaleVersion) || stderrors.Is(err, errors.ErrVersionConflict) {
			w.recoverConflict(ctx)
		}
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	snap.Draft = snap.Draft.Normalize()
	snap.Managed = snap.Managed.Normalize()
	w.snapshot = snap
	w.working = snap.Draft.Clone()
	w.validation = nil
	w.publishedVersion = snap.Version
	return receipt, nil
}

// Reload throws away the session state and reseeds it from the server,
// working draft included. Unsaved edits are lost; callers own the confirm.
func (w *Workspace) Reload(ctx context.Context) (*domain.Snapshot, error) {
	if err := w.begin("reloading"); err != nil {
		return nil, err
	}
	defer w.end()

	snap, err := w.client.LoadDraft(ctx)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	snap.Draft = snap.Draft.Normalize()
	snap.Managed = snap.Managed.Normalize()
	w.snapshot = snap
	w.working = snap.Draft.Clone()
	w.validation = nil
	w.conflict = false
	return snap, nil
}

// recoverConflict refreshes the snapshot after the server rejected our
// version token. The working draft is deliberately left alone: the caller
// keeps their edits and decides what to resave. A failed refresh leaves the
// conflict marker set so the status surface can prompt a manual reload.
func (w *Workspace) recoverConflict(ctx context.Context) {
	w.mu.Lock()
	w.conflict = true
	w.validation = nil
	w.mu.Unlock()

	snap, err := w.client.LoadDraft(ctx)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	snap.Draft = snap.Draft.Normalize()
	snap.Managed = snap.Managed.Normalize()
	w.snapshot = snap
}
