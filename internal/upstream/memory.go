package upstream

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saucierapp/saucier-server/internal/domain"
	"github.com/saucierapp/saucier-server/internal/errors"
)

// Memory is an in-memory recipe server. It backs the memory:// upstream URL
// for local development and doubles as the fake in tests: full draft
// semantics, version tokens, validation, and publish, with no network.
type Memory struct {
	mu        sync.Mutex
	version   string
	draft     domain.Draft
	managed   domain.Draft
	published time.Time
	publisher string
	refs      map[string][]domain.Ref

	// FailNextSave simulates another session winning the save race once.
	FailNextSave bool
}

// NewMemory seeds an in-memory recipe server with the given draft. A nil
// draft starts empty.
func NewMemory(draft domain.Draft) *Memory {
	draft = draft.Normalize()
	return &Memory{
		version: uuid.NewString(),
		draft:   draft,
		managed: draft.Clone(),
		refs: map[string][]domain.Ref{
			"foods": {
				{ID: "food-1", Name: "Basil"},
				{ID: "food-2", Name: "Garlic"},
			},
			"households": {
				{ID: "hh-1", Name: "Family"},
			},
		},
	}
}

// SetRefs replaces one lookup collection.
func (m *Memory) SetRefs(kind string, refs []domain.Ref) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refs[kind] = refs
}

// Version returns the current version token.
func (m *Memory) Version() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version
}

// Bump simulates another session saving: the draft version moves on and any
// token handed out before is no longer accepted.
func (m *Memory) Bump(mutate func(draft domain.Draft)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mutate != nil {
		mutate(m.draft)
	}
	m.draft = m.draft.Normalize()
	m.version = uuid.NewString()
}

func (m *Memory) snapshotLocked() *domain.Snapshot {
	meta := domain.Meta{
		DraftCounts:     map[domain.Resource]int{},
		ManagedCounts:   map[domain.Resource]int{},
		ChangedCounts:   map[domain.Resource]int{},
		LastPublishedAt: m.published,
		LastPublishedBy: m.publisher,
	}
	for _, r := range domain.Resources() {
		meta.DraftCounts[r] = len(m.draft[r])
		meta.ManagedCounts[r] = len(m.managed[r])
		if !domain.EntriesEqual(m.draft[r], m.managed[r]) {
			meta.ChangedCounts[r] = len(m.draft[r])
		}
	}
	return &domain.Snapshot{
		Version: m.version,
		Draft:   m.draft.Clone(),
		Managed: m.managed.Clone(),
		Meta:    meta,
	}
}

// LoadDraft returns the current snapshot.
func (m *Memory) LoadDraft(ctx context.Context) (*domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked(), nil
}

// SaveDraft merges the partial draft under optimistic concurrency and mints
// a new version token.
func (m *Memory) SaveDraft(ctx context.Context, version string, partial domain.Draft) (*domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailNextSave {
		m.FailNextSave = false
		m.version = uuid.NewString()
		return nil, errors.VersionConflict("draft was modified by another session")
	}
	if version != m.version {
		return nil, errors.VersionConflict("draft was modified by another session")
	}
	for r, entries := range partial {
		if !domain.ValidResource(r) {
			return nil, errors.Validationf("unknown resource %q", r)
		}
		m.draft[r] = entries
	}
	m.draft = m.draft.Normalize()
	m.version = uuid.NewString()
	return m.snapshotLocked(), nil
}

// ValidateDraft checks the saved draft: rows without names are errors,
// duplicate names within a resource are errors, everything else advisory.
func (m *Memory) ValidateDraft(ctx context.Context, version string) (*domain.ValidationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if version != m.version {
		return nil, errors.StaleVersion("validation requested for a superseded draft version")
	}

	result := &domain.ValidationResult{Version: version, CanPublish: true}
	for _, r := range domain.Resources() {
		for _, issue := range domain.EntryIssues(m.draft[r]) {
			var msg string
			switch issue.Kind {
			case domain.RowIssueMissingName:
				msg = "entry has no name"
			case domain.RowIssueDuplicateName:
				msg = "duplicate name " + strconv.Quote(issue.Name)
			default:
				msg = string(issue.Kind)
			}
			result.Errors = append(result.Errors, domain.Issue{Resource: r, Message: msg})
			result.CanPublish = false
		}
	}
	return result, nil
}

// PublishDraft promotes the draft to the managed taxonomy.
func (m *Memory) PublishDraft(ctx context.Context, version string) (*domain.PublishReceipt, *domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if version != m.version {
		return nil, nil, errors.StaleVersion("publish requested for a superseded draft version")
	}

	var changed []domain.Resource
	for _, r := range domain.Resources() {
		if !domain.EntriesEqual(m.draft[r], m.managed[r]) {
			changed = append(changed, r)
		}
	}

	m.managed = m.draft.Clone()
	m.published = time.Now().UTC()
	m.publisher = "saucier"
	m.version = uuid.NewString()

	receipt := &domain.PublishReceipt{
		ChangedResources: changed,
		PublishedAt:      m.published,
		PublishedBy:      m.publisher,
	}
	return receipt, m.snapshotLocked(), nil
}

// Lookup returns the seeded reference collection for kind.
func (m *Memory) Lookup(ctx context.Context, kind string) ([]domain.Ref, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	refs, ok := m.refs[kind]
	if !ok {
		return nil, errors.NotFoundf("unknown lookup kind %q", kind)
	}
	out := make([]domain.Ref, len(refs))
	copy(out, refs)
	return out, nil
}
