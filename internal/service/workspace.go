// Package service provides the business logic layer between the HTTP API,
// the local session store, and the upstream recipe server.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/saucierapp/saucier-server/internal/domain"
	"github.com/saucierapp/saucier-server/internal/errors"
	"github.com/saucierapp/saucier-server/internal/id"
	"github.com/saucierapp/saucier-server/internal/store"
	"github.com/saucierapp/saucier-server/internal/workspace"
)

// UpstreamClient is everything the service needs from the recipe server: the
// draft protocol plus the advisory name lookup.
type UpstreamClient interface {
	workspace.Client
	Lookup(ctx context.Context, kind string) ([]domain.Ref, error)
}

// WorkspaceService owns the live workspace sessions. Every mutation is
// persisted to the session store, so unsaved edits survive a restart.
type WorkspaceService struct {
	store  *store.Store
	client UpstreamClient
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*workspace.Workspace
}

// NewWorkspaceService creates a new workspace service.
func NewWorkspaceService(store *store.Store, client UpstreamClient, logger *slog.Logger) *WorkspaceService {
	return &WorkspaceService{
		store:    store,
		client:   client,
		logger:   logger,
		sessions: make(map[string]*workspace.Workspace),
	}
}

// OpenWorkspace resumes the persisted active session when one exists,
// otherwise it loads a fresh snapshot from the recipe server and starts a new
// session around it.
func (s *WorkspaceService) OpenWorkspace(ctx context.Context) (*workspace.Workspace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if ws, err := s.resume(ctx); err != nil {
		s.logger.Warn("could not resume persisted session, starting fresh", "error", err)
	} else if ws != nil {
		return ws, nil
	}

	snap, err := s.client.LoadDraft(ctx)
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}

	wsID, err := id.Generate("ws")
	if err != nil {
		return nil, fmt.Errorf("generate workspace ID: %w", err)
	}

	ws := workspace.New(wsID, snap, s.client)
	s.mu.Lock()
	s.sessions[wsID] = ws
	s.mu.Unlock()

	rec := &store.SessionRecord{
		ID:       ws.ID,
		Snapshot: ws.Snapshot(),
		Working:  ws.Working(),
	}
	if err := s.store.CreateSession(ctx, rec); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	if err := s.store.SetActiveSessionID(wsID); err != nil {
		return nil, fmt.Errorf("set active session: %w", err)
	}
	s.pruneStaleSessions(ctx, wsID)

	s.logger.Info("workspace opened", "workspace_id", wsID, "version", snap.Version)
	return ws, nil
}

// pruneStaleSessions drops persisted session records left behind by earlier
// opens. Only the session just created stays; pruning is best effort and
// never fails the open.
func (s *WorkspaceService) pruneStaleSessions(ctx context.Context, keep string) {
	for rec, err := range s.store.Sessions.List(ctx) {
		if err != nil {
			s.logger.Warn("session prune aborted", "error", err)
			return
		}
		if rec.ID == keep {
			continue
		}
		if err := s.store.DeleteSession(ctx, rec.ID); err != nil {
			s.logger.Warn("could not prune session", "session_id", rec.ID, "error", err)
			continue
		}
		s.logger.Info("pruned stale session", "session_id", rec.ID)
	}
}

// CloseWorkspace tears down a session: the live state is dropped and the
// autosaved record is removed. Closing the resumable session clears the
// resume pointer, so the next open starts from a fresh snapshot.
func (s *WorkspaceService) CloseWorkspace(ctx context.Context, wsID string) error {
	if _, err := s.GetWorkspace(ctx, wsID); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.sessions, wsID)
	s.mu.Unlock()

	if err := s.store.DeleteSession(ctx, wsID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	s.logger.Info("workspace closed", "workspace_id", wsID)
	return nil
}

// resume rebuilds the active session from the store. A nil workspace with a
// nil error means there is nothing to resume.
func (s *WorkspaceService) resume(ctx context.Context) (*workspace.Workspace, error) {
	active, err := s.store.ActiveSessionID()
	if err != nil || active == "" {
		return nil, err
	}

	s.mu.Lock()
	if ws, ok := s.sessions[active]; ok {
		s.mu.Unlock()
		return ws, nil
	}
	s.mu.Unlock()

	rec, err := s.store.GetSession(ctx, active)
	if err != nil {
		return nil, err
	}

	ws := workspace.Restore(rec.ID, rec.Snapshot, rec.Working, s.client)
	s.mu.Lock()
	s.sessions[rec.ID] = ws
	s.mu.Unlock()

	s.logger.Info("workspace resumed", "workspace_id", rec.ID,
		"version", rec.Snapshot.Version, "dirty", ws.DirtyResources())
	return ws, nil
}

// GetWorkspace returns a live session by ID, rehydrating it from the store if
// the process restarted since it was opened.
func (s *WorkspaceService) GetWorkspace(ctx context.Context, wsID string) (*workspace.Workspace, error) {
	s.mu.Lock()
	if ws, ok := s.sessions[wsID]; ok {
		s.mu.Unlock()
		return ws, nil
	}
	s.mu.Unlock()

	rec, err := s.store.GetSession(ctx, wsID)
	if err != nil {
		return nil, err
	}

	ws := workspace.Restore(rec.ID, rec.Snapshot, rec.Working, s.client)
	s.mu.Lock()
	s.sessions[rec.ID] = ws
	s.mu.Unlock()
	return ws, nil
}

// persist writes the session's current snapshot and working draft to the
// store. Persistence failures are surfaced; losing the autosave silently
// would defeat its purpose.
func (s *WorkspaceService) persist(ctx context.Context, ws *workspace.Workspace) error {
	rec := &store.SessionRecord{
		ID:       ws.ID,
		Snapshot: ws.Snapshot(),
		Working:  ws.Working(),
	}
	if err := s.store.SaveSession(ctx, rec); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// Status reports the session state: dirty resources, validation currency,
// advisory row issues, and server metadata.
func (s *WorkspaceService) Status(ctx context.Context, wsID string) (workspace.Status, error) {
	ws, err := s.GetWorkspace(ctx, wsID)
	if err != nil {
		return workspace.Status{}, err
	}
	return ws.Status(), nil
}

// Working returns the session's full working draft.
func (s *WorkspaceService) Working(ctx context.Context, wsID string) (domain.Draft, error) {
	ws, err := s.GetWorkspace(ctx, wsID)
	if err != nil {
		return nil, err
	}
	return ws.Working(), nil
}

// ReplaceEntries swaps one resource's working entries wholesale.
func (s *WorkspaceService) ReplaceEntries(ctx context.Context, wsID string, resource domain.Resource, entries []domain.Entry) (workspace.Status, error) {
	return s.edit(ctx, wsID, func(ws *workspace.Workspace) error {
		return ws.ReplaceEntries(resource, entries)
	})
}

// BulkReplace replaces one resource's entries from raw JSON text.
func (s *WorkspaceService) BulkReplace(ctx context.Context, wsID string, resource domain.Resource, raw []byte) (workspace.Status, error) {
	return s.edit(ctx, wsID, func(ws *workspace.Workspace) error {
		return ws.ApplyBulkReplace(resource, raw)
	})
}

// Discard resets one resource back to the snapshot.
func (s *WorkspaceService) Discard(ctx context.Context, wsID string, resource domain.Resource) (workspace.Status, error) {
	return s.edit(ctx, wsID, func(ws *workspace.Workspace) error {
		return ws.Discard(resource)
	})
}

// AddCookbook appends a cookbook at the end of the shelf.
func (s *WorkspaceService) AddCookbook(ctx context.Context, wsID string, entry domain.Entry) (workspace.Status, error) {
	return s.edit(ctx, wsID, func(ws *workspace.Workspace) error {
		return ws.AppendCookbook(entry)
	})
}

// MoveCookbook moves a cookbook between display ranks. Moves against a
// filtered view are refused.
func (s *WorkspaceService) MoveCookbook(ctx context.Context, wsID string, from, to int, query string) (workspace.Status, error) {
	return s.edit(ctx, wsID, func(ws *workspace.Workspace) error {
		return ws.MoveCookbook(from, to, query)
	})
}

// edit runs one mutation against a session and autosaves the result.
func (s *WorkspaceService) edit(ctx context.Context, wsID string, apply func(*workspace.Workspace) error) (workspace.Status, error) {
	ws, err := s.GetWorkspace(ctx, wsID)
	if err != nil {
		return workspace.Status{}, err
	}
	if err := apply(ws); err != nil {
		return workspace.Status{}, err
	}
	if err := s.persist(ctx, ws); err != nil {
		return workspace.Status{}, err
	}
	return ws.Status(), nil
}

// Save pushes dirty (or explicitly listed) resources to the recipe server.
// The session is persisted even when the save fails: a version conflict
// refreshes the snapshot and that refresh must survive a restart too.
func (s *WorkspaceService) Save(ctx context.Context, wsID string, resources []domain.Resource) (workspace.Status, error) {
	ws, err := s.GetWorkspace(ctx, wsID)
	if err != nil {
		return workspace.Status{}, err
	}

	_, saveErr := ws.Save(ctx, resources)
	if perr := s.persist(ctx, ws); perr != nil && saveErr == nil {
		return workspace.Status{}, perr
	}
	if saveErr != nil {
		s.logger.Warn("save failed", "workspace_id", wsID, "error", saveErr)
		return workspace.Status{}, saveErr
	}

	s.logger.Info("draft saved", "workspace_id", wsID, "version", ws.Snapshot().Version)
	return ws.Status(), nil
}

// Validate runs the server-side draft validation.
func (s *WorkspaceService) Validate(ctx context.Context, wsID string) (*domain.ValidationResult, error) {
	ws, err := s.GetWorkspace(ctx, wsID)
	if err != nil {
		return nil, err
	}

	result, err := ws.Validate(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.Info("draft validated", "workspace_id", wsID,
		"version", result.Version, "can_publish", result.CanPublish,
		"errors", len(result.Errors), "warnings", len(result.Warnings))
	return result, nil
}

// Publish commits the validated draft to the live taxonomy.
func (s *WorkspaceService) Publish(ctx context.Context, wsID string) (*domain.PublishReceipt, error) {
	ws, err := s.GetWorkspace(ctx, wsID)
	if err != nil {
		return nil, err
	}

	receipt, err := ws.Publish(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, ws); err != nil {
		return nil, err
	}

	s.logger.Info("draft published", "workspace_id", wsID,
		"changed", receipt.ChangedResources, "published_at", receipt.PublishedAt)
	return receipt, nil
}

// Reload drops the session state and reseeds it from the recipe server.
func (s *WorkspaceService) Reload(ctx context.Context, wsID string) (workspace.Status, error) {
	ws, err := s.GetWorkspace(ctx, wsID)
	if err != nil {
		return workspace.Status{}, err
	}

	if _, err := ws.Reload(ctx); err != nil {
		return workspace.Status{}, err
	}
	if err := s.persist(ctx, ws); err != nil {
		return workspace.Status{}, err
	}

	s.logger.Info("workspace reloaded", "workspace_id", wsID, "version", ws.Snapshot().Version)
	return ws.Status(), nil
}

// Lookup resolves an advisory reference collection from the recipe server.
func (s *WorkspaceService) Lookup(ctx context.Context, kind string) ([]domain.Ref, error) {
	if kind == "" {
		return nil, errors.Validation("lookup kind is required")
	}
	return s.client.Lookup(ctx, kind)
}
