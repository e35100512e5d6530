package store

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/saucierapp/saucier-server/internal/domain"
)

// activeSessionKey holds the ID of the session the dashboard resumes on
// startup. It lives outside the session: prefix so iteration never sees it.
const activeSessionKey = "active-session"

// SessionRecord is the persisted form of a workspace session: the last
// accepted snapshot plus the working draft, so unsaved edits survive a
// restart. Validation results are deliberately not persisted; they are cheap
// to re-request and stale ones must never gate a publish.
type SessionRecord struct {
	ID        string           `json:"id"`
	Snapshot  *domain.Snapshot `json:"snapshot"`
	Working   domain.Draft     `json:"working"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// CreateSession stores a brand-new session record. A reused ID is a
// conflict, which would mean the ID generator handed out a duplicate.
func (s *Store) CreateSession(ctx context.Context, record *SessionRecord) error {
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now
	return s.Sessions.Create(ctx, record.ID, record)
}

// SaveSession upserts a session record, stamping UpdatedAt.
func (s *Store) SaveSession(ctx context.Context, record *SessionRecord) error {
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	return s.Sessions.Put(ctx, record.ID, record)
}

// GetSession loads one session record.
func (s *Store) GetSession(ctx context.Context, id string) (*SessionRecord, error) {
	return s.Sessions.Get(ctx, id)
}

// DeleteSession removes a session record. The active pointer is cleared when
// it referenced the deleted session.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if err := s.Sessions.Delete(ctx, id); err != nil {
		return err
	}
	active, err := s.ActiveSessionID()
	if err != nil || active != id {
		return nil
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(activeSessionKey))
	})
}

// SetActiveSessionID records which session the dashboard resumes on startup.
func (s *Store) SetActiveSessionID(id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(activeSessionKey), []byte(id))
	})
}

// ActiveSessionID returns the resumable session ID, or "" when none is set.
func (s *Store) ActiveSessionID() (string, error) {
	var id string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(activeSessionKey))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id = string(val)
			return nil
		})
	})
	return id, err
}
