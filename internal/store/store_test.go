package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saucierapp/saucier-server/internal/domain"
	"github.com/saucierapp/saucier-server/internal/errors"
	"github.com/saucierapp/saucier-server/internal/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), logger.NewDiscard().Logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	return s
}

func testRecord(id string) *SessionRecord {
	return &SessionRecord{
		ID: id,
		Snapshot: &domain.Snapshot{
			Version: "v1",
			Draft: domain.Draft{
				domain.ResourceTags: {{Name: "quick"}},
			}.Normalize(),
		},
		Working: domain.Draft{
			domain.ResourceTags: {{Name: "quick"}, {Name: "weeknight"}},
		}.Normalize(),
	}
}

func TestSessionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := testRecord("ws-1")
	require.NoError(t, s.SaveSession(ctx, rec))
	assert.False(t, rec.CreatedAt.IsZero())
	assert.False(t, rec.UpdatedAt.IsZero())

	loaded, err := s.GetSession(ctx, "ws-1")
	require.NoError(t, err)
	assert.Equal(t, "v1", loaded.Snapshot.Version)
	assert.True(t, domain.EntriesEqual(rec.Working[domain.ResourceTags], loaded.Working[domain.ResourceTags]))
}

func TestGetSessionNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetSession(context.Background(), "missing")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestSaveSessionOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := testRecord("ws-1")
	require.NoError(t, s.SaveSession(ctx, rec))

	rec.Snapshot.Version = "v2"
	require.NoError(t, s.SaveSession(ctx, rec))

	loaded, err := s.GetSession(ctx, "ws-1")
	require.NoError(t, err)
	assert.Equal(t, "v2", loaded.Snapshot.Version)
}

func TestActiveSessionPointer(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.ActiveSessionID()
	require.NoError(t, err)
	assert.Empty(t, id, "fresh store has no active session")

	require.NoError(t, s.SaveSession(ctx, testRecord("ws-1")))
	require.NoError(t, s.SetActiveSessionID("ws-1"))

	id, err = s.ActiveSessionID()
	require.NoError(t, err)
	assert.Equal(t, "ws-1", id)

	require.NoError(t, s.DeleteSession(ctx, "ws-1"))
	id, err = s.ActiveSessionID()
	require.NoError(t, err)
	assert.Empty(t, id, "deleting the active session clears the pointer")
}

func TestListSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSession(ctx, testRecord("ws-1")))
	require.NoError(t, s.SaveSession(ctx, testRecord("ws-2")))
	require.NoError(t, s.SetActiveSessionID("ws-1"))

	var ids []string
	for rec, err := range s.Sessions.List(ctx) {
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}
	assert.ElementsMatch(t, []string{"ws-1", "ws-2"}, ids,
		"the active pointer must not leak into the session listing")
}

func TestCreateSessionRejectsReusedID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := testRecord("ws-1")
	require.NoError(t, s.CreateSession(ctx, rec))
	assert.False(t, rec.CreatedAt.IsZero())
	assert.False(t, rec.UpdatedAt.IsZero())

	err := s.CreateSession(ctx, testRecord("ws-1"))
	assert.ErrorIs(t, err, errors.ErrConflict)
}

func TestEntityCreateConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Sessions.Create(ctx, "ws-1", testRecord("ws-1")))
	err := s.Sessions.Create(ctx, "ws-1", testRecord("ws-1"))
	assert.ErrorIs(t, err, errors.ErrConflict)
}
