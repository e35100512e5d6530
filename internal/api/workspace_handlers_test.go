package api

import (
	"encoding/json/v2"
	"net/http"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saucierapp/saucier-server/internal/domain"
	"github.com/saucierapp/saucier-server/internal/errors"
	"github.com/saucierapp/saucier-server/internal/logger"
	"github.com/saucierapp/saucier-server/internal/service"
	"github.com/saucierapp/saucier-server/internal/store"
	"github.com/saucierapp/saucier-server/internal/upstream"
)

type testServer struct {
	api      humatest.TestAPI
	upstream *upstream.Memory
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := store.New(t.TempDir(), logger.NewDiscard().Logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, st.Close())
	})

	server := upstream.NewMemory(domain.Draft{
		domain.ResourceCategories: {{Name: "Dinner"}},
		domain.ResourceTags:       {{Name: "quick"}},
	})
	svc := service.NewWorkspaceService(st, server, logger.NewDiscard().Logger)
	s := NewServer(svc, logger.NewDiscard().Logger)

	return &testServer{
		api:      humatest.Wrap(t, s.api),
		upstream: server,
	}
}

// openWorkspace opens (or resumes) the session and returns its ID.
func (ts *testServer) openWorkspace(t *testing.T) string {
	t.Helper()

	resp := ts.api.Post("/api/v1/workspaces")
	require.Equal(t, http.StatusOK, resp.Code, "open failed: %s", resp.Body.String())

	var state WorkspaceStateResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &state))
	require.NotEmpty(t, state.ID)
	return state.ID
}

func decodeState(t *testing.T, body []byte) WorkspaceStateResponse {
	t.Helper()
	var state WorkspaceStateResponse
	require.NoError(t, json.Unmarshal(body, &state))
	return state
}

func decodeAPIError(t *testing.T, body []byte) APIError {
	t.Helper()
	var apiErr APIError
	require.NoError(t, json.Unmarshal(body, &apiErr))
	return apiErr
}

func TestOpenAndGetWorkspace(t *testing.T) {
	ts := newTestServer(t)
	wsID := ts.openWorkspace(t)

	resp := ts.api.Get("/api/v1/workspaces/" + wsID)
	require.Equal(t, http.StatusOK, resp.Code)

	state := decodeState(t, resp.Body.Bytes())
	assert.Equal(t, wsID, state.ID)
	assert.Contains(t, state.Status.States, "synced")
	assert.Len(t, state.Working, 6, "working draft always carries all six resources")
	require.Len(t, state.Working[domain.ResourceTags], 1)
	assert.Equal(t, "quick", state.Working[domain.ResourceTags][0].Name)
}

func TestGetWorkspaceNotFound(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.api.Get("/api/v1/workspaces/ws-missing")
	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, string(errors.CodeNotFound), decodeAPIError(t, resp.Body.Bytes()).Code)
}

func TestCloseWorkspace(t *testing.T) {
	ts := newTestServer(t)
	wsID := ts.openWorkspace(t)

	resp := ts.api.Delete("/api/v1/workspaces/" + wsID)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = ts.api.Get("/api/v1/workspaces/" + wsID)
	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, string(errors.CodeNotFound), decodeAPIError(t, resp.Body.Bytes()).Code)
}

func TestReplaceResourceMarksDirty(t *testing.T) {
	ts := newTestServer(t)
	wsID := ts.openWorkspace(t)

	resp := ts.api.Put("/api/v1/workspaces/"+wsID+"/resources/tags", map[string]any{
		"entries": []map[string]any{{"name": "weeknight"}},
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	state := decodeState(t, resp.Body.Bytes())
	assert.Equal(t, []domain.Resource{domain.ResourceTags}, state.Status.DirtyResources)
}

func TestReplaceUnknownResource(t *testing.T) {
	ts := newTestServer(t)
	wsID := ts.openWorkspace(t)

	resp := ts.api.Put("/api/v1/workspaces/"+wsID+"/resources/soups", map[string]any{
		"entries": []map[string]any{{"name": "gazpacho"}},
	})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestRawReplaceRejectsNonArray(t *testing.T) {
	ts := newTestServer(t)
	wsID := ts.openWorkspace(t)

	resp := ts.api.Put("/api/v1/workspaces/"+wsID+"/resources/labels/raw",
		"Content-Type: application/json",
		strings.NewReader(`{"name":"Pantry"}`))
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, string(errors.CodeShape), decodeAPIError(t, resp.Body.Bytes()).Code)

	// The session stays clean.
	get := ts.api.Get("/api/v1/workspaces/" + wsID)
	state := decodeState(t, get.Body.Bytes())
	assert.Empty(t, state.Status.DirtyResources)
}

func TestRawReplaceAppliesDefaults(t *testing.T) {
	ts := newTestServer(t)
	wsID := ts.openWorkspace(t)

	resp := ts.api.Put("/api/v1/workspaces/"+wsID+"/resources/labels/raw",
		"Content-Type: application/json",
		strings.NewReader(`[{"name":"Pantry"}]`))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	get := ts.api.Get("/api/v1/workspaces/" + wsID)
	state := decodeState(t, get.Body.Bytes())
	require.Len(t, state.Working[domain.ResourceLabels], 1)
	assert.Equal(t, domain.DefaultLabelColor, state.Working[domain.ResourceLabels][0].Color)
}

func TestDiscardResource(t *testing.T) {
	ts := newTestServer(t)
	wsID := ts.openWorkspace(t)

	resp := ts.api.Put("/api/v1/workspaces/"+wsID+"/resources/tags", map[string]any{
		"entries": []map[string]any{{"name": "weeknight"}},
	})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Post("/api/v1/workspaces/" + wsID + "/resources/tags/discard")
	require.Equal(t, http.StatusOK, resp.Code)

	state := decodeState(t, resp.Body.Bytes())
	assert.Empty(t, state.Status.DirtyResources)
}

func TestAddCookbookBuildsFilterFromRules(t *testing.T) {
	ts := newTestServer(t)
	wsID := ts.openWorkspace(t)

	resp := ts.api.Post("/api/v1/workspaces/"+wsID+"/cookbooks", map[string]any{
		"name": "Quick Dinners",
		"rules": []map[string]any{
			{"field": "categories", "operator": "IN", "values": []string{"Dinner", "Quick"}},
		},
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	get := ts.api.Get("/api/v1/workspaces/" + wsID)
	state := decodeState(t, get.Body.Bytes())
	require.Len(t, state.Working[domain.ResourceCookbooks], 1)

	cookbook := state.Working[domain.ResourceCookbooks][0]
	assert.Equal(t, "categories IN Dinner,Quick", cookbook.Filter)
	assert.Equal(t, 1, cookbook.Position)
	require.Len(t, cookbook.Rules, 1, "filters are echoed back as structured rules")
	assert.Equal(t, []string{"Dinner", "Quick"}, cookbook.Rules[0].Values)
}

func TestAddCookbookRequiresName(t *testing.T) {
	ts := newTestServer(t)
	wsID := ts.openWorkspace(t)

	resp := ts.api.Post("/api/v1/workspaces/"+wsID+"/cookbooks", map[string]any{
		"description": "no name",
	})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, string(errors.CodeValidation), decodeAPIError(t, resp.Body.Bytes()).Code)
}

func TestMoveCookbookRefusedWhileFiltered(t *testing.T) {
	ts := newTestServer(t)
	wsID := ts.openWorkspace(t)

	for _, name := range []string{"Weeknight", "Baking"} {
		resp := ts.api.Post("/api/v1/workspaces/"+wsID+"/cookbooks", map[string]any{"name": name})
		require.Equal(t, http.StatusOK, resp.Code)
	}

	resp := ts.api.Post("/api/v1/workspaces/"+wsID+"/cookbooks/move", map[string]any{
		"from": 1, "to": 0, "query": "tags IN quick",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = ts.api.Post("/api/v1/workspaces/"+wsID+"/cookbooks/move", map[string]any{
		"from": 1, "to": 0,
	})
	require.Equal(t, http.StatusOK, resp.Code)

	get := ts.api.Get("/api/v1/workspaces/" + wsID)
	state := decodeState(t, get.Body.Bytes())
	cookbooks := state.Working[domain.ResourceCookbooks]
	require.Len(t, cookbooks, 2)
	byName := map[string]int{}
	for _, c := range cookbooks {
		byName[c.Name] = c.Position
	}
	assert.Equal(t, map[string]int{"Baking": 1, "Weeknight": 2}, byName)
}

func TestSaveValidatePublishFlow(t *testing.T) {
	ts := newTestServer(t)
	wsID := ts.openWorkspace(t)

	resp := ts.api.Put("/api/v1/workspaces/"+wsID+"/resources/tags", map[string]any{
		"entries": []map[string]any{{"name": "weeknight"}},
	})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Post("/api/v1/workspaces/"+wsID+"/save", map[string]any{})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	state := decodeState(t, resp.Body.Bytes())
	assert.Empty(t, state.Status.DirtyResources)

	resp = ts.api.Post("/api/v1/workspaces/" + wsID + "/validate")
	require.Equal(t, http.StatusOK, resp.Code)
	var result domain.ValidationResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	assert.True(t, result.CanPublish)

	resp = ts.api.Post("/api/v1/workspaces/" + wsID + "/publish")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var receipt domain.PublishReceipt
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &receipt))
	assert.Equal(t, []domain.Resource{domain.ResourceTags}, receipt.ChangedResources)
}

func TestPublishWithoutValidationIsPreconditionFailure(t *testing.T) {
	ts := newTestServer(t)
	wsID := ts.openWorkspace(t)

	resp := ts.api.Post("/api/v1/workspaces/" + wsID + "/publish")
	require.Equal(t, http.StatusPreconditionFailed, resp.Code)
	assert.Equal(t, string(errors.CodeValidationRequired), decodeAPIError(t, resp.Body.Bytes()).Code)
}

func TestSaveConflictReturns409AndKeepsEdits(t *testing.T) {
	ts := newTestServer(t)
	wsID := ts.openWorkspace(t)

	resp := ts.api.Put("/api/v1/workspaces/"+wsID+"/resources/tags", map[string]any{
		"entries": []map[string]any{{"name": "weeknight"}},
	})
	require.Equal(t, http.StatusOK, resp.Code)

	ts.upstream.FailNextSave = true
	resp = ts.api.Post("/api/v1/workspaces/"+wsID+"/save", map[string]any{})
	require.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, string(errors.CodeVersionConflict), decodeAPIError(t, resp.Body.Bytes()).Code)

	get := ts.api.Get("/api/v1/workspaces/" + wsID)
	state := decodeState(t, get.Body.Bytes())
	assert.True(t, state.Status.Conflict)
	assert.Contains(t, state.Status.DirtyResources, domain.ResourceTags)
	require.Len(t, state.Working[domain.ResourceTags], 1)
	assert.Equal(t, "weeknight", state.Working[domain.ResourceTags][0].Name)
}

func TestReloadDiscardsEdits(t *testing.T) {
	ts := newTestServer(t)
	wsID := ts.openWorkspace(t)

	resp := ts.api.Put("/api/v1/workspaces/"+wsID+"/resources/tags", map[string]any{
		"entries": []map[string]any{{"name": "weeknight"}},
	})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Post("/api/v1/workspaces/" + wsID + "/reload")
	require.Equal(t, http.StatusOK, resp.Code)

	state := decodeState(t, resp.Body.Bytes())
	assert.Empty(t, state.Status.DirtyResources)
	require.Len(t, state.Working[domain.ResourceTags], 1)
	assert.Equal(t, "quick", state.Working[domain.ResourceTags][0].Name)
}

func TestLookupRoutes(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.api.Get("/api/v1/lookup/foods")
	require.Equal(t, http.StatusOK, resp.Code)
	var lookup LookupResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &lookup))
	assert.NotEmpty(t, lookup.Refs)

	resp = ts.api.Get("/api/v1/lookup/planets")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestFilterSchema(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.api.Get("/api/v1/filter/schema")
	require.Equal(t, http.StatusOK, resp.Code)

	var schema FilterSchemaResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &schema))
	assert.Contains(t, schema.Fields, "categories")
	assert.Contains(t, schema.Operators, "IN")
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
}
