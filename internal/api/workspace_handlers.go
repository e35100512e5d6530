package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/saucierapp/saucier-server/internal/domain"
	"github.com/saucierapp/saucier-server/internal/filter"
	"github.com/saucierapp/saucier-server/internal/workspace"
)

func (s *Server) registerWorkspaceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "openWorkspace",
		Method:      http.MethodPost,
		Path:        "/api/v1/workspaces",
		Summary:     "Open workspace",
		Description: "Resumes the active editing session or starts one from a fresh upstream snapshot",
		Tags:        []string{"Workspaces"},
	}, s.handleOpenWorkspace)

	huma.Register(s.api, huma.Operation{
		OperationID: "getWorkspace",
		Method:      http.MethodGet,
		Path:        "/api/v1/workspaces/{id}",
		Summary:     "Get workspace",
		Description: "Returns session state and the full working draft",
		Tags:        []string{"Workspaces"},
	}, s.handleGetWorkspace)

	huma.Register(s.api, huma.Operation{
		OperationID: "replaceResource",
		Method:      http.MethodPut,
		Path:        "/api/v1/workspaces/{id}/resources/{resource}",
		Summary:     "Replace resource entries",
		Description: "Replaces one resource's working entries wholesale",
		Tags:        []string{"Workspaces"},
	}, s.handleReplaceResource)

	huma.Register(s.api, huma.Operation{
		OperationID: "replaceResourceRaw",
		Method:      http.MethodPut,
		Path:        "/api/v1/workspaces/{id}/resources/{resource}/raw",
		Summary:     "Replace resource entries from raw JSON",
		Description: "Replaces one resource's working entries from a pasted JSON array",
		Tags:        []string{"Workspaces"},
	}, s.handleReplaceResourceRaw)

	huma.Register(s.api, huma.Operation{
		OperationID: "discardResource",
		Method:      http.MethodPost,
		Path:        "/api/v1/workspaces/{id}/resources/{resource}/discard",
		Summary:     "Discard resource edits",
		Description: "Resets one resource's working entries back to the snapshot",
		Tags:        []string{"Workspaces"},
	}, s.handleDiscardResource)

	huma.Register(s.api, huma.Operation{
		OperationID: "addCookbook",
		Method:      http.MethodPost,
		Path:        "/api/v1/workspaces/{id}/cookbooks",
		Summary:     "Add cookbook",
		Description: "Appends a cookbook at the end of the shelf",
		Tags:        []string{"Cookbooks"},
	}, s.handleAddCookbook)

	huma.Register(s.api, huma.Operation{
		OperationID: "moveCookbook",
		Method:      http.MethodPost,
		Path:        "/api/v1/workspaces/{id}/cookbooks/move",
		Summary:     "Move cookbook",
		Description: "Moves a cookbook between display ranks and renumbers positions",
		Tags:        []string{"Cookbooks"},
	}, s.handleMoveCookbook)

	huma.Register(s.api, huma.Operation{
		OperationID: "saveWorkspace",
		Method:      http.MethodPost,
		Path:        "/api/v1/workspaces/{id}/save",
		Summary:     "Save draft",
		Description: "Pushes dirty (or explicitly listed) resources to the recipe server",
		Tags:        []string{"Workspaces"},
	}, s.handleSaveWorkspace)

	huma.Register(s.api, huma.Operation{
		OperationID: "validateWorkspace",
		Method:      http.MethodPost,
		Path:        "/api/v1/workspaces/{id}/validate",
		Summary:     "Validate draft",
		Description: "Runs the recipe server's draft-wide validation",
		Tags:        []string{"Workspaces"},
	}, s.handleValidateWorkspace)

	huma.Register(s.api, huma.Operation{
		OperationID: "publishWorkspace",
		Method:      http.MethodPost,
		Path:        "/api/v1/workspaces/{id}/publish",
		Summary:     "Publish draft",
		Description: "Commits the validated draft to the live taxonomy",
		Tags:        []string{"Workspaces"},
	}, s.handlePublishWorkspace)

	huma.Register(s.api, huma.Operation{
		OperationID: "closeWorkspace",
		Method:      http.MethodDelete,
		Path:        "/api/v1/workspaces/{id}",
		Summary:     "Close workspace",
		Description: "Drops the session and its autosaved state",
		Tags:        []string{"Workspaces"},
	}, s.handleCloseWorkspace)

	huma.Register(s.api, huma.Operation{
		OperationID: "reloadWorkspace",
		Method:      http.MethodPost,
		Path:        "/api/v1/workspaces/{id}/reload",
		Summary:     "Reload workspace",
		Description: "Discards the session and reseeds it from the recipe server",
		Tags:        []string{"Workspaces"},
	}, s.handleReloadWorkspace)
}

// === DTOs ===

// EntryPayload is the wire form of one draft row.
type EntryPayload struct {
	Name            string         `json:"name" doc:"Display name"`
	Color           string         `json:"color,omitempty" doc:"Hex display color (labels)"`
	OnHand          bool           `json:"onHand,omitempty" doc:"On-hand flag (tools)"`
	Aliases         []string       `json:"aliases,omitempty" doc:"Alternate spellings (units)"`
	Fraction        bool           `json:"fraction,omitempty" doc:"Display amounts as fractions (units)"`
	UseAbbreviation bool           `json:"useAbbreviation,omitempty" doc:"Prefer the abbreviation (units)"`
	Abbreviation    string         `json:"abbreviation,omitempty" doc:"Short form (units)"`
	Description     string         `json:"description,omitempty" doc:"Free-text description"`
	Filter          string         `json:"queryFilterString,omitempty" doc:"Cookbook filter query"`
	Rules           []RulePayload  `json:"rules,omitempty" doc:"Cookbook filter query decomposed into rules (read-only)"`
	Public          bool           `json:"public,omitempty" doc:"Publicly visible (cookbooks)"`
	Position        int            `json:"position,omitempty" doc:"Shelf position (cookbooks)"`
}

// RulePayload is the wire form of one filter rule.
type RulePayload struct {
	Field    string   `json:"field" doc:"Attribute the rule filters on"`
	Operator string   `json:"operator" doc:"Comparison operator"`
	Values   []string `json:"values,omitempty" doc:"Comparison values"`
}

type WorkspaceStateResponse struct {
	ID      string           `json:"id" doc:"Workspace session ID"`
	Status  workspace.Status `json:"status" doc:"Session state summary"`
	Working map[domain.Resource][]EntryPayload `json:"working,omitempty" doc:"Full working draft"`
}

type WorkspaceStateOutput struct {
	Body WorkspaceStateResponse
}

type GetWorkspaceInput struct {
	ID string `path:"id" doc:"Workspace session ID"`
}

type ReplaceResourceInput struct {
	ID       string `path:"id" doc:"Workspace session ID"`
	Resource string `path:"resource" doc:"Resource name"`
	Body     struct {
		Entries []EntryPayload `json:"entries" doc:"Replacement entries"`
	}
}

type ReplaceResourceRawInput struct {
	ID       string `path:"id" doc:"Workspace session ID"`
	Resource string `path:"resource" doc:"Resource name"`
	RawBody  []byte `contentType:"application/json" doc:"Raw JSON entry array"`
}

type ResourceActionInput struct {
	ID       string `path:"id" doc:"Workspace session ID"`
	Resource string `path:"resource" doc:"Resource name"`
}

// AddCookbookRequest creates a cookbook. The filter can be given either as a
// prebuilt query string or as structured rules; rules win when both are set.
type AddCookbookRequest struct {
	Name        string        `json:"name" validate:"required,min=1,max=120" doc:"Cookbook name"`
	Description string        `json:"description,omitempty" validate:"max=1000" doc:"Description"`
	Filter      string        `json:"queryFilterString,omitempty" doc:"Prebuilt filter query"`
	Rules       []RulePayload `json:"rules,omitempty" doc:"Filter rules to build the query from"`
	Public      bool          `json:"public,omitempty" doc:"Publicly visible"`
}

type AddCookbookInput struct {
	ID   string `path:"id" doc:"Workspace session ID"`
	Body AddCookbookRequest
}

type MoveCookbookRequest struct {
	From  int    `json:"from" validate:"gte=0" doc:"Current display rank"`
	To    int    `json:"to" validate:"gte=0" doc:"Target display rank"`
	Query string `json:"query,omitempty" doc:"Active filter query, if the view is filtered"`
}

type MoveCookbookInput struct {
	ID   string `path:"id" doc:"Workspace session ID"`
	Body MoveCookbookRequest
}

type SaveWorkspaceInput struct {
	ID   string `path:"id" doc:"Workspace session ID"`
	Body struct {
		Resources []string `json:"resources,omitempty" doc:"Explicit resources to save; defaults to all dirty ones"`
	}
}

type ValidationOutput struct {
	Body domain.ValidationResult
}

type PublishOutput struct {
	Body domain.PublishReceipt
}

// MessageResponse carries a human-readable confirmation.
type MessageResponse struct {
	Message string `json:"message" doc:"Confirmation message"`
}

type MessageOutput struct {
	Body MessageResponse
}

// === Handlers ===

func (s *Server) handleOpenWorkspace(ctx context.Context, _ *struct{}) (*WorkspaceStateOutput, error) {
	ws, err := s.workspaces.OpenWorkspace(ctx)
	if err != nil {
		return nil, err
	}
	return s.workspaceState(ws.ID, ws.Status(), ws.Working()), nil
}

func (s *Server) handleGetWorkspace(ctx context.Context, input *GetWorkspaceInput) (*WorkspaceStateOutput, error) {
	ws, err := s.workspaces.GetWorkspace(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return s.workspaceState(ws.ID, ws.Status(), ws.Working()), nil
}

func (s *Server) handleReplaceResource(ctx context.Context, input *ReplaceResourceInput) (*WorkspaceStateOutput, error) {
	entries := make([]domain.Entry, len(input.Body.Entries))
	for i, e := range input.Body.Entries {
		entries[i] = toDomainEntry(e)
	}

	status, err := s.workspaces.ReplaceEntries(ctx, input.ID, domain.Resource(input.Resource), entries)
	if err != nil {
		return nil, err
	}
	return s.workspaceState(input.ID, status, nil), nil
}

func (s *Server) handleReplaceResourceRaw(ctx context.Context, input *ReplaceResourceRawInput) (*WorkspaceStateOutput, error) {
	status, err := s.workspaces.BulkReplace(ctx, input.ID, domain.Resource(input.Resource), input.RawBody)
	if err != nil {
		return nil, err
	}
	return s.workspaceState(input.ID, status, nil), nil
}

func (s *Server) handleDiscardResource(ctx context.Context, input *ResourceActionInput) (*WorkspaceStateOutput, error) {
	status, err := s.workspaces.Discard(ctx, input.ID, domain.Resource(input.Resource))
	if err != nil {
		return nil, err
	}
	return s.workspaceState(input.ID, status, nil), nil
}

func (s *Server) handleAddCookbook(ctx context.Context, input *AddCookbookInput) (*WorkspaceStateOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	query := input.Body.Filter
	if len(input.Body.Rules) > 0 {
		rules := make([]filter.Rule, len(input.Body.Rules))
		for i, r := range input.Body.Rules {
			rules[i] = filter.Rule{Field: r.Field, Operator: r.Operator, Values: r.Values}
		}
		query = filter.Build(rules)
	}

	status, err := s.workspaces.AddCookbook(ctx, input.ID, domain.Entry{
		Name:        input.Body.Name,
		Description: input.Body.Description,
		Filter:      query,
		Public:      input.Body.Public,
	})
	if err != nil {
		return nil, err
	}
	return s.workspaceState(input.ID, status, nil), nil
}

func (s *Server) handleMoveCookbook(ctx context.Context, input *MoveCookbookInput) (*WorkspaceStateOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	status, err := s.workspaces.MoveCookbook(ctx, input.ID, input.Body.From, input.Body.To, input.Body.Query)
	if err != nil {
		return nil, err
	}
	return s.workspaceState(input.ID, status, nil), nil
}

func (s *Server) handleSaveWorkspace(ctx context.Context, input *SaveWorkspaceInput) (*WorkspaceStateOutput, error) {
	resources := make([]domain.Resource, len(input.Body.Resources))
	for i, r := range input.Body.Resources {
		resources[i] = domain.Resource(r)
	}

	status, err := s.workspaces.Save(ctx, input.ID, resources)
	if err != nil {
		return nil, err
	}
	return s.workspaceState(input.ID, status, nil), nil
}

func (s *Server) handleValidateWorkspace(ctx context.Context, input *GetWorkspaceInput) (*ValidationOutput, error) {
	result, err := s.workspaces.Validate(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &ValidationOutput{Body: *result}, nil
}

func (s *Server) handlePublishWorkspace(ctx context.Context, input *GetWorkspaceInput) (*PublishOutput, error) {
	receipt, err := s.workspaces.Publish(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &PublishOutput{Body: *receipt}, nil
}

func (s *Server) handleCloseWorkspace(ctx context.Context, input *GetWorkspaceInput) (*MessageOutput, error) {
	if err := s.workspaces.CloseWorkspace(ctx, input.ID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Workspace closed"}}, nil
}

func (s *Server) handleReloadWorkspace(ctx context.Context, input *GetWorkspaceInput) (*WorkspaceStateOutput, error) {
	status, err := s.workspaces.Reload(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	working, err := s.workspaces.Working(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return s.workspaceState(input.ID, status, working), nil
}

// === Mappers ===

func (s *Server) workspaceState(id string, status workspace.Status, working domain.Draft) *WorkspaceStateOutput {
	resp := WorkspaceStateResponse{ID: id, Status: status}
	if working != nil {
		resp.Working = make(map[domain.Resource][]EntryPayload, len(working))
		for resource, entries := range working {
			payload := make([]EntryPayload, len(entries))
			for i, e := range entries {
				payload[i] = fromDomainEntry(resource, e)
			}
			resp.Working[resource] = payload
		}
	}
	return &WorkspaceStateOutput{Body: resp}
}

func toDomainEntry(e EntryPayload) domain.Entry {
	return domain.Entry{
		Name:            e.Name,
		Color:           e.Color,
		OnHand:          e.OnHand,
		Aliases:         e.Aliases,
		Fraction:        e.Fraction,
		UseAbbreviation: e.UseAbbreviation,
		Abbreviation:    e.Abbreviation,
		Description:     e.Description,
		Filter:          e.Filter,
		Public:          e.Public,
		Position:        e.Position,
	}
}

func fromDomainEntry(resource domain.Resource, e domain.Entry) EntryPayload {
	payload := EntryPayload{
		Name:            e.Name,
		Color:           e.Color,
		OnHand:          e.OnHand,
		Aliases:         e.Aliases,
		Fraction:        e.Fraction,
		UseAbbreviation: e.UseAbbreviation,
		Abbreviation:    e.Abbreviation,
		Description:     e.Description,
		Filter:          e.Filter,
		Public:          e.Public,
		Position:        e.Position,
	}
	// Hand the rule editor a structured view of cookbook filters.
	if resource == domain.ResourceCookbooks && e.Filter != "" {
		for _, rule := range filter.Parse(e.Filter) {
			payload.Rules = append(payload.Rules, RulePayload{
				Field:    rule.Field,
				Operator: rule.Operator,
				Values:   rule.Values,
			})
		}
	}
	return payload
}
