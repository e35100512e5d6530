package api

import (
	"context"
	"net/http"
	"slices"

	"github.com/danielgtaylor/huma/v2"

	"github.com/saucierapp/saucier-server/internal/domain"
	"github.com/saucierapp/saucier-server/internal/filter"
)

func (s *Server) registerLookupRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "lookup",
		Method:      http.MethodGet,
		Path:        "/api/v1/lookup/{kind}",
		Summary:     "Lookup references",
		Description: "Resolves an advisory reference collection from the recipe server",
		Tags:        []string{"Lookup"},
	}, s.handleLookup)

	huma.Register(s.api, huma.Operation{
		OperationID: "filterSchema",
		Method:      http.MethodGet,
		Path:        "/api/v1/filter/schema",
		Summary:     "Filter schema",
		Description: "Returns the known filter fields and operators for the rule editor",
		Tags:        []string{"Lookup"},
	}, s.handleFilterSchema)
}

// === DTOs ===

type LookupInput struct {
	Kind string `path:"kind" doc:"Reference collection, e.g. foods"`
}

type LookupResponse struct {
	Refs []domain.Ref `json:"refs" doc:"Resolved {id, name} pairs"`
}

type LookupOutput struct {
	Body LookupResponse
}

type FilterSchemaResponse struct {
	Fields    []string `json:"fields" doc:"Known rule fields"`
	Operators []string `json:"operators" doc:"Known rule operators"`
}

type FilterSchemaOutput struct {
	Body FilterSchemaResponse
}

// === Handlers ===

func (s *Server) handleLookup(ctx context.Context, input *LookupInput) (*LookupOutput, error) {
	refs, err := s.workspaces.Lookup(ctx, input.Kind)
	if err != nil {
		return nil, err
	}
	return &LookupOutput{Body: LookupResponse{Refs: refs}}, nil
}

func (s *Server) handleFilterSchema(_ context.Context, _ *struct{}) (*FilterSchemaOutput, error) {
	return &FilterSchemaOutput{
		Body: FilterSchemaResponse{
			Fields:    slices.Clone(filter.Fields),
			Operators: slices.Clone(filter.Operators),
		},
	}, nil
}
