package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/bidscribe/internal/core/domain"
)

// SearchInput is the input schema for the search_knowledge tool.
type SearchInput struct {
	Query       string `json:"query" jsonschema:"free-text query matched semantically against section summaries"`
	TopK        int    `json:"top_k,omitempty" jsonschema:"maximum number of results to return (default 5)"`
	TitleFilter string `json:"title_filter,omitempty" jsonschema:"only sections whose title contains this text (case-sensitive)"`
	Group       string `json:"group,omitempty" jsonschema:"only documents of this group"`
}

// ReferenceInput is the input schema for the reference_sections tool.
type ReferenceInput struct {
	Title       string `json:"title" jsonschema:"outline section title"`
	Description string `json:"description,omitempty" jsonschema:"outline section description"`
	TopK        int    `json:"top_k,omitempty" jsonschema:"maximum number of references (default 3)"`
}

// ListGroupsInput is the (empty) input schema for the list_groups tool.
type ListGroupsInput struct{}

// ReferencesOutput is the output schema of the knowledge tools.
type ReferencesOutput struct {
	Results []ReferenceOutput `json:"results"`
	Count   int               `json:"count"`
}

// ReferenceOutput represents a single knowledge hit.
type ReferenceOutput struct {
	DocID        string  `json:"doc_id"`
	SectionTitle string  `json:"section_title"`
	TitlePath    string  `json:"title_path"`
	Summary      string  `json:"summary"`
	Score        float64 `json:"score"`
}

// GroupsOutput is the output schema of the list_groups tool.
type GroupsOutput struct {
	Groups []GroupOutput `json:"groups"`
}

// GroupOutput describes one group.
type GroupOutput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Documents   int    `json:"documents"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_knowledge",
		Description: "Semantic search over past bid sections, optionally filtered by title text or group",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "reference_sections",
		Description: "Find reference material for one outline section from its title and description",
	}, s.handleReferences)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_groups",
		Description: "List knowledge groups with their document counts",
	}, s.handleListGroups)
}

// handleSearch handles the search_knowledge tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, ReferencesOutput, error) {
	refs, err := s.ports.Retrieval.Search(ctx, input.Query, domain.SearchOptions{
		TopK:        input.TopK,
		TitleFilter: input.TitleFilter,
		Group:       input.Group,
	})
	if err != nil {
		return nil, ReferencesOutput{}, err
	}
	log.Debug("search_knowledge %q: %d hit(s)", input.Query, len(refs))
	return nil, toReferencesOutput(refs), nil
}

// handleReferences handles the reference_sections tool invocation.
func (s *Server) handleReferences(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ReferenceInput,
) (*mcp.CallToolResult, ReferencesOutput, error) {
	topK := input.TopK
	if topK <= 0 {
		topK = domain.ReferenceTopK
	}

	refs, err := s.ports.Retrieval.ReferenceSections(ctx, input.Title, input.Description, topK)
	if err != nil {
		return nil, ReferencesOutput{}, err
	}
	return nil, toReferencesOutput(refs), nil
}

// handleListGroups handles the list_groups tool invocation.
func (s *Server) handleListGroups(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListGroupsInput,
) (*mcp.CallToolResult, GroupsOutput, error) {
	if s.ports.Library == nil {
		return nil, GroupsOutput{}, ErrMissingLibraryService
	}

	groups, err := s.ports.Library.ListGroups(ctx)
	if err != nil {
		return nil, GroupsOutput{}, err
	}

	output := GroupsOutput{Groups: make([]GroupOutput, len(groups))}
	for i, g := range groups {
		output.Groups[i] = GroupOutput{
			Name:        g.Name,
			Description: g.Description,
			Documents:   g.DocumentCount(),
		}
	}
	return nil, output, nil
}

func toReferencesOutput(refs []domain.Reference) ReferencesOutput {
	output := ReferencesOutput{
		Results: make([]ReferenceOutput, len(refs)),
		Count:   len(refs),
	}
	for i, ref := range refs {
		output.Results[i] = ReferenceOutput{
			DocID:        ref.Document.DocID,
			SectionTitle: ref.Document.SectionTitle,
			TitlePath:    ref.Document.TitlePath,
			Summary:      ref.Document.Summary,
			Score:        ref.Score,
		}
	}
	return output
}
