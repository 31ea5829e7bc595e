package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/gitradar/pkg/suggest"
)

// suggestOutput mirrors the persisted suggestion set document.
type suggestOutput struct {
	Suggestions suggest.Set `json:"suggestions"`
}

// handleSuggest processes gitradar_suggest tool calls.
func (s *Server) handleSuggest(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input SuggestInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	set, err := s.engine.GenerateSuggestions(ctx, input.ContextText)
	if err != nil {
		return errorResult(err)
	}

	if set == nil {
		set = suggest.Set{}
	}

	return jsonResult(suggestOutput{Suggestions: set})
}
