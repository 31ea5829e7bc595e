package mcp

import (
	"context"
	"errors"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/gitradar/pkg/engine"
)

// handleAnalyze processes gitradar_analyze tool calls. A partially analyzed
// unit is still a successful call; its report carries the failed steps.
func (s *Server) handleAnalyze(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input AnalyzeInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateCodeInput(input.Code)
	if err != nil {
		return errorResult(err)
	}

	unitID := input.UnitID
	if unitID == "" {
		unitID = defaultUnitID
	}

	rep, err := s.engine.AnalyzeUnit(ctx, unitID, input.Code, input.Dialect)
	if err != nil && !errors.Is(err, engine.ErrAnalysisIncomplete) {
		return errorResult(err)
	}

	return jsonResult(rep)
}
