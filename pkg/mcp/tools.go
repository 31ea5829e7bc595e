package mcp

import (
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool name constants.
const (
	ToolNameAnalyze = "gitradar_analyze"
	ToolNameSuggest = "gitradar_suggest"
)

// Input size limits.
const (
	// MaxCodeInputBytes is the maximum allowed size for inline code input (1 MB).
	MaxCodeInputBytes = 1 << 20
)

// defaultUnitID names inline code without a unit_id.
const defaultUnitID = "snippet"

// Sentinel errors for tool input validation.
var (
	// ErrEmptyCode indicates the code parameter is empty.
	ErrEmptyCode = errors.New("code parameter is required and must not be empty")
	// ErrCodeTooLarge indicates the code input exceeds the size limit.
	ErrCodeTooLarge = errors.New("code input exceeds maximum size")
)

// Input types (auto-generate JSON schemas via struct tags).

// AnalyzeInput is the input schema for the gitradar_analyze tool.
type AnalyzeInput struct {
	Code    string `json:"code"              jsonschema:"source code to analyze"`
	Dialect string `json:"dialect,omitempty" jsonschema:"source dialect (e.g. python go javascript); detected when empty"`
	UnitID  string `json:"unit_id,omitempty" jsonschema:"file path or logical name of the unit; its extension helps dialect detection"`
}

// SuggestInput is the input schema for the gitradar_suggest tool.
type SuggestInput struct {
	ContextText string `json:"context_text" jsonschema:"source text to derive improvement suggestions from"`
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

// validateCodeInput checks common code input constraints.
func validateCodeInput(code string) error {
	if code == "" {
		return ErrEmptyCode
	}

	if len(code) > MaxCodeInputBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrCodeTooLarge, len(code), MaxCodeInputBytes)
	}

	return nil
}
