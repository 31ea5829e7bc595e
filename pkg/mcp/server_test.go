package mcp_test

import (
	"context"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gitradar/pkg/engine"
	"github.com/Sumatoshi-tech/gitradar/pkg/mcp"
)

func newServer(t *testing.T) *mcp.Server {
	t.Helper()

	eng, err := engine.New(engine.DefaultOptions())
	require.NoError(t, err)

	srv, err := mcp.NewServer(mcp.ServerDeps{Engine: eng})
	require.NoError(t, err)

	return srv
}

func TestNewServer_RequiresEngine(t *testing.T) {
	t.Parallel()

	_, err := mcp.NewServer(mcp.ServerDeps{})
	require.ErrorIs(t, err, mcp.ErrNoEngine)
}

func TestNewServer_ToolsRegistered(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"gitradar_analyze", "gitradar_suggest"}, newServer(t).ListToolNames())
}

func TestServer_Run_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, serverTransport := mcpsdk.NewInMemoryTransports()

	err := newServer(t).RunWithTransport(ctx, serverTransport)
	require.Error(t, err)
}

// connect starts srv on an in-memory transport and returns a client session.
func connect(t *testing.T, srv *mcp.Server) (context.Context, *mcpsdk.ClientSession) {
	t.Helper()

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)

	serverDone := make(chan error, 1)

	go func() {
		serverDone <- srv.RunWithTransport(ctx, serverTransport)
	}()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = session.Close()

		cancel()
		<-serverDone
	})

	return ctx, session
}

func textOf(t *testing.T, result *mcpsdk.CallToolResult) string {
	t.Helper()

	require.NotEmpty(t, result.Content)

	text, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)

	return text.Text
}

func TestMCPServer_InMemoryTransport_ToolsList(t *testing.T) {
	t.Parallel()

	ctx, session := connect(t, newServer(t))

	toolsResult, err := session.ListTools(ctx, nil)
	require.NoError(t, err)

	names := make([]string, 0, len(toolsResult.Tools))
	for _, tool := range toolsResult.Tools {
		names = append(names, tool.Name)
		assert.NotNil(t, tool.InputSchema, "tool %s missing input schema", tool.Name)
	}

	assert.ElementsMatch(t, []string{"gitradar_analyze", "gitradar_suggest"}, names)
}

func TestMCPServer_CallAnalyze(t *testing.T) {
	t.Parallel()

	ctx, session := connect(t, newServer(t))

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name: "gitradar_analyze",
		Arguments: map[string]any{
			"code":    "def f(): pass\n",
			"dialect": "python",
			"unit_id": "f.py",
		},
	})
	require.NoError(t, err)
	assert.False(t, result.IsError)

	text := textOf(t, result)
	assert.Contains(t, text, `"unit_id": "f.py"`)
	assert.Contains(t, text, `"status": "ok"`)
	assert.Contains(t, text, `"rank": "A"`)
}

func TestMCPServer_CallAnalyze_Errors(t *testing.T) {
	t.Parallel()

	ctx, session := connect(t, newServer(t))

	for name, args := range map[string]map[string]any{
		"empty code":  {"code": ""},
		"parse error": {"code": "def f(:\n", "dialect": "python"},
	} {
		result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{Name: "gitradar_analyze", Arguments: args})
		require.NoError(t, err, name)
		assert.True(t, result.IsError, name)
	}
}

func TestMCPServer_CallSuggest(t *testing.T) {
	t.Parallel()

	ctx, session := connect(t, newServer(t))

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      "gitradar_suggest",
		Arguments: map[string]any{"context_text": "# FIXME leak\nid = 1\n"},
	})
	require.NoError(t, err)
	assert.False(t, result.IsError)

	text := textOf(t, result)
	assert.Contains(t, text, `"suggestions"`)
	assert.Contains(t, text, "Address the issue mentioned in the comment: 'FIXME leak'")
	assert.Contains(t, text, "instead of 'id'")

	result, err = session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      "gitradar_suggest",
		Arguments: map[string]any{"context_text": ""},
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
