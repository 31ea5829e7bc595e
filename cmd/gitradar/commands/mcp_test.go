package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMCPCommand_Exists(t *testing.T) {
	t.Parallel()

	cmd := NewMCPCommand(&GlobalFlags{})
	require.NotNil(t, cmd)
	assert.Equal(t, "mcp", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.Contains(t, cmd.Long, "gitradar_analyze")
}

func TestMCPCommand_DebugFlag(t *testing.T) {
	t.Parallel()

	flag := NewMCPCommand(&GlobalFlags{}).Flags().Lookup("debug")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}

func TestMCPCommand_RejectsArgs(t *testing.T) {
	t.Parallel()

	_, _, err := execute(NewMCPCommand(&GlobalFlags{}), "", "extra")
	require.Error(t, err)
}
