package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildParser_RegistersAllCommands(t *testing.T) {
	parser, _, cmds := buildParser("test")

	require.NotNil(t, cmds.Add)
	require.NotNil(t, cmds.Report)
	require.NotNil(t, cmds.Status)
	require.NotNil(t, cmds.Serve)
	require.NotNil(t, cmds.Prune)
	require.NotNil(t, cmds.Purge)

	names := make(map[string]bool)
	for _, c := range parser.Commands() {
		names[c.Name] = true
	}
	for _, want := range []string{"add", "report", "status", "serve", "prune", "purge"} {
		assert.True(t, names[want], "command %q registered", want)
	}
}

func TestRunWithArgs_Version(t *testing.T) {
	out := captureOutput(t, func() {
		require.NoError(t, RunWithArgs("1.2.3", []string{"--version"}))
	})
	assert.Contains(t, out, "tagpivot 1.2.3")
}

func TestRunWithArgs_UnknownCommand(t *testing.T) {
	err := RunWithArgs("test", []string{"frobnicate"})
	assert.Error(t, err)
}
