package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	expected := []string{"link", "batch", "manual", "sync", "runs", "seasons", "serve"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "autolink", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.NotNil(t, rootCmd.PersistentPreRunE)
}

func TestBatchCommand_Flags(t *testing.T) {
	for _, name := range []string{"season", "save", "save-all", "limit", "report", "rerun-failed"} {
		assert.NotNil(t, batchCmd.Flags().Lookup(name), "batch command should have --%s flag", name)
	}
	assert.Equal(t, "0", batchCmd.Flags().Lookup("limit").DefValue)
}

func TestManualCommand_Flags(t *testing.T) {
	season := manualCmd.Flags().Lookup("season")
	require.NotNil(t, season)
	assert.Equal(t, "1", season.DefValue)

	require.NotNil(t, manualCmd.Flags().Lookup("anime-id"))
	require.NotNil(t, manualCmd.Flags().Lookup("tvdb-id"))
	require.NotNil(t, manualCmd.Flags().Lookup("name"))
}

func TestLinkCommand_Flags(t *testing.T) {
	require.NotNil(t, linkCmd.Flags().Lookup("anime-id"))
	require.NotNil(t, linkCmd.Flags().Lookup("save"))
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["list"])
	assert.True(t, names["show"])
}
