//go:build !integration

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

	for _, name := range []string{"serve", "render", "table", "import", "fetch"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "dashboard", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestRenderCommand_Flags(t *testing.T) {
	for name, def := range map[string]string{
		"view":     "municipalities",
		"variable": "",
		"date":     "",
		"format":   "svg",
		"out":      "-",
	} {
		flag := renderCmd.Flags().Lookup(name)
		require.NotNil(t, flag, "render command should have --%s flag", name)
		assert.Equal(t, def, flag.DefValue, name)
	}
}

func TestTableCommand_Flags(t *testing.T) {
	for _, name := range []string{"source", "region", "municipality", "year", "html"} {
		assert.NotNil(t, tableCmd.Flags().Lookup(name), "table command should have --%s flag", name)
	}
}

func TestImportCommand_Flags(t *testing.T) {
	assert.NotNil(t, importCmd.Flags().Lookup("source"))
}

func TestFetchCommand_Flags(t *testing.T) {
	flag := fetchCmd.Flags().Lookup("attempts")
	require.NotNil(t, flag)
	assert.Equal(t, "3", flag.DefValue)
}
