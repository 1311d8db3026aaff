package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func subcommands(c *cobra.Command) map[string]bool {
	names := make(map[string]bool)
	for _, sc := range c.Commands() {
		names[sc.Name()] = true
	}
	return names
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := subcommands(rootCmd)
	for _, name := range []string{"serve", "discover", "products", "jobs", "leads", "migrate", "monitor"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "lead-radar", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestNestedSubcommands(t *testing.T) {
	tests := []struct {
		parent *cobra.Command
		want   []string
	}{
		{discoverCmd, []string{"run", "terms"}},
		{productsCmd, []string{"add", "list"}},
		{jobsCmd, []string{"create", "list", "pause", "resume", "stop"}},
		{leadsCmd, []string{"list", "export"}},
		{monitorCmd, []string{"check"}},
	}
	for _, tt := range tests {
		t.Run(tt.parent.Name(), func(t *testing.T) {
			names := subcommands(tt.parent)
			for _, w := range tt.want {
				assert.True(t, names[w], "%s should have subcommand %q", tt.parent.Name(), w)
			}
		})
	}
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestDiscoverRun_Flags(t *testing.T) {
	for _, name := range []string{"product", "communities", "user", "save", "json"} {
		assert.NotNil(t, discoverRunCmd.Flags().Lookup(name), "discover run should have --%s", name)
	}
	save := discoverRunCmd.Flags().Lookup("save")
	assert.Equal(t, "false", save.DefValue)
}

func TestJobsCreate_Flags(t *testing.T) {
	flag := jobsCreateCmd.Flags().Lookup("interval")
	require.NotNil(t, flag)
	assert.Equal(t, "60", flag.DefValue)
}

func TestLeadsExport_Flags(t *testing.T) {
	flag := leadsExportCmd.Flags().Lookup("sink")
	require.NotNil(t, flag)
	assert.Equal(t, "xlsx", flag.DefValue)
	assert.NotNil(t, leadsExportCmd.Flags().ShorthandLookup("o"))
}

func TestStatusCommands_RequireJobID(t *testing.T) {
	for _, c := range jobsCmd.Commands() {
		if c.Name() == "pause" || c.Name() == "resume" || c.Name() == "stop" {
			assert.Error(t, c.Args(c, nil), "%s without id", c.Name())
			assert.NoError(t, c.Args(c, []string{"j1"}))
		}
	}
}
