package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	// Collect subcommand names.
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	// Verify expected subcommands are registered.
	expected := []string{"migrate", "review", "cascade", "serve"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "specdesk", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestReviewCommand_Subcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range reviewCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"accept", "confirm", "pending", "candidate", "purge"} {
		assert.True(t, names[name], "expected review subcommand %q not found", name)
	}
}

func TestReviewAccept_Flags(t *testing.T) {
	require.NotNil(t, reviewAcceptCmd.Flags().Lookup("category"))
	require.NotNil(t, reviewAcceptCmd.Flags().Lookup("candidate"))
	require.NotNil(t, reviewAcceptCmd.Flags().Lookup("suppress"))
}

func TestCascadeComponent_Flags(t *testing.T) {
	for _, name := range []string{"component-type", "name", "property", "new-value", "policy", "dry-run"} {
		require.NotNil(t, cascadeComponentCmd.Flags().Lookup(name), "missing flag %q", name)
	}
	require.NotNil(t, cascadeCmd.PersistentFlags().Lookup("category"))
}

func TestCascadeEnum_Flags(t *testing.T) {
	for _, name := range []string{"field", "action", "value", "new-value"} {
		require.NotNil(t, cascadeEnumCmd.Flags().Lookup(name), "missing flag %q", name)
	}
}

func TestTargetFromFlags(t *testing.T) {
	t.Cleanup(func() {
		reviewKind, reviewCategory, reviewProduct, reviewField = "grid", "", "", ""
		reviewCompType, reviewCompName, reviewMaker, reviewProperty, reviewValue = "", "", "", "", ""
	})

	reviewKind = "grid"
	reviewCategory, reviewProduct, reviewField = "mice", "p1", "weight"
	target, err := targetFromFlags()
	require.NoError(t, err)
	assert.Equal(t, "grid|mice|p1|weight|", target.IdentityTuple())

	reviewKind = "component"
	reviewCompType, reviewCompName, reviewMaker, reviewProperty = "sensor", "PAW3395", "PixArt", "dpi"
	target, err = targetFromFlags()
	require.NoError(t, err)
	assert.NotNil(t, target.Component)

	reviewKind = "orbit"
	_, err = targetFromFlags()
	require.Error(t, err)
}
