package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := rootCommand()

	for _, name := range []string{"migrate", "ingest", "refresh"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}

	ingest, _, err := root.Find([]string{"ingest"})
	require.NoError(t, err)
	assert.NotNil(t, ingest.Flags().Lookup("source"))
}

func TestRefreshCommand_RejectsBadID(t *testing.T) {
	root := rootCommand()
	root.SetArgs([]string{"refresh", "abc"})

	err := root.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid review id")
}

func TestRefreshCommand_RequiresOneArg(t *testing.T) {
	root := rootCommand()
	root.SetArgs([]string{"refresh"})

	require.Error(t, root.Execute())
}
