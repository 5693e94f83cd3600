package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperatorsCmd(t *testing.T) {
	cmd, mockWorkflow, stdout, _ := setupCommand(t, newOperatorsCmd())

	mockWorkflow.On("OperatorNames").Return([]string{"arithmetic", "boolean", "logical"})

	cmd.SetArgs([]string{"operators"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, "arithmetic\nboolean\nlogical\n", stdout.String())
}

func TestTestRunnersCmd(t *testing.T) {
	cmd, mockWorkflow, stdout, _ := setupCommand(t, newTestRunnersCmd())

	mockWorkflow.On("RunnerNames").Return([]string{"exec", "gotest"})

	cmd.SetArgs([]string{"test-runners"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, "exec\ngotest\n", stdout.String())
}

func TestCatalogCmds_RejectArguments(t *testing.T) {
	cmd, _, _, _ := setupCommand(t, newOperatorsCmd())

	cmd.SetArgs([]string{"operators", "extra"})
	require.Error(t, cmd.Execute())
}
