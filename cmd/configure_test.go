package cmd

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigCmd_WritesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cmd, _, stdout, _ := setupCommand(t, newConfigCmd())

	cmd.SetArgs([]string{"config"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, stdout.String(), "Wrote orbit.yaml")

	data, err := os.ReadFile(configFileName)
	require.NoError(t, err)

	content := string(data)
	assert.Contains(t, content, "backend: file")
	assert.Contains(t, content, "isolation: local")
	assert.Contains(t, content, "claim_ttl:")
}

func TestConfigCmd_KeepsExistingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.WriteFile(configFileName, []byte("version: 1\n"), 0o600))

	cmd, _, _, _ := setupCommand(t, newConfigCmd())

	cmd.SetArgs([]string{"config"})
	require.ErrorContains(t, cmd.Execute(), "failed to write config file")

	data, err := os.ReadFile(configFileName)
	require.NoError(t, err)
	assert.Equal(t, "version: 1\n", string(data))
}
