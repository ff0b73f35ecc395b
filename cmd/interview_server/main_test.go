package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "migrate", "create-admin", "stats", "worker"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestServeFlags(t *testing.T) {
	require.NotNil(t, serveCmd.Flags().Lookup("port"))
	require.NotNil(t, serveCmd.Flags().Lookup("memory"))
	require.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
}

func TestWorker_RequiresBroker(t *testing.T) {
	t.Setenv("RABBITMQ_URL", "")

	_, err := execute(t, "worker")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RABBITMQ_URL")
}

func TestCreateAdmin_RequiresPassword(t *testing.T) {
	t.Setenv("ADMIN_PASSWORD", "")

	_, err := execute(t, "create-admin", "--email", "admin@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password")
}

func TestConfigErrorsStopCommands(t *testing.T) {
	t.Setenv("BASE_URL", "not a url")

	_, err := execute(t, "stats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_url")
}
