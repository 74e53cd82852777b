package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/hypeshelf/internal/auth"
	"github.com/sakif/hypeshelf/internal/config"
)

const testTokenSecret = "cli-test-token-secret"

// run executes the root command in an isolated working directory and returns
// its stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv(config.ConfigPathEnvVar, "")
	return dir
}

func TestHashSecret(t *testing.T) {
	isolate(t)

	out, err := run(t, "hash-secret", "open-sesame")
	require.NoError(t, err)

	hash := strings.TrimSpace(out)
	assert.NoError(t, auth.NewSecretHasher().Verify(hash, "open-sesame"))
	assert.ErrorIs(t, auth.NewSecretHasher().Verify(hash, "wrong"), auth.ErrSecretMismatch)
}

func TestHashSecret_RequiresArgument(t *testing.T) {
	isolate(t)

	_, err := run(t, "hash-secret")
	assert.Error(t, err)
}

func TestSeed_Idempotent(t *testing.T) {
	dir := isolate(t)
	t.Setenv("HYPESHELF_DATABASE__PATH", filepath.Join(dir, "data", "shelf.db"))

	out, err := run(t, "seed")
	require.NoError(t, err)
	assert.Equal(t, "inserted 3 users and 6 recommendations\n", out)

	out, err = run(t, "seed")
	require.NoError(t, err)
	assert.Equal(t, "inserted 0 users and 0 recommendations\n", out)
}

func TestDevToken(t *testing.T) {
	isolate(t)
	t.Setenv("HYPESHELF_AUTH__TOKEN_SECRET", testTokenSecret)

	out, err := run(t, "dev-token", "--subject", "user_dev", "--name", "Dev")
	require.NoError(t, err)

	v, err := auth.NewTokenVerifier(testTokenSecret, "")
	require.NoError(t, err)
	identity, err := v.Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "user_dev", identity.Subject)
	assert.Equal(t, "Dev", identity.DisplayName)
}

func TestDevToken_RequiresSecret(t *testing.T) {
	isolate(t)
	t.Setenv("HYPESHELF_AUTH__TOKEN_SECRET", "")

	_, err := run(t, "dev-token", "--subject", "user_dev")
	assert.Error(t, err)
}

func TestEnvFile(t *testing.T) {
	dir := isolate(t)

	const key = "HYPESHELF_AUTH__TOKEN_SECRET"
	t.Setenv(key, "") // registers restore of the original value
	require.NoError(t, os.Unsetenv(key))

	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte(key+"="+testTokenSecret+"\n"), 0o600))

	out, err := run(t, "--env-file", envFile, "dev-token", "--subject", "user_env")
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(out))
}

func TestEnvFile_MissingIsIgnored(t *testing.T) {
	dir := isolate(t)

	assert.NoError(t, loadEnvFile(filepath.Join(dir, "absent.env")))
}

func TestNewLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}
