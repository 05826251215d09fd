// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ManuGH/reportstream/internal/config"
	"github.com/ManuGH/reportstream/internal/persistence/sqlite"
	"github.com/ManuGH/reportstream/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, version.Version)
}

func TestConfigInitThenPrint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reportstream.yaml")

	out, err := runCLI(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	out, err = runCLI(t, "--config", path, "config", "print")
	require.NoError(t, err)

	var printed config.AppConfig
	require.NoError(t, yaml.Unmarshal([]byte(out), &printed))
	assert.Equal(t, config.Defaults().ListenAddr, printed.ListenAddr)
	assert.Equal(t, config.Defaults().Bus.Topic, printed.Bus.Topic)
}

func TestConfigPrintMasksSecrets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reportstream.yaml")
	cfg := config.Defaults()
	cfg.Store.Redis.Password = "hunter2"
	require.NoError(t, config.WriteFile(path, cfg))

	out, err := runCLI(t, "--config", path, "config", "print")
	require.NoError(t, err)
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "***")
}

func TestConfigValidate_RejectsUnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listenAddr: \":3000\"\nbogus: 1\n"), 0o600))

	_, err := runCLI(t, "--config", path, "config", "validate")
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrUnknownConfigField)
}

func TestStorageVerify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports.sqlite")
	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE t (id INTEGER PRIMARY KEY)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	out, err := runCLI(t, "storage", "verify", "--path", path, "--mode", "full")
	require.NoError(t, err)
	assert.Contains(t, out, "ok (full)")
}

func TestStorageVerify_UsageErrors(t *testing.T) {
	assert.Equal(t, exitUsage, execute([]string{"storage", "verify"}))
	assert.Equal(t, exitUsage, execute([]string{"storage", "verify", "--path", "x.sqlite", "--mode", "deep"}))
}

func TestServe_InvalidConfigFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  backend: tape\n"), 0o600))

	assert.Equal(t, 1, execute([]string{"--config", path, "serve"}))
}
