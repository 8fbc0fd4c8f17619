package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/worldstore/internal/core/persistence/recovery"
)

const sample = `
root: /var/lib/worldstore
workers: 4
log:
  level: debug
  encoding: console
save:
  atomic: false
  lock_timeout: 2s
load:
  verify_checksums: false
recovery:
  default: skip
  timeout: 250ms
  rules:
    - when: kind == "FormatMismatch" && category == "Accounts"
      action: abort
    - when: typeName startsWith "legacy."
      action: delete
`

func TestLoadYAML(t *testing.T) {
	cfg, err := LoadYAML(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/worldstore", cfg.Root)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "console", cfg.Log.Encoding)
	assert.False(t, cfg.Save.Atomic)
	assert.Equal(t, 2*time.Second, cfg.Save.LockTimeout)
	assert.True(t, cfg.Load.RetainPayloads, "unset keys keep their defaults")
	assert.False(t, cfg.Load.VerifyChecksums)
	assert.Equal(t, 250*time.Millisecond, cfg.Recovery.Timeout)

	rules, fallback, err := cfg.RecoveryRules()
	require.NoError(t, err)
	assert.Equal(t, recovery.Skip, fallback)
	require.Len(t, rules, 2)
	assert.Equal(t, recovery.Abort, rules[0].Decision)
	assert.Equal(t, recovery.Skip, rules[1].Decision)
}

func TestLoadYAML_UnknownField(t *testing.T) {
	_, err := LoadYAML(strings.NewReader("rooot: x\n"))
	assert.Error(t, err)
}

func TestLoad_EnvironmentWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worldstore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	t.Setenv("WORLDSTORE_ROOT", "/srv/saves")
	t.Setenv("WORLDSTORE_ATOMIC", "true")
	t.Setenv("WORLDSTORE_LOCK_TIMEOUT", "1m")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/saves", cfg.Root)
	assert.True(t, cfg.Save.Atomic)
	assert.Equal(t, time.Minute, cfg.Save.LockTimeout)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 250*time.Millisecond, cfg.Recovery.Timeout)
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Root, cfg.Root)
	assert.Equal(t, "abort", cfg.Recovery.Default)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty root", func(c *Config) { c.Root = "" }, "root is empty"},
		{"bad encoding", func(c *Config) { c.Log.Encoding = "xml" }, "log encoding"},
		{"bad default", func(c *Config) { c.Recovery.Default = "retry" }, "recovery default"},
		{"bad action", func(c *Config) {
			c.Recovery.Rules = []RuleConfig{{When: "true", Action: "maybe"}}
		}, "recovery rule 0"},
		{"bad expression", func(c *Config) {
			c.Recovery.Rules = []RuleConfig{{When: "kind ==", Action: "skip"}}
		}, "recovery rule 0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
