// Package config loads worldstore settings from a YAML file and WORLDSTORE_*
// environment variables. Environment values win over the file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	jlconfig "github.com/JeremyLoy/config"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/worldstore/internal/core/persistence/recovery"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Root     string         `yaml:"root"`
	Workers  int            `yaml:"workers"`
	Log      LogConfig      `yaml:"log"`
	Save     SaveConfig     `yaml:"save"`
	Load     LoadConfig     `yaml:"load"`
	Recovery RecoveryConfig `yaml:"recovery"`
}

type LogConfig struct {
	Level    string   `yaml:"level"`
	Encoding string   `yaml:"encoding"`
	Outputs  []string `yaml:"outputs"`
}

type SaveConfig struct {
	Atomic      bool          `yaml:"atomic"`
	LockTimeout time.Duration `yaml:"lock_timeout"`
}

type LoadConfig struct {
	RetainPayloads  bool `yaml:"retain_payloads"`
	VerifyChecksums bool `yaml:"verify_checksums"`
}

// RecoveryConfig drives the load-time corruption policy. Rules are tried in
// order; Default applies when none matches.
type RecoveryConfig struct {
	Default string        `yaml:"default"`
	Timeout time.Duration `yaml:"timeout"`
	Rules   []RuleConfig  `yaml:"rules"`
}

// RuleConfig is one expression rule, e.g.
//
//	when: kind == "UnresolvableType" && typeName startsWith "legacy."
//	action: skip
type RuleConfig struct {
	When   string `yaml:"when"`
	Action string `yaml:"action"`
}

func Default() *Config {
	return &Config{
		Root:    "Saves",
		Workers: runtime.GOMAXPROCS(0),
		Log: LogConfig{
			Level:    "info",
			Encoding: "json",
			Outputs:  []string{"stderr"},
		},
		Save: SaveConfig{
			Atomic:      true,
			LockTimeout: 5 * time.Second,
		},
		Load: LoadConfig{
			RetainPayloads:  true,
			VerifyChecksums: true,
		},
		Recovery: RecoveryConfig{
			Default: "abort",
			Timeout: 5 * time.Second,
		},
	}
}

// Load reads path (skipped when empty), applies the environment and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "open config %s", path)
		}
		defer f.Close()
		if err := cfg.decode(f); err != nil {
			return nil, eris.Wrapf(err, "decode config %s", path)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadYAML decodes r over the defaults without consulting the environment.
func LoadYAML(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(r); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// envOverrides mirrors the scalar settings that can come from the
// environment. Durations stay strings so an unset variable is not confused
// with a zero duration.
type envOverrides struct {
	Root            string `config:"WORLDSTORE_ROOT"`
	Workers         int    `config:"WORLDSTORE_WORKERS"`
	LogLevel        string `config:"WORLDSTORE_LOG_LEVEL"`
	LogEncoding     string `config:"WORLDSTORE_LOG_ENCODING"`
	Atomic          bool   `config:"WORLDSTORE_ATOMIC"`
	LockTimeout     string `config:"WORLDSTORE_LOCK_TIMEOUT"`
	RetainPayloads  bool   `config:"WORLDSTORE_RETAIN_PAYLOADS"`
	VerifyChecksums bool   `config:"WORLDSTORE_VERIFY_CHECKSUMS"`
	RecoveryDefault string `config:"WORLDSTORE_RECOVERY_DEFAULT"`
	RecoveryTimeout string `config:"WORLDSTORE_RECOVERY_TIMEOUT"`
}

func (c *Config) applyEnv() error {
	o := envOverrides{
		Root:            c.Root,
		Workers:         c.Workers,
		LogLevel:        c.Log.Level,
		LogEncoding:     c.Log.Encoding,
		Atomic:          c.Save.Atomic,
		LockTimeout:     c.Save.LockTimeout.String(),
		RetainPayloads:  c.Load.RetainPayloads,
		VerifyChecksums: c.Load.VerifyChecksums,
		RecoveryDefault: c.Recovery.Default,
		RecoveryTimeout: c.Recovery.Timeout.String(),
	}
	if err := jlconfig.FromEnv().To(&o); err != nil {
		return eris.Wrap(err, "read environment")
	}

	lockTimeout, err := time.ParseDuration(o.LockTimeout)
	if err != nil {
		return eris.Wrapf(ErrInvalid, "WORLDSTORE_LOCK_TIMEOUT: %v", err)
	}
	recoveryTimeout, err := time.ParseDuration(o.RecoveryTimeout)
	if err != nil {
		return eris.Wrapf(ErrInvalid, "WORLDSTORE_RECOVERY_TIMEOUT: %v", err)
	}

	c.Root = o.Root
	c.Workers = o.Workers
	c.Log.Level = o.LogLevel
	c.Log.Encoding = o.LogEncoding
	c.Save.Atomic = o.Atomic
	c.Save.LockTimeout = lockTimeout
	c.Load.RetainPayloads = o.RetainPayloads
	c.Load.VerifyChecksums = o.VerifyChecksums
	c.Recovery.Default = o.RecoveryDefault
	c.Recovery.Timeout = recoveryTimeout
	return nil
}

func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Root) == "" {
		problems = append(problems, "root is empty")
	}
	if c.Workers < 0 {
		problems = append(problems, fmt.Sprintf("workers is negative (%d)", c.Workers))
	}
	switch c.Log.Encoding {
	case "json", "console":
	default:
		problems = append(problems, fmt.Sprintf("log encoding %q is not json or console", c.Log.Encoding))
	}
	if c.Save.LockTimeout < 0 {
		problems = append(problems, "save lock_timeout is negative")
	}
	if c.Recovery.Timeout < 0 {
		problems = append(problems, "recovery timeout is negative")
	}
	if rules, fallback, err := c.RecoveryRules(); err != nil {
		problems = append(problems, err.Error())
	} else if _, err := recovery.NewRules(rules, fallback, nil); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return eris.Wrap(ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// RecoveryRules converts the recovery section into policy rules and the
// fallback decision.
func (c *Config) RecoveryRules() ([]recovery.Rule, recovery.Decision, error) {
	fallback, err := recovery.ParseDecision(c.Recovery.Default)
	if err != nil {
		return nil, recovery.Abort, fmt.Errorf("recovery default: %w", err)
	}
	rules := make([]recovery.Rule, 0, len(c.Recovery.Rules))
	for i, r := range c.Recovery.Rules {
		if strings.TrimSpace(r.When) == "" {
			return nil, fallback, fmt.Errorf("recovery rule %d: empty when", i)
		}
		d, err := recovery.ParseDecision(r.Action)
		if err != nil {
			return nil, fallback, fmt.Errorf("recovery rule %d: %w", i, err)
		}
		rules = append(rules, recovery.Rule{When: r.When, Decision: d})
	}
	return rules, fallback, nil
}
