// Package config loads the guard's YAML configuration. Supabase credentials
// stay in the environment; the file only carries server settings and policy
// overrides.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Gate   GateConfig   `yaml:"gate"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
	Env  string `yaml:"env"`
}

// GateConfig overrides the shipped gating policy. Empty fields keep the
// defaults.
type GateConfig struct {
	AllowedCountry  string   `yaml:"allowed_country"`
	MobileTokens    []string `yaml:"mobile_tokens"`
	IDPrefix        string   `yaml:"id_prefix"`
	LookupTimeoutMs int      `yaml:"lookup_timeout_ms"`
	AuditTimeoutMs  int      `yaml:"audit_timeout_ms"`
}

// LookupTimeout returns the configured lookup bound, or zero when unset.
func (g GateConfig) LookupTimeout() time.Duration {
	return time.Duration(g.LookupTimeoutMs) * time.Millisecond
}

// AuditTimeout returns the configured audit write bound, or zero when unset.
func (g GateConfig) AuditTimeout() time.Duration {
	return time.Duration(g.AuditTimeoutMs) * time.Millisecond
}

// LoadConfig reads the configuration file at path. A missing file is not an
// error: the service runs on defaults.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
