package trailgen

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// GenConfig describes a synthetic trail, parsed from YAML.
type GenConfig struct {
	Output        string  `yaml:"output"`
	Seed          int64   `yaml:"seed"`
	AccountID     string  `yaml:"accountId"`
	Regions       []string `yaml:"regions"`
	Files         int     `yaml:"files"`
	EventsPerFile int     `yaml:"eventsPerFile"`
	Gzip          bool    `yaml:"gzip"`
	Start         string  `yaml:"start"` // RFC3339; events are spread forward from here

	// Suspicious is the share of events drawn from the detection templates.
	Suspicious float64 `yaml:"suspicious"`
	// Rules restricts suspicious templates to these rule names. Empty means all.
	Rules []string `yaml:"rules"`
}

// ReplayConfig drives repeated scans of a generated trail into a store.
type ReplayConfig struct {
	Dir         string `yaml:"dir"`
	Scans       int    `yaml:"scans"`
	Concurrency int    `yaml:"concurrency"`
	Workers     int    `yaml:"workers"` // detection workers per scan
}

func readGenConfig(path string) (GenConfig, error) {
	var cfg GenConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadGenConfig reads a generator config and fills defaults.
func LoadGenConfig(path string) (GenConfig, error) {
	cfg, err := readGenConfig(path)
	if err != nil {
		return cfg, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *GenConfig) applyDefaults() {
	if c.Output == "" {
		c.Output = "sample_logs"
	}
	if c.AccountID == "" {
		c.AccountID = "123456789012"
	}
	if len(c.Regions) == 0 {
		c.Regions = []string{"us-east-1"}
	}
	if c.Files <= 0 {
		c.Files = 1
	}
	if c.EventsPerFile <= 0 {
		c.EventsPerFile = 100
	}
	if c.Suspicious < 0 {
		c.Suspicious = 0
	}
	if c.Suspicious > 1 {
		c.Suspicious = 1
	}
}

func (r *ReplayConfig) applyDefaults() {
	if r.Dir == "" {
		r.Dir = "sample_logs"
	}
	if r.Scans <= 0 {
		r.Scans = 1
	}
	if r.Concurrency <= 0 {
		r.Concurrency = 1
	}
}
