//go:build !rp2040

package config

import (
	"os"

	pkgerrors "github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Load reads a YAML file over the defaults. A missing file yields the
// defaults; fields left out of the file keep their default values.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, pkgerrors.Wrapf(err, "failed to read config file %s", filename)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to parse config")
	}
	cfg.ensureDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to marshal config")
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return pkgerrors.Wrapf(err, "failed to write config file %s", filename)
	}
	return nil
}

// ensureDefaults restores fields a file explicitly zeroed where zero is
// never meaningful.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Blink.InitialMS == 0 {
		c.Blink.InitialMS = def.Blink.InitialMS
	}
	if c.Blink.LogEvery == 0 {
		c.Blink.LogEvery = def.Blink.LogEvery
	}
	if c.SHT31.Address == 0 {
		c.SHT31.Address = def.SHT31.Address
	}
	if c.SHT31.Repeatability == "" {
		c.SHT31.Repeatability = def.SHT31.Repeatability
	}
	if c.Sim.SupplyMV == 0 {
		c.Sim.SupplyMV = def.Sim.SupplyMV
	}
}
