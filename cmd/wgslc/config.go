package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml"

	"github.com/gogpu/wgslc"
)

// tomlConfig is the wgslc.toml build configuration.
type tomlConfig struct {
	Build *tomlBuild `toml:"build"`
}

type tomlBuild struct {
	EntryPoint     string             `toml:"entry-point,omitempty"`
	CompactNames   bool               `toml:"compact-names"`
	MaxParseErrors int                `toml:"max-parse-errors,omitempty"`
	Overrides      map[string]float64 `toml:"overrides,omitempty"`
}

// loadConfig reads a TOML build config and fills opts. Values set on the
// command line are applied on top by the caller.
func loadConfig(path string, opts *wgslc.Options) error {
	buff, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	cfg := &tomlConfig{}
	if err := toml.Unmarshal(buff, cfg); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if cfg.Build == nil {
		return fmt.Errorf("%s: missing [build] table", path)
	}

	opts.EntryPoint = cfg.Build.EntryPoint
	opts.CompactNames = cfg.Build.CompactNames
	if cfg.Build.MaxParseErrors > 0 {
		opts.MaxParseErrors = cfg.Build.MaxParseErrors
	}
	if len(cfg.Build.Overrides) > 0 {
		opts.Overrides = make(map[string]float64, len(cfg.Build.Overrides))
		for name, value := range cfg.Build.Overrides {
			opts.Overrides[name] = value
		}
	}
	return nil
}

// overrideFlags collects repeated -set name=value flags.
type overrideFlags struct {
	values map[string]float64
}

func (o *overrideFlags) String() string {
	parts := make([]string, 0, len(o.values))
	for name, value := range o.values {
		parts = append(parts, fmt.Sprintf("%s=%g", name, value))
	}
	return strings.Join(parts, ",")
}

func (o *overrideFlags) Set(arg string) error {
	name, valueText, ok := strings.Cut(arg, "=")
	if !ok || name == "" {
		return fmt.Errorf("expected name=value, got %q", arg)
	}
	value, err := strconv.ParseFloat(valueText, 64)
	if err != nil {
		return fmt.Errorf("invalid value for override %q: %v", name, err)
	}
	if o.values == nil {
		o.values = make(map[string]float64)
	}
	o.values[name] = value
	return nil
}
