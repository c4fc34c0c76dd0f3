// Package config holds the VM's runtime-toggleable debug settings,
// loaded from an optional YAML file.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the config file name looked for in the current
// directory when --config is not given.
const DefaultConfigFile = ".glimmer.yaml"

// DefaultCachePath is where `glimmer compile` writes its bytecode cache
// when -o is not given.
const DefaultCachePath = "a.glimc"

// Config holds the runtime toggles that, in the original C
// implementation, were compile-time flags in common.h
// (DEBUG_PRINT_CODE, DEBUG_TRACE_EXECUTION, DEBUG_STRESS_GC,
// DEBUG_LOG_GC). Exposing them as a loaded struct instead of build tags
// lets one compiled glimmer binary switch modes without a rebuild.
type Config struct {
	// Debug disassembles the top-level script's chunk to stderr after
	// Interpret compiles it successfully. Chunks of nested functions are
	// not listed separately.
	Debug bool `yaml:"debug"`
	// TraceExec prints each instruction and the stack contents before
	// it executes.
	TraceExec bool `yaml:"trace_exec"`
	// StressGC runs a full collection before every allocation, to
	// shake out GC-root bugs that a healthy heap would never trigger.
	StressGC bool `yaml:"stress_gc"`
	// GCLogging prints a begin line and an end line for every collection
	// cycle (the end line gives bytes before/after and the new threshold).
	GCLogging bool `yaml:"gc_log"`
	// CachePath is the default output path for `glimmer compile` when
	// -o is omitted.
	CachePath string `yaml:"cache_path"`
}

// Default returns the zero-value configuration: every debug toggle off,
// default cache path.
func Default() *Config {
	return &Config{CachePath: DefaultCachePath}
}

// Load reads a YAML config file at path. A missing file is not an
// error — Load silently returns the default configuration, matching
// the teacher's own "absent file means defaults" loading behavior.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.CachePath == "" {
		cfg.CachePath = DefaultCachePath
	}
	return cfg, nil
}
