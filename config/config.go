// Package config loads the project configuration file .capcheck.yaml.
//
//	# extra methods that take &mut self
//	mutating_methods: [append_all, reset]
//	# methods that only take &self, overriding built-ins
//	shared_methods: [next]
//	jobs: 4
//	color: auto   # auto, always or never
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rubiojr/capcheck/ast"
	"github.com/rubiojr/capcheck/methods"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up by Find.
const FileName = ".capcheck.yaml"

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config is the decoded configuration file.
type Config struct {
	MutatingMethods []string `yaml:"mutating_methods"`
	SharedMethods   []string `yaml:"shared_methods"`
	Jobs            int      `yaml:"jobs"`
	Color           string   `yaml:"color"`

	// Path is the file the configuration was read from, empty for defaults.
	Path string `yaml:"-"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{Jobs: 1, Color: ColorAuto}
}

// Parse decodes a configuration document. Unknown keys are errors.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// Find looks for FileName in dir and its parents. It returns the default
// configuration when none is found.
func Find(dir string) (*Config, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("checking %s: %w", path, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

func (c *Config) validate() error {
	switch c.Color {
	case "":
		c.Color = ColorAuto
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("color: unknown mode %q (want auto, always or never)", c.Color)
	}
	if c.Jobs < 0 {
		return fmt.Errorf("jobs: must not be negative, got %d", c.Jobs)
	}
	seen := make(map[string]bool)
	for _, m := range c.MutatingMethods {
		seen[m] = true
	}
	for _, m := range c.SharedMethods {
		if seen[m] {
			return fmt.Errorf("method %q listed as both mutating and shared", m)
		}
	}
	return nil
}

// Apply registers the configured methods in t, overriding built-ins.
func (c *Config) Apply(t *methods.Table) {
	for _, m := range c.MutatingMethods {
		t.Register(methods.Sig{Name: m, Receiver: ast.RecvMut, Source: methods.Config})
	}
	for _, m := range c.SharedMethods {
		t.Register(methods.Sig{Name: m, Receiver: ast.RecvShared, Source: methods.Config})
	}
}

// Methods returns the built-in signatures with the configuration applied.
func (c *Config) Methods() *methods.Table {
	t := methods.Defaults()
	c.Apply(t)
	return t
}
