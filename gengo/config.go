package gengo

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/mod/module"
	"gopkg.in/yaml.v3"

	"github.com/gtkflux/gobject-runtime/errors"
)

// Config drives a generation run, normally loaded from girgen.yaml.
type Config struct {
	// Module is the import path of the module the bindings are written
	// into. Generated cross-namespace imports are rooted here.
	Module string `yaml:"module"`

	// Out is the output directory; each namespace becomes one package
	// directory under it.
	Out string `yaml:"out"`

	// Namespaces selects and tunes the namespaces to generate. A
	// namespace present in the GIR input but absent here is skipped.
	Namespaces []NamespaceConfig `yaml:"namespaces"`
}

// NamespaceConfig tunes one namespace.
type NamespaceConfig struct {
	// Name and Version match the GIR namespace ("Gtk", "4.0").
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Package overrides the generated package name; default is the
	// lowercased namespace name.
	Package string `yaml:"package,omitempty"`

	// Library overrides the logical library name used for symbol
	// resolution; default derives from name and version ("gtk-4.0").
	Library string `yaml:"library,omitempty"`
}

// LoadConfig reads and validates a girgen.yaml.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseGenerate, errors.KindInvalidData, err, "read config")
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrap(errors.PhaseGenerate, errors.KindInvalidData, err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the config for the mistakes that would otherwise
// surface as broken generated code.
func (c *Config) Validate() error {
	if c.Module == "" {
		return errors.InvalidData(errors.PhaseGenerate, "config: module path is required")
	}
	if err := module.CheckImportPath(c.Module); err != nil {
		return errors.Wrap(errors.PhaseGenerate, errors.KindInvalidData, err,
			fmt.Sprintf("config: module path %q", c.Module))
	}
	if len(c.Namespaces) == 0 {
		return errors.InvalidData(errors.PhaseGenerate, "config: at least one namespace is required")
	}
	seen := make(map[string]bool, len(c.Namespaces))
	for i := range c.Namespaces {
		ns := &c.Namespaces[i]
		if ns.Name == "" {
			return errors.InvalidData(errors.PhaseGenerate, "config: namespace name is required")
		}
		if seen[ns.Name] {
			return errors.InvalidData(errors.PhaseGenerate, "config: duplicate namespace "+ns.Name)
		}
		seen[ns.Name] = true
	}
	return nil
}

// nsConfig returns the configured entry for a namespace name, or nil.
func (c *Config) nsConfig(name string) *NamespaceConfig {
	for i := range c.Namespaces {
		if c.Namespaces[i].Name == name {
			return &c.Namespaces[i]
		}
	}
	return nil
}

// PackageName returns the generated package name for a namespace.
func (nc *NamespaceConfig) PackageName() string {
	if nc.Package != "" {
		return nc.Package
	}
	return strings.ToLower(nc.Name)
}

// LibraryName returns the logical library name for symbol resolution.
func (nc *NamespaceConfig) LibraryName() string {
	if nc.Library != "" {
		return nc.Library
	}
	// glib keys its soname by "2.0", gtk by "4.0"; the logical name
	// keeps the full namespace version.
	return strings.ToLower(nc.Name) + "-" + nc.Version
}
