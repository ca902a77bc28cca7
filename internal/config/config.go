// Package config loads rpcaudit settings from .rpcaudit.yaml.
//
// Precedence is defaults, then the config file, then command-line flags the
// user set explicitly (applied by the caller).
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// DefaultFile is looked up in the working directory when no --config is given.
const DefaultFile = ".rpcaudit.yaml"

const (
	DefaultRoot   = "mathesar/rpc"
	DefaultMarker = "mathesar_rpc_method"
	DefaultFormat = "text"
)

// Formats lists the accepted output formats.
var Formats = []string{"text", "json", "toon"}

//go:embed schema.json
var schemaJSON string

var schemaLoader = gojsonschema.NewStringLoader(schemaJSON)

// Config holds all audit settings.
type Config struct {
	Root             string   `yaml:"root"`
	Marker           string   `yaml:"marker"`
	Extensions       []string `yaml:"extensions"`
	Exclude          []string `yaml:"exclude"`
	IgnoreParams     []string `yaml:"ignore_params"`
	RespectGitignore bool     `yaml:"respect_gitignore"`
	Prune            bool     `yaml:"prune"`
	Workers          int      `yaml:"workers"`
	Format           string   `yaml:"format"`
	FailOnIssues     bool     `yaml:"fail_on_issues"`
	ShowClean        bool     `yaml:"show_clean"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Root:         DefaultRoot,
		Marker:       DefaultMarker,
		Extensions:   []string{".py"},
		Format:       DefaultFormat,
		FailOnIssues: true,
	}
}

// Load reads path over the defaults. When optional is true a missing file
// yields the defaults instead of an error.
func Load(path string, optional bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && optional {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := validate(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// validate checks the raw document against the embedded JSON schema.
func validate(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if doc == nil {
		// Empty file.
		return nil
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Validate checks values that flags can also set.
func (c *Config) Validate() error {
	if c.Marker == "" {
		return errors.New("marker must not be empty")
	}
	if c.Root == "" {
		return errors.New("root must not be empty")
	}
	if len(c.Extensions) == 0 {
		return errors.New("at least one extension is required")
	}
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("extension %q must start with a dot", ext)
		}
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	for _, f := range Formats {
		if c.Format == f {
			return nil
		}
	}
	return fmt.Errorf("unsupported format %q (want one of %s)", c.Format, strings.Join(Formats, ", "))
}

// Marshal renders c as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
