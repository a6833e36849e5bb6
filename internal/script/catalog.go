// Package script loads the device command templates that drive automation jobs.
package script

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/dandantas/adbfleet/internal/device"
	"github.com/dandantas/adbfleet/internal/evaluator"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Duration is a time.Duration that unmarshals from strings like "1s"
type Duration time.Duration

// UnmarshalYAML parses a Go duration string
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Step is one templated device command
type Step struct {
	Name     string   `yaml:"name"`
	Command  string   `yaml:"command"`
	Wait     Duration `yaml:"wait"`
	Required bool     `yaml:"required"`
}

// Check is a templated command whose output is matched by a rule
type Check struct {
	Name           string `yaml:"name"`
	Command        string `yaml:"command"`
	evaluator.Rule `yaml:",inline"`
}

// YouTube holds the playlist job templates
type YouTube struct {
	Play      string `yaml:"play"`
	AfterPlay []Step `yaml:"after_play"`
	Probe     Check  `yaml:"probe"`
}

// SignIn holds the account sign-in job templates
type SignIn struct {
	Preflight []Check `yaml:"preflight"`
	Steps     []Step  `yaml:"steps"`
	Verify    Check   `yaml:"verify"`
}

// Catalog is the full set of job templates
type Catalog struct {
	YouTube YouTube `yaml:"youtube"`
	SignIn  SignIn  `yaml:"signin"`
}

// Default returns the embedded catalog
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog from path, or the embedded one when path is empty
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog
func Parse(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse script catalog: %w", err)
	}
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return &catalog, nil
}

// Validate checks that templates are present, parse, and use known operators
func (c *Catalog) Validate() error {
	var errs []error

	if c.YouTube.Play == "" {
		errs = append(errs, errors.New("youtube.play is required"))
	}
	if len(c.SignIn.Steps) == 0 {
		errs = append(errs, errors.New("signin.steps must not be empty"))
	}

	commands := []string{c.YouTube.Play}
	for _, step := range c.YouTube.AfterPlay {
		commands = append(commands, step.Command)
	}
	for _, step := range c.SignIn.Steps {
		commands = append(commands, step.Command)
	}

	checks := append([]Check{}, c.SignIn.Preflight...)
	if c.YouTube.Probe.Command != "" {
		checks = append(checks, c.YouTube.Probe)
	}
	if c.SignIn.Verify.Command != "" {
		checks = append(checks, c.SignIn.Verify)
	}
	for _, check := range checks {
		commands = append(commands, check.Command)
		if err := check.Rule.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("check %q: %w", check.Command, err))
		}
	}

	for _, command := range commands {
		if _, err := newTemplate(command); err != nil {
			errs = append(errs, fmt.Errorf("template %q: %w", command, err))
		}
	}

	return errors.Join(errs...)
}

var funcs = template.FuncMap{
	"quote": device.ShellQuote,
	// quoted once for the host shell and once for the device shell
	"text": func(s string) string {
		return device.ShellQuote(device.ShellQuote(strings.ReplaceAll(s, " ", "%s")))
	},
}

func newTemplate(text string) (*template.Template, error) {
	return template.New("command").Funcs(funcs).Option("missingkey=error").Parse(text)
}

// Render expands a command template with data
func Render(command string, data any) (string, error) {
	tmpl, err := newTemplate(command)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %q: %w", command, err)
	}
	return buf.String(), nil
}
