// internal/config/config.go
//
// Runtime configuration and the .sopforge directory structure. Every project
// that generates documents gets a .sopforge/ folder with its config, logs,
// and rendered output.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ProjectDirName is the directory created in each project root.
const ProjectDirName = ".sopforge"

const defaultConfigYAML = `# sopforge project configuration
version: 1

collaborator:
  # openai, or any OpenAI-compatible provider via base_url.
  provider: openai
  model: gpt-4o-mini
  # Name of the environment variable holding the API key.
  api_key_env: OPENAI_API_KEY
  # base_url: https://api.example.com/v1
  # Per-attempt deadline for collaborator calls, in seconds.
  timeout_seconds: 120

output:
  # Where finished documents are written, relative to the project root.
  dir: .sopforge/out
`

// CollaboratorConfig selects and tunes the generative-text collaborator.
type CollaboratorConfig struct {
	Provider       string `yaml:"provider"`
	Model          string `yaml:"model"`
	APIKeyEnv      string `yaml:"api_key_env"`
	BaseURL        string `yaml:"base_url,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// OutputConfig controls where rendered documents land.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// FileConfig models .sopforge/config.yaml.
type FileConfig struct {
	Version      int                `yaml:"version"`
	Collaborator CollaboratorConfig `yaml:"collaborator"`
	Output       OutputConfig       `yaml:"output"`
}

// Config holds the resolved runtime configuration.
type Config struct {
	// ProjectDir is where the user invoked the tool from.
	ProjectDir string

	// ForgeDir is ProjectDir/.sopforge.
	ForgeDir string

	File FileConfig
}

func defaultFileConfig() FileConfig {
	return FileConfig{
		Version: 1,
		Collaborator: CollaboratorConfig{
			Provider:       "openai",
			Model:          "gpt-4o-mini",
			APIKeyEnv:      "OPENAI_API_KEY",
			TimeoutSeconds: 120,
		},
		Output: OutputConfig{Dir: filepath.Join(ProjectDirName, "out")},
	}
}

// Init creates the .sopforge directory structure and a default config file
// when none exists yet.
func Init(projectDir string) error {
	forgeDir := filepath.Join(projectDir, ProjectDirName)
	dirs := []string{
		filepath.Join(forgeDir, "logs"),
		filepath.Join(forgeDir, "out"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: ensure %s: %w", dir, err)
		}
	}
	return ensureConfigFile(filepath.Join(forgeDir, "config.yaml"))
}

func ensureConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigYAML), 0o644); err != nil {
		return fmt.Errorf("config: write default %s: %w", path, err)
	}
	return nil
}

// Load resolves configuration for a project directory: built-in defaults
// overlaid with whatever .sopforge/config.yaml provides.
func Load(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir: projectDir,
		ForgeDir:   filepath.Join(projectDir, ProjectDirName),
		File:       defaultFileConfig(),
	}
	path := cfg.ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg.File); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.fillDefaults()
	return cfg, nil
}

func (c *Config) fillDefaults() {
	defaults := defaultFileConfig()
	if c.File.Collaborator.Provider == "" {
		c.File.Collaborator.Provider = defaults.Collaborator.Provider
	}
	if c.File.Collaborator.Model == "" {
		c.File.Collaborator.Model = defaults.Collaborator.Model
	}
	if c.File.Collaborator.APIKeyEnv == "" {
		c.File.Collaborator.APIKeyEnv = defaults.Collaborator.APIKeyEnv
	}
	if c.File.Collaborator.TimeoutSeconds <= 0 {
		c.File.Collaborator.TimeoutSeconds = defaults.Collaborator.TimeoutSeconds
	}
	if c.File.Output.Dir == "" {
		c.File.Output.Dir = defaults.Output.Dir
	}
}

// ConfigPath returns the on-disk location of the project config file.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.ForgeDir, "config.yaml")
}

// LogsDir returns the directory for run logs.
func (c *Config) LogsDir() string {
	return filepath.Join(c.ForgeDir, "logs")
}

// LogFile returns the run-log location handed to the logger.
func (c *Config) LogFile() string {
	return filepath.Join(c.LogsDir(), "sopforge.log")
}

// OutputDir returns the directory for rendered documents.
func (c *Config) OutputDir() string {
	if filepath.IsAbs(c.File.Output.Dir) {
		return c.File.Output.Dir
	}
	return filepath.Join(c.ProjectDir, c.File.Output.Dir)
}

// APIKey reads the collaborator key from the configured environment variable.
func (c *Config) APIKey() string {
	return os.Getenv(c.File.Collaborator.APIKeyEnv)
}

// CallTimeout returns the per-attempt collaborator deadline.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.File.Collaborator.TimeoutSeconds) * time.Second
}
