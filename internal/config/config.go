// Package config loads .commitgroup.yml plus environment variables into a
// run configuration, following pkg/cli/config.go's LoadConfig/
// DefaultConfig/applyDefaults shape: an explicitly named file that's
// missing is an error, a default file that's missing falls back to
// DefaultConfig, and any field left zero after parsing gets its default
// filled in.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/toyinlola/commitgroup/internal/errkind"
)

const defaultConfigPath = ".commitgroup.yml"

// Config is the full resolved run configuration: file values with CLI
// flag overrides and defaults already applied.
type Config struct {
	Clustering ClusteringConfig `yaml:"clustering"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Model      ModelConfig      `yaml:"model"`
	Client     ClientConfig     `yaml:"client"`
	Output     OutputConfig     `yaml:"output"`

	// APIKey is read from the environment, never serialized.
	APIKey string `yaml:"-"`
}

// ClusteringConfig holds C7's threshold.
type ClusteringConfig struct {
	Threshold float64 `yaml:"threshold"`
}

// ChunkingConfig holds C4's size budget.
type ChunkingConfig struct {
	MaxChars int `yaml:"max_chars"`
}

// ModelConfig names the embedding/chat models and the API host.
type ModelConfig struct {
	Host           string `yaml:"host"`
	EmbeddingModel string `yaml:"embedding_model"`
	ChatModel      string `yaml:"chat_model"`
	APIKeyEnv      string `yaml:"api_key_env"`
	MaxTokens      int    `yaml:"max_tokens"`
	Temperature    float64 `yaml:"temperature"`
}

// ClientConfig holds C5's multiplexer timeout.
type ClientConfig struct {
	PollTimeoutMs int `yaml:"poll_timeout_ms"`
}

// OutputConfig controls where C8/C9 write patches and the manifest.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// Load reads and parses path, or .commitgroup.yml if path is empty. A
// missing explicitly-named file is an error; a missing default file
// returns DefaultConfig. The OPENAI_API_KEY-named environment variable
// (per ModelConfig.APIKeyEnv, defaulted below) is read last and is fatal
// if unset, per spec.md §6.
func Load(path string) (*Config, error) {
	useDefault := path == ""
	if useDefault {
		path = defaultConfigPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && useDefault {
			return finishLoad(DefaultConfig())
		}
		return nil, errkind.New(errkind.Config, fmt.Sprintf("reading %s", path), err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errkind.New(errkind.Config, fmt.Sprintf("parsing %s", path), err)
	}
	applyDefaults(cfg)
	return finishLoad(cfg)
}

// DefaultConfig returns a Config with every field set to its documented
// default, before environment variables are resolved.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Clustering.Threshold == 0 {
		cfg.Clustering.Threshold = 0.5
	}
	if cfg.Chunking.MaxChars == 0 {
		cfg.Chunking.MaxChars = 1500
	}
	if cfg.Model.Host == "" {
		cfg.Model.Host = "api.openai.com"
	}
	if cfg.Model.EmbeddingModel == "" {
		cfg.Model.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.Model.ChatModel == "" {
		cfg.Model.ChatModel = "gpt-4o-mini"
	}
	if cfg.Model.APIKeyEnv == "" {
		cfg.Model.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Model.MaxTokens == 0 {
		cfg.Model.MaxTokens = 200
	}
	if cfg.Client.PollTimeoutMs == 0 {
		cfg.Client.PollTimeoutMs = 1000
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "."
	}
}

// finishLoad resolves the API key from the environment; a missing key is
// a fatal Config error at startup.
func finishLoad(cfg *Config) (*Config, error) {
	key := os.Getenv(cfg.Model.APIKeyEnv)
	if key == "" {
		return nil, errkind.New(errkind.Config, "resolving API key",
			fmt.Errorf("environment variable %s is not set", cfg.Model.APIKeyEnv))
	}
	cfg.APIKey = key
	return cfg, nil
}
