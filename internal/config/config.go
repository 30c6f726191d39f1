// Package config loads assistant configuration from an optional YAML
// file, with .env and environment variables layered on top.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML accepts "30s"-style strings;
// yaml.v3 has no native support for them.
type Duration time.Duration

// UnmarshalYAML parses a duration string like "30s" or "2m".
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration back to its string form.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the full process configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Matcher   MatcherConfig   `yaml:"matcher"`
	LLM       LLMConfig       `yaml:"llm"`
	Memory    MemoryConfig    `yaml:"memory"`
	Redis     RedisConfig     `yaml:"redis"`
	NATS      NATSConfig      `yaml:"nats"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// CatalogConfig locates the FAQ catalog.
type CatalogConfig struct {
	Path string `yaml:"path"`
	// Watch enables automatic reload when the catalog file changes.
	Watch bool `yaml:"watch"`
}

// EmbeddingConfig selects the embedding backend.
type EmbeddingConfig struct {
	// Backend is "ollama" or "hash" (deterministic, offline).
	Backend   string `yaml:"backend"`
	OllamaURL string `yaml:"ollama_url"`
	Model     string `yaml:"model"`
	CacheSize int    `yaml:"cache_size"`
}

// MatcherConfig holds retrieval thresholds.
type MatcherConfig struct {
	RetrievalThreshold    float64 `yaml:"retrieval_threshold"`
	DirectAnswerThreshold float64 `yaml:"direct_answer_threshold"`
}

// LLMConfig holds generation provider settings. API keys come from the
// environment, never from the YAML file.
type LLMConfig struct {
	GroqAPIKey      string        `yaml:"-"`
	OpenAIAPIKey    string        `yaml:"-"`
	GroqModel       string        `yaml:"groq_model"`
	OpenAIModel     string        `yaml:"openai_model"`
	OllamaURL       string        `yaml:"ollama_url"`
	OllamaModel     string        `yaml:"ollama_model"`
	EnableOllama    bool     `yaml:"enable_ollama"`
	ProviderTimeout Duration `yaml:"provider_timeout"`
	MaxTokens       int      `yaml:"max_tokens"`
}

// MemoryConfig bounds conversation history.
type MemoryConfig struct {
	MaxTurns int `yaml:"max_turns"`
	MaxUsers int `yaml:"max_users"`
}

// RedisConfig enables turn archiving when Address is set.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"-"`
	DB       int    `yaml:"db"`
}

// NATSConfig enables turn event publishing when URL is set.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server:  ServerConfig{ListenAddr: ":8080"},
		Catalog: CatalogConfig{Path: "data/faq.json", Watch: true},
		Embedding: EmbeddingConfig{
			Backend:   "ollama",
			Model:     "nomic-embed-text",
			CacheSize: 1000,
		},
		Matcher: MatcherConfig{
			RetrievalThreshold:    0.45,
			DirectAnswerThreshold: 0.75,
		},
		LLM: LLMConfig{
			EnableOllama:    true,
			ProviderTimeout: Duration(30 * time.Second),
			MaxTokens:       500,
		},
		Memory: MemoryConfig{MaxTurns: 5, MaxUsers: 10000},
	}
}

// Load builds the configuration: defaults, then the YAML file at path
// (if any), then .env and process environment overrides.
func Load(path string) (Config, error) {
	// Best effort; a missing .env is normal outside development.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Server.ListenAddr, "LISTEN_ADDR")
	setString(&c.Catalog.Path, "FAQ_PATH")
	setString(&c.Embedding.Backend, "EMBEDDING_BACKEND")
	setString(&c.Embedding.OllamaURL, "OLLAMA_URL")
	setString(&c.Embedding.Model, "EMBEDDING_MODEL")
	setString(&c.LLM.GroqAPIKey, "GROQ_API_KEY")
	setString(&c.LLM.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&c.LLM.OllamaURL, "OLLAMA_URL")
	setString(&c.Redis.Address, "REDIS_ADDRESS")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.NATS.URL, "NATS_URL")
}

func setString(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}
