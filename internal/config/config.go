package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type LLMConfig struct {
	Provider    string  `toml:"provider"`
	Model       string  `toml:"model"`
	APIKey      string  `toml:"api_key"`
	BaseURL     string  `toml:"base_url"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
}

// ValidatorConfig describes one independent validator. Empty LLM fields fall
// back to the top-level [llm] section.
type ValidatorConfig struct {
	ID  string    `toml:"id"`
	LLM LLMConfig `toml:"llm"`
}

type WebConfig struct {
	Timeout        Duration `toml:"timeout"`
	UserAgent      string   `toml:"user_agent"`
	MaxBytes       int64    `toml:"max_bytes"`
	RatePerSecond  float64  `toml:"rate_per_second"`
	Burst          int      `toml:"burst"`
	KeepMarkupHTML bool     `toml:"keep_markup"`
}

type ConsensusConfig struct {
	// Replicas is the number of validators created from [llm] when no
	// [[validators]] are listed.
	Replicas            int     `toml:"replicas"`
	SimilarityThreshold float64 `toml:"similarity_threshold"`
	UseJudge            bool    `toml:"use_judge"`
}

type Prompts struct {
	Judge string `toml:"judge"`
}

type MemgraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type ServerConfig struct {
	Port string `toml:"port"`
}

type Config struct {
	LLM        LLMConfig         `toml:"llm"`
	Validators []ValidatorConfig `toml:"validators"`
	Web        WebConfig         `toml:"web"`
	Consensus  ConsensusConfig   `toml:"consensus"`
	Prompts    Prompts           `toml:"prompts"`
	Memgraph   MemgraphConfig    `toml:"memgraph"`
	Server     ServerConfig      `toml:"server"`
}

// Duration lets TOML carry values such as "15s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file is present: a local
// Ollama model replicated across three validators.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:  "ollama",
			Model:     "gpt-oss:latest",
			BaseURL:   "http://localhost:11434",
			MaxTokens: 1000,
		},
		Web: WebConfig{
			Timeout:       Duration{15 * time.Second},
			UserAgent:     "equivalence-oracle/1.0",
			MaxBytes:      2 << 20,
			RatePerSecond: 4,
			Burst:         4,
		},
		Consensus: ConsensusConfig{
			Replicas:            3,
			SimilarityThreshold: 0.6,
		},
		Server: ServerConfig{Port: "8080"},
	}
}

// Load reads a TOML file on top of Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config '%s': %w", path, err)
	}

	return cfg, nil
}

// Validate rejects settings the consensus engine cannot honor.
func (c *Config) Validate() error {
	if t := c.Consensus.SimilarityThreshold; t <= 0 || t > 1 {
		return fmt.Errorf("consensus.similarity_threshold must be in (0, 1], got %v", t)
	}
	if c.Consensus.Replicas < 0 {
		return fmt.Errorf("consensus.replicas must not be negative, got %d", c.Consensus.Replicas)
	}
	if c.Web.MaxBytes < 0 {
		return fmt.Errorf("web.max_bytes must not be negative, got %d", c.Web.MaxBytes)
	}
	return nil
}

// ApplyEnv overrides fields from the process environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("MEMGRAPH_URI"); v != "" {
		c.Memgraph.URI = v
	}
	if v := os.Getenv("MEMGRAPH_USER"); v != "" {
		c.Memgraph.User = v
	}
	if v := os.Getenv("MEMGRAPH_PASSWORD"); v != "" {
		c.Memgraph.Password = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
}

// ValidatorSet resolves the effective validator list. Listed validators
// inherit unset LLM fields from [llm]; otherwise Replicas copies of [llm] are
// produced with ids "validator-1".."validator-N".
func (c *Config) ValidatorSet() []ValidatorConfig {
	if len(c.Validators) > 0 {
		out := make([]ValidatorConfig, len(c.Validators))
		for i, v := range c.Validators {
			if v.ID == "" {
				v.ID = fmt.Sprintf("validator-%d", i+1)
			}
			v.LLM = mergeLLM(v.LLM, c.LLM)
			out[i] = v
		}
		return out
	}

	n := c.Consensus.Replicas
	if n <= 0 {
		n = 1
	}
	out := make([]ValidatorConfig, n)
	for i := range out {
		out[i] = ValidatorConfig{ID: fmt.Sprintf("validator-%d", i+1), LLM: c.LLM}
	}
	return out
}

func mergeLLM(v, base LLMConfig) LLMConfig {
	if v.Provider == "" {
		v.Provider = base.Provider
	}
	if v.Model == "" {
		v.Model = base.Model
	}
	if v.APIKey == "" {
		v.APIKey = base.APIKey
	}
	if v.BaseURL == "" {
		v.BaseURL = base.BaseURL
	}
	if v.MaxTokens == 0 {
		v.MaxTokens = base.MaxTokens
	}
	if v.Temperature == 0 {
		v.Temperature = base.Temperature
	}
	return v
}
