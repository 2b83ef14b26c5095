// Package config loads the service configuration from an optional TOML file, a .env
// file and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Duration is a time.Duration decoded from strings such as "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// DatabaseConfig locates the SQLite database holding the catalog and the vector index.
type DatabaseConfig struct {
	Path string `toml:"path" validate:"required"`
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	Provider  string   `toml:"provider" validate:"oneof=ollama openai"`
	URL       string   `toml:"url" validate:"omitempty,url"`
	BaseURL   string   `toml:"base_url" validate:"omitempty,url"`
	APIKey    string   `toml:"api_key"`
	Model     string   `toml:"model" validate:"required"`
	Dimension int      `toml:"dimension" validate:"gt=0"`
	Timeout   Duration `toml:"timeout"`
}

// IndexConfig selects the nearest-neighbour backend.
type IndexConfig struct {
	Kind string `toml:"kind" validate:"oneof=brute vptree sql auto"`
}

// SyncConfig controls how the index is rebuilt.
type SyncConfig struct {
	KeyMode   string `toml:"key_mode" validate:"oneof=position id"`
	EmbedMode string `toml:"embed_mode" validate:"oneof=per_entry whole_catalog"`
	TwoStep   bool   `toml:"two_step"`
}

// ExternalConfig points at the relational store queried by data_get.
type ExternalConfig struct {
	Driver           string   `toml:"driver" validate:"omitempty,oneof=pgx postgres sqlite"`
	DSN              string   `toml:"dsn" validate:"required_with=Driver"`
	StatementTimeout Duration `toml:"statement_timeout"`
}

// MCPConfig selects the tool server transport.
type MCPConfig struct {
	Transport string `toml:"transport" validate:"oneof=stdio http"`
	Addr      string `toml:"addr" validate:"required_if=Transport http"`
}

// LogConfig configures zerolog.
type LogConfig struct {
	Level  string `toml:"level" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	Pretty bool   `toml:"pretty"`
}

// Config is the full service configuration.
type Config struct {
	Database  DatabaseConfig  `toml:"database"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Index     IndexConfig     `toml:"index"`
	Sync      SyncConfig      `toml:"sync"`
	External  ExternalConfig  `toml:"external"`
	MCP       MCPConfig       `toml:"mcp"`
	Log       LogConfig       `toml:"log"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "metavec.db"},
		Embedding: EmbeddingConfig{
			Provider:  "ollama",
			URL:       "http://localhost:11434/api/embed",
			Model:     "bge-m3",
			Dimension: 1024,
			Timeout:   Duration{30 * time.Second},
		},
		Index: IndexConfig{Kind: "brute"},
		Sync:  SyncConfig{KeyMode: "position", EmbedMode: "per_entry"},
		MCP:   MCPConfig{Transport: "stdio", Addr: "127.0.0.1:8627"},
		Log:   LogConfig{Level: "info"},
	}
}

// Load builds the configuration: defaults, then the TOML file at path (skipped when
// path is empty), then variables from envFiles (never overriding the real environment),
// then the environment. The result is validated.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}
	if err := loadDotEnv(envFiles...); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", file, err)
		}
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Database.Path, "SQLITE_DATABASE")
	setString(&c.Embedding.Provider, "EMBEDDING_PROVIDER")
	setString(&c.Embedding.URL, "OLLAMA_URL")
	setString(&c.Embedding.BaseURL, "OPENAI_BASE_URL")
	setString(&c.Embedding.APIKey, "OPENAI_API_KEY")
	setString(&c.Embedding.Model, "EMBEDDING_MODEL")
	setString(&c.Index.Kind, "INDEX_KIND")
	setString(&c.Sync.KeyMode, "SYNC_KEY_MODE")
	setString(&c.Sync.EmbedMode, "SYNC_EMBED_MODE")
	setString(&c.External.Driver, "EXTERNAL_DRIVER")
	setString(&c.External.DSN, "EXTERNAL_DSN")
	setString(&c.MCP.Transport, "MCP_TRANSPORT")
	setString(&c.MCP.Addr, "MCP_ADDR")
	setString(&c.Log.Level, "LOG_LEVEL")
	if err := setInt(&c.Embedding.Dimension, "VECTOR_DIMENSION"); err != nil {
		return err
	}
	if err := setDuration(&c.Embedding.Timeout, "EMBEDDING_TIMEOUT"); err != nil {
		return err
	}
	if err := setDuration(&c.External.StatementTimeout, "EXTERNAL_STATEMENT_TIMEOUT"); err != nil {
		return err
	}
	if err := setBool(&c.Sync.TwoStep, "SYNC_TWO_STEP"); err != nil {
		return err
	}
	if err := setBool(&c.Log.Pretty, "LOG_PRETTY"); err != nil {
		return err
	}
	c.Embedding.Provider = strings.ToLower(c.Embedding.Provider)
	c.Log.Level = strings.ToLower(c.Log.Level)
	if c.External.DSN == "" && os.Getenv("ORACLE_DSN") != "" {
		return fmt.Errorf("ORACLE_DSN is set but Oracle is not supported; set EXTERNAL_DRIVER and EXTERNAL_DSN")
	}
	return nil
}

// ValidateConfig checks field constraints.
func ValidateConfig(cfg *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Embedding.Provider == "ollama" && cfg.Embedding.URL == "" {
		return fmt.Errorf("invalid configuration: embedding.url is required for the ollama provider")
	}
	if cfg.Embedding.Provider == "openai" && cfg.Embedding.APIKey == "" && cfg.Embedding.BaseURL == "" {
		return fmt.Errorf("invalid configuration: embedding.api_key is required for the openai provider")
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = b
	return nil
}

func setDuration(dst *Duration, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	dst.Duration = d
	return nil
}
