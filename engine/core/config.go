package core

import (
	"bytes"
	"fmt"
	"os"
	"runtime"

	"github.com/pelletier/go-toml/v2"
)

type LogConfig struct {
	/** @brief One of debug, info, warn, error. */
	Level string `toml:"level"`
}

type AssetConfig struct {
	/** @brief Directory that relative texture urls are resolved against. */
	BasePath string `toml:"base_path"`
	/** @brief Watch BasePath and reload textures whose files change. */
	Watch bool `toml:"watch"`
	/** @brief Timeout applied to http(s) fetches, in seconds. */
	HTTPTimeoutSeconds int `toml:"http_timeout_seconds"`
	/** @brief Largest http(s) response body accepted, in bytes. */
	MaxFetchBytes int64 `toml:"max_fetch_bytes"`
}

type TextureConfig struct {
	/** @brief The maximum number of texture sources that can be registered at once. */
	MaxTextureCount uint32 `toml:"max_texture_count"`
	/** @brief Number of decode workers. */
	Workers int `toml:"workers"`
	/** @brief Capacity of the decode job queue. */
	QueueSize int `toml:"queue_size"`
}

// DefaultMaxFetchBytes bounds remote fetches when no limit is configured.
const DefaultMaxFetchBytes int64 = 64 << 20

type MaterialsConfig struct {
	/** @brief The maximum number of materials that can be registered at once. */
	MaxMaterialCount uint32 `toml:"max_material_count"`
}

// Config is the root of the TOML configuration file.
type Config struct {
	Log       LogConfig       `toml:"log"`
	Assets    AssetConfig     `toml:"assets"`
	Textures  TextureConfig   `toml:"textures"`
	Materials MaterialsConfig `toml:"materials"`
}

func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		Assets: AssetConfig{
			BasePath:           "assets",
			HTTPTimeoutSeconds: 30,
			MaxFetchBytes:      DefaultMaxFetchBytes,
		},
		Textures: TextureConfig{
			MaxTextureCount: 1024,
			Workers:         runtime.NumCPU(),
			QueueSize:       256,
		},
		Materials: MaterialsConfig{
			MaxMaterialCount: 256,
		},
	}
}

// LoadConfig reads a TOML file on top of DefaultConfig. Keys missing from the
// file keep their default value; unknown keys are rejected.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Textures.MaxTextureCount == 0 {
		return fmt.Errorf("textures.max_texture_count must be > 0")
	}
	if c.Textures.Workers <= 0 {
		return fmt.Errorf("textures.workers must be > 0")
	}
	if c.Textures.QueueSize < 0 {
		return fmt.Errorf("textures.queue_size must be >= 0")
	}
	if c.Materials.MaxMaterialCount == 0 {
		return fmt.Errorf("materials.max_material_count must be > 0")
	}
	if c.Assets.HTTPTimeoutSeconds < 0 {
		return fmt.Errorf("assets.http_timeout_seconds must be >= 0")
	}
	if c.Assets.MaxFetchBytes <= 0 {
		return fmt.Errorf("assets.max_fetch_bytes must be > 0")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("log.level %q is not a valid level", c.Log.Level)
	}
	return nil
}
