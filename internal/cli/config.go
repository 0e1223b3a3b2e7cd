package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/syssam/bulkwrite/batch"
	"github.com/syssam/bulkwrite/dialect"
	"github.com/syssam/bulkwrite/writer"
)

const (
	maxWalkDepth = 25
	envPrefix    = "BULKWRITE"
)

// ConfigNames are the file names probed during auto-discovery, in order.
var ConfigNames = []string{"bulkwrite.yaml", "bulkwrite.yml"}

// Config represents the bulkwrite configuration from bulkwrite.yaml.
type Config struct {
	Dialect  DialectConfig  `mapstructure:"dialect" yaml:"dialect"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Batch    BatchConfig    `mapstructure:"batch" yaml:"batch"`
	Gen      GenConfig      `mapstructure:"gen" yaml:"gen"`
}

// DialectConfig selects the target dialect.
type DialectConfig struct {
	// Name is a dialect or driver name. Empty derives it from database.driver.
	Name               string `mapstructure:"name" yaml:"name"`
	OracleMajorVersion int    `mapstructure:"oracle_major_version" yaml:"oracle_major_version"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	URL    string `mapstructure:"url" yaml:"url"`
}

// BatchConfig holds the batch planner settings.
type BatchConfig struct {
	Size             int  `mapstructure:"size" yaml:"size"`
	Rewrite          bool `mapstructure:"rewrite" yaml:"rewrite"`
	RewriteGroupSize int  `mapstructure:"rewrite_group_size" yaml:"rewrite_group_size"`
}

// GenConfig holds descriptor generation settings.
type GenConfig struct {
	Output string `mapstructure:"output" yaml:"output"`
	Tag    string `mapstructure:"tag" yaml:"tag"`
}

// LoadConfig discovers and loads configuration with proper precedence:
// flags > env > config file > defaults.
//
// Returns the loaded config, the path to the config file (empty if none found),
// and any error encountered.
func LoadConfig(explicitConfigPath string) (*Config, string, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath, err := findConfigFile(explicitConfigPath)
	if err != nil {
		return nil, "", err
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, configPath, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, configPath, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, configPath, err
	}
	return &cfg, configPath, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("dialect.name", "")
	v.SetDefault("dialect.oracle_major_version", 0)

	v.SetDefault("database.driver", "pgx")
	v.SetDefault("database.url", "")

	v.SetDefault("batch.size", batch.DefaultSize)
	v.SetDefault("batch.rewrite", false)
	v.SetDefault("batch.rewrite_group_size", batch.DefaultRewriteGroupSize)

	v.SetDefault("gen.output", "bulkwrite_gen.go")
	v.SetDefault("gen.tag", "bulk")
}

// findConfigFile finds the config file to use.
// If explicitPath is provided, it validates the file exists.
// Otherwise, it walks up from cwd looking for bulkwrite.yaml or bulkwrite.yml,
// stopping at a .git directory or after maxWalkDepth levels.
func findConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting cwd: %w", err)
	}
	dir := cwd
	for i := 0; i < maxWalkDepth; i++ {
		for _, name := range ConfigNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", nil
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	switch {
	case c.Batch.Size < 0:
		return fmt.Errorf("batch.size must not be negative, got %d", c.Batch.Size)
	case c.Batch.RewriteGroupSize < 0:
		return fmt.Errorf("batch.rewrite_group_size must not be negative, got %d", c.Batch.RewriteGroupSize)
	case c.Dialect.OracleMajorVersion < 0:
		return fmt.Errorf("dialect.oracle_major_version must not be negative, got %d", c.Dialect.OracleMajorVersion)
	case c.Dialect.OracleMajorVersion > 0 && c.DialectName() != dialect.Oracle:
		return fmt.Errorf("dialect.oracle_major_version is set for dialect %q", c.DialectName())
	}
	return nil
}

// DialectName returns the effective dialect: dialect.name when set,
// otherwise the dialect of database.driver.
func (c *Config) DialectName() string {
	if c.Dialect.Name != "" {
		return dialect.Normalize(c.Dialect.Name)
	}
	return dialect.Normalize(c.Database.Driver)
}

// Capabilities returns the capabilities of the effective dialect.
func (c *Config) Capabilities() dialect.Capabilities {
	name := c.DialectName()
	if name == dialect.Oracle && c.Dialect.OracleMajorVersion > 0 {
		return dialect.OracleVersion(c.Dialect.OracleMajorVersion)
	}
	return dialect.For(name)
}

// BatchOptions returns the batch planner options.
func (c *Config) BatchOptions() batch.Options {
	return batch.Options{
		Size:             c.Batch.Size,
		Rewrite:          c.Batch.Rewrite,
		RewriteGroupSize: c.Batch.RewriteGroupSize,
	}
}

// WriterOptions returns the client options described by the configuration.
func (c *Config) WriterOptions() []writer.Option {
	return []writer.Option{
		writer.WithCapabilities(c.Capabilities()),
		writer.WithBatch(c.BatchOptions()),
	}
}

// DSN returns the database connection string.
func (c *Config) DSN() (string, error) {
	if c.Database.URL == "" {
		return "", fmt.Errorf("database.url is required (or set %s_DATABASE_URL)", envPrefix)
	}
	return c.Database.URL, nil
}
