package writer

import (
	"log/slog"

	"github.com/syssam/bulkwrite"
	"github.com/syssam/bulkwrite/batch"
	"github.com/syssam/bulkwrite/dialect"
	"github.com/syssam/bulkwrite/schema"
)

// Config holds the client configuration.
type Config struct {
	// Dialect holds the capabilities of the target database. It defaults to
	// the dialect reported by the driver.
	Dialect dialect.Capabilities
	// Registry resolves record types. It defaults to schema.Default.
	Registry *schema.Registry
	// Batch configures the batch planner.
	Batch batch.Options
	// Logger receives client, executor and allocator logs.
	Logger *slog.Logger
}

// Option configures a Client.
type Option func(*Config) error

// WithDialect sets the dialect by name. Driver names such as "pgx" or
// "godror" are accepted.
func WithDialect(name string) Option {
	return func(c *Config) error {
		if name == "" {
			return bulkwrite.NewConfigError("Dialect", nil, "dialect name cannot be empty")
		}
		c.Dialect = dialect.For(dialect.Normalize(name))
		return nil
	}
}

// WithCapabilities sets the dialect capabilities directly.
func WithCapabilities(caps dialect.Capabilities) Option {
	return func(c *Config) error {
		if caps.Name == "" {
			return bulkwrite.NewConfigError("Dialect", nil, "capabilities without a dialect name")
		}
		c.Dialect = caps
		return nil
	}
}

// WithOracleVersion targets an Oracle server of the given major version.
func WithOracleVersion(major int) Option {
	return func(c *Config) error {
		if major < 1 {
			return bulkwrite.NewConfigError("OracleVersion", major, "major version must be positive")
		}
		c.Dialect = dialect.OracleVersion(major)
		return nil
	}
}

// WithRegistry sets the registry used to resolve record types.
func WithRegistry(r *schema.Registry) Option {
	return func(c *Config) error {
		if r == nil {
			return bulkwrite.NewConfigError("Registry", nil, "registry cannot be nil")
		}
		c.Registry = r
		return nil
	}
}

// WithBatch sets the batch planner options.
func WithBatch(opts batch.Options) Option {
	return func(c *Config) error {
		switch {
		case opts.Size < 0:
			return bulkwrite.NewConfigError("Batch.Size", opts.Size, "batch size cannot be negative")
		case opts.RewriteGroupSize < 0:
			return bulkwrite.NewConfigError("Batch.RewriteGroupSize", opts.RewriteGroupSize, "rewrite group size cannot be negative")
		}
		c.Batch = opts
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) error {
		if l == nil {
			return bulkwrite.NewConfigError("Logger", nil, "logger cannot be nil")
		}
		c.Logger = l
		return nil
	}
}
