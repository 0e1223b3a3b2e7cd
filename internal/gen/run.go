package gen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/go/packages"
)

// Config configures a generation run.
type Config struct {
	// Dir is the directory patterns are resolved in. Empty means cwd.
	Dir string
	// Patterns are go/packages load patterns, "./..." when empty.
	Patterns []string
	// Output is the file name written into each package directory.
	Output string
	// Tag is the struct tag key, DefaultTag when empty.
	Tag string
	// Workers bounds concurrent file writes, GOMAXPROCS when zero.
	Workers int
	Logger  *slog.Logger
}

// Run loads the packages matched by cfg.Patterns, inspects their entities
// and writes one descriptor file per package that declares any. It returns
// the written paths, sorted.
func Run(ctx context.Context, cfg Config) ([]string, error) {
	if cfg.Output == "" {
		return nil, errors.New("gen: output file name is required")
	}
	if filepath.Base(cfg.Output) != cfg.Output {
		return nil, fmt.Errorf("gen: output %q must be a file name", cfg.Output)
	}
	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pkgs, err := packages.Load(&packages.Config{
		Context: ctx,
		Dir:     cfg.Dir,
		Mode:    packages.NeedName | packages.NeedFiles | packages.NeedTypes,
	}, patterns...)
	if err != nil {
		return nil, fmt.Errorf("gen: loading packages: %w", err)
	}
	var errs []error
	packages.Visit(pkgs, nil, func(pkg *packages.Package) {
		for _, e := range pkg.Errors {
			errs = append(errs, e)
		}
	})
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("gen: %w", err)
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	var (
		mu      sync.Mutex
		written []string
	)
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for _, pkg := range pkgs {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			entities, err := Inspect(pkg.Types, cfg.Tag)
			if err != nil {
				return fmt.Errorf("gen: %s: %w", pkg.PkgPath, err)
			}
			if len(entities) == 0 || len(pkg.GoFiles) == 0 {
				return nil
			}
			path := filepath.Join(filepath.Dir(pkg.GoFiles[0]), cfg.Output)
			if err := File(pkg.Name, pkg.PkgPath, entities).Save(path); err != nil {
				return fmt.Errorf("gen: writing %s: %w", path, err)
			}
			logger.Debug("descriptors written", "package", pkg.PkgPath, "entities", len(entities), "path", path)
			mu.Lock()
			written = append(written, path)
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	slices.Sort(written)
	return written, nil
}
