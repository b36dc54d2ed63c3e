// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package registry

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/catalog-aggregator/internal/sources"
	"github.com/pdiddy/catalog-aggregator/pkg/types"
)

// File is the on-disk layout of a sources file.
type File struct {
	Sources []types.SourceConfig `yaml:"sources"`
}

// ReadFile parses a sources file.
func ReadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("reading sources file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("parsing sources file %s: %w", path, err)
	}
	return f, nil
}

// Load builds an adapter for every entry and registers it. Disabled
// entries are registered but excluded from snapshots. A bad entry fails
// the whole load so misconfiguration is caught at startup.
func Load(r *Registry, cfgs []types.SourceConfig, deps sources.Deps, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, cfg := range cfgs {
		adapter, desc, err := sources.New(cfg, deps)
		if err != nil {
			return err
		}
		if err := r.Register(desc, adapter); err != nil {
			return err
		}
		if !cfg.IsEnabled() {
			if err := r.SetEnabled(desc.ID, false); err != nil {
				return err
			}
		}
		logger.Debug("registered source",
			zap.String("source", desc.ID),
			zap.String("kind", cfg.Kind),
			zap.String("family", string(desc.Family)),
			zap.Int("priority", desc.Priority),
			zap.Bool("enabled", cfg.IsEnabled()),
		)
	}
	return nil
}

// LoadFile reads path and registers its sources.
func LoadFile(r *Registry, path string, deps sources.Deps, logger *zap.Logger) error {
	f, err := ReadFile(path)
	if err != nil {
		return err
	}
	return Load(r, f.Sources, deps, logger)
}
