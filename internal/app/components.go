package app

import (
	"context"
	"fmt"

	"github.com/stacklok/extguard/internal/app/storage"
	"github.com/stacklok/extguard/internal/config"
	"github.com/stacklok/extguard/internal/registry"
	"github.com/stacklok/extguard/internal/service"
	pkgsync "github.com/stacklok/extguard/internal/sync"
)

// Components groups the long-lived pieces shared by the CLI and the server
type Components struct {
	Config   *config.Config
	Storage  storage.Factory
	Registry registry.Registry
	Manager  pkgsync.Manager
	Service  service.ListService
}

// NewComponents builds the list pipeline for one-shot commands.
// The caller must call Close when done.
func NewComponents(ctx context.Context, opts ...AppOption) (*Components, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}
	c, err := buildComponents(ctx, cfg)
	if err != nil {
		if cfg.storageFactory != nil {
			cfg.storageFactory.Cleanup()
		}
		return nil, err
	}
	return c, nil
}

// Close releases storage resources
func (c *Components) Close() {
	if c != nil && c.Storage != nil {
		c.Storage.Cleanup()
	}
}
