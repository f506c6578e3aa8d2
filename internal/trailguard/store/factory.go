package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/vaibhaw-/TrailGuard/internal/trailguard/config"
)

// Factory opens stores by driver name.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

// NewStore returns the backend named by cfg.Driver, connected and ready.
// Unknown drivers yield ErrUnsupportedDriver.
func (f *Factory) NewStore(ctx context.Context, cfg config.StoreCfg, opts ...Option) (Store, error) {
	if cfg.Collection == "" {
		cfg.Collection = "alerts"
	}
	switch strings.ToLower(cfg.Driver) {
	case "memory", "":
		return NewMemoryStore(opts...), nil
	case "mongodb", "mongo":
		if cfg.Database == "" {
			cfg.Database = "cloudtrail_db"
		}
		s, err := OpenMongo(ctx, cfg, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres", "pg", "postgresql":
		return sqlBackend(ctx, postgresDialect, cfg, opts)
	case "mysql":
		return sqlBackend(ctx, mysqlDialect, cfg, opts)
	case "sqlite", "sqlite3":
		return sqlBackend(ctx, sqliteDialect, cfg, opts)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, cfg.Driver)
	}
}

func sqlBackend(ctx context.Context, d dialect, cfg config.StoreCfg, opts []Option) (Store, error) {
	s, err := openSQL(ctx, d, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return s, nil
}
