package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/emiliopalmerini/worktimer/internal/adapters/delivery"
	"github.com/emiliopalmerini/worktimer/internal/adapters/otel"
	"github.com/emiliopalmerini/worktimer/internal/adapters/turso"
	"github.com/emiliopalmerini/worktimer/internal/config"
	"github.com/emiliopalmerini/worktimer/internal/extract"
	"github.com/emiliopalmerini/worktimer/internal/migrate"
	"github.com/emiliopalmerini/worktimer/internal/ports"
	"github.com/emiliopalmerini/worktimer/internal/tracker"
	"github.com/emiliopalmerini/worktimer/internal/util"
)

// AppContext holds all shared dependencies for CLI commands.
type AppContext struct {
	Config     *config.Config
	Logger     hclog.Logger
	DB         *sql.DB
	Identity   *turso.IdentityRepository
	Delivery   *delivery.HTTPChannel
	Metrics    ports.MetricsRecorder
	Extractors *extract.Set
	Hub        *tracker.IdentityHub
}

// connectDB connects to the configured database, defaulting to a file under
// the XDG data directory.
func connectDB(c *config.Config) (*sql.DB, error) {
	url := c.Database.URL
	if url == "" {
		p, err := util.DefaultDatabasePath()
		if err != nil {
			return nil, err
		}
		url = p
	}

	db, err := turso.NewDB(url, c.Database.AuthToken)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// openDB connects and applies pending migrations.
func openDB(ctx context.Context, c *config.Config) (*sql.DB, error) {
	db, err := connectDB(c)
	if err != nil {
		return nil, err
	}
	if err := migrate.RunAll(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// NewAppContext creates an AppContext with all dependencies initialized.
func NewAppContext(ctx context.Context, c *config.Config, logger hclog.Logger) (*AppContext, error) {
	db, err := openDB(ctx, c)
	if err != nil {
		return nil, err
	}

	extractors, err := extract.FromConfig(c.Extract, logger.Named("extract"))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	var metrics ports.MetricsRecorder = otel.NewNoOpRecorder()
	if c.OTel.Enabled {
		rec, err := otel.NewRecorder(ctx, otel.FromConfig(c.OTel))
		if err != nil {
			logger.Warn("metrics disabled", "error", err)
		} else {
			metrics = rec
		}
	}

	channel := delivery.NewHTTPChannel(delivery.Config{
		Endpoint:     c.Endpoint,
		RetryBackoff: c.Delivery.RetryBackoff,
		Timeout:      c.Delivery.Timeout,
	}, metrics, logger.Named("delivery"))

	return &AppContext{
		Config:     c,
		Logger:     logger,
		DB:         db,
		Identity:   turso.NewIdentityRepository(db),
		Delivery:   channel,
		Metrics:    metrics,
		Extractors: extractors,
		Hub:        tracker.NewIdentityHub(),
	}, nil
}

// Runner builds the per-page tracker wiring.
func (a *AppContext) Runner() *tracker.Runner {
	return &tracker.Runner{
		Extractors: a.Extractors,
		Delivery:   a.Delivery,
		Metrics:    a.Metrics,
		Store:      a.Identity,
		Hub:        a.Hub,
		Config:     a.Config,
		Logger:     a.Logger.Named("tracker"),
	}
}

// Close drains in-flight sends, flushes metrics and closes the database.
func (a *AppContext) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.drainTimeout())
	defer cancel()

	var errs []error
	if a.Delivery != nil {
		if err := a.Delivery.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("drain deliveries: %w", err))
		}
	}
	if a.Metrics != nil {
		if err := a.Metrics.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close metrics: %w", err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (a *AppContext) drainTimeout() time.Duration {
	if a.Config == nil || a.Config.Delivery.DrainTimeout <= 0 {
		return config.Default().Delivery.DrainTimeout
	}
	return a.Config.Delivery.DrainTimeout
}
