// Command academyctl runs administrative tasks against the academy database.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/wintergreen/academia-backend/config"
	"github.com/wintergreen/academia-backend/internal/app"
	"github.com/wintergreen/academia-backend/internal/db"
	"github.com/wintergreen/academia-backend/internal/notification"
	"github.com/wintergreen/academia-backend/pkg/logger"
	"github.com/wintergreen/academia-backend/pkg/redis"
)

const drainTimeout = 30 * time.Second

var (
	verbose bool

	rootCmd = &cobra.Command{
		Use:           "academyctl",
		Short:         "Administrative tasks for the WinterGreen Academia backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := "info"
			if verbose {
				level = "debug"
			}
			logger.Initialize(logger.Config{Level: level, Format: "console", EnableColor: true})
		},
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.AddCommand(migrateCmd, bootstrapCmd, importTrainingCmd, importEmployeesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// session holds an opened database and application graph for one command.
type session struct {
	cfg        *config.Config
	container  *app.Container
	dispatcher *notification.Dispatcher
}

func openSession() (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	// CLI commands never serve HTTP, so the limiter is not needed.
	cfg.RateLimit.Enabled = false

	if err := db.Initialize(&cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	deps, dispatcher, err := app.BuildDeps(cfg, nil)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	container, err := app.NewContainer(db.GetDB(), cfg, deps)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	dispatcher.Start()
	return &session{cfg: cfg, container: container, dispatcher: dispatcher}, nil
}

// Close drains queued notifications before releasing connections.
func (s *session) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := s.dispatcher.Stop(ctx); err != nil {
		logger.Warn("Some notifications were not delivered", map[string]interface{}{"error": err.Error()})
	}
	if err := redis.Close(); err != nil {
		logger.Error("Failed to close Redis connection", err)
	}
	if err := db.Close(); err != nil {
		logger.Error("Failed to close database connection", err)
	}
}
