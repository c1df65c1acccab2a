// gtdadmin is the operator CLI for the task-management backend's schema:
// it reports migration status and drives migrations, rollbacks, backups,
// and exports against the configured database file.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nhle/gtd-backend/internal/config"
	"github.com/nhle/gtd-backend/internal/logging"
	"github.com/nhle/gtd-backend/internal/migrate"
	"github.com/nhle/gtd-backend/internal/tools"
)

var (
	configPath string
	dbPath     string
	logLevel   string
)

func main() {
	root := &cobra.Command{
		Use:           "gtdadmin",
		Short:         "Administer the task-management database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "path to config file")
	root.PersistentFlags().StringVar(&dbPath, "db", "", "database file path (overrides config)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides config)")

	root.AddCommand(
		statusCmd(),
		migrateCmd(),
		rollbackCmd(),
		historyCmd(),
		backupCmd(),
		exportCmd(),
		verifyCmd(),
		integrityCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newHandler loads config, builds the manager over the default catalog, and
// wraps it in the tool dispatch layer.
func newHandler() (*tools.Handler, *logrus.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logger := logging.New(cfg.LogLevel)

	opts := []migrate.Option{migrate.WithLogger(logger)}
	if cfg.Operator != "" {
		opts = append(opts, migrate.WithOperator(cfg.Operator))
	}

	manager := migrate.NewManager(cfg.DatabasePath, migrate.DefaultCatalog(), opts...)
	return tools.NewHandler(manager), logger, nil
}

// emit prints the result as JSON and converts failures into exit errors.
func emit(result tools.Result) error {
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	if !result.Success {
		return fmt.Errorf("%s (%s)", result.Error, result.ErrorCode)
	}
	return nil
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show current and latest schema versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, _, err := newHandler()
			if err != nil {
				return err
			}
			return emit(h.Status())
		},
	}
}

func migrateCmd() *cobra.Command {
	var target int
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the database to the latest (or a specific) version",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, _, err := newHandler()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("to") {
				return emit(h.MigrateTo(context.Background(), target))
			}
			return emit(h.MigrateToLatest(context.Background()))
		},
	}
	cmd.Flags().IntVar(&target, "to", 0, "target schema version")
	return cmd
}

func rollbackCmd() *cobra.Command {
	var target int
	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Roll the database back to a lower version",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, logger, err := newHandler()
			if err != nil {
				return err
			}
			// The core does not back up before a downgrade; take one here
			// so operators always have a restore point.
			if result := h.CreateBackup(); !result.Success {
				return emit(result)
			}
			logger.WithField("target", target).Info("rolling back schema")
			return emit(h.MigrateTo(context.Background(), target))
		},
	}
	cmd.Flags().IntVar(&target, "to", 0, "target schema version")
	cmd.MarkFlagRequired("to")
	return cmd
}

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List applied migrations, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, _, err := newHandler()
			if err != nil {
				return err
			}
			return emit(h.History())
		},
	}
}

func backupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Create a backup of the database file",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, _, err := newHandler()
			if err != nil {
				return err
			}
			return emit(h.CreateBackup())
		},
	}
}

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write a JSON export of all whitelisted tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, _, err := newHandler()
			if err != nil {
				return err
			}
			return emit(h.CreateExport())
		},
	}
}

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <version>",
		Short: "Verify the stored checksum for an applied migration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}
			h, _, err := newHandler()
			if err != nil {
				return err
			}
			return emit(h.VerifyIntegrity(version))
		},
	}
}

func integrityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "integrity",
		Short: "Run the data integrity smoke check",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, _, err := newHandler()
			if err != nil {
				return err
			}
			return emit(h.ValidateIntegrity(context.Background()))
		},
	}
}
