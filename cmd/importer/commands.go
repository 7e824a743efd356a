package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"travel_wizard/internal/adapters/backend"
	"travel_wizard/internal/adapters/observability"
	"travel_wizard/internal/app"
	"travel_wizard/internal/domain"
	"travel_wizard/internal/shared"
	"travel_wizard/internal/storage"
	mysqlrepo "travel_wizard/internal/storage/mysql"
)

var (
	cfg     shared.Config
	driver  string
	apiURL  string
	workers int
	publish bool
)

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "importer",
		Short:         "Bulk-load partner packages into the package store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg = shared.Load()
			log.Logger = observability.NewLogger(cfg.AppEnv, cfg.Debug)
			if workers <= 0 {
				workers = cfg.ImportWorkers
			}
		},
	}
	root.PersistentFlags().IntVarP(&workers, "workers", "w", 0, "records imported in parallel (default IMPORT_WORKERS)")

	root.AddCommand(runCmd(), checkCmd())
	return root
}

// run <file>: map, validate and store every record.
func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Import a YAML or JSON file of packages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := readRecords(args[0])
			if err != nil {
				return err
			}
			repo, closeRepo, err := openTarget(cmd.Context())
			if err != nil {
				return err
			}
			defer closeRepo()

			log.Info().Int("records", len(records)).Int("workers", workers).Bool("publish", publish).Msg("importer starting")
			outcomes := app.NewImporter(repo, publish, workers).Run(cmd.Context(), records)

			failed := 0
			for _, o := range outcomes {
				if o.Err != nil {
					failed++
				}
			}
			if err := printJSON(outcomes); err != nil {
				return err
			}
			log.Info().Int("imported", len(outcomes)-failed).Int("failed", failed).Msg("import completed")
			if failed > 0 {
				return fmt.Errorf("%d of %d records failed", failed, len(outcomes))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&driver, "to", "mysql", "target store: mysql or backend")
	cmd.Flags().StringVar(&apiURL, "api", "", "backend base URL (default BACKEND_URL)")
	cmd.Flags().BoolVar(&publish, "publish", false, "publish records that pass validation")
	return cmd
}

// check <file>: report mapping warnings and validation errors without writing.
func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Validate a file of packages without storing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := readRecords(args[0])
			if err != nil {
				return err
			}
			outcomes := app.NewImporter(discard{}, false, workers).Run(cmd.Context(), records)
			invalid := 0
			for _, o := range outcomes {
				if len(o.Errors) > 0 {
					invalid++
				}
			}
			if err := printJSON(outcomes); err != nil {
				return err
			}
			if invalid > 0 {
				return fmt.Errorf("%d of %d records are incomplete", invalid, len(outcomes))
			}
			return nil
		},
	}
}

func readRecords(path string) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return app.DecodeRecords(f)
}

func openTarget(ctx context.Context) (domain.PackageRepository, func(), error) {
	switch driver {
	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("db.Ping: %w", err)
		}
		if err := mysqlrepo.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return storage.Instrument("mysql", mysqlrepo.New(db)), func() { _ = db.Close() }, nil
	case "backend":
		base := apiURL
		if base == "" {
			base = cfg.BackendURL
		}
		client, err := backend.New(base, cfg.BackendRPS)
		if err != nil {
			return nil, nil, err
		}
		return storage.Instrument("backend", client), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown target %q", driver)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// discard accepts creates without storing them, for dry runs.
type discard struct{}

func (discard) Create(_ context.Context, d domain.Draft, status domain.PackageStatus) (domain.PackageRecord, error) {
	rec, _ := domain.NewRecord(d, status)
	return rec, nil
}

func (discard) Update(context.Context, string, domain.Draft, domain.PackageStatus) (domain.PackageRecord, error) {
	return domain.PackageRecord{}, domain.ErrNotFound
}

func (discard) List(_ context.Context, _ domain.ListFilter, _ domain.SortSpec, p domain.PageRequest) (domain.Page[domain.PackageRecord], error) {
	return domain.NewPage[domain.PackageRecord](nil, 0, p.Normalize()), nil
}

func (discard) GetByID(context.Context, string) (domain.PackageRecord, error) {
	return domain.PackageRecord{}, domain.ErrNotFound
}

func (discard) Delete(context.Context, string) (bool, error) { return false, nil }
