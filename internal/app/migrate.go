package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/logging"
)

const (
	migrationMaxAttempts = 3
	migrationBaseBackoff = 100 * time.Millisecond
	migrationMaxBackoff  = 3 * time.Second
)

var retryablePgErrorCodes = map[string]struct{}{
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"55P03": {}, // lock_not_available
}

const createMigrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// runMigrations handles `migrate [up|status|down]`.
func runMigrations(ctx context.Context, args []string) error {
	command := "up"
	if len(args) > 0 {
		command = args[0]
	}
	switch command {
	case "up", "status":
	case "down":
		return errors.New("down migrations are not supported; write a new forward migration instead")
	default:
		return fmt.Errorf("unknown migrate command %q", command)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, logCloser := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer logCloser.Close()

	dir, err := resolveDir(cfg.MigrationDir)
	if err != nil {
		return err
	}
	versions, err := listMigrations(dir)
	if err != nil {
		return err
	}

	return withConn(ctx, cfg.DatabaseURL, func(conn *pgxpool.Conn) error {
		if _, err := conn.Exec(ctx, createMigrationsTable); err != nil {
			return fmt.Errorf("ensure schema_migrations table: %w", err)
		}
		applied, err := appliedVersions(ctx, conn)
		if err != nil {
			return err
		}

		if command == "status" {
			printStatus(os.Stdout, versions, applied)
			return nil
		}

		pending := 0
		for _, version := range versions {
			if _, ok := applied[version]; ok {
				continue
			}
			pending++

			contents, err := os.ReadFile(filepath.Join(dir, version))
			if err != nil {
				return fmt.Errorf("read migration %s: %w", version, err)
			}
			if err := applyMigrationWithRetry(ctx, logger, conn, version, string(contents)); err != nil {
				return err
			}
			logger.Info("applied migration", "version", version)
		}
		if pending == 0 {
			logger.Info("schema is up to date", "dir", dir, "migrations", len(versions))
		}
		return nil
	})
}

// runSeed applies one or more seed files, each in its own transaction.
// A bare name such as "dev" resolves to dev_seed.sql.
func runSeed(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("expected seed name (e.g. dev)")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, logCloser := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer logCloser.Close()

	dir, err := resolveDir(cfg.SeedDir)
	if err != nil {
		return err
	}

	seeds := make(map[string]string, len(args))
	names := make([]string, 0, len(args))
	for _, arg := range args {
		name := seedFileName(arg)
		contents, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read seed %s: %w", name, err)
		}
		seeds[name] = string(contents)
		names = append(names, name)
	}

	return withConn(ctx, cfg.DatabaseURL, func(conn *pgxpool.Conn) error {
		for _, name := range names {
			err := pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
				_, err := tx.Exec(ctx, seeds[name])
				return err
			})
			if err != nil {
				return fmt.Errorf("apply seed %s: %w", name, err)
			}
			logger.Info("applied seed", "seed", name)
		}
		return nil
	})
}

func seedFileName(arg string) string {
	if strings.HasSuffix(arg, ".sql") {
		return arg
	}
	return arg + "_seed.sql"
}

// resolveDir anchors a relative directory at the working directory.
func resolveDir(dir string) (string, error) {
	if filepath.IsAbs(dir) {
		return dir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("determine working directory: %w", err)
	}
	return filepath.Join(wd, dir), nil
}

// listMigrations returns the .sql file names in dir in apply order.
func listMigrations(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var versions []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".sql" {
			versions = append(versions, entry.Name())
		}
	}
	sort.Strings(versions)
	return versions, nil
}

func withConn(ctx context.Context, databaseURL string, fn func(conn *pgxpool.Conn) error) error {
	pool, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return fn(conn)
}

func appliedVersions(ctx context.Context, conn *pgxpool.Conn) (map[string]struct{}, error) {
	rows, err := conn.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("fetch applied migrations: %w", err)
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan applied migrations: %w", err)
	}

	applied := make(map[string]struct{}, len(versions))
	for _, v := range versions {
		applied[v] = struct{}{}
	}
	return applied, nil
}

func printStatus(w io.Writer, versions []string, applied map[string]struct{}) {
	for _, version := range versions {
		mark := " "
		if _, ok := applied[version]; ok {
			mark = "x"
		}
		fmt.Fprintf(w, "[%s] %s\n", mark, version)
	}
}

// applyMigrationWithRetry runs a migration and records its version in one
// serializable transaction, retrying transient failures with backoff.
func applyMigrationWithRetry(ctx context.Context, logger *slog.Logger, conn *pgxpool.Conn, version, contents string) error {
	var err error
	for attempt := 1; attempt <= migrationMaxAttempts; attempt++ {
		if attempt > 1 {
			if waitErr := sleepContext(ctx, migrationBackoff(attempt)); waitErr != nil {
				return waitErr
			}
		}

		err = pgx.BeginTxFunc(ctx, conn, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, contents); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version)
			return err
		})
		if err == nil {
			return nil
		}
		if !shouldRetryMigration(err) {
			return fmt.Errorf("apply migration %s: %w", version, err)
		}
		logger.Warn("transient error applying migration",
			"version", version, "attempt", attempt, "max_attempts", migrationMaxAttempts, "error", err)
	}
	return fmt.Errorf("apply migration %s: giving up after %d attempts: %w", version, migrationMaxAttempts, err)
}

// migrationBackoff doubles from the base delay for each attempt after the
// first, capped at the max.
func migrationBackoff(attempt int) time.Duration {
	backoff := migrationBaseBackoff << (attempt - 2)
	if backoff <= 0 || backoff > migrationMaxBackoff {
		return migrationMaxBackoff
	}
	return backoff
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func shouldRetryMigration(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, pgx.ErrTxClosed) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		_, ok := retryablePgErrorCodes[pgErr.Code]
		return ok
	}
	return false
}
