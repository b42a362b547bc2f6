package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dotcommander/goodvibes/internal/app"
	"github.com/dotcommander/goodvibes/internal/output"
	"github.com/dotcommander/goodvibes/internal/patterns"
	"github.com/dotcommander/goodvibes/internal/retry"
	"github.com/dotcommander/goodvibes/internal/store"
)

// maxArgStdinBytes caps message reads from stdin for classify/signature.
const maxArgStdinBytes = 1 << 20

type printedError struct {
	err error
}

func (e printedError) Error() string {
	// Intentionally hide the original error: the JSON error response is the output.
	return "error already printed"
}

func (e printedError) Unwrap() error { return e.err }

// codedError attaches a stable code and a next step to err.
type codedError struct {
	err    error
	code   string
	action string
}

func (e codedError) Error() string           { return e.err.Error() }
func (e codedError) Unwrap() error           { return e.err }
func (e codedError) ErrorCode() string       { return e.code }
func (e codedError) SuggestedAction() string { return e.action }

// openStore opens the configured backend.
func openStore(ctx context.Context) (store.Store, error) {
	backend, err := app.GetBackend()
	if err != nil {
		return nil, err
	}

	opts := store.Options{Backend: backend}
	if backend == store.BackendSQLite {
		opts.DBPath, err = app.GetDBPath()
	} else {
		opts.StateDir, err = app.GetStateDir()
	}
	if err != nil {
		return nil, err
	}

	s, err := store.Open(ctx, opts)
	if errors.Is(err, store.ErrUnknownBackend) {
		return nil, codedError{
			err:    err,
			code:   "UNKNOWN_BACKEND",
			action: "use --backend file, sqlite or memory",
		}
	}
	return s, err
}

// retryPolicy is the built-in budget table with config overrides applied.
func retryPolicy() retry.Policy {
	limits := retry.DefaultLimits()
	maps.Copy(limits, app.EffectiveRetryLimits())
	return retry.NewPolicy(limits)
}

// loadCatalog returns the configured catalog or the built-in one.
func loadCatalog() (*patterns.Catalog, error) {
	path, err := app.GetCatalogPath()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return patterns.Default(), nil
	}
	c, err := patterns.LoadCatalogFile(path)
	if err != nil {
		return nil, codedError{
			err:    err,
			code:   "INVALID_CATALOG",
			action: "fix the catalog file or unset catalog_path to use the built-in patterns",
		}
	}
	return c, nil
}

// openTracker opens the store and returns a tracker for scope plus a closer.
func openTracker(ctx context.Context, scope string) (*retry.Tracker, func(), error) {
	s, err := openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	t := retry.NewTracker(s, scope, retry.WithPolicy(retryPolicy()))
	return t, func() { _ = s.Close() }, nil
}

func withTracker(cmd *cobra.Command, fn func(ctx context.Context, t *retry.Tracker) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	t, closeStore, err := openTracker(ctx, resolveScope(cmd, ""))
	if err != nil {
		return cmdErr(err)
	}
	defer closeStore()

	if err := fn(ctx, t); err != nil {
		return cmdErr(err)
	}
	return nil
}

// resolveScope picks the tracker scope: --scope, then fallback, then the
// working directory.
func resolveScope(cmd *cobra.Command, fallback string) string {
	if cmd != nil {
		if v, err := cmd.Flags().GetString("scope"); err == nil && v != "" {
			return v
		}
	}
	if fallback != "" {
		return fallback
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// messageArg joins args, or reads stdin when there are none.
func messageArg(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), maxArgStdinBytes))
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

func cmdErr(err error) error {
	if err == nil {
		return nil
	}
	slog.Error("command error", "error", err.Error())
	_ = output.PrintError(err)
	return printedError{err: err}
}
