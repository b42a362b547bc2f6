package commands

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dotcommander/goodvibes/internal/app"
	"github.com/dotcommander/goodvibes/internal/output"
)

// Execute runs the CLI application.
func Execute(version string) error {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	root := newRootCmd(version)
	err := root.Execute()
	if err != nil {
		var pe printedError
		if !errors.As(err, &pe) {
			slog.Error("command failed", "error", err.Error())
		}
	}
	return err
}

func newRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "goodvibes",
		Short:         "Error classification and retry escalation for coding-agent hooks",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			showVersion, _ := cmd.Flags().GetBool("version")
			if showVersion {
				type resp struct {
					Version string `json:"version"`
				}
				return output.PrintSuccess(resp{Version: version})
			}
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Hooks run in arbitrary sandboxes; a read-only home must not fail them.
			if err := app.EnsureConfigDir(); err != nil {
				slog.Default().Warn("config directory unavailable", "error", err)
			}

			flags := cmd.Flags()
			stateDir, _ := flags.GetString("state-dir")
			backend, _ := flags.GetString("backend")
			dbPath, _ := flags.GetString("db-path")
			catalog, _ := flags.GetString("catalog")
			app.SetOverrides(app.Overrides{
				StateDir:    stateDir,
				Backend:     backend,
				DBPath:      dbPath,
				CatalogPath: catalog,
			})
			return nil
		},
	}

	root.PersistentFlags().String("state-dir", "", "Override the retry state directory (file backend)")
	root.PersistentFlags().String("backend", "", "Store backend: file, sqlite or memory")
	root.PersistentFlags().String("db-path", "", "Override the SQLite database path (sqlite backend)")
	root.PersistentFlags().String("catalog", "", "YAML recovery-pattern catalog to use instead of the built-in one")
	root.Flags().BoolP("version", "v", false, "version for goodvibes")

	root.AddCommand(NewHookCmd())
	root.AddCommand(NewRetryCmd())
	root.AddCommand(NewClassifyCmd())
	root.AddCommand(NewSignatureCmd())
	root.AddCommand(NewDoctorCmd())

	return root
}
