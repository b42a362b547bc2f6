package commands

import (
	"github.com/spf13/cobra"

	"github.com/dotcommander/goodvibes/internal/app"
	"github.com/dotcommander/goodvibes/internal/output"
	"github.com/dotcommander/goodvibes/internal/retry"
	"github.com/dotcommander/goodvibes/internal/store"
)

// NewDoctorCmd creates the doctor command.
func NewDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, store access and the pattern catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := hookContextOf(cmd)
			resolved, err := app.ResolveAll()
			if err != nil {
				return cmdErr(err)
			}

			type resp struct {
				Settings      map[string]app.Resolved `json:"settings"`
				StoreOK       bool                    `json:"store_ok"`
				StoreErr      string                  `json:"store_error,omitempty"`
				SchemaVersion int64                   `json:"schema_version,omitempty"`
				CatalogOK     bool                    `json:"catalog_ok"`
				CatalogErr    string                  `json:"catalog_error,omitempty"`
				Patterns      int                     `json:"patterns"`
				RetryLimits   retry.Limits            `json:"retry_limits"`
				Hint          string                  `json:"hint,omitempty"`
			}
			r := resp{Settings: resolved, RetryLimits: retryPolicy().Limits()}

			s, err := openStore(ctx)
			if err != nil {
				r.StoreErr = err.Error()
			} else {
				r.StoreOK = true
				if sq, ok := s.(*store.SQLiteStore); ok {
					if current, _, verr := store.SchemaVersion(sq.DB()); verr == nil {
						r.SchemaVersion = current
					}
				}
				_ = s.Close()
			}

			c, err := loadCatalog()
			if err != nil {
				r.CatalogErr = err.Error()
			} else {
				r.CatalogOK = true
				r.Patterns = c.Len()
			}

			if !r.StoreOK {
				r.Hint = "If this is running in a sandboxed environment, point state_dir or db_path at a writable location."
			}
			return output.PrintSuccess(r)
		},
	}
}
