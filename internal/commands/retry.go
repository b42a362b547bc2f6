package commands

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/dotcommander/goodvibes/internal/actions"
	"github.com/dotcommander/goodvibes/internal/app"
	"github.com/dotcommander/goodvibes/internal/models"
	"github.com/dotcommander/goodvibes/internal/output"
	"github.com/dotcommander/goodvibes/internal/retry"
)

// NewRetryCmd creates the retry parent command.
func NewRetryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retry",
		Short: "Inspect and manage tracked error signatures",
		Args:  cobra.NoArgs,
	}
	cmd.PersistentFlags().String("scope", "", "Scope key (default: current directory)")

	cmd.AddCommand(newRetryStatsCmd())
	cmd.AddCommand(newRetryShowCmd())
	cmd.AddCommand(newRetryClearCmd())
	cmd.AddCommand(newRetryPruneCmd())

	namespaceIndex(cmd)
	return cmd
}

func newRetryStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate retry counts for the scope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTracker(cmd, func(ctx context.Context, t *retry.Tracker) error {
				stats, err := t.Stats(ctx)
				if err != nil {
					return err
				}
				type resp struct {
					Scope string            `json:"scope"`
					Stats models.RetryStats `json:"stats"`
				}
				return output.PrintSuccess(resp{Scope: t.Scope(), Stats: stats})
			})
		},
	}
}

// entryView is one tracked signature with its policy position.
type entryView struct {
	models.RetryEntry
	Limit            int    `json:"limit"`
	Remaining        int    `json:"remaining"`
	Exhausted        bool   `json:"exhausted"`
	PhaseDescription string `json:"phase_description"`
}

func viewOf(p retry.Policy, e models.RetryEntry) entryView {
	state := retry.StateFromEntry(e, categoryOrUnknown(e.Category))
	return entryView{
		RetryEntry:       e,
		Limit:            p.Limit(state.Category),
		Remaining:        p.RemainingAttempts(state),
		Exhausted:        p.HasExhausted(state),
		PhaseDescription: retry.PhaseDescription(state.Phase),
	}
}

func categoryOrUnknown(c models.ErrorCategory) models.ErrorCategory {
	if c == "" {
		return models.CategoryUnknown
	}
	return c
}

var errSignatureNotTracked = errors.New("signature not tracked")

func newRetryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [signature]",
		Short: "List tracked signatures, newest first, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTracker(cmd, func(ctx context.Context, t *retry.Tracker) error {
				if len(args) == 1 {
					e, ok, err := t.Entry(ctx, args[0])
					if err != nil {
						return err
					}
					if !ok {
						return codedError{err: errSignatureNotTracked, code: "NOT_TRACKED", action: "run 'goodvibes retry show' to list signatures"}
					}
					return output.PrintSuccess(viewOf(t.Policy(), e))
				}

				entries, err := t.Entries(ctx)
				if err != nil {
					return err
				}
				views := []entryView{}
				for _, e := range actions.SortedEntries(entries) {
					views = append(views, viewOf(t.Policy(), e))
				}
				type resp struct {
					Scope   string      `json:"scope"`
					Entries []entryView `json:"entries"`
				}
				return output.PrintSuccess(resp{Scope: t.Scope(), Entries: views})
			})
		},
	}
}

func newRetryClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear [signature]",
		Short: "Forget a resolved signature, or all with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			if all == (len(args) == 1) {
				return cmdErr(errors.New("pass exactly one of <signature> or --all"))
			}
			return withTracker(cmd, func(ctx context.Context, t *retry.Tracker) error {
				type resp struct {
					Cleared []string `json:"cleared"`
				}
				sigs := args
				if all {
					entries, err := t.Entries(ctx)
					if err != nil {
						return err
					}
					sigs = sigs[:0]
					for _, e := range actions.SortedEntries(entries) {
						sigs = append(sigs, e.Signature)
					}
				}
				cleared := []string{}
				for _, sig := range sigs {
					ok, err := t.Clear(ctx, sig)
					if err != nil {
						return err
					}
					if ok {
						cleared = append(cleared, sig)
					}
				}
				return output.PrintSuccess(resp{Cleared: cleared})
			})
		},
	}
	cmd.Flags().Bool("all", false, "Clear every signature in the scope")
	return cmd
}

func newRetryPruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Drop signatures not attempted within --max-age-hours",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			hours, _ := cmd.Flags().GetInt("max-age-hours")
			if hours <= 0 {
				hours = app.EffectivePruneMaxAgeHours()
			}
			return withTracker(cmd, func(ctx context.Context, t *retry.Tracker) error {
				removed, err := t.Prune(ctx, time.Duration(hours)*time.Hour)
				if err != nil {
					return err
				}
				type resp struct {
					Removed     int `json:"removed"`
					MaxAgeHours int `json:"max_age_hours"`
				}
				return output.PrintSuccess(resp{Removed: removed, MaxAgeHours: hours})
			})
		},
	}
	cmd.Flags().Int("max-age-hours", 0, "Age threshold in hours (default: prune_max_age_hours, 24)")
	return cmd
}
