package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dotcommander/goodvibes/internal/actions"
	"github.com/dotcommander/goodvibes/internal/models"
	"github.com/dotcommander/goodvibes/internal/output"
	"github.com/dotcommander/goodvibes/internal/patterns"
	"github.com/dotcommander/goodvibes/internal/retry"
	"github.com/dotcommander/goodvibes/internal/signature"
)

// NewClassifyCmd creates the classify command. It never touches retry state.
func NewClassifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify [message...]",
		Short: "Match an error message against the recovery patterns",
		Long:  "Reads the message from arguments or stdin and reports the signature, matching patterns, suggested fix and research hints.",
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := messageArg(cmd, args)
			if err != nil {
				return cmdErr(err)
			}
			tool, _ := cmd.Flags().GetString("tool")
			phase, _ := cmd.Flags().GetInt("phase")
			if phase < models.PhaseRaw || phase > models.MaxPhase {
				return cmdErr(fmt.Errorf("--phase must be 1, 2 or 3, got %d", phase))
			}

			category := actions.ClassifyCategory(tool, "", msg)
			if raw, _ := cmd.Flags().GetString("category"); raw != "" {
				category = models.ParseErrorCategory(raw)
			}

			catalog, err := loadCatalog()
			if err != nil {
				return cmdErr(err)
			}

			sig := signature.Generate(msg, tool)
			state := retry.NewErrorState(sig, category)
			state.Phase = phase

			type resp struct {
				Signature      string                  `json:"signature"`
				Classification patterns.Classification `json:"classification"`
				SuggestedFix   string                  `json:"suggested_fix"`
				Phase          int                     `json:"phase"`
				Hints          models.Hints            `json:"hints"`
			}
			return output.PrintSuccess(resp{
				Signature:      sig,
				Classification: catalog.Classify(category, msg),
				SuggestedFix:   catalog.SuggestedFix(category, msg, state),
				Phase:          phase,
				Hints:          catalog.ResearchHints(category, msg, phase),
			})
		},
	}

	cmd.Flags().String("category", "", "Error category (default: inferred from --tool and the message)")
	cmd.Flags().Int("phase", models.PhaseRaw, "Phase used for hints and the fix note")
	cmd.Flags().String("tool", "", "Tool name that produced the error")
	return cmd
}
