package commands

import (
	"github.com/spf13/cobra"

	"github.com/dotcommander/goodvibes/internal/output"
	"github.com/dotcommander/goodvibes/internal/signature"
)

// NewSignatureCmd creates the signature command.
func NewSignatureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signature [message...]",
		Short: "Print the stable signature of an error message",
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := messageArg(cmd, args)
			if err != nil {
				return cmdErr(err)
			}
			tool, _ := cmd.Flags().GetString("tool")

			type resp struct {
				Signature  string `json:"signature"`
				Normalized string `json:"normalized"`
			}
			return output.PrintSuccess(resp{
				Signature:  signature.Generate(msg, tool),
				Normalized: signature.Normalize(msg, tool),
			})
		},
	}
	cmd.Flags().String("tool", "", "Tool name that produced the error")
	return cmd
}
