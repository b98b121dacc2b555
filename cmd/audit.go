package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tudelft-ide/captioner/internal/audit"
)

func newAuditCmd() *cobra.Command {
	var semanticContext string
	var format string

	cmd := &cobra.Command{
		Use:   "audit [dataset-dir]",
		Short: "Audit an exported dataset against the caption contract",
		Long: `Audit re-checks a finished dataset directory: every image must have a
caption file, every caption must start with the shared semantic context
verbatim, stay within fifty words, and be a single sentence.

The semantic context is inferred from the captions when not given.`,
		Example: `  # Audit with an explicit context
  captioner audit ./studio_set --context "TU Delft drawing studio"

  # Infer the context and save a YAML report
  captioner audit ./studio_set --format yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := audit.Run(args[0], semanticContext)
			if err != nil {
				return err
			}

			switch format {
			case "text":
				audit.WriteText(os.Stdout, report)
			case "yaml":
				path, err := audit.SaveYAML(report)
				if err != nil {
					return err
				}
				fmt.Printf("Audit report saved to: %s\n", path)
			default:
				return fmt.Errorf("unsupported format: %s", format)
			}

			if report.Summary.Rejected > 0 || report.Summary.MissingCaptions > 0 {
				return fmt.Errorf("%d captions violate the contract, %d are missing",
					report.Summary.Rejected, report.Summary.MissingCaptions)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&semanticContext, "context", "c", "", "Shared semantic context (inferred when empty)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Report format: text or yaml")

	return cmd
}
