package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "captioner",
		Short: "Training-dataset captioning tool backed by vision LLMs",
		Long: `Captioner generates image captions for diffusion-model training datasets.

Captions follow a strict contract: each one starts with the dataset's
semantic context verbatim, stays within fifty words, and is a single
sentence. The serve command runs the web workflow (upload, caption,
edit, export); audit re-checks a finished dataset against the contract.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	// Add subcommands
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newAuditCmd())

	return cmd
}
