package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/decodingchris/prompttest/internal/discovery"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List discovered test suites",
		RunE: func(cmd *cobra.Command, args []string) error {
			suitesDir, _ := cmd.InheritedFlags().GetString("suites-dir")
			promptsDir, _ := cmd.InheritedFlags().GetString("prompts-dir")

			d := discovery.New(suitesDir, promptsDir)
			suites, err := d.Discover()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(suites) == 0 {
				fmt.Fprintln(out, "No test suites found.")
				return nil
			}

			fmt.Fprintf(out, "Discovered test suites:\n\n")
			for _, suite := range suites {
				fmt.Fprintf(out, "  - %s\n", suite.FilePath)
				fmt.Fprintf(out, "    Prompt: %s\n", suite.PromptName)
				if suite.Config.GenerationModel != "" {
					fmt.Fprintf(out, "    Generation Model: %s\n", suite.Config.GenerationModel)
				}
				if suite.Config.EvaluationModel != "" {
					fmt.Fprintf(out, "    Evaluation Model: %s\n", suite.Config.EvaluationModel)
				}
				fmt.Fprintf(out, "    Tests: %d\n\n", len(suite.Tests))
			}
			return nil
		},
	}
}
