package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/decodingchris/prompttest/internal/scaffold"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a starter prompttest project in the current directory",
		Long: `Create an example prompt, an example test suite with shared configuration,
a guide, .env files for your API key, and .gitignore entries for the cache and
reports directories. Existing files are left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			created, skipped, err := scaffold.Init(".")
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, path := range created {
				fmt.Fprintf(out, "  created  %s\n", path)
			}
			for _, path := range skipped {
				fmt.Fprintf(out, "  skipped  %s (already exists)\n", path)
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Add your API key to .env, then run `prompttest`.")
			return nil
		},
	}
}
