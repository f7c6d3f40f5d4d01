package commands

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/repopulse/repopulse/internal/config"
)

// exitCodeLintFailure is the exit code when a config file fails linting.
const exitCodeLintFailure = 2

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Work with repopulse configuration files",
	}

	cmd.AddCommand(newConfigLintCommand())

	return cmd
}

func newConfigLintCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lint <file>",
		Short: "Validate a config file against the configuration schema",
		Long: `Validate a .repopulse.yaml file against the configuration schema.
Unknown keys are rejected, catching typos that would otherwise be silently
ignored at load time.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, args []string) error {
			issues, err := config.Lint(args[0])
			if err != nil {
				return err
			}

			if len(issues) == 0 {
				color.Green("%s is valid", args[0])

				return nil
			}

			color.Red("%s has %d issues:", args[0], len(issues))

			for _, issue := range issues {
				fmt.Printf("  - %s: %s\n", issue.Field, issue.Description)
			}

			os.Exit(exitCodeLintFailure)

			return nil
		},
	}
}
