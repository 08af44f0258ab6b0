package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/gophertribe/devtool/test"
	"github.com/spf13/cobra"
)

func TestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run unit tests of all packages",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := test.Test()
			if err != nil {
				return fmt.Errorf("failed to run tests: %w", err)
			}
			return nil
		},
	}
	return cmd
}

func LintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Run linters",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := test.Lint()
			if err != nil {
				return fmt.Errorf("failed to run linting: %w", err)
			}
			return nil
		},
	}
	return cmd
}

// IntegrationTestCmd checks both sensors end to end through the cli: the
// identity registers first, then a full snapshot.
func IntegrationTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "integration-test",
		Short: "Identify and read both sensors through the weather cli",
		Long: `Run the weather cli against a transport. Use --transport sim on a
workstation and pigpiod, periph, gobot or mcp2221 on the station.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			transport, err := cmd.Flags().GetString("transport")
			if err != nil {
				return fmt.Errorf("could not get transport flag: %w", err)
			}
			configFile, err := cmd.Flags().GetString("config")
			if err != nil {
				return fmt.Errorf("could not get config flag: %w", err)
			}
			for _, step := range [][]string{{"identify"}, {"measure", "--measure", "all"}} {
				runArgs := []string{"run", mainPkg, "--transport", transport}
				if configFile != "" {
					runArgs = append(runArgs, "--config", configFile)
				}
				runArgs = append(runArgs, step...)
				slog.Info("integration step", "transport", transport, "step", step[0])
				run := exec.CommandContext(cmd.Context(), "go", runArgs...)
				run.Stdout = os.Stdout
				run.Stderr = os.Stderr
				if err := run.Run(); err != nil {
					return fmt.Errorf("integration step %s on %s failed: %w", step[0], transport, err)
				}
			}
			return nil
		},
	}
	cmd.Flags().String("transport", "sim", "weather transport to test against")
	cmd.Flags().String("config", "", "weather configuration file")
	return cmd
}
