package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/gophertribe/devtool/build"
)

const (
	binary  = "dist/weather"
	mainPkg = "./cmd/weather"
)

func BuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the weather cli",
		Long:  "Build the weather cli natively, or inside the gobuild image when targeting another platform (e.g. linux/arm64 for a Raspberry Pi).",
		RunE: func(cmd *cobra.Command, args []string) error {
			targetOS := cmd.Flag("os").Value.String()
			targetArch := cmd.Flag("arch").Value.String()
			version := cmd.Flag("version").Value.String()
			crossOS := cmd.Flag("cross-os").Value.String()
			crossArch := cmd.Flag("cross-arch").Value.String()

			if targetOS == runtime.GOOS && targetArch == runtime.GOARCH {
				if crossOS != "" && crossArch != "" {
					targetOS = crossOS
					targetArch = crossArch
				}
				slog.Info("building", "binary", binary, "os", targetOS, "arch", targetArch, "version", version)
				// hid needs cgo for the MCP2221 transport
				return build.GoBuild(binary, mainPkg, build.GoBuildOpts{
					Version:       version,
					InjectVersion: true,
					ConfigPackage: "main",
					EnableCgo:     true,
					Arch:          targetArch,
					OS:            targetOS,
				})
			}

			noCache, err := cmd.Flags().GetBool("no-cache")
			if err != nil {
				return fmt.Errorf("could not get no-cache flag: %w", err)
			}
			return build.Docker(cmd.Context(), fmt.Sprintf("./dev-%s-%s", targetOS, targetArch), []string{"build", "--version", version, "--cross-os", crossOS, "--cross-arch", crossArch}, build.DockerBuildOpts{
				NoCache: noCache,
				Image:   "gophertribe/gobuild:1.25-bookworm",
			})
		},
	}
	cmd.Flags().Bool("no-cache", false, "do not use cache when building the app")
	cmd.Flags().String("version", "latest", "version of the cli")
	cmd.Flags().String("os", runtime.GOOS, "os to build for")
	cmd.Flags().String("arch", runtime.GOARCH, "arch to build for")
	cmd.Flags().String("cross-os", "", "os to cross-compile for")
	cmd.Flags().String("cross-arch", "", "arch to cross-compile for")

	return cmd
}

// SimulateCmd runs the cli against the in-memory sensors.
func SimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate [weather args]",
		Short: "Run the weather cli on the simulated bus",
		Long: `Run the weather cli with the sim transport. Arguments are passed to the cli;
without arguments a full snapshot is taken.

Examples:
  dev simulate
  dev simulate -- probe --sensor hdc1050 0xff --length 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"measure", "--measure", "all"}
			}
			runArgs := append([]string{"run", mainPkg, "--transport", "sim"}, args...)
			slog.Info("running simulated station", "args", args)
			run := exec.CommandContext(cmd.Context(), "go", runArgs...)
			run.Stdout = os.Stdout
			run.Stderr = os.Stderr
			if err := run.Run(); err != nil {
				return fmt.Errorf("simulated run failed: %w", err)
			}
			return nil
		},
	}
	return cmd
}
