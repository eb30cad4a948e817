package cli

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVersion(cmd.OutOrStdout())
	},
}

func runVersion(out io.Writer) error {
	if IsJSONOutput() || IsJSONLOutput() {
		return WriteOutput(out, struct {
			BuildInfo
			GoVersion string `json:"go_version"`
		}{buildInfo, runtime.Version()})
	}
	fmt.Fprintf(out, "erpshell %s (commit %s, built %s, %s)\n", buildInfo.Version, buildInfo.Commit, buildInfo.Date, runtime.Version())
	return nil
}
