package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/conneroisu/certsmith/internal/version"
)

var (
	versionFormat = newEnum("text", "text", "json", "yaml")
	versionShort  bool
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display version information for certsmith including:

- Semantic version number
- Git commit hash
- Build timestamp
- Go version and target platform

Examples:
  certsmith version              # Show version
  certsmith version --short      # Show the version number only
  certsmith version --detailed   # Show detailed version info
  certsmith version --format json`,
	Args: cobra.NoArgs,
	RunE: runVersionCommand,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().VarP(versionFormat, "format", "f", "Output format (text, json, yaml)")
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Show short version only")
	versionCmd.Flags().Bool("detailed", false, "Show detailed version information")
}

func runVersionCommand(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	detailed, _ := cmd.Flags().GetBool("detailed")

	switch format := versionFormat.String(); {
	case format != "text":
		return writeStructured(out, format, version.GetBuildInfo())
	case versionShort:
		_, err := fmt.Fprintln(out, version.GetShortVersion())
		return err
	case detailed:
		_, err := fmt.Fprintln(out, version.GetDetailedVersion())
		return err
	default:
		return outputVersionDefault(out)
	}
}

func outputVersionDefault(out io.Writer) error {
	info := version.GetBuildInfo()

	fmt.Fprintf(out, "certsmith %s", info.Version)
	if info.GitCommit != "unknown" && len(info.GitCommit) >= 7 {
		fmt.Fprintf(out, " (%s)", info.GitCommit[:7])
	}
	fmt.Fprintln(out)

	if !info.BuildTime.IsZero() {
		fmt.Fprintf(out, "Built: %s\n", info.BuildTime.Format("2006-01-02 15:04:05 UTC"))
	}
	fmt.Fprintf(out, "Go: %s\n", info.GoVersion)
	_, err := fmt.Fprintf(out, "Platform: %s\n", info.Platform)
	return err
}
