package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/conneroisu/certsmith/internal/records"
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Write the sample record file",
	Long: `Write a three-row sample CSV with name, designation, college and date
columns. Use "-o -" to print it instead.

Examples:
  certsmith sample
  certsmith sample -o - | head -2`,
	Args: cobra.NoArgs,
	RunE: runSample,
}

var sampleOutput string

func init() {
	rootCmd.AddCommand(sampleCmd)

	sampleCmd.Flags().StringVarP(&sampleOutput, "output", "o", records.SampleFileName, `File to write, or "-" for standard output`)
}

func runSample(cmd *cobra.Command, args []string) error {
	if sampleOutput == "-" {
		return records.SampleCSV(cmd.OutOrStdout())
	}

	f, err := os.Create(sampleOutput)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", sampleOutput, err)
	}
	if err := records.SampleCSV(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d records)\n", sampleOutput, len(records.Sample()))
	return err
}
