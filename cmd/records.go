package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/certsmith/internal/records"
)

var recordsCmd = &cobra.Command{
	Use:     "records <file>",
	Aliases: []string{"r"},
	Short:   "Preview a record file",
	Long: `Load a CSV, JSON or YAML record file and show its first rows and the
total record count, exactly as export and serve will see it.

Examples:
  certsmith records people.csv
  certsmith records people.json -o yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runRecords,
}

var recordsOutput = newEnum("table", outputFormats...)

func init() {
	rootCmd.AddCommand(recordsCmd)

	recordsCmd.Flags().VarP(recordsOutput, "output", "o", "Output format (table, json, yaml)")
}

// recordsSummary is the structured form of the records preview.
type recordsSummary struct {
	Source  string              `json:"source" yaml:"source"`
	Headers []string            `json:"headers" yaml:"headers"`
	Preview []map[string]string `json:"preview" yaml:"preview"`
	Count   int                 `json:"count" yaml:"count"`
}

func runRecords(cmd *cobra.Command, args []string) error {
	if err := ValidateFileExists(args[0]); err != nil {
		return err
	}
	table, err := records.LoadTable(args[0])
	if err != nil {
		return err
	}

	preview := records.Preview(table.Records)
	out := cmd.OutOrStdout()

	if format := recordsOutput.String(); format != "table" {
		summary := recordsSummary{
			Source:  args[0],
			Headers: table.Headers,
			Preview: make([]map[string]string, 0, len(preview)),
			Count:   len(table.Records),
		}
		for _, r := range preview {
			summary.Preview = append(summary.Preview, r)
		}
		return writeStructured(out, format, summary)
	}

	rows := make([][]string, 0, len(preview))
	for _, r := range preview {
		row := make([]string, len(table.Headers))
		for i, h := range table.Headers {
			row[i] = r[h]
		}
		rows = append(rows, row)
	}
	if err := writeTable(out, table.Headers, rows); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "\nShowing %d of %d records\n", len(preview), len(table.Records))
	return err
}
