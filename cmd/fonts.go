package cmd

import (
	"strconv"

	"github.com/spf13/cobra"
)

var fontsCmd = &cobra.Command{
	Use:   "fonts [family...]",
	Short: "List font families or show how names resolve",
	Long: `Without arguments, list the font families available to the renderer:
the built-in Go fonts plus every font under assets.fonts_dir.

With arguments, show which registered family each name resolves to. A name
may be a CSS family list; the first known entry wins. Unknown names fall
back to the default family.

Examples:
  certsmith fonts
  certsmith fonts Arial "Open Sans, serif" Papyrus
  certsmith fonts -o json`,
	RunE: runFonts,
}

var fontsOutput = newEnum("table", outputFormats...)

func init() {
	rootCmd.AddCommand(fontsCmd)

	fontsCmd.Flags().VarP(fontsOutput, "output", "o", "Output format (table, json, yaml)")
}

// fontResolution reports how one requested family resolved.
type fontResolution struct {
	Requested string `json:"requested" yaml:"requested"`
	Family    string `json:"family" yaml:"family"`
	Fallback  bool   `json:"fallback" yaml:"fallback"`
}

func runFonts(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	registry, err := loadFonts(ctx, cfg, logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	format := fontsOutput.String()

	if len(args) == 0 {
		families := registry.Families()
		if format != "table" {
			return writeStructured(out, format, families)
		}
		rows := make([][]string, 0, len(families))
		for _, f := range families {
			rows = append(rows, []string{f})
		}
		return writeTable(out, []string{"FAMILY"}, rows)
	}

	resolved := make([]fontResolution, 0, len(args))
	for _, name := range args {
		family, ok := registry.Resolve(name)
		resolved = append(resolved, fontResolution{Requested: name, Family: family, Fallback: !ok})
	}
	if format != "table" {
		return writeStructured(out, format, resolved)
	}
	rows := make([][]string, 0, len(resolved))
	for _, r := range resolved {
		rows = append(rows, []string{r.Requested, r.Family, strconv.FormatBool(r.Fallback)})
	}
	return writeTable(out, []string{"REQUESTED", "FAMILY", "FALLBACK"}, rows)
}
