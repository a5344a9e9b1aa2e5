package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/certsmith/internal/export"
	"github.com/conneroisu/certsmith/internal/server"
)

var exportCmd = &cobra.Command{
	Use:     "export",
	Aliases: []string{"e"},
	Short:   "Render certificates to files",
	Long: `Render one certificate, or every record at once, into the output
directory.

A single certificate is written as a JPEG, PNG or one-page PDF named after
the record's name column. A batch is written as one multi-page PDF
(certificates_all.pdf) or as a ZIP archive of images (certificates_all.zip).

Examples:
  certsmith export --data people.csv --index 2 --format png
  certsmith export --data people.csv --all
  certsmith export --data people.csv --all --format zip --out dist`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

var (
	exportTemplate string
	exportData     string
	exportIndex    int
	exportAll      bool
	exportFormat   = newEnum("", "jpg", "jpeg", "png", "pdf", "zip")
	exportQuiet    bool
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportTemplate, "template", "t", "template.yaml", "Template descriptor")
	exportCmd.Flags().StringVarP(&exportData, "data", "d", "", "Record file (.csv, .json, .yaml); the sample records when empty")
	exportCmd.Flags().IntVarP(&exportIndex, "index", "i", 0, "Record to export (0-based)")
	exportCmd.Flags().BoolVarP(&exportAll, "all", "a", false, "Export every record as one batch")
	exportCmd.Flags().VarP(exportFormat, "format", "f", "Output format: jpg, png, pdf for one record; pdf, zip for --all")
	exportCmd.Flags().BoolVarP(&exportQuiet, "quiet", "q", false, "Do not report progress")

	exportCmd.Flags().StringP("out", "o", "", "Output directory")
	exportCmd.Flags().String("name-field", "", "Record column used to name files")
	exportCmd.Flags().Int("quality", 0, "Image quality (1-100)")
	exportCmd.Flags().String("archive-format", "", "Image format of archive entries (jpg, png)")
	exportCmd.Flags().Duration("pause", 0, "Pause between certificates in a batch")

	_ = viper.BindPFlag("export.output_dir", exportCmd.Flags().Lookup("out"))
	_ = viper.BindPFlag("export.name_field", exportCmd.Flags().Lookup("name-field"))
	_ = viper.BindPFlag("export.image_quality", exportCmd.Flags().Lookup("quality"))
	_ = viper.BindPFlag("export.archive_format", exportCmd.Flags().Lookup("archive-format"))
	_ = viper.BindPFlag("export.pause", exportCmd.Flags().Lookup("pause"))
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := ValidateFileExists(exportTemplate); err != nil {
		return err
	}
	if err := ValidateFileExists(exportData); err != nil {
		return err
	}

	session, err := server.LoadSession(exportTemplate, exportData)
	if err != nil {
		return err
	}

	sink := export.DirSink{Dir: cfg.Export.OutputDir}
	eng, err := newEngine(ctx, cfg, logger, sink)
	if err != nil {
		return err
	}

	if !exportQuiet {
		errOut := cmd.ErrOrStderr()
		unsubscribe := eng.pipeline.Subscribe(func(p export.Progress) {
			if p.Phase == export.PhaseFailed {
				return
			}
			fmt.Fprintf(errOut, "[%3.0f%%] %s %d/%d\n", p.Fraction()*100, p.Phase, min(p.Index+1, p.Total), p.Total)
		})
		defer unsubscribe()
	}

	var artifact export.Artifact
	if exportAll {
		format, err := export.ParseBatchFormat(defaultString(exportFormat.String(), string(export.BatchPDF)))
		if err != nil {
			return err
		}
		artifact, err = eng.pipeline.ExportAll(ctx, session.Template, session.Table.Records, format)
		if err != nil {
			return err
		}
	} else {
		format, err := export.ParseFormat(defaultString(exportFormat.String(), cfg.Export.ImageFormat))
		if err != nil {
			return err
		}
		artifact, err = eng.pipeline.ExportOne(ctx, session.Template, session.Table.Records, exportIndex, format)
		if err != nil {
			return err
		}
	}

	logger.Debug(ctx, "Export finished", "name", artifact.Name, "bytes", len(artifact.Data))
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d certificate(s))\n", sink.Path(artifact), artifact.Count)
	return err
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
