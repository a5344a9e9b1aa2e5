package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/certsmith/internal/server"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Preview certificates in the browser",
	Long: `Start a local preview server. The page shows the certificate for the
current record, lets you step through records, zoom, and download single
certificates or the whole batch. Editing the template, the record file or the
background reloads the page.

Examples:
  certsmith serve
  certsmith serve --data people.csv --port 3000 --open
  certsmith serve --no-watch`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveTemplate string
	serveData     string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveTemplate, "template", "t", "template.yaml", "Template descriptor")
	serveCmd.Flags().StringVarP(&serveData, "data", "d", "", "Record file (.csv, .json, .yaml); the sample records when empty")
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "localhost", "Host to bind to")
	serveCmd.Flags().Bool("open", false, "Open the preview in a browser")
	serveCmd.Flags().Bool("no-watch", false, "Do not reload when files change")

	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.open", serveCmd.Flags().Lookup("open"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if noWatch, _ := cmd.Flags().GetBool("no-watch"); noWatch {
		cfg.Watch.Enabled = false
	}

	if err := ValidateFileExists(serveTemplate); err != nil {
		return err
	}
	if err := ValidateFileExists(serveData); err != nil {
		return err
	}

	eng, err := newEngine(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, server.Options{
		TemplatePath: serveTemplate,
		DataPath:     serveData,
		Loader:       eng.loader,
		Rasterizer:   eng.canvas,
		Pipeline:     eng.pipeline,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	return srv.Start(ctx)
}
