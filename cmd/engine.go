package cmd

import (
	"context"

	"github.com/conneroisu/certsmith/internal/assets"
	"github.com/conneroisu/certsmith/internal/config"
	"github.com/conneroisu/certsmith/internal/export"
	"github.com/conneroisu/certsmith/internal/logging"
	"github.com/conneroisu/certsmith/internal/rasterizer"
	"github.com/conneroisu/certsmith/internal/targets"
)

// engine is the rendering stack shared by export and serve.
type engine struct {
	loader   *assets.Loader
	canvas   *rasterizer.Canvas
	pipeline *export.Pipeline
}

// newEngine wires fonts, the background loader, the canvas and the export
// pipeline from configuration. sink may be nil.
func newEngine(ctx context.Context, cfg *config.Config, logger logging.Logger, sink export.Sink) (*engine, error) {
	fonts, err := loadFonts(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	loader := assets.NewLoader(assets.LoaderOptions{
		FetchRetries: cfg.Assets.FetchRetries,
		FetchTimeout: cfg.Assets.FetchTimeout,
		Logger:       logger,
	})

	canvas, err := rasterizer.NewCanvas(rasterizer.Options{
		Fonts:       fonts,
		SettleDelay: cfg.Export.SettleDelay,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	archiveFormat, err := targets.ParseImageFormat(cfg.Export.ArchiveFormat)
	if err != nil {
		return nil, err
	}

	pipeline, err := export.New(export.Options{
		Rasterizer:      canvas,
		Backgrounds:     loader,
		Sink:            sink,
		NameField:       cfg.Export.NameField,
		ImageQuality:    cfg.Export.ImageQuality,
		DocumentQuality: cfg.Export.DocumentQuality,
		ArchiveFormat:   archiveFormat,
		Pause:           cfg.Export.Pause,
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}

	return &engine{loader: loader, canvas: canvas, pipeline: pipeline}, nil
}

// loadFonts returns the built-in fonts plus any found under assets.fonts_dir.
func loadFonts(ctx context.Context, cfg *config.Config, logger logging.Logger) (*assets.FontRegistry, error) {
	fonts, err := assets.NewFontRegistry()
	if err != nil {
		return nil, err
	}
	if cfg.Assets.FontsDir != "" {
		n, err := fonts.LoadDir(cfg.Assets.FontsDir)
		if err != nil {
			return nil, err
		}
		logger.Debug(ctx, "Fonts loaded", "dir", cfg.Assets.FontsDir, "count", n)
	}
	return fonts, nil
}
