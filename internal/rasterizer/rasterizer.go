// Package rasterizer turns composed frames into pixels.
//
// Canvas draws on off-screen surfaces taken from a small pool. A surface is
// acquired for exactly one Rasterize call and released on every exit path,
// including cancellation and panics raised while drawing.
package rasterizer

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/conneroisu/certsmith/internal/assets"
	"github.com/conneroisu/certsmith/internal/compositor"
	"github.com/conneroisu/certsmith/internal/errors"
	"github.com/conneroisu/certsmith/internal/logging"
	"github.com/conneroisu/certsmith/internal/types"
)

// Rasterizer renders a frame onto a surface of the given size.
type Rasterizer interface {
	Rasterize(ctx context.Context, frame *compositor.Frame, dims types.Dimensions) (*image.NRGBA, error)
}

// Func adapts a function to Rasterizer.
type Func func(ctx context.Context, frame *compositor.Frame, dims types.Dimensions) (*image.NRGBA, error)

// Rasterize calls f.
func (f Func) Rasterize(ctx context.Context, frame *compositor.Frame, dims types.Dimensions) (*image.NRGBA, error) {
	return f(ctx, frame, dims)
}

// DefaultFill is painted before the background, so transparent or missing
// backgrounds come out white.
var DefaultFill = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// Options configures a Canvas.
type Options struct {
	Fonts *assets.FontRegistry
	// SettleDelay is waited after drawing and before capture
	SettleDelay time.Duration
	Fill        color.Color
	// MaxIdle is the number of idle surfaces kept per size
	MaxIdle int
	Logger  logging.Logger
}

// Canvas is the Rasterizer used for every export.
type Canvas struct {
	fonts   *assets.FontRegistry
	settle  time.Duration
	fill    *image.Uniform
	maxIdle int
	logger  logging.Logger

	mu   sync.Mutex
	idle map[types.Dimensions][]*image.NRGBA
	live int
}

// NewCanvas creates a canvas. A nil font registry gets the built-in fonts.
func NewCanvas(opts Options) (*Canvas, error) {
	fonts := opts.Fonts
	if fonts == nil {
		var err error
		if fonts, err = assets.NewFontRegistry(); err != nil {
			return nil, err
		}
	}
	fill := opts.Fill
	if fill == nil {
		fill = DefaultFill
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	maxIdle := opts.MaxIdle
	if maxIdle <= 0 {
		maxIdle = 1
	}

	return &Canvas{
		fonts:   fonts,
		settle:  opts.SettleDelay,
		fill:    image.NewUniform(fill),
		maxIdle: maxIdle,
		logger:  logger.WithComponent("rasterizer"),
		idle:    make(map[types.Dimensions][]*image.NRGBA),
	}, nil
}

// Live reports how many surfaces are currently acquired.
func (c *Canvas) Live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live
}

// Rasterize draws frame at dims and returns a copy of the surface. Layer
// coordinates are in frame pixels and are scaled when dims differs from the
// frame's own dimensions.
func (c *Canvas) Rasterize(ctx context.Context, frame *compositor.Frame, dims types.Dimensions) (img *image.NRGBA, err error) {
	if frame == nil {
		return nil, errors.NewRenderError(errors.ErrCodeRasterize, "nothing to rasterize", nil)
	}
	if !dims.Valid() {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidTemplate,
			fmt.Sprintf("surface dimensions must be positive, got %s", dims))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	surface := c.acquire(dims)
	defer c.release(dims, surface)
	defer func() {
		if r := recover(); r != nil {
			img = nil
			err = errors.NewRenderError(errors.ErrCodeRasterize, "rasterization failed", fmt.Errorf("%v", r))
			c.logger.Error(ctx, err, "Recovered from panic while drawing")
		}
	}()

	draw.Draw(surface, surface.Bounds(), c.fill, image.Point{}, draw.Src)
	c.paintBackground(surface, frame.Background)

	sx, sy := 1.0, 1.0
	if frame.Dimensions.Valid() {
		sx = float64(dims.Width) / float64(frame.Dimensions.Width)
		sy = float64(dims.Height) / float64(frame.Dimensions.Height)
	}
	for _, layer := range frame.Layers {
		if err := c.drawText(surface, layer, sx, sy); err != nil {
			return nil, err
		}
	}

	if c.settle > 0 {
		timer := time.NewTimer(c.settle)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return imaging.Clone(surface), nil
}

// paintBackground stretches bg over the whole surface.
func (c *Canvas) paintBackground(surface *image.NRGBA, bg image.Image) {
	if bg == nil || bg.Bounds().Empty() {
		return
	}
	b := surface.Bounds()
	scaled := imaging.Resize(bg, b.Dx(), b.Dy(), imaging.Linear)
	draw.Draw(surface, b, scaled, image.Point{}, draw.Over)
}

// drawText draws one layer. The layer's Y is the top of the line box and X
// is its left edge. Each layer is a single line in a box exactly as wide as
// the text, so alignment inside that box never moves the text.
func (c *Canvas) drawText(surface *image.NRGBA, layer compositor.TextLayer, sx, sy float64) error {
	if layer.Text == "" {
		return nil
	}
	face, err := c.fonts.Face(layer.FontFamily, layer.FontSize*sy)
	if err != nil {
		return err
	}
	defer face.Close()

	d := &font.Drawer{
		Dst:  surface,
		Src:  image.NewUniform(layer.Color),
		Face: face,
	}
	d.Dot = fixed.Point26_6{
		X: fixed.Int26_6(layer.X * sx * 64),
		Y: fixed.Int26_6(layer.Y*sy*64) + face.Metrics().Ascent,
	}
	d.DrawString(layer.Text)
	return nil
}

func (c *Canvas) acquire(dims types.Dimensions) *image.NRGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.live++
	if pool := c.idle[dims]; len(pool) > 0 {
		s := pool[len(pool)-1]
		c.idle[dims] = pool[:len(pool)-1]
		return s
	}
	return image.NewNRGBA(image.Rect(0, 0, dims.Width, dims.Height))
}

func (c *Canvas) release(dims types.Dimensions, s *image.NRGBA) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.live--
	if len(c.idle[dims]) < c.maxIdle {
		c.idle[dims] = append(c.idle[dims], s)
	}
}
