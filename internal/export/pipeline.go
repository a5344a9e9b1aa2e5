// Package export drives certificate generation: it binds records into the
// template, rasterizes each frame, encodes the result into the requested
// target and hands the finished artifact to a sink.
//
// A Pipeline runs one export at a time. During a batch it exposes which
// record is being rendered through State and through the progress stream,
// and it always returns to the idle state when the run ends, whether the
// run succeeded, failed or was cancelled.
package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/conneroisu/certsmith/internal/binding"
	"github.com/conneroisu/certsmith/internal/compositor"
	"github.com/conneroisu/certsmith/internal/designer"
	"github.com/conneroisu/certsmith/internal/errors"
	"github.com/conneroisu/certsmith/internal/logging"
	"github.com/conneroisu/certsmith/internal/rasterizer"
	"github.com/conneroisu/certsmith/internal/targets"
	"github.com/conneroisu/certsmith/internal/types"
)

// Backgrounds loads template backgrounds.
type Backgrounds interface {
	Load(ctx context.Context, ref string) (image.Image, error)
}

// Options configures a Pipeline.
type Options struct {
	Rasterizer rasterizer.Rasterizer
	// Backgrounds may be nil, in which case frames carry no background
	Backgrounds Backgrounds
	// Sink may be nil, in which case artifacts are only returned
	Sink            Sink
	NameField       string
	ImageQuality    int
	DocumentQuality int
	// ArchiveFormat is the image format of archive entries
	ArchiveFormat targets.ImageFormat
	// Pause is waited between batch iterations
	Pause  time.Duration
	Logger logging.Logger
}

// Pipeline is the export state machine.
type Pipeline struct {
	opts   Options
	logger logging.Logger

	mu      sync.Mutex
	state   State
	busy    bool
	subs    map[int]func(Progress)
	nextSub int
}

// New creates a pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.Rasterizer == nil {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid, "export pipeline requires a rasterizer")
	}
	if opts.NameField == "" {
		opts.NameField = DefaultNameField
	}
	if opts.ArchiveFormat == "" {
		opts.ArchiveFormat = targets.JPEG
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	return &Pipeline{
		opts:   opts,
		logger: logger.WithComponent("export"),
		subs:   make(map[int]func(Progress)),
	}, nil
}

// State returns a snapshot of the pipeline state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Subscribe registers fn for progress events and returns a function that
// removes it. Events are delivered synchronously from the exporting
// goroutine, in order.
func (p *Pipeline) Subscribe(fn func(Progress)) func() {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
		})
	}
}

// ExportOne renders the record at index and delivers it in format.
// CurrentIndex is left at index afterwards.
func (p *Pipeline) ExportOne(ctx context.Context, t types.Template, records []types.Record, index int, format Format) (Artifact, error) {
	if index < 0 || index >= len(records) {
		return Artifact{}, errors.NewValidationError(errors.ErrCodeIndexOutOfRange,
			fmt.Sprintf("record index %d out of range [0, %d)", index, len(records)))
	}
	if err := designer.Validate(t); err != nil {
		return Artifact{}, err
	}

	p.mu.Lock()
	if p.busy {
		p.mu.Unlock()
		return Artifact{}, errors.ErrBusy
	}
	p.busy = true
	p.state.CurrentIndex = index
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.busy = false
		p.mu.Unlock()
	}()

	tpl := designer.Clone(t)
	record := copyRecord(records[index])
	logger := p.logger.With("index", index, "format", string(format))

	fail := func(err error) (Artifact, error) {
		p.emit(Progress{Index: index, Total: 1, Phase: PhaseFailed, Error: err.Error()})
		logger.Error(ctx, err, "Export failed")
		return Artifact{}, err
	}

	p.emit(Progress{Index: index, Total: 1, Phase: PhaseRasterizing})
	bg, err := p.background(ctx, tpl)
	if err != nil {
		return fail(err)
	}
	img, err := p.render(ctx, tpl, record, bg, index)
	if err != nil {
		return fail(err)
	}

	p.emit(Progress{Index: index, Total: 1, Phase: PhaseEncoding})
	var data []byte
	switch format {
	case FormatJPG, FormatPNG:
		data, err = targets.EncodeImageBytes(img, format.imageFormat(), p.opts.ImageQuality)
	case FormatPDF:
		data, err = p.encodeDocument(tpl.Dimensions(), img)
	default:
		err = errors.NewValidationError(errors.ErrCodeUnsupportedFormat, fmt.Sprintf("unsupported format %q", format))
	}
	if err != nil {
		return fail(err)
	}

	artifact := Artifact{
		Name:     FileName(record, p.opts.NameField, index, format.Extension()),
		MIMEType: format.MIMEType(),
		Data:     data,
		Count:    1,
	}
	if err := p.deliver(ctx, artifact); err != nil {
		return fail(err)
	}

	p.emit(Progress{Index: index, Total: 1, Phase: PhaseDone})
	logger.Info(ctx, "Certificate exported", "name", artifact.Name, "bytes", len(data))
	return artifact, nil
}

// ExportAll renders every record in order and delivers a single multi-page
// document or archive. Records are processed strictly one at a time.
func (p *Pipeline) ExportAll(ctx context.Context, t types.Template, records []types.Record, format BatchFormat) (art Artifact, err error) {
	if len(records) == 0 {
		return Artifact{}, errors.NewValidationError(errors.ErrCodeEmptyRecords, "no records to export")
	}
	if format != BatchPDF && format != BatchZIP {
		return Artifact{}, errors.NewValidationError(errors.ErrCodeUnsupportedFormat,
			fmt.Sprintf("unsupported batch format %q", format))
	}
	if err := designer.Validate(t); err != nil {
		return Artifact{}, err
	}

	p.mu.Lock()
	if p.busy {
		p.mu.Unlock()
		return Artifact{}, errors.ErrBusy
	}
	p.busy = true
	p.state = State{CurrentIndex: 0, IsGenerating: true}
	p.mu.Unlock()
	defer p.reset()

	tpl := designer.Clone(t)
	batch := make([]types.Record, len(records))
	for i, r := range records {
		batch[i] = copyRecord(r)
	}
	total := len(batch)

	op := logging.StartOperation(p.logger.With("format", string(format), "records", total), "export_all")
	current := 0
	defer func() {
		if err != nil {
			p.emit(Progress{Index: current, Total: total, Phase: PhaseFailed, Batch: true, Error: err.Error()})
			op.EndWithError(ctx, err, "index", current)
		}
	}()

	bg, err := p.background(ctx, tpl)
	if err != nil {
		return Artifact{}, err
	}

	var (
		doc     *targets.Document
		archive *targets.Archive
		names   = nameSet{}
	)
	if format == BatchPDF {
		if doc, err = targets.NewDocument(tpl.Dimensions(), p.opts.DocumentQuality); err != nil {
			return Artifact{}, err
		}
	} else {
		archive = targets.NewArchive()
	}

	for i, record := range batch {
		if err = ctx.Err(); err != nil {
			return Artifact{}, err
		}
		current = i
		p.setIndex(i)
		p.emit(Progress{Index: i, Total: total, Phase: PhaseRasterizing, Batch: true})

		img, rerr := p.render(ctx, tpl, record, bg, i)
		if rerr != nil {
			err = rerr
			return Artifact{}, err
		}

		p.emit(Progress{Index: i, Total: total, Phase: PhaseEncoding, Batch: true})
		if doc != nil {
			err = doc.AddPage(img)
		} else {
			err = p.addEntry(archive, names, record, i, img)
		}
		if err != nil {
			return Artifact{}, err
		}
		p.emit(Progress{Index: i, Total: total, Phase: PhaseAccumulating, Batch: true})

		if i < total-1 {
			if err = sleep(ctx, p.opts.Pause); err != nil {
				return Artifact{}, err
			}
		}
	}

	p.emit(Progress{Index: total - 1, Total: total, Phase: PhaseFinalizing, Batch: true})
	var buf bytes.Buffer
	if doc != nil {
		err = doc.Encode(&buf)
	} else {
		err = archive.Encode(&buf)
	}
	if err != nil {
		return Artifact{}, err
	}

	art = Artifact{
		Name:     format.FileName(),
		MIMEType: format.MIMEType(),
		Data:     buf.Bytes(),
		Count:    total,
	}
	if err = p.deliver(ctx, art); err != nil {
		return Artifact{}, err
	}

	p.emit(Progress{Index: total - 1, Total: total, Phase: PhaseDone, Batch: true})
	op.End(ctx, "name", art.Name, "bytes", len(art.Data))
	return art, nil
}

func (p *Pipeline) addEntry(archive *targets.Archive, names nameSet, record types.Record, index int, img image.Image) error {
	data, err := targets.EncodeImageBytes(img, p.opts.ArchiveFormat, p.opts.ImageQuality)
	if err != nil {
		return err
	}
	name := names.unique(FileName(record, p.opts.NameField, index, p.opts.ArchiveFormat.Extension()))
	return archive.Add(name, data)
}

// render composes and rasterizes one record.
func (p *Pipeline) render(ctx context.Context, t types.Template, record types.Record, bg image.Image, index int) (*image.NRGBA, error) {
	frame, err := compositor.Compose(t, record, bg)
	if err != nil {
		return nil, err
	}
	for _, w := range frame.Warnings {
		p.logger.Warn(ctx, nil, w, "index", index)
	}
	if missing := binding.Misses(t, record); len(missing) > 0 {
		p.logger.Debug(ctx, "Fields have no value, drawing placeholders", "index", index, "fields", missing)
	}

	img, err := p.opts.Rasterizer.Rasterize(ctx, frame, t.Dimensions())
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if _, ok := errors.AsCertError(err); ok {
			return nil, err
		}
		return nil, errors.WrapRender(err, fmt.Sprintf("failed to rasterize record %d", index+1))
	}
	return img, nil
}

func (p *Pipeline) background(ctx context.Context, t types.Template) (image.Image, error) {
	if p.opts.Backgrounds == nil {
		return nil, nil
	}
	return p.opts.Backgrounds.Load(ctx, t.BackgroundRef)
}

func (p *Pipeline) encodeDocument(dims types.Dimensions, img image.Image) ([]byte, error) {
	doc, err := targets.NewDocument(dims, p.opts.DocumentQuality)
	if err != nil {
		return nil, err
	}
	if err := doc.AddPage(img); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := doc.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (p *Pipeline) deliver(ctx context.Context, a Artifact) error {
	if p.opts.Sink == nil {
		return nil
	}
	if err := p.opts.Sink.Deliver(ctx, a); err != nil {
		if _, ok := errors.AsCertError(err); ok {
			return err
		}
		return errors.Wrap(err, errors.ErrorTypeIO, errors.ErrCodeDeliver, "failed to deliver "+a.Name)
	}
	return nil
}

func (p *Pipeline) setIndex(i int) {
	p.mu.Lock()
	p.state.CurrentIndex = i
	p.mu.Unlock()
}

func (p *Pipeline) reset() {
	p.mu.Lock()
	p.state = State{}
	p.busy = false
	p.mu.Unlock()
}

func (p *Pipeline) emit(ev Progress) {
	p.mu.Lock()
	fns := make([]func(Progress), 0, len(p.subs))
	for id := 0; id < p.nextSub; id++ {
		if fn, ok := p.subs[id]; ok {
			fns = append(fns, fn)
		}
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func copyRecord(r types.Record) types.Record {
	out := make(types.Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
