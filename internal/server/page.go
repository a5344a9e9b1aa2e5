package server

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/conneroisu/certsmith/internal/export"
	"github.com/conneroisu/certsmith/internal/rasterizer"
	"github.com/conneroisu/certsmith/internal/records"
)

type pageData struct {
	Session *Session
	Index   int
	Zoom    float64
	State   export.State
}

// pageWriter keeps the first write error so markup can be emitted without
// checking every call.
type pageWriter struct {
	w   io.Writer
	err error
}

func (p *pageWriter) raw(s string) {
	if p.err == nil {
		_, p.err = io.WriteString(p.w, s)
	}
}

func (p *pageWriter) rawf(format string, args ...interface{}) {
	p.raw(fmt.Sprintf(format, args...))
}

func (p *pageWriter) text(s string) {
	p.raw(templ.EscapeString(s))
}

// previewPage renders the preview UI: the current certificate, record
// navigation, zoom, the field list, the record table and export controls.
func previewPage(d pageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &pageWriter{w: w}
		t := d.Session.Template
		n := d.Session.Len()

		p.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="UTF-8">`)
		p.raw(`<meta name="viewport" content="width=device-width, initial-scale=1.0">`)
		p.raw(`<title>`)
		p.text(t.Name)
		p.raw(` - certsmith</title><style>`)
		p.raw(pageCSS)
		p.raw(`</style></head><body><main class="container">`)

		p.raw(`<header><h1 id="template-name">`)
		p.text(t.Name)
		p.rawf(`</h1><span class="dims">%dx%d</span></header>`, t.Width, t.Height)

		p.raw(`<nav class="records" aria-label="records">`)
		if n == 0 {
			p.raw(`<span id="record-counter">No records</span>`)
		} else {
			if d.Index > 0 {
				p.rawf(`<a id="prev" href="/?record=%d&amp;zoom=%s">Previous</a>`, d.Index-1, zoomParam(d.Zoom))
			}
			p.rawf(`<span id="record-counter">Record %d of %d</span>`, d.Index+1, n)
			if d.Index < n-1 {
				p.rawf(`<a id="next" href="/?record=%d&amp;zoom=%s">Next</a>`, d.Index+1, zoomParam(d.Zoom))
			}
		}
		p.raw(`</nav>`)

		p.raw(`<nav class="zoom" aria-label="zoom">`)
		if d.Zoom > rasterizer.MinZoom {
			p.rawf(`<a id="zoom-out" href="/?record=%d&amp;zoom=%s">-</a>`, d.Index, zoomParam(d.Zoom-rasterizer.ZoomStep))
		}
		p.rawf(`<span id="zoom-level">%d%%</span>`, int(d.Zoom*100))
		if d.Zoom < rasterizer.MaxZoom {
			p.rawf(`<a id="zoom-in" href="/?record=%d&amp;zoom=%s">+</a>`, d.Index, zoomParam(d.Zoom+rasterizer.ZoomStep))
		}
		p.raw(`</nav>`)

		if n > 0 {
			p.rawf(`<figure><img id="preview" alt="certificate preview" src="/render/%d?zoom=%s"></figure>`,
				d.Index, zoomParam(d.Zoom))
		}

		p.raw(`<section id="exports"><h2>Export</h2>`)
		if n > 0 {
			for _, f := range []export.Format{export.FormatPDF, export.FormatJPG, export.FormatPNG} {
				p.rawf(`<form method="post" action="/api/export/%d?format=%s"><button type="submit">This certificate (%s)</button></form>`,
					d.Index, f, strings.ToUpper(string(f)))
			}
			p.rawf(`<form method="post" action="/api/export?format=%s"><button type="submit">All as PDF</button></form>`, export.BatchPDF)
			p.rawf(`<form method="post" action="/api/export?format=%s"><button type="submit">All as ZIP</button></form>`, export.BatchZIP)
		}
		generating := ""
		if d.State.IsGenerating {
			generating = " generating"
		}
		p.rawf(`<progress id="progress" class="progress%s" max="1" value="0"></progress>`, generating)
		p.raw(`<span id="progress-label"></span></section>`)

		p.raw(`<section id="fields"><h2>Fields</h2><table><thead><tr>`)
		p.raw(`<th>Field</th><th>X</th><th>Y</th><th>Size</th><th>Font</th><th>Color</th><th>Align</th></tr></thead><tbody>`)
		for _, f := range t.Fields {
			p.raw(`<tr data-field-id="`)
			p.text(f.ID)
			p.raw(`"><td>`)
			p.text(f.FieldName)
			p.rawf(`</td><td>%g</td><td>%g</td><td>%g</td><td>`, f.X, f.Y, f.FontSize)
			p.text(f.FontFamily)
			p.raw(`</td><td>`)
			p.text(f.Color)
			p.raw(`</td><td>`)
			p.text(string(f.Align))
			p.raw(`</td></tr>`)
		}
		p.raw(`</tbody></table></section>`)

		p.raw(`<section id="records"><h2>Records</h2><table><thead><tr>`)
		for _, h := range d.Session.Table.Headers {
			p.raw(`<th>`)
			p.text(h)
			p.raw(`</th>`)
		}
		p.raw(`</tr></thead><tbody>`)
		for _, rec := range records.Preview(d.Session.Table.Records) {
			p.raw(`<tr>`)
			for _, h := range d.Session.Table.Headers {
				p.raw(`<td>`)
				p.text(rec[h])
				p.raw(`</td>`)
			}
			p.raw(`</tr>`)
		}
		p.rawf(`</tbody></table><p class="count">%d records</p></section>`, n)

		p.raw(`</main><script>`)
		p.raw(pageScript)
		p.raw(`</script></body></html>`)
		return p.err
	})
}

func zoomParam(z float64) string {
	return fmt.Sprintf("%g", rasterizer.ClampZoom(z))
}

const pageCSS = `
body { font-family: system-ui, -apple-system, sans-serif; margin: 0; padding: 20px; background: #f5f5f5; }
.container { max-width: 1200px; margin: 0 auto; background: white; padding: 20px; border-radius: 8px; box-shadow: 0 2px 10px rgba(0,0,0,0.1); }
h1 { color: #333; border-bottom: 2px solid #007acc; padding-bottom: 10px; display: inline-block; }
.dims { color: #6c757d; margin-left: 12px; }
nav { display: flex; gap: 12px; align-items: center; margin: 8px 0; }
figure { margin: 16px 0; overflow: auto; border: 1px solid #ddd; }
form { display: inline-block; margin-right: 8px; }
button { background: #007acc; color: white; border: 0; padding: 8px 14px; border-radius: 4px; cursor: pointer; }
progress { width: 100%; margin-top: 12px; }
table { border-collapse: collapse; width: 100%; margin-top: 8px; }
th, td { border: 1px solid #ddd; padding: 6px 8px; text-align: left; }
.count { color: #6c757d; }
`

const pageScript = `
(function () {
  var proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
  var ws = new WebSocket(proto + location.host + '/ws');
  var bar = document.getElementById('progress');
  var label = document.getElementById('progress-label');
  ws.onmessage = function (ev) {
    var msg = JSON.parse(ev.data);
    if (msg.type === 'reload') { location.reload(); return; }
    if (msg.type === 'reload_error') { label.textContent = 'Reload failed: ' + msg.content; return; }
    if (msg.type === 'progress' && msg.progress) {
      var p = msg.progress;
      var done = p.phase === 'done' || p.phase === 'finalizing' ? p.total : (p.phase === 'accumulating' ? p.index + 1 : p.index);
      bar.value = p.total > 0 ? done / p.total : 0;
      label.textContent = p.phase === 'failed' ? 'Export failed: ' + (p.error || '') :
        'Certificate ' + Math.min(p.index + 1, p.total) + ' of ' + p.total + ' (' + p.phase + ')';
    }
  };
})();
`
