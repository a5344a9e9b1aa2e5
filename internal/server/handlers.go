package server

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"net/http"
	"strconv"
	"time"

	"github.com/conneroisu/certsmith/internal/compositor"
	"github.com/conneroisu/certsmith/internal/errors"
	"github.com/conneroisu/certsmith/internal/export"
	"github.com/conneroisu/certsmith/internal/rasterizer"
	"github.com/conneroisu/certsmith/internal/records"
	"github.com/conneroisu/certsmith/internal/targets"
	"github.com/conneroisu/certsmith/internal/types"
	"github.com/conneroisu/certsmith/internal/version"
)

// RecordsResponse is the body of GET /api/records.
type RecordsResponse struct {
	Source  string         `json:"source"`
	Headers []string       `json:"headers"`
	Rows    []types.Record `json:"rows"`
	Count   int            `json:"count"`
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *PreviewServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	session := s.Session()
	index := clampIndex(queryInt(r, "record", 0), session.Len())
	zoom := rasterizer.ClampZoom(queryFloat(r, "zoom", 1))

	page := previewPage(pageData{
		Session: session,
		Index:   index,
		Zoom:    zoom,
		State:   s.opts.Pipeline.State(),
	})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := page.Render(r.Context(), w); err != nil {
		s.logger.Error(r.Context(), err, "Failed to render preview page")
	}
}

// handleRender rasterizes one record as PNG. It never touches the export
// pipeline's state.
func (s *PreviewServer) handleRender(w http.ResponseWriter, r *http.Request) {
	session := s.Session()
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 || index >= session.Len() {
		s.writeError(w, r, http.StatusNotFound, errors.NewValidationError(errors.ErrCodeIndexOutOfRange,
			fmt.Sprintf("record %q not found", r.PathValue("index"))))
		return
	}
	zoom := rasterizer.ClampZoom(queryFloat(r, "zoom", 1))

	img, err := s.renderPreview(r.Context(), session, index, zoom)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}

	w.Header().Set("Content-Type", targets.PNG.MIMEType())
	w.Header().Set("Cache-Control", "no-store")
	if err := targets.EncodeImage(w, img, targets.PNG, 0); err != nil {
		s.logger.Error(r.Context(), err, "Failed to write preview", "index", index)
	}
}

func (s *PreviewServer) renderPreview(ctx context.Context, session *Session, index int, zoom float64) (*image.NRGBA, error) {
	t := session.Template
	bg, err := s.opts.Loader.Load(ctx, t.BackgroundRef)
	if err != nil {
		return nil, err
	}
	frame, err := compositor.Compose(t, session.Table.Records[index], bg)
	if err != nil {
		return nil, err
	}
	img, err := s.opts.Rasterizer.Rasterize(ctx, frame, t.Dimensions())
	if err != nil {
		return nil, err
	}
	if zoom != 1 {
		img = rasterizer.Zoom(img, zoom)
	}
	return img, nil
}

func (s *PreviewServer) handleRecords(w http.ResponseWriter, r *http.Request) {
	session := s.Session()
	source := session.DataPath
	if source == "" {
		source = records.SampleFileName
	}
	s.writeJSON(w, r, http.StatusOK, RecordsResponse{
		Source:  source,
		Headers: session.Table.Headers,
		Rows:    records.Preview(session.Table.Records),
		Count:   session.Len(),
	})
}

func (s *PreviewServer) handleTemplate(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.Session().Template)
}

func (s *PreviewServer) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.opts.Pipeline.State())
}

func (s *PreviewServer) handleExportOne(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, errors.NewValidationError(errors.ErrCodeIndexOutOfRange,
			fmt.Sprintf("invalid record index %q", r.PathValue("index"))))
		return
	}
	format, err := export.ParseFormat(queryString(r, "format", string(export.FormatPDF)))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	session := s.Session()
	artifact, err := s.opts.Pipeline.ExportOne(r.Context(), session.Template, session.Table.Records, index, format)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	s.writeArtifact(w, r, artifact)
}

func (s *PreviewServer) handleExportAll(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseBatchFormat(queryString(r, "format", string(export.BatchPDF)))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	session := s.Session()
	artifact, err := s.opts.Pipeline.ExportAll(r.Context(), session.Template, session.Table.Records, format)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	s.writeArtifact(w, r, artifact)
}

// handleHealth returns the server health status for health checks
func (s *PreviewServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	session := s.Session()
	s.writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   version.GetShortVersion(),
		"checks": map[string]interface{}{
			"session": map[string]interface{}{
				"status":  "healthy",
				"fields":  len(session.Template.Fields),
				"records": session.Len(),
			},
			"export":    s.opts.Pipeline.State(),
			"websocket": map[string]interface{}{"status": "healthy", "clients": s.clientCount()},
		},
	})
}

func (s *PreviewServer) writeArtifact(w http.ResponseWriter, r *http.Request, a export.Artifact) {
	w.Header().Set("Content-Type", a.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(a.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(a.Data); err != nil {
		s.logger.Warn(r.Context(), err, "Failed to write artifact", "name", a.Name)
	}
}

func (s *PreviewServer) writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error(r.Context(), err, "Failed to encode response", "path", r.URL.Path)
	}
}

func (s *PreviewServer) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	resp := ErrorResponse{Error: err.Error()}
	if ce, ok := errors.AsCertError(err); ok {
		resp.Code = ce.Code
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), err, "Request failed", "path", r.URL.Path)
	}
	s.writeJSON(w, r, status, resp)
}

// statusFor maps an error to an HTTP status.
func statusFor(err error) int {
	ce, ok := errors.AsCertError(err)
	if !ok {
		if err == context.Canceled || err == context.DeadlineExceeded {
			return http.StatusServiceUnavailable
		}
		return http.StatusInternalServerError
	}
	switch {
	case ce.Code == errors.ErrCodeBusy:
		return http.StatusConflict
	case ce.Code == errors.ErrCodeIndexOutOfRange:
		return http.StatusNotFound
	case ce.Type == errors.ErrorTypeValidation:
		return http.StatusUnprocessableEntity
	case ce.Type == errors.ErrorTypeNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func queryString(r *http.Request, key, def string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return def
}

func queryInt(r *http.Request, key string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil {
		return v
	}
	return def
}

func queryFloat(r *http.Request, key string, def float64) float64 {
	if v, err := strconv.ParseFloat(r.URL.Query().Get(key), 64); err == nil {
		return v
	}
	return def
}

func clampIndex(i, n int) int {
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}
