// Package assets loads the background images and fonts certificates are
// drawn with.
package assets

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/conneroisu/certsmith/internal/errors"
	"github.com/conneroisu/certsmith/internal/logging"
	"github.com/conneroisu/certsmith/internal/types"
	"github.com/conneroisu/certsmith/internal/validation"
	"github.com/conneroisu/certsmith/internal/version"
)

// MaxImageBytes bounds the size of a background read from any source.
const MaxImageBytes = 64 << 20

// LoaderOptions configures a Loader.
type LoaderOptions struct {
	// FetchRetries is the retry budget for remote backgrounds
	FetchRetries int
	// FetchTimeout bounds a single remote attempt
	FetchTimeout time.Duration
	Logger       logging.Logger
}

// Loader resolves background references to decoded images. Decoded images
// are cached per reference and must be treated as read-only by callers.
type Loader struct {
	client *retryablehttp.Client
	logger logging.Logger

	mu    sync.Mutex
	cache map[string]image.Image
}

// NewLoader creates a loader.
func NewLoader(opts LoaderOptions) *Loader {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.WithComponent("assets")

	client := retryablehttp.NewClient()
	client.RetryMax = opts.FetchRetries
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.Logger = &retryLogger{logger: logger}
	if opts.FetchTimeout > 0 {
		client.HTTPClient.Timeout = opts.FetchTimeout
	}

	return &Loader{
		client: client,
		logger: logger,
		cache:  make(map[string]image.Image),
	}
}

// Load returns the decoded image for ref: a file path, a data: URL or an
// http(s) URL.
func (l *Loader) Load(ctx context.Context, ref string) (image.Image, error) {
	l.mu.Lock()
	img, ok := l.cache[ref]
	l.mu.Unlock()
	if ok {
		return img, nil
	}

	data, err := l.read(ctx, ref)
	if err != nil {
		return nil, err
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeBackgroundLoad,
			fmt.Sprintf("background %s is not a supported image", displayRef(ref))).WithContext("cause", err.Error())
	}
	l.logger.Debug(ctx, "Background decoded", "ref", displayRef(ref), "format", format,
		"size", types.Dimensions{Width: img.Bounds().Dx(), Height: img.Bounds().Dy()}.String())

	l.mu.Lock()
	l.cache[ref] = img
	l.mu.Unlock()
	return img, nil
}

// Dimensions returns the natural pixel size of the image behind ref.
func (l *Loader) Dimensions(ctx context.Context, ref string) (types.Dimensions, error) {
	img, err := l.Load(ctx, ref)
	if err != nil {
		return types.Dimensions{}, err
	}
	b := img.Bounds()
	return types.Dimensions{Width: b.Dx(), Height: b.Dy()}, nil
}

// Forget drops ref from the cache so the next Load reads it again.
func (l *Loader) Forget(ref string) {
	l.mu.Lock()
	delete(l.cache, ref)
	l.mu.Unlock()
}

func (l *Loader) read(ctx context.Context, ref string) ([]byte, error) {
	switch {
	case ref == "":
		return nil, errors.NewValidationError(errors.ErrCodeBackgroundLoad, "background reference is empty")
	case strings.HasPrefix(ref, "data:"):
		return decodeDataURL(ref)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return l.fetch(ctx, ref)
	default:
		f, err := os.Open(ref)
		if err != nil {
			return nil, errors.WrapIO(err, errors.ErrCodeBackgroundLoad, ref, "failed to open background")
		}
		defer f.Close()
		return readLimited(f, ref)
	}
}

func (l *Loader) fetch(ctx context.Context, ref string) ([]byte, error) {
	if err := validation.ValidateRemoteRef(ref); err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeBackgroundLoad, fmt.Sprintf("invalid background URL: %v", err))
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeBackgroundLoad, fmt.Sprintf("invalid background URL %q", ref))
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeBackgroundLoad, "failed to fetch background", err).WithFile(ref)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewNetworkError(errors.ErrCodeBackgroundLoad,
			fmt.Sprintf("failed to fetch background (status %d)", resp.StatusCode), nil).WithFile(ref)
	}
	return readLimited(resp.Body, ref)
}

func readLimited(r io.Reader, ref string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return nil, errors.WrapIO(err, errors.ErrCodeBackgroundLoad, ref, "failed to read background")
	}
	if len(data) > MaxImageBytes {
		return nil, errors.NewValidationError(errors.ErrCodeBackgroundLoad,
			fmt.Sprintf("background exceeds %d bytes", MaxImageBytes)).WithFile(ref)
	}
	return data, nil
}

// decodeDataURL decodes data:[<mediatype>][;base64],<payload>.
func decodeDataURL(ref string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, errors.NewValidationError(errors.ErrCodeBackgroundLoad, "malformed data URL")
	}
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeValidation, errors.ErrCodeBackgroundLoad, "malformed base64 in data URL")
		}
		return data, nil
	}
	data, err := url.PathUnescape(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, errors.ErrCodeBackgroundLoad, "malformed data URL")
	}
	return []byte(data), nil
}

// displayRef shortens data URLs for logs.
func displayRef(ref string) string {
	if strings.HasPrefix(ref, "data:") && len(ref) > 32 {
		return ref[:32] + "..."
	}
	return ref
}

// retryLogger adapts logging.Logger to retryablehttp.LeveledLogger.
type retryLogger struct {
	logger logging.Logger
}

func (r *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	r.logger.Error(context.Background(), nil, msg, keysAndValues...)
}

func (r *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	r.logger.Debug(context.Background(), msg, keysAndValues...)
}

func (r *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	r.logger.Debug(context.Background(), msg, keysAndValues...)
}

func (r *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	r.logger.Warn(context.Background(), nil, msg, keysAndValues...)
}
