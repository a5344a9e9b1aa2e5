package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/gofont/gosmallcaps"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/text/cases"

	"github.com/conneroisu/certsmith/internal/errors"
)

// FallbackFamily is used for any family the registry does not know.
const FallbackFamily = "go"

var builtinFonts = map[string][]byte{
	"go":             goregular.TTF,
	"go bold":        gobold.TTF,
	"go italic":      goitalic.TTF,
	"go bold italic": gobolditalic.TTF,
	"go medium":      gomedium.TTF,
	"go mono":        gomono.TTF,
	"go mono bold":   gomonobold.TTF,
	"go smallcaps":   gosmallcaps.TTF,
}

// familyAliases maps common CSS and desktop family names onto the built-in
// Go fonts. Keys are case folded.
var familyAliases = map[string]string{
	"arial":            "go",
	"helvetica":        "go",
	"verdana":          "go",
	"roboto":           "go",
	"inter":            "go",
	"open sans":        "go",
	"sans-serif":       "go",
	"system-ui":        "go",
	"times new roman":  "go",
	"georgia":          "go",
	"serif":            "go",
	"arial bold":       "go bold",
	"helvetica bold":   "go bold",
	"arial italic":     "go italic",
	"cursive":          "go italic",
	"courier":          "go mono",
	"courier new":      "go mono",
	"consolas":         "go mono",
	"monospace":        "go mono",
	"courier new bold": "go mono bold",
	"fantasy":          "go smallcaps",
	"go regular":       "go",
}

// FontRegistry resolves font family names to faces. Parsed fonts are shared;
// every Face call returns a new face because faces are not safe for
// concurrent use.
type FontRegistry struct {
	mu    sync.Mutex
	fonts map[string]*opentype.Font
	fold  cases.Caser
}

// NewFontRegistry returns a registry holding the built-in Go fonts.
func NewFontRegistry() (*FontRegistry, error) {
	r := &FontRegistry{
		fonts: make(map[string]*opentype.Font, len(builtinFonts)),
		fold:  cases.Fold(),
	}
	for name, ttf := range builtinFonts {
		f, err := opentype.Parse(ttf)
		if err != nil {
			return nil, errors.NewInternalError(errors.ErrCodeFontLoad, "failed to parse built-in font "+name, err)
		}
		r.fonts[name] = f
	}
	return r, nil
}

// LoadDir registers every .ttf and .otf file under dir by its family name,
// its full name and its file name. It returns the number of files loaded.
func (r *FontRegistry) LoadDir(dir string) (int, error) {
	loaded := 0
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".ttf", ".otf":
		default:
			return nil
		}
		if err := r.LoadFile(path); err != nil {
			return err
		}
		loaded++
		return nil
	})
	if err != nil {
		return loaded, errors.WrapIO(err, errors.ErrCodeFontLoad, dir, "failed to load fonts")
	}
	return loaded, nil
}

// LoadFile registers a single TrueType or OpenType file.
func (r *FontRegistry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.WrapIO(err, errors.ErrCodeFontLoad, path, "failed to read font")
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeFontLoad, "not a TrueType or OpenType font").WithFile(path)
	}

	names := []string{strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))}
	for _, id := range []sfnt.NameID{sfnt.NameIDFamily, sfnt.NameIDFull} {
		if name, err := f.Name(nil, id); err == nil && name != "" {
			names = append(names, name)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range names {
		r.fonts[r.key(n)] = f
	}
	return nil
}

// Families lists the registered family keys.
func (r *FontRegistry) Families() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.fonts))
	for k := range r.fonts {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Resolve returns the registered family key used for family. The family may
// be a CSS list such as `"Open Sans", Arial, sans-serif`; the first known
// entry wins. The second result is false when the fallback was substituted.
func (r *FontRegistry) Resolve(family string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, candidate := range strings.Split(family, ",") {
		k := r.key(candidate)
		if k == "" {
			continue
		}
		if _, ok := r.fonts[k]; ok {
			return k, true
		}
		if alias, ok := familyAliases[k]; ok {
			return alias, true
		}
	}
	return FallbackFamily, false
}

// Face returns a new face for family at size pixels.
func (r *FontRegistry) Face(family string, size float64) (font.Face, error) {
	if size <= 0 {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidField, fmt.Sprintf("font size must be positive, got %g", size))
	}
	key, _ := r.Resolve(family)

	r.mu.Lock()
	f := r.fonts[key]
	r.mu.Unlock()

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, errors.NewRenderError(errors.ErrCodeFontLoad, "failed to create font face", err)
	}
	return face, nil
}

// key normalizes a family name. Callers hold r.mu.
func (r *FontRegistry) key(name string) string {
	name = strings.Trim(strings.TrimSpace(name), `"'`)
	return strings.Join(strings.Fields(r.fold.String(name)), " ")
}
