package designer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/certsmith/internal/errors"
	"github.com/conneroisu/certsmith/internal/types"
)

// hclTemplate is the HCL shape of a template descriptor:
//
//	name       = "Course completion"
//	background = "background.png"
//	width      = 800
//	height     = 600
//
//	field "name" {
//	  x         = 400
//	  y         = 260
//	  font_size = 48
//	}
type hclTemplate struct {
	ID         string     `hcl:"id,optional"`
	Name       string     `hcl:"name,optional"`
	Background string     `hcl:"background"`
	Width      int        `hcl:"width"`
	Height     int        `hcl:"height"`
	Fields     []hclField `hcl:"field,block"`
}

type hclField struct {
	FieldName  string  `hcl:"name,label"`
	ID         string  `hcl:"id,optional"`
	X          float64 `hcl:"x"`
	Y          float64 `hcl:"y"`
	FontSize   float64 `hcl:"font_size,optional"`
	FontFamily string  `hcl:"font_family,optional"`
	Color      string  `hcl:"color,optional"`
	Align      string  `hcl:"align,optional"`
}

// Load reads a template descriptor. The format follows the file extension:
// .yaml/.yml, .json or .hcl.
func Load(path string) (types.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Template{}, errors.WrapIO(err, errors.ErrCodeFileNotFound, path, "failed to read template")
	}

	var t types.Template
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &t)
	case ".json":
		err = json.Unmarshal(data, &t)
	case ".hcl":
		t, err = decodeHCL(path, data)
	default:
		return types.Template{}, errors.NewValidationError(errors.ErrCodeUnsupportedFormat,
			fmt.Sprintf("unsupported template format %q (use .yaml, .json or .hcl)", ext)).WithFile(path)
	}
	if err != nil {
		return types.Template{}, errors.Wrap(err, errors.ErrorTypeValidation, errors.ErrCodeInvalidTemplate,
			"failed to parse template").WithFile(path)
	}

	t = fillDefaults(path, t)
	if err := Validate(t); err != nil {
		return types.Template{}, errors.Wrap(err, errors.ErrorTypeValidation, errors.ErrCodeInvalidTemplate,
			"invalid template").WithFile(path)
	}
	return t, nil
}

// Save writes a template descriptor as YAML or JSON depending on the extension.
func Save(path string, t types.Template) error {
	var (
		data []byte
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(t)
	case ".json":
		data, err = json.MarshalIndent(t, "", "  ")
	default:
		return errors.NewValidationError(errors.ErrCodeUnsupportedFormat,
			fmt.Sprintf("cannot write template as %q (use .yaml or .json)", ext)).WithFile(path)
	}
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeInternalError, "failed to encode template", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.WrapIO(err, errors.ErrCodeFileNotFound, path, "failed to write template")
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.WrapIO(err, errors.ErrCodeFileNotFound, path, "failed to write template")
	}
	return nil
}

// ResolveBackground resolves a relative background path against the
// directory of the descriptor that references it. URLs, data URLs and
// absolute paths are returned unchanged.
func ResolveBackground(descriptorPath, ref string) string {
	if ref == "" || filepath.IsAbs(ref) || strings.Contains(ref, "://") || strings.HasPrefix(ref, "data:") {
		return ref
	}
	return filepath.Join(filepath.Dir(descriptorPath), ref)
}

func decodeHCL(path string, data []byte) (types.Template, error) {
	var doc hclTemplate
	if err := hclsimple.Decode(filepath.Base(path), data, nil, &doc); err != nil {
		return types.Template{}, err
	}

	t := types.Template{
		ID:            doc.ID,
		Name:          doc.Name,
		BackgroundRef: doc.Background,
		Width:         doc.Width,
		Height:        doc.Height,
		Fields:        make([]types.Field, 0, len(doc.Fields)),
	}
	for _, f := range doc.Fields {
		t.Fields = append(t.Fields, types.Field{
			ID:         f.ID,
			FieldName:  f.FieldName,
			X:          f.X,
			Y:          f.Y,
			FontSize:   f.FontSize,
			FontFamily: f.FontFamily,
			Color:      f.Color,
			Align:      types.Align(strings.ToLower(f.Align)),
		})
	}
	return t, nil
}

// fillDefaults completes hand-written descriptors that omit optional values.
// Missing ids are derived from the descriptor's location and the field's
// position, so every load of an unchanged file yields the same ids.
func fillDefaults(path string, t types.Template) types.Template {
	t = Clone(t)
	if t.ID == "" {
		t.ID = derivedID(descriptorKey(path))
	}
	if t.Name == "" {
		t.Name = DefaultTemplateName
	}
	for i := range t.Fields {
		f := &t.Fields[i]
		if f.ID == "" {
			f.ID = derivedID(fmt.Sprintf("%s/fields/%d/%s", t.ID, i, f.FieldName))
		}
		if f.FontSize == 0 {
			f.FontSize = DefaultFontSize
		}
		if f.FontFamily == "" {
			f.FontFamily = DefaultFontFamily
		}
		if f.Color == "" {
			f.Color = DefaultColor
		}
		if f.Align == "" {
			f.Align = DefaultAlign
		}
	}
	return t
}

func descriptorKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(path)
}

func derivedID(key string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("certsmith:"+key)).String()
}
