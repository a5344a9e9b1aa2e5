package compositor

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// ParseColor parses #rgb, #rgba, #rrggbb, #rrggbbaa, rgb(), rgba() and CSS
// color names.
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "":
		return color.NRGBA{}, fmt.Errorf("empty color")
	case strings.HasPrefix(s, "#"):
		return parseHex(s[1:])
	case strings.HasPrefix(s, "rgb"):
		return parseFunc(s)
	case s == "transparent":
		return color.NRGBA{}, nil
	}
	if c, ok := colornames.Map[s]; ok {
		return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}, nil
	}
	return color.NRGBA{}, fmt.Errorf("unknown color %q", s)
}

// FormatHex renders c as #rrggbb, or #rrggbbaa when it is not opaque.
func FormatHex(c color.NRGBA) string {
	if c.A == 0xff {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

func parseHex(h string) (color.NRGBA, error) {
	switch len(h) {
	case 3, 4:
		var expanded strings.Builder
		for _, r := range h {
			expanded.WriteRune(r)
			expanded.WriteRune(r)
		}
		h = expanded.String()
	case 6, 8:
	default:
		return color.NRGBA{}, fmt.Errorf("invalid hex color #%s", h)
	}
	if len(h) == 6 {
		h += "ff"
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color #%s", h)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

func parseFunc(s string) (color.NRGBA, error) {
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	name := strings.TrimSpace(s[:open])
	args := strings.FieldsFunc(s[open+1:len(s)-1], func(r rune) bool {
		return r == ',' || r == ' ' || r == '/'
	})
	if (name != "rgb" && name != "rgba") || (len(args) != 3 && len(args) != 4) {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}

	var ch [4]uint8
	ch[3] = 0xff
	for i, a := range args {
		v, err := channel(a, i == 3)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
		}
		ch[i] = v
	}
	return color.NRGBA{R: ch[0], G: ch[1], B: ch[2], A: ch[3]}, nil
}

// channel parses one rgb() argument. Alpha is a 0..1 fraction; other
// channels are 0..255. Either may be a percentage.
func channel(a string, alpha bool) (uint8, error) {
	var scale float64
	switch {
	case strings.HasSuffix(a, "%"):
		a = strings.TrimSuffix(a, "%")
		scale = 2.55
	case alpha:
		scale = 255
	default:
		scale = 1
	}
	f, err := strconv.ParseFloat(a, 64)
	if err != nil {
		return 0, err
	}
	v := math.Round(f * scale)
	return uint8(math.Max(0, math.Min(255, v))), nil
}
