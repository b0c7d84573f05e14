package export

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/gogpu/gg"
	"golang.org/x/image/colornames"
)

// parseColor accepts #rgb, #rgba, #rrggbb, #rrggbbaa and CSS color names.
func parseColor(s string) (color.Color, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return nil, fmt.Errorf("color cannot be empty")
	}
	if name == "transparent" {
		return color.Transparent, nil
	}
	if c, ok := colornames.Map[name]; ok {
		return c, nil
	}
	hex, ok := strings.CutPrefix(name, "#")
	if !ok || !isHex(hex) {
		return nil, fmt.Errorf("invalid color %q", s)
	}
	switch len(hex) {
	case 3, 4, 6, 8:
		return gg.Hex(hex).Color(), nil
	}
	return nil, fmt.Errorf("invalid color %q", s)
}

// colorOr parses s, falling back when it is empty or malformed.
func colorOr(s string, fallback color.Color) color.Color {
	c, err := parseColor(s)
	if err != nil {
		return fallback
	}
	return c
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return false
		}
	}
	return true
}
