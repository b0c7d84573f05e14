package export

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/allthatprinting/pinto/backend-go/internal/design"
)

// LineHeightFactor is the baseline-to-baseline distance as a multiple of font size.
const LineHeightFactor = 1.2

type fontKey struct {
	mono   bool
	bold   bool
	italic bool
}

var fontData = map[fontKey][]byte{
	{}:                                     goregular.TTF,
	{bold: true}:                           gobold.TTF,
	{italic: true}:                         goitalic.TTF,
	{bold: true, italic: true}:             gobolditalic.TTF,
	{mono: true}:                           gomono.TTF,
	{mono: true, bold: true}:               gomonobold.TTF,
	{mono: true, italic: true}:             gomonoitalic.TTF,
	{mono: true, bold: true, italic: true}: gomonobolditalic.TTF,
}

// Fonts resolves element font attributes to faces from the bundled Go fonts.
// Sources are parsed once and shared.
type Fonts struct {
	mu      sync.Mutex
	sources map[fontKey]*text.FontSource
}

func NewFonts() *Fonts {
	return &Fonts{sources: make(map[fontKey]*text.FontSource)}
}

// Face returns the face for el's family, weight and style at size pixels.
func (f *Fonts) Face(el design.Element, size float64) (text.Face, error) {
	key := fontKey{
		mono:   isMonospace(el.FontFamily),
		bold:   el.FontWeight == design.FontWeightBold,
		italic: el.FontStyle == design.FontStyleItalic,
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	src, ok := f.sources[key]
	if !ok {
		var err error
		src, err = text.NewFontSource(fontData[key])
		if err != nil {
			return nil, fmt.Errorf("load font: %w", err)
		}
		f.sources[key] = src
	}
	return src.Face(size), nil
}

func isMonospace(family string) bool {
	family = strings.ToLower(family)
	for _, name := range []string{"mono", "courier", "consolas", "menlo"} {
		if strings.Contains(family, name) {
			return true
		}
	}
	return false
}

// WrapText breaks s into lines no wider than maxWidth using greedy word
// wrapping on spaces. A single word wider than maxWidth gets a line of its
// own. Explicit newlines always start a new line.
func WrapText(s string, maxWidth float64, measure func(string) float64) []string {
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		var words []string
		for _, w := range strings.Split(para, " ") {
			if w != "" {
				words = append(words, w)
			}
		}
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := words[0]
		for _, word := range words[1:] {
			candidate := line + " " + word
			if measure(candidate) <= maxWidth {
				line = candidate
				continue
			}
			lines = append(lines, line)
			line = word
		}
		lines = append(lines, line)
	}
	return lines
}

// alignOffset returns the x position of a line of width lineW inside a box
// of width boxW.
func alignOffset(align design.TextAlign, boxW, lineW float64) float64 {
	switch align {
	case design.TextAlignCenter:
		return (boxW - lineW) / 2
	case design.TextAlignRight:
		return boxW - lineW
	}
	return 0
}
