package render

import (
	"fmt"
	"sync"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// The Go fonts ship embedded so rendering never depends on font files on
// disk.
var (
	regularFont = mustParse(goregular.TTF)
	boldFont    = mustParse(gobold.TTF)

	faceMu    sync.Mutex
	faceCache = map[faceKey]font.Face{}
)

type faceKey struct {
	size float64
	bold bool
}

func mustParse(ttf []byte) *opentype.Font {
	f, err := opentype.Parse(ttf)
	if err != nil {
		panic(fmt.Sprintf("parse embedded font: %v", err))
	}
	return f
}

// Face returns a cached font face. Size is in pixels (72 DPI).
func Face(size float64, bold bool) font.Face {
	faceMu.Lock()
	defer faceMu.Unlock()
	key := faceKey{size, bold}
	if f, ok := faceCache[key]; ok {
		return f
	}
	src := regularFont
	if bold {
		src = boldFont
	}
	face, err := opentype.NewFace(src, &opentype.FaceOptions{
		Size: size, DPI: 72, Hinting: font.HintingFull,
	})
	if err != nil {
		panic(fmt.Sprintf("create font face: %v", err))
	}
	faceCache[key] = face
	return face
}

// TextMetrics implements layout.Metrics with real glyph measurement.
type TextMetrics struct {
	mu sync.Mutex
	dc *gg.Context
}

func NewTextMetrics() *TextMetrics {
	return &TextMetrics{dc: gg.NewContext(1, 1)}
}

func (m *TextMetrics) Measure(text string, size float64, bold bool) (float64, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dc.SetFontFace(Face(size, bold))
	return m.dc.MeasureString(text)
}
