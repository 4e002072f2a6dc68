// Package glyph measures and supplies label text faces. It prefers the Go
// Regular outline font through gg's text engine and falls back to the
// fixed 7x13 bitmap face when the outline font cannot be parsed.
package glyph

import (
	"log/slog"
	"sync"

	"github.com/gogpu/gg/text"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	sourceOnce sync.Once
	source     *text.FontSource
)

func loadSource() *text.FontSource {
	sourceOnce.Do(func() {
		src, err := text.NewFontSource(goregular.TTF)
		if err != nil {
			slog.Warn("glyph: outline font unavailable, using bitmap metrics", "error", err)
			return
		}
		source = src
	})
	return source
}

// Face returns a Go Regular face at size px, or nil without an outline font.
func Face(size float64) text.Face {
	src := loadSource()
	if src == nil || size <= 0 {
		return nil
	}
	return src.Face(size)
}

// Extent is the horizontal advance and vertical reach of a text run.
type Extent struct {
	Width   float64
	Ascent  float64
	Descent float64
}

// Measure returns the extent of s rendered at size px.
func Measure(s string, size float64) Extent {
	if size <= 0 {
		return Extent{}
	}
	if face := Face(size); face != nil {
		m := face.Metrics()
		return Extent{Width: face.Advance(s), Ascent: m.Ascent, Descent: m.Descent}
	}
	return bitmapExtent(s, size)
}

// bitmapExtent scales the 7x13 face metrics to size.
func bitmapExtent(s string, size float64) Extent {
	face := basicfont.Face7x13
	m := face.Metrics()
	scale := size / float64(m.Height.Ceil())
	return Extent{
		Width:   float64(font.MeasureString(face, s).Ceil()) * scale,
		Ascent:  float64(m.Ascent.Ceil()) * scale,
		Descent: float64(m.Descent.Ceil()) * scale,
	}
}
