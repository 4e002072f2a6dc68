package preview

import (
	"strconv"
	"strings"

	"github.com/gogpu/gg"
	"golang.org/x/image/colornames"
)

// parseColor reads the colour forms getComputedStyle and presentation
// attributes produce: #hex, rgb()/rgba() and CSS names. ok is false for
// none, transparent and anything unrecognized.
func parseColor(s string) (gg.RGBA, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "" || s == "none" || s == "transparent":
		return gg.RGBA{}, false
	case strings.HasPrefix(s, "#"):
		switch len(s) {
		case 4, 5, 7, 9:
			if _, err := strconv.ParseUint(s[1:], 16, 32); err != nil {
				return gg.RGBA{}, false
			}
			return gg.Hex(s), true
		}
		return gg.RGBA{}, false
	case strings.HasPrefix(s, "rgb"):
		return parseRGBFunc(s)
	}
	if c, ok := colornames.Map[s]; ok {
		return gg.FromColor(c), true
	}
	return gg.RGBA{}, false
}

func parseRGBFunc(s string) (gg.RGBA, bool) {
	open, close := strings.IndexByte(s, '('), strings.LastIndexByte(s, ')')
	if open < 0 || close < open {
		return gg.RGBA{}, false
	}
	parts := strings.FieldsFunc(s[open+1:close], func(r rune) bool { return r == ',' || r == ' ' || r == '/' })
	if len(parts) != 3 && len(parts) != 4 {
		return gg.RGBA{}, false
	}
	var ch [4]float64
	ch[3] = 1
	for i, p := range parts {
		pct := strings.HasSuffix(p, "%")
		v, err := strconv.ParseFloat(strings.TrimSuffix(p, "%"), 64)
		if err != nil {
			return gg.RGBA{}, false
		}
		switch {
		case pct:
			v /= 100
		case i < 3:
			v /= 255
		}
		ch[i] = clamp01(v)
	}
	return gg.RGBA{R: ch[0], G: ch[1], B: ch[2], A: ch[3]}, true
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
