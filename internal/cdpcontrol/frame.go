package cdpcontrol

import (
	"github.com/dgnsrekt/chart_hover/internal/chart"
	"github.com/dgnsrekt/chart_hover/internal/highlight"
	"github.com/gogpu/gg"
)

// PageFrame is the chart geometry the bridge observed with one pointer
// event, in client coordinates. It implements highlight.Frame.
type PageFrame struct {
	Chart  *[4]float64           `json:"chart"`
	Labels map[string][4]float64 `json:"labels"`
	CTM    *[6]float64           `json:"ctm"`

	inv    gg.Matrix
	invOK  bool
	invSet bool
}

var _ highlight.Frame = (*PageFrame)(nil)

func rectOf(v [4]float64) chart.Rect {
	return chart.Rect{Left: v[0], Top: v[1], Right: v[2], Bottom: v[3]}
}

// ChartBounds is unavailable when the root has left the document or has no
// area.
func (f *PageFrame) ChartBounds() (chart.Rect, bool) {
	if f.Chart == nil {
		return chart.Rect{}, false
	}
	r := rectOf(*f.Chart)
	return r, r.Width() > 0 && r.Height() > 0
}

func (f *PageFrame) LabelBounds(s *chart.Series) (chart.Rect, bool) {
	v, ok := f.Labels[string(s.ID)]
	if !ok {
		return chart.Rect{}, false
	}
	return rectOf(v), true
}

// ScreenToLocal applies the inverse of the root's screen CTM.
func (f *PageFrame) ScreenToLocal(p gg.Point) (gg.Point, bool) {
	if !f.invSet {
		f.invSet = true
		if f.CTM != nil {
			m := *f.CTM
			f.inv, f.invOK = highlight.InverseCTM(m[0], m[1], m[2], m[3], m[4], m[5])
		}
	}
	if !f.invOK {
		return gg.Point{}, false
	}
	return f.inv.TransformPoint(p), true
}
