package dom

import "testing"

func TestParseStyle(t *testing.T) {
	st := ParseStyle(" Fill: red ; stroke-width:2px;broken; :x; font-size: 12px ")
	if st.Len() != 3 {
		t.Fatalf("Len() = %d; want 3 (%s)", st.Len(), st)
	}
	if st.Get("fill") != "red" || st.Get("font-size") != "12px" {
		t.Fatalf("Get() = %q, %q", st.Get("fill"), st.Get("font-size"))
	}

	st.Set("fill", "")
	st.Set("stroke", "#4d4d4d")
	if got := st.String(); got != "stroke-width: 2px; font-size: 12px; stroke: #4d4d4d" {
		t.Fatalf("String() = %q", got)
	}
}

func TestComputedStyle(t *testing.T) {
	doc := mustParse(t, sample)
	a := doc.ByID("line-graph-a").FirstTag("text")
	b := doc.ByID("line-graph-b").FirstTag("text")
	marker := doc.ByID("markers-a").FirstTag("circle")

	tests := []struct {
		name string
		el   *Element
		prop string
		want string
	}{
		{name: "inherited presentation attribute", el: a, prop: "fill", want: "#123456"},
		{name: "unitless font-size gains px", el: a, prop: "font-size", want: "14px"},
		{name: "inline wins", el: b, prop: "font-size", want: "20px"},
		{name: "inline colour", el: b, prop: "fill", want: "red"},
		{name: "initial fill-opacity", el: marker, prop: "fill-opacity", want: "1"},
		{name: "initial stroke", el: marker, prop: "stroke", want: "none"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.el.ComputedStyle(tc.prop); got != tc.want {
				t.Fatalf("ComputedStyle(%s) = %q; want %q", tc.prop, got, tc.want)
			}
		})
	}
}

func TestSetInlineStyle(t *testing.T) {
	doc := mustParse(t, sample)
	marker := doc.ByID("markers-a").FirstTag("circle")

	if marker.InlineStyle("fill-opacity") != "" {
		t.Fatal("expected no inline fill-opacity")
	}
	marker.SetInlineStyle("fill-opacity", "0")
	if marker.InlineStyle("fill-opacity") != "0" || marker.ComputedStyle("fill-opacity") != "0" {
		t.Fatalf("inline write not visible: %q", marker.StyleAttr())
	}
	marker.SetInlineStyle("fill-opacity", "")
	if marker.StyleAttr() != "" || marker.ComputedStyle("fill-opacity") != "1" {
		t.Fatalf("inline removal not visible: %q", marker.StyleAttr())
	}
}
