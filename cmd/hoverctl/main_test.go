package main

import (
	"bytes"
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/gg"
)

const chartFile = `<svg id="composite-chart" width="400" height="300" font-size="12">
  <g id="line-graph-a">
    <text x="100" y="115">Alpha</text>
    <g id="markers-a"><circle cx="200" cy="200" r="3" fill="#ff0000"></circle></g>
    <g id="polyline-a"><polyline points="200,200 250,210" stroke="#ff0000"></polyline></g>
  </g>
  <g id="line-graph-b">
    <text x="300" y="40" text-anchor="middle" style="font-size: 16px">Beta</text>
    <g id="polyline-b"><path d="M 300 50 L 320 60" stroke="#0000ff"></path></g>
  </g>
</svg>`

func writeChart(t *testing.T) string {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("HOVER_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	path := filepath.Join(t.TempDir(), "chart.svg")
	if err := os.WriteFile(path, []byte(chartFile), 0o644); err != nil {
		t.Fatalf("os.WriteFile() failed: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("hoverctl %v error = %v (%s)", args, err, errOut.String())
	}
	return out.String()
}

func TestParsePoint(t *testing.T) {
	tests := []struct {
		in   string
		want gg.Point
		ok   bool
	}{
		{in: "205,205", want: gg.Pt(205, 205), ok: true},
		{in: " 1.5 , -2 ", want: gg.Pt(1.5, -2), ok: true},
		{in: "10"},
		{in: "a,1"},
		{in: "1,b"},
	}
	for _, tc := range tests {
		got, err := parsePoint(tc.in)
		if (err == nil) != tc.ok || (tc.ok && got != tc.want) {
			t.Fatalf("parsePoint(%q) = %v, %v; want %v ok=%v", tc.in, got, err, tc.want, tc.ok)
		}
	}
}

func TestExtractJSON(t *testing.T) {
	path := writeChart(t)
	out := execute(t, "extract", path)

	var doc extractDoc
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("extract output is not JSON: %v\n%s", err, out)
	}
	if doc.Root != "composite-chart" || len(doc.Series) != 2 {
		t.Fatalf("extract = %+v", doc)
	}
	a := doc.Series[0]
	if a.ID != "line-graph-a" || a.Label != "Alpha" || a.Markers != 1 || len(a.Points) != 2 || a.Points[1] != (pointDoc{X: 250, Y: 210}) {
		t.Fatalf("series[0] = %+v", a)
	}
	if doc.Bounds == nil || doc.Bounds.Right != 400 || doc.Bounds.Bottom != 300 {
		t.Fatalf("bounds = %+v", doc.Bounds)
	}
}

func TestExtractYAML(t *testing.T) {
	path := writeChart(t)
	out := execute(t, "extract", path, "--format", "yaml")
	for _, want := range []string{"root: composite-chart", "- id: line-graph-b", "label: Beta"} {
		if !strings.Contains(out, want) {
			t.Fatalf("yaml output missing %q:\n%s", want, out)
		}
	}
}

func TestSimulate(t *testing.T) {
	path := writeChart(t)
	out := execute(t, "simulate", path, "--at", "205,205", "--at", "300,35", "--leave", "--format", "json")

	var docs []transitionDoc
	if err := json.Unmarshal([]byte(out), &docs); err != nil {
		t.Fatalf("simulate output is not JSON: %v\n%s", err, out)
	}
	if len(docs) != 3 {
		t.Fatalf("transitions = %d; want 3", len(docs))
	}
	if docs[0].To != "focused" || docs[0].Active != "line-graph-a" || docs[0].Reason != "polyline" {
		t.Fatalf("first = %+v", docs[0])
	}
	if docs[1].Previous != "line-graph-a" || docs[1].Active != "line-graph-b" || docs[1].Reason != "text" {
		t.Fatalf("second = %+v", docs[1])
	}
	if !docs[2].Leave || docs[2].To != "idle" {
		t.Fatalf("third = %+v", docs[2])
	}
}

func TestSimulateTextOnly(t *testing.T) {
	path := writeChart(t)
	out := execute(t, "simulate", path, "--text-only", "--at", "205,205")
	if !strings.Contains(out, "idle -> browsing") || strings.Contains(out, "active=") {
		t.Fatalf("text-only output = %q; want browsing without focus", out)
	}
}

func TestPreviewWritesPNG(t *testing.T) {
	path := writeChart(t)
	dest := filepath.Join(t.TempDir(), "out.png")
	out := execute(t, "preview", path, "--at", "205,205", "-o", dest)
	if !strings.Contains(out, "400x300 state=focused active=line-graph-a") {
		t.Fatalf("preview output = %q", out)
	}

	f, err := os.Open(dest)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	if img.Bounds().Dx() != 400 || img.Bounds().Dy() != 300 {
		t.Fatalf("image bounds = %v", img.Bounds())
	}
}

func TestSimulateRejectsBadPosition(t *testing.T) {
	path := writeChart(t)
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"simulate", path, "--at", "nope"})
	if err := root.Execute(); err == nil {
		t.Fatal("simulate accepted an invalid position")
	}
}
