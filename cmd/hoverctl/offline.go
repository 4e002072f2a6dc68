package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dgnsrekt/chart_hover/internal/config"
	"github.com/dgnsrekt/chart_hover/internal/highlight"
	"github.com/dgnsrekt/chart_hover/internal/offline"
	"github.com/dgnsrekt/chart_hover/internal/preview"
	"github.com/gogpu/gg"
	"github.com/spf13/cobra"
)

var (
	extractFormat string
	extractOutput string

	simulateAt     []string
	simulateLeave  bool
	simulateFormat string

	previewAt         []string
	previewOutput     string
	previewBackground string
)

type pointDoc struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

type rectDoc struct {
	Left   float64 `json:"left" yaml:"left"`
	Top    float64 `json:"top" yaml:"top"`
	Right  float64 `json:"right" yaml:"right"`
	Bottom float64 `json:"bottom" yaml:"bottom"`
}

type seriesDoc struct {
	ID      string     `json:"id" yaml:"id"`
	Index   int        `json:"index" yaml:"index"`
	Label   string     `json:"label,omitempty" yaml:"label,omitempty"`
	Markers int        `json:"markers" yaml:"markers"`
	Lines   int        `json:"lines" yaml:"lines"`
	Points  []pointDoc `json:"points" yaml:"points"`
}

type extractDoc struct {
	Root   string      `json:"root" yaml:"root"`
	Bounds *rectDoc    `json:"bounds,omitempty" yaml:"bounds,omitempty"`
	Series []seriesDoc `json:"series" yaml:"series"`
}

type transitionDoc struct {
	X        float64 `json:"x" yaml:"x"`
	Y        float64 `json:"y" yaml:"y"`
	Leave    bool    `json:"leave,omitempty" yaml:"leave,omitempty"`
	From     string  `json:"from" yaml:"from"`
	To       string  `json:"to" yaml:"to"`
	Previous string  `json:"previous,omitempty" yaml:"previous,omitempty"`
	Active   string  `json:"active,omitempty" yaml:"active,omitempty"`
	Reason   string  `json:"reason,omitempty" yaml:"reason,omitempty"`
	Writes   int     `json:"writes" yaml:"writes"`
}

func newExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Print the series index and polyline geometry of a chart file",
		Args:  cobra.ExactArgs(1),
		RunE:  runExtract,
	}
	cmd.Flags().StringVar(&extractFormat, "format", "json", "output format: json or yaml")
	cmd.Flags().StringVarP(&extractOutput, "output", "o", "", "output file path (default: stdout)")
	return cmd
}

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate <file>",
		Short: "Replay pointer positions over a chart file and print each transition",
		Args:  cobra.ExactArgs(1),
		RunE:  runSimulate,
	}
	cmd.Flags().StringArrayVar(&simulateAt, "at", nil, "pointer position x,y (repeatable, replayed in order)")
	cmd.Flags().BoolVar(&simulateLeave, "leave", false, "finish with a pointer leave")
	cmd.Flags().StringVar(&simulateFormat, "format", "text", "output format: text, json or yaml")
	return cmd
}

func newPreviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Replay pointer positions and render the resulting chart to PNG",
		Args:  cobra.ExactArgs(1),
		RunE:  runPreview,
	}
	cmd.Flags().StringArrayVar(&previewAt, "at", nil, "pointer position x,y (repeatable, replayed in order)")
	cmd.Flags().StringVarP(&previewOutput, "output", "o", "preview.png", "output PNG path")
	cmd.Flags().StringVar(&previewBackground, "background", "", "background colour (default white)")
	return cmd
}

// openSurface loads config and the chart file for the offline commands.
// Diagnostics go to stderr so stdout stays machine readable.
func openSurface(cmd *cobra.Command, path string) (*config.Config, *offline.Surface, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	if err := setupLogger(cfg.LogLevel, "", cmd.ErrOrStderr()); err != nil {
		return nil, nil, err
	}
	surface, err := offline.Open(path, cfg.Selectors())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return cfg, surface, nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	_, surface, err := openSurface(cmd, args[0])
	if err != nil {
		return err
	}

	c := surface.Chart()
	doc := extractDoc{Root: c.Selectors.RootID, Series: make([]seriesDoc, 0, len(c.Series))}
	if b, ok := surface.ChartBounds(); ok {
		doc.Bounds = &rectDoc{Left: b.Left, Top: b.Top, Right: b.Right, Bottom: b.Bottom}
	}
	for _, s := range c.Series {
		sd := seriesDoc{
			ID:      string(s.ID),
			Index:   s.Index,
			Markers: len(s.Markers),
			Lines:   len(s.Lines),
			Points:  make([]pointDoc, 0, len(s.Points)),
		}
		if s.Label != nil {
			sd.Label = strings.TrimSpace(s.Label.Text())
		}
		for _, p := range s.Points {
			sd.Points = append(sd.Points, pointDoc{X: p.X, Y: p.Y})
		}
		doc.Series = append(doc.Series, sd)
	}

	var w io.Writer = cmd.OutOrStdout()
	if extractOutput != "" {
		f, err := os.Create(extractOutput)
		if err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		defer f.Close()
		w = f
	}
	return encode(w, extractFormat, doc)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	points, err := parsePoints(simulateAt)
	if err != nil {
		return err
	}
	cfg, surface, err := openSurface(cmd, args[0])
	if err != nil {
		return err
	}

	ctrl := highlight.NewController(surface.Chart(), surface, cfg.Highlight(), nil)
	docs := replay(ctrl, surface, points, simulateLeave)

	if simulateFormat != "text" {
		return encode(cmd.OutOrStdout(), simulateFormat, docs)
	}
	out := cmd.OutOrStdout()
	for _, d := range docs {
		where := fmt.Sprintf("%g,%g", d.X, d.Y)
		if d.Leave {
			where = "leave"
		}
		line := fmt.Sprintf("%-12s %s -> %s", where, d.From, d.To)
		if d.Active != "" {
			line += " active=" + d.Active
		}
		if d.Reason != "" {
			line += " reason=" + d.Reason
		}
		fmt.Fprintf(out, "%s writes=%d\n", line, d.Writes)
	}
	return nil
}

func runPreview(cmd *cobra.Command, args []string) error {
	points, err := parsePoints(previewAt)
	if err != nil {
		return err
	}
	cfg, surface, err := openSurface(cmd, args[0])
	if err != nil {
		return err
	}
	bounds, ok := surface.ChartBounds()
	if !ok {
		return fmt.Errorf("%s: chart has no drawable extent", args[0])
	}

	ctrl := highlight.NewController(surface.Chart(), surface, cfg.Highlight(), nil)
	replay(ctrl, surface, points, false)

	opts := preview.Options{Bounds: bounds, Background: previewBackground}
	if len(points) > 0 {
		last := points[len(points)-1]
		opts.Pointer = &last
	}
	img, err := preview.Render(surface.Chart(), surface, opts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(previewOutput, img.PNG, 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	st := ctrl.State()
	fmt.Fprintf(cmd.OutOrStdout(), "%s %dx%d state=%s", previewOutput, img.Width, img.Height, st.State())
	if st.Active != nil {
		fmt.Fprintf(cmd.OutOrStdout(), " active=%s", st.Active.ID)
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}

// replay feeds each position to ctrl, optionally followed by a leave.
func replay(ctrl *highlight.Controller, frame highlight.Frame, points []gg.Point, leave bool) []transitionDoc {
	docs := make([]transitionDoc, 0, len(points)+1)
	for _, p := range points {
		docs = append(docs, toTransitionDoc(ctrl.Move(frame, p), false))
	}
	if leave {
		docs = append(docs, toTransitionDoc(ctrl.Leave(), true))
	}
	return docs
}

func toTransitionDoc(tr highlight.Transition, leave bool) transitionDoc {
	return transitionDoc{
		X:        tr.Point.X,
		Y:        tr.Point.Y,
		Leave:    leave,
		From:     tr.From.String(),
		To:       tr.To.String(),
		Previous: string(tr.Previous),
		Active:   string(tr.Active),
		Reason:   string(tr.Reason),
		Writes:   tr.Writes,
	}
}

func parsePoints(values []string) ([]gg.Point, error) {
	points := make([]gg.Point, 0, len(values))
	for _, v := range values {
		p, err := parsePoint(v)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}

// parsePoint reads "x,y".
func parsePoint(s string) (gg.Point, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return gg.Point{}, fmt.Errorf("invalid position %q (want x,y)", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return gg.Point{}, fmt.Errorf("invalid position %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return gg.Point{}, fmt.Errorf("invalid position %q: %w", s, err)
	}
	return gg.Pt(x, y), nil
}
