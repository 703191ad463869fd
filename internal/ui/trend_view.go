package ui

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"
	"github.com/rivo/tview"
)

const maxTrendPoints = 120

// TrendView graphs the active count over time. It is seeded from the metrics
// plugin's history when one is configured and extended by every counts refresh.
type TrendView struct {
	panel  *tview.TextView
	points []float64
	note   string
}

// NewTrendView creates an empty trend panel
func NewTrendView() *TrendView {
	view := &TrendView{}
	view.panel = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false).
		SetWordWrap(false)
	view.panel.SetBorder(true).
		SetTitle(" Active Count ").
		SetTitleAlign(tview.AlignCenter)
	view.render()
	return view
}

// Reset drops all points
func (v *TrendView) Reset() {
	v.points = nil
	v.note = ""
	v.render()
}

// Seed prepends historical points ahead of anything appended so far
func (v *TrendView) Seed(history []float64) {
	v.points = append(append([]float64{}, history...), v.points...)
	v.trim()
	v.render()
}

// Append adds the latest active count
func (v *TrendView) Append(value float64) {
	v.points = append(v.points, value)
	v.trim()
	v.render()
}

// SetNote shows a one-line note under the graph, such as a history failure
func (v *TrendView) SetNote(note string) {
	v.note = note
	v.render()
}

func (v *TrendView) trim() {
	if len(v.points) > maxTrendPoints {
		v.points = v.points[len(v.points)-maxTrendPoints:]
	}
}

func (v *TrendView) render() {
	if len(v.points) == 0 {
		v.panel.SetText("\n[gray]No data[white]" + v.noteLine())
		return
	}

	current := v.points[len(v.points)-1]
	max, min := current, current
	for _, p := range v.points {
		if p > max {
			max = p
		}
		if p < min {
			min = p
		}
	}

	_, _, width, height := v.panel.GetInnerRect()
	graphWidth := width - 12
	if graphWidth < 20 {
		graphWidth = 20
	}
	graphHeight := height - 3
	if graphHeight < 4 {
		graphHeight = 4
	}
	if graphHeight > 15 {
		graphHeight = 15
	}

	graph := asciigraph.Plot(v.points,
		asciigraph.Height(graphHeight),
		asciigraph.Width(graphWidth),
		asciigraph.Precision(0),
		asciigraph.Caption(fmt.Sprintf("%s | ↑%s ↓%s",
			formatCount(int64(current)),
			formatCount(int64(max)),
			formatCount(int64(min)))))

	var output strings.Builder
	output.WriteString(tview.Escape(graph))
	output.WriteString(v.noteLine())
	v.panel.SetText(output.String())
}

func (v *TrendView) noteLine() string {
	if v.note == "" {
		return ""
	}
	return "\n[gray]" + tview.Escape(v.note) + "[white]"
}

// GetPrimitive returns the primitive for this view
func (v *TrendView) GetPrimitive() tview.Primitive {
	return v.panel
}
