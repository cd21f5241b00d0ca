// Package svg renders the dashboard chart as inline SVG.
package svg

import (
	"fmt"
	"html/template"
	"math"
	"strings"
)

// Defaults for the dashboard chart.
const (
	DefaultWidth   = 720
	DefaultHeight  = 260
	DefaultPadding = 32.0
	DefaultTicks   = 5
)

// BarOpts customises the bar chart renderer.
type BarOpts struct {
	Title       string
	Description string
	Color       string
	AxisColor   string
	GridColor   string
	Padding     float64
	TickCount   int
}

// Bars renders one series of non-negative counts as vertical bars.
// An empty series renders the axes with a "No data" caption.
func Bars(width, height int, values []float64, labels []string, opts BarOpts) (template.HTML, error) {
	if len(values) != len(labels) {
		return "", fmt.Errorf("svg: %d values for %d labels", len(values), len(labels))
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	padding := opts.Padding
	if padding <= 0 {
		padding = DefaultPadding
	}
	ticks := opts.TickCount
	if ticks <= 0 {
		ticks = DefaultTicks
	}
	axisColor := fallback(opts.AxisColor, "#475569")
	gridColor := fallback(opts.GridColor, "#cbd5e1")
	color := fallback(opts.Color, "#0ea5e9")

	chartWidth := float64(width) - 2*padding
	chartHeight := float64(height) - 2*padding
	if chartWidth <= 0 || chartHeight <= 0 {
		return "", fmt.Errorf("svg: viewport too small")
	}

	maxVal := 0.0
	for _, v := range values {
		if v > maxVal {
			maxVal = v
		}
	}
	if maxVal <= 0 {
		maxVal = 1
	}
	maxVal = niceCeil(maxVal)
	scale := chartHeight / maxVal
	bottom := padding + chartHeight

	titleID := makeID(opts.Title, "title")
	descID := makeID(opts.Title, "desc")

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" role="img" aria-labelledby="%s %s">`, width, height, titleID, descID)
	fmt.Fprintf(&b, `<title id="%s">%s</title>`, titleID, template.HTMLEscapeString(fallback(opts.Title, "Bar chart")))
	fmt.Fprintf(&b, `<desc id="%s">%s</desc>`, descID, template.HTMLEscapeString(fallback(opts.Description, "Counts per period")))

	for i := 0; i <= ticks; i++ {
		ratio := float64(i) / float64(ticks)
		y := bottom - ratio*chartHeight
		fmt.Fprintf(&b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="0.5" stroke-dasharray="2,4" aria-hidden="true"></line>`, padding, y, padding+chartWidth, y, gridColor)
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="end">%s</text>`, padding-6, y+4, axisColor, formatTick(maxVal*ratio))
	}
	fmt.Fprintf(&b, `<g stroke="%s" aria-hidden="true">`, axisColor)
	fmt.Fprintf(&b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke-width="1"></line>`, padding, padding, padding, bottom)
	fmt.Fprintf(&b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke-width="1"></line>`, padding, bottom, padding+chartWidth, bottom)
	b.WriteString(`</g>`)

	if len(values) == 0 {
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="12" text-anchor="middle">No data</text>`, padding+chartWidth/2, padding+chartHeight/2, axisColor)
		b.WriteString(`</svg>`)
		return template.HTML(b.String()), nil
	}

	slot := chartWidth / float64(len(values))
	barWidth := slot * 0.6
	every := labelStride(len(labels), chartWidth)
	for i, v := range values {
		if v < 0 {
			v = 0
		}
		h := v * scale
		x := padding + float64(i)*slot + (slot-barWidth)/2
		label := template.HTMLEscapeString(labels[i])
		fmt.Fprintf(&b, `<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s"><title>%s: %s</title></rect>`, x, bottom-h, barWidth, h, color, label, formatTick(v))
		if i%every == 0 {
			fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="middle">%s</text>`, x+barWidth/2, bottom+14, axisColor, label)
		}
	}
	b.WriteString(`</svg>`)
	return template.HTML(b.String()), nil
}

// labelStride thins x-axis labels so roughly one fits per 48 units.
func labelStride(n int, width float64) int {
	fit := int(width / 48)
	if fit < 1 {
		fit = 1
	}
	if n <= fit {
		return 1
	}
	return int(math.Ceil(float64(n) / float64(fit)))
}

func niceCeil(v float64) float64 {
	exp := math.Pow(10, math.Floor(math.Log10(v)))
	for _, step := range []float64{1, 2, 2.5, 5, 10} {
		if candidate := step * exp; candidate >= v {
			return candidate
		}
	}
	return 10 * exp
}

func fallback(value, defaultValue string) string {
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	return value
}

func makeID(base, suffix string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, strings.ToLower(strings.TrimSpace(base)))
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		cleaned = "chart"
	}
	return cleaned + "-" + suffix
}

func formatTick(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", v/1_000_000)
	case abs >= 10_000:
		return fmt.Sprintf("%.1fk", v/1_000)
	case math.Abs(v-math.Round(v)) < 1e-9:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.1f", v)
	}
}
