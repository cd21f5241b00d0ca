package svg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBarsProducesSVG(t *testing.T) {
	html, err := Bars(420, 220, []float64{3, 7}, []string{"2024-01", "2024-02"}, BarOpts{
		Title:       "Orders per month",
		Description: "Monthly order count",
	})
	require.NoError(t, err)
	out := string(html)
	assert.True(t, strings.HasPrefix(out, "<svg"))
	assert.Equal(t, 2, strings.Count(out, "<rect"))
	assert.Contains(t, out, "2024-02: 7")
	assert.Contains(t, out, `aria-labelledby="orders-per-month-title orders-per-month-desc"`)
}

func TestBarsEmptySeries(t *testing.T) {
	html, err := Bars(0, 0, nil, nil, BarOpts{})
	require.NoError(t, err)
	assert.Contains(t, string(html), "No data")
	assert.NotContains(t, string(html), "<rect")
}

func TestBarsRejectsMismatchedLabels(t *testing.T) {
	_, err := Bars(400, 200, []float64{1}, nil, BarOpts{})
	assert.Error(t, err)
}

func TestBarsEscapesLabels(t *testing.T) {
	html, err := Bars(400, 200, []float64{1}, []string{"<w1>"}, BarOpts{})
	require.NoError(t, err)
	assert.NotContains(t, string(html), "<w1>")
	assert.Contains(t, string(html), "&lt;w1&gt;")
}

func TestNiceCeil(t *testing.T) {
	assert.Equal(t, 10.0, niceCeil(7))
	assert.Equal(t, 250.0, niceCeil(210))
	assert.Equal(t, 1.0, niceCeil(1))
}
