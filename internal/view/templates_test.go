package view

import (
	"bytes"
	"html/template"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backoffice-console/backoffice/internal/shared"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err, "templates should parse without error")
	assert.NotNil(t, engine)
}

func TestFuncMap(t *testing.T) {
	funcs := FuncMap()
	money := funcs["money"].(func(float64) string)
	assert.Equal(t, "$1,234.50", money(1234.5))

	decimal := funcs["decimal"].(func(float64) string)
	assert.Equal(t, "1000000", decimal(1e6))
	assert.Equal(t, "12.5", decimal(12.5))

	dateOnly := funcs["dateOnly"].(func(string) string)
	assert.Equal(t, "2024-03-01", dateOnly("2024-03-01T10:00:00.000Z"))
	assert.Equal(t, "", dateOnly(""))

	active := funcs["active"].(func(string, string) bool)
	assert.True(t, active("/products", "/products"))
	assert.True(t, active("/products/draft", "/products"))
	assert.False(t, active("/products", "/"))
	assert.True(t, active("/", "/"))

	dict := funcs["dict"].(func(...any) (map[string]any, error))
	m, err := dict("Name", "orders", "ID", "o1")
	require.NoError(t, err)
	assert.Equal(t, "o1", m["ID"])
	_, err = dict("odd")
	assert.Error(t, err)
}

func TestRenderFlashPartial(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, engine.RenderPartial(&buf, "partials/flash", TemplateData{
		Flash: &shared.FlashMessage{Kind: "success", Message: "Product <saved>."},
	}))
	assert.Contains(t, buf.String(), `class="flash flash-success"`)
	assert.Contains(t, buf.String(), "Product &lt;saved&gt;.")
}

func TestRenderStatusFailsWithoutPartialOutput(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	err = engine.RenderStatus(rr, http.StatusOK, "pages/missing.html", TemplateData{})
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestRenderChartPartial(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	var buf bytes.Buffer
	data := struct {
		Period string
		SVG    template.HTML
		Error  string
	}{Period: "weekly", SVG: template.HTML("<svg></svg>")}
	require.NoError(t, engine.RenderPartial(&buf, "partials/chart.html", data))
	assert.Contains(t, buf.String(), `data-period="weekly"`)
	assert.Contains(t, buf.String(), "<svg></svg>")
}
