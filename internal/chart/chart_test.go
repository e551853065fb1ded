package chart

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/asset-predictor/internal/models"
)

func sampleSeries(t *testing.T) []models.ChartDataPoint {
	t.Helper()
	in, err := models.DefaultPredictionInput().Normalize()
	require.NoError(t, err)
	return Series(in, 178.42)
}

func TestSeries(t *testing.T) {
	points := sampleSeries(t)

	assert.Equal(t, []models.ChartDataPoint{
		{Name: "Day 1 Open", Price: 175.50},
		{Name: "Day 2 Open", Price: 176.20},
		{Name: "Day 3 Open", Price: 177.10},
		{Name: "Predicted Close", Price: 178.42},
	}, points)
}

func TestYDomain(t *testing.T) {
	t.Run("pads observed range by one percent", func(t *testing.T) {
		dom, ok := YDomain(sampleSeries(t))
		require.True(t, ok)
		assert.InDelta(t, 175.50*0.99, dom.Min, 1e-9)
		assert.InDelta(t, 178.42*1.01, dom.Max, 1e-9)
	})

	t.Run("order of points does not matter", func(t *testing.T) {
		dom, ok := YDomain([]models.ChartDataPoint{
			{Name: "a", Price: 12}, {Name: "b", Price: 3}, {Name: "c", Price: 7}, {Name: "d", Price: 9},
		})
		require.True(t, ok)
		assert.InDelta(t, 3*0.99, dom.Min, 1e-9)
		assert.InDelta(t, 12*1.01, dom.Max, 1e-9)
	})

	t.Run("empty series has no domain", func(t *testing.T) {
		_, ok := YDomain(nil)
		assert.False(t, ok)
	})
}

func TestRenderPNG(t *testing.T) {
	t.Run("empty series draws nothing", func(t *testing.T) {
		var buf bytes.Buffer
		err := RenderPNG(&buf, nil, DefaultOptions())
		assert.ErrorIs(t, err, ErrNoData)
		assert.Zero(t, buf.Len())
	})

	t.Run("writes a PNG of the requested size", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, RenderPNG(&buf, sampleSeries(t), Options{Width: 400, Height: 200}))

		img, err := png.Decode(&buf)
		require.NoError(t, err)
		assert.Equal(t, 400, img.Bounds().Dx())
		assert.Equal(t, 200, img.Bounds().Dy())
	})

	t.Run("flat series still renders", func(t *testing.T) {
		var buf bytes.Buffer
		points := []models.ChartDataPoint{{Name: "a", Price: 0}, {Name: "b", Price: 0}}
		assert.NoError(t, RenderPNG(&buf, points, DefaultOptions()))
	})
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "$178.42", FormatPrice(178.42))
	assert.Equal(t, "$175.50", FormatPrice(175.5))
}
