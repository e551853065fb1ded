package chart

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/trogers1052/asset-predictor/internal/models"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// ErrNoData is returned when there is nothing to draw
var ErrNoData = errors.New("chart: no data points")

const (
	backgroundColor = "#1A202C"
	gridColor       = "#4A5568"
	axisColor       = "#A0AEC0"
	lineColor       = "#2DD4BF"
	legendColor     = "#E2E8F0"

	marginTop    = 20.0
	marginRight  = 30.0
	marginBottom = 56.0
	marginLeft   = 78.0

	yTicks = 5
)

// Options sizes the rendered image
type Options struct {
	Width    int
	Height   int
	FontSize float64
}

// DefaultOptions returns the size used by the web page
func DefaultOptions() Options {
	return Options{Width: 720, Height: 360, FontSize: 12}
}

var (
	fontOnce sync.Once
	fontErr  error
	baseFont *truetype.Font
)

func loadFontFace(size float64) (font.Face, error) {
	fontOnce.Do(func() {
		baseFont, fontErr = truetype.Parse(goregular.TTF)
	})
	if fontErr != nil {
		return nil, fmt.Errorf("failed to parse chart font: %w", fontErr)
	}
	return truetype.NewFace(baseFont, &truetype.Options{
		Size:    size,
		Hinting: font.HintingNone,
	}), nil
}

// RenderPNG draws the series as a line chart with point markers and writes
// it as PNG. An empty series returns ErrNoData and writes nothing.
func RenderPNG(w io.Writer, points []models.ChartDataPoint, opts Options) error {
	dom, ok := YDomain(points)
	if !ok {
		return ErrNoData
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return fmt.Errorf("chart: invalid size %dx%d", opts.Width, opts.Height)
	}
	if opts.FontSize <= 0 {
		opts.FontSize = 12
	}

	face, err := loadFontFace(opts.FontSize)
	if err != nil {
		return err
	}

	width, height := float64(opts.Width), float64(opts.Height)
	plotW := width - marginLeft - marginRight
	plotH := height - marginTop - marginBottom

	span := dom.Max - dom.Min
	if span == 0 {
		span = 1
	}
	yOf := func(price float64) float64 {
		return marginTop + (dom.Max-price)/span*plotH
	}
	xOf := func(i int) float64 {
		if len(points) == 1 {
			return marginLeft + plotW/2
		}
		return marginLeft + float64(i)*plotW/float64(len(points)-1)
	}

	dc := gg.NewContext(opts.Width, opts.Height)
	dc.SetHexColor(backgroundColor)
	dc.Clear()
	dc.SetFontFace(face)

	// grid
	dc.SetHexColor(gridColor)
	dc.SetLineWidth(1)
	dc.SetDash(3, 3)
	for i := 0; i < yTicks; i++ {
		y := marginTop + float64(i)*plotH/float64(yTicks-1)
		dc.DrawLine(marginLeft, y, marginLeft+plotW, y)
		dc.Stroke()
	}
	for i := range points {
		dc.DrawLine(xOf(i), marginTop, xOf(i), marginTop+plotH)
		dc.Stroke()
	}
	dc.SetDash()

	// axes and labels
	dc.SetHexColor(axisColor)
	dc.DrawLine(marginLeft, marginTop, marginLeft, marginTop+plotH)
	dc.DrawLine(marginLeft, marginTop+plotH, marginLeft+plotW, marginTop+plotH)
	dc.Stroke()
	for i := 0; i < yTicks; i++ {
		tick := dom.Max - float64(i)*(dom.Max-dom.Min)/float64(yTicks-1)
		dc.DrawStringAnchored(FormatPrice(tick), marginLeft-8, yOf(tick), 1, 0.5)
	}
	for i, p := range points {
		dc.DrawStringAnchored(p.Name, xOf(i), marginTop+plotH+14, 0.5, 0.5)
	}

	// series
	dc.SetHexColor(lineColor)
	dc.SetLineWidth(2)
	for i, p := range points {
		if i == 0 {
			dc.MoveTo(xOf(i), yOf(p.Price))
		} else {
			dc.LineTo(xOf(i), yOf(p.Price))
		}
	}
	dc.Stroke()
	for i, p := range points {
		dc.DrawCircle(xOf(i), yOf(p.Price), 4)
		dc.Fill()
	}

	// legend
	legendY := height - 14
	dc.DrawLine(width/2-34, legendY, width/2-18, legendY)
	dc.Stroke()
	dc.SetHexColor(legendColor)
	dc.DrawStringAnchored("price", width/2-12, legendY, 0, 0.5)

	return dc.EncodePNG(w)
}

// FormatPrice renders a price the way the chart and headline show it
func FormatPrice(price float64) string {
	return fmt.Sprintf("$%.2f", price)
}
