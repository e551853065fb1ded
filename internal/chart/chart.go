// Package chart builds and draws the historical-plus-predicted price series.
package chart

import (
	"github.com/trogers1052/asset-predictor/internal/models"
	"gonum.org/v1/gonum/floats"
)

// Y-axis padding around the observed prices
const (
	LowerPad = 0.99
	UpperPad = 1.01
)

// Domain is the Y-axis range of a chart
type Domain struct {
	Min float64 `json:"yMin"`
	Max float64 `json:"yMax"`
}

// Series pairs the three opening prices and the predicted close with their
// fixed labels, oldest first.
func Series(in models.NormalizedInput, predicted float64) []models.ChartDataPoint {
	opens := in.Opens()
	return []models.ChartDataPoint{
		{Name: models.LabelDay1Open, Price: opens[0].InexactFloat64()},
		{Name: models.LabelDay2Open, Price: opens[1].InexactFloat64()},
		{Name: models.LabelDay3Open, Price: opens[2].InexactFloat64()},
		{Name: models.LabelPredictedClose, Price: predicted},
	}
}

// YDomain returns [min*0.99, max*1.01] over the points' prices.
// It returns false for an empty series.
func YDomain(points []models.ChartDataPoint) (Domain, bool) {
	if len(points) == 0 {
		return Domain{}, false
	}
	prices := prices(points)
	return Domain{
		Min: floats.Min(prices) * LowerPad,
		Max: floats.Max(prices) * UpperPad,
	}, true
}

func prices(points []models.ChartDataPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Price
	}
	return out
}
