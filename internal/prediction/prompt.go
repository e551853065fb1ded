package prediction

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/trogers1052/asset-predictor/internal/gemini"
	"github.com/trogers1052/asset-predictor/internal/models"
)

// PredictedPriceField is the only property of the structured reply
const PredictedPriceField = "predictedPrice"

const promptTemplate = `
You are a sophisticated financial asset pricing model ensemble. Your task is to predict the next closing price for a given asset.
You must base your prediction on the provided historical open prices (3 steps behind the closing price to be predicted) and supply/demand indicators.
- The supply indicator is the recent trading volume.
- The demand indicator is the strength of the latest jobs report.
- The pricing model should be an SVR model.

Analyze the following data and return ONLY a JSON object with the predicted price.

Asset Ticker: %s
Historical Open Prices:
- 3 days ago: %s
- 2 days ago: %s
- 1 day ago: %s

Supply/Demand Indicators:
- Trading Volume (Supply): %s
- Jobs Report Strength (Demand): %s

Based on this data, provide your prediction for the next closing price.
`

// BuildPrompt formats the instruction sent to the model. Fields appear as
// the user typed them, minus surrounding whitespace.
func BuildPrompt(in models.NormalizedInput) string {
	raw := in.Raw
	return fmt.Sprintf(promptTemplate,
		in.Ticker,
		strings.TrimSpace(raw.Day1Open),
		strings.TrimSpace(raw.Day2Open),
		strings.TrimSpace(raw.Day3Open),
		strings.TrimSpace(raw.Volume),
		in.JobsReport,
	)
}

// ResponseSchema declares the structured reply: an object with one
// required numeric property.
func ResponseSchema() *gemini.Schema {
	return &gemini.Schema{
		Type: gemini.TypeObject,
		Properties: map[string]*gemini.Schema{
			PredictedPriceField: {
				Type:        gemini.TypeNumber,
				Description: "The predicted closing price of the asset.",
			},
		},
		Required: []string{PredictedPriceField},
	}
}

// ParseReply extracts the predicted price from the model's text reply
func ParseReply(text string) (float64, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, newError(KindEmptyResponse, errors.New("received an empty response from the API"))
	}

	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, newError(KindParse, fmt.Errorf("failed to parse response as JSON: %w", err))
	}
	if err := dec.Decode(new(any)); err != io.EOF {
		return 0, newError(KindParse, errors.New("unexpected data after JSON value"))
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return 0, newError(KindInvalidFormat, fmt.Errorf("expected a JSON object, got %T", v))
	}
	num, ok := obj[PredictedPriceField].(json.Number)
	if !ok {
		return 0, newError(KindInvalidFormat, fmt.Errorf("'%s' must be a number", PredictedPriceField))
	}
	price, err := num.Float64()
	if err != nil {
		return 0, newError(KindInvalidFormat, fmt.Errorf("'%s' out of range: %w", PredictedPriceField, err))
	}
	return price, nil
}
