package prediction

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/trogers1052/asset-predictor/internal/gemini"
	"github.com/trogers1052/asset-predictor/internal/models"
)

// Estimate is a predicted closing price and where it came from
type Estimate struct {
	Price  float64
	Model  string
	Cached bool
}

// Predictor turns validated input into a predicted closing price
type Predictor interface {
	Predict(ctx context.Context, in models.NormalizedInput) (Estimate, error)
}

// Generator is the part of the Gemini client the predictor uses
type Generator interface {
	GenerateContent(ctx context.Context, req *gemini.GenerateContentRequest) (*gemini.GenerateContentResponse, error)
	Model() string
}

// Client asks a hosted model for a predicted closing price
type Client struct {
	gen         Generator
	temperature float64
	log         zerolog.Logger
}

// NewClient creates a new prediction client
func NewClient(gen Generator, temperature float64, log zerolog.Logger) *Client {
	return &Client{
		gen:         gen,
		temperature: temperature,
		log:         log.With().Str("component", "prediction_client").Logger(),
	}
}

// Predict sends one prompt and validates the structured reply.
// Every failure is returned as *Error.
func (c *Client) Predict(ctx context.Context, in models.NormalizedInput) (Estimate, error) {
	temp := c.temperature
	req := &gemini.GenerateContentRequest{
		Contents: []gemini.Content{{
			Role:  "user",
			Parts: []gemini.Part{{Text: BuildPrompt(in)}},
		}},
		GenerationConfig: &gemini.GenerationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   ResponseSchema(),
			Temperature:      &temp,
		},
	}

	resp, err := c.gen.GenerateContent(ctx, req)
	if err != nil {
		return Estimate{}, c.fail(in, newError(KindTransport, err))
	}

	price, err := ParseReply(resp.Text())
	if err != nil {
		var perr *Error
		if !errors.As(err, &perr) {
			perr = newError(KindParse, err)
		}
		return Estimate{}, c.fail(in, perr)
	}

	return Estimate{Price: price, Model: c.gen.Model()}, nil
}

func (c *Client) fail(in models.NormalizedInput, err *Error) error {
	c.log.Error().
		Err(err.Err).
		Str("kind", err.Kind.String()).
		Str("ticker", in.Ticker).
		Msg("error calling Gemini API")
	return err
}
