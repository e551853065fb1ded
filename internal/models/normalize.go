package models

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const maxTickerLength = 16

// maxPrice bounds prices to the integer digits of a NUMERIC(20,6) column
var maxPrice = decimal.New(1, 14)

var maxVolume = decimal.NewFromInt(math.MaxInt64)

var volumeMultipliers = map[byte]decimal.Decimal{
	'K': decimal.NewFromInt(1_000),
	'M': decimal.NewFromInt(1_000_000),
	'B': decimal.NewFromInt(1_000_000_000),
	'T': decimal.NewFromInt(1_000_000_000_000),
}

// fieldOrder is the order validation messages are reported in
var fieldOrder = []string{FieldTicker, FieldDay1Open, FieldDay2Open, FieldDay3Open, FieldVolume, FieldJobsReport}

// IsField reports whether name is a PredictionInput field name
func IsField(name string) bool {
	return slices.Contains(fieldOrder, name)
}

// ValidationError reports every invalid field of a PredictionInput
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, name := range fieldOrder {
		if msg, ok := e.Fields[name]; ok {
			parts = append(parts, name+": "+msg)
		}
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// NormalizedInput is a PredictionInput whose numeric fields have been parsed
type NormalizedInput struct {
	Raw        PredictionInput
	Ticker     string
	Day1Open   decimal.Decimal
	Day2Open   decimal.Decimal
	Day3Open   decimal.Decimal
	Volume     int64
	JobsReport JobsReport
}

// Opens returns the three opening prices oldest first
func (n NormalizedInput) Opens() [3]decimal.Decimal {
	return [3]decimal.Decimal{n.Day1Open, n.Day2Open, n.Day3Open}
}

// Normalize validates the input and parses its numeric fields.
// It returns a *ValidationError listing every bad field.
func (in PredictionInput) Normalize() (NormalizedInput, error) {
	out := NormalizedInput{Raw: in}
	bad := make(map[string]string)

	ticker := strings.TrimSpace(in.Ticker)
	switch {
	case ticker == "":
		bad[FieldTicker] = "is required"
	case utf8.RuneCountInString(ticker) > maxTickerLength:
		bad[FieldTicker] = fmt.Sprintf("must be at most %d characters", maxTickerLength)
	case strings.IndexFunc(ticker, unicode.IsControl) >= 0:
		bad[FieldTicker] = "must be a single line"
	default:
		out.Ticker = ticker
	}

	opens := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{FieldDay1Open, in.Day1Open, &out.Day1Open},
		{FieldDay2Open, in.Day2Open, &out.Day2Open},
		{FieldDay3Open, in.Day3Open, &out.Day3Open},
	}
	for _, o := range opens {
		price, err := ParsePrice(o.raw)
		if err != nil {
			bad[o.name] = err.Error()
			continue
		}
		*o.dst = price
	}

	volume, err := ParseVolume(in.Volume)
	if err != nil {
		bad[FieldVolume] = err.Error()
	} else {
		out.Volume = volume
	}

	report, err := ParseJobsReport(string(in.JobsReport))
	if err != nil {
		bad[FieldJobsReport] = err.Error()
	} else {
		out.JobsReport = report
	}

	if len(bad) > 0 {
		return NormalizedInput{}, &ValidationError{Fields: bad}
	}
	return out, nil
}

// ParsePrice parses a positive price. A leading "$" and thousands
// separators are accepted.
func ParsePrice(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero, fmt.Errorf("is required")
	}
	price, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("must be a number")
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("must be greater than zero")
	}
	if price.GreaterThanOrEqual(maxPrice) {
		return decimal.Zero, fmt.Errorf("is too large")
	}
	return price, nil
}

// ParseVolume parses a share count such as "25.5M", "85,000,000" or "1.2b"
func ParseVolume(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, fmt.Errorf("is required")
	}

	multiplier := decimal.NewFromInt(1)
	last := unicode.ToUpper(rune(s[len(s)-1]))
	if last < unicode.MaxASCII {
		if m, ok := volumeMultipliers[byte(last)]; ok {
			multiplier = m
			s = strings.TrimSpace(s[:len(s)-1])
		}
	}

	n, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("must be a number, optionally suffixed with K, M, B or T")
	}
	if n.IsNegative() {
		return 0, fmt.Errorf("must not be negative")
	}
	total := n.Mul(multiplier).Round(0)
	if total.GreaterThan(maxVolume) {
		return 0, fmt.Errorf("is too large")
	}
	return total.IntPart(), nil
}

// ParseJobsReport matches a jobs report value case-insensitively
func ParseJobsReport(raw string) (JobsReport, error) {
	s := strings.TrimSpace(raw)
	for _, r := range JobsReports {
		if strings.EqualFold(s, string(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("must be one of Strong, Neutral, Weak")
}
