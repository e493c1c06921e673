// Package cost implements spec §3/§4.1's token and dollar accounting:
// exact integer token sums, decimal cost accumulation rounded half-even to
// six fractional digits, a per-model pricing table, and cost-cap
// enforcement surfaced through Prometheus gauges/counters.
package cost

import "math"

// Pricing is the USD-per-1000-token rate for a model.
type Pricing struct {
	InputPer1K  float64
	OutputPer1K float64
}

// table is the known model price list. Prices are illustrative of each
// provider's published per-model rate card; unlisted models fall back to
// DefaultPricing.
var table = map[string]Pricing{
	"claude-opus-4-20250514":                     {InputPer1K: 0.015, OutputPer1K: 0.075},
	"claude-sonnet-4-20250514":                   {InputPer1K: 0.003, OutputPer1K: 0.015},
	"claude-haiku-4-20250514":                    {InputPer1K: 0.0008, OutputPer1K: 0.004},
	"us.anthropic.claude-3-sonnet-20240229-v1:0": {InputPer1K: 0.003, OutputPer1K: 0.015},
	"us.anthropic.claude-3-haiku-20240307-v1:0":  {InputPer1K: 0.00025, OutputPer1K: 0.00125},
}

// DefaultPricing is used for models absent from the table, matching the
// teacher's posture of never failing a cost computation outright.
var DefaultPricing = Pricing{InputPer1K: 0.003, OutputPer1K: 0.015}

// PriceFor looks up a model's pricing, falling back to DefaultPricing.
func PriceFor(model string) Pricing {
	if p, ok := table[model]; ok {
		return p
	}
	return DefaultPricing
}

// Estimate computes the USD cost of a call given token counts and a
// pricing rate, rounded half-even to 6 fractional digits per spec §4.1.
func Estimate(tokensIn, tokensOut int, p Pricing) float64 {
	raw := (float64(tokensIn)/1000.0)*p.InputPer1K + (float64(tokensOut)/1000.0)*p.OutputPer1K
	return RoundHalfEven(raw, 6)
}

// EstimateByModel is a convenience wrapper over Estimate using the model's
// looked-up pricing.
func EstimateByModel(tokensIn, tokensOut int, model string) float64 {
	return Estimate(tokensIn, tokensOut, PriceFor(model))
}

// RoundHalfEven rounds v to the given number of fractional digits using
// banker's rounding (round-half-to-even), as spec §4.1 requires for cost
// accumulation: math.Round alone rounds half away from zero and would
// systematically overstate accumulated cost.
func RoundHalfEven(v float64, digits int) float64 {
	shift := math.Pow10(digits)
	scaled := v * shift
	floor := math.Floor(scaled)
	diff := scaled - floor

	switch {
	case diff < 0.5:
		scaled = floor
	case diff > 0.5:
		scaled = floor + 1
	default:
		if math.Mod(floor, 2) == 0 {
			scaled = floor
		} else {
			scaled = floor + 1
		}
	}
	return scaled / shift
}
