package detector

import "math"

// Known money-laundering typologies.
const (
	TypologyLayering          = "layering"
	TypologyStructuring       = "structuring"
	TypologySmurfing          = "smurfing"
	TypologyIntegration       = "integration"
	TypologyRoundTripping     = "round_tripping"
	TypologyFunnelAccount     = "funnel_account"
	TypologyGeneralSuspicious = "general_suspicious"
)

// matchTypologies applies the deterministic rule table. Typologies may
// co-occur; the output order is fixed by the rule order.
func (d *Detector) matchTypologies(r Result) []string {
	typologies := make([]string, 0, 4)

	// Layering: rapid movement fed by many distinct sources.
	if r.Velocity.SpanDays < d.cfg.HighVelocityDays && r.Network.UniqueSources > d.cfg.LayeringSources {
		typologies = append(typologies, TypologyLayering)
	}

	if r.Structuring.Suspicious {
		typologies = append(typologies, TypologyStructuring)
	}

	// Smurfing: many distinct sources converging on one account.
	if r.Network.FanInHigh {
		typologies = append(typologies, TypologySmurfing)
	}

	// Integration: large volume placed in a short window.
	if r.Volume.Total > d.cfg.IntegrationAmount && r.Velocity.SpanDays < d.cfg.IntegrationDays {
		typologies = append(typologies, TypologyIntegration)
	}

	if r.Network.RoundTripDetected {
		typologies = append(typologies, TypologyRoundTripping)
	}

	if r.Network.FunnelDetected {
		typologies = append(typologies, TypologyFunnelAccount)
	}

	if len(typologies) == 0 && d.cfg.LabelGeneralOnMiss {
		typologies = append(typologies, TypologyGeneralSuspicious)
	}

	return typologies
}

// scoreRisk combines the weighted sub-scores (velocity 0-30, volume
// 0-25, structuring 0-25, network 0-20 under the default weights),
// divides by the configured divisor and caps the result.
func (d *Detector) scoreRisk(r Result) float64 {
	score := 0.0

	switch {
	case r.Velocity.SpanDays < d.cfg.HighVelocityDays:
		score += d.cfg.VelocityWeights.HighSpan
	case r.Velocity.SpanDays < d.cfg.MediumVelocityDays:
		score += d.cfg.VelocityWeights.MediumSpan
	case r.Velocity.RatePerDay > d.cfg.HighRatePerDay:
		score += d.cfg.VelocityWeights.HighRate
	}

	switch {
	case r.Volume.Total > d.cfg.VolumeWeights.Tier1Amount:
		score += d.cfg.VolumeWeights.Tier1Score
	case r.Volume.Total > d.cfg.VolumeWeights.Tier2Amount:
		score += d.cfg.VolumeWeights.Tier2Score
	case r.Volume.Total > d.cfg.VolumeWeights.Tier3Amount:
		score += d.cfg.VolumeWeights.Tier3Score
	}

	score += r.Structuring.Likelihood * d.cfg.StructuringWeight

	if r.Network.FanInHigh || r.Network.FanOutHigh {
		score += d.cfg.NetworkFanWeight
	}
	if r.Network.FunnelDetected {
		score += d.cfg.NetworkHubWeight
	}

	final := math.Round(score/d.cfg.ScoreDivisor*10) / 10
	if final > d.cfg.ScoreCap {
		final = d.cfg.ScoreCap
	}
	return final
}
