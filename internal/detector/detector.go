// Package detector implements suspicious-activity pattern detection over
// one case's transactions: velocity, volume, structuring and network
// analysis, typology matching, and risk scoring.
package detector

import (
	"log/slog"
	"math"
	"time"

	"github.com/luminasar/luminasar/internal/model"
)

// VelocityRisk classifies how quickly money moved through the account.
type VelocityRisk string

// Velocity risk levels by elapsed time span.
const (
	VelocityHigh   VelocityRisk = "HIGH"
	VelocityMedium VelocityRisk = "MEDIUM"
	VelocityLow    VelocityRisk = "LOW"
)

// Config holds every detection threshold and scoring weight. All values
// are calibration decisions, so nothing here is hardcoded inside the
// algorithms; overrides come from application configuration.
type Config struct {
	// Structuring: CTR reporting threshold and the band below it.
	StructuringThreshold float64
	NearThresholdRatio   float64
	StructuringTrigger   float64

	// Velocity: span classification boundaries, in days.
	HighVelocityDays   int
	MediumVelocityDays int
	HighRatePerDay     float64

	// Volume: absolute and income-relative limits.
	TotalAmountLimit float64
	IncomeMultiple   float64

	// Network topology limits.
	FanInLimit      int
	FanOutLimit     int
	CentralityLimit float64

	// Typology rules.
	LayeringSources    int
	IntegrationAmount  float64
	IntegrationDays    int
	LabelGeneralOnMiss bool

	// Risk score weights and caps.
	VelocityWeights    VelocityWeights
	VolumeWeights      VolumeWeights
	StructuringWeight  float64
	NetworkFanWeight   float64
	NetworkHubWeight   float64
	ScoreDivisor       float64
	ScoreCap           float64
}

// VelocityWeights are the velocity contribution points (0-30 band).
type VelocityWeights struct {
	HighSpan   float64
	MediumSpan float64
	HighRate   float64
}

// VolumeWeights are the volume contribution points (0-25 band) with
// their amount boundaries.
type VolumeWeights struct {
	Tier1Amount float64
	Tier1Score  float64
	Tier2Amount float64
	Tier2Score  float64
	Tier3Amount float64
	Tier3Score  float64
}

// DefaultConfig returns the detection defaults: a ₹50,000 CTR threshold,
// the 90% near-threshold band, and the standard typology rule table.
func DefaultConfig() Config {
	return Config{
		StructuringThreshold: 50000,
		NearThresholdRatio:   0.90,
		StructuringTrigger:   0.30,

		HighVelocityDays:   7,
		MediumVelocityDays: 30,
		HighRatePerDay:     5,

		TotalAmountLimit: 10000000, // ₹1 crore
		IncomeMultiple:   10,

		FanInLimit:      15,
		FanOutLimit:     15,
		CentralityLimit: 0.5,

		LayeringSources:    5,
		IntegrationAmount:  5000000, // ₹50 lakh
		IntegrationDays:    14,
		LabelGeneralOnMiss: true,

		VelocityWeights: VelocityWeights{
			HighSpan:   30,
			MediumSpan: 15,
			HighRate:   10,
		},
		VolumeWeights: VolumeWeights{
			Tier1Amount: 10000000,
			Tier1Score:  25,
			Tier2Amount: 5000000,
			Tier2Score:  18,
			Tier3Amount: 1000000,
			Tier3Score:  10,
		},
		StructuringWeight: 25,
		NetworkFanWeight:  15,
		NetworkHubWeight:  5,
		ScoreDivisor:      10,
		ScoreCap:          10.0,
	}
}

// VelocityReport describes how fast the transaction set moved.
type VelocityReport struct {
	Risk       VelocityRisk
	SpanDays   int
	RatePerDay float64
}

// VolumeReport aggregates transaction amounts.
type VolumeReport struct {
	Total        float64
	Mean         float64
	Max          float64
	Count        int
	ExceedsLimit bool
}

// StructuringReport measures the density of amounts kept just below the
// reporting threshold.
type StructuringReport struct {
	NearThresholdCount int
	Likelihood         float64
	Suspicious         bool
}

// Result is the complete output of one detection run. It is a pure
// function of the input transaction set and customer profile.
type Result struct {
	Velocity    VelocityReport
	Volume      VolumeReport
	Structuring StructuringReport
	Network     NetworkReport
	Typologies  []string
	RiskScore   float64
}

// Detector runs all detection algorithms for one case.
type Detector struct {
	cfg Config
}

// New creates a detector with the given configuration.
func New(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// Detect runs every analysis and derives typologies and the aggregate
// risk score. An empty transaction set yields a zero-valued result with
// no typologies and a 0.0 score.
func (d *Detector) Detect(transactions []model.Transaction, customer model.Customer) Result {
	if len(transactions) == 0 {
		return Result{
			Velocity:   VelocityReport{Risk: VelocityLow},
			Typologies: []string{},
		}
	}

	result := Result{
		Velocity:    d.analyzeVelocity(transactions),
		Volume:      d.analyzeVolume(transactions, customer),
		Structuring: d.detectStructuring(transactions),
		Network:     d.analyzeNetwork(transactions),
	}

	result.Typologies = d.matchTypologies(result)
	result.RiskScore = d.scoreRisk(result)

	slog.Info("Pattern analysis complete",
		"risk_score", result.RiskScore,
		"typologies", result.Typologies,
		"transaction_count", len(transactions))

	return result
}

// analyzeVelocity measures elapsed span and transaction rate. The span
// is floored at one day for the rate so a single-day burst never divides
// by zero.
func (d *Detector) analyzeVelocity(transactions []model.Transaction) VelocityReport {
	minDate := transactions[0].Date
	maxDate := transactions[0].Date
	for _, txn := range transactions[1:] {
		if txn.Date.Before(minDate) {
			minDate = txn.Date
		}
		if txn.Date.After(maxDate) {
			maxDate = txn.Date
		}
	}

	spanDays := int(maxDate.Sub(minDate) / (24 * time.Hour))
	rateDays := spanDays
	if rateDays < 1 {
		rateDays = 1
	}
	rate := round2(float64(len(transactions)) / float64(rateDays))

	risk := VelocityLow
	switch {
	case spanDays < d.cfg.HighVelocityDays:
		risk = VelocityHigh
	case spanDays < d.cfg.MediumVelocityDays:
		risk = VelocityMedium
	}

	return VelocityReport{
		SpanDays:   spanDays,
		RatePerDay: rate,
		Risk:       risk,
	}
}

// analyzeVolume aggregates amounts and flags totals that exceed the
// absolute limit or dwarf the customer's stated income.
func (d *Detector) analyzeVolume(transactions []model.Transaction, customer model.Customer) VolumeReport {
	var total, maxAmount float64
	for _, txn := range transactions {
		total += txn.Amount
		if txn.Amount > maxAmount {
			maxAmount = txn.Amount
		}
	}
	mean := total / float64(len(transactions))

	exceeds := total > d.cfg.TotalAmountLimit
	if customer.StatedIncome > 0 && mean > d.cfg.IncomeMultiple*customer.StatedIncome {
		exceeds = true
	}

	return VolumeReport{
		Total:        round2(total),
		Mean:         round2(mean),
		Max:          round2(maxAmount),
		Count:        len(transactions),
		ExceedsLimit: exceeds,
	}
}

// detectStructuring finds amounts deliberately kept just below the
// reporting threshold. Suspicion requires the near-threshold fraction to
// strictly exceed the trigger.
func (d *Detector) detectStructuring(transactions []model.Transaction) StructuringReport {
	threshold := d.cfg.StructuringThreshold
	lower := threshold * d.cfg.NearThresholdRatio

	nearCount := 0
	for _, txn := range transactions {
		if txn.Amount >= lower && txn.Amount < threshold {
			nearCount++
		}
	}

	likelihood := float64(nearCount) / float64(len(transactions))

	return StructuringReport{
		NearThresholdCount: nearCount,
		Likelihood:         round3(likelihood),
		Suspicious:         likelihood > d.cfg.StructuringTrigger,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
