package oracle

import (
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/oraclewatch/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Detector computes the relative spread between the samples of a PriceSet and
// flags whether it exceeds a threshold. It holds no state between calls;
// detecting twice on the same set yields an identical report.
type Detector struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewDetector creates a Detector.
func NewDetector(logger *slog.Logger) *Detector {
	return &Detector{
		logger: logger.With(slog.String("component", "deviation_detector")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Detect compares the samples in set and returns a DeviationReport with
// deviation = (max - min) / min * 100, computed in decimal arithmetic.
// Samples with a non-positive price are invalid input: they are dropped
// before comparison, recorded in DroppedNetworks, and warned about — not a
// fatal error. With fewer than two valid samples no comparison is possible;
// the report carries zero deviation and does not trigger, which is a
// non-event rather than a failure.
func (d *Detector) Detect(set domain.PriceSet, thresholdPercent decimal.Decimal) domain.DeviationReport {
	report := domain.DeviationReport{
		Asset:            set.Asset,
		DeviationPercent: decimal.Zero,
		Prices:           set,
		EvaluatedAt:      d.now(),
	}

	valid := make([]decimal.Decimal, 0, set.Size())
	for _, network := range set.Networks() {
		sample := set.Samples[network]
		if sample.Price.Sign() <= 0 {
			report.DroppedNetworks = append(report.DroppedNetworks, network)
			d.logger.Warn("dropping non-positive price sample",
				slog.String("network", network),
				slog.String("asset", set.Asset),
				slog.String("price", sample.Price.String()),
			)
			continue
		}
		valid = append(valid, sample.Price)
	}

	if len(valid) < 2 {
		return report
	}

	min, max := valid[0], valid[0]
	for _, p := range valid[1:] {
		if p.LessThan(min) {
			min = p
		}
		if p.GreaterThan(max) {
			max = p
		}
	}

	report.DeviationPercent = max.Sub(min).Div(min).Mul(hundred)
	report.ExceedsThreshold = report.DeviationPercent.GreaterThan(thresholdPercent)
	return report
}
