package logic

// Validate classifies a completed pass's peak against the configured
// thresholds. It is pure and total: exactly one verdict for every peak
// and configuration. Both threshold bounds are inclusive, so a peak
// equal to either threshold is a pass.
//
// With SafetyOverride set, failures are downgraded to PASS_OVERRIDE:
// the failure is still reported on the wire but the interlock is left
// alone.
func Validate(peak int, cfg Config) Verdict {
	switch {
	case peak < cfg.CardThresholdLow:
		if cfg.SafetyOverride {
			return VerdictPassOverride
		}
		return VerdictFailEmpty
	case cfg.DualThreshold && peak > cfg.CardThresholdHigh:
		if cfg.SafetyOverride {
			return VerdictPassOverride
		}
		return VerdictFailDouble
	default:
		return VerdictPass
	}
}
