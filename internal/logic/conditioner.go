package logic

// DefaultAlpha is the EMA smoothing factor. Lower is smoother but
// slower to follow a card edge; higher is more responsive but noisier.
const DefaultAlpha = 0.2

// Conditioner turns raw periodic sensor samples into a smoothed
// reading: optional scale reversal, then exponential smoothing
// filtered' = alpha*raw + (1-alpha)*filtered. Downstream logic only
// ever sees the truncated integer reading.
type Conditioner struct {
	alpha    float64
	filtered float64
}

// NewConditioner creates a conditioner with the given smoothing factor.
// Factors outside (0, 1] fall back to DefaultAlpha.
func NewConditioner(alpha float64) *Conditioner {
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultAlpha
	}
	return &Conditioner{alpha: alpha}
}

// Seed resets the filter to a fresh raw sample. Used at boot and on
// RESUME so a stale filtered value cannot retrigger the interlock.
func (c *Conditioner) Seed(raw int, reverse bool) {
	c.filtered = float64(applyReversal(raw, reverse))
}

// Condition feeds one raw sample through reversal and smoothing and
// returns the truncated integer reading.
func (c *Conditioner) Condition(raw int, reverse bool) int {
	v := float64(applyReversal(raw, reverse))
	c.filtered = c.alpha*v + (1-c.alpha)*c.filtered
	return int(c.filtered)
}

// Value returns the current reading without feeding a sample.
func (c *Conditioner) Value() int {
	return int(c.filtered)
}

func applyReversal(raw int, reverse bool) int {
	if reverse {
		return SensorMax - raw
	}
	return raw
}
