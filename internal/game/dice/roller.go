package dice

import "go.uber.org/zap"

// resolution is the granularity of Float and Chance.
const resolution = 1_000_000

// Roller wraps a Source and logger. Chance checks are logged at debug level
// with their label, probability, and outcome.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that draws from src and logs to logger.
//
// Precondition: src must be non-nil. A nil logger is replaced by zap.NewNop().
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Roller{src: src, logger: logger}
}

// Intn returns a value in [0, n), or 0 when n <= 0.
func (r *Roller) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return r.src.Intn(n)
}

// Float returns a value in [0, 1).
func (r *Roller) Float() float64 {
	return float64(r.src.Intn(resolution)) / resolution
}

// Chance reports whether an event with probability p happens.
//
// Postcondition: Always true when p >= 1 and always false when p <= 0;
// no value is drawn in either case.
func (r *Roller) Chance(p float64, label string) bool {
	if p >= 1 {
		return true
	}
	if p <= 0 {
		return false
	}
	roll := r.Float()
	hit := roll < p
	r.logger.Debug("chance roll",
		zap.String("label", label),
		zap.Float64("p", p),
		zap.Float64("roll", roll),
		zap.Bool("hit", hit),
	)
	return hit
}

// Pick returns a uniformly chosen index into a collection of length n, or -1 when n <= 0.
func (r *Roller) Pick(n int) int {
	if n <= 0 {
		return -1
	}
	return r.src.Intn(n)
}
