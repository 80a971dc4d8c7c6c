package warmup

// Thresholds holds the §4.5 safety-evaluation percentages, defaulted by
// config.WarmupConfig and overridable per deployment.
type Thresholds struct {
	EmergencyBounceRate float64
	EmergencySpamRate   float64
	MaxBounceRate7d     float64
	MaxSpamRate7d       float64
}

// DefaultThresholds matches the §4.5 defaults: 5% / 0.1% / 2% / 0.03%.
var DefaultThresholds = Thresholds{
	EmergencyBounceRate: 0.05,
	EmergencySpamRate:   0.001,
	MaxBounceRate7d:     0.02,
	MaxSpamRate7d:       0.0003,
}

// verdict is the outcome of one safety evaluation, in strict priority
// order: emergency beats 7d-bounce beats 7d-spam beats safe.
type verdict int

const (
	verdictSafe verdict = iota
	verdictEmergency
	verdictBounce7d
	verdictSpam7d
)

// evaluate applies the four-branch priority chain over the 24h and 7d
// bounce/spam rates and returns which, if any, safety condition tripped.
func evaluate(t Thresholds, bounce24h, spam24h, bounce7d, spam7d float64) verdict {
	if bounce24h > t.EmergencyBounceRate || spam24h > t.EmergencySpamRate {
		return verdictEmergency
	}
	if bounce7d > t.MaxBounceRate7d {
		return verdictBounce7d
	}
	if spam7d > t.MaxSpamRate7d {
		return verdictSpam7d
	}
	return verdictSafe
}
