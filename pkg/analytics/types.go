package analytics

// TypeStat holds the observed share of one pile type.
type TypeStat struct {
	Type     string  `json:"type"`
	Count    int     `json:"count"`
	Share    float64 `json:"share"`
	Expected float64 `json:"expected_share"`
}

// Distribution summarizes a sample of lengths in meters.
type Distribution struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
}

// GroupStat holds per-group diagnostics.
type GroupStat struct {
	ID        int     `json:"id"`
	Slope     float64 `json:"slope"`
	Spacing   float64 `json:"spacing"`
	TopSpread float64 `json:"top_spread"`
	Relaxed   int     `json:"relaxed"`
}
