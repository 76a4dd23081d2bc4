package trace

// NodeComplexityThreshold mirrors the router's split: arrivals above it
// land on the primary node.
const NodeComplexityThreshold = 70.0

// TraceSummary aggregates statistics from a TraceRecord.
type TraceSummary struct {
	TickCount      int
	ArrivalCount   int
	MeanComplexity float64
	PrimaryCount   int // arrivals with complexity > NodeComplexityThreshold
	EdgeCount      int
	BusiestTick    int64
}

// Summarize computes aggregate statistics from a TraceRecord.
// Safe for nil or empty records (returns zero-value fields).
func Summarize(rec *TraceRecord) *TraceSummary {
	summary := &TraceSummary{}
	if rec == nil {
		return summary
	}

	summary.TickCount = len(rec.Ticks)
	busiest := -1
	total := 0.0
	for _, t := range rec.Ticks {
		if len(t.Arrivals) > busiest {
			busiest = len(t.Arrivals)
			summary.BusiestTick = t.Tick
		}
		for _, a := range t.Arrivals {
			summary.ArrivalCount++
			total += a.Complexity
			if a.Complexity > NodeComplexityThreshold {
				summary.PrimaryCount++
			} else {
				summary.EdgeCount++
			}
		}
	}
	if summary.ArrivalCount > 0 {
		summary.MeanComplexity = total / float64(summary.ArrivalCount)
	}
	return summary
}
