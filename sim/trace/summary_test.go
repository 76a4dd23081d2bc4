package trace

import "testing"

func TestSummarize_NilRecord_ZeroValues(t *testing.T) {
	// GIVEN no record
	// WHEN summarized
	summary := Summarize(nil)

	// THEN all counts are zero
	if summary.TickCount != 0 || summary.ArrivalCount != 0 {
		t.Errorf("expected zero counts, got %+v", summary)
	}
	if summary.MeanComplexity != 0 {
		t.Errorf("expected 0 mean complexity, got %f", summary.MeanComplexity)
	}
}

func TestSummarize_PopulatedRecord_CorrectCounts(t *testing.T) {
	// GIVEN a record with arrivals on both sides of the routing threshold
	rec := &TraceRecord{ID: "t", Ticks: []TickTrace{
		{Tick: 1, Arrivals: []Arrival{{ID: "a", Complexity: 20}, {ID: "b", Complexity: 90}}},
		{Tick: 2, Arrivals: []Arrival{{ID: "c", Complexity: 70}, {ID: "d", Complexity: 71}, {ID: "e", Complexity: 49}}},
		{Tick: 3},
	}}

	// WHEN summarized
	summary := Summarize(rec)

	// THEN counts match
	if summary.TickCount != 3 {
		t.Errorf("expected 3 ticks, got %d", summary.TickCount)
	}
	if summary.ArrivalCount != 5 {
		t.Errorf("expected 5 arrivals, got %d", summary.ArrivalCount)
	}
	// 70 is not above the threshold, so it counts as edge
	if summary.PrimaryCount != 2 || summary.EdgeCount != 3 {
		t.Errorf("expected primary=2 edge=3, got primary=%d edge=%d", summary.PrimaryCount, summary.EdgeCount)
	}
	if summary.BusiestTick != 2 {
		t.Errorf("expected busiest tick 2, got %d", summary.BusiestTick)
	}
	expectedMean := (20.0 + 90 + 70 + 71 + 49) / 5
	if summary.MeanComplexity < expectedMean-0.001 || summary.MeanComplexity > expectedMean+0.001 {
		t.Errorf("expected mean ~%.3f, got %.3f", expectedMean, summary.MeanComplexity)
	}
}
