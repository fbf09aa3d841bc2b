package metrics

const (
	namespace = "kbench"

	// DefaultJob is the Pushgateway job kbench pushes under.
	DefaultJob = "kbench"

	labelScenario     = "scenario"
	labelDistribution = "distribution"
	labelPhase        = "phase"
	labelRunID        = "run_id"
)

// LatencyBuckets covers sub-second API round trips up to slow image pulls.
var LatencyBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120}
