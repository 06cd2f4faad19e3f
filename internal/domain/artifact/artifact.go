// Package artifact defines the durable results record a run leaves behind.
// Artifacts are the system of record once a run is evicted from the
// active registry and must stay queryable long after.
package artifact

// ScoreBreakdown is the scored outcome of a completed run.
type ScoreBreakdown struct {
	Base              float64 `json:"base"`
	SpeedBonus        float64 `json:"speed_bonus"`
	EfficiencyPenalty float64 `json:"efficiency_penalty"`
	Total             float64 `json:"total"`
}

// Fix is one applied fix recorded in the results artifact.
type Fix struct {
	File       string  `json:"file"`
	BugType    string  `json:"bug_type"`
	Line       int     `json:"line"`
	Status     string  `json:"status"`
	Confidence float64 `json:"confidence"`
	CommitSHA  *string `json:"commit_sha"`
}

// CIEntry is one line of the CI timeline in the results artifact.
type CIEntry struct {
	Iteration int    `json:"iteration"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Results is the durable record written when a run concludes.
type Results struct {
	RunID         string         `json:"run_id"`
	FinalStatus   string         `json:"final_status"`
	Score         ScoreBreakdown `json:"score"`
	Fixes         []Fix          `json:"fixes"`
	CILog         []CIEntry      `json:"ci_log"`
	TotalTimeSecs float64        `json:"total_time_secs"`
}

// Score computation constants.
const (
	scoreBase                = 100
	speedBonus               = 10
	speedThresholdSecs       = 300
	efficiencyPenaltyPerUnit = 2
	freeCommits              = 20
)

// ComputeScore applies the scoring formula: base 100, a 10 point speed
// bonus strictly under the 300s threshold, 2 points off per commit past
// the first 20, total clamped at zero.
func ComputeScore(totalTimeSecs float64, commits int) ScoreBreakdown {
	b := ScoreBreakdown{Base: scoreBase}
	if totalTimeSecs < speedThresholdSecs {
		b.SpeedBonus = speedBonus
	}
	if commits > freeCommits {
		b.EfficiencyPenalty = float64(efficiencyPenaltyPerUnit * (commits - freeCommits))
	}
	b.Total = b.Base + b.SpeedBonus - b.EfficiencyPenalty
	if b.Total < 0 {
		b.Total = 0
	}
	return b
}
