package stagequeue

import "time"

// RecalculateStageArgs asks for one recalculation of a stage. Window is the end
// of the debounce window the request fell into; jobs with equal args are
// unique, so every time change inside one window shares a single job.
type RecalculateStageArgs struct {
	StageKey string    `json:"stage_key"`
	Window   time.Time `json:"window"`
}

// Kind returns the job type identifier for River.
func (RecalculateStageArgs) Kind() string { return "stage_recalculate" }

// debounceWindow returns the end of the window containing now.
func debounceWindow(now time.Time, period time.Duration) time.Time {
	if period <= 0 {
		return now.UTC()
	}
	return now.UTC().Truncate(period).Add(period)
}
