package stagedomain

import (
	"fmt"
	"time"
)

// Competitor is one finals entry as seen by the lives engine.
type Competitor struct {
	EntryID    string
	Lives      int
	Eliminated bool
}

func (c Competitor) Active() bool { return !c.Eliminated }

// LivesEngine runs the finals: the slowest competitors of each segment lose a
// life, zero lives eliminates, and an admin may restore lives at fixed
// active-count checkpoints.
type LivesEngine struct {
	StartingLives   int
	ResetThresholds []int
}

// SegmentOutcome is the result of applying one segment.
type SegmentOutcome struct {
	Competitors []Competitor
	Slowest     time.Duration
	LostLife    []string
	Eliminated  []string
}

// Status summarises the finals.
type Status struct {
	Active   int
	Complete bool
	// Champion is set once exactly one competitor remains.
	Champion string
}

// ApplySegment takes a life from every active competitor tied on the slowest
// time. Every active competitor must have a time; eliminated competitors are
// ignored even if they have one. The input slice is not modified.
func (e LivesEngine) ApplySegment(competitors []Competitor, times map[string]time.Duration) (SegmentOutcome, error) {
	if e.Status(competitors).Complete {
		return SegmentOutcome{}, ErrStageCompleted
	}

	var slowest time.Duration
	for _, c := range competitors {
		if !c.Active() {
			continue
		}
		t, ok := times[c.EntryID]
		if !ok || t <= 0 {
			return SegmentOutcome{}, fmt.Errorf("%w: %s", ErrSegmentIncomplete, c.EntryID)
		}
		if t > slowest {
			slowest = t
		}
	}

	out := SegmentOutcome{
		Competitors: make([]Competitor, len(competitors)),
		Slowest:     slowest,
	}
	copy(out.Competitors, competitors)

	for i := range out.Competitors {
		c := &out.Competitors[i]
		if !c.Active() || times[c.EntryID] != slowest {
			continue
		}
		c.Lives--
		out.LostLife = append(out.LostLife, c.EntryID)
		if c.Lives <= 0 {
			c.Lives = 0
			c.Eliminated = true
			out.Eliminated = append(out.Eliminated, c.EntryID)
		}
	}
	return out, nil
}

// CanReset reports whether active is one of the reset thresholds.
func (e LivesEngine) CanReset(active int) bool {
	for _, t := range e.ResetThresholds {
		if t == active {
			return true
		}
	}
	return false
}

// ResetLives restores every active competitor to StartingLives. It is only
// allowed when the active count is a reset threshold, and is idempotent: the
// returned changed lists the entries whose lives actually moved.
func (e LivesEngine) ResetLives(competitors []Competitor) ([]Competitor, []string, error) {
	st := e.Status(competitors)
	if st.Complete {
		return nil, nil, ErrStageCompleted
	}
	if !e.CanReset(st.Active) {
		return nil, nil, fmt.Errorf("%w: %d active", ErrResetNotAllowed, st.Active)
	}

	out := make([]Competitor, len(competitors))
	copy(out, competitors)
	var changed []string
	for i := range out {
		if !out[i].Active() || out[i].Lives == e.StartingLives {
			continue
		}
		out[i].Lives = e.StartingLives
		changed = append(changed, out[i].EntryID)
	}
	return out, changed, nil
}

// Eliminate removes one competitor regardless of lives. Nobody else is touched.
func (e LivesEngine) Eliminate(competitors []Competitor, entryID string) ([]Competitor, error) {
	out := make([]Competitor, len(competitors))
	copy(out, competitors)
	for i := range out {
		if out[i].EntryID != entryID {
			continue
		}
		if out[i].Eliminated {
			return nil, ErrEntryEliminated
		}
		out[i].Eliminated = true
		return out, nil
	}
	return nil, ErrUnknownEntry
}

// Status counts active competitors. The finals are complete when at most one
// remains; the sole survivor is champion.
func (e LivesEngine) Status(competitors []Competitor) Status {
	var st Status
	var last string
	for _, c := range competitors {
		if c.Active() {
			st.Active++
			last = c.EntryID
		}
	}
	st.Complete = len(competitors) > 0 && st.Active <= 1
	if st.Active == 1 {
		st.Champion = last
	}
	return st
}
