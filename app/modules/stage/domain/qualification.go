package stagedomain

import (
	"math"
	"time"
)

// ScoreInput is one entry's valid segment times.
type ScoreInput struct {
	EntryID string
	Times   map[string]time.Duration
}

// ScoreQualification scores every input. For each segment, among the entries
// with a valid time for it, the fastest time earns maxPoints and the slowest
// minPoints with linear interpolation in between. A segment with a single
// distinct time awards maxPoints to everyone who ran it. Missing segments score
// zero. The entry's score is the floor of its summed segment points.
func ScoreQualification(inputs []ScoreInput, segments []string, maxPoints, minPoints int) map[string]int {
	sums := make(map[string]float64, len(inputs))
	for _, in := range inputs {
		sums[in.EntryID] = 0
	}

	for _, segment := range segments {
		fastest, slowest, found := segmentBounds(inputs, segment)
		if !found {
			continue
		}
		for _, in := range inputs {
			t, ok := in.Times[segment]
			if !ok {
				continue
			}
			sums[in.EntryID] += SegmentPoints(t, fastest, slowest, maxPoints, minPoints)
		}
	}

	scores := make(map[string]int, len(sums))
	for id, sum := range sums {
		scores[id] = int(math.Floor(sum))
	}
	return scores
}

// SegmentPoints interpolates t between fastest (maxPoints) and slowest (minPoints).
func SegmentPoints(t, fastest, slowest time.Duration, maxPoints, minPoints int) float64 {
	if slowest <= fastest {
		return float64(maxPoints)
	}
	spread := float64(slowest - fastest)
	behind := float64(t - fastest)
	return float64(maxPoints) - behind/spread*float64(maxPoints-minPoints)
}

func segmentBounds(inputs []ScoreInput, segment string) (fastest, slowest time.Duration, found bool) {
	for _, in := range inputs {
		t, ok := in.Times[segment]
		if !ok {
			continue
		}
		if !found || t < fastest {
			fastest = t
		}
		if !found || t > slowest {
			slowest = t
		}
		found = true
	}
	return fastest, slowest, found
}
