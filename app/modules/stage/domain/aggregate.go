package stagedomain

import "time"

// AggregateTotal sums the parsed times of the required segments. The total is
// only defined when every required segment parses; otherwise it returns
// (0, false) and never a partial sum.
func AggregateTotal(times map[string]string, required []string) (time.Duration, bool) {
	var total time.Duration
	for _, segment := range required {
		raw, ok := times[segment]
		if !ok {
			return 0, false
		}
		d, err := ParseSegmentTime(raw)
		if err != nil {
			return 0, false
		}
		total += d
	}
	return total, true
}

// ValidTimes returns the parsed times of the segments that parse, ignoring the rest.
func ValidTimes(times map[string]string, segments []string) map[string]time.Duration {
	out := make(map[string]time.Duration, len(segments))
	for _, segment := range segments {
		raw, ok := times[segment]
		if !ok {
			continue
		}
		if d, err := ParseSegmentTime(raw); err == nil {
			out[segment] = d
		}
	}
	return out
}
