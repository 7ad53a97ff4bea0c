package stagedomain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MaxSegmentTime bounds a single segment time.
const MaxSegmentTime = 24 * time.Hour

// ParseSegmentTime accepts "m:ss.fff", "ss.fff" (seconds) or a bare integer of
// milliseconds. Fractions are truncated to milliseconds. Signed, zero,
// malformed and values above MaxSegmentTime are invalid.
func ParseSegmentTime(raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, ErrInvalidSegmentTime
	}

	var d time.Duration
	switch {
	case strings.Contains(s, ":"):
		minutes, rest, _ := strings.Cut(s, ":")
		m, err := parseUnits(minutes, int64(MaxSegmentTime/time.Minute))
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidSegmentTime, raw)
		}
		secs, err := parseSeconds(rest)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidSegmentTime, raw)
		}
		if secs >= time.Minute {
			return 0, fmt.Errorf("%w: %q seconds out of range", ErrInvalidSegmentTime, raw)
		}
		d = time.Duration(m)*time.Minute + secs
	case strings.Contains(s, "."):
		secs, err := parseSeconds(s)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidSegmentTime, raw)
		}
		d = secs
	default:
		ms, err := parseUnits(s, int64(MaxSegmentTime/time.Millisecond))
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidSegmentTime, raw)
		}
		d = time.Duration(ms) * time.Millisecond
	}

	if d <= 0 {
		return 0, fmt.Errorf("%w: %q must be positive", ErrInvalidSegmentTime, raw)
	}
	if d > MaxSegmentTime {
		return 0, fmt.Errorf("%w: %q exceeds %s", ErrInvalidSegmentTime, raw, MaxSegmentTime)
	}
	return d, nil
}

// parseUnits parses an unsigned decimal no greater than max.
func parseUnits(s string, max int64) (int64, error) {
	if s == "" || !allDigits(s) {
		return 0, ErrInvalidSegmentTime
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n > max {
		return 0, ErrInvalidSegmentTime
	}
	return n, nil
}

func allDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// parseSeconds parses "ss" or "ss.fff" without going through floats.
func parseSeconds(s string) (time.Duration, error) {
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		return 0, ErrInvalidSegmentTime
	}
	sec, err := parseUnits(whole, int64(MaxSegmentTime/time.Second))
	if err != nil {
		return 0, ErrInvalidSegmentTime
	}
	d := time.Duration(sec) * time.Second
	if !hasFrac {
		return d, nil
	}
	if frac == "" || len(frac) > 9 || !allDigits(frac) {
		return 0, ErrInvalidSegmentTime
	}
	if len(frac) > 3 {
		frac = frac[:3]
	}
	frac += strings.Repeat("0", 3-len(frac))
	ms, _ := strconv.Atoi(frac)
	return d + time.Duration(ms)*time.Millisecond, nil
}

// FormatSegmentTime renders d as "m:ss.fff".
func FormatSegmentTime(d time.Duration) string {
	d = d.Truncate(time.Millisecond)
	m := d / time.Minute
	s := (d % time.Minute) / time.Second
	ms := (d % time.Second) / time.Millisecond
	return fmt.Sprintf("%d:%02d.%03d", m, s, ms)
}
