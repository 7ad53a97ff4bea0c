package stagedomain

// Kind selects the ranking and elimination rule of a stage.
type Kind string

const (
	KindQualification Kind = "qualification"
	KindSuddenDeath   Kind = "sudden_death"
	KindRevival       Kind = "revival"
	KindFinals        Kind = "finals"
)

func (k Kind) Valid() bool {
	switch k {
	case KindQualification, KindSuddenDeath, KindRevival, KindFinals:
		return true
	}
	return false
}

// UsesLives reports whether the stage is decided by the lives engine.
func (k Kind) UsesLives() bool { return k == KindFinals }

// ValidateSegments checks a stage's required segment list.
func ValidateSegments(segments []string) error {
	if len(segments) == 0 {
		return ErrNoSegments
	}
	seen := make(map[string]struct{}, len(segments))
	for _, s := range segments {
		if s == "" {
			return ErrUnknownSegment
		}
		if _, dup := seen[s]; dup {
			return ErrDuplicateSegment
		}
		seen[s] = struct{}{}
	}
	return nil
}

// HasSegment reports whether segment is one of segments.
func HasSegment(segments []string, segment string) bool {
	for _, s := range segments {
		if s == segment {
			return true
		}
	}
	return false
}
