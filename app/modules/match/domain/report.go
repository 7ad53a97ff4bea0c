package matchdomain

import (
	"slices"
	"time"
)

// MaxValues bounds the number of values in one report.
const MaxValues = 16

// Values is one side's account of the result, e.g. games won {3, 1}.
type Values []int

// Equal is exact element-wise equality.
func (v Values) Equal(o Values) bool { return slices.Equal(v, o) }

func (v Values) Clone() Values {
	if v == nil {
		return nil
	}
	return slices.Clone(v)
}

// ValidateValues rejects a payload before anything is persisted.
func ValidateValues(v Values) error {
	if len(v) == 0 {
		return ErrEmptyValues
	}
	if len(v) > MaxValues {
		return ErrTooManyValues
	}
	for _, x := range v {
		if x < 0 {
			return ErrNegativeValue
		}
	}
	return nil
}

// Report is one side's current submission.
type Report struct {
	Side        Side      `json:"side"`
	Values      Values    `json:"values"`
	SubmittedBy string    `json:"submitted_by"`
	SubmittedAt time.Time `json:"submitted_at"`
}

func (r *Report) clone() *Report {
	if r == nil {
		return nil
	}
	c := *r
	c.Values = r.Values.Clone()
	return &c
}
