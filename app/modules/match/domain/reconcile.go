package matchdomain

// State of the dual-report protocol.
type State string

const (
	StateNoReports   State = "no_reports"
	StateOneReported State = "one_reported"
	StateAgreed      State = "agreed"
	StateDisputed    State = "disputed"
)

// Snapshot is the reconciliation-relevant part of a match.
type Snapshot struct {
	Side1     *Report
	Side2     *Report
	Completed bool
	Canonical Values
}

// ReportFor returns the current report of side, or nil.
func (s Snapshot) ReportFor(side Side) *Report {
	switch side {
	case SideOne:
		return s.Side1
	case SideTwo:
		return s.Side2
	default:
		return nil
	}
}

func (s *Snapshot) set(r *Report) {
	switch r.Side {
	case SideOne:
		s.Side1 = r
	case SideTwo:
		s.Side2 = r
	}
}

// State derives the protocol state from the stored reports.
func (s Snapshot) State() State {
	switch {
	case s.Completed:
		return StateAgreed
	case s.Side1 != nil && s.Side2 != nil:
		return StateDisputed
	case s.Side1 != nil || s.Side2 != nil:
		return StateOneReported
	default:
		return StateNoReports
	}
}

// Decision is the outcome of folding one report into a snapshot.
type Decision struct {
	Next  Snapshot
	State State
	// Changed is false for an identical re-report; nothing needs persisting.
	Changed bool
	// Superseded is the side's previous report, if it had one.
	Superseded *Report
}

// Reconcile folds report into prior. It never mutates prior.
//
// A side re-reporting can only change its own report, so agreement always
// needs both sides. A completed match accepts no further reports.
func Reconcile(prior Snapshot, report Report) (Decision, error) {
	if !report.Side.Valid() {
		return Decision{}, ErrInvalidSide
	}
	if err := ValidateValues(report.Values); err != nil {
		return Decision{}, err
	}
	if prior.Completed {
		return Decision{}, ErrMatchCompleted
	}

	existing := prior.ReportFor(report.Side)
	if existing != nil && existing.Values.Equal(report.Values) {
		return Decision{Next: prior, State: prior.State(), Changed: false}, nil
	}

	next := Snapshot{
		Side1: prior.Side1.clone(),
		Side2: prior.Side2.clone(),
	}
	incoming := report
	incoming.Values = report.Values.Clone()
	next.set(&incoming)

	other := next.ReportFor(report.Side.Other())
	if other != nil && other.Values.Equal(incoming.Values) {
		next.Completed = true
		next.Canonical = incoming.Values.Clone()
	}

	return Decision{
		Next:       next,
		State:      next.State(),
		Changed:    true,
		Superseded: existing.clone(),
	}, nil
}
