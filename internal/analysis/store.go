package analysis

// Store holds the authoritative view of one job's pipeline progress: the
// ordered stage list and the optional final result.
//
// A Store is owned by exactly one viewing session and mutated only from that
// session's event-delivery path, so it needs no locking. It is a last-write-
// wins projection, not a validating state machine: stage transitions may
// arrive in any order and the most recent update per stage sticks.
type Store struct {
	stages []Stage
	result *Result
}

// NewStore creates a store with every catalog stage at pending and no result.
func NewStore() *Store {
	return &Store{stages: Catalog()}
}

// Apply routes an event to the matching reducer. Connectivity events carry no
// pipeline state and leave the store untouched.
func (s *Store) Apply(ev Event) {
	switch ev := ev.(type) {
	case StepUpdateEvent:
		s.ApplyStepUpdate(ev.StepID, ev.Status, ev.Detail)
	case ResultEvent:
		s.ApplyResult(ev.Result)
	}
}

// ApplyStepUpdate replaces the status (and detail, when provided) of the
// stage with the given identifier. An identifier outside the fixed catalog is
// a no-op: the event source is external and must not be able to corrupt the
// stage list.
func (s *Store) ApplyStepUpdate(stepID string, status StageStatus, detail string) {
	for i := range s.stages {
		if s.stages[i].ID != stepID {
			continue
		}
		s.stages[i].Status = status
		if detail != "" {
			s.stages[i].Detail = detail
		}
		return
	}
}

// ApplyResult sets the final result unconditionally. A second result
// overwrites the first in full; duplicate delivery is unexpected but must
// not crash the session.
func (s *Store) ApplyResult(result Result) {
	r := result
	s.result = &r
}

// IsComplete reports whether a result has arrived. This predicate alone
// gates the result-dependent views.
func (s *Store) IsComplete() bool {
	return s.result != nil
}

// Stages returns a copy of the ordered stage list.
func (s *Store) Stages() []Stage {
	out := make([]Stage, len(s.stages))
	copy(out, s.stages)
	return out
}

// Result returns a copy of the final result, or nil if none has arrived.
func (s *Store) Result() *Result {
	if s.result == nil {
		return nil
	}
	r := *s.result
	return &r
}
