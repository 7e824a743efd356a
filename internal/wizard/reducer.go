package wizard

import (
	"time"

	"travel_wizard/internal/domain"
	"travel_wizard/internal/rules"
)

// Action is one state transition. Reduce never mutates the state it receives.
type Action interface {
	Name() string
	apply(State) (State, error)
}

func Reduce(s State, a Action) (State, error) { return a.apply(s) }

// UpdateFormData merges a partial draft sent by a step.
type UpdateFormData struct{ Partial domain.Draft }

func (UpdateFormData) Name() string { return "update" }

func (a UpdateFormData) apply(s State) (State, error) {
	s.Draft = s.Draft.Merge(a.Partial)
	s.Dirty = true
	s.Revision++
	if s.SaveStatus != SaveSaving {
		s.SaveStatus = SaveUnsaved
	}
	if s.Index() < 0 {
		s.Current = domain.StepPackageType
		s.Errors = rules.ValidationErrors{}
	}
	return s, nil
}

type Next struct{}

func (Next) Name() string { return "next" }

func (Next) apply(s State) (State, error) {
	if s.Current == domain.StepReview {
		return s, ErrAtReview
	}
	errs := s.StepErrors(s.Current)
	s.Errors = errs
	if !errs.Empty() {
		return s, &StepError{Step: s.Current, Errors: errs}
	}
	seq := s.Steps()
	i := domain.IndexOf(seq, s.Current)
	if i < 0 || i+1 >= len(seq) {
		return s, ErrUnknownStep
	}
	s.Current = seq[i+1]
	s.Errors = rules.ValidationErrors{}
	return s, nil
}

type Previous struct{}

func (Previous) Name() string { return "previous" }

func (Previous) apply(s State) (State, error) {
	seq := s.Steps()
	i := domain.IndexOf(seq, s.Current)
	if i <= 0 {
		return s, ErrAtFirstStep
	}
	s.Current = seq[i-1]
	s.Errors = rules.ValidationErrors{}
	return s, nil
}

// GoToStep jumps to Target. Moving forward requires every step between the
// current one and the target to validate.
type GoToStep struct{ Target domain.Step }

func (GoToStep) Name() string { return "goto" }

func (a GoToStep) apply(s State) (State, error) {
	seq := s.Steps()
	from := domain.IndexOf(seq, s.Current)
	to := domain.IndexOf(seq, a.Target)
	if to < 0 {
		return s, ErrUnknownStep
	}
	for k := from; k < to; k++ {
		if errs := s.StepErrors(seq[k]); !errs.Empty() {
			s.Errors = errs
			return s, &StepError{Step: seq[k], Errors: errs}
		}
	}
	if to != from {
		s.Current = a.Target
		s.Errors = rules.ValidationErrors{}
	}
	return s, nil
}

// Reset starts over with an empty draft.
type Reset struct{}

func (Reset) Name() string { return "reset" }

func (Reset) apply(State) (State, error) { return Initial(), nil }

// Validate refreshes the error map of the current step.
type Validate struct{}

func (Validate) Name() string { return "validate" }

func (Validate) apply(s State) (State, error) {
	s.Errors = s.StepErrors(s.Current)
	return s, nil
}

// validateAll runs before publishing.
type validateAll struct{}

func (validateAll) Name() string { return "validate_all" }

func (validateAll) apply(s State) (State, error) {
	t, _ := s.Type()
	errs := rules.Evaluate(s.Draft, t)
	s.Errors = errs
	if !errs.Empty() {
		return s, &StepError{Step: firstFailingStep(s, errs), Errors: errs}
	}
	return s, nil
}

func firstFailingStep(s State, errs rules.ValidationErrors) domain.Step {
	for _, st := range s.Steps() {
		for _, f := range domain.FieldsForStep(st) {
			if _, bad := errs[f]; bad {
				return st
			}
		}
	}
	return s.Current
}

type saveStarted struct{}

func (saveStarted) Name() string { return "save_started" }

func (saveStarted) apply(s State) (State, error) {
	s.SaveStatus = SaveSaving
	s.LastError = ""
	return s, nil
}

type saveSucceeded struct {
	record   domain.PackageRecord
	revision int
	saved    domain.Draft
	at       time.Time
	publish  bool
}

func (saveSucceeded) Name() string { return "save_succeeded" }

func (a saveSucceeded) apply(s State) (State, error) {
	s.RecordID = a.record.ID
	at := a.at
	s.LastSavedAt = &at
	s.Saved = a.saved
	s.LastError = ""
	if a.publish {
		s.Published = true
	}
	if a.revision != s.Revision {
		// edited while the save was in flight
		s.SaveStatus = SaveUnsaved
		return s, nil
	}
	s.Dirty = false
	s.SaveStatus = SaveSaved
	if a.publish {
		s.SaveStatus = SavePublished
	}
	return s, nil
}

type saveFailed struct{ err error }

func (saveFailed) Name() string { return "save_failed" }

func (a saveFailed) apply(s State) (State, error) {
	s.SaveStatus = SaveError
	s.LastError = a.err.Error()
	return s, nil
}
