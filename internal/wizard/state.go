// Package wizard drives the package creation flow: a pure reducer over State
// plus a Session that serializes access and talks to the repository.
package wizard

import (
	"errors"
	"fmt"
	"time"

	"travel_wizard/internal/domain"
	"travel_wizard/internal/rules"
)

var (
	ErrValidationFailed = errors.New("validation failed")
	ErrAtFirstStep      = errors.New("already at the first step")
	ErrAtReview         = errors.New("review is the last step; publish to finish")
	ErrUnknownStep      = errors.New("step is not part of this wizard")
	ErrNotAtReview      = errors.New("publish is only available on the review step")
	ErrSaveInProgress   = errors.New("a save is already in progress")
	ErrSessionReset     = errors.New("session was reset during save")
)

// StepError reports the step whose validation blocked a move.
type StepError struct {
	Step   domain.Step
	Errors rules.ValidationErrors
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %d invalid field(s)", e.Step, len(e.Errors))
}

func (e *StepError) Unwrap() error { return ErrValidationFailed }

type SaveStatus string

const (
	SaveUnsaved   SaveStatus = "unsaved"
	SaveSaving    SaveStatus = "saving"
	SaveSaved     SaveStatus = "saved"
	SaveError     SaveStatus = "error"
	SavePublished SaveStatus = "published"
)

// State is everything the wizard knows about one authoring session.
type State struct {
	Draft       domain.Draft           `json:"draft"`
	Current     domain.Step            `json:"current"`
	Errors      rules.ValidationErrors `json:"errors"`
	Dirty       bool                   `json:"dirty"`
	Revision    int                    `json:"revision"`
	RecordID    string                 `json:"recordId,omitempty"`
	LastSavedAt *time.Time             `json:"lastSavedAt,omitempty"`
	SaveStatus  SaveStatus             `json:"saveStatus"`
	Published   bool                   `json:"published"`
	LastError   string                 `json:"lastError,omitempty"`

	// Saved is the draft as last persisted; saves send only the difference.
	Saved domain.Draft `json:"saved,omitempty"`
}

func Initial() State {
	return State{
		Draft:      domain.Draft{},
		Current:    domain.StepPackageType,
		Errors:     rules.ValidationErrors{},
		SaveStatus: SaveUnsaved,
	}
}

func (s State) Type() (domain.PackageType, bool) { return s.Draft.Type() }

// Steps is the sequence available for the current draft.
func (s State) Steps() []domain.Step {
	_, ok := s.Type()
	return domain.StepSequence(ok)
}

func (s State) Index() int { return domain.IndexOf(s.Steps(), s.Current) }

// StepErrors validates step against the current draft without touching s.
func (s State) StepErrors(step domain.Step) rules.ValidationErrors {
	t, _ := s.Type()
	return rules.EvaluateStep(s.Draft, t, step)
}

// Completed is derived: a step is done once the wizard moved past it and it
// still validates. Publishing completes every step.
func (s State) Completed(step domain.Step) bool {
	if s.Published {
		return true
	}
	seq := s.Steps()
	i := domain.IndexOf(seq, step)
	if i < 0 || i >= domain.IndexOf(seq, s.Current) {
		return false
	}
	return s.StepErrors(step).Empty()
}

func (s State) IsValid() bool { return s.StepErrors(s.Current).Empty() }
