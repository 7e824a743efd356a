package wizard

import (
	"time"

	"travel_wizard/internal/domain"
	"travel_wizard/internal/rules"
)

type StepView struct {
	Tag         domain.Step `json:"tag"`
	Title       string      `json:"title"`
	IsCompleted bool        `json:"isCompleted"`
	IsCurrent   bool        `json:"isCurrent"`
}

// Snapshot is what a step component renders: the draft, its errors and the
// navigation state.
type Snapshot struct {
	SessionID   string                    `json:"sessionId"`
	FormData    domain.Draft              `json:"formData"`
	PackageType domain.PackageType        `json:"packageType,omitempty"`
	Visibility  map[domain.FieldName]bool `json:"visibility"`
	Errors      rules.ValidationErrors    `json:"errors"`
	IsValid     bool                      `json:"isValid"`
	CurrentStep domain.Step               `json:"currentStep"`
	StepIndex   int                       `json:"stepIndex"`
	Steps       []StepView                `json:"steps"`
	Dirty       bool                      `json:"dirty"`
	Revision    int                       `json:"revision"`
	LastSavedAt *time.Time                `json:"lastSavedAt,omitempty"`
	SaveStatus  SaveStatus                `json:"saveStatus"`
	RecordID    string                    `json:"recordId,omitempty"`
	Published   bool                      `json:"published"`
	LastError   string                    `json:"lastError,omitempty"`
}

func NewSnapshot(id string, st State) Snapshot {
	t, ok := st.Type()
	seq := st.Steps()
	views := make([]StepView, len(seq))
	for i, step := range seq {
		views[i] = StepView{
			Tag:         step,
			Title:       step.Title(),
			IsCompleted: st.Completed(step),
			IsCurrent:   step == st.Current,
		}
	}
	errs := make(rules.ValidationErrors, len(st.Errors))
	for k, v := range st.Errors {
		errs[k] = append([]string(nil), v...)
	}
	snap := Snapshot{
		SessionID:   id,
		FormData:    st.Draft.Clone(),
		Visibility:  rules.VisibilityFor(t),
		Errors:      errs,
		IsValid:     st.IsValid(),
		CurrentStep: st.Current,
		StepIndex:   domain.IndexOf(seq, st.Current),
		Steps:       views,
		Dirty:       st.Dirty,
		Revision:    st.Revision,
		LastSavedAt: st.LastSavedAt,
		SaveStatus:  st.SaveStatus,
		RecordID:    st.RecordID,
		Published:   st.Published,
		LastError:   st.LastError,
	}
	if ok {
		snap.PackageType = t
	}
	return snap
}
