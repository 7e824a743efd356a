package wizard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travel_wizard/internal/domain"
	"travel_wizard/internal/rules"
	"travel_wizard/internal/storage/memory"
)

func transferDraft() domain.Draft {
	return domain.Draft{
		"type":        "TRANSFERS",
		"name":        "Airport Transfer",
		"description": "Private car from the airport",
		"place":       "Dubai",
		"from":        "DXB",
		"to":          "Downtown",
	}
}

func newTestSession(t *testing.T, opts memory.Options) (*Session, *memory.Repo) {
	t.Helper()
	repo := memory.New(opts)
	return NewSession("s-1", repo, Options{}), repo
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	s0 := Initial()
	s1, err := Reduce(s0, UpdateFormData{Partial: domain.Draft{"type": "TRANSFERS"}})
	require.NoError(t, err)

	assert.Empty(t, s0.Draft)
	assert.Equal(t, 0, s0.Revision)
	assert.Equal(t, 1, s1.Revision)
	assert.True(t, s1.Dirty)
	assert.Len(t, s1.Steps(), 7)
}

func TestNextBlockedKeepsStepAndReportsErrors(t *testing.T) {
	s, _ := newTestSession(t, memory.Options{})

	snap, err := s.Next()
	require.ErrorIs(t, err, ErrValidationFailed)
	var se *StepError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, domain.StepPackageType, se.Step)
	assert.Equal(t, domain.StepPackageType, snap.CurrentStep)
	assert.Contains(t, snap.Errors, domain.FieldType)
	assert.False(t, snap.IsValid)

	s.Update(domain.Draft{"type": "TRANSFERS"})
	snap, err = s.Next()
	require.NoError(t, err)
	assert.Equal(t, domain.StepBasicInfo, snap.CurrentStep)
	assert.Empty(t, snap.Errors)
	assert.True(t, snap.Steps[0].IsCompleted)
	assert.True(t, snap.Steps[1].IsCurrent)
}

func TestUnknownTypeStaysOnFirstStep(t *testing.T) {
	s, _ := newTestSession(t, memory.Options{})
	snap := s.Update(domain.Draft{"type": "CRUISES"})
	assert.Len(t, snap.Steps, 1)
	assert.Empty(t, snap.Visibility)

	snap, err := s.Next()
	require.ErrorIs(t, err, ErrValidationFailed)
	assert.Equal(t, []string{`Unknown package type "CRUISES"`}, snap.Errors[domain.FieldType])
}

func TestPreviousAtFirstStep(t *testing.T) {
	s, _ := newTestSession(t, memory.Options{})
	_, err := s.Previous()
	assert.ErrorIs(t, err, ErrAtFirstStep)

	s.Update(domain.Draft{"type": "TRANSFERS"})
	_, err = s.Next()
	require.NoError(t, err)
	snap, err := s.Previous()
	require.NoError(t, err)
	assert.Equal(t, domain.StepPackageType, snap.CurrentStep)
}

func TestGoToStepRequiresIntermediateSteps(t *testing.T) {
	s, _ := newTestSession(t, memory.Options{})
	s.Update(domain.Draft{"type": "TRANSFERS", "name": "Airport Transfer"})

	snap, err := s.GoToStep(domain.StepReview)
	var se *StepError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, domain.StepBasicInfo, se.Step)
	assert.Equal(t, domain.StepPackageType, snap.CurrentStep)
	assert.Contains(t, snap.Errors, domain.FieldDescription)

	_, err = s.GoToStep("payment")
	assert.ErrorIs(t, err, ErrUnknownStep)

	s.Update(transferDraft())
	snap, err = s.GoToStep(domain.StepReview)
	require.NoError(t, err)
	assert.Equal(t, domain.StepReview, snap.CurrentStep)

	_, err = s.Next()
	assert.ErrorIs(t, err, ErrAtReview)

	// backwards is always allowed
	s.Update(domain.Draft{"description": nil})
	snap, err = s.GoToStep(domain.StepBasicInfo)
	require.NoError(t, err)
	assert.Equal(t, domain.StepBasicInfo, snap.CurrentStep)
}

func TestNextBlockedWhenDropOffRemoved(t *testing.T) {
	s, _ := newTestSession(t, memory.Options{})
	s.Update(transferDraft())
	snap, err := s.GoToStep(domain.StepLocationTiming)
	require.NoError(t, err)
	require.Equal(t, domain.StepLocationTiming, snap.CurrentStep)

	s.Update(domain.Draft{"to": nil})
	snap, err = s.Next()
	require.ErrorIs(t, err, ErrValidationFailed)
	assert.Equal(t, domain.StepLocationTiming, snap.CurrentStep)
	assert.Equal(t, rules.ValidationErrors{
		domain.FieldTo: {domain.FieldTo.Label() + " is required"},
	}, snap.Errors)
	assert.False(t, snap.IsValid)
}

func TestRemovingTypeReturnsToFirstStep(t *testing.T) {
	s, _ := newTestSession(t, memory.Options{})
	s.Update(transferDraft())
	_, err := s.GoToStep(domain.StepPricingPolicies)
	require.NoError(t, err)

	snap := s.Update(domain.Draft{"type": nil})
	assert.Equal(t, domain.StepPackageType, snap.CurrentStep)
	assert.Len(t, snap.Steps, 1)
	assert.Equal(t, "Dubai", snap.FormData["place"], "other fields survive")
}

func TestResetClearsEverything(t *testing.T) {
	s, _ := newTestSession(t, memory.Options{})
	s.Update(transferDraft())
	_, err := s.Next()
	require.NoError(t, err)

	snap := s.Reset()
	assert.Empty(t, snap.FormData)
	assert.Equal(t, domain.StepPackageType, snap.CurrentStep)
	assert.False(t, snap.Dirty)
	assert.Equal(t, SaveUnsaved, snap.SaveStatus)
}

func TestSaveDraftCreatesThenUpdates(t *testing.T) {
	s, repo := newTestSession(t, memory.Options{})
	s.Update(domain.Draft{"type": "TRANSFERS", "name": "Airport Transfer"})

	res := s.SaveDraft(context.Background())
	require.True(t, res.Success, res.Error)
	id := res.Data.RecordID
	require.NotEmpty(t, id)
	assert.False(t, res.Data.Dirty)
	assert.Equal(t, SaveSaved, res.Data.SaveStatus)
	assert.NotNil(t, res.Data.LastSavedAt)

	s.Update(domain.Draft{"place": "Dubai", "name": nil})
	res = s.SaveDraft(context.Background())
	require.True(t, res.Success, res.Error)
	assert.Equal(t, id, res.Data.RecordID)

	rec, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, rec.Status)
	assert.Equal(t, "Dubai", rec.Fields["place"])
	assert.NotContains(t, rec.Fields, domain.FieldPackageName)
}

func TestSaveFailureKeepsDraftAndStep(t *testing.T) {
	s, repo := newTestSession(t, memory.Options{})
	s.Update(domain.Draft{"type": "TRANSFERS"})
	_, err := s.Next()
	require.NoError(t, err)
	repo.SetFailure(func(string) error { return memory.ErrSimulated })

	res := s.SaveDraft(context.Background())
	require.False(t, res.Success)
	assert.ErrorIs(t, res.Err, memory.ErrSimulated)
	assert.Equal(t, SaveError, res.Data.SaveStatus)
	assert.True(t, res.Data.Dirty)
	assert.Equal(t, domain.StepBasicInfo, res.Data.CurrentStep)
	assert.Equal(t, "TRANSFERS", res.Data.FormData["type"])
	assert.Empty(t, res.Data.RecordID)

	repo.SetFailure(nil)
	res = s.SaveDraft(context.Background())
	require.True(t, res.Success)
	assert.Empty(t, res.Data.LastError)
}

// blockingRepo parks the first call inside the repository until release is
// closed.
func blockingRepo(t *testing.T) (*memory.Repo, chan struct{}, chan struct{}) {
	t.Helper()
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	repo := memory.New(memory.Options{Fail: func(string) error {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		return nil
	}})
	return repo, entered, release
}

func TestEditDuringSaveStaysDirty(t *testing.T) {
	repo, entered, release := blockingRepo(t)
	s := NewSession("s-1", repo, Options{})
	s.Update(domain.Draft{"type": "TRANSFERS"})

	done := make(chan domain.Result[Snapshot], 1)
	go func() { done <- s.SaveDraft(context.Background()) }()
	<-entered

	snap := s.Update(domain.Draft{"name": "Late edit"})
	assert.Equal(t, SaveSaving, snap.SaveStatus)

	second := s.SaveDraft(context.Background())
	assert.ErrorIs(t, second.Err, ErrSaveInProgress)

	close(release)
	res := <-done
	require.True(t, res.Success)
	assert.True(t, res.Data.Dirty)
	assert.Equal(t, SaveUnsaved, res.Data.SaveStatus)
	assert.NotEmpty(t, res.Data.RecordID)
}

func TestResetDuringSaveDiscardsResult(t *testing.T) {
	repo, entered, release := blockingRepo(t)
	s := NewSession("s-1", repo, Options{})
	s.Update(domain.Draft{"type": "TRANSFERS"})

	done := make(chan domain.Result[Snapshot], 1)
	go func() { done <- s.SaveDraft(context.Background()) }()
	<-entered
	s.Reset()
	close(release)

	res := <-done
	assert.ErrorIs(t, res.Err, ErrSessionReset)
	assert.Empty(t, res.Data.RecordID)
	assert.Empty(t, s.State().Draft)
}

func TestPublishOnlyFromValidReview(t *testing.T) {
	s, repo := newTestSession(t, memory.Options{})
	s.Update(transferDraft())

	res := s.Publish(context.Background())
	assert.ErrorIs(t, res.Err, ErrNotAtReview)

	_, err := s.GoToStep(domain.StepReview)
	require.NoError(t, err)
	res = s.Publish(context.Background())
	require.True(t, res.Success, res.Error)
	assert.True(t, res.Data.Published)
	assert.Equal(t, SavePublished, res.Data.SaveStatus)
	for _, st := range res.Data.Steps {
		assert.True(t, st.IsCompleted, st.Tag)
	}

	rec, err := repo.GetByID(context.Background(), res.Data.RecordID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPublished, rec.Status)
	assert.NotNil(t, rec.PublishedAt)

	// a later draft save keeps the package published
	s.Update(domain.Draft{"description": "Now with water"})
	require.True(t, s.SaveDraft(context.Background()).Success)
	rec, err = repo.GetByID(context.Background(), res.Data.RecordID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPublished, rec.Status)
}

func TestPublishRevalidatesEveryStep(t *testing.T) {
	s, _ := newTestSession(t, memory.Options{})
	s.Update(transferDraft())
	_, err := s.GoToStep(domain.StepReview)
	require.NoError(t, err)
	s.Update(domain.Draft{"from": nil})

	res := s.Publish(context.Background())
	require.False(t, res.Success)
	var se *StepError
	require.True(t, errors.As(res.Err, &se))
	assert.Equal(t, domain.StepLocationTiming, se.Step)
	assert.Contains(t, res.Data.Errors, domain.FieldFrom)
	assert.False(t, res.Data.Published)
}

func TestRestoreDropsInFlightSave(t *testing.T) {
	st := Initial()
	st.Draft = transferDraft()
	st.Current = domain.StepReview
	st.SaveStatus = SaveSaving

	s := Restore("s-2", st, memory.New(memory.Options{}), Options{})
	snap := s.Snapshot()
	assert.Equal(t, SaveUnsaved, snap.SaveStatus)
	assert.Equal(t, domain.StepReview, snap.CurrentStep)

	st.Draft = domain.Draft{}
	s = Restore("s-3", st, memory.New(memory.Options{}), Options{})
	assert.Equal(t, domain.StepPackageType, s.Snapshot().CurrentStep)
}

func TestObserverSeesOutcomes(t *testing.T) {
	var got []string
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := NewSession("s-1", memory.New(memory.Options{}), Options{
		Now:      func() time.Time { return now },
		Observer: func(action, result string) { got = append(got, action+":"+result) },
	})
	_, _ = s.Previous()
	s.Update(domain.Draft{"type": "TRANSFERS"})
	_, _ = s.Next()

	assert.Equal(t, []string{"previous:blocked", "update:ok", "next:ok"}, got)
	assert.Equal(t, now, s.TouchedAt())
}

func TestDiffSendsRemovals(t *testing.T) {
	saved := domain.Draft{"a": "1", "b": "2"}
	cur := domain.Draft{"a": "1", "c": "3"}
	assert.Equal(t, domain.Draft{"b": nil, "c": "3"}, diff(saved, cur))
}
