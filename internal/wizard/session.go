package wizard

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"travel_wizard/internal/domain"
	"travel_wizard/internal/rules"
)

// Observer is told about every action and its outcome ("ok", "blocked",
// "error").
type Observer func(action, result string)

type Options struct {
	Logger   zerolog.Logger
	Now      func() time.Time
	Observer Observer
}

// Session owns one wizard state. All methods are safe for concurrent use;
// repository calls run without holding the lock.
type Session struct {
	id   string
	repo domain.PackageRepository
	log  zerolog.Logger
	now  func() time.Time
	obs  Observer

	mu      sync.Mutex
	state   State
	gen     int // bumped by Reset
	saving  bool
	touched time.Time
}

func NewSession(id string, repo domain.PackageRepository, opts Options) *Session {
	return Restore(id, Initial(), repo, opts)
}

// Restore rebuilds a session from a stored state. A save that was in flight
// when the state was stored is treated as not having happened.
func Restore(id string, st State, repo domain.PackageRepository, opts Options) *Session {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if st.Draft == nil {
		st.Draft = domain.Draft{}
	}
	if st.Errors == nil {
		st.Errors = rules.ValidationErrors{}
	}
	if st.SaveStatus == SaveSaving {
		st.SaveStatus = SaveUnsaved
	}
	if st.Index() < 0 {
		st.Current = domain.StepPackageType
	}
	return &Session{
		id:      id,
		repo:    repo,
		log:     opts.Logger.With().Str("session", id).Logger(),
		now:     opts.Now,
		obs:     opts.Observer,
		state:   st,
		touched: opts.Now(),
	}
}

func (s *Session) ID() string { return s.id }

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyState()
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return NewSnapshot(s.id, s.state)
}

// TouchedAt is the time of the last action.
func (s *Session) TouchedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}

// Dispatch applies a synchronous action.
func (s *Session) Dispatch(a Action) (Snapshot, error) { return s.do(a) }

func (s *Session) dispatchLocked(a Action) error {
	before := s.state.Current
	next, err := Reduce(s.state, a)
	s.state = next
	if _, ok := a.(Reset); ok {
		s.gen++
	}
	s.touched = s.now()
	s.observe(a.Name(), err)
	ev := s.log.Debug().Str("action", a.Name()).Str("from", string(before)).Str("to", string(next.Current))
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg("wizard transition")
	return err
}

func (s *Session) observe(action string, err error) {
	if s.obs == nil {
		return
	}
	switch {
	case err == nil:
		s.obs(action, "ok")
	case errors.Is(err, ErrValidationFailed), errors.Is(err, ErrAtFirstStep), errors.Is(err, ErrAtReview):
		s.obs(action, "blocked")
	default:
		s.obs(action, "error")
	}
}

func (s *Session) Update(partial domain.Draft) Snapshot {
	snap, _ := s.do(UpdateFormData{Partial: partial})
	return snap
}

func (s *Session) Next() (Snapshot, error)                  { return s.do(Next{}) }
func (s *Session) Previous() (Snapshot, error)              { return s.do(Previous{}) }
func (s *Session) GoToStep(t domain.Step) (Snapshot, error) { return s.do(GoToStep{Target: t}) }
func (s *Session) Validate() Snapshot {
	snap, _ := s.do(Validate{})
	return snap
}

// Reset discards the draft. A save still in flight completes against the
// repository but its result is not applied to the fresh state.
func (s *Session) Reset() Snapshot {
	snap, _ := s.do(Reset{})
	return snap
}

func (s *Session) do(a Action) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.dispatchLocked(a)
	return NewSnapshot(s.id, s.state), err
}

// SaveDraft persists the draft with status draft. Failures are reported in the
// envelope; the draft and the current step are kept either way.
func (s *Session) SaveDraft(ctx context.Context) domain.Result[Snapshot] {
	return s.persist(ctx, false)
}

// Publish validates every step and persists the package as published. Only
// allowed on the review step.
func (s *Session) Publish(ctx context.Context) domain.Result[Snapshot] {
	return s.persist(ctx, true)
}

func (s *Session) persist(ctx context.Context, publish bool) domain.Result[Snapshot] {
	op := "save"
	if publish {
		op = "publish"
	}

	s.mu.Lock()
	if s.saving {
		snap := NewSnapshot(s.id, s.state)
		s.mu.Unlock()
		s.observe(op, ErrSaveInProgress)
		return failWith(snap, ErrSaveInProgress, "save already running")
	}
	if publish {
		if s.state.Current != domain.StepReview {
			snap := NewSnapshot(s.id, s.state)
			s.mu.Unlock()
			s.observe(op, ErrNotAtReview)
			return failWith(snap, ErrNotAtReview, "cannot publish yet")
		}
		if err := s.dispatchLocked(validateAll{}); err != nil {
			snap := NewSnapshot(s.id, s.state)
			s.mu.Unlock()
			return failWith(snap, err, "fix the highlighted fields before publishing")
		}
	}
	_ = s.dispatchLocked(saveStarted{})
	s.saving = true
	gen := s.gen
	recordID := s.state.RecordID
	draft := s.state.Draft.Clone()
	partial := diff(s.state.Saved, draft)
	revision := s.state.Revision
	s.mu.Unlock()

	// saving an existing record leaves its status alone so a published
	// package is not pulled back to draft
	status := domain.StatusDraft
	switch {
	case publish:
		status = domain.StatusPublished
	case recordID != "":
		status = ""
	}

	var rec domain.PackageRecord
	var err error
	start := s.now()
	if recordID == "" {
		rec, err = s.repo.Create(ctx, draft, status)
	} else {
		rec, err = s.repo.Update(ctx, recordID, partial, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.saving = false

	if s.gen != gen {
		s.log.Warn().Str("op", op).Msg("discarding save result for a reset session")
		s.observe(op, err)
		return failWith(NewSnapshot(s.id, s.state), ErrSessionReset, "save discarded")
	}

	if err != nil {
		_ = s.dispatchLocked(saveFailed{err: err})
		s.log.Error().Err(err).Str("op", op).Str("record", recordID).Msg("persist failed")
		return failWith(NewSnapshot(s.id, s.state), err, op+" failed")
	}

	_ = s.dispatchLocked(saveSucceeded{
		record:   rec,
		revision: revision,
		saved:    draft,
		at:       s.now(),
		publish:  publish,
	})
	s.log.Info().Str("op", op).Str("record", rec.ID).Dur("took", s.now().Sub(start)).Msg("package persisted")
	msg := "draft saved"
	if publish {
		msg = "package published"
	}
	return domain.OK(NewSnapshot(s.id, s.state), msg)
}

func failWith(snap Snapshot, err error, msg string) domain.Result[Snapshot] {
	res := domain.Fail[Snapshot](err, msg)
	res.Data = snap
	return res
}

func (s *Session) copyState() State {
	st := s.state
	st.Draft = st.Draft.Clone()
	if st.Saved != nil {
		st.Saved = st.Saved.Clone()
	}
	errs := make(rules.ValidationErrors, len(st.Errors))
	for k, v := range st.Errors {
		errs[k] = append([]string(nil), v...)
	}
	st.Errors = errs
	return st
}

// diff returns the fields of cur that differ from saved, plus nil for fields
// removed since the last save.
func diff(saved, cur domain.Draft) domain.Draft {
	out := domain.Draft{}
	for k, v := range cur {
		if old, ok := saved[k]; !ok || !reflect.DeepEqual(old, v) {
			out[k] = v
		}
	}
	for k := range saved {
		if _, ok := cur[k]; !ok {
			out[k] = nil
		}
	}
	return out
}
