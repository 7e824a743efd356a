package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"travel_wizard/internal/domain"
	"travel_wizard/internal/wizard"
)

var ErrSessionNotFound = errors.New("wizard session not found")

// SessionService keeps wizard sessions in memory and mirrors each state into
// the cache so a restarted process can pick a session up again.
type SessionService struct {
	repo  domain.PackageRepository
	cache domain.Cache
	ttl   time.Duration
	log   zerolog.Logger
	obs   wizard.Observer
	now   func() time.Time

	mu       sync.Mutex
	sessions map[string]*wizard.Session
}

type SessionOptions struct {
	TTL      time.Duration
	Logger   zerolog.Logger
	Observer wizard.Observer
	Now      func() time.Time
}

func NewSessionService(r domain.PackageRepository, c domain.Cache, opts SessionOptions) *SessionService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	return &SessionService{
		repo:     r,
		cache:    c,
		ttl:      opts.TTL,
		log:      opts.Logger,
		obs:      opts.Observer,
		now:      opts.Now,
		sessions: make(map[string]*wizard.Session),
	}
}

func sessionKey(id string) string { return fmt.Sprintf("wizard:session:%s", id) }

func (s *SessionService) opts() wizard.Options {
	return wizard.Options{Logger: s.log, Now: s.now, Observer: s.obs}
}

// Create starts a new session on the package type step.
func (s *SessionService) Create(ctx context.Context) wizard.Snapshot {
	sess := wizard.NewSession(uuid.NewString(), s.repo, s.opts())
	s.mu.Lock()
	s.sessions[sess.ID()] = sess
	n := len(s.sessions)
	s.mu.Unlock()
	s.log.Info().Str("session", sess.ID()).Int("active", n).Msg("wizard session started")
	s.mirror(ctx, sess)
	return sess.Snapshot()
}

// Edit opens a session pre-filled with a stored package so saves update it.
func (s *SessionService) Edit(ctx context.Context, recordID string) (wizard.Snapshot, error) {
	rec, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return wizard.Snapshot{}, err
	}
	st := wizard.Initial()
	st.Draft = rec.Fields.Clone()
	st.Saved = rec.Fields.Clone()
	st.RecordID = rec.ID
	st.Published = rec.Status == domain.StatusPublished
	st.SaveStatus = wizard.SaveSaved
	at := rec.UpdatedAt
	st.LastSavedAt = &at

	sess := wizard.Restore(uuid.NewString(), st, s.repo, s.opts())
	s.mu.Lock()
	s.sessions[sess.ID()] = sess
	s.mu.Unlock()
	s.mirror(ctx, sess)
	return sess.Snapshot(), nil
}

// Get returns the session, restoring it from the cache when this process
// has not seen it yet.
func (s *SessionService) Get(ctx context.Context, id string) (*wizard.Session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if ok {
		return sess, nil
	}
	if s.cache == nil {
		return nil, ErrSessionNotFound
	}
	var st wizard.State
	found, err := s.cache.Get(ctx, sessionKey(id), &st)
	if err != nil {
		s.log.Warn().Err(err).Str("session", id).Msg("session cache read failed")
	}
	if !found {
		return nil, ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok { // restored concurrently
		return sess, nil
	}
	sess = wizard.Restore(id, st, s.repo, s.opts())
	s.sessions[id] = sess
	s.log.Info().Str("session", id).Msg("wizard session restored from cache")
	return sess, nil
}

func (s *SessionService) Snapshot(ctx context.Context, id string) (wizard.Snapshot, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return wizard.Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

// Delete drops the session. An in-flight save still reaches the repository
// but its result is not mirrored back.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	if s.cache == nil {
		if !ok {
			return ErrSessionNotFound
		}
		return nil
	}
	if !ok {
		var st wizard.State
		found, err := s.cache.Get(ctx, sessionKey(id), &st)
		if err != nil {
			s.log.Warn().Err(err).Str("session", id).Msg("session cache read failed")
		} else if !found {
			return ErrSessionNotFound
		}
	}
	if err := s.cache.Del(ctx, sessionKey(id)); err != nil {
		s.log.Warn().Err(err).Str("session", id).Msg("session cache delete failed")
	}
	return nil
}

// Apply dispatches a synchronous action. A blocked move returns the updated
// snapshot together with the reason.
func (s *SessionService) Apply(ctx context.Context, id string, a wizard.Action) (wizard.Snapshot, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return wizard.Snapshot{}, err
	}
	snap, aerr := sess.Dispatch(a)
	s.mirror(ctx, sess)
	return snap, aerr
}

func (s *SessionService) Save(ctx context.Context, id string) (domain.Result[wizard.Snapshot], error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return domain.Result[wizard.Snapshot]{}, err
	}
	res := sess.SaveDraft(ctx)
	s.mirror(ctx, sess)
	return res, nil
}

func (s *SessionService) Publish(ctx context.Context, id string) (domain.Result[wizard.Snapshot], error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return domain.Result[wizard.Snapshot]{}, err
	}
	res := sess.Publish(ctx)
	s.mirror(ctx, sess)
	return res, nil
}

// Sweep forgets in-memory sessions idle for longer than the TTL. Their cache
// entries expire on their own.
func (s *SessionService) Sweep() int {
	cutoff := s.now().Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if sess.TouchedAt().Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// Len reports how many sessions are held in memory.
func (s *SessionService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *SessionService) RunSweeper(ctx context.Context, every time.Duration, onSweep func(active int)) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.Sweep(); n > 0 {
				s.log.Info().Int("expired", n).Msg("wizard sessions expired")
			}
			if onSweep != nil {
				onSweep(s.Len())
			}
		}
	}
}

// mirror writes the session state to the cache. Sessions deleted or swept in
// the meantime are skipped so they stay gone.
func (s *SessionService) mirror(ctx context.Context, sess *wizard.Session) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[sess.ID()] != sess {
		return
	}
	if err := s.cache.Set(ctx, sessionKey(sess.ID()), sess.State(), s.ttl); err != nil {
		s.log.Warn().Err(err).Str("session", sess.ID()).Msg("session cache write failed")
	}
}
