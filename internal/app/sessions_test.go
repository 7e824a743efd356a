package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travel_wizard/internal/adapters/memcache"
	"travel_wizard/internal/domain"
	"travel_wizard/internal/storage/memory"
	"travel_wizard/internal/wizard"
)

func TestSessionRestoredFromCache(t *testing.T) {
	ctx := context.Background()
	repo := memory.New(memory.Options{})
	cache := memcache.New()

	first := NewSessionService(repo, cache, SessionOptions{})
	snap := first.Create(ctx)
	_, err := first.Apply(ctx, snap.SessionID, wizard.UpdateFormData{Partial: domain.Draft{"type": "TRANSFERS"}})
	require.NoError(t, err)
	moved, err := first.Apply(ctx, snap.SessionID, wizard.Next{})
	require.NoError(t, err)
	require.Equal(t, domain.StepBasicInfo, moved.CurrentStep)

	// a second process sharing the cache
	second := NewSessionService(repo, cache, SessionOptions{})
	got, err := second.Snapshot(ctx, snap.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.StepBasicInfo, got.CurrentStep)
	assert.Equal(t, "TRANSFERS", got.FormData["type"])
	assert.Equal(t, 1, second.Len())

	_, err = second.Snapshot(ctx, "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionBlockedActionIsMirrored(t *testing.T) {
	ctx := context.Background()
	cache := memcache.New()
	svc := NewSessionService(memory.New(memory.Options{}), cache, SessionOptions{})
	snap := svc.Create(ctx)

	blocked, err := svc.Apply(ctx, snap.SessionID, wizard.Next{})
	require.ErrorIs(t, err, wizard.ErrValidationFailed)
	assert.Contains(t, blocked.Errors, domain.FieldType)

	var st wizard.State
	ok, err := cache.Get(ctx, sessionKey(snap.SessionID), &st)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, st.Errors, domain.FieldType)
}

func TestSessionDelete(t *testing.T) {
	ctx := context.Background()
	svc := NewSessionService(memory.New(memory.Options{}), memcache.New(), SessionOptions{})
	snap := svc.Create(ctx)

	require.NoError(t, svc.Delete(ctx, snap.SessionID))
	_, err := svc.Get(ctx, snap.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, snap.SessionID), ErrSessionNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "nope"), ErrSessionNotFound)

	noCache := NewSessionService(memory.New(memory.Options{}), nil, SessionOptions{})
	assert.ErrorIs(t, noCache.Delete(ctx, "nope"), ErrSessionNotFound)
}

func TestSessionDeleteFindsCachedSession(t *testing.T) {
	ctx := context.Background()
	cache := memcache.New()
	repo := memory.New(memory.Options{})
	snap := NewSessionService(repo, cache, SessionOptions{}).Create(ctx)

	// another process only knows the session through the cache
	other := NewSessionService(repo, cache, SessionOptions{})
	require.NoError(t, other.Delete(ctx, snap.SessionID))
	_, err := other.Get(ctx, snap.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionDeletedDuringSaveStaysDeleted(t *testing.T) {
	ctx := context.Background()
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	repo := memory.New(memory.Options{Fail: func(op string) error {
		if op == "create" {
			entered <- struct{}{}
			<-release
		}
		return nil
	}})
	cache := memcache.New()
	svc := NewSessionService(repo, cache, SessionOptions{})
	snap := svc.Create(ctx)
	_, err := svc.Apply(ctx, snap.SessionID, wizard.UpdateFormData{Partial: domain.Draft{"type": "TRANSFERS"}})
	require.NoError(t, err)

	done := make(chan domain.Result[wizard.Snapshot], 1)
	go func() {
		res, _ := svc.Save(ctx, snap.SessionID)
		done <- res
	}()
	<-entered
	require.NoError(t, svc.Delete(ctx, snap.SessionID))
	close(release)
	res := <-done
	assert.True(t, res.Success, "the save itself still reaches the store")

	_, err = svc.Snapshot(ctx, snap.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = NewSessionService(repo, cache, SessionOptions{}).Snapshot(ctx, snap.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionSaveAndPublish(t *testing.T) {
	ctx := context.Background()
	repo := memory.New(memory.Options{})
	pkgs := NewPackageService(repo, memcache.New(), time.Minute)
	svc := NewSessionService(pkgs, nil, SessionOptions{})
	snap := svc.Create(ctx)
	id := snap.SessionID

	_, err := svc.Apply(ctx, id, wizard.UpdateFormData{Partial: domain.Draft{
		"type":        "TRANSFERS",
		"name":        "Airport Transfer",
		"description": "Private car from the airport",
		"place":       "Dubai",
		"from":        "DXB",
		"to":          "Downtown",
	}})
	require.NoError(t, err)

	res, err := svc.Save(ctx, id)
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)

	res, err = svc.Publish(ctx, id)
	require.NoError(t, err)
	assert.ErrorIs(t, res.Err, wizard.ErrNotAtReview)

	_, err = svc.Apply(ctx, id, wizard.GoToStep{Target: domain.StepReview})
	require.NoError(t, err)
	res, err = svc.Publish(ctx, id)
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)

	rec, err := pkgs.GetByID(ctx, res.Data.RecordID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPublished, rec.Status)

	_, err = svc.Save(ctx, "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionEditLoadsRecord(t *testing.T) {
	ctx := context.Background()
	repo := memory.New(memory.Options{})
	rec, err := repo.Create(ctx, domain.Draft{"type": "TRANSFERS", "name": "Airport Transfer"}, domain.StatusPublished)
	require.NoError(t, err)

	svc := NewSessionService(repo, nil, SessionOptions{})
	snap, err := svc.Edit(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, snap.RecordID)
	assert.True(t, snap.Published)
	assert.False(t, snap.Dirty)
	assert.Equal(t, wizard.SaveSaved, snap.SaveStatus)
	assert.Equal(t, "Airport Transfer", snap.FormData["name"])

	_, err = svc.Apply(ctx, snap.SessionID, wizard.UpdateFormData{Partial: domain.Draft{"place": "Dubai"}})
	require.NoError(t, err)
	res, err := svc.Save(ctx, snap.SessionID)
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, rec.ID, res.Data.RecordID)

	got, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dubai", got.Fields["place"])
	assert.Equal(t, domain.StatusPublished, got.Status)

	_, err = svc.Edit(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSweepForgetsIdleSessions(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	svc := NewSessionService(memory.New(memory.Options{}), nil, SessionOptions{TTL: time.Hour, Now: clock})

	idle := svc.Create(ctx)
	now = now.Add(50 * time.Minute)
	busy := svc.Create(ctx)
	now = now.Add(20 * time.Minute)

	assert.Equal(t, 1, svc.Sweep())
	assert.Equal(t, 1, svc.Len())
	_, err := svc.Get(ctx, idle.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.Get(ctx, busy.SessionID)
	assert.NoError(t, err)
}
