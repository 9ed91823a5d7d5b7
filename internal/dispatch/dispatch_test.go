package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genvid/internal/domain"
	"genvid/internal/queue"
	"genvid/internal/quota"
	"genvid/internal/store/memstore"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []queue.Message
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, msg queue.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func newTestService(store *memstore.Store, pub queue.Publisher) *Service {
	guard := quota.NewGuard(store, 2, time.UTC)
	return NewService(store, guard, pub, nil, zerolog.Nop(), 20)
}

func TestNormalizePrompt(t *testing.T) {
	got, err := NormalizePrompt("  café at dusk \n", 100)
	require.NoError(t, err)
	assert.Equal(t, "café at dusk", got)

	_, err = NormalizePrompt(" \t ", 100)
	require.ErrorIs(t, err, domain.ErrInvalidPrompt)

	_, err = NormalizePrompt(strings.Repeat("a", 11), 10)
	require.ErrorIs(t, err, domain.ErrInvalidPrompt)
}

func TestSubmitQueuesAndPublishesOnce(t *testing.T) {
	store := memstore.New(100)
	pub := &recordingPublisher{}
	svc := newTestService(store, pub)

	res, err := svc.Submit(context.Background(), 7, "sunset")
	require.NoError(t, err)
	assert.Equal(t, int64(101), res.Job.ID)
	assert.Equal(t, domain.JobStatusQueued, res.Job.Status)
	assert.Equal(t, 1, res.RemainingQuota)
	assert.Equal(t, []queue.Message{{JobID: 101, Prompt: "sunset"}}, pub.msgs)
}

func TestSubmitEnforcesDailyQuota(t *testing.T) {
	store := memstore.New(0)
	pub := &recordingPublisher{}
	svc := newTestService(store, pub)
	ctx := context.Background()

	_, err := svc.Submit(ctx, 7, "one")
	require.NoError(t, err)
	res, err := svc.Submit(ctx, 7, "two")
	require.NoError(t, err)
	assert.Equal(t, 0, res.RemainingQuota)

	_, err = svc.Submit(ctx, 7, "three")
	require.ErrorIs(t, err, domain.ErrQuotaExceeded)
	assert.Len(t, pub.msgs, 2, "rejected submission must not emit")

	_, err = svc.Submit(ctx, 8, "other user")
	require.NoError(t, err)
}

func TestSubmitQuotaResetsOnNewDay(t *testing.T) {
	store := memstore.New(0)
	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	store.Put(domain.GenerationJob{ID: 1, UserID: 7, Status: domain.JobStatusSucceeded, CreatedAt: yesterday, UpdatedAt: yesterday})
	store.Put(domain.GenerationJob{ID: 2, UserID: 7, Status: domain.JobStatusFailed, CreatedAt: yesterday, UpdatedAt: yesterday})
	svc := newTestService(store, &recordingPublisher{})

	_, err := svc.Submit(context.Background(), 7, "fresh day")
	require.NoError(t, err)
}

func TestSubmitRejectsInvalidPromptWithoutCreatingJob(t *testing.T) {
	store := memstore.New(0)
	svc := newTestService(store, &recordingPublisher{})
	_, err := svc.Submit(context.Background(), 7, "   ")
	require.ErrorIs(t, err, domain.ErrInvalidPrompt)
	jobs, _ := store.ListByUser(context.Background(), 7)
	assert.Empty(t, jobs)
}

func TestSubmitPublishFailureLeavesJobQueued(t *testing.T) {
	store := memstore.New(0)
	svc := newTestService(store, &recordingPublisher{err: errors.New("broker down")})

	res, err := svc.Submit(context.Background(), 7, "sunset")
	require.NoError(t, err)
	job, err := store.GetByID(context.Background(), res.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusQueued, job.Status)
}

func TestReconcilerSweep(t *testing.T) {
	ctx := context.Background()
	store := memstore.New(0)
	old := time.Now().Add(-time.Hour)
	store.Put(domain.GenerationJob{ID: 1, UserID: 7, Prompt: "lost", Status: domain.JobStatusQueued, CreatedAt: old, UpdatedAt: old})
	store.Put(domain.GenerationJob{ID: 2, UserID: 7, Prompt: "tired", Status: domain.JobStatusQueued, DispatchAttempts: 3, CreatedAt: old, UpdatedAt: old})
	store.Put(domain.GenerationJob{ID: 3, UserID: 7, Prompt: "stuck", Status: domain.JobStatusRunning, CreatedAt: old, UpdatedAt: old})
	store.Put(domain.GenerationJob{ID: 4, UserID: 7, Prompt: "fresh", Status: domain.JobStatusQueued, CreatedAt: time.Now(), UpdatedAt: time.Now()})

	pub := &recordingPublisher{}
	r := NewReconciler(store, pub, ReconcilerConfig{
		RedispatchAfter:   5 * time.Minute,
		StuckRunningAfter: 30 * time.Minute,
		MaxAttempts:       3,
	}, nil, zerolog.Nop())

	res, err := r.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Redispatched: 1, Abandoned: 1, StuckRunning: 1}, res)
	assert.Equal(t, []queue.Message{{JobID: 1, Prompt: "lost"}}, pub.msgs)

	abandoned, _ := store.GetByID(ctx, 2)
	assert.Equal(t, domain.JobStatusFailed, abandoned.Status)
	require.NotNil(t, abandoned.ErrorMessage)
	assert.Contains(t, *abandoned.ErrorMessage, "dispatch failed")

	stuck, _ := store.GetByID(ctx, 3)
	assert.Equal(t, domain.JobStatusRunning, stuck.Status, "running jobs are only reported")

	// the redispatch bumped updated_at, so an immediate second sweep is quiet
	res, err = r.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Redispatched)
}

func TestReconcilerRunStopsOnCancel(t *testing.T) {
	store := memstore.New(0)
	r := NewReconciler(store, &recordingPublisher{}, ReconcilerConfig{RedispatchAfter: time.Minute, StuckRunningAfter: time.Minute}, nil, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- r.Run(ctx, 10*time.Millisecond) }()
	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
