package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genvid/internal/domain"
	"genvid/internal/infra"
	"genvid/internal/queue"
	"genvid/internal/store/memstore"
)

func TestWorkerArgs(t *testing.T) {
	assert.Equal(t, []string{"--job-id", "101", "--prompt", "sunset"}, WorkerArgs(queue.Message{JobID: 101, Prompt: "sunset"}))
}

func TestWebhookTrigger(t *testing.T) {
	var got webhookRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	tr := NewWebhookTrigger(srv.URL, "secret", srv.Client())
	require.NoError(t, tr.Trigger(context.Background(), queue.Message{JobID: 5, Prompt: "sunset"}))
	assert.Equal(t, int64(5), got.JobID)
	assert.Equal(t, []string{"--job-id", "5", "--prompt", "sunset"}, got.Args)
}

func TestWebhookTriggerRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exhausted", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewWebhookTrigger(srv.URL, "", srv.Client()).Trigger(context.Background(), queue.Message{JobID: 5, Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
	assert.Contains(t, err.Error(), "quota exhausted")
}

func TestExecTriggerStartsAndReaps(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	exited := make(chan error, 1)
	tr := NewExecTrigger(sh, []string{"-c", "exit 0", "worker"}, zerolog.Nop())
	tr.done = func(_ int64, err error) { exited <- err }

	require.NoError(t, tr.Trigger(context.Background(), queue.Message{JobID: 1, Prompt: "sunset"}))
	select {
	case err := <-exited:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("child was not reaped")
	}
}

func TestExecTriggerMissingBinary(t *testing.T) {
	tr := NewExecTrigger("/nonexistent/genvid-worker", nil, zerolog.Nop())
	require.Error(t, tr.Trigger(context.Background(), queue.Message{JobID: 1, Prompt: "sunset"}))
}

func TestNewFromConfig(t *testing.T) {
	tr, err := NewFromConfig(&infra.Config{TriggerDriver: "exec", WorkerBinary: "genvid-worker"}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &ExecTrigger{}, tr)

	_, err = NewFromConfig(&infra.Config{TriggerDriver: "webhook"}, zerolog.Nop())
	require.Error(t, err)

	_, err = NewFromConfig(&infra.Config{TriggerDriver: "carrier-pigeon"}, zerolog.Nop())
	require.Error(t, err)
}

type fakeTrigger struct {
	calls []queue.Message
	err   error
}

func (f *fakeTrigger) Trigger(_ context.Context, msg queue.Message) error {
	f.calls = append(f.calls, msg)
	return f.err
}

func TestLauncherSkipsDuplicateDelivery(t *testing.T) {
	ctx := context.Background()
	store := memstore.New(0)
	store.Put(domain.GenerationJob{ID: 1, UserID: 7, Prompt: "sunset", Status: domain.JobStatusQueued})
	store.Put(domain.GenerationJob{ID: 2, UserID: 7, Prompt: "sunset", Status: domain.JobStatusRunning})
	ft := &fakeTrigger{}
	l := NewLauncher(store, ft, nil, zerolog.Nop())

	require.NoError(t, l.Handle(ctx, queue.Message{JobID: 1, Prompt: "sunset"}))
	require.NoError(t, l.Handle(ctx, queue.Message{JobID: 2, Prompt: "sunset"}))
	require.NoError(t, l.Handle(ctx, queue.Message{JobID: 99, Prompt: "ghost"}))
	assert.Equal(t, []queue.Message{{JobID: 1, Prompt: "sunset"}}, ft.calls)
}

func TestLauncherTriggerFailureMarksFailed(t *testing.T) {
	ctx := context.Background()
	store := memstore.New(0)
	store.Put(domain.GenerationJob{ID: 1, UserID: 7, Prompt: "sunset", Status: domain.JobStatusQueued})
	l := NewLauncher(store, &fakeTrigger{err: errors.New("no capacity")}, nil, zerolog.Nop())

	require.NoError(t, l.Handle(ctx, queue.Message{JobID: 1, Prompt: "sunset"}))
	job, err := store.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, job.Status)
	require.NotNil(t, job.ErrorMessage)
	assert.Equal(t, "dispatch failed: no capacity", *job.ErrorMessage)
}

func TestLauncherRunWithMemoryQueue(t *testing.T) {
	store := memstore.New(0)
	store.Put(domain.GenerationJob{ID: 1, UserID: 7, Prompt: "sunset", Status: domain.JobStatusQueued})
	q := queue.NewMemory(1, zerolog.Nop())
	triggered := make(chan queue.Message, 1)
	l := NewLauncher(store, triggerFunc(func(_ context.Context, msg queue.Message) error {
		triggered <- msg
		return nil
	}), nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, q.Publish(ctx, queue.Message{JobID: 1, Prompt: "sunset"}))
	go func() { _ = l.Run(ctx, q) }()

	select {
	case msg := <-triggered:
		assert.Equal(t, int64(1), msg.JobID)
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

type triggerFunc func(ctx context.Context, msg queue.Message) error

func (f triggerFunc) Trigger(ctx context.Context, msg queue.Message) error { return f(ctx, msg) }
