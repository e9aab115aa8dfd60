package rollout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/flightgym/flightgym/internal/config"
	"github.com/flightgym/flightgym/internal/dispatcher"
	"github.com/flightgym/flightgym/internal/logging"
	"github.com/flightgym/flightgym/internal/storage/memory"
	"github.com/flightgym/flightgym/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowBackend delays every step write and records how many steps it had seen
// when the episode ended.
type slowBackend struct {
	*memory.Backend
	mu        sync.Mutex
	written   uint
	seenAtEnd uint
}

func (b *slowBackend) RecordStep(s *core.StepRecord) error {
	time.Sleep(2 * time.Millisecond)
	b.mu.Lock()
	b.written++
	b.mu.Unlock()
	return b.Backend.RecordStep(s)
}

func (b *slowBackend) EndEpisode(e *core.Episode) error {
	b.mu.Lock()
	b.seenAtEnd = b.written
	b.mu.Unlock()
	return b.Backend.EndEpisode(e)
}

func TestStorageSink_EndWaitsForBufferedSteps(t *testing.T) {
	d, err := dispatcher.New(logging.NewDispatcherLogger(quiet))
	require.NoError(t, err)
	t.Cleanup(d.Close)

	backend := &slowBackend{Backend: memory.New(config.MemoryConfig{})}
	AttachStorage(d, backend, 64)

	r := newRunner(t, Dependencies{Env: newStubEnv(20), Dispatcher: d}, Config{EnvID: "stub"})
	ep, err := r.RunEpisode(context.Background())
	require.NoError(t, err)

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Equal(t, uint(20), backend.seenAtEnd)
	assert.Equal(t, uint(20), ep.Steps)
}

func TestStorageSink_RejectsEmptyEvents(t *testing.T) {
	d, err := dispatcher.New(logging.NewDispatcherLogger(quiet))
	require.NoError(t, err)
	t.Cleanup(d.Close)
	AttachStorage(d, memory.New(config.MemoryConfig{}), 0)

	_, err = d.Dispatch(dispatcher.Event{Kind: dispatcher.EpisodeStart})
	assert.Error(t, err)
	_, err = d.Dispatch(dispatcher.Event{Kind: dispatcher.EpisodeEnd})
	assert.Error(t, err)
}

type failingBackend struct {
	*memory.Backend
}

func (failingBackend) RecordStep(*core.StepRecord) error {
	return assert.AnError
}

func TestStorageSink_FailedStepsDoNotBlockEnd(t *testing.T) {
	d, err := dispatcher.New(logging.NewDispatcherLogger(quiet))
	require.NoError(t, err)
	t.Cleanup(d.Close)

	backend := failingBackend{Backend: memory.New(config.MemoryConfig{})}
	AttachStorage(d, backend, 8)

	r := newRunner(t, Dependencies{Env: newStubEnv(5), Dispatcher: d}, Config{EnvID: "stub"})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ep, err := r.RunEpisode(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, uint(5), ep.Steps)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("episode end blocked on failed step writes")
	}

	record, ok := backend.Episode(1)
	require.True(t, ok)
	assert.Empty(t, record.Steps)
	assert.Equal(t, core.ReasonCollision, record.Episode.Reason)
}
