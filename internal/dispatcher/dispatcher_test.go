package dispatcher

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flightgym/flightgym/internal/metrics"
	"github.com/flightgym/flightgym/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLogger implements Logger for testing
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("DEBUG: %s %v", msg, keysAndValues))
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("INFO: %s %v", msg, keysAndValues))
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("ERROR: %s %v", msg, keysAndValues))
}

func (l *testLogger) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.messages...)
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *testLogger) {
	t.Helper()
	logger := &testLogger{}
	d, err := New(logger)
	require.NoError(t, err)
	return d, logger
}

func TestDispatcher_SyncHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var got Event
	d.Register(EpisodeStart, func(e Event) (any, error) {
		got = e
		return "result", nil
	})

	ep := &core.Episode{EnvID: "JSBSim-v0"}
	result, err := d.Dispatch(Event{Kind: EpisodeStart, Episode: ep})

	require.NoError(t, err)
	assert.Equal(t, "result", result)
	assert.Same(t, ep, got.Episode)
	assert.False(t, got.Timestamp.IsZero())
}

func TestDispatcher_UnknownKind(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Dispatch(Event{Kind: "episode:pause"})
	assert.Error(t, err)
}

func TestDispatcher_BufferedHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var processed atomic.Int32
	d.Register(StepRecorded, func(e Event) (any, error) {
		processed.Add(1)
		return nil, nil
	}, Buffered(100))

	for i := 0; i < 3; i++ {
		result, err := d.Dispatch(Event{Kind: StepRecorded, Step: &core.StepRecord{Step: uint(i)}})
		require.NoError(t, err)
		assert.Equal(t, "queued", result)
	}

	d.Close()
	assert.Equal(t, int32(3), processed.Load())
}

func TestDispatcher_BufferedPreservesOrder(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var seen []uint
	d.Register(StepRecorded, func(e Event) (any, error) {
		seen = append(seen, e.Step.Step)
		return nil, nil
	}, Buffered(16), Blocking())

	for i := uint(1); i <= 50; i++ {
		_, err := d.Dispatch(Event{Kind: StepRecorded, Step: &core.StepRecord{Step: i}})
		require.NoError(t, err)
	}
	d.Close()

	require.Len(t, seen, 50)
	for i, s := range seen {
		assert.Equal(t, uint(i+1), s)
	}
}

func TestDispatcher_BufferedDropsWhenFull(t *testing.T) {
	d, _ := newTestDispatcher(t)

	block := make(chan struct{})
	d.Register(StepRecorded, func(e Event) (any, error) {
		<-block
		return nil, nil
	}, Buffered(2))

	var dropped bool
	for i := 0; i < 10 && !dropped; i++ {
		if _, err := d.Dispatch(Event{Kind: StepRecorded}); err != nil {
			assert.Contains(t, err.Error(), "queue full")
			dropped = true
		}
	}
	assert.True(t, dropped, "expected an event to be dropped")

	close(block)
	d.Close()
}

func TestDispatcher_BufferedBlocking(t *testing.T) {
	d, _ := newTestDispatcher(t)

	block := make(chan struct{})
	d.Register(StepRecorded, func(e Event) (any, error) {
		<-block
		return nil, nil
	}, Buffered(1), Blocking())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 3; i++ {
			d.Dispatch(Event{Kind: StepRecorded})
		}
		close(done)
	}()

	select {
	case <-done:
		t.Error("dispatch should have blocked")
	case <-time.After(50 * time.Millisecond):
	}

	close(block)
	<-done
	d.Close()
}

func TestDispatcher_DispatchAfterClose(t *testing.T) {
	d, _ := newTestDispatcher(t)
	d.Register(EpisodeEnd, func(e Event) (any, error) { return nil, nil }, Buffered(4))

	d.Close()
	d.Close()

	_, err := d.Dispatch(Event{Kind: EpisodeEnd})
	assert.Error(t, err)
}

func TestDispatcher_LoggedHandler(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register(EpisodeEnd, func(e Event) (any, error) {
		return "ok", nil
	}, Logged())

	_, err := d.Dispatch(Event{Kind: EpisodeEnd})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(logger.snapshot()), 2)
}

func TestDispatcher_LoggedHandlerError(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register(EpisodeEnd, func(e Event) (any, error) {
		return nil, fmt.Errorf("test error")
	}, Logged())

	_, err := d.Dispatch(Event{Kind: EpisodeEnd})
	require.Error(t, err)

	hasError := false
	for _, msg := range logger.snapshot() {
		if strings.HasPrefix(msg, "ERROR") {
			hasError = true
			break
		}
	}
	assert.True(t, hasError, "expected error log message")
}

func TestDispatcher_BufferedErrorIsLogged(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register(StepRecorded, func(e Event) (any, error) {
		return nil, fmt.Errorf("disk full")
	}, Buffered(4))

	_, err := d.Dispatch(Event{Kind: StepRecorded})
	require.NoError(t, err)
	d.Close()

	msgs := logger.snapshot()
	require.NotEmpty(t, msgs)
	assert.Contains(t, msgs[len(msgs)-1], "disk full")
}

func TestDispatcher_HasHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register(EpisodeStart, func(e Event) (any, error) { return nil, nil })

	assert.True(t, d.HasHandler(EpisodeStart))
	assert.False(t, d.HasHandler(EpisodeEnd))
}

func TestDispatcher_CombinedOptions(t *testing.T) {
	d, logger := newTestDispatcher(t)

	var processed atomic.Int32
	d.Register(StepRecorded, func(e Event) (any, error) {
		processed.Add(1)
		return "done", nil
	}, Buffered(100), Logged())

	result, err := d.Dispatch(Event{Kind: StepRecorded})
	require.NoError(t, err)
	assert.Equal(t, "queued", result)

	d.Close()

	assert.Equal(t, int32(1), processed.Load())
	assert.GreaterOrEqual(t, len(logger.snapshot()), 2)
}

func TestDispatcher_LoggedIncludesEpisodeAndStep(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register(EpisodeStart, func(e Event) (any, error) {
		e.Episode.ID = 9
		return nil, nil
	}, Logged())
	d.Register(StepRecorded, func(e Event) (any, error) { return nil, nil }, Logged())

	_, err := d.Dispatch(Event{Kind: EpisodeStart, Episode: &core.Episode{EnvID: "JSBSim-v0"}})
	require.NoError(t, err)
	_, err = d.Dispatch(Event{Kind: StepRecorded, Step: &core.StepRecord{EpisodeID: 9, Step: 3}})
	require.NoError(t, err)

	msgs := logger.snapshot()
	require.Len(t, msgs, 4)
	assert.Contains(t, msgs[0], "episode 0 env JSBSim-v0")
	assert.Contains(t, msgs[1], "episode 9 env JSBSim-v0")
	assert.Contains(t, msgs[3], "episode 9 step 3")
}

func TestDispatcher_QueueMetrics(t *testing.T) {
	provider := metrics.NewProvider()
	t.Cleanup(func() { provider.Shutdown(context.Background()) })

	d, err := NewWithMeter(&testLogger{}, provider.MeterProvider().Meter("test"))
	require.NoError(t, err)

	release := make(chan struct{})
	d.Register(StepRecorded, func(e Event) (any, error) {
		<-release
		return nil, nil
	}, Buffered(1))

	// the worker holds the first event, the queue holds the second
	_, err = d.Dispatch(Event{Kind: StepRecorded})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, err := d.Dispatch(Event{Kind: StepRecorded})
		return err == nil
	}, time.Second, time.Millisecond)
	_, err = d.Dispatch(Event{Kind: StepRecorded})
	require.Error(t, err)

	close(release)
	d.Close()

	values, err := provider.Snapshot(context.Background())
	require.NoError(t, err)
	processed, ok := metrics.Find(values, "dispatcher.events.processed", "kind="+StepRecorded)
	require.True(t, ok)
	assert.Equal(t, 2.0, processed.Value)
	dropped, ok := metrics.Find(values, "dispatcher.events.dropped", "kind="+StepRecorded)
	require.True(t, ok)
	assert.GreaterOrEqual(t, dropped.Value, 1.0)
}
