package rollout

import (
	"fmt"
	"sync"

	"github.com/flightgym/flightgym/internal/dispatcher"
	"github.com/flightgym/flightgym/internal/storage"
)

// DefaultBufferSize is the step queue length used when none is configured.
const DefaultBufferSize = 1024

// StorageSink writes dispatched recording events to a storage backend.
// Episode starts are handled synchronously so the backend-assigned ID is
// visible to the runner; steps go through a blocking buffer; an episode end
// waits until every step of that episode has been handled.
type StorageSink struct {
	backend storage.Backend

	mu      sync.Mutex
	cond    *sync.Cond
	handled map[uint]uint
}

// AttachStorage registers handlers on d that persist events to backend.
func AttachStorage(d *dispatcher.Dispatcher, backend storage.Backend, bufferSize int) *StorageSink {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	s := &StorageSink{
		backend: backend,
		handled: make(map[uint]uint),
	}
	s.cond = sync.NewCond(&s.mu)

	d.Register(dispatcher.EpisodeStart, s.start, dispatcher.Logged())
	d.Register(dispatcher.StepRecorded, s.step, dispatcher.Buffered(bufferSize), dispatcher.Blocking())
	d.Register(dispatcher.EpisodeEnd, s.end, dispatcher.Logged())
	return s
}

func (s *StorageSink) start(e dispatcher.Event) (any, error) {
	if e.Episode == nil {
		return nil, fmt.Errorf("%s event without episode", e.Kind)
	}
	if err := s.backend.StartEpisode(e.Episode); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.handled[e.Episode.ID] = 0
	s.mu.Unlock()
	return e.Episode.ID, nil
}

func (s *StorageSink) step(e dispatcher.Event) (any, error) {
	if e.Step == nil {
		return nil, fmt.Errorf("%s event without step", e.Kind)
	}
	err := s.backend.RecordStep(e.Step)

	// failed writes still count so that the episode end never waits forever
	s.mu.Lock()
	s.handled[e.Step.EpisodeID]++
	s.mu.Unlock()
	s.cond.Broadcast()

	return nil, err
}

func (s *StorageSink) end(e dispatcher.Event) (any, error) {
	if e.Episode == nil {
		return nil, fmt.Errorf("%s event without episode", e.Kind)
	}
	id := e.Episode.ID

	s.mu.Lock()
	for s.handled[id] < e.Episode.Steps {
		s.cond.Wait()
	}
	delete(s.handled, id)
	s.mu.Unlock()

	return nil, s.backend.EndEpisode(e.Episode)
}
