// SPDX-License-Identifier: MIT

package runtime

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/streambridge/core/internal/domain"
	"github.com/streambridge/core/internal/log"
	"github.com/streambridge/core/internal/metrics"
)

// DefaultEventBuffer is the bounded buffer of pending notifications between
// the dispatch loop and the forwarding task.
const DefaultEventBuffer = 1000

// Persister receives the profile and library after a context-changing
// action, off the dispatch loop. Used by the lifecycle manager to write
// buckets through to storage.
type Persister func(profile *domain.Profile, library *domain.LibraryBucket)

// Runtime owns the model and processes commands serially on an internal
// loop. Reads take the shared lock; the loop takes the exclusive lock per
// action, so a reader never observes a slot mid-mutation.
type Runtime struct {
	mu      sync.RWMutex
	model   *Model
	queue   chan queuedAction
	events  chan Event
	done    chan struct{}
	closeMu sync.RWMutex
	closed  bool
	once    sync.Once
	persist Persister
	logger  zerolog.Logger
}

type queuedAction struct {
	action Action
	field  *Field
}

// New starts a runtime over the model. The initial effect set is dispatched
// before any external command. The returned channel carries events in
// emission order and is closed when the runtime closes; the bounded buffer
// absorbs sink back-pressure.
func New(model *Model, effects []Action, buffer int) (*Runtime, <-chan Event) {
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	r := &Runtime{
		model:  model,
		queue:  make(chan queuedAction, 64),
		events: make(chan Event, buffer),
		done:   make(chan struct{}),
		logger: log.WithComponent("runtime"),
	}
	go r.loop()
	for _, effect := range effects {
		r.Dispatch(effect)
	}
	return r, r.events
}

// SetPersister attaches the write-through hook. Must be called before the
// runtime receives commands.
func (r *Runtime) SetPersister(persist Persister) {
	r.persist = persist
}

// Dispatch enqueues a globally routed command.
func (r *Runtime) Dispatch(action Action) {
	r.enqueue(queuedAction{action: action})
}

// DispatchToField enqueues a command routed to one named state slice.
func (r *Runtime) DispatchToField(field Field, action Action) {
	r.enqueue(queuedAction{action: action, field: &field})
}

func (r *Runtime) enqueue(qa queuedAction) {
	r.closeMu.RLock()
	defer r.closeMu.RUnlock()
	if r.closed {
		r.logger.Debug().Str(log.FieldAction, qa.action.Name).Msg("dispatch after close dropped")
		return
	}
	r.queue <- qa
}

// View runs fn with read access to the model. The model must not be
// retained or mutated; values derived from it are only valid inside fn
// unless copied.
func (r *Runtime) View(fn func(*Model)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn(r.model)
}

func (r *Runtime) loop() {
	defer close(r.done)
	for qa := range r.queue {
		r.mu.Lock()
		var events []Event
		if qa.field != nil {
			events = r.model.updateField(*qa.field, qa.action)
		} else {
			events = r.model.update(qa.action)
		}
		ctxChanged := false
		for _, event := range events {
			if event.Name == EventProfileChanged || event.Name == EventLibraryChanged {
				ctxChanged = true
			}
		}
		r.mu.Unlock()

		if ctxChanged && r.persist != nil {
			r.persist(r.model.profile, r.model.library)
		}

		// Blocking send: when the buffer is full the loop waits for the
		// forwarding task instead of dropping events.
		for _, event := range events {
			r.events <- event
			metrics.EventBufferDepth.Set(float64(len(r.events)))
		}
	}
	close(r.events)
}

// Close stops the dispatch loop and closes the event channel after all
// queued commands are processed. Dispatches racing with Close are dropped.
func (r *Runtime) Close() {
	r.once.Do(func() {
		r.closeMu.Lock()
		r.closed = true
		r.closeMu.Unlock()
		close(r.queue)
		<-r.done
	})
}
