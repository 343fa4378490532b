// SPDX-License-Identifier: MIT

package runtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/streambridge/core/internal/analytics"
	"github.com/streambridge/core/internal/domain"
	"github.com/streambridge/core/internal/log"
	"github.com/streambridge/core/internal/metrics"
	"github.com/streambridge/core/internal/storage"
)

// State is the lifecycle of the runtime handle. Ready and Failed are
// terminal for the process; a second initialization attempt in any
// non-Uninitialized state is a programming error.
type State uint8

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateFailed
)

// String returns the state's name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateLoading:
		return "Loading"
	case StateReady:
		return "Ready"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Sink receives every runtime event exactly once, in emission order.
type Sink func(Event)

// Manager owns one runtime instance and sequences its startup: schema
// migration, concurrent bucket loads, library merge, runtime construction
// and event-stream wiring. It is an explicit, injectable object rather than
// process-global state so tests can construct independent instances.
type Manager struct {
	store     storage.Store
	analytics *analytics.Emitter
	now       func() time.Time
	buffer    int
	logger    zerolog.Logger

	mu          sync.RWMutex
	state       State
	runtime     *Runtime
	initErr     error
	forwardDone chan struct{}
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithAnalytics attaches the side-channel emitter used by the pre-dispatch
// hook.
func WithAnalytics(emitter *analytics.Emitter) ManagerOption {
	return func(m *Manager) { m.analytics = emitter }
}

// WithClock overrides the projection timestamp source (tests).
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// WithEventBuffer overrides the bounded event buffer size (tests).
func WithEventBuffer(buffer int) ManagerOption {
	return func(m *Manager) { m.buffer = buffer }
}

// NewManager builds an uninitialized manager over the given bucket store.
func NewManager(store storage.Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:  store,
		now:    time.Now,
		buffer: DefaultEventBuffer,
		logger: log.WithComponent("manager"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State reports the handle's lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// InitError returns the error that moved the handle to Failed, if any.
func (m *Manager) InitError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initErr
}

// Initialize boots the runtime exactly once per Manager: it migrates the
// storage schema, loads the three persisted buckets concurrently, merges
// the library (recent bucket first, full bucket second, so full-bucket
// values win), constructs and starts the runtime, and attaches a perpetual
// forwarding task that hands every event to sink in emission order.
//
// Any step's failure short-circuits the rest, moves the handle to Failed
// with the originating error and returns it. Calling Initialize again in
// any non-Uninitialized state panics: the handle is terminal and must never
// be silently reset.
func (m *Manager) Initialize(ctx context.Context, sink Sink) error {
	m.mu.Lock()
	if m.state != StateUninitialized {
		state := m.state
		m.mu.Unlock()
		panic("runtime: unable to initialize more than once (state " + state.String() + ")")
	}
	m.state = StateLoading
	m.mu.Unlock()

	runtime, events, err := m.boot(ctx)
	if err != nil {
		m.mu.Lock()
		m.state = StateFailed
		m.initErr = err
		m.mu.Unlock()
		m.logger.Error().Err(err).Msg("runtime initialization failed")
		return err
	}

	if sink == nil {
		sink = func(Event) {}
	}
	forwardDone := make(chan struct{})
	go func() {
		defer close(forwardDone)
		for event := range events {
			sink(event)
			metrics.EventsForwardedTotal.Inc()
			metrics.EventBufferDepth.Set(float64(len(events)))
		}
	}()

	m.mu.Lock()
	m.state = StateReady
	m.runtime = runtime
	m.forwardDone = forwardDone
	m.mu.Unlock()
	m.logger.Info().
		Str(log.FieldNewState, StateReady.String()).
		Msg("runtime initialized")
	return nil
}

func (m *Manager) boot(ctx context.Context) (*Runtime, <-chan Event, error) {
	if err := storage.MigrateSchema(ctx, m.store); err != nil {
		return nil, nil, err
	}

	var (
		profile *domain.Profile
		recent  *domain.LibraryBucket
		full    *domain.LibraryBucket
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		profile, err = storage.GetJSON[domain.Profile](gctx, m.store, storage.ProfileKey)
		return err
	})
	g.Go(func() (err error) {
		recent, err = storage.GetJSON[domain.LibraryBucket](gctx, m.store, storage.LibraryRecentKey)
		return err
	})
	g.Go(func() (err error) {
		full, err = storage.GetJSON[domain.LibraryBucket](gctx, m.store, storage.LibraryKey)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	if profile == nil {
		profile = &domain.Profile{UID: uuid.NewString()}
		m.logger.Info().Str(log.FieldProfileID, profile.UID).Msg("no persisted profile, created default")
	}

	library := domain.NewLibraryBucket(profile.UID)
	library.Merge(recent)
	library.Merge(full)

	model := NewModel(profile, library)
	runtime, events := New(model, nil, m.buffer)
	runtime.SetPersister(m.persistCtx)
	return runtime, events, nil
}

// persistCtx writes the profile and full library bucket through to storage.
// Persistence failures are logged, never propagated: dispatch must not fail
// on a storage hiccup.
func (m *Manager) persistCtx(profile *domain.Profile, library *domain.LibraryBucket) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := storage.PutJSON(ctx, m.store, storage.ProfileKey, profile); err != nil {
		m.logger.Warn().Err(err).Str(log.FieldBucketKey, storage.ProfileKey).Msg("profile write-through failed")
	}
	if err := storage.PutJSON(ctx, m.store, storage.LibraryKey, library); err != nil {
		m.logger.Warn().Err(err).Str(log.FieldBucketKey, storage.LibraryKey).Msg("library write-through failed")
	}
}

var null = json.RawMessage("null")

// GetState serializes the state slice named by field. Unresolvable fields
// yield JSON null rather than an error; calling before the handle is Ready
// panics, because that is caller misuse, not a data condition.
func (m *Manager) GetState(field Field) json.RawMessage {
	m.mu.RLock()
	if m.state != StateReady {
		state := m.state
		m.mu.RUnlock()
		panic("runtime: state read before ready (state " + state.String() + ")")
	}
	runtime := m.runtime
	m.mu.RUnlock()

	out := null
	runtime.View(func(model *Model) {
		switch field {
		case FieldMetaDetails:
			start := time.Now()
			snapshot := model.ProjectMetaDetails(m.now())
			metrics.ProjectionDuration.Observe(time.Since(start).Seconds())
			out = marshalState(snapshot, m.logger)
		case FieldCtx:
			out = marshalState(struct {
				Profile *domain.Profile       `json:"profile"`
				Library *domain.LibraryBucket `json:"library"`
			}{model.Profile(), model.Library()}, m.logger)
		}
	})
	return out
}

func marshalState(value any, logger zerolog.Logger) json.RawMessage {
	raw, err := json.Marshal(value)
	if err != nil {
		logger.Error().Err(err).Msg("state serialization failed")
		return null
	}
	return raw
}

// Dispatch routes a decoded command into the runtime: to the named state
// slice when field is non-nil, globally otherwise. Install-addon commands
// additionally emit a fire-and-forget analytics record before routing.
// Panics before the handle is Ready.
func (m *Manager) Dispatch(action Action, field *Field) {
	m.mu.RLock()
	if m.state != StateReady {
		state := m.state
		m.mu.RUnlock()
		panic("runtime: dispatch before ready (state " + state.String() + ")")
	}
	runtime := m.runtime
	m.mu.RUnlock()

	m.preDispatch(action)

	if field != nil {
		metrics.IncDispatch(action.Name, "field")
		runtime.DispatchToField(*field, action)
		return
	}
	metrics.IncDispatch(action.Name, "global")
	runtime.Dispatch(action)
}

// preDispatch synthesizes side-channel records for selected command kinds.
// It never blocks and never fails the dispatch.
func (m *Manager) preDispatch(action Action) {
	if m.analytics == nil || action.Name != ActionCtx {
		return
	}
	inner, err := DecodeArgs[CtxArgs](action)
	if err != nil || inner.Name != CtxInstallAddon {
		return
	}
	descriptor, err := DecodeArgs[domain.Descriptor](Action{Name: inner.Name, Args: inner.Args})
	if err != nil {
		return
	}
	m.analytics.TrackInstallAddon(descriptor)
}

// Close stops the runtime and waits for the forwarding task to drain.
// Intended for tests and orderly daemon shutdown; the handle stays terminal.
func (m *Manager) Close() {
	m.mu.RLock()
	runtime := m.runtime
	forwardDone := m.forwardDone
	m.mu.RUnlock()

	if runtime != nil {
		runtime.Close()
	}
	if forwardDone != nil {
		<-forwardDone
	}
}
