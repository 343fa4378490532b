// SPDX-License-Identifier: MIT

package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streambridge/core/internal/analytics"
	"github.com/streambridge/core/internal/domain"
	"github.com/streambridge/core/internal/resource"
	"github.com/streambridge/core/internal/storage"
)

func seedJSON(t *testing.T, store storage.Store, key string, value any) {
	t.Helper()
	raw, err := json.Marshal(value)
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), key, raw))
}

func readyManager(t *testing.T, store storage.Store, opts ...ManagerOption) (*Manager, *eventCollector) {
	t.Helper()
	manager := NewManager(store, opts...)
	c := &eventCollector{done: make(chan struct{})}
	require.NoError(t, manager.Initialize(context.Background(), func(event Event) {
		c.mu.Lock()
		c.events = append(c.events, event)
		c.mu.Unlock()
	}))
	t.Cleanup(manager.Close)
	return manager, c
}

func TestManager_InitializeFromEmptyStore(t *testing.T) {
	manager, _ := readyManager(t, storage.NewMemoryStore())

	assert.Equal(t, StateReady, manager.State())
	assert.NoError(t, manager.InitError())

	var ctxState struct {
		Profile domain.Profile       `json:"profile"`
		Library domain.LibraryBucket `json:"library"`
	}
	require.NoError(t, json.Unmarshal(manager.GetState(FieldCtx), &ctxState))
	assert.NotEmpty(t, ctxState.Profile.UID, "a fresh boot must mint a default profile")
	assert.Equal(t, ctxState.Profile.UID, ctxState.Library.UID)
}

func TestManager_InitializeLoadsPersistedBuckets(t *testing.T) {
	store := storage.NewMemoryStore()
	seedJSON(t, store, storage.ProfileKey, domain.Profile{
		UID:    "persisted-uid",
		Addons: []domain.Descriptor{{TransportURL: addonURL}},
	})

	manager, _ := readyManager(t, store)

	var ctxState struct {
		Profile domain.Profile `json:"profile"`
	}
	require.NoError(t, json.Unmarshal(manager.GetState(FieldCtx), &ctxState))
	assert.Equal(t, "persisted-uid", ctxState.Profile.UID)
	require.Len(t, ctxState.Profile.Addons, 1)
}

func TestManager_LibraryMergeFullBucketWins(t *testing.T) {
	store := storage.NewMemoryStore()
	seedJSON(t, store, storage.ProfileKey, domain.Profile{UID: "uid-1"})

	recent := domain.NewLibraryBucket("uid-1")
	recent.Items["tt1"] = domain.LibraryItem{ID: "tt1", Name: "Recent Name", Type: "movie"}
	recent.Items["tt2"] = domain.LibraryItem{ID: "tt2", Name: "Recent Only", Type: "movie"}
	seedJSON(t, store, storage.LibraryRecentKey, recent)

	full := domain.NewLibraryBucket("uid-1")
	full.Items["tt1"] = domain.LibraryItem{ID: "tt1", Name: "Full Name", Type: "movie"}
	seedJSON(t, store, storage.LibraryKey, full)

	manager, _ := readyManager(t, store)

	var ctxState struct {
		Library domain.LibraryBucket `json:"library"`
	}
	require.NoError(t, json.Unmarshal(manager.GetState(FieldCtx), &ctxState))
	assert.Equal(t, "Full Name", ctxState.Library.Items["tt1"].Name)
	assert.Equal(t, "Recent Only", ctxState.Library.Items["tt2"].Name)
}

func TestManager_SecondInitializePanics(t *testing.T) {
	manager, _ := readyManager(t, storage.NewMemoryStore())

	require.PanicsWithValue(t,
		"runtime: unable to initialize more than once (state Ready)",
		func() { _ = manager.Initialize(context.Background(), nil) })
}

func TestManager_InitializeAfterFailurePanics(t *testing.T) {
	store := storage.NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), "schemaVersion", []byte("99")))

	manager := NewManager(store)
	err := manager.Initialize(context.Background(), nil)
	require.ErrorIs(t, err, storage.ErrSchemaTooNew)
	assert.Equal(t, StateFailed, manager.State())
	assert.ErrorIs(t, manager.InitError(), storage.ErrSchemaTooNew)

	require.PanicsWithValue(t,
		"runtime: unable to initialize more than once (state Failed)",
		func() { _ = manager.Initialize(context.Background(), nil) })
}

func TestManager_ReadBeforeReadyPanics(t *testing.T) {
	manager := NewManager(storage.NewMemoryStore())

	require.PanicsWithValue(t,
		"runtime: state read before ready (state Uninitialized)",
		func() { manager.GetState(FieldCtx) })
	require.PanicsWithValue(t,
		"runtime: dispatch before ready (state Uninitialized)",
		func() { manager.Dispatch(Action{Name: ActionUnload}, nil) })
}

// failingStore returns a fixed error from every read.
type failingStore struct {
	storage.Store
	err error
}

func (s failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, s.err
}

func TestManager_BucketLoadFailureIsTerminal(t *testing.T) {
	wantErr := errors.New("disk on fire")
	manager := NewManager(failingStore{Store: storage.NewMemoryStore(), err: wantErr})

	err := manager.Initialize(context.Background(), nil)
	require.ErrorIs(t, err, wantErr)
	assert.Equal(t, StateFailed, manager.State())
}

func TestManager_UnresolvableFieldYieldsNull(t *testing.T) {
	manager, _ := readyManager(t, storage.NewMemoryStore())
	assert.Equal(t, json.RawMessage("null"), manager.GetState(Field("board")))
}

func TestManager_DispatchPersistsContextChanges(t *testing.T) {
	store := storage.NewMemoryStore()
	manager, c := readyManager(t, store)

	manager.Dispatch(NewAction(ActionCtx, &CtxArgs{
		Name: CtxInstallAddon,
		Args: NewAction(CtxInstallAddon, &domain.Descriptor{
			TransportURL: addonURL,
			Manifest:     domain.Manifest{ID: "cinemeta"},
		}).Args,
	}), nil)

	require.Eventually(t, func() bool {
		raw, ok, err := store.Get(context.Background(), storage.ProfileKey)
		if err != nil || !ok {
			return false
		}
		var profile domain.Profile
		return json.Unmarshal(raw, &profile) == nil && len(profile.Addons) == 1
	}, time.Second, 5*time.Millisecond, "installed addon must be written through")

	require.Eventually(t, func() bool {
		events := c.snapshot()
		return len(events) == 1 && events[0].Name == EventProfileChanged
	}, time.Second, 5*time.Millisecond)
}

func TestManager_FieldRoutedDispatchUpdatesSlice(t *testing.T) {
	store := storage.NewMemoryStore()
	seedJSON(t, store, storage.ProfileKey, domain.Profile{
		UID:    "uid-1",
		Addons: []domain.Descriptor{{TransportURL: addonURL}},
	})
	manager, _ := readyManager(t, store, WithClock(func() time.Time {
		return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	}))

	field := FieldMetaDetails
	manager.Dispatch(NewAction(ActionLoad, &LoadArgs{MetaPath: metaPath()}), &field)
	manager.Dispatch(NewAction(ActionResourceResult, &ResourceResultArgs{
		Request:  resource.Request{Base: addonURL, Path: metaPath()},
		MetaItem: &domain.MetaItem{ID: "tt1", Type: "series", Name: "Foo"},
	}), &field)

	require.Eventually(t, func() bool {
		var snapshot struct {
			Title *string `json:"title"`
		}
		if err := json.Unmarshal(manager.GetState(FieldMetaDetails), &snapshot); err != nil {
			return false
		}
		return snapshot.Title != nil && *snapshot.Title == "Foo"
	}, time.Second, 5*time.Millisecond)
}

func TestManager_InstallAddonEmitsAnalytics(t *testing.T) {
	var (
		mu      sync.Mutex
		records []analytics.Record
	)
	emitter := analytics.NewEmitter(16, func(record analytics.Record) {
		mu.Lock()
		records = append(records, record)
		mu.Unlock()
	})
	defer emitter.Close()

	manager, _ := readyManager(t, storage.NewMemoryStore(), WithAnalytics(emitter))

	manager.Dispatch(NewAction(ActionCtx, &CtxArgs{
		Name: CtxInstallAddon,
		Args: NewAction(CtxInstallAddon, &domain.Descriptor{
			TransportURL: addonURL,
			Manifest:     domain.Manifest{ID: "cinemeta", Name: "Cinemeta"},
			Flags:        domain.Flags{Official: true},
		}).Args,
	}), nil)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(records) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "installAddon", records[0].Name)
}

func TestManager_NonInstallDispatchSkipsAnalytics(t *testing.T) {
	var (
		mu      sync.Mutex
		records int
	)
	emitter := analytics.NewEmitter(16, func(analytics.Record) {
		mu.Lock()
		records++
		mu.Unlock()
	})
	defer emitter.Close()

	manager, c := readyManager(t, storage.NewMemoryStore(), WithAnalytics(emitter))

	field := FieldMetaDetails
	manager.Dispatch(NewAction(ActionLoad, &LoadArgs{MetaPath: metaPath()}), &field)

	require.Eventually(t, func() bool {
		return len(c.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, records)
}
