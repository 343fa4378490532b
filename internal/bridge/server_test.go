// SPDX-License-Identifier: MIT

package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streambridge/core/internal/domain"
	"github.com/streambridge/core/internal/resource"
	"github.com/streambridge/core/internal/runtime"
	"github.com/streambridge/core/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server, storage.Store) {
	t.Helper()
	store := storage.NewMemoryStore()
	manager := runtime.NewManager(store)
	t.Cleanup(manager.Close)
	server := NewServer(manager, Options{})
	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)
	return server, ts, store
}

func initialize(t *testing.T, ts *httptest.Server) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/v1/runtime/initialize", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestInitialize_OnceThenConflict(t *testing.T) {
	_, ts, _ := newTestServer(t)

	initialize(t, ts)

	resp, err := http.Post(ts.URL+"/api/v1/runtime/initialize", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["error"], "Ready")
}

func TestGetState_BeforeReadyUnavailable(t *testing.T) {
	_, ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/state?field=ctx")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestGetState_CtxAndUnresolvableField(t *testing.T) {
	_, ts, _ := newTestServer(t)
	initialize(t, ts)

	resp, err := http.Get(ts.URL + "/api/v1/state?field=ctx")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var ctxState struct {
		Profile domain.Profile `json:"profile"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ctxState))
	assert.NotEmpty(t, ctxState.Profile.UID)

	resp, err = http.Get(ts.URL + "/api/v1/state?field=board")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var raw json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.Equal(t, "null", string(raw))
}

func TestGetState_MissingFieldParam(t *testing.T) {
	_, ts, _ := newTestServer(t)
	initialize(t, ts)

	resp, err := http.Get(ts.URL + "/api/v1/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func postDispatch(t *testing.T, ts *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/v1/dispatch", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func TestDispatch_InstallAddonUpdatesProfile(t *testing.T) {
	_, ts, _ := newTestServer(t)
	initialize(t, ts)

	resp := postDispatch(t, ts, `{
		"action": {
			"action": "Ctx",
			"args": {
				"action": "InstallAddon",
				"args": {
					"transportUrl": "https://cinemeta.example/manifest.json",
					"manifest": {"id": "cinemeta", "name": "Cinemeta", "version": "1.0.0"},
					"flags": {"official": true}
				}
			}
		}
	}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	require.Eventually(t, func() bool {
		resp, err := http.Get(ts.URL + "/api/v1/state?field=ctx")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var ctxState struct {
			Profile domain.Profile `json:"profile"`
		}
		if json.NewDecoder(resp.Body).Decode(&ctxState) != nil {
			return false
		}
		return len(ctxState.Profile.Addons) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestDispatch_MalformedPayloadSilentlyDropped(t *testing.T) {
	_, ts, _ := newTestServer(t)
	initialize(t, ts)

	for _, body := range []string{
		`{not json`,
		`{"action": {"args": {}}}`,
		`{}`,
	} {
		resp := postDispatch(t, ts, body)
		resp.Body.Close()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode, "payload %q", body)
	}
}

func TestDispatch_BeforeReadyUnavailable(t *testing.T) {
	_, ts, _ := newTestServer(t)

	resp := postDispatch(t, ts, `{"action":{"action":"Unload"}}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestDispatch_FieldRoutedLoad(t *testing.T) {
	_, ts, store := newTestServer(t)

	// Seed one addon so Load creates a slot.
	profile := domain.Profile{
		UID:    "uid-1",
		Addons: []domain.Descriptor{{TransportURL: "https://cinemeta.example/manifest.json"}},
	}
	raw, err := json.Marshal(profile)
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), storage.ProfileKey, raw))

	initialize(t, ts)

	resp := postDispatch(t, ts, `{
		"field": "meta_details",
		"action": {
			"action": "Load",
			"args": {"metaPath": {"resource": "meta", "type": "series", "id": "tt1"}}
		}
	}`)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	require.Eventually(t, func() bool {
		resp, err := http.Get(ts.URL + "/api/v1/state?field=meta_details")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var snapshot struct {
			Selected *struct {
				MetaPath resource.Path `json:"metaPath"`
			} `json:"selected"`
		}
		if json.NewDecoder(resp.Body).Decode(&snapshot) != nil {
			return false
		}
		return snapshot.Selected != nil && snapshot.Selected.MetaPath.ID == "tt1"
	}, time.Second, 5*time.Millisecond)
}

func TestEvents_StreamDeliversInOrder(t *testing.T) {
	_, ts, _ := newTestServer(t)
	initialize(t, ts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/v1/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// Subscription races the dispatch below; give the handler a moment.
	time.Sleep(50 * time.Millisecond)

	dispatchResp := postDispatch(t, ts, `{
		"field": "meta_details",
		"action": {
			"action": "Load",
			"args": {"metaPath": {"resource": "meta", "type": "series", "id": "tt1"}}
		}
	}`)
	dispatchResp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	var eventLine, dataLine string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			eventLine = strings.TrimPrefix(line, "event: ")
		}
		if strings.HasPrefix(line, "data: ") {
			dataLine = strings.TrimPrefix(line, "data: ")
			break
		}
	}
	require.Equal(t, "NewState", eventLine)

	var event runtime.Event
	require.NoError(t, json.Unmarshal([]byte(dataLine), &event))
	assert.Equal(t, runtime.FieldMetaDetails, event.Field)
}

func TestHealthReportsLifecycleState(t *testing.T) {
	_, ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Uninitialized", body["state"])
}

func TestRateLimitExceeded(t *testing.T) {
	store := storage.NewMemoryStore()
	manager := runtime.NewManager(store)
	t.Cleanup(manager.Close)
	ts := httptest.NewServer(NewServer(manager, Options{RateLimit: 2}).Router())
	t.Cleanup(ts.Close)

	var last int
	for i := 0; i < 5; i++ {
		resp, err := http.Get(ts.URL + "/healthz")
		require.NoError(t, err)
		resp.Body.Close()
		last = resp.StatusCode
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}
