// SPDX-License-Identifier: MIT

package loadable

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroValueIsLoading(t *testing.T) {
	var l Loadable[int]
	assert.True(t, l.IsLoading())
	assert.False(t, l.IsReady())
	assert.False(t, l.IsErr())
}

func TestReady(t *testing.T) {
	l := Ready("hello")
	require.True(t, l.IsReady())

	v, ok := l.Value()
	require.True(t, ok)
	assert.Equal(t, "hello", v)
	assert.NoError(t, l.Error())
}

func TestErr(t *testing.T) {
	sentinel := errors.New("upstream gone")
	l := Err[string](sentinel)
	require.True(t, l.IsErr())
	assert.Equal(t, sentinel, l.Error())

	_, ok := l.Value()
	assert.False(t, ok)
}

func TestJSONRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		in   Loadable[int]
		want string
	}{
		{"loading", Loading[int](), `{"type":"Loading"}`},
		{"ready", Ready(7), `{"type":"Ready","content":7}`},
		{"err", Err[int](errors.New("boom")), `{"type":"Err","error":"boom"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(tc.in)
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(data))

			var back Loadable[int]
			require.NoError(t, json.Unmarshal(data, &back))
			assert.Equal(t, tc.in.State(), back.State())
		})
	}
}

func TestUnmarshalUnknownState(t *testing.T) {
	var l Loadable[int]
	err := json.Unmarshal([]byte(`{"type":"Pending"}`), &l)
	assert.Error(t, err)
}
