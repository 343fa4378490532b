// SPDX-License-Identifier: MIT

package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streambridge/core/internal/loadable"
)

func slot(base string, content loadable.Loadable[string]) Slot[string] {
	return Slot[string]{
		Request: Request{Base: base, Path: Path{Resource: "meta", Type: "movie", ID: "tt1"}},
		Content: content,
	}
}

func TestSelectPrimary_FirstReadyWins(t *testing.T) {
	slots := []Slot[string]{
		slot("a", loadable.Err[string](NewError(ErrNotFound, "missing"))),
		slot("b", loadable.Loading[string]()),
		slot("c", loadable.Ready("first")),
		slot("d", loadable.Ready("second")),
	}
	got, idx, ok := SelectPrimary(slots)
	require.True(t, ok)
	assert.Equal(t, 2, idx)
	v, _ := got.Content.Value()
	assert.Equal(t, "first", v)
}

func TestSelectPrimary_AllErrReturnsFirst(t *testing.T) {
	slots := []Slot[string]{
		slot("a", loadable.Err[string](NewError(ErrEnv, "offline"))),
		slot("b", loadable.Err[string](NewError(ErrNotFound, "missing"))),
	}
	got, idx, ok := SelectPrimary(slots)
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	re, isResource := AsError(got.Content.Error())
	require.True(t, isResource)
	assert.Equal(t, ErrEnv, re.Kind)
}

func TestSelectPrimary_MixedPrefersFirstLoading(t *testing.T) {
	slots := []Slot[string]{
		slot("a", loadable.Err[string](NewError(ErrOther, "boom"))),
		slot("b", loadable.Loading[string]()),
		slot("c", loadable.Loading[string]()),
	}
	got, idx, ok := SelectPrimary(slots)
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.True(t, got.Content.IsLoading())
}

func TestSelectPrimary_Empty(t *testing.T) {
	got, _, ok := SelectPrimary[string](nil)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestErrorFormatting(t *testing.T) {
	err := NewError(ErrUnexpectedResponse, "status %d", 502)
	assert.Equal(t, "UnexpectedResponse: status 502", err.Error())
}
