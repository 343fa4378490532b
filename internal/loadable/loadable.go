// SPDX-License-Identifier: MIT

// Package loadable provides a three-state container for the outcome of one
// asynchronous resource fetch: Loading, Ready or Err. A value never
// transitions once it is Ready or Err; a new fetch attempt produces a new
// value.
package loadable

import (
	"encoding/json"
	"fmt"
)

// State discriminates the three arms of a Loadable.
type State uint8

const (
	StateLoading State = iota
	StateReady
	StateErr
)

// String returns the wire name of the state.
func (s State) String() string {
	switch s {
	case StateLoading:
		return "Loading"
	case StateReady:
		return "Ready"
	case StateErr:
		return "Err"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

// Loadable is a tagged union over exactly one of: Loading, Ready(T) or
// Err(error). The zero value is Loading.
type Loadable[T any] struct {
	state State
	value T
	err   error
}

// Loading returns a Loadable in the Loading state.
func Loading[T any]() Loadable[T] {
	return Loadable[T]{state: StateLoading}
}

// Ready wraps a successfully fetched value.
func Ready[T any](value T) Loadable[T] {
	return Loadable[T]{state: StateReady, value: value}
}

// Err wraps a fetch failure.
func Err[T any](err error) Loadable[T] {
	return Loadable[T]{state: StateErr, err: err}
}

// State returns the discriminant.
func (l Loadable[T]) State() State { return l.state }

func (l Loadable[T]) IsLoading() bool { return l.state == StateLoading }
func (l Loadable[T]) IsReady() bool   { return l.state == StateReady }
func (l Loadable[T]) IsErr() bool     { return l.state == StateErr }

// Value returns the Ready value and whether the container is Ready.
func (l Loadable[T]) Value() (T, bool) {
	return l.value, l.state == StateReady
}

// Error returns the Err arm, or nil when the container is not Err.
func (l Loadable[T]) Error() error {
	if l.state != StateErr {
		return nil
	}
	return l.err
}

// envelope is the wire shape shared by MarshalJSON and UnmarshalJSON.
type envelope struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// MarshalJSON serializes the tagged union as
// {"type":"Loading"} | {"type":"Ready","content":...} | {"type":"Err","error":"..."}.
func (l Loadable[T]) MarshalJSON() ([]byte, error) {
	switch l.state {
	case StateReady:
		content, err := json.Marshal(l.value)
		if err != nil {
			return nil, err
		}
		return json.Marshal(envelope{Type: "Ready", Content: content})
	case StateErr:
		return json.Marshal(envelope{Type: "Err", Error: l.err.Error()})
	default:
		return json.Marshal(envelope{Type: "Loading"})
	}
}

// UnmarshalJSON restores a Loadable from its wire shape. Err arms round-trip
// as opaque error strings.
func (l *Loadable[T]) UnmarshalJSON(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	switch env.Type {
	case "Loading":
		*l = Loading[T]()
	case "Ready":
		var value T
		if len(env.Content) > 0 {
			if err := json.Unmarshal(env.Content, &value); err != nil {
				return err
			}
		}
		*l = Ready(value)
	case "Err":
		*l = Err[T](fmt.Errorf("%s", env.Error))
	default:
		return fmt.Errorf("loadable: unknown state %q", env.Type)
	}
	return nil
}
