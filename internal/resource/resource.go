// SPDX-License-Identifier: MIT

// Package resource models one addon resource fetch: the request descriptor
// that identifies it, the error taxonomy of its failure modes, and the slot
// pairing a request with its Loadable outcome.
package resource

import (
	"errors"
	"fmt"

	"github.com/streambridge/core/internal/loadable"
)

// Path addresses a single resource on an addon.
type Path struct {
	Resource string `json:"resource"`
	Type     string `json:"type"`
	ID       string `json:"id"`
}

// Request identifies one fetch attempt: which addon (by transport URL) and
// which resource. Request is the identity of a slot.
type Request struct {
	Base string `json:"base"`
	Path Path   `json:"path"`
}

// ErrorKind classifies fetch failures.
type ErrorKind string

const (
	ErrNotFound           ErrorKind = "NotFound"
	ErrUnexpectedResponse ErrorKind = "UnexpectedResponse"
	ErrEnv                ErrorKind = "Env"
	ErrOther              ErrorKind = "Other"
)

// Error is a fetch failure captured per slot. It is never raised by the
// projection; it only travels as the Err arm of a Loadable.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewError builds a classified fetch error.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AsError unwraps a resource error from err, if one is present.
func AsError(err error) (*Error, bool) {
	var re *Error
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// Slot pairs a fetch request with its outcome. A slot's content transitions
// Loading -> Ready|Err at most once; replacement of the slot set when the
// selection changes is the owning model's concern.
type Slot[T any] struct {
	Request Request             `json:"request"`
	Content loadable.Loadable[T] `json:"content"`
}

// SelectPrimary picks the slot whose content represents the screen's main
// subject:
//
//  1. the first Ready slot, if any ("first ready wins");
//  2. else, when every slot is Err, the first slot, surfacing its error;
//  3. else, the first Loading slot;
//  4. absent when the slice is empty.
//
// The index of the chosen slot is returned alongside it; ok is false when
// the slice is empty.
func SelectPrimary[T any](slots []Slot[T]) (slot *Slot[T], idx int, ok bool) {
	if len(slots) == 0 {
		return nil, 0, false
	}
	allErr := true
	firstLoading := -1
	for i := range slots {
		switch {
		case slots[i].Content.IsReady():
			return &slots[i], i, true
		case slots[i].Content.IsLoading():
			allErr = false
			if firstLoading < 0 {
				firstLoading = i
			}
		}
	}
	if allErr {
		return &slots[0], 0, true
	}
	return &slots[firstLoading], firstLoading, true
}
