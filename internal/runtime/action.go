// SPDX-License-Identifier: MIT

// Package runtime owns the process-wide domain runtime: the application
// model, the serial dispatch loop with its bounded event buffer, and the
// lifecycle manager that boots everything exactly once.
package runtime

import (
	"encoding/json"
	"fmt"
)

// Field names a state slice a command can be routed to, or a slice a
// get-state call reads.
type Field string

const (
	FieldCtx         Field = "ctx"
	FieldMetaDetails Field = "meta_details"
)

// Action is the decoded command envelope: a kind tag plus kind-specific
// arguments. Decoding of the inner args happens at the reducer that handles
// the kind.
type Action struct {
	Name string          `json:"action"`
	Args json.RawMessage `json:"args,omitempty"`
}

// Top-level action kinds.
const (
	ActionCtx            = "Ctx"
	ActionLoad           = "Load"
	ActionUnload         = "Unload"
	ActionResourceResult = "ResourceResult"
)

// Ctx action kinds (inner envelope of ActionCtx).
const (
	CtxInstallAddon      = "InstallAddon"
	CtxUninstallAddon    = "UninstallAddon"
	CtxAddToLibrary      = "AddToLibrary"
	CtxRemoveFromLibrary = "RemoveFromLibrary"
)

// CtxArgs is the inner envelope of a Ctx action.
type CtxArgs struct {
	Name string          `json:"action"`
	Args json.RawMessage `json:"args,omitempty"`
}

// DecodeArgs decodes an action's args into the reducer's expected shape.
func DecodeArgs[T any](action Action) (*T, error) {
	var args T
	if len(action.Args) == 0 {
		return nil, fmt.Errorf("action %s: missing args", action.Name)
	}
	if err := json.Unmarshal(action.Args, &args); err != nil {
		return nil, fmt.Errorf("action %s: decode args: %w", action.Name, err)
	}
	return &args, nil
}

// NewAction builds an action envelope, encoding args. It panics on
// unencodable args; action payloads are plain data types.
func NewAction(name string, args any) Action {
	if args == nil {
		return Action{Name: name}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		panic(fmt.Sprintf("runtime: encode %s args: %v", name, err))
	}
	return Action{Name: name, Args: raw}
}

// Event is one runtime notification, emitted in order, consumed by the
// notification sink the process was initialized with.
type Event struct {
	Name  string `json:"name"`
	Field Field  `json:"field,omitempty"`
}

// Event names.
const (
	EventNewState       = "NewState"
	EventProfileChanged = "ProfileChanged"
	EventLibraryChanged = "LibraryChanged"
)
