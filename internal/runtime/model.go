// SPDX-License-Identifier: MIT

package runtime

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/streambridge/core/internal/domain"
	"github.com/streambridge/core/internal/loadable"
	"github.com/streambridge/core/internal/log"
	"github.com/streambridge/core/internal/projection"
	"github.com/streambridge/core/internal/resource"
)

// LoadArgs selects what the details screen shows.
type LoadArgs = projection.Selected

// UninstallAddonArgs identifies the addon to remove.
type UninstallAddonArgs struct {
	TransportURL string `json:"transportUrl"`
}

// AddToLibraryArgs is the library entry to upsert.
type AddToLibraryArgs struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// RemoveFromLibraryArgs identifies the library entry to mark removed.
type RemoveFromLibraryArgs struct {
	ID string `json:"id"`
}

// ResourceResultArgs delivers one fetch completion into its slot. Exactly
// one of MetaItem, Streams or Error is set.
type ResourceResultArgs struct {
	Request  resource.Request `json:"request"`
	MetaItem *domain.MetaItem `json:"metaItem,omitempty"`
	Streams  []domain.Stream  `json:"streams,omitempty"`
	Error    *resource.Error  `json:"error,omitempty"`
}

// Model is the application state the runtime owns: the global context
// (profile, library) and the details-screen slice. All mutation happens on
// the runtime's dispatch loop; reads happen under the runtime's read lock.
type Model struct {
	profile     *domain.Profile
	library     *domain.LibraryBucket
	metaDetails projection.State
	logger      zerolog.Logger
}

// NewModel builds the model from the boot-time profile and library.
func NewModel(profile *domain.Profile, library *domain.LibraryBucket) *Model {
	return &Model{
		profile: profile,
		library: library,
		logger:  log.WithComponent("model"),
	}
}

// Profile exposes the current profile for read access.
func (m *Model) Profile() *domain.Profile { return m.profile }

// Library exposes the current library bucket for read access.
func (m *Model) Library() *domain.LibraryBucket { return m.library }

// ProjectMetaDetails builds the details-screen snapshot at the given time.
func (m *Model) ProjectMetaDetails(now time.Time) *projection.Snapshot {
	return projection.Project(&m.metaDetails, &projection.Context{
		Profile: m.profile,
		Library: m.library,
	}, now)
}

// update routes a globally dispatched action to every state slice.
func (m *Model) update(action Action) []Event {
	events := m.updateCtx(action)
	return append(events, m.updateMetaDetails(action)...)
}

// updateField routes an action to one named state slice. Unknown fields are
// ignored; field validation is a boundary concern.
func (m *Model) updateField(field Field, action Action) []Event {
	switch field {
	case FieldCtx:
		return m.updateCtx(action)
	case FieldMetaDetails:
		return m.updateMetaDetails(action)
	default:
		m.logger.Debug().Str(log.FieldField, string(field)).Msg("action for unknown field ignored")
		return nil
	}
}

func (m *Model) updateCtx(action Action) []Event {
	if action.Name != ActionCtx {
		return nil
	}
	inner, err := DecodeArgs[CtxArgs](action)
	if err != nil {
		m.logger.Warn().Err(err).Msg("undecodable ctx action ignored")
		return nil
	}

	switch inner.Name {
	case CtxInstallAddon:
		descriptor, err := DecodeArgs[domain.Descriptor](Action{Name: inner.Name, Args: inner.Args})
		if err != nil {
			m.logger.Warn().Err(err).Msg("undecodable install-addon args ignored")
			return nil
		}
		return m.installAddon(descriptor)

	case CtxUninstallAddon:
		args, err := DecodeArgs[UninstallAddonArgs](Action{Name: inner.Name, Args: inner.Args})
		if err != nil {
			m.logger.Warn().Err(err).Msg("undecodable uninstall-addon args ignored")
			return nil
		}
		return m.uninstallAddon(args.TransportURL)

	case CtxAddToLibrary:
		args, err := DecodeArgs[AddToLibraryArgs](Action{Name: inner.Name, Args: inner.Args})
		if err != nil {
			m.logger.Warn().Err(err).Msg("undecodable add-to-library args ignored")
			return nil
		}
		m.library.Items[args.ID] = domain.LibraryItem{
			ID:    args.ID,
			Name:  args.Name,
			Type:  args.Type,
			MTime: time.Now(),
		}
		return []Event{{Name: EventLibraryChanged, Field: FieldCtx}}

	case CtxRemoveFromLibrary:
		args, err := DecodeArgs[RemoveFromLibraryArgs](Action{Name: inner.Name, Args: inner.Args})
		if err != nil {
			m.logger.Warn().Err(err).Msg("undecodable remove-from-library args ignored")
			return nil
		}
		item, ok := m.library.Items[args.ID]
		if !ok {
			return nil
		}
		item.Removed = true
		item.MTime = time.Now()
		m.library.Items[args.ID] = item
		return []Event{{Name: EventLibraryChanged, Field: FieldCtx}}

	default:
		return nil
	}
}

func (m *Model) installAddon(descriptor *domain.Descriptor) []Event {
	for i := range m.profile.Addons {
		if m.profile.Addons[i].TransportURL == descriptor.TransportURL {
			m.profile.Addons[i] = *descriptor
			return []Event{{Name: EventProfileChanged, Field: FieldCtx}}
		}
	}
	m.profile.Addons = append(m.profile.Addons, *descriptor)
	return []Event{{Name: EventProfileChanged, Field: FieldCtx}}
}

func (m *Model) uninstallAddon(transportURL string) []Event {
	for i := range m.profile.Addons {
		if m.profile.Addons[i].TransportURL != transportURL {
			continue
		}
		if m.profile.Addons[i].Flags.Protected {
			m.logger.Warn().
				Str(log.FieldTransportURL, transportURL).
				Msg("refusing to uninstall protected addon")
			return nil
		}
		m.profile.Addons = append(m.profile.Addons[:i], m.profile.Addons[i+1:]...)
		return []Event{{Name: EventProfileChanged, Field: FieldCtx}}
	}
	return nil
}

func (m *Model) updateMetaDetails(action Action) []Event {
	switch action.Name {
	case ActionLoad:
		selected, err := DecodeArgs[LoadArgs](action)
		if err != nil {
			m.logger.Warn().Err(err).Msg("undecodable load args ignored")
			return nil
		}
		m.load(selected)
		return []Event{{Name: EventNewState, Field: FieldMetaDetails}}

	case ActionUnload:
		m.metaDetails = projection.State{}
		return []Event{{Name: EventNewState, Field: FieldMetaDetails}}

	case ActionResourceResult:
		args, err := DecodeArgs[ResourceResultArgs](action)
		if err != nil {
			m.logger.Warn().Err(err).Msg("undecodable resource result ignored")
			return nil
		}
		if m.applyResourceResult(args) {
			return []Event{{Name: EventNewState, Field: FieldMetaDetails}}
		}
		return nil

	default:
		return nil
	}
}

// load replaces the slot sets for a new selection. One Loading slot per
// installed addon is created; stale slots of the previous selection are
// discarded, not cancelled.
func (m *Model) load(selected *LoadArgs) {
	m.metaDetails = projection.State{Selected: selected}

	m.metaDetails.MetaItems = make([]resource.Slot[domain.MetaItem], 0, len(m.profile.Addons))
	for _, addon := range m.profile.Addons {
		m.metaDetails.MetaItems = append(m.metaDetails.MetaItems, resource.Slot[domain.MetaItem]{
			Request: resource.Request{Base: addon.TransportURL, Path: selected.MetaPath},
			Content: loadable.Loading[domain.MetaItem](),
		})
	}

	if selected.StreamPath == nil {
		return
	}
	m.metaDetails.Streams = make([]resource.Slot[[]domain.Stream], 0, len(m.profile.Addons))
	for _, addon := range m.profile.Addons {
		m.metaDetails.Streams = append(m.metaDetails.Streams, resource.Slot[[]domain.Stream]{
			Request: resource.Request{Base: addon.TransportURL, Path: *selected.StreamPath},
			Content: loadable.Loading[[]domain.Stream](),
		})
	}
}

// applyResourceResult transitions the slot identified by the request.
// Results for unknown requests (stale selections) and for slots that
// already left Loading are dropped: a slot transitions at most once.
func (m *Model) applyResourceResult(args *ResourceResultArgs) bool {
	switch args.Request.Path.Resource {
	case "meta":
		for i := range m.metaDetails.MetaItems {
			slot := &m.metaDetails.MetaItems[i]
			if slot.Request != args.Request || !slot.Content.IsLoading() {
				continue
			}
			if args.Error != nil {
				slot.Content = loadable.Err[domain.MetaItem](args.Error)
			} else if args.MetaItem != nil {
				slot.Content = loadable.Ready(*args.MetaItem)
			} else {
				return false
			}
			return true
		}
	case "stream":
		for i := range m.metaDetails.Streams {
			slot := &m.metaDetails.Streams[i]
			if slot.Request != args.Request || !slot.Content.IsLoading() {
				continue
			}
			if args.Error != nil {
				slot.Content = loadable.Err[[]domain.Stream](args.Error)
			} else {
				slot.Content = loadable.Ready(args.Streams)
			}
			return true
		}
	}
	m.logger.Debug().
		Str(log.FieldPath, args.Request.Path.Resource+"/"+args.Request.Path.ID).
		Msg("resource result for unknown or settled slot dropped")
	return false
}
