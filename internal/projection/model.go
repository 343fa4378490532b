// SPDX-License-Identifier: MIT

// Package projection reconciles the concurrently loaded resource slots of a
// details screen into one immutable, UI-ready snapshot. The engine is a pure
// read-and-transform: it never mutates its inputs, never fails, and every
// call produces a fresh snapshot that aliases no mutable runtime state.
package projection

import (
	"github.com/streambridge/core/internal/deeplink"
	"github.com/streambridge/core/internal/domain"
	"github.com/streambridge/core/internal/loadable"
	"github.com/streambridge/core/internal/resource"
)

// Selected names what the details screen is showing: the meta resource path
// and, when the user drilled into a video, the stream resource path.
type Selected struct {
	MetaPath   resource.Path  `json:"metaPath"`
	StreamPath *resource.Path `json:"streamPath,omitempty"`
}

// State is the projection input owned by the runtime model: the full ordered
// slot sets of the current details screen.
type State struct {
	Selected  *Selected
	MetaItems []resource.Slot[domain.MetaItem]
	Streams   []resource.Slot[[]domain.Stream]
}

// Context is the ancillary global state a projection reads: installed addons
// and library membership.
type Context struct {
	Profile *domain.Profile
	Library *domain.LibraryBucket
}

// ManifestPreview is the addon manifest subset shown in the details view.
type ManifestPreview struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Logo string `json:"logo,omitempty"`
}

// DescriptorPreview attributes projected content to its installed addon.
type DescriptorPreview struct {
	TransportURL string          `json:"transportUrl"`
	Manifest     ManifestPreview `json:"manifest"`
}

// Stream is a playable source enriched with its player route.
type Stream struct {
	domain.Stream
	DeepLinks deeplink.Stream `json:"deepLinks"`
}

// Video is a video enriched with display flags and routes. Watched and
// Progress are explicit placeholders.
type Video struct {
	domain.Video
	Upcoming  bool           `json:"upcoming"`
	Watched   bool           `json:"watched"`
	Progress  *float64       `json:"progress,omitempty"`
	Scheduled bool           `json:"scheduled"`
	DeepLinks deeplink.Video `json:"deepLinks"`
}

// MetaItem is the enriched main subject of the screen.
type MetaItem struct {
	domain.MetaItem
	Videos         []Video           `json:"videos"`
	TrailerStreams []Stream          `json:"trailerStreams"`
	InLibrary      bool              `json:"inLibrary"`
	DeepLinks      deeplink.MetaItem `json:"deepLinks"`
}

// MetaSlot is the attributed outcome of the primary meta fetch.
type MetaSlot struct {
	Content loadable.Loadable[MetaItem] `json:"content"`
	Addon   DescriptorPreview           `json:"addon"`
}

// StreamsSlot is the attributed outcome of one stream fetch.
type StreamsSlot struct {
	Content loadable.Loadable[[]Stream] `json:"content"`
	Addon   DescriptorPreview           `json:"addon"`
}

// MetaExtension is a deduplicated meta-resource link contributed by a
// successfully loaded slot.
type MetaExtension struct {
	URL   string            `json:"url"`
	Name  string            `json:"name"`
	Addon DescriptorPreview `json:"addon"`
}

// Snapshot is the single serializable view model of the details screen.
// It is immutable once produced and valid for this projection call only.
type Snapshot struct {
	Selected       *Selected       `json:"selected"`
	MetaItem       *MetaSlot       `json:"metaItem"`
	Streams        []StreamsSlot   `json:"streams"`
	MetaExtensions []MetaExtension `json:"metaExtensions"`
	Title          *string         `json:"title,omitempty"`
}

func previewOf(addon *domain.Descriptor) DescriptorPreview {
	return DescriptorPreview{
		TransportURL: addon.TransportURL,
		Manifest: ManifestPreview{
			ID:   addon.Manifest.ID,
			Name: addon.Manifest.Name,
			Logo: addon.Manifest.Logo,
		},
	}
}
