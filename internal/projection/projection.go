// SPDX-License-Identifier: MIT

package projection

import (
	"fmt"
	"time"

	"github.com/streambridge/core/internal/deeplink"
	"github.com/streambridge/core/internal/domain"
	"github.com/streambridge/core/internal/loadable"
	"github.com/streambridge/core/internal/resource"
)

// Project builds the details-screen snapshot from the current slot sets and
// global context. Absent or failed inputs degrade to absent fields; the
// display layer always receives a well-formed snapshot.
func Project(state *State, ctx *Context, now time.Time) *Snapshot {
	snapshot := &Snapshot{Selected: state.Selected}

	primary, _, hasPrimary := resource.SelectPrimary(state.MetaItems)

	if hasPrimary {
		if addon := ctx.Profile.Addon(primary.Request.Base); addon != nil {
			snapshot.MetaItem = projectMetaSlot(primary, addon, ctx, now)
		}
	}

	snapshot.Streams = projectStreamSlots(state, ctx, primary)
	snapshot.MetaExtensions = projectMetaExtensions(state.MetaItems, ctx)
	snapshot.Title = deriveTitle(state, primary)

	return snapshot
}

func projectMetaSlot(slot *resource.Slot[domain.MetaItem], addon *domain.Descriptor, ctx *Context, now time.Time) *MetaSlot {
	out := &MetaSlot{Addon: previewOf(addon)}
	switch {
	case slot.Content.IsReady():
		item, _ := slot.Content.Value()
		out.Content = loadable.Ready(enrichMetaItem(&item, slot.Request, ctx, now))
	case slot.Content.IsErr():
		out.Content = loadable.Err[MetaItem](slot.Content.Error())
	default:
		out.Content = loadable.Loading[MetaItem]()
	}
	return out
}

func enrichMetaItem(item *domain.MetaItem, request resource.Request, ctx *Context, now time.Time) MetaItem {
	videos := make([]Video, 0, len(item.Videos))
	for i := range item.Videos {
		video := item.Videos[i]
		videos = append(videos, Video{
			Video: video,
			Upcoming: item.BehaviorHints.HasScheduledVideos &&
				(item.Released == nil || item.Released.After(now)),
			// TODO: derive watched/progress from the library bucket once
			// watch state lands there.
			Watched:   false,
			Progress:  nil,
			Scheduled: item.BehaviorHints.HasScheduledVideos,
			DeepLinks: deeplink.FromVideo(&video, request),
		})
	}

	trailers := make([]Stream, 0, len(item.TrailerStreams))
	for i := range item.TrailerStreams {
		stream := item.TrailerStreams[i]
		trailers = append(trailers, Stream{
			Stream:    stream,
			DeepLinks: deeplink.FromStream(&stream),
		})
	}

	return MetaItem{
		MetaItem:       *item,
		Videos:         videos,
		TrailerStreams: trailers,
		InLibrary:      ctx.Library.Contains(item.ID),
		DeepLinks:      deeplink.FromMetaItem(item),
	}
}

// projectStreamSlots renders every attributable stream slot independently of
// the meta item's own load state. When a primary meta slot is selected its
// request becomes the provenance context of each stream's player route.
func projectStreamSlots(state *State, ctx *Context, primary *resource.Slot[domain.MetaItem]) []StreamsSlot {
	out := make([]StreamsSlot, 0, len(state.Streams))
	for i := range state.Streams {
		slot := &state.Streams[i]
		addon := ctx.Profile.Addon(slot.Request.Base)
		if addon == nil {
			continue
		}

		projected := StreamsSlot{Addon: previewOf(addon)}
		switch {
		case slot.Content.IsReady():
			streams, _ := slot.Content.Value()
			enriched := make([]Stream, 0, len(streams))
			for j := range streams {
				stream := streams[j]
				links := deeplink.FromStream(&stream)
				if primary != nil {
					links = deeplink.FromStreamWithContext(&stream, slot.Request, primary.Request)
				}
				enriched = append(enriched, Stream{Stream: stream, DeepLinks: links})
			}
			projected.Content = loadable.Ready(enriched)
		case slot.Content.IsErr():
			projected.Content = loadable.Err[[]Stream](slot.Content.Error())
		default:
			projected.Content = loadable.Loading[[]Stream]()
		}
		out = append(out, projected)
	}
	return out
}

// projectMetaExtensions collects meta-resource links from every successfully
// loaded, attributable meta slot and deduplicates them by URL, keeping the
// first occurrence in slot-then-link traversal order.
func projectMetaExtensions(slots []resource.Slot[domain.MetaItem], ctx *Context) []MetaExtension {
	seen := make(map[string]struct{})
	out := []MetaExtension{}
	for i := range slots {
		addon := ctx.Profile.Addon(slots[i].Request.Base)
		if addon == nil {
			continue
		}
		item, ok := slots[i].Content.Value()
		if !ok {
			continue
		}
		for _, link := range item.Links {
			if link.Category != domain.MetaCategory {
				continue
			}
			if _, dup := seen[link.URL]; dup {
				continue
			}
			seen[link.URL] = struct{}{}
			out = append(out, MetaExtension{
				URL:   link.URL,
				Name:  link.Name,
				Addon: previewOf(addon),
			})
		}
	}
	return out
}

// deriveTitle names the screen. When the selection drills into a known video
// and the addon declares no whole-item default video, the title carries the
// video and its SxE numbering; otherwise it is the item's own name.
func deriveTitle(state *State, primary *resource.Slot[domain.MetaItem]) *string {
	if primary == nil {
		return nil
	}
	item, ok := primary.Content.Value()
	if !ok {
		return nil
	}

	title := item.Name
	if state.Selected != nil && state.Selected.StreamPath != nil && item.BehaviorHints.DefaultVideoID == nil {
		if video := item.Video(state.Selected.StreamPath.ID); video != nil {
			if video.SeriesInfo != nil {
				title = fmt.Sprintf("%s - %s (%dx%d)",
					item.Name, video.Title, video.SeriesInfo.Season, video.SeriesInfo.Episode)
			} else {
				title = fmt.Sprintf("%s - %s", item.Name, video.Title)
			}
		}
	}
	return &title
}
