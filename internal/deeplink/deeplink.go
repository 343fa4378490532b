// SPDX-License-Identifier: MIT

// Package deeplink computes navigable fragment routes for meta items, videos
// and streams. Builders are pure: given an entity and (optionally) the
// request it was fetched with, they return the route a client navigates to.
package deeplink

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/streambridge/core/internal/domain"
	"github.com/streambridge/core/internal/resource"
)

// MetaItem are the routes derived from a meta item on its own.
type MetaItem struct {
	MetaDetailsVideos  string `json:"metaDetailsVideos,omitempty"`
	MetaDetailsStreams string `json:"metaDetailsStreams,omitempty"`
}

// Video are the routes derived from a video and its originating request.
type Video struct {
	MetaDetailsStreams string `json:"metaDetailsStreams"`
	Player             string `json:"player,omitempty"`
}

// Stream is the route that plays a stream.
type Stream struct {
	Player string `json:"player"`
}

// FromMetaItem builds the item's own routes. The streams route is only
// present when the addon declares a default video for the whole item.
func FromMetaItem(item *domain.MetaItem) MetaItem {
	links := MetaItem{
		MetaDetailsVideos: fmt.Sprintf("#/metadetails/%s/%s",
			escapeComponent(item.Type), escapeComponent(item.ID)),
	}
	if item.BehaviorHints.DefaultVideoID != nil {
		links.MetaDetailsStreams = fmt.Sprintf("#/metadetails/%s/%s/%s",
			escapeComponent(item.Type), escapeComponent(item.ID),
			escapeComponent(*item.BehaviorHints.DefaultVideoID))
	}
	return links
}

// FromVideo builds a video's routes using the request that loaded its meta
// item, so the route reconstructs provenance. A direct player route is only
// derivable when the video carries exactly one stream.
func FromVideo(video *domain.Video, request resource.Request) Video {
	links := Video{
		MetaDetailsStreams: fmt.Sprintf("#/metadetails/%s/%s/%s",
			escapeComponent(request.Path.Type), escapeComponent(request.Path.ID),
			escapeComponent(video.ID)),
	}
	if len(video.Streams) == 1 {
		links.Player = FromStream(&video.Streams[0]).Player
	}
	return links
}

// FromStream builds a context-free player route carrying only the encoded
// stream payload.
func FromStream(stream *domain.Stream) Stream {
	return Stream{Player: fmt.Sprintf("#/player/%s", encodeStream(stream))}
}

// FromStreamWithContext builds a player route that references back to the
// originating catalog item: the stream's own request plus the primary meta
// slot's request.
func FromStreamWithContext(stream *domain.Stream, streamRequest, metaRequest resource.Request) Stream {
	return Stream{Player: fmt.Sprintf("#/player/%s/%s/%s/%s/%s/%s",
		encodeStream(stream),
		escapeComponent(streamRequest.Base),
		escapeComponent(metaRequest.Base),
		escapeComponent(metaRequest.Path.Type),
		escapeComponent(metaRequest.Path.ID),
		escapeComponent(streamRequest.Path.ID),
	)}
}

// encodeStream embeds the stream payload in the route as URL-safe base64
// JSON. Marshalling a Stream cannot fail; the panic guards refactors that
// would change that.
func encodeStream(stream *domain.Stream) string {
	data, err := json.Marshal(stream)
	if err != nil {
		panic(fmt.Sprintf("deeplink: marshal stream: %v", err))
	}
	return base64.URLEncoding.EncodeToString(data)
}

// escapeComponent percent-encodes a route segment the way the web client's
// encodeURIComponent does, so routes embed transport URLs and ids safely.
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
