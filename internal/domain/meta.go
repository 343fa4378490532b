// SPDX-License-Identifier: MIT

// Package domain holds the entities the runtime loads and the projection
// enriches: catalog metadata, streams, addon descriptors, the user profile
// and the library buckets. The projection treats these as opaque payloads
// and never mutates them.
package domain

import "time"

// SeriesInfo carries season/episode numbering for an episodic video.
type SeriesInfo struct {
	Season  int `json:"season"`
	Episode int `json:"episode"`
}

// StreamSource is exactly one way to play a stream.
type StreamSource struct {
	URL         string `json:"url,omitempty"`
	YtID        string `json:"ytId,omitempty"`
	InfoHash    string `json:"infoHash,omitempty"`
	ExternalURL string `json:"externalUrl,omitempty"`
}

// Stream is a playable source offered by an addon.
type Stream struct {
	Name        string       `json:"name,omitempty"`
	Description string       `json:"description,omitempty"`
	Thumbnail   string       `json:"thumbnail,omitempty"`
	Source      StreamSource `json:"source"`
}

// Video is one entry of an episodic meta item.
type Video struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Released   *time.Time  `json:"released,omitempty"`
	Thumbnail  string      `json:"thumbnail,omitempty"`
	Overview   string      `json:"overview,omitempty"`
	SeriesInfo *SeriesInfo `json:"seriesInfo,omitempty"`
	Streams    []Stream    `json:"streams,omitempty"`
}

// Link is a navigable relation exposed by a meta item (genres, cast,
// sibling meta resources, ...). Category tells what the link points at.
type Link struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	URL      string `json:"url"`
}

// MetaCategory is the link category naming a meta resource. Links with this
// category become meta extensions in the details view.
const MetaCategory = "meta"

// BehaviorHints are addon-provided display hints for a meta item.
type BehaviorHints struct {
	DefaultVideoID     *string `json:"defaultVideoId,omitempty"`
	HasScheduledVideos bool    `json:"hasScheduledVideos,omitempty"`
}

// MetaItem is a catalog entry: a movie, a series, a channel.
type MetaItem struct {
	ID             string        `json:"id"`
	Type           string        `json:"type"`
	Name           string        `json:"name"`
	Poster         string        `json:"poster,omitempty"`
	Background     string        `json:"background,omitempty"`
	Logo           string        `json:"logo,omitempty"`
	Description    string        `json:"description,omitempty"`
	ReleaseInfo    string        `json:"releaseInfo,omitempty"`
	Released       *time.Time    `json:"released,omitempty"`
	Videos         []Video       `json:"videos,omitempty"`
	TrailerStreams []Stream      `json:"trailerStreams,omitempty"`
	Links          []Link        `json:"links,omitempty"`
	BehaviorHints  BehaviorHints `json:"behaviorHints"`
}

// Video looks up a video by id; nil when absent.
func (m *MetaItem) Video(id string) *Video {
	for i := range m.Videos {
		if m.Videos[i].ID == id {
			return &m.Videos[i]
		}
	}
	return nil
}
