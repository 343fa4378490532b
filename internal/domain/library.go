// SPDX-License-Identifier: MIT

package domain

import "time"

// LibraryItem is one library entry. Removed entries stay in the bucket so
// removal can sync; consumers must treat them as absent.
type LibraryItem struct {
	ID      string    `json:"_id"`
	Name    string    `json:"name"`
	Type    string    `json:"type"`
	Removed bool      `json:"removed"`
	Temp    bool      `json:"temp"`
	MTime   time.Time `json:"_mtime"`
}

// LibraryBucket is a persisted collection of library items keyed by meta id,
// owned by one profile.
type LibraryBucket struct {
	UID   string                 `json:"uid"`
	Items map[string]LibraryItem `json:"items"`
}

// NewLibraryBucket builds an empty bucket for the given profile identity.
func NewLibraryBucket(uid string) *LibraryBucket {
	return &LibraryBucket{UID: uid, Items: make(map[string]LibraryItem)}
}

// Merge folds other into the bucket. Entries of other win on conflicting
// keys, so callers control precedence through merge order: merging the
// recent bucket first and the full bucket second makes full-bucket values
// authoritative.
func (b *LibraryBucket) Merge(other *LibraryBucket) {
	if other == nil {
		return
	}
	if b.Items == nil {
		b.Items = make(map[string]LibraryItem, len(other.Items))
	}
	for id, item := range other.Items {
		b.Items[id] = item
	}
}

// Contains reports whether the library holds a live (not removed) entry for
// the given meta id.
func (b *LibraryBucket) Contains(metaID string) bool {
	if b == nil {
		return false
	}
	item, ok := b.Items[metaID]
	return ok && !item.Removed
}
