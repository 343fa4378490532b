// SPDX-License-Identifier: MIT

package domain

// Manifest is the self-description an addon publishes.
type Manifest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Logo string `json:"logo,omitempty"`
}

// Flags carry installation metadata about an addon.
type Flags struct {
	Official  bool `json:"official"`
	Protected bool `json:"protected"`
}

// Descriptor identifies one installed addon. TransportURL is its unique key;
// resource slots attribute themselves to an addon by matching it.
type Descriptor struct {
	TransportURL string   `json:"transportUrl"`
	Manifest     Manifest `json:"manifest"`
	Flags        Flags    `json:"flags"`
}

// Profile is the user's global state: identity and installed addons.
type Profile struct {
	UID    string       `json:"uid"`
	Addons []Descriptor `json:"addons"`
}

// Addon finds an installed addon by transport URL; nil when not installed.
func (p *Profile) Addon(transportURL string) *Descriptor {
	for i := range p.Addons {
		if p.Addons[i].TransportURL == transportURL {
			return &p.Addons[i]
		}
	}
	return nil
}
