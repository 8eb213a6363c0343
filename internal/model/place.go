package model

import "strings"

// LatLng is a geographic coordinate pair.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Place is one search result from the places directory. Places are
// transient: they exist only in the current result set and are never
// persisted directly.
type Place struct {
	PlaceID  string  `json:"place_id"`
	Name     string  `json:"name"`
	Address  string  `json:"address"`
	Website  *string `json:"website"`
	Phone    *string `json:"phone"`
	Location LatLng  `json:"location"`
}

// socialDomains are treated as non-effective web presence: a business
// whose only "website" is a social profile still counts as having no web.
var socialDomains = []string{"facebook", "instagram", "tiktok", "twitter"}

// IsSocialMedia reports whether url points at a social-media profile.
// Matching is a case-insensitive substring check over the whole URL,
// matching the dashboard's classification exactly.
func IsSocialMedia(url string) bool {
	lower := strings.ToLower(url)
	for _, domain := range socialDomains {
		if strings.Contains(lower, domain) {
			return true
		}
	}
	return false
}

// HasEffectiveWebsite reports whether the place has a real web presence:
// a non-nil website URL that is not a social-media link.
func (p Place) HasEffectiveWebsite() bool {
	return p.Website != nil && *p.Website != "" && !IsSocialMedia(*p.Website)
}
