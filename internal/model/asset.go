package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// AssetType identifies which marketing artifact was generated.
type AssetType string

const (
	AssetDemo     AssetType = "demo"
	AssetProposal AssetType = "proposal"
)

// ParseAssetType validates a raw asset type string.
func ParseAssetType(s string) (AssetType, error) {
	switch AssetType(s) {
	case AssetDemo, AssetProposal:
		return AssetType(s), nil
	}
	return "", eris.Errorf("model: unknown asset type %q", s)
}

// AssetMeta captures the place details current at generation time.
type AssetMeta struct {
	Address string  `json:"address"`
	Website *string `json:"website,omitempty"`
}

// Asset is a generated marketing artifact (an HTML blob) tied to a
// place by its stable identifier. Assets are immutable once created.
type Asset struct {
	ID        string    `json:"id"`
	PlaceID   string    `json:"place_id"`
	PlaceName string    `json:"place_name"`
	Type      AssetType `json:"type"`
	Content   string    `json:"content"`
	Meta      AssetMeta `json:"meta"`
	CreatedAt time.Time `json:"created_at"`
}

// AssetRef is the minimal projection used when joining assets onto
// search results; the content blob is only loaded for rendering.
type AssetRef struct {
	ID        string    `json:"id"`
	PlaceID   string    `json:"place_id"`
	PlaceName string    `json:"place_name"`
	Type      AssetType `json:"type"`
}
