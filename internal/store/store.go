package store

import (
	"context"

	"github.com/rueda-la-rola/leadgen/internal/model"
)

// Store defines the persistence interface for leads and generated
// assets. Leads are upserted keyed on place_id; assets are immutable
// once created. Neither exposes a delete operation.
type Store interface {
	// Leads
	UpsertLead(ctx context.Context, lead model.Lead) error
	GetLead(ctx context.Context, placeID string) (*model.Lead, error)
	ListLeads(ctx context.Context) ([]model.Lead, error)

	// Assets
	CreateAsset(ctx context.Context, asset model.Asset) (*model.Asset, error)
	GetAsset(ctx context.Context, id string) (*model.Asset, error)
	// ListAssets returns refs oldest first, so rebuilding slot state
	// keeps the same earliest-asset-per-slot assignment the live path
	// produces.
	ListAssets(ctx context.Context) ([]model.AssetRef, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
