package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/rueda-la-rola/leadgen/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Used for
// local/dev deployments without a Postgres instance.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	place_id   TEXT PRIMARY KEY,
	status     TEXT NOT NULL DEFAULT 'new',
	name       TEXT NOT NULL DEFAULT '',
	address    TEXT NOT NULL DEFAULT '',
	phone      TEXT,
	website    TEXT,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS assets (
	id         TEXT PRIMARY KEY,
	place_id   TEXT NOT NULL,
	place_name TEXT NOT NULL,
	type       TEXT NOT NULL,
	content    TEXT NOT NULL,
	meta       TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
CREATE INDEX IF NOT EXISTS idx_assets_place_id ON assets(place_id);
CREATE INDEX IF NOT EXISTS idx_assets_place_type ON assets(place_id, type);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertLead(ctx context.Context, lead model.Lead) error {
	if lead.UpdatedAt.IsZero() {
		lead.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO leads (place_id, status, name, address, phone, website, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (place_id) DO UPDATE SET
			status = excluded.status,
			name = excluded.name,
			address = excluded.address,
			phone = excluded.phone,
			website = excluded.website,
			updated_at = excluded.updated_at`,
		lead.PlaceID, string(lead.Status), lead.Name, lead.Address, lead.Phone, lead.Website, lead.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: upsert lead %s", lead.PlaceID)
}

func (s *SQLiteStore) GetLead(ctx context.Context, placeID string) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT place_id, status, name, address, phone, website, updated_at FROM leads WHERE place_id = ?`,
		placeID,
	)
	lead, err := scanLeadSQL(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get lead %s", placeID)
	}
	return lead, nil
}

func (s *SQLiteStore) ListLeads(ctx context.Context) ([]model.Lead, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT place_id, status, name, address, phone, website, updated_at FROM leads ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		lead, err := scanLeadSQL(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		leads = append(leads, *lead)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: list leads iterate")
}

func (s *SQLiteStore) CreateAsset(ctx context.Context, asset model.Asset) (*model.Asset, error) {
	if asset.ID == "" {
		asset.ID = uuid.New().String()
	}
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = time.Now().UTC()
	}

	metaJSON, err := json.Marshal(asset.Meta)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal asset meta")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO assets (id, place_id, place_name, type, content, meta, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		asset.ID, asset.PlaceID, asset.PlaceName, string(asset.Type), asset.Content, string(metaJSON), asset.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert asset for %s", asset.PlaceID)
	}
	return &asset, nil
}

func (s *SQLiteStore) GetAsset(ctx context.Context, id string) (*model.Asset, error) {
	var (
		asset    model.Asset
		typ      string
		metaJSON string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, place_id, place_name, type, content, meta, created_at FROM assets WHERE id = ?`,
		id,
	).Scan(&asset.ID, &asset.PlaceID, &asset.PlaceName, &typ, &asset.Content, &metaJSON, &asset.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get asset %s", id)
	}
	asset.Type = model.AssetType(typ)
	if metaJSON != "" {
		if err := json.Unmarshal([]byte(metaJSON), &asset.Meta); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal asset meta %s", id)
		}
	}
	return &asset, nil
}

func (s *SQLiteStore) ListAssets(ctx context.Context) ([]model.AssetRef, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, place_id, place_name, type FROM assets ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list assets")
	}
	defer rows.Close()

	var refs []model.AssetRef
	for rows.Next() {
		var ref model.AssetRef
		var typ string
		if err := rows.Scan(&ref.ID, &ref.PlaceID, &ref.PlaceName, &typ); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan asset ref")
		}
		ref.Type = model.AssetType(typ)
		refs = append(refs, ref)
	}
	return refs, eris.Wrap(rows.Err(), "sqlite: list assets iterate")
}

// scanTarget matches both *sql.Row and *sql.Rows.
type scanTarget interface {
	Scan(dest ...any) error
}

func scanLeadSQL(row scanTarget) (*model.Lead, error) {
	var lead model.Lead
	var status string
	if err := row.Scan(&lead.PlaceID, &status, &lead.Name, &lead.Address, &lead.Phone, &lead.Website, &lead.UpdatedAt); err != nil {
		return nil, err
	}
	lead.Status = model.LeadStatus(status)
	return &lead, nil
}
