package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/rueda-la-rola/leadgen/internal/db"
	"github.com/rueda-la-rola/leadgen/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection.
// The lead upsert and asset lookups are the hot paths.
var preparedStatements = map[string]string{
	"upsert_lead": `INSERT INTO leads (place_id, status, name, address, phone, website, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (place_id) DO UPDATE SET
			status = EXCLUDED.status,
			name = EXCLUDED.name,
			address = EXCLUDED.address,
			phone = EXCLUDED.phone,
			website = EXCLUDED.website,
			updated_at = EXCLUDED.updated_at`,
	"get_lead":     `SELECT place_id, status, name, address, phone, website, updated_at FROM leads WHERE place_id = $1`,
	"list_leads":   `SELECT place_id, status, name, address, phone, website, updated_at FROM leads ORDER BY updated_at DESC`,
	"insert_asset": `INSERT INTO assets (id, place_id, place_name, type, content, meta, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
	"get_asset":    `SELECT id, place_id, place_name, type, content, meta, created_at FROM assets WHERE id = $1`,
	"list_assets":  `SELECT id, place_id, place_name, type FROM assets ORDER BY created_at ASC`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leads (
	place_id   TEXT PRIMARY KEY,
	status     TEXT NOT NULL DEFAULT 'new',
	name       TEXT NOT NULL DEFAULT '',
	address    TEXT NOT NULL DEFAULT '',
	phone      TEXT,
	website    TEXT,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS assets (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	place_id   TEXT NOT NULL,
	place_name TEXT NOT NULL,
	type       TEXT NOT NULL,
	content    TEXT NOT NULL,
	meta       JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
CREATE INDEX IF NOT EXISTS idx_assets_place_id ON assets(place_id);
CREATE INDEX IF NOT EXISTS idx_assets_place_type ON assets(place_id, type);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) UpsertLead(ctx context.Context, lead model.Lead) error {
	if lead.UpdatedAt.IsZero() {
		lead.UpdatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, preparedStatements["upsert_lead"],
		lead.PlaceID, string(lead.Status), lead.Name, lead.Address, lead.Phone, lead.Website, lead.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: upsert lead %s", lead.PlaceID)
}

func (s *PostgresStore) GetLead(ctx context.Context, placeID string) (*model.Lead, error) {
	row := s.pool.QueryRow(ctx, preparedStatements["get_lead"], placeID)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get lead %s", placeID)
	}
	return lead, nil
}

func (s *PostgresStore) ListLeads(ctx context.Context) ([]model.Lead, error) {
	rows, err := s.pool.Query(ctx, preparedStatements["list_leads"])
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		leads = append(leads, *lead)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: list leads iterate")
}

func (s *PostgresStore) CreateAsset(ctx context.Context, asset model.Asset) (*model.Asset, error) {
	if asset.ID == "" {
		asset.ID = uuid.New().String()
	}
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = time.Now().UTC()
	}

	metaJSON, err := json.Marshal(asset.Meta)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal asset meta")
	}

	_, err = s.pool.Exec(ctx, preparedStatements["insert_asset"],
		asset.ID, asset.PlaceID, asset.PlaceName, string(asset.Type), asset.Content, metaJSON, asset.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert asset for %s", asset.PlaceID)
	}
	return &asset, nil
}

func (s *PostgresStore) GetAsset(ctx context.Context, id string) (*model.Asset, error) {
	var (
		asset    model.Asset
		status   string
		metaJSON []byte
	)
	err := s.pool.QueryRow(ctx, preparedStatements["get_asset"], id).Scan(
		&asset.ID, &asset.PlaceID, &asset.PlaceName, &status, &asset.Content, &metaJSON, &asset.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get asset %s", id)
	}
	asset.Type = model.AssetType(status)
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &asset.Meta); err != nil {
			return nil, eris.Wrapf(err, "postgres: unmarshal asset meta %s", id)
		}
	}
	return &asset, nil
}

func (s *PostgresStore) ListAssets(ctx context.Context) ([]model.AssetRef, error) {
	rows, err := s.pool.Query(ctx, preparedStatements["list_assets"])
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list assets")
	}
	defer rows.Close()

	var refs []model.AssetRef
	for rows.Next() {
		var ref model.AssetRef
		var typ string
		if err := rows.Scan(&ref.ID, &ref.PlaceID, &ref.PlaceName, &typ); err != nil {
			return nil, eris.Wrap(err, "postgres: scan asset ref")
		}
		ref.Type = model.AssetType(typ)
		refs = append(refs, ref)
	}
	return refs, eris.Wrap(rows.Err(), "postgres: list assets iterate")
}

// scanLead reads one lead row from either QueryRow or Query results.
func scanLead(row pgx.Row) (*model.Lead, error) {
	var lead model.Lead
	var status string
	if err := row.Scan(&lead.PlaceID, &status, &lead.Name, &lead.Address, &lead.Phone, &lead.Website, &lead.UpdatedAt); err != nil {
		return nil, err
	}
	lead.Status = model.LeadStatus(status)
	return &lead, nil
}
