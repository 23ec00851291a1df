package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store provides CRUD operations for configuration and entitlement
// records backed by SQLite. Reads of absent records return hydrated
// zero-value defaults (or nil for keyed lookups), never errors; absence
// is a meaningful state for every record type here.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the cadence database in dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "cadence.db")
	dsn := dbPath + "?" + url.Values{
		"_pragma": []string{
			"busy_timeout(30000)",
			"journal_mode(WAL)",
			"synchronous(NORMAL)",
			"foreign_keys(ON)",
		},
	}.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite works best with a single writer connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tenant_configs (
		id   TEXT PRIMARY KEY,
		data TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS tenant_data (
		id   TEXT PRIMARY KEY,
		data TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS account_data (
		id   TEXT PRIMARY KEY,
		data TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS pledge_accounts (
		id            TEXT PRIMARY KEY,
		pledge_amount REAL NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS premium_tenants (
		id       TEXT PRIMARY KEY,
		redeemer TEXT NOT NULL,
		added    INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_premium_tenants_redeemer ON premium_tenants(redeemer);
	CREATE TABLE IF NOT EXISTS playlists (
		id      TEXT PRIMARY KEY,
		author  TEXT NOT NULL,
		name    TEXT NOT NULL,
		created INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_playlists_author ON playlists(author);
	CREATE TABLE IF NOT EXISTS premium_keys (
		id            TEXT PRIMARY KEY,
		key_type      TEXT NOT NULL,
		duration      INTEGER NOT NULL,
		redeemer_type TEXT NOT NULL DEFAULT '',
		redeemer_id   TEXT NOT NULL DEFAULT ''
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Ping checks database connectivity (used for readiness probes).
func (s *Store) Ping() error {
	return s.db.Ping()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) getDocument(ctx context.Context, table, id string, out any) (bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM `+table+` WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s %q: %w", table, id, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode %s %q: %w", table, id, err)
	}
	return true, nil
}

func (s *Store) putDocument(ctx context.Context, table, id string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s %q: %w", table, id, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO `+table+` (id, data) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data`, id, data)
	if err != nil {
		return fmt.Errorf("write %s %q: %w", table, id, err)
	}
	return nil
}

// TenantConfig loads a tenant's configuration document, defaults for a
// tenant that was never configured.
func (s *Store) TenantConfig(ctx context.Context, tenantID string) (*TenantConfig, error) {
	cfg := &TenantConfig{ID: tenantID}
	if _, err := s.getDocument(ctx, "tenant_configs", tenantID, cfg); err != nil {
		return nil, err
	}
	cfg.ID = tenantID
	return cfg, nil
}

// SaveTenantConfig persists a tenant's configuration document.
func (s *Store) SaveTenantConfig(ctx context.Context, cfg *TenantConfig) error {
	return s.putDocument(ctx, "tenant_configs", cfg.ID, cfg)
}

// TenantData loads a tenant's entitlement ledger record, empty when the
// tenant never received a grant.
func (s *Store) TenantData(ctx context.Context, tenantID string) (*TenantData, error) {
	d := &TenantData{ID: tenantID}
	if _, err := s.getDocument(ctx, "tenant_data", tenantID, d); err != nil {
		return nil, err
	}
	d.ID = tenantID
	return d, nil
}

// SaveTenantData persists a tenant's entitlement ledger record.
func (s *Store) SaveTenantData(ctx context.Context, d *TenantData) error {
	return s.putDocument(ctx, "tenant_data", d.ID, d)
}

// AccountData loads an account's entitlement ledger record, empty when
// the account never received a grant.
func (s *Store) AccountData(ctx context.Context, accountID string) (*AccountData, error) {
	d := &AccountData{ID: accountID}
	if _, err := s.getDocument(ctx, "account_data", accountID, d); err != nil {
		return nil, err
	}
	d.ID = accountID
	return d, nil
}

// SaveAccountData persists an account's entitlement ledger record.
func (s *Store) SaveAccountData(ctx context.Context, d *AccountData) error {
	return s.putDocument(ctx, "account_data", d.ID, d)
}

// PledgeAccount loads an account's pledge record, zero pledge for an
// unknown account.
func (s *Store) PledgeAccount(ctx context.Context, accountID string) (*PledgeAccount, error) {
	acc := &PledgeAccount{ID: accountID}
	err := s.db.QueryRowContext(ctx,
		`SELECT pledge_amount FROM pledge_accounts WHERE id = ?`, accountID).Scan(&acc.PledgeAmount)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read pledge account %q: %w", accountID, err)
	}
	return acc, nil
}

// SavePledgeAccount persists an account's pledge record.
func (s *Store) SavePledgeAccount(ctx context.Context, acc *PledgeAccount) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pledge_accounts (id, pledge_amount) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET pledge_amount = excluded.pledge_amount`,
		acc.ID, acc.PledgeAmount)
	if err != nil {
		return fmt.Errorf("write pledge account %q: %w", acc.ID, err)
	}
	return nil
}

// PremiumTenant loads a tenant redemption record, nil if the tenant has
// no redemption.
func (s *Store) PremiumTenant(ctx context.Context, tenantID string) (*PremiumTenant, error) {
	pt := &PremiumTenant{ID: tenantID}
	err := s.db.QueryRowContext(ctx,
		`SELECT redeemer, added FROM premium_tenants WHERE id = ?`, tenantID).
		Scan(&pt.Redeemer, &pt.AddedMillis)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read premium tenant %q: %w", tenantID, err)
	}
	return pt, nil
}

// SavePremiumTenant persists a tenant redemption record.
func (s *Store) SavePremiumTenant(ctx context.Context, pt *PremiumTenant) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO premium_tenants (id, redeemer, added) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET redeemer = excluded.redeemer, added = excluded.added`,
		pt.ID, pt.Redeemer, pt.AddedMillis)
	if err != nil {
		return fmt.Errorf("write premium tenant %q: %w", pt.ID, err)
	}
	return nil
}

// DeletePremiumTenant removes a tenant redemption record.
func (s *Store) DeletePremiumTenant(ctx context.Context, tenantID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM premium_tenants WHERE id = ?`, tenantID)
	if err != nil {
		return fmt.Errorf("delete premium tenant %q: %w", tenantID, err)
	}
	return nil
}

// PremiumTenantsByRedeemer enumerates the tenants an account redeemed
// premium for.
func (s *Store) PremiumTenantsByRedeemer(ctx context.Context, accountID string) ([]PremiumTenant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, redeemer, added FROM premium_tenants WHERE redeemer = ? ORDER BY added`, accountID)
	if err != nil {
		return nil, fmt.Errorf("enumerate premium tenants for %q: %w", accountID, err)
	}
	defer rows.Close()

	var out []PremiumTenant
	for rows.Next() {
		var pt PremiumTenant
		if err := rows.Scan(&pt.ID, &pt.Redeemer, &pt.AddedMillis); err != nil {
			return nil, fmt.Errorf("scan premium tenant: %w", err)
		}
		out = append(out, pt)
	}
	return out, rows.Err()
}

// CountPremiumTenants counts the tenants an account redeemed premium for.
// Implements premium.RecordCounter.
func (s *Store) CountPremiumTenants(ctx context.Context, accountID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM premium_tenants WHERE redeemer = ?`, accountID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count premium tenants for %q: %w", accountID, err)
	}
	return n, nil
}

// PlaylistsByAuthor enumerates an account's playlists.
func (s *Store) PlaylistsByAuthor(ctx context.Context, accountID string) ([]Playlist, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, author, name, created FROM playlists WHERE author = ? ORDER BY created`, accountID)
	if err != nil {
		return nil, fmt.Errorf("enumerate playlists for %q: %w", accountID, err)
	}
	defer rows.Close()

	var out []Playlist
	for rows.Next() {
		var p Playlist
		if err := rows.Scan(&p.ID, &p.Author, &p.Name, &p.CreatedMillis); err != nil {
			return nil, fmt.Errorf("scan playlist: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CountPlaylists counts an account's playlists. Implements
// premium.RecordCounter.
func (s *Store) CountPlaylists(ctx context.Context, accountID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM playlists WHERE author = ?`, accountID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count playlists for %q: %w", accountID, err)
	}
	return n, nil
}

// SavePlaylist persists a playlist record.
func (s *Store) SavePlaylist(ctx context.Context, p *Playlist) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO playlists (id, author, name, created) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		p.ID, p.Author, p.Name, p.CreatedMillis)
	if err != nil {
		return fmt.Errorf("write playlist %q: %w", p.ID, err)
	}
	return nil
}

// PremiumKey loads a premium key, nil for an unknown key.
func (s *Store) PremiumKey(ctx context.Context, keyID string) (*PremiumKey, error) {
	k := &PremiumKey{ID: keyID}
	err := s.db.QueryRowContext(ctx,
		`SELECT key_type, duration, redeemer_type, redeemer_id FROM premium_keys WHERE id = ?`, keyID).
		Scan(&k.Type, &k.DurationMillis, &k.RedeemerType, &k.RedeemerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read premium key %q: %w", keyID, err)
	}
	return k, nil
}

// SavePremiumKey persists a premium key.
func (s *Store) SavePremiumKey(ctx context.Context, k *PremiumKey) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO premium_keys (id, key_type, duration, redeemer_type, redeemer_id)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   redeemer_type = excluded.redeemer_type,
		   redeemer_id = excluded.redeemer_id`,
		k.ID, k.Type, k.DurationMillis, k.RedeemerType, k.RedeemerID)
	if err != nil {
		return fmt.Errorf("write premium key %q: %w", k.ID, err)
	}
	return nil
}
