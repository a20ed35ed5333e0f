// Package sqlitedb stores actor records and pending effects in a SQLite
// database. Payloads are the JSON save format compressed with zstd.
package sqlitedb

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"github.com/nathoo/brewcore/engine/save"
	"github.com/nathoo/brewcore/engine/store"
	"github.com/nathoo/brewcore/logging"
	"github.com/nathoo/brewcore/types"
)

// DB is a store.Backend and effects.Backend on SQLite.
type DB struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
	log logging.Logger
}

// Open opens or creates the database at path.
func Open(path string, log logging.Logger) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		_ = db.Close()
		return nil, err
	}
	return &DB{db: db, enc: enc, dec: dec, log: logging.OrNoOp(log)}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS actor_records (
			actor_id TEXT PRIMARY KEY,
			payload BLOB NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS pending_effects (
			id TEXT PRIMARY KEY,
			actor_id TEXT NOT NULL,
			payload BLOB NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_pending_effects_actor ON pending_effects(actor_id);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// LoadRecord implements store.Backend.
func (d *DB) LoadRecord(id uuid.UUID) (*types.ActorRecord, error) {
	var payload []byte
	err := d.db.QueryRow(`SELECT payload FROM actor_records WHERE actor_id = ?`, id.String()).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading record %s: %w", id, err)
	}
	raw, err := d.dec.DecodeAll(payload, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing record %s: %w", id, err)
	}
	r, err := save.DecodeJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding record %s: %w", id, err)
	}
	return r, nil
}

// SaveRecord implements store.Backend.
func (d *DB) SaveRecord(r *types.ActorRecord) error {
	raw, err := save.EncodeJSON(r)
	if err != nil {
		return fmt.Errorf("encoding record %s: %w", r.ID, err)
	}
	_, err = d.db.Exec(
		`INSERT INTO actor_records(actor_id, payload, updated_at) VALUES(?, ?, ?)
		 ON CONFLICT(actor_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		r.ID.String(), d.enc.EncodeAll(raw, nil), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("writing record %s: %w", r.ID, err)
	}
	return nil
}

// RecordIDs returns the ids of every stored record, sorted.
func (d *DB) RecordIDs() ([]uuid.UUID, error) {
	rows, err := d.db.Query(`SELECT actor_id FROM actor_records ORDER BY actor_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []uuid.UUID
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(s)
		if err != nil {
			d.log.Warnf("ignoring record with bad actor id %q", s)
			continue
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// LoadEffects implements effects.Backend. Rows that fail to decode are
// skipped with a warning.
func (d *DB) LoadEffects() (map[uuid.UUID][]types.PendingEffect, error) {
	rows, err := d.db.Query(`SELECT id, payload FROM pending_effects`)
	if err != nil {
		return nil, fmt.Errorf("reading pending effects: %w", err)
	}
	defer rows.Close()

	out := map[uuid.UUID][]types.PendingEffect{}
	for rows.Next() {
		var id string
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		raw, err := d.dec.DecodeAll(payload, nil)
		if err != nil {
			d.log.Warnf("skipping pending effect %s: %v", id, err)
			continue
		}
		e, err := save.DecodeEffectJSON(raw)
		if err != nil {
			d.log.Warnf("skipping pending effect %s: %v", id, err)
			continue
		}
		out[e.Actor] = append(out[e.Actor], e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, list := range out {
		sort.Slice(list, func(i, j int) bool { return list[i].Started.Before(list[j].Started) })
	}
	return out, nil
}

// SaveEffects implements effects.Backend. The table is replaced in one
// transaction.
func (d *DB) SaveEffects(effects map[uuid.UUID][]types.PendingEffect) (err error) {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.Exec(`DELETE FROM pending_effects`); err != nil {
		return fmt.Errorf("clearing pending effects: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO pending_effects(id, actor_id, payload) VALUES(?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for actor, list := range effects {
		for _, e := range list {
			raw, encErr := save.EncodeEffectJSON(e)
			if encErr != nil {
				return fmt.Errorf("encoding pending effect %s: %w", e.ID, encErr)
			}
			if _, err = stmt.Exec(e.ID, actor.String(), d.enc.EncodeAll(raw, nil)); err != nil {
				return fmt.Errorf("writing pending effect %s: %w", e.ID, err)
			}
		}
	}
	return tx.Commit()
}

// Close releases the codecs and the database.
func (d *DB) Close() error {
	d.dec.Close()
	_ = d.enc.Close()
	return d.db.Close()
}
