// Package sqliteregistry persists Agent Registry snapshots to a local
// SQLite database, grounded on the teacher's file-backed repository
// pattern (internal/infrastructure/persistence.FileReleaseRepository)
// but backed by github.com/mattn/go-sqlite3 instead of flat JSON files,
// since the registry snapshot benefits from queryable structure (spec
// §4.11a: fleet-health history survives a restart).
package sqliteregistry

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/chimera-systems/chimera/internal/domain"
	chimeraerrors "github.com/chimera-systems/chimera/internal/errors"
	"github.com/chimera-systems/chimera/internal/registry"
)

const schema = `
CREATE TABLE IF NOT EXISTS registry_entries (
	node_id TEXT PRIMARY KEY,
	node_json TEXT NOT NULL,
	last_heartbeat INTEGER NOT NULL,
	last_drift_json TEXT,
	health TEXT NOT NULL
);
`

// Store persists registry.Entry snapshots to a SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// ensures its schema exists.
func Open(path string) (*Store, error) {
	const op = "sqliteregistry.Open"
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, chimeraerrors.PortFailure(op, "opening sqlite database failed", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, chimeraerrors.PortFailure(op, "creating schema failed", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes every entry in snapshot, replacing any prior row for the
// same node id.
func (s *Store) Save(snapshot map[string]registry.Entry) error {
	const op = "sqliteregistry.Save"
	tx, err := s.db.Begin()
	if err != nil {
		return chimeraerrors.PortFailure(op, "beginning transaction failed", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO registry_entries (node_id, node_json, last_heartbeat, last_drift_json, health)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(node_id) DO UPDATE SET
			node_json = excluded.node_json,
			last_heartbeat = excluded.last_heartbeat,
			last_drift_json = excluded.last_drift_json,
			health = excluded.health
	`)
	if err != nil {
		return chimeraerrors.PortFailure(op, "preparing statement failed", err)
	}
	defer stmt.Close()

	for nodeID, entry := range snapshot {
		nodeJSON, err := json.Marshal(entry.Node)
		if err != nil {
			return chimeraerrors.PortFailure(op, "marshalling node failed", err)
		}
		var driftJSON []byte
		if entry.LastDriftReport != nil {
			driftJSON, err = json.Marshal(entry.LastDriftReport)
			if err != nil {
				return chimeraerrors.PortFailure(op, "marshalling drift report failed", err)
			}
		}
		if _, err := stmt.Exec(nodeID, string(nodeJSON), entry.LastHeartbeat.Unix(), nullableString(driftJSON), string(entry.Health)); err != nil {
			return chimeraerrors.PortFailure(op, "writing entry for "+nodeID+" failed", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return chimeraerrors.PortFailure(op, "committing transaction failed", err)
	}
	return nil
}

// Load reads every persisted entry back into a registry snapshot map.
func (s *Store) Load() (map[string]registry.Entry, error) {
	const op = "sqliteregistry.Load"
	rows, err := s.db.Query(`SELECT node_id, node_json, last_heartbeat, last_drift_json, health FROM registry_entries`)
	if err != nil {
		return nil, chimeraerrors.PortFailure(op, "querying entries failed", err)
	}
	defer rows.Close()

	out := make(map[string]registry.Entry)
	for rows.Next() {
		var nodeID, nodeJSON, health string
		var lastHeartbeat int64
		var driftJSON sql.NullString
		if err := rows.Scan(&nodeID, &nodeJSON, &lastHeartbeat, &driftJSON, &health); err != nil {
			return nil, chimeraerrors.PortFailure(op, "scanning row failed", err)
		}

		var node domain.Node
		if err := json.Unmarshal([]byte(nodeJSON), &node); err != nil {
			return nil, chimeraerrors.PortFailure(op, "unmarshalling node failed", err)
		}
		entry := registry.Entry{
			Node:          node,
			LastHeartbeat: time.Unix(lastHeartbeat, 0),
			Health:        registry.Health(health),
		}
		if driftJSON.Valid && driftJSON.String != "" {
			var report domain.DriftReport
			if err := json.Unmarshal([]byte(driftJSON.String), &report); err != nil {
				return nil, chimeraerrors.PortFailure(op, "unmarshalling drift report failed", err)
			}
			entry.LastDriftReport = &report
		}
		out[nodeID] = entry
	}
	if err := rows.Err(); err != nil {
		return nil, chimeraerrors.PortFailure(op, "iterating rows failed", err)
	}
	return out, nil
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
