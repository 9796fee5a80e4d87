// Package recorder persists per-iteration (name → value) snapshots of the
// parameter and unknown vectors to a SQLite database. Only rank 0 writes;
// other ranks receive a no-op handle so callers record unconditionally.
package recorder

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	// SQLite driver, registered via database/sql.
	_ "github.com/mattn/go-sqlite3"

	"github.com/helio-mdo/helio/internal/comm"
	"github.com/helio-mdo/helio/internal/vec"
)

const schema = `
CREATE TABLE IF NOT EXISTS metadata (
	vector  TEXT NOT NULL,
	name    TEXT NOT NULL,
	size    INTEGER NOT NULL,
	noflat  INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (vector, name)
);

CREATE TABLE IF NOT EXISTS iterations (
	coord     TEXT NOT NULL,
	timestamp INTEGER NOT NULL,
	vector    TEXT NOT NULL,
	name      TEXT NOT NULL,
	value     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_iterations_coord ON iterations(coord);
`

// Recorder writes iteration history. A zero-value Recorder (or one handed
// to a non-root rank) records nothing.
type Recorder struct {
	db *sql.DB
}

// New opens (or creates) the database at path on rank 0 of c and returns a
// no-op recorder on every other rank.
func New(path string, c comm.Communicator) (*Recorder, error) {
	if c.Rank() > 0 {
		return &Recorder{}, nil
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("recorder: open %q: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("recorder: initialize schema: %w", err)
	}
	return &Recorder{db: db}, nil
}

// RecordMetadata stores the variable layout of both vectors.
func (r *Recorder) RecordMetadata(params *vec.TgtVector, unknowns *vec.SrcVector) error {
	if r.db == nil {
		return nil
	}

	stmt, err := r.db.Prepare(
		`INSERT OR REPLACE INTO metadata (vector, name, size, noflat) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("recorder: prepare metadata insert: %w", err)
	}
	defer stmt.Close()

	write := func(kind string, names []string, meta func(string) (vec.Meta, bool)) error {
		for _, name := range names {
			m, _ := meta(name)
			noflat := 0
			if m.NoFlat {
				noflat = 1
			}
			if _, err := stmt.Exec(kind, name, m.Size, noflat); err != nil {
				return fmt.Errorf("recorder: metadata for %q: %w", name, err)
			}
		}
		return nil
	}
	if err := write("params", params.Names(), params.Meta); err != nil {
		return err
	}
	return write("unknowns", unknowns.Names(), unknowns.Meta)
}

// RecordIteration stores one row per flattenable variable of each vector,
// keyed by the iteration coordinate. Values are serialized as JSON arrays.
func (r *Recorder) RecordIteration(coord string, ts time.Time,
	params *vec.TgtVector, unknowns *vec.SrcVector) error {

	if r.db == nil {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("recorder: begin iteration %q: %w", coord, err)
	}
	stmt, err := tx.Prepare(
		`INSERT INTO iterations (coord, timestamp, vector, name, value) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("recorder: prepare iteration insert: %w", err)
	}
	defer stmt.Close()

	record := func(kind string, v *vec.Vector) error {
		var innerErr error
		v.Each(func(name string, value []float64) {
			if innerErr != nil {
				return
			}
			enc, err := json.Marshal(value)
			if err != nil {
				innerErr = fmt.Errorf("recorder: encode %q: %w", name, err)
				return
			}
			if _, err := stmt.Exec(coord, ts.UnixNano(), kind, name, string(enc)); err != nil {
				innerErr = fmt.Errorf("recorder: iteration %q variable %q: %w", coord, name, err)
			}
		})
		return innerErr
	}

	if err := record("params", &params.Vector); err != nil {
		tx.Rollback()
		return err
	}
	if err := record("unknowns", &unknowns.Vector); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("recorder: commit iteration %q: %w", coord, err)
	}
	return nil
}

// Close releases the database handle. Safe on no-op recorders.
func (r *Recorder) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}
