// Package cellsite resolves cell ids to tower coordinates from a SQLite
// `cellids` table (cellid, address, latitude, longitude, azimuth).
package cellsite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

type Cell struct {
	ID        string
	Address   string
	Latitude  float64
	Longitude float64
	Azimuth   string
}

// Lookup finds a cell by id. ok is false when the id is unknown or the row has
// no usable coordinates.
type Lookup interface {
	Lookup(ctx context.Context, id string) (cell Cell, ok bool, err error)
}

// DB answers lookups from an open database and remembers every answer,
// misses included.
type DB struct {
	db *sql.DB

	mu   sync.Mutex
	seen map[string]*Cell
}

// Open opens the cell database at path read-only.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return nil, fmt.Errorf("cannot open cell DB at %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot open cell DB at %s: %w", path, err)
	}
	return New(db), nil
}

// New wraps an already open database.
func New(db *sql.DB) *DB { return &DB{db: db, seen: map[string]*Cell{}} }

const lookupQuery = `
        SELECT address, latitude, longitude, azimuth
          FROM cellids
         WHERE cellid=? OR REPLACE(cellid,'-','')=?
         LIMIT 1`

func (d *DB) Lookup(ctx context.Context, id string) (Cell, bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Cell{}, false, nil
	}
	d.mu.Lock()
	c, hit := d.seen[id]
	d.mu.Unlock()
	if hit {
		if c == nil {
			return Cell{}, false, nil
		}
		return *c, true, nil
	}

	var addr, lat, lon, az sql.NullString
	err := d.db.QueryRowContext(ctx, lookupQuery, id, cleanID(id)).Scan(&addr, &lat, &lon, &az)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		d.remember(id, nil)
		return Cell{}, false, nil
	case err != nil:
		return Cell{}, false, fmt.Errorf("lookup cell %s: %w", id, err)
	}

	la, err1 := strconv.ParseFloat(strings.TrimSpace(lat.String), 64)
	lo, err2 := strconv.ParseFloat(strings.TrimSpace(lon.String), 64)
	if err1 != nil || err2 != nil {
		d.remember(id, nil)
		return Cell{}, false, nil
	}
	cell := &Cell{ID: id, Address: addr.String, Latitude: la, Longitude: lo, Azimuth: az.String}
	d.remember(id, cell)
	return *cell, true, nil
}

func (d *DB) remember(id string, c *Cell) {
	d.mu.Lock()
	d.seen[id] = c
	d.mu.Unlock()
}

func (d *DB) Close() error { return d.db.Close() }

// cleanID drops the hyphens some exports put inside a CGI.
func cleanID(raw string) string { return strings.ReplaceAll(raw, "-", "") }
